package metrics

import (
	"sync/atomic"
	"time"
)

// Store 는 제공자 호출 통계를 저장한다. 프로세스 로컬 누적값이다.
type Store struct {
	totalCalls        int64
	totalErrors       int64
	totalInputTokens  int64
	totalOutputTokens int64
	totalDurationMs   int64
}

// NewStore 는 통계 저장소를 생성한다.
func NewStore() *Store {
	return &Store{}
}

// RecordSuccess 는 성공 호출 통계를 기록한다.
func (s *Store) RecordSuccess(duration time.Duration, tokensIn int, tokensOut int) {
	if s == nil {
		return
	}
	atomic.AddInt64(&s.totalCalls, 1)
	atomic.AddInt64(&s.totalInputTokens, int64(tokensIn))
	atomic.AddInt64(&s.totalOutputTokens, int64(tokensOut))
	atomic.AddInt64(&s.totalDurationMs, duration.Milliseconds())
}

// RecordError 는 실패 호출 통계를 기록한다.
func (s *Store) RecordError(duration time.Duration) {
	if s == nil {
		return
	}
	atomic.AddInt64(&s.totalCalls, 1)
	atomic.AddInt64(&s.totalErrors, 1)
	atomic.AddInt64(&s.totalDurationMs, duration.Milliseconds())
}

// Snapshot 는 통계 스냅샷을 반환한다.
func (s *Store) Snapshot() map[string]float64 {
	if s == nil {
		return map[string]float64{}
	}

	totalCalls := atomic.LoadInt64(&s.totalCalls)
	totalErrors := atomic.LoadInt64(&s.totalErrors)
	input := atomic.LoadInt64(&s.totalInputTokens)
	output := atomic.LoadInt64(&s.totalOutputTokens)
	durationMs := atomic.LoadInt64(&s.totalDurationMs)

	avgDuration := 0.0
	if totalCalls > 0 {
		avgDuration = float64(durationMs) / float64(totalCalls)
	}

	return map[string]float64{
		"total_calls":         float64(totalCalls),
		"total_errors":        float64(totalErrors),
		"total_input_tokens":  float64(input),
		"total_output_tokens": float64(output),
		"total_tokens":        float64(input + output),
		"total_duration_ms":   float64(durationMs),
		"avg_duration_ms":     avgDuration,
	}
}

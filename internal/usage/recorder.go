package usage

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sourcegraph/conc"
)

const recordTimeout = 10 * time.Second

// Recorder 는 사용량 이벤트를 응답 경로와 분리해 기록한다.
// 호출자는 쓰기 결과를 기다리지 않는다. 실패는 로그만 남긴다.
type Recorder struct {
	ledger *Ledger
	logger *slog.Logger
	wg     conc.WaitGroup
}

// NewRecorder 는 백그라운드 사용량 기록기를 생성한다.
func NewRecorder(ledger *Ledger, logger *slog.Logger) *Recorder {
	return &Recorder{ledger: ledger, logger: logger}
}

// Record 는 이벤트 기록을 백그라운드 태스크로 예약하고 즉시 반환한다.
func (r *Recorder) Record(
	identity string,
	route string,
	tokensIn int,
	tokensOut int,
	cost decimal.Decimal,
	meta map[string]any,
) {
	if r == nil || r.ledger == nil {
		return
	}

	r.wg.Go(func() {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()

		if _, err := r.ledger.Append(ctx, identity, route, tokensIn, tokensOut, cost, meta); err != nil {
			if r.logger != nil {
				r.logger.Warn("usage_record_failed", "identity", identity, "route", route, "err", err)
			}
		}
	})
}

// Close 는 예약된 기록이 모두 끝날 때까지 기다린다.
func (r *Recorder) Close() {
	if r == nil {
		return
	}
	r.wg.Wait()
}

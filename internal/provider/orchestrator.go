package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/config"
)

// ErrNoProviders 는 제공자가 하나도 설정되지 않았을 때 반환된다.
var ErrNoProviders = errors.New("no providers configured")

// ExhaustedError 는 모든 제공자가 실패했을 때의 집계 오류다.
// 개별 실패 사유를 모두 담아 "전 제공자 다운"을 요청 오류와 구분할 수 있게 한다.
type ExhaustedError struct {
	Failures map[string]string
	order    []string
}

// Error 는 제공자별 실패 사유를 모두 포함한 메시지를 반환한다.
func (e *ExhaustedError) Error() string {
	parts := make([]string, 0, len(e.order))
	for _, name := range e.order {
		parts = append(parts, fmt.Sprintf("%s: %s", name, e.Failures[name]))
	}
	return "all providers failed: " + strings.Join(parts, "; ")
}

// Orchestrator 는 순서 있는 제공자 목록을 차례로 시도한다.
// 호출은 엄격히 순차적이다. 결과를 낸 제공자에 대해서만 비용이 발생해야 한다.
type Orchestrator struct {
	providers []Provider
	logger    *slog.Logger
}

// NewOrchestrator 는 제공자 목록으로 오케스트레이터를 생성한다.
func NewOrchestrator(providers []Provider, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{providers: providers, logger: logger}
}

// NewFromConfig 는 설정의 제공자 항목으로 오케스트레이터를 구성한다.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) (*Orchestrator, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	providers := make([]Provider, 0, len(cfg.Providers.Entries))
	for _, entry := range cfg.Providers.Entries {
		switch entry.Kind {
		case "gemini":
			providers = append(providers, NewGemini(entry))
		case "openai":
			providers = append(providers, NewOpenAI(entry))
		default:
			return nil, fmt.Errorf("unknown provider kind: %s", entry.Kind)
		}
	}
	return NewOrchestrator(providers, logger), nil
}

// Run 는 첫 성공을 반환한다. 개별 실패는 기록만 하고 다음 제공자로 넘어간다.
// 전부 실패하면 모든 사유를 담은 ExhaustedError 를 반환한다.
func (o *Orchestrator) Run(ctx context.Context, messages []Message) (Result, error) {
	if len(o.providers) == 0 {
		return Result{}, ErrNoProviders
	}

	exhausted := &ExhaustedError{Failures: make(map[string]string, len(o.providers))}
	for _, p := range o.providers {
		result, err := p.Complete(ctx, messages)
		if err == nil {
			return result, nil
		}

		exhausted.Failures[p.Name()] = err.Error()
		exhausted.order = append(exhausted.order, p.Name())
		if o.logger != nil {
			o.logger.Warn("provider_attempt_failed", "provider", p.Name(), "err", err)
		}
	}
	return Result{}, exhausted
}

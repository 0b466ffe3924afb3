package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sourcegraph/conc"

	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/billing"
	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/identity"
	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/ledger"
	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/provider"
	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/usage"
)

// TypeSkillCall 은 현재 지원하는 유일한 잡 타입이다.
const TypeSkillCall = "skill-call"

// Runner 는 잡 한 건을 종결 상태까지 실행한다.
// 실행 중 오류는 절대 전파하지 않고 failed 상태로 전환한다.
type Runner struct {
	store        *Store
	credits      *ledger.Ledger
	recorder     *usage.Recorder
	orchestrator *provider.Orchestrator
	creditRate   float64
	logger       *slog.Logger
}

// NewRunner 는 잡 실행기를 생성한다.
func NewRunner(
	store *Store,
	credits *ledger.Ledger,
	recorder *usage.Recorder,
	orchestrator *provider.Orchestrator,
	creditRate float64,
	logger *slog.Logger,
) *Runner {
	return &Runner{
		store:        store,
		credits:      credits,
		recorder:     recorder,
		orchestrator: orchestrator,
		creditRate:   creditRate,
		logger:       logger,
	}
}

// Run 은 잡을 실행한다. 잡 조회 실패만 오류로 반환하고,
// 그 이후의 모든 실패(패닉 포함)는 failed 행으로 기록한 뒤 해당 행을 반환한다.
func (r *Runner) Run(ctx context.Context, id string) (Job, error) {
	job, err := r.store.Get(ctx, id)
	if err != nil {
		return Job{}, err
	}
	if job.Status.Terminal() {
		return job, nil
	}

	job, err = r.store.Patch(ctx, id, Patch{Status: string(StatusRunning)})
	if err != nil {
		return Job{}, err
	}

	return r.execute(ctx, job), nil
}

func (r *Runner) execute(ctx context.Context, job Job) (out Job) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("job_panicked", "job_id", job.ID, "panic", rec)
			out = r.fail(ctx, job, fmt.Sprintf("internal error: %v", rec))
		}
	}()

	if job.Type != TypeSkillCall {
		return r.fail(ctx, job, "unsupported job type: "+job.Type)
	}

	messages, err := messagesFromParams(job.Params)
	if err != nil {
		return r.fail(ctx, job, err.Error())
	}

	billed := !identity.IsGuest(job.Identity) && r.creditRate > 0
	if billed {
		balance, err := r.credits.Get(ctx, job.Identity)
		if err != nil {
			return r.fail(ctx, job, "credit balance unavailable")
		}
		if balance.Balance.LessThanOrEqual(decimal.Zero) {
			return r.fail(ctx, job, "insufficient credits")
		}
	}

	result, err := r.orchestrator.Run(ctx, messages)
	if err != nil {
		return r.fail(ctx, job, err.Error())
	}

	cost := billing.Cost(result.TokensIn, result.TokensOut, r.creditRate)
	r.recorder.Record(job.Identity, TypeSkillCall, result.TokensIn, result.TokensOut, cost, map[string]any{
		"job_id":   job.ID,
		"provider": result.Provider,
		"model":    result.Model,
	})

	if billed && cost.IsPositive() {
		if _, err := r.credits.Adjust(ctx, job.Identity, cost.Neg()); err != nil {
			r.logger.Error("job_debit_failed", "job_id", job.ID, "identity", job.Identity, "err", err)
		}
	}

	patched, err := r.store.Patch(ctx, job.ID, Patch{
		Status: string(StatusSucceeded),
		Result: map[string]any{
			"content":    result.Text,
			"provider":   result.Provider,
			"model":      result.Model,
			"tokens_in":  result.TokensIn,
			"tokens_out": result.TokensOut,
			"cost":       cost.StringFixed(3),
		},
	})
	if err != nil {
		r.logger.Error("job_finalize_failed", "job_id", job.ID, "err", err)
		job.Status = StatusSucceeded
		return job
	}
	return patched
}

func (r *Runner) fail(ctx context.Context, job Job, reason string) Job {
	patched, err := r.store.Patch(ctx, job.ID, Patch{
		Status: string(StatusFailed),
		Result: map[string]any{"error": reason},
	})
	if err != nil {
		r.logger.Error("job_fail_write_failed", "job_id", job.ID, "err", err)
		job.Status = StatusFailed
		job.Result = map[string]any{"error": reason}
		return job
	}
	return patched
}

// messagesFromParams 는 params 에서 대화 입력을 복원한다.
// prompt 문자열 또는 messages 배열을 받는다.
func messagesFromParams(params map[string]any) ([]provider.Message, error) {
	if prompt, ok := params["prompt"].(string); ok && prompt != "" {
		return []provider.Message{{Role: "user", Content: prompt}}, nil
	}

	raw, ok := params["messages"].([]any)
	if !ok || len(raw) == 0 {
		return nil, fmt.Errorf("params require prompt or messages")
	}
	messages := make([]provider.Message, 0, len(raw))
	for _, item := range raw {
		entry, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("invalid message entry")
		}
		role, _ := entry["role"].(string)
		content, _ := entry["content"].(string)
		if role == "" || content == "" {
			return nil, fmt.Errorf("message requires role and content")
		}
		messages = append(messages, provider.Message{Role: role, Content: content})
	}
	return messages, nil
}

// Scheduler 는 지연 실행 잡을 백그라운드 고루틴으로 돌린다.
type Scheduler struct {
	runner  *Runner
	wg      conc.WaitGroup
	timeout time.Duration
	logger  *slog.Logger
}

// NewScheduler 는 잡 스케줄러를 생성한다.
func NewScheduler(runner *Runner, timeout time.Duration, logger *slog.Logger) *Scheduler {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Scheduler{runner: runner, timeout: timeout, logger: logger}
}

// Schedule 는 잡 실행을 백그라운드로 넘기고 즉시 반환한다.
func (s *Scheduler) Schedule(id string) {
	s.wg.Go(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		if _, err := s.runner.Run(ctx, id); err != nil {
			s.logger.Error("scheduled_job_failed", "job_id", id, "err", err)
		}
	})
}

// Close 는 진행 중인 잡이 끝날 때까지 대기한다.
func (s *Scheduler) Close() {
	s.wg.Wait()
}

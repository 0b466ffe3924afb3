package provider

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type fakeProvider struct {
	name   string
	result Result
	err    error
	calls  int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Complete(_ context.Context, _ []Message) (Result, error) {
	f.calls++
	if f.err != nil {
		return Result{}, f.err
	}
	return f.result, nil
}

func TestRunFallsBackToNextProvider(t *testing.T) {
	failing := &fakeProvider{name: "a", err: errors.New("connection refused")}
	working := &fakeProvider{name: "b", result: Result{Provider: "b", Model: "m", Text: "ok", TokensIn: 3, TokensOut: 4}}
	o := NewOrchestrator([]Provider{failing, working}, nil)

	result, err := o.Run(context.Background(), []Message{{Role: "user", Content: "hi"}})
	if err != nil {
		t.Fatalf("expected fallback success, got %v", err)
	}
	if result.Provider != "b" {
		t.Fatalf("expected provider b, got %q", result.Provider)
	}
	if failing.calls != 1 || working.calls != 1 {
		t.Fatalf("expected strictly sequential attempts: a=%d b=%d", failing.calls, working.calls)
	}
}

func TestRunFirstSuccessStopsChain(t *testing.T) {
	first := &fakeProvider{name: "a", result: Result{Provider: "a", Text: "ok"}}
	second := &fakeProvider{name: "b", result: Result{Provider: "b", Text: "ok"}}
	o := NewOrchestrator([]Provider{first, second}, nil)

	if _, err := o.Run(context.Background(), nil); err != nil {
		t.Fatalf("run: %v", err)
	}
	if second.calls != 0 {
		t.Fatalf("second provider must not be attempted after success")
	}
}

func TestRunAggregatesAllFailures(t *testing.T) {
	a := &fakeProvider{name: "a", err: errors.New("timeout talking to a")}
	b := &fakeProvider{name: "b", err: errors.New("b quota exceeded")}
	o := NewOrchestrator([]Provider{a, b}, nil)

	_, err := o.Run(context.Background(), nil)
	if err == nil {
		t.Fatalf("expected aggregate error")
	}

	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected ExhaustedError, got %T", err)
	}
	message := err.Error()
	if !strings.Contains(message, "timeout talking to a") || !strings.Contains(message, "b quota exceeded") {
		t.Fatalf("aggregate error must contain every failure reason: %s", message)
	}
}

func TestRunNoProviders(t *testing.T) {
	o := NewOrchestrator(nil, nil)
	if _, err := o.Run(context.Background(), nil); !errors.Is(err, ErrNoProviders) {
		t.Fatalf("expected ErrNoProviders, got %v", err)
	}
}

func TestEstimateTokens(t *testing.T) {
	if got := EstimateTokens(""); got != 1 {
		t.Fatalf("empty text must estimate at least 1, got %d", got)
	}
	if got := EstimateTokens(strings.Repeat("x", 8)); got != 2 {
		t.Fatalf("expected 2, got %d", got)
	}
	if got := EstimateTokens(strings.Repeat("x", 10)); got != 3 {
		t.Fatalf("expected round(10/4)=3, got %d", got)
	}
}

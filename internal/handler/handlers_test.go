package handler

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"

	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/config"
	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/identity"
	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/jobs"
	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/kvstore"
	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/ledger"
	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/metrics"
	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/provider"
	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/token"
	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/usage"
)

// fakeProvider 는 테스트용 제공자다. 호출 횟수를 계수한다.
type fakeProvider struct {
	name   string
	result provider.Result
	err    error
	calls  int
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) Complete(_ context.Context, _ []provider.Message) (provider.Result, error) {
	p.calls++
	return p.result, p.err
}

type fixture struct {
	router    *gin.Engine
	credits   *ledger.Ledger
	usage     *usage.Ledger
	jobs      *jobs.Store
	scheduler *jobs.Scheduler
	recorder  *usage.Recorder
	provider  *fakeProvider
	cfg       *config.Config
}

func testSigningKeyPEM(t *testing.T) string {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	block := &pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)}
	return string(pem.EncodeToMemory(block))
}

func newFixture(t *testing.T, creditRate float64) *fixture {
	return buildFixture(t, creditRate, true)
}

// newKeylessFixture 는 서명 키 미설정 상태를 재현한다.
func newKeylessFixture(t *testing.T) *fixture {
	return buildFixture(t, 1.0, false)
}

func buildFixture(t *testing.T, creditRate float64, withSigningKey bool) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	signingKey := ""
	if withSigningKey {
		signingKey = testSigningKeyPEM(t)
	}

	mini := miniredis.RunT(t)
	cfg := &config.Config{
		Logging: config.LoggingConfig{Level: "info"},
		Auth:    config.AuthConfig{AdminKey: "admin-secret"},
		Token: config.TokenConfig{
			PrivateKeyPEM: signingKey,
			Issuer:        "test-issuer",
			TTLSeconds:    300,
			CookieName:    "cog_token",
		},
		Store: config.StoreConfig{
			URL:                 "redis://" + mini.Addr(),
			Enabled:             true,
			DisableCache:        true,
			ConnectMaxAttempts:  1,
			ConnectRetrySeconds: 0,
		},
		Billing: config.BillingConfig{CreditRate: creditRate},
	}

	logger := slog.Default()
	store, err := kvstore.NewStore(cfg, logger)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(store.Close)

	signer, err := token.NewSigner(cfg.Token)
	if err != nil {
		t.Fatalf("failed to create signer: %v", err)
	}

	resolver := identity.NewResolver(cfg.Token)
	credits := ledger.NewLedger(store, logger)
	usageLedger := usage.NewLedger(store, logger)
	recorder := usage.NewRecorder(usageLedger, logger)
	t.Cleanup(recorder.Close)

	fake := &fakeProvider{
		name: "stub",
		result: provider.Result{
			Provider:  "stub",
			Model:     "stub-model",
			Text:      "hello from stub",
			TokensIn:  500,
			TokensOut: 500,
		},
	}
	orchestrator := provider.NewOrchestrator([]provider.Provider{fake}, logger)
	stats := metrics.NewStore()

	jobStore := jobs.NewStore(store, logger)
	runner := jobs.NewRunner(jobStore, credits, recorder, orchestrator, cfg.Billing.Rate(), logger)
	scheduler := jobs.NewScheduler(runner, time.Minute, logger)
	t.Cleanup(scheduler.Close)

	router := NewRouter(
		cfg,
		logger,
		store,
		stats,
		NewAuthHandler(cfg, signer, logger),
		NewCreditsHandler(cfg, credits, resolver, logger),
		NewUsageHandler(cfg, usageLedger, resolver, logger),
		NewJobsHandler(cfg, jobStore, runner, scheduler, resolver, logger),
		NewAskHandler(cfg, orchestrator, credits, recorder, resolver, stats, logger),
	)

	return &fixture{
		router:    router,
		credits:   credits,
		usage:     usageLedger,
		jobs:      jobStore,
		scheduler: scheduler,
		recorder:  recorder,
		provider:  fake,
		cfg:       cfg,
	}
}

func (f *fixture) do(t *testing.T, method string, path string, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var req = httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	resp := httptest.NewRecorder()
	f.router.ServeHTTP(resp, req)
	return resp
}

func decodeBody(t *testing.T, resp *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(resp.Body.Bytes(), out); err != nil {
		t.Fatalf("decode response: %v (body %s)", err, resp.Body.String())
	}
}

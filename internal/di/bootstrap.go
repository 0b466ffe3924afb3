package di

import (
	"fmt"
	"time"

	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/config"
	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/handler"
	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/identity"
	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/jobs"
	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/kvstore"
	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/ledger"
	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/metrics"
	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/provider"
	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/server"
	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/token"
	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/usage"
)

// InitializeApp 은 애플리케이션 의존성을 초기화하고 App 인스턴스를 반환한다.
func InitializeApp() (*App, error) {
	cfg, err := config.ProvideConfig()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	logger, err := ProvideLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	store, err := kvstore.NewStore(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("kv store: %w", err)
	}

	signer, err := token.NewSigner(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("token signer: %w", err)
	}

	orchestrator, err := provider.NewFromConfig(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("provider orchestrator: %w", err)
	}

	stats := metrics.NewStore()
	resolver := identity.NewResolver(cfg.Token)
	credits := ledger.NewLedger(store, logger)
	usageLedger := usage.NewLedger(store, logger)
	usageRecorder := usage.NewRecorder(usageLedger, logger)

	jobStore := jobs.NewStore(store, logger)
	jobRunner := jobs.NewRunner(jobStore, credits, usageRecorder, orchestrator, cfg.Billing.Rate(), logger)
	jobScheduler := jobs.NewScheduler(jobRunner, time.Duration(cfg.Jobs.RunTimeoutSeconds)*time.Second, logger)

	router := handler.NewRouter(
		cfg,
		logger,
		store,
		stats,
		handler.NewAuthHandler(cfg, signer, logger),
		handler.NewCreditsHandler(cfg, credits, resolver, logger),
		handler.NewUsageHandler(cfg, usageLedger, resolver, logger),
		handler.NewJobsHandler(cfg, jobStore, jobRunner, jobScheduler, resolver, logger),
		handler.NewAskHandler(cfg, orchestrator, credits, usageRecorder, resolver, stats, logger),
	)
	httpServer := server.NewHTTPServer(cfg, router)

	return NewApp(httpServer, logger, cfg, store, usageRecorder, jobScheduler), nil
}

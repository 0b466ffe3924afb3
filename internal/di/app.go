package di

import (
	"log/slog"
	"net/http"

	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/config"
	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/jobs"
	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/kvstore"
	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/usage"
)

// App: 애플리케이션 구성 요소를 묶는다.
type App struct {
	Server        *http.Server
	Logger        *slog.Logger
	Config        *config.Config
	Store         *kvstore.Store
	UsageRecorder *usage.Recorder
	JobScheduler  *jobs.Scheduler
}

// NewApp: App 인스턴스를 생성합니다.
func NewApp(
	server *http.Server,
	logger *slog.Logger,
	cfg *config.Config,
	store *kvstore.Store,
	usageRecorder *usage.Recorder,
	jobScheduler *jobs.Scheduler,
) *App {
	return &App{
		Server:        server,
		Logger:        logger,
		Config:        cfg,
		Store:         store,
		UsageRecorder: usageRecorder,
		JobScheduler:  jobScheduler,
	}
}

// Close: 앱 리소스를 정리합니다. 진행 중인 백그라운드 작업을 먼저 비운다.
func (a *App) Close() {
	if a.JobScheduler != nil {
		a.JobScheduler.Close()
	}
	if a.UsageRecorder != nil {
		a.UsageRecorder.Close()
	}
	if a.Store != nil {
		a.Store.Close()
	}
}

package handler

import (
	"log/slog"
	"strings"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/config"
	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/httperror"
	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/kvstore"
	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/metrics"
	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/middleware"
)

// NewRouter 는 HTTP 라우터를 구성한다.
// 최상위 recovery 가 모든 미처리 패닉을 JSON 오류로 변환한다.
// 과금 헤더 계약 때문에 기본 오류 페이지가 그대로 나가면 안 된다.
func NewRouter(
	cfg *config.Config,
	logger *slog.Logger,
	store *kvstore.Store,
	stats *metrics.Store,
	authHandler *AuthHandler,
	creditsHandler *CreditsHandler,
	usageHandler *UsageHandler,
	jobsHandler *JobsHandler,
	askHandler *AskHandler,
) *gin.Engine {
	setGinMode(cfg.Logging.Level)

	router := gin.New()
	router.Use(
		middleware.RequestID(),
		middleware.RequestLogger(logger),
		gin.CustomRecovery(func(c *gin.Context, recovered any) {
			logger.Error("panic_recovered", "panic", recovered, "path", c.Request.URL.Path)
			writeError(c, httperror.NewInternalError("internal error"))
			c.Abort()
		}),
		middleware.CORS(cfg),
		middleware.RateLimit(cfg),
		gzip.Gzip(gzip.DefaultCompression),
	)

	RegisterHealthRoutes(router, cfg, store, stats)
	authHandler.RegisterRoutes(router)
	creditsHandler.RegisterRoutes(router)
	usageHandler.RegisterRoutes(router)
	jobsHandler.RegisterRoutes(router)
	askHandler.RegisterRoutes(router)

	return router
}

func setGinMode(level string) {
	if strings.EqualFold(strings.TrimSpace(level), "debug") {
		gin.SetMode(gin.DebugMode)
		return
	}
	gin.SetMode(gin.ReleaseMode)
}

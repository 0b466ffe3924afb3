package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/config"
	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/health"
	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/kvstore"
	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/metrics"
)

// RegisterHealthRoutes: 상태 확인 라우트를 등록합니다.
func RegisterHealthRoutes(router *gin.Engine, cfg *config.Config, store *kvstore.Store, stats *metrics.Store) {
	router.GET("/healthz", func(c *gin.Context) {
		// Liveness: 외부 의존성 상태로 인해 다운 판정되지 않도록 shallow로 유지합니다.
		payload := health.Collect(c.Request.Context(), cfg, store, stats, false)
		c.JSON(http.StatusOK, payload)
	})

	router.GET("/healthz/ready", func(c *gin.Context) {
		payload := health.Collect(c.Request.Context(), cfg, store, stats, true)
		status := http.StatusOK
		if payload.Status != "ok" {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, payload)
	})
}

package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/config"
	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/httperror"
)

// AdminKeyHeader 는 관리자 키 헤더다.
const AdminKeyHeader = "X-Admin-Key"

// AdminKeyAuth 는 관리자 전용 경로의 인증 미들웨어다.
// 키가 설정되지 않았으면 모든 요청을 거부한다(fail closed).
func AdminKeyAuth(cfg *config.Config) gin.HandlerFunc {
	expected := ""
	if cfg != nil {
		expected = strings.TrimSpace(cfg.Auth.AdminKey)
	}

	return func(c *gin.Context) {
		provided := strings.TrimSpace(c.GetHeader(AdminKeyHeader))
		if expected == "" || provided == "" ||
			subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) != 1 {
			details := map[string]any{"path": c.Request.URL.Path}
			status, payload := httperror.Response(httperror.NewUnauthorized(details), GetRequestID(c))
			c.AbortWithStatusJSON(status, payload)
			return
		}

		c.Next()
	}
}

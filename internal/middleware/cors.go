package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/config"
)

// CORS 는 허용 출처 설정 기반 CORS 미들웨어다.
// 출처 목록에 "*" 가 있으면 전체 허용한다. 빈 목록도 전체 허용으로 본다.
func CORS(cfg *config.Config) gin.HandlerFunc {
	corsConfig := cors.Config{
		AllowMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{
			"Origin", "Content-Type", "Authorization",
			RequestIDHeader, AdminKeyHeader, "X-User-Email",
		},
		ExposeHeaders: []string{
			RequestIDHeader,
			"X-Provider", "X-Model", "X-Tokens-In", "X-Tokens-Out",
			"X-Credits-Used", "X-Credits-Balance",
		},
		MaxAge: 12 * time.Hour,
	}

	origins := []string{}
	allowAll := cfg == nil || len(cfg.CORS.AllowedOrigins) == 0
	if !allowAll {
		for _, origin := range cfg.CORS.AllowedOrigins {
			if origin == "*" {
				allowAll = true
				break
			}
			origins = append(origins, origin)
		}
	}

	if allowAll {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = origins
		corsConfig.AllowCredentials = true
	}

	return cors.New(corsConfig)
}

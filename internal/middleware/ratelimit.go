package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/cache"
	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/config"
	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/httperror"
	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/identity"
)

// RateLimit 는 호출자별 분당 요청 제한 미들웨어다.
// 제한값 0 은 비활성화다. 계수는 프로세스 로컬 TTL 캐시에 유지한다.
func RateLimit(cfg *config.Config) gin.HandlerFunc {
	limit := 0
	cacheSize := 0
	cacheTTL := time.Duration(0)
	if cfg != nil {
		limit = cfg.RateLimit.RequestsPerMinute
		cacheSize = cfg.RateLimit.CacheSize
		cacheTTL = time.Duration(cfg.RateLimit.CacheTTLSeconds) * time.Second
	}

	counter := cache.NewTTLCache[string, int](cacheSize, cacheTTL)

	return func(c *gin.Context) {
		if limit <= 0 {
			c.Next()
			return
		}

		if c.Request.Method == http.MethodOptions || !strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.Next()
			return
		}

		caller := rateLimitCaller(c)
		window := time.Now().Unix() / 60
		key := fmt.Sprintf("%s:%d", caller, window)

		count, ok := counter.Modify(key, func(current int, _ bool) int { return current + 1 })
		if !ok {
			c.Next()
			return
		}

		if count > limit {
			details := map[string]any{
				"path":             c.Request.URL.Path,
				"limit_per_minute": limit,
			}
			status, payload := httperror.Response(httperror.NewRateLimitExceeded(details), GetRequestID(c))
			c.AbortWithStatusJSON(status, payload)
			return
		}

		c.Next()
	}
}

func rateLimitCaller(c *gin.Context) string {
	if email := strings.TrimSpace(c.GetHeader(identity.EmailHeader)); email != "" {
		return "id:" + hashKey(strings.ToLower(email))
	}

	forwarded := strings.TrimSpace(c.GetHeader("X-Forwarded-For"))
	if forwarded != "" {
		ip := strings.TrimSpace(strings.Split(forwarded, ",")[0])
		if ip != "" {
			return "ip:" + ip
		}
	}

	if c.ClientIP() != "" {
		return "ip:" + c.ClientIP()
	}

	return "ip:unknown"
}

func hashKey(value string) string {
	sum := sha256.Sum256([]byte(value))
	encoded := hex.EncodeToString(sum[:])
	if len(encoded) <= 16 {
		return encoded
	}
	return encoded[:16]
}

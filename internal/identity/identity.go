package identity

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/config"
)

// GuestPrefix 는 익명 호출자 식별자 접두사다.
const GuestPrefix = "guest:"

// EmailHeader 는 식별자 해석에 쓰는 요청 헤더다.
const EmailHeader = "X-User-Email"

// NewGuestID 는 새 게스트 식별자를 생성한다.
func NewGuestID() string {
	return GuestPrefix + uuid.NewString()
}

// IsGuest 는 게스트 식별자 여부를 반환한다. 게스트는 잔액 검사와 차감에서 제외된다.
func IsGuest(id string) bool {
	return strings.HasPrefix(id, GuestPrefix)
}

// Resolver 는 요청에서 호출자 식별자를 해석한다.
type Resolver struct {
	cookieName string
}

// NewResolver 는 식별자 해석기를 생성한다.
func NewResolver(cfg config.TokenConfig) *Resolver {
	return &Resolver{cookieName: cfg.CookieName}
}

// FromRequest 는 쿼리 → 헤더 → 토큰 클레임 순서로 식별자를 해석한다.
// 토큰 클레임은 서명 검증 없이 디코드한다. 게스트 플로우의 의도된 동작이다.
// 해석 실패 시 빈 문자열을 반환한다.
func (r *Resolver) FromRequest(c *gin.Context) string {
	if c == nil {
		return ""
	}

	if email := Normalize(c.Query("email")); email != "" {
		return email
	}
	if email := Normalize(c.GetHeader(EmailHeader)); email != "" {
		return email
	}

	raw := bearerToken(c)
	if raw == "" && r != nil && r.cookieName != "" {
		if cookie, err := c.Cookie(r.cookieName); err == nil {
			raw = cookie
		}
	}
	if raw == "" {
		return ""
	}
	return Normalize(claimIdentity(raw))
}

// Normalize 는 식별자를 소문자로 정규화한다.
func Normalize(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

func bearerToken(c *gin.Context) string {
	authValue := strings.TrimSpace(c.GetHeader("Authorization"))
	if authValue == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(authValue), "bearer ") {
		return strings.TrimSpace(authValue[7:])
	}
	return ""
}

// claimIdentity 는 토큰에서 email 또는 sub 클레임을 꺼낸다. 서명은 보지 않는다.
func claimIdentity(raw string) string {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return ""
	}

	if email, ok := claims["email"].(string); ok && strings.TrimSpace(email) != "" {
		return email
	}
	if sub, ok := claims["sub"].(string); ok {
		return sub
	}
	return ""
}

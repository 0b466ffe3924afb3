package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/config"
	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/handler/shared"
	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/identity"
	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/token"
)

// GuestTokenResponse: 게스트 토큰 발급 응답입니다.
type GuestTokenResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
	Identity  string `json:"identity"`
}

// AuthHandler: 게스트 인증 핸들러입니다.
type AuthHandler struct {
	cfg    *config.Config
	signer *token.Signer
	logger *slog.Logger
}

// NewAuthHandler: 인증 핸들러를 생성합니다.
func NewAuthHandler(cfg *config.Config, signer *token.Signer, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		cfg:    cfg,
		signer: signer,
		logger: logger,
	}
}

// RegisterRoutes: 인증 라우트를 등록합니다.
func (h *AuthHandler) RegisterRoutes(router *gin.Engine) {
	router.POST("/api/auth/guest", h.handleGuest)
}

// handleGuest 는 새 게스트 식별자로 단명 토큰을 발급한다.
// 서명 키 미설정은 기동 실패가 아니라 이 연산의 5xx 다.
func (h *AuthHandler) handleGuest(c *gin.Context) {
	guestID := identity.NewGuestID()
	signed, expiresAt, err := h.signer.Issue(map[string]any{
		"sub":   guestID,
		"guest": true,
	})
	if err != nil {
		shared.LogError(h.logger, "guest_token", err)
		writeError(c, err)
		return
	}

	if h.cfg.Token.CookieName != "" {
		c.SetCookie(h.cfg.Token.CookieName, signed, h.cfg.Token.TTL(), "/", "", false, true)
	}

	c.JSON(http.StatusOK, GuestTokenResponse{
		Token:     signed,
		ExpiresAt: expiresAt.UTC().Format(time.RFC3339),
		Identity:  guestID,
	})
}

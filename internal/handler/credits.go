package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/config"
	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/handler/shared"
	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/httperror"
	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/identity"
	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/ledger"
	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/middleware"
)

// BalanceResponse: 크레딧 잔액 응답입니다.
type BalanceResponse struct {
	Identity  string `json:"identity"`
	Balance   string `json:"balance"`
	UpdatedAt string `json:"updated_at"`
}

// AdjustRequest: 관리자 잔액 조정 요청입니다. set 과 delta 는 상호 배타다.
type AdjustRequest struct {
	Identity string           `json:"identity"`
	Set      *decimal.Decimal `json:"set"`
	Delta    *decimal.Decimal `json:"delta"`
}

// CreditsHandler: 크레딧 원장 핸들러입니다.
type CreditsHandler struct {
	cfg      *config.Config
	ledger   *ledger.Ledger
	resolver *identity.Resolver
	logger   *slog.Logger
}

// NewCreditsHandler: 크레딧 핸들러를 생성합니다.
func NewCreditsHandler(
	cfg *config.Config,
	creditLedger *ledger.Ledger,
	resolver *identity.Resolver,
	logger *slog.Logger,
) *CreditsHandler {
	return &CreditsHandler{
		cfg:      cfg,
		ledger:   creditLedger,
		resolver: resolver,
		logger:   logger,
	}
}

// RegisterRoutes: 크레딧 라우트를 등록합니다.
func (h *CreditsHandler) RegisterRoutes(router *gin.Engine) {
	group := router.Group("/api/credits")
	group.GET("/balance", h.handleBalance)
	group.POST("/adjust", middleware.AdminKeyAuth(h.cfg), h.handleAdjust)
}

func (h *CreditsHandler) handleBalance(c *gin.Context) {
	caller := h.resolver.FromRequest(c)
	if caller == "" {
		writeError(c, httperror.NewMissingIdentity())
		return
	}

	balance, err := h.ledger.Get(c.Request.Context(), caller)
	if err != nil {
		shared.LogError(h.logger, "credit_balance", err)
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, buildBalanceResponse(caller, balance))
}

func (h *CreditsHandler) handleAdjust(c *gin.Context) {
	var req AdjustRequest
	if !bindJSON(c, &req) {
		return
	}

	target := identity.Normalize(req.Identity)
	if target == "" {
		target = h.resolver.FromRequest(c)
	}
	if target == "" {
		writeError(c, httperror.NewMissingIdentity())
		return
	}

	if req.Set != nil && req.Delta != nil {
		writeError(c, httperror.NewConflictingFields("set", "delta"))
		return
	}
	if req.Set == nil && req.Delta == nil {
		writeError(c, httperror.NewInvalidInput("either set or delta is required"))
		return
	}

	var (
		balance ledger.Balance
		err     error
	)
	if req.Set != nil {
		balance, err = h.ledger.Set(c.Request.Context(), target, *req.Set)
	} else {
		balance, err = h.ledger.Adjust(c.Request.Context(), target, *req.Delta)
	}
	if err != nil {
		shared.LogError(h.logger, "credit_adjust", err)
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, buildBalanceResponse(target, balance))
}

func buildBalanceResponse(caller string, balance ledger.Balance) BalanceResponse {
	updatedAt := ""
	if !balance.UpdatedAt.IsZero() {
		updatedAt = balance.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return BalanceResponse{
		Identity:  caller,
		Balance:   balance.Balance.StringFixed(3),
		UpdatedAt: updatedAt,
	}
}

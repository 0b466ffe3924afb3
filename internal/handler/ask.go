package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/billing"
	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/config"
	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/handler/shared"
	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/httperror"
	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/identity"
	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/ledger"
	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/metrics"
	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/provider"
	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/usage"
)

// AskRequest: 채팅 완성 요청입니다.
type AskRequest struct {
	Messages []provider.Message `json:"messages" binding:"required,min=1,dive"`
}

// AskResponse: 채팅 완성 응답입니다. 과금 정보는 헤더로 전달된다.
type AskResponse struct {
	Result AskResult `json:"result"`
}

// AskResult: 완성 본문입니다.
type AskResult struct {
	Content string `json:"content"`
}

// AskHandler: 채팅 완성 핸들러입니다.
type AskHandler struct {
	cfg          *config.Config
	orchestrator *provider.Orchestrator
	credits      *ledger.Ledger
	recorder     *usage.Recorder
	resolver     *identity.Resolver
	stats        *metrics.Store
	logger       *slog.Logger
}

// NewAskHandler: 채팅 완성 핸들러를 생성합니다.
func NewAskHandler(
	cfg *config.Config,
	orchestrator *provider.Orchestrator,
	credits *ledger.Ledger,
	recorder *usage.Recorder,
	resolver *identity.Resolver,
	stats *metrics.Store,
	logger *slog.Logger,
) *AskHandler {
	return &AskHandler{
		cfg:          cfg,
		orchestrator: orchestrator,
		credits:      credits,
		recorder:     recorder,
		resolver:     resolver,
		stats:        stats,
		logger:       logger,
	}
}

// RegisterRoutes: 채팅 완성 라우트를 등록합니다.
func (h *AskHandler) RegisterRoutes(router *gin.Engine) {
	router.POST("/api/ask", h.handleAsk)
}

// handleAsk 순서: 식별자 해석 → 잔액 사전 검사 → 제공자 호출 → 비용 계산 →
// 사용량 기록 → 차감 → 과금 헤더. 게스트는 잔액 검사와 차감을 건너뛴다.
func (h *AskHandler) handleAsk(c *gin.Context) {
	caller := h.resolver.FromRequest(c)
	if caller == "" {
		writeError(c, httperror.NewMissingIdentity())
		return
	}

	var req AskRequest
	if !bindJSON(c, &req) {
		return
	}

	rate := h.cfg.Billing.Rate()
	billed := !identity.IsGuest(caller) && rate > 0
	if billed {
		balance, err := h.credits.Get(c.Request.Context(), caller)
		if err != nil {
			shared.LogError(h.logger, "ask_balance_check", err)
			writeError(c, err)
			return
		}
		// 잔액 0 이하는 제공자 호출 전에 끊는다. 비용이 발생하면 안 된다.
		if balance.Balance.LessThanOrEqual(decimal.Zero) {
			writeError(c, httperror.NewInsufficientCredits(balance.Balance))
			return
		}
	}

	startedAt := time.Now()
	result, err := h.orchestrator.Run(c.Request.Context(), req.Messages)
	if err != nil {
		h.stats.RecordError(time.Since(startedAt))
		shared.LogError(h.logger, "ask_completion", err)
		writeError(c, err)
		return
	}
	h.stats.RecordSuccess(time.Since(startedAt), result.TokensIn, result.TokensOut)

	cost := billing.Cost(result.TokensIn, result.TokensOut, rate)
	h.recorder.Record(caller, "ask", result.TokensIn, result.TokensOut, cost, map[string]any{
		"provider": result.Provider,
		"model":    result.Model,
	})

	headers := billing.Headers{
		Provider:  result.Provider,
		Model:     result.Model,
		TokensIn:  result.TokensIn,
		TokensOut: result.TokensOut,
		Cost:      cost,
	}

	if billed && cost.IsPositive() {
		// 차감 실패는 응답을 막지 않는다. 잔액 헤더만 빠진다.
		balance, err := h.credits.Adjust(c.Request.Context(), caller, cost.Neg())
		if err != nil {
			shared.LogError(h.logger, "ask_debit", err)
		} else {
			headers.Balance = &balance.Balance
		}
	}

	headers.Apply(c)
	c.JSON(http.StatusOK, AskResponse{Result: AskResult{Content: result.Text}})
}

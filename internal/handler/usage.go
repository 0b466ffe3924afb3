package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/config"
	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/handler/shared"
	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/httperror"
	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/identity"
	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/usage"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// AppendUsageRequest: 사용량 이벤트 기록 요청입니다.
type AppendUsageRequest struct {
	Route     string           `json:"route" binding:"required"`
	TokensIn  int              `json:"tokens_in"`
	TokensOut int              `json:"tokens_out"`
	Cost      *decimal.Decimal `json:"cost"`
	Meta      map[string]any   `json:"meta"`
}

// UsageEventResponse: 사용량 이벤트 응답입니다.
type UsageEventResponse struct {
	ID        string         `json:"id"`
	CreatedAt string         `json:"created_at"`
	Route     string         `json:"route"`
	TokensIn  int            `json:"tokens_in"`
	TokensOut int            `json:"tokens_out"`
	Cost      string         `json:"cost"`
	Meta      map[string]any `json:"meta,omitempty"`
	Identity  string         `json:"identity"`
}

// UsageListResponse: 사용량 목록 응답입니다. 목록은 항상 최신순이다.
type UsageListResponse struct {
	Events     []UsageEventResponse `json:"events"`
	NextCursor string               `json:"next_cursor,omitempty"`
}

// UsageHandler: 사용량 원장 핸들러입니다.
type UsageHandler struct {
	cfg      *config.Config
	ledger   *usage.Ledger
	resolver *identity.Resolver
	logger   *slog.Logger
}

// NewUsageHandler: 사용량 핸들러를 생성합니다.
func NewUsageHandler(
	cfg *config.Config,
	usageLedger *usage.Ledger,
	resolver *identity.Resolver,
	logger *slog.Logger,
) *UsageHandler {
	return &UsageHandler{
		cfg:      cfg,
		ledger:   usageLedger,
		resolver: resolver,
		logger:   logger,
	}
}

// RegisterRoutes: 사용량 라우트를 등록합니다.
func (h *UsageHandler) RegisterRoutes(router *gin.Engine) {
	group := router.Group("/api/usage")
	group.POST("", h.handleAppend)
	group.GET("", h.handleList)
}

func (h *UsageHandler) handleAppend(c *gin.Context) {
	caller := h.resolver.FromRequest(c)
	if caller == "" {
		writeError(c, httperror.NewMissingIdentity())
		return
	}

	var req AppendUsageRequest
	if !bindJSON(c, &req) {
		return
	}

	cost := decimal.Zero
	if req.Cost != nil {
		cost = *req.Cost
	}

	event, err := h.ledger.Append(c.Request.Context(), caller, req.Route, req.TokensIn, req.TokensOut, cost, req.Meta)
	if err != nil {
		shared.LogError(h.logger, "usage_append", err)
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, buildUsageEventResponse(event))
}

func (h *UsageHandler) handleList(c *gin.Context) {
	caller := h.resolver.FromRequest(c)
	if caller == "" {
		writeError(c, httperror.NewMissingIdentity())
		return
	}

	limit, ok := parseLimit(c)
	if !ok {
		return
	}

	events, next, err := h.ledger.List(c.Request.Context(), caller, limit, c.Query("cursor"))
	if err != nil {
		shared.LogError(h.logger, "usage_list", err)
		writeError(c, err)
		return
	}

	response := UsageListResponse{
		Events:     make([]UsageEventResponse, 0, len(events)),
		NextCursor: next,
	}
	for _, event := range events {
		response.Events = append(response.Events, buildUsageEventResponse(event))
	}

	c.JSON(http.StatusOK, response)
}

func buildUsageEventResponse(event usage.Event) UsageEventResponse {
	return UsageEventResponse{
		ID:        event.ID,
		CreatedAt: event.CreatedAt.UTC().Format(time.RFC3339Nano),
		Route:     event.Route,
		TokensIn:  event.TokensIn,
		TokensOut: event.TokensOut,
		Cost:      event.Cost.StringFixed(3),
		Meta:      event.Meta,
		Identity:  event.Identity,
	}
}

// parseLimit 는 limit 쿼리를 해석한다. 범위를 벗어나면 잘라낸다.
func parseLimit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return defaultListLimit, true
	}

	limit, err := strconv.Atoi(raw)
	if err != nil {
		writeError(c, httperror.NewInvalidInput("limit must be an integer"))
		return 0, false
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return limit, true
}

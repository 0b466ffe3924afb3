package usage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/kvstore"
)

// Event 는 과금 가능 동작 1회의 불변 기록이다. 쓰인 뒤 절대 수정되지 않는다.
type Event struct {
	ID        string          `json:"id"`
	CreatedAt time.Time       `json:"created_at"`
	Route     string          `json:"route"`
	TokensIn  int             `json:"tokens_in,omitempty"`
	TokensOut int             `json:"tokens_out,omitempty"`
	Cost      decimal.Decimal `json:"cost"`
	Meta      map[string]any  `json:"meta,omitempty"`
	Identity  string          `json:"identity"`
}

// Ledger 는 식별자별 사용량 이벤트 로그다.
// 색인 멤버가 역순 타임스탬프로 시작하므로 목록은 생성순 정렬 없이 최신순이 된다.
type Ledger struct {
	store  *kvstore.Store
	logger *slog.Logger
}

// NewLedger 는 사용량 원장을 생성한다.
func NewLedger(store *kvstore.Store, logger *slog.Logger) *Ledger {
	return &Ledger{store: store, logger: logger}
}

func eventKey(identity string, id string) string {
	return fmt.Sprintf("usage:%s:%s", identity, id)
}

func indexKey(identity string) string {
	return "usageidx:" + identity
}

// Append 는 이벤트 1건을 기록한다. 행을 먼저 쓰고 색인을 쓴다.
func (l *Ledger) Append(
	ctx context.Context,
	identity string,
	route string,
	tokensIn int,
	tokensOut int,
	cost decimal.Decimal,
	meta map[string]any,
) (Event, error) {
	event := Event{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Route:     route,
		TokensIn:  tokensIn,
		TokensOut: tokensOut,
		Cost:      cost,
		Meta:      meta,
		Identity:  identity,
	}

	if err := l.store.SetJSON(ctx, eventKey(identity, event.ID), event); err != nil {
		return Event{}, fmt.Errorf("append usage event: %w", err)
	}

	member := kvstore.ReverseTimestamp(event.CreatedAt) + ":" + event.ID
	if err := l.store.IndexAdd(ctx, indexKey(identity), member); err != nil {
		// 색인은 열거 편의용이다. 행은 이미 존재하므로 이벤트 자체는 유효하다.
		return Event{}, fmt.Errorf("index usage event: %w", err)
	}
	return event, nil
}

// List 는 최신순으로 이벤트를 나열한다. cursor 는 저장소의 불투명 연속 토큰이다.
func (l *Ledger) List(ctx context.Context, identity string, limit int, cursor string) ([]Event, string, error) {
	members, next, err := l.store.IndexScan(ctx, indexKey(identity), limit, cursor)
	if err != nil {
		return nil, "", fmt.Errorf("list usage: %w", err)
	}

	events := make([]Event, 0, len(members))
	for _, member := range members {
		id := memberID(member)
		if id == "" {
			continue
		}
		var event Event
		if err := l.store.GetJSON(ctx, eventKey(identity, id), &event); err != nil {
			if errors.Is(err, kvstore.ErrNotFound) {
				continue
			}
			return nil, "", fmt.Errorf("resolve usage event: %w", err)
		}
		events = append(events, event)
	}
	return events, next, nil
}

// memberID 는 "<revts>:<id>" 멤버에서 이벤트 id 를 꺼낸다.
func memberID(member string) string {
	pos := strings.Index(member, ":")
	if pos < 0 || pos+1 >= len(member) {
		return ""
	}
	return member[pos+1:]
}

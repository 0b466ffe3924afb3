package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/kvstore"
)

// 잔액은 쓰기 시마다 소수 3자리로 반올림한다. 미세 차감 누적에 따른 드리프트 방지.
const balanceScale = 3

// Balance 는 식별자별 크레딧 잔액 행이다.
type Balance struct {
	Balance   decimal.Decimal `json:"balance"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Ledger 는 식별자별 크레딧 잔액을 관리한다.
//
// Adjust 는 read-modify-write 이며 격리되지 않는다. 같은 식별자에 대한 동시
// 호출은 갱신 유실이 가능하다. 저장소에 CAS/트랜잭션이 없어 수용한 트레이드오프다.
type Ledger struct {
	store  *kvstore.Store
	logger *slog.Logger
}

// NewLedger 는 크레딧 원장을 생성한다.
func NewLedger(store *kvstore.Store, logger *slog.Logger) *Ledger {
	return &Ledger{store: store, logger: logger}
}

func balanceKey(identity string) string {
	return "credits:" + identity
}

// Get 는 잔액을 조회한다. 기록이 없으면 0 잔액을 반환하며 오류가 아니다.
func (l *Ledger) Get(ctx context.Context, identity string) (Balance, error) {
	var row Balance
	err := l.store.GetJSON(ctx, balanceKey(identity), &row)
	if errors.Is(err, kvstore.ErrNotFound) {
		return Balance{Balance: decimal.Zero}, nil
	}
	if err != nil {
		return Balance{}, fmt.Errorf("get balance: %w", err)
	}
	return row, nil
}

// Set 는 잔액을 절대값으로 쓴다. 음수는 0 으로 클램프된다.
func (l *Ledger) Set(ctx context.Context, identity string, value decimal.Decimal) (Balance, error) {
	row := Balance{
		Balance:   clamp(value),
		UpdatedAt: time.Now().UTC(),
	}
	if err := l.store.SetJSON(ctx, balanceKey(identity), row); err != nil {
		return Balance{}, fmt.Errorf("set balance: %w", err)
	}
	return row, nil
}

// Adjust 는 잔액에 델타를 더한다. 결과는 0 이상으로 클램프된다.
func (l *Ledger) Adjust(ctx context.Context, identity string, delta decimal.Decimal) (Balance, error) {
	current, err := l.Get(ctx, identity)
	if err != nil {
		return Balance{}, err
	}
	return l.Set(ctx, identity, current.Balance.Add(delta))
}

func clamp(value decimal.Decimal) decimal.Decimal {
	rounded := value.Round(balanceScale)
	if rounded.IsNegative() {
		return decimal.Zero
	}
	return rounded
}

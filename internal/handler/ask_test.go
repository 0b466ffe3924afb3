package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/billing"
	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/identity"
)

const askBody = `{"messages":[{"role":"user","content":"hello"}]}`

func TestAskSuccessCarriesBillingHeaders(t *testing.T) {
	f := newFixture(t, 2.0)
	ctx := context.Background()

	if _, err := f.credits.Set(ctx, "user@x.com", decimal.NewFromInt(10)); err != nil {
		t.Fatalf("seed balance: %v", err)
	}

	resp := f.do(t, http.MethodPost, "/api/ask", askBody,
		map[string]string{identity.EmailHeader: "user@x.com"})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var body AskResponse
	decodeBody(t, resp, &body)
	if body.Result.Content != "hello from stub" {
		t.Fatalf("unexpected content: %q", body.Result.Content)
	}

	headers := resp.Header()
	if headers.Get(billing.HeaderProvider) != "stub" || headers.Get(billing.HeaderModel) != "stub-model" {
		t.Fatalf("missing provider headers: %+v", headers)
	}
	if headers.Get(billing.HeaderTokensIn) != "500" || headers.Get(billing.HeaderTokensOut) != "500" {
		t.Fatalf("missing token headers: %+v", headers)
	}
	// 1000 토큰, 1k당 2크레딧 → 2.000 차감, 잔액 8.000
	if headers.Get(billing.HeaderCreditsUsed) != "2.000" {
		t.Fatalf("unexpected cost header: %s", headers.Get(billing.HeaderCreditsUsed))
	}
	if headers.Get(billing.HeaderCreditsBalance) != "8.000" {
		t.Fatalf("unexpected balance header: %s", headers.Get(billing.HeaderCreditsBalance))
	}

	balance, err := f.credits.Get(ctx, "user@x.com")
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if balance.Balance.StringFixed(3) != "8.000" {
		t.Fatalf("expected 8.000 after debit, got %s", balance.Balance.StringFixed(3))
	}
}

func TestAskInsufficientBalanceSkipsProvider(t *testing.T) {
	f := newFixture(t, 1.0)

	resp := f.do(t, http.MethodPost, "/api/ask", askBody,
		map[string]string{identity.EmailHeader: "broke@x.com"})
	if resp.Code != http.StatusPaymentRequired {
		t.Fatalf("expected 402, got %d: %s", resp.Code, resp.Body.String())
	}
	if !strings.Contains(resp.Body.String(), "INSUFFICIENT_CREDITS") {
		t.Fatalf("expected INSUFFICIENT_CREDITS code: %s", resp.Body.String())
	}
	if !strings.Contains(resp.Body.String(), "0.000") {
		t.Fatalf("expected current balance in details: %s", resp.Body.String())
	}
	if f.provider.calls != 0 {
		t.Fatalf("provider must not be called on insufficient balance")
	}
}

func TestAskGuestBypassesBilling(t *testing.T) {
	f := newFixture(t, 1.0)

	resp := f.do(t, http.MethodPost, "/api/ask", askBody,
		map[string]string{identity.EmailHeader: "guest:abc-123"})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for guest, got %d: %s", resp.Code, resp.Body.String())
	}

	if resp.Header().Get(billing.HeaderCreditsBalance) != "" {
		t.Fatalf("guest response must not carry a balance header")
	}

	balance, err := f.credits.Get(context.Background(), "guest:abc-123")
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if !balance.Balance.IsZero() {
		t.Fatalf("guest must never be debited, balance %s", balance.Balance)
	}
}

func TestAskBillingDisabledSkipsBalanceCheck(t *testing.T) {
	f := newFixture(t, 0)

	resp := f.do(t, http.MethodPost, "/api/ask", askBody,
		map[string]string{identity.EmailHeader: "user@x.com"})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 with billing disabled, got %d: %s", resp.Code, resp.Body.String())
	}
	if resp.Header().Get(billing.HeaderCreditsUsed) != "0.000" {
		t.Fatalf("expected zero cost header, got %s", resp.Header().Get(billing.HeaderCreditsUsed))
	}
}

func TestAskAllProvidersFailed(t *testing.T) {
	f := newFixture(t, 0)
	f.provider.err = errors.New("upstream down")

	resp := f.do(t, http.MethodPost, "/api/ask", askBody,
		map[string]string{identity.EmailHeader: "guest:abc"})
	if resp.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d: %s", resp.Code, resp.Body.String())
	}
	if !strings.Contains(resp.Body.String(), "UPSTREAM_UNAVAILABLE") {
		t.Fatalf("expected UPSTREAM_UNAVAILABLE code: %s", resp.Body.String())
	}
	if !strings.Contains(resp.Body.String(), "upstream down") {
		t.Fatalf("expected per-provider failure reason: %s", resp.Body.String())
	}
}

func TestAskRequiresMessages(t *testing.T) {
	f := newFixture(t, 1.0)

	resp := f.do(t, http.MethodPost, "/api/ask", `{}`,
		map[string]string{identity.EmailHeader: "guest:abc"})
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestAskIdentityFromBearerToken(t *testing.T) {
	f := newFixture(t, 0)

	// 자체 발급 토큰의 sub 클레임이 식별자로 해석된다.
	issued := f.do(t, http.MethodPost, "/api/auth/guest", "", nil)
	var guest GuestTokenResponse
	decodeBody(t, issued, &guest)

	resp := f.do(t, http.MethodPost, "/api/ask", askBody,
		map[string]string{"Authorization": "Bearer " + guest.Token})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 via bearer identity, got %d: %s", resp.Code, resp.Body.String())
	}
}

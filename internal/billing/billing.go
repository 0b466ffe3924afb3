package billing

import (
	"math"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// 과금 응답 헤더 계약. 성공한 과금 호출마다 붙는다.
const (
	HeaderProvider       = "X-Provider"
	HeaderModel          = "X-Model"
	HeaderTokensIn       = "X-Tokens-In"
	HeaderTokensOut      = "X-Tokens-Out"
	HeaderCreditsUsed    = "X-Credits-Used"
	HeaderCreditsBalance = "X-Credits-Balance"
)

var thousand = decimal.NewFromInt(1000)

// Cost 는 토큰 1000개당 rate 크레딧으로 비용을 계산한다.
// rate 가 0 이하이거나 비정상 값이면 과금이 꺼진 것으로 보고 0 을 반환한다.
func Cost(tokensIn int, tokensOut int, rate float64) decimal.Decimal {
	if rate <= 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		return decimal.Zero
	}
	total := decimal.NewFromInt(int64(tokensIn) + int64(tokensOut))
	return total.Div(thousand).Mul(decimal.NewFromFloat(rate)).Round(3)
}

// Headers 는 과금 헤더에 담길 값이다. Balance 는 차감이 일어난 경우에만 설정한다.
type Headers struct {
	Provider  string
	Model     string
	TokensIn  int
	TokensOut int
	Cost      decimal.Decimal
	Balance   *decimal.Decimal
}

// Apply 는 과금 헤더를 응답에 붙인다.
func (h Headers) Apply(c *gin.Context) {
	if c == nil {
		return
	}
	c.Header(HeaderProvider, h.Provider)
	c.Header(HeaderModel, h.Model)
	c.Header(HeaderTokensIn, strconv.Itoa(h.TokensIn))
	c.Header(HeaderTokensOut, strconv.Itoa(h.TokensOut))
	c.Header(HeaderCreditsUsed, h.Cost.StringFixed(3))
	if h.Balance != nil {
		c.Header(HeaderCreditsBalance, h.Balance.StringFixed(3))
	}
}

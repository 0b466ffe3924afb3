package provider

import (
	"context"
	"math"

	"github.com/goccy/go-json"
)

// Message 는 대화 턴이다. role 은 system/user/assistant 중 하나다.
type Message struct {
	Role    string `json:"role" binding:"required"`
	Content string `json:"content" binding:"required"`
}

// Result 는 제공자 호출 1회의 정규화된 결과다. 저장되지 않는 일시 데이터다.
type Result struct {
	Provider  string `json:"provider"`
	Model     string `json:"model"`
	Text      string `json:"text"`
	TokensIn  int    `json:"tokens_in"`
	TokensOut int    `json:"tokens_out"`
}

// Provider 는 업스트림 채팅 완성 백엔드 1개다.
type Provider interface {
	Name() string
	Complete(ctx context.Context, messages []Message) (Result, error)
}

// EstimateTokens 는 제공자가 사용량을 보고하지 않을 때 쓰는 추정치다.
// 모든 제공자에 동일하게 적용해야 비용 비교가 의미를 가진다.
func EstimateTokens(text string) int {
	estimated := int(math.Round(float64(len(text)) / 4))
	if estimated < 1 {
		return 1
	}
	return estimated
}

// EstimateInputTokens 는 직렬화된 입력 전체에 대한 추정치다.
func EstimateInputTokens(messages []Message) int {
	data, err := json.Marshal(messages)
	if err != nil {
		return 1
	}
	return EstimateTokens(string(data))
}

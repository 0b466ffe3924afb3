package provider

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/config"
)

const defaultProviderTimeoutSeconds = 60

// ErrMissingProviderKey 는 제공자 자격 증명 미설정 오류다.
// 폴백 루프에서는 일반 실패와 동일하게 다음 제공자로 넘어간다.
var ErrMissingProviderKey = errors.New("missing provider api key")

// OpenAI 는 OpenAI 호환 chat-completions 엔드포인트 제공자다.
// groq 등 동일 와이어 포맷을 쓰는 백엔드에 그대로 재사용한다.
type OpenAI struct {
	name    string
	baseURL string
	model   string
	apiKey  string
	client  *http.Client
}

// NewOpenAI 는 OpenAI 호환 제공자를 생성한다.
func NewOpenAI(entry config.ProviderEntry) *OpenAI {
	timeout := entry.TimeoutSeconds
	if timeout <= 0 {
		timeout = defaultProviderTimeoutSeconds
	}
	return &OpenAI{
		name:    entry.Name,
		baseURL: entry.BaseURL,
		model:   entry.Model,
		apiKey:  entry.Key(),
		client:  &http.Client{Timeout: time.Duration(timeout) * time.Second},
	}
}

// Name 는 제공자 이름을 반환한다.
func (p *OpenAI) Name() string {
	return p.name
}

type openAIRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Complete 는 chat-completions 호출 1회를 수행한다.
func (p *OpenAI) Complete(ctx context.Context, messages []Message) (Result, error) {
	if p.apiKey == "" {
		return Result{}, ErrMissingProviderKey
	}

	payload, err := json.Marshal(openAIRequest{Model: p.model, Messages: messages})
	if err != nil {
		return Result{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL, bytes.NewReader(payload))
	if err != nil {
		return Result{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("call %s: %w", p.name, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Result{}, fmt.Errorf("read %s response: %w", p.name, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{}, fmt.Errorf("%s returned %d: %s", p.name, resp.StatusCode, truncate(string(body), 200))
	}

	var parsed openAIResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Result{}, fmt.Errorf("decode %s response: %w", p.name, err)
	}
	if len(parsed.Choices) == 0 {
		return Result{}, fmt.Errorf("%s returned no choices", p.name)
	}

	text := parsed.Choices[0].Message.Content
	tokensIn := parsed.Usage.PromptTokens
	tokensOut := parsed.Usage.CompletionTokens
	if tokensIn <= 0 {
		tokensIn = EstimateInputTokens(messages)
	}
	if tokensOut <= 0 {
		tokensOut = EstimateTokens(text)
	}

	return Result{
		Provider:  p.name,
		Model:     p.model,
		Text:      text,
		TokensIn:  tokensIn,
		TokensOut: tokensOut,
	}, nil
}

func truncate(value string, limit int) string {
	value = strings.TrimSpace(value)
	if len(value) <= limit {
		return value
	}
	return value[:limit]
}

package provider

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"

	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/config"
)

// Gemini 는 google genai 기반 제공자다.
type Gemini struct {
	name    string
	model   string
	apiKey  string
	timeout time.Duration

	mu     sync.Mutex
	client *genai.Client
}

// NewGemini 는 Gemini 제공자를 생성한다. 클라이언트는 첫 호출 시 연결한다.
func NewGemini(entry config.ProviderEntry) *Gemini {
	timeout := entry.TimeoutSeconds
	if timeout <= 0 {
		timeout = defaultProviderTimeoutSeconds
	}
	return &Gemini{
		name:    entry.Name,
		model:   entry.Model,
		apiKey:  entry.Key(),
		timeout: time.Duration(timeout) * time.Second,
	}
}

// Name 는 제공자 이름을 반환한다.
func (p *Gemini) Name() string {
	return p.name
}

// Complete 는 Gemini 완성 호출 1회를 수행한다.
func (p *Gemini) Complete(ctx context.Context, messages []Message) (Result, error) {
	client, err := p.getClient(ctx)
	if err != nil {
		return Result{}, err
	}

	contents, generateConfig := buildGeminiInput(messages)
	response, err := client.Models.GenerateContent(ctx, p.model, contents, generateConfig)
	if err != nil {
		return Result{}, fmt.Errorf("call %s: %w", p.name, err)
	}

	text := response.Text()
	tokensIn, tokensOut := extractGeminiUsage(response)
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

func (p *Gemini) getClient(ctx context.Context) (*genai.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.apiKey == "" {
		return nil, ErrMissingProviderKey
	}
	if p.client != nil {
		return p.client, nil
	}

	client, err := genai.NewClient(context.WithoutCancel(ctx), &genai.ClientConfig{
		APIKey:  p.apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			Timeout: genai.Ptr(p.timeout),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	p.client = client
	return client, nil
}

// buildGeminiInput 는 system 턴을 SystemInstruction 으로, 나머지를 대화로 변환한다.
func buildGeminiInput(messages []Message) ([]*genai.Content, *genai.GenerateContentConfig) {
	generateConfig := &genai.GenerateContentConfig{}
	contents := make([]*genai.Content, 0, len(messages))

	for _, message := range messages {
		switch {
		case strings.EqualFold(message.Role, "system"):
			generateConfig.SystemInstruction = genai.NewContentFromText(message.Content, genai.RoleUser)
		case strings.EqualFold(message.Role, "assistant"):
			contents = append(contents, genai.NewContentFromText(message.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(message.Content, genai.RoleUser))
		}
	}
	return contents, generateConfig
}

func extractGeminiUsage(response *genai.GenerateContentResponse) (int, int) {
	if response == nil || response.UsageMetadata == nil {
		return 0, 0
	}
	usage := response.UsageMetadata
	return int(usage.PromptTokenCount), int(usage.CandidatesTokenCount) + int(usage.ThoughtsTokenCount)
}

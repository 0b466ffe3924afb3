package config

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	providerKindOpenAI = "openai"
	providerKindGemini = "gemini"
)

// 기본 폴백 순서: groq → openai → gemini.
var defaultProviderEntries = map[string]ProviderEntry{
	"groq": {
		Name:      "groq",
		Kind:      providerKindOpenAI,
		BaseURL:   "https://api.groq.com/openai/v1/chat/completions",
		Model:     "llama-3.3-70b-versatile",
		APIKeyEnv: "GROQ_API_KEY",
	},
	"openai": {
		Name:      "openai",
		Kind:      providerKindOpenAI,
		BaseURL:   "https://api.openai.com/v1/chat/completions",
		Model:     "gpt-4o-mini",
		APIKeyEnv: "OPENAI_API_KEY",
	},
	"gemini": {
		Name:      "gemini",
		Kind:      providerKindGemini,
		Model:     "gemini-2.0-flash",
		APIKeyEnv: "GOOGLE_API_KEY",
	},
}

type providersFile struct {
	Providers []ProviderEntry `yaml:"providers"`
}

// loadProviders 는 YAML 파일 또는 환경 변수에서 제공자 목록을 구성한다.
// 파일이 지정되면 파일이 우선하고, 아니면 PROVIDER_ORDER 순서로 기본 항목을 쓴다.
func loadProviders() ProvidersConfig {
	file := getEnvString("PROVIDERS_FILE", "")
	if file != "" {
		if entries, err := loadProvidersFile(file); err == nil && len(entries) > 0 {
			return ProvidersConfig{File: file, Entries: entries}
		}
	}

	order := splitList(getEnvString("PROVIDER_ORDER", "groq,openai,gemini"))
	entries := make([]ProviderEntry, 0, len(order))
	for _, name := range order {
		entry, ok := defaultProviderEntries[strings.ToLower(name)]
		if !ok {
			continue
		}
		entries = append(entries, entry)
	}
	return ProvidersConfig{Entries: entries}
}

func loadProvidersFile(path string) ([]ProviderEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var parsed providersFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, err
	}

	entries := make([]ProviderEntry, 0, len(parsed.Providers))
	for _, entry := range parsed.Providers {
		entry.Name = strings.TrimSpace(entry.Name)
		entry.Kind = strings.ToLower(strings.TrimSpace(entry.Kind))
		if entry.Name == "" {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

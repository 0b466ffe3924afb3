package config

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/joho/godotenv"
)

const minTokenTTLSeconds = 60

var (
	configOnce  sync.Once
	configValue *Config
)

// HTTPConfig 는 HTTP 서버 설정이다.
type HTTPConfig struct {
	Host         string
	Port         int
	HTTP2Enabled bool
}

// LoggingConfig 는 로깅 설정이다.
type LoggingConfig struct {
	Level      string
	LogDir     string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// AuthConfig 는 관리자 인증 설정이다.
type AuthConfig struct {
	AdminKey string
}

// TokenConfig 는 게스트 토큰 발급 설정이다.
type TokenConfig struct {
	PrivateKeyPEM string
	Issuer        string
	TTLSeconds    int
	CookieName    string
}

// TTL 는 최소값을 보장한 토큰 수명(초)을 반환한다.
func (t TokenConfig) TTL() int {
	if t.TTLSeconds < minTokenTTLSeconds {
		return minTokenTTLSeconds
	}
	return t.TTLSeconds
}

// StoreConfig 는 KV 저장소 연결 설정이다.
type StoreConfig struct {
	URL                 string
	Enabled             bool
	Required            bool
	DisableCache        bool
	ConnectMaxAttempts  int
	ConnectRetrySeconds int
}

// BillingConfig 는 크레딧 과금 설정이다.
type BillingConfig struct {
	CreditRate float64
}

// Rate 는 유효 과금 비율을 반환한다. 0 또는 비정상 값이면 과금이 비활성화된다.
func (b BillingConfig) Rate() float64 {
	if math.IsNaN(b.CreditRate) || math.IsInf(b.CreditRate, 0) {
		return 0
	}
	if b.CreditRate <= 0 {
		return 0
	}
	return b.CreditRate
}

// ProviderEntry 는 업스트림 제공자 1개의 설정이다.
type ProviderEntry struct {
	Name           string `yaml:"name"`
	Kind           string `yaml:"kind"`
	BaseURL        string `yaml:"base_url"`
	Model          string `yaml:"model"`
	APIKey         string `yaml:"api_key"`
	APIKeyEnv      string `yaml:"api_key_env"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Key 는 설정값 또는 환경 변수에서 API 키를 해석한다.
func (p ProviderEntry) Key() string {
	if p.APIKey != "" {
		return p.APIKey
	}
	if p.APIKeyEnv != "" {
		return strings.TrimSpace(os.Getenv(p.APIKeyEnv))
	}
	return ""
}

// ProvidersConfig 는 제공자 폴백 순서 설정이다.
type ProvidersConfig struct {
	File    string
	Entries []ProviderEntry
}

// CORSConfig 는 CORS 허용 출처 설정이다.
type CORSConfig struct {
	AllowedOrigins []string
}

// JobsConfig 는 잡 실행 설정이다.
type JobsConfig struct {
	RunTimeoutSeconds   int
	DrainTimeoutSeconds int
}

// RateLimitConfig 는 요청 제한 설정이다. RequestsPerMinute 가 0 이면 비활성화된다.
type RateLimitConfig struct {
	RequestsPerMinute int
	CacheSize         int
	CacheTTLSeconds   int
}

// Config 는 애플리케이션 전체 설정이다.
type Config struct {
	HTTP      HTTPConfig
	Logging   LoggingConfig
	Auth      AuthConfig
	Token     TokenConfig
	Store     StoreConfig
	Billing   BillingConfig
	Providers ProvidersConfig
	CORS      CORSConfig
	Jobs      JobsConfig
	RateLimit RateLimitConfig
}

// Load 는 환경 변수 기반 설정을 로드한다.
func Load() *Config {
	configOnce.Do(func() {
		_ = godotenv.Load()
		configValue = buildConfig()
	})
	return configValue
}

// ProvideConfig 는 설정을 로드하고 검증한다.
func ProvideConfig() (*Config, error) {
	cfg := Load()
	if cfg == nil {
		return nil, errors.New("config not initialized")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 는 설정 유효성을 검사한다.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	for _, entry := range c.Providers.Entries {
		if entry.Name == "" {
			return errors.New("provider entry without name")
		}
		switch entry.Kind {
		case providerKindOpenAI, providerKindGemini:
		default:
			return fmt.Errorf("unknown provider kind: name=%s kind=%s", entry.Name, entry.Kind)
		}
	}
	return nil
}

// LogEnvStatus 는 환경 설정 상태를 로그로 남긴다.
func LogEnvStatus(cfg *Config, logger *slog.Logger) {
	if logger == nil || cfg == nil {
		return
	}

	names := make([]string, 0, len(cfg.Providers.Entries))
	for _, entry := range cfg.Providers.Entries {
		names = append(names, entry.Name)
	}

	logger.Debug(
		"env_status",
		"env_file", fileExists(".env"),
		"providers", strings.Join(names, ","),
		"credit_rate", cfg.Billing.Rate(),
		"admin_key", maskSecret(cfg.Auth.AdminKey),
		"signing_key", cfg.Token.PrivateKeyPEM != "",
		"store_url", cfg.Store.URL,
		"token_ttl", cfg.Token.TTL(),
	)

	if cfg.Token.PrivateKeyPEM == "" {
		logger.Warn("env_missing_guest_signing_key")
	}
	if cfg.Auth.AdminKey == "" {
		logger.Warn("env_missing_admin_key")
	}
}

func buildConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Host:         getEnvString("HTTP_HOST", "127.0.0.1"),
			Port:         getEnvInt("HTTP_PORT", 8787),
			HTTP2Enabled: getEnvBool("HTTP2_ENABLED", true),
		},
		Logging: LoggingConfig{
			Level:      getEnvString("LOG_LEVEL", "info"),
			LogDir:     getEnvString("LOG_DIR", ""),
			MaxSizeMB:  getEnvInt("LOG_FILE_MAX_SIZE_MB", 1),
			MaxBackups: getEnvInt("LOG_FILE_MAX_BACKUPS", 30),
			MaxAgeDays: getEnvInt("LOG_FILE_MAX_AGE_DAYS", 7),
			Compress:   getEnvBool("LOG_FILE_COMPRESS", true),
		},
		Auth: AuthConfig{
			AdminKey: getEnvString("ADMIN_KEY", ""),
		},
		Token: TokenConfig{
			PrivateKeyPEM: loadSigningKey(),
			Issuer:        getEnvString("GUEST_TOKEN_ISSUER", "cognomega-edge"),
			TTLSeconds:    getEnvInt("GUEST_TOKEN_TTL_SECONDS", 900),
			CookieName:    getEnvString("GUEST_TOKEN_COOKIE", "cog_token"),
		},
		Store: StoreConfig{
			URL:                 getEnvString("STORE_URL", "redis://localhost:6379"),
			Enabled:             getEnvBool("STORE_ENABLED", true),
			Required:            getEnvBool("STORE_REQUIRED", false),
			DisableCache:        getEnvBool("STORE_DISABLE_CACHE", false),
			ConnectMaxAttempts:  max(1, getEnvNonNegativeInt("STORE_CONNECT_MAX_ATTEMPTS", 6)),
			ConnectRetrySeconds: getEnvNonNegativeInt("STORE_CONNECT_RETRY_SECONDS", 5),
		},
		Billing: BillingConfig{
			CreditRate: getEnvFloat("CREDIT_RATE", 1.0),
		},
		Providers: loadProviders(),
		CORS: CORSConfig{
			AllowedOrigins: splitList(getEnvString("CORS_ALLOWED_ORIGINS", "*")),
		},
		Jobs: JobsConfig{
			RunTimeoutSeconds:   getEnvInt("JOB_RUN_TIMEOUT_SECONDS", 120),
			DrainTimeoutSeconds: getEnvInt("JOB_DRAIN_TIMEOUT_SECONDS", 30),
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: getEnvNonNegativeInt("RATE_LIMIT_PER_MINUTE", 0),
			CacheSize:         getEnvInt("RATE_LIMIT_CACHE_SIZE", 4096),
			CacheTTLSeconds:   getEnvInt("RATE_LIMIT_CACHE_TTL_SECONDS", 120),
		},
	}
}

// loadSigningKey 는 PEM 본문 또는 파일 경로에서 서명 키를 읽는다.
func loadSigningKey() string {
	pem := os.Getenv("GUEST_JWT_PRIVATE_KEY")
	if strings.TrimSpace(pem) != "" {
		return pem
	}
	path := strings.TrimSpace(os.Getenv("GUEST_JWT_PRIVATE_KEY_FILE"))
	if path == "" {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return string(data)
}

func splitList(value string) []string {
	items := strings.FieldsFunc(value, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	result := make([]string, 0, len(items))
	for _, item := range items {
		trimmed := strings.TrimSpace(item)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func getEnvString(key string, def string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	return value
}

func getEnvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getEnvNonNegativeInt(key string, def int) int {
	value := getEnvInt(key, def)
	if value < 0 {
		return 0
	}
	return value
}

func getEnvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getEnvBool(key string, def bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	value = strings.ToLower(value)
	return value == "true" || value == "1" || value == "yes" || value == "y"
}

func maskSecret(value string) string {
	if value == "" {
		return "<missing>"
	}
	if len(value) <= 4 {
		return strings.Repeat("*", len(value))
	}
	return value[:2] + "***" + value[len(value)-2:]
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

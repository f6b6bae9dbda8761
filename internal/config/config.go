package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server     ServerConfig
	AI         AIConfig
	Store      StoreConfig
	Heuristics Heuristics
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	st, err := loadStoreConfig()
	if err != nil {
		return nil, err
	}

	heuristics, err := LoadHeuristics(strings.TrimSpace(os.Getenv("HEURISTICS_FILE")))
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, AI: ai, Store: st, Heuristics: heuristics}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr           string
	AppName        string
	AllowedOrigin  string
	RateLimitRPS   float64
	RateLimitBurst int
	MetricsEnabled bool
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	addr, err := parseAddr(strings.TrimSpace(os.Getenv("PORT")))
	if err != nil {
		return ServerConfig{}, err
	}

	rps := 2.0
	if override, err := parseOptionalFloatEnv("RATE_LIMIT_RPS"); err != nil {
		return ServerConfig{}, err
	} else if override != nil {
		rps = *override
	}

	burst := 5
	if override, err := parseOptionalIntEnv("RATE_LIMIT_BURST"); err != nil {
		return ServerConfig{}, err
	} else if override != nil {
		burst = *override
	}

	metricsEnabled, err := parseBoolEnv("METRICS_ENABLED", true)
	if err != nil {
		return ServerConfig{}, err
	}

	return ServerConfig{
		Addr:           addr,
		AppName:        getEnvOrDefault("APP_NAME", "piskoqo"),
		AllowedOrigin:  getEnvOrDefault("CORS_ALLOWED_ORIGIN", "*"),
		RateLimitRPS:   rps,
		RateLimitBurst: burst,
		MetricsEnabled: metricsEnabled,
	}, nil
}

func parseAddr(port string) (string, error) {
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return port, nil
	}

	if strings.Contains(port, " ") {
		return "", fmt.Errorf("invalid PORT value: %q", port)
	}

	return ":" + port, nil
}

// Provider names the chat completion backend.
type Provider string

const (
	ProviderOpenRouter Provider = "openrouter"
	ProviderArk        Provider = "ark"
)

// AIConfig 描述大模型相关配置。
type AIConfig struct {
	Provider       Provider
	APIKey         string
	BaseURL        string
	Model          string
	EmbeddingModel string
	MaxTokens      int
	Timeout        time.Duration
	RetryAttempts  int

	// Ark (Volcengine) credentials, used when Provider is ProviderArk.
	ArkAPIKey    string
	ArkAccessKey string
	ArkSecretKey string
	ArkModel     string
	ArkBaseURL   string
	ArkRegion    string
}

// Enabled 表示是否提供了必需的密钥。
func (c AIConfig) Enabled() bool {
	switch c.Provider {
	case ProviderArk:
		return c.ArkModel != "" && (c.ArkAPIKey != "" || (c.ArkAccessKey != "" && c.ArkSecretKey != ""))
	default:
		return c.APIKey != "" && c.Model != ""
	}
}

// EmbeddingEnabled reports whether the OpenAI-compatible embedding endpoint is usable.
func (c AIConfig) EmbeddingEnabled() bool {
	return c.APIKey != "" && c.EmbeddingModel != ""
}

// NewArkChatModel 使用配置创建一个 Ark 模型实例。
func (c AIConfig) NewArkChatModel(ctx context.Context) (model.ChatModel, error) {
	if c.ArkModel == "" || (c.ArkAPIKey == "" && (c.ArkAccessKey == "" || c.ArkSecretKey == "")) {
		return nil, fmt.Errorf("Ark 凭证或模型配置缺失，至少提供 ARK_API_KEY + Model 或 AK/SK 组合")
	}

	var maxTokens *int
	if c.MaxTokens > 0 {
		val := c.MaxTokens
		maxTokens = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:   c.ArkBaseURL,
		Region:    c.ArkRegion,
		APIKey:    c.ArkAPIKey,
		AccessKey: c.ArkAccessKey,
		SecretKey: c.ArkSecretKey,
		Model:     c.ArkModel,
		MaxTokens: maxTokens,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	provider := Provider(strings.ToLower(getEnvOrDefault("AI_PROVIDER", string(ProviderOpenRouter))))
	switch provider {
	case ProviderOpenRouter, ProviderArk:
	default:
		return AIConfig{}, fmt.Errorf("invalid AI_PROVIDER value %q", provider)
	}

	maxTokens := 300
	if override, err := parseOptionalIntEnv("AI_MAX_TOKENS"); err != nil {
		return AIConfig{}, err
	} else if override != nil && *override > 0 {
		maxTokens = *override
	}

	timeout := 60 * time.Second
	if override, err := parseOptionalIntEnv("AI_TIMEOUT"); err != nil {
		return AIConfig{}, err
	} else if override != nil && *override > 0 {
		timeout = time.Duration(*override) * time.Second
	}

	attempts := 1
	if override, err := parseOptionalIntEnv("AI_RETRY_ATTEMPTS"); err != nil {
		return AIConfig{}, err
	} else if override != nil && *override > 1 {
		attempts = *override
	}

	return AIConfig{
		Provider:       provider,
		APIKey:         strings.TrimSpace(os.Getenv("OPENROUTER_API_KEY")),
		BaseURL:        getEnvOrDefault("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
		Model:          getEnvOrDefault("AI_MODEL", "qwen/qwen3-max-thinking"),
		EmbeddingModel: getEnvOrDefault("AI_EMBEDDING_MODEL", "qwen/qwen3-embedding-8b:nitro"),
		MaxTokens:      maxTokens,
		Timeout:        timeout,
		RetryAttempts:  attempts,
		ArkAPIKey:      strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		ArkAccessKey:   strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		ArkSecretKey:   strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		ArkModel:       strings.TrimSpace(os.Getenv("Model")),
		ArkBaseURL:     getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		ArkRegion:      getEnvOrDefault("ARK_REGION", "cn-beijing"),
	}, nil
}

// StoreDriver names a persistence backend.
type StoreDriver string

const (
	DriverMemory   StoreDriver = "memory"
	DriverPostgres StoreDriver = "postgres"
	DriverSQLite   StoreDriver = "sqlite"
)

// StoreConfig 描述存储后端配置。
type StoreConfig struct {
	Driver StoreDriver
	DSN    string
}

func loadStoreConfig() (StoreConfig, error) {
	driver := StoreDriver(strings.ToLower(getEnvOrDefault("STORE_DRIVER", string(DriverMemory))))
	dsn := strings.TrimSpace(os.Getenv("DATABASE_URL"))

	switch driver {
	case DriverMemory:
	case DriverPostgres, DriverSQLite:
		if dsn == "" {
			return StoreConfig{}, fmt.Errorf("DATABASE_URL is required for STORE_DRIVER=%s", driver)
		}
	default:
		return StoreConfig{}, fmt.Errorf("invalid STORE_DRIVER value %q", driver)
	}

	return StoreConfig{Driver: driver, DSN: dsn}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

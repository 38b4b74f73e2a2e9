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

// Assistant modes.
const (
	ModeFacts = "facts"
	ModeRAG   = "rag"
)

const defaultSessionID = "conversacion_principal"

// MissingEnvError reports required environment variables that were not set.
type MissingEnvError struct {
	Vars []string
}

func (e *MissingEnvError) Error() string {
	return "Faltan variables de entorno: " + strings.Join(e.Vars, ", ")
}

// Config 聚合整个服务的配置项。
type Config struct {
	Server    ServerConfig
	AI        AIConfig
	Knowledge KnowledgeConfig
	Assistant AssistantConfig
	LogLevel  string
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	if missing := missingRequired(); len(missing) > 0 {
		return nil, &MissingEnvError{Vars: missing}
	}

	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	knowledge, err := loadKnowledgeConfig(ai)
	if err != nil {
		return nil, err
	}

	assistant, err := loadAssistantConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:    server,
		AI:        ai,
		Knowledge: knowledge,
		Assistant: assistant,
		LogLevel:  getEnvOrDefault("LOG_LEVEL", "info"),
	}, nil
}

var requiredVars = []string{"OPENAI_BASE_URL", "OPENAI_API_KEY", "DEPLOYMENT_NAME"}

func missingRequired() []string {
	var missing []string
	for _, key := range requiredVars {
		if strings.TrimSpace(os.Getenv(key)) == "" {
			missing = append(missing, key)
		}
	}
	return missing
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// AIConfig describes the remote chat model.
type AIConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   *int
	Timeout     time.Duration
	JSONOutput  bool
}

// NewChatModel 使用配置创建一个模型实例。
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if c.BaseURL == "" || c.APIKey == "" || c.Model == "" {
		return nil, fmt.Errorf("chat model configuration incomplete: base url, api key and model are required")
	}

	temperature := float32(c.Temperature)
	timeout := c.Timeout
	// remote errors are surfaced once, never retried
	retries := 0

	var maxTokens *int
	if c.MaxTokens != nil {
		val := *c.MaxTokens
		maxTokens = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		APIKey:      c.APIKey,
		Model:       c.Model,
		MaxTokens:   maxTokens,
		Temperature: &temperature,
		Timeout:     &timeout,
		RetryTimes:  &retries,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	temperature := 0.1
	if override, err := parseOptionalFloatEnv("OPENAI_TEMPERATURE"); err != nil {
		return AIConfig{}, err
	} else if override != nil {
		temperature = *override
	}

	maxTokens, err := parseOptionalIntEnv("OPENAI_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	timeout, err := parseDurationEnv("OPENAI_TIMEOUT", 60*time.Second)
	if err != nil {
		return AIConfig{}, err
	}

	jsonOutput, err := parseBoolEnv("OPENAI_JSON_OUTPUT", false)
	if err != nil {
		return AIConfig{}, err
	}

	return AIConfig{
		BaseURL:     strings.TrimRight(strings.TrimSpace(os.Getenv("OPENAI_BASE_URL")), "/"),
		APIKey:      strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		Model:       strings.TrimSpace(os.Getenv("DEPLOYMENT_NAME")),
		Temperature: temperature,
		MaxTokens:   maxTokens,
		Timeout:     timeout,
		JSONOutput:  jsonOutput,
	}, nil
}

// KnowledgeConfig describes the similarity index and the embeddings endpoint
// used to query it.
type KnowledgeConfig struct {
	IndexPath      string
	TopK           int
	EmbeddingModel string
	BaseURL        string
	APIKey         string
	// APIVersion 非空时按 Azure 部署方式调用。
	APIVersion string
	Timeout    time.Duration
}

func loadKnowledgeConfig(ai AIConfig) (KnowledgeConfig, error) {
	topK := 3
	if override, err := parseOptionalIntEnv("RETRIEVER_TOP_K"); err != nil {
		return KnowledgeConfig{}, err
	} else if override != nil {
		if *override < 1 {
			return KnowledgeConfig{}, fmt.Errorf("invalid RETRIEVER_TOP_K value %d: must be positive", *override)
		}
		topK = *override
	}

	timeout, err := parseDurationEnv("EMBEDDING_TIMEOUT", 30*time.Second)
	if err != nil {
		return KnowledgeConfig{}, err
	}

	return KnowledgeConfig{
		IndexPath:      getEnvOrDefault("KNOWLEDGE_INDEX_PATH", "knowledge.db"),
		TopK:           topK,
		EmbeddingModel: getEnvOrDefault("EMBEDDING_MODEL", "text-embedding-3-small"),
		BaseURL:        ai.BaseURL,
		APIKey:         ai.APIKey,
		APIVersion:     strings.TrimSpace(os.Getenv("EMBEDDING_API_VERSION")),
		Timeout:        timeout,
	}, nil
}

// AssistantConfig holds the conversation-level switches.
type AssistantConfig struct {
	Mode           string
	FactsFile      string
	KeywordRouter  bool
	SessionID      string
	SessionIdleTTL time.Duration
	// HistoryLimit 限制回放给模型的历史条数，0 表示全部。
	HistoryLimit int
}

func loadAssistantConfig() (AssistantConfig, error) {
	mode := strings.ToLower(getEnvOrDefault("ASSISTANT_MODE", ModeFacts))
	if mode != ModeFacts && mode != ModeRAG {
		return AssistantConfig{}, fmt.Errorf("invalid ASSISTANT_MODE value %q: expected %q or %q", mode, ModeFacts, ModeRAG)
	}

	router, err := parseBoolEnv("ASSISTANT_KEYWORD_ROUTER", false)
	if err != nil {
		return AssistantConfig{}, err
	}

	ttl, err := parseDurationEnv("SESSION_IDLE_TTL", 0)
	if err != nil {
		return AssistantConfig{}, err
	}

	historyLimit := 0
	if override, err := parseOptionalIntEnv("SESSION_HISTORY_LIMIT"); err != nil {
		return AssistantConfig{}, err
	} else if override != nil {
		if *override < 0 {
			return AssistantConfig{}, fmt.Errorf("invalid SESSION_HISTORY_LIMIT value %d: must not be negative", *override)
		}
		historyLimit = *override
	}

	return AssistantConfig{
		Mode:           mode,
		FactsFile:      strings.TrimSpace(os.Getenv("CLINIC_FACTS_FILE")),
		KeywordRouter:  router,
		SessionID:      getEnvOrDefault("SESSION_ID", defaultSessionID),
		SessionIdleTTL: ttl,
		HistoryLimit:   historyLimit,
	}, nil
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

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	if val < 0 {
		return 0, fmt.Errorf("invalid %s value %q: must not be negative", key, raw)
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

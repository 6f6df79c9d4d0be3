package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port        string
	LogMode     string
	JWTSecret   string
	CORSOrigins []string

	DB DBConfig
	AI AIConfig
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
	TimeZone string

	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

type AIConfig struct {
	GenerationProvider string
	EmbeddingProvider  string

	GeminiAPIKey     string
	GeminiModel      string
	GeminiEmbedModel string

	OpenAIAPIKey     string
	OpenAIBaseURL    string
	OpenAIModel      string
	OpenAIEmbedModel string

	AnthropicAPIKey string
	AnthropicModel  string

	Timeout    time.Duration
	MaxRetries int
	MaxTokens  int
	ChatTopK   int
	ChunkSize  int
}

// Load reads the process environment. Call godotenv.Load first if a .env
// file should be honored.
func Load() Config {
	return Config{
		Port:        envString("PORT", "8080"),
		LogMode:     envString("LOG_MODE", "development"),
		JWTSecret:   envString("JWT_SECRET", ""),
		CORSOrigins: envList("CORS_ORIGINS", []string{"http://localhost:5173"}),
		DB: DBConfig{
			Host:            envString("DB_HOST", "localhost"),
			Port:            envString("DB_PORT", "5432"),
			User:            envString("DB_USER", "postgres"),
			Password:        envString("DB_PASSWORD", ""),
			Name:            envString("DB_NAME", "elearning"),
			SSLMode:         envString("DB_SSLMODE", "disable"),
			TimeZone:        envString("DB_TIMEZONE", "Asia/Ho_Chi_Minh"),
			MaxIdleConns:    envInt("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    envInt("DB_MAX_OPEN_CONNS", 100),
			ConnMaxLifetime: envDuration("DB_CONN_MAX_LIFETIME", time.Hour),
			ConnMaxIdleTime: envDuration("DB_CONN_MAX_IDLE_TIME", 10*time.Minute),
		},
		AI: AIConfig{
			GenerationProvider: strings.ToLower(envString("GENERATION_PROVIDER", "gemini")),
			EmbeddingProvider:  strings.ToLower(envString("EMBEDDING_PROVIDER", "gemini")),
			GeminiAPIKey:       envString("GEMINI_API_KEY", ""),
			GeminiModel:        envString("GEMINI_MODEL", "gemini-2.0-flash"),
			GeminiEmbedModel:   envString("GEMINI_EMBED_MODEL", "text-embedding-004"),
			OpenAIAPIKey:       envString("OPENAI_API_KEY", ""),
			OpenAIBaseURL:      envString("OPENAI_BASE_URL", ""),
			OpenAIModel:        envString("OPENAI_MODEL", "gpt-4o-mini"),
			OpenAIEmbedModel:   envString("OPENAI_EMBED_MODEL", "text-embedding-3-small"),
			AnthropicAPIKey:    envString("ANTHROPIC_API_KEY", ""),
			AnthropicModel:     envString("ANTHROPIC_MODEL", "claude-haiku-4-5-20251001"),
			Timeout:            envDuration("AI_TIMEOUT", 30*time.Second),
			MaxRetries:         envInt("AI_MAX_RETRIES", 2),
			MaxTokens:          envInt("AI_MAX_TOKENS", 1024),
			ChatTopK:           envInt("CHAT_TOP_K", 3),
			ChunkSize:          envInt("INDEX_CHUNK_SIZE", 1000),
		},
	}
}

func envString(name, def string) string {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	return v
}

func envInt(name string, def int) int {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

// envDuration accepts Go durations ("45s") or a bare number of seconds.
func envDuration(name string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return def
}

func envList(name string, def []string) []string {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

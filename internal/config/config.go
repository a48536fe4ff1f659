package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Ai       AIConfig
	Rules    RulesConfig
	Rag      RagConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	UsageLogFilePath   string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	OtelEnabled        bool
}

type DatabaseConfig struct {
	Connection string
}

type AuthConfig struct {
	JWTSecret string
}

type AIConfig struct {
	ModelsConfigPath string
	TitleModel       string
	OllamaBaseURL    string
	EmbeddingModel   string
	EmbeddingDims    int
}

type RulesConfig struct {
	AnswerRules       []string
	TitleRules        []string
	AccessLimitCount  int
	AccessLimitWindow time.Duration
	Whitelist         []string
	SensitiveWords    []string
	InitialQuota      int
	DefaultModels     []string
}

type RagConfig struct {
	TagLimit       int
	MaxUploadBytes int
	MaxUploadFiles int
	ChunkSize      int
	ChunkOverlap   int
}

// multipartOverhead covers form fields and part headers on top of the files.
const multipartOverhead = 1024 * 1024

// BodyLimit is the largest request body the server accepts: a full upload of
// MaxUploadFiles files at MaxUploadBytes each.
func (r RagConfig) BodyLimit() int {
	files := r.MaxUploadFiles
	if files < 1 {
		files = 1
	}
	return r.MaxUploadBytes*files + multipartOverhead
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "8090"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			UsageLogFilePath:   getEnv("USAGE_LOG_FILE_PATH", "logs/usage.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", ""),
			OtelEnabled:        getEnv("OTEL_ENABLED", "false") == "true",
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		Ai: AIConfig{
			ModelsConfigPath: getEnv("MODELS_CONFIG_PATH", "config/models.yaml"),
			TitleModel:       getEnv("TITLE_MODEL", "glm:4flash"),
			OllamaBaseURL:    getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			EmbeddingModel:   getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			EmbeddingDims:    getEnvAsInt("EMBEDDING_DIMENSIONS", 768),
		},
		Rules: RulesConfig{
			AnswerRules:       getEnvAsList("ANSWER_RULES", []string{"ACCESS_LIMIT", "SENSITIVE_WORD", "ACCOUNT_STATUS", "MODEL_TYPE", "USER_QUOTA"}),
			TitleRules:        getEnvAsList("TITLE_RULES", []string{"ACCESS_LIMIT", "SENSITIVE_WORD", "ACCOUNT_STATUS"}),
			AccessLimitCount:  getEnvAsInt("ACCESS_LIMIT_COUNT", 100),
			AccessLimitWindow: getEnvAsDuration("ACCESS_LIMIT_WINDOW", 24*time.Hour),
			Whitelist:         getEnvAsList("ACCESS_WHITELIST", nil),
			SensitiveWords:    getEnvAsList("SENSITIVE_WORDS", nil),
			InitialQuota:      getEnvAsInt("INITIAL_QUOTA", 50),
			DefaultModels:     getEnvAsList("DEFAULT_ALLOWED_MODELS", nil),
		},
		Rag: RagConfig{
			TagLimit:       getEnvAsInt("RAG_TAG_LIMIT", 5),
			MaxUploadBytes: getEnvAsInt("RAG_MAX_UPLOAD_BYTES", 3*1024*1024),
			MaxUploadFiles: getEnvAsInt("RAG_MAX_UPLOAD_FILES", 5),
			ChunkSize:      getEnvAsInt("RAG_CHUNK_SIZE", 800),
			ChunkOverlap:   getEnvAsInt("RAG_CHUNK_OVERLAP", 100),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}

// getEnvAsList splits a comma separated value. An explicitly empty variable
// yields an empty list, which disables e.g. a rule chain.
func getEnvAsList(key string, fallback []string) []string {
	strValue, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(strValue, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

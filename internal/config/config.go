package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Embedding EmbeddingConfig
	Taxonomy  TaxonomyConfig
	Stage     StageConfig
	Worker    WorkerConfig
}

type AppConfig struct {
	Port                 string
	Environment          string
	LogFilePath          string
	CorsAllowedOrigins   string
	NatsURL              string
	RedisURL             string
	DataRoot             string
	ConverterPath        string
	ConverterTimeoutMs   int
	OtelExporterEndpoint string
}

type DatabaseConfig struct {
	Connection string
}

// EmbeddingProviderConfig describes one entry in the ordered fallback
// list configured by embedding.providers.
type EmbeddingProviderConfig struct {
	Kind      string // "remote" | "local"
	Model     string
	Endpoint  string
	APIKey    string
	TimeoutMs int
}

type EmbeddingConfig struct {
	Providers []EmbeddingProviderConfig
}

type TaxonomyConfig struct {
	Path       string
	RulesPath  string
	Indicators string
}

type StageConfig struct {
	TimeoutMs       int
	RetryAttempts   int
	ClassifyTimeout time.Duration
	ValidateTimeout time.Duration
	RiskTimeout     time.Duration
	RUCTimeout      time.Duration
}

type WorkerConfig struct {
	PoolSize int
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	poolSize := getEnvAsInt("WORKER_POOL_SIZE", 3)
	stageTimeout := getEnvAsInt("STAGE_TIMEOUT_MS", 30000)

	return &Config{
		App: AppConfig{
			Port:                 getEnv("APP_PORT", "3000"),
			Environment:          getEnv("GO_ENV", "development"),
			LogFilePath:          getEnv("LOG_FILE_PATH", "app.log.json"),
			CorsAllowedOrigins:   getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:              getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:             getEnv("REDIS_URL", "redis://localhost:6379"),
			DataRoot:             getEnv("DATA_ROOT", "./data"),
			ConverterPath:        getEnv("CONVERTER_PATH", "pandoc"),
			ConverterTimeoutMs:   getEnvAsInt("CONVERTER_TIMEOUT_MS", 30000),
			OtelExporterEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Embedding: EmbeddingConfig{
			Providers: []EmbeddingProviderConfig{
				{
					Kind:      "remote",
					Model:     getEnv("EMBEDDING_REMOTE_MODEL", "text-embedding-3-small"),
					Endpoint:  getEnv("EMBEDDING_REMOTE_ENDPOINT", ""),
					APIKey:    getEnv("EMBEDDING_REMOTE_API_KEY", ""),
					TimeoutMs: getEnvAsInt("EMBEDDING_REMOTE_TIMEOUT_MS", 8000),
				},
				{
					Kind:      "local",
					Model:     getEnv("EMBEDDING_LOCAL_MODEL", "nomic-embed-text"),
					Endpoint:  getEnv("EMBEDDING_LOCAL_ENDPOINT", "http://localhost:11434"),
					TimeoutMs: getEnvAsInt("EMBEDDING_LOCAL_TIMEOUT_MS", 15000),
				},
			},
		},
		Taxonomy: TaxonomyConfig{
			Path:       getEnv("TAXONOMY_PATH", "config/taxonomy.json"),
			RulesPath:  getEnv("RULES_PATH", "config/rules.json"),
			Indicators: getEnv("INDICATORS_PATH", "config/indicators.json"),
		},
		Stage: StageConfig{
			TimeoutMs:       stageTimeout,
			RetryAttempts:   getEnvAsInt("STAGE_RETRY_ATTEMPTS", 3),
			ClassifyTimeout: time.Duration(stageTimeout) * time.Millisecond,
			ValidateTimeout: time.Duration(stageTimeout) * time.Millisecond,
			RiskTimeout:     time.Duration(stageTimeout) * time.Millisecond,
			RUCTimeout:      time.Duration(stageTimeout) * time.Millisecond,
		},
		Worker: WorkerConfig{
			PoolSize: poolSize,
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

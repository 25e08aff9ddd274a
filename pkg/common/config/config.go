package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Server
	ServerPort     string
	ServerHost     string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxRequestBody int64

	// Database
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Kafka
	KafkaBrokers []string
	KafkaGroupID string

	// Oracle (LLM completion service)
	OracleAPIKey    string
	OracleBaseURL   string
	OracleModelName string
	OracleTimeout   time.Duration

	// Extraction pipeline
	MatchThreshold     float64
	ComparePause       time.Duration
	RunTTL             time.Duration
	RedactJourneys     bool
	RedactionRulesPath string
	VocabularyPath     string

	// Export worker
	ExportDir string
}

func Load() *Config {
	return &Config{
		ServerPort:     getEnv("SERVER_PORT", "8080"),
		ServerHost:     getEnv("SERVER_HOST", "0.0.0.0"),
		ReadTimeout:    getDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout:   getDuration("WRITE_TIMEOUT", 30*time.Second),
		MaxRequestBody: int64(getIntEnv("MAX_REQUEST_BODY_BYTES", 4*1024*1024)),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "tracemed"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "tracemed123"),
		PostgresDB:       getEnv("POSTGRES_DB", "tracemed"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),

		KafkaBrokers: getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
		KafkaGroupID: getEnv("KAFKA_GROUP_ID", "tracemed-platform"),

		OracleAPIKey:    getEnv("ORACLE_API_KEY", ""),
		OracleBaseURL:   getEnv("ORACLE_BASE_URL", "https://api.openai.com/v1"),
		OracleModelName: getEnv("ORACLE_MODEL_NAME", "gpt-4"),
		OracleTimeout:   getDuration("ORACLE_TIMEOUT", 60*time.Second),

		MatchThreshold:     getFloatEnv("ORACLE_MATCH_THRESHOLD", 0.5),
		ComparePause:       getDuration("ORACLE_COMPARE_PAUSE", 2*time.Second),
		RunTTL:             getDuration("RUN_TTL", 24*time.Hour),
		RedactJourneys:     getBoolEnv("REDACT_JOURNEYS", false),
		RedactionRulesPath: getEnv("REDACTION_RULES_PATH", ""),
		VocabularyPath:     getEnv("VOCABULARY_PATH", ""),

		ExportDir: getEnv("EXPORT_DIR", "./exports"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getStringSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return []string{value}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

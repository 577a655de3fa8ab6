package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config carries all externally supplied settings for the upload gateway.
// Everything comes from the environment; a .env file is honored when present.
type Config struct {
	Addr string

	DatabaseDSN string
	RedisAddr   string

	// Classifier settings. When UseMLValidation is false the validator runs
	// on heuristics alone and the model is never loaded.
	UseMLValidation bool
	ModelPath       string
	ONNXSharedLib   string

	// Remote OCR collaborator. Empty endpoint selects the static stand-in.
	OCREndpoint string
	OCRLocale   string

	// Object storage collaborator receiving accepted uploads.
	StorageEndpoint string
	StorageAPIKey   string

	DecodeTimeout   time.Duration
	InferTimeout    time.Duration
	ValidateTimeout time.Duration

	LogLevel string
}

// Load reads configuration from the environment, applying defaults that
// match the docker-compose development setup.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Addr:            getEnv("ADDR", ":8080"),
		DatabaseDSN:     getEnv("DATABASE_DSN", "host=postgres user=postgres password=postgres dbname=imagegate port=5432 sslmode=disable"),
		RedisAddr:       getEnv("REDIS_ADDR", "redis:6379"),
		UseMLValidation: getBool("USE_ML_VALIDATION", false),
		ModelPath:       getEnv("MODEL_PATH", "mobilenetv2-7.onnx"),
		ONNXSharedLib:   os.Getenv("ONNX_SHARED_LIB"),
		OCREndpoint:     os.Getenv("OCR_ENDPOINT"),
		OCRLocale:       getEnv("OCR_LOCALE", "en-US"),
		StorageEndpoint: getEnv("STORAGE_ENDPOINT", "http://storage:9000/upload"),
		StorageAPIKey:   os.Getenv("STORAGE_API_KEY"),
		DecodeTimeout:   getDuration("DECODE_TIMEOUT", 5*time.Second),
		InferTimeout:    getDuration("INFER_TIMEOUT", 2*time.Second),
		ValidateTimeout: getDuration("VALIDATE_TIMEOUT", 8*time.Second),
		LogLevel:        os.Getenv("LOG_LEVEL"),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

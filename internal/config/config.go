package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Load reads the .env file specified by CREDO_ENV (or .env by default),
// then loads the corresponding .secret file if it exists.
// All config is flat env vars read via os.Getenv after loading.
func Load() error {
	envFile := os.Getenv("CREDO_ENV")
	if envFile == "" {
		envFile = ".env"
	}

	// Load main env file (ignore error if file doesn't exist)
	_ = godotenv.Load(envFile)

	// Load secret sidecar if it exists
	_ = godotenv.Load(envFile + ".secret")

	return nil
}

func intEnv(key string, def int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}

func floatEnv(key string, def float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return def
	}
	return v
}

func durationEnv(key string, def time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func stringEnv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func ServerPort() int {
	return intEnv("SERVER_PORT", 8080)
}

func ServerAddr() string {
	return fmt.Sprintf(":%d", ServerPort())
}

func DatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}

func OpenAIAPIKey() string {
	return os.Getenv("OPENAI_API_KEY")
}

// LogLevel returns the log level (debug, info, warn, error).
func LogLevel() string {
	return stringEnv("LOG_LEVEL", "info")
}

// RateLimitRPS returns requests per second limit.
func RateLimitRPS() float64 {
	rps := floatEnv("RATE_LIMIT_RPS", 100)
	if rps <= 0 {
		return 100
	}
	return rps
}

// RateLimitBurst returns the burst size for rate limiting.
func RateLimitBurst() int {
	burst := intEnv("RATE_LIMIT_BURST", 20)
	if burst <= 0 {
		return 20
	}
	return burst
}

// EmbeddingProvider selects the embedding client.
// Valid values: openai, deterministic.
func EmbeddingProvider() string {
	return stringEnv("EMBEDDING_PROVIDER", "openai")
}

// EmbeddingEnabled gates embedding generation during ingestion.
func EmbeddingEnabled() bool {
	return stringEnv("EMBEDDING_ENABLED", "true") != "false"
}

// EmbeddingDimension is the process-wide vector dimension.
func EmbeddingDimension() int {
	return intEnv("EMBEDDING_DIMENSION", 1536)
}

// LLMProvider selects the categorizer/extractor backend.
// Valid values: openai, pattern, mock.
func LLMProvider() string {
	return stringEnv("LLM_PROVIDER", "pattern")
}

// SimilarityStrategy is one of auto, text, vector, native.
// auto probes storage capabilities and prefers native, then vector, then text.
func SimilarityStrategy() string {
	return stringEnv("SIMILARITY_STRATEGY", "auto")
}

func SimilarityThreshold() float64 {
	return floatEnv("SIMILARITY_THRESHOLD", 0.0)
}

func SimilarityMaxResults() int {
	return intEnv("SIMILARITY_MAX_RESULTS", 1000)
}

// BRCA tuning knobs.

func BRCAReinforcementAlpha() float64 {
	return floatEnv("BRCA_REINFORCEMENT_ALPHA", 0.15)
}

func BRCAWeakeningBeta() float64 {
	return floatEnv("BRCA_WEAKENING_BETA", 0.3)
}

func BRCADeactivationThreshold() float64 {
	return floatEnv("BRCA_DEACTIVATION_THRESHOLD", 0.2)
}

func BRCASimilarityThreshold() float64 {
	return floatEnv("BRCA_SIMILARITY_THRESHOLD", 0.75)
}

func BRCAConflictThreshold() float64 {
	return floatEnv("BRCA_CONFLICT_THRESHOLD", 0.80)
}

func BRCADefaultResolution() string {
	return stringEnv("BRCA_DEFAULT_RESOLUTION", "MARK_UNCERTAIN")
}

// Ingestion limits.

func IngestionMaxContentChars() int {
	return intEnv("INGESTION_MAX_CONTENT_CHARS", 10000)
}

func IngestionMaxAgentIDChars() int {
	return intEnv("INGESTION_MAX_AGENT_ID_CHARS", 100)
}

func IngestionMaxInflight() int {
	return intEnv("INGESTION_MAX_INFLIGHT", 256)
}

// Per-operation deadlines.

func EmbedTimeout() time.Duration {
	return durationEnv("EMBED_TIMEOUT", 10*time.Second)
}

func CategorizeTimeout() time.Duration {
	return durationEnv("CATEGORIZE_TIMEOUT", 30*time.Second)
}

func ExtractTimeout() time.Duration {
	return durationEnv("EXTRACT_TIMEOUT", 30*time.Second)
}

func StoreTimeout() time.Duration {
	return durationEnv("STORE_TIMEOUT", 10*time.Second)
}

func BRCATimeout() time.Duration {
	return durationEnv("BRCA_TIMEOUT", 60*time.Second)
}

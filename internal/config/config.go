package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port    string
	Env     string
	LogMode string

	// Database
	DatabaseURL   string
	MigrationsDir string

	// Redis
	RedisURL        string
	ConversationTTL time.Duration

	// JWT
	JWTSecret string

	// Gemini AI
	GeminiAPIKey         string
	GeminiTextModel      string
	GeminiTTSModel       string
	GeminiTTSVoice       string
	GeminiConcurrentReqs int

	// Requests per minute per learner on routes that call the model
	GenerationRateLimit int

	// Progress recording
	ProgressWorkers   int
	ProgressQueueSize int

	// Schedule dates and times are wall-clock values in this zone
	ScheduleTimezone string

	// Frontend
	FrontendURL string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	env := getEnvOrDefault("ENV", "development")
	logMode := "development"
	if env == "production" {
		logMode = "production"
	}

	cfg := &Config{
		Port:                 getEnvOrDefault("PORT", "8080"),
		Env:                  env,
		LogMode:              getEnvOrDefault("LOG_MODE", logMode),
		DatabaseURL:          mustGetEnv("DATABASE_URL"),
		MigrationsDir:        getEnvOrDefault("MIGRATIONS_DIR", "./migrations"),
		RedisURL:             mustGetEnv("REDIS_URL"),
		ConversationTTL:      getEnvAsDurationOrDefault("CONVERSATION_TTL", 6*time.Hour),
		JWTSecret:            mustGetEnv("JWT_SECRET"),
		GeminiAPIKey:         mustGetEnv("GEMINI_API_KEY"),
		GeminiTextModel:      getEnvOrDefault("GEMINI_TEXT_MODEL", "gemini-2.5-flash"),
		GeminiTTSModel:       getEnvOrDefault("GEMINI_TTS_MODEL", "gemini-2.5-flash-preview-tts"),
		GeminiTTSVoice:       getEnvOrDefault("GEMINI_TTS_VOICE", "Algenib"),
		GeminiConcurrentReqs: getEnvAsIntOrDefault("GEMINI_CONCURRENT_REQUESTS", 5),
		GenerationRateLimit:  getEnvAsIntOrDefault("GENERATION_RATE_LIMIT", 20),
		ProgressWorkers:      getEnvAsIntOrDefault("PROGRESS_WORKERS", 2),
		ProgressQueueSize:    getEnvAsIntOrDefault("PROGRESS_QUEUE_SIZE", 256),
		ScheduleTimezone:     getEnvOrDefault("SCHEDULE_TIMEZONE", "UTC"),
		FrontendURL:          getEnvOrDefault("FRONTEND_URL", "http://localhost:9002"),
	}

	return cfg
}

// ScheduleLocation resolves ScheduleTimezone, falling back to UTC for unknown names.
func (c *Config) ScheduleLocation() *time.Location {
	loc, err := time.LoadLocation(c.ScheduleTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

func getEnvAsDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

package config

import (
	"os"
	"strconv"
	"time"
)

// Config is the service configuration read from the environment
type Config struct {
	MongoURI        string
	MongoDB         string
	RedisAddr       string
	HTTPPort        string
	JWTSecret       string
	TeacherPassword string
	LogMode         string

	AnalysisBatchSize  int
	AnalysisBatchDelay time.Duration

	// FormsBaseURL overrides the Google Forms endpoint (tests, emulators)
	FormsBaseURL string
}

// Load reads the configuration from the environment
func Load() *Config {
	return &Config{
		MongoURI:           getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:            getEnv("MONGO_DB", "counseling"),
		RedisAddr:          trimRedisScheme(getEnv("REDIS_ADDR", "localhost:6379")),
		HTTPPort:           getEnv("HTTP_PORT", "8080"),
		JWTSecret:          getEnv("JWT_SECRET", "dev-secret-change-in-production"),
		TeacherPassword:    os.Getenv("TEACHER_PASSWORD"),
		LogMode:            getEnv("LOG_MODE", "development"),
		AnalysisBatchSize:  getEnvInt("ANALYSIS_BATCH_SIZE", 3),
		AnalysisBatchDelay: time.Duration(getEnvInt("ANALYSIS_BATCH_DELAY_MS", 1000)) * time.Millisecond,
		FormsBaseURL:       os.Getenv("GOOGLE_FORMS_BASE_URL"),
	}
}

// Remove redis:// prefix if present
func trimRedisScheme(addr string) string {
	if len(addr) > 8 && addr[:8] == "redis://" {
		return addr[8:]
	}
	return addr
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil || n < 0 {
		return defaultVal
	}
	return n
}

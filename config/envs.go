package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application's configuration values.
type Config struct {
	DBHost        string        // Hostname or IP address for the database; empty disables MongoDB
	DBPort        int           // Port number for the database
	DBUser        string        // Username for the database
	DBPassword    string        // Password for the database
	DBName        string        // Name of the database
	DBCollection  string        // Collection holding session exports
	RedisAddr     string        // host:port of Redis; empty disables the pool cache
	RedisPassword string        // Password for Redis
	RedisDB       int           // Redis logical database
	PoolCacheTTL  time.Duration // Lifetime of cached maze pools
	SQLitePath    string        // File of the flat trial export; empty disables it
	StudyConfig   string        // Path of the study YAML; empty uses the defaults
	LogLevel      string        // "debug" enables debug output
}

// Envs holds the application's configuration loaded from environment variables.
var Envs = initConfig()

// initConfig initializes and returns the application configuration.
// It loads environment variables from a .env file.
func initConfig() Config {
	// Load .env file if available
	if err := godotenv.Load(); err != nil {
		log.Printf("[APP] [INFO] .env file not found or could not be loaded: %v", err)
	}

	return Config{
		DBHost:        getEnvWithDefault("DB_HOST", ""),
		DBPort:        getEnvAsIntWithDefault("DB_PORT", 27017),
		DBUser:        getEnvWithDefault("DB_USER", ""),
		DBPassword:    getEnvWithDefault("DB_PASS", ""),
		DBName:        getEnvWithDefault("DB_NAME", "navstudy"),
		DBCollection:  getEnvWithDefault("DB_COLLECTION", "sessions"),
		RedisAddr:     getEnvWithDefault("REDIS_ADDR", ""),
		RedisPassword: getEnvWithDefault("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsIntWithDefault("REDIS_DB", 0),
		PoolCacheTTL:  getEnvAsDurationWithDefault("POOL_CACHE_TTL", 24*time.Hour),
		SQLitePath:    getEnvWithDefault("SQLITE_PATH", ""),
		StudyConfig:   getEnvWithDefault("STUDY_CONFIG", ""),
		LogLevel:      getEnvWithDefault("LOG_LEVEL", "info"),
	}
}

// getEnvAsIntWithDefault retrieves an environment variable as an integer, logs a fatal error if it cannot be parsed.
func getEnvAsIntWithDefault(key string, defaultValue int) int {
	valueStr, exists := os.LookupEnv(key)
	if !exists || valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Fatalf("[APP] [FATAL] Environment variable %s must be an integer: %v", key, err)
	}
	return value
}

// getEnvAsDurationWithDefault retrieves an environment variable as a time.Duration such as "12h".
func getEnvAsDurationWithDefault(key string, defaultValue time.Duration) time.Duration {
	valueStr, exists := os.LookupEnv(key)
	if !exists || valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Fatalf("[APP] [FATAL] Environment variable %s must be a duration: %v", key, err)
	}
	return value
}

// getEnvWithDefault retrieves the value of an environment variable or returns a default value if not set.
func getEnvWithDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

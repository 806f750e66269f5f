package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// JWT
	JWTSecret            string
	JWTExpireHours       string
	JWTRefreshExpireDays string

	// Bootstrap owner (seed tool)
	OwnerEmail    string
	OwnerPassword string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       string

	// Login Rate Limiting
	LoginRateLimitMaxAttempts   string
	LoginRateLimitWindowMinutes string

	// Frontend URL (CORS)
	FrontendURL string

	// Service URLs
	AuthServiceURL string
	CoreServiceURL string
}

var cfg *Config

// LoadConfig loads configuration from environment variables
func LoadConfig() {
	envPaths := []string{
		".env",
		"../.env",
		"../../.env",
	}

	envLoaded := false
	for _, path := range envPaths {
		if err := godotenv.Load(path); err == nil {
			log.Printf("✅ Environment loaded from: %s", path)
			envLoaded = true
			break
		}
	}

	if !envLoaded {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	cfg = &Config{
		// Database
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "taskhub"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		// JWT
		JWTSecret:            getEnv("JWT_SECRET", "your-secret-key-change-this"),
		JWTExpireHours:       getEnv("JWT_EXPIRE_HOURS", "3"),
		JWTRefreshExpireDays: getEnv("JWT_REFRESH_EXPIRE_DAYS", "1"),

		// Bootstrap owner
		OwnerEmail:    getEnv("OWNER_EMAIL", "owner@taskhub.local"),
		OwnerPassword: getEnv("OWNER_PASSWORD", "owner123"),

		// Redis
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnv("REDIS_DB", "0"),

		// Login Rate Limiting
		LoginRateLimitMaxAttempts:   getEnv("LOGIN_RATE_LIMIT_MAX_ATTEMPTS", "5"),
		LoginRateLimitWindowMinutes: getEnv("LOGIN_RATE_LIMIT_WINDOW_MINUTES", "15"),

		// Frontend URL
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:4200"),

		// Service URLs
		AuthServiceURL: getEnv("AUTH_SERVICE_URL", "http://localhost:8001"),
		CoreServiceURL: getEnv("CORE_SERVICE_URL", "http://localhost:8003"),
	}

	log.Println("✅ Configuration loaded successfully")
}

// GetConfig returns the current configuration
func GetConfig() *Config {
	if cfg == nil {
		LoadConfig()
	}
	return cfg
}

// GetLoginRateLimitMaxAttempts returns the login attempt cap as integer
func (c *Config) GetLoginRateLimitMaxAttempts() int {
	if value, err := strconv.Atoi(c.LoginRateLimitMaxAttempts); err == nil {
		return value
	}
	return 5
}

// GetLoginRateLimitWindowMinutes returns the attempt window as integer
func (c *Config) GetLoginRateLimitWindowMinutes() int {
	if value, err := strconv.Atoi(c.LoginRateLimitWindowMinutes); err == nil {
		return value
	}
	return 15
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

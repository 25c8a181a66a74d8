package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port    string
	LogMode string
	JWTKey  string

	DBDriver   string // postgres, mysql or sqlite
	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string
	DBPath     string // sqlite file path

	VideoCompletionThreshold    float64
	AudioCompletionThreshold    float64
	DocumentCompletionThreshold float64
	ExternalMinSeconds          int

	RollupReconcileSpec string // cron spec, empty disables the sweep

	CompletionWebhookURL string
	SendgridAPIKey       string
	EmailSender          string
}

// AppConfig is a global variable to access configuration
var AppConfig *Config

// LoadConfig initializes configuration from environment variables or defaults
func LoadConfig() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found. Using system environment variables.")
	}

	AppConfig = &Config{
		Port:    getEnv("PORT", "3000"),
		LogMode: getEnv("LOG_MODE", "dev"),
		JWTKey:  getEnv("JWT_SECRET_KEY", "defaultSecret"),

		DBDriver:   getEnv("DB_DRIVER", "postgres"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "lms"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBPath:     getEnv("DB_PATH", "lms.db"),

		VideoCompletionThreshold:    getEnvFloat("VIDEO_COMPLETION_THRESHOLD", 100),
		AudioCompletionThreshold:    getEnvFloat("AUDIO_COMPLETION_THRESHOLD", 100),
		DocumentCompletionThreshold: getEnvFloat("DOCUMENT_COMPLETION_THRESHOLD", 100),
		ExternalMinSeconds:          getEnvInt("EXTERNAL_MIN_SECONDS", 0),

		RollupReconcileSpec: getEnv("ROLLUP_RECONCILE_SPEC", "@every 15m"),

		CompletionWebhookURL: os.Getenv("COMPLETION_WEBHOOK_URL"),
		SendgridAPIKey:       os.Getenv("SENDGRID_API_KEY"),
		EmailSender:          getEnv("EMAIL_SENDER", "no-reply@lms.local"),
	}

	if AppConfig.JWTKey == "defaultSecret" {
		log.Println("Warning: Using default JWT_SECRET_KEY. Update it in your environment.")
	}
}

// Default returns the configuration used when LoadConfig has not run (tests, tools).
func Default() *Config {
	return &Config{
		Port:                        "3000",
		LogMode:                     "dev",
		JWTKey:                      "defaultSecret",
		DBDriver:                    "sqlite",
		DBPath:                      ":memory:",
		VideoCompletionThreshold:    100,
		AudioCompletionThreshold:    100,
		DocumentCompletionThreshold: 100,
	}
}

// Current returns AppConfig, falling back to Default.
func Current() *Config {
	if AppConfig == nil {
		return Default()
	}
	return AppConfig
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvInt retrieves an environment variable as an integer or returns the default integer value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Error converting environment variable %s to int: %v", key, err)
		return defaultValue
	}
	return intValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		log.Printf("Error converting environment variable %s to float: %v", key, err)
		return defaultValue
	}
	return f
}

package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	SourceBaseURL  string
	SourceUsername string
	SourcePassword string

	DBPath   string
	MaxPages int

	GeocodeFallback bool
	LogLevel        string

	ServerPort int
	ChromeBin  string
}

// Load reads the .env file (if present) and returns a populated Config.
// Source credentials are validated separately by RequireCredentials so
// that cmd/server and cmd/tools can share the loader.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		SourceBaseURL:  getEnv("SOURCE_BASE_URL", "https://admin.inmobiliaria-demo.mx"),
		SourceUsername: getEnv("SOURCE_USERNAME", ""),
		SourcePassword: getEnv("SOURCE_PASSWORD", ""),

		DBPath:   getEnv("DB_PATH", "./data/inventory.db"),
		MaxPages: getEnvInt("MAX_PAGES", 50),

		GeocodeFallback: getEnvBool("GEOCODE_FALLBACK", false),
		LogLevel:        getEnv("LOG_LEVEL", "info"),

		ServerPort: getEnvInt("SERVER_PORT", 8080),
		ChromeBin:  getEnv("CHROME_BIN", ""),
	}
}

// RequireCredentials returns an error when the source account secrets
// are absent. Nothing downstream can proceed without them, so callers
// treat this as fatal.
func (c *Config) RequireCredentials() error {
	if c.SourceUsername == "" || c.SourcePassword == "" {
		return fmt.Errorf("SOURCE_USERNAME and SOURCE_PASSWORD must be set")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return fallback
}

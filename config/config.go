// config/config.go

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"places-sweep/types"
)

const (
	// APIKeyEnvVar names the environment variable holding the Geoapify key
	APIKeyEnvVar = "GEOAPIFY_API_KEY"
	// DefaultBaseURL is the Geoapify Places v2 endpoint
	DefaultBaseURL = "https://api.geoapify.com/v2/places"
	// DefaultEnvFile is read when present
	DefaultEnvFile = ".env"
)

// Settings holds all application configuration
type Settings struct {
	Places  PlacesConfig
	Sweep   SweepConfig
	Storage StorageConfig
	Server  ServerConfig
}

// PlacesConfig holds the places API client configuration
type PlacesConfig struct {
	APIKey   string
	BaseURL  string
	Timeout  time.Duration
	Language string
}

// SweepConfig holds sweep defaults
type SweepConfig struct {
	Concurrency int
	Limit       int
	Categories  []string
}

// StorageConfig holds persistence targets. Empty values disable a target.
type StorageConfig struct {
	AWSRegion      string
	S3Bucket       string
	DynamoDBTable  string
	RunsTable      string
	SQLitePath     string
	DocumentPrefix string
}

// ServerConfig holds the viewer HTTP server configuration
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// Load reads envFile (if it exists) into the process environment without
// overriding variables that are already set, then builds Settings.
func Load(envFile string) (Settings, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Settings{}, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	settings := Settings{
		Places: PlacesConfig{
			APIKey:   strings.TrimSpace(getEnv(APIKeyEnvVar, "")),
			BaseURL:  getEnv("GEOAPIFY_BASE_URL", DefaultBaseURL),
			Timeout:  getEnvAsDuration("GEOAPIFY_TIMEOUT", 10*time.Second),
			Language: getEnv("GEOAPIFY_LANGUAGE", ""),
		},
		Sweep: SweepConfig{
			Concurrency: getEnvAsInt("SWEEP_CONCURRENCY", 1),
			Limit:       getEnvAsInt("SWEEP_LIMIT", 100),
			Categories:  getEnvAsSlice("SWEEP_CATEGORIES", []string{"commercial", "service"}),
		},
		Storage: StorageConfig{
			AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
			S3Bucket:       getEnv("S3_SWEEP_BUCKET", ""),
			DynamoDBTable:  getEnv("DYNAMODB_BUSINESSES_TABLE", ""),
			RunsTable:      getEnv("DYNAMODB_SWEEP_RUNS_TABLE", ""),
			SQLitePath:     getEnv("SQLITE_PATH", ""),
			DocumentPrefix: getEnv("S3_SWEEP_PREFIX", "sweeps/"),
		},
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
	}

	return settings, nil
}

// Validate checks the settings needed to query the places API
func (s Settings) Validate() error {
	if s.Places.APIKey == "" {
		return &types.AuthError{Message: fmt.Sprintf("%s is not set; create a .env file or export the variable", APIKeyEnvVar)}
	}
	if s.Places.BaseURL == "" {
		return fmt.Errorf("places base URL must not be empty")
	}
	if s.Sweep.Concurrency < 1 {
		return fmt.Errorf("sweep concurrency must be at least 1, got %d", s.Sweep.Concurrency)
	}
	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	return SplitList(valueStr)
}

// SplitList splits a comma-separated list, trimming blanks
func SplitList(value string) []string {
	items := []string{}
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

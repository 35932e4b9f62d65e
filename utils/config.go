package utils

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/brettboylen/reddit-digest/models"
)

// Config holds all configuration for the application
type Config struct {
	App      AppConfig
	Reddit   RedditConfig
	Database DatabaseConfig
	Server   ServerConfig
	Data     DataConfig
	Extract  ExtractConfig
	Groq     GroqConfig
}

// AppConfig holds application-level configuration
type AppConfig struct {
	Name    string
	Version string
}

// RedditConfig holds Reddit API configuration
type RedditConfig struct {
	ClientID             string
	ClientSecret         string
	UserAgent            string
	MaxRequestsPerMinute int
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port              int
	RequestsPerSecond int
}

// DataConfig controls where CSV datasets are written
type DataConfig struct {
	Dir string

	// MergeMode appends to the existing dataset instead of replacing it
	MergeMode     bool
	RetentionDays int
}

// ExtractConfig controls scheduled extraction
type ExtractConfig struct {
	Schedule   string
	BaseLimit  int
	Domains    []models.Domain
	TuningFile string
}

// GroqConfig holds the summarizer endpoint. An empty APIKey disables summaries.
type GroqConfig struct {
	APIKey            string
	BaseURL           string
	Model             string
	RequestsPerMinute int
}

// LoadConfig loads configuration from a .env file and the environment.
// A missing default .env is not an error; an explicitly named one is.
func LoadConfig(envPath string, log *logrus.Logger) (*Config, error) {
	explicit := envPath != ""
	if envPath == "" {
		envPath = ".env"
	}

	if err := godotenv.Load(envPath); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
		log.WithField("file", envPath).Debug("No .env file, using environment only")
	}

	domains, err := parseDomains(getEnv("EXTRACT_DOMAINS", "finance,entertainment,travel,regional_travel"))
	if err != nil {
		return nil, err
	}

	config := &Config{
		App: AppConfig{
			Name:    getEnv("APP_NAME", "Reddit Digest"),
			Version: getEnv("APP_VERSION", "1.0.0"),
		},
		Reddit: RedditConfig{
			ClientID:             getEnv("REDDIT_CLIENT_ID", ""),
			ClientSecret:         getEnv("REDDIT_CLIENT_SECRET", ""),
			UserAgent:            getEnv("REDDIT_USER_AGENT", ""),
			MaxRequestsPerMinute: getEnvAsInt("REDDIT_MAX_REQUESTS_PER_MINUTE", 100),
		},
		Database: DatabaseConfig{
			Path: getEnv("DATABASE_PATH", "./data/digest.db"),
		},
		Server: ServerConfig{
			Port:              getEnvAsInt("SERVER_PORT", 8080),
			RequestsPerSecond: getEnvAsInt("SERVER_REQUESTS_PER_SECOND", 20),
		},
		Data: DataConfig{
			Dir:           getEnv("DATA_DIR", "./data"),
			MergeMode:     getEnvAsBool("DATA_MERGE_MODE", false),
			RetentionDays: getEnvAsInt("DATA_RETENTION_DAYS", 7),
		},
		Extract: ExtractConfig{
			Schedule:   getEnv("EXTRACT_SCHEDULE", "0 */6 * * *"),
			BaseLimit:  getEnvAsInt("EXTRACT_BASE_LIMIT", 100),
			Domains:    domains,
			TuningFile: getEnv("TUNING_FILE", ""),
		},
		Groq: GroqConfig{
			APIKey:            getEnv("GROQ_API_KEY", ""),
			BaseURL:           getEnv("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
			Model:             getEnv("GROQ_MODEL", "llama-3.1-8b-instant"),
			RequestsPerMinute: getEnvAsInt("GROQ_REQUESTS_PER_MINUTE", 30),
		},
	}

	// validation
	if err := validateConfig(config); err != nil {
		return nil, err
	}

	log.WithField("file", envPath).Info("Config loaded successfully")
	return config, nil
}

// parseList parses a comma-separated list, dropping empty entries
func parseList(s string) []string {
	parts := strings.Split(s, ",")

	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}

	return out
}

func parseDomains(s string) ([]models.Domain, error) {
	var domains []models.Domain
	seen := make(map[models.Domain]bool)
	for _, name := range parseList(s) {
		d, err := models.ParseDomain(name)
		if err != nil {
			return nil, fmt.Errorf("EXTRACT_DOMAINS: %w", err)
		}
		if !seen[d] {
			seen[d] = true
			domains = append(domains, d)
		}
	}
	return domains, nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt gets an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}

// validateConfig validates the configuration
func validateConfig(config *Config) error {
	if config.Reddit.ClientID == "" {
		return fmt.Errorf("REDDIT_CLIENT_ID environment variable is required")
	}
	if config.Reddit.ClientSecret == "" {
		return fmt.Errorf("REDDIT_CLIENT_SECRET environment variable is required")
	}

	// reddit rejects generic user agents; see example.env
	if config.Reddit.UserAgent == "" {
		return fmt.Errorf("REDDIT_USER_AGENT environment variable is required")
	}
	if config.Reddit.MaxRequestsPerMinute < 1 {
		return fmt.Errorf("REDDIT_MAX_REQUESTS_PER_MINUTE must be positive")
	}
	if len(config.Extract.Domains) == 0 {
		return fmt.Errorf("EXTRACT_DOMAINS must name at least one domain")
	}
	if config.Extract.BaseLimit < 1 {
		return fmt.Errorf("EXTRACT_BASE_LIMIT must be positive")
	}
	if _, err := cron.ParseStandard(config.Extract.Schedule); err != nil {
		return fmt.Errorf("EXTRACT_SCHEDULE is not a valid cron expression: %w", err)
	}
	if config.Data.RetentionDays < 0 {
		return fmt.Errorf("DATA_RETENTION_DAYS must not be negative")
	}

	if err := os.MkdirAll(config.Data.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	// if we are storing the db in a nested directory, create the directory
	dbDir := filepath.Dir(config.Database.Path)
	if dbDir != "." && dbDir != "" {
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	return nil
}

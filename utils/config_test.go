package utils

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brettboylen/reddit-digest/models"
)

func TestGetEnv(t *testing.T) {
	t.Setenv("TEST_ENV_VAR", "test-value")

	value := getEnv("TEST_ENV_VAR", "default-value")
	assert.Equal(t, "test-value", value)

	value = getEnv("NON_EXISTENT_VAR", "default-value")
	assert.Equal(t, "default-value", value)
}

func TestGetEnvAsInt(t *testing.T) {
	t.Setenv("TEST_INT_VAR", "42")
	t.Setenv("TEST_INVALID_INT_VAR", "not-an-int")

	assert.Equal(t, 42, getEnvAsInt("TEST_INT_VAR", 10))
	assert.Equal(t, 10, getEnvAsInt("TEST_INVALID_INT_VAR", 10))
	assert.Equal(t, 10, getEnvAsInt("NON_EXISTENT_VAR", 10))
}

func TestGetEnvAsBool(t *testing.T) {
	t.Setenv("TEST_BOOL_VAR", "true")
	t.Setenv("TEST_INVALID_BOOL_VAR", "maybe")

	assert.True(t, getEnvAsBool("TEST_BOOL_VAR", false))
	assert.True(t, getEnvAsBool("TEST_INVALID_BOOL_VAR", true))
	assert.False(t, getEnvAsBool("NON_EXISTENT_VAR", false))
}

func validConfig(t *testing.T) *Config {
	dir := t.TempDir()
	return &Config{
		Reddit: RedditConfig{
			ClientID:             "id",
			ClientSecret:         "secret",
			UserAgent:            "agent",
			MaxRequestsPerMinute: 100,
		},
		Database: DatabaseConfig{Path: filepath.Join(dir, "db", "test.db")},
		Data:     DataConfig{Dir: filepath.Join(dir, "data")},
		Extract: ExtractConfig{
			Schedule:  "0 */6 * * *",
			BaseLimit: 100,
			Domains:   []models.Domain{models.DomainFinance},
		},
	}
}

func TestValidateConfig(t *testing.T) {
	cfg := validConfig(t)
	require.NoError(t, validateConfig(cfg))
	assert.DirExists(t, cfg.Data.Dir)
	assert.DirExists(t, filepath.Dir(cfg.Database.Path))

	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"missing client id", func(c *Config) { c.Reddit.ClientID = "" }, "REDDIT_CLIENT_ID"},
		{"missing secret", func(c *Config) { c.Reddit.ClientSecret = "" }, "REDDIT_CLIENT_SECRET"},
		{"missing user agent", func(c *Config) { c.Reddit.UserAgent = "" }, "REDDIT_USER_AGENT"},
		{"no rate", func(c *Config) { c.Reddit.MaxRequestsPerMinute = 0 }, "REDDIT_MAX_REQUESTS_PER_MINUTE"},
		{"no domains", func(c *Config) { c.Extract.Domains = nil }, "EXTRACT_DOMAINS"},
		{"bad base limit", func(c *Config) { c.Extract.BaseLimit = -1 }, "EXTRACT_BASE_LIMIT"},
		{"bad schedule", func(c *Config) { c.Extract.Schedule = "every six hours" }, "EXTRACT_SCHEDULE"},
		{"negative retention", func(c *Config) { c.Data.RetentionDays = -1 }, "DATA_RETENTION_DAYS"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig(t)
			tc.mutate(cfg)
			err := validateConfig(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errMsg)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, "test.env")
	content := strings.Join([]string{
		"REDDIT_CLIENT_ID=id",
		"REDDIT_CLIENT_SECRET=secret",
		"REDDIT_USER_AGENT=linux:digest:v1 (by /u/someone)",
		"DATA_DIR=" + filepath.Join(dir, "data"),
		"DATABASE_PATH=" + filepath.Join(dir, "digest.db"),
		"EXTRACT_DOMAINS=finance, travel-tips,finance",
		"EXTRACT_BASE_LIMIT=50",
		"DATA_MERGE_MODE=true",
	}, "\n")
	require.NoError(t, os.WriteFile(envPath, []byte(content), 0o600))

	// godotenv never overrides variables already set, so clear what we set
	for _, key := range []string{
		"REDDIT_CLIENT_ID", "REDDIT_CLIENT_SECRET", "REDDIT_USER_AGENT", "DATA_DIR",
		"DATABASE_PATH", "EXTRACT_DOMAINS", "EXTRACT_BASE_LIMIT", "DATA_MERGE_MODE",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	log, _ := test.NewNullLogger()
	cfg, err := LoadConfig(envPath, log)
	require.NoError(t, err)

	assert.Equal(t, []models.Domain{models.DomainFinance, models.DomainTravel}, cfg.Extract.Domains)
	assert.Equal(t, 50, cfg.Extract.BaseLimit)
	assert.Equal(t, "0 */6 * * *", cfg.Extract.Schedule)
	assert.True(t, cfg.Data.MergeMode)
	assert.Equal(t, 7, cfg.Data.RetentionDays)
	assert.Equal(t, "llama-3.1-8b-instant", cfg.Groq.Model)
	assert.Equal(t, 100, cfg.Reddit.MaxRequestsPerMinute)
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	log, _ := test.NewNullLogger()
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.env"), log)
	assert.Error(t, err)
}

func TestParseDomains(t *testing.T) {
	domains, err := parseDomains("Finance, regional_travel")
	require.NoError(t, err)
	assert.Equal(t, []models.Domain{models.DomainFinance, models.DomainRegionalTravel}, domains)

	_, err = parseDomains("finance,sports")
	assert.ErrorIs(t, err, models.ErrUnknownDomain)
}

func TestParseList(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "Single entry",
			input:    "AskReddit",
			expected: []string{"AskReddit"},
		},
		{
			name:     "Multiple entries",
			input:    "AskReddit,news,programming",
			expected: []string{"AskReddit", "news", "programming"},
		},
		{
			name:     "Entries with whitespace",
			input:    "AskReddit, news, programming",
			expected: []string{"AskReddit", "news", "programming"},
		},
		{
			name:     "Extra commas",
			input:    ",AskReddit,,news,,programming,",
			expected: []string{"AskReddit", "news", "programming"},
		},
		{
			name:     "Mixed whitespace",
			input:    " AskReddit ,\t news\n, programming ",
			expected: []string{"AskReddit", "news", "programming"},
		},
		{
			name:     "Empty",
			input:    "",
			expected: []string{},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := parseList(tc.input)
			if !reflect.DeepEqual(result, tc.expected) {
				t.Errorf("parseList(%q) = %v; want %v", tc.input, result, tc.expected)
			}
		})
	}
}

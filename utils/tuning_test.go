package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brettboylen/reddit-digest/models"
)

const sampleTuning = `
multipliers:
  wallstreetbets: 0.5
  golang: 2
profiles:
  finance:
    threshold: 250
    quotas:
      - category: memes
        minimum: 5
        threshold: 100
        subreddits: [wallstreetbets]
  travel_tips:
    subreddits: [travel, solotravel]
`

func TestParseTuning(t *testing.T) {
	tuning, err := ParseTuning(strings.NewReader(sampleTuning))
	require.NoError(t, err)

	scorer := tuning.Scorer()
	assert.Equal(t, 0.5, scorer.Multiplier("wallstreetbets"))
	assert.Equal(t, 2.0, scorer.Multiplier("golang"))
	assert.Equal(t, 1.0, scorer.Multiplier("unknown"))

	finance, err := tuning.Profile(models.DomainFinance)
	require.NoError(t, err)
	assert.Equal(t, 250.0, finance.Threshold)

	memes, ok := finance.Quota(models.CategoryMemes)
	require.True(t, ok)
	assert.Equal(t, 5, memes.Minimum)
	assert.Equal(t, []string{"wallstreetbets"}, memes.Subreddits)

	analysis, ok := finance.Quota(models.CategoryAnalysis)
	require.True(t, ok)
	assert.Equal(t, 25, analysis.Minimum, "untouched quotas keep their defaults")

	travel, err := tuning.Profile(models.DomainTravel)
	require.NoError(t, err)
	assert.Equal(t, []string{"travel", "solotravel"}, travel.Subreddits)
	assert.Equal(t, 10.0, travel.Threshold)

	assert.Contains(t, tuning.Profiles, "travel", "aliases are stored under the canonical domain")
	assert.NotContains(t, tuning.Profiles, "travel_tips")

	regional, err := tuning.Profile(models.DomainRegionalTravel)
	require.NoError(t, err)
	assert.Len(t, regional.Subreddits, 16)
}

func TestParseTuningRejectsBadInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"unknown key", "multiplier:\n  x: 1\n"},
		{"unknown domain", "profiles:\n  sports:\n    threshold: 1\n"},
		{"foreign category", "profiles:\n  travel:\n    quotas:\n      - category: memes\n        minimum: 1\n"},
		{"negative multiplier", "multipliers:\n  stocks: -1\n"},
		{"aliased domain twice", "profiles:\n  travel:\n    threshold: 5\n  travel_tips:\n    threshold: 50\n"},
		{"aliased domain with dash", "profiles:\n  regional_travel:\n    threshold: 5\n  regional-travel:\n    threshold: 50\n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseTuning(strings.NewReader(tc.input))
			assert.Error(t, err)
		})
	}
}

func TestLoadTuning(t *testing.T) {
	empty, err := LoadTuning("")
	require.NoError(t, err)
	p, err := empty.Profile(models.DomainFinance)
	require.NoError(t, err)
	assert.Equal(t, 300.0, p.Threshold)

	path := filepath.Join(t.TempDir(), "tuning.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleTuning), 0o600))
	tuning, err := LoadTuning(path)
	require.NoError(t, err)
	assert.Len(t, tuning.Profiles, 2)

	_, err = LoadTuning(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

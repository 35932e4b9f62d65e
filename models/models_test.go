package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDomain(t *testing.T) {
	tests := []struct {
		input    string
		expected Domain
	}{
		{"finance", DomainFinance},
		{" Entertainment ", DomainEntertainment},
		{"travel", DomainTravel},
		{"travel-tips", DomainTravel},
		{"regional-travel", DomainRegionalTravel},
		{"regional_travel", DomainRegionalTravel},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			d, err := ParseDomain(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, d)
		})
	}

	_, err := ParseDomain("gardening")
	assert.ErrorIs(t, err, ErrUnknownDomain)
}

func TestParseTimeFilter(t *testing.T) {
	tf, err := ParseTimeFilter("daily")
	require.NoError(t, err)
	assert.Equal(t, TimeFilterDay, tf)
	assert.Equal(t, "daily", tf.Label())

	tf, err = ParseTimeFilter("week")
	require.NoError(t, err)
	assert.Equal(t, "weekly", tf.Label())

	_, err = ParseTimeFilter("month")
	assert.Error(t, err)
}

func TestCategoryDisplayNames(t *testing.T) {
	for _, d := range AllDomains() {
		cats := d.Categories()
		require.NotEmpty(t, cats, "domain %s has no categories", d)

		for _, c := range cats {
			name := c.DisplayName()
			assert.NotEqual(t, string(c), name, "category %s has no display name", c)

			parsed, err := ParseCategory(d, name)
			require.NoError(t, err)
			assert.Equal(t, c, parsed)
			assert.True(t, d.Has(c))
		}
	}

	_, err := ParseCategory(DomainFinance, "Solo Travel")
	assert.Error(t, err)
}

func TestRunReportUnderTarget(t *testing.T) {
	report := RunReport{
		Categories: []CategoryStatus{
			{Category: CategoryAnalysis, Count: 30, Target: 25},
			{Category: CategoryMemes, Count: 3, Target: 20},
		},
	}

	under := report.UnderTarget()
	require.Len(t, under, 1)
	assert.Equal(t, CategoryMemes, under[0].Category)
}

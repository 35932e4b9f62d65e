package dataset

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brettboylen/reddit-digest/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	log, _ := test.NewNullLogger()
	return NewStore(t.TempDir(), log)
}

func sample(id string, popularity float64, created time.Time) models.ClassifiedPost {
	return models.ClassifiedPost{
		Post: models.Post{
			ID:          id,
			Subreddit:   "stocks",
			Title:       "Earnings, guidance and \"surprises\"",
			Author:      "someone",
			Score:       120,
			UpvoteRatio: 0.97,
			NumComments: 45,
			CreatedAt:   created,
			URL:         "https://example.com/" + id,
			SelfText:    "line one\nline two",
			Permalink:   "/r/stocks/comments/" + id,
		},
		PopularityScore: popularity,
		Category:        models.CategoryMarketNews,
		Confidence:      models.ConfidenceMedium,
	}
}

func TestPath(t *testing.T) {
	s := NewStore("/data", nil)
	assert.Equal(t, filepath.Join("/data", "finance_weekly_posts.csv"), s.Path(models.DomainFinance, models.TimeFilterWeek))
	assert.Equal(t, filepath.Join("/data", "regional_travel_daily_posts.csv"), s.Path(models.DomainRegionalTravel, models.TimeFilterDay))
}

func TestSaveAndLoad(t *testing.T) {
	s := newTestStore(t)
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	posts := []models.ClassifiedPost{sample("a", 345.5, created), sample("b", 10, time.Time{})}

	require.NoError(t, s.Save(models.DomainFinance, models.TimeFilterWeek, posts))

	got, err := s.Load(models.DomainFinance, models.TimeFilterWeek)
	require.NoError(t, err)
	assert.Equal(t, posts, got)
}

func TestLoadMissing(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Load(models.DomainTravel, models.TimeFilterDay)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReadIsLenient(t *testing.T) {
	input := "\ufeffpost_id,title,score,num_comments,popularity_score,extra\n" +
		"x1,Hello,12,n/a,99.5,ignored\n" +
		",no id,1,1,1,\n" +
		"x2,Short row\n"

	posts, err := Read(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, posts, 2)

	assert.Equal(t, "x1", posts[0].ID)
	assert.Equal(t, 12, posts[0].Score)
	assert.Zero(t, posts[0].NumComments)
	assert.Equal(t, 99.5, posts[0].PopularityScore)
	assert.Empty(t, posts[0].Subreddit)

	assert.Equal(t, "x2", posts[1].ID)
	assert.Zero(t, posts[1].Score)
}

func TestReadEmpty(t *testing.T) {
	posts, err := Read(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestParseTime(t *testing.T) {
	want := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, want, parseTime("1740830400"))
	assert.Equal(t, want, parseTime("1740830400.0"))
	assert.Equal(t, want, parseTime("2025-03-01T12:00:00Z"))
	assert.Equal(t, want, parseTime("2025-03-01 12:00:00"))
	assert.True(t, parseTime("yesterday").IsZero())
	assert.True(t, parseTime("").IsZero())

	tests := []struct {
		input    string
		expected time.Time
	}{
		{"2025-06-01T10:00:00", time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)},
		{"2025-06-01", time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)},
		{"2025-03-01T14:00:00+02:00", want},
		{"2025/03/01 12:00:00", want},
	}
	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			got := parseTime(tc.input)
			assert.False(t, got.IsZero())
			assert.True(t, tc.expected.Equal(got), "got %s", got)
		})
	}
}

func TestDedupeKeepLast(t *testing.T) {
	posts := []models.ClassifiedPost{
		{Post: models.Post{ID: "a"}, PopularityScore: 1},
		{Post: models.Post{ID: "b"}, PopularityScore: 2},
		{Post: models.Post{ID: "a"}, PopularityScore: 3},
	}

	out := DedupeKeepLast(posts)
	require.Len(t, out, 2)
	assert.Equal(t, "b", out[0].ID)
	assert.Equal(t, "a", out[1].ID)
	assert.Equal(t, 3.0, out[1].PopularityScore)
}

func TestMergeNewestRowWins(t *testing.T) {
	s := newTestStore(t)
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.Save(models.DomainFinance, models.TimeFilterDay, []models.ClassifiedPost{
		sample("a", 100, created),
		sample("b", 50, created),
	}))

	updated := sample("a", 10, created)
	updated.Score = 999
	merged, err := s.Merge(models.DomainFinance, models.TimeFilterDay, []models.ClassifiedPost{
		updated,
		sample("c", 75, created),
	}, 0)
	require.NoError(t, err)

	require.Len(t, merged, 3)
	assert.Equal(t, "c", merged[0].ID)
	assert.Equal(t, "b", merged[1].ID)
	assert.Equal(t, "a", merged[2].ID)
	assert.Equal(t, 999, merged[2].Score)

	onDisk, err := s.Load(models.DomainFinance, models.TimeFilterDay)
	require.NoError(t, err)
	assert.Equal(t, merged, onDisk)
}

func TestMergeDropsExpiredPosts(t *testing.T) {
	s := newTestStore(t)
	now := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	merged, err := s.Merge(models.DomainTravel, models.TimeFilterWeek, []models.ClassifiedPost{
		sample("old", 500, now.Add(-8*24*time.Hour)),
		sample("fresh", 5, now.Add(-time.Hour)),
		sample("undated", 1, time.Time{}),
	}, 7*24*time.Hour)
	require.NoError(t, err)

	var got []string
	for _, p := range merged {
		got = append(got, p.ID)
	}
	assert.Equal(t, []string{"fresh", "undated"}, got)
}

func TestMergeWithoutExistingFile(t *testing.T) {
	s := newTestStore(t)

	merged, err := s.Merge(models.DomainEntertainment, models.TimeFilterWeek, []models.ClassifiedPost{sample("a", 1, time.Time{})}, 0)
	require.NoError(t, err)
	assert.Len(t, merged, 1)

	_, err = os.Stat(s.Path(models.DomainEntertainment, models.TimeFilterWeek))
	assert.NoError(t, err)
}

func TestWriteQuotesFields(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, []models.ClassifiedPost{sample("a", 1, time.Time{})}))

	posts, err := Read(&buf)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "Earnings, guidance and \"surprises\"", posts[0].Title)
	assert.Equal(t, "line one\nline two", posts[0].SelfText)
}

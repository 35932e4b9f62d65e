package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brettboylen/reddit-digest/models"
)

type fetchCall struct {
	subreddit string
	limit     int
}

// fakeFetcher serves canned listings and can fail a subreddit a number of
// times before answering. A negative failure count fails forever.
type fakeFetcher struct {
	mu       sync.Mutex
	listings map[string][]models.Post
	failures map[string]int
	calls    []fetchCall
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		listings: make(map[string][]models.Post),
		failures: make(map[string]int),
	}
}

func (f *fakeFetcher) FetchTop(_ context.Context, subreddit string, _ models.TimeFilter, limit int) ([]models.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, fetchCall{subreddit: subreddit, limit: limit})

	if n := f.failures[subreddit]; n != 0 {
		if n > 0 {
			f.failures[subreddit] = n - 1
		}
		return nil, errors.New("reddit unavailable")
	}

	posts := f.listings[subreddit]
	if len(posts) > limit {
		posts = posts[:limit]
	}
	return append([]models.Post(nil), posts...), nil
}

func (f *fakeFetcher) callsFor(subreddit string) []fetchCall {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []fetchCall
	for _, c := range f.calls {
		if c.subreddit == subreddit {
			out = append(out, c)
		}
	}
	return out
}

func post(id, title string, score int) models.Post {
	return models.Post{ID: id, Title: title, Score: score}
}

func travelProfile() Profile {
	return Profile{
		Domain:     models.DomainTravel,
		Subreddits: []string{"travel", "solotravel", "budgettravel"},
		Threshold:  10,
		Quotas: []CategoryQuota{
			{Category: models.CategoryGeneralTravel, Minimum: 2, Threshold: 5, Subreddits: []string{"travel"}},
			{Category: models.CategorySoloTravel, Minimum: 3, Threshold: 5, Subreddits: []string{"solotravel"}},
			{Category: models.CategoryBudgetTravel, Minimum: 1, Threshold: 5, Subreddits: []string{"budgettravel"}},
		},
	}
}

func travelFetcher() *fakeFetcher {
	f := newFakeFetcher()
	f.listings["travel"] = []models.Post{
		post("t1", "Sunset over the harbour", 100),
		post("t2", "Old town at dawn", 50),
		post("t3", "Morning market colours", 40),
	}
	f.listings["solotravel"] = []models.Post{
		post("s1", "Photo one", 80),
		post("s2", "Photo two", 9),
		post("s3", "Photo three", 7),
		post("s4", "Photo four", 3),
		post("s5", "Photo five", 6),
	}
	f.listings["budgettravel"] = []models.Post{
		post("b1", "Photo", 30),
	}
	return f
}

func newTestExtractor(t *testing.T, profile Profile, fetcher Fetcher) (*Extractor, *test.Hook) {
	t.Helper()
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)

	e, err := New(profile, fetcher, log, WithRetry(DefaultMaxRetries, 0))
	require.NoError(t, err)
	return e, hook
}

func ids(posts []models.ClassifiedPost) []string {
	out := make([]string, len(posts))
	for i, p := range posts {
		out[i] = p.ID
	}
	return out
}

func statusOf(report models.RunReport, c models.Category) models.CategoryStatus {
	for _, s := range report.Categories {
		if s.Category == c {
			return s
		}
	}
	return models.CategoryStatus{}
}

func TestExtractBackfillsShortCategory(t *testing.T) {
	fetcher := travelFetcher()
	e, _ := newTestExtractor(t, travelProfile(), fetcher)

	res, err := e.Extract(context.Background(), models.TimeFilterWeek, 2)
	require.NoError(t, err)

	// s2 missed the bulk threshold but clears the solo backfill threshold;
	// s4 is below both
	assert.Equal(t, []string{"t1", "s1", "t2", "b1", "s2", "s3"}, ids(res.Posts))

	solo := statusOf(res.Report, models.CategorySoloTravel)
	assert.Equal(t, 3, solo.Count)
	assert.Equal(t, 3, solo.Target)
	assert.Equal(t, 2, solo.Added)
	assert.Empty(t, res.Report.UnderTarget())

	// backfill asks for twice the shortfall
	assert.Equal(t, []fetchCall{{"solotravel", 2}, {"solotravel", 4}}, fetcher.callsFor("solotravel"))
}

func TestExtractSkipsBackfillWhenQuotaMet(t *testing.T) {
	fetcher := travelFetcher()
	profile := travelProfile()
	profile.Quotas[1].Minimum = 1
	e, _ := newTestExtractor(t, profile, fetcher)

	res, err := e.Extract(context.Background(), models.TimeFilterWeek, 2)
	require.NoError(t, err)

	assert.Len(t, fetcher.calls, 3, "only the bulk harvest should fetch")
	assert.Equal(t, []string{"t1", "s1", "t2", "b1"}, ids(res.Posts))
	for _, s := range res.Report.Categories {
		assert.Zero(t, s.Added, s.Category)
	}
}

func TestExtractReportsUnderTarget(t *testing.T) {
	fetcher := travelFetcher()
	profile := travelProfile()
	profile.Quotas[1].Minimum = 10
	e, hook := newTestExtractor(t, profile, fetcher)

	res, err := e.Extract(context.Background(), models.TimeFilterDay, 2)
	require.NoError(t, err, "missing a quota never fails the run")

	solo := statusOf(res.Report, models.CategorySoloTravel)
	assert.Equal(t, 4, solo.Count)
	assert.Equal(t, 3, solo.Added)

	under := res.Report.UnderTarget()
	require.Len(t, under, 1)
	assert.Equal(t, models.CategorySoloTravel, under[0].Category)

	var lines []string
	for _, entry := range hook.AllEntries() {
		if strings.HasPrefix(entry.Message, "❌") || strings.HasPrefix(entry.Message, "✅") {
			lines = append(lines, entry.Message)
		}
	}
	assert.Contains(t, lines, "❌ Solo Travel: 4 posts (target 10, need 6 more)")
	assert.Len(t, lines, len(models.DomainTravel.Categories()))
}

func TestExtractRecordsFailingSubredditAsZero(t *testing.T) {
	fetcher := travelFetcher()
	fetcher.failures["broken"] = -1
	fetcher.failures["flaky"] = 1
	fetcher.listings["flaky"] = []models.Post{post("f1", "Harbour lights", 20)}

	profile := travelProfile()
	profile.Subreddits = append(profile.Subreddits, "broken", "flaky")
	e, hook := newTestExtractor(t, profile, fetcher)

	res, err := e.Extract(context.Background(), models.TimeFilterWeek, 2)
	require.NoError(t, err)

	count, ok := res.Report.SubredditCounts["broken"]
	assert.True(t, ok)
	assert.Zero(t, count)
	assert.Len(t, fetcher.callsFor("broken"), DefaultMaxRetries+1)

	assert.Equal(t, 1, res.Report.SubredditCounts["flaky"])
	assert.Len(t, fetcher.callsFor("flaky"), 2)
	assert.Contains(t, ids(res.Posts), "f1")

	var gaveUp bool
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.ErrorLevel && entry.Data["subreddit"] == "broken" {
			gaveUp = true
		}
	}
	assert.True(t, gaveUp)
}

func TestExtractBackfillErrorIsSkipped(t *testing.T) {
	fetcher := travelFetcher()
	profile := travelProfile()
	profile.Quotas[1].Subreddits = []string{"gone", "solotravel"}
	// gone is only queried during backfill
	fetcher.failures["gone"] = -1
	e, _ := newTestExtractor(t, profile, fetcher)

	res, err := e.Extract(context.Background(), models.TimeFilterWeek, 2)
	require.NoError(t, err)

	assert.Len(t, fetcher.callsFor("gone"), 1, "backfill does not retry")
	assert.Equal(t, 3, statusOf(res.Report, models.CategorySoloTravel).Count)
}

func TestExtractOverridesSubredditName(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.listings["solotravel"] = []models.Post{{ID: "x", Title: "Photo", Subreddit: "SoloTravel", Score: 50}}

	profile := Profile{Domain: models.DomainTravel, Subreddits: []string{"solotravel"}, Threshold: 10}
	e, _ := newTestExtractor(t, profile, fetcher)

	res, err := e.Extract(context.Background(), models.TimeFilterWeek, 5)
	require.NoError(t, err)
	require.Len(t, res.Posts, 1)
	assert.Equal(t, "solotravel", res.Posts[0].Subreddit)
	assert.Equal(t, models.CategorySoloTravel, res.Posts[0].Category)
	assert.Equal(t, models.ConfidenceHigh, res.Posts[0].Confidence)
}

func TestExtractDropsNotApplicablePosts(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.listings["netflix"] = []models.Post{
		post("a", "Netflix raising subscription price again", 500),
		post("b", "Stranger Things season 5 drops in November", 400),
	}

	profile := Profile{Domain: models.DomainEntertainment, Subreddits: []string{"netflix"}, Threshold: 100}
	e, _ := newTestExtractor(t, profile, fetcher)

	res, err := e.Extract(context.Background(), models.TimeFilterWeek, 10)
	require.NoError(t, err)

	assert.Equal(t, []string{"b"}, ids(res.Posts))
	assert.Equal(t, 2, res.Report.AboveThreshold)
	assert.Equal(t, 1, res.Report.NotApplicable)
	assert.NotEmpty(t, res.Posts[0].Category)
}

func TestExtractHonoursContext(t *testing.T) {
	e, _ := newTestExtractor(t, travelProfile(), travelFetcher())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Extract(ctx, models.TimeFilterWeek, 2)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExtractOutputIsSortedAndUnique(t *testing.T) {
	fetcher := newFakeFetcher()
	var listing []models.Post
	for i := 0; i < 20; i++ {
		listing = append(listing, post(fmt.Sprintf("p%d", i), "Harbour view", 10+(i*37)%90))
	}
	fetcher.listings["travel"] = listing
	// the same post crossposted to a second subreddit
	fetcher.listings["TravelNoPics"] = []models.Post{post("p3", "Harbour view", 500)}

	profile := Profile{Domain: models.DomainTravel, Subreddits: []string{"travel", "TravelNoPics"}, Threshold: 10}
	e, _ := newTestExtractor(t, profile, fetcher)

	res, err := e.Extract(context.Background(), models.TimeFilterWeek, 50)
	require.NoError(t, err)

	seen := make(map[string]bool)
	for i, p := range res.Posts {
		assert.False(t, seen[p.ID], "duplicate %s", p.ID)
		seen[p.ID] = true
		if i > 0 {
			assert.GreaterOrEqual(t, res.Posts[i-1].PopularityScore, p.PopularityScore)
		}
	}
	assert.Len(t, res.Posts, 20)
	assert.Equal(t, 21, res.Report.RawPosts)
}

func TestFinalizeKeepsFirstOccurrence(t *testing.T) {
	posts := []models.ClassifiedPost{
		{Post: models.Post{ID: "a"}, PopularityScore: 10, Category: models.CategorySoloTravel},
		{Post: models.Post{ID: "b"}, PopularityScore: 20},
		{Post: models.Post{ID: "a"}, PopularityScore: 99, Category: models.CategoryBudgetTravel},
		{Post: models.Post{ID: "c"}, PopularityScore: 20},
	}

	out := Finalize(posts)
	require.Equal(t, []string{"b", "c", "a"}, ids(out))
	assert.Equal(t, models.CategorySoloTravel, out[2].Category)
	assert.Equal(t, 10.0, out[2].PopularityScore)
}

func TestNewValidatesProfile(t *testing.T) {
	log, _ := test.NewNullLogger()

	_, err := New(Profile{Domain: "sports", Subreddits: []string{"nba"}}, newFakeFetcher(), log)
	assert.ErrorIs(t, err, models.ErrUnknownDomain)

	bad := travelProfile()
	bad.Quotas = append(bad.Quotas, CategoryQuota{Category: models.CategoryMemes, Minimum: 1})
	_, err = New(bad, newFakeFetcher(), log)
	assert.Error(t, err)

	_, err = New(travelProfile(), nil, log)
	assert.Error(t, err)
}

func TestDefaultProfilesAreValid(t *testing.T) {
	for _, d := range models.AllDomains() {
		t.Run(string(d), func(t *testing.T) {
			p, err := DefaultProfile(d)
			require.NoError(t, err)
			require.NoError(t, p.Validate())

			for _, q := range p.Quotas {
				assert.Positive(t, q.Minimum)
				assert.NotEmpty(t, p.BackfillSubreddits(q))
			}
		})
	}

	_, err := DefaultProfile("sports")
	assert.ErrorIs(t, err, models.ErrUnknownDomain)
}

func TestProfileCloneIsDeep(t *testing.T) {
	p, err := DefaultProfile(models.DomainFinance)
	require.NoError(t, err)

	c := p.Clone()
	c.Subreddits[0] = "changed"
	c.Quotas[0].Subreddits[0] = "changed"
	c.Quotas[0].Minimum = 99

	assert.Equal(t, "wallstreetbets", p.Subreddits[0])
	assert.Equal(t, "SecurityAnalysis", p.Quotas[0].Subreddits[0])
	assert.Equal(t, 25, p.Quotas[0].Minimum)
}

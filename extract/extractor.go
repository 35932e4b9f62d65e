package extract

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"github.com/brettboylen/reddit-digest/classify"
	"github.com/brettboylen/reddit-digest/models"
	"github.com/brettboylen/reddit-digest/ranking"
	"github.com/brettboylen/reddit-digest/stats"
)

const (
	DefaultBaseLimit  = 100
	DefaultMaxRetries = 2
	DefaultRetryDelay = 2 * time.Second
)

// Fetcher returns the top posts of a subreddit for a time window
type Fetcher interface {
	FetchTop(ctx context.Context, subreddit string, tf models.TimeFilter, limit int) ([]models.Post, error)
}

// Result is the output of one balanced extraction run
type Result struct {
	Posts  []models.ClassifiedPost
	Report models.RunReport
}

// Extractor harvests a domain's subreddits and tops up categories that fall
// below their quota
type Extractor struct {
	profile    Profile
	fetcher    Fetcher
	scorer     *ranking.Scorer
	classifier *classify.Classifier
	log        *logrus.Logger
	maxRetries uint64
	retryDelay time.Duration
}

// Option customizes an Extractor
type Option func(*Extractor)

// WithRetry sets how often a failed bulk fetch is retried and the fixed delay
// between attempts
func WithRetry(maxRetries int, delay time.Duration) Option {
	return func(e *Extractor) {
		if maxRetries < 0 {
			maxRetries = 0
		}
		e.maxRetries = uint64(maxRetries)
		e.retryDelay = delay
	}
}

// WithScorer replaces the default popularity scorer
func WithScorer(s *ranking.Scorer) Option {
	return func(e *Extractor) {
		if s != nil {
			e.scorer = s
		}
	}
}

// WithClassifier replaces the built-in classifier of the domain
func WithClassifier(c *classify.Classifier) Option {
	return func(e *Extractor) {
		if c != nil {
			e.classifier = c
		}
	}
}

// New creates an extractor for profile
func New(profile Profile, fetcher Fetcher, log *logrus.Logger, opts ...Option) (*Extractor, error) {
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	if fetcher == nil {
		return nil, fmt.Errorf("extractor for %s needs a fetcher", profile.Domain)
	}

	e := &Extractor{
		profile:    profile.Clone(),
		fetcher:    fetcher,
		scorer:     ranking.NewScorer(nil),
		log:        log,
		maxRetries: DefaultMaxRetries,
		retryDelay: DefaultRetryDelay,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.classifier == nil {
		c, err := classify.ForDomain(profile.Domain)
		if err != nil {
			return nil, err
		}
		e.classifier = c
	}
	if e.classifier.Domain() != profile.Domain {
		return nil, fmt.Errorf("classifier for %s cannot serve profile %s", e.classifier.Domain(), profile.Domain)
	}

	return e, nil
}

// Profile returns a copy of the extractor's profile
func (e *Extractor) Profile() Profile {
	return e.profile.Clone()
}

// Extract runs one balanced extraction. Subreddit failures never fail the
// run; the only error is context cancellation.
func (e *Extractor) Extract(ctx context.Context, tf models.TimeFilter, baseLimit int) (*Result, error) {
	if baseLimit <= 0 {
		baseLimit = DefaultBaseLimit
	}

	report := models.RunReport{
		Domain:          e.profile.Domain,
		TimeFilter:      tf,
		SubredditCounts: make(map[string]int, len(e.profile.Subreddits)),
		StartedAt:       time.Now().UTC(),
	}

	log := e.log.WithFields(logrus.Fields{
		"domain":      e.profile.Domain,
		"time_filter": tf,
	})
	log.WithField("subreddits", len(e.profile.Subreddits)).Info("Starting balanced extraction")

	raw := e.harvest(ctx, tf, baseLimit, &report)
	if err := ctx.Err(); err != nil {
		stats.RunsTotal.WithLabelValues(string(e.profile.Domain), tf.Label(), "cancelled").Inc()
		return nil, err
	}

	expected := len(e.profile.Subreddits) * baseLimit
	if float64(report.RawPosts) < float64(expected)*0.8 {
		log.WithFields(logrus.Fields{
			"raw_posts": report.RawPosts,
			"expected":  expected,
		}).Warn("Lower than expected raw post count, possible API issues")
	}

	kept := ranking.FilterByThreshold(e.scorer.ScorePosts(raw), e.profile.Threshold)
	report.AboveThreshold = len(kept)
	stats.PostsDropped.WithLabelValues(string(e.profile.Domain), "below_threshold").Add(float64(len(raw) - len(kept)))

	posts := make([]models.ClassifiedPost, 0, len(kept))
	for i := range kept {
		p := kept[i]
		if res := e.classifier.ClassifyPost(&p); !res.Applicable() {
			report.NotApplicable++
			continue
		}
		posts = append(posts, p)
	}
	stats.PostsDropped.WithLabelValues(string(e.profile.Domain), "not_applicable").Add(float64(report.NotApplicable))

	log.WithFields(logrus.Fields{
		"raw_posts":       report.RawPosts,
		"above_threshold": report.AboveThreshold,
		"not_applicable":  report.NotApplicable,
		"threshold":       e.profile.Threshold,
	}).Info("Bulk harvest complete")

	posts, added := e.backfill(ctx, tf, posts)
	if err := ctx.Err(); err != nil {
		stats.RunsTotal.WithLabelValues(string(e.profile.Domain), tf.Label(), "cancelled").Inc()
		return nil, err
	}

	posts = Finalize(posts)

	report.TotalPosts = len(posts)
	report.Categories = e.categoryStatus(posts, added)
	report.FinishedAt = time.Now().UTC()

	e.logReport(report)
	e.recordMetrics(report)

	return &Result{Posts: posts, Report: report}, nil
}

// harvest fetches every profile subreddit, retrying failures with a fixed
// delay before recording zero posts for it
func (e *Extractor) harvest(ctx context.Context, tf models.TimeFilter, limit int, report *models.RunReport) []models.Post {
	var all []models.Post

	for _, sub := range e.profile.Subreddits {
		if ctx.Err() != nil {
			break
		}

		posts, err := e.fetchWithRetry(ctx, sub, tf, limit)
		if err != nil {
			e.log.WithFields(logrus.Fields{
				"domain":    e.profile.Domain,
				"subreddit": sub,
				"attempts":  e.maxRetries + 1,
			}).WithError(err).Error("Giving up on subreddit")
			stats.RedditFetches.WithLabelValues(string(e.profile.Domain), "bulk", "error").Inc()
			report.SubredditCounts[sub] = 0
			continue
		}
		stats.RedditFetches.WithLabelValues(string(e.profile.Domain), "bulk", "ok").Inc()

		for i := range posts {
			// tables are keyed by the configured spelling
			posts[i].Subreddit = sub
		}

		e.log.WithFields(logrus.Fields{
			"subreddit": sub,
			"count":     len(posts),
		}).Debug("Harvested subreddit")

		report.SubredditCounts[sub] = len(posts)
		report.RawPosts += len(posts)
		all = append(all, posts...)
	}

	return all
}

func (e *Extractor) fetchWithRetry(ctx context.Context, sub string, tf models.TimeFilter, limit int) ([]models.Post, error) {
	var posts []models.Post
	attempt := 0

	op := func() error {
		attempt++
		var err error
		posts, err = e.fetcher.FetchTop(ctx, sub, tf, limit)
		return err
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(e.retryDelay), e.maxRetries),
		ctx,
	)

	err := backoff.RetryNotify(op, policy, func(err error, wait time.Duration) {
		stats.RedditFetchRetries.WithLabelValues(string(e.profile.Domain)).Inc()
		e.log.WithFields(logrus.Fields{
			"subreddit": sub,
			"attempt":   attempt,
			"retry_in":  wait.String(),
		}).WithError(err).Warn("Subreddit fetch failed, retrying")
	})
	if err != nil {
		return nil, err
	}
	return posts, nil
}

// backfill tops up categories below their minimum, in profile order
func (e *Extractor) backfill(ctx context.Context, tf models.TimeFilter, posts []models.ClassifiedPost) ([]models.ClassifiedPost, map[models.Category]int) {
	added := make(map[models.Category]int)
	seen := make(map[string]bool, len(posts))
	for _, p := range posts {
		seen[p.ID] = true
	}

	for _, q := range e.profile.Quotas {
		if ctx.Err() != nil {
			break
		}

		have := countCategory(posts, q.Category)
		if have >= q.Minimum {
			continue
		}
		shortfall := q.Minimum - have

		e.log.WithFields(logrus.Fields{
			"domain":    e.profile.Domain,
			"category":  q.Category.DisplayName(),
			"have":      have,
			"shortfall": shortfall,
			"threshold": q.Threshold,
		}).Info("Seeking more posts for category")

		candidates := e.collectCategory(ctx, tf, q, 2*shortfall, seen)
		candidates = ranking.Top(candidates, shortfall)

		for _, c := range candidates {
			seen[c.ID] = true
		}
		posts = append(posts, candidates...)
		added[q.Category] = len(candidates)

		if len(candidates) > 0 {
			stats.BackfillAdded.WithLabelValues(string(e.profile.Domain), string(q.Category)).Add(float64(len(candidates)))
		}
		e.log.WithFields(logrus.Fields{
			"category": q.Category.DisplayName(),
			"added":    len(candidates),
		}).Info("Backfill finished for category")
	}

	return posts, added
}

// collectCategory fetches limit posts from each category-rich subreddit and
// keeps unseen posts above the category threshold that classify into it.
// Fetch errors are logged and skipped.
func (e *Extractor) collectCategory(ctx context.Context, tf models.TimeFilter, q CategoryQuota, limit int, seen map[string]bool) []models.ClassifiedPost {
	var out []models.ClassifiedPost
	picked := make(map[string]bool)

	for _, sub := range e.profile.BackfillSubreddits(q) {
		if ctx.Err() != nil {
			break
		}

		posts, err := e.fetcher.FetchTop(ctx, sub, tf, limit)
		if err != nil {
			stats.RedditFetches.WithLabelValues(string(e.profile.Domain), "backfill", "error").Inc()
			e.log.WithFields(logrus.Fields{
				"subreddit": sub,
				"category":  q.Category.DisplayName(),
			}).WithError(err).Warn("Backfill fetch failed, skipping subreddit")
			continue
		}
		stats.RedditFetches.WithLabelValues(string(e.profile.Domain), "backfill", "ok").Inc()

		for _, p := range posts {
			if seen[p.ID] || picked[p.ID] {
				continue
			}
			p.Subreddit = sub

			cp := e.scorer.ScorePost(p)
			if cp.PopularityScore < q.Threshold {
				continue
			}
			if res := e.classifier.ClassifyPost(&cp); res.Category != q.Category {
				continue
			}

			picked[p.ID] = true
			out = append(out, cp)
		}
	}

	return out
}

// Finalize drops repeated post IDs, keeping the first occurrence, and sorts
// by popularity, highest first. Ties keep their order.
func Finalize(posts []models.ClassifiedPost) []models.ClassifiedPost {
	seen := make(map[string]bool, len(posts))
	out := make([]models.ClassifiedPost, 0, len(posts))
	for _, p := range posts {
		if seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		out = append(out, p)
	}
	ranking.SortByPopularity(out)
	return out
}

func (e *Extractor) categoryStatus(posts []models.ClassifiedPost, added map[models.Category]int) []models.CategoryStatus {
	counts := make(map[models.Category]int)
	for _, p := range posts {
		counts[p.Category]++
	}

	cats := e.profile.Domain.Categories()
	out := make([]models.CategoryStatus, 0, len(cats))
	for _, c := range cats {
		target := 0
		if q, ok := e.profile.Quota(c); ok {
			target = q.Minimum
		}
		out = append(out, models.CategoryStatus{
			Category: c,
			Count:    counts[c],
			Target:   target,
			Added:    added[c],
		})
	}
	return out
}

func (e *Extractor) logReport(report models.RunReport) {
	for _, s := range report.Categories {
		line := fmt.Sprintf("✅ %s: %d posts (target %d)", s.Category.DisplayName(), s.Count, s.Target)
		if !s.Met() {
			line = fmt.Sprintf("❌ %s: %d posts (target %d, need %d more)", s.Category.DisplayName(), s.Count, s.Target, s.Target-s.Count)
		}

		pct := 0.0
		if report.TotalPosts > 0 {
			pct = float64(s.Count) / float64(report.TotalPosts) * 100
		}
		e.log.WithFields(logrus.Fields{
			"domain":     report.Domain,
			"category":   s.Category.DisplayName(),
			"count":      s.Count,
			"target":     s.Target,
			"backfilled": s.Added,
			"percent":    fmt.Sprintf("%.1f", pct),
		}).Info(line)
	}

	e.log.WithFields(logrus.Fields{
		"domain":       report.Domain,
		"time_filter":  report.TimeFilter,
		"total_posts":  report.TotalPosts,
		"under_target": len(report.UnderTarget()),
		"duration":     report.FinishedAt.Sub(report.StartedAt).String(),
	}).Info("Balanced extraction finished")
}

func (e *Extractor) recordMetrics(report models.RunReport) {
	domain := string(report.Domain)
	window := report.TimeFilter.Label()

	for _, s := range report.Categories {
		stats.PostsKept.WithLabelValues(domain, window, string(s.Category)).Set(float64(s.Count))
	}
	stats.CategoriesUnderTarget.WithLabelValues(domain, window).Set(float64(len(report.UnderTarget())))
	stats.RunDuration.WithLabelValues(domain, window).Observe(report.FinishedAt.Sub(report.StartedAt).Seconds())
	stats.RunsTotal.WithLabelValues(domain, window, "ok").Inc()
}

func countCategory(posts []models.ClassifiedPost, c models.Category) int {
	n := 0
	for _, p := range posts {
		if p.Category == c {
			n++
		}
	}
	return n
}

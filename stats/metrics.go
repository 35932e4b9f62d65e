package stats

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RedditFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "digest_reddit_fetches_total",
		Help: "Subreddit listing fetches by phase and result",
	}, []string{"domain", "phase", "result"})

	RedditFetchRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "digest_reddit_fetch_retries_total",
		Help: "Bulk harvest retries after a failed subreddit fetch",
	}, []string{"domain"})

	PostsKept = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "digest_posts_kept",
		Help: "Posts per category in the latest run",
	}, []string{"domain", "window", "category"})

	PostsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "digest_posts_dropped_total",
		Help: "Posts dropped during extraction by reason",
	}, []string{"domain", "reason"})

	BackfillAdded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "digest_backfill_added_total",
		Help: "Posts added by quota backfill",
	}, []string{"domain", "category"})

	CategoriesUnderTarget = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "digest_categories_under_target",
		Help: "Categories below their minimum after the latest run",
	}, []string{"domain", "window"})

	RunDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "digest_run_duration_seconds",
		Help:    "Duration of one domain extraction run",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
	}, []string{"domain", "window"})

	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "digest_runs_total",
		Help: "Extraction runs by result",
	}, []string{"domain", "window", "result"})

	LLMRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "digest_llm_request_duration_seconds",
		Help:    "Duration of summary requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"model"})

	SummariesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "digest_summaries_total",
		Help: "Summary requests by result",
	}, []string{"result"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "digest_http_requests_total",
		Help: "API requests by route and status",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "digest_http_request_duration_seconds",
		Help:    "API request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
)

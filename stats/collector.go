package stats

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/brettboylen/reddit-digest/models"
)

const defaultRefreshInterval = 30 * time.Second

// PostStore is the read side of the post database
type PostStore interface {
	GetTotalPosts() (int, error)
	CategoryCounts(domain models.Domain, tf models.TimeFilter) (map[models.Category]int, error)
}

// RateLimitSource reports the last Reddit rate limit headers
type RateLimitSource interface {
	GetRateLimitStatus() (remaining, reset, used int)
}

// Collector keeps an in-memory snapshot of stored posts and recent runs
type Collector struct {
	store           PostStore
	rateLimits      RateLimitSource
	windows         []windowRef
	refreshInterval time.Duration
	stats           models.Statistics
	lastRuns        map[string]models.RunReport
	log             *logrus.Logger
	mutex           sync.RWMutex
}

type windowRef struct {
	domain models.Domain
	tf     models.TimeFilter
}

// NewCollector creates a collector for every window of the given domains.
// rateLimits may be nil.
func NewCollector(store PostStore, rateLimits RateLimitSource, domains []models.Domain, log *logrus.Logger) *Collector {
	var windows []windowRef
	for _, d := range domains {
		for _, tf := range []models.TimeFilter{models.TimeFilterWeek, models.TimeFilterDay} {
			windows = append(windows, windowRef{domain: d, tf: tf})
		}
	}

	now := time.Now()
	return &Collector{
		store:           store,
		rateLimits:      rateLimits,
		windows:         windows,
		refreshInterval: defaultRefreshInterval,
		stats: models.Statistics{
			Windows:     make(map[string]models.WindowStats),
			StartTime:   now,
			LastUpdated: now,
		},
		lastRuns: make(map[string]models.RunReport),
		log:      log,
	}
}

// Start refreshes the snapshot until ctx is cancelled
func (c *Collector) Start(ctx context.Context) error {
	c.updateStatistics()

	ticker := time.NewTicker(c.refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.updateStatistics()
			c.logStatistics()
		}
	}
}

// RecordRun stores the latest report of a window and refreshes the snapshot
func (c *Collector) RecordRun(report models.RunReport) {
	c.mutex.Lock()
	c.lastRuns[models.WindowKey(report.Domain, report.TimeFilter)] = report
	c.mutex.Unlock()

	c.updateStatistics()
}

// LastRun returns the latest report recorded for a window
func (c *Collector) LastRun(domain models.Domain, tf models.TimeFilter) (models.RunReport, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	r, ok := c.lastRuns[models.WindowKey(domain, tf)]
	return r, ok
}

func (c *Collector) updateStatistics() {
	totalPosts, err := c.store.GetTotalPosts()
	if err != nil {
		c.log.WithError(err).Error("Failed to get total posts")
		return
	}

	windows := make(map[string]models.WindowStats, len(c.windows))
	for _, w := range c.windows {
		counts, err := c.store.CategoryCounts(w.domain, w.tf)
		if err != nil {
			c.log.WithError(err).WithFields(logrus.Fields{
				"domain":      w.domain,
				"time_filter": w.tf,
			}).Error("Failed to get category counts")
			continue
		}

		windows[models.WindowKey(w.domain, w.tf)] = models.WindowStats{
			Domain:         w.domain,
			TimeFilter:     w.tf,
			CategoryCounts: counts,
		}
	}

	var rl models.RateLimitStatus
	if c.rateLimits != nil {
		rl.Remaining, rl.ResetSec, rl.Used = c.rateLimits.GetRateLimitStatus()
	}

	c.mutex.Lock()
	for key, report := range c.lastRuns {
		ws, ok := windows[key]
		if !ok {
			ws = models.WindowStats{Domain: report.Domain, TimeFilter: report.TimeFilter}
		}
		r := report
		ws.LastRun = &r
		windows[key] = ws
	}
	c.stats.TotalPosts = totalPosts
	c.stats.Windows = windows
	c.stats.RateLimit = rl
	c.stats.LastUpdated = time.Now()
	c.mutex.Unlock()
}

func (c *Collector) logStatistics() {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	withData := 0
	for _, w := range c.stats.Windows {
		if len(w.CategoryCounts) > 0 {
			withData++
		}
	}

	c.log.WithFields(logrus.Fields{
		"total_posts":       c.stats.TotalPosts,
		"windows":           len(c.windows),
		"windows_with_data": withData,
		"runs_recorded":     len(c.lastRuns),
		"rate_remaining":    c.stats.RateLimit.Remaining,
		"running_since":     time.Since(c.stats.StartTime).String(),
	}).Info("Statistics updated")
}

// GetStatistics returns a copy of the current snapshot
func (c *Collector) GetStatistics() models.Statistics {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	out := c.stats
	out.Windows = make(map[string]models.WindowStats, len(c.stats.Windows))
	for k, v := range c.stats.Windows {
		out.Windows[k] = v
	}
	return out
}

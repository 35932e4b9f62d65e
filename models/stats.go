package models

import "time"

// WindowStats describes the stored posts of one domain and window
type WindowStats struct {
	Domain         Domain           `json:"domain"`
	TimeFilter     TimeFilter       `json:"time_filter"`
	CategoryCounts map[Category]int `json:"category_counts"`
	LastRun        *RunReport       `json:"last_run,omitempty"`
}

// RateLimitStatus holds the last Reddit rate limit headers seen
type RateLimitStatus struct {
	Remaining int `json:"remaining"`
	ResetSec  int `json:"reset_seconds"`
	Used      int `json:"used"`
}

// Statistics is the snapshot served by the stats endpoint
type Statistics struct {
	TotalPosts  int                    `json:"total_posts"`
	Windows     map[string]WindowStats `json:"windows"`
	RateLimit   RateLimitStatus        `json:"rate_limit"`
	StartTime   time.Time              `json:"start_time"`
	LastUpdated time.Time              `json:"last_updated"`
}

// WindowKey identifies a domain and window, e.g. "finance/week"
func WindowKey(d Domain, tf TimeFilter) string {
	return string(d) + "/" + string(tf)
}

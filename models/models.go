package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnknownDomain is returned when a domain name does not match any configured domain
var ErrUnknownDomain = errors.New("unknown domain")

// Post represents a Reddit post as returned by the listing endpoints
type Post struct {
	ID            string    `json:"post_id"`
	Subreddit     string    `json:"subreddit"`
	Title         string    `json:"title"`
	Author        string    `json:"author"`
	Score         int       `json:"score"`
	UpvoteRatio   float64   `json:"upvote_ratio"`
	NumComments   int       `json:"num_comments"`
	CreatedAt     time.Time `json:"created_utc"`
	URL           string    `json:"url"`
	SelfText      string    `json:"selftext"`
	LinkFlairText string    `json:"link_flair_text,omitempty"`
	Domain        string    `json:"domain"`
	Permalink     string    `json:"permalink"`
}

// ClassifiedPost is a post with its popularity score and discussion category.
// Category is empty until the post has been classified.
type ClassifiedPost struct {
	Post
	PopularityScore float64    `json:"popularity_score"`
	Category        Category   `json:"category"`
	Confidence      Confidence `json:"classification_confidence"`
}

// Domain identifies a topical group of subreddits
type Domain string

const (
	DomainFinance        Domain = "finance"
	DomainEntertainment  Domain = "entertainment"
	DomainTravel         Domain = "travel"
	DomainRegionalTravel Domain = "regional_travel"
)

// AllDomains returns every supported domain
func AllDomains() []Domain {
	return []Domain{DomainFinance, DomainEntertainment, DomainTravel, DomainRegionalTravel}
}

// ParseDomain converts a user supplied name into a Domain
func ParseDomain(s string) (Domain, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	name = strings.ReplaceAll(name, "-", "_")
	for _, d := range AllDomains() {
		if string(d) == name {
			return d, nil
		}
	}
	if name == "travel_tips" {
		return DomainTravel, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDomain, s)
}

// TimeFilter is the Reddit "top" listing window
type TimeFilter string

const (
	TimeFilterDay  TimeFilter = "day"
	TimeFilterWeek TimeFilter = "week"
)

// ParseTimeFilter accepts day/daily and week/weekly
func ParseTimeFilter(s string) (TimeFilter, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "day", "daily":
		return TimeFilterDay, nil
	case "week", "weekly":
		return TimeFilterWeek, nil
	}
	return "", fmt.Errorf("unknown time filter %q (expected day or week)", s)
}

// Label returns the file name label for the window ("daily" or "weekly")
func (t TimeFilter) Label() string {
	if t == TimeFilterDay {
		return "daily"
	}
	return "weekly"
}

// Confidence records which classification layer produced a category.
// It is diagnostic only and never used for ranking.
type Confidence string

const (
	ConfidenceHigh       Confidence = "high"
	ConfidenceMedium     Confidence = "medium"
	ConfidenceLow        Confidence = "low"
	ConfidenceLowOpinion Confidence = "low_opinion"
	ConfidenceFallback   Confidence = "fallback"
	ConfidenceNoMedia    Confidence = "no_media"
)

// CategoryStatus is the post count of one category against its quota
type CategoryStatus struct {
	Category Category `json:"category"`
	Count    int      `json:"count"`
	Target   int      `json:"target"`
	Added    int      `json:"backfilled"`
}

// Met reports whether the category reached its target
func (s CategoryStatus) Met() bool {
	return s.Count >= s.Target
}

// RunReport summarizes one balanced extraction run
type RunReport struct {
	Domain          Domain           `json:"domain"`
	TimeFilter      TimeFilter       `json:"time_filter"`
	SubredditCounts map[string]int   `json:"subreddit_counts"`
	RawPosts        int              `json:"raw_posts"`
	AboveThreshold  int              `json:"above_threshold"`
	NotApplicable   int              `json:"not_applicable"`
	TotalPosts      int              `json:"total_posts"`
	Categories      []CategoryStatus `json:"categories"`
	StartedAt       time.Time        `json:"started_at"`
	FinishedAt      time.Time        `json:"finished_at"`
}

// UnderTarget returns the categories that did not reach their quota
func (r RunReport) UnderTarget() []CategoryStatus {
	var under []CategoryStatus
	for _, c := range r.Categories {
		if !c.Met() {
			under = append(under, c)
		}
	}
	return under
}

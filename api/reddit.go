package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/brettboylen/reddit-digest/models"
)

const (
	DefaultBaseURL = "https://oauth.reddit.com"
	DefaultAuthURL = "https://www.reddit.com/api/v1/access_token"

	maxPageSize     = 100 // reddit caps listings at 100 per request
	maxSelfTextLen  = 1000
	defaultTimeout  = 30 * time.Second
	defaultRequests = 100
)

// StatusError is returned when Reddit answers with a non-200 status
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("reddit request failed with status %d: %s", e.StatusCode, e.Body)
}

// Options tunes a RedditAPI. Zero values fall back to the public endpoints
// and 100 requests per minute.
type Options struct {
	BaseURL              string
	AuthURL              string
	MaxRequestsPerMinute int
	Timeout              time.Duration
}

// RedditAPI is an application-only Reddit client for subreddit listings
type RedditAPI struct {
	clientID     string
	clientSecret string
	userAgent    string
	authURL      string
	client       *resty.Client
	limiter      *rate.Limiter
	baseLimit    rate.Limit
	log          *logrus.Logger

	mutex       sync.RWMutex
	accessToken string
	tokenExpiry time.Time

	rateHeadersMutex    sync.RWMutex
	rateRemainingCached int
	rateResetCached     int
	rateUsedCached      int
}

type redditPost struct {
	Kind string `json:"kind"`
	Data struct {
		ID            string  `json:"id"`
		Title         string  `json:"title"`
		Author        string  `json:"author"`
		Subreddit     string  `json:"subreddit"`
		URL           string  `json:"url"`
		Domain        string  `json:"domain"`
		CreatedUTC    float64 `json:"created_utc"`
		Score         int     `json:"score"`
		UpvoteRatio   float64 `json:"upvote_ratio"`
		NumComments   int     `json:"num_comments"`
		SelfText      string  `json:"selftext"`
		LinkFlairText *string `json:"link_flair_text"`
		Permalink     string  `json:"permalink"`
	} `json:"data"`
}

type redditListing struct {
	Kind string `json:"kind"`
	Data struct {
		After    string       `json:"after"`
		Children []redditPost `json:"children"`
	} `json:"data"`
}

type authResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

// NewRedditAPI creates a client. Without credentials requests are sent
// unauthenticated, which only works against the public www endpoint.
func NewRedditAPI(clientID, clientSecret, userAgent string, opts Options, log *logrus.Logger) *RedditAPI {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.AuthURL == "" {
		opts.AuthURL = DefaultAuthURL
	}
	if opts.MaxRequestsPerMinute <= 0 {
		opts.MaxRequestsPerMinute = defaultRequests
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}

	// 95% of the allowance, no burst
	perSecond := float64(opts.MaxRequestsPerMinute) / 60.0 * 0.95

	return &RedditAPI{
		clientID:        clientID,
		clientSecret:    clientSecret,
		userAgent:       userAgent,
		authURL:         opts.AuthURL,
		client:          resty.New().SetBaseURL(opts.BaseURL).SetTimeout(opts.Timeout),
		limiter:         rate.NewLimiter(rate.Limit(perSecond), 1),
		baseLimit:       rate.Limit(perSecond),
		log:             log,
		rateResetCached: 600,
	}
}

// GetRateLimitStatus returns the last seen remaining, reset and used header values
func (r *RedditAPI) GetRateLimitStatus() (int, int, int) {
	r.rateHeadersMutex.RLock()
	defer r.rateHeadersMutex.RUnlock()
	return r.rateRemainingCached, r.rateResetCached, r.rateUsedCached
}

// FetchTop returns up to limit top posts of a subreddit for the window,
// following the after cursor across pages.
func (r *RedditAPI) FetchTop(ctx context.Context, subreddit string, tf models.TimeFilter, limit int) ([]models.Post, error) {
	if limit <= 0 {
		return nil, nil
	}

	posts := make([]models.Post, 0, limit)
	after := ""

	for len(posts) < limit {
		pageSize := limit - len(posts)
		if pageSize > maxPageSize {
			pageSize = maxPageSize
		}

		page, next, err := r.fetchPage(ctx, subreddit, tf, pageSize, after)
		if err != nil {
			return nil, err
		}
		posts = append(posts, page...)

		if next == "" || len(page) == 0 {
			break
		}
		after = next
	}

	if len(posts) > limit {
		posts = posts[:limit]
	}

	r.log.WithFields(logrus.Fields{
		"subreddit":   subreddit,
		"time_filter": tf,
		"limit":       limit,
		"post_count":  len(posts),
	}).Debug("Fetched top posts")

	return posts, nil
}

func (r *RedditAPI) fetchPage(ctx context.Context, subreddit string, tf models.TimeFilter, limit int, after string) ([]models.Post, string, error) {
	if err := r.authenticate(ctx); err != nil {
		return nil, "", err
	}
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, "", fmt.Errorf("rate limiter: %w", err)
	}

	params := map[string]string{
		"t":        string(tf),
		"limit":    strconv.Itoa(limit),
		"raw_json": "1",
	}
	if after != "" {
		params["after"] = after
	}

	req := r.client.R().
		SetContext(ctx).
		SetHeader("User-Agent", r.userAgent).
		SetQueryParams(params)

	if token := r.token(); token != "" {
		req.SetHeader("Authorization", "Bearer "+token)
	}

	resp, err := req.Get(fmt.Sprintf("/r/%s/top.json", subreddit))
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch r/%s: %w", subreddit, err)
	}

	r.updateRateLimits(resp.Header())

	if resp.StatusCode() != http.StatusOK {
		if resp.StatusCode() == http.StatusUnauthorized {
			r.clearToken()
		}
		r.log.WithFields(logrus.Fields{
			"subreddit":     subreddit,
			"status_code":   resp.StatusCode(),
			"response_body": truncate(resp.String(), 200),
		}).Error("Reddit API error response")
		return nil, "", &StatusError{StatusCode: resp.StatusCode(), Body: truncate(resp.String(), 200)}
	}

	var listing redditListing
	if err := json.Unmarshal(resp.Body(), &listing); err != nil {
		return nil, "", fmt.Errorf("failed to decode r/%s listing: %w", subreddit, err)
	}

	posts := make([]models.Post, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		posts = append(posts, toPost(child))
	}

	return posts, listing.Data.After, nil
}

func toPost(p redditPost) models.Post {
	d := p.Data
	flair := ""
	if d.LinkFlairText != nil {
		flair = *d.LinkFlairText
	}
	author := d.Author
	if author == "" {
		author = "[deleted]"
	}

	return models.Post{
		ID:            d.ID,
		Subreddit:     d.Subreddit,
		Title:         d.Title,
		Author:        author,
		Score:         d.Score,
		UpvoteRatio:   d.UpvoteRatio,
		NumComments:   d.NumComments,
		CreatedAt:     time.Unix(int64(d.CreatedUTC), 0).UTC(),
		URL:           d.URL,
		SelfText:      truncate(d.SelfText, maxSelfTextLen),
		LinkFlairText: flair,
		Domain:        d.Domain,
		Permalink:     d.Permalink,
	}
}

// authenticate fetches an application-only token when the cached one expired
func (r *RedditAPI) authenticate(ctx context.Context) error {
	if r.clientID == "" {
		return nil
	}

	r.mutex.RLock()
	valid := r.accessToken != "" && time.Now().Before(r.tokenExpiry)
	r.mutex.RUnlock()
	if valid {
		return nil
	}

	r.log.Info("Authenticating with Reddit API")

	if err := r.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	resp, err := r.client.R().
		SetContext(ctx).
		SetHeader("User-Agent", r.userAgent).
		SetBasicAuth(r.clientID, r.clientSecret).
		SetFormData(map[string]string{"grant_type": "client_credentials"}).
		Post(r.authURL)
	if err != nil {
		return fmt.Errorf("failed to execute auth request: %w", err)
	}

	r.updateRateLimits(resp.Header())

	if resp.StatusCode() != http.StatusOK {
		return &StatusError{StatusCode: resp.StatusCode(), Body: truncate(resp.String(), 200)}
	}

	var auth authResponse
	if err := json.Unmarshal(resp.Body(), &auth); err != nil {
		return fmt.Errorf("failed to decode auth response: %w", err)
	}
	if auth.AccessToken == "" {
		return fmt.Errorf("auth response did not contain an access token")
	}

	r.mutex.Lock()
	r.accessToken = auth.AccessToken
	// refresh a minute early
	r.tokenExpiry = time.Now().Add(time.Duration(auth.ExpiresIn)*time.Second - time.Minute)
	r.mutex.Unlock()

	r.log.Info("Successfully authenticated with Reddit API")
	return nil
}

func (r *RedditAPI) token() string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return r.accessToken
}

func (r *RedditAPI) clearToken() {
	r.mutex.Lock()
	r.accessToken = ""
	r.tokenExpiry = time.Time{}
	r.mutex.Unlock()
}

// updateRateLimits caches Reddit's rate headers and paces the limiter so the
// remaining allowance lasts until the window resets, never above the
// configured rate.
func (r *RedditAPI) updateRateLimits(header http.Header) {
	used := getHeaderAsInt(header, "X-Ratelimit-Used")
	remaining := getHeaderAsInt(header, "X-Ratelimit-Remaining")
	reset := getHeaderAsInt(header, "X-Ratelimit-Reset")

	if reset == 0 && used == 0 {
		return
	}

	r.rateHeadersMutex.Lock()
	r.rateRemainingCached = remaining
	r.rateResetCached = reset
	r.rateUsedCached = used
	r.rateHeadersMutex.Unlock()

	// remaining is sometimes reported as 0 for the whole window; ignore it then
	if reset > 0 && remaining > 0 {
		budget := rate.Limit(float64(remaining) / float64(reset) * 0.95)
		if budget > r.baseLimit {
			budget = r.baseLimit
		}
		r.limiter.SetLimit(budget)
	}

	r.log.WithFields(logrus.Fields{
		"used":      used,
		"remaining": remaining,
		"reset_sec": reset,
		"limit":     float64(r.limiter.Limit()),
	}).Debug("Updated rate limiter based on Reddit headers")
}

// getHeaderAsInt parses integer or decimal header values ("598.0"), 0 when absent
func getHeaderAsInt(header http.Header, name string) int {
	value := header.Get(name)
	if value == "" {
		return 0
	}

	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}

	return int(f)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	s = s[:n]
	for len(s) > 0 && !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}

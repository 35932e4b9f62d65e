package summarize

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/brettboylen/reddit-digest/models"
	"github.com/brettboylen/reddit-digest/stats"
)

const (
	DefaultBaseURL = "https://api.groq.com/openai/v1"
	DefaultModel   = "llama-3.1-8b-instant"

	temperature       = 0.2
	maxResponseTokens = 450
	defaultRPM        = 30
)

// ErrNotConfigured is returned when no API key was supplied
var ErrNotConfigured = errors.New("summarizer is not configured")

// ChatClient is the part of the OpenAI client used for summaries
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Options configures the Groq endpoint
type Options struct {
	APIKey            string
	BaseURL           string
	Model             string
	RequestsPerMinute int
}

// Summary is the generated overview of one category
type Summary struct {
	Domain      models.Domain     `json:"domain"`
	TimeFilter  models.TimeFilter `json:"time_filter"`
	Category    models.Category   `json:"category"`
	TotalPosts  int               `json:"total_posts"`
	Analyzed    int               `json:"posts_analyzed"`
	Text        string            `json:"summary"`
	GeneratedAt time.Time         `json:"generated_at"`
}

// Summarizer condenses a category's top posts through an OpenAI compatible
// chat endpoint
type Summarizer struct {
	client  ChatClient
	model   string
	limiter *rate.Limiter
	log     *logrus.Logger
}

// NewGroq creates a summarizer for the Groq endpoint
func NewGroq(opts Options, log *logrus.Logger) (*Summarizer, error) {
	if opts.APIKey == "" {
		return nil, ErrNotConfigured
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}

	cfg := openai.DefaultConfig(opts.APIKey)
	cfg.BaseURL = opts.BaseURL

	return New(openai.NewClientWithConfig(cfg), opts.Model, opts.RequestsPerMinute, log), nil
}

// New wraps any chat client
func New(client ChatClient, model string, requestsPerMinute int, log *logrus.Logger) *Summarizer {
	if model == "" {
		model = DefaultModel
	}
	if requestsPerMinute <= 0 {
		requestsPerMinute = defaultRPM
	}

	return &Summarizer{
		client:  client,
		model:   model,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), 1),
		log:     log,
	}
}

// Model returns the model name sent with every request
func (s *Summarizer) Model() string {
	return s.model
}

// Summarize generates a summary of category from posts. It returns
// ErrNoPosts when the category is empty.
func (s *Summarizer) Summarize(ctx context.Context, domain models.Domain, tf models.TimeFilter, category models.Category, posts []models.ClassifiedPost) (*Summary, error) {
	prepared, err := PreparePosts(posts, category)
	if err != nil {
		stats.SummariesTotal.WithLabelValues("empty").Inc()
		return nil, err
	}

	prompt, err := BuildPrompt(domain, tf, category, prepared)
	if err != nil {
		return nil, err
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	log := s.log.WithFields(logrus.Fields{
		"domain":   domain,
		"category": category,
		"analyzed": prepared.Analyzed,
		"total":    prepared.Total,
		"tokens":   prepared.Tokens,
	})
	log.Info("Requesting category summary")

	start := time.Now()
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		Temperature: temperature,
		MaxTokens:   maxResponseTokens,
	})
	stats.LLMRequestDuration.WithLabelValues(s.model).Observe(time.Since(start).Seconds())
	if err != nil {
		stats.SummariesTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		stats.SummariesTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("chat completion returned no choices")
	}

	text := TrimIncomplete(resp.Choices[0].Message.Content)
	stats.SummariesTotal.WithLabelValues("ok").Inc()
	log.WithField("chars", len(text)).Info("Summary generated")

	return &Summary{
		Domain:      domain,
		TimeFilter:  tf,
		Category:    category,
		TotalPosts:  prepared.Total,
		Analyzed:    prepared.Analyzed,
		Text:        text,
		GeneratedAt: time.Now().UTC(),
	}, nil
}

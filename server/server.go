package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/brettboylen/reddit-digest/extract"
	"github.com/brettboylen/reddit-digest/models"
	"github.com/brettboylen/reddit-digest/stats"
	"github.com/brettboylen/reddit-digest/summarize"
)

const shutdownTimeout = 5 * time.Second

// PostReader reads stored extraction output
type PostReader interface {
	ListPosts(domain models.Domain, tf models.TimeFilter, category models.Category, limit int) ([]models.ClassifiedPost, error)
	CategoryCounts(domain models.Domain, tf models.TimeFilter) (map[models.Category]int, error)
	TopPostsByCategory(domain models.Domain, tf models.TimeFilter, n int) (map[models.Category][]models.ClassifiedPost, error)
	LastRun(domain models.Domain, tf models.TimeFilter) (*models.RunReport, error)
}

// DatasetLoader reads the CSV dataset of a window
type DatasetLoader interface {
	Load(domain models.Domain, tf models.TimeFilter) ([]models.ClassifiedPost, error)
}

// Runner starts extraction runs
type Runner interface {
	RunDomain(ctx context.Context, domain models.Domain, tf models.TimeFilter) (*extract.Result, error)
	Running(domain models.Domain, tf models.TimeFilter) bool
}

// Summarizer produces category summaries
type Summarizer interface {
	Summarize(ctx context.Context, domain models.Domain, tf models.TimeFilter, category models.Category, posts []models.ClassifiedPost) (*summarize.Summary, error)
}

// StatsSource provides the statistics snapshot
type StatsSource interface {
	GetStatistics() models.Statistics
}

// Config holds the HTTP server settings
type Config struct {
	Port int

	// RequestsPerSecond is the per-client rate limit; zero disables it
	RequestsPerSecond float64

	Profiles map[models.Domain]extract.Profile

	// Datasets backs summaries when the database has no posts; may be nil
	Datasets DatasetLoader
}

// Server exposes extracted posts, summaries and statistics over HTTP
type Server struct {
	echo       *echo.Echo
	cfg        Config
	posts      PostReader
	runner     Runner
	summarizer Summarizer
	stats      StatsSource
	log        *logrus.Logger

	// background extraction runs outlive their request
	runCtx    context.Context
	cancelRun context.CancelFunc
	runs      sync.WaitGroup
}

// New creates the server and registers its routes. runner, summarizer and
// stats may be nil; their endpoints then answer 503.
func New(cfg Config, posts PostReader, runner Runner, summarizer Summarizer, statsSource StatsSource, log *logrus.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	runCtx, cancel := context.WithCancel(context.Background())
	s := &Server{
		echo:       e,
		cfg:        cfg,
		posts:      posts,
		runner:     runner,
		summarizer: summarizer,
		stats:      statsSource,
		log:        log,
		runCtx:     runCtx,
		cancelRun:  cancel,
	}

	e.Use(middleware.Recover())
	e.Use(s.requestLogger())
	e.Use(requestMetrics)
	if cfg.RequestsPerSecond > 0 {
		e.Use(rateLimiter(cfg.RequestsPerSecond))
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	s.echo.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := s.echo.Group("/api")
	api.GET("/stats", s.getStats)
	api.GET("/posts/:domain/:window", s.listPosts)
	api.GET("/categories/:domain/:window", s.categoryStatus)
	api.GET("/runs/:domain/:window", s.lastRun)
	api.POST("/extract/:domain/:window", s.startExtraction)
	api.POST("/summary/:domain/:window", s.summarizeCategory)
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves until ctx is cancelled, then shuts down gracefully and waits
// for background extraction runs to stop
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", s.cfg.Port)
		s.log.WithField("port", s.cfg.Port).Info("Starting API server")
		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		s.cancelRun()
		if ok {
			return fmt.Errorf("API server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info("Shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := s.echo.Shutdown(shutdownCtx)
	s.cancelRun()
	s.runs.Wait()
	return err
}

func (s *Server) requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			entry := s.log.WithFields(logrus.Fields{
				"method":  v.Method,
				"uri":     v.URI,
				"status":  v.Status,
				"latency": v.Latency.String(),
			})
			if v.Error != nil {
				entry.WithError(v.Error).Warn("Request failed")
				return nil
			}
			entry.Debug("Request handled")
			return nil
		},
	})
}

func requestMetrics(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}

		route := c.Path()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request().Method
		stats.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(c.Response().Status)).Inc()
		stats.HTTPRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
		return nil
	}
}

func rateLimiter(requestsPerSecond float64) echo.MiddlewareFunc {
	tooMany := func(c echo.Context, _ string, _ error) error {
		return c.JSON(http.StatusTooManyRequests, map[string]string{
			"error": "Rate limit exceeded, please try again later",
		})
	}

	burst := int(requestsPerSecond)
	if burst < 1 {
		burst = 1
	}

	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/healthz" || c.Path() == "/metrics"
		},
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(requestsPerSecond),
				Burst:     burst,
				ExpiresIn: 3 * time.Minute,
			},
		),
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return tooMany(c, "", err)
		},
		DenyHandler: tooMany,
	})
}

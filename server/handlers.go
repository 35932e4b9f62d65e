package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/brettboylen/reddit-digest/dataset"
	"github.com/brettboylen/reddit-digest/db"
	"github.com/brettboylen/reddit-digest/models"
	"github.com/brettboylen/reddit-digest/pipeline"
	"github.com/brettboylen/reddit-digest/summarize"
)

const (
	defaultPostLimit = 100
	maxTopPosts      = 25
)

type categoryView struct {
	Category models.Category `json:"category"`
	Name     string          `json:"name"`
	Count    int             `json:"count"`
	Target   int             `json:"target"`
	Met      bool            `json:"met"`

	Top []models.ClassifiedPost `json:"top,omitempty"`
}

type summaryRequest struct {
	Category string `json:"category"`
}

func errorJSON(c echo.Context, status int, msg string) error {
	return c.JSON(status, map[string]string{"error": msg})
}

// window parses the :domain and :window path parameters
func window(c echo.Context) (models.Domain, models.TimeFilter, error) {
	domain, err := models.ParseDomain(c.Param("domain"))
	if err != nil {
		return "", "", err
	}
	tf, err := models.ParseTimeFilter(c.Param("window"))
	if err != nil {
		return "", "", err
	}
	return domain, tf, nil
}

func (s *Server) getStats(c echo.Context) error {
	if s.stats == nil {
		return errorJSON(c, http.StatusServiceUnavailable, "statistics are not enabled")
	}
	return c.JSON(http.StatusOK, s.stats.GetStatistics())
}

func (s *Server) listPosts(c echo.Context) error {
	domain, tf, err := window(c)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}

	var category models.Category
	if q := c.QueryParam("category"); q != "" {
		category, err = models.ParseCategory(domain, q)
		if err != nil {
			return errorJSON(c, http.StatusBadRequest, err.Error())
		}
	}

	limit := defaultPostLimit
	if q := c.QueryParam("limit"); q != "" {
		limit, err = strconv.Atoi(q)
		if err != nil || limit <= 0 {
			return errorJSON(c, http.StatusBadRequest, "limit must be a positive integer")
		}
	}

	posts, err := s.posts.ListPosts(domain, tf, category, limit)
	if err != nil {
		s.log.WithError(err).Error("Failed to list posts")
		return errorJSON(c, http.StatusInternalServerError, "failed to load posts")
	}
	if posts == nil {
		posts = []models.ClassifiedPost{}
	}
	return c.JSON(http.StatusOK, posts)
}

func (s *Server) categoryStatus(c echo.Context) error {
	domain, tf, err := window(c)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}

	top := 0
	if q := c.QueryParam("top"); q != "" {
		top, err = strconv.Atoi(q)
		if err != nil || top < 0 || top > maxTopPosts {
			return errorJSON(c, http.StatusBadRequest, "top must be between 0 and "+strconv.Itoa(maxTopPosts))
		}
	}

	counts, err := s.posts.CategoryCounts(domain, tf)
	if err != nil {
		s.log.WithError(err).Error("Failed to count categories")
		return errorJSON(c, http.StatusInternalServerError, "failed to load category counts")
	}

	var topPosts map[models.Category][]models.ClassifiedPost
	if top > 0 {
		topPosts, err = s.posts.TopPostsByCategory(domain, tf, top)
		if err != nil {
			s.log.WithError(err).Error("Failed to load top posts")
			return errorJSON(c, http.StatusInternalServerError, "failed to load top posts")
		}
	}

	profile := s.cfg.Profiles[domain]
	views := make([]categoryView, 0, len(domain.Categories()))
	for _, cat := range domain.Categories() {
		target := 0
		if q, ok := profile.Quota(cat); ok {
			target = q.Minimum
		}
		views = append(views, categoryView{
			Category: cat,
			Name:     cat.DisplayName(),
			Count:    counts[cat],
			Target:   target,
			Met:      counts[cat] >= target,
			Top:      topPosts[cat],
		})
	}
	return c.JSON(http.StatusOK, views)
}

func (s *Server) lastRun(c echo.Context) error {
	domain, tf, err := window(c)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}

	report, err := s.posts.LastRun(domain, tf)
	if errors.Is(err, db.ErrNoRuns) {
		return errorJSON(c, http.StatusNotFound, "no runs recorded for "+models.WindowKey(domain, tf))
	}
	if err != nil {
		s.log.WithError(err).Error("Failed to load last run")
		return errorJSON(c, http.StatusInternalServerError, "failed to load run report")
	}
	return c.JSON(http.StatusOK, report)
}

// startExtraction runs one domain in the background and answers 202
func (s *Server) startExtraction(c echo.Context) error {
	if s.runner == nil {
		return errorJSON(c, http.StatusServiceUnavailable, "extraction is not enabled")
	}
	domain, tf, err := window(c)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}
	if _, ok := s.cfg.Profiles[domain]; !ok {
		return errorJSON(c, http.StatusNotFound, "domain "+string(domain)+" is not configured")
	}
	if s.runner.Running(domain, tf) {
		return errorJSON(c, http.StatusConflict, "extraction already running for "+models.WindowKey(domain, tf))
	}

	s.runs.Add(1)
	go func() {
		defer s.runs.Done()
		fields := logrus.Fields{"domain": domain, "time_filter": tf}
		res, err := s.runner.RunDomain(s.runCtx, domain, tf)
		if errors.Is(err, pipeline.ErrAlreadyRunning) {
			s.log.WithFields(fields).Warn("Extraction already running")
			return
		}
		if err != nil {
			s.log.WithError(err).WithFields(fields).Error("Requested extraction failed")
			return
		}
		s.log.WithFields(fields).WithField("posts", len(res.Posts)).Info("Requested extraction finished")
	}()

	return c.JSON(http.StatusAccepted, map[string]string{
		"status": "started",
		"window": models.WindowKey(domain, tf),
	})
}

func (s *Server) summarizeCategory(c echo.Context) error {
	if s.summarizer == nil {
		return errorJSON(c, http.StatusServiceUnavailable, "summaries are not enabled")
	}
	domain, tf, err := window(c)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}

	var req summaryRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request body")
	}
	category, err := models.ParseCategory(domain, req.Category)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}

	posts, err := s.summaryPosts(domain, tf, category)
	if err != nil {
		s.log.WithError(err).Error("Failed to list posts")
		return errorJSON(c, http.StatusInternalServerError, "failed to load posts")
	}

	summary, err := s.summarizer.Summarize(c.Request().Context(), domain, tf, category, posts)
	if errors.Is(err, summarize.ErrNoPosts) {
		return errorJSON(c, http.StatusNotFound, "no posts stored for "+category.DisplayName())
	}
	if err != nil {
		s.log.WithError(err).WithField("category", category).Error("Summary failed")
		return errorJSON(c, http.StatusBadGateway, "summary request failed")
	}
	return c.JSON(http.StatusOK, summary)
}

// summaryPosts reads the category from the database and falls back to the
// CSV dataset when the database has nothing stored
func (s *Server) summaryPosts(domain models.Domain, tf models.TimeFilter, category models.Category) ([]models.ClassifiedPost, error) {
	posts, err := s.posts.ListPosts(domain, tf, category, summarize.MaxPosts)
	if err != nil || len(posts) > 0 || s.cfg.Datasets == nil {
		return posts, err
	}

	posts, err = s.cfg.Datasets.Load(domain, tf)
	if errors.Is(err, dataset.ErrNotFound) {
		return nil, nil
	}
	return posts, err
}

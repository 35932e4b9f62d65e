package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/sirupsen/logrus"

	"github.com/brettboylen/reddit-digest/models"
	"github.com/brettboylen/reddit-digest/ranking"
)

// ErrNotFound is returned when no dataset exists yet for a domain and window
var ErrNotFound = errors.New("dataset not found")

// Columns is the CSV header written by Save
var Columns = []string{
	"post_id", "subreddit", "title", "author", "score", "upvote_ratio",
	"num_comments", "created_utc", "url", "selftext", "link_flair_text",
	"domain", "permalink", "popularity_score", "category", "classification_confidence",
}

// Store keeps one CSV file per domain and window in a directory
type Store struct {
	dir string
	log *logrus.Logger
	now func() time.Time
}

func NewStore(dir string, log *logrus.Logger) *Store {
	return &Store{dir: dir, log: log, now: time.Now}
}

// Path returns the file holding a domain's posts for the window,
// e.g. finance_weekly_posts.csv
func (s *Store) Path(domain models.Domain, tf models.TimeFilter) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s_%s_posts.csv", domain, tf.Label()))
}

// Save replaces the dataset with posts
func (s *Store) Save(domain models.Domain, tf models.TimeFilter, posts []models.ClassifiedPost) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	path := s.Path(domain, tf)
	tmp, err := os.CreateTemp(s.dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := Write(tmp, posts); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}

	s.log.WithFields(logrus.Fields{
		"path":  path,
		"posts": len(posts),
	}).Info("Saved dataset")
	return nil
}

// Load reads a dataset. It returns ErrNotFound when the file does not exist.
func (s *Store) Load(domain models.Domain, tf models.TimeFilter) ([]models.ClassifiedPost, error) {
	path := s.Path(domain, tf)
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	posts, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return posts, nil
}

// Merge appends posts to the stored dataset. A repeated post_id keeps the
// newest row. With a positive retention, posts created before now-retention
// are dropped. The merged set is saved and returned sorted by popularity.
func (s *Store) Merge(domain models.Domain, tf models.TimeFilter, posts []models.ClassifiedPost, retention time.Duration) ([]models.ClassifiedPost, error) {
	existing, err := s.Load(domain, tf)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	merged := DedupeKeepLast(append(existing, posts...))
	before := len(merged)

	if retention > 0 {
		cutoff := s.now().Add(-retention)
		kept := merged[:0]
		for _, p := range merged {
			if p.CreatedAt.IsZero() || !p.CreatedAt.Before(cutoff) {
				kept = append(kept, p)
			}
		}
		merged = kept
	}
	ranking.SortByPopularity(merged)

	s.log.WithFields(logrus.Fields{
		"domain":   domain,
		"existing": len(existing),
		"new":      len(posts),
		"merged":   len(merged),
		"expired":  before - len(merged),
	}).Info("Merged dataset")

	if err := s.Save(domain, tf, merged); err != nil {
		return nil, err
	}
	return merged, nil
}

// DedupeKeepLast drops all but the last row of every post_id. Surviving rows
// keep the position of their last occurrence.
func DedupeKeepLast(posts []models.ClassifiedPost) []models.ClassifiedPost {
	last := make(map[string]int, len(posts))
	for i, p := range posts {
		last[p.ID] = i
	}
	out := make([]models.ClassifiedPost, 0, len(last))
	for i, p := range posts {
		if last[p.ID] == i {
			out = append(out, p)
		}
	}
	return out
}

// Write encodes posts as CSV with a header row
func Write(w io.Writer, posts []models.ClassifiedPost) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, p := range posts {
		if err := cw.Write(record(p)); err != nil {
			return fmt.Errorf("failed to write post %s: %w", p.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Read decodes CSV written by Write. Columns are matched by header name, so
// files with missing or extra columns still load; missing or malformed
// numbers read as zero. Rows without a post_id are skipped.
func Read(r io.Reader) ([]models.ClassifiedPost, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}

	var posts []models.ClassifiedPost
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}

		get := func(col string) string {
			if i, ok := index[col]; ok && i < len(row) {
				return row[i]
			}
			return ""
		}

		p := models.ClassifiedPost{
			Post: models.Post{
				ID:            get("post_id"),
				Subreddit:     get("subreddit"),
				Title:         get("title"),
				Author:        get("author"),
				Score:         int(parseFloat(get("score"))),
				UpvoteRatio:   parseFloat(get("upvote_ratio")),
				NumComments:   int(parseFloat(get("num_comments"))),
				CreatedAt:     parseTime(get("created_utc")),
				URL:           get("url"),
				SelfText:      get("selftext"),
				LinkFlairText: get("link_flair_text"),
				Domain:        get("domain"),
				Permalink:     get("permalink"),
			},
			PopularityScore: parseFloat(get("popularity_score")),
			Category:        models.Category(get("category")),
			Confidence:      models.Confidence(get("classification_confidence")),
		}
		if p.ID == "" {
			continue
		}
		posts = append(posts, p)
	}

	return posts, nil
}

func record(p models.ClassifiedPost) []string {
	created := ""
	if !p.CreatedAt.IsZero() {
		created = strconv.FormatInt(p.CreatedAt.Unix(), 10)
	}
	return []string{
		p.ID,
		p.Subreddit,
		p.Title,
		p.Author,
		strconv.Itoa(p.Score),
		strconv.FormatFloat(p.UpvoteRatio, 'f', -1, 64),
		strconv.Itoa(p.NumComments),
		created,
		p.URL,
		p.SelfText,
		p.LinkFlairText,
		p.Domain,
		p.Permalink,
		strconv.FormatFloat(p.PopularityScore, 'f', -1, 64),
		string(p.Category),
		string(p.Confidence),
	}
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}

// parseTime accepts unix seconds or any date layout dateparse knows.
// Zone-less timestamps are read as UTC.
func parseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Unix(int64(f), 0).UTC()
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

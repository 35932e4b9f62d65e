package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/brettboylen/reddit-digest/models"
)

// ErrNoRuns is returned by LastRun when nothing was recorded for the window
var ErrNoRuns = errors.New("no runs recorded")

// Database stores classified posts and extraction run reports
type Database struct {
	db    *sql.DB
	mutex sync.RWMutex
	log   *logrus.Logger
}

// NewDatabase creates a new SQLite database connection
func NewDatabase(dbPath string, log *logrus.Logger) (*Database, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	database := &Database{
		db:  db,
		log: log,
	}

	if err := database.initTables(); err != nil {
		return nil, fmt.Errorf("failed to initialize tables: %w", err)
	}

	return database, nil
}

// Close closes the database connection
func (d *Database) Close() error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.db.Close()
}

func (d *Database) initTables() error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	query := `
	CREATE TABLE IF NOT EXISTS classified_posts (
		post_id TEXT NOT NULL,
		domain TEXT NOT NULL,
		time_filter TEXT NOT NULL,
		subreddit TEXT NOT NULL,
		title TEXT NOT NULL,
		author TEXT NOT NULL,
		url TEXT,
		created_utc INTEGER NOT NULL,
		score INTEGER NOT NULL,
		upvote_ratio REAL NOT NULL,
		num_comments INTEGER NOT NULL,
		selftext TEXT,
		link_flair_text TEXT,
		link_domain TEXT,
		permalink TEXT,
		popularity_score REAL NOT NULL,
		category TEXT NOT NULL,
		confidence TEXT NOT NULL,
		saved_at TIMESTAMP NOT NULL,
		PRIMARY KEY (post_id, domain, time_filter)
	);
	CREATE INDEX IF NOT EXISTS idx_classified_posts_popularity
		ON classified_posts(domain, time_filter, popularity_score DESC);
	CREATE INDEX IF NOT EXISTS idx_classified_posts_category
		ON classified_posts(domain, time_filter, category);

	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		domain TEXT NOT NULL,
		time_filter TEXT NOT NULL,
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP NOT NULL,
		total_posts INTEGER NOT NULL,
		under_target INTEGER NOT NULL,
		report TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_window ON runs(domain, time_filter, id DESC);
	`

	_, err := d.db.Exec(query)
	return err
}

// SavePosts replaces the stored posts of a domain and window with posts
func (d *Database) SavePosts(domain models.Domain, tf models.TimeFilter, posts []models.ClassifiedPost) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM classified_posts WHERE domain = ? AND time_filter = ?`, domain, tf); err != nil {
		return fmt.Errorf("failed to clear %s/%s posts: %w", domain, tf, err)
	}

	stmt, err := tx.Prepare(`
	INSERT OR REPLACE INTO classified_posts (
		post_id, domain, time_filter, subreddit, title, author, url,
		created_utc, score, upvote_ratio, num_comments, selftext,
		link_flair_text, link_domain, permalink, popularity_score,
		category, confidence, saved_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	savedAt := time.Now().UTC()
	for _, p := range posts {
		var created int64
		if !p.CreatedAt.IsZero() {
			created = p.CreatedAt.Unix()
		}
		_, err := stmt.Exec(
			p.ID, domain, tf, p.Subreddit, p.Title, p.Author, p.URL,
			created, p.Score, p.UpvoteRatio, p.NumComments, p.SelfText,
			p.LinkFlairText, p.Domain, p.Permalink, p.PopularityScore,
			p.Category, p.Confidence, savedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to save post %s: %w", p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit posts: %w", err)
	}

	d.log.WithFields(logrus.Fields{
		"domain":      domain,
		"time_filter": tf,
		"posts":       len(posts),
	}).Debug("Saved classified posts")
	return nil
}

// ListPosts returns posts of a window ordered by popularity. An empty
// category returns every category; limit <= 0 returns everything.
func (d *Database) ListPosts(domain models.Domain, tf models.TimeFilter, category models.Category, limit int) ([]models.ClassifiedPost, error) {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	query := `
	SELECT post_id, subreddit, title, author, url, created_utc, score,
		upvote_ratio, num_comments, selftext, link_flair_text, link_domain,
		permalink, popularity_score, category, confidence
	FROM classified_posts
	WHERE domain = ? AND time_filter = ? AND (? = '' OR category = ?)
	ORDER BY popularity_score DESC, post_id
	LIMIT ?
	`
	if limit <= 0 {
		limit = -1
	}

	rows, err := d.db.Query(query, domain, tf, category, category, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query posts: %w", err)
	}
	defer rows.Close()

	posts := make([]models.ClassifiedPost, 0)
	for rows.Next() {
		var p models.ClassifiedPost
		var created int64
		var url, selftext, flair, linkDomain, permalink sql.NullString

		err := rows.Scan(
			&p.ID, &p.Subreddit, &p.Title, &p.Author, &url, &created, &p.Score,
			&p.UpvoteRatio, &p.NumComments, &selftext, &flair, &linkDomain,
			&permalink, &p.PopularityScore, &p.Category, &p.Confidence,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}

		if created != 0 {
			p.CreatedAt = time.Unix(created, 0).UTC()
		}
		p.URL = url.String
		p.SelfText = selftext.String
		p.LinkFlairText = flair.String
		p.Domain = linkDomain.String
		p.Permalink = permalink.String
		posts = append(posts, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return posts, nil
}

// TopPostsByCategory returns the n most popular posts of every category of
// the domain. Categories without posts map to an empty slice.
func (d *Database) TopPostsByCategory(domain models.Domain, tf models.TimeFilter, n int) (map[models.Category][]models.ClassifiedPost, error) {
	out := make(map[models.Category][]models.ClassifiedPost)
	for _, c := range domain.Categories() {
		posts, err := d.ListPosts(domain, tf, c, n)
		if err != nil {
			return nil, err
		}
		out[c] = posts
	}
	return out, nil
}

// CategoryCounts returns the number of stored posts per category
func (d *Database) CategoryCounts(domain models.Domain, tf models.TimeFilter) (map[models.Category]int, error) {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	query := `
	SELECT category, COUNT(*) as post_count
	FROM classified_posts
	WHERE domain = ? AND time_filter = ?
	GROUP BY category
	`

	rows, err := d.db.Query(query, domain, tf)
	if err != nil {
		return nil, fmt.Errorf("failed to query category counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.Category]int)
	for rows.Next() {
		var category models.Category
		var count int

		if err := rows.Scan(&category, &count); err != nil {
			return nil, fmt.Errorf("failed to scan category count: %w", err)
		}

		counts[category] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return counts, nil
}

// GetTotalPosts returns the number of stored posts across all windows
func (d *Database) GetTotalPosts() (int, error) {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	var count int
	err := d.db.QueryRow("SELECT COUNT(*) FROM classified_posts").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get total posts: %w", err)
	}

	return count, nil
}

// RecordRun stores a run report
func (d *Database) RecordRun(report models.RunReport) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	body, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to encode run report: %w", err)
	}

	_, err = d.db.Exec(`
	INSERT INTO runs (domain, time_filter, started_at, finished_at, total_posts, under_target, report)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`, report.Domain, report.TimeFilter, report.StartedAt.UTC(), report.FinishedAt.UTC(),
		report.TotalPosts, len(report.UnderTarget()), string(body))
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}

	return nil
}

// LastRun returns the most recent report of a window, or ErrNoRuns
func (d *Database) LastRun(domain models.Domain, tf models.TimeFilter) (*models.RunReport, error) {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	var body string
	err := d.db.QueryRow(`
	SELECT report FROM runs
	WHERE domain = ? AND time_filter = ?
	ORDER BY id DESC
	LIMIT 1
	`, domain, tf).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w for %s/%s", ErrNoRuns, domain, tf)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query last run: %w", err)
	}

	var report models.RunReport
	if err := json.Unmarshal([]byte(body), &report); err != nil {
		return nil, fmt.Errorf("failed to decode run report: %w", err)
	}

	return &report, nil
}

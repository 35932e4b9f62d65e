package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/brettboylen/reddit-digest/dataset"
	"github.com/brettboylen/reddit-digest/extract"
	"github.com/brettboylen/reddit-digest/models"
	"github.com/brettboylen/reddit-digest/ranking"
	"github.com/brettboylen/reddit-digest/stats"
)

// ErrAlreadyRunning is returned when the same domain and window is already
// being extracted
var ErrAlreadyRunning = errors.New("extraction already running")

// PostSink persists extraction output
type PostSink interface {
	SavePosts(domain models.Domain, tf models.TimeFilter, posts []models.ClassifiedPost) error
	RecordRun(report models.RunReport) error
}

// RunRecorder receives finished run reports
type RunRecorder interface {
	RecordRun(report models.RunReport)
}

// Config describes what the runner extracts and how results are kept
type Config struct {
	Profiles  map[models.Domain]extract.Profile
	Scorer    *ranking.Scorer
	BaseLimit int

	// MergeMode appends to the stored dataset, dropping posts older than
	// Retention; otherwise every run replaces the dataset.
	MergeMode bool
	Retention time.Duration

	ExtractOptions []extract.Option
}

// Outcome is the result of one domain in a fan-out run
type Outcome struct {
	Domain models.Domain
	Report *models.RunReport
	Posts  int
	Err    error
}

// Runner runs balanced extraction for several domains and stores the results
type Runner struct {
	fetcher   extract.Fetcher
	cfg       Config
	store     *dataset.Store
	sink      PostSink
	collector RunRecorder
	log       *logrus.Logger

	mu      sync.Mutex
	running map[string]bool
}

// NewRunner creates a runner. sink and collector may be nil.
func NewRunner(fetcher extract.Fetcher, cfg Config, store *dataset.Store, sink PostSink, collector RunRecorder, log *logrus.Logger) *Runner {
	if cfg.Scorer == nil {
		cfg.Scorer = ranking.NewScorer(nil)
	}
	if cfg.BaseLimit <= 0 {
		cfg.BaseLimit = extract.DefaultBaseLimit
	}
	return &Runner{
		fetcher:   fetcher,
		cfg:       cfg,
		store:     store,
		sink:      sink,
		collector: collector,
		log:       log,
		running:   make(map[string]bool),
	}
}

// Domains returns the configured domains in a stable order
func (r *Runner) Domains() []models.Domain {
	var out []models.Domain
	for _, d := range models.AllDomains() {
		if _, ok := r.cfg.Profiles[d]; ok {
			out = append(out, d)
		}
	}
	return out
}

// Run extracts every domain in parallel and waits for all of them. Each
// branch owns its own extractor and output file; a failing branch does not
// stop the others.
func (r *Runner) Run(ctx context.Context, domains []models.Domain, tf models.TimeFilter) ([]Outcome, error) {
	outcomes := make([]Outcome, len(domains))

	var wg sync.WaitGroup
	for i, d := range domains {
		wg.Add(1)
		go func(i int, d models.Domain) {
			defer wg.Done()

			res, err := r.RunDomain(ctx, d, tf)
			outcomes[i] = Outcome{Domain: d, Err: err}
			if err == nil {
				report := res.Report
				outcomes[i].Report = &report
				outcomes[i].Posts = len(res.Posts)
			}
		}(i, d)
	}
	wg.Wait()

	var errs []error
	for _, o := range outcomes {
		if o.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", o.Domain, o.Err))
		}
	}

	r.log.WithFields(logrus.Fields{
		"domains":     len(domains),
		"failed":      len(errs),
		"time_filter": tf,
	}).Info("Pipeline run finished")

	return outcomes, errors.Join(errs...)
}

// RunDomain extracts one domain and window, then writes the dataset, the
// database and the run statistics
func (r *Runner) RunDomain(ctx context.Context, domain models.Domain, tf models.TimeFilter) (*extract.Result, error) {
	profile, ok := r.cfg.Profiles[domain]
	if !ok {
		return nil, fmt.Errorf("%w: %s is not configured", models.ErrUnknownDomain, domain)
	}

	key := models.WindowKey(domain, tf)
	if !r.acquire(key) {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyRunning, key)
	}
	defer r.release(key)

	opts := append([]extract.Option{extract.WithScorer(r.cfg.Scorer)}, r.cfg.ExtractOptions...)
	extractor, err := extract.New(profile, r.fetcher, r.log, opts...)
	if err != nil {
		return nil, err
	}

	res, err := extractor.Extract(ctx, tf, r.cfg.BaseLimit)
	if err != nil {
		return nil, err
	}

	stored := res.Posts
	if r.cfg.MergeMode {
		stored, err = r.store.Merge(domain, tf, res.Posts, r.cfg.Retention)
	} else {
		err = r.store.Save(domain, tf, res.Posts)
	}
	if err != nil {
		stats.RunsTotal.WithLabelValues(string(domain), tf.Label(), "store_error").Inc()
		return nil, fmt.Errorf("failed to write dataset: %w", err)
	}

	if r.sink != nil {
		if err := r.sink.SavePosts(domain, tf, stored); err != nil {
			r.log.WithError(err).WithField("domain", domain).Error("Failed to save posts to database")
		}
		if err := r.sink.RecordRun(res.Report); err != nil {
			r.log.WithError(err).WithField("domain", domain).Error("Failed to record run")
		}
	}
	if r.collector != nil {
		r.collector.RecordRun(res.Report)
	}

	return res, nil
}

// Running reports whether a domain and window is being extracted
func (r *Runner) Running(domain models.Domain, tf models.TimeFilter) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running[models.WindowKey(domain, tf)]
}

func (r *Runner) acquire(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running[key] {
		return false
	}
	r.running[key] = true
	return true
}

func (r *Runner) release(key string) {
	r.mu.Lock()
	delete(r.running, key)
	r.mu.Unlock()
}

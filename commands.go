package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/brettboylen/reddit-digest/api"
	"github.com/brettboylen/reddit-digest/dataset"
	"github.com/brettboylen/reddit-digest/db"
	"github.com/brettboylen/reddit-digest/extract"
	"github.com/brettboylen/reddit-digest/models"
	"github.com/brettboylen/reddit-digest/pipeline"
	"github.com/brettboylen/reddit-digest/server"
	"github.com/brettboylen/reddit-digest/stats"
	"github.com/brettboylen/reddit-digest/summarize"
	"github.com/brettboylen/reddit-digest/utils"
)

// app holds the wired components shared by every command
type app struct {
	cfg        *utils.Config
	log        *logrus.Logger
	reddit     *api.RedditAPI
	database   *db.Database
	store      *dataset.Store
	collector  *stats.Collector
	runner     *pipeline.Runner
	runnerCfg  pipeline.Config
	profiles   map[models.Domain]extract.Profile
	summarizer *summarize.Summarizer
}

func newApp() (*app, error) {
	log := setupLogger(logLevel)

	cfg, err := utils.LoadConfig(envPath, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	tuning, err := utils.LoadTuning(cfg.Extract.TuningFile)
	if err != nil {
		return nil, err
	}

	profiles := make(map[models.Domain]extract.Profile, len(cfg.Extract.Domains))
	for _, d := range cfg.Extract.Domains {
		p, err := tuning.Profile(d)
		if err != nil {
			return nil, err
		}
		profiles[d] = p
	}

	log.WithFields(logrus.Fields{
		"domains":    cfg.Extract.Domains,
		"schedule":   cfg.Extract.Schedule,
		"base_limit": cfg.Extract.BaseLimit,
		"merge_mode": cfg.Data.MergeMode,
		"data_dir":   cfg.Data.Dir,
	}).Info("Configuration loaded")

	database, err := db.NewDatabase(cfg.Database.Path, log)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	reddit := api.NewRedditAPI(
		cfg.Reddit.ClientID,
		cfg.Reddit.ClientSecret,
		cfg.Reddit.UserAgent,
		api.Options{MaxRequestsPerMinute: cfg.Reddit.MaxRequestsPerMinute},
		log,
	)

	store := dataset.NewStore(cfg.Data.Dir, log)
	collector := stats.NewCollector(database, reddit, cfg.Extract.Domains, log)

	runnerCfg := pipeline.Config{
		Profiles:  profiles,
		Scorer:    tuning.Scorer(),
		BaseLimit: cfg.Extract.BaseLimit,
		MergeMode: cfg.Data.MergeMode,
		Retention: time.Duration(cfg.Data.RetentionDays) * 24 * time.Hour,
	}
	runner := pipeline.NewRunner(reddit, runnerCfg, store, database, collector, log)

	summarizer, err := summarize.NewGroq(summarize.Options{
		APIKey:            cfg.Groq.APIKey,
		BaseURL:           cfg.Groq.BaseURL,
		Model:             cfg.Groq.Model,
		RequestsPerMinute: cfg.Groq.RequestsPerMinute,
	}, log)
	if errors.Is(err, summarize.ErrNotConfigured) {
		log.Info("GROQ_API_KEY not set, summaries disabled")
	} else if err != nil {
		database.Close()
		return nil, err
	}

	return &app{
		cfg:        cfg,
		log:        log,
		reddit:     reddit,
		database:   database,
		store:      store,
		collector:  collector,
		runner:     runner,
		runnerCfg:  runnerCfg,
		profiles:   profiles,
		summarizer: summarizer,
	}, nil
}

func (a *app) Close() {
	if err := a.database.Close(); err != nil {
		a.log.WithError(err).Warn("Failed to close database")
	}
}

// selectDomains resolves --domain flags, defaulting to every configured domain
func (a *app) selectDomains(names []string) ([]models.Domain, error) {
	if len(names) == 0 {
		return a.runner.Domains(), nil
	}
	var out []models.Domain
	for _, n := range names {
		d, err := models.ParseDomain(n)
		if err != nil {
			return nil, err
		}
		if _, ok := a.profiles[d]; !ok {
			return nil, fmt.Errorf("domain %s is not enabled in EXTRACT_DOMAINS", d)
		}
		out = append(out, d)
	}
	return out, nil
}

// parseWindows accepts day, week or both
func parseWindows(s string) ([]models.TimeFilter, error) {
	if strings.EqualFold(s, "both") {
		return []models.TimeFilter{models.TimeFilterWeek, models.TimeFilterDay}, nil
	}
	tf, err := models.ParseTimeFilter(s)
	if err != nil {
		return nil, err
	}
	return []models.TimeFilter{tf}, nil
}

func (a *app) server(port int) *server.Server {
	var summarizer server.Summarizer
	if a.summarizer != nil {
		summarizer = a.summarizer
	}
	return server.New(server.Config{
		Port:              port,
		RequestsPerSecond: float64(a.cfg.Server.RequestsPerSecond),
		Profiles:          a.profiles,
		Datasets:          a.store,
	}, a.database, a.runner, summarizer, a.collector, a.log)
}

func extractCmd() *cobra.Command {
	var (
		domains []string
		window  string
		limit   int
	)

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Run balanced extraction once and write the datasets",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			selected, err := a.selectDomains(domains)
			if err != nil {
				return err
			}
			windows, err := parseWindows(window)
			if err != nil {
				return err
			}
			if limit > 0 {
				runnerCfg := a.runnerCfg
				runnerCfg.BaseLimit = limit
				a.runner = pipeline.NewRunner(a.reddit, runnerCfg, a.store, a.database, a.collector, a.log)
			}

			ctx, cancel := signalContext(a.log)
			defer cancel()

			var errs []error
			for _, tf := range windows {
				outcomes, err := a.runner.Run(ctx, selected, tf)
				printOutcomes(cmd, tf, outcomes)
				if err != nil {
					errs = append(errs, err)
				}
			}
			return errors.Join(errs...)
		},
	}

	cmd.Flags().StringSliceVar(&domains, "domain", nil, "domains to extract (default: EXTRACT_DOMAINS)")
	cmd.Flags().StringVar(&window, "window", "both", "time window: day, week or both")
	cmd.Flags().IntVar(&limit, "limit", 0, "posts requested per subreddit (default: EXTRACT_BASE_LIMIT)")
	return cmd
}

func printOutcomes(cmd *cobra.Command, tf models.TimeFilter, outcomes []pipeline.Outcome) {
	out := cmd.OutOrStdout()
	for _, o := range outcomes {
		if o.Err != nil {
			fmt.Fprintf(out, "%-16s %-7s failed: %v\n", o.Domain, tf.Label(), o.Err)
			continue
		}
		fmt.Fprintf(out, "%-16s %-7s %4d posts\n", o.Domain, tf.Label(), o.Posts)
		for _, c := range o.Report.UnderTarget() {
			fmt.Fprintf(out, "    %s: %d of %d\n", c.Category.DisplayName(), c.Count, c.Target)
		}
	}
}

func summarizeCmd() *cobra.Command {
	var (
		domain   string
		window   string
		category string
	)

	cmd := &cobra.Command{
		Use:   "summarize",
		Short: "Summarize the stored posts of one category",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if a.summarizer == nil {
				return summarize.ErrNotConfigured
			}
			d, err := models.ParseDomain(domain)
			if err != nil {
				return err
			}
			tf, err := models.ParseTimeFilter(window)
			if err != nil {
				return err
			}
			c, err := models.ParseCategory(d, category)
			if err != nil {
				return err
			}

			posts, err := a.database.ListPosts(d, tf, c, summarize.MaxPosts)
			if err != nil {
				return err
			}
			if len(posts) == 0 {
				// fall back to the CSV dataset when the database has nothing stored
				posts, err = a.store.Load(d, tf)
				if err != nil && !errors.Is(err, dataset.ErrNotFound) {
					return err
				}
			}

			ctx, cancel := signalContext(a.log)
			defer cancel()

			summary, err := a.summarizer.Summarize(ctx, d, tf, c, posts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%d of %d posts)\n\n%s\n",
				c.DisplayName(), summary.Analyzed, summary.TotalPosts, summary.Text)
			return nil
		},
	}

	cmd.Flags().StringVar(&domain, "domain", "", "domain of the category")
	cmd.Flags().StringVar(&window, "window", "week", "time window: day or week")
	cmd.Flags().StringVar(&category, "category", "", "category key or display name")
	_ = cmd.MarkFlagRequired("domain")
	_ = cmd.MarkFlagRequired("category")
	return cmd
}

func serveCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := signalContext(a.log)
			defer cancel()

			go func() {
				if err := a.collector.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
					a.log.WithError(err).Error("Stats collector stopped unexpectedly")
				}
			}()

			return a.server(portOrDefault(port, a.cfg.Server.Port)).Start(ctx)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "server port (default: SERVER_PORT)")
	return cmd
}

func runCmd() *cobra.Command {
	var (
		port      int
		immediate bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the scheduler, statistics collector and HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := signalContext(a.log)
			defer cancel()

			scheduler := pipeline.NewScheduler(a.runner, a.runner.Domains(), a.cfg.Extract.Schedule, a.log)
			if err := scheduler.Start(ctx); err != nil {
				return err
			}
			defer scheduler.Stop()

			var wg sync.WaitGroup
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := a.collector.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
					a.log.WithError(err).Error("Stats collector stopped unexpectedly")
				}
			}()

			if immediate {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if err := scheduler.RunOnce(ctx); err != nil {
						a.log.WithError(err).Error("Initial extraction finished with errors")
					}
				}()
			}

			err = a.server(portOrDefault(port, a.cfg.Server.Port)).Start(ctx)
			cancel()
			wg.Wait()
			a.log.Info("Reddit Digest stopped")
			return err
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "server port (default: SERVER_PORT)")
	cmd.Flags().BoolVar(&immediate, "now", false, "run one extraction immediately on startup")
	return cmd
}

func portOrDefault(flag, fallback int) int {
	if flag > 0 {
		return flag
	}
	return fallback
}

// Package app wires configuration, stores, fetchers and the HTTP server into
// a running service.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/robfig/cron/v3"

	"kpopwire/internal/config"
	"kpopwire/internal/feed"
	"kpopwire/internal/logger"
	"kpopwire/internal/news"
	"kpopwire/internal/newsapi"
	"kpopwire/internal/server"
	"kpopwire/internal/storage"
)

type App struct {
	cfg    *config.Config
	agg    *news.Aggregator
	groups []news.Group
	opts   news.Options
	srv    *http.Server
	cron   *cron.Cron
	closer func() error
}

func New(cfg *config.Config) (*App, error) {
	store, closer, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	groups, err := news.LoadGroups(cfg.GroupsConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load groups: %w", err)
	}

	feedURLs, err := feed.LoadFeeds(cfg.FeedsConfigPath)
	if err != nil {
		// Tolerable when a preferred feed is configured or RSS is unused.
		logger.Warn("feed list not loaded", "path", cfg.FeedsConfigPath, "err", err)
	}

	var api news.APIClient
	if cfg.NewsAPIKey != "" {
		api = newsapi.NewClient(cfg.NewsAPIKey, cfg.RequestTimeout)
	} else {
		logger.Info("no NEWS_API_KEY configured, rss feeds only")
	}

	agg := news.NewAggregator(store, api, feed.NewFetcher(cfg.RequestTimeout))

	opts := news.Options{
		TTL:              cfg.CacheTTL,
		FromDays:         cfg.FromDays,
		SortBy:           cfg.SortBy,
		MaxArticles:      cfg.MaxArticles,
		APIOnly:          cfg.APIOnly,
		RSSOnly:          cfg.RSSOnly,
		BlacklistDomains: cfg.BlacklistDomains,
		PreferredFeed:    cfg.PreferredFeed,
		FeedURLs:         feedURLs,
	}

	balance := news.BalanceOptions{PerGroup: cfg.BalancePerGroup, Total: cfg.BalanceTotal}
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: server.New(agg, groups, opts, balance).Handler(),
	}

	return &App{
		cfg:    cfg,
		agg:    agg,
		groups: groups,
		opts:   opts,
		srv:    srv,
		closer: closer,
	}, nil
}

// Run serves HTTP and the scheduled refresh until ctx is cancelled, then
// shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	if a.cfg.RefreshCron != "" {
		a.cron = cron.New()
		if _, err := a.cron.AddFunc(a.cfg.RefreshCron, a.refresh); err != nil {
			return fmt.Errorf("schedule refresh %q: %w", a.cfg.RefreshCron, err)
		}
		a.cron.Start()
		logger.Info("scheduled news refresh", "cron", a.cfg.RefreshCron)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", a.srv.Addr)
		if err := a.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		a.shutdown()
		return err
	case <-ctx.Done():
		return a.shutdown()
	}
}

// refresh forces a fresh aggregation, warming the cache for the next page
// load.
func (a *App) refresh() {
	opts := a.opts
	opts.TTL = 0

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	items, err := a.agg.FetchForGroups(ctx, a.groups, opts)
	if err != nil {
		logger.Error("scheduled refresh failed", "err", err)
		return
	}
	logger.Info("scheduled refresh done", "articles", len(items))
}

func (a *App) shutdown() error {
	logger.Info("shutting down")

	if a.cron != nil {
		<-a.cron.Stop().Done()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := a.srv.Shutdown(ctx)

	if a.closer != nil {
		if cerr := a.closer(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// openStore selects the cache backend. The returned closer is non-nil only
// for backends holding external connections.
func openStore(cfg *config.Config) (news.Store, func() error, error) {
	switch cfg.CacheBackend {
	case "postgres":
		store, err := storage.NewPostgresStore(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres cache: %w", err)
		}
		logger.Info("using postgres news cache")
		return store, store.Close, nil
	case "file":
		logger.Info("using file news cache", "path", cfg.CacheFilePath)
		return storage.NewFileStore(cfg.CacheFilePath), nil, nil
	default:
		logger.Info("using in-memory news cache")
		return storage.NewMemoryStore(), nil, nil
	}
}

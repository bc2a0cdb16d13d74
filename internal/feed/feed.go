// Package feed fetches the configured RSS/Atom feeds and converts their
// items into articles.
package feed

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/mmcdole/gofeed"
	"gopkg.in/yaml.v3"

	"kpopwire/internal/logger"
	"kpopwire/internal/metrics"
	"kpopwire/internal/news"
)

// FeedsConfig is YAML config structure
// feeds:
//   - https://...
type FeedsConfig struct {
	Feeds []string `yaml:"feeds"`
}

// LoadFeeds reads the RSS feed list from a YAML file.
func LoadFeeds(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg FeedsConfig
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&cfg); err != nil {
		return nil, err
	}
	return cfg.Feeds, nil
}

// Fetcher downloads and parses RSS feeds.
type Fetcher struct {
	parser *gofeed.Parser
}

func NewFetcher(timeout time.Duration) *Fetcher {
	parser := gofeed.NewParser()
	parser.Client = &http.Client{Timeout: timeout}
	return &Fetcher{parser: parser}
}

// FetchAll downloads every feed and concatenates their items. A failing feed
// is logged and skipped; it never aborts the batch.
func (f *Fetcher) FetchAll(ctx context.Context, urls []string) []news.Article {
	var all []news.Article
	ok := 0

	for _, url := range urls {
		feed, err := f.parser.ParseURLWithContext(url, ctx)
		if err != nil {
			metrics.Global.IncrementFeedErrors()
			logger.Warn("rss feed fetch failed", "url", url, "err", err)
			continue
		}
		for _, item := range feed.Items {
			all = append(all, toArticle(item))
		}
		metrics.Global.IncrementFeedsFetched()
		ok++
		logger.Debug("rss feed loaded", "url", url, "items", len(feed.Items))
	}

	logger.Info("rss feeds fetched", "ok", ok, "total", len(urls), "items", len(all))
	return all
}

func toArticle(item *gofeed.Item) news.Article {
	pubDate := item.Published
	if pubDate == "" && item.PublishedParsed != nil {
		pubDate = item.PublishedParsed.Format(time.RFC3339)
	}
	return news.Article{
		Title:          item.Title,
		Link:           item.Link,
		PubDate:        pubDate,
		Content:        StripHTML(item.Content),
		ContentSnippet: StripHTML(item.Description),
	}
}

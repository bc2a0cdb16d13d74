// Package news implements the aggregation pipeline: it fetches articles
// mentioning tracked groups from NewsAPI or RSS feeds, annotates each article
// with the groups it mentions, deduplicates by link and caches the batch.
package news

import (
	"context"
	"net/url"
	"sort"
	"strings"
	"time"

	"kpopwire/internal/logger"
	"kpopwire/internal/metrics"
	"kpopwire/internal/variant"
)

// Member is a person belonging to a tracked group.
type Member struct {
	Name    string   `json:"name"`
	Aliases []string `json:"aliases,omitempty"`
}

// Group is a tracked entity whose news mentions are of interest.
type Group struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Aliases []string `json:"aliases,omitempty"`
	Members []Member `json:"members,omitempty"`
}

// Article is one news item. Mentions holds the display names of the groups
// detected in the article text; it is filled by the aggregator and travels
// with the cached payload.
type Article struct {
	Title          string   `json:"title"`
	Link           string   `json:"link"`
	PubDate        string   `json:"pubDate"`
	Content        string   `json:"content"`
	ContentSnippet string   `json:"contentSnippet"`
	Source         string   `json:"source,omitempty"`
	SourceName     string   `json:"sourceName,omitempty"`
	Mentions       []string `json:"mentions,omitempty"`
}

// Store is the cache collaborator contract. Staleness decisions belong to the
// aggregator; stores only persist and retrieve JSON documents by key.
type Store interface {
	Get(key string, dest any) (bool, error)
	Set(key string, value any) error
}

// APIClient searches a keyword-query news provider for articles about the
// given groups.
type APIClient interface {
	Search(ctx context.Context, groups []Group, fromDays int, sortBy string) ([]Article, error)
}

// FeedFetcher retrieves and concatenates the items of a list of RSS feeds.
// Per-feed failures are swallowed by the fetcher.
type FeedFetcher interface {
	FetchAll(ctx context.Context, urls []string) []Article
}

// Options configures one aggregation call. The zero value of TTL forces a
// fresh fetch.
type Options struct {
	TTL         time.Duration
	FromDays    int
	SortBy      string
	MaxArticles int

	APIOnly          bool // never fall back to RSS
	RSSOnly          bool // skip NewsAPI and bypass warm caches
	BlacklistDomains []string
	PreferredFeed    string
	FeedURLs         []string
}

func (o Options) withDefaults() Options {
	if o.FromDays <= 0 {
		o.FromDays = 7
	}
	if o.SortBy == "" {
		o.SortBy = "publishedAt"
	}
	if o.MaxArticles <= 0 {
		o.MaxArticles = 50
	}
	return o
}

// Aggregator orchestrates fetch-or-reuse-cache across the configured sources.
type Aggregator struct {
	store Store
	api   APIClient // nil when no API key is configured
	feeds FeedFetcher
}

func NewAggregator(store Store, api APIClient, feeds FeedFetcher) *Aggregator {
	return &Aggregator{store: store, api: api, feeds: feeds}
}

// cacheEntry is the persisted shape of one aggregation batch.
type cacheEntry struct {
	FetchedAt int64     `json:"fetchedAt"` // epoch milliseconds
	Payload   []Article `json:"payload"`
}

// cacheState classifies the outcome of the cache lookup. Only cacheHit short
// circuits the fetch; the other states fall through to a fresh one.
type cacheState int

const (
	cacheMiss cacheState = iota
	cacheHit
	cacheHitEmptyAfterFilter // warm entry, but the blacklist emptied it
	cacheForcedRefresh       // warm entry bypassed by RSS-only mode
)

// FetchForGroups returns up to opts.MaxArticles deduplicated articles, each
// mentioning at least one of the groups. All upstream failures degrade to
// partial or empty results; the returned error is reserved for context
// cancellation.
func (a *Aggregator) FetchForGroups(ctx context.Context, groups []Group, opts Options) ([]Article, error) {
	start := time.Now()
	defer func() {
		metrics.Global.RecordFetchTime(time.Since(start))
		metrics.Global.SetLastRun()
	}()

	opts = opts.withDefaults()
	key := cacheKey(groups)

	switch state, payload := a.checkCache(key, opts); state {
	case cacheHit:
		metrics.Global.IncrementCacheHits()
		logger.Debug("news cache hit", "key", key, "articles", len(payload))
		return payload, nil
	case cacheForcedRefresh:
		logger.Debug("news cache bypassed by rss-only mode", "key", key)
	case cacheHitEmptyAfterFilter:
		logger.Debug("news cache emptied by blacklist, refetching", "key", key)
	}
	metrics.Global.IncrementCacheMisses()

	var articles []Article
	if !opts.RSSOnly && a.api != nil {
		fetched, err := a.api.Search(ctx, groups, opts.FromDays, opts.SortBy)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			// The whole NewsAPI attempt is downgraded to "failed"; the RSS
			// fallback below still runs unless APIOnly is set.
			metrics.Global.IncrementAPIFailures()
			logger.Warn("newsapi fetch failed", "err", err)
		} else {
			articles = filterBlacklist(dedupeByLink(fetched), opts.BlacklistDomains)
		}
	}

	if len(articles) == 0 && !opts.APIOnly {
		urls := opts.FeedURLs
		if opts.PreferredFeed != "" {
			urls = []string{opts.PreferredFeed}
		}
		articles = a.feeds.FetchAll(ctx, urls)
		SortByPubDate(articles)
	}

	annotated := a.annotate(articles, groups)
	unique := dedupeByLink(annotated)
	if len(unique) > opts.MaxArticles {
		unique = unique[:opts.MaxArticles]
	}

	entry := cacheEntry{FetchedAt: time.Now().UnixMilli(), Payload: unique}
	if err := a.store.Set(key, entry); err != nil {
		// The cache is an optimization, never a correctness requirement.
		logger.Warn("news cache write failed", "key", key, "err", err)
	}

	logger.Info("news batch aggregated", "key", key, "articles", len(unique))
	return unique, nil
}

// checkCache evaluates the cached entry for key against the TTL, the
// blacklist and the RSS-only override.
func (a *Aggregator) checkCache(key string, opts Options) (cacheState, []Article) {
	var entry cacheEntry
	ok, err := a.store.Get(key, &entry)
	if err != nil {
		logger.Warn("news cache read failed", "key", key, "err", err)
		return cacheMiss, nil
	}
	if !ok {
		return cacheMiss, nil
	}
	if time.Since(time.UnixMilli(entry.FetchedAt)) >= opts.TTL {
		return cacheMiss, nil
	}
	if opts.RSSOnly {
		return cacheForcedRefresh, nil
	}
	payload := filterBlacklist(entry.Payload, opts.BlacklistDomains)
	if len(payload) == 0 {
		return cacheHitEmptyAfterFilter, nil
	}
	return cacheHit, payload
}

// annotate fills Mentions on every article whose normalized text contains a
// variant of any group and drops the articles that mention none.
func (a *Aggregator) annotate(articles []Article, groups []Group) []Article {
	variantGroups, groupNames := buildVariantUniverse(groups)

	out := make([]Article, 0, len(articles))
	for _, art := range articles {
		text := variant.Normalize(art.Title + " " + art.Content + " " + art.ContentSnippet)
		hits := map[string]struct{}{}
		for v, ids := range variantGroups {
			if strings.Contains(text, v) {
				for _, id := range ids {
					hits[id] = struct{}{}
				}
			}
		}
		if len(hits) == 0 {
			continue
		}

		names := make([]string, 0, len(hits))
		for id := range hits {
			if name := groupNames[id]; name != "" {
				names = append(names, name)
			} else {
				names = append(names, id)
			}
		}
		sort.Strings(names)
		art.Mentions = names
		out = append(out, art)
	}
	metrics.Global.AddArticlesMatched(len(out))
	return out
}

// buildVariantUniverse unions the variants of every group, its aliases and
// its members into a single variant -> group ids map. A variant shared by two
// groups deliberately produces multiple mentions per article.
func buildVariantUniverse(groups []Group) (map[string][]string, map[string]string) {
	variantGroups := make(map[string][]string)
	groupNames := make(map[string]string, len(groups))

	for _, g := range groups {
		set := map[string]struct{}{}
		for _, v := range variant.NameVariants(g.Name) {
			set[v] = struct{}{}
		}
		if id := strings.ToLower(g.ID); id != "" {
			set[id] = struct{}{}
		}
		for _, alias := range g.Aliases {
			for _, v := range variant.NameVariants(alias) {
				set[v] = struct{}{}
			}
		}
		for _, m := range g.Members {
			for _, v := range variant.NameVariants(m.Name) {
				set[v] = struct{}{}
			}
			for _, alias := range m.Aliases {
				for _, v := range variant.NameVariants(alias) {
					set[v] = struct{}{}
				}
			}
		}

		for v := range set {
			variantGroups[v] = append(variantGroups[v], g.ID)
		}
		groupNames[g.ID] = g.Name
	}
	return variantGroups, groupNames
}

func cacheKey(groups []Group) string {
	ids := make([]string, 0, len(groups))
	for _, g := range groups {
		ids = append(ids, g.ID)
	}
	sort.Strings(ids)
	return "news:" + strings.Join(ids, ",")
}

// dedupeByLink keeps the first occurrence of every link and drops articles
// without one.
func dedupeByLink(articles []Article) []Article {
	seen := make(map[string]struct{}, len(articles))
	out := make([]Article, 0, len(articles))
	dropped := 0
	for _, a := range articles {
		if a.Link == "" {
			continue
		}
		if _, dup := seen[a.Link]; dup {
			dropped++
			continue
		}
		seen[a.Link] = struct{}{}
		out = append(out, a)
	}
	if dropped > 0 {
		metrics.Global.AddDuplicatesFiltered(dropped)
	}
	return out
}

// filterBlacklist drops articles whose link host or source name contains any
// of the blacklisted domain substrings.
func filterBlacklist(articles []Article, domains []string) []Article {
	if len(domains) == 0 {
		return articles
	}
	out := make([]Article, 0, len(articles))
	for _, a := range articles {
		if !blacklisted(a, domains) {
			out = append(out, a)
		}
	}
	return out
}

func blacklisted(a Article, domains []string) bool {
	host := ""
	if u, err := url.Parse(a.Link); err == nil {
		host = strings.ToLower(u.Hostname())
	}
	src := strings.ToLower(a.SourceName)
	if src == "" {
		src = strings.ToLower(a.Source)
	}
	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d == "" {
			continue
		}
		if (host != "" && strings.Contains(host, d)) || (src != "" && strings.Contains(src, d)) {
			return true
		}
	}
	return false
}

// pubDateLayouts covers the date formats seen across RSS feeds and NewsAPI.
var pubDateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// pubTime parses an article's publish date to epoch milliseconds, 0 when the
// date is missing or unparseable.
func pubTime(a Article) int64 {
	s := strings.TrimSpace(a.PubDate)
	if s == "" {
		return 0
	}
	for _, layout := range pubDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UnixMilli()
		}
	}
	return 0
}

// SortByPubDate stable-sorts articles newest first. Articles with an
// unparseable date sort last, keeping their relative order.
func SortByPubDate(articles []Article) {
	sort.SliceStable(articles, func(i, j int) bool {
		return pubTime(articles[i]) > pubTime(articles[j])
	})
}

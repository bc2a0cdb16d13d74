// Package newsapi implements the NewsAPI "everything" client used as the
// primary article source. Queries are built from group names, aliases and
// member names, chunked to respect the provider's query-length limits.
package newsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"kpopwire/internal/logger"
	"kpopwire/internal/metrics"
	"kpopwire/internal/news"
	"kpopwire/internal/retry"
)

const defaultBaseURL = "https://newsapi.org/v2/everything"

const (
	groupChunkSize    = 8   // groups per NewsAPI chunk
	maxTokensPerChunk = 200 // query tokens kept per chunk
	maxTokensPerQuery = 40  // tokens per request, below the query-length limit
	pageSize          = 100
)

type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter // politeness pacing between requests
	retryCfg   retry.Config
}

func NewClient(apiKey string, timeout time.Duration) *Client {
	return &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Every(350*time.Millisecond), 1),
		retryCfg:   retry.Config{MaxAttempts: 3, Delay: time.Second, Backoff: true},
	}
}

// response is the NewsAPI wire shape. PublishedAt stays a string; date
// parsing happens downstream where unparseable dates degrade to 0.
type response struct {
	Status       string `json:"status"`
	Code         string `json:"code"`
	Message      string `json:"message"`
	TotalResults int    `json:"totalResults"`
	Articles     []struct {
		Source struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"source"`
		Title       string `json:"title"`
		Description string `json:"description"`
		URL         string `json:"url"`
		PublishedAt string `json:"publishedAt"`
		Content     string `json:"content"`
	} `json:"articles"`
}

// Search fetches articles for the groups, issuing one request per sub-chunk
// of query tokens. Any request that exhausts its retries fails the whole
// search; the caller falls back to RSS.
func (c *Client) Search(ctx context.Context, groups []news.Group, fromDays int, sortBy string) ([]news.Article, error) {
	var from string
	if fromDays > 0 {
		from = time.Now().AddDate(0, 0, -fromDays).UTC().Format(time.RFC3339)
	}
	if sortBy == "" {
		sortBy = "publishedAt"
	}

	var fetched []news.Article
	for start := 0; start < len(groups); start += groupChunkSize {
		end := start + groupChunkSize
		if end > len(groups) {
			end = len(groups)
		}

		tokens := queryTokens(groups[start:end])
		if len(tokens) > maxTokensPerChunk {
			tokens = tokens[:maxTokensPerChunk]
		}

		for s := 0; s < len(tokens); s += maxTokensPerQuery {
			e := s + maxTokensPerQuery
			if e > len(tokens) {
				e = len(tokens)
			}
			q := strings.Join(tokens[s:e], " OR ")

			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
			logger.Debug("newsapi query", "chunk", start/groupChunkSize, "segment", s/maxTokensPerQuery, "qlen", len(q))

			articles, err := c.search(ctx, q, from, sortBy)
			if err != nil {
				return nil, err
			}
			fetched = append(fetched, articles...)
		}
	}
	return fetched, nil
}

func (c *Client) search(ctx context.Context, q, from, sortBy string) ([]news.Article, error) {
	metrics.Global.IncrementAPIRequests()

	resp, err := retry.Do(ctx, c.httpClient, c.retryCfg, func() (*http.Request, error) {
		params := url.Values{}
		params.Set("q", q)
		params.Set("language", "en")
		params.Set("pageSize", strconv.Itoa(pageSize))
		params.Set("searchIn", "title,description,content")
		params.Set("sortBy", sortBy)
		if from != "" {
			params.Set("from", from)
		}

		req, err := http.NewRequest(http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("X-Api-Key", c.apiKey)
		return req, nil
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("newsapi http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode newsapi response: %w", err)
	}
	if out.Status != "ok" {
		return nil, fmt.Errorf("newsapi error %s: %s", out.Code, out.Message)
	}

	articles := make([]news.Article, 0, len(out.Articles))
	for _, a := range out.Articles {
		content := a.Content
		if content == "" {
			content = a.Description
		}
		articles = append(articles, news.Article{
			Title:          a.Title,
			Link:           a.URL,
			PubDate:        a.PublishedAt,
			Content:        content,
			ContentSnippet: a.Description,
			Source:         a.Source.ID,
			SourceName:     a.Source.Name,
		})
	}
	return articles, nil
}

// queryTokens builds the OR-query vocabulary for a chunk of groups: quoted
// and unquoted group names and aliases, quoted member names with up to three
// raw name tokens each, and member aliases. Duplicates are removed preserving
// first-seen order.
func queryTokens(groups []news.Group) []string {
	var parts []string
	quoted := func(s string) {
		s = strings.TrimSpace(strings.ReplaceAll(s, `"`, ""))
		if s != "" {
			parts = append(parts, `"`+s+`"`, s)
		}
	}

	for _, g := range groups {
		quoted(g.Name)
		for _, alias := range g.Aliases {
			quoted(alias)
		}
		for _, m := range g.Members {
			name := strings.TrimSpace(strings.ReplaceAll(m.Name, `"`, ""))
			if name == "" {
				continue
			}
			parts = append(parts, `"`+name+`"`)
			tokens := strings.Fields(name)
			if len(tokens) > 3 {
				tokens = tokens[:3]
			}
			parts = append(parts, tokens...)
			for _, alias := range m.Aliases {
				quoted(alias)
			}
		}
	}

	seen := make(map[string]struct{}, len(parts))
	uniq := make([]string, 0, len(parts))
	for _, p := range parts {
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		uniq = append(uniq, p)
	}
	return uniq
}

package newsapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"kpopwire/internal/news"
)

var testGroups = []news.Group{
	{
		ID:      "bts",
		Name:    "BTS",
		Aliases: []string{"Bangtan Boys"},
		Members: []news.Member{
			{Name: "Kim Nam Joon Rap Monster", Aliases: []string{"RM"}},
		},
	},
}

func newTestClient(baseURL string) *Client {
	c := NewClient("test-key", 5*time.Second)
	c.baseURL = baseURL
	return c
}

func TestQueryTokens(t *testing.T) {
	tokens := queryTokens(testGroups)

	want := []string{`"BTS"`, "BTS", `"Bangtan Boys"`, "Bangtan Boys", `"Kim Nam Joon Rap Monster"`, "Kim", "Nam", "Joon", `"RM"`, "RM"}
	for _, w := range want {
		if !containsToken(tokens, w) {
			t.Errorf("missing token %q in %v", w, tokens)
		}
	}

	// member name tokens are capped at 3
	if containsToken(tokens, "Rap") || containsToken(tokens, "Monster") {
		t.Errorf("member tokens beyond the cap leaked into %v", tokens)
	}

	seen := map[string]int{}
	for _, tok := range tokens {
		seen[tok]++
		if seen[tok] > 1 {
			t.Errorf("duplicate token %q", tok)
		}
	}
}

func TestSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Api-Key"); got != "test-key" {
			t.Errorf("X-Api-Key = %q", got)
		}
		q := r.URL.Query()
		if q.Get("q") == "" {
			t.Error("missing q parameter")
		}
		if q.Get("language") != "en" || q.Get("searchIn") != "title,description,content" {
			t.Errorf("unexpected query params: %v", q)
		}
		if q.Get("from") == "" {
			t.Error("missing from parameter")
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"status": "ok",
			"totalResults": 2,
			"articles": [
				{
					"source": {"id": "src", "name": "Source Name"},
					"title": "BTS comeback",
					"description": "desc one",
					"url": "https://example.com/1",
					"publishedAt": "2026-08-30T12:00:00Z",
					"content": "full content"
				},
				{
					"source": {"id": "", "name": ""},
					"title": "No content article",
					"description": "desc two",
					"url": "https://example.com/2",
					"publishedAt": "2026-08-29T12:00:00Z",
					"content": ""
				}
			]
		}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	articles, err := c.Search(context.Background(), testGroups, 7, "publishedAt")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(articles) != 2 {
		t.Fatalf("got %d articles, want 2", len(articles))
	}

	first := articles[0]
	if first.Link != "https://example.com/1" || first.PubDate != "2026-08-30T12:00:00Z" {
		t.Errorf("unexpected first article: %+v", first)
	}
	if first.Content != "full content" || first.SourceName != "Source Name" {
		t.Errorf("unexpected first article fields: %+v", first)
	}

	// content falls back to the description when empty
	if articles[1].Content != "desc two" {
		t.Errorf("content fallback = %q, want %q", articles[1].Content, "desc two")
	}
}

func TestSearch_RetriesOn429(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","totalResults":1,"articles":[{"source":{"id":"","name":""},"title":"t","description":"d","url":"https://example.com/1","publishedAt":"2026-08-30T12:00:00Z","content":"c"}]}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	c.retryCfg.Delay = time.Millisecond

	articles, err := c.Search(context.Background(), testGroups, 0, "")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(articles) != 1 {
		t.Errorf("got %d articles, want 1", len(articles))
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestSearch_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"error","code":"apiKeyInvalid","message":"bad key"}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	if _, err := c.Search(context.Background(), testGroups, 0, ""); err == nil {
		t.Error("expected error for provider error status")
	}
}

func containsToken(tokens []string, s string) bool {
	for _, tok := range tokens {
		if tok == s {
			return true
		}
	}
	return false
}

package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>K-pop Wire Test</title>
    <item>
      <title>BTS announce world tour</title>
      <link>https://example.com/bts-tour</link>
      <pubDate>Mon, 02 Jan 2006 15:04:05 -0700</pubDate>
      <description>&lt;p&gt;The group confirmed &lt;b&gt;new dates&lt;/b&gt;.&lt;/p&gt;</description>
    </item>
    <item>
      <title>Weather update</title>
      <link>https://example.com/weather</link>
      <pubDate>Mon, 02 Jan 2006 10:00:00 -0700</pubDate>
      <description>Sunny.</description>
    </item>
  </channel>
</rss>`

func TestStripHTML(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"plain text", "plain text"},
		{"<p>Hello <b>World</b></p>", "Hello World"},
		{"<div>first</div> <div>second</div>", "first second"},
	}
	for _, tt := range tests {
		if got := StripHTML(tt.in); got != tt.want {
			t.Errorf("StripHTML(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFetchAll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(sampleRSS))
	}))
	defer srv.Close()

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer bad.Close()

	f := NewFetcher(5 * time.Second)
	articles := f.FetchAll(context.Background(), []string{srv.URL, bad.URL})

	if len(articles) != 2 {
		t.Fatalf("got %d articles, want 2", len(articles))
	}
	first := articles[0]
	if first.Title != "BTS announce world tour" {
		t.Errorf("title = %q", first.Title)
	}
	if first.Link != "https://example.com/bts-tour" {
		t.Errorf("link = %q", first.Link)
	}
	if first.PubDate == "" {
		t.Error("pubDate should be preserved")
	}
	if first.ContentSnippet != "The group confirmed new dates." {
		t.Errorf("snippet not stripped of HTML: %q", first.ContentSnippet)
	}
}

func TestLoadFeeds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feeds.yaml")
	content := "feeds:\n  - https://example.com/a\n  - https://example.com/b\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := LoadFeeds(path)
	if err != nil {
		t.Fatalf("LoadFeeds failed: %v", err)
	}
	want := []string{"https://example.com/a", "https://example.com/b"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("feeds = %v, want %v", got, want)
	}
}

func TestLoadFeeds_MissingFile(t *testing.T) {
	if _, err := LoadFeeds(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

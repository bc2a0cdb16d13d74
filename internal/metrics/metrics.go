package metrics

import (
	"sync"
	"time"
)

type Metrics struct {
	mu sync.RWMutex

	// Counters
	FeedsFetched       int64
	FeedErrors         int64
	APIRequests        int64
	APIFailures        int64
	CacheHits          int64
	CacheMisses        int64
	ArticlesMatched    int64
	DuplicatesFiltered int64

	// Timings
	LastFetchTime    time.Duration
	AverageFetchTime time.Duration
	TotalFetchTime   time.Duration
	FetchCount       int64

	// Status
	LastRunTime   time.Time
	LastErrorTime time.Time
	LastError     string
	IsHealthy     bool
}

var Global = &Metrics{IsHealthy: true}

func (m *Metrics) IncrementFeedsFetched() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FeedsFetched++
}

func (m *Metrics) IncrementFeedErrors() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FeedErrors++
}

func (m *Metrics) IncrementAPIRequests() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.APIRequests++
}

func (m *Metrics) IncrementAPIFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.APIFailures++
}

func (m *Metrics) IncrementCacheHits() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheHits++
}

func (m *Metrics) IncrementCacheMisses() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheMisses++
}

func (m *Metrics) AddArticlesMatched(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ArticlesMatched += int64(n)
}

func (m *Metrics) AddDuplicatesFiltered(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DuplicatesFiltered += int64(n)
}

func (m *Metrics) RecordFetchTime(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LastFetchTime = duration
	m.TotalFetchTime += duration
	m.FetchCount++

	if m.FetchCount > 0 {
		m.AverageFetchTime = m.TotalFetchTime / time.Duration(m.FetchCount)
	}
}

func (m *Metrics) SetLastRun() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastRunTime = time.Now()
	m.IsHealthy = true
}

func (m *Metrics) SetError(err string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastError = err
	m.LastErrorTime = time.Now()
	m.IsHealthy = false
}

func (m *Metrics) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"feeds_fetched":         m.FeedsFetched,
		"feed_errors":           m.FeedErrors,
		"api_requests":          m.APIRequests,
		"api_failures":          m.APIFailures,
		"cache_hits":            m.CacheHits,
		"cache_misses":          m.CacheMisses,
		"articles_matched":      m.ArticlesMatched,
		"duplicates_filtered":   m.DuplicatesFiltered,
		"last_fetch_time_ms":    m.LastFetchTime.Milliseconds(),
		"average_fetch_time_ms": m.AverageFetchTime.Milliseconds(),
		"last_run_time":         m.LastRunTime.Format(time.RFC3339),
		"last_error_time":       m.LastErrorTime.Format(time.RFC3339),
		"last_error":            m.LastError,
		"is_healthy":            m.IsHealthy,
	}
}

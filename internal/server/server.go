// Package server exposes the aggregation pipeline over HTTP: the raw
// mentioned-article list, a forced refresh, the balanced homepage selection
// and the monitoring endpoints.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"kpopwire/internal/logger"
	"kpopwire/internal/metrics"
	"kpopwire/internal/news"
)

// NewsFetcher is the aggregator entry point the routes call into.
type NewsFetcher interface {
	FetchForGroups(ctx context.Context, groups []news.Group, opts news.Options) ([]news.Article, error)
}

type Server struct {
	router  *mux.Router
	agg     NewsFetcher
	groups  []news.Group
	opts    news.Options
	balance news.BalanceOptions
}

func New(agg NewsFetcher, groups []news.Group, opts news.Options, balance news.BalanceOptions) *Server {
	s := &Server{
		router:  mux.NewRouter(),
		agg:     agg,
		groups:  groups,
		opts:    opts,
		balance: balance,
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	s.router.HandleFunc("/api/news", s.handleNews).Methods(http.MethodGet)
	s.router.HandleFunc("/api/news/refresh", s.handleRefresh).Methods(http.MethodPost)
	s.router.HandleFunc("/api/news/top", s.handleTop).Methods(http.MethodGet)
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/metrics", s.handleMetrics).Methods(http.MethodGet)
}

// handleNews returns the full mentioned-article list. force=1 bypasses the
// cache. A "no news" result is a normal empty state, never an error.
func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	opts := s.opts
	if r.URL.Query().Get("force") == "1" {
		opts.TTL = 0
	}

	items, err := s.agg.FetchForGroups(r.Context(), s.groups, opts)
	if err != nil {
		logger.Error("api/news failed", "err", err)
		items = nil
	}
	if items == nil {
		items = []news.Article{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "count": len(items), "items": items})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	opts := s.opts
	opts.TTL = 0

	items, err := s.agg.FetchForGroups(r.Context(), s.groups, opts)
	if err != nil {
		logger.Error("api/news/refresh failed", "err", err)
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "count": len(items)})
}

// handleTop serves the homepage selection: balanced across groups, then
// sorted by publish date.
func (s *Server) handleTop(w http.ResponseWriter, r *http.Request) {
	balance := s.balance
	if v, err := strconv.Atoi(r.URL.Query().Get("perGroup")); err == nil && v > 0 {
		balance.PerGroup = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("total")); err == nil && v > 0 {
		balance.Total = v
	}

	items, err := s.agg.FetchForGroups(r.Context(), s.groups, s.opts)
	if err != nil {
		logger.Error("api/news/top failed", "err", err)
	}

	balanced := news.BalanceArticles(items, s.groups, balance)
	news.SortByPubDate(balanced)
	if balanced == nil {
		balanced = []news.Article{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "count": len(balanced), "items": balanced})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats := metrics.Global.GetStats()

	status := "ok"
	code := http.StatusOK
	if healthy, _ := stats["is_healthy"].(bool); !healthy {
		status = "error"
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, map[string]any{
		"status":     status,
		"last_run":   stats["last_run_time"],
		"last_error": stats["last_error"],
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, metrics.Global.GetStats())
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("write response failed", "err", err)
	}
}

package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ttd2089/resizable-ringbuf/internal/metrics"
	"github.com/ttd2089/resizable-ringbuf/internal/ratelimit"
)

func newStatsServer(
	addr string,
	logger *slog.Logger,
	limiter *ratelimit.Keyed,
	observer *metrics.Limiter,
	gatherer prometheus.Gatherer,
) *http.Server {
	return &http.Server{
		Addr:    addr,
		Handler: newStatsMux(logger, limiter, observer, gatherer),
	}
}

func newStatsMux(
	logger *slog.Logger,
	limiter *ratelimit.Keyed,
	observer *metrics.Limiter,
	gatherer prometheus.Gatherer,
) *http.ServeMux {
	mux := http.NewServeMux()

	// Gauges only change on Observe, so push the new window state after every admin action.
	syncGauges := func() {
		for key, stats := range limiter.Snapshot() {
			observer.Sync(key, stats)
		}
	}

	mux.HandleFunc("GET /stats", func(w http.ResponseWriter, r *http.Request) {
		serveJSON(logger, w, limiter.Snapshot())
	})

	mux.HandleFunc("GET /limit", func(w http.ResponseWriter, r *http.Request) {
		serveJSON(logger, w, map[string]int{"limit": limiter.Limit()})
	})

	mux.HandleFunc("PUT /limit", func(w http.ResponseWriter, r *http.Request) {
		limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
		if err != nil {
			http.Error(w, "limit must be an integer", http.StatusBadRequest)
			return
		}
		if err := limiter.SetLimit(limit); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		logger.Info("limit changed", "limit", limit)
		syncGauges()
		serveJSON(logger, w, map[string]int{"limit": limiter.Limit()})
	})

	mux.HandleFunc("POST /flush", func(w http.ResponseWriter, r *http.Request) {
		limiter.Clear()
		logger.Info("windows flushed")
		syncGauges()
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("POST /reset", func(w http.ResponseWriter, r *http.Request) {
		limiter.Reset()
		logger.Info("windows reset", "limit", limiter.Limit())
		syncGauges()
		w.WriteHeader(http.StatusNoContent)
	})

	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return mux
}

func serveJSON(logger *slog.Logger, w http.ResponseWriter, data any) {
	body, err := json.MarshalIndent(data, "", "   ")
	if err != nil {
		logger.Error("marshal response", "err", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		logger.Error("write response", "err", err)
	}
}

package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/optmon/option-data/internal/config"
	"github.com/optmon/option-data/internal/database"
	"github.com/optmon/option-data/internal/delivery"
	"github.com/optmon/option-data/internal/fault"
	"github.com/optmon/option-data/internal/health"
	"github.com/optmon/option-data/internal/model"
	"github.com/optmon/option-data/internal/store"
	"github.com/optmon/option-data/internal/writer"
)

// server holds the HTTP surface dependencies.
type server struct {
	cfg     *config.RecorderConfig
	pool    *database.Pool
	monitor *health.Monitor
	writer  *writer.Writer
	tracker *delivery.Tracker
	reader  *store.Reader
	logger  *slog.Logger
}

func (s *server) routes(metricsHandler http.Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /ingest/trade", s.handleIngestTrade)
	mux.HandleFunc("POST /ingest/price", s.handleIngestPrice)
	mux.HandleFunc("POST /ingest/stock", s.handleIngestStock)
	mux.HandleFunc("POST /delivery/attempt", s.handleDeliveryAttempt)
	mux.HandleFunc("POST /delivery/outcome", s.handleDeliveryOutcome)
	mux.HandleFunc("POST /flush", s.handleFlush)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /debug/pool", s.handleDebugPool)
	mux.HandleFunc("GET /trades/recent", s.handleRecentTrades)
	mux.HandleFunc("GET /summary/daily", s.handleDailySummary)
	mux.Handle("GET "+s.cfg.Server.MetricsPath, metricsHandler)

	return mux
}

func (s *server) handleIngestTrade(w http.ResponseWriter, r *http.Request) {
	var ev model.TradeEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	if err := s.writer.WriteTrade(r.Context(), &ev); err != nil {
		s.writeFault(w, "ingest trade", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":     ev.ID,
		"queued": ev.ID == 0, // Buffered writes have no identity yet
	})
}

func (s *server) handleIngestPrice(w http.ResponseWriter, r *http.Request) {
	var snap model.PriceSnapshot
	if err := json.NewDecoder(r.Body).Decode(&snap); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	if err := s.writer.WritePrice(r.Context(), &snap); err != nil {
		s.writeFault(w, "ingest price", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *server) handleIngestStock(w http.ResponseWriter, r *http.Request) {
	var info model.StockInfo
	if err := json.NewDecoder(r.Body).Decode(&info); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	if err := s.writer.UpsertStock(r.Context(), &info); err != nil {
		s.writeFault(w, "upsert stock", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *server) handleDeliveryAttempt(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EventID int64  `json:"event_id"`
		Channel string `json:"channel"`
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	attempt, err := s.tracker.RecordAttempt(r.Context(), req.EventID, model.Channel(req.Channel), req.Content)
	if err != nil {
		s.writeFault(w, "record delivery attempt", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"attempt_id":  attempt.ID.String(),
		"retry_count": attempt.RetryCount,
	})
}

func (s *server) handleDeliveryOutcome(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AttemptID string `json:"attempt_id"`
		Delivered bool   `json:"delivered"`
		Error     string `json:"error"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	id, err := uuid.Parse(req.AttemptID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid attempt_id: "+err.Error())
		return
	}

	if err := s.tracker.MarkOutcome(r.Context(), id, req.Delivered, req.Error); err != nil {
		s.writeFault(w, "mark delivery outcome", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *server) handleFlush(w http.ResponseWriter, r *http.Request) {
	flushed, err := s.writer.FlushReplayQueue(r.Context())
	if err != nil {
		s.writeFault(w, "flush replay queue", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"flushed":   flushed,
		"remaining": s.writer.QueueStats().Count,
	})
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats := s.monitor.Stats()
	queue := s.writer.QueueStats()

	body := map[string]any{
		"status": string(stats.Status),
		"components": map[string]any{
			"database": map[string]any{
				"status":            string(stats.Status),
				"checks":            stats.Checks,
				"failures":          stats.Failures,
				"consecutive_fails": stats.ConsecutiveFails,
			},
			"replay_queue": map[string]any{
				"depth":    queue.Count,
				"capacity": queue.Capacity,
				"dropped":  queue.Dropped,
			},
		},
	}

	code := http.StatusOK
	if stats.Status == health.Down {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, body)
}

func (s *server) handleDebugPool(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"info":  s.pool.Info(),
		"stats": s.pool.Stats(),
	})
}

func (s *server) handleRecentTrades(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("stock_code")
	hours := queryInt(r, "hours", 24)
	limit := queryInt(r, "limit", 100)

	trades, err := s.reader.RecentTrades(r.Context(), code, time.Duration(hours)*time.Hour, limit)
	if err != nil {
		s.writeFault(w, "recent trades", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":  len(trades),
		"trades": trades,
	})
}

func (s *server) handleDailySummary(w http.ResponseWriter, r *http.Request) {
	date := time.Now()
	if d := r.URL.Query().Get("date"); d != "" {
		parsed, err := time.Parse("2006-01-02", d)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date: "+err.Error())
			return
		}
		date = parsed
	}

	summaries, err := s.reader.DailySummaries(r.Context(), date)
	if err != nil {
		s.writeFault(w, "daily summaries", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"date":      date.Format("2006-01-02"),
		"count":     len(summaries),
		"summaries": summaries,
	})
}

// writeFault maps the error taxonomy onto HTTP status codes.
func (s *server) writeFault(w http.ResponseWriter, op string, err error) {
	var code int
	switch {
	case errors.Is(err, fault.ErrRejected):
		code = http.StatusBadRequest
	case errors.Is(err, delivery.ErrAlreadyDelivered), errors.Is(err, delivery.ErrAttemptSettled):
		code = http.StatusConflict
	case errors.Is(err, fault.ErrRetryExhausted):
		code = http.StatusConflict
	case errors.Is(err, fault.ErrTransient), errors.Is(err, fault.ErrPoolExhausted):
		code = http.StatusServiceUnavailable
	default:
		code = http.StatusInternalServerError
	}

	if code >= 500 {
		s.logger.Error("request failed", "operation", op, "error", err)
	}
	writeError(w, code, err.Error())
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

// Package server exposes the knowledge base over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/poiesic/ragline/answer"
	"github.com/poiesic/ragline/core"
	"github.com/poiesic/ragline/ingestion"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// defaultSearchLimit is the result count when a search names none.
const defaultSearchLimit = 5

// Knowledge is the set of operations served over HTTP.
type Knowledge interface {
	Refresh(ctx context.Context, limit int, opts *ingestion.IngestOptions) (*core.IngestStats, error)
	Seed(ctx context.Context) (int, error)
	Search(ctx context.Context, query string, topK int) ([]core.Passage, error)
	Ask(ctx context.Context, query string, history []core.Turn) answer.Response
}

type handler struct {
	kb      Knowledge
	logger  *slog.Logger
	now     func() time.Time
	contact string
}

// Option configures the handler.
type Option func(*handler)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithSupportContact sets the contact named in chat failure replies.
func WithSupportContact(contact string) Option {
	return func(h *handler) {
		if contact != "" {
			h.contact = contact
		}
	}
}

// withClock overrides the timestamp source in tests.
func withClock(now func() time.Time) Option {
	return func(h *handler) {
		h.now = now
	}
}

// New returns the HTTP handler for kb.
func New(kb Knowledge, opts ...Option) http.Handler {
	h := &handler{
		kb:      kb,
		logger:  slog.Default(),
		now:     time.Now,
		contact: answer.DefaultSupportContact,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.With("component", "http")

	mux := http.NewServeMux()
	mux.HandleFunc("POST /knowledge/scrape", h.scrape)
	mux.HandleFunc("GET /knowledge/scrape", h.scrapeUsage)
	mux.HandleFunc("POST /knowledge/search", h.searchPost)
	mux.HandleFunc("GET /knowledge/search", h.searchGet)
	mux.HandleFunc("POST /knowledge/init", h.initKnowledge)
	mux.HandleFunc("GET /knowledge/init", h.initUsage)
	mux.HandleFunc("POST /chat", h.chat)
	mux.HandleFunc("GET /healthz", h.health)
	return h.logRequests(mux)
}

func (h *handler) timestamp() string {
	return h.now().UTC().Format(time.RFC3339Nano)
}

type scrapeRequest struct {
	Limit          *int  `json:"limit"`
	ClearOld       *bool `json:"clearOld"`
	ChunkMaxLength *int  `json:"chunkMaxLength"`
	BatchSize      *int  `json:"batchSize"`
}

func (h *handler) scrape(w http.ResponseWriter, r *http.Request) {
	var req scrapeRequest
	// An empty or malformed body means defaults.
	if err := decode(r, &req); err != nil && !errors.Is(err, io.EOF) {
		h.logger.Debug("ignoring unreadable scrape body", "err", err)
		req = scrapeRequest{}
	}

	limit := 0
	if req.Limit != nil {
		limit = *req.Limit
	}
	opts := &ingestion.IngestOptions{}
	if req.ClearOld != nil {
		opts.ClearOld = *req.ClearOld
	}
	if req.ChunkMaxLength != nil {
		opts.ChunkMaxLength = *req.ChunkMaxLength
	}
	if req.BatchSize != nil {
		opts.BatchSize = *req.BatchSize
	}

	h.logger.Info("scrape and ingest requested", "limit", limit, "clearOld", opts.ClearOld)
	stats, err := h.kb.Refresh(r.Context(), limit, opts)
	if err != nil {
		h.logger.Error("scrape and ingest failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   "Failed to scrape and ingest knowledge",
			"details": err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"message":   "Scraped and ingested knowledge successfully",
		"stats":     stats,
		"timestamp": h.timestamp(),
	})
}

func (h *handler) scrapeUsage(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Send a POST request to scrape and ingest knowledge.",
		"example": map[string]any{
			"limit":          15,
			"clearOld":       false,
			"chunkMaxLength": 900,
			"batchSize":      100,
		},
	})
}

type searchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

func (h *handler) searchPost(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "Query is required")
		return
	}
	if req.Limit <= 0 {
		req.Limit = defaultSearchLimit
	}
	h.search(w, r, req.Query, req.Limit)
}

func (h *handler) searchGet(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if strings.TrimSpace(query) == "" {
		writeJSON(w, http.StatusOK, map[string]any{
			"message": `Provide a query parameter "q" to search the knowledge base`,
		})
		return
	}
	limit := defaultSearchLimit
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = v
	}
	h.search(w, r, query, limit)
}

func (h *handler) search(w http.ResponseWriter, r *http.Request, query string, limit int) {
	h.logger.Info("searching knowledge base", "query", query, "limit", limit)
	passages, err := h.kb.Search(r.Context(), query, limit)
	if err != nil {
		h.logger.Error("knowledge search failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":   "Failed to search knowledge base",
			"details": err.Error(),
		})
		return
	}

	results := make([]string, len(passages))
	for i, p := range passages {
		results[i] = p.Text
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"query":     query,
		"results":   results,
		"count":     len(results),
		"timestamp": h.timestamp(),
	})
}

func (h *handler) initKnowledge(w http.ResponseWriter, r *http.Request) {
	count, err := h.kb.Seed(r.Context())
	if err != nil {
		h.logger.Error("knowledge base initialization failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   "Failed to initialize knowledge base",
			"details": err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": fmt.Sprintf("Knowledge base initialized successfully with %d vectors", count),
		"count":   count,
	})
}

func (h *handler) initUsage(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Send a POST request to initialize the knowledge base",
	})
}

type chatRequest struct {
	Message string      `json:"message"`
	History []core.Turn `json:"history"`
}

func (h *handler) chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decode(r, &req); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error": "Failed to process chat message",
			"response": "I apologize, but I'm having trouble processing your request. " +
				"Please try again or contact support at " + h.contact + ".",
		})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "Message is required")
		return
	}

	resp := h.kb.Ask(r.Context(), req.Message, req.History)
	h.logger.Info("generated chat response", "responseLength", len(resp.Text), "contexts", len(resp.Contexts))
	writeJSON(w, http.StatusOK, map[string]any{
		"response":  resp.Text,
		"contexts":  resp.Contexts,
		"timestamp": h.timestamp(),
	})
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func decode(r *http.Request, dst any) error {
	return json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (h *handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		h.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start))
	})
}

// ListenAndServe serves handler on addr until ctx is done, then shuts down
// gracefully within shutdownTimeout.
func ListenAndServe(ctx context.Context, addr string, handler http.Handler, shutdownTimeout time.Duration) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return Serve(ctx, listener, handler, shutdownTimeout)
}

// Serve is ListenAndServe on an existing listener.
func Serve(ctx context.Context, listener net.Listener, handler http.Handler, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

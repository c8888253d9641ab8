// Package httpapi exposes the verifier over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/optimode/contactkit"
	"github.com/optimode/contactkit/internal/store"
	"github.com/optimode/contactkit/types"
)

const (
	maxBodyBytes   = 10 << 20
	maxBatchSize   = 1000
	requestTimeout = 5 * time.Minute
)

// Verifier is the subset of *contactkit.Verifier the API needs.
type Verifier interface {
	Config() contactkit.VerificationConfig
	VerifyRecord(ctx context.Context, rec contactkit.Record) contactkit.ProjectResult
	VerifyBatch(ctx context.Context, recs []contactkit.Record, opts ...contactkit.BatchOption) []contactkit.ProjectResult
	VerifyEmail(ctx context.Context, email string) types.EmailResult
	VerifyURL(ctx context.Context, url, field string) types.URLResult
}

// RunStore persists batch runs. *store.Store satisfies it.
type RunStore interface {
	SaveRun(ctx context.Context, run store.Run, results []contactkit.ProjectResult) (uuid.UUID, error)
	Run(ctx context.Context, id uuid.UUID) (store.Run, error)
	Results(ctx context.Context, id uuid.UUID) ([]json.RawMessage, error)
	Ping(ctx context.Context) error
}

// Handler wires the verification endpoints to a Verifier.
type Handler struct {
	verifier Verifier
	runs     RunStore // nil disables run persistence
	logger   *slog.Logger
	now      func() time.Time
}

// New constructs a handler. runs may be nil.
func New(v Verifier, runs RunStore, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{verifier: v, runs: runs, logger: logger, now: time.Now}
}

// Register mounts the API endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/healthz", h.HandleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/verify", h.HandleVerify)
		r.Post("/verify/batch", h.HandleBatch)
		r.Post("/email", h.HandleEmail)
		r.Post("/url", h.HandleURL)
		r.Get("/runs/{id}", h.HandleRun)
	})
}

// NewRouter returns a router with the API, request logging middleware and,
// when gatherer is not nil, GET /metrics.
func NewRouter(h *Handler, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))
	h.Register(r)
	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// HandleHealth handles GET /healthz.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if h.runs != nil {
		if err := h.runs.Ping(r.Context()); err != nil {
			h.logger.WarnContext(r.Context(), "health check failed", "error", err)
			writeError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleVerify handles POST /v1/verify with a single record.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	var rec contactkit.Record
	if !decode(w, r, &rec) {
		return
	}
	writeJSON(w, http.StatusOK, h.verifier.VerifyRecord(r.Context(), rec))
}

// HandleBatch handles POST /v1/verify/batch. The body is a records array
// or {"projects": [...]}. ?filter=true adds the kept records to the report.
func (h *Handler) HandleBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetReqID(ctx)

	recs, err := contactkit.DecodeRecords(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(recs) > maxBatchSize {
		writeError(w, http.StatusRequestEntityTooLarge, "too many records")
		return
	}

	start := h.now()
	results := h.verifier.VerifyBatch(ctx, recs)
	cfg := h.verifier.Config()
	report := contactkit.NewReport(cfg.Level, results, h.now())
	if r.URL.Query().Get("filter") == "true" || cfg.FilterInvalid {
		report.Kept, _ = contactkit.Partition(recs, results, cfg.FilterPolicy())
		if report.Kept == nil {
			report.Kept = []contactkit.Record{}
		}
	}

	if h.runs != nil {
		id, err := h.runs.SaveRun(ctx, store.Run{
			Level:      string(cfg.Level),
			StartedAt:  start,
			FinishedAt: report.VerifiedAt,
		}, results)
		if err != nil {
			// Persistence failures do not fail the request.
			h.logger.ErrorContext(ctx, "saving run failed", "request_id", requestID, "error", err)
		} else {
			report.RunID = id.String()
		}
	}

	h.logger.InfoContext(ctx, "batch verified",
		"request_id", requestID,
		"records", report.Total,
		"valid", report.Valid,
		"partial", report.Partial,
		"invalid", report.Invalid,
		"duration_ms", report.VerifiedAt.Sub(start).Milliseconds(),
	)
	writeJSON(w, http.StatusOK, report)
}

type emailRequest struct {
	Email string `json:"email"`
}

// HandleEmail handles POST /v1/email.
func (h *Handler) HandleEmail(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if !decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, h.verifier.VerifyEmail(r.Context(), req.Email))
}

type urlRequest struct {
	URL   string `json:"url"`
	Field string `json:"field"`
}

// HandleURL handles POST /v1/url.
func (h *Handler) HandleURL(w http.ResponseWriter, r *http.Request) {
	var req urlRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Field == "" {
		req.Field = "url"
	}
	writeJSON(w, http.StatusOK, h.verifier.VerifyURL(r.Context(), req.URL, req.Field))
}

type runResponse struct {
	store.Run
	Results []json.RawMessage `json:"results"`
}

// HandleRun handles GET /v1/runs/{id}.
func (h *Handler) HandleRun(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		writeError(w, http.StatusNotFound, "run persistence is not configured")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid run id")
		return
	}

	ctx := r.Context()
	run, err := h.runs.Run(ctx, id)
	if errors.Is(err, store.ErrRunNotFound) {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		h.logger.ErrorContext(ctx, "loading run failed", "run_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	results, err := h.runs.Results(ctx, id)
	if err != nil {
		h.logger.ErrorContext(ctx, "loading results failed", "run_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, runResponse{Run: run, Results: results})
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

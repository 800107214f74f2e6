package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/joseph-ayodele/docs-extractor/constants"
	"github.com/joseph-ayodele/docs-extractor/internal/export"
	"github.com/joseph-ayodele/docs-extractor/internal/results"
)

// HTTPHandler serves a read-only JSON view of results plus the export download.
type HTTPHandler struct {
	store  *results.Store
	export *export.Service
	health func() error
	logger *slog.Logger
}

func NewHTTPHandler(store *results.Store, exp *export.Service, health func() error, logger *slog.Logger) *HTTPHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPHandler{store: store, export: exp, health: health, logger: logger}
}

// Router builds the chi router.
func (h *HTTPHandler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	h.RegisterHTTP(r)
	return r
}

func (h *HTTPHandler) RegisterHTTP(r chi.Router) {
	r.Get("/healthz", h.handleHealth)
	r.Get("/api/v1/results", h.handleList)
	r.Get("/api/v1/results/{id}", h.handleGet)
	r.Get("/api/v1/export", h.handleExport)
}

func (h *HTTPHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health(); err != nil {
			h.logger.Warn("http.health.failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GET /api/v1/results?status=success,confirmed
func (h *HTTPHandler) handleList(w http.ResponseWriter, r *http.Request) {
	var statuses []constants.ProcessStatus
	if q := strings.TrimSpace(r.URL.Query().Get("status")); q != "" {
		for _, part := range strings.Split(q, ",") {
			st := constants.ProcessStatus(strings.ToLower(strings.TrimSpace(part)))
			if !st.Valid() {
				http.Error(w, "unknown status "+part, http.StatusBadRequest)
				return
			}
			statuses = append(statuses, st)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": h.store.List(statuses...)})
}

func (h *HTTPHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	res, err := h.store.Get(id)
	if errors.Is(err, results.ErrNotFound) {
		http.Error(w, "result not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GET /api/v1/export?format=csv|xlsx
func (h *HTTPHandler) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(strings.ToLower(r.URL.Query().Get("format")))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	data, name, err := h.export.Export(format)
	if errors.Is(err, export.ErrNothingToExport) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("http.export.failed", "format", format, "error", err)
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.logger.Warn("http.export.write_failed", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/omr-tools/markwise/internal/evaluation"
	"github.com/omr-tools/markwise/internal/model"
	"github.com/omr-tools/markwise/internal/store"
)

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	cfg   *evaluation.Config
	store *store.Store // nil when persistence is disabled

	// Streak counters and the trace on cfg are per-pass mutable state,
	// so scoring requests are serialized and the config reset between
	// them.
	mu sync.Mutex
}

// New creates a new Handler. st may be nil.
func New(cfg *evaluation.Config, st *store.Store) *Handler {
	return &Handler{cfg: cfg, store: st}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/score", h.handleScore)
	r.Get("/results", h.handleListResults)
	r.Get("/results/{fileID}", h.handleGetResult)
	r.Get("/healthz", h.handleHealthz)
}

// scoreRequest is the POST /score body. A bare response map is also
// accepted.
type scoreRequest struct {
	FileID   string         `json:"file_id"`
	Response model.Response `json:"response"`
}

type scoreResponse struct {
	FileID      string                  `json:"file_id,omitempty"`
	Score       float64                 `json:"score"`
	Explanation []evaluation.ExplainRow `json:"explanation,omitempty"`
}

func (h *Handler) handleScore(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "read request body", http.StatusBadRequest)
		return
	}

	var req scoreRequest
	if err := json.Unmarshal(body, &req); err != nil || req.Response == nil {
		var bare model.Response
		if err := json.Unmarshal(body, &bare); err != nil || bare == nil {
			http.Error(w, "invalid JSON body", http.StatusBadRequest)
			return
		}
		req = scoreRequest{Response: bare}
	}

	h.mu.Lock()
	h.cfg.Reset()
	score, err := evaluation.Evaluate(req.Response, h.cfg)
	trace := h.cfg.Trace()
	h.mu.Unlock()

	if err != nil {
		var respErr *evaluation.ResponseCoverageError
		if errors.As(err, &respErr) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		// Remaining failures are configuration-side.
		slog.Error("scoring failed", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if h.store != nil && req.FileID != "" {
		err := h.store.SaveResult(model.Result{
			FileID:   req.FileID,
			Score:    score,
			ScoredAt: time.Now(),
		})
		if err != nil {
			slog.Error("save result", "file_id", req.FileID, "error", err)
		}
	}

	writeJSON(w, http.StatusOK, scoreResponse{
		FileID:      req.FileID,
		Score:       score,
		Explanation: trace,
	})
}

func (h *Handler) handleListResults(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		http.Error(w, "result persistence is disabled", http.StatusNotFound)
		return
	}
	results, err := h.store.ListResults()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if results == nil {
		results = []model.Result{}
	}
	writeJSON(w, http.StatusOK, results)
}

func (h *Handler) handleGetResult(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		http.Error(w, "result persistence is disabled", http.StatusNotFound)
		return
	}
	fileID := chi.URLParam(r, "fileID")
	result, err := h.store.GetResult(fileID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if result == nil {
		http.Error(w, "result not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

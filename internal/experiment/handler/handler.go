package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"optimize/internal/experiment/assignment"
	"optimize/internal/experiment/middleware"
	"optimize/internal/experiment/models"
	"optimize/pkg/platform/httputil"
	"optimize/pkg/platform/sentinel"
	"optimize/pkg/requestcontext"
)

// Handler exposes declared experiments and the current request's assignments.
// Routes must be mounted behind the experiment middleware.
type Handler struct {
	registry assignment.Registry
	logger   *slog.Logger
}

func New(registry assignment.Registry, logger *slog.Logger) *Handler {
	return &Handler{registry: registry, logger: logger}
}

// Register mounts the experiment routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Route("/experiments", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Get("/active", h.handleActive)
		r.Get("/snippet", h.handleSnippet)
		r.Post("/{key}/run", h.handleRun)
		r.Put("/{key}/variation", h.handleSetVariation)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	resp := ExperimentListResponse{Experiments: []ExperimentResponse{}}
	for exp := range h.registry.All() {
		resp.Experiments = append(resp.Experiments, toExperimentResponse(exp))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleActive(w http.ResponseWriter, r *http.Request) {
	experiments, ok := h.experiments(w, r)
	if !ok {
		return
	}
	experiments.WakeUp()
	httputil.WriteJSON(w, http.StatusOK, AssignmentListResponse{Assignments: experiments.Assignments()})
}

func (h *Handler) handleSnippet(w http.ResponseWriter, r *http.Request) {
	experiments, ok := h.experiments(w, r)
	if !ok {
		return
	}
	experiments.WakeUp()
	w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(experiments.Snippet()))
}

func (h *Handler) handleRun(w http.ResponseWriter, r *http.Request) {
	experiments, ok := h.experiments(w, r)
	if !ok {
		return
	}
	key := chi.URLParam(r, "key")
	if err := experiments.Run(key); err != nil {
		h.writeError(w, r, "run experiment", key, err)
		return
	}
	a, err := experiments.VariationFor(key)
	if err != nil {
		h.writeError(w, r, "read variation", key, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, a)
}

func (h *Handler) handleSetVariation(w http.ResponseWriter, r *http.Request) {
	experiments, ok := h.experiments(w, r)
	if !ok {
		return
	}
	key := chi.URLParam(r, "key")

	var req SetVariationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, fmt.Errorf("decode request: %w", sentinel.ErrInvalidInput))
		return
	}
	if req.Index == nil {
		httputil.WriteError(w, fmt.Errorf("index is required: %w", sentinel.ErrInvalidInput))
		return
	}
	if err := experiments.SetVariation(key, *req.Index); err != nil {
		h.writeError(w, r, "set variation", key, err)
		return
	}
	a, err := experiments.VariationFor(key)
	if err != nil {
		h.writeError(w, r, "read variation", key, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, a)
}

func (h *Handler) experiments(w http.ResponseWriter, r *http.Request) (*assignment.Context, bool) {
	experiments, ok := middleware.FromContext(r.Context())
	if !ok {
		h.logger.ErrorContext(r.Context(), "experiment middleware not installed",
			"request_id", requestcontext.RequestID(r.Context()),
		)
		httputil.WriteError(w, errors.New("experiment context missing"))
		return nil, false
	}
	return experiments, true
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, op, key string, err error) {
	ctx := r.Context()
	if errors.Is(err, sentinel.ErrNotFound) || errors.Is(err, sentinel.ErrInvalidInput) {
		h.logger.InfoContext(ctx, op+" rejected",
			"experiment", key,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	} else {
		h.logger.ErrorContext(ctx, op+" failed",
			"experiment", key,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	httputil.WriteError(w, err)
}

func toExperimentResponse(exp *models.Experiment) ExperimentResponse {
	return ExperimentResponse{
		Key:        exp.Key,
		ID:         exp.ID,
		Variations: exp.Variations.Variations(),
	}
}

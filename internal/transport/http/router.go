package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	experimenthandler "optimize/internal/experiment/handler"
	experimentmiddleware "optimize/internal/experiment/middleware"
	"optimize/internal/experiment/registry"
	platformmetrics "optimize/internal/platform/metrics"
	"optimize/pkg/platform/httputil"
	"optimize/pkg/platform/middleware/metadata"
	"optimize/pkg/platform/middleware/requestid"
	"optimize/pkg/platform/middleware/requesttime"
)

// Deps are the collaborators the router wires together.
type Deps struct {
	Registry    *registry.Registry
	Experiments *experimentmiddleware.Middleware
	HTTPMetrics *platformmetrics.Metrics
	Metrics     http.Handler
	Logger      *slog.Logger
}

// NewRouter wires all public endpoints. Operational endpoints sit outside the
// experiment middleware so health checks and scrapes never receive cookies.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(requestid.Middleware)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	if d.HTTPMetrics != nil {
		r.Use(d.HTTPMetrics.Middleware)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]any{
			"status":      "ok",
			"experiments": d.Registry.Len(),
		})
	})
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(d.Experiments.Handler)
		experimenthandler.New(d.Registry, d.Logger).Register(r)
	})
	return r
}

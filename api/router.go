// Package api exposes discovery over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"catalog-discovery/discovery"
)

// CallerHeader carries the id of the already authenticated caller.
const CallerHeader = "X-User-Id"

// Searcher answers discovery queries.
type Searcher interface {
	Search(ctx context.Context, p discovery.Params) discovery.ResultPage
	Invalidate()
}

// ProjectGetter loads one project by id.
type ProjectGetter interface {
	GetProject(ctx context.Context, id string) (discovery.Project, error)
}

// Handler serves the discovery endpoints.
type Handler struct {
	svc      Searcher
	projects ProjectGetter
	log      *zap.SugaredLogger
}

// NewRouter builds the HTTP routes.
func NewRouter(svc Searcher, projects ProjectGetter, log *zap.SugaredLogger) http.Handler {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	h := &Handler{svc: svc, projects: projects, log: log}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/projects", func(r chi.Router) {
		r.Use(requestLogger(log))
		r.Get("/", h.SearchProjects)
		r.Post("/cache/invalidate", h.InvalidateCache)
		r.Get("/{id}", h.GetProject)
	})
	return r
}

// writeJSON encodes data as JSON and writes to the response.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Errorw("Failed to encode JSON response", zap.Error(err))
	}
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// SearchProjects answers GET /api/v1/projects. Failures inside discovery
// surface as an empty page, never as an error status.
func (h *Handler) SearchProjects(w http.ResponseWriter, r *http.Request) {
	p := ParamsFromQuery(r.URL.Query(), r.Header.Get(CallerHeader))
	h.writeJSON(w, http.StatusOK, h.svc.Search(r.Context(), p))
}

// GetProject answers GET /api/v1/projects/{id}. Projects the caller may not
// see are reported as missing.
func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	notFound := map[string]string{"error": "project not found"}
	if h.projects == nil {
		h.writeJSON(w, http.StatusNotFound, notFound)
		return
	}

	p, err := h.projects.GetProject(r.Context(), id)
	if errors.Is(err, discovery.ErrNotFound) {
		h.writeJSON(w, http.StatusNotFound, notFound)
		return
	}
	if err != nil {
		h.log.Errorw("Failed to load project", zap.String("id", id), zap.Error(err))
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load project"})
		return
	}

	if !discovery.VisibleTo(caller(r.Header.Get(CallerHeader))).Match(p) {
		h.writeJSON(w, http.StatusNotFound, notFound)
		return
	}
	h.writeJSON(w, http.StatusOK, p)
}

// InvalidateCache answers POST /api/v1/projects/cache/invalidate.
func (h *Handler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	h.svc.Invalidate()
	h.log.Infow("Result cache invalidated", zap.String("request_id", chimiddleware.GetReqID(r.Context())))
	w.WriteHeader(http.StatusNoContent)
}

func requestLogger(log *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debugw("HTTP request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", chimiddleware.GetReqID(r.Context())),
			)
		})
	}
}

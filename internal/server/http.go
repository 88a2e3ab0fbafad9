package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kafkaviz/kafkaviz-server-go/internal/lesson"
)

// API is the HTTP surface: the REST catalog endpoints, the SVG snapshot,
// health, metrics and the websocket upgrade.
type API struct {
	logger   *zap.Logger
	director *Director
	hub      *Hub
}

// NewAPI wires the HTTP layer over the director and hub.
func NewAPI(director *Director, hub *Hub, logger *zap.Logger) *API {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &API{logger: logger, director: director, hub: hub}
}

// Router builds the chi router. ctx is handed to websocket clients so
// their commands stop with the server.
func (a *API) Router(ctx context.Context, allowedOrigins []string, metricsEnabled bool, metricsPath string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		MaxAge:         300,
	}))

	r.Get("/healthz", a.handleHealth)
	r.Get("/api/lessons", a.handleListLessons)
	r.Get("/api/lessons/{slug}", a.handleGetLesson)
	r.Get("/api/scene.svg", a.handleSceneSVG)
	r.Get("/ws", func(w http.ResponseWriter, req *http.Request) {
		a.hub.ServeWS(ctx, w, req)
	})

	if metricsEnabled {
		if metricsPath == "" {
			metricsPath = "/metrics"
		}
		r.Handle(metricsPath, promhttp.Handler())
	}
	return r
}

func (a *API) handleHealth(w http.ResponseWriter, _ *http.Request) {
	a.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type lessonSummary struct {
	Slug        string `json:"slug"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Partitions  int    `json:"partitions"`
	Consumers   int    `json:"consumers"`
	Active      bool   `json:"active"`
}

func (a *API) handleListLessons(w http.ResponseWriter, _ *http.Request) {
	current := a.director.CurrentSlug()
	list := a.director.Catalog().List()

	out := make([]lessonSummary, 0, len(list))
	for _, d := range list {
		out = append(out, lessonSummary{
			Slug:        d.Slug,
			Title:       d.Title,
			Description: d.Description,
			Partitions:  d.Partitions,
			Consumers:   d.Consumers,
			Active:      d.Slug == current,
		})
	}
	a.writeJSON(w, http.StatusOK, out)
}

func (a *API) handleGetLesson(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	d, ok := a.director.Catalog().Get(slug)
	if !ok {
		a.writeError(w, http.StatusNotFound, lesson.ErrNotFound)
		return
	}
	a.writeJSON(w, http.StatusOK, d)
}

func (a *API) handleSceneSVG(w http.ResponseWriter, r *http.Request) {
	if slug := r.URL.Query().Get("lesson"); slug != "" && slug != a.director.CurrentSlug() {
		if err := a.director.SelectLesson(r.Context(), slug); err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, lesson.ErrNotFound) {
				status = http.StatusNotFound
			}
			a.writeError(w, status, err)
			return
		}
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(a.director.Frame())); err != nil {
		a.logger.Debug("svg write failed", zap.Error(err))
	}
}

func (a *API) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		a.logger.Debug("response write failed", zap.Error(err))
	}
}

func (a *API) writeError(w http.ResponseWriter, status int, err error) {
	a.writeJSON(w, status, map[string]string{"error": err.Error()})
}

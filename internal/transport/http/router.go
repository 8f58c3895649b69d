package httptransport

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"union-ledger/internal/config"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Deps are the services the router serves. Registry collects both the HTTP
// metrics and whatever else the caller registered on it.
type Deps struct {
	Directory Directory
	Importer  Importer
	Registry  *prometheus.Registry
}

func NewRouter(cfg config.ServerConfig, d Deps) *chi.Mux {
	adminHandlers := NewAdminHandlers(d.Directory)
	importHandlers := NewImportHandlers(d.Importer, cfg.MaxUploadMB)
	metrics := newHTTPMetrics(d.Registry)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(metrics.middleware)

	r.With(APILogMiddleware()).Get("/healthz", adminHandlers.Health())
	r.Handle("/metrics", promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{}))

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(APILogMiddleware())
		r.Use(AdminAuthMiddleware(cfg.AdminAPIKey))
		r.With(UploadRateLimit(cfg.UploadsPerMinute)).Post("/imports", importHandlers.Upload())
		r.Get("/imports", adminHandlers.ImportLogs())
		r.Get("/entities", adminHandlers.Entities())
		r.Get("/entities/{code}", adminHandlers.Entity())
		r.Get("/cycles/open", adminHandlers.OpenCycle())
	})
	return r
}

func LogRoutes(r chi.Router) {
	type routeDef struct {
		Method string
		Path   string
	}
	routes := make([]routeDef, 0, 16)
	err := chi.Walk(r, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes = append(routes, routeDef{Method: method, Path: route})
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("walk routes failed")
		return
	}
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path == routes[j].Path {
			return routes[i].Method < routes[j].Method
		}
		return routes[i].Path < routes[j].Path
	})
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Registered routes (%d):\n", len(routes)))
	for _, rt := range routes {
		b.WriteString(fmt.Sprintf("  %-6s %s\n", rt.Method, rt.Path))
	}
	fmt.Print(b.String())
}

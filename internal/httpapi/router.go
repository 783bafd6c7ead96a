package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// NewRouter wires every engine route.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID, Recover, AccessLog)

	origins := d.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID", "Last-Event-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", HealthHandler{Runs: d.Runs}.Health)

	rh := RunsHandler{Runs: d.Runs, Store: d.Store}
	r.Post("/runs", rh.Start)
	r.Post("/runs/import", rh.Import)
	r.Get("/runs/current", rh.Current)
	r.Post("/runs/{id}/cancel", rh.Cancel)
	r.Get("/runs/{id}/leads", rh.Leads)
	r.Get("/runs/{id}/export", rh.Export)

	eh := EventsHandler{Stream: d.Runs.Events(), KeepAlive: d.KeepAlive}
	r.Get("/events", eh.List)
	r.Get("/events/stream", eh.ServeSSE)

	hh := HistoryHandler{Store: d.Store, Limit: func() int { return d.config().History.Limit }}
	r.Get("/history", hh.List)

	ch := ConfigHandler{
		CfgVal:      d.CfgVal,
		UserCfgPath: d.UserCfgPath,
		LoadCfg:     d.LoadCfg,
	}
	r.Get("/config", ch.Get)
	r.Put("/config", ch.Put)
	r.Get("/config/validate", ch.Validate)
	r.Get("/catalog", ch.Catalog)

	return r
}

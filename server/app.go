package server

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// App holds server dependencies.
type App struct {
	db  *DB
	log *slog.Logger
}

// NewApp creates an App serving db.
func NewApp(db *sql.DB, log *slog.Logger) *App {
	if log == nil {
		log = slog.Default()
	}
	return &App{db: NewDB(db), log: log}
}

// Handler returns the HTTP handler (router with CORS, recovery, metrics and
// routes).
func (a *App) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(corsMiddleware)
	r.Use(metricsMiddleware)

	r.Route("/api", func(r chi.Router) {
		r.Get("/search", a.handleSearch)
		r.Get("/entity", a.handleEntity)
		r.Get("/references", a.handleReferences)
		r.Get("/callers", a.handleCallers)
		r.Get("/callees", a.handleCallees)
		r.Get("/receivers", a.handleReceivers)
		r.Get("/overrides", a.handleOverrides)
		r.Get("/stats", a.handleStats)
		r.Get("/source", a.handleSource)
		r.Get("/source/search", a.handleSourceSearch)
		r.Get("/meta", a.handleMeta)
	})
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// corsMiddleware sets CORS headers so a frontend on another port can call
// the API.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

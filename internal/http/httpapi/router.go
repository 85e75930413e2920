package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"server/internal/http/handlers"
	"server/internal/infra"
	"server/internal/middleware"
)

// RouterOptions carries the cross-cutting pieces the router wires in front of
// the handlers.
type RouterOptions struct {
	Logger          infra.Logger
	AllowedOrigins  []string
	DefaultLocale   string
	CountryLookup   middleware.CountryLookup
	RateLimitPerMin int
	// StaticDir, when set, is served under /static/ so the filesystem store's
	// public URLs resolve in development.
	StaticDir string
}

func NewRouter(app *handlers.App, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimiddleware.RealIP,
		chimiddleware.Recoverer,
		middleware.Logger(opts.Logger.With().Str("component", "http").Logger()),
		middleware.CORS(opts.AllowedOrigins),
		middleware.I18N(opts.DefaultLocale, opts.CountryLookup),
		middleware.Identity,
	)
	if opts.RateLimitPerMin > 0 {
		r.Use(middleware.RateLimit(opts.RateLimitPerMin, time.Minute))
	}

	r.Get("/v1/healthz", app.Health)

	if opts.StaticDir != "" {
		fileServer := http.StripPrefix("/static/", http.FileServer(http.Dir(opts.StaticDir)))
		r.Get("/static/*", fileServer.ServeHTTP)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/images", app.GenerateImage)
		r.Post("/videos", app.GenerateVideo)
		r.Route("/media", func(r chi.Router) {
			r.Get("/", app.ListMedia)
			r.Get("/export", app.ExportMedia)
			r.Delete("/{id}", app.DeleteMedia)
		})
	})

	return r
}

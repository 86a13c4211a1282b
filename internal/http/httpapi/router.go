package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"gamecre8/internal/http/handlers"
	"gamecre8/internal/infra"
	"gamecre8/internal/middleware"
)

// Options configures the router.
type Options struct {
	Logger          infra.Logger
	CORSOrigins     []string
	RateLimitPerMin int
	// AssetsDir, when set, is served read-only under /assets/.
	AssetsDir string
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(opts.Logger),
		middleware.CORS(opts.CORSOrigins),
	)

	r.Get("/v1/healthz", app.Health)

	r.Route("/api", func(r chi.Router) {
		r.Get("/get-game", app.GetGame)
		r.Get("/manifest", app.Manifest)
		r.Get("/scan-assets", app.ScanAssets)
		r.Get("/jobs/{id}", app.GetJob)

		// Everything below writes or runs the pipeline.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(opts.RateLimitPerMin, time.Minute))
			r.Get("/queue-prompt", app.QueuePrompt)
			r.Post("/queue-prompt", app.QueuePrompt)
			r.Get("/auto-enqueue", app.AutoEnqueue)
			r.Post("/auto-enqueue", app.AutoEnqueue)
			r.Get("/run-queue", app.RunQueue)
			r.Post("/run-queue", app.RunQueue)
			r.Post("/jobs/{id}/requeue", app.RequeueJob)
			r.Get("/generate", app.Generate)
			r.Post("/generate", app.Generate)
			r.Get("/prompt-to-play", app.PromptToPlay)
		})
	})

	if opts.AssetsDir != "" {
		fs := http.StripPrefix("/assets/", http.FileServer(http.Dir(opts.AssetsDir)))
		r.Get("/assets/*", fs.ServeHTTP)
	}

	return r
}

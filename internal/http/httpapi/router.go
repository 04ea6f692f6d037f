package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"modelcast-server/internal/http/handlers"
	appmw "modelcast-server/internal/middleware"
)

// RouterOptions carries the wiring the middleware stack needs beyond the App.
type RouterOptions struct {
	AllowedOrigins []string
	RateLimit      int
	CountryLookup  appmw.CountryLookup
}

func NewRouter(app *handlers.App, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(
		appmw.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		appmw.Logger(app.Logger),
		appmw.CORS(opts.AllowedOrigins),
		appmw.Country(opts.CountryLookup),
	)
	if opts.RateLimit > 0 {
		r.Use(appmw.RateLimit(opts.RateLimit, time.Minute))
	}

	r.Get("/v1/healthz", app.Health)

	// Provider callbacks and cron carry their own credentials.
	r.Post("/api/billing/webhook", app.BillingWebhook)
	r.Get("/api/cleanup", app.Cleanup)

	r.Group(func(r chi.Router) {
		r.Use(appmw.AuthJWT(app.Config.JWTSecret))

		r.Post("/api/generate", app.Generate)

		r.Post("/api/billing/checkout", app.BillingCheckout)
		r.Post("/api/billing/create-session", app.BillingCheckout)
		r.Post("/api/billing/confirm", app.BillingConfirm)

		r.Post("/api/auth/create-profile", app.CreateProfile)
		r.Post("/api/auth/sync-profile", app.SyncProfile)
		r.Get("/api/me", app.Me)

		r.Post("/api/upload", app.UploadSignature)
		r.Post("/api/upload/complete", app.UploadComplete)
	})

	return r
}

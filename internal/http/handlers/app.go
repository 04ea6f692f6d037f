package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"modelcast-server/internal/domain"
	"modelcast-server/internal/fashn"
	"modelcast-server/internal/infra"
	"modelcast-server/internal/middleware"
	"modelcast-server/internal/stripe"
)

// CheckoutAPI is the slice of the payment provider the handlers use.
type CheckoutAPI interface {
	CreateCheckoutSession(ctx context.Context, params stripe.CheckoutParams) (*stripe.CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, sessionID string, expandLineItems bool) (*stripe.CheckoutSession, error)
}

// AssetDeleter removes uploaded assets from media storage.
type AssetDeleter interface {
	Destroy(ctx context.Context, publicID string) error
	DeleteByToken(ctx context.Context, token string) error
}

type App struct {
	SQL     infra.SQLExecutor
	Logger  infra.Logger
	Config  *infra.Config
	Catalog *domain.PlanCatalog

	Primary  fashn.Runner
	Fallback fashn.Runner
	Stripe   CheckoutAPI
	Assets   AssetDeleter

	// Now is overridable in tests; nil means time.Now.
	Now func() time.Time
}

func (a *App) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, map[string]any{"error": map[string]string{"code": code, "message": message}})
}

// currentUserID resolves the authenticated user from the request context when
// the auth middleware ran, or directly from the bearer token / session cookie
// for routes mounted outside the authenticated group. Empty string means
// unauthenticated.
func (a *App) currentUserID(r *http.Request) string {
	if id := middleware.UserIDFromContext(r.Context()); id != "" {
		return id
	}
	token := middleware.BearerOrCookieToken(r)
	if token == "" {
		return ""
	}
	claims, err := middleware.VerifyJWT(a.Config.JWTSecret, token)
	if err != nil {
		return ""
	}
	return claims.Sub
}

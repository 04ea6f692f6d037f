package handlers

import (
	"net/http"
	"strings"

	"modelcast-server/internal/sweep"
)

const cleanupBatchSize = 100

// Cleanup is the cron entry point for the retention sweep. It is guarded by
// the shared cron secret rather than a user session.
func (a *App) Cleanup(w http.ResponseWriter, r *http.Request) {
	if !a.authorizeCron(r) {
		a.error(w, http.StatusUnauthorized, "unauthorized", "invalid cron credentials")
		return
	}
	if a.Assets == nil {
		a.error(w, http.StatusServiceUnavailable, "unavailable", "asset cleanup is not configured")
		return
	}
	res, err := sweep.Expired(r.Context(), a.SQL, a.Assets, a.Logger, cleanupBatchSize)
	if err != nil {
		a.Logger.Error().Err(err).Msg("cleanup sweep failed")
		a.error(w, http.StatusInternalServerError, "internal", "cleanup failed")
		return
	}
	a.json(w, http.StatusOK, map[string]int{"deleted": res.Deleted, "failed": res.Failed})
}

func (a *App) authorizeCron(r *http.Request) bool {
	if a.Config.CronSecret == "" {
		return false
	}
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	return ok && token == a.Config.CronSecret
}

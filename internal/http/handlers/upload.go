package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"modelcast-server/internal/cloudinary"
	"modelcast-server/internal/sqlinline"
)

// UploadSignature returns the signed parameters the browser needs to upload
// directly to the image host. The server never proxies image bytes.
func (a *App) UploadSignature(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	sig := cloudinary.NewUploadSignature(
		a.Config.CloudinaryCloudName,
		a.Config.CloudinaryAPIKey,
		a.Config.CloudinaryAPISecret,
		a.now(),
	)
	a.json(w, http.StatusOK, sig)
}

type uploadCompleteRequest struct {
	PublicID    string `json:"publicId"`
	DeleteToken string `json:"deleteToken"`
}

// UploadComplete records a finished direct upload so the retention sweep can
// find it. Duplicate notifications for the same public id are no-ops.
func (a *App) UploadComplete(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	var req uploadCompleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	publicID := strings.TrimSpace(req.PublicID)
	if publicID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "publicId required")
		return
	}
	if _, err := a.SQL.Exec(r.Context(), sqlinline.QInsertUpload, publicID, userID, strings.TrimSpace(req.DeleteToken)); err != nil {
		a.Logger.Error().Err(err).Str("public_id", publicID).Msg("upload tracking insert failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to track upload")
		return
	}
	a.json(w, http.StatusOK, map[string]bool{"ok": true})
}

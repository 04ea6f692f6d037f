package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"modelcast-server/internal/domain"
	"modelcast-server/internal/infra"
	"modelcast-server/internal/sqlinline"
)

type profileDTO struct {
	ID        string    `json:"id"`
	Credits   int       `json:"credits"`
	Plan      string    `json:"plan"`
	IsPro     bool      `json:"isPro"`
	IsStudio  bool      `json:"isStudio"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func profileToDTO(p domain.Profile) profileDTO {
	return profileDTO{
		ID:        p.ID,
		Credits:   p.Credits,
		Plan:      string(p.Plan),
		IsPro:     p.IsPro,
		IsStudio:  p.IsStudio,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

// bootstrapProfile inserts the profile with the free-tier grant on first sight
// and returns the current row otherwise. The insert is conflict-safe, so
// concurrent first requests settle on a single row with a single grant.
func (a *App) bootstrapProfile(ctx context.Context, userID string) (domain.Profile, error) {
	row := a.SQL.QueryRow(ctx, sqlinline.QUpsertProfile, userID, a.Config.FreeCredits)
	return scanProfile(row)
}

func (a *App) loadProfile(ctx context.Context, userID string) (domain.Profile, error) {
	row := a.SQL.QueryRow(ctx, sqlinline.QSelectProfileByID, userID)
	return scanProfile(row)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProfile(row scanner) (domain.Profile, error) {
	var p domain.Profile
	var plan string
	if err := row.Scan(&p.ID, &p.Credits, &plan, &p.IsPro, &p.IsStudio, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if infra.IsNoRows(err) {
			return domain.Profile{}, domain.ErrNotFound
		}
		return domain.Profile{}, err
	}
	p.Plan = domain.ParsePlan(plan)
	return p, nil
}

// CreateProfile provisions the account row for a newly authenticated user.
// Replays are harmless: the free grant is only applied on the first call.
func (a *App) CreateProfile(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	profile, err := a.bootstrapProfile(r.Context(), userID)
	if err != nil {
		a.Logger.Error().Err(err).Str("user_id", userID).Msg("profile bootstrap failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to provision profile")
		return
	}
	a.json(w, http.StatusOK, map[string]any{"success": true, "profile": profileToDTO(profile)})
}

// SyncProfile refreshes the session's view of the account. It shares the
// conflict-safe upsert with CreateProfile so a client that skipped the create
// call still ends up with a profile.
func (a *App) SyncProfile(w http.ResponseWriter, r *http.Request) {
	a.CreateProfile(w, r)
}

func (a *App) Me(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	profile, err := a.loadProfile(r.Context(), userID)
	if errors.Is(err, domain.ErrNotFound) {
		profile, err = a.bootstrapProfile(r.Context(), userID)
	}
	if err != nil {
		a.Logger.Error().Err(err).Str("user_id", userID).Msg("profile load failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load profile")
		return
	}
	a.json(w, http.StatusOK, profileToDTO(profile))
}

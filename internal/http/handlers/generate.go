package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"modelcast-server/internal/cloudinary"
	"modelcast-server/internal/domain"
	"modelcast-server/internal/fashn"
	"modelcast-server/internal/middleware"
	"modelcast-server/internal/prompt"
	"modelcast-server/internal/sqlinline"
)

type generateRequest struct {
	ImageURL      string `json:"imageUrl"`
	Image         string `json:"image"`
	ModelImageURL string `json:"modelImageUrl"`
	Mode          string `json:"mode"`
	Environment   string `json:"environment"`
	ModelType     string `json:"modelType"`
	AgeGroup      string `json:"ageGroup"`
	Gender        string `json:"gender"`
	Style         string `json:"style"`
	SkinTone      string `json:"skinTone"`
	AspectRatio   string `json:"aspectRatio"`
}

type generateResponse struct {
	Success          bool   `json:"success"`
	OutputURL        string `json:"outputUrl"`
	CreditsRemaining int    `json:"creditsRemaining"`
}

// Generate runs one paid generation: authenticate, validate inputs, gate on
// plan and balance, try candidate models in order, then decrement exactly one
// credit for the winning output. There is no request deduplication; identical
// payloads each spend a credit.
func (a *App) Generate(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}

	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}

	garmentURL := strings.TrimSpace(req.ImageURL)
	if garmentURL == "" {
		garmentURL = strings.TrimSpace(req.Image)
	}
	prefix := a.Config.TrustedImagePrefix()
	if garmentURL == "" || !strings.HasPrefix(garmentURL, prefix) {
		a.error(w, http.StatusBadRequest, "invalid_image", "garment image must come from the upload host")
		return
	}
	modelImageURL := strings.TrimSpace(req.ModelImageURL)
	if modelImageURL != "" && !strings.HasPrefix(modelImageURL, prefix) {
		a.error(w, http.StatusBadRequest, "invalid_image", "model image must come from the upload host")
		return
	}
	advanced := strings.EqualFold(req.Mode, "advanced")
	if advanced && modelImageURL == "" {
		a.error(w, http.StatusBadRequest, "invalid_input", "advanced mode requires a model image")
		return
	}

	profile, err := a.bootstrapProfile(r.Context(), userID)
	if err != nil {
		a.Logger.Error().Err(err).Str("user_id", userID).Msg("profile bootstrap failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load profile")
		return
	}
	if advanced && !profile.Plan.IsPro() {
		a.error(w, http.StatusForbidden, "plan_gated", "advanced mode requires a pro plan")
		return
	}
	if profile.Credits <= 0 {
		a.error(w, http.StatusPaymentRequired, "payment_required", "no credits remaining")
		return
	}

	assembled := prompt.Assemble(prompt.Options{
		AgeGroup:    req.AgeGroup,
		Gender:      req.Gender,
		SkinTone:    req.SkinTone,
		StyleType:   req.Style,
		Environment: req.Environment,
		ModelType:   req.ModelType,
		AspectRatio: req.AspectRatio,
	}, nil)

	gc := fashn.GenerationContext{
		GarmentImageURL: garmentURL,
		ModelImageURL:   modelImageURL,
		Prompt:          assembled.Prompt,
	}

	outputURL, err := a.runCandidates(r, gc, modelImageURL != "")
	if err != nil {
		a.recordUsage(r, userID, "generation", false, 0, map[string]any{"error": err.Error()})
		a.Logger.Error().Err(err).Str("user_id", userID).Msg("generation failed")
		a.error(w, http.StatusBadGateway, "upstream", "generation failed")
		return
	}

	var remaining int
	if err := a.SQL.QueryRow(r.Context(), sqlinline.QSpendCredit, userID).Scan(&remaining); err != nil {
		// Generation already happened; surfacing a 500 here is deliberate so
		// the books never show more credits than were spent.
		a.Logger.Error().Err(err).Str("user_id", userID).Msg("credit decrement failed after generation")
		a.error(w, http.StatusInternalServerError, "internal", "failed to record credit")
		return
	}

	if !profile.Plan.IsPro() {
		outputURL = cloudinary.EnsureWatermark(outputURL, cloudinary.WatermarkOptions{CacheBust: true})
	}

	a.recordUsage(r, userID, "generation", true, 1, map[string]any{"advanced": advanced})
	a.json(w, http.StatusOK, generateResponse{Success: true, OutputURL: outputURL, CreditsRemaining: remaining})
}

// runCandidates walks the fixed candidate model list in order. A failure on
// one candidate is recorded and the next is tried; the last error surfaces
// only when every candidate is exhausted.
func (a *App) runCandidates(r *http.Request, gc fashn.GenerationContext, hasModelImage bool) (string, error) {
	runners := []fashn.Runner{a.Primary}
	if a.Fallback != nil {
		runners = append(runners, a.Fallback)
	}

	var lastErr error
	for _, runner := range runners {
		for _, model := range fashn.ModelCandidates(hasModelImage) {
			inputs, err := fashn.BuildInputs(model, gc, fashn.BuildOptions{IncludePrompt: true})
			if err != nil {
				lastErr = err
				continue
			}
			inputs, err = fashn.EnforceWhitelist(model, inputs)
			if err != nil {
				lastErr = err
				continue
			}
			output, err := runner.Run(r.Context(), model, inputs)
			if err != nil {
				a.Logger.Warn().Err(err).Str("model", model).Msg("candidate model failed")
				lastErr = err
				continue
			}
			return output, nil
		}
	}
	if lastErr == nil {
		lastErr = errors.New("no generation backend available")
	}
	return "", fmt.Errorf("%w: %v", domain.ErrUpstream, lastErr)
}

// recordUsage writes an analytics event; failures are logged and swallowed so
// bookkeeping never breaks the request.
func (a *App) recordUsage(r *http.Request, userID, eventType string, success bool, creditsSpent int, props map[string]any) {
	country := middleware.CountryFromContext(r.Context())
	propsJSON, err := json.Marshal(props)
	if err != nil {
		propsJSON = []byte("{}")
	}
	if _, err := a.SQL.Exec(r.Context(), sqlinline.QInsertUsageEvent, userID, eventType, success, creditsSpent, country, propsJSON); err != nil {
		a.Logger.Warn().Err(err).Str("event_type", eventType).Msg("usage event write failed")
	}
}

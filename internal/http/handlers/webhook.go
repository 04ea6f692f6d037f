package handlers

import (
	"io"
	"net/http"

	"modelcast-server/internal/billing"
	"modelcast-server/internal/stripe"
)

// BillingWebhook processes provider events. Verification failures are 400 so
// the provider retries with a fresh signature; recognized, duplicate, and
// ignored events all return 200 to stop redelivery.
func (a *App) BillingWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "unreadable payload")
		return
	}

	event, err := stripe.ConstructEvent(payload, r.Header.Get(stripe.SignatureHeader), a.Config.StripeWebhookSecret)
	if err != nil {
		a.Logger.Warn().Err(err).Msg("webhook signature rejected")
		a.error(w, http.StatusBadRequest, "invalid_signature", "signature verification failed")
		return
	}

	if event.Type != stripe.EventCheckoutCompleted {
		a.json(w, http.StatusOK, map[string]bool{"ok": true})
		return
	}

	if a.Stripe == nil {
		a.error(w, http.StatusServiceUnavailable, "unavailable", "billing is not configured")
		return
	}

	sessionID, err := event.CheckoutSessionID()
	if err != nil {
		a.Logger.Error().Err(err).Str("event_id", event.ID).Msg("webhook event missing session id")
		a.error(w, http.StatusInternalServerError, "internal", "malformed event payload")
		return
	}

	// Re-fetch the session so the purchased price comes from the API, not
	// from the event payload the caller could have staged.
	session, err := a.Stripe.GetCheckoutSession(r.Context(), sessionID, true)
	if err != nil {
		a.Logger.Error().Err(err).Str("session_id", sessionID).Msg("webhook session fetch failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to fetch checkout session")
		return
	}
	if !session.Paid() {
		a.json(w, http.StatusOK, map[string]bool{"ok": true})
		return
	}

	userID := session.Metadata["user_id"]
	if userID == "" {
		a.Logger.Error().Str("session_id", sessionID).Msg("webhook session has no user metadata")
		a.error(w, http.StatusInternalServerError, "internal", "session missing user metadata")
		return
	}

	grant, ok := a.grantForSession(session, "")
	if !ok {
		a.Logger.Warn().Str("session_id", sessionID).Msg("webhook session maps to no known plan")
		a.json(w, http.StatusOK, map[string]bool{"ok": true})
		return
	}

	res, err := billing.ApplyPurchase(r.Context(), a.SQL, session.ID, userID, grant)
	if err != nil {
		a.Logger.Error().Err(err).Str("session_id", sessionID).Msg("webhook apply purchase failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to apply purchase")
		return
	}
	if res.Duplicate {
		a.Logger.Info().Str("session_id", sessionID).Msg("webhook purchase already applied")
	}
	a.json(w, http.StatusOK, map[string]bool{"ok": true})
}

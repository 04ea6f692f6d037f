package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"modelcast-server/internal/billing"
	"modelcast-server/internal/domain"
	"modelcast-server/internal/stripe"
)

type checkoutRequest struct {
	PlanID  string `json:"planId"`
	PriceID string `json:"priceId"`
}

type confirmRequest struct {
	SessionID string `json:"sessionId"`
	PlanID    string `json:"planId"`
}

// BillingCheckout creates a hosted checkout session for a purchasable plan and
// returns the redirect URL. Nothing is mutated locally; the grant is applied
// later by confirm or the webhook.
func (a *App) BillingCheckout(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	if a.Stripe == nil {
		a.error(w, http.StatusServiceUnavailable, "unavailable", "billing is not configured")
		return
	}
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}

	priceID := strings.TrimSpace(req.PriceID)
	if priceID == "" {
		id, ok := a.Catalog.PriceForPlanID(strings.TrimSpace(req.PlanID))
		if !ok {
			a.error(w, http.StatusBadRequest, "bad_request", "unknown plan")
			return
		}
		priceID = id
	}
	grant, ok := a.Catalog.GrantForPrice(priceID)
	if !ok {
		a.error(w, http.StatusBadRequest, "bad_request", "unknown price")
		return
	}

	params := stripe.CheckoutParams{
		PriceID:    priceID,
		SuccessURL: a.Config.SiteURL + "/dashboard?session_id={CHECKOUT_SESSION_ID}&plan=" + string(grant.Plan),
		CancelURL:  a.Config.SiteURL + "/pricing",
		Metadata: map[string]string{
			"user_id": userID,
			"plan_id": string(grant.Plan),
			"credits": strconv.Itoa(grant.Credits),
		},
	}
	session, err := a.Stripe.CreateCheckoutSession(r.Context(), params)
	if err != nil {
		a.Logger.Error().Err(err).Str("user_id", userID).Msg("checkout session create failed")
		a.error(w, http.StatusBadGateway, "upstream", "failed to create checkout session")
		return
	}
	a.json(w, http.StatusOK, map[string]string{"url": session.URL})
}

// BillingConfirm applies a purchase synchronously when the user returns from
// checkout. It shares the session-keyed ledger with the webhook, so whichever
// path lands first wins and the other is a no-op.
func (a *App) BillingConfirm(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	if a.Stripe == nil {
		a.error(w, http.StatusServiceUnavailable, "unavailable", "billing is not configured")
		return
	}
	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if strings.TrimSpace(req.SessionID) == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "sessionId required")
		return
	}

	session, err := a.Stripe.GetCheckoutSession(r.Context(), req.SessionID, true)
	if err != nil {
		a.Logger.Error().Err(err).Str("session_id", req.SessionID).Msg("checkout session fetch failed")
		a.error(w, http.StatusBadGateway, "upstream", "failed to verify checkout session")
		return
	}
	if !session.Paid() {
		a.error(w, http.StatusPaymentRequired, "not_paid", "checkout session is not paid")
		return
	}
	if owner := session.Metadata["user_id"]; owner != userID {
		a.error(w, http.StatusForbidden, "forbidden", "checkout session belongs to another account")
		return
	}

	grant, ok := a.grantForSession(session, req.PlanID)
	if !ok {
		a.error(w, http.StatusBadRequest, "bad_request", "session does not map to a known plan")
		return
	}

	res, err := billing.ApplyPurchase(r.Context(), a.SQL, session.ID, userID, grant)
	if err != nil {
		a.Logger.Error().Err(err).Str("session_id", session.ID).Msg("apply purchase failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to apply purchase")
		return
	}
	if res.Duplicate {
		profile, err := a.loadProfile(r.Context(), userID)
		if err != nil {
			a.error(w, http.StatusInternalServerError, "internal", "failed to load profile")
			return
		}
		a.json(w, http.StatusOK, map[string]any{"success": true, "credits": profile.Credits, "plan": string(profile.Plan)})
		return
	}
	a.json(w, http.StatusOK, map[string]any{"success": true, "credits": res.Credits, "plan": string(res.Plan)})
}

// grantForSession resolves the grant from the purchased line item, falling
// back to session metadata and finally the plan id the client claimed.
func (a *App) grantForSession(session *stripe.CheckoutSession, claimedPlanID string) (domain.PlanGrant, bool) {
	if priceID := session.PurchasedPriceID(); priceID != "" {
		if grant, ok := a.Catalog.GrantForPrice(priceID); ok {
			return grant, true
		}
	}
	planID := session.Metadata["plan_id"]
	if planID == "" {
		planID = claimedPlanID
	}
	plan := domain.ParsePlan(planID)
	if plan == domain.PlanFree {
		return domain.PlanGrant{}, false
	}
	return domain.GrantForPlan(plan)
}

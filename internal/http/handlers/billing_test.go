package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"modelcast-server/internal/stripe"
)

func paidSession(priceID string) *stripe.CheckoutSession {
	s := &stripe.CheckoutSession{
		ID:            "cs_test_123",
		URL:           "https://checkout.stripe.test/cs_test_123",
		PaymentStatus: "paid",
		Metadata:      map[string]string{"user_id": testUserID, "plan_id": "pro"},
	}
	s.LineItems.Data = []stripe.LineItem{{Price: stripe.Price{ID: priceID}}}
	return s
}

func TestBillingCheckoutReturnsRedirectURL(t *testing.T) {
	checkout := &stubCheckout{session: paidSession("price_pro")}
	app := newTestApp(&stubStore{credits: 3})
	app.Stripe = checkout

	req := authedRequest("POST", "/api/billing/checkout", strings.NewReader(`{"planId":"pro"}`))
	rr := httptest.NewRecorder()

	app.BillingCheckout(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body=%s", rr.Code, rr.Body.String())
	}
	var resp map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["url"] == "" {
		t.Fatal("expected redirect url")
	}
	if checkout.lastParams.PriceID != "price_pro" {
		t.Fatalf("price id = %q", checkout.lastParams.PriceID)
	}
	if checkout.lastParams.Metadata["user_id"] != testUserID {
		t.Fatalf("metadata user_id = %q", checkout.lastParams.Metadata["user_id"])
	}
	if checkout.lastParams.Metadata["credits"] != "50" {
		t.Fatalf("metadata credits = %q", checkout.lastParams.Metadata["credits"])
	}
}

func TestBillingCheckoutUnknownPlan(t *testing.T) {
	app := newTestApp(&stubStore{})
	app.Stripe = &stubCheckout{}

	req := authedRequest("POST", "/api/billing/checkout", strings.NewReader(`{"planId":"enterprise"}`))
	rr := httptest.NewRecorder()

	app.BillingCheckout(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400; body=%s", rr.Code, rr.Body.String())
	}
}

func TestBillingConfirmAppliesGrant(t *testing.T) {
	store := &stubStore{credits: 53, plan: "pro"}
	app := newTestApp(store)
	app.Stripe = &stubCheckout{session: paidSession("price_pro")}

	req := authedRequest("POST", "/api/billing/confirm", strings.NewReader(`{"sessionId":"cs_test_123","planId":"pro"}`))
	rr := httptest.NewRecorder()

	app.BillingConfirm(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body=%s", rr.Code, rr.Body.String())
	}
	var resp map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["plan"] != "pro" {
		t.Fatalf("plan = %v", resp["plan"])
	}
	if resp["credits"].(float64) != 53 {
		t.Fatalf("credits = %v", resp["credits"])
	}
	if len(store.ledgerInserts) != 1 || store.ledgerInserts[0] != "cs_test_123" {
		t.Fatalf("ledger inserts = %v", store.ledgerInserts)
	}
}

func TestBillingConfirmUnpaidSession(t *testing.T) {
	session := paidSession("price_pro")
	session.PaymentStatus = "unpaid"
	app := newTestApp(&stubStore{})
	app.Stripe = &stubCheckout{session: session}

	req := authedRequest("POST", "/api/billing/confirm", strings.NewReader(`{"sessionId":"cs_test_123"}`))
	rr := httptest.NewRecorder()

	app.BillingConfirm(rr, req)

	if rr.Code != http.StatusPaymentRequired {
		t.Fatalf("status = %d, want 402; body=%s", rr.Code, rr.Body.String())
	}
}

func TestBillingConfirmRejectsForeignSession(t *testing.T) {
	session := paidSession("price_pro")
	session.Metadata["user_id"] = "22222222-2222-2222-2222-222222222222"
	store := &stubStore{}
	app := newTestApp(store)
	app.Stripe = &stubCheckout{session: session}

	req := authedRequest("POST", "/api/billing/confirm", strings.NewReader(`{"sessionId":"cs_test_123"}`))
	rr := httptest.NewRecorder()

	app.BillingConfirm(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403; body=%s", rr.Code, rr.Body.String())
	}
	if len(store.ledgerInserts) != 0 {
		t.Fatal("foreign session must not grant credits")
	}
}

func TestBillingConfirmDuplicateReturnsCurrentProfile(t *testing.T) {
	store := &stubStore{credits: 53, plan: "pro", ledgerErr: &pgconn.PgError{Code: "23505"}}
	app := newTestApp(store)
	app.Stripe = &stubCheckout{session: paidSession("price_pro")}

	req := authedRequest("POST", "/api/billing/confirm", strings.NewReader(`{"sessionId":"cs_test_123"}`))
	rr := httptest.NewRecorder()

	app.BillingConfirm(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body=%s", rr.Code, rr.Body.String())
	}
	var resp map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["credits"].(float64) != 53 {
		t.Fatalf("credits = %v, want current balance", resp["credits"])
	}
}

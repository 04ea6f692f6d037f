package stripe

import (
	"errors"
	"testing"
	"time"
)

const testSecret = "whsec_test"

func TestVerifySignatureRoundTrip(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed"}`)
	header := SignPayload(payload, testSecret, time.Now())

	if err := VerifySignature(payload, header, testSecret, DefaultTolerance, time.Now()); err != nil {
		t.Fatalf("VerifySignature error: %v", err)
	}
}

func TestVerifySignatureWrongSecret(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)
	header := SignPayload(payload, "whsec_other", time.Now())

	err := VerifySignature(payload, header, testSecret, DefaultTolerance, time.Now())
	if !errors.Is(err, ErrSignatureMismatch) {
		t.Fatalf("expected ErrSignatureMismatch, got %v", err)
	}
}

func TestVerifySignatureTamperedPayload(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)
	header := SignPayload(payload, testSecret, time.Now())

	err := VerifySignature([]byte(`{"id":"evt_2"}`), header, testSecret, DefaultTolerance, time.Now())
	if !errors.Is(err, ErrSignatureMismatch) {
		t.Fatalf("expected ErrSignatureMismatch, got %v", err)
	}
}

func TestVerifySignatureStaleTimestamp(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)
	header := SignPayload(payload, testSecret, time.Now().Add(-time.Hour))

	err := VerifySignature(payload, header, testSecret, DefaultTolerance, time.Now())
	if !errors.Is(err, ErrTimestampTooOld) {
		t.Fatalf("expected ErrTimestampTooOld, got %v", err)
	}
}

func TestVerifySignatureMalformedHeader(t *testing.T) {
	for _, header := range []string{"", "v1=abc", "t=notanumber,v1=abc", "t=123"} {
		err := VerifySignature([]byte("{}"), header, testSecret, 0, time.Now())
		if !errors.Is(err, ErrInvalidSignatureHeader) {
			t.Fatalf("header %q: expected ErrInvalidSignatureHeader, got %v", header, err)
		}
	}
}

func TestConstructEvent(t *testing.T) {
	payload := []byte(`{"id":"evt_42","type":"checkout.session.completed","data":{"object":{"id":"cs_123"}}}`)
	header := SignPayload(payload, testSecret, time.Now())

	event, err := ConstructEvent(payload, header, testSecret)
	if err != nil {
		t.Fatalf("ConstructEvent error: %v", err)
	}
	if event.ID != "evt_42" || event.Type != EventCheckoutCompleted {
		t.Fatalf("event mismatch: %+v", event)
	}
	sessionID, err := event.CheckoutSessionID()
	if err != nil {
		t.Fatalf("CheckoutSessionID error: %v", err)
	}
	if sessionID != "cs_123" {
		t.Fatalf("session id mismatch: %s", sessionID)
	}
}

func TestConstructEventRejectsUnsigned(t *testing.T) {
	if _, err := ConstructEvent([]byte(`{"id":"evt_1"}`), "", testSecret); err == nil {
		t.Fatalf("unsigned payload must be rejected")
	}
}

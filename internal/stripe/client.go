package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to the Stripe REST API with form-encoded requests.
type Client struct {
	httpClient *http.Client
	baseURL    string
	secretKey  string
}

type Options struct {
	BaseURL    string
	SecretKey  string
	HTTPClient *http.Client
}

func NewClient(opts Options) *Client {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = "https://api.stripe.com/v1"
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		httpClient: client,
		baseURL:    base,
		secretKey:  strings.TrimSpace(opts.SecretKey),
	}
}

// Price identifies the purchased Stripe price.
type Price struct {
	ID string `json:"id"`
}

// LineItem is one purchased item in an expanded checkout session.
type LineItem struct {
	Price Price `json:"price"`
}

// CheckoutSession mirrors the fields of the Stripe object this service reads.
type CheckoutSession struct {
	ID            string            `json:"id"`
	URL           string            `json:"url"`
	PaymentStatus string            `json:"payment_status"`
	Metadata      map[string]string `json:"metadata"`
	LineItems     struct {
		Data []LineItem `json:"data"`
	} `json:"line_items"`
}

// Paid reports whether the session settled.
func (s *CheckoutSession) Paid() bool {
	return s != nil && s.PaymentStatus == "paid"
}

// PurchasedPriceID returns the price id of the first line item, when expanded.
func (s *CheckoutSession) PurchasedPriceID() string {
	if s == nil || len(s.LineItems.Data) == 0 {
		return ""
	}
	return s.LineItems.Data[0].Price.ID
}

// CheckoutParams describes a checkout session to create.
type CheckoutParams struct {
	PriceID    string
	SuccessURL string
	CancelURL  string
	Metadata   map[string]string
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// CreateCheckoutSession creates a payment-mode checkout session carrying the
// given metadata opaque to Stripe.
func (c *Client) CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*CheckoutSession, error) {
	if c.secretKey == "" {
		return nil, errors.New("stripe: secret key is missing")
	}
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("line_items[0][price]", params.PriceID)
	form.Set("line_items[0][quantity]", "1")
	form.Set("success_url", params.SuccessURL)
	form.Set("cancel_url", params.CancelURL)
	for k, v := range params.Metadata {
		form.Set("metadata["+k+"]", v)
	}

	var session CheckoutSession
	if err := c.do(ctx, http.MethodPost, "/checkout/sessions", form, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// GetCheckoutSession retrieves a session, optionally expanded with its line
// items so the actual purchased price id can be read.
func (c *Client) GetCheckoutSession(ctx context.Context, sessionID string, expandLineItems bool) (*CheckoutSession, error) {
	if c.secretKey == "" {
		return nil, errors.New("stripe: secret key is missing")
	}
	path := "/checkout/sessions/" + url.PathEscape(sessionID)
	if expandLineItems {
		path += "?" + url.Values{"expand[0]": {"line_items"}}.Encode()
	}
	var session CheckoutSession
	if err := c.do(ctx, http.MethodGet, path, nil, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *Client) do(ctx context.Context, method, path string, form url.Values, out any) error {
	var body *strings.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	} else {
		body = strings.NewReader("")
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr apiError
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr); decodeErr == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("stripe: %s", apiErr.Error.Message)
		}
		return fmt.Errorf("stripe: http %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

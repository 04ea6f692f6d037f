package cloudinary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// AdminClient deletes hosted assets. Deletion prefers the per-upload delete
// token when one is known; otherwise it falls back to a signed destroy call.
type AdminClient struct {
	httpClient *http.Client
	baseURL    string
	cloudName  string
	apiKey     string
	apiSecret  string
}

type AdminOptions struct {
	BaseURL    string
	CloudName  string
	APIKey     string
	APISecret  string
	HTTPClient *http.Client
}

func NewAdminClient(opts AdminOptions) *AdminClient {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = "https://api.cloudinary.com/v1_1"
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &AdminClient{
		httpClient: client,
		baseURL:    base,
		cloudName:  opts.CloudName,
		apiKey:     opts.APIKey,
		apiSecret:  opts.APISecret,
	}
}

type deleteResult struct {
	Result string `json:"result"`
	Error  struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Destroy removes an asset by public id using a signed admin call.
func (c *AdminClient) Destroy(ctx context.Context, publicID string) error {
	if c == nil || c.apiSecret == "" {
		return errors.New("cloudinary: admin credentials missing")
	}
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	signature := SignParams(map[string]string{
		"public_id": publicID,
		"timestamp": timestamp,
	}, c.apiSecret)

	form := url.Values{}
	form.Set("public_id", publicID)
	form.Set("timestamp", timestamp)
	form.Set("api_key", c.apiKey)
	form.Set("signature", signature)

	endpoint := fmt.Sprintf("%s/%s/image/destroy", c.baseURL, c.cloudName)
	return c.post(ctx, endpoint, form)
}

// DeleteByToken removes an asset using the short-lived token returned at
// upload time. No admin credentials are involved.
func (c *AdminClient) DeleteByToken(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return errors.New("cloudinary: delete token required")
	}
	form := url.Values{}
	form.Set("token", token)

	endpoint := fmt.Sprintf("%s/%s/delete_by_token", c.baseURL, c.cloudName)
	return c.post(ctx, endpoint, form)
}

func (c *AdminClient) post(ctx context.Context, endpoint string, form url.Values) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var result deleteResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return fmt.Errorf("cloudinary: http %d", resp.StatusCode)
		}
		return err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		if result.Error.Message != "" {
			return fmt.Errorf("cloudinary: %s", result.Error.Message)
		}
		return fmt.Errorf("cloudinary: http %d", resp.StatusCode)
	}
	// "not found" counts as deleted for sweep purposes.
	if result.Result != "" && result.Result != "ok" && result.Result != "not found" {
		return fmt.Errorf("cloudinary: unexpected result %q", result.Result)
	}
	return nil
}

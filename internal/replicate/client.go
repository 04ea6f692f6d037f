package replicate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Client is the feature-flagged alternative generation backend. It is only
// wired into the candidate list when REPLICATE_ENABLED is set.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	token        string
	version      string
	pollInterval time.Duration
	pollTimeout  time.Duration
}

type Options struct {
	BaseURL      string
	Token        string
	Version      string
	HTTPClient   *http.Client
	PollInterval time.Duration
	PollTimeout  time.Duration
}

func NewClient(opts Options) *Client {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = "https://api.replicate.com/v1"
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	interval := opts.PollInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	timeout := opts.PollTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		httpClient:   client,
		baseURL:      base,
		token:        strings.TrimSpace(opts.Token),
		version:      strings.TrimSpace(opts.Version),
		pollInterval: interval,
		pollTimeout:  timeout,
	}
}

type prediction struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Output any    `json:"output"`
	Error  string `json:"error"`
}

type predictionRequest struct {
	Version string         `json:"version"`
	Input   map[string]any `json:"input"`
}

// Run submits a prediction and polls it to completion. The model argument is
// accepted for interface compatibility with the primary backend; the
// prediction version comes from configuration.
func (c *Client) Run(ctx context.Context, _ string, inputs map[string]any) (string, error) {
	if c == nil || c.token == "" {
		return "", errors.New("replicate: API token is missing")
	}
	if c.version == "" {
		return "", errors.New("replicate: model version is missing")
	}

	body, err := json.Marshal(predictionRequest{Version: c.version, Input: inputs})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predictions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Token "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	var created prediction
	err = json.NewDecoder(resp.Body).Decode(&created)
	resp.Body.Close()
	if err != nil {
		return "", err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		if created.Error != "" {
			return "", fmt.Errorf("replicate: %s", created.Error)
		}
		return "", fmt.Errorf("replicate: http %d", resp.StatusCode)
	}
	if created.ID == "" {
		return "", errors.New("replicate: missing prediction id")
	}

	deadline := time.Now().Add(c.pollTimeout)
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}
		if time.Now().After(deadline) {
			return "", fmt.Errorf("replicate: prediction %s timed out after %s", created.ID, c.pollTimeout)
		}

		current, err := c.get(ctx, created.ID)
		if err != nil {
			return "", err
		}
		switch current.Status {
		case "succeeded":
			return firstOutputURL(current.Output)
		case "failed", "canceled":
			if current.Error != "" {
				return "", fmt.Errorf("replicate: prediction failed: %s", current.Error)
			}
			return "", errors.New("replicate: prediction failed")
		}
	}
}

func (c *Client) get(ctx context.Context, id string) (prediction, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/predictions/"+id, nil)
	if err != nil {
		return prediction{}, err
	}
	req.Header.Set("Authorization", "Token "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return prediction{}, err
	}
	defer resp.Body.Close()

	var p prediction
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return prediction{}, err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return prediction{}, fmt.Errorf("replicate: http %d", resp.StatusCode)
	}
	return p, nil
}

// Output shape varies per model: a bare URL string or a list of URLs.
func firstOutputURL(output any) (string, error) {
	switch v := output.(type) {
	case string:
		if strings.TrimSpace(v) != "" {
			return v, nil
		}
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				return s, nil
			}
		}
	}
	return "", errors.New("replicate: prediction succeeded without output url")
}

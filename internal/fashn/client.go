package fashn

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

// Job states reported by the status endpoint.
const (
	StatusStarting   = "starting"
	StatusInQueue    = "in_queue"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Runner submits a generation and blocks until it resolves to an output URL.
type Runner interface {
	Run(ctx context.Context, model string, inputs map[string]any) (string, error)
}

type Options struct {
	BaseURL      string
	APIKey       string
	HTTPClient   *http.Client
	PollInterval time.Duration
	PollTimeout  time.Duration
}

type Client struct {
	httpClient   *http.Client
	baseURL      string
	token        string
	pollInterval time.Duration
	pollTimeout  time.Duration
}

func NewClient(opts Options) *Client {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = "https://api.fashn.ai/v1"
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
		token:        strings.TrimSpace(opts.APIKey),
		pollInterval: interval,
		pollTimeout:  timeout,
	}
}

type runRequest struct {
	ModelName string         `json:"model_name"`
	Inputs    map[string]any `json:"inputs"`
}

type runResponse struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// JobStatus is one poll result.
type JobStatus struct {
	ID     string   `json:"id"`
	Status string   `json:"status"`
	Output []string `json:"output"`
	Error  string   `json:"error"`
}

// Submit starts a generation job and returns its id.
func (c *Client) Submit(ctx context.Context, model string, inputs map[string]any) (string, error) {
	if c == nil {
		return "", errors.New("fashn client not configured")
	}
	if c.token == "" {
		return "", errors.New("fashn: API key is missing")
	}
	body, err := json.Marshal(runRequest{ModelName: model, Inputs: inputs})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/run", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out runResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return "", fmt.Errorf("fashn: http %d", resp.StatusCode)
		}
		return "", err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		if out.Error != "" {
			return "", fmt.Errorf("fashn: %s", out.Error)
		}
		return "", fmt.Errorf("fashn: http %d", resp.StatusCode)
	}
	if strings.TrimSpace(out.ID) == "" {
		return "", errors.New("fashn: missing job id")
	}
	return out.ID, nil
}

// Status fetches the current state of a job.
func (c *Client) Status(ctx context.Context, jobID string) (JobStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/status/"+jobID, nil)
	if err != nil {
		return JobStatus{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return JobStatus{}, err
	}
	defer resp.Body.Close()

	var status JobStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return JobStatus{}, err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		if status.Error != "" {
			return JobStatus{}, fmt.Errorf("fashn: %s", status.Error)
		}
		return JobStatus{}, fmt.Errorf("fashn: http %d", resp.StatusCode)
	}
	return status, nil
}

// Run submits the job and polls its status until it completes, fails, or the
// polling budget runs out. The job id is discarded once resolved.
func (c *Client) Run(ctx context.Context, model string, inputs map[string]any) (string, error) {
	submitCtx, cancel := context.WithTimeout(ctx, c.pollTimeout)
	jobID, err := c.Submit(submitCtx, model, inputs)
	cancel()
	if err != nil {
		return "", err
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
			return "", fmt.Errorf("fashn: job %s timed out after %s", jobID, c.pollTimeout)
		}

		status, err := c.Status(ctx, jobID)
		if err != nil {
			return "", err
		}
		switch status.Status {
		case StatusCompleted:
			if len(status.Output) == 0 || strings.TrimSpace(status.Output[0]) == "" {
				return "", errors.New("fashn: completed without output")
			}
			return status.Output[0], nil
		case StatusFailed:
			if status.Error != "" {
				return "", fmt.Errorf("fashn: generation failed: %s", status.Error)
			}
			return "", errors.New("fashn: generation failed")
		case StatusStarting, StatusInQueue, StatusProcessing:
			// keep polling
		default:
			return "", fmt.Errorf("fashn: unexpected job status %q", status.Status)
		}
	}
}

var _ Runner = (*Client)(nil)

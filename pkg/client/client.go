// Package client is a Go SDK for the playops-engine API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/playops-hq/playops-engine/internal/matching"
	"github.com/playops-hq/playops-engine/internal/models"
)

// Client is a Go SDK for the playops-engine API
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Option configures the client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the client timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new playops-engine client
func NewClient(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// apiErr is the error payload the flat runner endpoints return
type apiErr struct {
	Error string `json:"error"`
}

// StartSession opens a new session against a published runtime
func (c *Client) StartSession(ctx context.Context, runtimeID string) (*models.StartResponse, error) {
	body, err := json.Marshal(models.SessionManagerRequest{
		Action:    "start",
		RuntimeID: runtimeID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := c.doRequest(ctx, "POST", "/api/v1/session-manager", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var result models.StartResponse
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return &result, nil
}

// RecordEvent appends one telemetry event to an open session
func (c *Client) RecordEvent(ctx context.Context, sessionID, eventType string, payload json.RawMessage) error {
	body, err := json.Marshal(models.SessionManagerRequest{
		Action:    "event",
		SessionID: sessionID,
		EventType: eventType,
		Payload:   payload,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	_, err = c.doRequest(ctx, "POST", "/api/v1/session-manager", bytes.NewReader(body))
	return err
}

// FinishSession submits the finish-time signals and returns the outcome
func (c *Client) FinishSession(ctx context.Context, sessionID string, accuracy, timeS, edgeScore float64, metrics map[string]any) (*models.FinishResponse, error) {
	body, err := json.Marshal(models.SessionManagerRequest{
		Action:    "finish",
		SessionID: sessionID,
		Accuracy:  accuracy,
		TimeS:     timeS,
		EdgeScore: edgeScore,
		Metrics:   metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := c.doRequest(ctx, "POST", "/api/v1/session-manager", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var result models.FinishResponse
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return &result, nil
}

// ValidateAnswers grades free-text answers against accepted references
func (c *Client) ValidateAnswers(ctx context.Context, questions []matching.Question) (*matching.GradeResult, error) {
	body, err := json.Marshal(map[string]interface{}{"questions": questions})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := c.doRequest(ctx, "POST", "/api/v1/validate-answers", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var result matching.GradeResult
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return &result, nil
}

// CheckCompliance runs the static markup checker server-side
func (c *Client) CheckCompliance(ctx context.Context, html string) (*models.ComplianceReport, error) {
	body, err := json.Marshal(map[string]string{"html": html})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := c.doRequest(ctx, "POST", "/api/v1/compliance-check", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var result struct {
		Success bool                     `json:"success"`
		Data    *models.ComplianceReport `json:"data"`
		Error   *struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if !result.Success {
		return nil, fmt.Errorf("API error: %s - %s", result.Error.Code, result.Error.Message)
	}
	return result.Data, nil
}

// PublishRuntime creates an immutable runtime config from a template
func (c *Client) PublishRuntime(ctx context.Context, req models.PublishRuntimeRequest) (*models.RuntimeConfig, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := c.doRequest(ctx, "POST", "/api/v1/runtimes", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var result struct {
		Success bool                  `json:"success"`
		Data    *models.RuntimeConfig `json:"data"`
		Error   *struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if !result.Success {
		return nil, fmt.Errorf("API error: %s - %s", result.Error.Code, result.Error.Message)
	}
	return result.Data, nil
}

// GetRuntime retrieves a published runtime config by ID
func (c *Client) GetRuntime(ctx context.Context, id string) (*models.RuntimeConfig, error) {
	resp, err := c.doRequest(ctx, "GET", fmt.Sprintf("/api/v1/runtimes/%s", id), nil)
	if err != nil {
		return nil, err
	}

	var result struct {
		Success bool                  `json:"success"`
		Data    *models.RuntimeConfig `json:"data"`
		Error   *struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if !result.Success {
		return nil, fmt.Errorf("API error: %s - %s", result.Error.Code, result.Error.Message)
	}
	return result.Data, nil
}

// ListProofs retrieves the caller's proof receipts
func (c *Client) ListProofs(ctx context.Context, limit, offset int) ([]*models.ProofReceipt, error) {
	path := "/api/v1/proofs?"
	if limit > 0 {
		path += fmt.Sprintf("limit=%d&", limit)
	}
	if offset > 0 {
		path += fmt.Sprintf("offset=%d&", offset)
	}

	resp, err := c.doRequest(ctx, "GET", path, nil)
	if err != nil {
		return nil, err
	}

	var result struct {
		Success bool `json:"success"`
		Data    struct {
			Proofs []*models.ProofReceipt `json:"proofs"`
			Total  int                    `json:"total"`
		} `json:"data"`
		Error *struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if !result.Success {
		return nil, fmt.Errorf("API error: %s - %s", result.Error.Code, result.Error.Message)
	}
	return result.Data.Proofs, nil
}

// Health checks if the service is healthy
func (c *Client) Health(ctx context.Context) error {
	_, err := c.doRequest(ctx, "GET", "/health", nil)
	return err
}

// doRequest performs an HTTP request
func (c *Client) doRequest(ctx context.Context, method, path string, body io.Reader) ([]byte, error) {
	url := c.baseURL + path

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var flat apiErr
		if json.Unmarshal(respBody, &flat) == nil && flat.Error != "" {
			return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, flat.Error)
		}
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}

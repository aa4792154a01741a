package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const defaultRequestTimeout = 15 * time.Second

// Client calls the dashboard backend's approval endpoints. The realtime core
// only ever executes decisions through it; reads go through the cache layer.
type Client struct {
	baseURL    string
	credential string
	httpClient *http.Client
	log        *slog.Logger
}

// NewClient validates connection settings and constructs a backend client.
func NewClient(baseURL string, credential string, log *slog.Logger) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("server base URL is required")
	}
	if strings.TrimSpace(credential) == "" {
		return nil, errors.New("credential is required")
	}
	if log == nil {
		log = slog.Default()
	}

	return &Client{
		baseURL:    baseURL,
		credential: credential,
		httpClient: &http.Client{Timeout: defaultRequestTimeout},
		log:        log.With("component", "api.client"),
	}, nil
}

type decisionBody struct {
	Action string `json:"action"`
}

type debtDecisionBody struct {
	Action      string `json:"action"`
	RequesterID int64  `json:"requester_id"`
	TaskTitle   string `json:"task_title"`
}

type errorResponse struct {
	Detail string `json:"detail"`
	Error  string `json:"error"`
}

// ApproveTransactionRequest approves one pending transaction request.
func (c *Client) ApproveTransactionRequest(ctx context.Context, requestID int64) error {
	return c.postDecision(ctx, fmt.Sprintf("/api/transaction-requests/%d/resolve/", requestID), decisionBody{Action: "approve"})
}

// RejectTransactionRequest rejects one pending transaction request.
func (c *Client) RejectTransactionRequest(ctx context.Context, requestID int64) error {
	return c.postDecision(ctx, fmt.Sprintf("/api/transaction-requests/%d/resolve/", requestID), decisionBody{Action: "reject"})
}

// ApproveDebtRequest approves releasing a task against customer debt. The
// requester id and task title feed the server-side confirmation message.
func (c *Client) ApproveDebtRequest(ctx context.Context, requestID int64, requesterID int64, taskTitle string) error {
	return c.postDecision(ctx, fmt.Sprintf("/api/debt-requests/%d/resolve/", requestID), debtDecisionBody{Action: "approve", RequesterID: requesterID, TaskTitle: taskTitle})
}

// RejectDebtRequest rejects a pending debt request.
func (c *Client) RejectDebtRequest(ctx context.Context, requestID int64, requesterID int64, taskTitle string) error {
	return c.postDecision(ctx, fmt.Sprintf("/api/debt-requests/%d/resolve/", requestID), debtDecisionBody{Action: "reject", RequesterID: requesterID, TaskTitle: taskTitle})
}

func (c *Client) postDecision(ctx context.Context, path string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal decision body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build decision request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.credential)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return NewError(ErrorNetwork, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	detail := readErrorDetail(resp.Body)
	category := categoryFromStatus(resp.StatusCode)
	c.log.Warn("Decision call rejected", "path", path, "status", resp.StatusCode, "category", category)

	if detail == "" {
		detail = resp.Status
	}

	return NewError(category, detail)
}

// readErrorDetail extracts a human-readable message from an error body.
//
// The backend is inconsistent between {"detail": ...} and {"error": ...}.
func readErrorDetail(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil {
		return ""
	}

	var parsed errorResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return strings.TrimSpace(string(raw))
	}

	if parsed.Detail != "" {
		return parsed.Detail
	}

	return parsed.Error
}

// Package httpagent is the transport adapter for the external AI review
// service. The agent's reasoning stays outside this core; this client
// only carries chunk content over and evaluation comments back.
package httpagent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shuyossy/ai-notebook-sub000/internal/core/domain"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type reviewResponse struct {
	Comment string `json:"comment"`
}

// Review evaluates one chunk (or page set) against one checklist item.
func (c *Client) Review(ctx context.Context, reviewReq domain.ReviewRequest) (string, error) {
	body, err := json.Marshal(reviewReq)
	if err != nil {
		return "", fmt.Errorf("marshal review request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/review", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create review request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("agent review request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return "", formatAgentHTTPError(resp)
	}

	var out reviewResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode review response: %w", err)
	}
	return out.Comment, nil
}

func formatAgentHTTPError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return fmt.Errorf("agent review status: %s", resp.Status)
	}
	return fmt.Errorf("agent review status: %s: %s", resp.Status, msg)
}

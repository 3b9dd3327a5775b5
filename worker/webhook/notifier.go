package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"treeAnalysis/worker/analyzer"
)

// Payload mirrors the API's webhook contract.
type Payload struct {
	TaskID       int64            `json:"task_id"`
	Status       string           `json:"status"`
	ResultPath   string           `json:"result_path,omitempty"`
	Result       *analyzer.Result `json:"result,omitempty"`
	ErrorMessage string           `json:"error_message,omitempty"`
}

// Notifier reports terminal transitions to the API's task-complete
// webhook, for worker deployments without direct database access.
type Notifier struct {
	client *http.Client
	url    string
	secret string
}

func NewNotifier(url, secret string) *Notifier {
	return &Notifier{
		client: &http.Client{Timeout: 10 * time.Second},
		url:    url,
		secret: secret,
	}
}

func (n *Notifier) Report(ctx context.Context, payload *Payload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if n.secret != "" {
		req.Header.Set("X-Webhook-Token", n.secret)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("webhook rejected: status %d", resp.StatusCode)
	}

	return nil
}

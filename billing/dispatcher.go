package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Message is one templated delivery to the customer with the invoice
// attached.
type Message struct {
	To            string `json:"to"`
	Subject       string `json:"subject"`
	Template      string `json:"template"`
	TrackingCode  string `json:"tracking_code"`
	InvoiceID     string `json:"invoice_id"`
	AttachmentRef string `json:"attachment_ref"`
}

// Dispatcher calls the external message dispatcher. Its outcome is
// advisory only; callers log failures and move on.
type Dispatcher struct {
	httpClient *http.Client
	baseURL    string
}

// NewDispatcher builds a dispatcher client.
func NewDispatcher(baseURL string) *Dispatcher {
	return &Dispatcher{
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		baseURL: baseURL,
	}
}

// Send submits the message for delivery.
func (d *Dispatcher) Send(ctx context.Context, msg Message) error {
	jsonData, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	url := fmt.Sprintf("%s/messages", d.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create dispatch request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call message dispatcher: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("message dispatcher returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

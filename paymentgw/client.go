// Package paymentgw is the client for the third-party payment gateway.
// The Go side creates the gateway-side order that the checkout widget
// is opened with; the widget's callback (success, failure or
// user-dismissed) arrives out-of-band and is delivered to the payment
// workflow as a signal. The widget may also never emit.
package paymentgw

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// CallbackEvent is the kind of widget callback.
type CallbackEvent string

const (
	CallbackSuccess   CallbackEvent = "success"
	CallbackFailure   CallbackEvent = "failure"
	CallbackDismissed CallbackEvent = "dismissed"
)

// Callback is the widget's single emission for one attempt.
type Callback struct {
	Event      CallbackEvent `json:"event"`
	PaymentRef string        `json:"payment_ref,omitempty"`
	Reason     string        `json:"reason,omitempty"`
}

// GatewayOrderRequest opens a checkout attempt on the gateway.
type GatewayOrderRequest struct {
	AmountMinor  int64             `json:"amount"`
	Currency     string            `json:"currency"`
	Receipt      string            `json:"receipt"`
	PayerName    string            `json:"payer_name"`
	PayerEmail   string            `json:"payer_email"`
	MerchantName string            `json:"merchant_name"`
	Notes        map[string]string `json:"notes,omitempty"`
}

// GatewayOrder is the gateway-side payment reference the widget is
// opened with.
type GatewayOrder struct {
	Reference string `json:"id"`
}

// Client talks to the payment gateway's order endpoint.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	merchantName string
}

// NewClient builds a gateway client with a bounded transport.
func NewClient(baseURL, merchantName string) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL:      baseURL,
		merchantName: merchantName,
	}
}

// CreateGatewayOrder registers the attempt with the gateway and returns
// its payment reference.
func (c *Client) CreateGatewayOrder(ctx context.Context, req GatewayOrderRequest) (GatewayOrder, error) {
	if req.MerchantName == "" {
		req.MerchantName = c.merchantName
	}

	jsonData, err := json.Marshal(req)
	if err != nil {
		return GatewayOrder{}, fmt.Errorf("failed to marshal gateway order request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/orders", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return GatewayOrder{}, fmt.Errorf("failed to create gateway order request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return GatewayOrder{}, fmt.Errorf("failed to call payment gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return GatewayOrder{}, fmt.Errorf("payment gateway returned status %d: %s", resp.StatusCode, string(body))
	}

	var gw GatewayOrder
	if err := json.NewDecoder(resp.Body).Decode(&gw); err != nil {
		return GatewayOrder{}, fmt.Errorf("failed to decode gateway order response: %w", err)
	}
	if gw.Reference == "" {
		return GatewayOrder{}, fmt.Errorf("payment gateway returned an empty order reference")
	}
	return gw, nil
}

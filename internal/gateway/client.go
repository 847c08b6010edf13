// Package gateway is the HTTP client for the payment provider's order
// API.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/incridea/fest-backend/internal/services"
)

// requestTimeout bounds the order-creation call; the gateway hanging
// must not hang the initiate route.
const requestTimeout = 15 * time.Second

type Client struct {
	baseURL   string
	keyID     string
	keySecret string
	http      *http.Client
}

func NewClient(baseURL, keyID, keySecret string) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		keyID:     keyID,
		keySecret: keySecret,
		http:      &http.Client{Timeout: requestTimeout},
	}
}

type orderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes"`
}

type orderResponse struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

func (c *Client) CreateOrder(ctx context.Context, amount int64, currency, receiptRef string, notes map[string]string) (*services.GatewayOrder, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	payload, _ := json.Marshal(orderRequest{
		Amount:   amount,
		Currency: currency,
		Receipt:  receiptRef,
		Notes:    notes,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/orders", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.keyID, c.keySecret)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("create order: status %d: %s", resp.StatusCode, body)
	}

	var parsed orderResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("create order: decode: %w", err)
	}
	if parsed.ID == "" {
		return nil, fmt.Errorf("create order: response missing order id")
	}
	return &services.GatewayOrder{
		ID:       parsed.ID,
		Amount:   parsed.Amount,
		Currency: parsed.Currency,
		Raw:      body,
	}, nil
}

var _ services.Gateway = (*Client)(nil)

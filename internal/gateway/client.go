// Package gateway talks to the online payment provider: it opens
// gateway-side payment orders before any seller order exists and verifies
// the signature the provider's client SDK hands back after capture.
package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Order is a gateway-side payment order. No money is owed to any seller
// while only this exists.
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"` // smallest currency unit
	Currency string `json:"currency"`
	Receipt  string `json:"receipt,omitempty"`
}

type Client struct {
	HTTP    *http.Client
	BaseURL string
	KeyID   string
	Secret  string
}

func NewClient(baseURL, keyID, secret string) *Client {
	return &Client{
		HTTP:    &http.Client{Timeout: 10 * time.Second},
		BaseURL: baseURL,
		KeyID:   keyID,
		Secret:  secret,
	}
}

type createOrderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

// CreateOrder opens an unconfirmed payment order for the given amount in
// minor units. The receipt is an ephemeral correlation id, not an order id.
func (c *Client) CreateOrder(ctx context.Context, receipt string, amountMinor int64, currency string) (*Order, error) {
	body, err := json.Marshal(createOrderRequest{Amount: amountMinor, Currency: currency, Receipt: receipt})
	if err != nil {
		return nil, fmt.Errorf("marshal gateway order: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.KeyID, c.Secret)

	res, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK && res.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("gateway order failed: %s", res.Status)
	}
	var out Order
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode gateway order: %w", err)
	}
	return &out, nil
}

// Sign computes the confirmation signature the gateway produces:
// hex(HMAC-SHA256(secret, orderID + "|" + paymentID)).
func Sign(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature recomputes the HMAC with the merchant secret and compares
// in constant time. A mismatch means the confirmation is forged or corrupt.
func (c *Client) VerifySignature(orderID, paymentID, signature string) bool {
	expected := Sign(c.Secret, orderID, paymentID)
	return hmac.Equal([]byte(expected), []byte(signature))
}

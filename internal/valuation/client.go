package valuation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type Client struct {
	HTTP    *http.Client
	BaseURL string
}

func NewClient(baseURL string) *Client {
	return &Client{
		HTTP:    &http.Client{Timeout: 5 * time.Second},
		BaseURL: baseURL,
	}
}

type valuateRequest struct {
	Items        []CartLine `json:"items"`
	DiscountCode string     `json:"discount_code,omitempty"`
}

// Valuate sends the exact line items the buyer intends to purchase and
// returns the collaborator's authoritative calculation.
func (c *Client) Valuate(ctx context.Context, lines []CartLine, discountCode string) (*Result, error) {
	body, err := json.Marshal(valuateRequest{Items: lines, DiscountCode: discountCode})
	if err != nil {
		return nil, fmt.Errorf("marshal valuation request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/cart/valuate", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("valuation request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(res.Body).Decode(&e)
		if e.Error != "" {
			return nil, fmt.Errorf("valuation failed: %s", e.Error)
		}
		return nil, fmt.Errorf("valuation failed: %s", res.Status)
	}

	var out Result
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode valuation result: %w", err)
	}
	return &out, nil
}

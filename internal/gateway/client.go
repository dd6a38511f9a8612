// Package gateway предоставляет клиент платёжного шлюза для создания
// платёжных сессий. Сам приём денег выполняется на стороне шлюза.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Client инкапсулирует HTTP-взаимодействие с платёжным шлюзом.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// SessionRequest описывает запрос на создание платёжной сессии.
type SessionRequest struct {
	OrderID       int64           `json:"order_id"`
	Kind          string          `json:"kind"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	CustomerEmail string          `json:"customer_email"`
}

// Session описывает созданную шлюзом платёжную сессию.
type Session struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// NewClient создаёт HTTP-клиент платёжного шлюза по указанному адресу.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// CreateSession создаёт платёжную сессию для оплаты транша заказа.
func (c *Client) CreateSession(ctx context.Context, sr SessionRequest) (*Session, error) {
	if c == nil || c.baseURL == "" {
		return nil, fmt.Errorf("gateway client not configured")
	}

	base := c.baseURL
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	body, err := json.Marshal(sr)
	if err != nil {
		return nil, fmt.Errorf("marshal session request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/api/checkout/sessions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var session Session
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &session, nil
}

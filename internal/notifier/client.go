// Package notifier предоставляет клиент внешнего сервиса рассылки счетов.
// Сервис формирует PDF-счёт и отправляет его клиенту по почте; сам рендеринг
// и доставка находятся вне зоны ответственности движка.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/quotedesk-system/internal/model"
)

// Client инкапсулирует HTTP-взаимодействие с сервисом рассылки счетов.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// InvoiceRequest описывает данные для формирования счёта по одному траншу заказа.
type InvoiceRequest struct {
	OrderID       int64            `json:"order_id"`
	Kind          string           `json:"kind"`
	CustomerName  string           `json:"customer_name"`
	CustomerEmail string           `json:"customer_email"`
	Title         string           `json:"title"`
	Amount        decimal.Decimal  `json:"amount"`
	Items         []model.LineItem `json:"items"`
}

// NewClient создаёт HTTP-клиент сервиса рассылки счетов по указанному адресу.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *Client) url(path string) (string, error) {
	if c == nil || c.baseURL == "" {
		return "", fmt.Errorf("notifier client not configured")
	}

	base := c.baseURL
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	return base + path, nil
}

// SendInvoice просит сервис отправить счёт клиенту. Любой ответ, кроме 200,
// считается сбоем доставки.
func (c *Client) SendInvoice(ctx context.Context, inv InvoiceRequest) error {
	url, err := c.url("/api/invoices/send")
	if err != nil {
		return err
	}

	body, err := json.Marshal(inv)
	if err != nil {
		return fmt.Errorf("marshal invoice: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	return nil
}

// RenderInvoice возвращает PDF-представление счёта без отправки письма.
func (c *Client) RenderInvoice(ctx context.Context, inv InvoiceRequest) ([]byte, error) {
	url, err := c.url("/api/invoices/render")
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(inv)
	if err != nil {
		return nil, fmt.Errorf("marshal invoice: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	pdf, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	return pdf, nil
}

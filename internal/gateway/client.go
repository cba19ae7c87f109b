package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	errors "github.com/rsharma-dev/order-settlement/internal"
	"github.com/rsharma-dev/order-settlement/internal/tenant"
)

// API is the outbound port to the payment gateway. Every call carries the
// tenant's own credentials; the client holds no per-tenant state.
type API interface {
	CreateOrder(ctx context.Context, creds *tenant.GatewayCredentials, req *CreateOrderRequest) (*OrderResponse, error)
	Refund(ctx context.Context, creds *tenant.GatewayCredentials, paymentID string, req *RefundRequest) (*RefundResponse, error)
}

// CreateOrderRequest is the payload for creating a gateway order.
type CreateOrderRequest struct {
	AmountPaise    int64  `json:"amount"`
	Currency       string `json:"currency"`
	Receipt        string `json:"receipt"`
	IdempotencyKey string `json:"-"`
}

// OrderResponse is the gateway's view of a created order.
type OrderResponse struct {
	ID         string `json:"id"`
	Entity     string `json:"entity"`
	Amount     int64  `json:"amount"`
	AmountPaid int64  `json:"amount_paid"`
	AmountDue  int64  `json:"amount_due"`
	Currency   string `json:"currency"`
	Receipt    string `json:"receipt"`
	Status     string `json:"status"`
	CreatedAt  int64  `json:"created_at"`
}

// RefundRequest is the payload for refunding a captured payment.
// A nil AmountPaise asks the gateway for a full refund.
type RefundRequest struct {
	AmountPaise    *int64            `json:"amount,omitempty"`
	Speed          string            `json:"speed,omitempty"`
	Notes          map[string]string `json:"notes,omitempty"`
	IdempotencyKey string            `json:"-"`
}

// RefundResponse is the gateway's view of a created refund.
type RefundResponse struct {
	ID             string `json:"id"`
	Entity         string `json:"entity"`
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	PaymentID      string `json:"payment_id"`
	Status         string `json:"status"`
	SpeedProcessed string `json:"speed_processed,omitempty"`
	CreatedAt      int64  `json:"created_at"`
}

type Config struct {
	BaseURL        string
	RequestTimeout time.Duration
}

type Client struct {
	baseURL        string
	requestTimeout time.Duration
	httpClient     *http.Client
	logger         *slog.Logger
}

func NewClient(config Config, logger *slog.Logger) *Client {
	timeout := config.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL:        config.BaseURL,
		requestTimeout: timeout,
		httpClient:     &http.Client{Timeout: timeout},
		logger:         logger,
	}
}

func (c *Client) CreateOrder(ctx context.Context, creds *tenant.GatewayCredentials, req *CreateOrderRequest) (*OrderResponse, error) {
	c.logger.Info("gateway: creating order",
		"amount_paise", req.AmountPaise,
		"currency", req.Currency,
		"receipt", req.Receipt)

	var resp OrderResponse
	if err := c.post(ctx, creds, "/orders", req.IdempotencyKey, req, &resp); err != nil {
		return nil, err
	}

	c.logger.Info("gateway: order created",
		"gateway_order_id", resp.ID,
		"status", resp.Status)

	return &resp, nil
}

func (c *Client) Refund(ctx context.Context, creds *tenant.GatewayCredentials, paymentID string, req *RefundRequest) (*RefundResponse, error) {
	c.logger.Info("gateway: initiating refund",
		"gateway_payment_id", paymentID)

	path := fmt.Sprintf("/payments/%s/refund", paymentID)

	var resp RefundResponse
	if err := c.post(ctx, creds, path, req.IdempotencyKey, req, &resp); err != nil {
		return nil, err
	}

	c.logger.Info("gateway: refund created",
		"refund_id", resp.ID,
		"gateway_payment_id", paymentID,
		"status", resp.Status)

	return &resp, nil
}

func (c *Client) post(ctx context.Context, creds *tenant.GatewayCredentials, path, idempotencyKey string, body, out interface{}) error {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return errors.NewGatewayError("failed to marshal gateway request", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return errors.NewGatewayError("failed to create gateway request", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.SetBasicAuth(creds.KeyID, creds.Secret)
	if idempotencyKey != "" {
		httpReq.Header.Set("X-Idempotency-Key", idempotencyKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Error("gateway: request failed", "path", path, "error", err)
		return errors.NewGatewayError("gateway request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.NewGatewayError("failed to read gateway response", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		c.logger.Error("gateway: upstream error",
			"path", path,
			"status_code", resp.StatusCode,
			"body", string(respBody))
		return errors.NewGatewayError(
			fmt.Sprintf("gateway returned status %d: %s", resp.StatusCode, string(respBody)), nil)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return errors.NewGatewayError("failed to decode gateway response", err)
	}

	return nil
}

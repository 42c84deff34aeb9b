package razorpay

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	rzpsdk "github.com/razorpay/razorpay-go"

	"github.com/shopstack/shopstack-backend/pkg/config"
	pkgerrors "github.com/shopstack/shopstack-backend/pkg/errors"
	"github.com/shopstack/shopstack-backend/pkg/logger"
)

var (
	errKeyIDRequired     = errors.New("razorpay key id is required")
	errKeySecretRequired = errors.New("razorpay key secret is required")
	errLoggerRequired    = errors.New("razorpay logger is required")
)

type orderAPI interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

// Client exposes Razorpay primitives with centralized logging and error mapping.
type Client struct {
	orders   orderAPI
	currency string
	logger   *logger.Logger
}

// OrderCreateParams describes a gateway order. Amount is in the currency's
// minor units (paise for INR, cents for USD).
type OrderCreateParams struct {
	Amount   int64
	Currency string
	Receipt  string
	Notes    map[string]any
}

// Order is the subset of the gateway's order resource the platform uses.
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// NewClient initializes the Razorpay wrapper and validates the credentials.
func NewClient(ctx context.Context, cfg config.RazorpayConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	keyID := strings.TrimSpace(cfg.KeyID)
	if keyID == "" {
		return nil, errKeyIDRequired
	}
	keySecret := strings.TrimSpace(cfg.KeySecret)
	if keySecret == "" {
		return nil, errKeySecretRequired
	}
	currency := strings.ToUpper(strings.TrimSpace(cfg.Currency))
	if currency == "" {
		currency = "USD"
	}

	sdk := rzpsdk.NewClient(keyID, keySecret)

	c := &Client{
		orders:   sdk.Order,
		currency: currency,
		logger:   logg,
	}

	logg.Info(ctx, "razorpay client initialized")
	return c, nil
}

// Currency reports the configured settlement currency.
func (c *Client) Currency() string {
	if c == nil {
		return ""
	}
	return c.currency
}

// NewReceipt returns a unique receipt identifier for gateway orders.
func (c *Client) NewReceipt() string {
	return uuid.NewString()
}

// CreateOrder registers an order with the gateway and returns its identifier.
func (c *Client) CreateOrder(ctx context.Context, params OrderCreateParams) (*Order, error) {
	if params.Amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order amount must be positive")
	}
	currency := strings.ToUpper(strings.TrimSpace(params.Currency))
	if currency == "" {
		currency = c.currency
	}
	receipt := strings.TrimSpace(params.Receipt)
	if receipt == "" {
		receipt = c.NewReceipt()
	}

	data := map[string]interface{}{
		"amount":   params.Amount,
		"currency": currency,
		"receipt":  receipt,
	}
	if len(params.Notes) > 0 {
		data["notes"] = params.Notes
	}

	c.log(ctx, "request", "create_order", map[string]any{
		"amount":   params.Amount,
		"currency": currency,
		"receipt":  receipt,
	})

	resp, err := c.orders.Create(data, nil)
	if err != nil {
		c.log(ctx, "error", "create_order", map[string]any{"error": err.Error()})
		return nil, c.mapGatewayError(err, "create order")
	}

	order := orderFromResponse(resp)
	if order.ID == "" {
		err := fmt.Errorf("gateway order response missing id")
		c.log(ctx, "error", "create_order", map[string]any{"error": err.Error()})
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "razorpay create order failed")
	}

	c.log(ctx, "response", "create_order", map[string]any{
		"order_id": order.ID,
		"status":   order.Status,
	})
	return order, nil
}

func orderFromResponse(resp map[string]interface{}) *Order {
	order := &Order{}
	if id, ok := resp["id"].(string); ok {
		order.ID = id
	}
	switch amount := resp["amount"].(type) {
	case float64:
		order.Amount = int64(amount)
	case int64:
		order.Amount = amount
	}
	if currency, ok := resp["currency"].(string); ok {
		order.Currency = currency
	}
	if receipt, ok := resp["receipt"].(string); ok {
		order.Receipt = receipt
	}
	if status, ok := resp["status"].(string); ok {
		order.Status = status
	}
	return order
}

func (c *Client) log(ctx context.Context, phase, op string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{
		"operation": op,
		"phase":     phase,
	}
	for k, v := range fields {
		logFields[k] = v
	}
	ctx = c.logger.WithFields(ctx, logFields)
	switch phase {
	case "error":
		c.logger.Error(ctx, fmt.Sprintf("razorpay %s", op), errors.New(fmt.Sprint(fields["error"])))
	default:
		c.logger.Info(ctx, fmt.Sprintf("razorpay %s", phase))
	}
}

func (c *Client) mapGatewayError(err error, op string) error {
	if err == nil {
		return nil
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("razorpay %s failed", op))
}

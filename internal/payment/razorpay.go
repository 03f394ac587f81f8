package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const razorpayBaseURL = "https://api.razorpay.com/v1"

var ErrInvalidSignature = errors.New("invalid payment signature")

var ErrOrderMismatch = errors.New("order does not match the purchase")

type RazorpayOrder struct {
	ID       string     `json:"id"`
	Amount   int64      `json:"amount"`
	Currency string     `json:"currency"`
	Receipt  string     `json:"receipt"`
	Status   string     `json:"status"`
	Notes    OrderNotes `json:"notes,omitempty"`
}

// OrderNotes are the key/value notes attached to an order. Razorpay sends an
// empty JSON array when an order has none.
type OrderNotes map[string]string

func (n *OrderNotes) UnmarshalJSON(data []byte) error {
	if string(bytes.TrimSpace(data)) == "[]" {
		*n = OrderNotes{}
		return nil
	}
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*n = m
	return nil
}

// Matches reports whether the order was created for this user and plan at
// the plan's price.
func (o *RazorpayOrder) Matches(userID, planID string, amount int64, currency string) error {
	switch {
	case o.Notes[metaUserID] != userID:
		return fmt.Errorf("%w: user", ErrOrderMismatch)
	case o.Notes[metaPlan] != planID:
		return fmt.Errorf("%w: plan %q", ErrOrderMismatch, o.Notes[metaPlan])
	case o.Amount != amount || o.Currency != currency:
		return fmt.Errorf("%w: amount %d %s", ErrOrderMismatch, o.Amount, o.Currency)
	}
	return nil
}

type RazorpayClient struct {
	keyID      string
	keySecret  string
	baseURL    string
	httpClient *http.Client
}

func NewRazorpayClient(keyID, keySecret string) *RazorpayClient {
	return &RazorpayClient{
		keyID:      keyID,
		keySecret:  keySecret,
		baseURL:    razorpayBaseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *RazorpayClient) KeyID() string {
	return c.keyID
}

func (c *RazorpayClient) Configured() bool {
	return c != nil && c.keyID != "" && c.keySecret != ""
}

// CreateOrder registers an order for amount (in paise) with Razorpay.
func (c *RazorpayClient) CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (*RazorpayOrder, error) {
	body, err := json.Marshal(map[string]any{
		"amount":   amount,
		"currency": currency,
		"receipt":  receipt,
		"notes":    notes,
	})
	if err != nil {
		return nil, err
	}

	order, err := c.do(ctx, http.MethodPost, "/orders", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("razorpay create order: %w", err)
	}
	return order, nil
}

// FetchOrder loads an order as Razorpay recorded it, notes included.
func (c *RazorpayClient) FetchOrder(ctx context.Context, orderID string) (*RazorpayOrder, error) {
	order, err := c.do(ctx, http.MethodGet, "/orders/"+url.PathEscape(orderID), nil)
	if err != nil {
		return nil, fmt.Errorf("razorpay fetch order: %w", err)
	}
	return order, nil
}

func (c *RazorpayClient) do(ctx context.Context, method, path string, body io.Reader) (*RazorpayOrder, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.keyID, c.keySecret)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, data)
	}

	var order RazorpayOrder
	if err := json.Unmarshal(data, &order); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return &order, nil
}

// VerifySignature checks a checkout callback signature, which is the hex
// HMAC-SHA256 of "order_id|payment_id" keyed with the key secret.
func (c *RazorpayClient) VerifySignature(orderID, paymentID, signature string) error {
	if !VerifyRazorpaySignature(c.keySecret, orderID, paymentID, signature) {
		return ErrInvalidSignature
	}
	return nil
}

func VerifyRazorpaySignature(secret, orderID, paymentID, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

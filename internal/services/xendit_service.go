package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"strings"
	"time"
)

var invoiceHTTPClient = &http.Client{Timeout: 15 * time.Second}

const (
	defaultXenditBaseURL = "https://api.xendit.co"
	defaultPayerEmail    = "guest@megautama.com"
)

// XenditBaseURL exposes the configured payment gateway base URL.
func XenditBaseURL() string {
	base := strings.TrimSpace(os.Getenv("XENDIT_URL"))
	if base == "" {
		return defaultXenditBaseURL
	}
	return strings.TrimRight(base, "/")
}

// InvoiceRequest carries the inputs for creating a payment invoice.
type InvoiceRequest struct {
	OrderID    string
	Amount     float64
	PayerEmail string
	// ReturnBaseURL is the storefront origin used for redirect URLs.
	ReturnBaseURL string
}

type invoicePayload struct {
	ExternalID         string  `json:"external_id"`
	Amount             float64 `json:"amount"`
	PayerEmail         string  `json:"payer_email"`
	Description        string  `json:"description"`
	Currency           string  `json:"currency"`
	ReminderTime       int     `json:"reminder_time"`
	SuccessRedirectURL string  `json:"success_redirect_url"`
	FailureRedirectURL string  `json:"failure_redirect_url"`
}

// Invoice is the subset of the gateway response the storefront needs.
type Invoice struct {
	ID         string `json:"id"`
	InvoiceURL string `json:"invoice_url"`
	Status     string `json:"status"`
	ExpiryDate string `json:"expiry_date"`
}

// CreateInvoice asks the payment gateway for a hosted invoice page. A nil
// error guarantees a non-empty InvoiceURL.
func CreateInvoice(ctx context.Context, in InvoiceRequest) (*Invoice, error) {
	secret := strings.TrimSpace(os.Getenv("XENDIT_SECRET_KEY"))
	if secret == "" {
		return nil, errors.New("XENDIT_SECRET_KEY is not configured")
	}

	if in.OrderID == "" || in.Amount <= 0 {
		return nil, errors.New("order id and amount are required")
	}

	email := in.PayerEmail
	if email == "" {
		email = defaultPayerEmail
	}

	base := strings.TrimRight(in.ReturnBaseURL, "/")
	payload := invoicePayload{
		ExternalID:         in.OrderID,
		Amount:             math.Round(in.Amount),
		PayerEmail:         email,
		Description:        fmt.Sprintf("PEMBAYARAN MEGA UTAMA - ORDER #%s", in.OrderID),
		Currency:           "IDR",
		ReminderTime:       1,
		SuccessRedirectURL: fmt.Sprintf("%s/success?orderId=%s", base, in.OrderID),
		FailureRedirectURL: base + "/order",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal invoice payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, XenditBaseURL()+"/v2/invoices", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create invoice request: %w", err)
	}
	req.SetBasicAuth(secret, "")
	req.Header.Set("Content-Type", "application/json")

	resp, err := invoiceHTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute invoice request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read invoice response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("invoice request failed: status %d, body: %s", resp.StatusCode, string(respBody))
	}

	var invoice Invoice
	if err := json.Unmarshal(respBody, &invoice); err != nil {
		return nil, fmt.Errorf("unmarshal invoice response: %w", err)
	}

	if invoice.InvoiceURL == "" {
		return nil, errors.New("invoice response missing invoice_url")
	}

	return &invoice, nil
}

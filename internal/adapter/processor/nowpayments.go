// Package processor wraps the NOWPayments invoice API. Only invoice creation
// is called outbound; payment notifications come back through the webhook
// gateway.
package processor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"crypto-deposit-gateway/internal/core/ports"
)

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client implements ports.ProcessorClient against the NOWPayments REST API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient HTTPClient
}

// NewClient creates a NOWPayments API client. The http client's timeout
// bounds the outbound call; invoice creation is not idempotent at the
// provider so no retries happen here.
func NewClient(baseURL, apiKey string, httpClient HTTPClient) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

type invoiceRequest struct {
	PriceAmount      json.Number `json:"price_amount"`
	PriceCurrency    string      `json:"price_currency"`
	OrderID          string      `json:"order_id"`
	OrderDescription string      `json:"order_description,omitempty"`
	IPNCallbackURL   string      `json:"ipn_callback_url"`
	SuccessURL       string      `json:"success_url,omitempty"`
	CancelURL        string      `json:"cancel_url,omitempty"`
	PayCurrency      string      `json:"pay_currency,omitempty"`
}

type invoiceResponse struct {
	ID         json.Number `json:"id"`
	OrderID    string      `json:"order_id"`
	InvoiceURL string      `json:"invoice_url"`
}

type errorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// CreateInvoice requests a hosted payment page from the processor.
func (c *Client) CreateInvoice(ctx context.Context, req ports.InvoiceRequest) (*ports.InvoiceResponse, error) {
	body, err := json.Marshal(invoiceRequest{
		PriceAmount:      json.Number(req.PriceAmount.String()),
		PriceCurrency:    req.PriceCurrency,
		OrderID:          req.OrderID,
		OrderDescription: req.OrderDescription,
		IPNCallbackURL:   req.IPNCallbackURL,
		SuccessURL:       req.SuccessURL,
		CancelURL:        req.CancelURL,
		PayCurrency:      req.PayCurrency,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal invoice request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/invoice", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build invoice request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &ports.ProviderError{Message: fmt.Sprintf("invoice request failed: %v", err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &ports.ProviderError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("read invoice response: %v", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp errorResponse
		msg := fmt.Sprintf("unexpected status %d", resp.StatusCode)
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Message != "" {
			msg = errResp.Message
		}
		return nil, &ports.ProviderError{StatusCode: resp.StatusCode, Message: msg}
	}

	var inv invoiceResponse
	if err := json.Unmarshal(respBody, &inv); err != nil {
		return nil, &ports.ProviderError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("decode invoice response: %v", err)}
	}
	if inv.InvoiceURL == "" {
		return nil, &ports.ProviderError{StatusCode: resp.StatusCode, Message: "invoice response missing invoice_url"}
	}

	return &ports.InvoiceResponse{
		InvoiceID:  inv.ID.String(),
		InvoiceURL: inv.InvoiceURL,
	}, nil
}

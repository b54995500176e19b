package ports

import (
	"context"
	"strings"

	"crypto-deposit-gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SignatureService verifies processor IPN signatures: HMAC-SHA512 over the
// canonical (sorted top-level key) JSON body, hex encoded.
type SignatureService interface {
	// Sign computes the signature of rawBody's canonical form.
	// Fails if rawBody is not a JSON object.
	Sign(secret string, rawBody []byte) (string, error)
	// Verify reports whether signature matches rawBody under secret,
	// using a constant-time comparison.
	Verify(secret string, rawBody []byte, signature string) bool
}

// TokenService validates session tokens issued by the platform's auth service.
type TokenService interface {
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed session claims.
type TokenClaims struct {
	UserID uuid.UUID
}

// ProcessorClient talks to the external payment processor.
type ProcessorClient interface {
	// CreateInvoice requests a hosted payment page. Each call mints a new
	// invoice at the processor, so callers must not retry automatically.
	CreateInvoice(ctx context.Context, req InvoiceRequest) (*InvoiceResponse, error)
}

// InvoiceRequest is the processor invoice-creation input.
type InvoiceRequest struct {
	PriceAmount      decimal.Decimal
	PriceCurrency    string
	OrderID          string
	OrderDescription string
	IPNCallbackURL   string
	SuccessURL       string
	CancelURL        string
	PayCurrency      string // empty = processor default
}

// InvoiceResponse carries the processor-assigned invoice id and the hosted
// payment page URL. The payment id only becomes known later, via the IPN.
type InvoiceResponse struct {
	InvoiceID  string
	InvoiceURL string
}

// ProviderError is a processor-side failure: non-2xx, timeout, or a response
// missing the hosted payment URL.
type ProviderError struct {
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	return "provider error: " + e.Message
}

// IsMinAmount reports whether the provider rejected the invoice because the
// converted amount fell under its per-currency minimum.
func (e *ProviderError) IsMinAmount() bool {
	msg := strings.ToLower(e.Message)
	return strings.Contains(msg, "minimal") || strings.Contains(msg, "minimum")
}

// --- Service Ports (Business Logic) ---

// DepositService is the crypto-deposit core: invoice creation, webhook
// notification handling, balance reads and transaction history.
type DepositService interface {
	CreateDeposit(ctx context.Context, req CreateDepositRequest) (*CreateDepositResult, error)
	// HandleNotification authenticates and applies one processor IPN
	// delivery. Idempotent: redeliveries of the same completed payment are
	// benign no-ops.
	HandleNotification(ctx context.Context, rawBody []byte, signature string) (*NotificationResult, error)
	GetBalance(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error)
	ListDeposits(ctx context.Context, params DepositListParams) ([]domain.DepositTransaction, int64, error)
}

// CreateDepositRequest holds validated input for deposit creation.
type CreateDepositRequest struct {
	UserID      uuid.UUID
	AmountUSD   decimal.Decimal
	PayCurrency string
}

// CreateDepositResult is returned to the caller for redirecting to the
// processor's hosted payment page.
type CreateDepositResult struct {
	PaymentURL string
	OrderID    string
	Amount     decimal.Decimal
	Currency   string
}

// NotificationOutcome classifies a verified webhook delivery.
type NotificationOutcome string

const (
	// OutcomeCredited: this delivery won the pending->confirmed race and
	// credited the wallet.
	OutcomeCredited NotificationOutcome = "credited"
	// OutcomeIgnored: payment_status is not completion-eligible.
	OutcomeIgnored NotificationOutcome = "ignored"
	// OutcomeAlreadyProcessed: the ledger entry is already terminal.
	OutcomeAlreadyProcessed NotificationOutcome = "already_processed"
	// OutcomeUnknownOrder: no ledger entry for this order_id (stale or
	// foreign notification).
	OutcomeUnknownOrder NotificationOutcome = "unknown_order"
)

// NotificationResult reports what a webhook delivery did.
type NotificationResult struct {
	Outcome       NotificationOutcome
	OrderID       string
	PaymentStatus string
}

package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DepositStatus is the lifecycle state of a deposit ledger entry.
// Transitions are one-way: PENDING -> CONFIRMED or PENDING -> FAILED.
type DepositStatus string

const (
	DepositStatusPending   DepositStatus = "PENDING"
	DepositStatusConfirmed DepositStatus = "CONFIRMED"
	DepositStatusFailed    DepositStatus = "FAILED"
)

// DepositTransaction is one ledger entry per deposit attempt. OrderID is the
// idempotency key: it is minted once at deposit-initiation time and every
// processor notification about the deposit references it. Exactly one
// transition into CONFIRMED may occur per OrderID, and that transition is
// the only authorized trigger for a wallet credit of Amount.
type DepositTransaction struct {
	ID            uuid.UUID       `json:"id"`
	OrderID       string          `json:"order_id"`
	UserID        uuid.UUID       `json:"user_id"`
	PaymentID     string          `json:"payment_id"`
	InvoiceID     string          `json:"invoice_id"`
	Amount        decimal.Decimal `json:"amount"` // requested USD amount
	PayCurrency   string          `json:"pay_currency"`
	Status        DepositStatus   `json:"status"`
	TxHash        *string         `json:"tx_hash,omitempty"`
	IPNReceivedAt *time.Time      `json:"ipn_received_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// IsTerminal reports whether the entry can no longer be mutated.
func (d *DepositTransaction) IsTerminal() bool {
	return d.Status == DepositStatusConfirmed || d.Status == DepositStatusFailed
}

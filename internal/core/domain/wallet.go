package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WalletCurrency is the only currency wallets are denominated in.
const WalletCurrency = "USD"

// Wallet holds a user's USD balance. One wallet per user, created lazily on
// the first balance read or first credit, never deleted. The balance is only
// ever mutated through single-statement atomic upserts at the storage layer.
type Wallet struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"user_id"`
	Balance   decimal.Decimal `json:"balance"`
	Currency  string          `json:"currency"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

package ports

import (
	"context"
	"time"

	"crypto-deposit-gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// WalletRepository defines persistence operations for wallets. Every write
// goes through a single-statement atomic upsert; there is deliberately no
// "read balance, write balance" surface here.
type WalletRepository interface {
	// GetOrCreate returns the user's wallet, creating an empty USD wallet
	// if none exists yet. Upsert semantics, safe under concurrent calls.
	GetOrCreate(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error)
	// Credit atomically adds amount (> 0) to the user's balance, upserting
	// the wallet row if absent, and returns the new balance. Methods taking
	// pgx.Tx run inside the webhook's ledger transaction.
	Credit(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error)
}

// DepositRepository defines persistence for the deposit ledger.
type DepositRepository interface {
	Create(ctx context.Context, d *domain.DepositTransaction) error
	GetByOrderID(ctx context.Context, orderID string) (*domain.DepositTransaction, error)
	// ConfirmPending performs the atomic conditional transition
	// PENDING -> CONFIRMED for orderID, recording the processor payment id,
	// on-chain reference and notification time in the same statement.
	// Returns the updated entry, or nil if no pending entry matched (already
	// terminal, or unknown orderID). Among concurrent calls for the same
	// orderID at most one observes a non-nil result.
	ConfirmPending(ctx context.Context, tx pgx.Tx, orderID, paymentID string, txHash *string, receivedAt time.Time) (*domain.DepositTransaction, error)
	ListByUser(ctx context.Context, params DepositListParams) ([]domain.DepositTransaction, int64, error)
}

// DepositListParams holds pagination for transaction history.
type DepositListParams struct {
	UserID   uuid.UUID
	Page     int
	PageSize int
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

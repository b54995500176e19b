package postgres

import (
	"context"
	"fmt"

	"crypto-deposit-gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// WalletRepo implements ports.WalletRepository. Both operations are single
// upsert statements so they are safe under concurrent requests and across
// horizontally scaled processes.
type WalletRepo struct {
	pool Pool
}

// NewWalletRepo creates a new WalletRepo.
func NewWalletRepo(pool Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

// GetOrCreate returns the user's wallet, inserting an empty USD wallet if
// none exists. The conflict clause turns concurrent first reads into a
// single surviving row.
func (r *WalletRepo) GetOrCreate(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error) {
	query := `INSERT INTO wallets (id, user_id, balance, currency, created_at, updated_at)
		VALUES ($1, $2, 0, $3, NOW(), NOW())
		ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING id, user_id, balance, currency, created_at, updated_at`

	w := &domain.Wallet{}
	err := r.pool.QueryRow(ctx, query, uuid.New(), userID, domain.WalletCurrency).Scan(
		&w.ID, &w.UserID, &w.Balance, &w.Currency, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("get or create wallet: %w", err)
	}
	return w, nil
}

// Credit atomically adds amount to the user's balance, upserting the wallet
// if absent, and returns the new balance. The increment happens inside the
// statement; the balance is never read-modified-written in application code.
func (r *WalletRepo) Credit(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("credit amount must be positive, got %s", amount)
	}

	query := `INSERT INTO wallets (id, user_id, balance, currency, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (user_id) DO UPDATE
			SET balance = wallets.balance + EXCLUDED.balance, updated_at = NOW()
		RETURNING balance`

	var newBalance decimal.Decimal
	err := tx.QueryRow(ctx, query, uuid.New(), userID, amount, domain.WalletCurrency).Scan(&newBalance)
	if err != nil {
		return decimal.Zero, fmt.Errorf("credit wallet: %w", err)
	}
	return newBalance, nil
}

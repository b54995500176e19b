package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"crypto-deposit-gateway/internal/core/domain"
	"crypto-deposit-gateway/internal/core/ports"

	"github.com/jackc/pgx/v5"
)

const depositColumns = `id, order_id, user_id, payment_id, invoice_id, amount,
	pay_currency, status, tx_hash, ipn_received_at, created_at, updated_at`

// DepositRepo implements ports.DepositRepository over the append-only
// deposit ledger.
type DepositRepo struct {
	pool Pool
}

// NewDepositRepo creates a new DepositRepo.
func NewDepositRepo(pool Pool) *DepositRepo {
	return &DepositRepo{pool: pool}
}

// Create inserts a new pending ledger entry.
func (r *DepositRepo) Create(ctx context.Context, d *domain.DepositTransaction) error {
	query := `INSERT INTO deposit_transactions (id, order_id, user_id, payment_id, invoice_id,
		amount, pay_currency, status, tx_hash, ipn_received_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.pool.Exec(ctx, query,
		d.ID, d.OrderID, d.UserID, d.PaymentID, d.InvoiceID,
		d.Amount, d.PayCurrency, d.Status, d.TxHash, d.IPNReceivedAt,
		d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert deposit transaction: %w", err)
	}
	return nil
}

// GetByOrderID fetches a ledger entry by its idempotency key.
// Returns nil, nil when no entry exists.
func (r *DepositRepo) GetByOrderID(ctx context.Context, orderID string) (*domain.DepositTransaction, error) {
	query := fmt.Sprintf(`SELECT %s FROM deposit_transactions WHERE order_id = $1`, depositColumns)
	return scanDeposit(r.pool.QueryRow(ctx, query, orderID))
}

// ConfirmPending performs the one atomic conditional transition the whole
// core hangs on: PENDING -> CONFIRMED for orderID, setting the processor
// payment id, on-chain reference and notification time in the same UPDATE.
// The status predicate in the WHERE clause guarantees that among any number
// of concurrent deliveries exactly one gets a row back; the rest see nil.
func (r *DepositRepo) ConfirmPending(ctx context.Context, tx pgx.Tx, orderID, paymentID string, txHash *string, receivedAt time.Time) (*domain.DepositTransaction, error) {
	query := fmt.Sprintf(`UPDATE deposit_transactions
		SET status = $2, payment_id = $3, tx_hash = $4, ipn_received_at = $5, updated_at = NOW()
		WHERE order_id = $1 AND status = $6
		RETURNING %s`, depositColumns)

	row := tx.QueryRow(ctx, query,
		orderID, domain.DepositStatusConfirmed, paymentID, txHash, receivedAt,
		domain.DepositStatusPending,
	)
	d, err := scanDeposit(row)
	if err != nil {
		return nil, fmt.Errorf("confirm pending deposit: %w", err)
	}
	return d, nil
}

// ListByUser fetches a user's ledger entries, newest first, with total count.
func (r *DepositRepo) ListByUser(ctx context.Context, params ports.DepositListParams) ([]domain.DepositTransaction, int64, error) {
	var total int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM deposit_transactions WHERE user_id = $1`,
		params.UserID,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count deposit transactions: %w", err)
	}

	offset := (params.Page - 1) * params.PageSize
	query := fmt.Sprintf(`SELECT %s FROM deposit_transactions
		WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, depositColumns)

	rows, err := r.pool.Query(ctx, query, params.UserID, params.PageSize, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list deposit transactions: %w", err)
	}
	defer rows.Close()

	var deposits []domain.DepositTransaction
	for rows.Next() {
		d := domain.DepositTransaction{}
		err := rows.Scan(
			&d.ID, &d.OrderID, &d.UserID, &d.PaymentID, &d.InvoiceID,
			&d.Amount, &d.PayCurrency, &d.Status, &d.TxHash, &d.IPNReceivedAt,
			&d.CreatedAt, &d.UpdatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("scan deposit row: %w", err)
		}
		deposits = append(deposits, d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate deposit rows: %w", err)
	}
	return deposits, total, nil
}

// scanDeposit scans a single row into a DepositTransaction.
// Returns nil, nil on pgx.ErrNoRows.
func scanDeposit(row pgx.Row) (*domain.DepositTransaction, error) {
	d := &domain.DepositTransaction{}
	err := row.Scan(
		&d.ID, &d.OrderID, &d.UserID, &d.PaymentID, &d.InvoiceID,
		&d.Amount, &d.PayCurrency, &d.Status, &d.TxHash, &d.IPNReceivedAt,
		&d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan deposit: %w", err)
	}
	return d, nil
}

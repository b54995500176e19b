package postgres

import (
	"context"
	"testing"
	"time"

	"crypto-deposit-gateway/internal/core/domain"
	"crypto-deposit-gateway/internal/core/ports"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDeposit(userID uuid.UUID) *domain.DepositTransaction {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.DepositTransaction{
		ID:          uuid.New(),
		OrderID:     "DEP-" + uuid.NewString(),
		UserID:      userID,
		PaymentID:   "",
		InvoiceID:   "5207680879",
		Amount:      decimal.RequireFromString("50"),
		PayCurrency: "usdttrc20",
		Status:      domain.DepositStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func depositCols() []string {
	return []string{
		"id", "order_id", "user_id", "payment_id", "invoice_id", "amount",
		"pay_currency", "status", "tx_hash", "ipn_received_at", "created_at", "updated_at",
	}
}

func depositRow(d *domain.DepositTransaction) *pgxmock.Rows {
	return pgxmock.NewRows(depositCols()).AddRow(
		d.ID, d.OrderID, d.UserID, d.PaymentID, d.InvoiceID, d.Amount,
		d.PayCurrency, d.Status, d.TxHash, d.IPNReceivedAt, d.CreatedAt, d.UpdatedAt,
	)
}

func TestDepositRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewDepositRepo(mock)
	d := newTestDeposit(uuid.New())

	mock.ExpectExec("INSERT INTO deposit_transactions").
		WithArgs(d.ID, d.OrderID, d.UserID, d.PaymentID, d.InvoiceID,
			d.Amount, d.PayCurrency, d.Status, d.TxHash, d.IPNReceivedAt,
			d.CreatedAt, d.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = repo.Create(context.Background(), d)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDepositRepo_GetByOrderID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewDepositRepo(mock)
	d := newTestDeposit(uuid.New())

	mock.ExpectQuery("SELECT .+ FROM deposit_transactions WHERE order_id").
		WithArgs(d.OrderID).
		WillReturnRows(depositRow(d))

	result, err := repo.GetByOrderID(context.Background(), d.OrderID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, d.OrderID, result.OrderID)
	assert.Equal(t, domain.DepositStatusPending, result.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDepositRepo_GetByOrderID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewDepositRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM deposit_transactions WHERE order_id").
		WithArgs("DEP-unknown").
		WillReturnRows(pgxmock.NewRows(depositCols()))

	result, err := repo.GetByOrderID(context.Background(), "DEP-unknown")
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDepositRepo_ConfirmPending_Wins(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewDepositRepo(mock)
	d := newTestDeposit(uuid.New())
	txHash := "0xabc123"
	receivedAt := time.Now().UTC().Truncate(time.Microsecond)

	confirmed := *d
	confirmed.Status = domain.DepositStatusConfirmed
	confirmed.PaymentID = "6271629282"
	confirmed.TxHash = &txHash
	confirmed.IPNReceivedAt = &receivedAt

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE deposit_transactions SET status .+ WHERE order_id .+ AND status .+ RETURNING").
		WithArgs(d.OrderID, domain.DepositStatusConfirmed, "6271629282", &txHash, receivedAt, domain.DepositStatusPending).
		WillReturnRows(depositRow(&confirmed))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	result, err := repo.ConfirmPending(context.Background(), tx, d.OrderID, "6271629282", &txHash, receivedAt)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, domain.DepositStatusConfirmed, result.Status)
	assert.Equal(t, "6271629282", result.PaymentID)
	require.NotNil(t, result.TxHash)
	assert.Equal(t, txHash, *result.TxHash)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDepositRepo_ConfirmPending_NoMatch(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewDepositRepo(mock)
	receivedAt := time.Now().UTC()

	// Already confirmed by a prior delivery: the conditional UPDATE matches
	// nothing and the caller must treat the delivery as a no-op.
	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE deposit_transactions SET status").
		WithArgs("DEP-done", domain.DepositStatusConfirmed, "999", pgxmock.AnyArg(), receivedAt, domain.DepositStatusPending).
		WillReturnRows(pgxmock.NewRows(depositCols()))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	result, err := repo.ConfirmPending(context.Background(), tx, "DEP-done", "999", nil, receivedAt)
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDepositRepo_ListByUser(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewDepositRepo(mock)
	userID := uuid.New()
	d1 := newTestDeposit(userID)
	d2 := newTestDeposit(userID)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM deposit_transactions WHERE user_id").
		WithArgs(userID).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(2)))

	mock.ExpectQuery("SELECT .+ FROM deposit_transactions .+ ORDER BY created_at DESC").
		WithArgs(userID, 20, 0).
		WillReturnRows(depositRow(d1).AddRow(
			d2.ID, d2.OrderID, d2.UserID, d2.PaymentID, d2.InvoiceID, d2.Amount,
			d2.PayCurrency, d2.Status, d2.TxHash, d2.IPNReceivedAt, d2.CreatedAt, d2.UpdatedAt,
		))

	deposits, total, err := repo.ListByUser(context.Background(), ports.DepositListParams{
		UserID:   userID,
		Page:     1,
		PageSize: 20,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, deposits, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

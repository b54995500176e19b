package integration

import (
	"context"
	"sync"
	"time"

	"crypto-deposit-gateway/internal/core/domain"
	"crypto-deposit-gateway/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// The in-memory repos reproduce the storage layer's concurrency contract: a
// shared mutex stands in for row locks, so ConfirmPending's check-and-set is
// atomic here exactly as the conditional UPDATE is in PostgreSQL.

// --- In-Memory Wallet Repo ---

type inMemoryWalletRepo struct {
	mu      sync.Mutex
	wallets map[uuid.UUID]*domain.Wallet
}

func newInMemoryWalletRepo() *inMemoryWalletRepo {
	return &inMemoryWalletRepo{wallets: make(map[uuid.UUID]*domain.Wallet)}
}

func (r *inMemoryWalletRepo) GetOrCreate(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getOrCreateLocked(userID), nil
}

func (r *inMemoryWalletRepo) Credit(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w := r.getOrCreateLocked(userID)
	w.Balance = w.Balance.Add(amount)
	w.UpdatedAt = time.Now().UTC()
	return w.Balance, nil
}

func (r *inMemoryWalletRepo) getOrCreateLocked(userID uuid.UUID) *domain.Wallet {
	if w, ok := r.wallets[userID]; ok {
		return w
	}
	now := time.Now().UTC()
	w := &domain.Wallet{
		ID:        uuid.New(),
		UserID:    userID,
		Balance:   decimal.Zero,
		Currency:  domain.WalletCurrency,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.wallets[userID] = w
	return w
}

// --- In-Memory Deposit Repo ---

type inMemoryDepositRepo struct {
	mu       sync.Mutex
	byOrder  map[string]*domain.DepositTransaction
	ordering []string // insertion order, for ListByUser
}

func newInMemoryDepositRepo() *inMemoryDepositRepo {
	return &inMemoryDepositRepo{byOrder: make(map[string]*domain.DepositTransaction)}
}

func (r *inMemoryDepositRepo) Create(ctx context.Context, d *domain.DepositTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *d
	r.byOrder[d.OrderID] = &cp
	r.ordering = append(r.ordering, d.OrderID)
	return nil
}

func (r *inMemoryDepositRepo) GetByOrderID(ctx context.Context, orderID string) (*domain.DepositTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.byOrder[orderID]
	if !ok {
		return nil, nil
	}
	cp := *d
	return &cp, nil
}

func (r *inMemoryDepositRepo) ConfirmPending(ctx context.Context, tx pgx.Tx, orderID, paymentID string, txHash *string, receivedAt time.Time) (*domain.DepositTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.byOrder[orderID]
	if !ok || d.Status != domain.DepositStatusPending {
		return nil, nil
	}
	d.Status = domain.DepositStatusConfirmed
	d.PaymentID = paymentID
	d.TxHash = txHash
	d.IPNReceivedAt = &receivedAt
	d.UpdatedAt = time.Now().UTC()
	cp := *d
	return &cp, nil
}

func (r *inMemoryDepositRepo) ListByUser(ctx context.Context, params ports.DepositListParams) ([]domain.DepositTransaction, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var all []domain.DepositTransaction
	// Newest first.
	for i := len(r.ordering) - 1; i >= 0; i-- {
		d := r.byOrder[r.ordering[i]]
		if d.UserID == params.UserID {
			all = append(all, *d)
		}
	}

	total := int64(len(all))
	start := (params.Page - 1) * params.PageSize
	if start >= len(all) {
		return nil, total, nil
	}
	end := start + params.PageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

// --- In-Memory Transactor ---

// fakeTx satisfies pgx.Tx for the in-memory repos, which commit their writes
// immediately under the shared mutex.
type fakeTx struct{ pgx.Tx }

func (f *fakeTx) Commit(_ context.Context) error   { return nil }
func (f *fakeTx) Rollback(_ context.Context) error { return nil }

type inMemoryTransactor struct{}

func newInMemoryTransactor() *inMemoryTransactor { return &inMemoryTransactor{} }

func (t *inMemoryTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	return &fakeTx{}, nil
}

// --- Stub Processor ---

// stubProcessor returns a deterministic hosted payment page per invoice.
type stubProcessor struct {
	mu       sync.Mutex
	invoices int
}

func (p *stubProcessor) CreateInvoice(ctx context.Context, req ports.InvoiceRequest) (*ports.InvoiceResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.invoices++
	id := uuid.NewString()
	return &ports.InvoiceResponse{
		InvoiceID:  id,
		InvoiceURL: "https://nowpayments.io/payment/?iid=" + id,
	}, nil
}

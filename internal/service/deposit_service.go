package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"crypto-deposit-gateway/internal/core/domain"
	"crypto-deposit-gateway/internal/core/ports"
	"crypto-deposit-gateway/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// completionEligible maps the processor's payment_status vocabulary to the
// "should credit" decision. "sending" (funds in transit to our wallet) is
// credited immediately, before final settlement; that is a deliberate
// product decision carried over from the original risk policy. Everything
// absent from this list (waiting, confirming, expired, failed, refunded,
// partially_paid, ...) is acknowledged and ignored.
var completionEligible = map[string]bool{
	"finished":  true,
	"confirmed": true,
	"sending":   true,
}

// DepositServiceImpl implements ports.DepositService: invoice creation
// against the processor, idempotent webhook crediting, balance reads and
// transaction history.
type DepositServiceImpl struct {
	deposits   ports.DepositRepository
	wallets    ports.WalletRepository
	transactor ports.DBTransactor
	processor  ports.ProcessorClient
	sigSvc     ports.SignatureService
	opts       DepositOptions
	log        zerolog.Logger
}

// DepositOptions carries the configuration slice the deposit core needs.
type DepositOptions struct {
	MinAmountUSD  decimal.Decimal
	MaxAmountUSD  decimal.Decimal
	PayCurrencies []string // allow-list of settlement tickers
	IPNSecret     string
	CallbackURL   string
	SuccessURL    string
	CancelURL     string
}

// NewDepositService creates a new DepositServiceImpl.
func NewDepositService(
	deposits ports.DepositRepository,
	wallets ports.WalletRepository,
	transactor ports.DBTransactor,
	processor ports.ProcessorClient,
	sigSvc ports.SignatureService,
	opts DepositOptions,
	log zerolog.Logger,
) *DepositServiceImpl {
	return &DepositServiceImpl{
		deposits:   deposits,
		wallets:    wallets,
		transactor: transactor,
		processor:  processor,
		sigSvc:     sigSvc,
		opts:       opts,
		log:        log,
	}
}

// CreateDeposit turns a deposit intent into a processor-hosted payment page
// and a pending ledger entry. The ledger entry is written only after the
// processor call succeeds, so a failed call leaves no partial state. The
// processor mints a fresh invoice per call, so nothing here retries.
func (s *DepositServiceImpl) CreateDeposit(ctx context.Context, req ports.CreateDepositRequest) (*ports.CreateDepositResult, error) {
	if req.AmountUSD.LessThan(s.opts.MinAmountUSD) || req.AmountUSD.GreaterThan(s.opts.MaxAmountUSD) {
		return nil, apperror.ErrAmountOutOfRange(s.opts.MinAmountUSD.String(), s.opts.MaxAmountUSD.String())
	}

	payCurrency := s.normalizePayCurrency(req.PayCurrency)
	orderID := "DEP-" + uuid.NewString()

	inv, err := s.processor.CreateInvoice(ctx, ports.InvoiceRequest{
		PriceAmount:      req.AmountUSD,
		PriceCurrency:    "usd",
		OrderID:          orderID,
		OrderDescription: fmt.Sprintf("Balance deposit %s USD", req.AmountUSD.StringFixed(2)),
		IPNCallbackURL:   s.opts.CallbackURL,
		SuccessURL:       s.opts.SuccessURL,
		CancelURL:        s.opts.CancelURL,
		PayCurrency:      payCurrency,
	})
	if err != nil {
		var provErr *ports.ProviderError
		if errors.As(err, &provErr) && provErr.IsMinAmount() {
			return nil, apperror.ErrProviderMinAmount()
		}
		s.log.Error().Err(err).
			Str("order_id", orderID).
			Str("user_id", req.UserID.String()).
			Msg("invoice creation failed")
		return nil, apperror.ErrProviderUnavailable(err)
	}

	now := time.Now().UTC()
	dep := &domain.DepositTransaction{
		ID:          uuid.New(),
		OrderID:     orderID,
		UserID:      req.UserID,
		InvoiceID:   inv.InvoiceID,
		Amount:      req.AmountUSD,
		PayCurrency: payCurrency,
		Status:      domain.DepositStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.deposits.Create(ctx, dep); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create deposit transaction: %w", err))
	}

	s.log.Info().
		Str("order_id", orderID).
		Str("user_id", req.UserID.String()).
		Str("amount", req.AmountUSD.String()).
		Str("pay_currency", payCurrency).
		Msg("deposit created")

	return &ports.CreateDepositResult{
		PaymentURL: inv.InvoiceURL,
		OrderID:    orderID,
		Amount:     req.AmountUSD,
		Currency:   domain.WalletCurrency,
	}, nil
}

// normalizePayCurrency lowercases the requested ticker and checks it against
// the allow-list. Unknown tickers are dropped, not rejected, so the
// processor's own default applies and newly added processor currencies do
// not break older clients.
func (s *DepositServiceImpl) normalizePayCurrency(requested string) string {
	requested = strings.ToLower(strings.TrimSpace(requested))
	if requested == "" {
		return ""
	}
	for _, c := range s.opts.PayCurrencies {
		if requested == c {
			return requested
		}
	}
	return ""
}

// ipnPayload is the subset of the processor notification this service reads.
type ipnPayload struct {
	OrderID       string      `json:"order_id"`
	PaymentID     json.Number `json:"payment_id"`
	PaymentStatus string      `json:"payment_status"`
	TxHash        string      `json:"txHash"`
	PayAddress    string      `json:"pay_address"`
}

// HandleNotification authenticates one processor delivery and, for
// completion-eligible statuses, performs the pending->confirmed ledger
// transition and the wallet credit inside a single database transaction.
// Deliveries are at-least-once and may race; the conditional UPDATE makes
// sure at most one of them credits.
func (s *DepositServiceImpl) HandleNotification(ctx context.Context, rawBody []byte, signature string) (*ports.NotificationResult, error) {
	if len(rawBody) == 0 {
		return nil, apperror.ErrMissingIPNBody()
	}

	// Hard gate: nothing below runs on unverified input.
	if !s.sigSvc.Verify(s.opts.IPNSecret, rawBody, signature) {
		s.log.Warn().
			Bool("signature_present", signature != "").
			Msg("rejected notification with invalid signature")
		return nil, apperror.ErrInvalidIPNSignature()
	}

	var payload ipnPayload
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		// Verify already parsed the body, so this only trips on type
		// mismatches in the fields we read.
		return nil, apperror.ErrInvalidIPNSignature()
	}

	if !completionEligible[payload.PaymentStatus] {
		s.log.Debug().
			Str("order_id", payload.OrderID).
			Str("payment_status", payload.PaymentStatus).
			Msg("notification not completion-eligible, ignoring")
		return &ports.NotificationResult{
			Outcome:       ports.OutcomeIgnored,
			OrderID:       payload.OrderID,
			PaymentStatus: payload.PaymentStatus,
		}, nil
	}

	var txHash *string
	if h := firstNonEmpty(payload.TxHash, payload.PayAddress); h != "" {
		txHash = &h
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	dep, err := s.deposits.ConfirmPending(ctx, dbTx, payload.OrderID, payload.PaymentID.String(), txHash, time.Now().UTC())
	if err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("confirm pending: %w", err))
	}
	if dep == nil {
		// Lost the race, entry already terminal, or order_id unknown.
		// All of these acknowledge with 200 so the processor stops
		// retrying something we have already handled or never issued.
		return s.classifyNoop(ctx, payload)
	}

	newBalance, err := s.wallets.Credit(ctx, dbTx, dep.UserID, dep.Amount)
	if err != nil {
		// The rollback puts the entry back to pending, so the processor's
		// next redelivery retries the whole unit of work. Logged loudly
		// because a persistent failure here delays a user's funds.
		s.log.Error().Err(err).
			Str("order_id", dep.OrderID).
			Str("user_id", dep.UserID.String()).
			Str("amount", dep.Amount.String()).
			Msg("wallet credit failed after ledger transition")
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("credit wallet: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		s.log.Error().Err(err).
			Str("order_id", dep.OrderID).
			Str("user_id", dep.UserID.String()).
			Str("amount", dep.Amount.String()).
			Msg("commit failed after ledger transition and credit")
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("commit: %w", err))
	}

	s.log.Info().
		Str("order_id", dep.OrderID).
		Str("user_id", dep.UserID.String()).
		Str("amount", dep.Amount.String()).
		Str("new_balance", newBalance.String()).
		Str("payment_status", payload.PaymentStatus).
		Msg("deposit confirmed, wallet credited")

	return &ports.NotificationResult{
		Outcome:       ports.OutcomeCredited,
		OrderID:       payload.OrderID,
		PaymentStatus: payload.PaymentStatus,
	}, nil
}

// classifyNoop distinguishes an unknown order_id from an already-terminal
// entry for logging. Both are benign 200 no-ops toward the processor.
func (s *DepositServiceImpl) classifyNoop(ctx context.Context, payload ipnPayload) (*ports.NotificationResult, error) {
	existing, err := s.deposits.GetByOrderID(ctx, payload.OrderID)
	if err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("lookup order: %w", err))
	}
	if existing == nil {
		s.log.Warn().
			Str("order_id", payload.OrderID).
			Msg("notification for unknown order, ignoring")
		return &ports.NotificationResult{
			Outcome:       ports.OutcomeUnknownOrder,
			OrderID:       payload.OrderID,
			PaymentStatus: payload.PaymentStatus,
		}, nil
	}

	s.log.Debug().
		Str("order_id", payload.OrderID).
		Str("status", string(existing.Status)).
		Msg("duplicate notification for settled order")
	return &ports.NotificationResult{
		Outcome:       ports.OutcomeAlreadyProcessed,
		OrderID:       payload.OrderID,
		PaymentStatus: payload.PaymentStatus,
	}, nil
}

// GetBalance returns the user's wallet, creating an empty one on first read.
func (s *DepositServiceImpl) GetBalance(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error) {
	w, err := s.wallets.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get wallet: %w", err))
	}
	return w, nil
}

// ListDeposits returns the user's ledger entries, newest first.
func (s *DepositServiceImpl) ListDeposits(ctx context.Context, params ports.DepositListParams) ([]domain.DepositTransaction, int64, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 || params.PageSize > 100 {
		params.PageSize = 20
	}
	deposits, total, err := s.deposits.ListByUser(ctx, params)
	if err != nil {
		return nil, 0, apperror.InternalError(fmt.Errorf("list deposits: %w", err))
	}
	return deposits, total, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

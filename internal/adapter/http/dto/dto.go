package dto

import "github.com/shopspring/decimal"

// CreateCryptoPaymentRequest is the request body for deposit creation.
// Amount bounds are enforced in the service against configuration, not in
// binding tags, so the error message can name the configured limits.
type CreateCryptoPaymentRequest struct {
	AmountUSD   decimal.Decimal `json:"amountUSD" binding:"required"`
	PayCurrency string          `json:"payCurrency,omitempty" binding:"omitempty,max=20"`
}

// CreateCryptoPaymentResponse is the response body for deposit creation.
type CreateCryptoPaymentResponse struct {
	PaymentURL string          `json:"paymentUrl"`
	OrderID    string          `json:"orderId"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
}

// WalletBalanceResponse is the response for balance query.
type WalletBalanceResponse struct {
	Balance   decimal.Decimal `json:"balance"`
	Currency  string          `json:"currency"`
	UpdatedAt string          `json:"updatedAt"`
}

// DepositTransactionResponse is one ledger entry in transaction history.
type DepositTransactionResponse struct {
	OrderID     string          `json:"orderId"`
	Amount      decimal.Decimal `json:"amount"`
	PayCurrency string          `json:"payCurrency,omitempty"`
	Status      string          `json:"status"`
	TxHash      *string         `json:"txHash,omitempty"`
	CreatedAt   string          `json:"createdAt"`
	UpdatedAt   string          `json:"updatedAt"`
}

// DepositListResponse is the paginated transaction history.
type DepositListResponse struct {
	Items    []DepositTransactionResponse `json:"items"`
	Total    int64                        `json:"total"`
	Page     int                          `json:"page"`
	PageSize int                          `json:"pageSize"`
}

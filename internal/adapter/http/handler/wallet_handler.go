package handler

import (
	"net/http"
	"strconv"
	"time"

	"crypto-deposit-gateway/internal/adapter/http/dto"
	"crypto-deposit-gateway/internal/adapter/http/middleware"
	"crypto-deposit-gateway/internal/core/domain"
	"crypto-deposit-gateway/internal/core/ports"
	"crypto-deposit-gateway/pkg/apperror"
	"crypto-deposit-gateway/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// WalletHandler handles authenticated wallet and deposit endpoints.
type WalletHandler struct {
	depositSvc ports.DepositService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(depositSvc ports.DepositService) *WalletHandler {
	return &WalletHandler{depositSvc: depositSvc}
}

// CreateCryptoPayment handles POST /api/v1/wallet/create-crypto-payment.
func (h *WalletHandler) CreateCryptoPayment(c *gin.Context) {
	userID, ok := authenticatedUserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.CreateCryptoPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	result, err := h.depositSvc.CreateDeposit(c.Request.Context(), ports.CreateDepositRequest{
		UserID:      userID,
		AmountUSD:   req.AmountUSD,
		PayCurrency: req.PayCurrency,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.CreateCryptoPaymentResponse{
		PaymentURL: result.PaymentURL,
		OrderID:    result.OrderID,
		Amount:     result.Amount,
		Currency:   result.Currency,
	})
}

// GetBalance handles GET /api/v1/wallet/balance.
func (h *WalletHandler) GetBalance(c *gin.Context) {
	userID, ok := authenticatedUserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	wallet, err := h.depositSvc.GetBalance(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.WalletBalanceResponse{
		Balance:   wallet.Balance,
		Currency:  wallet.Currency,
		UpdatedAt: wallet.UpdatedAt.Format(time.RFC3339),
	})
}

// ListTransactions handles GET /api/v1/wallet/crypto-transactions.
func (h *WalletHandler) ListTransactions(c *gin.Context) {
	userID, ok := authenticatedUserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))

	params := ports.DepositListParams{UserID: userID, Page: page, PageSize: pageSize}
	deposits, total, err := h.depositSvc.ListDeposits(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.DepositTransactionResponse, 0, len(deposits))
	for i := range deposits {
		items = append(items, toDepositResponse(&deposits[i]))
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	response.OK(c, dto.DepositListResponse{
		Items:    items,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	})
}

// HealthCheck handles GET /health. Pings every registered dependency and
// reports 503 when any of them is down.
func HealthCheck(checkers ...ports.HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		type depStatus struct {
			Status string `json:"status"`
			Error  string `json:"error,omitempty"`
		}

		deps := make(map[string]depStatus)
		allHealthy := true

		for _, checker := range checkers {
			if err := checker.Ping(c.Request.Context()); err != nil {
				deps[checker.Name()] = depStatus{Status: "unhealthy", Error: err.Error()}
				allHealthy = false
			} else {
				deps[checker.Name()] = depStatus{Status: "healthy"}
			}
		}

		status := "healthy"
		httpCode := http.StatusOK
		if !allHealthy {
			status = "degraded"
			httpCode = http.StatusServiceUnavailable
		}

		c.JSON(httpCode, gin.H{
			"status":       status,
			"dependencies": deps,
		})
	}
}

// authenticatedUserID pulls the user id set by the JWT middleware.
func authenticatedUserID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(middleware.CtxUserID)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

// toDepositResponse converts a domain ledger entry to its DTO.
func toDepositResponse(d *domain.DepositTransaction) dto.DepositTransactionResponse {
	return dto.DepositTransactionResponse{
		OrderID:     d.OrderID,
		Amount:      d.Amount,
		PayCurrency: d.PayCurrency,
		Status:      string(d.Status),
		TxHash:      d.TxHash,
		CreatedAt:   d.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   d.UpdatedAt.Format(time.RFC3339),
	}
}

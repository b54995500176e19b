package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"crypto-deposit-gateway/internal/adapter/http/dto"
	"crypto-deposit-gateway/internal/adapter/http/middleware"
	"crypto-deposit-gateway/internal/core/domain"
	"crypto-deposit-gateway/internal/core/ports"
	"crypto-deposit-gateway/internal/core/ports/mocks"
	"crypto-deposit-gateway/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func authedContext(w *httptest.ResponseRecorder, userID uuid.UUID) (*gin.Context, *gin.Engine) {
	c, r := gin.CreateTestContext(w)
	c.Set(middleware.CtxUserID, userID)
	return c, r
}

// --- Wallet Handler Tests ---

func TestCreateCryptoPayment_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockDepositService(ctrl)
	h := NewWalletHandler(mockSvc)

	userID := uuid.New()
	amount := decimal.RequireFromString("50")
	mockSvc.EXPECT().CreateDeposit(gomock.Any(), ports.CreateDepositRequest{
		UserID:      userID,
		AmountUSD:   amount,
		PayCurrency: "usdttrc20",
	}).Return(&ports.CreateDepositResult{
		PaymentURL: "https://nowpayments.io/payment/?iid=123",
		OrderID:    "DEP-abc",
		Amount:     amount,
		Currency:   "USD",
	}, nil)

	body, _ := json.Marshal(dto.CreateCryptoPaymentRequest{
		AmountUSD:   amount,
		PayCurrency: "usdttrc20",
	})

	w := httptest.NewRecorder()
	c, _ := authedContext(w, userID)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/wallet/create-crypto-payment", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	h.CreateCryptoPayment(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["success"])
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "https://nowpayments.io/payment/?iid=123", data["paymentUrl"])
	assert.Equal(t, "DEP-abc", data["orderId"])
	assert.Equal(t, "USD", data["currency"])
}

func TestCreateCryptoPayment_ValidationError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewWalletHandler(mocks.NewMockDepositService(ctrl))

	w := httptest.NewRecorder()
	c, _ := authedContext(w, uuid.New())
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/wallet/create-crypto-payment", bytes.NewReader([]byte("{}")))
	c.Request.Header.Set("Content-Type", "application/json")

	h.CreateCryptoPayment(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, false, resp["success"])
}

func TestCreateCryptoPayment_AmountOutOfRange(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockDepositService(ctrl)
	h := NewWalletHandler(mockSvc)

	mockSvc.EXPECT().CreateDeposit(gomock.Any(), gomock.Any()).
		Return(nil, apperror.ErrAmountOutOfRange("6", "10000"))

	body, _ := json.Marshal(dto.CreateCryptoPaymentRequest{
		AmountUSD: decimal.RequireFromString("2"),
	})

	w := httptest.NewRecorder()
	c, _ := authedContext(w, uuid.New())
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/wallet/create-crypto-payment", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	h.CreateCryptoPayment(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, false, resp["success"])
	assert.Contains(t, resp["message"], "between 6 and 10000")
}

func TestCreateCryptoPayment_MissingUser(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewWalletHandler(mocks.NewMockDepositService(ctrl))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w) // no user id in context
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/wallet/create-crypto-payment", bytes.NewReader([]byte("{}")))

	h.CreateCryptoPayment(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetBalance_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockDepositService(ctrl)
	h := NewWalletHandler(mockSvc)

	userID := uuid.New()
	mockSvc.EXPECT().GetBalance(gomock.Any(), userID).Return(&domain.Wallet{
		UserID:   userID,
		Balance:  decimal.RequireFromString("123.45"),
		Currency: "USD",
	}, nil)

	w := httptest.NewRecorder()
	c, _ := authedContext(w, userID)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/wallet/balance", nil)

	h.GetBalance(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "123.45", data["balance"])
	assert.Equal(t, "USD", data["currency"])
}

func TestListTransactions_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockDepositService(ctrl)
	h := NewWalletHandler(mockSvc)

	userID := uuid.New()
	mockSvc.EXPECT().
		ListDeposits(gomock.Any(), ports.DepositListParams{UserID: userID, Page: 2, PageSize: 10}).
		Return([]domain.DepositTransaction{
			{OrderID: "DEP-1", Amount: decimal.RequireFromString("50"), Status: domain.DepositStatusConfirmed},
		}, int64(11), nil)

	w := httptest.NewRecorder()
	c, _ := authedContext(w, userID)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/wallet/crypto-transactions?page=2&pageSize=10", nil)

	h.ListTransactions(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, float64(11), data["total"])
	assert.Equal(t, float64(2), data["page"])
	items := data["items"].([]interface{})
	require.Len(t, items, 1)
	assert.Equal(t, "DEP-1", items[0].(map[string]interface{})["orderId"])
}

// --- Webhook Handler Tests ---

func webhookRequest(body []byte, sig string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/nowpayments", bytes.NewReader(body))
	if sig != "" {
		req.Header.Set(SignatureHeader, sig)
	}
	return req
}

func TestWebhook_Credited(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockDepositService(ctrl)
	h := NewWebhookHandler(mockSvc, zerolog.Nop())

	body := []byte(`{"payment_status":"finished","order_id":"DEP-abc"}`)
	mockSvc.EXPECT().HandleNotification(gomock.Any(), body, "valid-sig").
		Return(&ports.NotificationResult{
			Outcome:       ports.OutcomeCredited,
			OrderID:       "DEP-abc",
			PaymentStatus: "finished",
		}, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = webhookRequest(body, "valid-sig")

	h.HandleNOWPayments(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["ok"])
}

func TestWebhook_InvalidSignature(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockDepositService(ctrl)
	h := NewWebhookHandler(mockSvc, zerolog.Nop())

	body := []byte(`{"payment_status":"finished","order_id":"DEP-abc"}`)
	mockSvc.EXPECT().HandleNotification(gomock.Any(), body, "bad-sig").
		Return(nil, apperror.ErrInvalidIPNSignature())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = webhookRequest(body, "bad-sig")

	h.HandleNOWPayments(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, false, resp["ok"])
	assert.Equal(t, "invalid signature", resp["reason"])
}

func TestWebhook_MissingBody(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockDepositService(ctrl)
	h := NewWebhookHandler(mockSvc, zerolog.Nop())

	mockSvc.EXPECT().HandleNotification(gomock.Any(), []byte{}, "sig").
		Return(nil, apperror.ErrMissingIPNBody())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = webhookRequest(nil, "sig")

	h.HandleNOWPayments(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "missing body", resp["reason"])
}

func TestWebhook_StorageFailureReturns500(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockDepositService(ctrl)
	h := NewWebhookHandler(mockSvc, zerolog.Nop())

	body := []byte(`{"payment_status":"finished","order_id":"DEP-abc"}`)
	mockSvc.EXPECT().HandleNotification(gomock.Any(), body, "sig").
		Return(nil, apperror.ErrStorageUnavailable(assert.AnError))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = webhookRequest(body, "sig")

	h.HandleNOWPayments(c)

	// 5xx so the processor redelivers after the transient failure.
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestWebhook_DuplicateDeliveryAcknowledged(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockDepositService(ctrl)
	h := NewWebhookHandler(mockSvc, zerolog.Nop())

	body := []byte(`{"payment_status":"finished","order_id":"DEP-abc"}`)
	mockSvc.EXPECT().HandleNotification(gomock.Any(), body, "sig").
		Return(&ports.NotificationResult{
			Outcome:       ports.OutcomeAlreadyProcessed,
			OrderID:       "DEP-abc",
			PaymentStatus: "finished",
		}, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = webhookRequest(body, "sig")

	h.HandleNOWPayments(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["ok"])
}

// --- Health Handler Tests ---

type stubChecker struct {
	name string
	err  error
}

func (s stubChecker) Ping(_ context.Context) error { return s.err }
func (s stubChecker) Name() string                 { return s.name }

func TestHealthCheck_AllHealthy(t *testing.T) {
	router := gin.New()
	router.GET("/health", HealthCheck(stubChecker{name: "postgres"}, stubChecker{name: "redis"}))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"healthy"`)
}

func TestHealthCheck_Degraded(t *testing.T) {
	router := gin.New()
	router.GET("/health", HealthCheck(
		stubChecker{name: "postgres"},
		stubChecker{name: "redis", err: assert.AnError},
	))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"degraded"`)
}

package handler

import (
	"errors"
	"io"
	"net/http"

	"crypto-deposit-gateway/internal/core/ports"
	"crypto-deposit-gateway/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// SignatureHeader is the header the processor signs its deliveries with.
const SignatureHeader = "x-nowpayments-sig"

// WebhookHandler receives payment processor IPN callbacks. This endpoint is
// server-to-server: no session auth, the HMAC signature is the only
// authentication, and responses use the processor's bare ok/reason shape
// rather than the client API envelope.
type WebhookHandler struct {
	depositSvc ports.DepositService
	log        zerolog.Logger
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(depositSvc ports.DepositService, log zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{depositSvc: depositSvc, log: log}
}

// HandleNOWPayments handles POST /api/v1/webhooks/nowpayments.
//
// Status policy: 200 acknowledges a delivery we never want redelivered
// (credited, duplicate, non-eligible status, unknown order). 400 rejects
// input that will never verify. 5xx is reserved for transient storage
// failures, where the processor's retry is exactly what we want.
func (h *WebhookHandler) HandleNOWPayments(c *gin.Context) {
	rawBody, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "reason": "unreadable body"})
		return
	}

	signature := c.GetHeader(SignatureHeader)

	result, err := h.depositSvc.HandleNotification(c.Request.Context(), rawBody, signature)
	if err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) && appErr.HTTPStatus < http.StatusInternalServerError {
			c.JSON(appErr.HTTPStatus, gin.H{"ok": false, "reason": appErr.Message})
			return
		}
		h.log.Error().Err(err).Msg("webhook processing failed")
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "reason": "temporary failure"})
		return
	}

	h.log.Info().
		Str("order_id", result.OrderID).
		Str("payment_status", result.PaymentStatus).
		Str("outcome", string(result.Outcome)).
		Msg("webhook processed")

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

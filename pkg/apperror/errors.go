package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to an HTTP response.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // wrapped internal error, never exposed to clients
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: httpStatus}
}

// Wrap attaches an internal error to a new AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: httpStatus, Err: err}
}

// ---- Deposit validation (DEP) ----

// ErrAmountOutOfRange rejects deposit amounts outside the accepted bounds.
func ErrAmountOutOfRange(min, max string) *AppError {
	return New("DEP_001", fmt.Sprintf("Deposit amount must be between %s and %s USD", min, max), http.StatusBadRequest)
}

func ErrInvalidAmount() *AppError {
	return New("DEP_002", "Invalid deposit amount", http.StatusBadRequest)
}

// ---- Payment provider (PROV) ----

// ErrProviderUnavailable hides raw provider failures behind a generic message.
func ErrProviderUnavailable(err error) *AppError {
	return Wrap("PROV_001", "Could not create payment, please try again later", http.StatusBadGateway, err)
}

// ErrProviderMinAmount translates the provider's minimum-amount rejection
// into an actionable message instead of leaking the raw provider error.
func ErrProviderMinAmount() *AppError {
	return New("PROV_002", "Amount is too low for the selected currency, please try a higher amount", http.StatusBadRequest)
}

// ---- Webhook security (SEC) ----

func ErrMissingIPNBody() *AppError {
	return New("SEC_001", "missing body", http.StatusBadRequest)
}

func ErrInvalidIPNSignature() *AppError {
	return New("SEC_002", "invalid signature", http.StatusBadRequest)
}

// ---- Authentication (AUTH) ----

func ErrInvalidToken() *AppError {
	return New("AUTH_001", "Invalid or expired token", http.StatusUnauthorized)
}

// ---- Rate limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System (SYS) ----

// InternalError wraps an internal error as a generic 500.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// ErrStorageUnavailable signals that storage failed mid-operation. Webhook
// handling returns it so the processor's retry policy redelivers.
func ErrStorageUnavailable(err error) *AppError {
	return Wrap("SYS_002", "Storage unavailable", http.StatusInternalServerError, err)
}

// Validation creates a request-shape validation error.
func Validation(message string) *AppError {
	return New("DEP_002", message, http.StatusBadRequest)
}

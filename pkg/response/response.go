package response

import (
	"errors"
	"net/http"

	"crypto-deposit-gateway/pkg/apperror"

	"github.com/gin-gonic/gin"
)

// Envelope is the standard success shape: { "success": true, "data": ... }.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
}

// ErrorEnvelope is the standard failure shape: { "success": false, "message": ... }.
type ErrorEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// OK sends a 200 response with data.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Envelope{Success: true, Data: data})
}

// Created sends a 201 response with data.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Envelope{Success: true, Data: data})
}

// Error maps an error to the failure envelope. *apperror.AppError carries its
// own HTTP status; anything else collapses to a 500 with a generic message.
func Error(c *gin.Context, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		c.JSON(appErr.HTTPStatus, ErrorEnvelope{Success: false, Message: appErr.Message})
		return
	}
	c.JSON(http.StatusInternalServerError, ErrorEnvelope{Success: false, Message: "Internal server error"})
}

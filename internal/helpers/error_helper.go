package helpers

import (
	"errors"
	"net/http"

	"github.com/farellandr/payrecon/internal/payment"
	"github.com/gin-gonic/gin"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func HTTPStatusText(code int) string {
	return http.StatusText(code)
}

func RespondWithError(c *gin.Context, statusCode int, customMessage string) {
	c.JSON(statusCode, ErrorResponse{
		Error:   HTTPStatusText(statusCode),
		Message: customMessage,
	})
}

var errorStatuses = []struct {
	err     error
	status  int
	message string
}{
	{payment.ErrPaymentNotFound, http.StatusNotFound, "Payment not found."},
	{payment.ErrUserNotFound, http.StatusNotFound, "User not found."},
	{payment.ErrForbidden, http.StatusForbidden, "You are not allowed to access this payment."},
	{payment.ErrPaymentNotPaid, http.StatusConflict, "Payment has not been completed."},
	{payment.ErrUnsupportedMethod, http.StatusBadRequest, "Unsupported payment method."},
	{payment.ErrInvalidAmount, http.StatusBadRequest, "Amount must be greater than zero."},
	{payment.ErrInvalidPurpose, http.StatusBadRequest, "Invalid payment purpose."},
	{payment.ErrInvalidFilter, http.StatusBadRequest, "Invalid status filter."},
	{payment.ErrInvalidCallback, http.StatusBadRequest, "Transaction ID is required."},
	{payment.ErrUpstreamGateway, http.StatusBadGateway, "Failed to initiate payment with gateway."},
}

// StatusForError maps an engine error onto an HTTP status and a client-facing message.
// Unknown errors are 500 and never leak their text.
func StatusForError(err error) (int, string) {
	for _, e := range errorStatuses {
		if errors.Is(err, e.err) {
			return e.status, e.message
		}
	}
	return http.StatusInternalServerError, "Something went wrong. Please try again later."
}

func RespondWithServiceError(c *gin.Context, err error) {
	status, message := StatusForError(err)
	_ = c.Error(err)
	RespondWithError(c, status, message)
}

package payment

import "errors"

var (
	ErrPaymentNotFound   = errors.New("payment not found")
	ErrUserNotFound      = errors.New("user not found")
	ErrForbidden         = errors.New("access to payment forbidden")
	ErrUnsupportedMethod = errors.New("unsupported payment method")
	ErrUpstreamGateway   = errors.New("payment gateway error")
	ErrInvalidCallback   = errors.New("invalid gateway callback")
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrInvalidPurpose    = errors.New("unknown payment purpose")
	ErrPaymentNotPaid    = errors.New("payment is not paid")
	ErrInvalidFilter     = errors.New("invalid payment filter")
)

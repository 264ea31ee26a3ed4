package models

import "time"

// PaymentEvent is published after a payment transition has been committed.
type PaymentEvent struct {
	Type          string        `json:"type"`
	PaymentID     string        `json:"payment_id"`
	TransactionID string        `json:"transaction_id"`
	UserID        string        `json:"user_id"`
	Purpose       string        `json:"purpose"`
	Status        PaymentStatus `json:"status"`
	Amount        string        `json:"amount"`
	Timestamp     time.Time     `json:"timestamp"`
}

package payment

import (
	"context"

	"github.com/farellandr/payrecon/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transactor runs fn atomically. Stores handed the inner context take part in the
// same transaction.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type UserLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// GatewayRequest carries what a hosted checkout needs to open a session.
type GatewayRequest struct {
	User          *models.User
	UserID        uuid.UUID
	Amount        decimal.Decimal
	Purpose       models.PaymentPurpose
	TransactionID string
	PaymentID     uuid.UUID
}

type GatewayResponse struct {
	GatewayURL string
}

// GatewaySession opens a checkout session at an external gateway and returns the
// URL the payer is redirected to.
type GatewaySession interface {
	CreatePayment(ctx context.Context, req GatewayRequest) (*GatewayResponse, error)
}

// FundCredit is a ledger credit produced by a completed donation.
type FundCredit struct {
	UserID        uuid.UUID
	Amount        decimal.Decimal
	PaymentID     uuid.UUID
	TransactionID string
	Label         string
}

// LedgerEffects are the side effects of a payment entering PAID. They are invoked
// with the context of the transition's transaction and must write through it.
type LedgerEffects interface {
	CreditFund(ctx context.Context, credit FundCredit) error
	ElevateToMember(ctx context.Context, userID uuid.UUID) (bool, error)
}

type EventPublisher interface {
	PublishPaymentEvent(ctx context.Context, event models.PaymentEvent) error
}

package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/farellandr/payrecon/internal/models"
	"github.com/farellandr/payrecon/internal/payment"
	"github.com/farellandr/payrecon/internal/repository"
	"github.com/google/uuid"
)

// Ledger writes the fund credit and membership side effects of a completed payment.
// Both run through the repositories with the caller's context, so they join the
// reconciliation transaction when one is open.
type Ledger struct {
	funds repository.FundRepository
	users repository.UserRepository
}

func New(funds repository.FundRepository, users repository.UserRepository) *Ledger {
	return &Ledger{funds: funds, users: users}
}

func (l *Ledger) CreditFund(ctx context.Context, credit payment.FundCredit) error {
	if !credit.Amount.IsPositive() {
		return fmt.Errorf("credit amount must be positive, got %s", credit.Amount)
	}
	return l.funds.CreateTransaction(ctx, &models.FundTransaction{
		UserID:        credit.UserID,
		PaymentID:     credit.PaymentID,
		TransactionID: credit.TransactionID,
		Amount:        credit.Amount,
		Type:          models.FundTransactionCredit,
		Label:         credit.Label,
	})
}

func (l *Ledger) ElevateToMember(ctx context.Context, userID uuid.UUID) (bool, error) {
	elevated, err := l.users.ElevateToMember(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return false, payment.ErrUserNotFound
	}
	return elevated, err
}

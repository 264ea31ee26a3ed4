package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/farellandr/payrecon/internal/models"
	"github.com/farellandr/payrecon/internal/repository"
	"go.uber.org/zap"
)

const maxTransitionAttempts = 5

// Reconcile applies a gateway outcome to the payment identified by transactionID.
//
// The row is read under a lock, the transition is written with a compare-and-set
// on the observed status, and the side effects run in the same transaction only
// when this call performed the write. Any effect error rolls the payment back.
//
// An unknown transaction is an error for SUCCESS only; every other outcome treats
// it as a stale or forged callback and returns nil.
func (e *Engine) Reconcile(ctx context.Context, transactionID string, outcome Outcome) error {
	if transactionID == "" {
		return ErrInvalidCallback
	}

	ev := EventFor(outcome)
	if ev == EventNone {
		e.logger.Info("Ignoring gateway notification",
			zap.String("transaction_id", transactionID),
			zap.String("outcome", string(outcome)),
		)
		return nil
	}

	var committed *models.Payment
	err := e.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		committed = nil

		for attempt := 1; ; attempt++ {
			current, err := e.payments.FindByTransactionIDForUpdate(ctx, transactionID)
			if errors.Is(err, repository.ErrNotFound) {
				return ErrPaymentNotFound
			}
			if err != nil {
				return fmt.Errorf("load payment: %w", err)
			}

			next, effects, changed := Transition(*current, ev, e.now())
			if !changed {
				e.logger.Info("Skipping duplicate callback",
					zap.String("transaction_id", transactionID),
					zap.String("status", string(current.Status)),
					zap.String("outcome", string(outcome)),
				)
				return nil
			}

			ok, err := e.payments.CompareAndSetStatus(ctx, current.ID, current.Status, next.Status, next.PaidAt)
			if err != nil {
				return fmt.Errorf("update payment status: %w", err)
			}
			if !ok {
				// status moved since the read; decide again against the new status
				if attempt < maxTransitionAttempts {
					continue
				}
				return fmt.Errorf("payment status kept changing after %d attempts", attempt)
			}

			for _, eff := range effects {
				if err := e.applyEffect(ctx, next, eff); err != nil {
					return err
				}
			}
			committed = &next
			return nil
		}
	})

	if errors.Is(err, ErrPaymentNotFound) {
		if outcome == OutcomeSuccess {
			e.logger.Warn("Success callback for unknown transaction", zap.String("transaction_id", transactionID))
			return fmt.Errorf("%w: %s", ErrPaymentNotFound, transactionID)
		}
		e.logger.Info("Callback for unknown transaction",
			zap.String("transaction_id", transactionID),
			zap.String("outcome", string(outcome)),
		)
		return nil
	}
	if err != nil {
		e.logger.Error("Reconciliation failed",
			zap.String("transaction_id", transactionID),
			zap.String("outcome", string(outcome)),
			zap.Error(err),
		)
		return fmt.Errorf("reconcile %s: %w", transactionID, err)
	}

	if committed != nil {
		e.logger.Info("Payment status updated",
			zap.String("payment_id", committed.ID.String()),
			zap.String("transaction_id", transactionID),
			zap.String("status", string(committed.Status)),
		)
		e.publish(ctx, *committed, ev)
	}
	return nil
}

func (e *Engine) applyEffect(ctx context.Context, p models.Payment, eff Effect) error {
	switch eff {
	case EffectElevateMember:
		elevated, err := e.ledger.ElevateToMember(ctx, p.UserID)
		if err != nil {
			return fmt.Errorf("elevate user %s: %w", p.UserID, err)
		}
		if elevated {
			e.logger.Info("User elevated to member", zap.String("user_id", p.UserID.String()))
		}
	case EffectCreditFund:
		err := e.ledger.CreditFund(ctx, FundCredit{
			UserID:        p.UserID,
			Amount:        p.Amount,
			PaymentID:     p.ID,
			TransactionID: p.TransactionID,
			Label:         p.Purpose.FundLabel(),
		})
		if err != nil {
			return fmt.Errorf("credit fund: %w", err)
		}
		e.logger.Info("Fund credited",
			zap.String("transaction_id", p.TransactionID),
			zap.String("amount", p.Amount.String()),
		)
	}
	return nil
}

// publish runs after commit. Delivery is best effort; the payment row is the record.
func (e *Engine) publish(ctx context.Context, p models.Payment, ev Event) {
	if e.events == nil {
		return
	}
	event := models.PaymentEvent{
		Type:          "payment." + ev.String(),
		PaymentID:     p.ID.String(),
		TransactionID: p.TransactionID,
		UserID:        p.UserID.String(),
		Purpose:       string(p.Purpose),
		Status:        p.Status,
		Amount:        p.Amount.String(),
		Timestamp:     e.now().UTC(),
	}
	if err := e.events.PublishPaymentEvent(ctx, event); err != nil {
		e.logger.Warn("Failed to publish payment event",
			zap.String("transaction_id", p.TransactionID),
			zap.String("event_type", event.Type),
			zap.Error(err),
		)
	}
}

package payment

import (
	"time"

	"github.com/farellandr/payrecon/internal/models"
)

type Outcome string

const (
	OutcomeSuccess    Outcome = "SUCCESS"
	OutcomeFail       Outcome = "FAIL"
	OutcomeCancel     Outcome = "CANCEL"
	OutcomeIPNValid   Outcome = "IPN_VALID"
	OutcomeIPNInvalid Outcome = "IPN_INVALID"
)

type Event int

const (
	EventNone Event = iota
	EventPaid
	EventFailed
	EventCancelled
)

func (e Event) String() string {
	switch e {
	case EventPaid:
		return "paid"
	case EventFailed:
		return "failed"
	case EventCancelled:
		return "cancelled"
	}
	return "none"
}

// EventFor maps a gateway outcome onto the state machine. SUCCESS and IPN_VALID
// both mean paid.
func EventFor(o Outcome) Event {
	switch o {
	case OutcomeSuccess, OutcomeIPNValid:
		return EventPaid
	case OutcomeFail:
		return EventFailed
	case OutcomeCancel:
		return EventCancelled
	}
	return EventNone
}

type Effect int

const (
	EffectElevateMember Effect = iota + 1
	EffectCreditFund
)

// Transition computes the payment that results from applying ev at time now, and
// the side effects owed for it. changed is false when the event is absorbed, in
// which case effects is always empty. The input payment is not modified.
//
// PAID absorbs every event. Effects are only produced by a transition into PAID.
func Transition(p models.Payment, ev Event, now time.Time) (next models.Payment, effects []Effect, changed bool) {
	next = p
	if p.Status == models.PaymentStatusPaid {
		return next, nil, false
	}

	switch ev {
	case EventPaid:
		paidAt := now
		next.Status = models.PaymentStatusPaid
		next.PaidAt = &paidAt
		if p.Purpose == models.PurposeMembershipFee {
			effects = append(effects, EffectElevateMember)
		}
		if p.Purpose.IsDonation() {
			effects = append(effects, EffectCreditFund)
		}
		return next, effects, true
	case EventFailed:
		next.Status = models.PaymentStatusFailed
	case EventCancelled:
		next.Status = models.PaymentStatusCancelled
	default:
		return next, nil, false
	}

	if next.Status == p.Status {
		return next, nil, false
	}
	return next, nil, true
}

package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/farellandr/payrecon/internal/models"
	"github.com/farellandr/payrecon/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const defaultGatewayTimeout = 15 * time.Second

// Engine owns the payment lifecycle: it opens gateway sessions for new payments and
// folds gateway callbacks back into the payment record.
type Engine struct {
	payments repository.PaymentRepository
	users    UserLookup
	tx       Transactor
	ledger   LedgerEffects
	gateways map[models.PaymentMethod]GatewaySession
	events   EventPublisher
	logger   *zap.Logger

	gatewayTimeout time.Duration
	now            func() time.Time
	newTxID        func(time.Time) string
}

type Option func(*Engine)

// WithGateway registers the session used for method. Methods without a gateway are
// rejected at initiation.
func WithGateway(method models.PaymentMethod, gw GatewaySession) Option {
	return func(e *Engine) {
		e.gateways[method] = gw
	}
}

func WithEventPublisher(p EventPublisher) Option {
	return func(e *Engine) {
		e.events = p
	}
}

func WithGatewayTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.gatewayTimeout = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

func WithTransactionIDGenerator(gen func(time.Time) string) Option {
	return func(e *Engine) {
		e.newTxID = gen
	}
}

func NewEngine(payments repository.PaymentRepository, users UserLookup, tx Transactor, ledger LedgerEffects, logger *zap.Logger, opts ...Option) *Engine {
	e := &Engine{
		payments:       payments,
		users:          users,
		tx:             tx,
		ledger:         ledger,
		gateways:       make(map[models.PaymentMethod]GatewaySession),
		logger:         logger,
		gatewayTimeout: defaultGatewayTimeout,
		now:            time.Now,
		newTxID:        NewTransactionID,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type InitiateRequest struct {
	UserID  uuid.UUID
	Method  models.PaymentMethod
	Amount  decimal.Decimal
	Purpose models.PaymentPurpose
}

// Initiate records a new INITIATED payment and opens a checkout session for it,
// returning the gateway URL. The payment is stored before the gateway is called so
// an early callback always finds its row; a failed gateway call leaves it INITIATED.
func (e *Engine) Initiate(ctx context.Context, req InitiateRequest) (string, error) {
	if !req.Amount.IsPositive() {
		return "", ErrInvalidAmount
	}
	if !req.Purpose.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidPurpose, req.Purpose)
	}
	gw, ok := e.gateways[req.Method]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedMethod, req.Method)
	}

	user, err := e.users.FindByID(ctx, req.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return "", ErrUserNotFound
	}
	if err != nil {
		return "", fmt.Errorf("load user: %w", err)
	}

	payment := &models.Payment{
		TransactionID: e.newTxID(e.now()),
		UserID:        req.UserID,
		Amount:        req.Amount,
		Method:        req.Method,
		Purpose:       req.Purpose,
		Status:        models.PaymentStatusInitiated,
	}
	if err := e.payments.Create(ctx, payment); err != nil {
		return "", fmt.Errorf("create payment: %w", err)
	}

	gctx, cancel := context.WithTimeout(ctx, e.gatewayTimeout)
	defer cancel()

	resp, err := gw.CreatePayment(gctx, GatewayRequest{
		User:          user,
		UserID:        req.UserID,
		Amount:        req.Amount,
		Purpose:       req.Purpose,
		TransactionID: payment.TransactionID,
		PaymentID:     payment.ID,
	})
	if err == nil && (resp == nil || resp.GatewayURL == "") {
		err = errors.New("gateway returned no redirect url")
	}
	if err != nil {
		e.logger.Warn("Gateway session failed",
			zap.String("transaction_id", payment.TransactionID),
			zap.String("method", string(req.Method)),
			zap.Error(err),
		)
		return "", fmt.Errorf("%w: %w", ErrUpstreamGateway, err)
	}

	e.logger.Info("Payment initiated",
		zap.String("payment_id", payment.ID.String()),
		zap.String("transaction_id", payment.TransactionID),
		zap.String("purpose", string(req.Purpose)),
		zap.String("amount", req.Amount.String()),
	)
	return resp.GatewayURL, nil
}

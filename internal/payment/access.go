package payment

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/farellandr/payrecon/internal/models"
	"github.com/farellandr/payrecon/internal/repository"
	"github.com/google/uuid"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 100

	// keeps (page-1)*limit inside a postgres integer offset
	maxPage = math.MaxInt32 / maxPageLimit
)

// FindByTransactionID returns the payment recorded under a gateway transaction id.
func (e *Engine) FindByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error) {
	p, err := e.payments.FindByTransactionID(ctx, transactionID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load payment: %w", err)
	}
	return p, nil
}

// GetPaymentByID returns the payment with its payer, visible only to the payer and
// to admins.
func (e *Engine) GetPaymentByID(ctx context.Context, id, requesterID uuid.UUID, requesterRole models.Role) (*models.Payment, error) {
	p, err := e.payments.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load payment: %w", err)
	}

	if p.UserID != requesterID && !requesterRole.IsAdmin() {
		return nil, ErrForbidden
	}
	return p, nil
}

// GetReceipt is GetPaymentByID restricted to completed payments.
func (e *Engine) GetReceipt(ctx context.Context, id, requesterID uuid.UUID, requesterRole models.Role) (*models.Payment, error) {
	p, err := e.GetPaymentByID(ctx, id, requesterID, requesterRole)
	if err != nil {
		return nil, err
	}
	if p.Status != models.PaymentStatusPaid {
		return nil, ErrPaymentNotPaid
	}
	return p, nil
}

type ListQuery struct {
	Status string
	Search string
	Page   int
	Limit  int
}

type PageMeta struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"totalPages"`
}

type PaymentPage struct {
	Data []models.Payment `json:"data"`
	Meta PageMeta         `json:"meta"`
}

func (e *Engine) ListForUser(ctx context.Context, userID uuid.UUID, q ListQuery) (*PaymentPage, error) {
	filter, page, limit, err := buildFilter(q)
	if err != nil {
		return nil, err
	}
	filter.UserID = &userID
	return e.list(ctx, filter, page, limit)
}

func (e *Engine) ListAll(ctx context.Context, requesterRole models.Role, q ListQuery) (*PaymentPage, error) {
	if !requesterRole.IsAdmin() {
		return nil, ErrForbidden
	}
	filter, page, limit, err := buildFilter(q)
	if err != nil {
		return nil, err
	}
	filter.PreloadUser = true
	return e.list(ctx, filter, page, limit)
}

func (e *Engine) list(ctx context.Context, filter repository.PaymentFilter, page, limit int) (*PaymentPage, error) {
	payments, total, err := e.payments.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	if payments == nil {
		payments = []models.Payment{}
	}

	return &PaymentPage{
		Data: payments,
		Meta: PageMeta{
			Total:      total,
			Page:       page,
			Limit:      limit,
			TotalPages: int((total + int64(limit) - 1) / int64(limit)),
		},
	}, nil
}

func buildFilter(q ListQuery) (repository.PaymentFilter, int, int, error) {
	page, limit := q.Page, q.Limit
	if page < 1 {
		page = 1
	}
	if page > maxPage {
		page = maxPage
	}
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	filter := repository.PaymentFilter{
		Search: strings.TrimSpace(q.Search),
		Offset: (page - 1) * limit,
		Limit:  limit,
	}

	status := strings.ToUpper(strings.TrimSpace(q.Status))
	if status != "" && status != "ALL" {
		if !models.PaymentStatus(status).Valid() {
			return filter, 0, 0, fmt.Errorf("%w: status %q", ErrInvalidFilter, q.Status)
		}
		filter.Status = models.PaymentStatus(status)
	}
	return filter, page, limit, nil
}

package repository

import (
	"context"
	"strings"
	"time"

	"github.com/farellandr/payrecon/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PaymentFilter narrows a payment listing. A nil UserID lists every user's payments
// and an empty Status lists every status.
type PaymentFilter struct {
	UserID      *uuid.UUID
	Status      models.PaymentStatus
	Search      string
	Offset      int
	Limit       int
	PreloadUser bool
}

type PaymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	FindByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error)
	FindByTransactionIDForUpdate(ctx context.Context, transactionID string) (*models.Payment, error)
	CompareAndSetStatus(ctx context.Context, id uuid.UUID, from, to models.PaymentStatus, paidAt *time.Time) (bool, error)
	List(ctx context.Context, filter PaymentFilter) ([]models.Payment, int64, error)
}

type gormPaymentRepo struct {
	db *gorm.DB
}

func NewGormPaymentRepo(db *gorm.DB) PaymentRepository {
	return &gormPaymentRepo{db: db}
}

func (r *gormPaymentRepo) Create(ctx context.Context, payment *models.Payment) error {
	return conn(ctx, r.db).Create(payment).Error
}

// FindByID loads the payment together with its payer.
func (r *gormPaymentRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	if err := conn(ctx, r.db).Preload("User").Where("id = ?", id).First(&payment).Error; err != nil {
		return nil, translate(err)
	}
	return &payment, nil
}

func (r *gormPaymentRepo) FindByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error) {
	var payment models.Payment
	if err := conn(ctx, r.db).Where("transaction_id = ?", transactionID).First(&payment).Error; err != nil {
		return nil, translate(err)
	}
	return &payment, nil
}

// FindByTransactionIDForUpdate takes a row lock that is held until the surrounding
// transaction ends. Outside a transaction the lock is released immediately.
func (r *gormPaymentRepo) FindByTransactionIDForUpdate(ctx context.Context, transactionID string) (*models.Payment, error) {
	var payment models.Payment
	err := conn(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("transaction_id = ?", transactionID).
		First(&payment).Error
	if err != nil {
		return nil, translate(err)
	}
	return &payment, nil
}

// CompareAndSetStatus moves the payment from one status to another and reports
// whether this call performed the write. paidAt is only written when non-nil.
func (r *gormPaymentRepo) CompareAndSetStatus(ctx context.Context, id uuid.UUID, from, to models.PaymentStatus, paidAt *time.Time) (bool, error) {
	updates := map[string]interface{}{"status": to}
	if paidAt != nil {
		updates["paid_at"] = *paidAt
	}

	result := conn(ctx, r.db).
		Model(&models.Payment{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *gormPaymentRepo) List(ctx context.Context, filter PaymentFilter) ([]models.Payment, int64, error) {
	var payments []models.Payment
	var total int64

	query := conn(ctx, r.db).Model(&models.Payment{})
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Search != "" {
		query = query.Where("transaction_id ILIKE ?", "%"+escapeLike(filter.Search)+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.PreloadUser {
		query = query.Preload("User")
	}
	if err := query.
		Order("created_at DESC").
		Offset(filter.Offset).
		Limit(filter.Limit).
		Find(&payments).Error; err != nil {
		return nil, 0, err
	}

	return payments, total, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

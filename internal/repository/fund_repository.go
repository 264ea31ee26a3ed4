package repository

import (
	"context"

	"github.com/farellandr/payrecon/internal/models"
	"gorm.io/gorm"
)

type FundRepository interface {
	CreateTransaction(ctx context.Context, ft *models.FundTransaction) error
}

type gormFundRepo struct {
	db *gorm.DB
}

func NewGormFundRepo(db *gorm.DB) FundRepository {
	return &gormFundRepo{db: db}
}

func (r *gormFundRepo) CreateTransaction(ctx context.Context, ft *models.FundTransaction) error {
	return conn(ctx, r.db).Create(ft).Error
}

package repository

import (
	"context"

	"github.com/farellandr/payrecon/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	ElevateToMember(ctx context.Context, id uuid.UUID) (bool, error)
}

type gormUserRepo struct {
	db *gorm.DB
}

func NewGormUserRepo(db *gorm.DB) UserRepository {
	return &gormUserRepo{db: db}
}

func (r *gormUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := conn(ctx, r.db).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// ElevateToMember upgrades a plain USER to an active MEMBER. Members and admins are
// left untouched and reported as not elevated; a missing user yields ErrNotFound.
func (r *gormUserRepo) ElevateToMember(ctx context.Context, id uuid.UUID) (bool, error) {
	db := conn(ctx, r.db)

	result := db.Model(&models.User{}).
		Where("id = ? AND role = ?", id, models.RoleUser).
		Updates(map[string]interface{}{
			"role":   models.RoleMember,
			"status": models.UserStatusActive,
		})
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected > 0 {
		return true, nil
	}

	var count int64
	if err := db.Model(&models.User{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	if count == 0 {
		return false, ErrNotFound
	}
	return false, nil
}

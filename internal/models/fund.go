package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type FundTransactionType string

const FundTransactionCredit FundTransactionType = "CREDIT"

// FundTransaction is one ledger line produced by a completed donation payment.
type FundTransaction struct {
	ID            uuid.UUID           `gorm:"type:uuid;primary_key" json:"id"`
	UserID        uuid.UUID           `gorm:"type:uuid;not null;index" json:"user_id"`
	PaymentID     uuid.UUID           `gorm:"type:uuid;not null;uniqueIndex" json:"payment_id"`
	TransactionID string              `gorm:"type:varchar(32);not null" json:"transaction_id"`
	Amount        decimal.Decimal     `gorm:"type:decimal(12,2);not null" json:"amount"`
	Type          FundTransactionType `gorm:"type:varchar(10);not null" json:"type"`
	Label         string              `gorm:"not null" json:"label"`
	CreatedAt     time.Time           `json:"created_at"`
}

func (ft *FundTransaction) BeforeCreate(tx *gorm.DB) (err error) {
	if ft.ID == uuid.Nil {
		ft.ID = uuid.New()
	}
	return
}

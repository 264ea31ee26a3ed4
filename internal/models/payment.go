package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type PaymentStatus string

const (
	PaymentStatusInitiated PaymentStatus = "INITIATED"
	PaymentStatusPaid      PaymentStatus = "PAID"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusCancelled PaymentStatus = "CANCELLED"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusInitiated, PaymentStatusPaid, PaymentStatusFailed, PaymentStatusCancelled:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentMethodSSLCommerz PaymentMethod = "SSLCOMMERZ"
	PaymentMethodXendit     PaymentMethod = "XENDIT"
)

type PaymentPurpose string

const (
	PurposeMembershipFee   PaymentPurpose = "MEMBERSHIP_FEE"
	PurposeMonthlyDonation PaymentPurpose = "MONTHLY_DONATION"
	PurposeProjectDonation PaymentPurpose = "PROJECT_DONATION"
)

func (p PaymentPurpose) Valid() bool {
	switch p {
	case PurposeMembershipFee, PurposeMonthlyDonation, PurposeProjectDonation:
		return true
	}
	return false
}

// IsDonation reports whether a completed payment of this purpose credits the fund.
func (p PaymentPurpose) IsDonation() bool {
	return p == PurposeMonthlyDonation || p == PurposeProjectDonation
}

// FundLabel is the ledger label recorded for donation credits.
func (p PaymentPurpose) FundLabel() string {
	switch p {
	case PurposeMonthlyDonation:
		return "Monthly Donation"
	case PurposeProjectDonation:
		return "Project Donation"
	}
	return ""
}

type Payment struct {
	ID            uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	TransactionID string          `gorm:"type:varchar(32);not null;uniqueIndex" json:"transaction_id"`
	UserID        uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
	User          *User           `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Amount        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Method        PaymentMethod   `gorm:"type:varchar(20);not null" json:"method"`
	Purpose       PaymentPurpose  `gorm:"type:varchar(32);not null" json:"purpose"`
	Status        PaymentStatus   `gorm:"type:varchar(20);not null;index" json:"status"`
	PaidAt        *time.Time      `json:"paid_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (payment *Payment) BeforeCreate(tx *gorm.DB) (err error) {
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	return
}

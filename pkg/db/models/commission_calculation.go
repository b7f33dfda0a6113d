package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/harlowe-labs/scenthq-backend/pkg/enums"
)

// CommissionCalculation records the deterministic commission owed to a partner
// for a single settled payment. One row per (partner, payment).
type CommissionCalculation struct {
	ID               uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PartnerID        uuid.UUID              `gorm:"column:partner_id;type:uuid;not null;uniqueIndex:ux_commission_partner_payment"`
	PaymentID        uuid.UUID              `gorm:"column:payment_id;type:uuid;not null;uniqueIndex:ux_commission_partner_payment"`
	OrderTotalCents  int                    `gorm:"column:order_total_cents;not null"`
	RateBPS          int                    `gorm:"column:rate_bps;not null"`
	TierModifier     decimal.Decimal        `gorm:"column:tier_modifier;type:numeric(4,2);not null"`
	AmountCents      int                    `gorm:"column:amount_cents;not null"`
	Status           enums.CommissionStatus `gorm:"column:status;type:commission_status;not null;default:'pending'"`
	PaymentReference *string                `gorm:"column:payment_reference"`
	PaidAt           *time.Time             `gorm:"column:paid_at"`
	CreatedAt        time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

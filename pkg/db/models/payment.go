package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/harlowe-labs/scenthq-backend/pkg/enums"
)

// Payment tracks a subscription purchase from creation through settlement.
// Version guards every status transition via compare-and-swap updates.
type Payment struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrgID         uuid.UUID           `gorm:"column:org_id;type:uuid;not null;index"`
	UserID        uuid.UUID           `gorm:"column:user_id;type:uuid;not null"`
	Tier          enums.Tier          `gorm:"column:tier;type:subscription_tier;not null"`
	Method        enums.PaymentMethod `gorm:"column:method;type:payment_method;not null;default:'card'"`
	Status        enums.PaymentStatus `gorm:"column:status;type:payment_status;not null;default:'pending'"`
	AmountCents   int                 `gorm:"column:amount_cents;not null"`
	TaxCents      int                 `gorm:"column:tax_cents;not null"`
	TotalCents    int                 `gorm:"column:total_cents;not null"`
	PartnerCode   *string             `gorm:"column:partner_code"`
	IntentRef     *string             `gorm:"column:intent_ref"`
	FailureReason *string             `gorm:"column:failure_reason"`
	PaidAt        *time.Time          `gorm:"column:paid_at"`
	CancelledAt   *time.Time          `gorm:"column:cancelled_at"`
	RefundedAt    *time.Time          `gorm:"column:refunded_at"`
	RefundedCents *int                `gorm:"column:refunded_cents"`
	Version       int                 `gorm:"column:version;not null;default:1"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

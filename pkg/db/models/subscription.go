package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/harlowe-labs/scenthq-backend/pkg/enums"
)

// Subscription is the single entitlement record per organization.
type Subscription struct {
	ID            uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrgID         uuid.UUID              `gorm:"column:org_id;type:uuid;not null;uniqueIndex"`
	UserID        uuid.UUID              `gorm:"column:user_id;type:uuid;not null"`
	Tier          enums.Tier             `gorm:"column:tier;type:subscription_tier;not null"`
	Type          enums.SubscriptionType `gorm:"column:type;type:subscription_type;not null;default:'new'"`
	PaymentStatus enums.PaymentStatus    `gorm:"column:payment_status;type:payment_status;not null;default:'pending'"`
	PartnerCode   *string                `gorm:"column:partner_code"`
	RunCount      int                    `gorm:"column:run_count;not null;default:0"`
	Progress      string                 `gorm:"column:progress;not null;default:'created'"`
	StartedAt     time.Time              `gorm:"column:started_at;not null"`
	CancelledAt   *time.Time             `gorm:"column:cancelled_at"`
	Version       int                    `gorm:"column:version;not null;default:1"`
	CreatedAt     time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

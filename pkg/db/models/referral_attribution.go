package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/harlowe-labs/scenthq-backend/pkg/enums"
)

// ReferralAttribution links a referred signup email to the partner code it
// arrived through, and tracks it until commission is paid out.
type ReferralAttribution struct {
	ID              uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PartnerID       uuid.UUID               `gorm:"column:partner_id;type:uuid;not null;index"`
	Code            string                  `gorm:"column:code;type:text;not null"`
	ReferredEmail   string                  `gorm:"column:referred_email;type:text;not null;index"`
	Status          enums.AttributionStatus `gorm:"column:status;type:attribution_status;not null;default:'attributed'"`
	PaymentID       *uuid.UUID              `gorm:"column:payment_id;type:uuid"`
	CommissionCents *int                    `gorm:"column:commission_cents"`
	ConvertedAt     *time.Time              `gorm:"column:converted_at"`
	CreatedAt       time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

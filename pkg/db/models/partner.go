package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/harlowe-labs/scenthq-backend/pkg/enums"
)

// Partner is a referral partner earning commission on converted signups.
type Partner struct {
	ID                    uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name                  string              `gorm:"column:name;not null"`
	ContactEmail          string              `gorm:"column:contact_email;type:text;not null;uniqueIndex"`
	BusinessType          enums.BusinessType  `gorm:"column:business_type;type:partner_business_type;not null"`
	Status                enums.PartnerStatus `gorm:"column:status;type:partner_status;not null;default:'active'"`
	CommissionRateBPS     int                 `gorm:"column:commission_rate_bps;not null"`
	TotalPaidCents        int                 `gorm:"column:total_paid_cents;not null;default:0"`
	TotalReferrals        int                 `gorm:"column:total_referrals;not null;default:0"`
	SuccessfulConversions int                 `gorm:"column:successful_conversions;not null;default:0"`
	Version               int                 `gorm:"column:version;not null;default:1"`
	CreatedAt             time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// PartnerCode is a redeemable referral code owned by a partner.
// Deactivation is permanent; usage increments race through the version column.
type PartnerCode struct {
	ID                uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PartnerID         uuid.UUID  `gorm:"column:partner_id;type:uuid;not null;index"`
	Code              string     `gorm:"column:code;type:text;not null;uniqueIndex"`
	IsActive          bool       `gorm:"column:is_active;not null;default:true"`
	CommissionRateBPS int        `gorm:"column:commission_rate_bps;not null"`
	MaxUses           *int       `gorm:"column:max_uses"`
	CurrentUses       int        `gorm:"column:current_uses;not null;default:0"`
	ExpiresAt         *time.Time `gorm:"column:expires_at"`
	Version           int        `gorm:"column:version;not null;default:1"`
	CreatedAt         time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

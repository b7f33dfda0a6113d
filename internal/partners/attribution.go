package partners

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/harlowe-labs/scenthq-backend/pkg/db/models"
	"github.com/harlowe-labs/scenthq-backend/pkg/enums"
)

// AttributionStore persists referral attributions. The write path sits behind
// an interface so the tracking backend can change without touching the
// partner service.
type AttributionStore interface {
	Create(ctx context.Context, attribution *models.ReferralAttribution) error
	FindLatestByEmail(ctx context.Context, email string) (*models.ReferralAttribution, error)
	MarkConverted(ctx context.Context, id uuid.UUID, paymentID uuid.UUID, commissionCents int, at time.Time) error
	MarkCommissionPaid(ctx context.Context, partnerID, paymentID uuid.UUID) error
}

type gormAttributionStore struct {
	db *gorm.DB
}

// NewAttributionStore returns the gorm-backed attribution store.
func NewAttributionStore(db *gorm.DB) AttributionStore {
	return &gormAttributionStore{db: db}
}

func (s *gormAttributionStore) Create(ctx context.Context, attribution *models.ReferralAttribution) error {
	return s.db.WithContext(ctx).Create(attribution).Error
}

func (s *gormAttributionStore) FindLatestByEmail(ctx context.Context, email string) (*models.ReferralAttribution, error) {
	var row models.ReferralAttribution
	if err := s.db.WithContext(ctx).
		Where("referred_email = ?", email).
		Order("created_at DESC").
		First(&row).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (s *gormAttributionStore) MarkConverted(ctx context.Context, id uuid.UUID, paymentID uuid.UUID, commissionCents int, at time.Time) error {
	return s.db.WithContext(ctx).
		Model(&models.ReferralAttribution{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":           enums.AttributionStatusConverted,
			"payment_id":       paymentID,
			"commission_cents": commissionCents,
			"converted_at":     at,
		}).Error
}

func (s *gormAttributionStore) MarkCommissionPaid(ctx context.Context, partnerID, paymentID uuid.UUID) error {
	return s.db.WithContext(ctx).
		Model(&models.ReferralAttribution{}).
		Where("partner_id = ? AND payment_id = ? AND status = ?", partnerID, paymentID, enums.AttributionStatusConverted).
		Update("status", enums.AttributionStatusCommissionPaid).Error
}

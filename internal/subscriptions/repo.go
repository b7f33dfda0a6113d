package subscriptions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/harlowe-labs/scenthq-backend/pkg/db/models"
	"github.com/harlowe-labs/scenthq-backend/pkg/enums"
)

// Repository handles subscription persistence. One row per organization.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, subscription *models.Subscription) error
	FindByOrg(ctx context.Context, orgID uuid.UUID) (*models.Subscription, error)
	// ApplyPaid replaces the tier and settles the payment status guarded by
	// the subscription's version. Returns false when the version no longer
	// matches.
	ApplyPaid(ctx context.Context, id uuid.UUID, version int, tier enums.Tier, subType enums.SubscriptionType) (bool, error)
	// IncrementRunCount bumps the run counter guarded by the subscription's
	// version. Returns false when the version no longer matches.
	IncrementRunCount(ctx context.Context, id uuid.UUID, version int) (bool, error)
	UpdateProgress(ctx context.Context, id uuid.UUID, marker string) error
	// Delete removes a subscription outright. Only payment-saga compensation
	// uses this, to undo a create that never settled.
	Delete(ctx context.Context, id uuid.UUID) error
	// RestoreSnapshot writes back a prior tier/type/payment status. Only
	// payment-saga compensation uses this.
	RestoreSnapshot(ctx context.Context, id uuid.UUID, tier enums.Tier, subType enums.SubscriptionType, paymentStatus enums.PaymentStatus) error
	// Cancel stamps cancelled_at guarded by the subscription's version.
	Cancel(ctx context.Context, id uuid.UUID, version int, at time.Time) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a subscriptions repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, subscription *models.Subscription) error {
	return r.db.WithContext(ctx).Create(subscription).Error
}

func (r *repository) FindByOrg(ctx context.Context, orgID uuid.UUID) (*models.Subscription, error) {
	var subscription models.Subscription
	if err := r.db.WithContext(ctx).Where("org_id = ?", orgID).First(&subscription).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &subscription, nil
}

func (r *repository) ApplyPaid(ctx context.Context, id uuid.UUID, version int, tier enums.Tier, subType enums.SubscriptionType) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("id = ? AND version = ?", id, version).
		Updates(map[string]any{
			"tier":           tier,
			"type":           subType,
			"payment_status": enums.PaymentStatusPaid,
			"version":        gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) IncrementRunCount(ctx context.Context, id uuid.UUID, version int) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("id = ? AND version = ?", id, version).
		Updates(map[string]any{
			"run_count": gorm.Expr("run_count + 1"),
			"version":   gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) UpdateProgress(ctx context.Context, id uuid.UUID, marker string) error {
	return r.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("id = ?", id).
		UpdateColumn("progress", marker).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Subscription{}, "id = ?", id).Error
}

func (r *repository) RestoreSnapshot(ctx context.Context, id uuid.UUID, tier enums.Tier, subType enums.SubscriptionType, paymentStatus enums.PaymentStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"tier":           tier,
			"type":           subType,
			"payment_status": paymentStatus,
			"version":        gorm.Expr("version + 1"),
		}).Error
}

func (r *repository) Cancel(ctx context.Context, id uuid.UUID, version int, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("id = ? AND version = ? AND cancelled_at IS NULL", id, version).
		Updates(map[string]any{
			"cancelled_at": at,
			"version":      gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

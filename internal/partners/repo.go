package partners

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/harlowe-labs/scenthq-backend/pkg/db/models"
	"github.com/harlowe-labs/scenthq-backend/pkg/enums"
	"github.com/harlowe-labs/scenthq-backend/pkg/pagination"
)

// Repository handles partner, code, and commission persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreatePartner(ctx context.Context, partner *models.Partner) error
	FindPartnerByID(ctx context.Context, id uuid.UUID) (*models.Partner, error)
	FindPartnerByEmail(ctx context.Context, email string) (*models.Partner, error)
	// AddPartnerTotals applies counter deltas guarded by the partner's version.
	// Returns false when the version no longer matches.
	AddPartnerTotals(ctx context.Context, id uuid.UUID, version int, deltas PartnerTotalsDelta) (bool, error)
	CreateCode(ctx context.Context, code *models.PartnerCode) error
	FindCodeByValue(ctx context.Context, code string) (*models.PartnerCode, error)
	DeactivateCode(ctx context.Context, code string) error
	// IncrementCodeUsage bumps current_uses guarded by the code's version.
	// Returns false when the version no longer matches.
	IncrementCodeUsage(ctx context.Context, id uuid.UUID, version int) (bool, error)
	CreateCommission(ctx context.Context, calc *models.CommissionCalculation) error
	FindCommission(ctx context.Context, partnerID, paymentID uuid.UUID) (*models.CommissionCalculation, error)
	MarkCommissionPaid(ctx context.Context, id uuid.UUID, reference string, paidAt time.Time) error
	ListCommissionsByPartner(ctx context.Context, partnerID uuid.UUID, params pagination.Params) ([]models.CommissionCalculation, *pagination.Cursor, error)
}

// PartnerTotalsDelta carries the cumulative counter increments for a partner.
type PartnerTotalsDelta struct {
	PaidCents   int
	Referrals   int
	Conversions int
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a partners repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreatePartner(ctx context.Context, partner *models.Partner) error {
	return r.db.WithContext(ctx).Create(partner).Error
}

func (r *repository) FindPartnerByID(ctx context.Context, id uuid.UUID) (*models.Partner, error) {
	var partner models.Partner
	if err := r.db.WithContext(ctx).First(&partner, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &partner, nil
}

func (r *repository) FindPartnerByEmail(ctx context.Context, email string) (*models.Partner, error) {
	var partner models.Partner
	if err := r.db.WithContext(ctx).Where("contact_email = ?", email).First(&partner).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &partner, nil
}

func (r *repository) AddPartnerTotals(ctx context.Context, id uuid.UUID, version int, deltas PartnerTotalsDelta) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Partner{}).
		Where("id = ? AND version = ?", id, version).
		Updates(map[string]any{
			"total_paid_cents":       gorm.Expr("total_paid_cents + ?", deltas.PaidCents),
			"total_referrals":        gorm.Expr("total_referrals + ?", deltas.Referrals),
			"successful_conversions": gorm.Expr("successful_conversions + ?", deltas.Conversions),
			"version":                gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) CreateCode(ctx context.Context, code *models.PartnerCode) error {
	return r.db.WithContext(ctx).Create(code).Error
}

func (r *repository) FindCodeByValue(ctx context.Context, code string) (*models.PartnerCode, error) {
	var row models.PartnerCode
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&row).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *repository) DeactivateCode(ctx context.Context, code string) error {
	return r.db.WithContext(ctx).
		Model(&models.PartnerCode{}).
		Where("code = ?", code).
		Updates(map[string]any{
			"is_active": false,
			"version":   gorm.Expr("version + 1"),
		}).Error
}

func (r *repository) IncrementCodeUsage(ctx context.Context, id uuid.UUID, version int) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.PartnerCode{}).
		Where("id = ? AND version = ?", id, version).
		Updates(map[string]any{
			"current_uses": gorm.Expr("current_uses + 1"),
			"version":      gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) CreateCommission(ctx context.Context, calc *models.CommissionCalculation) error {
	return r.db.WithContext(ctx).Create(calc).Error
}

func (r *repository) FindCommission(ctx context.Context, partnerID, paymentID uuid.UUID) (*models.CommissionCalculation, error) {
	var calc models.CommissionCalculation
	if err := r.db.WithContext(ctx).
		Where("partner_id = ? AND payment_id = ?", partnerID, paymentID).
		First(&calc).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &calc, nil
}

func (r *repository) MarkCommissionPaid(ctx context.Context, id uuid.UUID, reference string, paidAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.CommissionCalculation{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":            enums.CommissionStatusPaid,
			"payment_reference": reference,
			"paid_at":           paidAt,
		}).Error
}

func (r *repository) ListCommissionsByPartner(ctx context.Context, partnerID uuid.UUID, params pagination.Params) ([]models.CommissionCalculation, *pagination.Cursor, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).
		Where("partner_id = ?", partnerID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit))

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, nil, err
	}
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var rows []models.CommissionCalculation
	if err := query.Find(&rows).Error; err != nil {
		return nil, nil, err
	}

	var next *pagination.Cursor
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		next = &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}
	return rows, next, nil
}

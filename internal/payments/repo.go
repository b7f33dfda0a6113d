package payments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/harlowe-labs/scenthq-backend/pkg/db/models"
	"github.com/harlowe-labs/scenthq-backend/pkg/enums"
	"github.com/harlowe-labs/scenthq-backend/pkg/pagination"
)

// Repository handles payment persistence. Status transitions are guarded by
// the payment's version so a racing writer loses cleanly.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, payment *models.Payment) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	// MarkPaid moves a pending payment to paid, recording the confirmation
	// reference. Returns false when the version no longer matches.
	MarkPaid(ctx context.Context, id uuid.UUID, version int, intentRef string, paidAt time.Time) (bool, error)
	// MarkFailed force-writes the failed status with a reason. Used by the
	// processing saga's final compensation, so it is not version guarded.
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
	// MarkCancelled moves a pending payment to cancelled. Returns false when
	// the version no longer matches.
	MarkCancelled(ctx context.Context, id uuid.UUID, version int, at time.Time) (bool, error)
	// MarkRefunded moves a paid payment to refunded with the prorated amount.
	// Returns false when the version no longer matches.
	MarkRefunded(ctx context.Context, id uuid.UUID, version int, amountCents int, at time.Time) (bool, error)
	ListByOrg(ctx context.Context, orgID uuid.UUID, params pagination.Params) ([]models.Payment, *pagination.Cursor, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a payments repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).First(&payment, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

func (r *repository) MarkPaid(ctx context.Context, id uuid.UUID, version int, intentRef string, paidAt time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ? AND version = ? AND status = ?", id, version, enums.PaymentStatusPending).
		Updates(map[string]any{
			"status":     enums.PaymentStatusPaid,
			"intent_ref": intentRef,
			"paid_at":    paidAt,
			"version":    gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	return r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":         enums.PaymentStatusFailed,
			"failure_reason": reason,
			"version":        gorm.Expr("version + 1"),
		}).Error
}

func (r *repository) MarkCancelled(ctx context.Context, id uuid.UUID, version int, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ? AND version = ? AND status = ?", id, version, enums.PaymentStatusPending).
		Updates(map[string]any{
			"status":       enums.PaymentStatusCancelled,
			"cancelled_at": at,
			"version":      gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) MarkRefunded(ctx context.Context, id uuid.UUID, version int, amountCents int, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ? AND version = ? AND status = ?", id, version, enums.PaymentStatusPaid).
		Updates(map[string]any{
			"status":         enums.PaymentStatusRefunded,
			"refunded_cents": amountCents,
			"refunded_at":    at,
			"version":        gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) ListByOrg(ctx context.Context, orgID uuid.UUID, params pagination.Params) ([]models.Payment, *pagination.Cursor, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).
		Where("org_id = ?", orgID).
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

	var rows []models.Payment
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

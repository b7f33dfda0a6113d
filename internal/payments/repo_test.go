package payments

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/harlowe-labs/scenthq-backend/pkg/db/models"
	"github.com/harlowe-labs/scenthq-backend/pkg/enums"
	"github.com/harlowe-labs/scenthq-backend/pkg/pagination"
)

func setupPaymentsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	payments := `
CREATE TABLE IF NOT EXISTS payments (
  id TEXT PRIMARY KEY,
  org_id TEXT NOT NULL,
  user_id TEXT NOT NULL,
  tier TEXT NOT NULL,
  method TEXT NOT NULL DEFAULT 'card',
  status TEXT NOT NULL DEFAULT 'pending',
  amount_cents INTEGER NOT NULL,
  tax_cents INTEGER NOT NULL,
  total_cents INTEGER NOT NULL,
  partner_code TEXT,
  intent_ref TEXT,
  failure_reason TEXT,
  paid_at DATETIME,
  cancelled_at DATETIME,
  refunded_at DATETIME,
  refunded_cents INTEGER,
  version INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(payments).Error)

	return db
}

func seedPendingPayment(t *testing.T, repo Repository, orgID uuid.UUID, createdAt time.Time) *models.Payment {
	t.Helper()

	payment := &models.Payment{
		ID:          uuid.New(),
		OrgID:       orgID,
		UserID:      uuid.New(),
		Tier:        enums.TierPro,
		Method:      enums.PaymentMethodCard,
		Status:      enums.PaymentStatusPending,
		AmountCents: 14900,
		TaxCents:    1192,
		TotalCents:  16092,
		Version:     1,
		CreatedAt:   createdAt,
	}
	require.NoError(t, repo.Create(context.Background(), payment))
	return payment
}

func TestRepositoryFindByIDReturnsNilWhenMissing(t *testing.T) {
	repo := NewRepository(setupPaymentsTestDB(t))

	found, err := repo.FindByID(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestRepositoryMarkPaidGuardsVersion(t *testing.T) {
	repo := NewRepository(setupPaymentsTestDB(t))
	payment := seedPendingPayment(t, repo, uuid.New(), time.Now().UTC())

	ok, err := repo.MarkPaid(context.Background(), payment.ID, payment.Version+5, "sq-intent-1", time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, ok, "stale version must not win the swap")

	ok, err = repo.MarkPaid(context.Background(), payment.ID, payment.Version, "sq-intent-1", time.Now().UTC())
	require.NoError(t, err)
	require.True(t, ok)

	updated, err := repo.FindByID(context.Background(), payment.ID)
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, enums.PaymentStatusPaid, updated.Status)
	assert.Equal(t, payment.Version+1, updated.Version)
	require.NotNil(t, updated.IntentRef)
	assert.Equal(t, "sq-intent-1", *updated.IntentRef)
	assert.NotNil(t, updated.PaidAt)
}

func TestRepositoryMarkPaidRequiresPendingStatus(t *testing.T) {
	repo := NewRepository(setupPaymentsTestDB(t))
	payment := seedPendingPayment(t, repo, uuid.New(), time.Now().UTC())

	ok, err := repo.MarkCancelled(context.Background(), payment.ID, payment.Version, time.Now().UTC())
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repo.MarkPaid(context.Background(), payment.ID, payment.Version+1, "sq-intent-2", time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, ok, "cancelled payments cannot move to paid")
}

func TestRepositoryMarkRefundedRequiresPaidStatus(t *testing.T) {
	repo := NewRepository(setupPaymentsTestDB(t))
	payment := seedPendingPayment(t, repo, uuid.New(), time.Now().UTC())

	ok, err := repo.MarkRefunded(context.Background(), payment.ID, payment.Version, 8000, time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, ok, "pending payments are not refundable")

	ok, err = repo.MarkPaid(context.Background(), payment.ID, payment.Version, "sq-intent-3", time.Now().UTC())
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repo.MarkRefunded(context.Background(), payment.ID, payment.Version+1, 8000, time.Now().UTC())
	require.NoError(t, err)
	require.True(t, ok)

	updated, err := repo.FindByID(context.Background(), payment.ID)
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, enums.PaymentStatusRefunded, updated.Status)
	require.NotNil(t, updated.RefundedCents)
	assert.Equal(t, 8000, *updated.RefundedCents)
}

func TestRepositoryMarkFailedIsNotVersionGuarded(t *testing.T) {
	repo := NewRepository(setupPaymentsTestDB(t))
	payment := seedPendingPayment(t, repo, uuid.New(), time.Now().UTC())

	require.NoError(t, repo.MarkFailed(context.Background(), payment.ID, "verification rejected"))

	updated, err := repo.FindByID(context.Background(), payment.ID)
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, enums.PaymentStatusFailed, updated.Status)
	require.NotNil(t, updated.FailureReason)
	assert.Equal(t, "verification rejected", *updated.FailureReason)
}

func TestRepositoryListByOrgPaginatesNewestFirst(t *testing.T) {
	repo := NewRepository(setupPaymentsTestDB(t))
	orgID := uuid.New()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		seedPendingPayment(t, repo, orgID, base.Add(time.Duration(i)*time.Hour))
	}
	seedPendingPayment(t, repo, uuid.New(), base)

	page, next, err := repo.ListByOrg(context.Background(), orgID, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.NotNil(t, next)
	assert.True(t, page[0].CreatedAt.After(page[1].CreatedAt))

	rest, last, err := repo.ListByOrg(context.Background(), orgID, pagination.Params{
		Limit:  2,
		Cursor: pagination.EncodeCursor(*next),
	})
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Nil(t, last)
	for _, row := range rest {
		assert.Equal(t, orgID, row.OrgID)
	}
}

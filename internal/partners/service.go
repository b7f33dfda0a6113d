package partners

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/harlowe-labs/scenthq-backend/pkg/db/models"
	"github.com/harlowe-labs/scenthq-backend/pkg/enums"
	pkgerrors "github.com/harlowe-labs/scenthq-backend/pkg/errors"
	"github.com/harlowe-labs/scenthq-backend/pkg/logger"
	"github.com/harlowe-labs/scenthq-backend/pkg/metrics"
	"github.com/harlowe-labs/scenthq-backend/pkg/outbox"
	"github.com/harlowe-labs/scenthq-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// ServiceParams groups dependencies for the partner service.
type ServiceParams struct {
	Repo         Repository
	Attributions AttributionStore
	TX           txRunner
	Outbox       outboxPublisher
	Metrics      *metrics.BillingMetrics
	Logger       *logger.Logger
}

// Service manages referral partners, their codes, and commission payouts.
type Service struct {
	repo         Repository
	attributions AttributionStore
	tx           txRunner
	outbox       outboxPublisher
	metrics      *metrics.BillingMetrics
	logg         *logger.Logger
}

// NewService builds a partner service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	if params.Attributions == nil {
		return nil, errors.New("attribution store is required")
	}
	if params.TX == nil {
		return nil, errors.New("transaction runner is required")
	}
	if params.Outbox == nil {
		return nil, errors.New("outbox publisher is required")
	}
	return &Service{
		repo:         params.Repo,
		attributions: params.Attributions,
		tx:           params.TX,
		outbox:       params.Outbox,
		metrics:      params.Metrics,
		logg:         params.Logger,
	}, nil
}

// RegisterPartnerInput captures a new referral partner.
type RegisterPartnerInput struct {
	Name              string
	ContactEmail      string
	BusinessType      enums.BusinessType
	CommissionRateBPS int
}

// RegisterPartner creates a partner with a unique contact email.
func (s *Service) RegisterPartner(ctx context.Context, input RegisterPartnerInput) (*models.Partner, error) {
	email := strings.ToLower(strings.TrimSpace(input.ContactEmail))
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "partner name is required")
	}
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "contact email is required")
	}
	if !input.BusinessType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid business type")
	}
	if input.CommissionRateBPS < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "commission rate must not be negative")
	}

	existing, err := s.repo.FindPartnerByEmail(ctx, email)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup partner")
	}
	if existing != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "partner email already registered")
	}

	partner := &models.Partner{
		Name:              strings.TrimSpace(input.Name),
		ContactEmail:      email,
		BusinessType:      input.BusinessType,
		Status:            enums.PartnerStatusActive,
		CommissionRateBPS: input.CommissionRateBPS,
		Version:           1,
	}
	if err := s.repo.CreatePartner(ctx, partner); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create partner")
	}
	return partner, nil
}

// CreateCodeInput configures a new referral code.
type CreateCodeInput struct {
	PartnerID         uuid.UUID
	Code              string
	CommissionRateBPS *int
	MaxUses           *int
	ExpiresAt         *time.Time
}

// CreateCode issues a referral code owned by an active partner.
func (s *Service) CreateCode(ctx context.Context, input CreateCodeInput) (*models.PartnerCode, error) {
	partner, err := s.repo.FindPartnerByID(ctx, input.PartnerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup partner")
	}
	if partner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "partner not found")
	}
	if partner.Status != enums.PartnerStatusActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "partner is not active")
	}
	if input.MaxUses != nil && *input.MaxUses <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "max uses must be positive")
	}

	code := strings.ToUpper(strings.TrimSpace(input.Code))
	if code == "" {
		code = generateCode()
	}

	rate := partner.CommissionRateBPS
	if input.CommissionRateBPS != nil {
		if *input.CommissionRateBPS < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "commission rate must not be negative")
		}
		rate = *input.CommissionRateBPS
	}

	row := &models.PartnerCode{
		PartnerID:         partner.ID,
		Code:              code,
		IsActive:          true,
		CommissionRateBPS: rate,
		MaxUses:           input.MaxUses,
		ExpiresAt:         input.ExpiresAt,
		Version:           1,
	}
	if err := s.repo.CreateCode(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create code")
	}
	return row, nil
}

// DeactivateCode permanently disables a referral code.
func (s *Service) DeactivateCode(ctx context.Context, code string) error {
	row, err := s.repo.FindCodeByValue(ctx, normalizeCode(code))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup code")
	}
	if row == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "code not found")
	}
	if !row.IsActive {
		return nil
	}
	if err := s.repo.DeactivateCode(ctx, row.Code); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate code")
	}
	return nil
}

// CodeValidation is the outcome of validating a referral code. Invalid codes
// carry no detail about which rule failed.
type CodeValidation struct {
	IsValid           bool       `json:"is_valid"`
	PartnerID         *uuid.UUID `json:"partner_id,omitempty"`
	CommissionRateBPS *int       `json:"commission_rate_bps,omitempty"`
	MaxUses           *int       `json:"max_uses,omitempty"`
	CurrentUses       *int       `json:"current_uses,omitempty"`
	ExpiresAt         *time.Time `json:"expires_at,omitempty"`
}

var invalidCode = &CodeValidation{IsValid: false}

// Validate runs the ordered code checks. Each check short-circuits: an
// inactive code is never inspected for expiry, an expired one never for
// usage, and so on. Validation has no side effects.
func (s *Service) Validate(ctx context.Context, code string) (*CodeValidation, error) {
	row, err := s.repo.FindCodeByValue(ctx, normalizeCode(code))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup code")
	}
	if row == nil || !row.IsActive {
		return invalidCode, nil
	}
	if row.ExpiresAt != nil && !row.ExpiresAt.After(time.Now()) {
		return invalidCode, nil
	}
	if row.MaxUses != nil && row.CurrentUses >= *row.MaxUses {
		return invalidCode, nil
	}

	partner, err := s.repo.FindPartnerByID(ctx, row.PartnerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup partner")
	}
	if partner == nil || partner.Status != enums.PartnerStatusActive {
		return invalidCode, nil
	}

	return &CodeValidation{
		IsValid:           true,
		PartnerID:         &partner.ID,
		CommissionRateBPS: &row.CommissionRateBPS,
		MaxUses:           row.MaxUses,
		CurrentUses:       &row.CurrentUses,
		ExpiresAt:         row.ExpiresAt,
	}, nil
}

// IncrementUsage bumps a code's usage counter through a version-guarded
// write. A concurrent increment surfaces as a retryable conflict.
func (s *Service) IncrementUsage(ctx context.Context, code string) error {
	row, err := s.repo.FindCodeByValue(ctx, normalizeCode(code))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup code")
	}
	if row == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "code not found")
	}
	if row.MaxUses != nil && row.CurrentUses >= *row.MaxUses {
		return pkgerrors.New(pkgerrors.CodeValidation, "code usage limit reached")
	}

	ok, err := s.repo.IncrementCodeUsage(ctx, row.ID, row.Version)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increment usage")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeConflict, "code was modified concurrently")
	}
	return nil
}

// Attribute records that a signup email arrived through a referral code.
func (s *Service) Attribute(ctx context.Context, code, email string) (*models.ReferralAttribution, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}

	validation, err := s.Validate(ctx, code)
	if err != nil {
		return nil, err
	}
	if !validation.IsValid {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid partner code")
	}

	partner, err := s.repo.FindPartnerByID(ctx, *validation.PartnerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup partner")
	}
	if partner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "partner not found")
	}

	attribution := &models.ReferralAttribution{
		PartnerID:     partner.ID,
		Code:          normalizeCode(code),
		ReferredEmail: email,
		Status:        enums.AttributionStatusAttributed,
	}
	if err := s.attributions.Create(ctx, attribution); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create attribution")
	}

	ok, err := s.repo.AddPartnerTotals(ctx, partner.ID, partner.Version, PartnerTotalsDelta{Referrals: 1})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update partner totals")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "partner was modified concurrently")
	}
	return attribution, nil
}

// MarkConverted links the latest attribution for an email to a settled
// payment and its commission amount.
func (s *Service) MarkConverted(ctx context.Context, email string, paymentID uuid.UUID, commissionCents int) error {
	email = strings.ToLower(strings.TrimSpace(email))
	attribution, err := s.attributions.FindLatestByEmail(ctx, email)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup attribution")
	}
	if attribution == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "attribution not found")
	}
	if attribution.Status != enums.AttributionStatusAttributed {
		return nil
	}

	if err := s.attributions.MarkConverted(ctx, attribution.ID, paymentID, commissionCents, time.Now()); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark converted")
	}

	partner, err := s.repo.FindPartnerByID(ctx, attribution.PartnerID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup partner")
	}
	if partner == nil {
		return nil
	}
	ok, err := s.repo.AddPartnerTotals(ctx, partner.ID, partner.Version, PartnerTotalsDelta{Conversions: 1})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update partner totals")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeConflict, "partner was modified concurrently")
	}
	return nil
}

// ListCommissions pages through a partner's commission calculations.
func (s *Service) ListCommissions(ctx context.Context, partnerID uuid.UUID, params pagination.Params) ([]models.CommissionCalculation, *pagination.Cursor, error) {
	rows, next, err := s.repo.ListCommissionsByPartner(ctx, partnerID, params)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list commissions")
	}
	return rows, next, nil
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func generateCode() string {
	return "SHQ-" + strings.ToUpper(uuid.NewString()[:8])
}

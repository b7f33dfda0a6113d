package subscriptions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/harlowe-labs/scenthq-backend/internal/tiers"
	"github.com/harlowe-labs/scenthq-backend/pkg/db/models"
	"github.com/harlowe-labs/scenthq-backend/pkg/enums"
	pkgerrors "github.com/harlowe-labs/scenthq-backend/pkg/errors"
	"github.com/harlowe-labs/scenthq-backend/pkg/logger"
	"github.com/harlowe-labs/scenthq-backend/pkg/outbox"
)

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// ServiceParams groups dependencies for the subscription lifecycle service.
type ServiceParams struct {
	Repo   Repository
	Outbox outboxPublisher
	Logger *logger.Logger
}

// Service manages the one-per-organization entitlement record.
type Service struct {
	repo   Repository
	outbox outboxPublisher
	logg   *logger.Logger
}

// NewService builds a subscription service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	return &Service{repo: params.Repo, outbox: params.Outbox, logg: params.Logger}, nil
}

// WithTx returns a service whose writes run inside the provided transaction.
func (s *Service) WithTx(tx *gorm.DB) *Service {
	if tx == nil {
		return s
	}
	return &Service{repo: s.repo.WithTx(tx), outbox: s.outbox, logg: s.logg}
}

// CreateInput captures a new entitlement for an organization.
type CreateInput struct {
	OrgID       uuid.UUID
	UserID      uuid.UUID
	Tier        enums.Tier
	PartnerCode *string
}

// Create provisions a pending subscription at the requested tier.
func (s *Service) Create(ctx context.Context, input CreateInput) (*models.Subscription, error) {
	if input.OrgID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "org id is required")
	}
	if _, ok := tiers.Lookup(input.Tier); !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown tier %q", input.Tier))
	}

	existing, err := s.repo.FindByOrg(ctx, input.OrgID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup subscription")
	}
	if existing != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "organization already has a subscription")
	}

	subscription := &models.Subscription{
		OrgID:         input.OrgID,
		UserID:        input.UserID,
		Tier:          input.Tier,
		Type:          enums.SubscriptionTypeNew,
		PaymentStatus: enums.PaymentStatusPending,
		PartnerCode:   input.PartnerCode,
		RunCount:      0,
		Progress:      "created",
		StartedAt:     time.Now(),
		Version:       1,
	}
	if err := s.repo.Create(ctx, subscription); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create subscription")
	}
	return subscription, nil
}

// UpgradeResult reports the outcome of an upgrade request. The tier itself
// only changes once the matching payment settles.
type UpgradeResult struct {
	Success         bool   `json:"success"`
	Message         string `json:"message"`
	RequiresPayment bool   `json:"requires_payment"`
}

// Upgrade validates a tier change request. Targets must rank strictly above
// the current tier. No state changes here.
func (s *Service) Upgrade(ctx context.Context, orgID uuid.UUID, targetTier enums.Tier) (*UpgradeResult, error) {
	subscription, err := s.repo.FindByOrg(ctx, orgID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup subscription")
	}
	if subscription == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found")
	}

	target := tiers.Ordinal(targetTier)
	if target == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown tier %q", targetTier))
	}
	if target <= tiers.Ordinal(subscription.Tier) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("cannot move from tier %q to %q", subscription.Tier, targetTier))
	}

	return &UpgradeResult{
		Success:         true,
		Message:         fmt.Sprintf("upgrade to %q requires payment", targetTier),
		RequiresPayment: true,
	}, nil
}

// ApplyPaid settles a subscription after its payment reached paid. For an
// existing subscription the tier is replaced and the record becomes an
// upgrade; the caller passes isNew=true for a subscription created within the
// same payment flow.
func (s *Service) ApplyPaid(ctx context.Context, tx *gorm.DB, orgID uuid.UUID, tier enums.Tier, isNew bool) (*models.Subscription, error) {
	repo := s.repo.WithTx(tx)

	subscription, err := repo.FindByOrg(ctx, orgID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup subscription")
	}
	if subscription == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found")
	}

	subType := enums.SubscriptionTypeUpgrade
	if isNew {
		subType = enums.SubscriptionTypeNew
	}
	ok, err := repo.ApplyPaid(ctx, subscription.ID, subscription.Version, tier, subType)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "apply paid")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "subscription was modified concurrently")
	}

	subscription.Tier = tier
	subscription.Type = subType
	subscription.PaymentStatus = enums.PaymentStatusPaid
	subscription.Version++

	if s.outbox != nil && tx != nil {
		eventType := enums.OutboxEventSubscriptionUpgrade
		if isNew {
			eventType = enums.OutboxEventSubscriptionCreated
		}
		err = s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     eventType,
			AggregateType: enums.OutboxAggregateSubscription,
			AggregateID:   subscription.ID,
			Data: map[string]any{
				"orgId": orgID.String(),
				"tier":  tier.String(),
			},
			Version: 1,
		})
		if err != nil {
			return nil, err
		}
	}
	return subscription, nil
}

// CompensateCreate removes a subscription created during a payment flow that
// later failed. The record never settled, so it is deleted rather than
// cancelled.
func (s *Service) CompensateCreate(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

// CompensateApplyPaid restores a subscription to its state before a paid
// transition that belongs to a failed payment flow.
func (s *Service) CompensateApplyPaid(ctx context.Context, id uuid.UUID, tier enums.Tier, subType enums.SubscriptionType, paymentStatus enums.PaymentStatus) error {
	return s.repo.RestoreSnapshot(ctx, id, tier, subType, paymentStatus)
}

// ValidateFeatureAccess reports whether an organization may use a feature.
// Denials carry no error; absence, unpaid status, and a missing feature all
// read as not allowed.
func (s *Service) ValidateFeatureAccess(ctx context.Context, orgID uuid.UUID, feature string) (bool, error) {
	subscription, err := s.repo.FindByOrg(ctx, orgID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup subscription")
	}
	if subscription == nil {
		return false, nil
	}
	if subscription.PaymentStatus != enums.PaymentStatusPaid {
		return false, nil
	}
	return tiers.HasFeature(subscription.Tier, feature), nil
}

// FindByOrg returns the organization's subscription, nil when absent.
func (s *Service) FindByOrg(ctx context.Context, orgID uuid.UUID) (*models.Subscription, error) {
	subscription, err := s.repo.FindByOrg(ctx, orgID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup subscription")
	}
	return subscription, nil
}

// RecordRun counts a training run against the tier's monthly allowance.
func (s *Service) RecordRun(ctx context.Context, orgID uuid.UUID) error {
	subscription, err := s.repo.FindByOrg(ctx, orgID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup subscription")
	}
	if subscription == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found")
	}
	if subscription.PaymentStatus != enums.PaymentStatusPaid {
		return pkgerrors.New(pkgerrors.CodeValidation, "subscription is not active")
	}

	def, ok := tiers.Lookup(subscription.Tier)
	if !ok {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown tier %q", subscription.Tier))
	}
	if subscription.RunCount >= def.Limits.MonthlyRuns {
		return pkgerrors.New(pkgerrors.CodeValidation, "monthly run limit reached")
	}

	ok, err = s.repo.IncrementRunCount(ctx, subscription.ID, subscription.Version)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record run")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeConflict, "subscription was modified concurrently")
	}
	return nil
}

// UpdateProgress sets the free-text progress marker.
func (s *Service) UpdateProgress(ctx context.Context, orgID uuid.UUID, marker string) error {
	marker = strings.TrimSpace(marker)
	if marker == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "progress marker is required")
	}
	subscription, err := s.repo.FindByOrg(ctx, orgID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup subscription")
	}
	if subscription == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found")
	}
	if err := s.repo.UpdateProgress(ctx, subscription.ID, marker); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update progress")
	}
	return nil
}

// Cancel stamps the subscription as cancelled. Cancelling twice is a no-op.
func (s *Service) Cancel(ctx context.Context, orgID uuid.UUID) error {
	subscription, err := s.repo.FindByOrg(ctx, orgID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup subscription")
	}
	if subscription == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found")
	}
	if subscription.CancelledAt != nil {
		return nil
	}

	ok, err := s.repo.Cancel(ctx, subscription.ID, subscription.Version, time.Now())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel subscription")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeConflict, "subscription was modified concurrently")
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithOrgID(ctx, orgID.String()), "subscription cancelled")
	}
	return nil
}

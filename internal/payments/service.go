package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/harlowe-labs/scenthq-backend/internal/partners"
	"github.com/harlowe-labs/scenthq-backend/internal/subscriptions"
	"github.com/harlowe-labs/scenthq-backend/internal/tiers"
	"github.com/harlowe-labs/scenthq-backend/internal/users"
	"github.com/harlowe-labs/scenthq-backend/pkg/config"
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

// IntentVerifier checks an external payment confirmation token with the
// gateway before a payment settles.
type IntentVerifier interface {
	VerifyIntent(ctx context.Context, confirmationToken string) error
}

// StaticVerifier accepts any non-empty confirmation token. It stands in when
// no gateway is configured; token issuance happens outside this system.
type StaticVerifier struct{}

func (StaticVerifier) VerifyIntent(_ context.Context, confirmationToken string) error {
	if strings.TrimSpace(confirmationToken) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "confirmation token is required")
	}
	return nil
}

type subscriptionManager interface {
	FindByOrg(ctx context.Context, orgID uuid.UUID) (*models.Subscription, error)
	Create(ctx context.Context, input subscriptions.CreateInput) (*models.Subscription, error)
	ApplyPaid(ctx context.Context, tx *gorm.DB, orgID uuid.UUID, tier enums.Tier, isNew bool) (*models.Subscription, error)
	CompensateCreate(ctx context.Context, id uuid.UUID) error
	CompensateApplyPaid(ctx context.Context, id uuid.UUID, tier enums.Tier, subType enums.SubscriptionType, paymentStatus enums.PaymentStatus) error
}

type userDirectory interface {
	FindByID(ctx context.Context, id uuid.UUID) (*users.UserDTO, error)
	UpdateRole(ctx context.Context, userID uuid.UUID, role enums.UserRole) error
}

type partnerProgram interface {
	Validate(ctx context.Context, code string) (*partners.CodeValidation, error)
	IncrementUsage(ctx context.Context, code string) error
	MarkConverted(ctx context.Context, email string, paymentID uuid.UUID, commissionCents int) error
	CalculateCommission(ctx context.Context, input partners.CalculateCommissionInput) (*models.CommissionCalculation, error)
}

// ServiceParams groups dependencies for the payment processor.
type ServiceParams struct {
	Repo          Repository
	Subscriptions subscriptionManager
	Directory     userDirectory
	Partners      partnerProgram
	Verifier      IntentVerifier
	TX            txRunner
	Outbox        outboxPublisher
	Metrics       *metrics.BillingMetrics
	Billing       config.BillingConfig
	Logger        *logger.Logger
}

// Service drives the payment state machine and its subscription side effects.
type Service struct {
	repo     Repository
	subs     subscriptionManager
	dir      userDirectory
	partners partnerProgram
	verifier IntentVerifier
	tx       txRunner
	outbox   outboxPublisher
	metrics  *metrics.BillingMetrics
	billing  config.BillingConfig
	logg     *logger.Logger
}

// NewService builds a payment processor.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	if params.Subscriptions == nil {
		return nil, errors.New("subscription manager is required")
	}
	if params.TX == nil {
		return nil, errors.New("transaction runner is required")
	}
	if params.Outbox == nil {
		return nil, errors.New("outbox publisher is required")
	}
	if params.Billing.TaxRateBasisPoints < 0 {
		return nil, errors.New("tax rate must not be negative")
	}
	return &Service{
		repo:     params.Repo,
		subs:     params.Subscriptions,
		dir:      params.Directory,
		partners: params.Partners,
		verifier: params.Verifier,
		tx:       params.TX,
		outbox:   params.Outbox,
		metrics:  params.Metrics,
		billing:  params.Billing,
		logg:     params.Logger,
	}, nil
}

// CreateInput captures a new pending payment.
type CreateInput struct {
	OrgID       uuid.UUID
	UserID      uuid.UUID
	Tier        enums.Tier
	Method      enums.PaymentMethod
	AmountCents int
	PartnerCode *string
}

// CreatePayment persists a pending payment with tax applied on top of the
// base amount.
func (s *Service) CreatePayment(ctx context.Context, input CreateInput) (*models.Payment, error) {
	if input.OrgID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "org id is required")
	}
	if _, ok := tiers.Lookup(input.Tier); !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown tier %q", input.Tier))
	}
	if input.AmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	method := input.Method
	if method == "" {
		method = enums.PaymentMethodCard
	}
	if !method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown payment method %q", method))
	}

	tax := TaxCents(input.AmountCents, s.billing.TaxRateBasisPoints)
	payment := &models.Payment{
		OrgID:       input.OrgID,
		UserID:      input.UserID,
		Tier:        input.Tier,
		Method:      method,
		Status:      enums.PaymentStatusPending,
		AmountCents: input.AmountCents,
		TaxCents:    tax,
		TotalCents:  input.AmountCents + tax,
		PartnerCode: input.PartnerCode,
		Version:     1,
	}
	if err := s.repo.Create(ctx, payment); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment")
	}
	return payment, nil
}

// ProcessResult reports the outcome of settling a payment.
type ProcessResult struct {
	Success            bool   `json:"success"`
	Message            string `json:"message"`
	RequiresRoleUpdate bool   `json:"requires_role_update"`
}

// ProcessPayment settles a pending payment and provisions the entitlement.
// The subscription and role side effects run as a saga: each applied step
// records its undo, and a later failure runs the undos in reverse before the
// payment is forced to failed.
func (s *Service) ProcessPayment(ctx context.Context, paymentID uuid.UUID, confirmationToken string) (*ProcessResult, error) {
	payment, err := s.repo.FindByID(ctx, paymentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup payment")
	}
	if payment == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
	}
	if payment.Status != enums.PaymentStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("payment already processed with status %q", payment.Status))
	}

	if s.verifier != nil {
		if err := s.verifier.VerifyIntent(ctx, confirmationToken); err != nil {
			return nil, err
		}
	}

	paidAt := time.Now()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ok, err := s.repo.WithTx(tx).MarkPaid(ctx, payment.ID, payment.Version, confirmationToken, paidAt)
		if err != nil {
			return err
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeConflict, "payment was modified concurrently")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.OutboxEventPaymentPaid,
			AggregateType: enums.OutboxAggregatePayment,
			AggregateID:   payment.ID,
			Data: map[string]any{
				"orgId":      payment.OrgID.String(),
				"tier":       payment.Tier.String(),
				"totalCents": payment.TotalCents,
			},
			Version:    1,
			OccurredAt: paidAt,
		})
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeConflict {
			return nil, err
		}
		return nil, s.failPayment(ctx, payment, err)
	}

	var compensations []func(context.Context) error

	result := &ProcessResult{Success: true, Message: "payment processed"}
	err = s.provision(ctx, payment, result, &compensations)
	if err != nil {
		s.compensate(ctx, payment.ID, compensations)
		return nil, s.failPayment(ctx, payment, err)
	}

	s.settleReferral(ctx, payment)
	s.metrics.IncPaymentProcessed(enums.PaymentStatusPaid.String())
	if s.logg != nil {
		logCtx := s.logg.WithOrgID(ctx, payment.OrgID.String())
		s.logg.Info(s.logg.WithFields(logCtx, map[string]any{"payment_id": payment.ID.String()}), "payment settled")
	}
	return result, nil
}

// provision applies the subscription and role side effects, recording an undo
// for each applied step.
func (s *Service) provision(ctx context.Context, payment *models.Payment, result *ProcessResult, compensations *[]func(context.Context) error) error {
	subscription, err := s.subs.FindByOrg(ctx, payment.OrgID)
	if err != nil {
		return err
	}

	if subscription != nil {
		priorTier := subscription.Tier
		priorType := subscription.Type
		priorStatus := subscription.PaymentStatus
		subID := subscription.ID

		err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			_, err := s.subs.ApplyPaid(ctx, tx, payment.OrgID, payment.Tier, false)
			return err
		})
		if err != nil {
			return err
		}
		*compensations = append(*compensations, func(ctx context.Context) error {
			return s.subs.CompensateApplyPaid(ctx, subID, priorTier, priorType, priorStatus)
		})
	} else {
		created, err := s.subs.Create(ctx, subscriptions.CreateInput{
			OrgID:       payment.OrgID,
			UserID:      payment.UserID,
			Tier:        payment.Tier,
			PartnerCode: payment.PartnerCode,
		})
		if err != nil {
			return err
		}
		createdID := created.ID
		*compensations = append(*compensations, func(ctx context.Context) error {
			return s.subs.CompensateCreate(ctx, createdID)
		})

		err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			_, err := s.subs.ApplyPaid(ctx, tx, payment.OrgID, payment.Tier, true)
			return err
		})
		if err != nil {
			return err
		}
	}

	if payment.Tier == enums.TierLawEnforcement && s.dir != nil {
		payer, err := s.dir.FindByID(ctx, payment.UserID)
		if err != nil {
			return err
		}
		if payer != nil && payer.Role != enums.RoleLawEnforcement {
			priorRole := payer.Role
			if err := s.dir.UpdateRole(ctx, payment.UserID, enums.RoleLawEnforcement); err != nil {
				return err
			}
			*compensations = append(*compensations, func(ctx context.Context) error {
				return s.dir.UpdateRole(ctx, payment.UserID, priorRole)
			})
			result.RequiresRoleUpdate = true
			result.Message = "payment processed, payer role elevated"
		}
	}
	return nil
}

func (s *Service) compensate(ctx context.Context, paymentID uuid.UUID, compensations []func(context.Context) error) {
	for i := len(compensations) - 1; i >= 0; i-- {
		if err := compensations[i](ctx); err != nil && s.logg != nil {
			logCtx := s.logg.WithFields(ctx, map[string]any{"payment_id": paymentID.String()})
			s.logg.Error(logCtx, "payment compensation step failed", err)
		}
	}
}

// failPayment forces the payment to failed and returns a processing error
// that embeds the cause.
func (s *Service) failPayment(ctx context.Context, payment *models.Payment, cause error) error {
	message := fmt.Sprintf("payment processing failed: %s", cause.Error())
	if err := s.repo.MarkFailed(ctx, payment.ID, cause.Error()); err != nil && s.logg != nil {
		s.logg.Error(ctx, "unable to mark payment failed", err)
	}
	failErr := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.OutboxEventPaymentFailed,
			AggregateType: enums.OutboxAggregatePayment,
			AggregateID:   payment.ID,
			Data: map[string]any{
				"orgId":  payment.OrgID.String(),
				"reason": cause.Error(),
			},
			Version: 1,
		})
	})
	if failErr != nil && s.logg != nil {
		s.logg.Error(ctx, "unable to emit payment failure event", failErr)
	}
	s.metrics.IncPaymentProcessed(enums.PaymentStatusFailed.String())
	return pkgerrors.Wrap(pkgerrors.CodeProcessing, cause, message)
}

// settleReferral runs the partner-side effects of a settled payment. These
// are best effort: a referral bookkeeping failure never unwinds a payment.
func (s *Service) settleReferral(ctx context.Context, payment *models.Payment) {
	if s.partners == nil || payment.PartnerCode == nil {
		return
	}
	code := *payment.PartnerCode

	validation, err := s.partners.Validate(ctx, code)
	if err != nil || !validation.IsValid {
		s.logReferralSkip(ctx, payment, code, err)
		return
	}
	if err := s.partners.IncrementUsage(ctx, code); err != nil {
		s.logReferralSkip(ctx, payment, code, err)
		return
	}
	calc, err := s.partners.CalculateCommission(ctx, partners.CalculateCommissionInput{
		PartnerID:       *validation.PartnerID,
		PaymentID:       payment.ID,
		OrderTotalCents: payment.TotalCents,
		Tier:            payment.Tier,
	})
	if err != nil {
		s.logReferralSkip(ctx, payment, code, err)
		return
	}

	if s.dir == nil {
		return
	}
	payer, err := s.dir.FindByID(ctx, payment.UserID)
	if err != nil || payer == nil {
		s.logReferralSkip(ctx, payment, code, err)
		return
	}
	if err := s.partners.MarkConverted(ctx, payer.Email, payment.ID, calc.AmountCents); err != nil {
		s.logReferralSkip(ctx, payment, code, err)
	}
}

func (s *Service) logReferralSkip(ctx context.Context, payment *models.Payment, code string, err error) {
	if s.logg == nil {
		return
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"payment_id":   payment.ID.String(),
		"partner_code": code,
	})
	if err != nil {
		s.logg.Error(logCtx, "referral settlement skipped", err)
		return
	}
	s.logg.Warn(logCtx, "referral settlement skipped")
}

// CalculateRefundQuote prices a refund without applying it.
func (s *Service) CalculateRefundQuote(ctx context.Context, paymentID uuid.UUID) (*RefundQuote, error) {
	payment, err := s.repo.FindByID(ctx, paymentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup payment")
	}
	if payment == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
	}
	quote := CalculateRefund(payment, time.Now(), s.billing.RefundWindowDays)
	return &quote, nil
}

// RefundResult reports a processed refund.
type RefundResult struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	AmountCents int    `json:"amount_cents"`
}

// ProcessRefund applies a prorated refund to a paid payment.
func (s *Service) ProcessRefund(ctx context.Context, paymentID uuid.UUID, reason string) (*RefundResult, error) {
	payment, err := s.repo.FindByID(ctx, paymentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup payment")
	}
	if payment == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
	}

	refundedAt := time.Now()
	quote := CalculateRefund(payment, refundedAt, s.billing.RefundWindowDays)
	if !quote.Eligible {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, quote.Reason)
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ok, err := s.repo.WithTx(tx).MarkRefunded(ctx, payment.ID, payment.Version, quote.AmountCents, refundedAt)
		if err != nil {
			return err
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeConflict, "payment was modified concurrently")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.OutboxEventPaymentRefunded,
			AggregateType: enums.OutboxAggregatePayment,
			AggregateID:   payment.ID,
			Data: map[string]any{
				"orgId":       payment.OrgID.String(),
				"amountCents": quote.AmountCents,
				"reason":      reason,
			},
			Version:    1,
			OccurredAt: refundedAt,
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveRefund(quote.AmountCents)
	return &RefundResult{
		Success:     true,
		Message:     "refund processed",
		AmountCents: quote.AmountCents,
	}, nil
}

// CancelPayment voids a payment that never settled.
func (s *Service) CancelPayment(ctx context.Context, paymentID uuid.UUID) error {
	payment, err := s.repo.FindByID(ctx, paymentID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup payment")
	}
	if payment == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
	}
	if payment.Status != enums.PaymentStatusPending {
		return pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("cannot cancel payment with status %q", payment.Status))
	}

	ok, err := s.repo.MarkCancelled(ctx, payment.ID, payment.Version, time.Now())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel payment")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeConflict, "payment was modified concurrently")
	}
	s.metrics.IncPaymentProcessed(enums.PaymentStatusCancelled.String())
	return nil
}

// FindByID returns the payment, nil-safe not found.
func (s *Service) FindByID(ctx context.Context, paymentID uuid.UUID) (*models.Payment, error) {
	payment, err := s.repo.FindByID(ctx, paymentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup payment")
	}
	if payment == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
	}
	return payment, nil
}

// ListByOrg pages through an organization's payments, newest first.
func (s *Service) ListByOrg(ctx context.Context, orgID uuid.UUID, params pagination.Params) ([]models.Payment, *pagination.Cursor, error) {
	rows, next, err := s.repo.ListByOrg(ctx, orgID, params)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payments")
	}
	return rows, next, nil
}

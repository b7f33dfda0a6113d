package partners

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/harlowe-labs/scenthq-backend/internal/tiers"
	"github.com/harlowe-labs/scenthq-backend/pkg/db/models"
	"github.com/harlowe-labs/scenthq-backend/pkg/enums"
	pkgerrors "github.com/harlowe-labs/scenthq-backend/pkg/errors"
	"github.com/harlowe-labs/scenthq-backend/pkg/outbox"
)

// ComputeCommissionCents derives the commission owed on an order total.
// The rate is expressed in basis points and the tier modifier is applied
// before rounding, so the result is rounded exactly once, half away from
// zero.
func ComputeCommissionCents(totalCents, rateBPS int, modifier decimal.Decimal) int {
	amount := decimal.NewFromInt(int64(totalCents)).
		Mul(decimal.NewFromInt(int64(rateBPS))).
		Div(decimal.NewFromInt(10000)).
		Mul(modifier)
	return int(amount.Round(0).IntPart())
}

// CalculateCommissionInput identifies the settled payment to commission.
type CalculateCommissionInput struct {
	PartnerID       uuid.UUID
	PaymentID       uuid.UUID
	OrderTotalCents int
	Tier            enums.Tier
}

// CalculateCommission records the commission owed to a partner for a payment.
// Recalculating for the same (partner, payment) pair returns the stored row
// unchanged.
func (s *Service) CalculateCommission(ctx context.Context, input CalculateCommissionInput) (*models.CommissionCalculation, error) {
	existing, err := s.repo.FindCommission(ctx, input.PartnerID, input.PaymentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup commission")
	}
	if existing != nil {
		return existing, nil
	}

	partner, err := s.repo.FindPartnerByID(ctx, input.PartnerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup partner")
	}
	if partner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "partner not found")
	}
	if input.OrderTotalCents < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order total must not be negative")
	}

	modifier := tiers.CommissionModifier(input.Tier, partner.BusinessType)
	calc := &models.CommissionCalculation{
		PartnerID:       partner.ID,
		PaymentID:       input.PaymentID,
		OrderTotalCents: input.OrderTotalCents,
		RateBPS:         partner.CommissionRateBPS,
		TierModifier:    modifier,
		AmountCents:     ComputeCommissionCents(input.OrderTotalCents, partner.CommissionRateBPS, modifier),
		Status:          enums.CommissionStatusCalculated,
	}
	if err := s.repo.CreateCommission(ctx, calc); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create commission")
	}
	return calc, nil
}

// ProcessCommissionPayment settles a calculated commission. Paying an already
// paid commission returns the stored payment reference without touching
// partner totals again.
func (s *Service) ProcessCommissionPayment(ctx context.Context, partnerID, paymentID uuid.UUID) (*models.CommissionCalculation, error) {
	calc, err := s.repo.FindCommission(ctx, partnerID, paymentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup commission")
	}
	if calc == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "commission not found")
	}
	if calc.Status == enums.CommissionStatusPaid {
		return calc, nil
	}

	reference := commissionReference(partnerID, time.Now())
	paidAt := time.Now()

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		partner, err := repo.FindPartnerByID(ctx, partnerID)
		if err != nil {
			return err
		}
		if partner == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "partner not found")
		}

		if err := repo.MarkCommissionPaid(ctx, calc.ID, reference, paidAt); err != nil {
			return err
		}
		ok, err := repo.AddPartnerTotals(ctx, partner.ID, partner.Version, PartnerTotalsDelta{PaidCents: calc.AmountCents})
		if err != nil {
			return err
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeConflict, "partner was modified concurrently")
		}
		if err := s.attributions.MarkCommissionPaid(ctx, partner.ID, paymentID); err != nil {
			return err
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.OutboxEventCommissionPaid,
			AggregateType: enums.OutboxAggregatePartner,
			AggregateID:   partner.ID,
			Data: map[string]any{
				"partnerId":   partner.ID.String(),
				"paymentId":   paymentID.String(),
				"amountCents": calc.AmountCents,
				"reference":   reference,
			},
			Version:    1,
			OccurredAt: paidAt,
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.AddCommissionPaid(calc.AmountCents)
	if s.logg != nil {
		logCtx := s.logg.WithPartnerID(ctx, partnerID.String())
		logCtx = s.logg.WithFields(logCtx, map[string]any{
			"payment_id":   paymentID.String(),
			"amount_cents": calc.AmountCents,
			"reference":    reference,
		})
		s.logg.Info(logCtx, "commission paid")
	}

	calc.Status = enums.CommissionStatusPaid
	calc.PaymentReference = &reference
	calc.PaidAt = &paidAt
	return calc, nil
}

func commissionReference(partnerID uuid.UUID, at time.Time) string {
	return fmt.Sprintf("COMM-%d-%s", at.Unix(), partnerID.String()[:8])
}

package partners

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/harlowe-labs/scenthq-backend/api/responses"
	"github.com/harlowe-labs/scenthq-backend/api/validators"
	partnersvc "github.com/harlowe-labs/scenthq-backend/internal/partners"
	"github.com/harlowe-labs/scenthq-backend/pkg/db/models"
	"github.com/harlowe-labs/scenthq-backend/pkg/enums"
	pkgerrors "github.com/harlowe-labs/scenthq-backend/pkg/errors"
	"github.com/harlowe-labs/scenthq-backend/pkg/logger"
	"github.com/harlowe-labs/scenthq-backend/pkg/pagination"
)

// Service describes the partner program methods used by the HTTP controllers.
type Service interface {
	RegisterPartner(ctx context.Context, input partnersvc.RegisterPartnerInput) (*models.Partner, error)
	CreateCode(ctx context.Context, input partnersvc.CreateCodeInput) (*models.PartnerCode, error)
	DeactivateCode(ctx context.Context, code string) error
	Validate(ctx context.Context, code string) (*partnersvc.CodeValidation, error)
	Attribute(ctx context.Context, code, email string) (*models.ReferralAttribution, error)
	ProcessCommissionPayment(ctx context.Context, partnerID, paymentID uuid.UUID) (*models.CommissionCalculation, error)
	ListCommissions(ctx context.Context, partnerID uuid.UUID, params pagination.Params) ([]models.CommissionCalculation, *pagination.Cursor, error)
}

type registerRequest struct {
	Name              string `json:"name" validate:"required"`
	ContactEmail      string `json:"contact_email" validate:"required,email"`
	BusinessType      string `json:"business_type" validate:"required"`
	CommissionRateBPS int    `json:"commission_rate_bps"`
}

type partnerResponse struct {
	ID                    string    `json:"id"`
	Name                  string    `json:"name"`
	ContactEmail          string    `json:"contact_email"`
	BusinessType          string    `json:"business_type"`
	Status                string    `json:"status"`
	CommissionRateBPS     int       `json:"commission_rate_bps"`
	TotalPaidCents        int       `json:"total_paid_cents"`
	TotalReferrals        int       `json:"total_referrals"`
	SuccessfulConversions int       `json:"successful_conversions"`
	CreatedAt             time.Time `json:"created_at"`
}

type createCodeRequest struct {
	Code              string     `json:"code,omitempty"`
	CommissionRateBPS *int       `json:"commission_rate_bps,omitempty"`
	MaxUses           *int       `json:"max_uses,omitempty"`
	ExpiresAt         *time.Time `json:"expires_at,omitempty"`
}

type codeResponse struct {
	Code              string     `json:"code"`
	PartnerID         string     `json:"partner_id"`
	IsActive          bool       `json:"is_active"`
	CommissionRateBPS int        `json:"commission_rate_bps"`
	MaxUses           *int       `json:"max_uses,omitempty"`
	CurrentUses       int        `json:"current_uses"`
	ExpiresAt         *time.Time `json:"expires_at,omitempty"`
}

type attributeRequest struct {
	Code  string `json:"code" validate:"required"`
	Email string `json:"email" validate:"required,email"`
}

type commissionResponse struct {
	ID               string     `json:"id"`
	PartnerID        string     `json:"partner_id"`
	PaymentID        string     `json:"payment_id"`
	OrderTotalCents  int        `json:"order_total_cents"`
	RateBPS          int        `json:"rate_bps"`
	TierModifier     string     `json:"tier_modifier"`
	AmountCents      int        `json:"amount_cents"`
	Status           string     `json:"status"`
	PaymentReference *string    `json:"payment_reference,omitempty"`
	PaidAt           *time.Time `json:"paid_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

type commissionListResponse struct {
	Items  []commissionResponse `json:"items"`
	Cursor string               `json:"cursor,omitempty"`
}

// Register enrolls a new referral partner.
func Register(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "partner service unavailable"))
			return
		}

		var payload registerRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		businessType, err := enums.ParseBusinessType(payload.BusinessType)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid business type"))
			return
		}

		partner, err := svc.RegisterPartner(ctx, partnersvc.RegisterPartnerInput{
			Name:              payload.Name,
			ContactEmail:      payload.ContactEmail,
			BusinessType:      businessType,
			CommissionRateBPS: payload.CommissionRateBPS,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, toPartnerResponse(*partner))
	}
}

// CreateCode issues a referral code for a partner.
func CreateCode(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "partner service unavailable"))
			return
		}

		partnerID, err := parsePartnerID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload createCodeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		code, err := svc.CreateCode(ctx, partnersvc.CreateCodeInput{
			PartnerID:         partnerID,
			Code:              payload.Code,
			CommissionRateBPS: payload.CommissionRateBPS,
			MaxUses:           payload.MaxUses,
			ExpiresAt:         payload.ExpiresAt,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, toCodeResponse(*code))
	}
}

// DeactivateCode permanently disables a referral code.
func DeactivateCode(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "partner service unavailable"))
			return
		}

		code := strings.TrimSpace(chi.URLParam(r, "code"))
		if code == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "code is required"))
			return
		}

		if err := svc.DeactivateCode(ctx, code); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deactivated"})
	}
}

// ValidateCode reports whether a referral code can be used. Failed checks
// return is_valid false with no detail.
func ValidateCode(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "partner service unavailable"))
			return
		}

		code := strings.TrimSpace(chi.URLParam(r, "code"))
		if code == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "code is required"))
			return
		}

		validation, err := svc.Validate(ctx, code)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, validation)
	}
}

// Attribute records a referred signup email against a code.
func Attribute(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "partner service unavailable"))
			return
		}

		var payload attributeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		attribution, err := svc.Attribute(ctx, payload.Code, payload.Email)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]string{
			"id":         attribution.ID.String(),
			"partner_id": attribution.PartnerID.String(),
			"status":     attribution.Status.String(),
		})
	}
}

// PayCommission settles a calculated commission. Replays return the stored
// payment reference.
func PayCommission(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "partner service unavailable"))
			return
		}

		partnerID, err := parsePartnerID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		paymentID, err := uuid.Parse(chi.URLParam(r, "paymentID"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment id"))
			return
		}

		calc, err := svc.ProcessCommissionPayment(ctx, partnerID, paymentID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, toCommissionResponse(*calc))
	}
}

// ListCommissions pages through a partner's commission calculations.
func ListCommissions(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "partner service unavailable"))
			return
		}

		partnerID, err := parsePartnerID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		query := r.URL.Query()
		limit := 0
		if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
			limit, err = strconv.Atoi(raw)
			if err != nil || limit < 1 {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "limit must be a positive integer"))
				return
			}
		}

		rows, next, err := svc.ListCommissions(ctx, partnerID, pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(query.Get("cursor")),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		resp := commissionListResponse{Items: make([]commissionResponse, 0, len(rows))}
		for _, row := range rows {
			resp.Items = append(resp.Items, toCommissionResponse(row))
		}
		if next != nil {
			resp.Cursor = pagination.EncodeCursor(*next)
		}
		responses.WriteSuccess(w, resp)
	}
}

func toPartnerResponse(p models.Partner) partnerResponse {
	return partnerResponse{
		ID:                    p.ID.String(),
		Name:                  p.Name,
		ContactEmail:          p.ContactEmail,
		BusinessType:          p.BusinessType.String(),
		Status:                p.Status.String(),
		CommissionRateBPS:     p.CommissionRateBPS,
		TotalPaidCents:        p.TotalPaidCents,
		TotalReferrals:        p.TotalReferrals,
		SuccessfulConversions: p.SuccessfulConversions,
		CreatedAt:             p.CreatedAt.UTC(),
	}
}

func toCodeResponse(c models.PartnerCode) codeResponse {
	return codeResponse{
		Code:              c.Code,
		PartnerID:         c.PartnerID.String(),
		IsActive:          c.IsActive,
		CommissionRateBPS: c.CommissionRateBPS,
		MaxUses:           c.MaxUses,
		CurrentUses:       c.CurrentUses,
		ExpiresAt:         c.ExpiresAt,
	}
}

func toCommissionResponse(c models.CommissionCalculation) commissionResponse {
	return commissionResponse{
		ID:               c.ID.String(),
		PartnerID:        c.PartnerID.String(),
		PaymentID:        c.PaymentID.String(),
		OrderTotalCents:  c.OrderTotalCents,
		RateBPS:          c.RateBPS,
		TierModifier:     c.TierModifier.String(),
		AmountCents:      c.AmountCents,
		Status:           c.Status.String(),
		PaymentReference: c.PaymentReference,
		PaidAt:           c.PaidAt,
		CreatedAt:        c.CreatedAt.UTC(),
	}
}

func parsePartnerID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "partnerID"))
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid partner id")
	}
	return id, nil
}

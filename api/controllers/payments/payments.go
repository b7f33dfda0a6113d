package payments

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/harlowe-labs/scenthq-backend/api/middleware"
	"github.com/harlowe-labs/scenthq-backend/api/responses"
	"github.com/harlowe-labs/scenthq-backend/api/validators"
	paymentsvc "github.com/harlowe-labs/scenthq-backend/internal/payments"
	"github.com/harlowe-labs/scenthq-backend/pkg/db/models"
	"github.com/harlowe-labs/scenthq-backend/pkg/enums"
	pkgerrors "github.com/harlowe-labs/scenthq-backend/pkg/errors"
	"github.com/harlowe-labs/scenthq-backend/pkg/logger"
	"github.com/harlowe-labs/scenthq-backend/pkg/pagination"
)

// Service describes the payment processor methods used by the HTTP controllers.
type Service interface {
	CreatePayment(ctx context.Context, input paymentsvc.CreateInput) (*models.Payment, error)
	ProcessPayment(ctx context.Context, paymentID uuid.UUID, confirmationToken string) (*paymentsvc.ProcessResult, error)
	CalculateRefundQuote(ctx context.Context, paymentID uuid.UUID) (*paymentsvc.RefundQuote, error)
	ProcessRefund(ctx context.Context, paymentID uuid.UUID, reason string) (*paymentsvc.RefundResult, error)
	CancelPayment(ctx context.Context, paymentID uuid.UUID) error
	FindByID(ctx context.Context, paymentID uuid.UUID) (*models.Payment, error)
	ListByOrg(ctx context.Context, orgID uuid.UUID, params pagination.Params) ([]models.Payment, *pagination.Cursor, error)
}

type createRequest struct {
	Tier        string  `json:"tier" validate:"required"`
	AmountCents int     `json:"amount_cents" validate:"required"`
	Method      string  `json:"method,omitempty"`
	PartnerCode *string `json:"partner_code,omitempty"`
}

type processRequest struct {
	ConfirmationToken string `json:"confirmation_token"`
}

type refundRequest struct {
	Reason string `json:"reason,omitempty"`
}

type paymentResponse struct {
	ID            string     `json:"id"`
	OrgID         string     `json:"org_id"`
	Tier          string     `json:"tier"`
	Method        string     `json:"method"`
	Status        string     `json:"status"`
	AmountCents   int        `json:"amount_cents"`
	TaxCents      int        `json:"tax_cents"`
	TotalCents    int        `json:"total_cents"`
	PartnerCode   *string    `json:"partner_code,omitempty"`
	FailureReason *string    `json:"failure_reason,omitempty"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
	RefundedCents *int       `json:"refunded_cents,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

type listResponse struct {
	Items  []paymentResponse `json:"items"`
	Cursor string            `json:"cursor,omitempty"`
}

// Create opens a pending payment for the caller's organization.
func Create(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		orgID, err := resolveOrgID(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		userID, err := resolveUserID(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload createRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		tier, err := enums.ParseTier(payload.Tier)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid tier"))
			return
		}
		var method enums.PaymentMethod
		if strings.TrimSpace(payload.Method) != "" {
			method, err = enums.ParsePaymentMethod(payload.Method)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid method"))
				return
			}
		}

		payment, err := svc.CreatePayment(ctx, paymentsvc.CreateInput{
			OrgID:       orgID,
			UserID:      userID,
			Tier:        tier,
			Method:      method,
			AmountCents: payload.AmountCents,
			PartnerCode: payload.PartnerCode,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, toPaymentResponse(*payment))
	}
}

// Process settles a pending payment with the gateway confirmation token.
func Process(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		paymentID, err := parsePaymentID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload processRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.ProcessPayment(ctx, paymentID, strings.TrimSpace(payload.ConfirmationToken))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// RefundQuote prices a refund without applying it.
func RefundQuote(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		paymentID, err := parsePaymentID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		quote, err := svc.CalculateRefundQuote(ctx, paymentID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, quote)
	}
}

// Refund applies a prorated refund to a paid payment.
func Refund(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		paymentID, err := parsePaymentID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload refundRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.ProcessRefund(ctx, paymentID, strings.TrimSpace(payload.Reason))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// Cancel voids a pending payment.
func Cancel(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		paymentID, err := parsePaymentID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := svc.CancelPayment(ctx, paymentID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "cancelled"})
	}
}

// Detail returns one payment.
func Detail(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		paymentID, err := parsePaymentID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		payment, err := svc.FindByID(ctx, paymentID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, toPaymentResponse(*payment))
	}
}

// List pages through the caller organization's payments.
func List(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		orgID, err := resolveOrgID(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		query := r.URL.Query()
		limit, err := parseLimit(query.Get("limit"))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		rows, next, err := svc.ListByOrg(ctx, orgID, pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(query.Get("cursor")),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		resp := listResponse{Items: make([]paymentResponse, 0, len(rows))}
		for _, row := range rows {
			resp.Items = append(resp.Items, toPaymentResponse(row))
		}
		if next != nil {
			resp.Cursor = pagination.EncodeCursor(*next)
		}
		responses.WriteSuccess(w, resp)
	}
}

func toPaymentResponse(p models.Payment) paymentResponse {
	return paymentResponse{
		ID:            p.ID.String(),
		OrgID:         p.OrgID.String(),
		Tier:          p.Tier.String(),
		Method:        p.Method.String(),
		Status:        p.Status.String(),
		AmountCents:   p.AmountCents,
		TaxCents:      p.TaxCents,
		TotalCents:    p.TotalCents,
		PartnerCode:   p.PartnerCode,
		FailureReason: p.FailureReason,
		PaidAt:        p.PaidAt,
		RefundedCents: p.RefundedCents,
		CreatedAt:     p.CreatedAt.UTC(),
	}
}

func parsePaymentID(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "paymentID")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment id")
	}
	return id, nil
}

func parseLimit(value string) (int, error) {
	if strings.TrimSpace(value) == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(value)
	if err != nil || limit < 1 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "limit must be a positive integer")
	}
	return limit, nil
}

func resolveOrgID(ctx context.Context) (uuid.UUID, error) {
	raw := middleware.OrgIDFromContext(ctx)
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "organization context required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "organization context required")
	}
	return id, nil
}

func resolveUserID(ctx context.Context) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(ctx)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return id, nil
}

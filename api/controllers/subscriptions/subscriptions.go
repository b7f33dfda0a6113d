package subscriptions

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/harlowe-labs/scenthq-backend/api/middleware"
	"github.com/harlowe-labs/scenthq-backend/api/responses"
	"github.com/harlowe-labs/scenthq-backend/api/validators"
	subscriptionsvc "github.com/harlowe-labs/scenthq-backend/internal/subscriptions"
	"github.com/harlowe-labs/scenthq-backend/pkg/db/models"
	"github.com/harlowe-labs/scenthq-backend/pkg/enums"
	pkgerrors "github.com/harlowe-labs/scenthq-backend/pkg/errors"
	"github.com/harlowe-labs/scenthq-backend/pkg/logger"
)

// Service describes the subscription lifecycle methods used by the HTTP
// controllers.
type Service interface {
	Create(ctx context.Context, input subscriptionsvc.CreateInput) (*models.Subscription, error)
	Upgrade(ctx context.Context, orgID uuid.UUID, targetTier enums.Tier) (*subscriptionsvc.UpgradeResult, error)
	FindByOrg(ctx context.Context, orgID uuid.UUID) (*models.Subscription, error)
	ValidateFeatureAccess(ctx context.Context, orgID uuid.UUID, feature string) (bool, error)
	RecordRun(ctx context.Context, orgID uuid.UUID) error
	UpdateProgress(ctx context.Context, orgID uuid.UUID, marker string) error
	Cancel(ctx context.Context, orgID uuid.UUID) error
}

type createRequest struct {
	Tier        string  `json:"tier" validate:"required"`
	PartnerCode *string `json:"partner_code,omitempty"`
}

type upgradeRequest struct {
	TargetTier string `json:"target_tier" validate:"required"`
}

type progressRequest struct {
	Marker string `json:"marker" validate:"required"`
}

type subscriptionResponse struct {
	ID            string     `json:"id"`
	OrgID         string     `json:"org_id"`
	Tier          string     `json:"tier"`
	Type          string     `json:"type"`
	PaymentStatus string     `json:"payment_status"`
	PartnerCode   *string    `json:"partner_code,omitempty"`
	RunCount      int        `json:"run_count"`
	Progress      string     `json:"progress"`
	StartedAt     time.Time  `json:"started_at"`
	CancelledAt   *time.Time `json:"cancelled_at,omitempty"`
}

// Create provisions a pending subscription for the caller's organization.
func Create(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscription service unavailable"))
			return
		}

		orgID, userID, err := resolveIdentity(ctx)
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

		subscription, err := svc.Create(ctx, subscriptionsvc.CreateInput{
			OrgID:       orgID,
			UserID:      userID,
			Tier:        tier,
			PartnerCode: payload.PartnerCode,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, toSubscriptionResponse(*subscription))
	}
}

// Upgrade validates a tier change for the caller's organization.
func Upgrade(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscription service unavailable"))
			return
		}

		orgID, _, err := resolveIdentity(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload upgradeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		tier, err := enums.ParseTier(payload.TargetTier)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid tier"))
			return
		}

		result, err := svc.Upgrade(ctx, orgID, tier)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// Fetch returns the caller organization's subscription.
func Fetch(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscription service unavailable"))
			return
		}

		orgID, _, err := resolveIdentity(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		subscription, err := svc.FindByOrg(ctx, orgID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if subscription == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found"))
			return
		}
		responses.WriteSuccess(w, toSubscriptionResponse(*subscription))
	}
}

// FeatureAccess reports whether the caller's tier grants a feature.
func FeatureAccess(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscription service unavailable"))
			return
		}

		orgID, _, err := resolveIdentity(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		feature := strings.TrimSpace(chi.URLParam(r, "feature"))
		if feature == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "feature is required"))
			return
		}

		allowed, err := svc.ValidateFeatureAccess(ctx, orgID, feature)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"feature": feature, "allowed": allowed})
	}
}

// RecordRun counts one training run against the monthly allowance.
func RecordRun(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscription service unavailable"))
			return
		}

		orgID, _, err := resolveIdentity(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := svc.RecordRun(ctx, orgID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusAccepted, map[string]string{"status": "recorded"})
	}
}

// UpdateProgress sets the free-text progress marker.
func UpdateProgress(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscription service unavailable"))
			return
		}

		orgID, _, err := resolveIdentity(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload progressRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := svc.UpdateProgress(ctx, orgID, payload.Marker); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "updated"})
	}
}

// Cancel stamps the caller organization's subscription as cancelled.
func Cancel(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscription service unavailable"))
			return
		}

		orgID, _, err := resolveIdentity(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := svc.Cancel(ctx, orgID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "cancelled"})
	}
}

func toSubscriptionResponse(s models.Subscription) subscriptionResponse {
	return subscriptionResponse{
		ID:            s.ID.String(),
		OrgID:         s.OrgID.String(),
		Tier:          s.Tier.String(),
		Type:          s.Type.String(),
		PaymentStatus: s.PaymentStatus.String(),
		PartnerCode:   s.PartnerCode,
		RunCount:      s.RunCount,
		Progress:      s.Progress,
		StartedAt:     s.StartedAt.UTC(),
		CancelledAt:   s.CancelledAt,
	}
}

func resolveIdentity(ctx context.Context) (uuid.UUID, uuid.UUID, error) {
	orgRaw := middleware.OrgIDFromContext(ctx)
	orgID, err := uuid.Parse(orgRaw)
	if err != nil {
		return uuid.Nil, uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "organization context required")
	}
	userID, err := uuid.Parse(middleware.UserIDFromContext(ctx))
	if err != nil {
		return uuid.Nil, uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return orgID, userID, nil
}

package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	partnersvc "github.com/harlowe-labs/scenthq-backend/internal/partners"
	paymentsvc "github.com/harlowe-labs/scenthq-backend/internal/payments"
	subscriptionsvc "github.com/harlowe-labs/scenthq-backend/internal/subscriptions"
	pkgAuth "github.com/harlowe-labs/scenthq-backend/pkg/auth"
	"github.com/harlowe-labs/scenthq-backend/pkg/config"
	"github.com/harlowe-labs/scenthq-backend/pkg/db/models"
	"github.com/harlowe-labs/scenthq-backend/pkg/enums"
	"github.com/harlowe-labs/scenthq-backend/pkg/logger"
	"github.com/harlowe-labs/scenthq-backend/pkg/pagination"
	"github.com/harlowe-labs/scenthq-backend/pkg/redis"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubPaymentService struct {
	payment *models.Payment
}

func (s stubPaymentService) CreatePayment(ctx context.Context, input paymentsvc.CreateInput) (*models.Payment, error) {
	if s.payment != nil {
		return s.payment, nil
	}
	return &models.Payment{ID: uuid.New(), OrgID: input.OrgID, Tier: input.Tier, Status: enums.PaymentStatusPending}, nil
}

func (s stubPaymentService) ProcessPayment(ctx context.Context, paymentID uuid.UUID, confirmationToken string) (*paymentsvc.ProcessResult, error) {
	return &paymentsvc.ProcessResult{Success: true}, nil
}

func (s stubPaymentService) CalculateRefundQuote(ctx context.Context, paymentID uuid.UUID) (*paymentsvc.RefundQuote, error) {
	return &paymentsvc.RefundQuote{Eligible: true, AmountCents: 100}, nil
}

func (s stubPaymentService) ProcessRefund(ctx context.Context, paymentID uuid.UUID, reason string) (*paymentsvc.RefundResult, error) {
	return &paymentsvc.RefundResult{Success: true, AmountCents: 100}, nil
}

func (s stubPaymentService) CancelPayment(ctx context.Context, paymentID uuid.UUID) error {
	return nil
}

func (s stubPaymentService) FindByID(ctx context.Context, paymentID uuid.UUID) (*models.Payment, error) {
	if s.payment != nil {
		return s.payment, nil
	}
	return &models.Payment{ID: paymentID, OrgID: uuid.New(), Tier: enums.TierBasic, Status: enums.PaymentStatusPending}, nil
}

func (s stubPaymentService) ListByOrg(ctx context.Context, orgID uuid.UUID, params pagination.Params) ([]models.Payment, *pagination.Cursor, error) {
	return nil, nil, nil
}

type stubPartnerService struct{}

func (stubPartnerService) RegisterPartner(ctx context.Context, input partnersvc.RegisterPartnerInput) (*models.Partner, error) {
	return &models.Partner{ID: uuid.New(), Name: input.Name, Status: enums.PartnerStatusActive}, nil
}

func (stubPartnerService) CreateCode(ctx context.Context, input partnersvc.CreateCodeInput) (*models.PartnerCode, error) {
	return &models.PartnerCode{Code: "SHQ-TEST", PartnerID: input.PartnerID, IsActive: true}, nil
}

func (stubPartnerService) DeactivateCode(ctx context.Context, code string) error {
	return nil
}

func (stubPartnerService) Validate(ctx context.Context, code string) (*partnersvc.CodeValidation, error) {
	return &partnersvc.CodeValidation{IsValid: false}, nil
}

func (stubPartnerService) Attribute(ctx context.Context, code, email string) (*models.ReferralAttribution, error) {
	return &models.ReferralAttribution{ID: uuid.New(), Status: enums.AttributionStatusAttributed}, nil
}

func (stubPartnerService) ProcessCommissionPayment(ctx context.Context, partnerID, paymentID uuid.UUID) (*models.CommissionCalculation, error) {
	return &models.CommissionCalculation{ID: uuid.New(), PartnerID: partnerID, PaymentID: paymentID}, nil
}

func (stubPartnerService) ListCommissions(ctx context.Context, partnerID uuid.UUID, params pagination.Params) ([]models.CommissionCalculation, *pagination.Cursor, error) {
	return nil, nil, nil
}

type stubSubscriptionService struct {
	subscription *models.Subscription
}

func (s stubSubscriptionService) Create(ctx context.Context, input subscriptionsvc.CreateInput) (*models.Subscription, error) {
	return &models.Subscription{ID: uuid.New(), OrgID: input.OrgID, Tier: input.Tier}, nil
}

func (s stubSubscriptionService) Upgrade(ctx context.Context, orgID uuid.UUID, targetTier enums.Tier) (*subscriptionsvc.UpgradeResult, error) {
	return &subscriptionsvc.UpgradeResult{Success: true, RequiresPayment: true}, nil
}

func (s stubSubscriptionService) FindByOrg(ctx context.Context, orgID uuid.UUID) (*models.Subscription, error) {
	return s.subscription, nil
}

func (s stubSubscriptionService) ValidateFeatureAccess(ctx context.Context, orgID uuid.UUID, feature string) (bool, error) {
	return false, nil
}

func (s stubSubscriptionService) RecordRun(ctx context.Context, orgID uuid.UUID) error {
	return nil
}

func (s stubSubscriptionService) UpdateProgress(ctx context.Context, orgID uuid.UUID, marker string) error {
	return nil
}

func (s stubSubscriptionService) Cancel(ctx context.Context, orgID uuid.UUID) error {
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:            "secret",
			Issuer:            "issuer",
			ExpirationMinutes: 60,
		},
	}
}

func newTestRouter(cfg *config.Config, subSvc stubSubscriptionService) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	return NewRouter(
		cfg,
		logg,
		stubPinger{},
		(*redis.Client)(nil),
		nil,
		stubPaymentService{},
		stubPartnerService{},
		subSvc,
	)
}

func buildToken(t *testing.T, cfg *config.Config, role enums.UserRole) string {
	t.Helper()
	orgID := uuid.New()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: uuid.New(),
		OrgID:  &orgID,
		Role:   role,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestHealthLiveIsPublic(t *testing.T) {
	router := newTestRouter(testConfig(), stubSubscriptionService{})
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for liveness got %d", resp.Code)
	}
}

func TestPublicPingIsPublic(t *testing.T) {
	router := newTestRouter(testConfig(), stubSubscriptionService{})
	req := httptest.NewRequest(http.MethodGet, "/api/public/ping", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for public ping got %d", resp.Code)
	}
}

func TestPrivateGroupRejectsMissingJWT(t *testing.T) {
	router := newTestRouter(testConfig(), stubSubscriptionService{})
	for _, target := range []string{
		"/api/v1/ping",
		"/api/v1/payments",
		"/api/v1/subscriptions/me",
		"/api/v1/partners/codes/SHQ-TEST",
	} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 for %s without token got %d", target, resp.Code)
		}
	}
}

func TestPrivateGroupSucceedsWithJWT(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, stubSubscriptionService{})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.RoleMember))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for private ping got %d", resp.Code)
	}
}

func TestSubscriptionFetchReturns404WhenAbsent(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, stubSubscriptionService{subscription: nil})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/subscriptions/me", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.RoleMember))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for missing subscription got %d", resp.Code)
	}
}

func TestPaymentCreateAcceptsValidBody(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, stubSubscriptionService{})
	body := `{"tier":"pro","amount_cents":14900}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.RoleMember))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 for payment create got %d", resp.Code)
	}
}

func TestPaymentCreateRejectsBadJSON(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, stubSubscriptionService{})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.RoleMember))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid payload got %d", resp.Code)
	}
}

func TestPartnerValidateCodeRoute(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, stubSubscriptionService{})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/partners/codes/SHQ-TEST", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.RoleMember))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for code validation got %d", resp.Code)
	}
}

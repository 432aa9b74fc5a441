package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tribly/growthqr-bff-go/internal/domain"
	"github.com/tribly/growthqr-bff-go/internal/handler"
	"github.com/tribly/growthqr-bff-go/internal/infra/cache"
	"github.com/tribly/growthqr-bff-go/internal/infra/observability"
	"github.com/tribly/growthqr-bff-go/internal/payment"
	"github.com/tribly/growthqr-bff-go/internal/qr"
	"github.com/tribly/growthqr-bff-go/internal/service"
	"github.com/tribly/growthqr-bff-go/internal/session"

	"go.uber.org/zap"
)

type stubBackend struct {
	record domain.BusinessRecord
}

func (s *stubBackend) ScanBusiness(ctx context.Context, qrID string) (*domain.BusinessRecord, error) {
	if qrID != s.record.ID {
		return nil, &domain.ErrNotFound{Resource: "business", ID: qrID}
	}
	rec := s.record.Clone()
	return &rec, nil
}

func (s *stubBackend) ConfigureQR(ctx context.Context, qrID string, fields map[string]any) error {
	return nil
}

func (s *stubBackend) ManualReviews(ctx context.Context, qrID string) ([]domain.ManualReview, error) {
	return nil, nil
}

type stubOverrides struct{}

func (s *stubOverrides) Get(ctx context.Context, businessID string) (*domain.OverrideRecord, error) {
	return nil, nil
}
func (s *stubOverrides) Update(ctx context.Context, businessID string, partial *domain.OverrideRecord) error {
	return nil
}
func (s *stubOverrides) Delete(ctx context.Context, businessID string) error { return nil }

type stubPlaces struct{}

func (s *stubPlaces) AutocompletePlaces(ctx context.Context, query, country string) ([]domain.PlaceSuggestion, error) {
	return []domain.PlaceSuggestion{{PlaceID: "p1", Description: "Cafe Aroma, Pune"}}, nil
}

func (s *stubPlaces) PlaceDetails(ctx context.Context, placeID string) (*domain.PlaceDetails, error) {
	return &domain.PlaceDetails{PlaceID: placeID, Name: "Cafe Aroma", Rating: 4.5, UserRatingsTotal: 120}, nil
}

type stubValidator struct{}

func (s *stubValidator) ValidateQR(ctx context.Context, qrData string) (*domain.QRValidation, error) {
	return &domain.QRValidation{IsActive: false, Code: "ABCD1234", CDNURL: "https://cdn.example/qr.png"}, nil
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	logger := zap.NewNop()
	metrics := observability.NewMetrics()

	gw, err := payment.NewSimulatedGateway()
	if err != nil {
		t.Fatalf("NewSimulatedGateway: %v", err)
	}
	payments := payment.NewManager(payment.Config{
		Gateway:          gw,
		CountdownSeconds: 900,
		TickInterval:     time.Hour,
		VerifyDelay:      func() time.Duration { return time.Hour },
		Metrics:          metrics,
		Logger:           logger,
	})

	backend := &stubBackend{record: domain.BusinessRecord{ID: "qr-1", Name: "Acme", City: "Pune"}}
	dash := service.NewDashboard(backend, &stubOverrides{}, session.NewManager(time.Hour), metrics, logger)

	onboard := service.NewOnboarding(
		&stubPlaces{}, backend, payments, 1,
		cache.New[*domain.PlaceDetails](time.Hour),
		cache.New[*domain.GBPAnalysis](time.Hour),
		time.Hour, metrics, logger,
	)

	sales := service.NewSalesTeam(nil, metrics, logger)

	hash, err := service.HashPassword("s3cret-pass")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	auth := service.NewAuth([]service.User{
		{Email: "admin@tribly.in", PasswordHash: hash, Role: service.RoleAdmin},
		{Email: "owner@acme.in", PasswordHash: hash, Role: service.RoleOwner, BusinessID: "qr-1"},
	}, "test-secret", time.Minute, time.Hour, logger)

	flows := qr.NewManager(&stubValidator{}, nil, time.Hour, logger)

	return handler.NewRouter(handler.Deps{
		Dashboard:  dash,
		Onboarding: onboard,
		SalesTeam:  sales,
		Auth:       auth,
		Payments:   payments,
		QRFlows:    flows,
		Places:     &stubPlaces{},
		Metrics:    metrics,
		Logger:     logger,
	})
}

func login(t *testing.T, router http.Handler, email string) string {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"password":"s3cret-pass"}`, email)
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("login returned %d: %s", rec.Code, rec.Body.String())
	}
	var result struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	return result.AccessToken
}

func doJSON(router http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	router := newTestRouter(t)
	rec := doJSON(router, http.MethodGet, "/healthz", "", "")
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestReadyz(t *testing.T) {
	router := newTestRouter(t)
	rec := doJSON(router, http.MethodGet, "/readyz", "", "")
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestMetrics(t *testing.T) {
	router := newTestRouter(t)
	rec := doJSON(router, http.MethodGet, "/metrics", "", "")
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	router := newTestRouter(t)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/v1/dashboard/load"},
		{http.MethodGet, "/v1/payments/plans"},
		{http.MethodGet, "/v1/sales-team/"},
		{http.MethodGet, "/v1/metrics/payments"},
	}
	for _, p := range paths {
		rec := doJSON(router, p.method, p.path, "", "")
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s without token = %d, want 401", p.method, p.path, rec.Code)
		}
	}
}

func TestRolePolicy_OwnerCannotManageSalesTeam(t *testing.T) {
	router := newTestRouter(t)
	token := login(t, router, "owner@acme.in")

	rec := doJSON(router, http.MethodGet, "/v1/sales-team/", token, "")
	if rec.Code != http.StatusForbidden {
		t.Errorf("owner sales-team access = %d, want 403", rec.Code)
	}

	// Owners still see their own dashboard.
	rec = doJSON(router, http.MethodPost, "/v1/dashboard/load", token, `{"qr_id":"qr-1"}`)
	if rec.Code != http.StatusCreated {
		t.Errorf("owner dashboard load = %d, want 201: %s", rec.Code, rec.Body.String())
	}
}

func TestDashboardLoadAndView(t *testing.T) {
	router := newTestRouter(t)
	token := login(t, router, "admin@tribly.in")

	rec := doJSON(router, http.MethodPost, "/v1/dashboard/load", token, `{"qr_id":"qr-1"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("load = %d: %s", rec.Code, rec.Body.String())
	}
	var view struct {
		SessionID string `json:"session_id"`
		Record    struct {
			Name string `json:"name"`
			City string `json:"city"`
		} `json:"record"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	if view.Record.Name != "Acme" || view.Record.City != "Pune" {
		t.Errorf("record = %+v", view.Record)
	}

	rec = doJSON(router, http.MethodGet, "/v1/dashboard/"+view.SessionID, token, "")
	if rec.Code != http.StatusOK {
		t.Errorf("view = %d", rec.Code)
	}

	rec = doJSON(router, http.MethodPost, "/v1/dashboard/load", token, `{"qr_id":"missing"}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("load unknown qr = %d, want 404", rec.Code)
	}
}

func TestPaymentPlansAndOpen(t *testing.T) {
	router := newTestRouter(t)
	token := login(t, router, "admin@tribly.in")

	rec := doJSON(router, http.MethodGet, "/v1/payments/plans", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("plans = %d", rec.Code)
	}
	var plans struct {
		Plans []domain.PaymentPlan `json:"plans"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &plans); err != nil {
		t.Fatalf("decode plans: %v", err)
	}
	if len(plans.Plans) != 2 {
		t.Fatalf("got %d plans, want 2", len(plans.Plans))
	}

	rec = doJSON(router, http.MethodPost, "/v1/payments/", token, `{"business_id":"qr-1","business_name":"Acme","plan_id":"qr-plus"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("open = %d: %s", rec.Code, rec.Body.String())
	}
	var sess domain.PaymentSession
	if err := json.Unmarshal(rec.Body.Bytes(), &sess); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if sess.Status != domain.PaymentPending || sess.Code == "" {
		t.Errorf("session = %+v", sess)
	}

	// Opening without a plan is the distinct no-plan state.
	rec = doJSON(router, http.MethodPost, "/v1/payments/", token, `{"business_id":"qr-1"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("open without plan = %d, want 422", rec.Code)
	}
}

func TestQRFlowEndToEnd(t *testing.T) {
	router := newTestRouter(t)
	token := login(t, router, "admin@tribly.in")

	rec := doJSON(router, http.MethodPost, "/v1/qr/flows/", token, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("start flow = %d", rec.Code)
	}
	var flow struct {
		ID    string `json:"id"`
		State string `json:"state"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &flow); err != nil {
		t.Fatalf("decode flow: %v", err)
	}

	rec = doJSON(router, http.MethodPost, "/v1/qr/flows/"+flow.ID+"/payload", token, `{"payload":"qr-payload"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("submit = %d: %s", rec.Code, rec.Body.String())
	}
	var after struct {
		State  string `json:"state"`
		Result *struct {
			Code string `json:"code"`
		} `json:"result"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &after); err != nil {
		t.Fatalf("decode flow: %v", err)
	}
	if after.State != string(qr.StateAccepted) {
		t.Errorf("state = %q, want accepted", after.State)
	}
	if after.Result == nil || after.Result.Code != "ABCD1234" {
		t.Errorf("result = %+v", after.Result)
	}
}

func TestOnboardingWizardFlow(t *testing.T) {
	router := newTestRouter(t)
	token := login(t, router, "admin@tribly.in")

	rec := doJSON(router, http.MethodPost, "/v1/onboarding/", token, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("start wizard = %d", rec.Code)
	}
	var wiz struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &wiz); err != nil {
		t.Fatalf("decode wizard: %v", err)
	}

	rec = doJSON(router, http.MethodGet, "/v1/onboarding/"+wiz.ID+"/search?q=cafe", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("search = %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(router, http.MethodPost, "/v1/onboarding/"+wiz.ID+"/place", token, `{"place_id":"p1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("select place = %d: %s", rec.Code, rec.Body.String())
	}
	var state struct {
		Step     string               `json:"step"`
		Analysis *domain.GBPAnalysis  `json:"analysis"`
		Place    *domain.PlaceDetails `json:"place"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if state.Analysis == nil || !state.Analysis.Simulated {
		t.Errorf("analysis = %+v", state.Analysis)
	}
	if state.Step != "plan" {
		t.Errorf("step = %q, want plan", state.Step)
	}

	rec = doJSON(router, http.MethodPost, "/v1/onboarding/"+wiz.ID+"/plan", token, `{"plan_id":"qr-basic"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("choose plan = %d: %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(router, http.MethodPost, "/v1/onboarding/"+wiz.ID+"/qr", token, `{"code":"ABCD1234"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("attach qr = %d: %s", rec.Code, rec.Body.String())
	}

	// Submission is gated on payment: no session yet, then one still pending.
	rec = doJSON(router, http.MethodPost, "/v1/onboarding/"+wiz.ID+"/submit", token, "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("submit without payment = %d, want 400", rec.Code)
	}

	rec = doJSON(router, http.MethodPost, "/v1/onboarding/"+wiz.ID+"/payment", token, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("open payment = %d: %s", rec.Code, rec.Body.String())
	}
	var paid struct {
		Payment *domain.PaymentSession `json:"payment"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &paid); err != nil {
		t.Fatalf("decode payment state: %v", err)
	}
	if paid.Payment == nil || paid.Payment.Status != domain.PaymentPending {
		t.Fatalf("payment = %+v, want a pending session", paid.Payment)
	}

	rec = doJSON(router, http.MethodPost, "/v1/onboarding/"+wiz.ID+"/submit", token, "")
	if rec.Code != http.StatusConflict {
		t.Errorf("submit while payment pending = %d, want 409", rec.Code)
	}
}

func TestLocationsAutocomplete(t *testing.T) {
	router := newTestRouter(t)
	token := login(t, router, "admin@tribly.in")

	rec := doJSON(router, http.MethodGet, "/v1/locations/autocomplete?q=cafe", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("autocomplete = %d", rec.Code)
	}

	rec = doJSON(router, http.MethodGet, "/v1/locations/autocomplete", token, "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("autocomplete without q = %d, want 400", rec.Code)
	}
}

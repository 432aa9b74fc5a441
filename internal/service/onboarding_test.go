package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tribly/growthqr-bff-go/internal/domain"
	"github.com/tribly/growthqr-bff-go/internal/infra/cache"
	"github.com/tribly/growthqr-bff-go/internal/infra/observability"
	"github.com/tribly/growthqr-bff-go/internal/payment"

	"go.uber.org/zap"
)

type fakePlacesGateway struct {
	mu          sync.Mutex
	suggestions map[string][]domain.PlaceSuggestion
	details     map[string]*domain.PlaceDetails
	block       chan struct{}
}

func (f *fakePlacesGateway) AutocompletePlaces(_ context.Context, query, _ string) ([]domain.PlaceSuggestion, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.suggestions[query], nil
}

func (f *fakePlacesGateway) PlaceDetails(_ context.Context, placeID string) (*domain.PlaceDetails, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.details[placeID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "place", ID: placeID}
	}
	return d, nil
}

// newTestPayments builds a payment manager that resolves almost
// immediately with the given outcome and never expires on its own.
func newTestPayments(t *testing.T, outcome bool) *payment.Manager {
	t.Helper()
	gw, err := payment.NewSimulatedGateway()
	if err != nil {
		t.Fatalf("gateway: %v", err)
	}
	return payment.NewManager(payment.Config{
		Gateway:      gw,
		TickInterval: time.Hour,
		VerifyDelay:  func() time.Duration { return time.Millisecond },
		Outcome:      func() bool { return outcome },
		Logger:       zap.NewNop(),
	})
}

func newTestOnboarding(t *testing.T, places *fakePlacesGateway, backend *fakeBusinessGateway, payments *payment.Manager) *Onboarding {
	t.Helper()
	return NewOnboarding(
		places,
		backend,
		payments,
		1,
		cache.New[*domain.PlaceDetails](time.Minute),
		cache.New[*domain.GBPAnalysis](time.Minute),
		time.Minute,
		observability.NewMetrics(),
		zap.NewNop(),
	)
}

// waitForPaymentSuccess polls the wizard state until its payment session
// resolves successfully.
func waitForPaymentSuccess(t *testing.T, o *Onboarding, wizardID string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		state, err := o.State(context.Background(), wizardID)
		if err != nil {
			t.Fatalf("State: %v", err)
		}
		if state.Payment != nil && state.Payment.Status == domain.PaymentSuccess {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("payment never resolved successfully")
}

func TestSearch_StaleQueryDiscarded(t *testing.T) {
	block := make(chan struct{})
	places := &fakePlacesGateway{
		suggestions: map[string][]domain.PlaceSuggestion{
			"cafe":       {{PlaceID: "p-old", MainText: "Cafe"}},
			"cafe aroma": {{PlaceID: "p-new", MainText: "Cafe Aroma"}},
		},
		block: block,
	}
	o := newTestOnboarding(t, places, &fakeBusinessGateway{}, newTestPayments(t, true))
	ctx := context.Background()
	w := o.Start(ctx)

	type result struct {
		suggestions []domain.PlaceSuggestion
		err         error
	}
	firstDone := make(chan result, 1)
	go func() {
		s, err := o.Search(ctx, w.ID, "cafe", "in")
		firstDone <- result{s, err}
	}()

	// Let the first query reach the gateway, then supersede it.
	time.Sleep(20 * time.Millisecond)
	secondDone := make(chan result, 1)
	go func() {
		s, err := o.Search(ctx, w.ID, "cafe aroma", "in")
		secondDone <- result{s, err}
	}()
	time.Sleep(20 * time.Millisecond)
	close(block)

	first := <-firstDone
	var stale *domain.ErrStaleQuery
	if !errors.As(first.err, &stale) {
		t.Errorf("superseded query returned (%v, %v), want ErrStaleQuery", first.suggestions, first.err)
	}

	second := <-secondDone
	if second.err != nil {
		t.Fatalf("latest query failed: %v", second.err)
	}
	if len(second.suggestions) != 1 || second.suggestions[0].PlaceID != "p-new" {
		t.Errorf("latest query suggestions = %+v", second.suggestions)
	}
}

func TestSelectPlace_SeedsAnalysisFromDetails(t *testing.T) {
	places := &fakePlacesGateway{details: map[string]*domain.PlaceDetails{
		"p-1": {PlaceID: "p-1", Name: "Cafe Aroma", Rating: 4.7, UserRatingsTotal: 300},
	}}
	o := newTestOnboarding(t, places, &fakeBusinessGateway{}, newTestPayments(t, true))
	ctx := context.Background()
	w := o.Start(ctx)

	state, err := o.SelectPlace(ctx, w.ID, "p-1", "")
	if err != nil {
		t.Fatalf("SelectPlace: %v", err)
	}
	if state.Step != StepPlan {
		t.Errorf("Step = %q, want %q", state.Step, StepPlan)
	}
	if state.Analysis == nil || !state.Analysis.Simulated {
		t.Fatal("expected a simulated analysis")
	}
	if state.Analysis.Metrics.Rating != 4.7 {
		t.Errorf("analysis rating = %v, want seeded 4.7", state.Analysis.Metrics.Rating)
	}
	if state.Analysis.BusinessName != "Cafe Aroma" {
		t.Errorf("BusinessName = %q", state.Analysis.BusinessName)
	}
}

func TestChoosePlan_RejectsUnknownTier(t *testing.T) {
	o := newTestOnboarding(t, &fakePlacesGateway{}, &fakeBusinessGateway{}, newTestPayments(t, true))
	ctx := context.Background()
	w := o.Start(ctx)

	if _, err := o.ChoosePlan(ctx, w.ID, "qr-enterprise"); err == nil {
		t.Fatal("expected an unknown plan to be rejected")
	}

	state, err := o.ChoosePlan(ctx, w.ID, domain.PlanQRPlus)
	if err != nil {
		t.Fatalf("ChoosePlan: %v", err)
	}
	if state.Plan == nil || state.Plan.Name != "QR Plus" {
		t.Errorf("Plan = %+v", state.Plan)
	}
	if state.Step != StepQR {
		t.Errorf("Step = %q, want %q", state.Step, StepQR)
	}
}

func TestSubmit_CarriesQRCodeVerbatim(t *testing.T) {
	backend := &fakeBusinessGateway{}
	places := &fakePlacesGateway{details: map[string]*domain.PlaceDetails{
		"p-1": {PlaceID: "p-1", Name: "Cafe Aroma", Rating: 4.2},
	}}
	o := newTestOnboarding(t, places, backend, newTestPayments(t, true))
	ctx := context.Background()
	w := o.Start(ctx)

	if _, err := o.SelectPlace(ctx, w.ID, "p-1", ""); err != nil {
		t.Fatalf("SelectPlace: %v", err)
	}
	if _, err := o.ChoosePlan(ctx, w.ID, domain.PlanQRBasic); err != nil {
		t.Fatalf("ChoosePlan: %v", err)
	}
	state, err := o.AttachQR(ctx, w.ID, domain.QRAssociation{Code: "ABCD1234", ImageURL: "https://cdn.example.com/a.png"})
	if err != nil {
		t.Fatalf("AttachQR: %v", err)
	}
	if state.Step != StepPayment {
		t.Errorf("Step = %q, want %q", state.Step, StepPayment)
	}
	if _, err := o.SetFields(ctx, w.ID, map[string]any{"phone": "+911234567890"}); err != nil {
		t.Fatalf("SetFields: %v", err)
	}
	if _, err := o.OpenPayment(ctx, w.ID); err != nil {
		t.Fatalf("OpenPayment: %v", err)
	}
	waitForPaymentSuccess(t, o, w.ID)

	state, err = o.Submit(ctx, w.ID)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if state.Step != StepDone {
		t.Errorf("Step = %q, want %q", state.Step, StepDone)
	}

	if len(backend.configured) != 1 {
		t.Fatalf("backend received %d writes, want 1", len(backend.configured))
	}
	saved := backend.configured[0]
	if saved["qr_id"] != "ABCD1234" {
		t.Errorf("qr_id = %v, want the validated code carried verbatim", saved["qr_id"])
	}
	if saved["payment_plan"] != string(domain.PlanQRBasic) {
		t.Errorf("payment_plan = %v", saved["payment_plan"])
	}
	if saved["payment_status"] != "active" {
		t.Errorf("payment_status = %v, want active", saved["payment_status"])
	}
	expires, ok := saved["payment_expires_at"].(string)
	if !ok || expires == "" {
		t.Fatalf("payment_expires_at = %v, want RFC3339 timestamp", saved["payment_expires_at"])
	}
	at, err := time.Parse(time.RFC3339, expires)
	if err != nil {
		t.Fatalf("payment_expires_at not RFC3339: %v", err)
	}
	// Paid through one year from now, give or take the test run.
	if d := time.Until(at); d < 364*24*time.Hour || d > 367*24*time.Hour {
		t.Errorf("payment_expires_at = %s, want about a year out", expires)
	}
	if saved["google_place_id"] != "p-1" {
		t.Errorf("google_place_id = %v", saved["google_place_id"])
	}
	if saved["phone"] != "+911234567890" {
		t.Errorf("phone = %v", saved["phone"])
	}
}

func TestSubmit_RequiresQRAndPlan(t *testing.T) {
	o := newTestOnboarding(t, &fakePlacesGateway{}, &fakeBusinessGateway{}, newTestPayments(t, true))
	ctx := context.Background()
	w := o.Start(ctx)

	if _, err := o.Submit(ctx, w.ID); err == nil {
		t.Fatal("expected submit without a QR code to fail")
	}

	if _, err := o.AttachQR(ctx, w.ID, domain.QRAssociation{Code: "ABCD1234"}); err != nil {
		t.Fatalf("AttachQR: %v", err)
	}
	_, err := o.Submit(ctx, w.ID)
	var noPlan *domain.ErrNoPlan
	if !errors.As(err, &noPlan) {
		t.Fatalf("err = %v, want ErrNoPlan", err)
	}
}

func TestSubmit_GatedOnPaymentSuccess(t *testing.T) {
	backend := &fakeBusinessGateway{}
	// Verification stays in flight, so the session never leaves pending.
	gw, err := payment.NewSimulatedGateway()
	if err != nil {
		t.Fatalf("gateway: %v", err)
	}
	payments := payment.NewManager(payment.Config{
		Gateway:      gw,
		TickInterval: time.Hour,
		VerifyDelay:  func() time.Duration { return time.Hour },
		Logger:       zap.NewNop(),
	})
	o := newTestOnboarding(t, &fakePlacesGateway{}, backend, payments)
	ctx := context.Background()
	w := o.Start(ctx)

	if _, err := o.ChoosePlan(ctx, w.ID, domain.PlanQRBasic); err != nil {
		t.Fatalf("ChoosePlan: %v", err)
	}
	if _, err := o.AttachQR(ctx, w.ID, domain.QRAssociation{Code: "ABCD1234"}); err != nil {
		t.Fatalf("AttachQR: %v", err)
	}

	_, err = o.Submit(ctx, w.ID)
	var validation *domain.ErrValidation
	if !errors.As(err, &validation) {
		t.Fatalf("submit before opening payment: err = %v, want ErrValidation", err)
	}

	state, err := o.OpenPayment(ctx, w.ID)
	if err != nil {
		t.Fatalf("OpenPayment: %v", err)
	}
	if state.Payment == nil || state.Payment.Status != domain.PaymentPending {
		t.Fatalf("payment = %+v, want a pending session", state.Payment)
	}

	_, err = o.Submit(ctx, w.ID)
	var pending *domain.ErrPaymentPending
	if !errors.As(err, &pending) {
		t.Fatalf("submit while pending: err = %v, want ErrPaymentPending", err)
	}
	if len(backend.configured) != 0 {
		t.Fatalf("backend received %d writes before payment resolved", len(backend.configured))
	}
}

func TestOpenPayment_ReusesLiveSession(t *testing.T) {
	payments := newTestPayments(t, true)
	o := newTestOnboarding(t, &fakePlacesGateway{}, &fakeBusinessGateway{}, payments)
	ctx := context.Background()
	w := o.Start(ctx)

	if _, err := o.ChoosePlan(ctx, w.ID, domain.PlanQRPlus); err != nil {
		t.Fatalf("ChoosePlan: %v", err)
	}
	if _, err := o.AttachQR(ctx, w.ID, domain.QRAssociation{Code: "WXYZ9876"}); err != nil {
		t.Fatalf("AttachQR: %v", err)
	}

	first, err := o.OpenPayment(ctx, w.ID)
	if err != nil {
		t.Fatalf("OpenPayment: %v", err)
	}
	waitForPaymentSuccess(t, o, w.ID)

	second, err := o.OpenPayment(ctx, w.ID)
	if err != nil {
		t.Fatalf("OpenPayment again: %v", err)
	}
	if second.Payment == nil || second.Payment.ID != first.Payment.ID {
		t.Errorf("second open replaced the session: %+v vs %+v", second.Payment, first.Payment)
	}
	if second.Payment.BusinessID != "WXYZ9876" {
		t.Errorf("payment keyed by %q, want the QR code", second.Payment.BusinessID)
	}
	if second.Step != StepSubmit {
		t.Errorf("Step = %q, want %q once payment succeeded", second.Step, StepSubmit)
	}
}

func TestState_UnknownWizard(t *testing.T) {
	o := newTestOnboarding(t, &fakePlacesGateway{}, &fakeBusinessGateway{}, newTestPayments(t, true))
	if _, err := o.State(context.Background(), "nope"); err == nil {
		t.Fatal("expected an error for an unknown wizard")
	}
}

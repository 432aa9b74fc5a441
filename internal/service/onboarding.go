package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tribly/growthqr-bff-go/internal/domain"
	"github.com/tribly/growthqr-bff-go/internal/gbp"
	"github.com/tribly/growthqr-bff-go/internal/infra/observability"
	"github.com/tribly/growthqr-bff-go/internal/payment"
	"github.com/tribly/growthqr-bff-go/internal/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var onboardingTracer = otel.Tracer("service/onboarding")

// WizardStep is the sales onboarding wizard position.
type WizardStep string

const (
	StepSearch  WizardStep = "search"
	StepPlan    WizardStep = "plan"
	StepQR      WizardStep = "qr"
	StepPayment WizardStep = "payment"
	StepSubmit  WizardStep = "submit"
	StepDone    WizardStep = "done"
)

// WizardState is the serializable view of one onboarding run.
type WizardState struct {
	ID       string                 `json:"id"`
	Step     WizardStep             `json:"step"`
	Place    *domain.PlaceDetails   `json:"place,omitempty"`
	Analysis *domain.GBPAnalysis    `json:"analysis,omitempty"`
	Plan     *domain.PaymentPlan    `json:"plan,omitempty"`
	QR       *domain.QRAssociation  `json:"qr,omitempty"`
	Payment  *domain.PaymentSession `json:"payment,omitempty"`
}

type wizard struct {
	mu        sync.Mutex
	id        string
	step      WizardStep
	searchSeq uint64
	place     *domain.PlaceDetails
	analysis  *domain.GBPAnalysis
	plan      *domain.PaymentPlan
	qr        *domain.QRAssociation
	paymentID string
	fields    map[string]any
	lastTouch time.Time
}

func (w *wizard) state() *WizardState {
	return &WizardState{
		ID:       w.id,
		Step:     w.step,
		Place:    w.place,
		Analysis: w.analysis,
		Plan:     w.plan,
		QR:       w.qr,
	}
}

// Onboarding drives the sales-team onboarding wizard: business search,
// profile analysis, plan choice, QR association and final submission.
type Onboarding struct {
	places        port.PlacesGateway
	backend       port.BusinessGateway
	payments      *payment.Manager
	analysisSeed  int64
	detailsCache  port.Cache[*domain.PlaceDetails]
	analysisCache port.Cache[*domain.GBPAnalysis]
	metrics       *observability.Metrics
	logger        *zap.Logger

	mu      sync.Mutex
	wizards map[string]*wizard
	ttl     time.Duration

	stopOnce sync.Once
	done     chan struct{}
}

// NewOnboarding creates the onboarding service. A zero analysisSeed
// makes every analysis draw a fresh seed from the clock.
func NewOnboarding(
	places port.PlacesGateway,
	backend port.BusinessGateway,
	payments *payment.Manager,
	analysisSeed int64,
	detailsCache port.Cache[*domain.PlaceDetails],
	analysisCache port.Cache[*domain.GBPAnalysis],
	ttl time.Duration,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Onboarding {
	o := &Onboarding{
		places:        places,
		backend:       backend,
		payments:      payments,
		analysisSeed:  analysisSeed,
		detailsCache:  detailsCache,
		analysisCache: analysisCache,
		metrics:       metrics,
		logger:        logger,
		wizards:       make(map[string]*wizard),
		ttl:           ttl,
		done:          make(chan struct{}),
	}
	go o.reap()
	return o
}

// Stop ends the background reaper.
func (o *Onboarding) Stop() {
	o.stopOnce.Do(func() { close(o.done) })
}

// stateOf snapshots a wizard, refreshing its payment session from the
// payment manager so the caller always sees the live countdown. Once
// the payment resolves successfully the reported step advances to
// submit.
func (o *Onboarding) stateOf(w *wizard) *WizardState {
	w.mu.Lock()
	st := w.state()
	paymentID := w.paymentID
	w.mu.Unlock()

	if paymentID != "" {
		if sess, err := o.payments.Get(paymentID); err == nil {
			st.Payment = &sess
			if st.Step == StepPayment && sess.Status == domain.PaymentSuccess {
				st.Step = StepSubmit
			}
		}
	}
	return st
}

// Start opens a new wizard at the search step.
func (o *Onboarding) Start(ctx context.Context) *WizardState {
	_, span := onboardingTracer.Start(ctx, "Onboarding.Start")
	defer span.End()

	w := &wizard{
		id:        uuid.New().String(),
		step:      StepSearch,
		fields:    make(map[string]any),
		lastTouch: time.Now(),
	}
	o.mu.Lock()
	o.wizards[w.id] = w
	o.mu.Unlock()

	o.logger.Info("onboarding started", zap.String("wizard_id", w.id))
	return o.stateOf(w)
}

// State returns the current wizard state.
func (o *Onboarding) State(ctx context.Context, wizardID string) (*WizardState, error) {
	w, err := o.get(wizardID)
	if err != nil {
		return nil, err
	}
	return o.stateOf(w), nil
}

// Search runs a business-name autocomplete query. Each call supersedes
// the previous one for the same wizard: if a newer query starts while
// this one is in flight the result is discarded with ErrStaleQuery, so
// only the latest query's suggestions ever reach the caller.
func (o *Onboarding) Search(ctx context.Context, wizardID, query, country string) ([]domain.PlaceSuggestion, error) {
	ctx, span := onboardingTracer.Start(ctx, "Onboarding.Search")
	defer span.End()
	span.SetAttributes(attribute.String("query", query))

	w, err := o.get(wizardID)
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	w.searchSeq++
	seq := w.searchSeq
	w.mu.Unlock()

	suggestions, err := o.places.AutocompletePlaces(ctx, query, country)

	w.mu.Lock()
	stale := w.searchSeq != seq
	w.mu.Unlock()
	if stale {
		return nil, &domain.ErrStaleQuery{Query: query}
	}
	if err != nil {
		o.metrics.IncrExternalError("places")
		return nil, fmt.Errorf("autocomplete: %w", err)
	}
	return suggestions, nil
}

// SelectPlace resolves a suggestion to full details and runs the profile
// analysis seeded by them. Passing an empty placeID skips place data and
// produces a purely synthetic analysis for a manually entered business.
func (o *Onboarding) SelectPlace(ctx context.Context, wizardID, placeID, businessName string) (*WizardState, error) {
	ctx, span := onboardingTracer.Start(ctx, "Onboarding.SelectPlace")
	defer span.End()
	span.SetAttributes(attribute.String("place.id", placeID))

	w, err := o.get(wizardID)
	if err != nil {
		return nil, err
	}

	var details *domain.PlaceDetails
	if placeID != "" {
		details, err = o.placeDetails(ctx, placeID)
		if err != nil {
			return nil, err
		}
		if businessName == "" {
			businessName = details.Name
		}
	}

	analysis := o.analyze(businessName, placeID, details)

	w.mu.Lock()
	w.place = details
	w.analysis = analysis
	w.step = StepPlan
	w.mu.Unlock()
	return o.stateOf(w), nil
}

// ChoosePlan records the subscription tier for this onboarding.
func (o *Onboarding) ChoosePlan(ctx context.Context, wizardID string, planID domain.PaymentPlanID) (*WizardState, error) {
	_, span := onboardingTracer.Start(ctx, "Onboarding.ChoosePlan")
	defer span.End()

	w, err := o.get(wizardID)
	if err != nil {
		return nil, err
	}

	plan, ok := payment.PlanByID(planID)
	if !ok {
		return nil, &domain.ErrValidation{Field: "plan", Message: fmt.Sprintf("unknown plan %q", planID)}
	}

	w.mu.Lock()
	w.plan = &plan
	w.step = StepQR
	w.mu.Unlock()
	return o.stateOf(w), nil
}

// AttachQR binds an accepted QR association to the wizard. The code is
// carried through to submission exactly as validated.
func (o *Onboarding) AttachQR(ctx context.Context, wizardID string, assoc domain.QRAssociation) (*WizardState, error) {
	_, span := onboardingTracer.Start(ctx, "Onboarding.AttachQR")
	defer span.End()
	span.SetAttributes(attribute.String("qr.code", assoc.Code))

	w, err := o.get(wizardID)
	if err != nil {
		return nil, err
	}
	if assoc.Code == "" {
		return nil, &domain.ErrValidation{Field: "qr", Message: "missing QR code"}
	}

	w.mu.Lock()
	w.qr = &assoc
	w.step = StepPayment
	w.mu.Unlock()
	return o.stateOf(w), nil
}

// OpenPayment opens the payment session for the chosen plan, keyed by
// the associated QR code. A live session is reused; a failed or expired
// one is replaced with a fresh session so the wizard can retry in place.
func (o *Onboarding) OpenPayment(ctx context.Context, wizardID string) (*WizardState, error) {
	_, span := onboardingTracer.Start(ctx, "Onboarding.OpenPayment")
	defer span.End()

	w, err := o.get(wizardID)
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	if w.plan == nil {
		w.mu.Unlock()
		return nil, &domain.ErrNoPlan{}
	}
	if w.qr == nil {
		w.mu.Unlock()
		return nil, &domain.ErrValidation{Field: "qr", Message: "no QR code associated"}
	}
	if w.paymentID != "" {
		if sess, err := o.payments.Get(w.paymentID); err == nil &&
			(sess.Status == domain.PaymentPending || sess.Status == domain.PaymentSuccess) {
			w.mu.Unlock()
			return o.stateOf(w), nil
		}
	}
	businessID := w.qr.Code
	businessName, _ := w.fields["business_name"].(string)
	if businessName == "" && w.place != nil {
		businessName = w.place.Name
	}
	planID := w.plan.ID
	w.mu.Unlock()

	sess, err := o.payments.Open(businessID, businessName, planID)
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	w.paymentID = sess.ID
	w.step = StepPayment
	w.mu.Unlock()

	o.logger.Info("onboarding payment opened",
		zap.String("wizard_id", wizardID),
		zap.String("payment_id", sess.ID),
		zap.String("plan", string(planID)),
	)
	return o.stateOf(w), nil
}

// SetFields stores business-info form fields for submission. Values are
// kept verbatim, including explicit nulls.
func (o *Onboarding) SetFields(ctx context.Context, wizardID string, fields map[string]any) (*WizardState, error) {
	_, span := onboardingTracer.Start(ctx, "Onboarding.SetFields")
	defer span.End()

	w, err := o.get(wizardID)
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	for k, v := range fields {
		w.fields[k] = v
	}
	w.mu.Unlock()
	return o.stateOf(w), nil
}

// Submit pushes the onboarded business to the backend, keyed by the
// validated QR code. Submission requires a successful payment: the
// record goes out with the payment marked active and expiring when the
// paid year runs out.
func (o *Onboarding) Submit(ctx context.Context, wizardID string) (*WizardState, error) {
	ctx, span := onboardingTracer.Start(ctx, "Onboarding.Submit")
	defer span.End()

	w, err := o.get(wizardID)
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	if w.qr == nil {
		w.mu.Unlock()
		return nil, &domain.ErrValidation{Field: "qr", Message: "no QR code associated"}
	}
	if w.plan == nil {
		w.mu.Unlock()
		return nil, &domain.ErrNoPlan{}
	}
	if w.paymentID == "" {
		w.mu.Unlock()
		return nil, &domain.ErrValidation{Field: "payment", Message: "payment not started"}
	}
	paymentID := w.paymentID
	w.mu.Unlock()

	sess, err := o.payments.Get(paymentID)
	if err != nil {
		return nil, err
	}
	switch sess.Status {
	case domain.PaymentSuccess:
	case domain.PaymentPending:
		return nil, &domain.ErrPaymentPending{SessionID: sess.ID}
	default:
		return nil, &domain.ErrValidation{
			Field: "payment", Message: fmt.Sprintf("payment %s, retry before submitting", sess.Status),
		}
	}

	w.mu.Lock()
	fields := make(map[string]any, len(w.fields)+6)
	for k, v := range w.fields {
		fields[k] = v
	}
	fields["payment_plan"] = string(w.plan.ID)
	fields["payment_status"] = "active"
	if sess.PaidUntil != nil {
		fields["payment_expires_at"] = sess.PaidUntil.UTC().Format(time.RFC3339)
	}
	if w.place != nil {
		fields["google_place_id"] = w.place.PlaceID
		if _, ok := fields["business_name"]; !ok && w.place.Name != "" {
			fields["business_name"] = w.place.Name
		}
	}
	code := w.qr.Code
	w.mu.Unlock()

	if err := o.backend.ConfigureQR(ctx, code, fields); err != nil {
		o.logger.Error("onboarding submission failed",
			zap.String("wizard_id", wizardID),
			zap.String("qr_code", code),
			zap.Error(err),
		)
		o.metrics.IncrExternalError("backend")
		return nil, fmt.Errorf("submit onboarding: %w", err)
	}

	w.mu.Lock()
	w.step = StepDone
	w.mu.Unlock()

	o.logger.Info("onboarding submitted",
		zap.String("wizard_id", wizardID),
		zap.String("qr_code", code),
	)
	return o.stateOf(w), nil
}

// Analyze runs a profile analysis outside of any wizard, for the
// standalone analysis endpoint. When placeID is set the place details
// seed the analysis.
func (o *Onboarding) Analyze(ctx context.Context, placeID, businessName string) (*domain.GBPAnalysis, error) {
	ctx, span := onboardingTracer.Start(ctx, "Onboarding.Analyze")
	defer span.End()
	span.SetAttributes(attribute.String("place.id", placeID))

	var details *domain.PlaceDetails
	if placeID != "" {
		var err error
		details, err = o.placeDetails(ctx, placeID)
		if err != nil {
			return nil, err
		}
		if businessName == "" {
			businessName = details.Name
		}
	}
	if businessName == "" {
		return nil, &domain.ErrValidation{Field: "business_name", Message: "business_name or place_id is required"}
	}
	return o.analyze(businessName, placeID, details), nil
}

// Close drops a wizard.
func (o *Onboarding) Close(wizardID string) {
	o.mu.Lock()
	delete(o.wizards, wizardID)
	o.mu.Unlock()
}

func (o *Onboarding) get(wizardID string) (*wizard, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	w, ok := o.wizards[wizardID]
	if !ok {
		return nil, &domain.ErrSessionExpired{SessionID: wizardID}
	}
	w.mu.Lock()
	w.lastTouch = time.Now()
	w.mu.Unlock()
	return w, nil
}

func (o *Onboarding) placeDetails(ctx context.Context, placeID string) (*domain.PlaceDetails, error) {
	cacheKey := fmt.Sprintf("place:%s", placeID)
	if cached, ok := o.detailsCache.Get(cacheKey); ok {
		o.metrics.IncrCacheHit("place_details")
		return cached, nil
	}
	o.metrics.IncrCacheMiss("place_details")

	details, err := o.places.PlaceDetails(ctx, placeID)
	if err != nil {
		o.metrics.IncrExternalError("places")
		return nil, fmt.Errorf("place details: %w", err)
	}
	o.detailsCache.Set(cacheKey, details)
	return details, nil
}

func (o *Onboarding) analyze(businessName, placeID string, details *domain.PlaceDetails) *domain.GBPAnalysis {
	cacheKey := fmt.Sprintf("analysis:%s:%s", placeID, businessName)
	if cached, ok := o.analysisCache.Get(cacheKey); ok {
		o.metrics.IncrCacheHit("analysis")
		return cached
	}
	o.metrics.IncrCacheMiss("analysis")

	seed := o.analysisSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	analysis := gbp.NewAnalyzer(seed).Analyze(businessName, details)
	o.analysisCache.Set(cacheKey, analysis)
	return analysis
}

func (o *Onboarding) reap() {
	ticker := time.NewTicker(o.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-o.done:
			return
		case <-ticker.C:
		}
		cutoff := time.Now().Add(-o.ttl)
		o.mu.Lock()
		for id, w := range o.wizards {
			w.mu.Lock()
			idle := w.lastTouch.Before(cutoff)
			w.mu.Unlock()
			if idle {
				delete(o.wizards, id)
			}
		}
		o.mu.Unlock()
	}
}

// Package payment drives simulated payment sessions: a per-second
// countdown racing a randomized verification outcome, with expiry always
// taking precedence. Sessions are ephemeral and never persisted.
package payment

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/tribly/growthqr-bff-go/internal/domain"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultCountdownSeconds is the full payment window.
const DefaultCountdownSeconds = 900

var plans = map[domain.PaymentPlanID]domain.PaymentPlan{
	domain.PlanQRBasic: {ID: domain.PlanQRBasic, Name: "QR Basic", Price: 4999},
	domain.PlanQRPlus:  {ID: domain.PlanQRPlus, Name: "QR Plus", Price: 7999},
}

// Plans returns the fixed subscription tiers.
func Plans() []domain.PaymentPlan {
	return []domain.PaymentPlan{plans[domain.PlanQRBasic], plans[domain.PlanQRPlus]}
}

// PlanByID resolves a plan id to its fixed tier.
func PlanByID(id domain.PaymentPlanID) (domain.PaymentPlan, bool) {
	p, ok := plans[id]
	return p, ok
}

// Recorder receives payment outcome counts. Satisfied by the
// observability metrics.
type Recorder interface {
	IncrPayment(status string)
}

// Config tunes the session state machine. Zero values fall back to
// production defaults; tests shrink the intervals.
type Config struct {
	Gateway          Gateway
	CountdownSeconds int
	TickInterval     time.Duration
	// VerifyDelay returns how long the simulated verification takes.
	VerifyDelay func() time.Duration
	// Outcome returns whether the simulated verification succeeds.
	Outcome func() bool
	// Linger delays full teardown after closing a resolved session so a
	// success state stays visible briefly.
	Linger  time.Duration
	Logger  *zap.Logger
	Metrics Recorder
}

type state struct {
	sess    domain.PaymentSession
	receipt *domain.PaymentReceipt
	stop    chan struct{}
	verify  *time.Timer
}

// Manager owns all live payment sessions.
type Manager struct {
	cfg Config

	mu       sync.Mutex
	sessions map[string]*state
}

// NewManager creates a payment session manager.
func NewManager(cfg Config) *Manager {
	if cfg.CountdownSeconds <= 0 {
		cfg.CountdownSeconds = DefaultCountdownSeconds
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	if cfg.VerifyDelay == nil {
		cfg.VerifyDelay = func() time.Duration {
			return 5*time.Second + time.Duration(rand.Int63n(int64(5*time.Second)))
		}
	}
	if cfg.Outcome == nil {
		cfg.Outcome = func() bool { return rand.Float64() < 0.9 }
	}
	if cfg.Linger <= 0 {
		cfg.Linger = 2 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Manager{
		cfg:      cfg,
		sessions: make(map[string]*state),
	}
}

// Open creates a fresh pending session for the business and plan, arming
// the countdown and the simulated verification. An unknown or empty plan
// is the distinct no-plan state. If code generation fails the session is
// created already failed.
func (m *Manager) Open(businessID, businessName string, planID domain.PaymentPlanID) (domain.PaymentSession, error) {
	plan, ok := plans[planID]
	if !ok {
		return domain.PaymentSession{}, &domain.ErrNoPlan{}
	}

	st := &state{
		sess: domain.PaymentSession{
			ID:               uuid.New().String(),
			BusinessID:       businessID,
			BusinessName:     businessName,
			Plan:             plan,
			Status:           domain.PaymentPending,
			RemainingSeconds: m.cfg.CountdownSeconds,
		},
		stop: make(chan struct{}),
	}

	uri, code, err := m.cfg.Gateway.GenerateCode(plan, businessID, businessName)
	if err != nil {
		m.cfg.Logger.Warn("payment: code generation failed",
			zap.String("business_id", businessID),
			zap.Error(err),
		)
		st.sess.Status = domain.PaymentFailed
		m.record("failed")
	} else {
		st.sess.PaymentURI = uri
		st.sess.Code = code
	}

	m.mu.Lock()
	m.sessions[st.sess.ID] = st
	m.mu.Unlock()

	if st.sess.Status == domain.PaymentPending {
		m.arm(st)
	}

	m.cfg.Logger.Info("payment: session opened",
		zap.String("session_id", st.sess.ID),
		zap.String("business_id", businessID),
		zap.String("plan", string(planID)),
		zap.String("status", string(st.sess.Status)),
	)
	return st.sess, nil
}

// arm starts the countdown ticker and schedules the verification outcome.
func (m *Manager) arm(st *state) {
	id := st.sess.ID

	st.verify = time.AfterFunc(m.cfg.VerifyDelay(), func() {
		m.resolve(id, m.cfg.Outcome())
	})

	go func() {
		ticker := time.NewTicker(m.cfg.TickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if !m.tick(id) {
					return
				}
			case <-st.stop:
				return
			}
		}
	}()
}

// tick decrements the countdown while pending. Reaching zero transitions
// to expired unconditionally; expiry beats any in-flight verification.
func (m *Manager) tick(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.sessions[id]
	if !ok || st.sess.Status != domain.PaymentPending {
		return false
	}

	st.sess.RemainingSeconds--
	if st.sess.RemainingSeconds <= 0 {
		st.sess.RemainingSeconds = 0
		st.sess.Status = domain.PaymentExpired
		m.teardownLocked(st)
		m.record("expired")
		m.cfg.Logger.Info("payment: session expired", zap.String("session_id", id))
		return false
	}
	return true
}

// resolve applies the delayed verification outcome, but only if the
// session is still pending with time on the clock. A session that already
// expired or was closed is never overwritten.
func (m *Manager) resolve(id string, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.sessions[id]
	if !ok || st.sess.Status != domain.PaymentPending || st.sess.RemainingSeconds <= 0 {
		return
	}

	m.teardownLocked(st)
	if !success {
		st.sess.Status = domain.PaymentFailed
		m.record("failed")
		m.cfg.Logger.Info("payment: verification failed", zap.String("session_id", id))
		return
	}

	now := time.Now()
	paidUntil := now.AddDate(1, 0, 0)
	st.sess.Status = domain.PaymentSuccess
	st.sess.TransactionID = uuid.New().String()
	st.sess.SucceededAt = &now
	st.sess.PaidUntil = &paidUntil
	st.receipt = buildReceipt(st.sess, now)
	m.record("success")

	m.cfg.Logger.Info("payment: verification succeeded",
		zap.String("session_id", id),
		zap.String("transaction_id", st.sess.TransactionID),
	)
}

func buildReceipt(sess domain.PaymentSession, at time.Time) *domain.PaymentReceipt {
	text := fmt.Sprintf(
		"Payment received\nBusiness: %s (%s)\nTransaction: %s\nDate: %s\nPlan: %s\nInvoice value: %.2f",
		sess.BusinessName, sess.BusinessID,
		sess.TransactionID,
		at.Format(time.RFC3339),
		sess.Plan.Name,
		sess.Plan.Price,
	)
	return &domain.PaymentReceipt{
		BusinessID:    sess.BusinessID,
		BusinessName:  sess.BusinessName,
		TransactionID: sess.TransactionID,
		Timestamp:     at,
		PlanName:      sess.Plan.Name,
		InvoiceValue:  sess.Plan.Price,
		Text:          text,
	}
}

// Get returns a copy of the session.
func (m *Manager) Get(id string) (domain.PaymentSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.sessions[id]
	if !ok {
		return domain.PaymentSession{}, &domain.ErrSessionExpired{SessionID: id}
	}
	return st.sess, nil
}

// Receipt returns the receipt for a successful session.
func (m *Manager) Receipt(id string) (*domain.PaymentReceipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.sessions[id]
	if !ok {
		return nil, &domain.ErrSessionExpired{SessionID: id}
	}
	if st.sess.Status != domain.PaymentSuccess || st.receipt == nil {
		return nil, &domain.ErrValidation{Field: "status", Message: "receipt available only after success"}
	}
	r := *st.receipt
	return &r, nil
}

// Retry re-arms a failed or expired session as a brand-new session: fresh
// id, regenerated code, full countdown. The old session is removed.
func (m *Manager) Retry(id string) (domain.PaymentSession, error) {
	m.mu.Lock()
	st, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return domain.PaymentSession{}, &domain.ErrSessionExpired{SessionID: id}
	}
	if st.sess.Status != domain.PaymentFailed && st.sess.Status != domain.PaymentExpired {
		status := st.sess.Status
		m.mu.Unlock()
		return domain.PaymentSession{}, &domain.ErrValidation{
			Field: "status", Message: fmt.Sprintf("cannot retry a %s session", status),
		}
	}
	businessID := st.sess.BusinessID
	businessName := st.sess.BusinessName
	planID := st.sess.Plan.ID
	delete(m.sessions, id)
	m.mu.Unlock()

	return m.Open(businessID, businessName, planID)
}

// Close ends a session. Closing while pending requires force (the caller
// shows a blocking warning first). A resolved session closes immediately,
// with full teardown deferred briefly so a success state stays visible.
func (m *Manager) Close(id string, force bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.sessions[id]
	if !ok {
		return &domain.ErrSessionExpired{SessionID: id}
	}

	if st.sess.Status == domain.PaymentPending {
		if !force {
			return &domain.ErrPaymentPending{SessionID: id}
		}
		m.teardownLocked(st)
		delete(m.sessions, id)
		m.cfg.Logger.Info("payment: pending session force-closed", zap.String("session_id", id))
		return nil
	}

	m.teardownLocked(st)
	time.AfterFunc(m.cfg.Linger, func() {
		m.mu.Lock()
		delete(m.sessions, id)
		m.mu.Unlock()
	})
	m.cfg.Logger.Info("payment: session closed", zap.String("session_id", id))
	return nil
}

// teardownLocked stops the countdown and verification timers. Callers hold m.mu.
func (m *Manager) teardownLocked(st *state) {
	if st.verify != nil {
		st.verify.Stop()
		st.verify = nil
	}
	select {
	case <-st.stop:
	default:
		close(st.stop)
	}
}

func (m *Manager) record(status string) {
	if m.cfg.Metrics != nil {
		m.cfg.Metrics.IncrPayment(status)
	}
}

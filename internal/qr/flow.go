// Package qr runs the QR association flow: decoded payloads stream in
// from the client (camera frames or an uploaded image, decoded
// client-side), each candidate is validated against the backend, and the
// flow settles on the first accepted code or a rejection.
package qr

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tribly/growthqr-bff-go/internal/domain"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// State is the association flow state.
type State string

const (
	StateIdle       State = "idle"
	StateDecoding   State = "decoding"
	StateValidating State = "validating"
	StateAccepted   State = "accepted"
	StateRejected   State = "rejected"
)

// Rejection messages surfaced inline near the scan control.
const (
	ReasonInvalid      = "invalid QR code"
	ReasonAlreadyInUse = "QR code already in use"
)

// Validator checks a decoded payload against the backend.
type Validator interface {
	ValidateQR(ctx context.Context, qrData string) (*domain.QRValidation, error)
}

// Releaser frees a client-generated temporary image reference. Temporary
// references must never accumulate across repeated scans.
type Releaser func(ref string)

// Flow is one QR association attempt.
type Flow struct {
	ID string

	validator Validator
	release   Releaser
	logger    *zap.Logger

	mu        sync.Mutex
	state     State
	assoc     *domain.QRAssociation
	reason    string
	tempRef   string
	lastTouch time.Time
}

// State returns the current flow state.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Reason returns the rejection message, if rejected.
func (f *Flow) Reason() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reason
}

// Result returns the accepted association, if any.
func (f *Flow) Result() (*domain.QRAssociation, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != StateAccepted || f.assoc == nil {
		return nil, false
	}
	a := *f.assoc
	return &a, true
}

// Submit validates one decoded payload. fallbackRef is an optional
// client-generated temporary image (a cropped frame) used for display when
// the backend provides no CDN image; unused or replaced references are
// released immediately. Once the flow has settled (accepted or rejected)
// further payloads are ignored, so a scan loop stops at the first decode.
func (f *Flow) Submit(ctx context.Context, payload, fallbackRef string) (State, error) {
	f.mu.Lock()
	if f.state != StateDecoding {
		state := f.state
		f.mu.Unlock()
		f.releaseRef(fallbackRef)
		return state, nil
	}
	f.state = StateValidating
	f.mu.Unlock()

	validation, err := f.validator.ValidateQR(ctx, payload)

	var drop []string
	defer func() {
		for _, ref := range drop {
			f.releaseRef(ref)
		}
	}()

	f.mu.Lock()
	defer f.mu.Unlock()

	// Cancelled while the validation call was in flight.
	if f.state != StateValidating {
		drop = append(drop, fallbackRef)
		return f.state, nil
	}

	if err != nil {
		drop = append(drop, fallbackRef)
		var invalid *domain.ErrInvalidQR
		var notFound *domain.ErrNotFound
		if errors.As(err, &invalid) || errors.As(err, &notFound) {
			f.state = StateRejected
			f.reason = ReasonInvalid
			f.logger.Debug("qr: payload rejected as invalid", zap.String("flow_id", f.ID))
			return f.state, nil
		}
		// Transient failure: back to decoding so the scan can continue.
		f.state = StateDecoding
		return f.state, err
	}

	if validation.IsActive {
		drop = append(drop, fallbackRef)
		f.state = StateRejected
		f.reason = ReasonAlreadyInUse
		f.logger.Info("qr: code already in use",
			zap.String("flow_id", f.ID),
			zap.String("code", validation.Code),
		)
		return f.state, nil
	}

	image := validation.CDNURL
	if image == "" && fallbackRef != "" {
		// Retain the fallback frame; release any previously retained one.
		drop = append(drop, f.tempRef)
		f.tempRef = fallbackRef
		image = fallbackRef
	} else {
		drop = append(drop, fallbackRef)
	}

	f.state = StateAccepted
	f.reason = ""
	f.assoc = &domain.QRAssociation{Code: validation.Code, ImageURL: image}
	f.logger.Info("qr: code accepted",
		zap.String("flow_id", f.ID),
		zap.String("code", validation.Code),
	)
	return f.state, nil
}

// Cancel resets the flow to idle and releases any retained temporary
// image reference. Safe to call in any state, including mid-validation.
func (f *Flow) Cancel() {
	f.mu.Lock()
	old := f.tempRef
	f.tempRef = ""
	f.state = StateIdle
	f.assoc = nil
	f.reason = ""
	f.mu.Unlock()
	f.releaseRef(old)
}

// Restart returns a settled or idle flow to decoding for another scan.
func (f *Flow) Restart() {
	f.mu.Lock()
	old := f.tempRef
	f.tempRef = ""
	f.state = StateDecoding
	f.assoc = nil
	f.reason = ""
	f.mu.Unlock()
	f.releaseRef(old)
}

func (f *Flow) releaseRef(ref string) {
	if ref != "" && f.release != nil {
		f.release(ref)
	}
}

// Manager owns live QR flows keyed by flow id.
type Manager struct {
	validator Validator
	release   Releaser
	logger    *zap.Logger
	ttl       time.Duration

	mu    sync.Mutex
	flows map[string]*Flow

	stopOnce sync.Once
	done     chan struct{}
}

// NewManager creates a flow manager and starts its reaper.
func NewManager(validator Validator, release Releaser, ttl time.Duration, logger *zap.Logger) *Manager {
	m := &Manager{
		validator: validator,
		release:   release,
		logger:    logger,
		ttl:       ttl,
		flows:     make(map[string]*Flow),
		done:      make(chan struct{}),
	}
	go m.reap()
	return m
}

// Stop ends the background reaper.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.done) })
}

// Start opens a new flow in the decoding state.
func (m *Manager) Start() *Flow {
	f := &Flow{
		ID:        uuid.New().String(),
		validator: m.validator,
		release:   m.release,
		logger:    m.logger,
		state:     StateDecoding,
		lastTouch: time.Now(),
	}
	m.mu.Lock()
	m.flows[f.ID] = f
	m.mu.Unlock()
	return f
}

// Get returns a live flow.
func (m *Manager) Get(id string) (*Flow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.flows[id]
	if !ok {
		return nil, &domain.ErrSessionExpired{SessionID: id}
	}
	f.mu.Lock()
	f.lastTouch = time.Now()
	f.mu.Unlock()
	return f, nil
}

// Close cancels and removes a flow.
func (m *Manager) Close(id string) {
	m.mu.Lock()
	f, ok := m.flows[id]
	delete(m.flows, id)
	m.mu.Unlock()
	if ok {
		f.Cancel()
	}
}

func (m *Manager) reap() {
	ticker := time.NewTicker(m.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
		}
		cutoff := time.Now().Add(-m.ttl)
		m.mu.Lock()
		var stale []*Flow
		for id, f := range m.flows {
			f.mu.Lock()
			idle := f.lastTouch.Before(cutoff)
			f.mu.Unlock()
			if idle {
				stale = append(stale, f)
				delete(m.flows, id)
			}
		}
		m.mu.Unlock()
		for _, f := range stale {
			f.Cancel()
		}
	}
}

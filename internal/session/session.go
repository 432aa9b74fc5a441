// Package session tracks per-business edit sessions for the settings
// dashboard: the working copy of the merged record, the last-saved section
// snapshots, and the leave-guard that blocks navigation while any section
// has unsaved changes.
package session

import (
	"sync"
	"time"

	"github.com/tribly/growthqr-bff-go/internal/domain"
	"github.com/tribly/growthqr-bff-go/internal/merge"

	"github.com/google/uuid"
)

// NavigationKind classifies what the user tried to do when the guard fired.
type NavigationKind string

const (
	NavTab    NavigationKind = "tab"
	NavSubTab NavigationKind = "subtab"
	NavBack   NavigationKind = "back"
	NavRoute  NavigationKind = "route"
	NavUnload NavigationKind = "unload"
)

// Navigation is a deferred navigation target, captured atomically at the
// moment the guard blocks. It must not drift if state changes before the
// user resolves the dialog.
type Navigation struct {
	Kind   NavigationKind `json:"kind"`
	Target string         `json:"target"`
}

// GuardState is the leave-guard's state.
type GuardState string

const (
	GuardClean   GuardState = "clean"
	GuardBlocked GuardState = "blocked"
)

// EditSession is one loaded business editing session.
type EditSession struct {
	ID         string
	BusinessID string

	mu        sync.Mutex
	record    domain.BusinessRecord
	snapshots *merge.SnapshotSet
	guard     GuardState
	pending   *Navigation
	lastTouch time.Time
}

// Record returns a copy of the current working record.
func (s *EditSession) Record() domain.BusinessRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record.Clone()
}

// Apply merges partial edits into the working record. The id is immutable;
// edits cannot change it.
func (s *EditSession) Apply(edits *domain.OverrideRecord) domain.BusinessRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record = merge.Merge(s.record, edits)
	return s.record.Clone()
}

// DirtySections returns the sections whose current values differ from the
// last-saved snapshots.
func (s *EditSession) DirtySections() []merge.Section {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshots.DirtySections(s.record)
}

// Dirty reports whether any section has unsaved changes. The client uses
// this to arm the browser's native unload prompt independently of the
// in-app dialog.
func (s *EditSession) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.snapshots.DirtySections(s.record)) > 0
}

// GuardState returns the current leave-guard state.
func (s *EditSession) GuardState() GuardState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.guard
}

// Pending returns a copy of the deferred navigation, if any.
func (s *EditSession) Pending() *Navigation {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return nil
	}
	nav := *s.pending
	return &nav
}

// AttemptNavigation gates a navigation attempt. With no unsaved changes
// the navigation is allowed and the guard stays clean. Otherwise the guard
// blocks and captures the target; a second attempt while already blocked
// does not replace the originally captured target.
func (s *EditSession) AttemptNavigation(nav Navigation) (allowed bool, dirty []merge.Section) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dirty = s.snapshots.DirtySections(s.record)
	if len(dirty) == 0 {
		return true, nil
	}

	if s.guard != GuardBlocked {
		captured := nav
		s.pending = &captured
		s.guard = GuardBlocked
	}
	return false, dirty
}

// Cancel resolves a blocked guard without navigating; the deferred target
// is discarded.
func (s *EditSession) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.guard = GuardClean
	s.pending = nil
}

// Discard rolls every section back to its snapshot and releases the
// deferred navigation for the caller to perform.
func (s *EditSession) Discard() (*Navigation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.guard != GuardBlocked || s.pending == nil {
		return nil, &domain.ErrValidation{Field: "guard", Message: "no blocked navigation to resolve"}
	}

	s.record = s.snapshots.Restore(s.record)
	nav := *s.pending
	s.pending = nil
	s.guard = GuardClean
	return &nav, nil
}

// ResolveSaved releases the deferred navigation after the caller has
// persisted all dirty sections. It refuses to resolve while anything is
// still dirty.
func (s *EditSession) ResolveSaved() (*Navigation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.guard != GuardBlocked || s.pending == nil {
		return nil, &domain.ErrValidation{Field: "guard", Message: "no blocked navigation to resolve"}
	}
	if dirty := s.snapshots.DirtySections(s.record); len(dirty) > 0 {
		names := make([]string, len(dirty))
		for i, d := range dirty {
			names[i] = string(d)
		}
		return nil, &domain.ErrUnsavedChanges{Sections: names}
	}

	nav := *s.pending
	s.pending = nil
	s.guard = GuardClean
	return &nav, nil
}

// MarkSaved atomically replaces one section's snapshot with the record's
// current values, after a successful save of that section.
func (s *EditSession) MarkSaved(section merge.Section) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots.Refresh(section, s.record)
}

// Manager owns all live edit sessions, keyed by session id. Idle sessions
// are reaped after the configured TTL.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*EditSession
	ttl      time.Duration

	stopOnce sync.Once
	done     chan struct{}
}

// NewManager creates a session manager and starts the background reaper.
func NewManager(ttl time.Duration) *Manager {
	m := &Manager{
		sessions: make(map[string]*EditSession),
		ttl:      ttl,
		done:     make(chan struct{}),
	}
	go m.reap()
	return m
}

// Stop ends the background reaper. Live sessions stay readable.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.done) })
}

// Open creates a session for a freshly loaded merged record and captures
// its initial snapshots.
func (m *Manager) Open(businessID string, rec domain.BusinessRecord) *EditSession {
	s := &EditSession{
		ID:         uuid.New().String(),
		BusinessID: businessID,
		record:     rec.Clone(),
		snapshots:  merge.TakeSnapshots(rec),
		guard:      GuardClean,
		lastTouch:  time.Now(),
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s
}

// Get returns a live session and refreshes its idle timer.
func (m *Manager) Get(sessionID string) (*EditSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, &domain.ErrSessionExpired{SessionID: sessionID}
	}
	s.mu.Lock()
	s.lastTouch = time.Now()
	s.mu.Unlock()
	return s, nil
}

// Close removes a session.
func (m *Manager) Close(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
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
		for id, s := range m.sessions {
			s.mu.Lock()
			idle := s.lastTouch.Before(cutoff)
			s.mu.Unlock()
			if idle {
				delete(m.sessions, id)
			}
		}
		m.mu.Unlock()
	}
}

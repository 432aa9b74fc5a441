package qr

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tribly/growthqr-bff-go/internal/domain"

	"go.uber.org/zap"
)

type fakeValidator struct {
	mu      sync.Mutex
	results map[string]*domain.QRValidation
	errs    map[string]error
	calls   []string
}

func (v *fakeValidator) ValidateQR(_ context.Context, qrData string) (*domain.QRValidation, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls = append(v.calls, qrData)
	if err, ok := v.errs[qrData]; ok {
		return nil, err
	}
	if res, ok := v.results[qrData]; ok {
		return res, nil
	}
	return nil, &domain.ErrInvalidQR{Payload: qrData}
}

type refTracker struct {
	mu       sync.Mutex
	released []string
}

func (r *refTracker) release(ref string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.released = append(r.released, ref)
}

func (r *refTracker) has(ref string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, got := range r.released {
		if got == ref {
			return true
		}
	}
	return false
}

func newTestManager(v Validator, r Releaser) *Manager {
	return NewManager(v, r, time.Minute, zap.NewNop())
}

func TestSubmit_InactiveCodeAccepted(t *testing.T) {
	v := &fakeValidator{results: map[string]*domain.QRValidation{
		"https://g.page/r/ABCD1234": {IsActive: false, Code: "ABCD1234", CDNURL: "https://cdn.example.com/qr/ABCD1234.png"},
	}}
	m := newTestManager(v, nil)
	f := m.Start()

	state, err := f.Submit(context.Background(), "https://g.page/r/ABCD1234", "")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if state != StateAccepted {
		t.Fatalf("state = %q, want %q", state, StateAccepted)
	}

	assoc, ok := f.Result()
	if !ok {
		t.Fatal("expected an accepted association")
	}
	if assoc.Code != "ABCD1234" {
		t.Errorf("Code = %q, want ABCD1234", assoc.Code)
	}
	if assoc.ImageURL != "https://cdn.example.com/qr/ABCD1234.png" {
		t.Errorf("ImageURL = %q, want CDN URL", assoc.ImageURL)
	}
}

func TestSubmit_InvalidPayloadRejected(t *testing.T) {
	v := &fakeValidator{}
	tracker := &refTracker{}
	m := newTestManager(v, tracker.release)
	f := m.Start()

	state, err := f.Submit(context.Background(), "garbage-payload", "tmp-frame-1")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if state != StateRejected {
		t.Fatalf("state = %q, want %q", state, StateRejected)
	}
	if f.Reason() != ReasonInvalid {
		t.Errorf("Reason = %q, want %q", f.Reason(), ReasonInvalid)
	}
	if !tracker.has("tmp-frame-1") {
		t.Error("fallback frame of a rejected payload must be released")
	}
}

func TestSubmit_ActiveCodeRejected(t *testing.T) {
	v := &fakeValidator{results: map[string]*domain.QRValidation{
		"payload-active": {IsActive: true, Code: "WXYZ9876"},
	}}
	m := newTestManager(v, nil)
	f := m.Start()

	state, err := f.Submit(context.Background(), "payload-active", "")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if state != StateRejected {
		t.Fatalf("state = %q, want %q", state, StateRejected)
	}
	if f.Reason() != ReasonAlreadyInUse {
		t.Errorf("Reason = %q, want %q", f.Reason(), ReasonAlreadyInUse)
	}
	if _, ok := f.Result(); ok {
		t.Error("rejected flow must not expose an association")
	}
}

func TestSubmit_SettledFlowIgnoresFurtherPayloads(t *testing.T) {
	v := &fakeValidator{results: map[string]*domain.QRValidation{
		"first":  {IsActive: false, Code: "FIRST123", CDNURL: "https://cdn.example.com/first.png"},
		"second": {IsActive: false, Code: "SECOND45", CDNURL: "https://cdn.example.com/second.png"},
	}}
	m := newTestManager(v, nil)
	f := m.Start()

	if _, err := f.Submit(context.Background(), "first", ""); err != nil {
		t.Fatalf("Submit first: %v", err)
	}
	state, err := f.Submit(context.Background(), "second", "")
	if err != nil {
		t.Fatalf("Submit second: %v", err)
	}
	if state != StateAccepted {
		t.Fatalf("state = %q, want %q", state, StateAccepted)
	}

	assoc, _ := f.Result()
	if assoc.Code != "FIRST123" {
		t.Errorf("Code = %q, want the first accepted code", assoc.Code)
	}
	if len(v.calls) != 1 {
		t.Errorf("validator called %d times, want 1", len(v.calls))
	}
}

func TestSubmit_FallbackFrameRetainedWithoutCDN(t *testing.T) {
	v := &fakeValidator{results: map[string]*domain.QRValidation{
		"payload": {IsActive: false, Code: "NOCDN012"},
	}}
	tracker := &refTracker{}
	m := newTestManager(v, tracker.release)
	f := m.Start()

	if _, err := f.Submit(context.Background(), "payload", "tmp-frame-7"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	assoc, ok := f.Result()
	if !ok {
		t.Fatal("expected an accepted association")
	}
	if assoc.ImageURL != "tmp-frame-7" {
		t.Errorf("ImageURL = %q, want the fallback frame", assoc.ImageURL)
	}
	if tracker.has("tmp-frame-7") {
		t.Error("retained frame must not be released while the flow holds it")
	}

	f.Cancel()
	if !tracker.has("tmp-frame-7") {
		t.Error("Cancel must release the retained frame")
	}
	if f.State() != StateIdle {
		t.Errorf("state after Cancel = %q, want %q", f.State(), StateIdle)
	}
}

func TestSubmit_TransientErrorResumesDecoding(t *testing.T) {
	v := &fakeValidator{errs: map[string]error{
		"payload": &domain.ErrExternalService{Service: "backend", Err: errors.New("connection refused")},
	}}
	tracker := &refTracker{}
	m := newTestManager(v, tracker.release)
	f := m.Start()

	state, err := f.Submit(context.Background(), "payload", "tmp-frame-2")
	if err == nil {
		t.Fatal("expected the transient error to propagate")
	}
	if state != StateDecoding {
		t.Fatalf("state = %q, want %q", state, StateDecoding)
	}
	if !tracker.has("tmp-frame-2") {
		t.Error("fallback frame must be released on a transient failure")
	}
}

func TestRestart_AfterRejection(t *testing.T) {
	v := &fakeValidator{results: map[string]*domain.QRValidation{
		"good": {IsActive: false, Code: "GOOD5678", CDNURL: "https://cdn.example.com/good.png"},
	}}
	m := newTestManager(v, nil)
	f := m.Start()

	if _, err := f.Submit(context.Background(), "bad", ""); err != nil {
		t.Fatalf("Submit bad: %v", err)
	}
	if f.State() != StateRejected {
		t.Fatalf("state = %q, want %q", f.State(), StateRejected)
	}

	f.Restart()
	if f.State() != StateDecoding {
		t.Fatalf("state after Restart = %q, want %q", f.State(), StateDecoding)
	}

	state, err := f.Submit(context.Background(), "good", "")
	if err != nil {
		t.Fatalf("Submit good: %v", err)
	}
	if state != StateAccepted {
		t.Fatalf("state = %q, want %q", state, StateAccepted)
	}
}

func TestManager_GetAndClose(t *testing.T) {
	tracker := &refTracker{}
	v := &fakeValidator{results: map[string]*domain.QRValidation{
		"payload": {IsActive: false, Code: "MGRC3456"},
	}}
	m := newTestManager(v, tracker.release)

	if _, err := m.Get("unknown"); err == nil {
		t.Error("expected an error for an unknown flow id")
	}

	f := m.Start()
	if _, err := f.Submit(context.Background(), "payload", "tmp-frame-9"); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	got, err := m.Get(f.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != f {
		t.Error("Get returned a different flow")
	}

	m.Close(f.ID)
	if !tracker.has("tmp-frame-9") {
		t.Error("Close must release the retained frame")
	}
	if _, err := m.Get(f.ID); err == nil {
		t.Error("closed flow must not be retrievable")
	}
}

func TestManagerStop_FlowsStayReadable(t *testing.T) {
	m := newTestManager(&fakeValidator{}, nil)
	f := m.Start()
	m.Stop()
	m.Stop() // idempotent

	if _, err := m.Get(f.ID); err != nil {
		t.Fatalf("flow unreadable after Stop: %v", err)
	}
}

package service

import (
	"context"
	"fmt"
	"time"

	"github.com/tribly/growthqr-bff-go/internal/domain"
	"github.com/tribly/growthqr-bff-go/internal/infra/observability"
	"github.com/tribly/growthqr-bff-go/internal/merge"
	"github.com/tribly/growthqr-bff-go/internal/port"
	"github.com/tribly/growthqr-bff-go/internal/session"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("service/dashboard")

// DashboardView is what the settings dashboard renders: the merged
// record plus section dirty state and any blocked navigation.
type DashboardView struct {
	SessionID     string                `json:"session_id"`
	Record        domain.BusinessRecord `json:"record"`
	DirtySections []merge.Section       `json:"dirty_sections"`
	GuardState    session.GuardState    `json:"guard_state"`
	PendingNav    *session.Navigation   `json:"pending_navigation,omitempty"`
}

// Dashboard orchestrates the business settings dashboard: loading the
// merged record, tracking edits per section and saving them back.
type Dashboard struct {
	backend   port.BusinessGateway
	overrides port.OverrideStore
	sessions  *session.Manager
	metrics   *observability.Metrics
	logger    *zap.Logger
}

// NewDashboard creates the dashboard service with all dependencies injected.
func NewDashboard(
	backend port.BusinessGateway,
	overrides port.OverrideStore,
	sessions *session.Manager,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Dashboard {
	return &Dashboard{
		backend:   backend,
		overrides: overrides,
		sessions:  sessions,
		metrics:   metrics,
		logger:    logger,
	}
}

// Load fetches the canonical record and stored overrides concurrently,
// merges them and opens an edit session on the result.
func (d *Dashboard) Load(ctx context.Context, qrID string) (*DashboardView, error) {
	ctx, span := tracer.Start(ctx, "Dashboard.Load")
	defer span.End()
	span.SetAttributes(attribute.String("qr.id", qrID))

	start := time.Now()
	defer func() {
		d.metrics.RecordRequestDuration("dashboard_load", time.Since(start))
	}()

	var (
		canonical *domain.BusinessRecord
		override  *domain.OverrideRecord
	)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		rec, err := d.backend.ScanBusiness(gCtx, qrID)
		if err != nil {
			d.logger.Error("failed to load canonical record",
				zap.String("qr_id", qrID),
				zap.Error(err),
			)
			d.metrics.IncrExternalError("backend")
			return fmt.Errorf("canonical fetch: %w", err)
		}
		canonical = rec
		return nil
	})

	g.Go(func() error {
		ov, err := d.overrides.Get(gCtx, qrID)
		if err != nil {
			// Overrides are an overlay; losing them degrades to the
			// canonical record instead of failing the whole load.
			d.logger.Warn("override load failed, serving canonical only",
				zap.String("qr_id", qrID),
				zap.Error(err),
			)
			d.metrics.IncrExternalError("override_store")
			return nil
		}
		override = ov
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := merge.Merge(*canonical, override)
	sess := d.sessions.Open(qrID, merged)
	d.metrics.EditSessionOpened()

	d.logger.Info("dashboard loaded",
		zap.String("qr_id", qrID),
		zap.String("session_id", sess.ID),
		zap.Bool("has_override", override != nil),
	)

	return d.view(sess), nil
}

// View returns the current state of an open edit session.
func (d *Dashboard) View(ctx context.Context, sessionID string) (*DashboardView, error) {
	_, span := tracer.Start(ctx, "Dashboard.View")
	defer span.End()

	sess, err := d.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	return d.view(sess), nil
}

// ApplyEdits applies a partial edit to the in-session record.
func (d *Dashboard) ApplyEdits(ctx context.Context, sessionID string, edits *domain.OverrideRecord) (*DashboardView, error) {
	_, span := tracer.Start(ctx, "Dashboard.ApplyEdits")
	defer span.End()

	sess, err := d.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	sess.Apply(edits)
	return d.view(sess), nil
}

// SaveSection persists one section: the section's fields go to the
// backend, the same fields land in the override store, and the section's
// snapshot is refreshed so it reads as clean. A failed save leaves the
// in-session edits untouched for retry.
func (d *Dashboard) SaveSection(ctx context.Context, sessionID string, section merge.Section) (*DashboardView, error) {
	ctx, span := tracer.Start(ctx, "Dashboard.SaveSection")
	defer span.End()
	span.SetAttributes(attribute.String("section", string(section)))

	if !merge.ValidSection(section) {
		return nil, &domain.ErrValidation{Field: "section", Message: fmt.Sprintf("unknown section %q", section)}
	}

	sess, err := d.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}

	rec := sess.Record()
	partial := merge.SectionOverride(section, rec)
	fields := sectionFields(section, rec)

	if err := d.backend.ConfigureQR(ctx, rec.ID, fields); err != nil {
		d.logger.Error("section save failed",
			zap.String("session_id", sessionID),
			zap.String("section", string(section)),
			zap.Error(err),
		)
		d.metrics.IncrExternalError("backend")
		return nil, fmt.Errorf("save %s: %w", section, err)
	}

	if err := d.overrides.Update(ctx, rec.ID, partial); err != nil {
		// The backend write already landed; the override store will
		// converge on the next successful save.
		d.logger.Warn("override update failed after save",
			zap.String("qr_id", rec.ID),
			zap.String("section", string(section)),
			zap.Error(err),
		)
		d.metrics.IncrExternalError("override_store")
	}

	sess.MarkSaved(section)

	d.logger.Info("section saved",
		zap.String("qr_id", rec.ID),
		zap.String("section", string(section)),
	)
	return d.view(sess), nil
}

// Navigate reports a navigation attempt against the leave guard.
// While any section is dirty the navigation is blocked and its target
// is captured for later resolution.
func (d *Dashboard) Navigate(ctx context.Context, sessionID string, nav session.Navigation) (*DashboardView, error) {
	_, span := tracer.Start(ctx, "Dashboard.Navigate")
	defer span.End()

	sess, err := d.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	sess.AttemptNavigation(nav)
	return d.view(sess), nil
}

// GuardResolution is the outcome of resolving a blocked navigation.
// Released carries the deferred target the caller may now perform.
type GuardResolution struct {
	View     *DashboardView      `json:"view"`
	Released *session.Navigation `json:"released_navigation,omitempty"`
}

// ResolveGuard resolves a blocked navigation. "save" persists every
// dirty section first, "discard" rolls the record back to its last
// saved state, "cancel" stays on the page keeping the edits.
func (d *Dashboard) ResolveGuard(ctx context.Context, sessionID, resolution string) (*GuardResolution, error) {
	ctx, span := tracer.Start(ctx, "Dashboard.ResolveGuard")
	defer span.End()
	span.SetAttributes(attribute.String("resolution", resolution))

	sess, err := d.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}

	var released *session.Navigation
	switch resolution {
	case "save":
		for _, section := range sess.DirtySections() {
			if _, err := d.SaveSection(ctx, sessionID, section); err != nil {
				return nil, err
			}
		}
		released, err = sess.ResolveSaved()
		if err != nil {
			return nil, err
		}
	case "discard":
		released, err = sess.Discard()
		if err != nil {
			return nil, err
		}
	case "cancel":
		sess.Cancel()
	default:
		return nil, &domain.ErrValidation{Field: "resolution", Message: fmt.Sprintf("unknown resolution %q", resolution)}
	}

	return &GuardResolution{View: d.view(sess), Released: released}, nil
}

// Reviews lists manual reviews for the session's business. Review
// problems never block the dashboard; the caller gets an empty list and
// the error is logged.
func (d *Dashboard) Reviews(ctx context.Context, sessionID string) ([]domain.ManualReview, error) {
	ctx, span := tracer.Start(ctx, "Dashboard.Reviews")
	defer span.End()

	sess, err := d.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}

	reviews, err := d.backend.ManualReviews(ctx, sess.Record().ID)
	if err != nil {
		d.logger.Warn("manual reviews unavailable",
			zap.String("qr_id", sess.Record().ID),
			zap.Error(err),
		)
		d.metrics.IncrExternalError("backend")
		return []domain.ManualReview{}, nil
	}
	return reviews, nil
}

// Close ends an edit session.
func (d *Dashboard) Close(ctx context.Context, sessionID string) {
	_, span := tracer.Start(ctx, "Dashboard.Close")
	defer span.End()

	d.sessions.Close(sessionID)
	d.metrics.EditSessionClosed()
}

func (d *Dashboard) view(sess *session.EditSession) *DashboardView {
	return &DashboardView{
		SessionID:     sess.ID,
		Record:        sess.Record(),
		DirtySections: sess.DirtySections(),
		GuardState:    sess.GuardState(),
		PendingNav:    sess.Pending(),
	}
}

// sectionFields builds the backend payload for one section from the
// current record. Values are always written explicitly; an empty string
// is sent as null so the backend clears the field rather than storing
// an empty value.
func sectionFields(section merge.Section, rec domain.BusinessRecord) map[string]any {
	str := func(v string) any {
		if v == "" {
			return nil
		}
		return v
	}

	switch section {
	case merge.SectionBusinessInfo:
		return map[string]any{
			"business_name": str(rec.Name),
			"category":      str(string(rec.Category)),
			"email":         str(rec.Email),
			"phone":         str(rec.Phone),
			"address_line":  str(rec.AddressLine),
			"city":          str(rec.City),
			"area":          str(rec.Area),
			"postal_code":   str(rec.PostalCode),
			"overview":      str(rec.Overview),
			"services":      rec.Services,
		}
	case merge.SectionLinks:
		return map[string]any{
			"google_review_url": str(rec.GoogleReviewURL),
			"google_place_id":   str(rec.GooglePlaceID),
			"instagram":         str(rec.Instagram),
			"youtube":           str(rec.YouTube),
			"whatsapp_number":   str(rec.WhatsAppNumber),
			"website":           str(rec.Website),
		}
	case merge.SectionAutoReply:
		return map[string]any{
			"auto_reply_enabled": rec.AutoReplyEnabled,
		}
	case merge.SectionKeywords:
		return map[string]any{
			"keywords": rec.Keywords,
		}
	default:
		return map[string]any{}
	}
}

package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/tribly/growthqr-bff-go/internal/domain"
	"github.com/tribly/growthqr-bff-go/internal/infra/resilience"

	"go.opentelemetry.io/otel/attribute"
)

// businessRow maps the backend's business payload to our domain.
type businessRow struct {
	QRID             string   `json:"qr_id"`
	BusinessName     string   `json:"business_name"`
	Category         string   `json:"category"`
	Email            string   `json:"email"`
	Phone            string   `json:"phone"`
	AddressLine      string   `json:"address_line"`
	City             string   `json:"city"`
	Area             string   `json:"area"`
	PostalCode       string   `json:"postal_code"`
	Overview         string   `json:"overview"`
	Services         []string `json:"services"`
	Keywords         []string `json:"keywords"`
	GoogleReviewURL  string   `json:"google_review_url"`
	GooglePlaceID    string   `json:"google_place_id"`
	Instagram        string   `json:"instagram"`
	YouTube          string   `json:"youtube"`
	WhatsAppNumber   string   `json:"whatsapp_number"`
	Website          string   `json:"website"`
	AutoReplyEnabled bool     `json:"auto_reply_enabled"`
	PaymentPlan      string   `json:"payment_plan"`
	PaymentStatus    string   `json:"payment_status"`
	PaymentExpiresAt string   `json:"payment_expires_at"`
	ReviewCount      int      `json:"review_count"`
	AverageRating    float64  `json:"average_rating"`
}

func (r businessRow) toDomain() domain.BusinessRecord {
	rec := domain.BusinessRecord{
		ID:               r.QRID,
		Name:             r.BusinessName,
		Category:         domain.BusinessCategory(r.Category),
		Email:            r.Email,
		Phone:            r.Phone,
		AddressLine:      r.AddressLine,
		City:             r.City,
		Area:             r.Area,
		PostalCode:       r.PostalCode,
		Overview:         r.Overview,
		Services:         r.Services,
		Keywords:         r.Keywords,
		GoogleReviewURL:  r.GoogleReviewURL,
		GooglePlaceID:    r.GooglePlaceID,
		Instagram:        r.Instagram,
		YouTube:          r.YouTube,
		WhatsAppNumber:   r.WhatsAppNumber,
		Website:          r.Website,
		AutoReplyEnabled: r.AutoReplyEnabled,
		PaymentPlan:      domain.PaymentPlanID(r.PaymentPlan),
		PaymentStatus:    r.PaymentStatus,
		ReviewCount:      r.ReviewCount,
		AverageRating:    r.AverageRating,
	}
	if r.PaymentExpiresAt != "" {
		if t, err := time.Parse(time.RFC3339, r.PaymentExpiresAt); err == nil {
			rec.PaymentExpiresAt = &t
		}
	}
	return rec
}

// ScanBusiness fetches the canonical business record by QR identifier.
func (c *Client) ScanBusiness(ctx context.Context, qrID string) (*domain.BusinessRecord, error) {
	ctx, span := tracer.Start(ctx, "Backend.ScanBusiness")
	defer span.End()
	span.SetAttributes(attribute.String("qr.id", qrID))

	var record *domain.BusinessRecord

	err := c.execute(ctx, func() error {
		path := fmt.Sprintf("/business_qr/scan?qr_id=%s", url.QueryEscape(qrID))
		body, status, err := c.doJSON(ctx, http.MethodGet, path, nil)
		if err != nil {
			return err
		}
		if status == http.StatusNotFound {
			return resilience.Permanent(&domain.ErrNotFound{Resource: "business", ID: qrID})
		}
		if status < 200 || status >= 300 {
			return fmt.Errorf("scan returned status %d: %s", status, string(body))
		}

		var row businessRow
		if err := json.Unmarshal(body, &row); err != nil {
			return fmt.Errorf("failed to decode business: %w", err)
		}
		rec := row.toDomain()
		if rec.ID == "" {
			rec.ID = qrID
		}
		record = &rec
		return nil
	})
	if err != nil {
		if notFound, ok := asNotFound(err); ok {
			return nil, notFound
		}
		return nil, &domain.ErrExternalService{Service: "backend/scan", Err: err}
	}

	return record, nil
}

// ConfigureQR upserts business fields for a QR id. The payload is sent
// verbatim: a key set to nil clears the field on the backend, an absent
// key leaves it untouched. Callers build the payload with exactly the
// keys they mean to write.
func (c *Client) ConfigureQR(ctx context.Context, qrID string, fields map[string]any) error {
	ctx, span := tracer.Start(ctx, "Backend.ConfigureQR")
	defer span.End()
	span.SetAttributes(
		attribute.String("qr.id", qrID),
		attribute.Int("field.count", len(fields)),
	)

	payload := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		payload[k] = v
	}
	payload["qr_id"] = qrID

	err := c.execute(ctx, func() error {
		body, status, err := c.doJSON(ctx, http.MethodPost, "/business_qr/configure_qr", payload)
		if err != nil {
			return err
		}
		if status == http.StatusNotFound {
			return resilience.Permanent(&domain.ErrNotFound{Resource: "business", ID: qrID})
		}
		if status < 200 || status >= 300 {
			return fmt.Errorf("configure_qr returned status %d: %s", status, string(body))
		}
		return nil
	})
	if err != nil {
		if notFound, ok := asNotFound(err); ok {
			return notFound
		}
		return &domain.ErrExternalService{Service: "backend/configure_qr", Err: err}
	}
	return nil
}

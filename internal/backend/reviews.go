package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/tribly/growthqr-bff-go/internal/domain"

	"go.opentelemetry.io/otel/attribute"
)

type reviewRow struct {
	ID           string `json:"id"`
	BusinessID   string `json:"business_id"`
	CustomerName string `json:"customer_name"`
	Rating       int    `json:"rating"`
	Comment      string `json:"comment"`
	SubmittedAt  string `json:"submitted_at"`
	Status       string `json:"status"`
}

// ManualReviews lists customer-submitted reviews awaiting triage for a
// QR id. An empty list is not an error.
func (c *Client) ManualReviews(ctx context.Context, qrID string) ([]domain.ManualReview, error) {
	ctx, span := tracer.Start(ctx, "Backend.ManualReviews")
	defer span.End()
	span.SetAttributes(attribute.String("qr.id", qrID))

	var reviews []domain.ManualReview

	err := c.execute(ctx, func() error {
		path := fmt.Sprintf("/business_qr/manual_reviews?qr_id=%s", url.QueryEscape(qrID))
		body, status, err := c.doJSON(ctx, http.MethodGet, path, nil)
		if err != nil {
			return err
		}
		if status == http.StatusNotFound {
			reviews = []domain.ManualReview{}
			return nil
		}
		if status < 200 || status >= 300 {
			return fmt.Errorf("manual_reviews returned status %d: %s", status, string(body))
		}

		var rows []reviewRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("failed to decode reviews: %w", err)
		}

		reviews = make([]domain.ManualReview, 0, len(rows))
		for _, r := range rows {
			t, _ := time.Parse(time.RFC3339, r.SubmittedAt)
			reviews = append(reviews, domain.ManualReview{
				ID:           r.ID,
				BusinessID:   r.BusinessID,
				CustomerName: r.CustomerName,
				Rating:       r.Rating,
				Comment:      r.Comment,
				SubmittedAt:  t,
				Status:       r.Status,
			})
		}
		return nil
	})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "backend/manual_reviews", Err: err}
	}

	return reviews, nil
}

package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/tribly/growthqr-bff-go/internal/domain"
	"github.com/tribly/growthqr-bff-go/internal/infra/resilience"
)

type validateResponse struct {
	IsActive bool   `json:"is_active"`
	Code     string `json:"code"`
	CDNURL   string `json:"cdn_url"`
}

// ValidateQR checks a decoded QR payload against the backend. Unknown
// payloads come back as ErrInvalidQR.
func (c *Client) ValidateQR(ctx context.Context, qrData string) (*domain.QRValidation, error) {
	ctx, span := tracer.Start(ctx, "Backend.ValidateQR")
	defer span.End()

	var validation *domain.QRValidation

	err := c.execute(ctx, func() error {
		body, status, err := c.doJSON(ctx, http.MethodPost, "/qr/validate", map[string]any{"qr_data": qrData})
		if err != nil {
			return err
		}
		if status == http.StatusNotFound || status == http.StatusUnprocessableEntity {
			return resilience.Permanent(&domain.ErrInvalidQR{Payload: qrData})
		}
		if status < 200 || status >= 300 {
			return fmt.Errorf("validate returned status %d: %s", status, string(body))
		}

		var resp validateResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return fmt.Errorf("failed to decode validation: %w", err)
		}
		validation = &domain.QRValidation{
			IsActive: resp.IsActive,
			Code:     resp.Code,
			CDNURL:   resp.CDNURL,
		}
		return nil
	})
	if err != nil {
		if invalid, ok := asInvalidQR(err); ok {
			return nil, invalid
		}
		return nil, &domain.ErrExternalService{Service: "backend/qr_validate", Err: err}
	}

	return validation, nil
}

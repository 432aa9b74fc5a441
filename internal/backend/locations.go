package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/tribly/growthqr-bff-go/internal/domain"
	"github.com/tribly/growthqr-bff-go/internal/infra/resilience"

	"go.opentelemetry.io/otel/attribute"
)

type suggestionRow struct {
	PlaceID     string `json:"place_id"`
	Description string `json:"description"`
	MainText    string `json:"main_text"`
	Secondary   string `json:"secondary_text"`
}

type placeDetailsRow struct {
	PlaceID          string  `json:"place_id"`
	Name             string  `json:"name"`
	FormattedAddress string  `json:"formatted_address"`
	City             string  `json:"city"`
	Area             string  `json:"area"`
	PostalCode       string  `json:"postal_code"`
	Phone            string  `json:"phone"`
	Website          string  `json:"website"`
	Rating           float64 `json:"rating"`
	UserRatingsTotal int     `json:"user_ratings_total"`
}

// AutocompletePlaces searches place suggestions for a business-name
// query. An empty result set is not an error.
func (c *Client) AutocompletePlaces(ctx context.Context, query, country string) ([]domain.PlaceSuggestion, error) {
	ctx, span := tracer.Start(ctx, "Backend.AutocompletePlaces")
	defer span.End()
	span.SetAttributes(attribute.String("query", query))

	var suggestions []domain.PlaceSuggestion

	err := c.execute(ctx, func() error {
		path := fmt.Sprintf("/locations/autocomplete?q=%s&country=%s",
			url.QueryEscape(query), url.QueryEscape(country))
		body, status, err := c.doJSON(ctx, http.MethodGet, path, nil)
		if err != nil {
			return err
		}
		if status == http.StatusNotFound {
			suggestions = []domain.PlaceSuggestion{}
			return nil
		}
		if status < 200 || status >= 300 {
			return fmt.Errorf("autocomplete returned status %d: %s", status, string(body))
		}

		var rows []suggestionRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("failed to decode suggestions: %w", err)
		}
		suggestions = make([]domain.PlaceSuggestion, 0, len(rows))
		for _, r := range rows {
			suggestions = append(suggestions, domain.PlaceSuggestion{
				PlaceID:     r.PlaceID,
				Description: r.Description,
				MainText:    r.MainText,
				Secondary:   r.Secondary,
			})
		}
		return nil
	})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "backend/autocomplete", Err: err}
	}

	return suggestions, nil
}

// PlaceDetails resolves a place id to full address and contact detail.
func (c *Client) PlaceDetails(ctx context.Context, placeID string) (*domain.PlaceDetails, error) {
	ctx, span := tracer.Start(ctx, "Backend.PlaceDetails")
	defer span.End()
	span.SetAttributes(attribute.String("place.id", placeID))

	var details *domain.PlaceDetails

	err := c.execute(ctx, func() error {
		path := fmt.Sprintf("/locations/details?place_id=%s", url.QueryEscape(placeID))
		body, status, err := c.doJSON(ctx, http.MethodGet, path, nil)
		if err != nil {
			return err
		}
		if status == http.StatusNotFound {
			return resilience.Permanent(&domain.ErrNotFound{Resource: "place", ID: placeID})
		}
		if status < 200 || status >= 300 {
			return fmt.Errorf("details returned status %d: %s", status, string(body))
		}

		var row placeDetailsRow
		if err := json.Unmarshal(body, &row); err != nil {
			return fmt.Errorf("failed to decode place details: %w", err)
		}
		details = &domain.PlaceDetails{
			PlaceID:          row.PlaceID,
			Name:             row.Name,
			FormattedAddress: row.FormattedAddress,
			City:             row.City,
			Area:             row.Area,
			PostalCode:       row.PostalCode,
			Phone:            row.Phone,
			Website:          row.Website,
			Rating:           row.Rating,
			UserRatingsTotal: row.UserRatingsTotal,
		}
		return nil
	})
	if err != nil {
		if notFound, ok := asNotFound(err); ok {
			return nil, notFound
		}
		return nil, &domain.ErrExternalService{Service: "backend/details", Err: err}
	}

	return details, nil
}

package handler

import (
	"net/http"

	"github.com/tribly/growthqr-bff-go/internal/port"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Places proxy — /v1/locations
// ============================================================

func locationsAutocompleteHandler(places port.PlacesGateway, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/locations/autocomplete")
		defer span.End()

		query := r.URL.Query().Get("q")
		if query == "" {
			writeError(w, http.StatusBadRequest, "q is required")
			return
		}
		country := r.URL.Query().Get("country")
		span.SetAttributes(attribute.String("search.query", query))

		suggestions, err := places.AutocompletePlaces(ctx, query, country)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"suggestions": suggestions})
	}
}

func locationsDetailsHandler(places port.PlacesGateway, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/locations/details")
		defer span.End()

		placeID := r.URL.Query().Get("place_id")
		if placeID == "" {
			writeError(w, http.StatusBadRequest, "place_id is required")
			return
		}
		span.SetAttributes(attribute.String("place.id", placeID))

		details, err := places.PlaceDetails(ctx, placeID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, details)
	}
}

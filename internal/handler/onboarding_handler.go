package handler

import (
	"encoding/json"
	"net/http"

	"github.com/tribly/growthqr-bff-go/internal/domain"
	"github.com/tribly/growthqr-bff-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Sales onboarding wizard — /v1/onboarding
// ============================================================

func onboardingStartHandler(svc *service.Onboarding, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/onboarding")
		defer span.End()

		writeJSON(w, http.StatusCreated, svc.Start(ctx))
	}
}

func onboardingStateHandler(svc *service.Onboarding, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/onboarding/{wizardId}")
		defer span.End()

		state, err := svc.State(ctx, chi.URLParam(r, "wizardId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, state)
	}
}

func onboardingSearchHandler(svc *service.Onboarding, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/onboarding/{wizardId}/search")
		defer span.End()

		query := r.URL.Query().Get("q")
		if query == "" {
			writeError(w, http.StatusBadRequest, "q is required")
			return
		}
		country := r.URL.Query().Get("country")
		span.SetAttributes(attribute.String("search.query", query))

		suggestions, err := svc.Search(ctx, chi.URLParam(r, "wizardId"), query, country)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"suggestions": suggestions})
	}
}

func onboardingSelectPlaceHandler(svc *service.Onboarding, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/onboarding/{wizardId}/place")
		defer span.End()

		var req struct {
			PlaceID      string `json:"place_id"`
			BusinessName string `json:"business_name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.PlaceID == "" && req.BusinessName == "" {
			writeError(w, http.StatusBadRequest, "place_id or business_name is required")
			return
		}

		state, err := svc.SelectPlace(ctx, chi.URLParam(r, "wizardId"), req.PlaceID, req.BusinessName)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, state)
	}
}

func onboardingChoosePlanHandler(svc *service.Onboarding, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/onboarding/{wizardId}/plan")
		defer span.End()

		var req struct {
			PlanID domain.PaymentPlanID `json:"plan_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		state, err := svc.ChoosePlan(ctx, chi.URLParam(r, "wizardId"), req.PlanID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, state)
	}
}

func onboardingAttachQRHandler(svc *service.Onboarding, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/onboarding/{wizardId}/qr")
		defer span.End()

		var assoc domain.QRAssociation
		if err := json.NewDecoder(r.Body).Decode(&assoc); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		state, err := svc.AttachQR(ctx, chi.URLParam(r, "wizardId"), assoc)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, state)
	}
}

func onboardingOpenPaymentHandler(svc *service.Onboarding, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/onboarding/{wizardId}/payment")
		defer span.End()

		state, err := svc.OpenPayment(ctx, chi.URLParam(r, "wizardId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, state)
	}
}

func onboardingSetFieldsHandler(svc *service.Onboarding, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/onboarding/{wizardId}/fields")
		defer span.End()

		var fields map[string]any
		if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		state, err := svc.SetFields(ctx, chi.URLParam(r, "wizardId"), fields)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, state)
	}
}

func onboardingSubmitHandler(svc *service.Onboarding, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/onboarding/{wizardId}/submit")
		defer span.End()

		state, err := svc.Submit(ctx, chi.URLParam(r, "wizardId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, state)
	}
}

func onboardingCloseHandler(svc *service.Onboarding, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "DELETE /v1/onboarding/{wizardId}")
		defer span.End()

		svc.Close(chi.URLParam(r, "wizardId"))
		w.WriteHeader(http.StatusNoContent)
	}
}

// ============================================================
// Standalone profile analysis — POST /v1/gbp/analyze
// ============================================================

func gbpAnalyzeHandler(svc *service.Onboarding, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/gbp/analyze")
		defer span.End()

		var req struct {
			PlaceID      string `json:"place_id"`
			BusinessName string `json:"business_name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		span.SetAttributes(attribute.String("place.id", req.PlaceID))

		analysis, err := svc.Analyze(ctx, req.PlaceID, req.BusinessName)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, analysis)
	}
}

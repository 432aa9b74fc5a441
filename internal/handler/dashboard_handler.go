package handler

import (
	"encoding/json"
	"net/http"

	"github.com/tribly/growthqr-bff-go/internal/domain"
	"github.com/tribly/growthqr-bff-go/internal/merge"
	"github.com/tribly/growthqr-bff-go/internal/service"
	"github.com/tribly/growthqr-bff-go/internal/session"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Settings dashboard — /v1/dashboard
// ============================================================

func dashboardLoadHandler(svc *service.Dashboard, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/dashboard/load")
		defer span.End()

		var req struct {
			QRID string `json:"qr_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.QRID == "" {
			writeError(w, http.StatusBadRequest, "qr_id is required")
			return
		}
		span.SetAttributes(attribute.String("qr.id", req.QRID))

		view, err := svc.Load(ctx, req.QRID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, view)
	}
}

func dashboardViewHandler(svc *service.Dashboard, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/dashboard/{sessionId}")
		defer span.End()

		view, err := svc.View(ctx, chi.URLParam(r, "sessionId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func dashboardEditsHandler(svc *service.Dashboard, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PATCH /v1/dashboard/{sessionId}/edits")
		defer span.End()

		var edits domain.OverrideRecord
		if err := json.NewDecoder(r.Body).Decode(&edits); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		view, err := svc.ApplyEdits(ctx, chi.URLParam(r, "sessionId"), &edits)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func dashboardSaveSectionHandler(svc *service.Dashboard, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/dashboard/{sessionId}/sections/{section}/save")
		defer span.End()

		section := merge.Section(chi.URLParam(r, "section"))
		span.SetAttributes(attribute.String("section", string(section)))

		view, err := svc.SaveSection(ctx, chi.URLParam(r, "sessionId"), section)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func dashboardNavigateHandler(svc *service.Dashboard, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/dashboard/{sessionId}/navigate")
		defer span.End()

		var nav session.Navigation
		if err := json.NewDecoder(r.Body).Decode(&nav); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		view, err := svc.Navigate(ctx, chi.URLParam(r, "sessionId"), nav)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func dashboardResolveGuardHandler(svc *service.Dashboard, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/dashboard/{sessionId}/guard/resolve")
		defer span.End()

		var req struct {
			Resolution string `json:"resolution"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		span.SetAttributes(attribute.String("resolution", req.Resolution))

		result, err := svc.ResolveGuard(ctx, chi.URLParam(r, "sessionId"), req.Resolution)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func dashboardReviewsHandler(svc *service.Dashboard, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/dashboard/{sessionId}/reviews")
		defer span.End()

		reviews, err := svc.Reviews(ctx, chi.URLParam(r, "sessionId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"reviews": reviews})
	}
}

func dashboardCloseHandler(svc *service.Dashboard, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/dashboard/{sessionId}")
		defer span.End()

		svc.Close(ctx, chi.URLParam(r, "sessionId"))
		w.WriteHeader(http.StatusNoContent)
	}
}

package handler

import (
	"encoding/json"
	"net/http"

	"github.com/tribly/growthqr-bff-go/internal/domain"
	"github.com/tribly/growthqr-bff-go/internal/payment"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Payment sessions — /v1/payments
// ============================================================

func paymentPlansHandler(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"plans": payment.Plans()})
	}
}

func paymentOpenHandler(payments *payment.Manager, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "POST /v1/payments")
		defer span.End()

		var req struct {
			BusinessID   string               `json:"business_id"`
			BusinessName string               `json:"business_name"`
			PlanID       domain.PaymentPlanID `json:"plan_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.BusinessID == "" {
			writeError(w, http.StatusBadRequest, "business_id is required")
			return
		}
		span.SetAttributes(
			attribute.String("business.id", req.BusinessID),
			attribute.String("plan.id", string(req.PlanID)),
		)

		sess, err := payments.Open(req.BusinessID, req.BusinessName, req.PlanID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, sess)
	}
}

func paymentStatusHandler(payments *payment.Manager, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "GET /v1/payments/{paymentId}")
		defer span.End()

		sess, err := payments.Get(chi.URLParam(r, "paymentId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, sess)
	}
}

func paymentRetryHandler(payments *payment.Manager, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "POST /v1/payments/{paymentId}/retry")
		defer span.End()

		sess, err := payments.Retry(chi.URLParam(r, "paymentId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, sess)
	}
}

func paymentReceiptHandler(payments *payment.Manager, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "GET /v1/payments/{paymentId}/receipt")
		defer span.End()

		receipt, err := payments.Receipt(chi.URLParam(r, "paymentId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, receipt)
	}
}

func paymentCloseHandler(payments *payment.Manager, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "DELETE /v1/payments/{paymentId}")
		defer span.End()

		force := r.URL.Query().Get("force") == "true"
		if err := payments.Close(chi.URLParam(r, "paymentId"), force); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

package handler

import (
	"encoding/json"
	"net/http"

	"github.com/tribly/growthqr-bff-go/internal/qr"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// QR association flow — /v1/qr/flows
// ============================================================

type qrFlowResponse struct {
	ID     string                `json:"id"`
	State  qr.State              `json:"state"`
	Reason string                `json:"reason,omitempty"`
	Result *qrFlowResultResponse `json:"result,omitempty"`
}

type qrFlowResultResponse struct {
	Code     string `json:"code"`
	ImageURL string `json:"image_url"`
}

func flowResponse(f *qr.Flow) qrFlowResponse {
	resp := qrFlowResponse{
		ID:     f.ID,
		State:  f.State(),
		Reason: f.Reason(),
	}
	if assoc, ok := f.Result(); ok {
		resp.Result = &qrFlowResultResponse{Code: assoc.Code, ImageURL: assoc.ImageURL}
	}
	return resp
}

func qrFlowStartHandler(flows *qr.Manager, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "POST /v1/qr/flows")
		defer span.End()

		f := flows.Start()
		span.SetAttributes(attribute.String("flow.id", f.ID))
		writeJSON(w, http.StatusCreated, flowResponse(f))
	}
}

func qrFlowStateHandler(flows *qr.Manager, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "GET /v1/qr/flows/{flowId}")
		defer span.End()

		f, err := flows.Get(chi.URLParam(r, "flowId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, flowResponse(f))
	}
}

func qrFlowSubmitHandler(flows *qr.Manager, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/qr/flows/{flowId}/payload")
		defer span.End()

		var req struct {
			Payload     string `json:"payload"`
			FallbackRef string `json:"fallback_ref"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Payload == "" {
			writeError(w, http.StatusBadRequest, "payload is required")
			return
		}

		f, err := flows.Get(chi.URLParam(r, "flowId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		if _, err := f.Submit(ctx, req.Payload, req.FallbackRef); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, flowResponse(f))
	}
}

func qrFlowCancelHandler(flows *qr.Manager, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "POST /v1/qr/flows/{flowId}/cancel")
		defer span.End()

		f, err := flows.Get(chi.URLParam(r, "flowId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		f.Cancel()
		writeJSON(w, http.StatusOK, flowResponse(f))
	}
}

func qrFlowRestartHandler(flows *qr.Manager, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "POST /v1/qr/flows/{flowId}/restart")
		defer span.End()

		f, err := flows.Get(chi.URLParam(r, "flowId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		f.Restart()
		writeJSON(w, http.StatusOK, flowResponse(f))
	}
}

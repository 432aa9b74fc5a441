package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tribly/growthqr-bff-go/internal/domain"

	"go.uber.org/zap"
)

// ============================================================
// Shared helper functions
// ============================================================

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// handleServiceError maps domain errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var notFound *domain.ErrNotFound
	var circuitOpen *domain.ErrCircuitOpen
	var timeout *domain.ErrTimeout
	var external *domain.ErrExternalService
	var validation *domain.ErrValidation
	var invalidQR *domain.ErrInvalidQR
	var noPlan *domain.ErrNoPlan
	var paymentPending *domain.ErrPaymentPending
	var sessionExpired *domain.ErrSessionExpired
	var unsaved *domain.ErrUnsavedChanges
	var unauthorized *domain.ErrUnauthorized
	var forbidden *domain.ErrForbidden
	var conflict *domain.ErrConflict
	var stale *domain.ErrStaleQuery

	switch {
	case errors.As(err, &notFound):
		logger.Debug("not found", zap.String("error", err.Error()))
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &validation):
		logger.Debug("validation error", zap.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &invalidQR):
		logger.Debug("invalid QR payload", zap.String("error", err.Error()))
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &noPlan):
		logger.Debug("no plan selected")
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &paymentPending):
		logger.Debug("payment still pending", zap.String("session_id", paymentPending.SessionID))
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &sessionExpired):
		logger.Debug("session expired", zap.String("session_id", sessionExpired.SessionID))
		writeError(w, http.StatusGone, err.Error())
	case errors.As(err, &unsaved):
		logger.Debug("navigation blocked by unsaved changes", zap.Strings("sections", unsaved.Sections))
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &stale):
		logger.Debug("stale query discarded", zap.String("query", stale.Query))
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &unauthorized):
		logger.Warn("unauthorized", zap.String("error", err.Error()))
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.As(err, &forbidden):
		logger.Warn("forbidden access", zap.String("error", err.Error()))
		writeError(w, http.StatusForbidden, err.Error())
	case errors.As(err, &conflict):
		logger.Debug("conflict", zap.String("error", err.Error()))
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &circuitOpen):
		logger.Error("circuit breaker open", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &timeout):
		logger.Error("request timeout", zap.Error(err))
		writeError(w, http.StatusGatewayTimeout, err.Error())
	case errors.As(err, &external):
		logger.Error("upstream failure", zap.Error(err))
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		logger.Error("unhandled error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

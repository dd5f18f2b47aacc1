package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"peer-jury/internal/service"
)

// handleServiceError translates service sentinel errors into HTTP responses.
// Unknown errors are logged and answered with a generic 500.
func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrNotFound):
		respondWithError(w, http.StatusNotFound, ErrMsgNotFound)
	case errors.Is(err, service.ErrNotOwner), errors.Is(err, service.ErrNotEvaluator):
		respondWithError(w, http.StatusForbidden, ErrMsgPermissionDenied)
	case errors.Is(err, service.ErrInvalidState),
		errors.Is(err, service.ErrDeadlinePassed),
		errors.Is(err, service.ErrJuryAlreadySelected),
		errors.Is(err, service.ErrInsufficientEvaluators),
		errors.Is(err, service.ErrGradingClosed):
		respondWithError(w, http.StatusConflict, err.Error())
	default:
		slog.Error("Unexpected service error", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}

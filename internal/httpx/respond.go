package httpx

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/kfujiwara/orderdesk/internal/domain"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

func WriteJSON(w http.ResponseWriter, logger *slog.Logger, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

func WriteError(w http.ResponseWriter, logger *slog.Logger, status int, message string) {
	WriteJSON(w, logger, status, ErrorResponse{Error: message})
}

// WriteDomainError maps the typed error taxonomy to status codes: not-found
// to 404, uniqueness and dependency conflicts to 409, state violations to
// 400, and anything else to an opaque 500. The original error is logged in
// full before the opaque response is written.
func WriteDomainError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var notFound *domain.NotFoundError
	if errors.As(err, &notFound) {
		WriteError(w, logger, http.StatusNotFound, notFound.Error())
		return
	}

	var unique *domain.UniquenessConflictError
	if errors.As(err, &unique) {
		WriteError(w, logger, http.StatusConflict, unique.Error())
		return
	}

	var dependency *domain.DependencyConflictError
	if errors.As(err, &dependency) {
		WriteError(w, logger, http.StatusConflict, dependency.Error())
		return
	}

	var terminal *domain.TerminalStateError
	if errors.As(err, &terminal) {
		WriteError(w, logger, http.StatusBadRequest, terminal.Error())
		return
	}

	var transition *domain.InvalidTransitionError
	if errors.As(err, &transition) {
		WriteError(w, logger, http.StatusBadRequest, transition.Error())
		return
	}

	var refund *domain.InvalidStateForRefundError
	if errors.As(err, &refund) {
		WriteError(w, logger, http.StatusBadRequest, refund.Error())
		return
	}

	logger.Error("unexpected error", "error", err)
	WriteError(w, logger, http.StatusInternalServerError, "internal server error")
}

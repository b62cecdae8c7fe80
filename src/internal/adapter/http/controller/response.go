package controller

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/api-sage/account-ledger/src/internal/commons"
	"github.com/api-sage/account-ledger/src/internal/domain"
	"github.com/api-sage/account-ledger/src/internal/logger"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respond[T any](w http.ResponseWriter, r *http.Request, status int, response commons.Response[T], start time.Time) {
	writeJSON(w, status, response)
	logResponse(r, status, response, start)
}

// respondError renders a service failure. Persistence faults get a generic
// message so driver details never reach the caller.
func respondError[T any](w http.ResponseWriter, r *http.Request, err error, start time.Time) {
	status := statusFor(err)
	logError(r, err, logger.Fields{
		"status": status,
		"kind":   domain.ErrorKind(err),
	})

	var response commons.Response[T]
	switch {
	case errors.Is(err, domain.ErrValidation):
		response = commons.ErrorResponse[T](commons.MessageValidationFailed, err.Error())
	case status == http.StatusInternalServerError:
		response = commons.ErrorResponse[T](commons.MessageInternalError)
	default:
		response = commons.ErrorResponse[T](err.Error())
	}
	respond(w, r, status, response, start)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrSameAccount):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrAccountNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInactiveAccount),
		errors.Is(err, domain.ErrNonZeroBalance):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInsufficientFunds),
		errors.Is(err, domain.ErrBalanceLimit):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody[T any, R any](w http.ResponseWriter, r *http.Request, req *T, start time.Time) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		logError(r, err, logger.Fields{"status": http.StatusBadRequest})
		respond(w, r, http.StatusBadRequest, commons.ErrorResponse[R](commons.MessageInvalidBody, err.Error()), start)
		return false
	}
	logRequest(r, *req)
	return true
}

func wrap(handler http.HandlerFunc, authMiddleware func(http.Handler) http.Handler) http.Handler {
	if authMiddleware == nil {
		return handler
	}
	return authMiddleware(handler)
}

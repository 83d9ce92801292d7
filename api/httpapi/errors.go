package httpapi

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"chronoguess/core"
)

// statusFor maps engine errors to HTTP status codes and stable error codes.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, core.ErrSessionNotFound), errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, core.ErrInvalidState):
		return http.StatusConflict, "invalid_state"
	case errors.Is(err, core.ErrInvalidRoundIndex):
		return http.StatusBadRequest, "invalid_round"
	case errors.Is(err, core.ErrHintUnavailable):
		return http.StatusBadRequest, "hint_unavailable"
	case errors.Is(err, core.ErrHintAlreadyUsed):
		return http.StatusBadRequest, "hint_already_used"
	case errors.Is(err, core.ErrUnknownHint):
		return http.StatusBadRequest, "unknown_hint"
	case errors.Is(err, core.ErrMissingGuess):
		return http.StatusBadRequest, "missing_guess"
	case errors.Is(err, core.ErrInsufficientContent):
		return http.StatusServiceUnavailable, "insufficient_content"
	case errors.Is(err, core.ErrPersistence):
		return http.StatusServiceUnavailable, "persistence_failure"
	}
	return http.StatusInternalServerError, "internal"
}

func (a *api) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		a.logger.Error("request failed",
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"error", err,
		)
	}
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	writeError(w, status, code, msg, nil)
}

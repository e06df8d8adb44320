package api

import (
	"database/sql"
	"errors"
	"net/http"

	"pollbox/internal/domain/poll"
	"pollbox/internal/domain/user"
	"pollbox/internal/domain/vote"
	"pollbox/internal/platform/apperr"
)

func errorResponse(w http.ResponseWriter, err error) {
	appErr := mapError(err)
	writeJSON(w, appErr.StatusCode(), map[string]string{
		"error":   appErr.Code,
		"message": appErr.Message,
	})
}

func mapError(err error) *apperr.AppError {
	if err == nil {
		return apperr.Internal("internal_error", "internal server error", nil)
	}

	var appErr *apperr.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	switch {
	// sql.ErrNoRows and invisible private polls share one answer on
	// purpose: callers must not be able to probe for private polls.
	case errors.Is(err, sql.ErrNoRows), errors.Is(err, poll.ErrPollNotFound):
		return apperr.NotFound("not_found", "poll not found", err)
	case errors.Is(err, poll.ErrNotCreator):
		return apperr.Forbidden("forbidden", "only the creator may modify this poll", err)
	case errors.Is(err, poll.ErrTitleRequired),
		errors.Is(err, poll.ErrInvalidOptionCount),
		errors.Is(err, poll.ErrEmptyOptionText),
		errors.Is(err, poll.ErrInvalidStatus):
		return apperr.BadRequest("validation_error", err.Error(), err)
	case errors.Is(err, vote.ErrPollExpired):
		return apperr.BadRequest("poll_expired", "this poll has expired", err)
	case errors.Is(err, vote.ErrOptionNotInPoll):
		return apperr.BadRequest("invalid_option", "option does not belong to poll", err)
	case errors.Is(err, vote.ErrIdentityRequired):
		return apperr.Unauthorized("authentication_required", "no identity available for voting", err)
	case errors.Is(err, user.ErrInvalidCredentials):
		return apperr.Unauthorized("invalid_credentials", "invalid credentials", err)
	case errors.Is(err, user.ErrUsernameTaken):
		return apperr.BadRequest("username_taken", "username already taken", err)
	case errors.Is(err, user.ErrEmailTaken):
		return apperr.BadRequest("email_taken", "email already taken", err)
	case errors.Is(err, user.ErrPasswordMismatch):
		return apperr.BadRequest("validation_error", "passwords don't match", err)
	case errors.Is(err, user.ErrFieldsRequired):
		return apperr.BadRequest("validation_error", err.Error(), err)
	default:
		return apperr.Internal("internal_error", http.StatusText(http.StatusInternalServerError), err)
	}
}

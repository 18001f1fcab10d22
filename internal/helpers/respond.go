package helpers

import (
	"errors"
	"net/http"

	"github.com/joshua-takyi/campus-events/internal/models"
)

// StatusFor maps a service error to its HTTP status.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, models.ErrInvalidFilter),
		errors.Is(err, models.ErrInvalidEvent),
		errors.Is(err, models.ErrInvalidReport),
		errors.Is(err, ErrImageTooLarge),
		errors.Is(err, ErrNotAnImage),
		errors.Is(err, ErrEmptyImage):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, models.ErrOwnerCannotReport), errors.Is(err, models.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrDuplicateReport), errors.Is(err, models.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, models.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// PublicMessage is the message safe to return to a client. Store and
// unexpected failures are not described.
func PublicMessage(err error) string {
	switch StatusFor(err) {
	case http.StatusServiceUnavailable:
		return "service temporarily unavailable"
	case http.StatusInternalServerError:
		return "internal server error"
	}
	return err.Error()
}

package helpers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/joshua-takyi/campus-events/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{fmt.Errorf("%w: bad date", models.ErrInvalidFilter), http.StatusBadRequest},
		{fmt.Errorf("%w: %w", models.ErrInvalidEvent, ErrNotAnImage), http.StatusBadRequest},
		{ErrImageTooLarge, http.StatusBadRequest},
		{models.ErrInvalidReport, http.StatusBadRequest},
		{models.ErrUnauthorized, http.StatusUnauthorized},
		{models.ErrOwnerCannotReport, http.StatusForbidden},
		{fmt.Errorf("%w: admin role required", models.ErrForbidden), http.StatusForbidden},
		{fmt.Errorf("event x: %w", models.ErrNotFound), http.StatusNotFound},
		{models.ErrDuplicateReport, http.StatusConflict},
		{models.ErrInvalidTransition, http.StatusConflict},
		{fmt.Errorf("query: %w: %w", models.ErrStoreUnavailable, errors.New("dial tcp")), http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFor(tt.err), "%v", tt.err)
	}
}

func TestPublicMessageHidesInternals(t *testing.T) {
	storeErr := fmt.Errorf("query events: %w: %w", models.ErrStoreUnavailable, errors.New("dial tcp 10.0.0.3:27017"))
	assert.Equal(t, "service temporarily unavailable", PublicMessage(storeErr))
	assert.Equal(t, "internal server error", PublicMessage(errors.New("nil map write")))
	assert.Equal(t, models.ErrDuplicateReport.Error(), PublicMessage(models.ErrDuplicateReport))
}

package api

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/videogen/genqueue/internal/admission"
	"github.com/videogen/genqueue/internal/outputs"
	"github.com/videogen/genqueue/internal/queue"
	"github.com/videogen/genqueue/internal/registry"
)

// statusCode maps domain errors to HTTP status codes so handlers never leak
// internal error classes through the wrong status.
func statusCode(err error) int {
	var verr validator.ValidationErrors

	switch {
	case errors.As(err, &verr),
		errors.Is(err, admission.ErrInvalidImage),
		errors.Is(err, admission.ErrNoModelSpecified),
		errors.Is(err, queue.ErrCannotRemoveProcessing):
		return http.StatusBadRequest

	case errors.Is(err, queue.ErrNotFound),
		errors.Is(err, registry.ErrModelNotFound),
		errors.Is(err, outputs.ErrFileNotFound):
		return http.StatusNotFound

	case errors.Is(err, registry.ErrSettingsUnavailable):
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}

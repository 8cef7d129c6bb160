package channels

import (
	"errors"
	"net/http"

	"github.com/mobby57/memoLib-sub019/internal/pipeline"
	"github.com/mobby57/memoLib-sub019/pkg/handlers"
)

var (
	// ErrInvalidPayload indicates a webhook body that does not match its channel shape.
	ErrInvalidPayload = errors.New("invalid payload")
	// ErrBatchTooLarge indicates a batch with more items than allowed.
	ErrBatchTooLarge = errors.New("batch too large")
)

// MapHTTPStatus maps channel and pipeline errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrInvalidPayload), errors.Is(err, handlers.ErrInvalidBody):
		return http.StatusBadRequest
	case errors.Is(err, ErrBatchTooLarge):
		return http.StatusRequestEntityTooLarge
	default:
		return pipeline.MapHTTPStatus(err)
	}
}

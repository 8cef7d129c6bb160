package pipeline

import (
	"errors"
	"net/http"

	"github.com/mobby57/memoLib-sub019/internal/units"
)

// Pipeline errors. ErrClassifierUnavailable and ErrAnalysisFailed are
// recorded as escalation reasons rather than returned to callers.
var (
	ErrInvalidCommand        = errors.New("invalid command")
	ErrInvalidTransition     = errors.New("invalid status transition")
	ErrAuditWriteFailed      = errors.New("audit write failed, transition rolled back")
	ErrResolutionRejected    = errors.New("resolution rejected")
	ErrClassifierUnavailable = errors.New("classifier unavailable")
	ErrAnalysisFailed        = errors.New("analysis failed")
)

// MapHTTPStatus maps pipeline and unit errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrInvalidCommand):
		return http.StatusBadRequest
	case errors.Is(err, ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, ErrResolutionRejected):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrAuditWriteFailed):
		return http.StatusServiceUnavailable
	default:
		return units.MapHTTPStatus(err)
	}
}

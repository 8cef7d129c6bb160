package audit

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/mobby57/memoLib-sub019/pkg/handlers"
	"github.com/mobby57/memoLib-sub019/pkg/routes"
)

// StatusFunc returns a unit's current status. It returns ErrNotFound when
// the tenant has no such unit.
type StatusFunc func(ctx context.Context, tenantID string, unitID uuid.UUID) (string, error)

// Handler provides HTTP endpoints for audit trails.
type Handler struct {
	sys    System
	status StatusFunc
	logger *slog.Logger
}

// NewHandler creates a Handler.
func NewHandler(sys System, logger *slog.Logger) *Handler {
	return &Handler{
		sys:    sys,
		logger: logger.With("handler", "audit"),
	}
}

// WithStatus makes Trail also require the newest event to match the unit's
// current status.
func (h *Handler) WithStatus(fn StatusFunc) *Handler {
	h.status = fn
	return h
}

// Routes returns the route group for audit endpoints, nested under a tenant prefix.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/units/{id}/audit",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.Trail},
		},
	}
}

// Trail returns a unit's events ordered by seq with the chain verification result.
func (h *Handler) Trail(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrNotFound)
		return
	}

	trail, err := h.sys.Trail(r.Context(), r.PathValue("tenant"), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	if h.status != nil {
		current, err := h.status(r.Context(), r.PathValue("tenant"), id)
		if err != nil {
			handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
			return
		}
		trail.Verification = VerifyHead(trail.Events, trail.Verification, current)
	}

	if !trail.Verified {
		h.logger.Error("audit chain verification failed",
			"tenant_id", r.PathValue("tenant"),
			"unit_id", id,
			"broken_at", *trail.BrokenAt,
		)
	}

	handlers.RespondJSON(w, http.StatusOK, trail)
}

package pipeline

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/mobby57/memoLib-sub019/internal/units"
	"github.com/mobby57/memoLib-sub019/pkg/auth"
	"github.com/mobby57/memoLib-sub019/pkg/handlers"
	"github.com/mobby57/memoLib-sub019/pkg/routes"
)

const maxResolveBody = 1 << 20

// Handler provides the review endpoint.
type Handler struct {
	ctrl     *Controller
	verifier auth.Verifier
	logger   *slog.Logger
}

// NewHandler creates a Handler. When verifier is nil the actor is taken from
// the request body; otherwise a verified bearer token is required and its
// identity is the actor.
func NewHandler(ctrl *Controller, verifier auth.Verifier, logger *slog.Logger) *Handler {
	return &Handler{
		ctrl:     ctrl,
		verifier: verifier,
		logger:   logger.With("handler", "pipeline"),
	}
}

// Routes returns the route group for review endpoints, nested under a tenant prefix.
func (h *Handler) Routes() routes.Group {
	group := routes.Group{
		Prefix: "/units/{id}",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "/resolve", Handler: h.Resolve},
		},
	}
	if h.verifier != nil {
		group.Middleware = append(group.Middleware, auth.Middleware(h.verifier, h.logger))
	}
	return group
}

// Resolve applies a reviewer decision to a unit in the review queue.
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, units.ErrInvalidID)
		return
	}

	cmd, err := handlers.DecodeJSON[ResolveCommand](w, r, maxResolveBody)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	if identity, ok := auth.IdentityFrom(r.Context()); ok {
		cmd.Actor = identity.Actor()
	}

	u, err := h.ctrl.Resolve(r.Context(), r.PathValue("tenant"), id, cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, u)
}

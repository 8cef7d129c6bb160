package units

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/mobby57/memoLib-sub019/pkg/handlers"
	"github.com/mobby57/memoLib-sub019/pkg/pagination"
	"github.com/mobby57/memoLib-sub019/pkg/routes"
	"github.com/mobby57/memoLib-sub019/pkg/storage"
)

// Handler provides HTTP endpoints for unit queries. Routes are tenant scoped
// through the {tenant} path value of the enclosing group.
type Handler struct {
	sys        System
	storage    storage.System
	logger     *slog.Logger
	pagination pagination.Config
}

// NewHandler creates a Handler. storage may be nil, in which case raw
// payloads are always served from the stored copy.
func NewHandler(
	sys System,
	storage storage.System,
	logger *slog.Logger,
	pagination pagination.Config,
) *Handler {
	return &Handler{
		sys:        sys,
		storage:    storage,
		logger:     logger.With("handler", "units"),
		pagination: pagination,
	}
}

// Routes returns the route group definition for unit endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/units",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List},
			{Method: "GET", Pattern: "/review", Handler: h.Review},
			{Method: "GET", Pattern: "/{id}", Handler: h.Find},
			{Method: "GET", Pattern: "/{id}/raw", Handler: h.Raw},
		},
	}
}

// List returns a paginated list of the tenant's units with optional filters.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)
	filters := FiltersFromQuery(r.URL.Query())

	result, err := h.sys.List(r.Context(), r.PathValue("tenant"), page, filters)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Review returns the tenant's review queue, oldest first.
func (h *Handler) Review(w http.ResponseWriter, r *http.Request) {
	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)

	result, err := h.sys.ReviewQueue(r.Context(), r.PathValue("tenant"), page)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Find returns a single unit.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	u, ok := h.find(w, r)
	if !ok {
		return
	}
	handlers.RespondJSON(w, http.StatusOK, u)
}

// Raw streams the unit's original payload, preferring the archived copy.
func (h *Handler) Raw(w http.ResponseWriter, r *http.Request) {
	u, ok := h.find(w, r)
	if !ok {
		return
	}

	var body io.Reader = bytes.NewReader(u.RawPayload)
	if h.storage != nil && u.StorageKey != "" {
		rc, err := h.storage.Download(r.Context(), u.StorageKey)
		if err != nil {
			h.logger.Warn("archived payload unavailable, serving stored copy",
				"unit_id", u.ID, "key", u.StorageKey, "error", err)
		} else {
			defer rc.Close()
			body = rc
		}
	}

	w.Header().Set("Content-Type", http.DetectContentType(u.RawPayload))
	w.Header().Set("X-Checksum", u.Checksum)
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		h.logger.Error("write raw payload failed", "unit_id", u.ID, "error", err)
	}
}

func (h *Handler) find(w http.ResponseWriter, r *http.Request) (*Unit, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidID)
		return nil, false
	}

	u, err := h.sys.Find(r.Context(), r.PathValue("tenant"), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return nil, false
	}
	return u, true
}

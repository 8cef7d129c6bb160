package channels

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/mobby57/memoLib-sub019/internal/units"
	"github.com/mobby57/memoLib-sub019/pkg/handlers"
	"github.com/mobby57/memoLib-sub019/pkg/routes"
)

// HeaderMessageID carries the external message id for payloads without one.
const HeaderMessageID = "X-Message-ID"

// Handler provides the webhook endpoints.
type Handler struct {
	ingestor   *Ingestor
	logger     *slog.Logger
	maxPayload int64
}

// NewHandler creates a Handler. maxPayload bounds a single request body.
func NewHandler(ingestor *Ingestor, logger *slog.Logger, maxPayload int64) *Handler {
	return &Handler{
		ingestor:   ingestor,
		logger:     logger.With("handler", "channels"),
		maxPayload: maxPayload,
	}
}

// Routes returns the route group for webhook endpoints, nested under a tenant prefix.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/channels",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "/{source}", Handler: h.Ingest},
			{Method: "POST", Pattern: "/{source}/batch", Handler: h.Batch},
		},
	}
}

// Ingest accepts one webhook payload. It answers 201 for a new unit and 200
// when the message was already ingested.
func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	source, err := units.ParseSource(r.PathValue("source"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, fmt.Errorf("%w: %w", ErrInvalidPayload, err))
		return
	}

	raw, err := handlers.ReadBody(w, r, h.maxPayload)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusRequestEntityTooLarge, err)
		return
	}

	result, err := h.ingestor.Ingest(r.Context(), r.PathValue("tenant"), source, raw, r.Header.Get(HeaderMessageID))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	status := http.StatusCreated
	if result.Duplicate {
		status = http.StatusOK
	}
	handlers.RespondJSON(w, status, result)
}

// Batch accepts a JSON array of payloads of one source and reports a result per item.
func (h *Handler) Batch(w http.ResponseWriter, r *http.Request) {
	source, err := units.ParseSource(r.PathValue("source"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, fmt.Errorf("%w: %w", ErrInvalidPayload, err))
		return
	}

	items, err := handlers.DecodeJSON[[]json.RawMessage](w, r, h.maxPayload)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	result, err := h.ingestor.IngestBatch(r.Context(), r.PathValue("tenant"), source, items)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

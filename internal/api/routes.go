package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/mobby57/memoLib-sub019/internal/audit"
	"github.com/mobby57/memoLib-sub019/internal/channels"
	"github.com/mobby57/memoLib-sub019/internal/config"
	"github.com/mobby57/memoLib-sub019/internal/pipeline"
	"github.com/mobby57/memoLib-sub019/internal/units"
	"github.com/mobby57/memoLib-sub019/pkg/routes"
)

func registerRoutes(
	mux *http.ServeMux,
	domain *Domain,
	cfg *config.Config,
	runtime *Runtime,
) {
	routes.Register(mux, routes.Group{
		Prefix: "/tenants/{tenant}",
		Children: []routes.Group{
			domain.Units.Handler().Routes(),
			domain.Audit.Handler().WithStatus(unitStatus(domain.Units)).Routes(),
			pipeline.NewHandler(domain.Pipeline, runtime.Verifier, runtime.Logger).Routes(),
			channels.NewHandler(domain.Ingestor, runtime.Logger, cfg.Channels.MaxPayloadBytes()).Routes(),
		},
	})
}

// unitStatus lets the audit trail check its newest event against the store.
func unitStatus(store units.Store) audit.StatusFunc {
	return func(ctx context.Context, tenantID string, unitID uuid.UUID) (string, error) {
		u, err := store.Find(ctx, tenantID, unitID)
		if errors.Is(err, units.ErrNotFound) {
			return "", audit.ErrNotFound
		}
		if err != nil {
			return "", err
		}
		return string(u.Status), nil
	}
}

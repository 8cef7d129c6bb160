package channels

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/mobby57/memoLib-sub019/internal/units"
	"github.com/mobby57/memoLib-sub019/pkg/storage"
)

// Archive stores raw webhook bodies under content-addressed keys so that a
// redelivered message maps to the blob already written.
type Archive struct {
	blobs  storage.System
	flight singleflight.Group
	logger *slog.Logger
}

// NewArchive creates an Archive over blobs. A nil blobs disables archiving.
func NewArchive(blobs storage.System, logger *slog.Logger) *Archive {
	return &Archive{
		blobs:  blobs,
		logger: logger.With("system", "archive"),
	}
}

// Key returns the blob key for raw: raw/<tenant>/<source>/<sha256>.
func Key(tenantID string, source units.Source, raw []byte) string {
	return fmt.Sprintf("raw/%s/%s/%s",
		url.PathEscape(tenantID),
		strings.ToLower(string(source)),
		units.PayloadChecksum(raw),
	)
}

// Store uploads raw unless a blob with the same key exists and returns the
// key. Concurrent calls for the same key share one upload.
func (a *Archive) Store(ctx context.Context, tenantID string, source units.Source, raw []byte) (string, error) {
	if a == nil || a.blobs == nil {
		return "", nil
	}

	key := Key(tenantID, source, raw)
	_, err, _ := a.flight.Do(key, func() (any, error) {
		exists, err := a.blobs.Exists(ctx, key)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, nil
		}
		if err := a.blobs.Upload(ctx, key, bytes.NewReader(raw), "application/json"); err != nil {
			return nil, err
		}
		a.logger.DebugContext(ctx, "raw payload archived", "key", key, "size", len(raw))
		return nil, nil
	})
	if err != nil {
		return "", fmt.Errorf("archive raw payload: %w", err)
	}
	return key, nil
}

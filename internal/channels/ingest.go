// Package channels turns webhook deliveries from each inbound channel into
// pipeline submissions.
package channels

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/mobby57/memoLib-sub019/internal/pipeline"
	"github.com/mobby57/memoLib-sub019/internal/units"
)

// Submitter accepts normalized messages. *pipeline.Controller satisfies it.
type Submitter interface {
	Submit(ctx context.Context, cmd pipeline.SubmitCommand) (*pipeline.Result, error)
}

// Ingestor validates, archives, and submits webhook payloads.
type Ingestor struct {
	submitter   Submitter
	archive     *Archive
	maxBatch    int
	concurrency int
	logger      *slog.Logger
}

// NewIngestor creates an Ingestor. archive may be nil.
func NewIngestor(submitter Submitter, archive *Archive, cfg *Config, logger *slog.Logger) *Ingestor {
	return &Ingestor{
		submitter:   submitter,
		archive:     archive,
		maxBatch:    cfg.MaxBatch,
		concurrency: cfg.BatchConcurrency,
		logger:      logger.With("system", "channels"),
	}
}

// Ingest submits one payload for tenantID.
func (i *Ingestor) Ingest(ctx context.Context, tenantID string, source units.Source, raw []byte, headerID string) (*pipeline.Result, error) {
	msg, err := Normalize(source, raw, headerID)
	if err != nil {
		return nil, err
	}

	key, err := i.archive.Store(ctx, tenantID, source, raw)
	if err != nil {
		return nil, err
	}

	return i.submitter.Submit(ctx, pipeline.SubmitCommand{
		TenantID:   tenantID,
		ExternalID: msg.ExternalID,
		Source:     msg.Source,
		Raw:        raw,
		Content:    msg.Content,
		StorageKey: key,
	})
}

// ItemResult is the outcome of one batch item.
type ItemResult struct {
	Index     int          `json:"index"`
	UnitID    *uuid.UUID   `json:"unit_id,omitempty"`
	Status    units.Status `json:"status,omitempty"`
	Duplicate bool         `json:"duplicate"`
	Error     string       `json:"error,omitempty"`
}

// BatchResult summarizes a batch.
type BatchResult struct {
	Results    []ItemResult `json:"results"`
	Created    int          `json:"created"`
	Duplicates int          `json:"duplicates"`
	Failed     int          `json:"failed"`
}

// IngestBatch submits each item independently with bounded concurrency.
// A failing item is reported in its result and does not stop the others.
func (i *Ingestor) IngestBatch(ctx context.Context, tenantID string, source units.Source, items []json.RawMessage) (*BatchResult, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: empty batch", ErrInvalidPayload)
	}
	if len(items) > i.maxBatch {
		return nil, fmt.Errorf("%w: %d items, limit %d", ErrBatchTooLarge, len(items), i.maxBatch)
	}

	results := make([]ItemResult, len(items))

	var g errgroup.Group
	g.SetLimit(i.concurrency)

	for idx, item := range items {
		g.Go(func() error {
			r := ItemResult{Index: idx}
			res, err := i.Ingest(ctx, tenantID, source, item, "")
			if res != nil && res.Unit != nil {
				r.UnitID = &res.Unit.ID
				r.Status = res.Unit.Status
				r.Duplicate = res.Duplicate
			}
			if err != nil {
				r.Error = err.Error()
				i.logger.WarnContext(ctx, "batch item failed", "tenant_id", tenantID, "index", idx, "error", err)
			}
			results[idx] = r
			return nil
		})
	}
	g.Wait()

	out := &BatchResult{Results: results}
	for _, r := range results {
		switch {
		case r.Error != "":
			out.Failed++
		case r.Duplicate:
			out.Duplicates++
		default:
			out.Created++
		}
	}
	return out, nil
}

package channels_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mobby57/memoLib-sub019/internal/analyze"
	"github.com/mobby57/memoLib-sub019/internal/audit"
	"github.com/mobby57/memoLib-sub019/internal/channels"
	"github.com/mobby57/memoLib-sub019/internal/classify"
	"github.com/mobby57/memoLib-sub019/internal/pipeline"
	"github.com/mobby57/memoLib-sub019/internal/units"
	"github.com/mobby57/memoLib-sub019/pkg/pagination"
	"github.com/mobby57/memoLib-sub019/pkg/retry"
	"github.com/mobby57/memoLib-sub019/pkg/storage"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type env struct {
	store    *units.Memory
	blobs    *storage.Memory
	ingestor *channels.Ingestor
}

func newEnv(cfg channels.Config) env {
	logger := discard()
	blobs := storage.NewMemory()
	store := units.NewMemory(audit.NewMemory(logger), blobs, logger, pagination.Config{DefaultPageSize: 20, MaxPageSize: 100})

	ctrl := pipeline.New(pipeline.Deps{
		Store: store,
		Classifier: classify.Func(func(ctx context.Context, in classify.Input) (units.Classification, error) {
			return units.Classification{Label: "general", Confidence: 0.9, Provider: "stub"}, nil
		}),
		Analyzer: analyze.Func(func(ctx context.Context, c units.Classification, in analyze.Input) (units.Analysis, error) {
			return units.Analysis{Sentiment: "neutral", Fields: map[string]string{}}, nil
		}),
	}, retry.Policy{Attempts: 1, Initial: time.Millisecond, Multiplier: 2, Timeout: time.Second}, 0.6, logger)

	return env{
		store:    store,
		blobs:    blobs,
		ingestor: channels.NewIngestor(ctrl, channels.NewArchive(blobs, logger), &cfg, logger),
	}
}

type IngestSuite struct {
	suite.Suite
	ctx context.Context
	env env
}

func TestIngestSuite(t *testing.T) {
	suite.Run(t, new(IngestSuite))
}

func (s *IngestSuite) SetupTest() {
	s.ctx = context.Background()
	s.env = newEnv(channels.Config{MaxBatch: 5, BatchConcurrency: 2})
}

func sms(id, body string) []byte {
	return fmt.Appendf(nil, `{"sid":%q,"from":"+33612345678","body":%q}`, id, body)
}

func (s *IngestSuite) TestIngestArchivesAndSubmits() {
	raw := sms("SM1", "please call back")

	res, err := s.env.ingestor.Ingest(s.ctx, "acme", units.SourceSMS, raw, "")
	s.Require().NoError(err)
	s.False(res.Duplicate)

	u := res.Unit
	s.Equal("SM1", u.ExternalID)
	s.Equal(units.SourceSMS, u.Source)
	s.Equal(raw, u.RawPayload)
	s.Equal("please call back", u.Content.Body)
	s.Equal(channels.Key("acme", units.SourceSMS, raw), u.StorageKey)
	s.Equal(units.StatusClosed, u.Status)

	exists, err := s.env.blobs.Exists(s.ctx, u.StorageKey)
	s.Require().NoError(err)
	s.True(exists)
}

func (s *IngestSuite) TestIngestDuplicate() {
	raw := sms("SM1", "hello")

	first, err := s.env.ingestor.Ingest(s.ctx, "acme", units.SourceSMS, raw, "")
	s.Require().NoError(err)
	again, err := s.env.ingestor.Ingest(s.ctx, "acme", units.SourceSMS, sms("SM1", "hello again"), "")
	s.Require().NoError(err)

	s.True(again.Duplicate)
	s.Equal(first.Unit.ID, again.Unit.ID)
	s.Equal(1, s.env.store.Len())
}

func (s *IngestSuite) TestIngestHeaderID() {
	res, err := s.env.ingestor.Ingest(s.ctx, "acme", units.SourceOther, []byte(`{"raw":"note"}`), "hdr-7")
	s.Require().NoError(err)
	s.Equal("hdr-7", res.Unit.ExternalID)
}

func (s *IngestSuite) TestIngestInvalidPayloadCreatesNothing() {
	_, err := s.env.ingestor.Ingest(s.ctx, "acme", units.SourceSMS, []byte(`{"sid":"x"}`), "")
	s.ErrorIs(err, channels.ErrInvalidPayload)
	s.Zero(s.env.store.Len())
}

func (s *IngestSuite) TestIngestBatch() {
	items := []json.RawMessage{
		sms("A", "one"),
		sms("B", "two"),
		sms("A", "one again"),
		[]byte(`{"sid":"C"}`),
	}

	out, err := s.env.ingestor.IngestBatch(s.ctx, "acme", units.SourceSMS, items)
	s.Require().NoError(err)
	s.Require().Len(out.Results, 4)

	s.Equal(2, out.Created)
	s.Equal(1, out.Duplicates)
	s.Equal(1, out.Failed)

	for i, r := range out.Results {
		s.Equal(i, r.Index)
	}
	s.NotEmpty(out.Results[3].Error)
	s.Nil(out.Results[3].UnitID)
	s.Equal(*out.Results[0].UnitID, *out.Results[2].UnitID)
	s.Equal(2, s.env.store.Len())
}

func (s *IngestSuite) TestIngestBatchLimits() {
	_, err := s.env.ingestor.IngestBatch(s.ctx, "acme", units.SourceSMS, nil)
	s.ErrorIs(err, channels.ErrInvalidPayload)

	items := make([]json.RawMessage, 6)
	for i := range items {
		items[i] = sms(fmt.Sprint(i), "x")
	}
	_, err = s.env.ingestor.IngestBatch(s.ctx, "acme", units.SourceSMS, items)
	s.ErrorIs(err, channels.ErrBatchTooLarge)
	s.Zero(s.env.store.Len())
}

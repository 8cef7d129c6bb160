package api

import (
	"fmt"

	"github.com/mobby57/memoLib-sub019/internal/analyze"
	"github.com/mobby57/memoLib-sub019/internal/audit"
	"github.com/mobby57/memoLib-sub019/internal/channels"
	"github.com/mobby57/memoLib-sub019/internal/classify"
	"github.com/mobby57/memoLib-sub019/internal/config"
	"github.com/mobby57/memoLib-sub019/internal/pipeline"
	"github.com/mobby57/memoLib-sub019/internal/units"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Units    units.System
	Audit    audit.System
	Pipeline *pipeline.Controller
	Ingestor *channels.Ingestor
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(cfg *config.Config, runtime *Runtime) (*Domain, error) {
	var (
		auditSys audit.System
		unitsSys units.System
	)

	if runtime.Database != nil {
		db := runtime.Database.Connection()
		auditSys = audit.New(db, runtime.Logger)
		unitsSys = units.New(db, auditSys, runtime.Storage, runtime.Logger, runtime.Pagination)
	} else {
		auditSys = audit.NewMemory(runtime.Logger)
		unitsSys = units.NewMemory(auditSys, runtime.Storage, runtime.Logger, runtime.Pagination)
	}

	rules, err := classify.LoadRules(cfg.Pipeline.RulesFile)
	if err != nil {
		return nil, fmt.Errorf("load classification rules: %w", err)
	}

	classifier, err := classify.New(cfg.Pipeline.Classifier, rules, &cfg.AI, runtime.Logger)
	if err != nil {
		return nil, err
	}

	ctrl := pipeline.New(
		pipeline.Deps{
			Store:      unitsSys,
			Classifier: classifier,
			Analyzer:   analyze.NewRules(&cfg.Pipeline.Analysis),
			Notifier:   runtime.Notifier,
			Metrics:    pipeline.NewMetrics(runtime.Metrics),
		},
		cfg.Pipeline.Policy(),
		cfg.Pipeline.ConfidenceThreshold,
		runtime.Logger,
	)

	var archive *channels.Archive
	if cfg.Channels.Archive {
		archive = channels.NewArchive(runtime.Storage, runtime.Logger)
	}

	return &Domain{
		Units:    unitsSys,
		Audit:    auditSys,
		Pipeline: ctrl,
		Ingestor: channels.NewIngestor(ctrl, archive, &cfg.Channels, runtime.Logger),
	}, nil
}

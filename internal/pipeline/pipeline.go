// Package pipeline drives information units through the state machine:
// classification, analysis, escalation to review, and resolution.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mobby57/memoLib-sub019/internal/analyze"
	"github.com/mobby57/memoLib-sub019/internal/audit"
	"github.com/mobby57/memoLib-sub019/internal/classify"
	"github.com/mobby57/memoLib-sub019/internal/units"
	"github.com/mobby57/memoLib-sub019/pkg/keylock"
	"github.com/mobby57/memoLib-sub019/pkg/notify"
	"github.com/mobby57/memoLib-sub019/pkg/retry"
)

// Escalation reasons recorded on transitions into the review queue.
const (
	ReasonClassifierUnavailable = "classifier_unavailable"
	ReasonAnalysisFailed        = "analysis_failed"
	ReasonMissingFields         = "missing_fields"
	ReasonLowConfidence         = "low_confidence"
	ReasonConflicts             = "conflicting_fields"
)

// ProviderReview marks a classification set by a human reviewer.
const ProviderReview = "review"

// SubmitCommand carries one normalized inbound message.
type SubmitCommand struct {
	TenantID   string
	ExternalID string
	Source     units.Source
	Raw        []byte
	Content    units.Content
	StorageKey string
}

// Result is the outcome of Submit. Duplicate is true when the message had
// already been ingested and Unit is its current state.
type Result struct {
	Unit      *units.Unit `json:"unit"`
	Duplicate bool        `json:"duplicate"`
}

// ResolveCommand is a reviewer's decision on a unit awaiting review.
// Confirm accepts the current classification of an AMBIGUOUS unit.
type ResolveCommand struct {
	Label   string            `json:"label,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
	Note    string            `json:"note,omitempty"`
	Confirm bool              `json:"confirm,omitempty"`
	Actor   string            `json:"actor,omitempty"`
}

// Controller is the only writer of unit status. Work on one (tenant,
// external id) key is serialized in process; the store's status guard
// covers other processes.
type Controller struct {
	store      units.Store
	classifier classify.Classifier
	analyzer   analyze.Analyzer
	notifier   notify.Notifier
	metrics    *Metrics
	policy     retry.Policy
	threshold  float64
	locks      *keylock.Locker
	logger     *slog.Logger
	now        func() time.Time
}

// Deps groups the collaborators of a Controller. Notifier and Metrics may be nil.
type Deps struct {
	Store      units.Store
	Classifier classify.Classifier
	Analyzer   analyze.Analyzer
	Notifier   notify.Notifier
	Metrics    *Metrics
}

// New creates a Controller.
func New(deps Deps, policy retry.Policy, threshold float64, logger *slog.Logger) *Controller {
	return &Controller{
		store:      deps.Store,
		classifier: deps.Classifier,
		analyzer:   deps.Analyzer,
		notifier:   deps.Notifier,
		metrics:    deps.Metrics,
		policy:     policy,
		threshold:  threshold,
		locks:      keylock.New(),
		logger:     logger.With("system", "pipeline"),
		now:        func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

// Submit creates a unit for cmd and drives it as far as the pipeline can
// take it without a human. A message already ingested for the tenant is
// returned with Duplicate set; if an earlier failed write left it in an
// automatic status, the remaining stages run first.
//
// Once the unit is created the remaining stages run detached from ctx
// cancellation so that no unit is left in RECEIVED; each stage call is still
// bounded by the retry policy.
func (c *Controller) Submit(ctx context.Context, cmd SubmitCommand) (*Result, error) {
	cmd, err := normalizeSubmit(cmd)
	if err != nil {
		return nil, err
	}

	unlock, err := c.locks.Lock(ctx, lockKey(cmd.TenantID, cmd.ExternalID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	if existing, err := c.store.FindByKey(ctx, cmd.TenantID, cmd.ExternalID); err == nil {
		c.metrics.IncrementDuplicate()
		return c.resume(ctx, existing)
	} else if !errors.Is(err, units.ErrNotFound) {
		return nil, fmt.Errorf("dedup lookup: %w", err)
	}

	u := units.NewUnit(cmd.TenantID, cmd.ExternalID, cmd.Source, cmd.Raw, cmd.Content, cmd.StorageKey)
	ev := audit.NewEvent(u.TenantID, u.ID, "", string(u.Status), audit.SystemActor,
		fmt.Sprintf("ingested from %s", strings.ToLower(string(u.Source))))

	if err := c.store.Insert(ctx, u, ev); err != nil {
		if errors.Is(err, units.ErrDuplicate) {
			existing, ferr := c.store.FindByKey(ctx, cmd.TenantID, cmd.ExternalID)
			if ferr != nil {
				return nil, fmt.Errorf("dedup lookup: %w", ferr)
			}
			c.metrics.IncrementDuplicate()
			return c.resume(ctx, existing)
		}
		return nil, c.wrapStoreErr(err)
	}
	c.committed(ctx, u, ev)

	c.logger.InfoContext(ctx, "unit received",
		"tenant_id", u.TenantID,
		"unit_id", u.ID,
		"source", u.Source,
	)

	if err := c.drive(context.WithoutCancel(ctx), u); err != nil {
		return &Result{Unit: u}, err
	}
	return &Result{Unit: u}, nil
}

// resume continues a duplicate whose stages stopped at an automatic status.
// No unit and no RECEIVED event are created. Units that are closed or
// waiting for review come back unchanged.
func (c *Controller) resume(ctx context.Context, u *units.Unit) (*Result, error) {
	res := &Result{Unit: u, Duplicate: true}
	if !u.Status.Automatic() {
		return res, nil
	}

	c.logger.InfoContext(ctx, "resuming unit",
		"tenant_id", u.TenantID,
		"unit_id", u.ID,
		"status", u.Status,
	)

	err := c.drive(context.WithoutCancel(ctx), u)
	if errors.Is(err, units.ErrStaleState) {
		// Another process moved the unit first.
		latest, ferr := c.store.Find(ctx, u.TenantID, u.ID)
		if ferr != nil {
			return res, ferr
		}
		res.Unit = latest
		return res, nil
	}
	return res, err
}

// Resolve applies a reviewer's decision to an INCOMPLETE or AMBIGUOUS unit
// and closes it. A RESOLVED unit whose close failed earlier is closed
// without re-applying the decision.
func (c *Controller) Resolve(ctx context.Context, tenantID string, unitID uuid.UUID, cmd ResolveCommand) (*units.Unit, error) {
	if strings.TrimSpace(cmd.Actor) == "" {
		return nil, fmt.Errorf("%w: actor required", ErrInvalidCommand)
	}

	u, err := c.store.Find(ctx, tenantID, unitID)
	if err != nil {
		return nil, err
	}

	unlock, err := c.locks.Lock(ctx, lockKey(u.TenantID, u.ExternalID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	// Re-read under the lock; a concurrent resolve may have won.
	if u, err = c.store.Find(ctx, tenantID, unitID); err != nil {
		return nil, err
	}

	if u.Status == units.StatusResolved {
		if err := c.close(ctx, u); err != nil {
			return u, err
		}
		return u, nil
	}
	if !u.Status.NeedsReview() {
		return nil, fmt.Errorf("%w: %s unit cannot be resolved", ErrInvalidTransition, u.Status)
	}

	d, err := c.review(ctx, u, cmd)
	if err != nil {
		return nil, err
	}

	err = c.transition(ctx, u, units.StatusResolved, cmd.Actor, resolveReason(cmd), func(next *units.Unit) {
		next.Resolution = d.resolution
		if d.classification != nil {
			next.Classification = d.classification
		}
		if d.analysis != nil {
			next.Analysis = d.analysis
		}
	})
	if err != nil {
		return nil, err
	}

	if err := c.close(ctx, u); err != nil {
		return u, err
	}
	return u, nil
}

// decision is what a reviewer's command changes on the unit.
type decision struct {
	resolution     *units.Resolution
	classification *units.Classification
	analysis       *units.Analysis
}

// review checks cmd against u. A label the unit was not analyzed for, or a
// unit that was never analyzed, is analyzed again under the reviewer's
// classification; every field the result requires must then be present
// after merging cmd.Fields.
func (c *Controller) review(ctx context.Context, u *units.Unit, cmd ResolveCommand) (*decision, error) {
	if u.Status == units.StatusAmbiguous {
		if cmd.Label == "" && !cmd.Confirm {
			return nil, fmt.Errorf("%w: label or confirmation required", ErrResolutionRejected)
		}
		if cmd.Label == "" && u.Classification == nil {
			return nil, fmt.Errorf("%w: unit has no classification to confirm", ErrResolutionRejected)
		}
	}

	d := &decision{
		resolution: &units.Resolution{
			Label:      cmd.Label,
			Fields:     maps.Clone(cmd.Fields),
			Note:       cmd.Note,
			ResolvedBy: cmd.Actor,
			ResolvedAt: c.now(),
		},
	}

	cls := u.Classification
	relabeled := cmd.Label != "" && (cls == nil || cls.Label != cmd.Label)
	if cmd.Label != "" {
		cls = &units.Classification{
			Label:      cmd.Label,
			Confidence: 1,
			Provider:   ProviderReview,
			Rationale:  cmd.Note,
		}
		d.classification = cls
	}
	if cls == nil {
		return nil, fmt.Errorf("%w: label required", ErrResolutionRejected)
	}
	if d.resolution.Label == "" {
		d.resolution.Label = cls.Label
	}

	analysis := u.Clone().Analysis
	if relabeled || analysis == nil {
		fresh, err := c.analyze(ctx, u, *cls)
		if err != nil {
			c.logger.WarnContext(ctx, "resolving without analysis", "unit_id", u.ID, "label", cls.Label, "error", err)
			return d, nil
		}
		analysis = &fresh
	}

	completeAnalysis(analysis, cmd.Fields)
	if len(analysis.MissingFields) > 0 {
		return nil, fmt.Errorf("%w: missing fields %s", ErrResolutionRejected, strings.Join(analysis.MissingFields, ", "))
	}
	d.analysis = analysis
	return d, nil
}

// completeAnalysis merges reviewer supplied fields and recomputes the
// present and missing split.
func completeAnalysis(a *units.Analysis, fields map[string]string) {
	if a.Fields == nil {
		a.Fields = make(map[string]string, len(fields))
	}
	maps.Copy(a.Fields, fields)

	a.PresentFields = []string{}
	a.MissingFields = []string{}
	for _, name := range a.RequiredFields {
		if strings.TrimSpace(a.Fields[name]) != "" {
			a.PresentFields = append(a.PresentFields, name)
		} else {
			a.MissingFields = append(a.MissingFields, name)
		}
	}
}

// drive runs the automatic stages from u's current status until u is closed
// or waiting for review. Stage failures escalate; only store failures are
// returned, leaving u at the last status that was written.
func (c *Controller) drive(ctx context.Context, u *units.Unit) error {
	for u.Status.Automatic() {
		if err := c.step(ctx, u); err != nil {
			return err
		}
	}
	return nil
}

// step makes exactly one transition out of an automatic status.
func (c *Controller) step(ctx context.Context, u *units.Unit) error {
	switch u.Status {
	case units.StatusReceived:
		classification, err := c.classify(ctx, u)
		if err != nil {
			return c.escalate(ctx, u, units.StatusAmbiguous, ReasonClassifierUnavailable,
				fmt.Sprintf("%v: %v", ErrClassifierUnavailable, err), nil)
		}
		return c.transition(ctx, u, units.StatusClassified, audit.SystemActor,
			fmt.Sprintf("label=%s confidence=%.2f provider=%s",
				classification.Label, classification.Confidence, classification.Provider),
			func(next *units.Unit) { next.Classification = &classification })

	case units.StatusClassified:
		analysis, err := c.analyze(ctx, u, *u.Classification)
		if err != nil {
			return c.escalate(ctx, u, units.StatusAmbiguous, ReasonAnalysisFailed,
				fmt.Sprintf("%v: %v", ErrAnalysisFailed, err), nil)
		}
		setAnalysis := func(next *units.Unit) { next.Analysis = &analysis }
		if len(analysis.MissingFields) > 0 {
			return c.escalate(ctx, u, units.StatusIncomplete, ReasonMissingFields,
				"missing fields: "+strings.Join(analysis.MissingFields, ", "), setAnalysis)
		}
		return c.transition(ctx, u, units.StatusAnalyzed, audit.SystemActor,
			fmt.Sprintf("urgency=%d sentiment=%s", analysis.Urgency, analysis.Sentiment), setAnalysis)

	case units.StatusAnalyzed:
		return c.decide(ctx, u)

	case units.StatusResolved:
		return c.close(ctx, u)
	}
	return fmt.Errorf("%w: no automatic step from %s", ErrInvalidTransition, u.Status)
}

// decide picks the exit from ANALYZED.
func (c *Controller) decide(ctx context.Context, u *units.Unit) error {
	a := u.Analysis

	switch {
	case len(a.MissingFields) > 0:
		return c.escalate(ctx, u, units.StatusIncomplete, ReasonMissingFields,
			"missing fields: "+strings.Join(a.MissingFields, ", "), nil)
	case u.Classification.Confidence < c.threshold:
		return c.escalate(ctx, u, units.StatusAmbiguous, ReasonLowConfidence,
			fmt.Sprintf("confidence %.2f below %.2f", u.Classification.Confidence, c.threshold), nil)
	case len(a.Conflicts) > 0:
		return c.escalate(ctx, u, units.StatusAmbiguous, ReasonConflicts,
			"conflicting fields: "+strings.Join(a.Conflicts, ", "), nil)
	}
	return c.transition(ctx, u, units.StatusResolved, audit.SystemActor, "resolved automatically", nil)
}

func (c *Controller) close(ctx context.Context, u *units.Unit) error {
	return c.transition(ctx, u, units.StatusClosed, audit.SystemActor, "closed", func(next *units.Unit) {
		closedAt := next.UpdatedAt
		next.ClosedAt = &closedAt
	})
}

func (c *Controller) escalate(ctx context.Context, u *units.Unit, to units.Status, reason, detail string, mutate func(*units.Unit)) error {
	if err := c.transition(ctx, u, to, audit.SystemActor, detail, mutate); err != nil {
		return err
	}
	c.metrics.IncrementEscalation(string(to), reason)
	c.logger.WarnContext(ctx, "unit escalated to review",
		"tenant_id", u.TenantID,
		"unit_id", u.ID,
		"status", to,
		"reason", reason,
	)
	return nil
}

// transition moves u to `to`, persisting the change and its audit event in
// one step. u is updated only when the store accepted the change.
func (c *Controller) transition(ctx context.Context, u *units.Unit, to units.Status, actor, reason string, mutate func(*units.Unit)) error {
	from := u.Status
	if !units.CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}

	next := u.Clone()
	next.Status = to
	next.UpdatedAt = c.now()
	if mutate != nil {
		mutate(next)
	}

	ev := audit.NewEvent(u.TenantID, u.ID, string(from), string(to), actor, reason)
	if err := c.store.Transition(ctx, next, from, ev); err != nil {
		return c.wrapStoreErr(err)
	}

	*u = *next
	c.committed(ctx, u, ev)
	return nil
}

// committed runs after an audit event is durable.
func (c *Controller) committed(ctx context.Context, u *units.Unit, ev *audit.Event) {
	c.metrics.IncrementTransition(ev.FromStatus, ev.ToStatus)

	if c.notifier == nil {
		return
	}
	err := c.notifier.Notify(ctx, notify.Transition{
		TenantID:   ev.TenantID,
		UnitID:     ev.UnitID.String(),
		Seq:        ev.Seq,
		FromStatus: ev.FromStatus,
		ToStatus:   ev.ToStatus,
		Actor:      ev.Actor,
		Reason:     ev.Reason,
		OccurredAt: ev.OccurredAt,
	})
	if err != nil {
		c.logger.WarnContext(ctx, "transition notification failed", "unit_id", u.ID, "seq", ev.Seq, "error", err)
	}
}

func (c *Controller) classify(ctx context.Context, u *units.Unit) (units.Classification, error) {
	var out units.Classification
	in := classify.InputOf(u)

	start := time.Now()
	attempts, err := retry.Do(ctx, c.policy, func(ctx context.Context) error {
		result, err := c.classifier.Classify(ctx, in)
		if err != nil {
			return err
		}
		if result.Confidence < 0 || result.Confidence > 1 || result.Label == "" {
			return fmt.Errorf("%w: invalid result %+v", classify.ErrClassificationFailed, result)
		}
		out = result
		return nil
	})
	c.metrics.ObserveStage("classify", attempts, err, time.Since(start))

	if err != nil {
		c.logger.WarnContext(ctx, "classification failed", "unit_id", u.ID, "attempts", attempts, "error", err)
	}
	return out, err
}

func (c *Controller) analyze(ctx context.Context, u *units.Unit, cls units.Classification) (units.Analysis, error) {
	var out units.Analysis
	in := analyze.InputOf(u)

	start := time.Now()
	attempts, err := retry.Do(ctx, c.policy, func(ctx context.Context) error {
		result, err := c.analyzer.Analyze(ctx, cls, in)
		if err != nil {
			return err
		}
		out = result
		return nil
	})
	c.metrics.ObserveStage("analyze", attempts, err, time.Since(start))

	if err != nil {
		c.logger.WarnContext(ctx, "analysis failed", "unit_id", u.ID, "attempts", attempts, "error", err)
	}
	return out, err
}

func (c *Controller) wrapStoreErr(err error) error {
	if errors.Is(err, audit.ErrWriteFailed) {
		return fmt.Errorf("%w: %w", ErrAuditWriteFailed, err)
	}
	return err
}

func normalizeSubmit(cmd SubmitCommand) (SubmitCommand, error) {
	switch {
	case strings.TrimSpace(cmd.TenantID) == "":
		return cmd, fmt.Errorf("%w: tenant id required", ErrInvalidCommand)
	case strings.TrimSpace(cmd.ExternalID) == "":
		return cmd, fmt.Errorf("%w: external id required", ErrInvalidCommand)
	}
	src, err := units.ParseSource(string(cmd.Source))
	if err != nil {
		return cmd, fmt.Errorf("%w: %w", ErrInvalidCommand, err)
	}
	cmd.Source = src
	return cmd, nil
}

func resolveReason(cmd ResolveCommand) string {
	parts := []string{"resolved by review"}
	if cmd.Label != "" {
		parts = append(parts, "label="+cmd.Label)
	}
	if cmd.Note != "" {
		parts = append(parts, cmd.Note)
	}
	return strings.Join(parts, ": ")
}

func lockKey(tenantID, externalID string) string {
	return tenantID + "\x00" + externalID
}

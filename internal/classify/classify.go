// Package classify assigns a category label and confidence to an inbound
// message. Implementations are interchangeable behind Classifier.
package classify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mobby57/memoLib-sub019/internal/units"
)

// ErrClassificationFailed indicates the classifier could not produce a label.
// A low confidence result is not a failure.
var ErrClassificationFailed = errors.New("classification failed")

// Input is what a classifier sees of a unit.
type Input struct {
	TenantID string
	Source   units.Source
	Content  units.Content
}

// InputOf builds the classifier input for u.
func InputOf(u *units.Unit) Input {
	return Input{TenantID: u.TenantID, Source: u.Source, Content: u.Content}
}

// Classifier labels a message. Confidence is always within [0, 1].
type Classifier interface {
	Classify(ctx context.Context, in Input) (units.Classification, error)
}

// Func adapts a function to Classifier.
type Func func(ctx context.Context, in Input) (units.Classification, error)

// Classify calls f.
func (f Func) Classify(ctx context.Context, in Input) (units.Classification, error) {
	return f(ctx, in)
}

// Kinds accepted by New.
const (
	KindRules = "rules"
	KindAI    = "ai"
)

// New builds the classifier named by kind. The AI classifier is restricted to
// the labels of rs.
func New(kind string, rs *RuleSet, ai *AIConfig, logger *slog.Logger) (Classifier, error) {
	rules := NewRuleClassifier(rs)

	switch kind {
	case KindRules, "":
		return rules, nil
	case KindAI:
		return NewAIClassifier(ai, rules.Labels(), logger), nil
	default:
		return nil, fmt.Errorf("unknown classifier kind %q", kind)
	}
}

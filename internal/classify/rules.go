package classify

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mobby57/memoLib-sub019/internal/units"
)

// ProviderRules identifies classifications made by RuleClassifier.
const ProviderRules = "rules"

//go:embed rules.yaml
var defaultRules []byte

// Rule maps a set of keywords to a label. Sources, when set, restricts the
// rule to those channels.
type Rule struct {
	Label    string   `yaml:"label"`
	Keywords []string `yaml:"keywords"`
	Sources  []string `yaml:"sources,omitempty"`
}

// RuleSet is the document format of a rules file.
type RuleSet struct {
	Fallback string `yaml:"fallback"`
	Rules    []Rule `yaml:"rules"`
}

// RuleClassifier scores each rule by the number of distinct keywords found in
// the message text. The best rule wins; its confidence drops when a second
// rule scores close to it.
type RuleClassifier struct {
	fallback string
	rules    []Rule
}

// ParseRules decodes a YAML rule set.
func ParseRules(data []byte) (*RuleSet, error) {
	var rs RuleSet
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}
	if len(rs.Rules) == 0 {
		return nil, fmt.Errorf("parse rules: no rules defined")
	}
	for i, r := range rs.Rules {
		if r.Label == "" {
			return nil, fmt.Errorf("parse rules: rule %d has no label", i)
		}
		if len(r.Keywords) == 0 {
			return nil, fmt.Errorf("parse rules: rule %q has no keywords", r.Label)
		}
	}
	if rs.Fallback == "" {
		rs.Fallback = "general"
	}
	return &rs, nil
}

// LoadRules reads a rule set from path. An empty path returns the built-in rules.
func LoadRules(path string) (*RuleSet, error) {
	if path == "" {
		return ParseRules(defaultRules)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}
	return ParseRules(data)
}

// NewRuleClassifier creates a classifier from rs.
func NewRuleClassifier(rs *RuleSet) *RuleClassifier {
	rules := make([]Rule, len(rs.Rules))
	for i, r := range rs.Rules {
		kw := make([]string, len(r.Keywords))
		for j, k := range r.Keywords {
			kw[j] = strings.ToLower(k)
		}
		rules[i] = Rule{Label: r.Label, Keywords: kw, Sources: r.Sources}
	}
	return &RuleClassifier{fallback: rs.Fallback, rules: rules}
}

// Labels returns the distinct labels the rules can produce, fallback included.
func (c *RuleClassifier) Labels() []string {
	labels := []string{c.fallback}
	for _, r := range c.rules {
		if !slices.Contains(labels, r.Label) {
			labels = append(labels, r.Label)
		}
	}
	return labels
}

func (c *RuleClassifier) Classify(ctx context.Context, in Input) (units.Classification, error) {
	if err := ctx.Err(); err != nil {
		return units.Classification{}, fmt.Errorf("%w: %w", ErrClassificationFailed, err)
	}

	text := strings.ToLower(in.Content.Text())

	var best, second int
	var label string
	var matched []string
	for _, r := range c.rules {
		if len(r.Sources) > 0 && !slices.Contains(r.Sources, string(in.Source)) {
			continue
		}

		var hits []string
		for _, k := range r.Keywords {
			if strings.Contains(text, k) {
				hits = append(hits, k)
			}
		}

		switch n := len(hits); {
		case n > best:
			second = best
			best, label, matched = n, r.Label, hits
		case n > second:
			second = n
		}
	}

	if best == 0 {
		return units.Classification{
			Label:      c.fallback,
			Confidence: 0.3,
			Provider:   ProviderRules,
			Rationale:  "no rule matched",
		}, nil
	}

	return units.Classification{
		Label:      label,
		Confidence: confidence(best, second),
		Provider:   ProviderRules,
		Rationale:  "matched: " + strings.Join(matched, ", "),
	}, nil
}

// confidence grows with the winning rule's hits and shrinks with competition.
func confidence(best, second int) float64 {
	base := min(1.0, 0.5+0.2*float64(best))
	return base * float64(best) / float64(best+second)
}

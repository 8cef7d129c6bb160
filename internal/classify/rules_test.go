package classify_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mobby57/memoLib-sub019/internal/classify"
	"github.com/mobby57/memoLib-sub019/internal/units"
)

const testRules = `
fallback: other
rules:
  - label: billing
    keywords: [invoice, payment, refund]
  - label: deadline
    keywords: [deadline, hearing, court date]
  - label: callback
    keywords: [call me back]
    sources: [PHONE]
`

func newRules(t *testing.T) *classify.RuleClassifier {
	t.Helper()
	rs, err := classify.ParseRules([]byte(testRules))
	require.NoError(t, err)
	return classify.NewRuleClassifier(rs)
}

func input(source units.Source, subject, body string) classify.Input {
	return classify.Input{
		TenantID: "acme",
		Source:   source,
		Content:  units.Content{Subject: subject, Body: body},
	}
}

func TestRuleClassifier(t *testing.T) {
	c := newRules(t)

	tests := []struct {
		name      string
		in        classify.Input
		wantLabel string
		wantConf  float64
	}{
		{"single hit", input(units.SourceEmail, "Invoice #12", "see attached"), "billing", 0.7},
		{"two hits", input(units.SourceEmail, "Hearing", "the deadline is Friday"), "deadline", 0.9},
		{"case insensitive", input(units.SourceSMS, "", "PAYMENT and REFUND please"), "billing", 0.9},
		{"tie is ambiguous", input(units.SourceEmail, "", "invoice before the hearing"), "billing", 0.35},
		{"no match falls back", input(units.SourceWeb, "", "hello there"), "other", 0.3},
		{"source restricted rule", input(units.SourcePhone, "", "please call me back"), "callback", 0.7},
		{"source restriction excludes", input(units.SourceSMS, "", "please call me back"), "other", 0.3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Classify(context.Background(), tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.wantLabel, got.Label)
			assert.InDelta(t, tt.wantConf, got.Confidence, 1e-9)
			assert.Equal(t, classify.ProviderRules, got.Provider)
		})
	}
}

func TestRuleClassifierDeterministic(t *testing.T) {
	c := newRules(t)
	in := input(units.SourceEmail, "Invoice", "payment due before the hearing deadline")

	first, err := c.Classify(context.Background(), in)
	require.NoError(t, err)
	for range 10 {
		again, err := c.Classify(context.Background(), in)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestRuleClassifierCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newRules(t).Classify(ctx, input(units.SourceEmail, "", "invoice"))
	assert.ErrorIs(t, err, classify.ErrClassificationFailed)
}

func TestParseRulesValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"empty", "rules: []"},
		{"missing label", "rules:\n  - keywords: [a]"},
		{"missing keywords", "rules:\n  - label: x"},
		{"malformed", "rules: [:"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := classify.ParseRules([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestDefaultRules(t *testing.T) {
	rs, err := classify.LoadRules("")
	require.NoError(t, err)
	assert.Equal(t, "general", rs.Fallback)

	labels := classify.NewRuleClassifier(rs).Labels()
	assert.Equal(t, "general", labels[0])
	assert.Contains(t, labels, "deadline")
	assert.Contains(t, labels, "billing")
}

func TestNewKinds(t *testing.T) {
	rs, err := classify.LoadRules("")
	require.NoError(t, err)
	ai := &classify.AIConfig{}
	require.NoError(t, ai.Finalize(nil))

	c, err := classify.New(classify.KindRules, rs, ai, discard())
	require.NoError(t, err)
	assert.IsType(t, &classify.RuleClassifier{}, c)

	c, err = classify.New(classify.KindAI, rs, ai, discard())
	require.NoError(t, err)
	assert.IsType(t, &classify.AIClassifier{}, c)

	_, err = classify.New("oracle", rs, ai, discard())
	assert.Error(t, err)
}

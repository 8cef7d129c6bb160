// Package analyze extracts structured fields from a classified message and
// scores its urgency and sentiment. Results depend only on the input.
package analyze

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"

	"github.com/mobby57/memoLib-sub019/internal/units"
)

// ErrAnalysisFailed indicates the analyzer could not produce a result.
var ErrAnalysisFailed = errors.New("analysis failed")

// Input is what an analyzer sees of a unit.
type Input struct {
	TenantID string
	Source   units.Source
	Content  units.Content
}

// InputOf builds the analyzer input for u.
func InputOf(u *units.Unit) Input {
	return Input{TenantID: u.TenantID, Source: u.Source, Content: u.Content}
}

// Analyzer produces the structured analysis of a classified message.
type Analyzer interface {
	Analyze(ctx context.Context, c units.Classification, in Input) (units.Analysis, error)
}

// Func adapts a function to Analyzer.
type Func func(ctx context.Context, c units.Classification, in Input) (units.Analysis, error)

// Analyze calls f.
func (f Func) Analyze(ctx context.Context, c units.Classification, in Input) (units.Analysis, error) {
	return f(ctx, c, in)
}

// FieldContact is satisfied by any way of reaching the sender back.
const FieldContact = "contact"

var (
	emailPattern     = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	phonePattern     = regexp.MustCompile(`\+?\d[\d .-]{7,}\d`)
	datePattern      = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2}|\d{1,2}/\d{1,2}/\d{2,4})\b`)
	amountPattern    = regexp.MustCompile(`(?i)(\d+(?:[.,]\d{1,2})?)\s?(€|eur|usd|\$)`)
	referencePattern = regexp.MustCompile(`(?i)\b(?:ref(?:erence)?|dossier|case|file)\s*(?:no\.?|n°|#|:)?\s*([A-Z0-9-]*\d[A-Z0-9-]*)`)
)

var urgencyBase = map[string]int{
	"deadline": 60,
}

var urgencyKeywords = []string{
	"urgent", "asap", "immediately", "today", "tomorrow",
	"immédiat", "aujourd'hui", "demain", "emergency",
}

var (
	negativeWords = []string{
		"angry", "unacceptable", "complaint", "disappointed", "problem",
		"late", "never", "worst", "mécontent", "inacceptable", "plainte",
	}
	positiveWords = []string{
		"thank", "thanks", "great", "appreciate", "pleased",
		"merci", "satisfait", "parfait",
	}
)

// Rules implements Analyzer with regular-expression extraction and keyword scoring.
type Rules struct {
	required        map[string][]string
	defaultRequired []string
	vip             []string
}

// NewRules creates a rule-based analyzer from cfg.
func NewRules(cfg *Config) *Rules {
	vip := make([]string, len(cfg.VIPSenders))
	for i, v := range cfg.VIPSenders {
		vip[i] = strings.ToLower(strings.TrimSpace(v))
	}
	return &Rules{
		required:        cfg.RequiredFields,
		defaultRequired: cfg.DefaultRequired,
		vip:             vip,
	}
}

func (a *Rules) Analyze(ctx context.Context, c units.Classification, in Input) (units.Analysis, error) {
	if err := ctx.Err(); err != nil {
		return units.Analysis{}, fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
	}

	text := in.Content.Text()
	fields, conflicts := extract(in.Content, text)

	required, ok := a.required[c.Label]
	if !ok {
		required = a.defaultRequired
	}
	required = slices.Clone(required)

	present := []string{}
	missing := []string{}
	for _, name := range required {
		if fields[name] != "" {
			present = append(present, name)
		} else {
			missing = append(missing, name)
		}
	}

	vip := a.isVIP(in.Content.Sender, fields["email"])

	return units.Analysis{
		Urgency:        urgency(c.Label, text, vip),
		Sentiment:      sentiment(text),
		VIP:            vip,
		Fields:         fields,
		RequiredFields: required,
		PresentFields:  present,
		MissingFields:  missing,
		Conflicts:      conflicts,
	}, nil
}

func (a *Rules) isVIP(addresses ...string) bool {
	for _, addr := range addresses {
		addr = strings.ToLower(addr)
		if addr == "" {
			continue
		}
		for _, v := range a.vip {
			if addr == v || strings.HasSuffix(addr, "@"+strings.TrimPrefix(v, "@")) {
				return true
			}
		}
	}
	return false
}

// extract gathers named fields from structured form data and free text.
// A field with several distinct values is reported as a conflict and keeps
// the structured value when there is one.
func extract(content units.Content, text string) (map[string]string, []string) {
	candidates := map[string][]string{}
	add := func(name, value string) {
		value = strings.TrimSpace(value)
		if value != "" && !slices.Contains(candidates[name], value) {
			candidates[name] = append(candidates[name], value)
		}
	}

	for _, k := range slices.Sorted(maps.Keys(content.Fields)) {
		add(strings.ToLower(k), content.Fields[k])
	}
	if emailPattern.MatchString(content.Sender) {
		add("email", strings.ToLower(emailPattern.FindString(content.Sender)))
	}

	for _, m := range emailPattern.FindAllString(text, -1) {
		add("email", strings.ToLower(m))
	}
	for _, m := range phonePattern.FindAllString(text, -1) {
		if p := normalizePhone(m); len(strings.TrimPrefix(p, "+")) >= 9 {
			add("phone", p)
		}
	}
	for _, m := range datePattern.FindAllStringSubmatch(text, -1) {
		add("date", m[1])
	}
	for _, m := range amountPattern.FindAllStringSubmatch(text, -1) {
		add("amount", m[1]+" "+strings.ToUpper(currency(m[2])))
	}
	for _, m := range referencePattern.FindAllStringSubmatch(text, -1) {
		add("reference", strings.ToUpper(m[1]))
	}

	fields := make(map[string]string, len(candidates)+1)
	conflicts := []string{}
	for _, name := range slices.Sorted(maps.Keys(candidates)) {
		values := candidates[name]
		fields[name] = values[0]
		if len(values) > 1 && name != "email" {
			conflicts = append(conflicts, name)
		}
	}

	switch {
	case content.Sender != "":
		fields[FieldContact] = content.Sender
	case fields["email"] != "":
		fields[FieldContact] = fields["email"]
	case fields["phone"] != "":
		fields[FieldContact] = fields["phone"]
	}

	return fields, conflicts
}

func normalizePhone(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '+' || (r >= '0' && r <= '9') {
			return r
		}
		return -1
	}, s)
}

func currency(s string) string {
	switch strings.ToLower(s) {
	case "€", "eur":
		return "eur"
	default:
		return "usd"
	}
}

func urgency(label, text string, vip bool) int {
	lower := strings.ToLower(text)

	score, ok := urgencyBase[label]
	if !ok {
		score = 20
	}
	for _, k := range urgencyKeywords {
		if strings.Contains(lower, k) {
			score += 15
		}
	}
	if strings.Contains(text, "!") {
		score += 5
	}
	if vip {
		score += 20
	}
	return min(max(score, 0), 100)
}

func sentiment(text string) string {
	lower := strings.ToLower(text)

	var score int
	for _, w := range negativeWords {
		if strings.Contains(lower, w) {
			score--
		}
	}
	for _, w := range positiveWords {
		if strings.Contains(lower, w) {
			score++
		}
	}

	switch {
	case score < 0:
		return "negative"
	case score > 0:
		return "positive"
	default:
		return "neutral"
	}
}

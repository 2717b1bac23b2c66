package recognizer

import (
	"context"
	"log/slog"
	"regexp"
)

// Rule is one named, compiled regular expression and the score its matches
// carry.
type Rule struct {
	Name  string
	Regex *regexp.Regexp
	Score float64
}

// RuleSpec is a rule in textual form, as carried by configuration files.
type RuleSpec struct {
	Name    string
	Pattern string
	Score   float64
}

// CompileRules compiles specs into rules. A spec whose pattern does not
// compile is logged and skipped; the remaining rules still apply.
func CompileRules(logger *slog.Logger, specs []RuleSpec) []Rule {
	if logger == nil {
		logger = slog.Default()
	}
	rules := make([]Rule, 0, len(specs))
	for _, spec := range specs {
		re, err := regexp.Compile(spec.Pattern)
		if err != nil {
			logger.Warn("Skipping pattern that does not compile",
				"rule", spec.Name, "pattern", spec.Pattern, "error", err)
			continue
		}
		rules = append(rules, Rule{Name: spec.Name, Regex: re, Score: spec.Score})
	}
	return rules
}

// PatternRecognizer emits a span for every regular-expression match. An
// optional invalidate hook rejects matches that are structurally plausible
// but fail a semantic check, such as a separator count or a checksum.
type PatternRecognizer struct {
	name       string
	language   string
	label      string
	rules      []Rule
	invalidate func(match string) bool
}

// PatternOption adjusts a PatternRecognizer at construction.
type PatternOption func(*PatternRecognizer)

// WithInvalidate installs a hook that drops matches for which it returns
// true.
func WithInvalidate(f func(match string) bool) PatternOption {
	return func(r *PatternRecognizer) { r.invalidate = f }
}

// NewPattern builds a PatternRecognizer producing spans with the given
// label.
func NewPattern(name, language, label string, rules []Rule, opts ...PatternOption) *PatternRecognizer {
	r := &PatternRecognizer{name: name, language: language, label: label, rules: rules}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Name implements Recognizer.
func (r *PatternRecognizer) Name() string { return r.name }

// Language implements Recognizer.
func (r *PatternRecognizer) Language() string { return r.language }

// Analyze implements Recognizer.
func (r *PatternRecognizer) Analyze(ctx context.Context, text string, _ *Context) ([]Span, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var spans []Span
	for _, rule := range r.rules {
		for _, m := range rule.Regex.FindAllStringIndex(text, -1) {
			if m[0] == m[1] {
				continue
			}
			match := text[m[0]:m[1]]
			if r.invalidate != nil && r.invalidate(match) {
				continue
			}
			spans = append(spans, Span{
				Start:       m[0],
				End:         m[1],
				Label:       r.label,
				Score:       rule.Score,
				Source:      r.name,
				Explanation: "matched rule " + rule.Name,
			})
		}
	}
	return spans, nil
}

package recognizer

import (
	"context"
	"log/slog"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatternRecognizerWordBoundaries(t *testing.T) {
	rec := NewPattern("example", "fi", "EXAMPLE", []Rule{
		{Name: "example", Regex: regexp.MustCompile(`\bEXAMPLE\b`), Score: 0.85},
	})

	tests := []struct {
		text    string
		matches int
	}{
		{"EXAMPLE", 1},
		{"this EXAMPLE here", 1},
		{"EXAMPLES", 0},
		{"MYEXAMPLE", 0},
	}
	for _, tt := range tests {
		spans, err := rec.Analyze(context.Background(), tt.text, nil)
		require.NoError(t, err)
		assert.Len(t, spans, tt.matches, "text %q", tt.text)
	}
}

func TestPatternRecognizerSpanFields(t *testing.T) {
	rec := NewPattern("digits", "fi", "NUMBER", []Rule{
		{Name: "run", Regex: regexp.MustCompile(`[0-9]+`), Score: 0.6},
	})

	spans, err := rec.Analyze(context.Background(), "a 123 b 45", nil)
	require.NoError(t, err)
	require.Len(t, spans, 2)

	assert.Equal(t, Span{Start: 2, End: 5, Label: "NUMBER", Score: 0.6, Source: "digits", Explanation: "matched rule run"}, spans[0])
	assert.Equal(t, 8, spans[1].Start)
	assert.Equal(t, 10, spans[1].End)
}

func TestPatternRecognizerInvalidate(t *testing.T) {
	rec := NewPattern("digits", "fi", "NUMBER", []Rule{
		{Name: "run", Regex: regexp.MustCompile(`[0-9]+`), Score: 0.6},
	}, WithInvalidate(func(match string) bool { return match == "13" }))

	spans, err := rec.Analyze(context.Background(), "12 13 14", nil)
	require.NoError(t, err)
	require.Len(t, spans, 2)
	assert.Equal(t, 0, spans[0].Start)
	assert.Equal(t, 6, spans[1].Start)
}

func TestPatternRecognizerCancelled(t *testing.T) {
	rec := NewPattern("digits", "fi", "NUMBER", []Rule{
		{Name: "run", Regex: regexp.MustCompile(`[0-9]+`), Score: 0.6},
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := rec.Analyze(ctx, "12", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCompileRulesSkipsBadPatterns(t *testing.T) {
	rules := CompileRules(slog.Default(), []RuleSpec{
		{Name: "good", Pattern: `[0-9]+`, Score: 0.5},
		{Name: "bad", Pattern: `[0-9`, Score: 0.5},
		{Name: "also good", Pattern: `x`, Score: 0.5},
	})

	require.Len(t, rules, 2)
	assert.Equal(t, "good", rules[0].Name)
	assert.Equal(t, "also good", rules[1].Name)
}

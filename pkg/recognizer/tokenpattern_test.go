package recognizer

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/City-of-Helsinki/text-anonymizer/pkg/ner"
	"github.com/City-of-Helsinki/text-anonymizer/pkg/tokenize"
)

// taggedContext builds a Context with entities covering each phrase at its
// first occurrence in text.
func taggedContext(text string, tags map[string]string) *Context {
	rc := &Context{Language: "fi", Tokens: tokenize.Words(text)}
	for phrase, label := range tags {
		start := strings.Index(text, phrase)
		if start < 0 {
			continue
		}
		rc.Entities = append(rc.Entities, ner.Entity{
			Start: start, End: start + len(phrase), Label: label, Score: 0.9,
		})
	}
	return rc
}

func TestAddressTokenPatternLongestMatch(t *testing.T) {
	rec := NewAddressTokenPattern("fi")

	text := "Osoite on Liisankatu 3 B 11 Helsinki"
	rc := taggedContext(text, map[string]string{"Liisankatu": "LOC"})

	spans, err := rec.Analyze(context.Background(), text, rc)
	require.NoError(t, err)
	require.Len(t, spans, 1)

	// The span starts at the house number; the street name is left to the
	// model recognizer.
	assert.Equal(t, "3 B 11", text[spans[0].Start:spans[0].End])
	assert.Equal(t, LabelAddress, spans[0].Label)
	assert.Equal(t, 0.8, spans[0].Score)
}

func TestAddressTokenPatternSimpleHouseNumber(t *testing.T) {
	rec := NewAddressTokenPattern("fi")

	text := "Mannerheimintie 181 on pitkä"
	rc := taggedContext(text, map[string]string{"Mannerheimintie": "LOC"})

	spans, err := rec.Analyze(context.Background(), text, rc)
	require.NoError(t, err)
	require.Len(t, spans, 1)
	assert.Equal(t, "181", text[spans[0].Start:spans[0].End])
}

func TestAddressTokenPatternMeasurementGuard(t *testing.T) {
	rec := NewAddressTokenPattern("fi")

	text := "ainakin 100 kilsaa matkaa"
	rc := taggedContext(text, map[string]string{"ainakin": "LOC"})

	spans, err := rec.Analyze(context.Background(), text, rc)
	require.NoError(t, err)
	assert.Empty(t, spans)
}

func TestAddressTokenPatternNoLocation(t *testing.T) {
	rec := NewAddressTokenPattern("fi")

	// "Ali" is person-tagged and too short to look like a street name.
	text := "Ali 5 voitti"
	rc := taggedContext(text, map[string]string{"Ali": "PERSON"})

	spans, err := rec.Analyze(context.Background(), text, rc)
	require.NoError(t, err)
	assert.Empty(t, spans)
}

func TestTokenPatternAllDigitGuard(t *testing.T) {
	rec := NewTokenPattern(TokenPatternConfig{
		Name: "digits", Language: "fi", Label: "X",
		Sequences: []TokenSequence{
			{Name: "digits", Rules: []TokenRule{{IsDigit: true, Repeat: true}}},
		},
	})

	text := "123 456 789"
	spans, err := rec.Analyze(context.Background(), text, &Context{Tokens: tokenize.Words(text)})
	require.NoError(t, err)
	assert.Empty(t, spans)
}

func TestTokenPatternFullSpan(t *testing.T) {
	rec := NewTokenPattern(TokenPatternConfig{
		Name: "addr", Language: "fi", Label: LabelAddress,
		Sequences: []TokenSequence{
			{Name: "loc+digit", Rules: []TokenRule{
				{EntityIn: []string{"LOC"}, Repeat: true},
				{IsDigit: true},
			}},
		},
		FullSpan: true,
	})

	text := "Liisankatu 3"
	rc := taggedContext(text, map[string]string{"Liisankatu": "LOC"})

	spans, err := rec.Analyze(context.Background(), text, rc)
	require.NoError(t, err)
	require.Len(t, spans, 1)
	assert.Equal(t, "Liisankatu 3", text[spans[0].Start:spans[0].End])
}

func TestTokenPatternAtMostOneSpan(t *testing.T) {
	rec := NewAddressTokenPattern("fi")

	text := "Liisankatu 3 ja Akkutie 84 C 7"
	rc := taggedContext(text, map[string]string{"Liisankatu": "LOC", "Akkutie": "LOC"})

	spans, err := rec.Analyze(context.Background(), text, rc)
	require.NoError(t, err)
	require.Len(t, spans, 1)

	// Of the two candidate addresses only the longer window survives.
	assert.Equal(t, "84 C 7", text[spans[0].Start:spans[0].End])
}

func TestTokenPatternEmptyContext(t *testing.T) {
	rec := NewAddressTokenPattern("fi")

	spans, err := rec.Analyze(context.Background(), "Liisankatu 3", nil)
	require.NoError(t, err)
	assert.Empty(t, spans)
}

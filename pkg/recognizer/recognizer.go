// Package recognizer provides the detection primitives of the anonymizer:
// the Span result type, the Recognizer interface and its implementations
// for regular-expression, word-list, token-pattern and model-backed
// detection.
package recognizer

import (
	"context"

	"github.com/City-of-Helsinki/text-anonymizer/pkg/ner"
	"github.com/City-of-Helsinki/text-anonymizer/pkg/tokenize"
)

// Span is one detected region of text. Offsets are byte positions into the
// analyzed string, End exclusive and greater than Start. Score is the
// recognizer's confidence in [0,1]. Source names the recognizer that
// produced the span. Spans are immutable once produced.
type Span struct {
	Start       int
	End         int
	Label       string
	Score       float64
	Source      string
	Explanation string
}

// Length returns the span's width in bytes.
func (s Span) Length() int { return s.End - s.Start }

// Text returns the region of text the span covers.
func (s Span) Text(text string) string { return text[s.Start:s.End] }

// Overlaps reports whether s and o share at least one byte.
func (s Span) Overlaps(o Span) bool { return s.Start < o.End && o.Start < s.End }

// Contains reports whether o lies entirely within s.
func (s Span) Contains(o Span) bool { return s.Start <= o.Start && o.End <= s.End }

// Adjacent reports whether s and o touch without overlapping.
func (s Span) Adjacent(o Span) bool { return s.End == o.Start || o.End == s.Start }

// Context carries the per-language analysis artifacts shared by every
// recognizer in one request: the token stream and the external model's
// entities. Recognizers treat it as read-only.
type Context struct {
	Language string
	Tokens   []tokenize.Token
	Entities []ner.Entity
}

// EntityAt returns the label of the first model entity overlapping the byte
// range [start,end), or the empty string when none does.
func (c *Context) EntityAt(start, end int) string {
	for _, e := range c.Entities {
		if e.Start < end && start < e.End {
			return e.Label
		}
	}
	return ""
}

// Recognizer scans text and yields candidate spans. Implementations are
// stateless after construction and safe for concurrent use. Language
// restricts dispatch: a recognizer runs only when the request is analyzed
// in that language.
type Recognizer interface {
	Name() string
	Language() string
	Analyze(ctx context.Context, text string, rc *Context) ([]Span, error)
}

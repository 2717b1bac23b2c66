package ner

import (
	"context"
	"sort"
	"strings"
)

// Static is a Model backed by a fixed table of phrase to label, matched
// case-insensitively against the text. It backs tests and offline fixtures
// that need deterministic model output without a recognition service.
type Static struct {
	score    float64
	byPhrase map[string]string
}

// NewStatic builds a Static model. Keys of entities are phrases, values the
// entity label reported for every occurrence of the phrase.
func NewStatic(entities map[string]string, score float64) *Static {
	byPhrase := make(map[string]string, len(entities))
	for phrase, label := range entities {
		byPhrase[strings.ToLower(phrase)] = label
	}
	return &Static{score: score, byPhrase: byPhrase}
}

// Analyze implements Model. Entities are reported in text order.
func (s *Static) Analyze(_ context.Context, text, _ string) ([]Entity, error) {
	lower := strings.ToLower(text)
	var out []Entity
	for phrase, label := range s.byPhrase {
		for from := 0; ; {
			i := strings.Index(lower[from:], phrase)
			if i < 0 {
				break
			}
			start := from + i
			out = append(out, Entity{Start: start, End: start + len(phrase), Label: label, Score: s.score})
			from = start + len(phrase)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		return out[i].End < out[j].End
	})
	return out, nil
}

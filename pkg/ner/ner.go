// Package ner defines the boundary to the external named-entity-recognition
// service: the Entity value type, the Model interface the anonymizer
// consumes, and an HTTP client for the recognition service.
package ner

import "context"

// Entity is a model-detected region of text. Offsets are byte positions
// into the analyzed string, End exclusive. Label carries the model's own
// vocabulary (for example PERSON, LOC, GPE, CARDINAL).
type Entity struct {
	Start int     `json:"start"`
	End   int     `json:"end"`
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Model supplies entities for a text in one language. Implementations must
// be safe for concurrent use.
type Model interface {
	Analyze(ctx context.Context, text, language string) ([]Entity, error)
}

// None is a Model that never reports entities. It serves runs configured
// without a recognition service.
type None struct{}

// Analyze implements Model.
func (None) Analyze(context.Context, string, string) ([]Entity, error) { return nil, nil }

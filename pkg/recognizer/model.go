package recognizer

import "context"

// DefaultModelScore is the fixed confidence assigned to model entities.
const DefaultModelScore = 0.9

// ModelRecognizer passes the external model's entities through as spans,
// keeping only the labels it is configured for. Each span carries the
// recognizer's fixed score; relabeling to the output vocabulary happens
// later in the pipeline.
type ModelRecognizer struct {
	name     string
	language string
	labels   map[string]struct{}
	score    float64
}

// NewModel builds a ModelRecognizer admitting the given model labels. A
// zero score means DefaultModelScore.
func NewModel(name, language string, labels []string, score float64) *ModelRecognizer {
	if score == 0 {
		score = DefaultModelScore
	}
	set := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		set[l] = struct{}{}
	}
	return &ModelRecognizer{name: name, language: language, labels: set, score: score}
}

// Name implements Recognizer.
func (r *ModelRecognizer) Name() string { return r.name }

// Language implements Recognizer.
func (r *ModelRecognizer) Language() string { return r.language }

// Analyze implements Recognizer.
func (r *ModelRecognizer) Analyze(ctx context.Context, text string, rc *Context) ([]Span, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if rc == nil {
		return nil, nil
	}
	var spans []Span
	for _, e := range rc.Entities {
		if _, ok := r.labels[e.Label]; !ok {
			continue
		}
		if e.End <= e.Start {
			continue
		}
		spans = append(spans, Span{
			Start:       e.Start,
			End:         e.End,
			Label:       e.Label,
			Score:       r.score,
			Source:      r.name,
			Explanation: "model entity " + e.Label,
		})
	}
	return spans, nil
}

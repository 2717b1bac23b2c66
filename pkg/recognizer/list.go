package recognizer

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/City-of-Helsinki/text-anonymizer/pkg/tokenize"
)

// Defaults for ListConfig zero values.
const (
	DefaultListThreshold = 0.91
	DefaultListMinLength = 3
)

type listEntry struct {
	phrase string
	words  []string
}

// ListRecognizer matches multi-word phrases from a deny or allow list
// against the token stream. Entries are tried longest-phrase-first so a
// short entry cannot consume tokens that belong to a longer one, and a
// matched window is never rematched: the cursor advances past it.
type ListRecognizer struct {
	name      string
	language  string
	label     string
	entries   []listEntry
	threshold float64
}

// ListConfig configures a ListRecognizer.
type ListConfig struct {
	Name     string
	Language string
	Label    string
	// Phrases are the list entries, one or more words each. They are
	// lower-cased and deduplicated at construction.
	Phrases []string
	// Threshold is the minimum Levenshtein similarity in [0,1] for a fuzzy
	// match. Zero means DefaultListThreshold.
	Threshold float64
	// MinLength drops phrases shorter than this many runes to reduce false
	// positives on short, common words. Zero means DefaultListMinLength.
	MinLength int
}

// NewList builds a ListRecognizer from cfg.
func NewList(cfg ListConfig) *ListRecognizer {
	threshold := cfg.Threshold
	if threshold == 0 {
		threshold = DefaultListThreshold
	}
	minLength := cfg.MinLength
	if minLength == 0 {
		minLength = DefaultListMinLength
	}

	entries := make([]listEntry, 0, len(cfg.Phrases))
	seen := make(map[string]struct{}, len(cfg.Phrases))
	for _, raw := range cfg.Phrases {
		phrase := strings.Join(strings.Fields(strings.ToLower(raw)), " ")
		if utf8.RuneCountInString(phrase) < minLength {
			continue
		}
		if _, dup := seen[phrase]; dup {
			continue
		}
		seen[phrase] = struct{}{}
		entries = append(entries, listEntry{phrase: phrase, words: strings.Fields(phrase)})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return len(entries[i].words) > len(entries[j].words)
	})

	return &ListRecognizer{
		name:      cfg.Name,
		language:  cfg.Language,
		label:     cfg.Label,
		entries:   entries,
		threshold: threshold,
	}
}

// Name implements Recognizer.
func (r *ListRecognizer) Name() string { return r.name }

// Language implements Recognizer.
func (r *ListRecognizer) Language() string { return r.language }

// Empty reports whether the recognizer has no usable entries.
func (r *ListRecognizer) Empty() bool { return len(r.entries) == 0 }

// Analyze implements Recognizer.
func (r *ListRecognizer) Analyze(ctx context.Context, text string, rc *Context) ([]Span, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(r.entries) == 0 || rc == nil || len(rc.Tokens) == 0 {
		return nil, nil
	}

	var spans []Span
	for i := 0; i < len(rc.Tokens); {
		span, consumed := r.matchAt(rc.Tokens, i)
		if consumed == 0 {
			i++
			continue
		}
		spans = append(spans, span)
		i += consumed
	}
	return spans, nil
}

// matchAt tries every list entry, longest first, as a window of tokens
// starting at index i. It returns the resulting span and the number of
// tokens consumed; consumed is zero when nothing matched.
func (r *ListRecognizer) matchAt(tokens []tokenize.Token, i int) (Span, int) {
	for _, entry := range r.entries {
		n := len(entry.words)
		if i+n > len(tokens) {
			continue
		}
		window := joinTokens(tokens[i : i+n])
		score, ok := r.similarity(window, entry.phrase)
		if !ok {
			continue
		}
		return Span{
			Start:       tokens[i].Start,
			End:         tokens[i+n-1].End,
			Label:       r.label,
			Score:       score,
			Source:      r.name,
			Explanation: fmt.Sprintf("list phrase %q, similarity %.2f", entry.phrase, score),
		}, n
	}
	return Span{}, 0
}

// similarity scores window against phrase. Exact equality wins outright at
// full confidence; otherwise the Levenshtein ratio must reach the
// threshold and becomes the score.
func (r *ListRecognizer) similarity(window, phrase string) (float64, bool) {
	if window == phrase {
		return 1.0, true
	}
	ratio := levenshteinRatio(window, phrase)
	if ratio >= r.threshold {
		return ratio, true
	}
	return 0, false
}

// levenshteinRatio is the normalized similarity of two strings over runes:
// (len(a)+len(b)-distance) / (len(a)+len(b)).
func levenshteinRatio(a, b string) float64 {
	la := utf8.RuneCountInString(a)
	lb := utf8.RuneCountInString(b)
	if la+lb == 0 {
		return 1.0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return float64(la+lb-dist) / float64(la+lb)
}

func joinTokens(tokens []tokenize.Token) string {
	words := make([]string, len(tokens))
	for i, t := range tokens {
		words[i] = strings.ToLower(t.Text)
	}
	return strings.Join(words, " ")
}

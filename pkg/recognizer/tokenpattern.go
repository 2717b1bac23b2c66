package recognizer

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultTokenPatternScore is the fixed confidence of token-pattern
// matches.
const DefaultTokenPatternScore = 0.8

// TokenRule constrains one token in a sequence. Zero-valued fields are
// unconstrained. A rule with Repeat set matches one or more consecutive
// tokens greedily.
type TokenRule struct {
	// EntityIn requires the token to be covered by a model entity whose
	// label is one of these.
	EntityIn []string
	IsDigit  bool
	IsAlpha  bool
	// Length requires the token to be exactly this many runes long.
	Length int
	Repeat bool
}

// TokenSequence is a named, ordered list of token rules.
type TokenSequence struct {
	Name  string
	Rules []TokenRule
}

// TokenPatternRecognizer matches token-shape sequences against the token
// stream annotated with model entity labels. Every sequence is evaluated
// over the whole stream, degenerate matches are discarded by guard checks,
// and of the survivors only the single longest match is returned, the
// first-registered sequence winning ties. The recognizer therefore yields
// at most one span per call: overlapping candidate sequences describe the
// same logical entity at different granularities.
type TokenPatternRecognizer struct {
	name         string
	language     string
	label        string
	sequences    []TokenSequence
	score        float64
	leadDenylist map[string]struct{}
	fullSpan     bool
}

// TokenPatternConfig configures a TokenPatternRecognizer.
type TokenPatternConfig struct {
	Name      string
	Language  string
	Label     string
	Sequences []TokenSequence
	// Score is the fixed confidence of a match. Zero means
	// DefaultTokenPatternScore.
	Score float64
	// LeadDenylist rejects matches whose first token, lower-cased, appears
	// in it. It screens out measurement phrases that otherwise satisfy a
	// sequence.
	LeadDenylist []string
	// FullSpan reports the entire matched window. When false the reported
	// span starts at the window's first digit, leaving leading name tokens
	// to the model recognizer.
	FullSpan bool
}

// NewTokenPattern builds a TokenPatternRecognizer from cfg.
func NewTokenPattern(cfg TokenPatternConfig) *TokenPatternRecognizer {
	score := cfg.Score
	if score == 0 {
		score = DefaultTokenPatternScore
	}
	deny := make(map[string]struct{}, len(cfg.LeadDenylist))
	for _, w := range cfg.LeadDenylist {
		deny[strings.ToLower(w)] = struct{}{}
	}
	return &TokenPatternRecognizer{
		name:         cfg.Name,
		language:     cfg.Language,
		label:        cfg.Label,
		sequences:    cfg.Sequences,
		score:        score,
		leadDenylist: deny,
		fullSpan:     cfg.FullSpan,
	}
}

// Name implements Recognizer.
func (r *TokenPatternRecognizer) Name() string { return r.name }

// Language implements Recognizer.
func (r *TokenPatternRecognizer) Language() string { return r.language }

type tokenWindow struct {
	from, to int // token index range, to exclusive
	sequence string
}

func (w tokenWindow) length() int { return w.to - w.from }

// Analyze implements Recognizer.
func (r *TokenPatternRecognizer) Analyze(ctx context.Context, text string, rc *Context) ([]Span, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if rc == nil || len(rc.Tokens) == 0 {
		return nil, nil
	}

	var best tokenWindow
	found := false
	for _, seq := range r.sequences {
		for _, w := range r.matchSequence(seq, rc) {
			if r.rejected(w, rc) {
				continue
			}
			if !found || w.length() > best.length() {
				best = w
				found = true
			}
		}
	}
	if !found {
		return nil, nil
	}
	return []Span{r.spanFor(best, text, rc)}, nil
}

// matchSequence collects the non-overlapping matches of one sequence,
// scanning left to right and resuming after each match.
func (r *TokenPatternRecognizer) matchSequence(seq TokenSequence, rc *Context) []tokenWindow {
	var out []tokenWindow
	for i := 0; i < len(rc.Tokens); {
		end, ok := matchRulesAt(seq.Rules, rc, i)
		if !ok {
			i++
			continue
		}
		out = append(out, tokenWindow{from: i, to: end, sequence: seq.Name})
		i = end
	}
	return out
}

func matchRulesAt(rules []TokenRule, rc *Context, start int) (int, bool) {
	i := start
	for _, rule := range rules {
		if i >= len(rc.Tokens) || !tokenMatches(rule, rc, i) {
			return 0, false
		}
		i++
		if rule.Repeat {
			for i < len(rc.Tokens) && tokenMatches(rule, rc, i) {
				i++
			}
		}
	}
	return i, true
}

func tokenMatches(rule TokenRule, rc *Context, i int) bool {
	tok := rc.Tokens[i]
	if len(rule.EntityIn) > 0 {
		label := rc.EntityAt(tok.Start, tok.End)
		ok := false
		for _, want := range rule.EntityIn {
			if label == want {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if rule.IsDigit && !isDigits(tok.Text) {
		return false
	}
	if rule.IsAlpha && !isAlpha(tok.Text) {
		return false
	}
	if rule.Length > 0 && utf8.RuneCountInString(tok.Text) != rule.Length {
		return false
	}
	return true
}

// rejected applies the guard checks: a window of digit tokens only, a
// window opening with a denylisted word, and a window without anything
// location-like (a LOC/GPE-tagged token or an alphabetic token of at least
// six runes).
func (r *TokenPatternRecognizer) rejected(w tokenWindow, rc *Context) bool {
	allDigits := true
	locationLike := false
	for i := w.from; i < w.to; i++ {
		tok := rc.Tokens[i]
		if !isDigits(tok.Text) {
			allDigits = false
		}
		switch rc.EntityAt(tok.Start, tok.End) {
		case "LOC", "GPE":
			locationLike = true
		}
		if isAlpha(tok.Text) && utf8.RuneCountInString(tok.Text) >= 6 {
			locationLike = true
		}
	}
	if allDigits || !locationLike {
		return true
	}
	if _, deny := r.leadDenylist[strings.ToLower(rc.Tokens[w.from].Text)]; deny {
		return true
	}
	return false
}

func (r *TokenPatternRecognizer) spanFor(w tokenWindow, text string, rc *Context) Span {
	start := rc.Tokens[w.from].Start
	end := rc.Tokens[w.to-1].End
	if !r.fullSpan {
		if i := strings.IndexFunc(text[start:end], unicode.IsDigit); i > 0 {
			start += i
		}
	}
	return Span{
		Start:       start,
		End:         end,
		Label:       r.label,
		Score:       r.score,
		Source:      r.name,
		Explanation: "token sequence " + w.sequence,
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func isAlpha(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

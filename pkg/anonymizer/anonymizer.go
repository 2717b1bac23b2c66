package anonymizer

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"golang.org/x/text/language"

	"github.com/City-of-Helsinki/text-anonymizer/pkg/recognizer"
	"github.com/City-of-Helsinki/text-anonymizer/pkg/tokenize"
)

// Request is one anonymization call. Zero values mean instance defaults:
// all configured languages, every recognizer's output, the default
// profile. CustomBlocklist and CustomGrantlist extend the registry for
// this call only.
type Request struct {
	Text            string
	Languages       []string
	Recognizers     []string
	Profile         string
	CustomBlocklist []string
	CustomGrantlist []string
}

// Anonymizer detects personal data in text and replaces it with display
// labels. It is safe for concurrent use.
type Anonymizer struct {
	settings Settings
	builder  *Builder
	logger   *slog.Logger
}

// New returns an Anonymizer drawing registries from builder.
func New(settings Settings, builder *Builder, logger *slog.Logger) *Anonymizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Anonymizer{settings: settings, builder: builder, logger: logger}
}

// Anonymize runs detection over the request text and returns the redacted
// text with per-label statistics and original fragments. Empty input
// yields an empty result. The only error is context cancellation;
// recognizer and model failures degrade to fewer detections.
func (a *Anonymizer) Anonymize(ctx context.Context, req Request) (*Result, error) {
	if req.Text == "" {
		return &Result{Statistics: map[string]int{}, Details: map[string][]string{}}, nil
	}

	langs := a.resolveLanguages(req.Languages)
	reg := a.registryFor(req.Profile)

	// Request-scoped lists join the dispatch order so that grantlists
	// outrank blocklists on score ties: the custom grantlist leads, the
	// custom blocklist trails the whole registry.
	dispatch := make([]recognizer.Recognizer, 0, len(reg.Recognizers())+2)
	if len(req.CustomGrantlist) > 0 {
		dispatch = append(dispatch, a.customList("custom_grantlist", recognizer.LabelGrantlisted, req.CustomGrantlist))
	}
	dispatch = append(dispatch, reg.Recognizers()...)
	if len(req.CustomBlocklist) > 0 {
		dispatch = append(dispatch, a.customList("custom_blocklist", recognizer.LabelOther, req.CustomBlocklist))
	}

	var cands []candidate
	tokens := tokenize.Words(req.Text)
	for _, lang := range langs {
		rc := &recognizer.Context{Language: lang, Tokens: tokens}
		entities, err := reg.Model().Analyze(ctx, req.Text, lang)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			a.logger.Warn("Model analysis failed, continuing without model entities",
				"language", lang, "error", err)
		}
		rc.Entities = entities

		for idx, rec := range dispatch {
			if rec.Language() != lang {
				continue
			}
			spans, err := rec.Analyze(ctx, req.Text, rc)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				a.logger.Warn("Recognizer failed", "recognizer", rec.Name(),
					"language", lang, "error", err)
				continue
			}
			for _, s := range spans {
				if s.Score < a.settings.ScoreThreshold {
					continue
				}
				cands = append(cands, candidate{Span: s, order: idx})
			}
		}
	}

	spans := filterLabels(resolveConflicts(cands), req.Recognizers)
	return a.redact(req.Text, spans), nil
}

// AnonymizeText is Anonymize for callers that only need the redacted
// string.
func (a *Anonymizer) AnonymizeText(ctx context.Context, text string) (string, error) {
	res, err := a.Anonymize(ctx, Request{Text: text})
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

// resolveLanguages intersects the requested languages with the configured
// ones, preserving request order. Tags normalize to their base language,
// so "fi-FI" and "en-US" select "fi" and "en". An empty request means all
// configured languages.
func (a *Anonymizer) resolveLanguages(requested []string) []string {
	if len(requested) == 0 {
		return a.settings.Languages
	}
	seen := make(map[string]bool, len(requested))
	var out []string
	for _, raw := range requested {
		tag, err := language.Parse(raw)
		if err != nil {
			continue
		}
		base, _ := tag.Base()
		lang := base.String()
		if seen[lang] || !slices.Contains(a.settings.Languages, lang) {
			continue
		}
		seen[lang] = true
		out = append(out, lang)
	}
	return out
}

// registryFor resolves the profile to a registry, falling back to the
// default on any failure so a bad profile name degrades service instead
// of denying it.
func (a *Anonymizer) registryFor(name string) *Registry {
	if name == "" {
		return a.builder.Default()
	}
	reg, err := a.builder.ForProfile(name)
	if err != nil {
		a.logger.Debug("Profile registry unavailable, using default",
			"profile", name, "error", err)
		return a.builder.Default()
	}
	return reg
}

// customList builds a request-scoped list recognizer.
func (a *Anonymizer) customList(name, label string, phrases []string) recognizer.Recognizer {
	return recognizer.NewList(recognizer.ListConfig{
		Name:      name,
		Language:  "fi",
		Label:     label,
		Phrases:   phrases,
		Threshold: a.settings.ListThreshold,
	})
}

// redact rewrites text with display-label markers and collects statistics
// and details. Spans must be sorted and non-overlapping. Protected labels
// keep their text but still count.
func (a *Anonymizer) redact(text string, spans []recognizer.Span) *Result {
	masks := a.settings.Masks()
	res := &Result{
		Statistics: make(map[string]int, len(spans)),
		Details:    make(map[string][]string, len(spans)),
	}
	var b strings.Builder
	b.Grow(len(text))
	last := 0
	for _, s := range spans {
		display := labelize(s.Label, s.Score, masks, a.settings.Debug)
		res.Statistics[display]++
		res.Details[display] = append(res.Details[display], s.Text(text))
		b.WriteString(text[last:s.Start])
		if a.settings.protected(s.Label) {
			b.WriteString(s.Text(text))
		} else {
			b.WriteString("<" + display + ">")
		}
		last = s.End
	}
	b.WriteString(text[last:])
	res.Text = b.String()
	return res
}

// labelize maps an internal label to its display form. Unknown labels
// pass through unchanged; debug mode appends the score.
func labelize(label string, score float64, masks map[string]string, debug bool) string {
	display, ok := masks[label]
	if !ok {
		display = label
	}
	if debug {
		return fmt.Sprintf("%s_%.2f", display, score)
	}
	return display
}

package anonymizer

import (
	"sort"

	"github.com/City-of-Helsinki/text-anonymizer/pkg/recognizer"
)

// candidate pairs a span with the position of its recognizer in the
// dispatch order, the final tie-breaker of conflict resolution.
type candidate struct {
	recognizer.Span
	order int
}

// resolveConflicts reduces overlapping candidates to a non-conflicting
// set. Candidates are ranked by score, then length, then recognizer
// order, and placed one by one: a candidate that overlaps an accepted
// span of a different label is dropped, as is one that partially overlaps
// a same-label span. Same-label containment or adjacency merges the two
// into their union, keeping the higher score. The result is sorted by
// start offset.
func resolveConflicts(cands []candidate) []recognizer.Span {
	ranked := make([]candidate, len(cands))
	copy(ranked, cands)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		if ranked[i].Length() != ranked[j].Length() {
			return ranked[i].Length() > ranked[j].Length()
		}
		return ranked[i].order < ranked[j].order
	})

	var accepted []recognizer.Span
	for _, c := range ranked {
		accepted = place(accepted, c.Span)
	}
	sort.Slice(accepted, func(i, j int) bool { return accepted[i].Start < accepted[j].Start })
	return accepted
}

// place adds s to the accepted set, which stays mutually non-overlapping.
// Every accepted span is checked before deciding: one disqualifying
// overlap drops s even when another accepted span could absorb it.
func place(accepted []recognizer.Span, s recognizer.Span) []recognizer.Span {
	var merges []int
	for k, a := range accepted {
		switch {
		case a.Label == s.Label && (a.Contains(s) || s.Contains(a) || a.Adjacent(s)):
			merges = append(merges, k)
		case a.Overlaps(s):
			return accepted
		}
	}
	if len(merges) == 0 {
		return append(accepted, s)
	}

	merged := s
	for _, k := range merges {
		merged = union(accepted[k], merged)
	}
	out := make([]recognizer.Span, 0, len(accepted))
	next := 0
	for k, a := range accepted {
		if next < len(merges) && merges[next] == k {
			next++
			continue
		}
		out = append(out, a)
	}
	return append(out, merged)
}

// union covers both spans and carries the metadata of the higher-scoring
// one.
func union(a, b recognizer.Span) recognizer.Span {
	u := a
	if b.Score > a.Score {
		u = b
	}
	u.Start = min(a.Start, b.Start)
	u.End = max(a.End, b.End)
	return u
}

// filterLabels keeps spans whose internal label is in allowed. An empty
// filter keeps everything.
func filterLabels(spans []recognizer.Span, allowed []string) []recognizer.Span {
	if len(allowed) == 0 {
		return spans
	}
	set := make(map[string]struct{}, len(allowed))
	for _, label := range allowed {
		set[label] = struct{}{}
	}
	out := make([]recognizer.Span, 0, len(spans))
	for _, s := range spans {
		if _, ok := set[s.Label]; ok {
			out = append(out, s)
		}
	}
	return out
}

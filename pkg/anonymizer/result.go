package anonymizer

// Result is the outcome of one Anonymize call. Statistics counts retained
// spans per display label; Details lists the original text fragments per
// display label, in document order.
type Result struct {
	Text       string              `json:"anonymized_txt"`
	Statistics map[string]int      `json:"statistics"`
	Details    map[string][]string `json:"details,omitempty"`
}

// CombineStatistics sums per-label counts across results, for batch runs.
func CombineStatistics(stats []map[string]int) map[string]int {
	combined := make(map[string]int)
	for _, s := range stats {
		for label, n := range s {
			combined[label] += n
		}
	}
	return combined
}

// CombineDetails concatenates per-label fragments across results,
// preserving input order within each label.
func CombineDetails(details []map[string][]string) map[string][]string {
	combined := make(map[string][]string)
	for _, d := range details {
		for label, fragments := range d {
			combined[label] = append(combined[label], fragments...)
		}
	}
	return combined
}

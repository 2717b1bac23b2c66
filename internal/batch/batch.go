// Package batch runs the anonymization pipeline over whole files: CSV
// exports with selected columns and plain-text documents split into
// paragraphs. Rows are processed concurrently, output order is preserved.
package batch

import (
	"log/slog"

	"github.com/City-of-Helsinki/text-anonymizer/pkg/anonymizer"
)

// DefaultWorkers is the concurrency limit applied when none is configured.
const DefaultWorkers = 4

// Runner applies the anonymization pipeline to file contents.
type Runner struct {
	anonymizer *anonymizer.Anonymizer
	logger     *slog.Logger
	workers    int
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets a custom logger for batch processing.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithWorkers sets the maximum number of rows processed concurrently.
func WithWorkers(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.workers = n
		}
	}
}

// NewRunner creates a new batch runner over the given engine.
func NewRunner(anon *anonymizer.Anonymizer, opts ...Option) *Runner {
	r := &Runner{
		anonymizer: anon,
		workers:    DefaultWorkers,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// Summary aggregates one batch run. Statistics and Details are combined
// across every anonymized unit, in input order.
type Summary struct {
	// Rows is the number of data rows (CSV) or paragraphs (text) seen.
	Rows int
	// Anonymized is the number of non-empty cells or paragraphs that
	// went through the pipeline.
	Anonymized int

	Statistics map[string]int
	Details    map[string][]string
}

type unit struct {
	stats   map[string]int
	details map[string][]string
}

func summarize(rows int, units []unit) *Summary {
	summary := &Summary{Rows: rows, Anonymized: len(units)}
	stats := make([]map[string]int, 0, len(units))
	details := make([]map[string][]string, 0, len(units))
	for _, u := range units {
		stats = append(stats, u.stats)
		details = append(details, u.details)
	}
	summary.Statistics = anonymizer.CombineStatistics(stats)
	summary.Details = anonymizer.CombineDetails(details)
	return summary
}

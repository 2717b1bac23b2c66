package batch

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/City-of-Helsinki/text-anonymizer/pkg/anonymizer"
)

// DefaultComma is the default CSV field delimiter.
const DefaultComma = ';'

// CSVOptions configures one CSV run.
type CSVOptions struct {
	// Request is the template applied to every cell; Text is replaced.
	Request anonymizer.Request

	// Comma is the field delimiter. Zero means DefaultComma.
	Comma rune

	// Header marks the first row as a header. It is copied through
	// unchanged and used to resolve column names.
	Header bool

	// Columns selects columns to anonymize by header name.
	Columns []string

	// Indexes selects columns to anonymize by zero-based index. When
	// neither Columns nor Indexes is given, the first column is used.
	Indexes []int
}

// AnonymizeCSV reads CSV records from src, anonymizes the selected columns
// and writes the full records to dst. Rows shorter than a selected index
// and empty cells pass through unchanged.
func (r *Runner) AnonymizeCSV(ctx context.Context, src io.Reader, dst io.Writer, opts CSVOptions) (*Summary, error) {
	comma := opts.Comma
	if comma == 0 {
		comma = DefaultComma
	}

	reader := csv.NewReader(src)
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading csv: %w", err)
	}

	var header []string
	rows := records
	if opts.Header && len(records) > 0 {
		header = records[0]
		rows = records[1:]
	}

	indexes, err := resolveColumns(header, opts.Columns, opts.Indexes)
	if err != nil {
		return nil, err
	}

	r.logger.Debug("Anonymizing CSV", "rows", len(rows), "columns", indexes)

	out := make([][]string, len(rows))
	cells := make([][]unit, len(rows))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, row := range rows {
		g.Go(func() error {
			result := slices.Clone(row)
			var rowCells []unit
			for _, idx := range indexes {
				if idx >= len(row) || row[idx] == "" {
					continue
				}
				req := opts.Request
				req.Text = row[idx]
				res, err := r.anonymizer.Anonymize(ctx, req)
				if err != nil {
					return fmt.Errorf("row %d column %d: %w", i+1, idx, err)
				}
				result[idx] = res.Text
				rowCells = append(rowCells, unit{stats: res.Statistics, details: res.Details})
			}
			out[i] = result
			cells[i] = rowCells
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	writer := csv.NewWriter(dst)
	writer.Comma = comma
	if header != nil {
		if err := writer.Write(header); err != nil {
			return nil, fmt.Errorf("writing csv: %w", err)
		}
	}
	for _, row := range out {
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("writing csv: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("writing csv: %w", err)
	}

	var units []unit
	for _, rowCells := range cells {
		units = append(units, rowCells...)
	}
	return summarize(len(rows), units), nil
}

func resolveColumns(header, names []string, indexes []int) ([]int, error) {
	resolved := slices.Clone(indexes)
	if len(names) > 0 && header == nil {
		return nil, fmt.Errorf("column names require a header row")
	}
	for _, name := range names {
		i := slices.Index(header, name)
		if i < 0 {
			return nil, fmt.Errorf("column %q not found in header", name)
		}
		resolved = append(resolved, i)
	}
	if len(resolved) == 0 {
		resolved = []int{0}
	}
	for _, i := range resolved {
		if i < 0 {
			return nil, fmt.Errorf("column index %d out of range", i)
		}
	}
	return resolved, nil
}

package batch

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/City-of-Helsinki/text-anonymizer/pkg/anonymizer"
)

// TextOptions configures one plain-text run.
type TextOptions struct {
	// Request is the template applied to every paragraph; Text is replaced.
	Request anonymizer.Request

	// Separator is written between output paragraphs on its own line.
	// Empty means paragraphs are separated by a single newline.
	Separator string
}

// AnonymizeText reads a plain-text document from src, anonymizes it
// paragraph by paragraph and writes the result to dst. Lines within a
// paragraph are joined with spaces before analysis so that entities
// spanning a line break are still found; output whitespace is collapsed.
func (r *Runner) AnonymizeText(ctx context.Context, src io.Reader, dst io.Writer, opts TextOptions) (*Summary, error) {
	chunks, err := readChunks(src)
	if err != nil {
		return nil, fmt.Errorf("reading text: %w", err)
	}

	r.logger.Debug("Anonymizing text", "paragraphs", len(chunks))

	out := make([]string, len(chunks))
	units := make([]unit, len(chunks))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, chunk := range chunks {
		g.Go(func() error {
			req := opts.Request
			req.Text = chunk
			res, err := r.anonymizer.Anonymize(ctx, req)
			if err != nil {
				return fmt.Errorf("paragraph %d: %w", i+1, err)
			}
			out[i] = strings.Join(strings.Fields(res.Text), " ")
			units[i] = unit{stats: res.Statistics, details: res.Details}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	separator := "\n"
	if opts.Separator != "" {
		separator = "\n" + opts.Separator + "\n"
	}

	w := bufio.NewWriter(dst)
	for i, chunk := range out {
		if i > 0 {
			w.WriteString(separator)
		}
		w.WriteString(chunk)
	}
	if len(out) > 0 {
		w.WriteString("\n")
	}
	if err := w.Flush(); err != nil {
		return nil, fmt.Errorf("writing text: %w", err)
	}

	return summarize(len(chunks), units), nil
}

// readChunks splits the document into paragraphs on blank lines.
func readChunks(src io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var chunks []string
	var doc []string
	flush := func() {
		if len(doc) > 0 {
			chunks = append(chunks, strings.Join(doc, " "))
			doc = doc[:0]
		}
	}
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		doc = append(doc, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	flush()
	return chunks, nil
}

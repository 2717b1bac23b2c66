package main

import (
	"fmt"
	"io"
	"log/slog"
	"maps"
	"path/filepath"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/City-of-Helsinki/text-anonymizer/internal/batch"
	"github.com/City-of-Helsinki/text-anonymizer/pkg/anonymizer"
	"github.com/City-of-Helsinki/text-anonymizer/pkg/config"
	"github.com/City-of-Helsinki/text-anonymizer/pkg/logging"
	"github.com/City-of-Helsinki/text-anonymizer/pkg/ner"
)

// app bundles the assembled pipeline for one CLI invocation.
type app struct {
	logger     *slog.Logger
	settings   anonymizer.Settings
	root       string
	provider   *config.Provider
	builder    *anonymizer.Builder
	anonymizer *anonymizer.Anonymizer
}

// newApp builds the pipeline from settings and flags. Flags that the user
// set override the settings file.
func newApp(cmd *cobra.Command) (*app, error) {
	flags := cmd.Flags()

	logLevel, _ := flags.GetString("log-level")
	pretty, _ := flags.GetBool("pretty")
	logger := logging.New(logLevel, pretty)
	slog.SetDefault(logger)

	root, _ := flags.GetString("config-root")
	if root == "" {
		resolved, err := config.EnsureRoot()
		if err != nil {
			logger.Warn("Preparing configuration root failed", "error", err)
			resolved = config.DefaultRoot()
		}
		root = resolved
	}

	settingsPath, _ := flags.GetString("settings")
	if settingsPath == "" {
		settingsPath = filepath.Join(root, "settings.yaml")
	}
	settings, err := anonymizer.LoadSettings(settingsPath)
	if err != nil {
		logger.Warn("Loading settings failed, using defaults", "path", settingsPath, "error", err)
	}

	if flags.Changed("languages") {
		settings.Languages, _ = flags.GetStringSlice("languages")
	}
	if flags.Changed("recognizers") {
		settings.Recognizers, _ = flags.GetStringSlice("recognizers")
	}
	if flags.Changed("debug") {
		settings.Debug, _ = flags.GetBool("debug")
	}
	if flags.Changed("ner-url") {
		settings.NERServiceURL, _ = flags.GetString("ner-url")
	}
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	var model ner.Model = ner.None{}
	if settings.NERServiceURL != "" {
		model = ner.NewClient(settings.NERServiceURL, logger)
	}

	provider := config.NewProvider(config.NewCache(root, logger.With("component", "config")))
	builder := anonymizer.NewBuilder(provider, model, settings, logger.With("component", "registry"))

	return &app{
		logger:     logger,
		settings:   settings,
		root:       root,
		provider:   provider,
		builder:    builder,
		anonymizer: anonymizer.New(settings, builder, logger.With("component", "anonymizer")),
	}, nil
}

// runner builds a batch runner honoring the --workers flag when present.
func (a *app) runner(cmd *cobra.Command) *batch.Runner {
	workers, _ := cmd.Flags().GetInt("workers")
	return batch.NewRunner(a.anonymizer, batch.WithLogger(a.logger), batch.WithWorkers(workers))
}

// charsets maps the supported --encoding values to their charmaps.
var charsets = map[string]*charmap.Charmap{
	"latin-1":      charmap.ISO8859_1,
	"latin1":       charmap.ISO8859_1,
	"iso-8859-1":   charmap.ISO8859_1,
	"iso-8859-15":  charmap.ISO8859_15,
	"latin-9":      charmap.ISO8859_15,
	"windows-1252": charmap.Windows1252,
	"cp1252":       charmap.Windows1252,
}

func charset(encoding string) (*charmap.Charmap, error) {
	name := strings.ToLower(strings.TrimSpace(encoding))
	if name == "" || name == "utf-8" || name == "utf8" {
		return nil, nil
	}
	cm, ok := charsets[name]
	if !ok {
		return nil, fmt.Errorf("unsupported encoding %q", encoding)
	}
	return cm, nil
}

// decodeReader wraps r so that legacy single-byte encodings read as UTF-8.
func decodeReader(r io.Reader, encoding string) (io.Reader, error) {
	cm, err := charset(encoding)
	if err != nil || cm == nil {
		return r, err
	}
	return transform.NewReader(r, cm.NewDecoder()), nil
}

// encodeWriter wraps w so that output is written in the source encoding.
// The returned writer must be closed to flush the final transform state.
func encodeWriter(w io.Writer, encoding string) (io.WriteCloser, error) {
	cm, err := charset(encoding)
	if err != nil {
		return nil, err
	}
	if cm == nil {
		return nopWriteCloser{w}, nil
	}
	return transform.NewWriter(w, cm.NewEncoder()), nil
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func delimiterRune(delimiter string) (rune, error) {
	if delimiter == "" {
		return batch.DefaultComma, nil
	}
	r, size := utf8.DecodeRuneInString(delimiter)
	if size != len(delimiter) {
		return 0, fmt.Errorf("delimiter must be a single character, got %q", delimiter)
	}
	return r, nil
}

// printSummary reports batch results on stderr so that they never mix with
// anonymized output on stdout.
func printSummary(cmd *cobra.Command, debug bool, summary *batch.Summary, noun string) {
	w := cmd.ErrOrStderr()
	fmt.Fprintf(w, "Processed %d %s, anonymized %d.\n", summary.Rows, noun, summary.Anonymized)
	for _, label := range slices.Sorted(maps.Keys(summary.Statistics)) {
		fmt.Fprintf(w, "  %s: %d\n", label, summary.Statistics[label])
	}
	if debug {
		for _, label := range slices.Sorted(maps.Keys(summary.Details)) {
			fmt.Fprintf(w, "  %s: %s\n", label, strings.Join(summary.Details[label], ", "))
		}
	}
}

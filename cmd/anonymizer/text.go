package main

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/City-of-Helsinki/text-anonymizer/internal/batch"
	"github.com/City-of-Helsinki/text-anonymizer/pkg/anonymizer"
)

// NewTextCmd creates the text command.
func NewTextCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "text [text...]",
		Short: "Anonymize text from arguments, stdin or a file",
		Long: `Anonymize free text. Arguments are joined and anonymized as one text.
Without arguments, stdin is anonymized line by line. With --file, the file
is split into paragraphs on blank lines and each paragraph is anonymized
as a whole, so names broken across lines are still found.

Examples:
  # Inline text
  anonymizer text "Moikka, olen Matti Meikäläinen, puh 0401234567"

  # Pipe through
  cat palaute.txt | anonymizer text

  # Whole file with a customer profile
  anonymizer text --file palaute.txt --output palaute_anon.txt --profile=palautteet`,
		Args: cobra.ArbitraryArgs,
		RunE: runText,
	}

	cmd.Flags().StringP("file", "f", "", "Read input from a file, paragraph by paragraph")
	cmd.Flags().StringP("output", "o", "", "Write output to a file instead of stdout")
	cmd.Flags().String("separator", "", "Line written between output paragraphs in file mode")
	cmd.Flags().String("encoding", "", "Source and target encoding in file mode (default UTF-8)")
	cmd.Flags().String("profile", "", "Customer profile with extra lists and patterns")
	cmd.Flags().Int("workers", batch.DefaultWorkers, "Paragraphs processed concurrently in file mode")

	return cmd
}

// runText executes the text command.
func runText(cmd *cobra.Command, args []string) error {
	app, err := newApp(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	profile, _ := cmd.Flags().GetString("profile")
	file, _ := cmd.Flags().GetString("file")
	output, _ := cmd.Flags().GetString("output")
	encoding, _ := cmd.Flags().GetString("encoding")

	out := cmd.OutOrStdout()
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("creating %s: %w", output, err)
		}
		defer f.Close()
		out = f
	}

	if file != "" {
		separator, _ := cmd.Flags().GetString("separator")

		in, err := os.Open(file)
		if err != nil {
			return fmt.Errorf("opening %s: %w", file, err)
		}
		defer in.Close()

		src, err := decodeReader(in, encoding)
		if err != nil {
			return err
		}
		dst, err := encodeWriter(out, encoding)
		if err != nil {
			return err
		}

		summary, err := app.runner(cmd).AnonymizeText(ctx, src, dst, batch.TextOptions{
			Request:   anonymizer.Request{Profile: profile},
			Separator: separator,
		})
		if err != nil {
			return err
		}
		if err := dst.Close(); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
		printSummary(cmd, app.settings.Debug, summary, "paragraphs")
		return nil
	}

	if len(args) > 0 {
		result, err := app.anonymizer.Anonymize(ctx, anonymizer.Request{
			Text:    strings.Join(args, " "),
			Profile: profile,
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(out, result.Text)
		return nil
	}

	scanner := bufio.NewScanner(cmd.InOrStdin())
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		result, err := app.anonymizer.Anonymize(ctx, anonymizer.Request{
			Text:    scanner.Text(),
			Profile: profile,
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(out, result.Text)
	}
	return scanner.Err()
}

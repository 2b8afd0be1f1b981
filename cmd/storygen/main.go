package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"genomic-report-server/internal/report"
	"genomic-report-server/internal/story"
)

type options struct {
	input    string
	language string
	level    string
	length   string
	html     bool
}

func main() {
	if err := newRootCmd(os.Stdin, os.Stdout).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(stdin io.Reader, stdout io.Writer) *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "storygen",
		Short:         "Render a patient story from a report document",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(stdin, stdout, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.input, "input", "i", "-", "Report JSON file, or - for stdin")
	cmd.Flags().StringVarP(&opts.language, "language", "l", string(story.English), "Story language (en, ar)")
	cmd.Flags().StringVar(&opts.level, "level", string(story.Adult), "Reading level (child, adult)")
	cmd.Flags().StringVar(&opts.length, "length", string(story.Standard), "Story length (short, standard)")
	cmd.Flags().BoolVar(&opts.html, "html", false, "Write the printable HTML page instead of text")
	return cmd
}

func run(stdin io.Reader, stdout io.Writer, opts *options) error {
	lang, err := story.ParseLanguage(opts.language)
	if err != nil {
		return err
	}
	level, err := story.ParseLevel(opts.level)
	if err != nil {
		return err
	}
	length, err := story.ParseLength(opts.length)
	if err != nil {
		return err
	}

	raw, err := readInput(stdin, opts.input)
	if err != nil {
		return err
	}
	data, err := report.Decode(raw)
	if err != nil {
		return fmt.Errorf("failed to decode %s: %w", opts.input, err)
	}

	out := story.Generate(story.Config{Data: data, Language: lang, Level: level, Length: length})
	if opts.html {
		return story.RenderPrintPage(stdout, data, lang, out)
	}

	var b strings.Builder
	b.WriteString(out.Title + "\n\n")
	for _, p := range out.Paragraphs {
		b.WriteString(p + "\n\n")
	}
	for _, h := range out.Highlights {
		b.WriteString("- " + h + "\n")
	}
	_, err = io.WriteString(stdout, b.String())
	return err
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return raw, nil
}

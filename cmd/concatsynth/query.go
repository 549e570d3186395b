package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/MrWong99/concatsynth/internal/config"
	"github.com/MrWong99/concatsynth/internal/export"
	"github.com/MrWong99/concatsynth/internal/phonetic"
	"github.com/MrWong99/concatsynth/pkg/corpus"
	"github.com/MrWong99/concatsynth/pkg/speech"
)

// query prints the spans that realise the phonemes given on the command line.
func query(ctx context.Context, cfg *config.Config, args []string) int {
	fs := flag.NewFlagSet("query", flag.ContinueOnError)
	mode := fs.String("mode", "maximal", "lookup mode: exact or maximal")
	limit := fs.Int("limit", 5, "maximum number of matches to print")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	content := phonemeArgs(fs.Args())
	if len(content) == 0 {
		fmt.Fprintln(os.Stderr, "concatsynth query: no phonemes given")
		return 2
	}

	c, err := buildCorpus(ctx, cfg.Corpus, nil)
	if err != nil {
		slog.Error("failed to build corpus", "err", err)
		return 1
	}
	reportUnknown(os.Stderr, c, content)

	switch *mode {
	case "exact":
		printExact(os.Stdout, c, content, *limit)
	case "maximal":
		printMaximal(os.Stdout, c, content, *limit)
	default:
		fmt.Fprintf(os.Stderr, "concatsynth query: unknown mode %q\n", *mode)
		return 2
	}
	return 0
}

func printExact(w io.Writer, c *corpus.Corpus, content []string, limit int) {
	fmt.Fprintf(w, "%s: %d occurrences\n", strings.Join(content, " "), c.Count(content))
	n := 0
	for u := range c.FindUtterances(content) {
		if n == limit {
			break
		}
		fmt.Fprintf(w, "  [%.3f, %.3f]\n", u.StartTime(), u.EndTime())
		n++
	}
}

func printMaximal(w io.Writer, c *corpus.Corpus, content []string, limit int) {
	runs := c.FindMaximalContentSeqs(content)
	for i, run := range runs {
		fmt.Fprintf(w, "run %d: %s (%d occurrences)\n", i, strings.Join(run, " "), c.Count(run))
	}
	n := 0
	for combo := range c.FindMinimalUtterances(runs) {
		if n == limit {
			break
		}
		spans := make([]string, len(combo))
		for i, u := range combo {
			spans[i] = fmt.Sprintf("[%.3f, %.3f]", u.StartTime(), u.EndTime())
		}
		fmt.Fprintf(w, "  %s\n", strings.Join(spans, " + "))
		n++
	}
	if n == 0 {
		fmt.Fprintln(w, "  no combination covers every run")
	}
}

func reportUnknown(w io.Writer, c *corpus.Corpus, content []string) {
	for sym, sugg := range phonetic.FromSource(c).SuggestAll(content) {
		alts := make([]string, len(sugg))
		for i, s := range sugg {
			alts[i] = s.Symbol
		}
		fmt.Fprintf(w, "unknown phoneme %q; did you mean %s?\n", sym, strings.Join(alts, ", "))
	}
}

// splice writes the first (or -pick'th) maximal-run combination for the given
// phonemes to a WAV file.
func splice(ctx context.Context, cfg *config.Config, args []string) int {
	fs := flag.NewFlagSet("splice", flag.ContinueOnError)
	out := fs.String("out", "", "output WAV path")
	pick := fs.Int("pick", 0, "index of the combination to render")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	content := phonemeArgs(fs.Args())
	if *out == "" || len(content) == 0 {
		fmt.Fprintln(os.Stderr, "concatsynth splice: -out and phonemes are required")
		return 2
	}

	c, err := buildCorpus(ctx, cfg.Corpus, nil)
	if err != nil {
		slog.Error("failed to build corpus", "err", err)
		return 1
	}
	reportUnknown(os.Stderr, c, content)

	combo, err := pickCombination(c, content, *pick)
	if err != nil {
		slog.Error("splice failed", "err", err)
		return 1
	}
	if err := export.WriteWAVFile(*out, export.Concatenate(combo...), cfg.Corpus.SampleRate); err != nil {
		slog.Error("splice failed", "err", err)
		return 1
	}
	slog.Info("spliced", "out", *out, "spans", len(combo))
	return 0
}

var errNoCombination = errors.New("no recorded spans cover the phonemes")

func pickCombination(c *corpus.Corpus, content []string, pick int) ([]*speech.Utterance, error) {
	i := 0
	for combo := range c.FindMaximalUtterances(content) {
		if i == pick {
			return combo, nil
		}
		i++
	}
	if i == 0 {
		return nil, errNoCombination
	}
	return nil, fmt.Errorf("combination %d requested, only %d available", pick, i)
}

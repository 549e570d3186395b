// Command concatsynth builds a speech corpus from aligned recordings and
// retrieves recorded spans for phoneme sequences.
//
// Usage:
//
//	concatsynth [-config config.yaml] serve
//	concatsynth [-config config.yaml] query [-mode exact|maximal] [-limit n] PHONEMES...
//	concatsynth [-config config.yaml] splice -out out.wav [-pick i] PHONEMES...
//
// serve is the default command.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/MrWong99/concatsynth/internal/config"
	"github.com/MrWong99/concatsynth/internal/ingest"
	"github.com/MrWong99/concatsynth/internal/observe"
	"github.com/MrWong99/concatsynth/pkg/corpus"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	fs := flag.NewFlagSet("concatsynth", flag.ContinueOnError)
	configPath := fs.String("config", "config.yaml", "path to the YAML configuration file")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	cmd, rest := "serve", fs.Args()
	if len(rest) > 0 {
		cmd, rest = rest[0], rest[1:]
	}

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "concatsynth: config file %q not found\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "concatsynth: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	level := new(slog.LevelVar)
	level.Set(cfg.Server.LogLevel.Level())
	slog.SetDefault(newLogger(level))

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case "serve":
		return serve(ctx, *configPath, cfg, level)
	case "query":
		return query(ctx, cfg, rest)
	case "splice":
		return splice(ctx, cfg, rest)
	default:
		fmt.Fprintf(os.Stderr, "concatsynth: unknown command %q (want serve, query or splice)\n", cmd)
		return 2
	}
}

// buildCorpus loads every entry configured in cfg. It fails when nothing
// could be loaded.
func buildCorpus(ctx context.Context, cfg config.CorpusConfig, m *observe.Metrics) (*corpus.Corpus, error) {
	entries, err := ingest.EntriesFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	l := ingest.NewLoader(cfg)
	l.Metrics = m
	c, rep, err := l.Load(ctx, entries)
	if err != nil {
		return nil, err
	}
	if rep.Loaded == 0 {
		return nil, fmt.Errorf("no utterances loaded from %d entries", len(entries))
	}
	return c, nil
}

// phonemeArgs splits positional arguments on spaces and commas.
func phonemeArgs(args []string) []string {
	return strings.FieldsFunc(strings.Join(args, " "), func(r rune) bool {
		return r == ',' || r == ' '
	})
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level *slog.LevelVar) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

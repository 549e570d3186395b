package ingest

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/MrWong99/concatsynth/internal/config"
)

// Discover pairs every *.json label in labelDir with the same-stem *.wav file
// in audioDir. An empty audioDir means labelDir. Labels without a recording
// are logged and left out. Entries are sorted by label path.
func Discover(labelDir, audioDir string) ([]Entry, error) {
	if audioDir == "" {
		audioDir = labelDir
	}
	labels, err := filepath.Glob(filepath.Join(labelDir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("ingest: discover: %w", err)
	}
	if _, err := os.Stat(labelDir); err != nil {
		return nil, fmt.Errorf("ingest: discover: %w", err)
	}
	slices.Sort(labels)

	entries := make([]Entry, 0, len(labels))
	for _, label := range labels {
		wav := filepath.Join(audioDir, stem(label)+".wav")
		if _, err := os.Stat(wav); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				slog.Warn("ingest: label has no recording", "label", label, "audio", wav)
				continue
			}
			return nil, fmt.Errorf("ingest: discover: %w", err)
		}
		entries = append(entries, Entry{Label: label, Audio: wav})
	}
	return entries, nil
}

// EntriesFromConfig returns the discovered entries of cfg followed by its
// explicit entries.
func EntriesFromConfig(cfg config.CorpusConfig) ([]Entry, error) {
	var entries []Entry
	if cfg.LabelDir != "" {
		found, err := Discover(cfg.LabelDir, cfg.AudioDir)
		if err != nil {
			return nil, err
		}
		entries = found
	}
	for _, e := range cfg.Entries {
		entries = append(entries, Entry{Label: e.Label, Audio: e.Audio})
	}
	return entries, nil
}

// NewLoader returns a Loader configured from cfg.
func NewLoader(cfg config.CorpusConfig) *Loader {
	return &Loader{
		SampleRate:  cfg.SampleRate,
		Concurrency: cfg.Concurrency,
		Strict:      cfg.Strict,
		PeakLevel:   cfg.PeakLevel,
	}
}

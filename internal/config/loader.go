package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated
// [Config] with defaults applied. Relative corpus paths are resolved against
// the directory containing path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	cfg.ResolvePaths(filepath.Dir(path))
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults and validates
// the result. Useful in tests where configs are constructed from string
// literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	cfg.ApplyDefaults()
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ResolvePaths makes relative corpus paths relative to base.
func (c *Config) ResolvePaths(base string) {
	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}
	c.Corpus.LabelDir = resolve(c.Corpus.LabelDir)
	c.Corpus.AudioDir = resolve(c.Corpus.AudioDir)
	for i := range c.Corpus.Entries {
		c.Corpus.Entries[i].Label = resolve(c.Corpus.Entries[i].Label)
		c.Corpus.Entries[i].Audio = resolve(c.Corpus.Entries[i].Audio)
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.ShutdownTimeout < 0 {
		errs = append(errs, fmt.Errorf("server.shutdown_timeout %s must not be negative", cfg.Server.ShutdownTimeout))
	}

	// Corpus
	c := cfg.Corpus
	if c.SampleRate < 0 {
		errs = append(errs, fmt.Errorf("corpus.sample_rate %d must be positive", c.SampleRate))
	} else if c.SampleRate > 0 && c.SampleRate < 8000 {
		slog.Warn("corpus.sample_rate is unusually low for speech", "sample_rate", c.SampleRate)
	}
	if c.Concurrency < 0 {
		errs = append(errs, fmt.Errorf("corpus.concurrency %d must not be negative", c.Concurrency))
	}
	if c.PeakLevel < 0 || c.PeakLevel > 1 {
		errs = append(errs, fmt.Errorf("corpus.peak_level %.2f is out of range [0, 1]", c.PeakLevel))
	}
	if c.LabelDir == "" && len(c.Entries) == 0 {
		errs = append(errs, errors.New("corpus: one of label_dir or entries is required"))
	}

	seen := make(map[string]int, len(c.Entries))
	for i, e := range c.Entries {
		prefix := fmt.Sprintf("corpus.entries[%d]", i)
		if e.Label == "" {
			errs = append(errs, fmt.Errorf("%s.label is required", prefix))
		} else {
			if prev, ok := seen[e.Label]; ok {
				errs = append(errs, fmt.Errorf("%s.label %q is a duplicate of corpus.entries[%d]", prefix, e.Label, prev))
			}
			seen[e.Label] = i
		}
		if e.Audio == "" {
			errs = append(errs, fmt.Errorf("%s.audio is required", prefix))
		}
	}

	return errors.Join(errs...)
}

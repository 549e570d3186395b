// Package config provides the configuration schema and loader for the
// concatsynth corpus server.
package config

import (
	"log/slog"
	"time"
)

// LogLevel controls log verbosity for the concatsynth server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Level maps l to its [slog.Level]. Unknown or empty levels map to info.
func (l LogLevel) Level() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Defaults applied by [Config.ApplyDefaults].
const (
	DefaultListenAddr      = ":8080"
	DefaultSampleRate      = 16000
	DefaultConcurrency     = 4
	DefaultServiceName     = "concatsynth"
	DefaultShutdownTimeout = 10 * time.Second
)

// Config is the root configuration structure for concatsynth.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Corpus    CorpusConfig    `yaml:"corpus"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig holds network and logging settings for the query server.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// ShutdownTimeout bounds graceful shutdown. Default: 10s.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// CorpusConfig describes where labelled recordings come from and how they are
// loaded.
type CorpusConfig struct {
	// SampleRate is the rate every recording is converted to. Default: 16000.
	SampleRate int `yaml:"sample_rate"`

	// LabelDir is scanned for *.json labels. Each label is paired with the
	// same-stem *.wav file in AudioDir.
	LabelDir string `yaml:"label_dir"`

	// AudioDir holds the recordings for LabelDir. Defaults to LabelDir.
	AudioDir string `yaml:"audio_dir"`

	// Entries lists label/audio pairs explicitly. They are loaded after the
	// discovered pairs, in order.
	Entries []EntryConfig `yaml:"entries"`

	// Strict aborts the build on the first bad entry instead of skipping it.
	Strict bool `yaml:"strict"`

	// Concurrency bounds how many recordings are decoded at once. Default: 4.
	Concurrency int `yaml:"concurrency"`

	// PeakLevel normalises every recording to this peak amplitude in (0, 1].
	// Zero leaves levels untouched.
	PeakLevel float64 `yaml:"peak_level"`
}

// EntryConfig is one label/audio pair.
type EntryConfig struct {
	Label string `yaml:"label"`
	Audio string `yaml:"audio"`
}

// TelemetryConfig controls OpenTelemetry setup.
type TelemetryConfig struct {
	// ServiceName is reported in telemetry resources. Default: "concatsynth".
	ServiceName string `yaml:"service_name"`

	// Metrics exposes Prometheus metrics on /metrics.
	Metrics bool `yaml:"metrics"`
}

// ApplyDefaults fills zero-valued fields with their defaults.
func (c *Config) ApplyDefaults() {
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = DefaultListenAddr
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = LogInfo
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if c.Corpus.SampleRate == 0 {
		c.Corpus.SampleRate = DefaultSampleRate
	}
	if c.Corpus.Concurrency == 0 {
		c.Corpus.Concurrency = DefaultConcurrency
	}
	if c.Corpus.AudioDir == "" {
		c.Corpus.AudioDir = c.Corpus.LabelDir
	}
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = DefaultServiceName
	}
}

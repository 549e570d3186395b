package config

import "slices"

// ConfigDiff describes what changed between two configs.
type ConfigDiff struct {
	// CorpusChanged is true if any corpus source or loading option changed.
	// The corpus must be rebuilt and swapped in.
	CorpusChanged bool

	LogLevelChanged bool
	NewLogLevel     LogLevel

	// RestartRequired lists changed fields that only take effect after a
	// restart, such as the listen address.
	RestartRequired []string
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	d.CorpusChanged = !corpusEqual(old.Corpus, new.Corpus)

	if old.Server.ListenAddr != new.Server.ListenAddr {
		d.RestartRequired = append(d.RestartRequired, "server.listen_addr")
	}
	if old.Telemetry != new.Telemetry {
		d.RestartRequired = append(d.RestartRequired, "telemetry")
	}

	return d
}

func corpusEqual(a, b CorpusConfig) bool {
	return a.SampleRate == b.SampleRate &&
		a.LabelDir == b.LabelDir &&
		a.AudioDir == b.AudioDir &&
		a.Strict == b.Strict &&
		a.Concurrency == b.Concurrency &&
		a.PeakLevel == b.PeakLevel &&
		slices.Equal(a.Entries, b.Entries)
}

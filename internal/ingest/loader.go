package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/concatsynth/internal/observe"
	"github.com/MrWong99/concatsynth/pkg/audio"
	"github.com/MrWong99/concatsynth/pkg/corpus"
	"github.com/MrWong99/concatsynth/pkg/speech"
)

// Skip reasons reported in [Report] and on the ingest skipped metric.
const (
	ReasonLabel = "label"
	ReasonAudio = "audio"
)

// Entry pairs a label file with its recording.
type Entry struct {
	Label string
	Audio string
}

// Skipped records an entry left out of a build.
type Skipped struct {
	Entry  Entry
	Reason string
	Err    error
}

// Report summarises a corpus build.
type Report struct {
	Loaded   int
	Phones   int
	Skipped  []Skipped
	Duration time.Duration
}

// Loader builds corpora from labelled recordings.
type Loader struct {
	// SampleRate is the corpus rate every recording is converted to.
	SampleRate int

	// Concurrency bounds how many entries are decoded at once. Values below
	// one decode serially.
	Concurrency int

	// Strict fails the whole build on the first bad entry. Otherwise bad
	// entries are logged and skipped.
	Strict bool

	// PeakLevel normalises every recording to this peak when positive.
	PeakLevel float64

	// Metrics receives build and corpus metrics. Optional.
	Metrics *observe.Metrics
}

type loaded struct {
	utt    *speech.Utterance
	reason string
	err    error
}

// Load decodes every entry and returns a corpus holding their utterances in
// entry order. Decoding runs concurrently; insertion is serial, so the
// returned corpus is identical however the decodes interleave.
func (l *Loader) Load(ctx context.Context, entries []Entry) (_ *corpus.Corpus, _ Report, err error) {
	start := time.Now()
	ctx, span := observe.StartSpan(ctx, "ingest.Load")
	defer func() { observe.EndSpan(span, err) }()
	span.SetAttributes(
		attribute.Int("ingest.entries", len(entries)),
		attribute.Int("ingest.sample_rate", l.SampleRate),
		attribute.Bool("ingest.strict", l.Strict),
	)

	opts := RecordingOptions{
		Converter: &audio.Converter{Target: audio.Format{SampleRate: l.SampleRate, Channels: 1}},
		PeakLevel: float32(l.PeakLevel),
	}
	if err := opts.Converter.Target.Validate(); err != nil {
		return nil, Report{}, fmt.Errorf("ingest: %w", err)
	}

	results := make([]loaded, len(entries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(l.Concurrency, 1))
	for i, e := range entries {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			u, reason, err := loadEntry(e, opts)
			if err != nil && l.Strict {
				return fmt.Errorf("ingest: %s: %w", e.Label, err)
			}
			results[i] = loaded{utt: u, reason: reason, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, Report{}, err
	}

	var copts []corpus.Option
	if l.Metrics != nil {
		copts = append(copts, corpus.WithObserver(l.Metrics))
	}
	c := corpus.New(copts...)

	var rep Report
	log := observe.Logger(ctx)
	for i, r := range results {
		if r.err != nil {
			log.Warn("ingest: skipping entry",
				"label", entries[i].Label,
				"audio", entries[i].Audio,
				"reason", r.reason,
				"err", r.err,
			)
			if l.Metrics != nil {
				l.Metrics.RecordIngestSkipped(ctx, r.reason)
			}
			rep.Skipped = append(rep.Skipped, Skipped{Entry: entries[i], Reason: r.reason, Err: r.err})
			continue
		}
		c.Insert(r.utt)
		rep.Loaded++
		rep.Phones += r.utt.Len()
	}
	rep.Duration = time.Since(start)

	span.SetAttributes(
		attribute.Int("ingest.loaded", rep.Loaded),
		attribute.Int("ingest.skipped", len(rep.Skipped)),
	)
	if l.Metrics != nil {
		l.Metrics.RecordIngest(ctx, rep.Duration)
	}
	log.Info("ingest: corpus built",
		"loaded", rep.Loaded,
		"skipped", len(rep.Skipped),
		"phones", rep.Phones,
		"duration", rep.Duration,
	)
	return c, rep, nil
}

// loadEntry returns the skip reason alongside any error.
func loadEntry(e Entry, opts RecordingOptions) (*speech.Utterance, string, error) {
	label, err := ReadLabelFile(e.Label)
	if err != nil {
		return nil, ReasonLabel, err
	}
	rec, err := LoadRecording(e.Audio, opts)
	if err != nil {
		return nil, ReasonAudio, err
	}
	u, err := BuildUtterance(label, rec)
	if err != nil {
		reason := ReasonLabel
		if errors.Is(err, ErrAudio) {
			reason = ReasonAudio
		}
		return nil, reason, err
	}
	return u, "", nil
}

package ingest_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/MrWong99/concatsynth/internal/config"
	"github.com/MrWong99/concatsynth/internal/ingest"
	"github.com/MrWong99/concatsynth/internal/observe"
	"github.com/MrWong99/concatsynth/pkg/audio"
	"github.com/MrWong99/concatsynth/pkg/speech/speechtest"
)

// writeWAV encodes frames*channels 16-bit samples of a 220 Hz tone to path.
func writeWAV(t *testing.T, path string, rate, channels int, seconds float64) {
	t.Helper()
	frames := int(math.Round(seconds * float64(rate)))
	data := make([]int, frames*channels)
	for i := range frames {
		v := int(16000 * math.Sin(2*math.Pi*220*float64(i)/float64(rate)))
		for c := range channels {
			data[i*channels+c] = v
		}
	}
	writePCM(t, path, rate, channels, data)
}

func writePCM(t *testing.T, path string, rate, channels int, data []int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	enc := wav.NewEncoder(f, rate, 16, channels, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: rate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close encoder: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
}

func labelFor(key string, alignment []speechtest.Aligned) ingest.Label {
	l := ingest.Label{Key: key}
	for _, a := range alignment {
		l.Phones = append(l.Phones, ingest.Segment{Content: a.Label, Interval: [2]float64{a.Start, a.End}})
	}
	return l
}

func writeLabel(t *testing.T, path string, l ingest.Label) {
	t.Helper()
	data, err := json.Marshal(l)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestReadLabel(t *testing.T) {
	t.Parallel()

	in := `{
	  "key": "clip-1",
	  "phones": [
	    {"content": "T", "interval": [0.771, 0.841]},
	    {"content": "AY1", "interval": [0.841, 1.011]},
	    {"content": "M", "interval": [1.011, 1.101]}
	  ],
	  "words": [{"content": "time", "interval": [0.771, 1.101]}],
	  "speaker": "ignored"
	}`
	l, err := ingest.ReadLabel(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadLabel: %v", err)
	}
	if l.Key != "clip-1" {
		t.Errorf("Key = %q", l.Key)
	}
	if got := l.Content(); !slices.Equal(got, []string{"T", "AY1", "M"}) {
		t.Errorf("Content = %v", got)
	}
	if l.Phones[1].Interval != [2]float64{0.841, 1.011} {
		t.Errorf("interval = %v", l.Phones[1].Interval)
	}
	if len(l.Words) != 1 || l.Words[0].Content != "time" {
		t.Errorf("Words = %+v", l.Words)
	}

	if _, err := ingest.ReadLabel(strings.NewReader("{not json")); !errors.Is(err, ingest.ErrLabel) {
		t.Errorf("malformed label err = %v, want ErrLabel", err)
	}
}

func TestLabel_Validate(t *testing.T) {
	t.Parallel()

	seg := func(c string, s, e float64) ingest.Segment {
		return ingest.Segment{Content: c, Interval: [2]float64{s, e}}
	}
	tests := []struct {
		name   string
		phones []ingest.Segment
		ok     bool
	}{
		{"valid", []ingest.Segment{seg("N", 0, 0.1), seg("S", 0.1, 0.2)}, true},
		{"within aligner slack", []ingest.Segment{seg("N", 0, 1.005)}, true},
		{"no phones", nil, false},
		{"blank content", []ingest.Segment{seg(" ", 0, 0.1)}, false},
		{"reversed", []ingest.Segment{seg("N", 0.2, 0.1)}, false},
		{"zero length", []ingest.Segment{seg("N", 0.2, 0.2)}, false},
		{"negative start", []ingest.Segment{seg("N", -0.1, 0.1)}, false},
		{"out of order", []ingest.Segment{seg("N", 0.5, 0.6), seg("S", 0.1, 0.2)}, false},
		{"past recording", []ingest.Segment{seg("N", 0.5, 1.5)}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ingest.Label{Key: "k", Phones: tc.phones}.Validate(1.0)
			if tc.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tc.ok && !errors.Is(err, ingest.ErrLabel) {
				t.Errorf("err = %v, want ErrLabel", err)
			}
		})
	}
}

func TestDecodeWAV(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "stereo.wav")
	writePCM(t, path, 8000, 2, []int{16384, -16384, 0, 32767})

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	samples, format, err := ingest.DecodeWAV(f)
	if err != nil {
		t.Fatalf("DecodeWAV: %v", err)
	}
	if format != (audio.Format{SampleRate: 8000, Channels: 2}) {
		t.Errorf("format = %s, want 8000Hz stereo", format)
	}
	want := []float32{0.5, -0.5, 0, 32767.0 / 32768.0}
	if !slices.Equal(samples, want) {
		t.Errorf("samples = %v, want %v", samples, want)
	}
}

func TestDecodeWAV_NotWAV(t *testing.T) {
	t.Parallel()

	_, _, err := ingest.DecodeWAV(bytes.NewReader([]byte("RIFF? no, just text")))
	if !errors.Is(err, ingest.ErrAudio) {
		t.Errorf("err = %v, want ErrAudio", err)
	}
}

func TestLoadRecording_Converts(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "hifi.wav")
	writeWAV(t, path, 48000, 2, 1.2)

	rec, err := ingest.LoadRecording(path, ingest.RecordingOptions{
		Converter: &audio.Converter{Target: audio.Format{SampleRate: 16000, Channels: 1}},
		PeakLevel: 0.9,
	})
	if err != nil {
		t.Fatalf("LoadRecording: %v", err)
	}
	if got := rec.Buffer().Len(); got != 19200 {
		t.Errorf("samples = %d, want 19200", got)
	}
	if d := rec.Duration(); math.Abs(d-1.2) > 1e-9 {
		t.Errorf("duration = %g, want 1.2", d)
	}
	if p := audio.Peak(rec.Image()); math.Abs(float64(p)-0.9) > 1e-5 {
		t.Errorf("peak = %g, want 0.9", p)
	}
}

func TestBuildUtterance(t *testing.T) {
	t.Parallel()

	rec := speechtest.Recording(t, 1.2)
	u, err := ingest.BuildUtterance(labelFor("once", speechtest.OnceUponATime), rec)
	if err != nil {
		t.Fatalf("BuildUtterance: %v", err)
	}
	if !slices.Equal(u.Content(), speechtest.OnceUponATimeContent) {
		t.Errorf("Content = %v", u.Content())
	}
	if u.StartTime() != 0 || u.EndTime() != 1.2 {
		t.Errorf("span = [%g, %g], want [0, 1.2]", u.StartTime(), u.EndTime())
	}

	short := speechtest.Recording(t, 0.5)
	if _, err := ingest.BuildUtterance(labelFor("once", speechtest.OnceUponATime), short); !errors.Is(err, ingest.ErrLabel) {
		t.Errorf("label longer than recording: err = %v, want ErrLabel", err)
	}
}

// corpusDir writes two good entries and one whose label overruns its audio.
func corpusDir(t *testing.T) (string, []ingest.Entry) {
	t.Helper()
	dir := t.TempDir()

	writeLabel(t, filepath.Join(dir, "a.json"), labelFor("a", speechtest.OnceUponATime))
	writeWAV(t, filepath.Join(dir, "a.wav"), 16000, 1, 1.2)

	writeLabel(t, filepath.Join(dir, "b.json"), labelFor("b", speechtest.Sequence(0.1, "N", "EY1", "M")))
	writeWAV(t, filepath.Join(dir, "b.wav"), 44100, 2, 0.3)

	writeLabel(t, filepath.Join(dir, "c.json"), labelFor("c", speechtest.OnceUponATime))
	writeWAV(t, filepath.Join(dir, "c.wav"), 16000, 1, 0.4)

	entries := []ingest.Entry{
		{Label: filepath.Join(dir, "a.json"), Audio: filepath.Join(dir, "a.wav")},
		{Label: filepath.Join(dir, "b.json"), Audio: filepath.Join(dir, "b.wav")},
		{Label: filepath.Join(dir, "c.json"), Audio: filepath.Join(dir, "c.wav")},
	}
	return dir, entries
}

func TestLoader_SkipsBadEntries(t *testing.T) {
	t.Parallel()

	_, entries := corpusDir(t)
	entries = append(entries, ingest.Entry{Label: "/does/not/exist.json", Audio: "/does/not/exist.wav"})

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatal(err)
	}

	l := &ingest.Loader{SampleRate: 16000, Concurrency: 3, Metrics: m}
	c, rep, err := l.Load(context.Background(), entries)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if rep.Loaded != 2 || c.Len() != 2 {
		t.Errorf("loaded = %d (corpus %d), want 2", rep.Loaded, c.Len())
	}
	if rep.Phones != 16 {
		t.Errorf("phones = %d, want 16", rep.Phones)
	}
	if len(rep.Skipped) != 2 {
		t.Fatalf("skipped = %+v, want 2 entries", rep.Skipped)
	}
	for _, s := range rep.Skipped {
		if s.Reason != ingest.ReasonLabel {
			t.Errorf("skip %s reason = %q, want %q", s.Entry.Label, s.Reason, ingest.ReasonLabel)
		}
	}

	// "N" occurs twice in a and once in b.
	if n := c.Count([]string{"N"}); n != 3 {
		t.Errorf("Count(N) = %d, want 3", n)
	}
	if !c.Contains([]string{"N", "EY1", "M"}) {
		t.Error("entry b was not inserted")
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatal(err)
	}
	found := false
	for _, sm := range rm.ScopeMetrics {
		for _, met := range sm.Metrics {
			if met.Name != "concatsynth.ingest.skipped" {
				continue
			}
			found = true
			sum := met.Data.(metricdata.Sum[int64])
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			if total != 2 {
				t.Errorf("skipped metric = %d, want 2", total)
			}
		}
	}
	if !found {
		t.Error("skipped metric not recorded")
	}
}

func TestLoader_InsertsInEntryOrder(t *testing.T) {
	t.Parallel()

	_, entries := corpusDir(t)
	entries = entries[:2]

	l := &ingest.Loader{SampleRate: 16000, Concurrency: 2}
	c, _, err := l.Load(context.Background(), entries)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	var starts []float64
	for u := range c.FindUtterances([]string{"N"}) {
		starts = append(starts, u.StartTime())
	}
	// Occurrences of a precede those of b.
	if want := []float64{0.211, 0.601, 0}; !slices.Equal(starts, want) {
		t.Errorf("N occurrences start at %v, want %v", starts, want)
	}
}

func TestLoader_Strict(t *testing.T) {
	t.Parallel()

	_, entries := corpusDir(t)
	l := &ingest.Loader{SampleRate: 16000, Concurrency: 1, Strict: true}
	if _, _, err := l.Load(context.Background(), entries); !errors.Is(err, ingest.ErrLabel) {
		t.Errorf("strict load err = %v, want ErrLabel", err)
	}
}

func TestLoader_Canceled(t *testing.T) {
	t.Parallel()

	_, entries := corpusDir(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	l := &ingest.Loader{SampleRate: 16000, Concurrency: 1}
	if _, _, err := l.Load(ctx, entries); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestLoader_BadSampleRate(t *testing.T) {
	t.Parallel()

	l := &ingest.Loader{}
	if _, _, err := l.Load(context.Background(), nil); !errors.Is(err, audio.ErrFormat) {
		t.Errorf("err = %v, want ErrFormat", err)
	}
}

func TestDiscover(t *testing.T) {
	t.Parallel()

	dir, _ := corpusDir(t)
	writeLabel(t, filepath.Join(dir, "orphan.json"), labelFor("orphan", speechtest.Sequence(0.1, "N")))

	entries, err := ingest.Discover(dir, "")
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	var stems []string
	for _, e := range entries {
		stems = append(stems, strings.TrimSuffix(filepath.Base(e.Label), ".json"))
		if filepath.Dir(e.Audio) != dir {
			t.Errorf("audio %s not in %s", e.Audio, dir)
		}
	}
	if want := []string{"a", "b", "c"}; !slices.Equal(stems, want) {
		t.Errorf("discovered %v, want %v", stems, want)
	}

	if _, err := ingest.Discover(filepath.Join(dir, "missing"), ""); err == nil {
		t.Error("expected error for missing label directory")
	}
}

func TestEntriesFromConfig(t *testing.T) {
	t.Parallel()

	dir, _ := corpusDir(t)
	cfg := config.CorpusConfig{
		SampleRate:  16000,
		LabelDir:    dir,
		Entries:     []config.EntryConfig{{Label: "/x/extra.json", Audio: "/x/extra.wav"}},
		Concurrency: 2,
	}
	entries, err := ingest.EntriesFromConfig(cfg)
	if err != nil {
		t.Fatalf("EntriesFromConfig: %v", err)
	}
	if len(entries) != 4 || entries[3].Label != "/x/extra.json" {
		t.Errorf("entries = %+v, want 3 discovered plus the explicit one last", entries)
	}

	l := ingest.NewLoader(cfg)
	if l.SampleRate != 16000 || l.Concurrency != 2 || l.Strict {
		t.Errorf("NewLoader = %+v", l)
	}
}

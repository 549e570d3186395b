// Package ingest builds a corpus from forced-alignment labels and their
// recordings.
//
// A label is a JSON document listing the phones of one recording in order,
// each with its content and its [start, end] window in seconds:
//
//	{
//	  "key": "s01e01_00_01_02",
//	  "phones": [{"content": "W", "interval": [0.0, 0.131]}, ...],
//	  "words":  [{"content": "once", "interval": [0.0, 0.351]}, ...]
//	}
//
// Recordings are WAV files. They are decoded, downmixed to mono and resampled
// to the corpus rate before the phones are cut out of them.
package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/MrWong99/concatsynth/pkg/sheaf"
	"github.com/MrWong99/concatsynth/pkg/speech"
)

// ErrLabel is returned for labels that do not describe a usable alignment.
var ErrLabel = errors.New("ingest: invalid label")

// intervalSlack is how far, in seconds, a phone may end past the end of its
// recording. Aligners round to 10 ms frames.
const intervalSlack = 0.01

// Label is one aligned recording.
type Label struct {
	Key    string    `json:"key"`
	Phones []Segment `json:"phones"`
	Words  []Segment `json:"words,omitempty"`
}

// Segment is a labelled window of a recording.
type Segment struct {
	Content  string     `json:"content"`
	Interval [2]float64 `json:"interval"`
}

// Content returns the phoneme labels of l in order.
func (l Label) Content() []string {
	out := make([]string, len(l.Phones))
	for i, p := range l.Phones {
		out[i] = p.Content
	}
	return out
}

// Validate checks that l describes a non-empty, ordered alignment that fits
// in a recording of the given duration in seconds.
func (l Label) Validate(duration float64) error {
	if len(l.Phones) == 0 {
		return fmt.Errorf("%w: %s has no phones", ErrLabel, l.Key)
	}
	prevStart := 0.0
	for i, p := range l.Phones {
		start, end := p.Interval[0], p.Interval[1]
		switch {
		case strings.TrimSpace(p.Content) == "":
			return fmt.Errorf("%w: %s phone %d has no content", ErrLabel, l.Key, i)
		case start < 0 || end <= start:
			return fmt.Errorf("%w: %s phone %d (%s) has window [%g, %g]", ErrLabel, l.Key, i, p.Content, start, end)
		case start < prevStart:
			return fmt.Errorf("%w: %s phone %d (%s) starts before its predecessor", ErrLabel, l.Key, i, p.Content)
		case end > duration+intervalSlack:
			return fmt.Errorf("%w: %s phone %d (%s) ends at %gs, recording is %gs", ErrLabel, l.Key, i, p.Content, end, duration)
		}
		prevStart = start
	}
	return nil
}

// ReadLabel decodes a label from r.
func ReadLabel(r io.Reader) (Label, error) {
	var l Label
	if err := json.NewDecoder(r).Decode(&l); err != nil {
		return Label{}, fmt.Errorf("%w: decode json: %v", ErrLabel, err)
	}
	return l, nil
}

// ReadLabelFile decodes the label at path. An empty key defaults to the file
// name without its extension.
func ReadLabelFile(path string) (Label, error) {
	f, err := os.Open(path)
	if err != nil {
		return Label{}, fmt.Errorf("ingest: open label: %w", err)
	}
	defer f.Close()

	l, err := ReadLabel(f)
	if err != nil {
		return Label{}, fmt.Errorf("%s: %w", path, err)
	}
	if l.Key == "" {
		l.Key = stem(path)
	}
	return l, nil
}

// BuildUtterance cuts the phones of l out of recording and infers the
// diphones between them.
func BuildUtterance(l Label, recording sheaf.SoundSheaf) (*speech.Utterance, error) {
	if err := l.Validate(recording.Duration()); err != nil {
		return nil, err
	}
	labels := make([]string, len(l.Phones))
	intervals := make([]sheaf.Interval, len(l.Phones))
	for i, p := range l.Phones {
		end := min(p.Interval[1], recording.Duration())
		iv, err := sheaf.NewInterval(p.Interval[0], end)
		if err != nil {
			return nil, fmt.Errorf("%w: %s phone %d: %v", ErrLabel, l.Key, i, err)
		}
		labels[i] = p.Content
		intervals[i] = iv
	}
	phones, err := speech.PhonesFromAlignment(labels, intervals, recording)
	if err != nil {
		return nil, fmt.Errorf("ingest: %s: %w", l.Key, err)
	}
	u, err := speech.InferUtterance(phones)
	if err != nil {
		return nil, fmt.Errorf("ingest: %s: %w", l.Key, err)
	}
	return u, nil
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

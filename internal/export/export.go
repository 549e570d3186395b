// Package export writes spliced audio out of the process.
package export

import (
	"errors"
	"fmt"
	"io"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/MrWong99/concatsynth/pkg/audio"
	"github.com/MrWong99/concatsynth/pkg/sheaf"
	"github.com/MrWong99/concatsynth/pkg/speech"
)

// BitDepth is the sample width of every file written by this package.
const BitDepth = 16

// ErrEmpty is returned when there is no audio to write.
var ErrEmpty = errors.New("export: nothing to write")

// Concatenate joins the audio of utterances in order. A span that continues
// forward from where the previous one ended in the same recording extends it
// without copying. Any other join copies the images into a new buffer, so a
// span that repeats or precedes part of the previous one is still heard in
// full.
func Concatenate(utterances ...*speech.Utterance) sheaf.SoundSheaf {
	var segments []sheaf.SoundSheaf
	for _, u := range utterances {
		s := u.Sheaf()
		if s.IsEmpty() {
			continue
		}
		if n := len(segments); n > 0 && continues(segments[n-1], s) {
			prev := segments[n-1]
			segments[n-1] = prev.Sub(sheaf.MustInterval(prev.Interval().Start(), s.Interval().End()))
			continue
		}
		segments = append(segments, s)
	}

	switch len(segments) {
	case 0:
		return sheaf.Empty()
	case 1:
		return segments[0]
	}

	var (
		duration float64
		size     int
	)
	for _, s := range segments {
		duration += s.Duration()
		size += len(s.Image())
	}
	samples := make([]float32, 0, size)
	for _, s := range segments {
		samples = append(samples, s.Image()...)
	}
	if len(samples) == 0 || duration <= 0 {
		return sheaf.Empty()
	}
	return sheaf.MustNew(sheaf.NewBuffer(samples), sheaf.MustInterval(0, duration))
}

// continues reports whether next starts exactly where prev ends in the same
// recording.
func continues(prev, next sheaf.SoundSheaf) bool {
	return prev.SameBuffer(next) && next.Interval().Start() == prev.Interval().End()
}

// WriteWAV encodes the image of s as a mono 16-bit PCM WAV stream.
func WriteWAV(w io.WriteSeeker, s sheaf.SoundSheaf, sampleRate int) error {
	if sampleRate <= 0 {
		return fmt.Errorf("export: %w: sample rate %d", audio.ErrFormat, sampleRate)
	}
	samples := s.Image()
	if len(samples) == 0 {
		return ErrEmpty
	}
	data, err := audio.ToPCM(samples, BitDepth)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}

	enc := wav.NewEncoder(w, sampleRate, BitDepth, 1, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: BitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("export: encode: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("export: finalise: %w", err)
	}
	return nil
}

// WriteWAVFile writes s to path, replacing any existing file.
func WriteWAVFile(path string, s sheaf.SoundSheaf, sampleRate int) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("export: %w", cerr)
		}
	}()
	return WriteWAV(f, s, sampleRate)
}

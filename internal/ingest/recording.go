package ingest

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/wav"

	"github.com/MrWong99/concatsynth/pkg/audio"
	"github.com/MrWong99/concatsynth/pkg/sheaf"
)

// ErrAudio is returned for recordings that cannot be decoded.
var ErrAudio = errors.New("ingest: invalid audio")

// wavFormatPCM is the WAVE_FORMAT_PCM tag.
const wavFormatPCM = 1

// DecodeWAV reads an integer PCM WAV stream and returns its interleaved
// samples scaled to [-1, 1) together with the stream format.
func DecodeWAV(r io.ReadSeeker) ([]float32, audio.Format, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, audio.Format{}, fmt.Errorf("%w: not a WAV file", ErrAudio)
	}
	if d.WavAudioFormat != wavFormatPCM {
		return nil, audio.Format{}, fmt.Errorf("%w: unsupported WAV format tag %d", ErrAudio, d.WavAudioFormat)
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, audio.Format{}, fmt.Errorf("%w: %v", ErrAudio, err)
	}
	if buf.Format == nil {
		return nil, audio.Format{}, fmt.Errorf("%w: missing format chunk", ErrAudio)
	}

	format := audio.Format{SampleRate: buf.Format.SampleRate, Channels: buf.Format.NumChannels}
	if err := format.Validate(); err != nil {
		return nil, audio.Format{}, fmt.Errorf("%w: %v", ErrAudio, err)
	}
	samples, err := audio.FromPCM(buf.Data, int(d.BitDepth))
	if err != nil {
		return nil, audio.Format{}, fmt.Errorf("%w: %v", ErrAudio, err)
	}
	return samples, format, nil
}

// RecordingOptions controls how recordings are conditioned before phones are
// cut out of them.
type RecordingOptions struct {
	// Converter brings every recording to a common mono rate.
	Converter *audio.Converter

	// PeakLevel normalises each recording to this peak when positive.
	PeakLevel float32
}

// LoadRecording decodes the WAV file at path and returns it as a sheaf at
// the converter's target rate.
func LoadRecording(path string, opts RecordingOptions) (sheaf.SoundSheaf, error) {
	f, err := os.Open(path)
	if err != nil {
		return sheaf.SoundSheaf{}, fmt.Errorf("ingest: open audio: %w", err)
	}
	defer f.Close()

	samples, format, err := DecodeWAV(f)
	if err != nil {
		return sheaf.SoundSheaf{}, fmt.Errorf("%s: %w", path, err)
	}
	return conditionRecording(samples, format, opts)
}

func conditionRecording(samples []float32, format audio.Format, opts RecordingOptions) (sheaf.SoundSheaf, error) {
	if opts.Converter == nil {
		return sheaf.SoundSheaf{}, fmt.Errorf("%w: no converter configured", ErrAudio)
	}
	mono, err := opts.Converter.Convert(samples, format)
	if err != nil {
		return sheaf.SoundSheaf{}, fmt.Errorf("%w: %v", ErrAudio, err)
	}
	if len(mono) == 0 {
		return sheaf.SoundSheaf{}, fmt.Errorf("%w: recording is empty", ErrAudio)
	}
	if opts.PeakLevel > 0 {
		audio.Normalize(mono, opts.PeakLevel)
	}
	return sheaf.FromSamples(mono, opts.Converter.Target.SampleRate)
}

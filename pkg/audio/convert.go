// Package audio holds the sample-level conversions applied to recordings
// before they enter a corpus and after spliced audio leaves it. Samples are
// float32 in [-1, 1]; multi-channel data is interleaved.
package audio

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrFormat is returned for sample rates, channel counts or bit depths that
// cannot be converted.
var ErrFormat = errors.New("audio: unsupported format")

// Format describes the sample rate and channel count of an audio stream.
type Format struct {
	SampleRate int
	Channels   int
}

// Validate reports whether f describes a usable stream.
func (f Format) Validate() error {
	if f.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %d", ErrFormat, f.SampleRate)
	}
	if f.Channels <= 0 {
		return fmt.Errorf("%w: %d channels", ErrFormat, f.Channels)
	}
	return nil
}

// String returns e.g. "48000Hz stereo".
func (f Format) String() string {
	ch := "mono"
	if f.Channels == 2 {
		ch = "stereo"
	} else if f.Channels > 2 {
		ch = fmt.Sprintf("%dch", f.Channels)
	}
	return fmt.Sprintf("%dHz %s", f.SampleRate, ch)
}

// Converter brings recordings to a mono Target rate. It logs a warning the
// first time it sees a mismatching source format.
// Create one per loader; the warning state is shared by every call.
type Converter struct {
	Target Format

	warnedMismatch sync.Once
}

// Convert returns samples in c.Target. If the source already matches the
// target the input slice is returned unchanged.
// Conversion order: downmix first, then resample.
func (c *Converter) Convert(samples []float32, from Format) ([]float32, error) {
	if err := from.Validate(); err != nil {
		return nil, err
	}
	if err := c.Target.Validate(); err != nil {
		return nil, err
	}
	if c.Target.Channels != 1 {
		return nil, fmt.Errorf("%w: converter target must be mono, got %s", ErrFormat, c.Target)
	}
	if len(samples)%from.Channels != 0 {
		return nil, fmt.Errorf("%w: %d samples do not divide into %d channels", ErrFormat, len(samples), from.Channels)
	}

	if from == c.Target {
		return samples, nil
	}

	c.warnedMismatch.Do(func() {
		slog.Warn("audio format mismatch: converting",
			"from", from.String(),
			"to", c.Target.String(),
		)
	})

	out := samples
	if from.Channels != 1 {
		out = Downmix(out, from.Channels)
	}
	if from.SampleRate != c.Target.SampleRate {
		out = Resample(out, from.SampleRate, c.Target.SampleRate)
	}
	return out, nil
}

// Downmix averages each interleaved frame of channels samples into one mono
// sample. A trailing partial frame is dropped.
func Downmix(samples []float32, channels int) []float32 {
	if channels <= 1 {
		return samples
	}
	frames := len(samples) / channels
	out := make([]float32, frames)
	for i := range frames {
		var sum float32
		for _, s := range samples[i*channels : (i+1)*channels] {
			sum += s
		}
		out[i] = sum / float32(channels)
	}
	return out
}

// Resample converts mono samples from srcRate to dstRate using linear
// interpolation. If the rates match or are not positive, the input is
// returned unchanged.
func Resample(samples []float32, srcRate, dstRate int) []float32 {
	if srcRate <= 0 || dstRate <= 0 || srcRate == dstRate || len(samples) == 0 {
		return samples
	}
	dst := int(int64(len(samples)) * int64(dstRate) / int64(srcRate))
	if dst == 0 {
		return nil
	}

	out := make([]float32, dst)
	ratio := float64(srcRate) / float64(dstRate)
	for i := range dst {
		pos := float64(i) * ratio
		idx := int(pos)
		frac := float32(pos - float64(idx))

		s0 := samples[idx]
		s1 := s0
		if idx+1 < len(samples) {
			s1 = samples[idx+1]
		}
		out[i] = s0*(1-frac) + s1*frac
	}
	return out
}

// FromPCM scales signed integer PCM of the given bit depth to [-1, 1).
func FromPCM(data []int, bitDepth int) ([]float32, error) {
	if bitDepth < 8 || bitDepth > 32 || bitDepth%8 != 0 {
		return nil, fmt.Errorf("%w: %d-bit PCM", ErrFormat, bitDepth)
	}
	scale := float32(int64(1) << (bitDepth - 1))
	out := make([]float32, len(data))
	for i, v := range data {
		out[i] = float32(v) / scale
	}
	return out, nil
}

// ToPCM scales samples to signed integer PCM of the given bit depth,
// clamping to the representable range.
func ToPCM(samples []float32, bitDepth int) ([]int, error) {
	if bitDepth < 8 || bitDepth > 32 || bitDepth%8 != 0 {
		return nil, fmt.Errorf("%w: %d-bit PCM", ErrFormat, bitDepth)
	}
	full := int64(1) << (bitDepth - 1)
	hi, lo := full-1, -full
	out := make([]int, len(samples))
	for i, s := range samples {
		v := int64(float64(s) * float64(full))
		if v > hi {
			v = hi
		} else if v < lo {
			v = lo
		}
		out[i] = int(v)
	}
	return out, nil
}

// Peak returns the largest absolute sample value.
func Peak(samples []float32) float32 {
	var peak float32
	for _, s := range samples {
		if s < 0 {
			s = -s
		}
		peak = max(peak, s)
	}
	return peak
}

// Normalize scales samples in place so that their peak equals target.
// Silent input is left untouched.
func Normalize(samples []float32, target float32) {
	peak := Peak(samples)
	if peak == 0 || target <= 0 {
		return
	}
	gain := target / peak
	for i := range samples {
		samples[i] *= gain
	}
}

// Package sheaf provides SoundSheaf, a time-windowed view over an immutable,
// possibly shared buffer of audio samples.
//
// A recording is loaded once into a [Buffer]. Phones, diphones and whole
// utterances cut from that recording are sheaves over the same buffer that
// differ only in their [Interval]; windowing with [SoundSheaf.Sub] never copies
// sample data. [Merge] composes two sheaves and only materialises a new buffer
// when the operands are not contiguous windows of one recording.
//
// Buffers are never mutated after construction, so sheaves are safe to share
// between goroutines.
package sheaf

import (
	"errors"
	"fmt"
	"math"
)

// ErrNonCanonicalEmpty is returned by [New] when exactly one of the buffer and
// the interval is empty.
var ErrNonCanonicalEmpty = errors.New("sheaf: empty buffer and canonical empty interval must coincide")

// Buffer is an immutable array of mono audio samples. Sheaves compare buffers
// by identity: two sheaves share a buffer only when they hold the same *Buffer.
type Buffer struct {
	samples []float32
}

// NewBuffer wraps samples in a Buffer. The Buffer takes ownership of the
// slice; the caller must not modify it afterwards.
func NewBuffer(samples []float32) *Buffer {
	return &Buffer{samples: samples}
}

// Len returns the number of samples in b. A nil Buffer has length 0.
func (b *Buffer) Len() int {
	if b == nil {
		return 0
	}
	return len(b.samples)
}

// SoundSheaf is a window over a Buffer. The zero value is the canonical empty
// sheaf, which is the identity element of [Merge].
type SoundSheaf struct {
	buf      *Buffer
	interval Interval
	base     float64 // duration represented by the whole buffer
}

// Empty returns the canonical empty sheaf.
func Empty() SoundSheaf { return SoundSheaf{} }

// New returns a sheaf that spans the whole of buf over interval. The base
// length of the buffer is taken to be interval.Length().
func New(buf *Buffer, interval Interval) (SoundSheaf, error) {
	if (buf.Len() == 0) != interval.IsEmpty() {
		return SoundSheaf{}, fmt.Errorf("%w: %d samples over %s", ErrNonCanonicalEmpty, buf.Len(), interval)
	}
	if buf.Len() == 0 {
		return SoundSheaf{}, nil
	}
	return SoundSheaf{buf: buf, interval: interval, base: interval.Length()}, nil
}

// MustNew is like [New] but panics if the sheaf would violate the empty
// invariant.
func MustNew(buf *Buffer, interval Interval) SoundSheaf {
	s, err := New(buf, interval)
	if err != nil {
		panic(err)
	}
	return s
}

// FromSamples wraps samples recorded at sampleRate Hz in a new Buffer and
// returns the sheaf spanning [0, len(samples)/sampleRate].
func FromSamples(samples []float32, sampleRate int) (SoundSheaf, error) {
	if sampleRate <= 0 {
		return SoundSheaf{}, fmt.Errorf("sheaf: sample rate must be positive, got %d", sampleRate)
	}
	if len(samples) == 0 {
		return SoundSheaf{}, nil
	}
	duration := float64(len(samples)) / float64(sampleRate)
	return New(NewBuffer(samples), Interval{end: duration})
}

// Interval returns the window of s in seconds.
func (s SoundSheaf) Interval() Interval { return s.interval }

// BaseLength returns the duration represented by the whole underlying buffer.
func (s SoundSheaf) BaseLength() float64 { return s.base }

// Duration returns the length of the window in seconds.
func (s SoundSheaf) Duration() float64 { return s.interval.Length() }

// Buffer returns the underlying buffer. It is nil for the empty sheaf.
func (s SoundSheaf) Buffer() *Buffer { return s.buf }

// IsEmpty reports whether s has the canonical empty interval.
func (s SoundSheaf) IsEmpty() bool { return s.interval.IsEmpty() }

// SameBuffer reports whether s and other window the same non-nil buffer.
func (s SoundSheaf) SameBuffer(other SoundSheaf) bool {
	return s.buf != nil && s.buf == other.buf
}

// Sub returns a view over the same buffer and base length restricted to iv.
// The window is not validated against the buffer; [SoundSheaf.Image] clips it.
func (s SoundSheaf) Sub(iv Interval) SoundSheaf {
	return SoundSheaf{buf: s.buf, interval: iv, base: s.base}
}

// Image returns the samples covered by the window. The interval is mapped
// proportionally onto buffer indices, flooring the start and ceiling the end,
// and the result is clipped to the buffer. The returned slice aliases the
// shared buffer and must not be modified.
func (s SoundSheaf) Image() []float32 {
	n := s.buf.Len()
	if n == 0 || s.base <= 0 {
		return nil
	}
	size := float64(n)
	start := int(math.Floor(s.interval.start / s.base * size))
	end := int(math.Ceil(s.interval.end / s.base * size))
	start = min(max(start, 0), n)
	end = min(max(end, 0), n)
	if start >= end {
		return nil
	}
	return s.buf.samples[start:end:end]
}

// Merge composes pre followed by post.
//
// The empty sheaf is an identity on both sides. When both sheaves window the
// same buffer and their intervals overlap or touch, the result is the window
// [pre.Start, post.End] over that buffer and no samples are copied. Otherwise
// both images are concatenated into a new buffer spanning
// [0, pre.Duration()+post.Duration()].
func Merge(pre, post SoundSheaf) SoundSheaf {
	if pre.IsEmpty() {
		return post
	}
	if post.IsEmpty() {
		return pre
	}

	if pre.SameBuffer(post) && pre.interval.Overlaps(post.interval) {
		// A post window that starts before pre would yield end < start.
		end := max(post.interval.end, pre.interval.start)
		return SoundSheaf{
			buf:      pre.buf,
			interval: Interval{start: pre.interval.start, end: end},
			base:     pre.base,
		}
	}

	left, right := pre.Image(), post.Image()
	samples := make([]float32, 0, len(left)+len(right))
	samples = append(samples, left...)
	samples = append(samples, right...)
	duration := pre.Duration() + post.Duration()
	if len(samples) == 0 || duration <= 0 {
		return SoundSheaf{}
	}
	return SoundSheaf{
		buf:      NewBuffer(samples),
		interval: Interval{end: duration},
		base:     duration,
	}
}

// MergeAll folds sheaves left to right with [Merge], starting from the empty
// sheaf.
func MergeAll(sheaves ...SoundSheaf) SoundSheaf {
	acc := SoundSheaf{}
	for _, s := range sheaves {
		acc = Merge(acc, s)
	}
	return acc
}

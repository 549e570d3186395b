package sheaf

import (
	"errors"
	"fmt"
)

// ErrInvalidInterval is returned when an interval's end precedes its start.
var ErrInvalidInterval = errors.New("sheaf: interval end precedes start")

// Interval is an immutable closed time range [Start, End] in seconds.
// The zero value is the canonical empty interval [0, 0].
type Interval struct {
	start float64
	end   float64
}

// EmptyInterval is the canonical empty interval [0, 0].
var EmptyInterval = Interval{}

// NewInterval returns the closed interval [start, end]. It fails with
// [ErrInvalidInterval] when end < start.
func NewInterval(start, end float64) (Interval, error) {
	if end < start {
		return Interval{}, fmt.Errorf("%w: [%g, %g]", ErrInvalidInterval, start, end)
	}
	return Interval{start: start, end: end}, nil
}

// MustInterval is like [NewInterval] but panics on an invalid range.
func MustInterval(start, end float64) Interval {
	iv, err := NewInterval(start, end)
	if err != nil {
		panic(err)
	}
	return iv
}

// Start returns the left bound.
func (iv Interval) Start() float64 { return iv.start }

// End returns the right bound.
func (iv Interval) End() float64 { return iv.end }

// Length returns End - Start.
func (iv Interval) Length() float64 { return iv.end - iv.start }

// Mid returns the midpoint of the interval.
func (iv Interval) Mid() float64 { return (iv.start + iv.end) / 2 }

// IsEmpty reports whether iv is the canonical empty interval.
func (iv Interval) IsEmpty() bool { return iv == EmptyInterval }

// Overlaps reports whether the two closed intervals share at least one point.
// Touching intervals such as [0, 1] and [1, 2] overlap.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.start <= other.end && other.start <= iv.end
}

// String renders the interval as "[start, end]".
func (iv Interval) String() string {
	return fmt.Sprintf("[%g, %g]", iv.start, iv.end)
}

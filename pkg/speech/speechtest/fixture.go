// Package speechtest provides aligned recordings for tests of packages built
// on [speech].
package speechtest

import (
	"math"
	"testing"

	"github.com/MrWong99/concatsynth/pkg/sheaf"
	"github.com/MrWong99/concatsynth/pkg/speech"
)

// SampleRate is the rate of every synthetic recording in this package.
const SampleRate = 16000

// Aligned is one phone of a forced alignment.
type Aligned struct {
	Label      string
	Start, End float64
}

// OnceUponATime is the alignment of a 1.2 s recording of "once upon a time".
var OnceUponATime = []Aligned{
	{"W", 0.000, 0.131},
	{"AH1", 0.131, 0.211},
	{"N", 0.211, 0.291},
	{"S", 0.291, 0.351},
	{"AH0", 0.351, 0.421},
	{"P", 0.421, 0.501},
	{"AA1", 0.501, 0.601},
	{"N", 0.601, 0.641},
	{"EY1", 0.641, 0.771},
	{"T", 0.771, 0.841},
	{"AY1", 0.841, 1.011},
	{"M", 1.011, 1.101},
	{"sp", 1.101, 1.200},
}

// OnceUponATimeContent is the phoneme content of [OnceUponATime].
var OnceUponATimeContent = []string{"W", "AH1", "N", "S", "AH0", "P", "AA1", "N", "EY1", "T", "AY1", "M", "sp"}

// Recording returns a sine tone of the given duration at [SampleRate].
func Recording(t testing.TB, seconds float64) sheaf.SoundSheaf {
	t.Helper()
	samples := make([]float32, int(math.Round(seconds*SampleRate)))
	for i := range samples {
		samples[i] = float32(0.5 * math.Sin(2*math.Pi*220*float64(i)/SampleRate))
	}
	rec, err := sheaf.FromSamples(samples, SampleRate)
	if err != nil {
		t.Fatalf("speechtest: FromSamples: %v", err)
	}
	return rec
}

// Phones cuts the alignment out of rec.
func Phones(t testing.TB, rec sheaf.SoundSheaf, alignment []Aligned) []speech.Phone {
	t.Helper()
	labels := make([]string, len(alignment))
	intervals := make([]sheaf.Interval, len(alignment))
	for i, a := range alignment {
		labels[i] = a.Label
		intervals[i] = sheaf.MustInterval(a.Start, a.End)
	}
	phones, err := speech.PhonesFromAlignment(labels, intervals, rec)
	if err != nil {
		t.Fatalf("speechtest: PhonesFromAlignment: %v", err)
	}
	return phones
}

// Utterance builds the utterance for alignment over a fresh recording that
// ends with the last phone.
func Utterance(t testing.TB, alignment []Aligned) *speech.Utterance {
	t.Helper()
	end := 0.0
	if len(alignment) > 0 {
		end = alignment[len(alignment)-1].End
	}
	u, err := speech.InferUtterance(Phones(t, Recording(t, end), alignment))
	if err != nil {
		t.Fatalf("speechtest: InferUtterance: %v", err)
	}
	return u
}

// Sequence aligns labels back to back, each lasting step seconds.
func Sequence(step float64, labels ...string) []Aligned {
	out := make([]Aligned, len(labels))
	for i, l := range labels {
		out[i] = Aligned{Label: l, Start: float64(i) * step, End: float64(i+1) * step}
	}
	return out
}

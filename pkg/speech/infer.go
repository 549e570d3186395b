package speech

import (
	"fmt"

	"github.com/MrWong99/concatsynth/pkg/sheaf"
)

// InferDiphone builds the diphone between two adjacent phones. Its audio runs
// from the midpoint of pre to the midpoint of post.
func InferDiphone(pre, post Phone) Diphone {
	merged := sheaf.Merge(pre.Sheaf, post.Sheaf)

	var window sheaf.Interval
	if merged.SameBuffer(pre.Sheaf) {
		window = sheaf.MustInterval(pre.Sheaf.Interval().Mid(), max(post.Sheaf.Interval().Mid(), pre.Sheaf.Interval().Mid()))
	} else {
		// Merge materialised a fresh buffer laid out as pre then post.
		half := pre.Sheaf.Duration() / 2
		window = sheaf.MustInterval(half, pre.Sheaf.Duration()+post.Sheaf.Duration()/2)
	}
	return Diphone{Pre: pre, Post: post, Sheaf: merged.Sub(window)}
}

// InferUtterance connects consecutive phones with inferred diphones.
func InferUtterance(phones []Phone) (*Utterance, error) {
	if len(phones) == 0 {
		return &Utterance{}, nil
	}
	diphones := make([]Diphone, len(phones)-1)
	for i := range diphones {
		diphones[i] = InferDiphone(phones[i], phones[i+1])
	}
	return NewUtterance(phones, diphones)
}

// PhonesFromAlignment cuts one phone per label out of recording. labels and
// intervals are parallel slices produced by a forced aligner; each interval is
// a window in seconds on the recording's timeline.
func PhonesFromAlignment(labels []string, intervals []sheaf.Interval, recording sheaf.SoundSheaf) ([]Phone, error) {
	if len(labels) != len(intervals) {
		return nil, fmt.Errorf("%w: %d labels but %d intervals", ErrShape, len(labels), len(intervals))
	}
	phones := make([]Phone, len(labels))
	for i, label := range labels {
		phones[i] = Phone{Content: label, Sheaf: recording.Sub(intervals[i])}
	}
	return phones, nil
}

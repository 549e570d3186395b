package speech

import (
	"fmt"
	"slices"

	"github.com/MrWong99/concatsynth/pkg/sheaf"
)

// Utterance is an ordered chain of k phones connected by k-1 diphones. The
// empty utterance has neither.
type Utterance struct {
	phones   []Phone
	diphones []Diphone
}

// NewUtterance validates and returns the utterance made of phones joined by
// diphones. Diphone i must connect phone i to phone i+1 by content.
func NewUtterance(phones []Phone, diphones []Diphone) (*Utterance, error) {
	if len(phones) == 0 {
		if len(diphones) != 0 {
			return nil, fmt.Errorf("%w: %d diphones without phones", ErrShape, len(diphones))
		}
		return &Utterance{}, nil
	}
	if len(phones) != len(diphones)+1 {
		return nil, fmt.Errorf("%w: %d phones need %d diphones, got %d",
			ErrShape, len(phones), len(phones)-1, len(diphones))
	}
	for i, d := range diphones {
		if d.Pre.Content != phones[i].Content {
			return nil, fmt.Errorf("%w: diphone %d expected pre %q but found %q",
				ErrContentMismatch, i, phones[i].Content, d.Pre.Content)
		}
		if d.Post.Content != phones[i+1].Content {
			return nil, fmt.Errorf("%w: diphone %d expected post %q but found %q",
				ErrContentMismatch, i, phones[i+1].Content, d.Post.Content)
		}
	}
	return &Utterance{phones: slices.Clone(phones), diphones: slices.Clone(diphones)}, nil
}

// MustUtterance is like [NewUtterance] but panics on an invariant violation.
func MustUtterance(phones []Phone, diphones []Diphone) *Utterance {
	u, err := NewUtterance(phones, diphones)
	if err != nil {
		panic(err)
	}
	return u
}

// Len returns the number of phones.
func (u *Utterance) Len() int { return len(u.phones) }

// Phones returns a copy of the phone chain.
func (u *Utterance) Phones() []Phone { return slices.Clone(u.phones) }

// Diphones returns a copy of the diphone chain.
func (u *Utterance) Diphones() []Diphone { return slices.Clone(u.diphones) }

// Phone returns the i-th phone.
func (u *Utterance) Phone(i int) Phone { return u.phones[i] }

// Content returns the ordered phoneme labels.
func (u *Utterance) Content() []string { return contentOf(u.phones) }

// StartTime returns the start of the first phone, or 0 for the empty utterance.
func (u *Utterance) StartTime() float64 {
	if len(u.phones) == 0 {
		return 0
	}
	return u.phones[0].Sheaf.Interval().Start()
}

// EndTime returns the end of the last phone, or 0 for the empty utterance.
func (u *Utterance) EndTime() float64 {
	if len(u.phones) == 0 {
		return 0
	}
	return u.phones[len(u.phones)-1].Sheaf.Interval().End()
}

// Sheaf composes the audio of the utterance: each diphone's pre phone and the
// diphone itself in order, followed by the final phone, folded with
// [sheaf.Merge]. Contiguous windows of one recording compose without copying.
func (u *Utterance) Sheaf() sheaf.SoundSheaf {
	acc := sheaf.Empty()
	for _, d := range u.diphones {
		acc = sheaf.Merge(acc, d.Pre.Sheaf)
		acc = sheaf.Merge(acc, d.Sheaf)
	}
	if len(u.phones) > 0 {
		acc = sheaf.Merge(acc, u.phones[len(u.phones)-1].Sheaf)
	}
	return acc
}

// Sub returns the utterance covering phones [start, end). start == end yields
// the empty utterance; otherwise 0 <= start < end <= Len() must hold. The
// result shares storage with u.
func (u *Utterance) Sub(start, end int) (*Utterance, error) {
	if start == end {
		return &Utterance{}, nil
	}
	if start < 0 || start >= end || end > len(u.phones) {
		return nil, fmt.Errorf("%w: [%d, %d) of %d phones", ErrRange, start, end, len(u.phones))
	}
	return &Utterance{
		phones:   u.phones[start:end:end],
		diphones: u.diphones[start : end-1 : end-1],
	}, nil
}

// Splice joins pre and post through transition. The transition must start
// at pre's last phone and end at post's first phone; its interior phones are
// inserted between them. An empty transition is only valid when pre and post
// are the same utterance, which is then returned unchanged.
func Splice(pre *Utterance, transition DiphoneSequence, post *Utterance) (*Utterance, error) {
	if transition.Len() == 0 {
		if pre != post {
			return nil, fmt.Errorf("%w: empty transition between distinct utterances", ErrShape)
		}
		return pre, nil
	}
	if pre.Len() == 0 || post.Len() == 0 {
		return nil, fmt.Errorf("%w: cannot splice through an empty utterance", ErrShape)
	}

	first, last := transition.diphones[0], transition.diphones[len(transition.diphones)-1]
	if want := pre.phones[len(pre.phones)-1].Content; first.Pre.Content != want {
		return nil, fmt.Errorf("%w: transition starts with %q, utterance ends with %q",
			ErrContentMismatch, first.Pre.Content, want)
	}
	if want := post.phones[0].Content; last.Post.Content != want {
		return nil, fmt.Errorf("%w: transition ends with %q, utterance starts with %q",
			ErrContentMismatch, last.Post.Content, want)
	}

	inner := transition.Phones()
	inner = inner[1 : len(inner)-1]
	return NewUtterance(
		slices.Concat(pre.phones, inner, post.phones),
		slices.Concat(pre.diphones, transition.diphones, post.diphones),
	)
}

// Package speech models recorded speech as phones composed through diphones.
//
// A [Phone] is a phoneme-labelled window of audio. A [Diphone] is the audio
// spanning the transition between two adjacent phones. An [Utterance] chains k
// phones with k-1 diphones, and a [DiphoneSequence] chains diphones whose
// shared phones agree. Every constructor validates that the phoneme content
// at each join agrees exactly; a mismatch indicates a corrupt transcript and is
// reported as [ErrContentMismatch].
//
// All values are immutable after construction. Sub-ranges share the backing
// arrays of their parent and never copy audio.
package speech

import (
	"errors"
	"fmt"
	"slices"

	"github.com/MrWong99/concatsynth/pkg/sheaf"
)

var (
	// ErrContentMismatch is returned when adjacent units disagree on the
	// phoneme they share.
	ErrContentMismatch = errors.New("speech: content mismatch")

	// ErrShape is returned when the number of phones and diphones (or labels
	// and intervals) do not fit together.
	ErrShape = errors.New("speech: malformed shape")

	// ErrRange is returned by [Utterance.Sub] for out-of-bounds phone indices.
	ErrRange = errors.New("speech: phone range out of bounds")
)

// Phone is an atomic phoneme-labelled span of audio.
type Phone struct {
	Content string
	Sheaf   sheaf.SoundSheaf
}

// Utterance returns the one-phone utterance consisting of p.
func (p Phone) Utterance() *Utterance {
	return &Utterance{phones: []Phone{p}}
}

// Diphone is the audio spanning the transition from Pre to Post.
type Diphone struct {
	Pre   Phone
	Post  Phone
	Sheaf sheaf.SoundSheaf
}

// Sequence returns the one-diphone sequence consisting of d.
func (d Diphone) Sequence() DiphoneSequence {
	return DiphoneSequence{diphones: []Diphone{d}}
}

// DiphoneSequence is an ordered chain of diphones where each diphone's Post
// content equals the next diphone's Pre content. The zero value is the empty
// sequence.
type DiphoneSequence struct {
	diphones []Diphone
}

// NewDiphoneSequence validates the chain and returns it.
func NewDiphoneSequence(diphones []Diphone) (DiphoneSequence, error) {
	for i := 1; i < len(diphones); i++ {
		if got, want := diphones[i].Pre.Content, diphones[i-1].Post.Content; got != want {
			return DiphoneSequence{}, fmt.Errorf("%w: diphone %d starts with %q, previous ends with %q",
				ErrContentMismatch, i, got, want)
		}
	}
	return DiphoneSequence{diphones: slices.Clone(diphones)}, nil
}

// Len returns the number of diphones.
func (s DiphoneSequence) Len() int { return len(s.diphones) }

// Diphones returns a copy of the diphone chain.
func (s DiphoneSequence) Diphones() []Diphone { return slices.Clone(s.diphones) }

// Phones returns the induced phone sequence: the Pre phone of every diphone
// followed by the Post phone of the last one.
func (s DiphoneSequence) Phones() []Phone {
	if len(s.diphones) == 0 {
		return nil
	}
	phones := make([]Phone, 0, len(s.diphones)+1)
	for _, d := range s.diphones {
		phones = append(phones, d.Pre)
	}
	return append(phones, s.diphones[len(s.diphones)-1].Post)
}

// Content returns the phoneme labels of the induced phone sequence.
func (s DiphoneSequence) Content() []string {
	return contentOf(s.Phones())
}

// MergeDiphoneSequences concatenates pre and post. The last phone of pre must
// carry the same content as the first phone of post.
func MergeDiphoneSequences(pre, post DiphoneSequence) (DiphoneSequence, error) {
	if pre.Len() == 0 {
		return post, nil
	}
	if post.Len() == 0 {
		return pre, nil
	}
	if got, want := post.diphones[0].Pre.Content, pre.diphones[len(pre.diphones)-1].Post.Content; got != want {
		return DiphoneSequence{}, fmt.Errorf("%w: joining %q to %q", ErrContentMismatch, want, got)
	}
	return DiphoneSequence{diphones: slices.Concat(pre.diphones, post.diphones)}, nil
}

func contentOf(phones []Phone) []string {
	out := make([]string, len(phones))
	for i, p := range phones {
		out[i] = p.Content
	}
	return out
}

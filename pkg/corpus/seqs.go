package corpus

import (
	"errors"
	"fmt"
	"iter"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/MrWong99/concatsynth/pkg/speech"
)

// ErrSampleTooLarge is returned when more items are requested than exist.
var ErrSampleTooLarge = errors.New("corpus: sample larger than population")

// Rand is the source of randomness used for sampling. *rand.Rand from
// math/rand/v2 satisfies it. A nil Rand uses the math/rand/v2 global source.
type Rand interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

func orGlobal(r Rand) Rand {
	if r == nil {
		return globalRand{}
	}
	return r
}

// PhoneSeqs is a lazy, restartable sequence of utterances. Every call to
// [PhoneSeqs.All] re-runs the underlying lookup.
type PhoneSeqs struct {
	seq iter.Seq[*speech.Utterance]
}

// Seqs wraps an arbitrary utterance iterator.
func Seqs(seq iter.Seq[*speech.Utterance]) PhoneSeqs {
	return PhoneSeqs{seq: seq}
}

// All returns the underlying iterator.
func (p PhoneSeqs) All() iter.Seq[*speech.Utterance] {
	if p.seq == nil {
		return func(func(*speech.Utterance) bool) {}
	}
	return p.seq
}

// Sample draws k utterances uniformly without replacement using reservoir
// sampling, consuming the whole sequence once. It fails with
// [ErrSampleTooLarge] when the sequence holds fewer than k utterances.
func (p PhoneSeqs) Sample(r Rand, k int) (PhoneSeqs, error) {
	if k < 0 {
		return PhoneSeqs{}, fmt.Errorf("corpus: negative sample size %d", k)
	}
	r = orGlobal(r)

	reservoir := make([]*speech.Utterance, 0, k)
	i := 0
	for u := range p.All() {
		if i < k {
			reservoir = append(reservoir, u)
		} else if j := r.IntN(i + 1); j < k {
			reservoir[j] = u
		}
		i++
	}
	if i < k {
		return PhoneSeqs{}, fmt.Errorf("%w: want %d, have %d", ErrSampleTooLarge, k, i)
	}
	shuffle(r, reservoir)
	return Seqs(slices.Values(reservoir)), nil
}

// Cache materialises the sequence for repeated iteration, indexing, length
// queries and sampling.
func (p PhoneSeqs) Cache() *PhoneSeqsCache {
	return &PhoneSeqsCache{items: slices.Collect(p.All())}
}

// PhoneSeqsCache is a materialised [PhoneSeqs].
type PhoneSeqsCache struct {
	items []*speech.Utterance
}

// Len returns the number of cached utterances.
func (c *PhoneSeqsCache) Len() int { return len(c.items) }

// At returns the i-th cached utterance.
func (c *PhoneSeqsCache) At(i int) *speech.Utterance { return c.items[i] }

// All iterates over the cached utterances in order.
func (c *PhoneSeqsCache) All() iter.Seq[*speech.Utterance] {
	return slices.Values(c.items)
}

// Sample draws k distinct cached utterances uniformly at random. It fails
// with [ErrSampleTooLarge] when k exceeds Len.
func (c *PhoneSeqsCache) Sample(r Rand, k int) ([]*speech.Utterance, error) {
	if k < 0 {
		return nil, fmt.Errorf("corpus: negative sample size %d", k)
	}
	n := len(c.items)
	if k > n {
		return nil, fmt.Errorf("%w: want %d, have %d", ErrSampleTooLarge, k, n)
	}
	r = orGlobal(r)

	// Partial Fisher-Yates over a permutation of indices.
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	out := make([]*speech.Utterance, k)
	for i := range k {
		j := i + r.IntN(n-i)
		perm[i], perm[j] = perm[j], perm[i]
		out[i] = c.items[perm[i]]
	}
	return out, nil
}

func shuffle(r Rand, items []*speech.Utterance) {
	for i := len(items) - 1; i > 0; i-- {
		j := r.IntN(i + 1)
		items[i], items[j] = items[j], items[i]
	}
}

// NPhones yields every length-n phone sequence in the corpus, one per
// occurrence.
func (c *Corpus) NPhones(n int) PhoneSeqs {
	return Seqs(func(yield func(*speech.Utterance) bool) {
		start := time.Now()
		matched := false
		defer func() {
			c.observer.RecordCorpusLookup(LookupLayer, matched, time.Since(start))
		}()
		for o := range c.index.ReadLayer(n) {
			matched = true
			if !yield(subUtterance(o.Ref, o.Offset, n)) {
				return
			}
		}
	})
}

// Phones yields every phone occurrence in the corpus.
func (c *Corpus) Phones() PhoneSeqs { return c.NPhones(1) }

// Diphones yields every two-phone sequence in the corpus.
func (c *Corpus) Diphones() PhoneSeqs { return c.NPhones(2) }

// Triphones yields every three-phone sequence in the corpus.
func (c *Corpus) Triphones() PhoneSeqs { return c.NPhones(3) }

// PhoneSeqsOf wraps [Corpus.FindUtterances] for content so it can be sampled
// or cached.
func (c *Corpus) PhoneSeqsOf(content []string) PhoneSeqs {
	return Seqs(c.FindUtterances(content))
}

// Inventory returns the distinct phoneme labels in the corpus.
func (c *Corpus) Inventory() []string {
	layer := c.index.Layer(1)
	out := make([]string, len(layer))
	for i, l := range layer {
		out[i] = l[0]
	}
	slices.Sort(out)
	return out
}

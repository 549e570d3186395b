// Package corpus indexes aligned utterances by phoneme content and retrieves
// recorded audio spans that realise a target phoneme sequence.
//
// A [Corpus] is populated with [Corpus.Insert] and then queried:
//
//   - [Corpus.FindUtterances] finds every verbatim occurrence of a sequence.
//   - [Corpus.FindMinimalUtterances] combines one occurrence per independent
//     sub-target, lazily enumerating the Cartesian product.
//   - [Corpus.FindMaximalUtterances] first splits a target into the longest
//     runs that occur verbatim somewhere in the corpus, so that synthesis only
//     needs to splice at run boundaries.
//
// Population must complete before retrieval starts. Afterwards any number of
// goroutines may query the same Corpus concurrently. All lookups return
// restartable iterators; ranging over one twice repeats the lookup.
package corpus

import (
	"iter"
	"sync"
	"time"

	"github.com/MrWong99/concatsynth/pkg/speech"
	"github.com/MrWong99/concatsynth/pkg/substring"
)

// Lookup kinds reported to an [Observer].
const (
	LookupExact   = "exact"
	LookupMerge   = "merge"
	LookupLayer   = "layer"
	LookupMaximal = "maximal"
)

// Observer receives corpus activity. *observe.Metrics satisfies it.
type Observer interface {
	RecordCorpusInsert(phones int)
	RecordCorpusLookup(kind string, matched bool, elapsed time.Duration)
	RecordCorpusMemo(hit bool)
}

type nopObserver struct{}

func (nopObserver) RecordCorpusInsert(int)                         {}
func (nopObserver) RecordCorpusLookup(string, bool, time.Duration) {}
func (nopObserver) RecordCorpusMemo(bool)                          {}

// DefaultMemoLimit is the number of decompositions a [Corpus] memoises before
// it starts over with an empty memo.
const DefaultMemoLimit = 1 << 14

// Option configures a [Corpus].
type Option func(*Corpus)

// WithObserver reports inserts, lookups and memo activity to o.
func WithObserver(o Observer) Option {
	return func(c *Corpus) {
		if o != nil {
			c.observer = o
		}
	}
}

// WithMemoLimit bounds the decomposition memo to n entries. Values below 1
// are ignored.
func WithMemoLimit(n int) Option {
	return func(c *Corpus) {
		if n > 0 {
			c.memoLimit = n
		}
	}
}

// Corpus is a collection of indexed utterances.
type Corpus struct {
	index    *substring.Index[string, *speech.Utterance]
	observer Observer

	mu        sync.Mutex
	memo      map[string][][]string
	memoLimit int
}

// New returns an empty Corpus.
func New(opts ...Option) *Corpus {
	c := &Corpus{
		index:     substring.New[string, *speech.Utterance](),
		observer:  nopObserver{},
		memo:      make(map[string][][]string),
		memoLimit: DefaultMemoLimit,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Insert indexes the phoneme content of u. Insert is not safe for concurrent
// use with itself or with lookups.
func (c *Corpus) Insert(u *speech.Utterance) {
	c.index.Index(u.Content(), u)
	c.observer.RecordCorpusInsert(u.Len())

	// Decompositions depend on what the corpus contains.
	c.mu.Lock()
	clear(c.memo)
	c.mu.Unlock()
}

// Len returns the number of utterances inserted.
func (c *Corpus) Len() int { return c.index.Len() }

// Contains reports whether content occurs verbatim in some utterance.
func (c *Corpus) Contains(content []string) bool {
	return c.index.Contains(content)
}

// Count returns the number of verbatim occurrences of content.
func (c *Corpus) Count(content []string) int {
	return c.index.Count(content)
}

// FindUtterances yields every recorded span whose phoneme content equals
// content. It yields nothing when there is no match.
func (c *Corpus) FindUtterances(content []string) iter.Seq[*speech.Utterance] {
	size := len(content)
	return func(yield func(*speech.Utterance) bool) {
		start := time.Now()
		matched := c.index.Contains(content)
		c.observer.RecordCorpusLookup(LookupExact, matched, time.Since(start))
		if !matched {
			return
		}
		for o := range c.index.Find(content) {
			if !yield(subUtterance(o.Ref, o.Offset, size)) {
				return
			}
		}
	}
}

// FindMinimalUtterances yields every combination that picks one match for
// each of contentSeqs, in lexicographic order with the last sequence varying
// fastest. If any sequence has no match, nothing is yielded. Each yielded
// slice is freshly allocated.
func (c *Corpus) FindMinimalUtterances(contentSeqs [][]string) iter.Seq[[]*speech.Utterance] {
	return func(yield func([]*speech.Utterance) bool) {
		choices := make([][]*speech.Utterance, len(contentSeqs))
		for i, seq := range contentSeqs {
			for u := range c.FindUtterances(seq) {
				choices[i] = append(choices[i], u)
			}
			if len(choices[i]) == 0 {
				return
			}
		}

		pick := make([]int, len(choices))
		for {
			combo := make([]*speech.Utterance, len(choices))
			for i, j := range pick {
				combo[i] = choices[i][j]
			}
			if !yield(combo) {
				return
			}

			// Advance the odometer from the rightmost position.
			i := len(pick) - 1
			for ; i >= 0; i-- {
				pick[i]++
				if pick[i] < len(choices[i]) {
					break
				}
				pick[i] = 0
			}
			if i < 0 {
				return
			}
		}
	}
}

// FindMaximalUtterances decomposes content into maximal verbatim runs with
// [Corpus.FindMaximalContentSeqs] and yields every combination of one match
// per run.
func (c *Corpus) FindMaximalUtterances(content []string) iter.Seq[[]*speech.Utterance] {
	return c.FindMinimalUtterances(c.FindMaximalContentSeqs(content))
}

// subUtterance cuts the n phones at offset out of u. Occurrences recorded by
// the index always fit their reference.
func subUtterance(u *speech.Utterance, offset, n int) *speech.Utterance {
	sub, err := u.Sub(offset, offset+n)
	if err != nil {
		panic("corpus: index occurrence out of range: " + err.Error())
	}
	return sub
}

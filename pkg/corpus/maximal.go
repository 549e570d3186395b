package corpus

import (
	"slices"
	"strconv"
	"strings"
	"time"
)

// FindMaximalContentSeqs splits content into contiguous runs. Every run longer
// than one phoneme occurs verbatim in the corpus, and neighbouring runs are
// fused wherever the fused run occurs too.
//
// The split is computed by divide and conquer: both halves are decomposed
// recursively and the run ending the left half is fused with the run starting
// the right half when the fused run occurs in the corpus. Only existence is
// checked here; which occurrence to use is left to the later lookup.
// Results are memoised per Corpus and the returned runs are fresh copies.
func (c *Corpus) FindMaximalContentSeqs(content []string) [][]string {
	start := time.Now()
	runs := c.maximalRuns(content)
	c.observer.RecordCorpusLookup(LookupMaximal, len(runs) > 0, time.Since(start))

	out := make([][]string, len(runs))
	for i, r := range runs {
		out[i] = slices.Clone(r)
	}
	return out
}

func (c *Corpus) maximalRuns(content []string) [][]string {
	key := memoKey(content)
	c.mu.Lock()
	cached, ok := c.memo[key]
	c.mu.Unlock()
	c.observer.RecordCorpusMemo(ok)
	if ok {
		return cached
	}

	var result [][]string
	if len(content) <= 1 {
		result = [][]string{slices.Clone(content)}
	} else {
		mid := len(content) / 2
		left := c.maximalRuns(content[:mid])
		right := c.maximalRuns(content[mid:])

		candidate := slices.Concat(left[len(left)-1], right[0])
		t := time.Now()
		fused := c.index.Contains(candidate)
		c.observer.RecordCorpusLookup(LookupMerge, fused, time.Since(t))

		if fused {
			result = make([][]string, 0, len(left)+len(right)-1)
			result = append(result, left[:len(left)-1]...)
			result = append(result, candidate)
			result = append(result, right[1:]...)
		} else {
			result = slices.Concat(left, right)
		}
	}

	c.mu.Lock()
	if len(c.memo) >= c.memoLimit {
		clear(c.memo)
	}
	c.memo[key] = result
	c.mu.Unlock()
	return result
}

// memoKey length-prefixes every label so that no two sequences share a key,
// whatever bytes the labels contain.
func memoKey(content []string) string {
	var b strings.Builder
	for _, label := range content {
		b.WriteString(strconv.Itoa(len(label)))
		b.WriteByte(':')
		b.WriteString(label)
	}
	return b.String()
}

// Package substring provides a generic trie that indexes every contiguous
// substring of the symbol sequences inserted into it.
//
// Indexing a sequence of length n walks n suffixes from the root, creating
// edges as needed, and records an [Occurrence] at every node on each walk. The
// node reached by following symbols s from the root therefore holds one
// occurrence for every place s appears in an indexed sequence, tagged with the
// start offset of that appearance.
//
// Lookups never modify the trie. An Index may be read from any number of
// goroutines once all calls to [Index.Index] have returned; mutation is not
// synchronised.
package substring

import (
	"iter"
	"slices"
)

// Occurrence locates a substring inside an indexed sequence: Ref identifies
// the sequence and Offset is the position where the substring starts.
type Occurrence[R any] struct {
	Ref    R
	Offset int
}

type node[S comparable, R any] struct {
	children    map[S]*node[S, R]
	occurrences []Occurrence[R]
}

// Index maps symbol sequences to every position they occur at.
type Index[S comparable, R any] struct {
	root  *node[S, R]
	keys  int
	nodes int
}

// New creates an empty Index.
func New[S comparable, R any]() *Index[S, R] {
	return &Index[S, R]{root: &node[S, R]{}}
}

// Index records every substring of key as occurring in ref.
func (x *Index[S, R]) Index(key []S, ref R) {
	for p := range key {
		x.indexSuffix(key[p:], ref, p)
	}
	x.keys++
}

func (x *Index[S, R]) indexSuffix(suffix []S, ref R, offset int) {
	cur := x.root
	for _, sym := range suffix {
		next, ok := cur.children[sym]
		if !ok {
			if cur.children == nil {
				cur.children = make(map[S]*node[S, R])
			}
			next = &node[S, R]{}
			cur.children[sym] = next
			x.nodes++
		}
		next.occurrences = append(next.occurrences, Occurrence[R]{Ref: ref, Offset: offset})
		cur = next
	}
}

// lookup walks substr without creating edges. It returns nil at the first
// missing edge.
func (x *Index[S, R]) lookup(substr []S) *node[S, R] {
	cur := x.root
	for _, sym := range substr {
		next, ok := cur.children[sym]
		if !ok {
			return nil
		}
		cur = next
	}
	return cur
}

// Find yields every occurrence of substr. It yields nothing when substr never
// occurs or is empty.
func (x *Index[S, R]) Find(substr []S) iter.Seq[Occurrence[R]] {
	return func(yield func(Occurrence[R]) bool) {
		n := x.lookup(substr)
		if n == nil {
			return
		}
		for _, o := range n.occurrences {
			if !yield(o) {
				return
			}
		}
	}
}

// FindAll returns the occurrences of substr as a new slice.
func (x *Index[S, R]) FindAll(substr []S) []Occurrence[R] {
	n := x.lookup(substr)
	if n == nil {
		return nil
	}
	return slices.Clone(n.occurrences)
}

// Count returns the number of occurrences of substr.
func (x *Index[S, R]) Count(substr []S) int {
	n := x.lookup(substr)
	if n == nil {
		return 0
	}
	return len(n.occurrences)
}

// Contains reports whether substr occurs at least once.
func (x *Index[S, R]) Contains(substr []S) bool {
	return x.Count(substr) > 0
}

// ReadLayer yields every occurrence stored at depth height, that is every
// occurrence of every length-height substring in the index. Height 0 yields
// nothing.
func (x *Index[S, R]) ReadLayer(height int) iter.Seq[Occurrence[R]] {
	return func(yield func(Occurrence[R]) bool) {
		if height <= 0 {
			return
		}
		x.root.readLayer(height, yield)
	}
}

// readLayer reports whether iteration should continue.
func (n *node[S, R]) readLayer(height int, yield func(Occurrence[R]) bool) bool {
	if height == 0 {
		for _, o := range n.occurrences {
			if !yield(o) {
				return false
			}
		}
		return true
	}
	for _, child := range n.children {
		if !child.readLayer(height-1, yield) {
			return false
		}
	}
	return true
}

// Layer returns the distinct length-height substrings in the index.
func (x *Index[S, R]) Layer(height int) [][]S {
	var out [][]S
	if height <= 0 {
		return out
	}
	var walk func(n *node[S, R], path []S)
	walk = func(n *node[S, R], path []S) {
		if len(path) == height {
			out = append(out, slices.Clone(path))
			return
		}
		for sym, child := range n.children {
			walk(child, append(path, sym))
		}
	}
	walk(x.root, make([]S, 0, height))
	return out
}

// Len returns the number of sequences indexed.
func (x *Index[S, R]) Len() int { return x.keys }

// NodeCount returns the number of trie nodes below the root.
func (x *Index[S, R]) NodeCount() int { return x.nodes }

// Package phonetic answers "which phonemes does this corpus know" and, for
// phonemes it does not know, suggests the closest known symbols.
//
// Suggestions are ranked in two stages:
//
//  1. Jaro-Winkler similarity on the upper-cased symbols, which rewards a
//     shared prefix. ARPAbet vowels differ only in their stress digit
//     ("AH0" vs "AH1"), so this ranks stress variants first.
//
//  2. Ties are broken by Levenshtein distance, then lexically, so the order is
//     deterministic.
//
// Candidates scoring below the threshold (default 0.70) are dropped.
package phonetic

import (
	"slices"
	"strings"

	"github.com/antzucaro/matchr"
)

const (
	defaultThreshold = 0.70
	defaultLimit     = 3
)

// Source supplies the phoneme symbols of a corpus. *corpus.Corpus satisfies
// it.
type Source interface {
	Inventory() []string
}

// Option is a functional option for configuring an [Inventory].
type Option func(*Inventory)

// WithThreshold sets the minimum Jaro-Winkler score for a suggestion.
// Default: 0.70.
func WithThreshold(threshold float64) Option {
	return func(inv *Inventory) {
		inv.threshold = threshold
	}
}

// WithLimit caps the number of suggestions returned per symbol. Default: 3.
func WithLimit(n int) Option {
	return func(inv *Inventory) {
		inv.limit = n
	}
}

// Inventory is the set of symbols in a corpus. It is read-only after
// construction and safe for concurrent use.
type Inventory struct {
	symbols   []string
	set       map[string]struct{}
	threshold float64
	limit     int
}

// New builds an Inventory from symbols. Duplicates are collapsed.
func New(symbols []string, opts ...Option) *Inventory {
	inv := &Inventory{
		set:       make(map[string]struct{}, len(symbols)),
		threshold: defaultThreshold,
		limit:     defaultLimit,
	}
	for _, s := range symbols {
		if _, ok := inv.set[s]; ok {
			continue
		}
		inv.set[s] = struct{}{}
		inv.symbols = append(inv.symbols, s)
	}
	slices.Sort(inv.symbols)
	for _, o := range opts {
		o(inv)
	}
	return inv
}

// FromSource builds an Inventory from the symbols of src.
func FromSource(src Source, opts ...Option) *Inventory {
	return New(src.Inventory(), opts...)
}

// Contains reports whether sym is a known symbol.
func (inv *Inventory) Contains(sym string) bool {
	_, ok := inv.set[sym]
	return ok
}

// Symbols returns the known symbols in sorted order.
func (inv *Inventory) Symbols() []string {
	return slices.Clone(inv.symbols)
}

// Len returns the number of known symbols.
func (inv *Inventory) Len() int { return len(inv.symbols) }

// Unknown returns the distinct symbols of content that are not in the
// inventory, in order of first appearance.
func (inv *Inventory) Unknown(content []string) []string {
	var out []string
	for _, s := range content {
		if inv.Contains(s) || slices.Contains(out, s) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// Suggestion is a known symbol close to an unknown one.
type Suggestion struct {
	Symbol string  `json:"symbol"`
	Score  float64 `json:"score"`
}

// Suggest returns the known symbols most similar to sym, best first. A known
// sym yields itself with score 1.
func (inv *Inventory) Suggest(sym string) []Suggestion {
	if inv.Contains(sym) {
		return []Suggestion{{Symbol: sym, Score: 1}}
	}
	query := strings.ToUpper(strings.TrimSpace(sym))
	if query == "" {
		return nil
	}

	type candidate struct {
		Suggestion
		distance int
	}
	var cands []candidate
	for _, known := range inv.symbols {
		upper := strings.ToUpper(known)
		score := matchr.JaroWinkler(query, upper, false)
		if score < inv.threshold {
			continue
		}
		cands = append(cands, candidate{
			Suggestion: Suggestion{Symbol: known, Score: score},
			distance:   matchr.Levenshtein(query, upper),
		})
	}

	slices.SortFunc(cands, func(a, b candidate) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		case a.distance != b.distance:
			return a.distance - b.distance
		default:
			return strings.Compare(a.Symbol, b.Symbol)
		}
	})
	if inv.limit > 0 && len(cands) > inv.limit {
		cands = cands[:inv.limit]
	}

	out := make([]Suggestion, len(cands))
	for i, c := range cands {
		out[i] = c.Suggestion
	}
	return out
}

// SuggestAll maps every unknown symbol of content to its suggestions.
func (inv *Inventory) SuggestAll(content []string) map[string][]Suggestion {
	unknown := inv.Unknown(content)
	if len(unknown) == 0 {
		return nil
	}
	out := make(map[string][]Suggestion, len(unknown))
	for _, s := range unknown {
		out[s] = inv.Suggest(s)
	}
	return out
}

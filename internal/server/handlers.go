package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"

	"github.com/MrWong99/concatsynth/internal/observe"
	"github.com/MrWong99/concatsynth/internal/phonetic"
	"github.com/MrWong99/concatsynth/pkg/corpus"
	"github.com/MrWong99/concatsynth/pkg/speech"
)

// Span is one recorded match.
type Span struct {
	Content []string `json:"content"`
	Start   float64  `json:"start"`
	End     float64  `json:"end"`
}

func spanOf(u *speech.Utterance) Span {
	return Span{Content: u.Content(), Start: u.StartTime(), End: u.EndTime()}
}

// UtterancesResponse is returned by /v1/utterances.
type UtterancesResponse struct {
	Phonemes    []string                         `json:"phonemes"`
	Count       int                              `json:"count"`
	Matches     []Span                           `json:"matches"`
	Suggestions map[string][]phonetic.Suggestion `json:"suggestions,omitempty"`
}

// CombinationsResponse is returned by /v1/minimal and /v1/maximal. Runs holds
// the sequences that were matched; every combination has one span per run.
type CombinationsResponse struct {
	Runs         [][]string                       `json:"runs"`
	Combinations [][]Span                         `json:"combinations"`
	Truncated    bool                             `json:"truncated"`
	Suggestions  map[string][]phonetic.Suggestion `json:"suggestions,omitempty"`
}

// NPhonesResponse is returned by /v1/nphones.
type NPhonesResponse struct {
	N     int    `json:"n"`
	Total int    `json:"total"`
	Items []Span `json:"items"`
}

// InventoryResponse is returned by /v1/inventory.
type InventoryResponse struct {
	Symbols []string `json:"symbols"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// errBadRequest marks errors caused by request parameters.
var errBadRequest = errors.New("bad request")

func (s *Server) handleUtterances(w http.ResponseWriter, r *http.Request) {
	l, ok := s.loadedOrUnavailable(w)
	if !ok {
		return
	}
	content, err := phonemesParam(r, "phonemes")
	if err != nil {
		writeError(w, err)
		return
	}
	limit, err := limitParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := UtterancesResponse{
		Phonemes:    content,
		Count:       l.corpus.Count(content),
		Matches:     []Span{},
		Suggestions: l.inventory.SuggestAll(content),
	}
	for u := range take(l.corpus.FindUtterances(content), limit) {
		resp.Matches = append(resp.Matches, spanOf(u))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMinimal(w http.ResponseWriter, r *http.Request) {
	l, ok := s.loadedOrUnavailable(w)
	if !ok {
		return
	}
	raw := r.URL.Query()["seq"]
	if len(raw) == 0 {
		writeError(w, fmt.Errorf("%w: at least one seq parameter is required", errBadRequest))
		return
	}
	seqs := make([][]string, len(raw))
	var all []string
	for i, v := range raw {
		seqs[i] = splitPhonemes(v)
		if len(seqs[i]) == 0 {
			writeError(w, fmt.Errorf("%w: seq %d is empty", errBadRequest, i))
			return
		}
		all = append(all, seqs[i]...)
	}
	limit, err := limitParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, combinations(l, seqs, all, limit))
}

func (s *Server) handleMaximal(w http.ResponseWriter, r *http.Request) {
	l, ok := s.loadedOrUnavailable(w)
	if !ok {
		return
	}
	content, err := phonemesParam(r, "phonemes")
	if err != nil {
		writeError(w, err)
		return
	}
	limit, err := limitParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	_, span := observe.StartSpan(r.Context(), "corpus.FindMaximalContentSeqs")
	span.SetAttributes(observe.ContentAttr("corpus.content", content))
	runs := l.corpus.FindMaximalContentSeqs(content)
	span.End()

	writeJSON(w, http.StatusOK, combinations(l, runs, content, limit))
}

func combinations(l *loaded, seqs [][]string, all []string, limit int) CombinationsResponse {
	resp := CombinationsResponse{
		Runs:         seqs,
		Combinations: [][]Span{},
		Suggestions:  l.inventory.SuggestAll(all),
	}
	for combo := range l.corpus.FindMinimalUtterances(seqs) {
		if len(resp.Combinations) == limit {
			resp.Truncated = true
			break
		}
		spans := make([]Span, len(combo))
		for i, u := range combo {
			spans[i] = spanOf(u)
		}
		resp.Combinations = append(resp.Combinations, spans)
	}
	return resp
}

func (s *Server) handleNPhones(w http.ResponseWriter, r *http.Request) {
	l, ok := s.loadedOrUnavailable(w)
	if !ok {
		return
	}
	q := r.URL.Query()
	n, err := intParam(q.Get("n"), "n", 1)
	if err != nil {
		writeError(w, err)
		return
	}
	if n < 1 {
		writeError(w, fmt.Errorf("%w: n must be at least 1", errBadRequest))
		return
	}

	cache := l.corpus.NPhones(n).Cache()
	resp := NPhonesResponse{N: n, Total: cache.Len(), Items: []Span{}}

	if q.Has("sample") {
		k, err := intParam(q.Get("sample"), "sample", 0)
		if err != nil {
			writeError(w, err)
			return
		}
		var rnd corpus.Rand
		if q.Has("seed") {
			seed, err := strconv.ParseUint(q.Get("seed"), 10, 64)
			if err != nil {
				writeError(w, fmt.Errorf("%w: seed: %v", errBadRequest, err))
				return
			}
			rnd = rand.New(rand.NewPCG(seed, seed))
		}
		picked, err := cache.Sample(rnd, k)
		if err != nil {
			writeError(w, fmt.Errorf("%w: %v", errBadRequest, err))
			return
		}
		for _, u := range picked {
			resp.Items = append(resp.Items, spanOf(u))
		}
		writeJSON(w, http.StatusOK, resp)
		return
	}

	limit, err := limitParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	for u := range take(cache.All(), limit) {
		resp.Items = append(resp.Items, spanOf(u))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleInventory(w http.ResponseWriter, _ *http.Request) {
	l, ok := s.loadedOrUnavailable(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, InventoryResponse{Symbols: l.inventory.Symbols()})
}

func (s *Server) loadedOrUnavailable(w http.ResponseWriter) (*loaded, bool) {
	l := s.current.Load()
	if l == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "corpus not loaded"})
		return nil, false
	}
	return l, true
}

// splitPhonemes accepts space or comma separated labels.
func splitPhonemes(v string) []string {
	return strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == ' ' })
}

func phonemesParam(r *http.Request, key string) ([]string, error) {
	content := splitPhonemes(r.URL.Query().Get(key))
	if len(content) == 0 {
		return nil, fmt.Errorf("%w: %s is required", errBadRequest, key)
	}
	return content, nil
}

func limitParam(r *http.Request) (int, error) {
	limit, err := intParam(r.URL.Query().Get("limit"), "limit", DefaultLimit)
	if err != nil {
		return 0, err
	}
	if limit < 1 || limit > MaxLimit {
		return 0, fmt.Errorf("%w: limit must be between 1 and %d", errBadRequest, MaxLimit)
	}
	return limit, nil
}

func intParam(v, name string, def int) (int, error) {
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", errBadRequest, name, err)
	}
	return n, nil
}

func take[T any](seq iter.Seq[T], n int) iter.Seq[T] {
	return func(yield func(T) bool) {
		if n <= 0 {
			return
		}
		i := 0
		for v := range seq {
			if !yield(v) {
				return
			}
			if i++; i == n {
				return
			}
		}
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, errBadRequest) {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

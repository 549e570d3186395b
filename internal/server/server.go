// Package server exposes corpus retrieval over HTTP.
//
// Routes:
//
//	GET /v1/utterances?phonemes=N+S+AH0&limit=100  verbatim matches
//	GET /v1/minimal?seq=N+S&seq=AH0+P&limit=10     one match per sequence
//	GET /v1/maximal?phonemes=...&limit=10          maximal-run decomposition
//	GET /v1/nphones?n=3&sample=5&seed=7            n-phone layer, optionally sampled
//	GET /v1/inventory                              phoneme inventory
//	GET /healthz, /readyz                          probes
//	GET /metrics                                   Prometheus scrape endpoint
//
// Phoneme lists may be separated by spaces or commas. The corpus can be
// replaced at any time with [Server.Swap]; in-flight requests finish against
// the corpus they started with.
package server

import (
	"context"
	"net/http"
	"sync/atomic"

	"github.com/MrWong99/concatsynth/internal/health"
	"github.com/MrWong99/concatsynth/internal/observe"
	"github.com/MrWong99/concatsynth/internal/phonetic"
	"github.com/MrWong99/concatsynth/pkg/corpus"
)

// Default and maximum result counts per request.
const (
	DefaultLimit = 10
	MaxLimit     = 1000
)

// loaded is the corpus together with the inventory derived from it.
type loaded struct {
	corpus    *corpus.Corpus
	inventory *phonetic.Inventory
}

// Server serves retrieval requests against the current corpus.
type Server struct {
	current atomic.Pointer[loaded]

	metrics        *observe.Metrics
	metricsHandler http.Handler
	phoneticOpts   []phonetic.Option
	minUtterances  int

	handler http.Handler
}

// Option configures a [Server].
type Option func(*Server)

// WithMetrics records request and corpus metrics to m. The default is
// [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithMetricsHandler serves h on /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metricsHandler = h }
}

// WithPhoneticOptions configures the suggestions offered for unknown
// phonemes.
func WithPhoneticOptions(opts ...phonetic.Option) Option {
	return func(s *Server) { s.phoneticOpts = opts }
}

// WithMinUtterances sets how many utterances the corpus must hold before
// /readyz passes. The default is 1.
func WithMinUtterances(n int) Option {
	return func(s *Server) { s.minUtterances = n }
}

// New returns a Server without a corpus. Retrieval routes answer 503 until
// [Server.Swap] is called.
func New(opts ...Option) *Server {
	s := &Server{minUtterances: 1}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/utterances", s.handleUtterances)
	mux.HandleFunc("GET /v1/minimal", s.handleMinimal)
	mux.HandleFunc("GET /v1/maximal", s.handleMaximal)
	mux.HandleFunc("GET /v1/nphones", s.handleNPhones)
	mux.HandleFunc("GET /v1/inventory", s.handleInventory)

	health.New(health.CorpusChecker(s.sizer, s.minUtterances)).Register(mux)
	if s.metricsHandler != nil {
		mux.Handle("GET /metrics", s.metricsHandler)
	}

	s.handler = observe.Middleware(s.metrics)(mux)
	return s
}

// Handler returns the instrumented HTTP handler.
func (s *Server) Handler() http.Handler { return s.handler }

// Swap makes c the corpus served to new requests and returns the previous
// one. c must not be modified afterwards.
func (s *Server) Swap(c *corpus.Corpus) *corpus.Corpus {
	var next *loaded
	if c != nil {
		next = &loaded{corpus: c, inventory: phonetic.FromSource(c, s.phoneticOpts...)}
		s.metrics.RecordCorpusSize(context.Background(), c.Len())
	}
	prev := s.current.Swap(next)
	if prev == nil {
		return nil
	}
	return prev.corpus
}

// Current returns the corpus being served, or nil before the first Swap.
func (s *Server) Current() *corpus.Corpus {
	if l := s.current.Load(); l != nil {
		return l.corpus
	}
	return nil
}

// sizer avoids handing health a non-nil interface around a nil corpus.
func (s *Server) sizer() health.Sizer {
	c := s.Current()
	if c == nil {
		return nil
	}
	return c
}

// Package observe provides application-wide observability primitives for
// concatsynth: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all concatsynth metrics.
const meterName = "github.com/MrWong99/concatsynth"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use; the underlying OTel types handle
// their own synchronisation.
//
// *Metrics satisfies corpus.Observer.
type Metrics struct {
	// --- Corpus ---

	// CorpusInserts counts utterances inserted into a corpus.
	CorpusInserts metric.Int64Counter

	// CorpusPhones counts phones inserted into a corpus.
	CorpusPhones metric.Int64Counter

	// CorpusLookups counts index lookups. Use with attributes:
	//   attribute.String("kind", ...), attribute.String("result", "hit"|"miss")
	CorpusLookups metric.Int64Counter

	// CorpusLookupDuration tracks index lookup latency by kind.
	CorpusLookupDuration metric.Float64Histogram

	// CorpusMemo counts decomposition memo accesses. Use with attribute:
	//   attribute.String("result", "hit"|"miss")
	CorpusMemo metric.Int64Counter

	// CorpusUtterances reports the size of the corpus currently served.
	CorpusUtterances metric.Int64Gauge

	// --- Ingestion ---

	// IngestDuration tracks how long a full corpus build takes.
	IngestDuration metric.Float64Histogram

	// IngestSkipped counts label/audio pairs rejected during a build. Use with
	// attribute:
	//   attribute.String("reason", ...)
	IngestSkipped metric.Int64Counter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// lookupBuckets defines histogram bucket boundaries (in seconds) for trie
// walks, which are expected to finish in micro- to milliseconds.
var lookupBuckets = []float64{
	0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5,
}

// ingestBuckets defines histogram bucket boundaries (in seconds) for corpus
// builds.
var ingestBuckets = []float64{
	0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Counters.
	if met.CorpusInserts, err = m.Int64Counter("concatsynth.corpus.inserts",
		metric.WithDescription("Total utterances inserted into a corpus."),
	); err != nil {
		return nil, err
	}
	if met.CorpusPhones, err = m.Int64Counter("concatsynth.corpus.phones",
		metric.WithDescription("Total phones inserted into a corpus."),
	); err != nil {
		return nil, err
	}
	if met.CorpusLookups, err = m.Int64Counter("concatsynth.corpus.lookups",
		metric.WithDescription("Total corpus lookups by kind and result."),
	); err != nil {
		return nil, err
	}
	if met.CorpusMemo, err = m.Int64Counter("concatsynth.corpus.memo",
		metric.WithDescription("Decomposition memo accesses by result."),
	); err != nil {
		return nil, err
	}
	if met.IngestSkipped, err = m.Int64Counter("concatsynth.ingest.skipped",
		metric.WithDescription("Label/audio pairs skipped during corpus builds by reason."),
	); err != nil {
		return nil, err
	}

	// Histograms.
	if met.CorpusLookupDuration, err = m.Float64Histogram("concatsynth.corpus.lookup.duration",
		metric.WithDescription("Latency of corpus lookups by kind."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(lookupBuckets...),
	); err != nil {
		return nil, err
	}
	if met.IngestDuration, err = m.Float64Histogram("concatsynth.ingest.duration",
		metric.WithDescription("Latency of full corpus builds."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(ingestBuckets...),
	); err != nil {
		return nil, err
	}

	// Gauges.
	if met.CorpusUtterances, err = m.Int64Gauge("concatsynth.corpus.utterances",
		metric.WithDescription("Number of utterances in the corpus being served."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("concatsynth.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

func result(ok bool) string {
	if ok {
		return "hit"
	}
	return "miss"
}

// RecordCorpusInsert records one inserted utterance of the given length.
func (m *Metrics) RecordCorpusInsert(phones int) {
	ctx := context.Background()
	m.CorpusInserts.Add(ctx, 1)
	m.CorpusPhones.Add(ctx, int64(phones))
}

// RecordCorpusLookup records a lookup counter increment and its latency with
// the standard attribute set.
func (m *Metrics) RecordCorpusLookup(kind string, matched bool, elapsed time.Duration) {
	ctx := context.Background()
	m.CorpusLookups.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("kind", kind),
			attribute.String("result", result(matched)),
		),
	)
	m.CorpusLookupDuration.Record(ctx, elapsed.Seconds(),
		metric.WithAttributes(attribute.String("kind", kind)),
	)
}

// RecordCorpusMemo records a decomposition memo access.
func (m *Metrics) RecordCorpusMemo(hit bool) {
	m.CorpusMemo.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("result", result(hit))),
	)
}

// RecordCorpusSize sets the utterance gauge to the size of the corpus now
// being served.
func (m *Metrics) RecordCorpusSize(ctx context.Context, utterances int) {
	m.CorpusUtterances.Record(ctx, int64(utterances))
}

// RecordIngestSkipped is a convenience method that records a skipped entry
// with its reason.
func (m *Metrics) RecordIngestSkipped(ctx context.Context, reason string) {
	m.IngestSkipped.Add(ctx, 1,
		metric.WithAttributes(attribute.String("reason", reason)),
	)
}

// RecordIngest records the duration of a completed corpus build.
func (m *Metrics) RecordIngest(ctx context.Context, elapsed time.Duration) {
	m.IngestDuration.Record(ctx, elapsed.Seconds())
}

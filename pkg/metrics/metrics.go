// Package metrics carries the engine's runtime counters. The shape follows
// pkg/memory.Metrics: atomic counters plus a Snapshot() for
// logging, with a prometheus.Registerer mirror layered on top the way
// cuemby-warren/pkg/metrics layers Prometheus gauges over its own counters.
package metrics

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics captures lightweight runtime counters for observability.
type Metrics struct {
	stored          atomic.Int64
	searched        atomic.Int64
	softDeleted     atomic.Int64
	recovered       atomic.Int64
	boosted         atomic.Int64
	merged          atomic.Int64
	topicsDetected  atomic.Int64
	auditFailed     atomic.Int64
	degradedQueries atomic.Int64
	overloaded      atomic.Int64

	prom *promMirror
}

// New constructs Metrics with no Prometheus registration (used by tests and
// by engines that don't expose a /metrics endpoint).
func New() *Metrics { return &Metrics{} }

// NewWithRegistry constructs Metrics and registers a Prometheus mirror of
// every counter against reg. Registration uses MustRegister, so a duplicate
// collector (a second call against the same registry) panics: it is a
// programmer error, not a runtime one.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{prom: newPromMirror()}
	if reg != nil {
		m.prom.mustRegister(reg)
	}
	return m
}

func (m *Metrics) IncStored() {
	m.stored.Add(1)
	if m.prom != nil {
		m.prom.stored.Inc()
	}
}

func (m *Metrics) IncSearched(n int) {
	m.searched.Add(int64(n))
	if m.prom != nil {
		m.prom.searched.Add(float64(n))
	}
}

func (m *Metrics) IncSoftDeleted() {
	m.softDeleted.Add(1)
	if m.prom != nil {
		m.prom.softDeleted.Inc()
	}
}

func (m *Metrics) IncRecovered() {
	m.recovered.Add(1)
	if m.prom != nil {
		m.prom.recovered.Inc()
	}
}

func (m *Metrics) IncBoosted() {
	m.boosted.Add(1)
	if m.prom != nil {
		m.prom.boosted.Inc()
	}
}

func (m *Metrics) IncMerged() {
	m.merged.Add(1)
	if m.prom != nil {
		m.prom.merged.Inc()
	}
}

func (m *Metrics) IncTopicsDetected(n int) {
	m.topicsDetected.Add(int64(n))
	if m.prom != nil {
		m.prom.topicsDetected.Add(float64(n))
	}
}

func (m *Metrics) IncAuditFailed() {
	m.auditFailed.Add(1)
	if m.prom != nil {
		m.prom.auditFailed.Inc()
	}
}

func (m *Metrics) IncDegradedQueries() {
	m.degradedQueries.Add(1)
	if m.prom != nil {
		m.prom.degradedQueries.Inc()
	}
}

func (m *Metrics) IncOverloaded() {
	m.overloaded.Add(1)
	if m.prom != nil {
		m.prom.overloaded.Inc()
	}
}

// Snapshot is the JSON-friendly, reporting/logging view of the counters,
// mirroring pkg/memory.Metrics's Snapshot().
type Snapshot struct {
	Stored          int64 `json:"stored"`
	Searched        int64 `json:"searched"`
	SoftDeleted     int64 `json:"soft_deleted"`
	Recovered       int64 `json:"recovered"`
	Boosted         int64 `json:"boosted"`
	Merged          int64 `json:"merged"`
	TopicsDetected  int64 `json:"topics_detected"`
	AuditFailed     int64 `json:"audit_failed"`
	DegradedQueries int64 `json:"degraded_queries"`
	Overloaded      int64 `json:"overloaded"`
}

func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	return Snapshot{
		Stored:          m.stored.Load(),
		Searched:        m.searched.Load(),
		SoftDeleted:     m.softDeleted.Load(),
		Recovered:       m.recovered.Load(),
		Boosted:         m.boosted.Load(),
		Merged:          m.merged.Load(),
		TopicsDetected:  m.topicsDetected.Load(),
		AuditFailed:     m.auditFailed.Load(),
		DegradedQueries: m.degradedQueries.Load(),
		Overloaded:      m.overloaded.Load(),
	}
}

type promMirror struct {
	stored          prometheus.Counter
	searched        prometheus.Counter
	softDeleted     prometheus.Counter
	recovered       prometheus.Counter
	boosted         prometheus.Counter
	merged          prometheus.Counter
	topicsDetected  prometheus.Counter
	auditFailed     prometheus.Counter
	degradedQueries prometheus.Counter
	overloaded      prometheus.Counter
}

func newPromMirror() *promMirror {
	mk := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{Name: name, Help: help})
	}
	return &promMirror{
		stored:          mk("fpengine_memories_stored_total", "Total memories stored."),
		searched:        mk("fpengine_results_returned_total", "Total results returned across all searches."),
		softDeleted:     mk("fpengine_memories_soft_deleted_total", "Total soft deletes."),
		recovered:       mk("fpengine_memories_recovered_total", "Total recoveries within the 30 day window."),
		boosted:         mk("fpengine_importance_boosts_total", "Total importance boost operations."),
		merged:          mk("fpengine_memories_merged_total", "Total memory merges."),
		topicsDetected:  mk("fpengine_topics_detected_total", "Total topics emitted by detect_topics."),
		auditFailed:     mk("fpengine_audit_failures_total", "Total audit writes that failed (non-blocking)."),
		degradedQueries: mk("fpengine_degraded_queries_total", "Total queries that completed with degraded_views non-empty."),
		overloaded:      mk("fpengine_overloaded_rejections_total", "Total writes rejected for queue overload."),
	}
}

func (p *promMirror) mustRegister(reg prometheus.Registerer) {
	for _, c := range []prometheus.Collector{
		p.stored, p.searched, p.softDeleted, p.recovered, p.boosted,
		p.merged, p.topicsDetected, p.auditFailed, p.degradedQueries, p.overloaded,
	} {
		reg.MustRegister(c)
	}
}

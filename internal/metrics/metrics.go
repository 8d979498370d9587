package metrics

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one counter (and optionally one histogram).
type MetricID uint16

const (
	MetricLoginSuccess MetricID = iota
	MetricLoginFailure
	MetricLoginThrottled
	MetricLoginRejectedMetadata
	MetricCredentialConfigError
	MetricPrivilegeDenied
	MetricTokenIssued
	MetricIssuanceFailed
	MetricValidateSuccess
	MetricValidateInvalid
	MetricValidateExpired
	MetricValidateRevoked
	MetricValidateUserNotFound
	MetricLogout
	MetricLogoutAll
	MetricPasswordChangeRevocation
	MetricVerifierCacheHit
	MetricVerifierCacheMiss
	MetricLoginLatency
	MetricValidateLatency
	metricIDCount
)

// Count is the number of defined metric ids.
const Count = int(metricIDCount)

// bucketBounds are the inclusive upper bounds of every bucket except the
// last, which takes everything slower.
var bucketBounds = [...]time.Duration{
	5 * time.Millisecond,
	10 * time.Millisecond,
	25 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	250 * time.Millisecond,
	500 * time.Millisecond,
}

const bucketCount = len(bucketBounds) + 1

// latencyIDs are the ids that also carry a histogram, in slot order.
var latencyIDs = [...]MetricID{MetricLoginLatency, MetricValidateLatency}

func latencySlot(id MetricID) int {
	for i, lid := range latencyIDs {
		if lid == id {
			return i
		}
	}
	return -1
}

// slot pads each counter to its own cache line.
type slot struct {
	n atomic.Uint64
	_ [56]byte
}

type histogram [bucketCount]atomic.Uint64

// Config toggles collection.
type Config struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// Metrics holds the counters of one engine instance.
type Metrics struct {
	enabled bool
	latency bool
	slots   [metricIDCount]slot
	hists   [len(latencyIDs)]histogram
}

// Snapshot is a point-in-time copy of all metrics. Histogram buckets are
// non-cumulative.
type Snapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// New returns a [Metrics]. A disabled instance ignores every write.
func New(cfg Config) *Metrics {
	return &Metrics{
		enabled: cfg.Enabled,
		latency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.latency
}

// Inc adds one to id.
func (m *Metrics) Inc(id MetricID) {
	if !m.Enabled() || id >= metricIDCount {
		return
	}
	m.slots[id].n.Add(1)
}

// Observe records d in id's histogram. Ids without a histogram are ignored.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if !m.LatencyEnabled() {
		return
	}
	if i := latencySlot(id); i >= 0 {
		m.hists[i][bucketIndex(d)].Add(1)
	}
}

// Value returns the current count of id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return m.slots[id].n.Load()
}

// Snapshot copies every counter and, when latency collection is on, every
// histogram.
func (m *Metrics) Snapshot() Snapshot {
	s := Snapshot{
		Counters:   map[MetricID]uint64{},
		Histograms: map[MetricID][]uint64{},
	}
	if !m.Enabled() {
		return s
	}

	for id := range metricIDCount {
		s.Counters[id] = m.slots[id].n.Load()
	}
	if !m.latency {
		return s
	}
	for i, id := range latencyIDs {
		buckets := make([]uint64, bucketCount)
		for b := range buckets {
			buckets[b] = m.hists[i][b].Load()
		}
		s.Histograms[id] = buckets
	}
	return s
}

// bucketIndex truncates d to whole milliseconds before bucketing, so 5.9ms
// lands in the first bucket.
func bucketIndex(d time.Duration) int {
	d = d.Truncate(time.Millisecond)
	for i, bound := range bucketBounds {
		if d <= bound {
			return i
		}
	}
	return len(bucketBounds)
}

// Package prometheus publishes goSession metrics to Prometheus.
//
// [PrometheusExporter] renders the text exposition format directly and
// serves it through an [http.Handler]. [Collector] implements the
// client_golang Collector interface for callers that already run a
// registry. Both read [goSession.Engine.MetricsSnapshot] per scrape and
// share names from internaldefs: counters are gosession_*_total and
// histograms gosession_*_latency_seconds.
//
// # What this package must NOT do
//
//   - Register into the global Prometheus registry.
//   - Mutate engine state.
package prometheus

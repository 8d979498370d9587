// Package metrics holds the engine's in-process counters and the login and
// validate latency histograms.
//
// Every counter lives in its own cache-line-padded slot so hot paths on
// different cores do not contend. A histogram records into one of eight fixed
// buckets, the last of which is unbounded. Recording never allocates.
//
// Snapshot copies the current values for the exporters under
// metrics/export. The package performs no I/O and keeps no global state; the
// engine owns its Metrics value.
package metrics

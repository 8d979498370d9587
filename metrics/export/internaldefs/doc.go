// Package internaldefs is the single table of metric names, help strings and
// histogram bounds. The Prometheus renderer, the client_golang collector and
// the OTel exporter all read it so their series agree.
package internaldefs

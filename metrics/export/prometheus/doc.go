// Package prometheus exposes goSession metrics through
// github.com/prometheus/client_golang.
//
// [Collector] reads an engine snapshot on every scrape. Counter names are
// prefixed gosession_*_total; the single histogram is
// gosession_validate_latency_seconds.
//
// # What this package must NOT do
//
//   - Register in the global Prometheus registry. Callers register the
//     Collector or mount [Handler].
//   - Mutate engine state.
package prometheus

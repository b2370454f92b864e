// Package otel bridges goSession metrics into OpenTelemetry observable
// instruments.
//
// [NewOTelExporter] registers one callback on the supplied meter. Counters map
// to Int64ObservableCounter; the latency histogram is exported as cumulative
// per-bucket gauges plus a count gauge. Close unregisters the callback.
package otel

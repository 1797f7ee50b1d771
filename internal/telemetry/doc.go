// Package telemetry wires OpenTelemetry tracing and metrics for beacond.
//
// New builds a TracerProvider and MeterProvider backed by OTLP exporters
// (gRPC or HTTP). When telemetry is disabled, or a provider fails to
// initialize, the instance degrades to no-op tracers and meters; the server
// keeps running either way. Shutdown flushes pending data with a bounded
// timeout.
package telemetry

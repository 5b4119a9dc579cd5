// Package telemetry sets up OpenTelemetry tracing with file-based span
// export, used by the latency measurement tool to break down per-stage
// pipeline timings.
package telemetry

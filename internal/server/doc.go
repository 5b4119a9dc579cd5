// Package server implements the HTTP API that wires the transcription,
// conversation, and synthesis components together per request. Downstream
// tool failures are rendered as payload content rather than transport errors,
// and monitoring/management endpoints mirror the pipeline statistics.
package server

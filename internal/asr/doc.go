// Package asr wraps the Whisper CLI as a black-box speech-to-text engine.
// Uploaded audio is staged in a scoped temporary directory, decoded with
// fixed deterministic parameters, and returned as text with per-segment
// timestamps and an average log-probability confidence.
package asr

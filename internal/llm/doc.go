// Package llm defines the Generator port over a text-generation backend and
// implements it for a local Ollama subprocess. Failures are classified into
// missing binary, timeout, and non-zero exit so callers can render each as a
// distinct diagnostic.
package llm

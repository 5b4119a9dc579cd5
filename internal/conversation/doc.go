// Package conversation provides the session-scoped turn store and the prompt
// construction protocol that drives the tutoring behavior. It owns the append
// order of turns, the bounded transcript window included in each prompt, and
// the conversion of generation failures into diagnostic reply text.
package conversation

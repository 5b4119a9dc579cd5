// Package tts implements the speech synthesis adapter over the Google
// Translate TTS endpoint. Reply text is split into provider-sized chunks,
// the MP3 chunks concatenated, and one artifact written per session,
// overwriting the previous one. Provider failures degrade to an empty path.
package tts

// Package tts defines the Provider interface for text-to-speech backends.
//
// A TTS provider wraps a speech synthesis service (e.g. Rime) and returns the
// encoded audio as a stream so callers can write it to a file or an HTTP
// response without buffering it in memory.
//
// Implementations must be safe for concurrent use.
package tts

import (
	"context"
	"io"
)

// Provider is the abstraction over any TTS backend.
type Provider interface {
	// Synthesize converts text to speech. The caller must close the returned
	// reader. The voice, model, and audio format are fixed when the provider
	// is constructed.
	//
	// Returns an error if the request cannot be sent or the service rejects
	// it. Errors while reading the body surface from the reader.
	Synthesize(ctx context.Context, text string) (io.ReadCloser, error)

	// Format is the audio container produced by Synthesize, e.g. "mp3".
	Format() string
}

// Package mock provides a test double for the tts.Provider interface.
//
// Example:
//
//	p := &mock.Provider{Audio: []byte("ID3...")}
//	rc, _ := p.Synthesize(ctx, "You've made your agent talk!")
package mock

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/ltejedor/building-ai-agents/pkg/provider/tts"
)

// Provider is a mock implementation of tts.Provider.
type Provider struct {
	mu sync.Mutex

	// Audio is returned as the body of every Synthesize call.
	Audio []byte

	// SynthesizeErr, if non-nil, is returned by Synthesize.
	SynthesizeErr error

	// FormatResult is returned by Format. Defaults to "mp3".
	FormatResult string

	// Texts records the text of every Synthesize call.
	Texts []string
}

// Synthesize records text and returns Audio.
func (p *Provider) Synthesize(_ context.Context, text string) (io.ReadCloser, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Texts = append(p.Texts, text)
	if p.SynthesizeErr != nil {
		return nil, p.SynthesizeErr
	}
	return io.NopCloser(bytes.NewReader(p.Audio)), nil
}

// Format returns FormatResult or "mp3".
func (p *Provider) Format() string {
	if p.FormatResult == "" {
		return "mp3"
	}
	return p.FormatResult
}

var _ tts.Provider = (*Provider)(nil)

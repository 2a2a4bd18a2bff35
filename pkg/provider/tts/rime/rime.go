// Package rime provides a Rime-backed TTS provider using the Rime REST API.
// It implements the tts.Provider interface.
package rime

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ltejedor/building-ai-agents/pkg/provider/tts"
)

const (
	// DefaultEndpoint is the Rime synthesis endpoint.
	DefaultEndpoint = "https://users.rime.ai/v1/rime-tts"

	// DefaultSpeaker is one of the Arcana voices.
	DefaultSpeaker = "arcana:expressive"

	// DefaultModel is the Rime model id.
	DefaultModel = "arcana"

	// maxErrorBody bounds how much of an error response is quoted.
	maxErrorBody = 512
)

// Option is a functional option for configuring the Rime Provider.
type Option func(*Provider)

// WithSpeaker sets the voice, e.g. "arcana:expressive".
func WithSpeaker(speaker string) Option {
	return func(p *Provider) { p.speaker = speaker }
}

// WithModel sets the Rime model id.
func WithModel(model string) Option {
	return func(p *Provider) { p.model = model }
}

// WithEndpoint overrides the API endpoint, mainly for tests.
func WithEndpoint(url string) Option {
	return func(p *Provider) { p.endpoint = url }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) { p.httpClient = c }
}

// Provider implements tts.Provider backed by Rime.
type Provider struct {
	apiKey     string
	speaker    string
	model      string
	endpoint   string
	httpClient *http.Client
}

var _ tts.Provider = (*Provider)(nil)

// New creates a new Rime Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("rime: apiKey must not be empty")
	}
	p := &Provider{
		apiKey:     apiKey,
		speaker:    DefaultSpeaker,
		model:      DefaultModel,
		endpoint:   DefaultEndpoint,
		httpClient: &http.Client{},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

type synthRequest struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
	ModelID string `json:"modelId"`
}

// Format implements tts.Provider.
func (p *Provider) Format() string { return "mp3" }

// Synthesize implements tts.Provider. The returned body streams MP3 audio.
func (p *Provider) Synthesize(ctx context.Context, text string) (io.ReadCloser, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("rime: text must not be empty")
	}

	body, err := json.Marshal(synthRequest{Speaker: p.speaker, Text: text, ModelID: p.model})
	if err != nil {
		return nil, fmt.Errorf("rime: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("rime: synthesize: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Accept", "audio/mp3")
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rime: synthesize HTTP: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("rime: synthesize: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return resp.Body, nil
}

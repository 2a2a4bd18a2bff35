package main

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/ltejedor/building-ai-agents/internal/app"
	"github.com/ltejedor/building-ai-agents/internal/config"
	"github.com/ltejedor/building-ai-agents/internal/resilience"
	"github.com/ltejedor/building-ai-agents/pkg/provider/llm"
	"github.com/ltejedor/building-ai-agents/pkg/provider/llm/anyllm"
	"github.com/ltejedor/building-ai-agents/pkg/provider/llm/openai"
	"github.com/ltejedor/building-ai-agents/pkg/provider/tts"
	"github.com/ltejedor/building-ai-agents/pkg/provider/tts/rime"
)

// registerBuiltinProviders wires every provider that ships with agentkit
// into reg.
func registerBuiltinProviders(reg *config.Registry) {
	// ── LLM ───────────────────────────────────────────────────────────────────
	// any-llm-go backends share one pattern: optional APIKey (otherwise the
	// backend's usual environment variable) and optional BaseURL.
	for _, backend := range anyllm.SupportedBackends {
		reg.RegisterLLM(backend, func(entry config.ProviderEntry) (llm.Provider, error) {
			var opts []anyllmlib.Option
			if entry.APIKey != "" {
				opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
			}
			if entry.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
			}
			return anyllm.New(backend, entry.Model, opts...)
		})
	}

	// openai-compatible covers the Hugging Face router, vLLM and LM Studio.
	reg.RegisterLLM("openai-compatible", func(entry config.ProviderEntry) (llm.Provider, error) {
		baseURL := entry.BaseURL
		if baseURL == "" {
			baseURL = openai.HuggingFaceRouterURL
		}
		opts := []openai.Option{openai.WithBaseURL(baseURL)}
		if org := optString(entry.Options, "organization"); org != "" {
			opts = append(opts, openai.WithOrganization(org))
		}
		if t := optString(entry.Options, "timeout"); t != "" {
			d, err := time.ParseDuration(t)
			if err != nil {
				return nil, fmt.Errorf("openai-compatible: options.timeout: %w", err)
			}
			opts = append(opts, openai.WithTimeout(d))
		}
		return openai.New(entry.APIKey, entry.Model, opts...)
	})

	// ── TTS ───────────────────────────────────────────────────────────────────

	reg.RegisterTTS("rime", func(entry config.ProviderEntry) (tts.Provider, error) {
		var opts []rime.Option
		if entry.Model != "" {
			opts = append(opts, rime.WithModel(entry.Model))
		}
		if entry.BaseURL != "" {
			opts = append(opts, rime.WithEndpoint(entry.BaseURL))
		}
		if speaker := optString(entry.Options, "speaker"); speaker != "" {
			opts = append(opts, rime.WithSpeaker(speaker))
		}
		return rime.New(entry.APIKey, opts...)
	})

	slog.Debug("registered providers", "llm", reg.LLMNames())
}

// buildProviders instantiates the providers named in cfg. LLM fallbacks, if
// any, are combined with the primary behind circuit breakers.
func buildProviders(cfg *config.Config, reg *config.Registry) (*app.Providers, error) {
	ps := &app.Providers{}

	if entry := cfg.Providers.LLM; entry.Name != "" {
		primary, err := reg.CreateLLM(entry)
		if err != nil {
			return nil, fmt.Errorf("create llm provider %q: %w", entry.Name, err)
		}
		ps.LLM = primary
		slog.Debug("provider created", "kind", "llm", "name", entry.Name, "model", entry.Model)

		if len(cfg.Providers.LLMFallbacks) > 0 {
			fb := resilience.NewLLMFallback(primary, providerLabel(entry), resilience.FallbackConfig{})
			for _, fe := range cfg.Providers.LLMFallbacks {
				p, err := reg.CreateLLM(fe)
				if err != nil {
					return nil, fmt.Errorf("create llm fallback %q: %w", fe.Name, err)
				}
				fb.AddFallback(providerLabel(fe), p)
			}
			ps.LLM = fb
			slog.Debug("llm failover enabled", "order", fb.Names())
		}
	}

	if entry := cfg.Providers.TTS; entry.Name != "" {
		p, err := reg.CreateTTS(entry)
		if errors.Is(err, config.ErrProviderNotRegistered) {
			return nil, fmt.Errorf("create tts provider: %w", err)
		} else if err != nil {
			// Speech is optional for everything but `speak`.
			slog.Warn("tts provider unavailable", "name", entry.Name, "err", err)
		} else {
			ps.TTS = p
			slog.Debug("provider created", "kind", "tts", "name", entry.Name)
		}
	}

	return ps, nil
}

func providerLabel(e config.ProviderEntry) string {
	if e.Model == "" {
		return e.Name
	}
	return e.Name + "/" + e.Model
}

// optString returns opts[key] if it is a string.
func optString(opts map[string]any, key string) string {
	if v, ok := opts[key].(string); ok {
		return v
	}
	return ""
}

package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/MrWong99/debatescribe/internal/config"
	"github.com/MrWong99/debatescribe/internal/observe"
	"github.com/MrWong99/debatescribe/internal/resilience"
	"github.com/MrWong99/debatescribe/pkg/provider/llm"
	"github.com/MrWong99/debatescribe/pkg/provider/llm/anyllm"
	oaillm "github.com/MrWong99/debatescribe/pkg/provider/llm/openai"
	"github.com/MrWong99/debatescribe/pkg/provider/stt"
	"github.com/MrWong99/debatescribe/pkg/provider/stt/deepgram"
	oaistt "github.com/MrWong99/debatescribe/pkg/provider/stt/openai"
	"github.com/MrWong99/debatescribe/pkg/provider/stt/whisper"
)

// Providers holds the model backends. A nil field means the slot is not
// configured. When fallbacks are configured the field is a failover group.
type Providers struct {
	LLM llm.Provider
	STT stt.Provider
}

// RegisterBuiltinProviders wires all built-in provider factories into reg.
func RegisterBuiltinProviders(reg *config.Registry) {
	// ── LLM ───────────────────────────────────────────────────────────────────
	reg.RegisterLLM("openai", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []oaillm.Option
		if entry.BaseURL != "" {
			opts = append(opts, oaillm.WithBaseURL(entry.BaseURL))
		}
		if org := optString(entry.Options, "organization"); org != "" {
			opts = append(opts, oaillm.WithOrganization(org))
		}
		return oaillm.New(entry.APIKey, entry.Model, opts...)
	})

	// The rest share one pattern: optional APIKey + optional BaseURL.
	for _, providerName := range []string{
		"anthropic", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile", "ollama",
	} {
		reg.RegisterLLM(providerName, func(entry config.ProviderEntry) (llm.Provider, error) {
			var opts []anyllmlib.Option
			if entry.APIKey != "" {
				opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
			}
			if entry.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
			}
			return anyllm.New(providerName, entry.Model, opts...)
		})
	}

	// ── STT ───────────────────────────────────────────────────────────────────
	reg.RegisterSTT("openai", func(entry config.ProviderEntry) (stt.Provider, error) {
		var opts []oaistt.Option
		if entry.Model != "" {
			opts = append(opts, oaistt.WithModel(entry.Model))
		}
		if entry.BaseURL != "" {
			opts = append(opts, oaistt.WithBaseURL(entry.BaseURL))
		}
		return oaistt.New(entry.APIKey, opts...)
	})

	reg.RegisterSTT("deepgram", func(entry config.ProviderEntry) (stt.Provider, error) {
		var opts []deepgram.Option
		if entry.Model != "" {
			opts = append(opts, deepgram.WithModel(entry.Model))
		}
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, deepgram.WithLanguage(lang))
		}
		if entry.BaseURL != "" {
			opts = append(opts, deepgram.WithEndpoint(entry.BaseURL))
		}
		return deepgram.New(entry.APIKey, opts...)
	})

	reg.RegisterSTT("whisper", func(entry config.ProviderEntry) (stt.Provider, error) {
		var opts []whisper.Option
		if entry.Model != "" {
			opts = append(opts, whisper.WithModel(entry.Model))
		}
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, whisper.WithLanguage(lang))
		}
		return whisper.New(entry.BaseURL, opts...)
	})

	slog.Debug("registered providers", "llm", reg.Names("llm"), "stt", reg.Names("stt"))
}

// BuildProviders instantiates the providers named in cfg. Each slot is
// wrapped in a circuit-breaking failover group whose attempts and breaker
// transitions are recorded in m.
func BuildProviders(cfg *config.Config, reg *config.Registry, m *observe.Metrics) (*Providers, error) {
	ps := &Providers{}

	if cfg.Providers.LLM.Name != "" {
		entries := append([]config.ProviderEntry{cfg.Providers.LLM}, cfg.Providers.LLMFallbacks...)
		var group *resilience.LLMFallback
		for i, entry := range entries {
			p, err := reg.CreateLLM(entry)
			if err != nil {
				return nil, fmt.Errorf("create llm provider %q: %w", entry.Name, err)
			}
			name := entryName(entry, i)
			if group == nil {
				group = resilience.NewLLMFallback(p, name, fallbackConfig("llm", m))
			} else {
				group.AddFallback(name, p)
			}
			slog.Info("provider created", "kind", "llm", "name", name, "model", entry.Model)
		}
		ps.LLM = group
	}

	if cfg.Providers.STT.Name != "" {
		entries := append([]config.ProviderEntry{cfg.Providers.STT}, cfg.Providers.STTFallbacks...)
		var group *resilience.STTFallback
		for i, entry := range entries {
			p, err := reg.CreateSTT(entry)
			if err != nil {
				return nil, fmt.Errorf("create stt provider %q: %w", entry.Name, err)
			}
			name := entryName(entry, i)
			if group == nil {
				group = resilience.NewSTTFallback(p, name, fallbackConfig("stt", m))
			} else {
				group.AddFallback(name, p)
			}
			slog.Info("provider created", "kind", "stt", "name", name, "model", entry.Model)
		}
		ps.STT = group
	}

	return ps, nil
}

// entryName labels the i-th entry of a group; the index keeps two entries of
// the same backend apart.
func entryName(e config.ProviderEntry, i int) string {
	if i == 0 {
		return e.Name
	}
	return fmt.Sprintf("%s#%d", e.Name, i)
}

func fallbackConfig(kind string, m *observe.Metrics) resilience.FallbackConfig {
	return resilience.FallbackConfig{
		CircuitBreaker: resilience.CircuitBreakerConfig{
			OnStateChange: func(name string, from, to resilience.State) {
				slog.Warn("circuit breaker state change", "kind", kind, "provider", name, "from", from, "to", to)
				m.RecordBreakerTransition(context.Background(), kind+"/"+name, to.String())
			},
		},
		OnAttempt: func(ctx context.Context, name string, err error) {
			status := "ok"
			if err != nil {
				status = "error"
				if !errors.Is(err, context.Canceled) {
					m.RecordProviderError(ctx, name, kind)
				}
			}
			m.RecordProviderRequest(ctx, name, kind, status)
		},
	}
}

// optString extracts a string value from a provider Options map.
// Returns "" if the map is nil, the key is absent, or the value is not a string.
func optString(opts map[string]any, key string) string {
	if opts == nil {
		return ""
	}
	v, ok := opts[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"llm": {"openai", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile"},
	"stt": {"openai", "deepgram", "whisper"},
}

// envRef matches ${NAME}. Bare $NAME is left alone so DSNs and keys that
// contain a dollar sign survive.
var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, expands ${ENV} references in
// its string values, applies defaults and validates the result. Unknown keys
// are rejected.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	expandEnvFields(cfg)
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ExpandEnv replaces every ${NAME} in s with the value of the environment
// variable NAME. Unset variables expand to the empty string.
func ExpandEnv(s string) string {
	return envRef.ReplaceAllStringFunc(s, func(m string) string {
		return os.Getenv(m[2 : len(m)-1])
	})
}

// expandEnvFields runs [ExpandEnv] over the decoded string settings. Values
// are substituted after parsing, so secrets are never read as YAML.
func expandEnvFields(cfg *Config) {
	for _, s := range []*string{
		&cfg.Server.ListenAddr,
		&cfg.Platforms.YouTube.APIKey,
		&cfg.Platforms.SoundCloud.ClientID,
		&cfg.Platforms.Discord.BotToken,
		&cfg.Transcription.Language,
		&cfg.Fetch.UserAgent,
		&cfg.Store.PostgresDSN,
	} {
		*s = ExpandEnv(*s)
	}

	expandEntry(&cfg.Providers.LLM)
	expandEntry(&cfg.Providers.STT)
	for i := range cfg.Providers.LLMFallbacks {
		expandEntry(&cfg.Providers.LLMFallbacks[i])
	}
	for i := range cfg.Providers.STTFallbacks {
		expandEntry(&cfg.Providers.STTFallbacks[i])
	}
}

func expandEntry(e *ProviderEntry) {
	e.Name = ExpandEnv(e.Name)
	e.APIKey = ExpandEnv(e.APIKey)
	e.BaseURL = ExpandEnv(e.BaseURL)
	e.Model = ExpandEnv(e.Model)
	for k, v := range e.Options {
		if s, ok := v.(string); ok {
			e.Options[k] = ExpandEnv(s)
		}
	}
}

// ApplyDefaults fills zero values that have a sensible default. Timeouts and
// fetch limits stay zero here; their consumers own those defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":8080"
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	if cfg.Server.LogFormat == "" {
		cfg.Server.LogFormat = LogFormatText
	}
	if cfg.Transcription.Language == "" {
		cfg.Transcription.Language = "en"
	}
	if cfg.Verification.Reconciler == "" {
		if cfg.Providers.LLM.Name != "" {
			cfg.Verification.Reconciler = ReconcilerLLM
		} else {
			cfg.Verification.Reconciler = ReconcilerAlign
		}
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found and logs
// warnings for setups that work but with reduced coverage.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.LogFormat != "" && !cfg.Server.LogFormat.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_format %q is invalid; valid values: text, json", cfg.Server.LogFormat))
	}

	// Providers
	validateProviderName("llm", cfg.Providers.LLM.Name)
	validateProviderName("stt", cfg.Providers.STT.Name)
	for i, e := range cfg.Providers.LLMFallbacks {
		if e.Name == "" {
			errs = append(errs, fmt.Errorf("providers.llm_fallbacks[%d].name is required", i))
		}
		validateProviderName("llm", e.Name)
	}
	for i, e := range cfg.Providers.STTFallbacks {
		if e.Name == "" {
			errs = append(errs, fmt.Errorf("providers.stt_fallbacks[%d].name is required", i))
		}
		validateProviderName("stt", e.Name)
	}
	if len(cfg.Providers.LLMFallbacks) > 0 && cfg.Providers.LLM.Name == "" {
		errs = append(errs, errors.New("providers.llm_fallbacks requires providers.llm"))
	}
	if len(cfg.Providers.STTFallbacks) > 0 && cfg.Providers.STT.Name == "" {
		errs = append(errs, errors.New("providers.stt_fallbacks requires providers.stt"))
	}
	if cfg.Providers.STT.Name == "" {
		slog.Warn("providers.stt is not configured; only caption-based acquisition will work")
	}

	// Platforms
	if cfg.Platforms.YouTube.RequestsPerSecond < 0 {
		errs = append(errs, fmt.Errorf("platforms.youtube.requests_per_second %.2f must not be negative", cfg.Platforms.YouTube.RequestsPerSecond))
	}
	if cfg.Platforms.SoundCloud.ClientID == "" {
		slog.Warn("platforms.soundcloud.client_id is empty; audio-platform sources will be unavailable")
	}
	if cfg.Platforms.Discord.BotToken == "" {
		slog.Warn("platforms.discord.bot_token is empty; message attachments will be unavailable")
	}

	// Verification
	if cfg.Verification.Reconciler != "" && !cfg.Verification.Reconciler.IsValid() {
		errs = append(errs, fmt.Errorf("verification.reconciler %q is invalid; valid values: llm, align", cfg.Verification.Reconciler))
	}
	if cfg.Verification.IsEnabled() && cfg.Verification.Reconciler == ReconcilerLLM && cfg.Providers.LLM.Name == "" {
		errs = append(errs, errors.New("verification.reconciler \"llm\" requires providers.llm"))
	}
	if cfg.Verification.MaxExcerptChars < 0 {
		errs = append(errs, fmt.Errorf("verification.max_excerpt_chars %d must not be negative", cfg.Verification.MaxExcerptChars))
	}

	// Timeouts
	for _, t := range []struct {
		name string
		d    time.Duration
	}{
		{"metadata", cfg.Timeouts.Metadata},
		{"audio_fetch", cfg.Timeouts.AudioFetch},
		{"transcription", cfg.Timeouts.Transcription},
		{"reconciliation", cfg.Timeouts.Reconciliation},
	} {
		if t.d < 0 {
			errs = append(errs, fmt.Errorf("timeouts.%s %s must not be negative", t.name, t.d))
		}
	}

	if cfg.Fetch.MaxMediaBytes < 0 {
		errs = append(errs, fmt.Errorf("fetch.max_media_bytes %d must not be negative", cfg.Fetch.MaxMediaBytes))
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name, may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}

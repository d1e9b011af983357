package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/MrWong99/debatescribe/internal/config"
)

const fullYAML = `
server:
  listen_addr: ":9090"
  log_level: debug
  log_format: json
providers:
  llm:
    name: openai
    api_key: ${DEBATESCRIBE_TEST_LLM_KEY}
    model: gpt-4o-mini
  llm_fallbacks:
    - name: anthropic
      model: claude-3-5-haiku-latest
  stt:
    name: deepgram
    api_key: "literal$key"
platforms:
  youtube:
    api_key: yt
    requests_per_second: 2
  soundcloud:
    client_id: sc
  discord:
    bot_token: dc
transcription:
  language: de
verification:
  enabled: true
  reconciler: align
  max_excerpt_chars: 1000
timeouts:
  metadata: 5s
  transcription: 2m
fetch:
  user_agent: test-agent
  max_media_bytes: 1048576
store:
  postgres_dsn: postgres://localhost/debates
`

func TestLoadFromReader_Full(t *testing.T) {
	t.Setenv("DEBATESCRIBE_TEST_LLM_KEY", "sk-from-env")

	cfg, err := config.LoadFromReader(strings.NewReader(fullYAML))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Server.ListenAddr != ":9090" || cfg.Server.LogLevel != config.LogDebug || cfg.Server.LogFormat != config.LogFormatJSON {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Providers.LLM.APIKey != "sk-from-env" {
		t.Errorf("llm api_key = %q, want expanded env value", cfg.Providers.LLM.APIKey)
	}
	if cfg.Providers.STT.APIKey != "literal$key" {
		t.Errorf("stt api_key = %q, bare $ must be kept", cfg.Providers.STT.APIKey)
	}
	if len(cfg.Providers.LLMFallbacks) != 1 || cfg.Providers.LLMFallbacks[0].Name != "anthropic" {
		t.Errorf("llm_fallbacks = %+v", cfg.Providers.LLMFallbacks)
	}
	if cfg.Platforms.YouTube.RequestsPerSecond != 2 {
		t.Errorf("youtube rps = %v", cfg.Platforms.YouTube.RequestsPerSecond)
	}
	if cfg.Transcription.Language != "de" {
		t.Errorf("language = %q", cfg.Transcription.Language)
	}
	if !cfg.Verification.IsEnabled() || cfg.Verification.Reconciler != config.ReconcilerAlign {
		t.Errorf("verification = %+v", cfg.Verification)
	}
	if cfg.Timeouts.Metadata != 5*time.Second || cfg.Timeouts.Transcription != 2*time.Minute || cfg.Timeouts.AudioFetch != 0 {
		t.Errorf("timeouts = %+v", cfg.Timeouts)
	}
	if cfg.Fetch.MaxMediaBytes != 1<<20 {
		t.Errorf("max_media_bytes = %d", cfg.Fetch.MaxMediaBytes)
	}
	if cfg.Store.PostgresDSN != "postgres://localhost/debates" {
		t.Errorf("postgres_dsn = %q", cfg.Store.PostgresDSN)
	}
}

func TestLoadFromReader_Defaults(t *testing.T) {
	tests := []struct {
		name           string
		yaml           string
		wantReconciler config.Reconciler
	}{
		{"empty document", "", config.ReconcilerAlign},
		{"llm configured", "providers:\n  llm:\n    name: openai\n", config.ReconcilerLLM},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := config.LoadFromReader(strings.NewReader(tt.yaml))
			if err != nil {
				t.Fatalf("LoadFromReader: %v", err)
			}
			if cfg.Server.ListenAddr != ":8080" || cfg.Server.LogLevel != config.LogInfo || cfg.Server.LogFormat != config.LogFormatText {
				t.Errorf("server defaults = %+v", cfg.Server)
			}
			if cfg.Transcription.Language != "en" {
				t.Errorf("language = %q, want en", cfg.Transcription.Language)
			}
			if !cfg.Verification.IsEnabled() {
				t.Error("verification should default to enabled")
			}
			if cfg.Verification.Reconciler != tt.wantReconciler {
				t.Errorf("reconciler = %q, want %q", cfg.Verification.Reconciler, tt.wantReconciler)
			}
		})
	}
}

func TestLoadFromReader_VerificationDisabled(t *testing.T) {
	cfg, err := config.LoadFromReader(strings.NewReader("verification:\n  enabled: false\n  reconciler: llm\n"))
	if err != nil {
		t.Fatalf("disabled llm verification needs no provider: %v", err)
	}
	if cfg.Verification.IsEnabled() {
		t.Error("IsEnabled() = true, want false")
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantMsg []string
	}{
		{
			name:    "unknown key",
			yaml:    "server:\n  listen: x\n",
			wantMsg: []string{"field listen not found"},
		},
		{
			name:    "bad enums",
			yaml:    "server:\n  log_level: loud\n  log_format: xml\nverification:\n  reconciler: vote\n",
			wantMsg: []string{"server.log_level", "server.log_format", "verification.reconciler"},
		},
		{
			name:    "llm reconciler without provider",
			yaml:    "verification:\n  reconciler: llm\n",
			wantMsg: []string{"requires providers.llm"},
		},
		{
			name:    "fallbacks without primary",
			yaml:    "providers:\n  stt_fallbacks:\n    - name: whisper\n    - {}\n",
			wantMsg: []string{"providers.stt_fallbacks requires providers.stt", "stt_fallbacks[1].name is required"},
		},
		{
			name:    "negative values",
			yaml:    "timeouts:\n  audio_fetch: -1s\nfetch:\n  max_media_bytes: -1\nplatforms:\n  youtube:\n    requests_per_second: -3\n",
			wantMsg: []string{"timeouts.audio_fetch", "fetch.max_media_bytes", "requests_per_second"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.LoadFromReader(strings.NewReader(tt.yaml))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			for _, msg := range tt.wantMsg {
				if !strings.Contains(err.Error(), msg) {
					t.Errorf("error %q should mention %q", err, msg)
				}
			}
		})
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("transcription:\n  language: fr\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Transcription.Language != "fr" {
		t.Errorf("language = %q", cfg.Transcription.Language)
	}

	if _, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoad_ExampleConfig(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("DEBATESCRIBE_POSTGRES_DSN", "")

	cfg, err := config.Load(filepath.Join("..", "..", "configs", "example.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Providers.LLM.APIKey != "sk-test" {
		t.Errorf("llm api_key = %q, want expanded value", cfg.Providers.LLM.APIKey)
	}
	if len(cfg.Providers.STTFallbacks) != 1 || cfg.Providers.STTFallbacks[0].Name != "deepgram" {
		t.Errorf("stt fallbacks = %+v", cfg.Providers.STTFallbacks)
	}
	if cfg.Timeouts.Transcription != 120*time.Second {
		t.Errorf("transcription timeout = %v", cfg.Timeouts.Transcription)
	}
	if cfg.Store.PostgresDSN != "" {
		t.Errorf("postgres dsn = %q, want empty", cfg.Store.PostgresDSN)
	}
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("DEBATESCRIBE_TEST_A", "alpha")
	got := config.ExpandEnv("${DEBATESCRIBE_TEST_A}-$DEBATESCRIBE_TEST_A-${DEBATESCRIBE_TEST_UNSET}")
	if got != "alpha-$DEBATESCRIBE_TEST_A-" {
		t.Errorf("ExpandEnv = %q", got)
	}
}

func TestLoadFromReader_EnvValuesAreNotParsedAsYAML(t *testing.T) {
	t.Setenv("DEBATESCRIBE_TEST_DSN", "postgres://u:p #w@h/db")
	t.Setenv("DEBATESCRIBE_TEST_KEY", "@abc")
	t.Setenv("DEBATESCRIBE_TEST_TOKEN", "*tok: en")
	t.Setenv("DEBATESCRIBE_TEST_TEMP", "!raw")

	cfg, err := config.LoadFromReader(strings.NewReader(`
providers:
  stt:
    name: openai
    api_key: ${DEBATESCRIBE_TEST_KEY}
    options:
      prompt: ${DEBATESCRIBE_TEST_TEMP}
platforms:
  discord:
    bot_token: ${DEBATESCRIBE_TEST_TOKEN}
store:
  postgres_dsn: ${DEBATESCRIBE_TEST_DSN}
`))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if got := cfg.Store.PostgresDSN; got != "postgres://u:p #w@h/db" {
		t.Errorf("postgres_dsn = %q", got)
	}
	if got := cfg.Providers.STT.APIKey; got != "@abc" {
		t.Errorf("api_key = %q", got)
	}
	if got := cfg.Platforms.Discord.BotToken; got != "*tok: en" {
		t.Errorf("bot_token = %q", got)
	}
	if got := cfg.Providers.STT.Options["prompt"]; got != "!raw" {
		t.Errorf("options.prompt = %v", got)
	}
}

func TestLogLevel_IsValid(t *testing.T) {
	for _, l := range []config.LogLevel{config.LogDebug, config.LogInfo, config.LogWarn, config.LogError} {
		if !l.IsValid() {
			t.Errorf("%q should be valid", l)
		}
	}
	if config.LogLevel("trace").IsValid() {
		t.Error("trace should be invalid")
	}
}

// Command debatescribe acquires, cross-verifies and stores debate transcripts.
//
// One-shot mode prints the stored record as JSON:
//
//	debatescribe -config config.yaml -debate d-42 -url https://www.youtube.com/watch?v=abc
//
// -serve exposes the MCP tool over streamable HTTP next to the health and
// metrics endpoints; -stdio serves MCP over stdin/stdout.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrWong99/debatescribe/internal/acquire"
	"github.com/MrWong99/debatescribe/internal/app"
	"github.com/MrWong99/debatescribe/internal/config"
	"github.com/MrWong99/debatescribe/internal/mcpserver"
	"github.com/MrWong99/debatescribe/internal/observe"
	"github.com/MrWong99/debatescribe/internal/source"
)

var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	debateID := flag.String("debate", "", "debate identifier (one-shot mode)")
	sourceURL := flag.String("url", "", "source URL to transcribe (one-shot mode)")
	platformHint := flag.String("platform", "", "optional platform hint (video, audio, short_form, microblog, podcast, messaging, direct_media)")
	serve := flag.Bool("serve", false, "run the HTTP server (MCP, health, metrics)")
	stdio := flag.Bool("stdio", false, "serve MCP over stdin/stdout")
	showVersion := flag.Bool("version", false, "print the version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("debatescribe", version)
		return 0
	}

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "debatescribe: config file %q not found\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "debatescribe: %v\n", err)
		}
		return 1
	}

	var hint *source.Platform
	if *platformHint != "" {
		p, err := source.ParsePlatform(*platformHint)
		if err != nil {
			fmt.Fprintf(os.Stderr, "debatescribe: %v\n", err)
			return 2
		}
		hint = &p
	}
	oneShot := *sourceURL != "" || *debateID != ""
	if modes := btoi(oneShot) + btoi(*serve) + btoi(*stdio); modes != 1 {
		fmt.Fprintln(os.Stderr, "debatescribe: choose exactly one of -url/-debate, -serve or -stdio")
		flag.Usage()
		return 2
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	// Always stderr: stdout carries the JSON record or the stdio MCP stream.
	var level slog.LevelVar
	level.Set(slogLevel(cfg.Server.LogLevel))
	slog.SetDefault(newLogger(os.Stderr, cfg.Server.LogFormat, &level))

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Observability ─────────────────────────────────────────────────────────
	shutdownOTel, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceVersion: version})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Providers ─────────────────────────────────────────────────────────────
	reg := config.NewRegistry()
	app.RegisterBuiltinProviders(reg)
	providers, err := app.BuildProviders(cfg, reg, observe.DefaultMetrics())
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	application, err := app.New(ctx, cfg, providers, app.WithVersion(version))
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := application.Shutdown(sctx); err != nil {
			slog.Error("shutdown error", "err", err)
		}
	}()

	switch {
	case oneShot:
		return runOnce(ctx, application, *debateID, *sourceURL, hint, os.Stdout)
	case *stdio:
		slog.Info("serving MCP over stdio", "version", version)
		if err := mcpserver.ServeStdio(ctx, application.MCPServer()); err != nil {
			slog.Error("stdio server error", "err", err)
			return 1
		}
		return 0
	default:
		printStartupSummary(os.Stderr, cfg)
		return runServer(ctx, application, cfg, *configPath, &level)
	}
}

// runOnce acquires one transcript and writes the record to w. A record that
// was produced but not stored is still written, and the exit code is 1.
func runOnce(ctx context.Context, a *app.App, debateID, sourceURL string, hint *source.Platform, w io.Writer) int {
	rec, err := a.Service().AcquireTranscript(ctx, debateID, sourceURL, hint)
	var perr *acquire.PersistenceError
	if err != nil && !errors.As(err, &perr) {
		slog.Error("acquisition failed", "err", err)
		if errors.Is(err, acquire.ErrInvalidRequest) {
			return 2
		}
		return 1
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if encErr := enc.Encode(rec); encErr != nil {
		slog.Error("write record", "err", encErr)
		return 1
	}
	if perr != nil {
		slog.Error("transcript was not stored", "err", perr)
		return 1
	}
	return 0
}

func runServer(ctx context.Context, a *app.App, cfg *config.Config, configPath string, level *slog.LevelVar) int {
	srv := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	watcher, err := config.NewWatcher(configPath, func(old, updated *config.Config) {
		d := config.Diff(old, updated)
		if d.LogLevelChanged {
			level.Set(slogLevel(d.NewLogLevel))
			slog.Info("log level changed", "level", d.NewLogLevel)
		}
		if len(d.RestartRequired) > 0 {
			slog.Warn("config changes take effect after restart", "sections", d.RestartRequired)
		}
	})
	if err != nil {
		slog.Warn("config hot reload disabled", "err", err)
	} else {
		go watcher.Run(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			slog.Error("http server error", "err", err)
			return 1
		}
	case <-ctx.Done():
	}

	slog.Info("shutdown signal received, stopping…")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(w io.Writer, cfg *config.Config) {
	fmt.Fprintln(w, "╔═══════════════════════════════════════╗")
	fmt.Fprintln(w, "║      debatescribe — startup summary   ║")
	fmt.Fprintln(w, "╠═══════════════════════════════════════╣")
	printRow(w, "LLM", providerLabel(cfg.Providers.LLM, len(cfg.Providers.LLMFallbacks)))
	printRow(w, "STT", providerLabel(cfg.Providers.STT, len(cfg.Providers.STTFallbacks)))
	verification := "(disabled)"
	if cfg.Verification.IsEnabled() {
		verification = string(cfg.Verification.Reconciler)
	}
	printRow(w, "Verification", verification)
	printRow(w, "YouTube key", setOrNot(cfg.Platforms.YouTube.APIKey))
	printRow(w, "SoundCloud", setOrNot(cfg.Platforms.SoundCloud.ClientID))
	printRow(w, "Discord", setOrNot(cfg.Platforms.Discord.BotToken))
	store := "memory"
	if cfg.Store.PostgresDSN != "" {
		store = "postgres"
	}
	printRow(w, "Store", store)
	printRow(w, "Listen addr", cfg.Server.ListenAddr)
	fmt.Fprintln(w, "╚═══════════════════════════════════════╝")
}

func providerLabel(e config.ProviderEntry, fallbacks int) string {
	if e.Name == "" {
		return "(not configured)"
	}
	label := e.Name
	if e.Model != "" {
		label += " / " + e.Model
	}
	if fallbacks > 0 {
		label += fmt.Sprintf(" +%d", fallbacks)
	}
	return label
}

func setOrNot(v string) string {
	if v == "" {
		return "(not set)"
	}
	return "configured"
}

func printRow(w io.Writer, key, value string) {
	if r := []rune(value); len(r) > 19 {
		value = string(r[:18]) + "…"
	}
	fmt.Fprintf(w, "║  %-13s  : %-19s ║\n", key, value)
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(w io.Writer, format config.LogFormat, level slog.Leveler) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == config.LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func btoi(b bool) int {
	if b {
		return 1
	}
	return 0
}

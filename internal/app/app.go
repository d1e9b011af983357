// Package app wires debatescribe's components into a running application.
//
// New builds the fetch clients, platform strategies, dispatcher, fallback,
// secondary fetcher, verifier and transcript store from a [config.Config] and
// exposes the resulting [acquire.Service] directly, over MCP, and behind the
// health and metrics endpoints. Shutdown releases everything New opened.
//
// For testing, inject doubles via functional options (WithStore, WithMetrics,
// WithFetchClient).
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MrWong99/debatescribe/internal/acquire"
	"github.com/MrWong99/debatescribe/internal/config"
	"github.com/MrWong99/debatescribe/internal/fetch"
	"github.com/MrWong99/debatescribe/internal/health"
	"github.com/MrWong99/debatescribe/internal/mcpserver"
	"github.com/MrWong99/debatescribe/internal/media"
	"github.com/MrWong99/debatescribe/internal/observe"
	"github.com/MrWong99/debatescribe/internal/platform/discord"
	"github.com/MrWong99/debatescribe/internal/platform/microblog"
	"github.com/MrWong99/debatescribe/internal/platform/pagemedia"
	"github.com/MrWong99/debatescribe/internal/platform/podcast"
	"github.com/MrWong99/debatescribe/internal/platform/soundcloud"
	"github.com/MrWong99/debatescribe/internal/platform/youtube"
	"github.com/MrWong99/debatescribe/internal/source"
	"github.com/MrWong99/debatescribe/internal/store"
	"github.com/MrWong99/debatescribe/internal/store/postgres"
	"github.com/MrWong99/debatescribe/internal/transcript"
	"github.com/MrWong99/debatescribe/internal/transcript/align"
	"github.com/MrWong99/debatescribe/internal/transcript/llmmerge"
)

// App owns all component lifetimes.
type App struct {
	cfg       *config.Config
	providers *Providers
	version   string

	metrics  *observe.Metrics
	fetch    *fetch.Client
	store    store.Store
	checkers []health.Checker
	service  *acquire.Service
	mcp      *mcp.Server

	// closers are called in order during Shutdown.
	closers  []func() error
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithStore injects a transcript store instead of creating one from config.
func WithStore(s store.Store) Option {
	return func(a *App) { a.store = s }
}

// WithMetrics overrides [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithFetchClient injects the HTTP client every strategy uses. The YouTube
// rate limit is not applied to an injected client.
func WithFetchClient(fc *fetch.Client) Option {
	return func(a *App) { a.fetch = fc }
}

// WithVersion sets the version reported by the MCP server.
func WithVersion(v string) Option {
	return func(a *App) { a.version = v }
}

// New creates and wires all components. providers may have nil slots; the
// strategies that need a missing slot report themselves unavailable.
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	if providers == nil {
		providers = &Providers{}
	}
	a := &App{cfg: cfg, providers: providers, version: "dev"}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}

	if err := a.initStore(ctx); err != nil {
		return nil, fmt.Errorf("app: init store: %w", err)
	}
	if err := a.initService(); err != nil {
		return nil, fmt.Errorf("app: init service: %w", err)
	}
	a.mcp = mcpserver.NewServer(a.service, a.version)
	return a, nil
}

func (a *App) initStore(ctx context.Context) error {
	if a.store != nil {
		if p, ok := a.store.(health.Pinger); ok {
			a.checkers = append(a.checkers, health.PingCheck("store", p))
		}
		return nil
	}

	dsn := a.cfg.Store.PostgresDSN
	if dsn == "" {
		slog.Warn("store.postgres_dsn is empty; transcripts are kept in memory only")
		mem := store.NewMemory()
		a.store = mem
		a.checkers = append(a.checkers, health.PingCheck("store", mem))
		return nil
	}

	pg, err := postgres.NewStore(ctx, dsn)
	if err != nil {
		return err
	}
	a.store = pg
	a.checkers = append(a.checkers, health.PingCheck("store", pg))
	a.closers = append(a.closers, func() error {
		pg.Close()
		return nil
	})
	return nil
}

func (a *App) timeouts() acquire.Timeouts {
	t := a.cfg.Timeouts
	return acquire.Timeouts{
		Metadata:       t.Metadata,
		AudioFetch:     t.AudioFetch,
		Transcription:  t.Transcription,
		Reconciliation: t.Reconciliation,
	}.WithDefaults()
}

func (a *App) fetchOptions() []fetch.Option {
	opts := []fetch.Option{fetch.WithMetrics(a.metrics)}
	if ua := a.cfg.Fetch.UserAgent; ua != "" {
		opts = append(opts, fetch.WithUserAgent(ua))
	}
	if n := a.cfg.Fetch.MaxMediaBytes; n > 0 {
		opts = append(opts, fetch.WithMaxBytes(n))
	}
	return opts
}

func (a *App) initService() error {
	timeouts := a.timeouts()
	language := a.cfg.Transcription.Language

	fc, ytFetch := a.fetch, a.fetch
	if fc == nil {
		fc = fetch.New(a.fetchOptions()...)
		ytFetch = fc
		if rps := a.cfg.Platforms.YouTube.RequestsPerSecond; rps > 0 {
			ytFetch = fetch.New(append(a.fetchOptions(), fetch.WithRateLimit(rps, max(1, int(rps))))...)
		}
	}

	generic := media.New(fc, a.providers.STT,
		media.WithLanguage(language),
		media.WithTimeouts(timeouts),
		media.WithMetrics(a.metrics),
	)

	ytOpts := []youtube.Option{youtube.WithLanguage(language)}
	if key := a.cfg.Platforms.YouTube.APIKey; key != "" {
		ytOpts = append(ytOpts, youtube.WithAPIKey(key))
	}
	yt := youtube.New(ytFetch, ytOpts...)
	pod := podcast.New(fc, generic)
	dc, err := discord.New(a.cfg.Platforms.Discord.BotToken, generic)
	if err != nil {
		return err
	}

	dispatcher, err := acquire.NewDispatcher(map[source.Platform]acquire.Strategy{
		source.VideoPlatform:     yt,
		source.AudioPlatform:     soundcloud.New(fc, generic, a.cfg.Platforms.SoundCloud.ClientID),
		source.ShortFormPlatform: pagemedia.New(fc, generic),
		source.MicroblogPlatform: microblog.New(fc, generic),
		source.PodcastPlatform:   pod,
		source.MessagingPlatform: dc,
		source.DirectMedia:       generic,
		source.Unknown:           acquire.UnsupportedStrategy,
	}, timeouts, acquire.WithDispatcherMetrics(a.metrics))
	if err != nil {
		return err
	}

	secondary := acquire.NewSecondaryFetcher(map[source.Platform]acquire.SecondarySource{
		source.VideoPlatform:   yt,
		source.PodcastPlatform: pod,
	}, timeouts, a.metrics)

	a.service, err = acquire.NewService(acquire.ServiceConfig{
		Dispatcher: dispatcher,
		Fallback:   acquire.NewFallback(generic, timeouts, a.metrics),
		Secondary:  secondary,
		Verifier:   a.buildVerifier(timeouts),
		Store:      a.store,
		Language:   language,
		Metrics:    a.metrics,
	})
	return err
}

// buildVerifier returns a verifier without a reconciler when verification is
// disabled; it then passes primaries through unverified.
func (a *App) buildVerifier(timeouts acquire.Timeouts) *transcript.Verifier {
	opts := []transcript.VerifierOption{
		transcript.WithTimeout(timeouts.Reconciliation),
		transcript.WithMetrics(a.metrics),
	}
	v := a.cfg.Verification
	switch {
	case !v.IsEnabled():
		slog.Info("transcript verification disabled")
		return transcript.NewVerifier(nil, opts...)
	case v.Reconciler == config.ReconcilerLLM && a.providers.LLM != nil:
		return transcript.NewVerifier(llmmerge.New(a.providers.LLM,
			llmmerge.WithMaxExcerptChars(v.MaxExcerptChars),
			llmmerge.WithMetrics(a.metrics),
		), opts...)
	default:
		if v.Reconciler == config.ReconcilerLLM {
			slog.Warn("llm reconciler requested but no LLM provider is available; using word alignment")
		}
		return transcript.NewVerifier(align.New(align.WithMaxExcerptChars(v.MaxExcerptChars)), opts...)
	}
}

// Service returns the acquisition service.
func (a *App) Service() *acquire.Service { return a.service }

// MCPServer returns the MCP server exposing the acquisition tool.
func (a *App) MCPServer() *mcp.Server { return a.mcp }

// Store returns the transcript store.
func (a *App) Store() store.Store { return a.store }

// Handler returns the HTTP surface: /mcp, /healthz, /readyz and /metrics,
// wrapped in the observability middleware.
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()
	health.New(a.checkers...).Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())
	mcpHandler := mcpserver.HTTPHandler(a.mcp)
	mux.Handle("/mcp", mcpHandler)
	mux.Handle("/mcp/", mcpHandler)
	return observe.Middleware(a.metrics)(mux)
}

// Shutdown releases every resource New opened. It is safe to call more than once.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	a.stopOnce.Do(func() {
		for _, c := range a.closers {
			if err := ctx.Err(); err != nil {
				errs = append(errs, err)
				return
			}
			if err := c(); err != nil {
				errs = append(errs, err)
			}
		}
	})
	return errors.Join(errs...)
}

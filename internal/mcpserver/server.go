// Package mcpserver exposes transcript acquisition as a Model Context
// Protocol tool, served over streamable HTTP or stdio.
package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/MrWong99/debatescribe/internal/acquire"
	"github.com/MrWong99/debatescribe/internal/observe"
	"github.com/MrWong99/debatescribe/internal/source"
	"github.com/MrWong99/debatescribe/internal/store"
)

// ToolName is the name of the acquisition tool.
const ToolName = "acquire_transcript"

// Acquirer is implemented by [acquire.Service].
type Acquirer interface {
	AcquireTranscript(ctx context.Context, debateID, sourceURL string, hint *source.Platform) (store.Record, error)
}

var _ Acquirer = (*acquire.Service)(nil)

// AcquireInput is the tool's argument object.
type AcquireInput struct {
	DebateID  string `json:"debate_id" jsonschema:"identifier of the debate the transcript belongs to"`
	SourceURL string `json:"source_url" jsonschema:"URL of the debate recording"`
	Platform  string `json:"platform,omitempty" jsonschema:"optional platform hint: video, audio, short_form, microblog, podcast, messaging or direct_media"`
}

// Transcript is the stored record as returned to MCP clients.
type Transcript struct {
	ID              string `json:"id,omitempty"`
	CreatedAt       string `json:"created_at,omitempty"`
	DebateID        string `json:"debate_id"`
	Content         string `json:"content"`
	Language        string `json:"language"`
	Verified        bool   `json:"verified"`
	SourcePlatform  string `json:"source_platform"`
	SourceURL       string `json:"source_url"`
	SourceID        string `json:"source_id"`
	PrimaryStrategy string `json:"primary_strategy"`
}

// AcquireOutput is the tool's structured result. PersistenceError is set when
// the transcript was produced but could not be stored; Transcript then holds
// the unsaved record.
type AcquireOutput struct {
	Transcript       Transcript `json:"transcript"`
	Persisted        bool       `json:"persisted"`
	PersistenceError string     `json:"persistence_error,omitempty"`
}

// NewServer creates an MCP server with the acquisition tool registered.
func NewServer(a Acquirer, version string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "debatescribe",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name: ToolName,
		Description: "Acquire a text transcript for a debate recording. Chooses a platform-specific " +
			"strategy from the URL, falls back to direct media transcription, cross-checks against a " +
			"second transcript when one exists, and stores the result.",
		Annotations: &mcp.ToolAnnotations{OpenWorldHint: ptr(true)},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in AcquireInput) (*mcp.CallToolResult, AcquireOutput, error) {
		return handleAcquire(ctx, a, in)
	})
	return server
}

func handleAcquire(ctx context.Context, a Acquirer, in AcquireInput) (*mcp.CallToolResult, AcquireOutput, error) {
	var hint *source.Platform
	if in.Platform != "" {
		p, err := source.ParsePlatform(in.Platform)
		if err != nil {
			return nil, AcquireOutput{}, err
		}
		hint = &p
	}

	rec, err := a.AcquireTranscript(ctx, in.DebateID, in.SourceURL, hint)
	var perr *acquire.PersistenceError
	switch {
	case errors.As(err, &perr):
		observe.Logger(ctx).Warn("mcp: returning unsaved transcript", "debate_id", in.DebateID, "err", err)
		return nil, AcquireOutput{Transcript: toTranscript(rec), PersistenceError: perr.Error()}, nil
	case err != nil:
		return nil, AcquireOutput{}, fmt.Errorf("%s: %w", ToolName, err)
	}
	return nil, AcquireOutput{Transcript: toTranscript(rec), Persisted: true}, nil
}

func toTranscript(r store.Record) Transcript {
	t := Transcript{
		ID:              r.ID,
		DebateID:        r.DebateID,
		Content:         r.Content,
		Language:        r.Language,
		Verified:        r.Verified,
		SourcePlatform:  string(r.SourcePlatform),
		SourceURL:       r.SourceURL,
		SourceID:        r.SourceID,
		PrimaryStrategy: r.PrimaryStrategy,
	}
	if !r.CreatedAt.IsZero() {
		t.CreatedAt = r.CreatedAt.UTC().Format(time.RFC3339)
	}
	return t
}

// HTTPHandler serves server over the streamable HTTP transport.
func HTTPHandler(server *mcp.Server) http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return server }, nil)
}

// ServeStdio serves server over stdin/stdout until the client disconnects or
// ctx is cancelled.
func ServeStdio(ctx context.Context, server *mcp.Server) error {
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("mcpserver: stdio: %w", err)
	}
	return nil
}

func ptr[T any](v T) *T { return &v }

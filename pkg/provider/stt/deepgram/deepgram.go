// Package deepgram provides a Deepgram-backed STT provider.
//
// The downloaded media is pushed through Deepgram's live WebSocket API as raw
// container bytes (Deepgram sniffs mp3/m4a/wav/webm itself), followed by a
// CloseStream message. Final results are collected until the server closes the
// socket and joined into one transcript.
package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/coder/websocket"

	"github.com/MrWong99/debatescribe/pkg/provider/stt"
)

const (
	deepgramEndpoint = "wss://api.deepgram.com/v1/listen"
	defaultModel     = "nova-3"
	defaultLanguage  = "en"
	defaultChunkSize = 8 << 10
)

var _ stt.Provider = (*Provider)(nil)

// Option is a functional option for configuring the Deepgram Provider.
type Option func(*Provider)

// WithModel sets the Deepgram model to use (e.g., "nova-3", "base").
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// WithLanguage sets the fallback language used when stt.Options.Language is
// empty.
func WithLanguage(language string) Option {
	return func(p *Provider) {
		p.language = language
	}
}

// WithEndpoint overrides the WebSocket endpoint (ws:// or wss://).
func WithEndpoint(endpoint string) Option {
	return func(p *Provider) {
		p.endpoint = endpoint
	}
}

// WithChunkSize sets how many bytes are sent per binary frame.
func WithChunkSize(n int) Option {
	return func(p *Provider) {
		if n > 0 {
			p.chunkSize = n
		}
	}
}

// Provider implements stt.Provider backed by the Deepgram streaming API.
type Provider struct {
	apiKey    string
	model     string
	language  string
	endpoint  string
	chunkSize int
}

// New creates a new Deepgram Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("deepgram: apiKey must not be empty")
	}
	p := &Provider{
		apiKey:    apiKey,
		model:     defaultModel,
		language:  defaultLanguage,
		endpoint:  deepgramEndpoint,
		chunkSize: defaultChunkSize,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Transcribe streams audio to Deepgram and returns the concatenated final
// results.
func (p *Provider) Transcribe(ctx context.Context, audio stt.Audio, opts stt.Options) (string, error) {
	if len(audio.Data) == 0 {
		return "", fmt.Errorf("deepgram: %w", stt.ErrEmptyAudio)
	}

	wsURL, err := p.buildURL(opts)
	if err != nil {
		return "", fmt.Errorf("deepgram: build URL: %w", err)
	}

	headers := http.Header{}
	headers.Set("Authorization", "Token "+p.apiKey)

	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPHeader: headers,
	})
	if err != nil {
		return "", fmt.Errorf("deepgram: dial: %w", err)
	}
	defer conn.CloseNow()
	conn.SetReadLimit(1 << 20)

	var (
		wg      sync.WaitGroup
		finals  []string
		readErr error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		finals, readErr = readFinals(ctx, conn)
	}()

	if err := p.writeAudio(ctx, conn, audio.Data); err != nil {
		conn.CloseNow()
		wg.Wait()
		return "", err
	}
	wg.Wait()

	if readErr != nil {
		return "", readErr
	}
	return strings.Join(finals, " "), nil
}

func (p *Provider) writeAudio(ctx context.Context, conn *websocket.Conn, data []byte) error {
	for off := 0; off < len(data); off += p.chunkSize {
		end := min(off+p.chunkSize, len(data))
		if err := conn.Write(ctx, websocket.MessageBinary, data[off:end]); err != nil {
			return fmt.Errorf("deepgram: write audio: %w", err)
		}
	}
	if err := conn.Write(ctx, websocket.MessageText, []byte(`{"type":"CloseStream"}`)); err != nil {
		return fmt.Errorf("deepgram: close stream: %w", err)
	}
	return nil
}

// readFinals collects final transcripts until the server closes the socket.
// A normal closure ends the read successfully; anything else is an error.
func readFinals(ctx context.Context, conn *websocket.Conn) ([]string, error) {
	var finals []string
	for {
		_, msg, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				return finals, nil
			}
			return nil, fmt.Errorf("deepgram: read: %w", err)
		}
		r, ok := parseDeepgramResponse(msg)
		if !ok || !r.isFinal || r.text == "" {
			continue
		}
		finals = append(finals, r.text)
	}
}

// buildURL constructs the Deepgram streaming endpoint URL for the given
// options. Encoding and sample rate are omitted so Deepgram detects the
// container format.
func (p *Provider) buildURL(opts stt.Options) (string, error) {
	u, err := url.Parse(p.endpoint)
	if err != nil {
		return "", err
	}

	lang := opts.Language
	if lang == "" {
		lang = p.language
	}

	q := u.Query()
	q.Set("model", p.model)
	q.Set("language", lang)
	q.Set("punctuate", "true")
	q.Set("smart_format", "true")
	q.Set("interim_results", "false")
	if opts.Prompt != "" {
		for _, kw := range strings.Split(opts.Prompt, ",") {
			if kw = strings.TrimSpace(kw); kw != "" {
				q.Add("keyterm", kw)
			}
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// deepgramResponse is the JSON structure returned by Deepgram for a Results
// event.
type deepgramResponse struct {
	Type    string `json:"type"`
	IsFinal bool   `json:"is_final"`
	Channel struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"channel"`
}

type result struct {
	text       string
	isFinal    bool
	confidence float64
}

// parseDeepgramResponse parses a raw WebSocket message. It returns false for
// messages that carry no transcript (Metadata, UtteranceEnd, malformed JSON).
func parseDeepgramResponse(data []byte) (result, bool) {
	var resp deepgramResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return result{}, false
	}
	if resp.Type != "Results" || len(resp.Channel.Alternatives) == 0 {
		return result{}, false
	}
	alt := resp.Channel.Alternatives[0]
	return result{
		text:       strings.TrimSpace(alt.Transcript),
		isFinal:    resp.IsFinal,
		confidence: alt.Confidence,
	}, true
}

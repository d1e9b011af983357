// Package discord transcribes audio or video attached to a Discord message.
package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/debatescribe/internal/acquire"
	"github.com/MrWong99/debatescribe/internal/platform"
	"github.com/MrWong99/debatescribe/internal/source"
)

var _ acquire.Strategy = (*Client)(nil)

// messageGetter is the subset of *discordgo.Session used here.
type messageGetter interface {
	ChannelMessage(channelID, messageID string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Client is the message_attachment strategy.
type Client struct {
	messages    messageGetter
	transcriber platform.Transcriber
}

// New creates a [Client] authenticated with a bot token. An empty token
// yields a Client whose Acquire reports [acquire.ErrStrategyUnavailable].
func New(token string, tr platform.Transcriber) (*Client, error) {
	c := &Client{transcriber: tr}
	if token == "" {
		return c, nil
	}
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord: create session: %w", err)
	}
	c.messages = s
	return c, nil
}

// Tag implements [acquire.Strategy].
func (c *Client) Tag() acquire.StrategyTag { return acquire.MessageAttachment }

// Acquire implements [acquire.Strategy]. ref.ID is "<channel>/<message>".
func (c *Client) Acquire(ctx context.Context, ref source.Reference) (string, error) {
	if c.messages == nil {
		return "", fmt.Errorf("%w: no discord bot token configured", acquire.ErrStrategyUnavailable)
	}
	channelID, messageID, ok := strings.Cut(ref.ID, "/")
	if !ok || channelID == "" || messageID == "" {
		return "", fmt.Errorf("discord: malformed message id %q", ref.ID)
	}

	msg, err := c.messages.ChannelMessage(channelID, messageID, discordgo.WithContext(ctx))
	if err != nil {
		var restErr *discordgo.RESTError
		if errors.As(err, &restErr) && restErr.Response != nil &&
			(restErr.Response.StatusCode == http.StatusNotFound || restErr.Response.StatusCode == http.StatusForbidden) {
			return "", fmt.Errorf("%w: message not accessible: %v", acquire.ErrNoTranscript, err)
		}
		return "", fmt.Errorf("discord: get message: %w", err)
	}

	a := mediaAttachment(msg.Attachments)
	if a == nil {
		return "", fmt.Errorf("%w: message has no audio or video attachment", acquire.ErrNoTranscript)
	}
	return c.transcriber.Transcribe(ctx, a.URL, nil)
}

// mediaAttachment returns the first attachment that is audio or video by
// content type or file extension.
func mediaAttachment(attachments []*discordgo.MessageAttachment) *discordgo.MessageAttachment {
	for _, a := range attachments {
		if a == nil || a.URL == "" {
			continue
		}
		ct := strings.ToLower(a.ContentType)
		if strings.HasPrefix(ct, "audio/") || strings.HasPrefix(ct, "video/") {
			return a
		}
		if source.IsDirectMedia("https://attachment.invalid/"+url.PathEscape(a.Filename)) || source.IsDirectMedia(a.URL) {
			return a
		}
	}
	return nil
}

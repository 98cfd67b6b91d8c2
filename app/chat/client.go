package chat

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/slack-go/slack"
)

const slackRequestTimeout = 2 * time.Minute

// Identity is the bot's own user and bot id, used to drop its own messages.
type Identity struct {
	UserID string
	BotID  string
}

// Poster posts a message, threaded when threadTS is set, and returns the
// new message's timestamp.
type Poster interface {
	PostMessage(ctx context.Context, channel, text, threadTS string) (string, error)
}

var _ Poster = (*Client)(nil)

type Client struct {
	api *slack.Client
}

type ClientOptions struct {
	Token  string
	APIURL string
}

func NewClient(opts ClientOptions) *Client {
	slackOpts := []slack.Option{
		slack.OptionHTTPClient(&http.Client{Timeout: slackRequestTimeout}),
	}
	if opts.APIURL != "" {
		slackOpts = append(slackOpts, slack.OptionAPIURL(opts.APIURL))
	}

	return &Client{api: slack.New(opts.Token, slackOpts...)}
}

func (c *Client) PostMessage(ctx context.Context, channel, text, threadTS string) (string, error) {
	msgOpts := []slack.MsgOption{slack.MsgOptionText(text, false)}
	if threadTS != "" {
		msgOpts = append(msgOpts, slack.MsgOptionTS(threadTS))
	}

	_, ts, err := c.api.PostMessageContext(ctx, channel, msgOpts...)
	if err != nil {
		return "", fmt.Errorf("failed to post message to %s: %w", channel, err)
	}

	slog.Debug("Message posted", "channel", channel, "thread_ts", threadTS, "ts", ts)

	return ts, nil
}

// Download streams a private file using the bot token.
func (c *Client) Download(ctx context.Context, url string, w io.Writer) error {
	if err := c.api.GetFileContext(ctx, url, w); err != nil {
		return fmt.Errorf("failed to download file: %w", err)
	}
	return nil
}

func (c *Client) Identity(ctx context.Context) (Identity, error) {
	resp, err := c.api.AuthTestContext(ctx)
	if err != nil {
		return Identity{}, fmt.Errorf("failed to get bot identity: %w", err)
	}

	slog.Info("Slack identity resolved", "user_id", resp.UserID, "bot_id", resp.BotID, "team", resp.Team)

	return Identity{UserID: resp.UserID, BotID: resp.BotID}, nil
}

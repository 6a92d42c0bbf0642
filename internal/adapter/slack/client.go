// Package slack adapts the Slack Web API to the relay's chat directory and
// chat transport.
package slack

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/slack-go/slack"

	"github.com/wwfxuk/shotgunEvents/internal/domain"
)

// Slack error codes handled specially.
const (
	errUsersNotFound    = "users_not_found"
	errAlreadyInChannel = "already_in_channel"
	errNotInChannel     = "not_in_channel"
)

// Options configure a Client.
type Options struct {
	// BotToken posts messages and reads the user directory.
	BotToken string
	// UserToken administers channels. Empty falls back to BotToken.
	UserToken string
	// APIURL overrides the Web API base URL; it must end with a slash.
	APIURL  string
	Timeout time.Duration
}

// Client wraps two Slack API clients: one acting as the bot, one acting as
// the installing user for channel administration.
type Client struct {
	bot   *slack.Client
	admin *slack.Client
	log   *slog.Logger
}

// New creates a Client.
func New(logger *slog.Logger, opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	httpClient := &http.Client{Timeout: timeout}

	clientOpts := []slack.Option{slack.OptionHTTPClient(httpClient)}
	if opts.APIURL != "" {
		clientOpts = append(clientOpts, slack.OptionAPIURL(opts.APIURL))
	}

	userToken := opts.UserToken
	if userToken == "" {
		userToken = opts.BotToken
	}
	return &Client{
		bot:   slack.New(opts.BotToken, clientOpts...),
		admin: slack.New(userToken, clientOpts...),
		log:   logger.With("adapter", "slack"),
	}
}

// ---------------------------------------------------------------------------
// Directory
// ---------------------------------------------------------------------------

// ListMembers returns every workspace member, bots and deactivated accounts
// included and flagged.
func (c *Client) ListMembers(ctx context.Context) ([]domain.ChatMember, error) {
	users, err := c.bot.GetUsersContext(ctx)
	if err != nil {
		return nil, err
	}
	members := make([]domain.ChatMember, len(users))
	for i, u := range users {
		members[i] = toMember(u)
	}
	c.log.DebugContext(ctx, "slack members listed", slog.Int("members", len(members)))
	return members, nil
}

// LookupByEmail returns the member id for email, or domain.ErrNotFound.
func (c *Client) LookupByEmail(ctx context.Context, email string) (string, error) {
	u, err := c.bot.GetUserByEmailContext(ctx, email)
	if err != nil {
		if slackCode(err) == errUsersNotFound {
			return "", domain.ErrNotFound
		}
		return "", err
	}
	return u.ID, nil
}

func toMember(u slack.User) domain.ChatMember {
	realName := u.Profile.RealName
	if realName == "" {
		realName = u.RealName
	}
	return domain.ChatMember{
		ID:          u.ID,
		Email:       u.Profile.Email,
		DisplayName: u.Profile.DisplayName,
		RealName:    realName,
		IsBot:       u.IsBot || u.ID == "USLACKBOT",
		IsDeleted:   u.Deleted,
	}
}

// ---------------------------------------------------------------------------
// Transport
// ---------------------------------------------------------------------------

// PostMessage sends msg to a channel or user id. Failures are reported in
// the result, never as panics or errors.
func (c *Client) PostMessage(ctx context.Context, channel string, msg domain.Message) domain.ChatResult {
	if msg.IsEmpty() {
		return domain.Failed("empty message")
	}
	ch, _, err := c.bot.PostMessageContext(ctx, channel, messageOptions(msg)...)
	if err != nil {
		return domain.Failed(slackCode(err))
	}
	return domain.ChatResult{OK: true, ChannelID: ch}
}

// CreateChannel creates a public or private channel.
func (c *Client) CreateChannel(ctx context.Context, name string, private bool) domain.ChatResult {
	ch, err := c.admin.CreateConversationContext(ctx, slack.CreateConversationParams{
		ChannelName: name,
		IsPrivate:   private,
	})
	if err != nil {
		return domain.Failed(slackCode(err))
	}
	return domain.ChatResult{OK: true, ChannelID: ch.ID, Channel: ch.Name}
}

// InviteUser adds a member to a channel. A member already there counts as
// success.
func (c *Client) InviteUser(ctx context.Context, channelID, userID string) domain.ChatResult {
	_, err := c.admin.InviteUsersToConversationContext(ctx, channelID, userID)
	if err != nil && slackCode(err) != errAlreadyInChannel {
		return domain.Failed(slackCode(err))
	}
	return domain.ChatResult{OK: true, ChannelID: channelID}
}

// RemoveUser removes a member from a channel. A member already gone counts
// as success.
func (c *Client) RemoveUser(ctx context.Context, channelID, userID string) domain.ChatResult {
	err := c.admin.KickUserFromConversationContext(ctx, channelID, userID)
	if err != nil && slackCode(err) != errNotInChannel {
		return domain.Failed(slackCode(err))
	}
	return domain.ChatResult{OK: true, ChannelID: channelID}
}

// slackCode returns the Slack error code of err ("channel_not_found"), or
// its message for transport errors.
func slackCode(err error) string {
	var resp slack.SlackErrorResponse
	if errors.As(err, &resp) {
		return resp.Err
	}
	return err.Error()
}

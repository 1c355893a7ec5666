package worker

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"
)

// SlackSender delivers messages through the Slack Web API.
type SlackSender struct {
	client *slack.Client
}

func NewSlackSender(client *slack.Client) *SlackSender {
	return &SlackSender{client: client}
}

// SendMessage posts blocks to channel with a plain-text fallback. channel
// may be a channel id or a user id; Slack opens a DM for the latter.
func (s *SlackSender) SendMessage(ctx context.Context, channel string, fallback string, blocks []slack.Block) error {
	_, _, err := s.client.PostMessageContext(ctx, channel,
		slack.MsgOptionText(fallback, false),
		slack.MsgOptionBlocks(blocks...),
	)
	if err != nil {
		return fmt.Errorf("post message to %s: %w", channel, err)
	}
	return nil
}

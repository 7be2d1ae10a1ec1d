// Package slack implements a notify.Gateway that posts task events to a
// Slack channel, serving as an out-of-app push delivery provider.
package slack

import (
	"fmt"
	"log"

	slackapi "github.com/slack-go/slack"
)

// slackClient abstracts the Slack API methods we use, enabling test mocks.
type slackClient interface {
	PostMessage(channelID string, options ...slackapi.MsgOption) (string, string, error)
}

// Gateway posts task change events to one Slack channel.
type Gateway struct {
	client    slackClient
	channelID string
}

// Opts holds parameters for creating a Slack Gateway.
type Opts struct {
	BotToken  string // xoxb-... Slack bot token
	ChannelID string
	// For testing: inject a mock client instead of the real Slack API.
	Client slackClient
}

// New creates a Slack Gateway.
func New(opts Opts) (*Gateway, error) {
	if opts.Client == nil && opts.BotToken == "" {
		return nil, fmt.Errorf("slack: bot token is required")
	}
	if opts.ChannelID == "" {
		return nil, fmt.Errorf("slack: channel ID is required")
	}
	client := opts.Client
	if client == nil {
		client = slackapi.New(opts.BotToken)
	}
	return &Gateway{client: client, channelID: opts.ChannelID}, nil
}

// TaskChanged implements notify.Gateway.
func (g *Gateway) TaskChanged(identities []string, taskID string) {
	g.post(fmt.Sprintf("Task %s changed (for %d recipient(s))", taskID, len(identities)))
}

// TaskRemoved implements notify.Gateway.
func (g *Gateway) TaskRemoved(identities []string, taskID string) {
	g.post(fmt.Sprintf("Task %s removed (for %d recipient(s))", taskID, len(identities)))
}

// post sends one message. Best-effort: errors are logged, not returned.
func (g *Gateway) post(text string) {
	_, _, err := g.client.PostMessage(g.channelID, slackapi.MsgOptionText(text, false))
	if err != nil {
		log.Printf("slack: post message: %v", err)
	}
}

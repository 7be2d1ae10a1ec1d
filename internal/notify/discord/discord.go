// Package discord implements a notify.Gateway that posts task events to a
// Discord channel, serving as an out-of-app push delivery provider.
package discord

import (
	"fmt"
	"log"

	"github.com/bwmarrin/discordgo"
)

// session abstracts the discordgo.Session methods we use, enabling test mocks.
type session interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Gateway posts task change events to one Discord channel.
type Gateway struct {
	sess      session
	channelID string
}

// Opts holds parameters for creating a Discord Gateway.
type Opts struct {
	BotToken  string
	ChannelID string
	// For testing: inject a mock session instead of the real Discord API.
	Session session
}

// New creates a Discord Gateway.
func New(opts Opts) (*Gateway, error) {
	if opts.Session == nil && opts.BotToken == "" {
		return nil, fmt.Errorf("discord: bot token is required")
	}
	if opts.ChannelID == "" {
		return nil, fmt.Errorf("discord: channel ID is required")
	}
	sess := opts.Session
	if sess == nil {
		dg, err := discordgo.New("Bot " + opts.BotToken)
		if err != nil {
			return nil, fmt.Errorf("discord: create session: %w", err)
		}
		sess = dg
	}
	return &Gateway{sess: sess, channelID: opts.ChannelID}, nil
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
	if _, err := g.sess.ChannelMessageSend(g.channelID, text); err != nil {
		log.Printf("discord: send message: %v", err)
	}
}

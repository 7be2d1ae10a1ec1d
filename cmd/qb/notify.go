package main

import (
	"log"

	"github.com/rowanvale/questboard/internal/config"
	"github.com/rowanvale/questboard/internal/notify"
	"github.com/rowanvale/questboard/internal/notify/discord"
	"github.com/rowanvale/questboard/internal/notify/slack"
)

// pushGateways builds the configured out-of-app push adapters. A misconfigured
// adapter is logged and skipped; push delivery is best-effort.
func pushGateways(cfg *config.Config) notify.Fanout {
	var fanout notify.Fanout
	if cfg.Notify.Slack.BotToken != "" {
		gw, err := slack.New(slack.Opts{
			BotToken:  cfg.Notify.Slack.BotToken,
			ChannelID: cfg.Notify.Slack.Channel,
		})
		if err != nil {
			log.Printf("notify: slack disabled: %v", err)
		} else {
			fanout = append(fanout, gw)
		}
	}
	if cfg.Notify.Discord.BotToken != "" {
		gw, err := discord.New(discord.Opts{
			BotToken:  cfg.Notify.Discord.BotToken,
			ChannelID: cfg.Notify.Discord.ChannelID,
		})
		if err != nil {
			log.Printf("notify: discord disabled: %v", err)
		} else {
			fanout = append(fanout, gw)
		}
	}
	return fanout
}

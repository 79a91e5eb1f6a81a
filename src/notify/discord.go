package notify

import (
	"context"
	"fmt"
	"log"

	"github.com/bwmarrin/discordgo"
	"github.com/emberforge/realm-gov/src/gov"
)

// Discord posts one-line governance announcements to a configured
// channel.
type Discord struct {
	session   *discordgo.Session
	channelID string
}

func NewDiscord(token, channelID string) (*Discord, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord: %w", err)
	}
	return &Discord{session: session, channelID: channelID}, nil
}

func (d *Discord) Notify(_ context.Context, event gov.Event, communityID uint64, details map[string]any) {
	msg := fmt.Sprintf("**%s** in community %d", event, communityID)
	if law, ok := details["lawType"].(string); ok {
		msg += fmt.Sprintf(": %s", law)
	}
	if reason, ok := details["reason"].(string); ok && reason != "" {
		msg += fmt.Sprintf(" (%s)", reason)
	}
	if _, err := d.session.ChannelMessageSend(d.channelID, msg); err != nil {
		log.Printf("notify: discord: %v", err)
	}
}

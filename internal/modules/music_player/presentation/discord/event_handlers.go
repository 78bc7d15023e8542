package discord

import (
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/guildqueue/internal/modules/music_player/application/scheduler"
)

// VoiceStateForwarder receives voice state updates after the guild state has
// been updated. The Lavalink adapter implements it.
type VoiceStateForwarder interface {
	OnVoiceStateUpdate(event *discordgo.VoiceStateUpdate)
}

// EventHandlers handles Discord gateway events for the music player.
type EventHandlers struct {
	botID    snowflake.ID
	registry *scheduler.Registry
	voice    VoiceStateForwarder
}

// NewEventHandlers creates a new EventHandlers. voice may be nil.
func NewEventHandlers(
	botID snowflake.ID,
	registry *scheduler.Registry,
	voice VoiceStateForwarder,
) *EventHandlers {
	return &EventHandlers{
		botID:    botID,
		registry: registry,
		voice:    voice,
	}
}

// HandleVoiceStateUpdate releases a guild's voice connection when the bot is
// disconnected from voice, then forwards the update.
//
// The release must come first: forwarding a disconnect ends the running
// track, and the entry started by that completion has to acquire a fresh
// connection instead of reusing the dropped one.
func (h *EventHandlers) HandleVoiceStateUpdate(
	_ *discordgo.Session,
	event *discordgo.VoiceStateUpdate,
) {
	h.releaseConnection(event)

	if h.voice != nil {
		h.voice.OnVoiceStateUpdate(event)
	}
}

func (h *EventHandlers) releaseConnection(event *discordgo.VoiceStateUpdate) {
	// Only handle updates for the bot itself
	if event.UserID != h.botID.String() {
		return
	}

	if event.ChannelID != "" {
		return
	}

	guildID, err := snowflake.Parse(event.GuildID)
	if err != nil {
		slog.Error("failed to parse guild ID in voice state update", "error", err)
		return
	}

	guild, ok := h.registry.Lookup(guildID)
	if !ok {
		return
	}

	// Zero matches whatever connection the guild holds.
	var previous snowflake.ID
	if event.BeforeUpdate != nil && event.BeforeUpdate.ChannelID != "" {
		previous, err = snowflake.Parse(event.BeforeUpdate.ChannelID)
		if err != nil {
			slog.Warn("failed to parse previous channel ID in voice state update", "error", err)
			previous = 0
		}
	}

	guild.ConnectionLost(previous)
}

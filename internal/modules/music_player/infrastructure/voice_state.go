package infrastructure

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/guildqueue/internal/modules/music_player/application/ports"
	"github.com/sglre6355/guildqueue/internal/modules/music_player/domain"
)

// VoiceStateProvider reads voice states from the session's state cache.
type VoiceStateProvider struct {
	state *discordgo.State
}

// NewVoiceStateProvider creates a new VoiceStateProvider.
func NewVoiceStateProvider(session *discordgo.Session) *VoiceStateProvider {
	return &VoiceStateProvider{
		state: session.State,
	}
}

// UserVoiceChannel returns the voice channel ID that the user is currently in.
func (v *VoiceStateProvider) UserVoiceChannel(guildID, userID snowflake.ID) (snowflake.ID, error) {
	vs, err := v.state.VoiceState(guildID.String(), userID.String())
	if err != nil || vs.ChannelID == "" {
		return 0, domain.ErrNotInVoiceChannel
	}

	channelID, err := snowflake.Parse(vs.ChannelID)
	if err != nil {
		return 0, domain.InternalError(fmt.Errorf("failed to parse voice channel ID: %w", err))
	}
	return channelID, nil
}

// Ensure VoiceStateProvider implements ports.VoiceStateProvider.
var _ ports.VoiceStateProvider = (*VoiceStateProvider)(nil)

package ports

import (
	"github.com/disgoorg/snowflake/v2"
)

// VoiceStateProvider reads Discord voice state.
type VoiceStateProvider interface {
	// UserVoiceChannel returns the voice channel the user is currently in.
	// It returns domain.ErrNotInVoiceChannel if the user is not connected.
	UserVoiceChannel(guildID, userID snowflake.ID) (snowflake.ID, error)
}

package ports

import (
	"github.com/disgoorg/snowflake/v2"
)

// NotificationSender sends playback notifications to Discord text channels.
type NotificationSender interface {
	// SendNowPlaying sends a "Now Playing" embed to the channel.
	SendNowPlaying(channelID snowflake.ID, info *NowPlayingInfo) error

	// SendError sends an error message embed to the channel.
	SendError(channelID snowflake.ID, message string) error
}

package ports

import (
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/guildqueue/internal/modules/music_player/domain"
)

// NowPlayingInfo contains information for the "Now Playing" notification.
type NowPlayingInfo struct {
	Track              domain.Track
	RequesterID        snowflake.ID
	RequesterName      string
	RequesterAvatarURL string
	EnqueuedAt         time.Time
}

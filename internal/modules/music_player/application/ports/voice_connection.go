package ports

import (
	"context"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/guildqueue/internal/modules/music_player/domain"
)

// ConnectionProvider joins voice channels.
type ConnectionProvider interface {
	// Acquire connects to channelID in guildID and returns the bound connection.
	Acquire(ctx context.Context, guildID, channelID snowflake.ID) (Connection, error)
}

// Connection is a voice connection bound to a single channel.
type Connection interface {
	ChannelID() snowflake.ID

	// Play starts track on the connection. Once Play succeeds the implementation
	// publishes exactly one TrackEndedEvent carrying entryID when the playback ends.
	Play(ctx context.Context, track *domain.Track, entryID domain.EntryID) (Playback, error)
}

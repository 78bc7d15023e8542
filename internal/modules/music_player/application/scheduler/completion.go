package scheduler

import (
	"context"
	"log/slog"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/guildqueue/internal/modules/music_player/domain"
)

// HandleCompletion reacts to the end of the playback started for id.
// Notifications for entries that no longer hold the playback slot are ignored.
func (g *Guild) HandleCompletion(ctx context.Context, id domain.EntryID) {
	g.mu.Lock()
	if g.nowPlaying == nil || g.nowPlaying.entry.ID != id {
		g.mu.Unlock()
		slog.Debug("ignoring stale completion", "guild", g.id, "entry", id)
		return
	}

	finished := g.nowPlaying
	g.nowPlaying = nil
	g.tickLocked()
	g.mu.Unlock()

	slog.Debug("entry finished", "guild", g.id, "entry", id)

	if finished.playback != nil {
		if err := finished.playback.Stop(ctx); err != nil {
			slog.Warn("failed to stop finished playback", "guild", g.id, "entry", id, "error", err)
		}
	}
}

// ConnectionLost forgets the held voice connection if it is bound to channelID.
// A zero channelID matches any connection. The next entry acquires a new one.
func (g *Guild) ConnectionLost(channelID snowflake.ID) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.connection == nil {
		return
	}
	if channelID != 0 && g.connection.channelID != channelID {
		return
	}

	slog.Info("voice connection lost", "guild", g.id, "channel", g.connection.channelID)

	g.connection = nil
}

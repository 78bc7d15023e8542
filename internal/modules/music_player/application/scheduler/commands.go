package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/guildqueue/internal/modules/music_player/domain"
)

// Enqueue appends a new entry to the tail of the queue and runs Tick.
func (g *Guild) Enqueue(
	query domain.SearchQuery,
	targetChannelID snowflake.ID,
	notificationChannelID snowflake.ID,
	requesterID snowflake.ID,
) domain.QueueEntry {
	entry := domain.NewQueueEntry(query, targetChannelID, notificationChannelID, requesterID)

	g.mu.Lock()
	defer g.mu.Unlock()

	g.queue.PushBack(entry)
	g.tickLocked()

	slog.Debug("entry enqueued", "guild", g.id, "entry", entry.ID, "query", query.Query)

	return entry
}

// Skip stops the current entry after dropping the next count-1 entries, and
// returns how many entries were skipped including the current one.
// If nothing is playing the queue is left untouched.
func (g *Guild) Skip(ctx context.Context, count int) (int, error) {
	if count < 1 {
		return 0, domain.ErrInvalidSkipCount
	}

	g.mu.Lock()
	if g.nowPlaying == nil {
		g.mu.Unlock()
		return 0, domain.ErrNoSongPlaying
	}

	removed := g.queue.DropFront(count - 1)
	current := g.nowPlaying
	if current.starting() {
		// Nothing to stop yet; the start result is discarded when it arrives.
		g.nowPlaying = nil
	}
	g.tickLocked()
	g.mu.Unlock()

	slog.Debug("skipping", "guild", g.id, "entry", current.entry.ID, "removed", removed)

	if current.playback != nil {
		// The completion notification for current drives the next Tick.
		if err := current.playback.Stop(ctx); err != nil {
			return 0, domain.InternalError(fmt.Errorf("failed to stop playback: %w", err))
		}
	}

	return removed + 1, nil
}

// Stop clears the queue and stops the current entry.
func (g *Guild) Stop(ctx context.Context) error {
	g.mu.Lock()
	if g.nowPlaying == nil {
		g.mu.Unlock()
		return domain.ErrNoSongPlaying
	}

	current := g.nowPlaying
	g.nowPlaying = nil
	cleared := g.queue.Clear()
	g.preload = nil
	g.tickLocked()
	g.mu.Unlock()

	slog.Debug("stopped", "guild", g.id, "entry", current.entry.ID, "cleared", cleared)

	if current.playback != nil {
		if err := current.playback.Stop(ctx); err != nil {
			return domain.InternalError(fmt.Errorf("failed to stop playback: %w", err))
		}
	}

	return nil
}

// Shuffle randomly reorders the pending entries.
func (g *Guild) Shuffle() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.queue.IsEmpty() {
		return domain.ErrQueueIsEmpty
	}

	g.queue.Shuffle()
	g.tickLocked()

	return nil
}

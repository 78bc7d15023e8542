package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/guildqueue/internal/modules/music_player/application/ports"
	"github.com/sglre6355/guildqueue/internal/modules/music_player/domain"
)

var errNoTrack = errors.New("resolver returned no track")

// result is a message produced by background work for a single entry.
// Results are applied by commit, which discards them when the entry they
// belong to is no longer current.
type result interface {
	entryID() domain.EntryID
}

// playResult carries the outcome of resolving and connecting a popped entry.
type playResult struct {
	entry domain.QueueEntry
	track *domain.Track
	conn  ports.Connection
	stage domain.FailureStage
	err   error
}

func (r playResult) entryID() domain.EntryID { return r.entry.ID }

// preloadResult carries the outcome of a speculative resolution.
type preloadResult struct {
	id    domain.EntryID
	track *domain.Track
	err   error
}

func (r preloadResult) entryID() domain.EntryID { return r.id }

// tickLocked decides what to do next: start the queue front if nothing holds
// the playback slot, then claim a preload for the new front. g.mu must be held.
func (g *Guild) tickLocked() {
	if g.nowPlaying == nil {
		if next, ok := g.queue.PopFront(); ok {
			g.startLocked(next)
		}
	}

	g.preloadFrontLocked()
}

func (g *Guild) startLocked(next domain.QueueEntry) {
	var track *domain.Track
	if g.preload != nil && g.preload.id == next.ID {
		// Still nil while the preload is in flight. The preload is then
		// abandoned, its result fails the id check, and start resolves the
		// entry again. Waiting on it would let a slow preload hold the slot.
		track = g.preload.track
	}
	g.preload = nil

	var conn ports.Connection
	if g.connection != nil && g.connection.channelID == next.TargetChannelID {
		conn = g.connection.conn
	}

	g.nowPlaying = &nowPlaying{entry: next}

	slog.Debug("starting entry",
		"guild", g.id,
		"entry", next.ID,
		"preloaded", track != nil,
		"reuse_connection", conn != nil,
	)

	spawned := g.runner.spawn(func(ctx context.Context) {
		g.start(ctx, next, track, conn)
	})
	if !spawned {
		slog.Warn("scheduler closed, dropping entry", "guild", g.id, "entry", next.ID)
		g.nowPlaying = nil
	}
}

func (g *Guild) preloadFrontLocked() {
	front := g.queue.Front()
	if front == nil {
		g.preload = nil
		return
	}
	if g.preload != nil && g.preload.id == front.ID {
		return
	}

	entry := *front
	g.preload = &preloadSlot{id: entry.ID}

	slog.Debug("preloading entry", "guild", g.id, "entry", entry.ID)

	spawned := g.runner.spawn(func(ctx context.Context) {
		g.runPreload(ctx, entry)
	})
	if !spawned {
		g.preload = nil
	}
}

// start resolves and connects entry outside the lock, then commits the result.
// track and conn are reused when non-nil.
func (g *Guild) start(
	ctx context.Context,
	entry domain.QueueEntry,
	track *domain.Track,
	conn ports.Connection,
) {
	if track == nil {
		resolved, err := g.resolve(ctx, entry.Query)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			g.commit(ctx, playResult{entry: entry, stage: domain.FailureStageResolve, err: err})
			return
		}
		track = resolved
	}

	if conn == nil {
		acquired, err := g.acquire(ctx, entry.TargetChannelID)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			g.commit(ctx, playResult{entry: entry, stage: domain.FailureStageConnect, err: err})
			return
		}
		conn = acquired
	}

	g.commit(ctx, playResult{entry: entry, track: track, conn: conn})
}

func (g *Guild) runPreload(ctx context.Context, entry domain.QueueEntry) {
	track, err := g.resolve(ctx, entry.Query)
	if err != nil && ctx.Err() != nil {
		return
	}

	g.commit(ctx, preloadResult{id: entry.ID, track: track, err: err})
}

func (g *Guild) resolve(ctx context.Context, query domain.SearchQuery) (*domain.Track, error) {
	ctx, cancel := context.WithTimeout(ctx, g.config.ResolveTimeout)
	defer cancel()

	track, err := g.deps.Resolver.Resolve(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %q: %w", query.Query, err)
	}
	if track == nil {
		return nil, errNoTrack
	}

	return track, nil
}

func (g *Guild) acquire(ctx context.Context, channelID snowflake.ID) (ports.Connection, error) {
	ctx, cancel := context.WithTimeout(ctx, g.config.ConnectTimeout)
	defer cancel()

	conn, err := g.deps.Connections.Acquire(ctx, g.id, channelID)
	if err != nil {
		return nil, fmt.Errorf("failed to join channel %s: %w", channelID, err)
	}

	return conn, nil
}

// commit applies a result produced by background work.
func (g *Guild) commit(ctx context.Context, r result) {
	switch r := r.(type) {
	case playResult:
		if r.err != nil {
			g.failStart(r.entry, r.stage, r.err)
			return
		}
		g.play(ctx, r)
	case preloadResult:
		g.applyPreload(r)
	}
}

// isStartingLocked reports whether id holds the playback slot without a playback yet.
func (g *Guild) isStartingLocked(id domain.EntryID) bool {
	return g.nowPlaying != nil && g.nowPlaying.entry.ID == id && g.nowPlaying.starting()
}

func (g *Guild) play(ctx context.Context, r playResult) {
	g.startMu.Lock()
	defer g.startMu.Unlock()

	g.mu.Lock()
	if !g.isStartingLocked(r.entry.ID) {
		g.mu.Unlock()
		slog.Debug("discarding stale start", "guild", g.id, "entry", r.entry.ID)
		return
	}
	g.connection = &activeConnection{channelID: r.conn.ChannelID(), conn: r.conn}
	g.mu.Unlock()

	playCtx, cancel := context.WithTimeout(ctx, g.config.ConnectTimeout)
	playback, err := r.conn.Play(playCtx, r.track, r.entry.ID)
	cancel()
	if err != nil {
		g.failStart(r.entry, domain.FailureStagePlay, err)
		return
	}

	g.mu.Lock()
	if !g.isStartingLocked(r.entry.ID) {
		g.mu.Unlock()
		slog.Debug("entry superseded while starting, stopping it", "guild", g.id, "entry", r.entry.ID)
		if err := playback.Stop(ctx); err != nil {
			slog.Warn("failed to stop superseded playback", "guild", g.id, "entry", r.entry.ID, "error", err)
		}
		return
	}
	g.nowPlaying.track = r.track
	g.nowPlaying.playback = playback
	g.mu.Unlock()

	slog.Info("playback started", "guild", g.id, "entry", r.entry.ID, "title", r.track.Title)

	g.deps.Publisher.PublishPlaybackStarted(domain.PlaybackStartedEvent{
		GuildID: g.id,
		Entry:   r.entry,
		Track:   *r.track,
	})
}

// failStart drops entry and moves on to the next one.
func (g *Guild) failStart(entry domain.QueueEntry, stage domain.FailureStage, err error) {
	g.mu.Lock()
	if !g.isStartingLocked(entry.ID) {
		g.mu.Unlock()
		slog.Debug("discarding stale failure", "guild", g.id, "entry", entry.ID, "error", err)
		return
	}
	g.nowPlaying = nil
	if stage != domain.FailureStageResolve &&
		g.connection != nil && g.connection.channelID == entry.TargetChannelID {
		g.connection = nil
	}
	g.tickLocked()
	g.mu.Unlock()

	slog.Warn("failed to start entry",
		"guild", g.id,
		"entry", entry.ID,
		"stage", stage,
		"error", err,
	)

	g.deps.Publisher.PublishPlaybackFailed(domain.PlaybackFailedEvent{
		GuildID: g.id,
		Entry:   entry,
		Stage:   stage,
		Err:     err,
	})
}

func (g *Guild) applyPreload(r preloadResult) {
	g.mu.Lock()
	defer g.mu.Unlock()

	front := g.queue.Front()
	if g.preload == nil || g.preload.id != r.id || front == nil || front.ID != r.id {
		slog.Debug("discarding stale preload", "guild", g.id, "entry", r.id)
		return
	}

	if r.err != nil {
		// The slot stays claimed; the entry is resolved again when it is popped.
		slog.Warn("preload failed", "guild", g.id, "entry", r.id, "error", r.err)
		return
	}

	g.preload.track = r.track

	slog.Debug("preload ready", "guild", g.id, "entry", r.id, "title", r.track.Title)
}

package scheduler

import (
	"sync"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/guildqueue/internal/modules/music_player/application/ports"
	"github.com/sglre6355/guildqueue/internal/modules/music_player/domain"
)

// preloadSlot claims the speculative resolution of the queue front.
// track is nil while the resolution is in flight.
type preloadSlot struct {
	id    domain.EntryID
	track *domain.Track
}

// nowPlaying is the entry holding the guild's single playback.
// playback is nil while the entry is still being resolved or connected.
type nowPlaying struct {
	entry    domain.QueueEntry
	track    *domain.Track
	playback ports.Playback
}

func (n *nowPlaying) starting() bool {
	return n.playback == nil
}

type activeConnection struct {
	channelID snowflake.ID
	conn      ports.Connection
}

// Guild is the queue and playback state of one guild.
// All fields below mu are only touched with mu held, and mu is never held
// across a call to the resolver, the connection provider or a playback.
type Guild struct {
	id     snowflake.ID
	deps   Dependencies
	config Config
	runner *runner

	// startMu orders Connection.Play calls so a stale start is stopped
	// before the next entry begins playing.
	startMu sync.Mutex

	mu         sync.Mutex
	queue      domain.Queue
	preload    *preloadSlot
	nowPlaying *nowPlaying
	connection *activeConnection
}

func newGuild(id snowflake.ID, deps Dependencies, config Config, runner *runner) *Guild {
	return &Guild{
		id:     id,
		deps:   deps,
		config: config,
		runner: runner,
		queue:  domain.NewQueue(),
	}
}

// ID returns the guild ID.
func (g *Guild) ID() snowflake.ID {
	return g.id
}

// Snapshot is a read-only copy of a guild's state.
type Snapshot struct {
	GuildID snowflake.ID

	// NowPlaying is nil when nothing is playing or starting.
	NowPlaying *domain.QueueEntry
	// Track is nil while NowPlaying is still starting.
	Track *domain.Track

	PreloadID    domain.EntryID
	PreloadReady bool

	Queue []domain.QueueEntry

	ConnectedChannelID snowflake.ID
}

// Starting reports whether an entry holds the playback slot but has not started yet.
func (s Snapshot) Starting() bool {
	return s.NowPlaying != nil && s.Track == nil
}

// Snapshot returns a copy of the current state. It does not invoke Tick.
func (g *Guild) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()

	s := Snapshot{
		GuildID: g.id,
		Queue:   g.queue.List(),
	}

	if g.nowPlaying != nil {
		entry := g.nowPlaying.entry
		s.NowPlaying = &entry
		if !g.nowPlaying.starting() {
			track := *g.nowPlaying.track
			s.Track = &track
		}
	}

	if g.preload != nil {
		s.PreloadID = g.preload.id
		s.PreloadReady = g.preload.track != nil
	}

	if g.connection != nil {
		s.ConnectedChannelID = g.connection.channelID
	}

	return s
}

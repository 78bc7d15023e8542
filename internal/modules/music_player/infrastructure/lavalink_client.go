package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/disgolink/v3/disgolink"
	"github.com/disgoorg/disgolink/v3/lavalink"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/guildqueue/internal/modules/music_player/application/ports"
	"github.com/sglre6355/guildqueue/internal/modules/music_player/domain"
	"golang.org/x/time/rate"
)

// ErrNoResults is returned when Lavalink finds nothing for a query.
var ErrNoResults = errors.New("no results found")

// LavalinkConfig contains Lavalink connection configuration.
type LavalinkConfig struct {
	Address  string
	Password string
	Secure   bool

	// ResolveRate and ResolveBurst limit track loads across all guilds.
	ResolveRate  float64
	ResolveBurst int
}

// LavalinkAdapter wraps DisGoLink to implement the resolver and voice ports.
type LavalinkAdapter struct {
	link      disgolink.Client
	session   *discordgo.Session
	botID     snowflake.ID
	limiter   *rate.Limiter
	publisher ports.EventPublisher

	voice *voiceSessions

	playersMu sync.Mutex
	players   map[snowflake.ID]*guildPlayer
}

// guildPlayer orders player updates for one guild and remembers which entry
// each started track belongs to.
type guildPlayer struct {
	mu      sync.Mutex
	started []startedTrack // oldest first, removed when their end event arrives
}

type startedTrack struct {
	entryID domain.EntryID
	encoded string
}

// NewLavalinkAdapter connects to the Lavalink node. Track end events are
// published through publisher.
func NewLavalinkAdapter(
	ctx context.Context,
	session *discordgo.Session,
	publisher ports.EventPublisher,
	config LavalinkConfig,
) (*LavalinkAdapter, error) {
	botID, err := snowflake.Parse(session.State.User.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to parse bot ID: %w", err)
	}

	limit := rate.Inf
	if config.ResolveRate > 0 {
		limit = rate.Limit(config.ResolveRate)
	}

	adapter := &LavalinkAdapter{
		session:   session,
		botID:     botID,
		limiter:   rate.NewLimiter(limit, max(config.ResolveBurst, 1)),
		publisher: publisher,
		voice:     newVoiceSessions(),
		players:   make(map[snowflake.ID]*guildPlayer),
	}

	adapter.link = disgolink.New(botID,
		disgolink.WithListenerFunc(adapter.onTrackStart),
		disgolink.WithListenerFunc(adapter.onTrackEnd),
		disgolink.WithListenerFunc(adapter.onTrackException),
		disgolink.WithListenerFunc(adapter.onTrackStuck),
	)

	node, err := adapter.link.AddNode(ctx, disgolink.NodeConfig{
		Name:     "main",
		Address:  config.Address,
		Password: config.Password,
		Secure:   config.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add Lavalink node: %w", err)
	}

	slog.Info("connected to Lavalink", "node", node.Config().Name, "address", config.Address)

	return adapter, nil
}

// Close disconnects from Lavalink.
func (c *LavalinkAdapter) Close() {
	c.link.Close()
}

// Resolve loads the first playable track for query.
func (c *LavalinkAdapter) Resolve(ctx context.Context, query domain.SearchQuery) (*domain.Track, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("resolve rate limit: %w", err)
	}

	node := c.link.BestNode()
	if node == nil {
		return nil, fmt.Errorf("no available Lavalink node")
	}

	result, err := node.LoadTracks(ctx, query.LavalinkQuery())
	if err != nil {
		return nil, fmt.Errorf("failed to load tracks: %w", err)
	}

	return firstTrack(result)
}

// firstTrack picks the track to play from a load result.
func firstTrack(result *lavalink.LoadResult) (*domain.Track, error) {
	switch data := result.Data.(type) {
	case lavalink.Track:
		return convertTrack(data), nil

	case lavalink.Playlist:
		if len(data.Tracks) == 0 {
			return nil, ErrNoResults
		}
		return convertTrack(data.Tracks[0]), nil

	case lavalink.Search:
		if len(data) == 0 {
			return nil, ErrNoResults
		}
		return convertTrack(data[0]), nil

	case lavalink.Exception:
		return nil, fmt.Errorf("lavalink failed to load track: %s", data.Message)

	default:
		return nil, ErrNoResults
	}
}

// convertTrack converts a Lavalink track to a domain track.
func convertTrack(track lavalink.Track) *domain.Track {
	info := track.Info

	return &domain.Track{
		Identifier: info.Identifier,
		Encoded:    track.Encoded,
		Title:      info.Title,
		Artist:     info.Author,
		Duration:   time.Duration(info.Length) * time.Millisecond,
		URI:        derefString(info.URI),
		ArtworkURL: derefString(info.ArtworkURL),
		SourceName: info.SourceName,
		IsStream:   info.IsStream,
	}
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Acquire joins channelID and waits until Lavalink has received the voice session.
// If Lavalink is already bound to channelID no join is sent.
func (c *LavalinkAdapter) Acquire(
	ctx context.Context,
	guildID, channelID snowflake.ID,
) (ports.Connection, error) {
	conn := &lavalinkConnection{adapter: c, guildID: guildID, channelID: channelID}

	if c.voice.connected(guildID) == channelID {
		return conn, nil
	}

	ready := c.voice.expect(guildID)

	err := c.session.ChannelVoiceJoinManual(guildID.String(), channelID.String(), false, true)
	if err != nil {
		return nil, fmt.Errorf("failed to join voice channel: %w", err)
	}

	select {
	case <-ready:
		return conn, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for voice connection: %w", ctx.Err())
	}
}

func (c *LavalinkAdapter) player(guildID snowflake.ID) *guildPlayer {
	c.playersMu.Lock()
	defer c.playersMu.Unlock()

	p, ok := c.players[guildID]
	if !ok {
		p = &guildPlayer{}
		c.players[guildID] = p
	}
	return p
}

// forgetPlayer publishes an end for every track still running in guildID.
// Lavalink drops the player when the bot leaves the channel.
func (c *LavalinkAdapter) forgetPlayer(guildID snowflake.ID) {
	p := c.player(guildID)

	p.mu.Lock()
	ended := p.started
	p.started = nil
	p.mu.Unlock()

	for _, t := range ended {
		c.publishEnded(guildID, t.entryID)
	}
}

func (c *LavalinkAdapter) publishEnded(guildID snowflake.ID, entryID domain.EntryID) {
	c.publisher.PublishTrackEnded(domain.TrackEndedEvent{GuildID: guildID, EntryID: entryID})
}

// lavalinkConnection is a voice connection bound to one channel.
type lavalinkConnection struct {
	adapter   *LavalinkAdapter
	guildID   snowflake.ID
	channelID snowflake.ID
}

func (l *lavalinkConnection) ChannelID() snowflake.ID {
	return l.channelID
}

// Play starts track on the guild's player.
func (l *lavalinkConnection) Play(
	ctx context.Context,
	track *domain.Track,
	entryID domain.EntryID,
) (ports.Playback, error) {
	p := l.adapter.player(l.guildID)

	p.mu.Lock()
	defer p.mu.Unlock()

	// Use WithEncodedTrack to avoid userData:null issue
	err := l.adapter.link.Player(l.guildID).Update(ctx, lavalink.WithEncodedTrack(track.Encoded))
	if err != nil {
		return nil, fmt.Errorf("failed to play track: %w", err)
	}

	p.started = append(p.started, startedTrack{entryID: entryID, encoded: track.Encoded})

	return &lavalinkPlayback{adapter: l.adapter, guildID: l.guildID, entryID: entryID}, nil
}

// lavalinkPlayback is the handle of one started track.
type lavalinkPlayback struct {
	adapter *LavalinkAdapter
	guildID snowflake.ID
	entryID domain.EntryID
}

// Stop stops the track if it is still the latest one started in the guild.
func (l *lavalinkPlayback) Stop(ctx context.Context) error {
	p := l.adapter.player(l.guildID)

	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.started) == 0 || p.started[len(p.started)-1].entryID != l.entryID {
		return nil
	}

	if err := l.adapter.link.Player(l.guildID).Update(ctx, lavalink.WithNullTrack()); err != nil {
		return fmt.Errorf("failed to stop playback: %w", err)
	}

	return nil
}

func (c *LavalinkAdapter) onTrackStart(player disgolink.Player, event lavalink.TrackStartEvent) {
	slog.Debug("track started", "guild", player.GuildID(), "track", event.Track.Info.Title)
}

// onTrackEnd publishes the end of the entry the track was started for.
// Tracks started before it that never reported an end are ended as well.
func (c *LavalinkAdapter) onTrackEnd(player disgolink.Player, event lavalink.TrackEndEvent) {
	guildID := player.GuildID()
	slog.Debug("track ended", "guild", guildID, "reason", event.Reason)

	ended := c.player(guildID).finish(event.Track.Encoded)
	if len(ended) == 0 {
		slog.Debug("ignoring end of untracked track", "guild", guildID)
		return
	}

	for _, entryID := range ended {
		c.publishEnded(guildID, entryID)
	}
}

// finish removes the started track with the given encoding and every track
// started before it, and returns their entry IDs oldest first.
func (p *guildPlayer) finish(encoded string) []domain.EntryID {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx := slices.IndexFunc(p.started, func(t startedTrack) bool {
		return t.encoded == encoded
	})
	if idx < 0 {
		return nil
	}

	ended := make([]domain.EntryID, 0, idx+1)
	for _, t := range p.started[:idx+1] {
		ended = append(ended, t.entryID)
	}
	p.started = slices.Delete(p.started, 0, idx+1)

	return ended
}

func (c *LavalinkAdapter) onTrackException(
	player disgolink.Player,
	event lavalink.TrackExceptionEvent,
) {
	slog.Warn("track exception", "guild", player.GuildID(), "error", event.Exception.Message)
}

func (c *LavalinkAdapter) onTrackStuck(player disgolink.Player, event lavalink.TrackStuckEvent) {
	slog.Warn("track stuck", "guild", player.GuildID(), "threshold", event.Threshold)
}

// Ensure LavalinkAdapter implements port interfaces.
var (
	_ ports.Resolver           = (*LavalinkAdapter)(nil)
	_ ports.ConnectionProvider = (*LavalinkAdapter)(nil)
	_ ports.Connection         = (*lavalinkConnection)(nil)
	_ ports.Playback           = (*lavalinkPlayback)(nil)
)

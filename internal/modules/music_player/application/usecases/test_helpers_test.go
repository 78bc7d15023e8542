package usecases

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/guildqueue/internal/modules/music_player/application/ports"
	"github.com/sglre6355/guildqueue/internal/modules/music_player/application/scheduler"
	"github.com/sglre6355/guildqueue/internal/modules/music_player/domain"
)

const (
	guildID        snowflake.ID = 1
	userID         snowflake.ID = 2
	textChannelID  snowflake.ID = 3
	voiceChannelID snowflake.ID = 4

	waitFor   = 2 * time.Second
	pollEvery = 5 * time.Millisecond
)

type mockVoiceState struct {
	channels map[snowflake.ID]snowflake.ID
}

func (m *mockVoiceState) UserVoiceChannel(_, userID snowflake.ID) (snowflake.ID, error) {
	channelID, ok := m.channels[userID]
	if !ok {
		return 0, domain.ErrNotInVoiceChannel
	}
	return channelID, nil
}

// mockResolver resolves every query except the ones in blocked, which wait for ctx.
type mockResolver struct {
	blocked map[string]bool
}

func (m *mockResolver) Resolve(ctx context.Context, query domain.SearchQuery) (*domain.Track, error) {
	if m.blocked[query.Query] {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return &domain.Track{Encoded: "encoded-" + query.Query, Title: query.Query}, nil
}

type mockConnections struct{}

func (mockConnections) Acquire(_ context.Context, _, channelID snowflake.ID) (ports.Connection, error) {
	return &mockConnection{channelID: channelID}, nil
}

type mockConnection struct {
	channelID snowflake.ID
}

func (c *mockConnection) ChannelID() snowflake.ID { return c.channelID }

func (c *mockConnection) Play(context.Context, *domain.Track, domain.EntryID) (ports.Playback, error) {
	return &mockPlayback{}, nil
}

type mockPlayback struct {
	mu      sync.Mutex
	stopped int
}

func (p *mockPlayback) Stop(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopped++
	return nil
}

type mockPublisher struct{}

func (mockPublisher) PublishTrackEnded(domain.TrackEndedEvent)           {}
func (mockPublisher) PublishPlaybackStarted(domain.PlaybackStartedEvent) {}
func (mockPublisher) PublishPlaybackFailed(domain.PlaybackFailedEvent)   {}

func newTestRegistry(t *testing.T, resolver *mockResolver) *scheduler.Registry {
	t.Helper()

	if resolver == nil {
		resolver = &mockResolver{}
	}

	registry := scheduler.NewRegistry(scheduler.Dependencies{
		Resolver:    resolver,
		Connections: mockConnections{},
		Publisher:   mockPublisher{},
	}, scheduler.Config{})
	t.Cleanup(registry.Close)

	return registry
}

func newVoiceState() *mockVoiceState {
	return &mockVoiceState{
		channels: map[snowflake.ID]snowflake.ID{userID: voiceChannelID},
	}
}

package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/guildqueue/internal/modules/music_player/application/ports"
	"github.com/sglre6355/guildqueue/internal/modules/music_player/domain"
)

const (
	testGuildID   snowflake.ID = 1000
	testChannelID snowflake.ID = 2000
	otherChannel  snowflake.ID = 2001
	testTextID    snowflake.ID = 3000
	testUserID    snowflake.ID = 4000

	waitFor   = 2 * time.Second
	pollEvery = 5 * time.Millisecond
)

// fakeResolver resolves every query to a track titled after it.
// Queries can be held in flight with hold or made to fail with fail.
type fakeResolver struct {
	mu    sync.Mutex
	calls map[string]int
	gates map[string]chan struct{}
	errs  map[string]error
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{
		calls: make(map[string]int),
		gates: make(map[string]chan struct{}),
		errs:  make(map[string]error),
	}
}

// hold blocks resolutions of query until the returned channel is closed.
func (r *fakeResolver) hold(query string) chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()

	gate := make(chan struct{})
	r.gates[query] = gate
	return gate
}

func (r *fakeResolver) fail(query string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs[query] = err
}

func (r *fakeResolver) callCount(query string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[query]
}

func (r *fakeResolver) Resolve(ctx context.Context, query domain.SearchQuery) (*domain.Track, error) {
	r.mu.Lock()
	r.calls[query.Query]++
	gate := r.gates[query.Query]
	err := r.errs[query.Query]
	r.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if err != nil {
		return nil, err
	}

	return &domain.Track{
		Identifier: query.Query,
		Encoded:    "encoded:" + query.Query,
		Title:      query.Query,
	}, nil
}

// fakeVoice is a connection provider whose playbacks report their end through onEnd.
type fakeVoice struct {
	mu          sync.Mutex
	acquires    []snowflake.ID
	failing     map[snowflake.ID]bool
	played      []domain.EntryID
	playedTitle []string
	playbacks   map[domain.EntryID]*fakePlayback
	active      int
	maxActive   int

	onEnd func(domain.EntryID)
}

func newFakeVoice() *fakeVoice {
	return &fakeVoice{
		failing:   make(map[snowflake.ID]bool),
		playbacks: make(map[domain.EntryID]*fakePlayback),
	}
}

func (v *fakeVoice) failChannel(channelID snowflake.ID) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.failing[channelID] = true
}

func (v *fakeVoice) Acquire(
	_ context.Context,
	_ snowflake.ID,
	channelID snowflake.ID,
) (ports.Connection, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.acquires = append(v.acquires, channelID)
	if v.failing[channelID] {
		return nil, errors.New("cannot join")
	}
	return &fakeConnection{voice: v, channelID: channelID}, nil
}

func (v *fakeVoice) acquireCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.acquires)
}

func (v *fakeVoice) playedIDs() []domain.EntryID {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]domain.EntryID(nil), v.played...)
}

func (v *fakeVoice) maxConcurrent() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.maxActive
}

func (v *fakeVoice) ended(id domain.EntryID) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	p, ok := v.playbacks[id]
	return ok && p.ended
}

// finish ends the playback of id as if the track ran out.
func (v *fakeVoice) finish(id domain.EntryID) {
	v.mu.Lock()
	p := v.playbacks[id]
	v.mu.Unlock()

	if p != nil {
		p.end()
	}
}

type fakeConnection struct {
	voice     *fakeVoice
	channelID snowflake.ID
}

func (c *fakeConnection) ChannelID() snowflake.ID {
	return c.channelID
}

func (c *fakeConnection) Play(
	_ context.Context,
	track *domain.Track,
	entryID domain.EntryID,
) (ports.Playback, error) {
	v := c.voice
	v.mu.Lock()
	defer v.mu.Unlock()

	p := &fakePlayback{voice: v, entryID: entryID}
	v.playbacks[entryID] = p
	v.played = append(v.played, entryID)
	v.playedTitle = append(v.playedTitle, track.Title)
	v.active++
	v.maxActive = max(v.maxActive, v.active)

	return p, nil
}

type fakePlayback struct {
	voice   *fakeVoice
	entryID domain.EntryID
	ended   bool
}

func (p *fakePlayback) Stop(context.Context) error {
	p.end()
	return nil
}

func (p *fakePlayback) end() {
	v := p.voice
	v.mu.Lock()
	if p.ended {
		v.mu.Unlock()
		return
	}
	p.ended = true
	v.active--
	onEnd := v.onEnd
	v.mu.Unlock()

	if onEnd != nil {
		go onEnd(p.entryID)
	}
}

type fakePublisher struct {
	mu      sync.Mutex
	ended   []domain.TrackEndedEvent
	started []domain.PlaybackStartedEvent
	failed  []domain.PlaybackFailedEvent
}

func (p *fakePublisher) PublishTrackEnded(event domain.TrackEndedEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ended = append(p.ended, event)
}

func (p *fakePublisher) PublishPlaybackStarted(event domain.PlaybackStartedEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.started = append(p.started, event)
}

func (p *fakePublisher) PublishPlaybackFailed(event domain.PlaybackFailedEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failed = append(p.failed, event)
}

func (p *fakePublisher) failures() []domain.PlaybackFailedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.PlaybackFailedEvent(nil), p.failed...)
}

func (p *fakePublisher) starts() []domain.PlaybackStartedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.PlaybackStartedEvent(nil), p.started...)
}

type testEnv struct {
	registry  *Registry
	resolver  *fakeResolver
	voice     *fakeVoice
	publisher *fakePublisher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		resolver:  newFakeResolver(),
		voice:     newFakeVoice(),
		publisher: &fakePublisher{},
	}
	env.registry = NewRegistry(Dependencies{
		Resolver:    env.resolver,
		Connections: env.voice,
		Publisher:   env.publisher,
	}, Config{ResolveTimeout: time.Second, ConnectTimeout: time.Second})

	// Completion notifications are routed back the way the event handler does it.
	env.voice.onEnd = func(id domain.EntryID) {
		if g, ok := env.registry.Lookup(testGuildID); ok {
			g.HandleCompletion(context.Background(), id)
		}
	}

	t.Cleanup(env.registry.Close)

	return env
}

func (e *testEnv) guild() *Guild {
	return e.registry.GetOrCreate(testGuildID)
}

func enqueue(g *Guild, query string) domain.QueueEntry {
	return enqueueTo(g, query, testChannelID)
}

func enqueueTo(g *Guild, query string, channelID snowflake.ID) domain.QueueEntry {
	return g.Enqueue(domain.NewSearchQuery(query), channelID, testTextID, testUserID)
}

// isPlaying reports whether id holds the slot with a running playback.
func isPlaying(g *Guild, id domain.EntryID) bool {
	s := g.Snapshot()
	return s.NowPlaying != nil && s.NowPlaying.ID == id && !s.Starting()
}

func entryIDs(entries []domain.QueueEntry) []domain.EntryID {
	result := make([]domain.EntryID, 0, len(entries))
	for _, e := range entries {
		result = append(result, e.ID)
	}
	return result
}

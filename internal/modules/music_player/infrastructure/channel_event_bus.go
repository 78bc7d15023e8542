package infrastructure

import (
	"context"
	"log/slog"
	"sync"

	"github.com/sglre6355/guildqueue/internal/modules/music_player/application/ports"
	"github.com/sglre6355/guildqueue/internal/modules/music_player/domain"
)

// DefaultEventBufferSize is the default buffer size for event channels.
const DefaultEventBufferSize = 100

// Compile-time checks that ChannelEventBus implements ports interfaces.
var (
	_ ports.EventPublisher  = (*ChannelEventBus)(nil)
	_ ports.EventSubscriber = (*ChannelEventBus)(nil)
)

// topic delivers events of one type to its handlers from a single goroutine,
// so handlers observe events in publish order.
type topic[E any] struct {
	name     string
	events   chan E
	handlers []func(context.Context, E)
	// reliable topics make publishers wait for buffer space instead of dropping.
	reliable bool
}

func newTopic[E any](name string, bufferSize int, reliable bool) *topic[E] {
	return &topic[E]{
		name:     name,
		events:   make(chan E, bufferSize),
		reliable: reliable,
	}
}

// ChannelEventBus provides a channel-based event bus for async event handling.
// It implements both EventPublisher and EventSubscriber interfaces.
//
// TrackEnded events are never dropped: a guild only moves on when its
// completion arrives. Notification events are dropped when their buffer is full.
type ChannelEventBus struct {
	trackEnded      *topic[domain.TrackEndedEvent]
	playbackStarted *topic[domain.PlaybackStartedEvent]
	playbackFailed  *topic[domain.PlaybackFailedEvent]

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed bool
	mu     sync.RWMutex
}

// NewChannelEventBus creates a new ChannelEventBus with the given buffer size
// and starts its dispatchers.
func NewChannelEventBus(bufferSize int) *ChannelEventBus {
	if bufferSize <= 0 {
		bufferSize = DefaultEventBufferSize
	}

	ctx, cancel := context.WithCancel(context.Background())

	bus := &ChannelEventBus{
		trackEnded:      newTopic[domain.TrackEndedEvent]("TrackEnded", bufferSize, true),
		playbackStarted: newTopic[domain.PlaybackStartedEvent]("PlaybackStarted", bufferSize, false),
		playbackFailed:  newTopic[domain.PlaybackFailedEvent]("PlaybackFailed", bufferSize, false),
		ctx:             ctx,
		cancel:          cancel,
	}

	bus.wg.Add(3)
	go dispatch(bus, bus.trackEnded)
	go dispatch(bus, bus.playbackStarted)
	go dispatch(bus, bus.playbackFailed)

	return bus
}

func dispatch[E any](b *ChannelEventBus, t *topic[E]) {
	defer b.wg.Done()
	for {
		select {
		case <-b.ctx.Done():
			return
		case event, ok := <-t.events:
			if !ok {
				return
			}
			b.mu.RLock()
			handlers := t.handlers
			b.mu.RUnlock()
			for _, handler := range handlers {
				handler(b.ctx, event)
			}
		}
	}
}

// publish hands event to the topic's dispatcher. On a full buffer, reliable
// topics wait until the event is accepted or the bus is closed; other topics
// drop the event with a warning.
func publish[E any](b *ChannelEventBus, t *topic[E], event E) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		slog.Warn("attempted to publish to closed event bus", "type", t.name)
		return
	}

	select {
	case t.events <- event:
		slog.Debug("published event", "type", t.name)
		return
	default:
	}

	if !t.reliable {
		slog.Warn("event buffer full, dropping event", "type", t.name)
		return
	}

	slog.Debug("event buffer full, waiting", "type", t.name)
	select {
	case t.events <- event:
		slog.Debug("published event", "type", t.name)
	case <-b.ctx.Done():
		slog.Warn("event bus closed while publishing", "type", t.name)
	}
}

func subscribe[E any](b *ChannelEventBus, t *topic[E], handler func(context.Context, E)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t.handlers = append(t.handlers, handler)
}

// --- EventPublisher interface ---

// PublishTrackEnded publishes a TrackEndedEvent.
func (b *ChannelEventBus) PublishTrackEnded(event domain.TrackEndedEvent) {
	publish(b, b.trackEnded, event)
}

// PublishPlaybackStarted publishes a PlaybackStartedEvent.
func (b *ChannelEventBus) PublishPlaybackStarted(event domain.PlaybackStartedEvent) {
	publish(b, b.playbackStarted, event)
}

// PublishPlaybackFailed publishes a PlaybackFailedEvent.
func (b *ChannelEventBus) PublishPlaybackFailed(event domain.PlaybackFailedEvent) {
	publish(b, b.playbackFailed, event)
}

// --- EventSubscriber interface ---

// OnTrackEnded registers a handler for TrackEndedEvent.
func (b *ChannelEventBus) OnTrackEnded(handler func(context.Context, domain.TrackEndedEvent)) {
	subscribe(b, b.trackEnded, handler)
}

// OnPlaybackStarted registers a handler for PlaybackStartedEvent.
func (b *ChannelEventBus) OnPlaybackStarted(
	handler func(context.Context, domain.PlaybackStartedEvent),
) {
	subscribe(b, b.playbackStarted, handler)
}

// OnPlaybackFailed registers a handler for PlaybackFailedEvent.
func (b *ChannelEventBus) OnPlaybackFailed(
	handler func(context.Context, domain.PlaybackFailedEvent),
) {
	subscribe(b, b.playbackFailed, handler)
}

// Close closes all event channels and stops dispatchers.
// After calling Close, publishing will no longer send events.
func (b *ChannelEventBus) Close() {
	// Cancel first so publishers waiting on a full buffer release the read lock.
	b.cancel()

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.mu.Unlock()

	close(b.trackEnded.events)
	close(b.playbackStarted.events)
	close(b.playbackFailed.events)

	b.wg.Wait()

	slog.Debug("channel event bus closed")
}

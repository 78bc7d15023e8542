package ports

import (
	"context"

	"github.com/sglre6355/guildqueue/internal/modules/music_player/domain"
)

// EventSubscriber registers handlers invoked when events are published.
type EventSubscriber interface {
	OnTrackEnded(handler func(context.Context, domain.TrackEndedEvent))
	OnPlaybackStarted(handler func(context.Context, domain.PlaybackStartedEvent))
	OnPlaybackFailed(handler func(context.Context, domain.PlaybackFailedEvent))
}

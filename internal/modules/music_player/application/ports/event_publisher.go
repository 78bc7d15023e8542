package ports

import "github.com/sglre6355/guildqueue/internal/modules/music_player/domain"

// EventPublisher publishes events asynchronously.
// Publishing never blocks the caller.
type EventPublisher interface {
	PublishTrackEnded(event domain.TrackEndedEvent)
	PublishPlaybackStarted(event domain.PlaybackStartedEvent)
	PublishPlaybackFailed(event domain.PlaybackFailedEvent)
}

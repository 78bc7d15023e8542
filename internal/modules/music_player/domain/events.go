package domain

import (
	"github.com/disgoorg/snowflake/v2"
)

// FailureStage tells which step of starting an entry failed.
type FailureStage string

const (
	FailureStageResolve FailureStage = "resolve"
	FailureStageConnect FailureStage = "connect"
	FailureStagePlay    FailureStage = "play"
)

// TrackEndedEvent is published exactly once when a playback started for EntryID ends,
// whether it finished naturally or was stopped.
type TrackEndedEvent struct {
	GuildID snowflake.ID
	EntryID EntryID
}

// PlaybackStartedEvent is published when an entry starts playing.
type PlaybackStartedEvent struct {
	GuildID snowflake.ID
	Entry   QueueEntry
	Track   Track
}

// PlaybackFailedEvent is published when an entry was dropped because it
// could not be resolved, connected or played.
type PlaybackFailedEvent struct {
	GuildID snowflake.ID
	Entry   QueueEntry
	Stage   FailureStage
	Err     error
}

package ports

import "context"

// Playback is a handle to one running track.
type Playback interface {
	// Stop ends the playback. Calling Stop on an already stopped playback is a no-op.
	Stop(ctx context.Context) error
}

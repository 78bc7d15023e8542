package domain

import (
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/google/uuid"
)

// EntryID uniquely identifies a single request in a guild queue.
// It is used to tell live results apart from stale ones.
type EntryID uuid.UUID

// NewEntryID returns a fresh random EntryID.
func NewEntryID() EntryID {
	return EntryID(uuid.New())
}

// IsZero reports whether the id is unset.
func (id EntryID) IsZero() bool {
	return uuid.UUID(id) == uuid.Nil
}

func (id EntryID) String() string {
	return uuid.UUID(id).String()
}

// MarshalText encodes the id in its canonical form, so structured logs and
// JSON carry the string rather than raw bytes.
func (id EntryID) MarshalText() ([]byte, error) {
	return uuid.UUID(id).MarshalText()
}

// QueueEntry represents one pending playback request.
// Entries are immutable once created.
type QueueEntry struct {
	ID                    EntryID
	Query                 SearchQuery
	TargetChannelID       snowflake.ID // voice channel requested by the user
	NotificationChannelID snowflake.ID // text channel the request came from
	RequesterID           snowflake.ID
	EnqueuedAt            time.Time
}

// NewQueueEntry creates a new QueueEntry with a fresh id and the current time as EnqueuedAt.
func NewQueueEntry(
	query SearchQuery,
	targetChannelID snowflake.ID,
	notificationChannelID snowflake.ID,
	requesterID snowflake.ID,
) QueueEntry {
	return QueueEntry{
		ID:                    NewEntryID(),
		Query:                 query,
		TargetChannelID:       targetChannelID,
		NotificationChannelID: notificationChannelID,
		RequesterID:           requesterID,
		EnqueuedAt:            time.Now().UTC(),
	}
}

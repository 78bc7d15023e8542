package usecases

import (
	"context"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/guildqueue/internal/modules/music_player/application/ports"
	"github.com/sglre6355/guildqueue/internal/modules/music_player/application/scheduler"
	"github.com/sglre6355/guildqueue/internal/modules/music_player/domain"
)

const DefaultPageSize = 10

// QueueAddInput contains the input for the QueueAdd use case.
type QueueAddInput struct {
	GuildID               snowflake.ID
	UserID                snowflake.ID
	NotificationChannelID snowflake.ID
	Query                 string
}

// QueueAddOutput contains the result of the QueueAdd use case.
type QueueAddOutput struct {
	Entry          domain.QueueEntry
	VoiceChannelID snowflake.ID
	Position       int // 0 = now playing, 1 = next, ...
}

// QueueListInput contains the input for the QueueList use case.
type QueueListInput struct {
	GuildID  snowflake.ID
	Page     int // 1-indexed page number
	PageSize int // Items per page (optional, defaults to 10)
}

// QueueListOutput contains the result of the QueueList use case.
type QueueListOutput struct {
	NowPlaying   *domain.QueueEntry
	CurrentTrack *domain.Track // nil while the current entry is starting
	Entries      []domain.QueueEntry
	PreloadReady bool
	TotalEntries int
	CurrentPage  int
	TotalPages   int
	PageStart    int // 0-indexed position of Entries[0] among queued entries
}

// QueueService handles enqueueing and listing.
type QueueService struct {
	registry   *scheduler.Registry
	voiceState ports.VoiceStateProvider
}

// NewQueueService creates a new QueueService.
func NewQueueService(
	registry *scheduler.Registry,
	voiceState ports.VoiceStateProvider,
) *QueueService {
	return &QueueService{
		registry:   registry,
		voiceState: voiceState,
	}
}

// Add enqueues the query for playback in the requester's current voice channel.
func (q *QueueService) Add(_ context.Context, input QueueAddInput) (*QueueAddOutput, error) {
	query := domain.NewSearchQuery(input.Query)
	if !query.IsValid() {
		return nil, domain.ErrInvalidQuery
	}

	voiceChannelID, err := q.voiceState.UserVoiceChannel(input.GuildID, input.UserID)
	if err != nil {
		return nil, err
	}

	guild := q.registry.GetOrCreate(input.GuildID)
	entry := guild.Enqueue(query, voiceChannelID, input.NotificationChannelID, input.UserID)

	return &QueueAddOutput{
		Entry:          entry,
		VoiceChannelID: voiceChannelID,
		Position:       position(guild.Snapshot(), entry.ID),
	}, nil
}

// position returns where id sits relative to the current entry.
// An entry that already left the queue is reported as now playing.
func position(s scheduler.Snapshot, id domain.EntryID) int {
	for i, e := range s.Queue {
		if e.ID == id {
			return i + 1
		}
	}
	return 0
}

// List returns the guild's queue with pagination.
// It never creates state for an unknown guild.
func (q *QueueService) List(input QueueListInput) (*QueueListOutput, error) {
	guild, ok := q.registry.Lookup(input.GuildID)
	if !ok {
		return &QueueListOutput{CurrentPage: 1, TotalPages: 1}, nil
	}

	s := guild.Snapshot()
	if s.NowPlaying == nil && len(s.Queue) == 0 {
		return &QueueListOutput{CurrentPage: 1, TotalPages: 1}, nil
	}

	pageSize := input.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	page := input.Page
	if page <= 0 {
		page = 1
	}

	total := len(s.Queue)
	totalPages := (total + pageSize - 1) / pageSize
	if totalPages == 0 {
		totalPages = 1
	}
	if page > totalPages {
		page = totalPages
	}

	start := (page - 1) * pageSize
	end := min(start+pageSize, total)

	var entries []domain.QueueEntry
	if start < total {
		entries = s.Queue[start:end]
	}

	return &QueueListOutput{
		NowPlaying:   s.NowPlaying,
		CurrentTrack: s.Track,
		Entries:      entries,
		PreloadReady: len(s.Queue) > 0 && s.PreloadID == s.Queue[0].ID && s.PreloadReady,
		TotalEntries: total,
		CurrentPage:  page,
		TotalPages:   totalPages,
		PageStart:    start,
	}, nil
}

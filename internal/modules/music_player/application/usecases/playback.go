package usecases

import (
	"context"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/guildqueue/internal/modules/music_player/application/scheduler"
	"github.com/sglre6355/guildqueue/internal/modules/music_player/domain"
)

// SkipInput contains the input for the Skip use case.
type SkipInput struct {
	GuildID snowflake.ID
	Count   int // 0 is treated as 1
}

// SkipOutput contains the result of the Skip use case.
type SkipOutput struct {
	Skipped int // includes the entry that was playing
}

// StopInput contains the input for the Stop use case.
type StopInput struct {
	GuildID snowflake.ID
}

// ShuffleInput contains the input for the Shuffle use case.
type ShuffleInput struct {
	GuildID snowflake.ID
}

// PlaybackService handles operations on the current playback and queue order.
type PlaybackService struct {
	registry *scheduler.Registry
}

// NewPlaybackService creates a new PlaybackService.
func NewPlaybackService(registry *scheduler.Registry) *PlaybackService {
	return &PlaybackService{registry: registry}
}

// Skip skips the current entry and the next Count-1 entries.
func (p *PlaybackService) Skip(ctx context.Context, input SkipInput) (*SkipOutput, error) {
	count := input.Count
	if count == 0 {
		count = 1
	}
	if count < 1 {
		return nil, domain.ErrInvalidSkipCount
	}

	guild, ok := p.registry.Lookup(input.GuildID)
	if !ok {
		return nil, domain.ErrNoSongPlaying
	}

	skipped, err := guild.Skip(ctx, count)
	if err != nil {
		return nil, err
	}

	return &SkipOutput{Skipped: skipped}, nil
}

// Stop stops playback and clears the queue.
func (p *PlaybackService) Stop(ctx context.Context, input StopInput) error {
	guild, ok := p.registry.Lookup(input.GuildID)
	if !ok {
		return domain.ErrNoSongPlaying
	}

	return guild.Stop(ctx)
}

// Shuffle shuffles the pending entries.
func (p *PlaybackService) Shuffle(input ShuffleInput) error {
	guild, ok := p.registry.Lookup(input.GuildID)
	if !ok {
		return domain.ErrQueueIsEmpty
	}

	return guild.Shuffle()
}

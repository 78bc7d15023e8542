package usecases

import (
	"context"
	"testing"

	"github.com/sglre6355/guildqueue/internal/modules/music_player/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaybackService_UnknownGuild(t *testing.T) {
	registry := newTestRegistry(t, nil)
	service := NewPlaybackService(registry)

	_, err := service.Skip(context.Background(), SkipInput{GuildID: guildID})
	require.ErrorIs(t, err, domain.ErrNoSongPlaying)

	err = service.Stop(context.Background(), StopInput{GuildID: guildID})
	require.ErrorIs(t, err, domain.ErrNoSongPlaying)

	err = service.Shuffle(ShuffleInput{GuildID: guildID})
	require.ErrorIs(t, err, domain.ErrQueueIsEmpty)

	assert.Zero(t, registry.Len())
}

func TestPlaybackService_Skip(t *testing.T) {
	tests := []struct {
		name        string
		count       int
		wantSkipped int
		wantErr     error
	}{
		{name: "default count", count: 0, wantSkipped: 1},
		{name: "two", count: 2, wantSkipped: 2},
		{name: "more than queued", count: 10, wantSkipped: 3},
		{name: "negative", count: -1, wantErr: domain.ErrInvalidSkipCount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := newTestRegistry(t, nil)
			queue := NewQueueService(registry, newVoiceState())
			service := NewPlaybackService(registry)

			for _, q := range []string{"a", "b", "c"} {
				_, err := queue.Add(context.Background(), QueueAddInput{GuildID: guildID, UserID: userID, Query: q})
				require.NoError(t, err)
			}
			require.Eventually(t, func() bool {
				output, err := queue.List(QueueListInput{GuildID: guildID})
				return err == nil && output.CurrentTrack != nil
			}, waitFor, pollEvery)

			output, err := service.Skip(context.Background(), SkipInput{GuildID: guildID, Count: tt.count})

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSkipped, output.Skipped)
		})
	}
}

func TestPlaybackService_StopAndShuffle(t *testing.T) {
	registry := newTestRegistry(t, nil)
	queue := NewQueueService(registry, newVoiceState())
	service := NewPlaybackService(registry)

	for _, q := range []string{"a", "b", "c"} {
		_, err := queue.Add(context.Background(), QueueAddInput{GuildID: guildID, UserID: userID, Query: q})
		require.NoError(t, err)
	}

	require.NoError(t, service.Shuffle(ShuffleInput{GuildID: guildID}))
	require.NoError(t, service.Stop(context.Background(), StopInput{GuildID: guildID}))

	output, err := queue.List(QueueListInput{GuildID: guildID})
	require.NoError(t, err)
	assert.Nil(t, output.NowPlaying)
	assert.Zero(t, output.TotalEntries)

	require.ErrorIs(t, service.Shuffle(ShuffleInput{GuildID: guildID}), domain.ErrQueueIsEmpty)
}

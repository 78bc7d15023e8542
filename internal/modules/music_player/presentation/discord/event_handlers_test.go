package discord

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/guildqueue/internal/modules/music_player/application/ports"
	"github.com/sglre6355/guildqueue/internal/modules/music_player/application/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingConnections struct {
	acquires atomic.Int32
}

func (c *countingConnections) Acquire(_ context.Context, _, channelID snowflake.ID) (ports.Connection, error) {
	c.acquires.Add(1)
	return stubConnection(channelID), nil
}

// endingForwarder ends the running entry when a disconnect is forwarded,
// the way Lavalink drops the player.
type endingForwarder struct {
	guild           *scheduler.Guild
	forwarded       int
	connectedBefore snowflake.ID
}

func (f *endingForwarder) OnVoiceStateUpdate(*discordgo.VoiceStateUpdate) {
	f.forwarded++

	s := f.guild.Snapshot()
	f.connectedBefore = s.ConnectedChannelID
	if s.NowPlaying != nil {
		f.guild.HandleCompletion(context.Background(), s.NowPlaying.ID)
	}
}

func voiceStateUpdate(userID, channelID, beforeChannelID string) *discordgo.VoiceStateUpdate {
	event := &discordgo.VoiceStateUpdate{
		VoiceState: &discordgo.VoiceState{
			GuildID:   guildID.String(),
			UserID:    userID,
			ChannelID: channelID,
		},
	}
	if beforeChannelID != "" {
		event.BeforeUpdate = &discordgo.VoiceState{
			GuildID:   guildID.String(),
			UserID:    userID,
			ChannelID: beforeChannelID,
		}
	}
	return event
}

func TestHandleVoiceStateUpdate(t *testing.T) {
	tests := []struct {
		name          string
		event         *discordgo.VoiceStateUpdate
		wantConnected bool
	}{
		{
			name:          "bot disconnected",
			event:         voiceStateUpdate(botID.String(), "", voiceChannelID.String()),
			wantConnected: false,
		},
		{
			name:          "bot disconnected without previous state",
			event:         voiceStateUpdate(botID.String(), "", ""),
			wantConnected: false,
		},
		{
			name:          "bot disconnected from another channel",
			event:         voiceStateUpdate(botID.String(), "", "999"),
			wantConnected: true,
		},
		{
			name:          "other user disconnected",
			event:         voiceStateUpdate(userID.String(), "", voiceChannelID.String()),
			wantConnected: true,
		},
		{
			name:          "bot moved",
			event:         voiceStateUpdate(botID.String(), "999", voiceChannelID.String()),
			wantConnected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, registry := newTestHandlers(t)
			play(t, h, "a")
			waitUntilPlaying(t, registry)

			guild := registry.GetOrCreate(guildID)
			assert.Equal(t, voiceChannelID, guild.Snapshot().ConnectedChannelID)

			NewEventHandlers(botID, registry, nil).HandleVoiceStateUpdate(nil, tt.event)

			connected := guild.Snapshot().ConnectedChannelID != 0
			assert.Equal(t, tt.wantConnected, connected)
		})
	}
}

func TestHandleVoiceStateUpdate_UnknownGuild(t *testing.T) {
	_, registry := newTestHandlers(t)

	NewEventHandlers(botID, registry, nil).HandleVoiceStateUpdate(
		nil,
		voiceStateUpdate(botID.String(), "", voiceChannelID.String()),
	)

	assert.Zero(t, registry.Len())
}

func TestHandleVoiceStateUpdate_ForwardsAfterRelease(t *testing.T) {
	connections := &countingConnections{}
	h, registry := newTestHandlersWith(t, connections)

	play(t, h, "a")
	play(t, h, "b")
	waitUntilPlaying(t, registry)

	guild := registry.GetOrCreate(guildID)
	require.Eventually(t, func() bool {
		return guild.Snapshot().PreloadReady
	}, waitFor, pollEvery)
	require.Equal(t, int32(1), connections.acquires.Load())

	forwarder := &endingForwarder{guild: guild}
	NewEventHandlers(botID, registry, forwarder).HandleVoiceStateUpdate(
		nil,
		voiceStateUpdate(botID.String(), "", voiceChannelID.String()),
	)

	assert.Equal(t, 1, forwarder.forwarded)
	assert.Zero(t, forwarder.connectedBefore)

	// "b" has to join voice again rather than play on the dropped connection.
	require.Eventually(t, func() bool {
		s := guild.Snapshot()
		return s.Track != nil && s.NowPlaying.Query.Query == "b"
	}, waitFor, pollEvery)
	assert.Equal(t, int32(2), connections.acquires.Load())
	assert.Equal(t, voiceChannelID, guild.Snapshot().ConnectedChannelID)
}

func TestHandleVoiceStateUpdate_ForwardsOtherUpdates(t *testing.T) {
	_, registry := newTestHandlers(t)
	forwarder := &endingForwarder{guild: registry.GetOrCreate(guildID)}

	NewEventHandlers(botID, registry, forwarder).HandleVoiceStateUpdate(
		nil,
		voiceStateUpdate(userID.String(), voiceChannelID.String(), ""),
	)

	assert.Equal(t, 1, forwarder.forwarded)
}

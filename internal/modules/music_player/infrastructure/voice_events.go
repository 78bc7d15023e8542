package infrastructure

import (
	"context"
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
)

// voiceSession buffers the two gateway events Lavalink needs for a guild.
// Lavalink rejects a partial voice state, so events are only forwarded once
// both a VoiceStateUpdate and a VoiceServerUpdate have arrived.
type voiceSession struct {
	channelID *snowflake.ID
	sessionID string
	hasState  bool

	token     string
	endpoint  string
	hasServer bool

	// connectedTo is the channel of the last session forwarded to Lavalink.
	connectedTo snowflake.ID

	// ready is closed when the events requested by a join have been forwarded.
	ready chan struct{}
}

func (s *voiceSession) complete() bool {
	return s.hasState && s.hasServer
}

func (s *voiceSession) reset() {
	s.channelID = nil
	s.sessionID = ""
	s.hasState = false
	s.token = ""
	s.endpoint = ""
	s.hasServer = false
}

func (s *voiceSession) signal() {
	if s.ready == nil {
		return
	}
	select {
	case <-s.ready:
	default:
		close(s.ready)
	}
}

// voiceSessions tracks voice sessions per guild.
type voiceSessions struct {
	mu       sync.Mutex
	sessions map[snowflake.ID]*voiceSession
}

func newVoiceSessions() *voiceSessions {
	return &voiceSessions{sessions: make(map[snowflake.ID]*voiceSession)}
}

// expect prepares a fresh ready channel for a join in guildID.
func (v *voiceSessions) expect(guildID snowflake.ID) <-chan struct{} {
	v.mu.Lock()
	defer v.mu.Unlock()

	s := v.getLocked(guildID)
	s.ready = make(chan struct{})
	return s.ready
}

func (v *voiceSessions) getLocked(guildID snowflake.ID) *voiceSession {
	s, ok := v.sessions[guildID]
	if !ok {
		s = &voiceSession{}
		v.sessions[guildID] = s
	}
	return s
}

// connected returns the channel Lavalink was last given for guildID, or 0.
func (v *voiceSessions) connected(guildID snowflake.ID) snowflake.ID {
	v.mu.Lock()
	defer v.mu.Unlock()

	if s, ok := v.sessions[guildID]; ok {
		return s.connectedTo
	}
	return 0
}

// drop forgets the guild's session. A pending join keeps waiting until its context ends.
func (v *voiceSessions) drop(guildID snowflake.ID) {
	v.mu.Lock()
	defer v.mu.Unlock()

	delete(v.sessions, guildID)
}

// OnVoiceServerUpdate handles Discord voice server updates.
// This must be called from the Discord event handler.
func (c *LavalinkAdapter) OnVoiceServerUpdate(event *discordgo.VoiceServerUpdate) {
	guildID, err := snowflake.Parse(event.GuildID)
	if err != nil {
		slog.Error("failed to parse guild ID in voice server update", "error", err)
		return
	}

	c.voice.mu.Lock()
	s := c.voice.getLocked(guildID)
	s.token = event.Token
	s.endpoint = event.Endpoint
	s.hasServer = true
	c.forwardLocked(guildID, s)
	c.voice.mu.Unlock()
}

// OnVoiceStateUpdate handles voice state updates of the bot user.
// This must be called from the Discord event handler.
func (c *LavalinkAdapter) OnVoiceStateUpdate(event *discordgo.VoiceStateUpdate) {
	if event.UserID != c.botID.String() {
		return
	}

	guildID, err := snowflake.Parse(event.GuildID)
	if err != nil {
		slog.Error("failed to parse guild ID in voice state update", "error", err)
		return
	}

	if event.ChannelID == "" {
		// Disconnects are forwarded immediately.
		c.link.OnVoiceStateUpdate(context.Background(), guildID, nil, event.SessionID)
		c.voice.drop(guildID)
		c.forgetPlayer(guildID)
		return
	}

	channelID, err := snowflake.Parse(event.ChannelID)
	if err != nil {
		slog.Error("failed to parse channel ID in voice state update", "error", err)
		return
	}

	c.voice.mu.Lock()
	s := c.voice.getLocked(guildID)
	s.channelID = &channelID
	s.sessionID = event.SessionID
	s.hasState = true
	c.forwardLocked(guildID, s)
	c.voice.mu.Unlock()
}

// forwardLocked sends a complete voice session to Lavalink. c.voice.mu must be held.
func (c *LavalinkAdapter) forwardLocked(guildID snowflake.ID, s *voiceSession) {
	if !s.complete() {
		return
	}

	slog.Debug("forwarding voice session to Lavalink",
		"guild", guildID,
		"channel", s.channelID,
	)

	c.link.OnVoiceStateUpdate(context.Background(), guildID, s.channelID, s.sessionID)
	c.link.OnVoiceServerUpdate(context.Background(), guildID, s.token, s.endpoint)

	s.connectedTo = *s.channelID
	s.reset()
	s.signal()
}

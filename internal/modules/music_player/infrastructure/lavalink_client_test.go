package infrastructure

import (
	"testing"
	"time"

	"github.com/disgoorg/disgolink/v3/lavalink"
	"github.com/sglre6355/guildqueue/internal/modules/music_player/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lavalinkTrack(title string) lavalink.Track {
	uri := "https://example.com/" + title
	return lavalink.Track{
		Encoded: "encoded-" + title,
		Info: lavalink.TrackInfo{
			Identifier: title,
			Title:      title,
			Author:     "artist",
			Length:     90000,
			URI:        &uri,
			SourceName: "youtube",
		},
	}
}

func TestFirstTrack(t *testing.T) {
	tests := []struct {
		name      string
		result    *lavalink.LoadResult
		wantTitle string
		wantErr   bool
	}{
		{name: "single track", result: &lavalink.LoadResult{Data: lavalinkTrack("a")}, wantTitle: "a"},
		{
			name: "playlist",
			result: &lavalink.LoadResult{Data: lavalink.Playlist{
				Tracks: []lavalink.Track{lavalinkTrack("b"), lavalinkTrack("c")},
			}},
			wantTitle: "b",
		},
		{name: "empty playlist", result: &lavalink.LoadResult{Data: lavalink.Playlist{}}, wantErr: true},
		{
			name:      "search",
			result:    &lavalink.LoadResult{Data: lavalink.Search{lavalinkTrack("d"), lavalinkTrack("e")}},
			wantTitle: "d",
		},
		{name: "empty search", result: &lavalink.LoadResult{Data: lavalink.Search{}}, wantErr: true},
		{name: "no matches", result: &lavalink.LoadResult{Data: lavalink.Empty{}}, wantErr: true},
		{name: "exception", result: &lavalink.LoadResult{Data: lavalink.Exception{Message: "blocked"}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			track, err := firstTrack(tt.result)

			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantTitle, track.Title)
			assert.Equal(t, "encoded-"+tt.wantTitle, track.Encoded)
		})
	}
}

func TestConvertTrack(t *testing.T) {
	track := convertTrack(lavalinkTrack("a"))

	assert.Equal(t, "a", track.Identifier)
	assert.Equal(t, "artist", track.Artist)
	assert.Equal(t, 90*time.Second, track.Duration)
	assert.Equal(t, "https://example.com/a", track.URI)
	assert.Empty(t, track.ArtworkURL)
	assert.Equal(t, domain.TrackSourceYouTube, track.Source())
}

func TestGuildPlayer_Finish(t *testing.T) {
	a, b, c := domain.NewEntryID(), domain.NewEntryID(), domain.NewEntryID()

	p := &guildPlayer{started: []startedTrack{
		{entryID: a, encoded: "x"},
		{entryID: b, encoded: "y"},
		{entryID: c, encoded: "x"},
	}}

	assert.Nil(t, p.finish("unknown"))
	assert.Equal(t, []domain.EntryID{a}, p.finish("x"))
	assert.Equal(t, []domain.EntryID{b, c}, p.finish("x"))
	assert.Empty(t, p.started)
	assert.Nil(t, p.finish("y"))
}

func TestVoiceSessions(t *testing.T) {
	sessions := newVoiceSessions()
	assert.Zero(t, sessions.connected(1))

	ready := sessions.expect(1)

	sessions.mu.Lock()
	s := sessions.getLocked(1)
	assert.False(t, s.complete())
	s.hasState = true
	s.hasServer = true
	assert.True(t, s.complete())
	s.connectedTo = 5
	s.reset()
	s.signal()
	s.signal()
	sessions.mu.Unlock()

	select {
	case <-ready:
	default:
		t.Fatal("ready was not closed")
	}
	assert.Equal(t, uint64(5), uint64(sessions.connected(1)))

	sessions.drop(1)
	assert.Zero(t, sessions.connected(1))
}

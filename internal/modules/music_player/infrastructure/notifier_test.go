package infrastructure

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sglre6355/guildqueue/internal/modules/music_player/application/ports"
	"github.com/sglre6355/guildqueue/internal/modules/music_player/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifier_NowPlayingEmbed(t *testing.T) {
	n := NewNotifier(nil)
	enqueuedAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	embed := n.nowPlayingEmbed(&ports.NowPlayingInfo{
		Track: domain.Track{
			Title:      "Song",
			URI:        "https://soundcloud.com/a/song",
			ArtworkURL: "https://i1.sndcdn.com/artwork.jpg",
			SourceName: "soundcloud",
			Duration:   3*time.Minute + 7*time.Second,
		},
		RequesterName:      "alice",
		RequesterAvatarURL: "https://cdn.example/alice.png",
		EnqueuedAt:         enqueuedAt,
	})

	assert.Equal(t, "Song", embed.Title)
	assert.Equal(t, "https://soundcloud.com/a/song", embed.URL)
	assert.Equal(t, domain.TrackSourceSoundCloud.Color(), embed.Color)
	assert.Equal(t, "2024-05-01T12:00:00Z", embed.Timestamp)
	require.Len(t, embed.Fields, 2)
	assert.Equal(t, "Unknown", embed.Fields[0].Value)
	assert.Equal(t, "03:07", embed.Fields[1].Value)
	assert.Equal(t, "Requested by alice", embed.Footer.Text)
	require.NotNil(t, embed.Image)
	assert.Equal(t, "https://i1.sndcdn.com/artwork.jpg", embed.Image.URL)
}

func TestNotifier_NowPlayingEmbedWithoutArtwork(t *testing.T) {
	n := NewNotifier(nil)

	embed := n.nowPlayingEmbed(&ports.NowPlayingInfo{
		Track: domain.Track{Title: "Radio", SourceName: "http", IsStream: true},
	})

	assert.Nil(t, embed.Image)
	assert.Equal(t, "LIVE", embed.Fields[1].Value)
}

func TestNotifier_TwitchThumbnail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "1280x720") {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(server.Close)

	n := NewNotifier(nil)

	got := n.getBestThumbnail(domain.TrackSourceTwitch, "", server.URL+"/preview-440x248.jpg")
	assert.Equal(t, server.URL+"/preview-1280x720.jpg", got)

	got = n.getBestThumbnail(domain.TrackSourceTwitch, "", server.URL+"/preview.jpg")
	assert.Equal(t, server.URL+"/preview.jpg", got)
}

func TestNotifier_URLExists(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		if r.URL.Path == "/ok" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(server.Close)

	n := NewNotifier(nil)

	assert.True(t, n.urlExists(t.Context(), server.URL+"/ok"))
	assert.False(t, n.urlExists(t.Context(), server.URL+"/missing"))
	assert.False(t, n.urlExists(t.Context(), "://bad"))
}

package infrastructure

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/guildqueue/internal/modules/music_player/application/ports"
	"github.com/sglre6355/guildqueue/internal/modules/music_player/domain"
)

// Embed colors.
const (
	colorRed = 0xE74C3C
)

const thumbnailProbeTimeout = 5 * time.Second

var youTubeThumbnailQualities = []string{"maxresdefault", "sddefault", "hqdefault", "mqdefault"}

// Notifier sends notifications to Discord channels.
type Notifier struct {
	session    *discordgo.Session
	httpClient *http.Client // probes thumbnail URLs
}

// NewNotifier creates a new Notifier.
func NewNotifier(session *discordgo.Session) *Notifier {
	return &Notifier{
		session: session,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// SendNowPlaying sends a "Now Playing" embed to the channel.
func (n *Notifier) SendNowPlaying(channelID snowflake.ID, info *ports.NowPlayingInfo) error {
	embed := n.nowPlayingEmbed(info)

	_, err := n.session.ChannelMessageSendEmbed(channelID.String(), embed)
	if err != nil {
		return fmt.Errorf("failed to send now playing embed: %w", err)
	}
	return nil
}

func (n *Notifier) nowPlayingEmbed(info *ports.NowPlayingInfo) *discordgo.MessageEmbed {
	track := info.Track
	source := track.Source()

	artist := track.Artist
	if artist == "" {
		artist = "Unknown"
	}

	embed := &discordgo.MessageEmbed{
		Author: &discordgo.MessageEmbedAuthor{
			Name: "Now Playing",
		},
		Title:     track.Title,
		URL:       track.URI,
		Color:     source.Color(),
		Timestamp: info.EnqueuedAt.UTC().Format(time.RFC3339),
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:   "Artist",
				Value:  artist,
				Inline: true,
			},
			{
				Name:   "Duration",
				Value:  track.FormattedDuration(),
				Inline: true,
			},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text:    fmt.Sprintf("Requested by %s", info.RequesterName),
			IconURL: info.RequesterAvatarURL,
		},
	}

	if thumbnailURL := n.getBestThumbnail(
		source,
		track.Identifier,
		track.ArtworkURL,
	); thumbnailURL != "" {
		embed.Image = &discordgo.MessageEmbedImage{
			URL: thumbnailURL,
		}
	}

	return embed
}

// SendError sends an error message embed to the channel.
func (n *Notifier) SendError(channelID snowflake.ID, message string) error {
	embed := &discordgo.MessageEmbed{
		Description: message,
		Color:       colorRed,
	}

	_, err := n.session.ChannelMessageSendEmbed(channelID.String(), embed)
	if err != nil {
		return fmt.Errorf("failed to send error embed: %w", err)
	}
	return nil
}

// getBestThumbnail returns the largest thumbnail available for the track.
// YouTube and Twitch are probed for higher resolutions; other sources use
// the artwork Lavalink reported.
func (n *Notifier) getBestThumbnail(
	source domain.TrackSource,
	identifier string,
	fallbackURL string,
) string {
	ctx, cancel := context.WithTimeout(context.Background(), thumbnailProbeTimeout)
	defer cancel()

	switch source {
	case domain.TrackSourceYouTube:
		if identifier == "" {
			return fallbackURL
		}
		for _, quality := range youTubeThumbnailQualities {
			url := fmt.Sprintf("https://img.youtube.com/vi/%s/%s.jpg", identifier, quality)
			if n.urlExists(ctx, url) {
				return url
			}
		}
		return fallbackURL

	case domain.TrackSourceTwitch:
		highResURL := strings.Replace(fallbackURL, "440x248", "1280x720", 1)
		if highResURL != fallbackURL && n.urlExists(ctx, highResURL) {
			return highResURL
		}
		return fallbackURL

	default:
		return fallbackURL
	}
}

// urlExists checks if a URL returns a successful response using a HEAD request.
func (n *Notifier) urlExists(ctx context.Context, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return false
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	return resp.StatusCode == http.StatusOK
}

// Ensure Notifier implements ports.NotificationSender.
var _ ports.NotificationSender = (*Notifier)(nil)

package domain

// TrackSource represents the origin platform of a track.
type TrackSource string

const (
	TrackSourceYouTube    TrackSource = "youtube"
	TrackSourceSpotify    TrackSource = "spotify"
	TrackSourceSoundCloud TrackSource = "soundcloud"
	TrackSourceTwitch     TrackSource = "twitch"
	TrackSourceOther      TrackSource = "other"
)

// ParseTrackSource converts a source name string to a TrackSource.
func ParseTrackSource(name string) TrackSource {
	switch name {
	case "youtube":
		return TrackSourceYouTube
	case "spotify":
		return TrackSourceSpotify
	case "soundcloud":
		return TrackSourceSoundCloud
	case "twitch":
		return TrackSourceTwitch
	default:
		return TrackSourceOther
	}
}

// Color returns the embed accent color associated with the source.
func (s TrackSource) Color() int {
	switch s {
	case TrackSourceYouTube:
		return 0xFF0000
	case TrackSourceSpotify:
		return 0x1DB954
	case TrackSourceSoundCloud:
		return 0xFF5500
	case TrackSourceTwitch:
		return 0x9146FF
	default:
		return 0x08C404
	}
}

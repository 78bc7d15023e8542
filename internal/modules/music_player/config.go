package music_player

import "time"

// Config holds the music player module configuration.
type Config struct {
	LavalinkAddress  string `env:"LAVALINK_ADDRESS,notEmpty"`
	LavalinkPassword string `env:"LAVALINK_PASSWORD,notEmpty"`
	LavalinkSecure   bool   `env:"LAVALINK_SECURE"                envDefault:"false"`

	ResolveTimeout time.Duration `env:"RESOLVE_TIMEOUT" envDefault:"15s"`
	ConnectTimeout time.Duration `env:"CONNECT_TIMEOUT" envDefault:"10s"`

	// Track loads per second across all guilds.
	ResolveRate  float64 `env:"RESOLVE_RATE"  envDefault:"5"`
	ResolveBurst int     `env:"RESOLVE_BURST" envDefault:"10"`

	EventBufferSize int `env:"EVENT_BUFFER_SIZE" envDefault:"100"`
}

package scheduler

import (
	"time"

	"github.com/sglre6355/guildqueue/internal/modules/music_player/application/ports"
)

const (
	DefaultResolveTimeout = 15 * time.Second
	DefaultConnectTimeout = 10 * time.Second
)

// Config bounds the external calls made while starting or preloading an entry.
type Config struct {
	ResolveTimeout time.Duration
	ConnectTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.ResolveTimeout <= 0 {
		c.ResolveTimeout = DefaultResolveTimeout
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	return c
}

// Dependencies are the collaborators every guild uses.
type Dependencies struct {
	Resolver    ports.Resolver
	Connections ports.ConnectionProvider
	Publisher   ports.EventPublisher
}

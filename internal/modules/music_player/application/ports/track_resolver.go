package ports

import (
	"context"

	"github.com/sglre6355/guildqueue/internal/modules/music_player/domain"
)

// Resolver turns a search query or URL into a playable track.
// Resolve may block for an arbitrary amount of time; callers bound it with ctx.
type Resolver interface {
	Resolve(ctx context.Context, query domain.SearchQuery) (*domain.Track, error)
}

package scheduler

import (
	"context"
	"log/slog"
	"sync"

	"github.com/disgoorg/snowflake/v2"
)

// Registry maps guild IDs to their queue state.
// Guilds are created lazily and live for the lifetime of the registry.
type Registry struct {
	mu     sync.RWMutex
	guilds map[snowflake.ID]*Guild

	deps   Dependencies
	config Config
	runner *runner
}

// NewRegistry creates an empty Registry. Background work spawned by its guilds
// runs until Close is called.
func NewRegistry(deps Dependencies, config Config) *Registry {
	return &Registry{
		guilds: make(map[snowflake.ID]*Guild),
		deps:   deps,
		config: config.withDefaults(),
		runner: newRunner(),
	}
}

// GetOrCreate returns the state for guildID, creating it on first use.
// Concurrent first calls for the same guild all observe the same *Guild.
func (r *Registry) GetOrCreate(guildID snowflake.ID) *Guild {
	r.mu.RLock()
	g, ok := r.guilds[guildID]
	r.mu.RUnlock()
	if ok {
		return g
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if g, ok := r.guilds[guildID]; ok {
		return g
	}

	g = newGuild(guildID, r.deps, r.config, r.runner)
	r.guilds[guildID] = g

	slog.Debug("created guild queue", "guild", guildID)

	return g
}

// Lookup returns the state for guildID if it exists.
func (r *Registry) Lookup(guildID snowflake.ID) (*Guild, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.guilds[guildID]
	return g, ok
}

// Len returns the number of known guilds.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.guilds)
}

// Close cancels in-flight resolutions and connection attempts and waits for
// them to return. Guilds keep accepting commands afterwards but no longer
// start playback.
func (r *Registry) Close() {
	r.runner.close()
}

// runner owns the goroutines spawned on behalf of guilds.
type runner struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func newRunner() *runner {
	ctx, cancel := context.WithCancel(context.Background())
	return &runner{ctx: ctx, cancel: cancel}
}

// spawn runs fn in a new goroutine. It reports false if the runner is closed.
func (r *runner) spawn(fn func(ctx context.Context)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return false
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		fn(r.ctx)
	}()

	return true
}

func (r *runner) close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.mu.Unlock()

	r.cancel()
	r.wg.Wait()
}

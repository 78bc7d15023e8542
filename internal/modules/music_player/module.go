package music_player

import (
	"context"
	"errors"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/caarlos0/env/v11"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/guildqueue/internal/bot"
	"github.com/sglre6355/guildqueue/internal/modules/music_player/application"
	"github.com/sglre6355/guildqueue/internal/modules/music_player/application/scheduler"
	"github.com/sglre6355/guildqueue/internal/modules/music_player/application/usecases"
	"github.com/sglre6355/guildqueue/internal/modules/music_player/infrastructure"
	"github.com/sglre6355/guildqueue/internal/modules/music_player/presentation/discord"
)

func init() {
	bot.Register(&MusicPlayerModule{})
}

// Compile-time interface checks.
var _ bot.ConfigurableModule = (*MusicPlayerModule)(nil)

// MusicPlayerModule provides the guild queue commands.
type MusicPlayerModule struct {
	config          *Config
	registry        *scheduler.Registry
	commandHandlers *discord.CommandHandlers
	eventHandlers   *discord.EventHandlers
	lavalinkAdapter *infrastructure.LavalinkAdapter
	eventBus        *infrastructure.ChannelEventBus
}

// Name returns the module name.
func (m *MusicPlayerModule) Name() string {
	return "music_player"
}

// Commands returns the slash commands for this module.
func (m *MusicPlayerModule) Commands() []*discordgo.ApplicationCommand {
	return discord.Commands()
}

// CommandHandlers returns the command handlers for this module.
func (m *MusicPlayerModule) CommandHandlers() map[string]bot.InteractionHandler {
	return map[string]bot.InteractionHandler{
		"play":    m.handle(func(h *discord.CommandHandlers) bot.InteractionHandler { return h.HandlePlay }),
		"skip":    m.handle(func(h *discord.CommandHandlers) bot.InteractionHandler { return h.HandleSkip }),
		"stop":    m.handle(func(h *discord.CommandHandlers) bot.InteractionHandler { return h.HandleStop }),
		"shuffle": m.handle(func(h *discord.CommandHandlers) bot.InteractionHandler { return h.HandleShuffle }),
		"queue":   m.handle(func(h *discord.CommandHandlers) bot.InteractionHandler { return h.HandleQueue }),
	}
}

// handle defers the handler lookup to call time, since command handlers are
// only built in Init.
func (m *MusicPlayerModule) handle(
	pick func(*discord.CommandHandlers) bot.InteractionHandler,
) bot.InteractionHandler {
	return func(s *discordgo.Session, i *discordgo.InteractionCreate, r bot.Responder) error {
		if m.commandHandlers == nil {
			return errors.New("music_player module is not initialized")
		}
		return pick(m.commandHandlers)(s, i, r)
	}
}

// EventHandlers returns the event handlers for this module.
func (m *MusicPlayerModule) EventHandlers() []bot.EventHandler {
	return []bot.EventHandler{
		func(s *discordgo.Session, event *discordgo.VoiceServerUpdate) {
			m.handleVoiceServerUpdate(s, event)
		},
		func(s *discordgo.Session, event *discordgo.VoiceStateUpdate) {
			m.handleVoiceStateUpdate(s, event)
		},
	}
}

// LoadConfig loads module-specific configuration from environment variables.
func (m *MusicPlayerModule) LoadConfig() error {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return err
	}
	m.config = cfg
	return nil
}

// Init connects to Lavalink and wires the guild queue.
func (m *MusicPlayerModule) Init(deps bot.ModuleDependencies) error {
	if deps.Session == nil {
		return errors.New("music_player module requires a Discord session")
	}
	if m.config == nil {
		if err := m.LoadConfig(); err != nil {
			return err
		}
	}

	ctx := deps.Context
	if ctx == nil {
		ctx = context.Background()
	}

	m.eventBus = infrastructure.NewChannelEventBus(m.config.EventBufferSize)

	lavalinkAdapter, err := infrastructure.NewLavalinkAdapter(
		ctx,
		deps.Session,
		m.eventBus,
		infrastructure.LavalinkConfig{
			Address:      m.config.LavalinkAddress,
			Password:     m.config.LavalinkPassword,
			Secure:       m.config.LavalinkSecure,
			ResolveRate:  m.config.ResolveRate,
			ResolveBurst: m.config.ResolveBurst,
		},
	)
	if err != nil {
		m.eventBus.Close()
		return err
	}
	m.lavalinkAdapter = lavalinkAdapter

	m.registry = scheduler.NewRegistry(
		scheduler.Dependencies{
			Resolver:    lavalinkAdapter,
			Connections: lavalinkAdapter,
			Publisher:   m.eventBus,
		},
		scheduler.Config{
			ResolveTimeout: m.config.ResolveTimeout,
			ConnectTimeout: m.config.ConnectTimeout,
		},
	)

	voiceState := infrastructure.NewVoiceStateProvider(deps.Session)
	userInfo := infrastructure.NewDiscordUserInfoProvider(deps.Session)
	notifier := infrastructure.NewNotifier(deps.Session)

	application.NewCompletionEventHandler(m.registry, m.eventBus).Start()
	application.NewNotificationEventHandler(m.eventBus, notifier, userInfo).Start()

	botID, err := snowflake.Parse(deps.Session.State.User.ID)
	if err != nil {
		return err
	}

	m.commandHandlers = discord.NewCommandHandlers(
		usecases.NewQueueService(m.registry, voiceState),
		usecases.NewPlaybackService(m.registry),
	)
	m.eventHandlers = discord.NewEventHandlers(botID, m.registry, lavalinkAdapter)

	slog.Info("music_player module initialized with Lavalink")

	return nil
}

// Shutdown stops all guild work before closing the event bus and Lavalink.
func (m *MusicPlayerModule) Shutdown() error {
	if m.registry != nil {
		m.registry.Close()
	}

	if m.eventBus != nil {
		m.eventBus.Close()
	}

	if m.lavalinkAdapter != nil {
		m.lavalinkAdapter.Close()
	}

	return nil
}

// Event handlers.

func (m *MusicPlayerModule) handleVoiceServerUpdate(
	_ *discordgo.Session,
	event *discordgo.VoiceServerUpdate,
) {
	if m.lavalinkAdapter != nil {
		m.lavalinkAdapter.OnVoiceServerUpdate(event)
	}
}

func (m *MusicPlayerModule) handleVoiceStateUpdate(
	s *discordgo.Session,
	event *discordgo.VoiceStateUpdate,
) {
	// The event handlers forward to the Lavalink adapter themselves
	if m.eventHandlers != nil {
		m.eventHandlers.HandleVoiceStateUpdate(s, event)
	}
}

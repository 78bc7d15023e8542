package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sglre6355/guildqueue/internal/modules/music_player/application/ports"
	"github.com/sglre6355/guildqueue/internal/modules/music_player/application/scheduler"
	"github.com/sglre6355/guildqueue/internal/modules/music_player/domain"
)

// CompletionEventHandler routes playback completion events to the guild they belong to.
type CompletionEventHandler struct {
	registry   *scheduler.Registry
	subscriber ports.EventSubscriber
}

// NewCompletionEventHandler creates a new CompletionEventHandler.
func NewCompletionEventHandler(
	registry *scheduler.Registry,
	subscriber ports.EventSubscriber,
) *CompletionEventHandler {
	return &CompletionEventHandler{
		registry:   registry,
		subscriber: subscriber,
	}
}

// Start registers event handlers with the subscriber.
func (h *CompletionEventHandler) Start() {
	h.subscriber.OnTrackEnded(h.handleTrackEnded)

	slog.Debug("completion event handlers registered")
}

func (h *CompletionEventHandler) handleTrackEnded(ctx context.Context, event domain.TrackEndedEvent) {
	guild, ok := h.registry.Lookup(event.GuildID)
	if !ok {
		slog.Warn("track ended for unknown guild", "guild", event.GuildID, "entry", event.EntryID)
		return
	}

	guild.HandleCompletion(ctx, event.EntryID)
}

// NotificationEventHandler tells requesters what is playing and what could not be played.
type NotificationEventHandler struct {
	subscriber       ports.EventSubscriber
	notifier         ports.NotificationSender
	userInfoProvider ports.UserInfoProvider
}

// NewNotificationEventHandler creates a new NotificationEventHandler.
func NewNotificationEventHandler(
	subscriber ports.EventSubscriber,
	notifier ports.NotificationSender,
	userInfoProvider ports.UserInfoProvider,
) *NotificationEventHandler {
	return &NotificationEventHandler{
		subscriber:       subscriber,
		notifier:         notifier,
		userInfoProvider: userInfoProvider,
	}
}

// Start registers event handlers with the subscriber.
func (h *NotificationEventHandler) Start() {
	h.subscriber.OnPlaybackStarted(h.handlePlaybackStarted)
	h.subscriber.OnPlaybackFailed(h.handlePlaybackFailed)

	slog.Debug("notification event handlers registered")
}

func (h *NotificationEventHandler) handlePlaybackStarted(
	_ context.Context,
	event domain.PlaybackStartedEvent,
) {
	channelID := event.Entry.NotificationChannelID
	if channelID == 0 {
		return
	}

	info := &ports.NowPlayingInfo{
		Track:         event.Track,
		RequesterID:   event.Entry.RequesterID,
		RequesterName: fmt.Sprintf("<@%s>", event.Entry.RequesterID),
		EnqueuedAt:    event.Entry.EnqueuedAt,
	}

	userInfo, err := h.userInfoProvider.UserInfo(event.GuildID, event.Entry.RequesterID)
	if err != nil {
		slog.Debug("failed to fetch requester info", "guild", event.GuildID, "error", err)
	} else {
		info.RequesterName = userInfo.DisplayName
		info.RequesterAvatarURL = userInfo.AvatarURL
	}

	if err := h.notifier.SendNowPlaying(channelID, info); err != nil {
		slog.Error(
			"failed to send now playing notification",
			"guild", event.GuildID,
			"channel", channelID,
			"error", err,
		)
	}
}

func (h *NotificationEventHandler) handlePlaybackFailed(
	_ context.Context,
	event domain.PlaybackFailedEvent,
) {
	channelID := event.Entry.NotificationChannelID
	if channelID == 0 {
		return
	}

	if err := h.notifier.SendError(channelID, failureMessage(event)); err != nil {
		slog.Error(
			"failed to send playback failure notification",
			"guild", event.GuildID,
			"channel", channelID,
			"error", err,
		)
	}
}

func failureMessage(event domain.PlaybackFailedEvent) string {
	query := event.Entry.Query.String()

	switch event.Stage {
	case domain.FailureStageResolve:
		return fmt.Sprintf("Could not load **%s**, skipping it.", query)
	case domain.FailureStageConnect:
		return fmt.Sprintf("Could not join <#%s> to play **%s**.", event.Entry.TargetChannelID, query)
	default:
		return fmt.Sprintf("Could not play **%s**, skipping it.", query)
	}
}

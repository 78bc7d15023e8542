package discord

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/guildqueue/internal/bot"
	"github.com/sglre6355/guildqueue/internal/modules/music_player/application/usecases"
	"github.com/sglre6355/guildqueue/internal/modules/music_player/domain"
)

// Embed colors.
const (
	colorSuccess = 0x08c404
	colorError   = 0xE74C3C
)

// CommandHandlers holds all the command handlers.
type CommandHandlers struct {
	queue    *usecases.QueueService
	playback *usecases.PlaybackService
}

// NewCommandHandlers creates new CommandHandlers.
func NewCommandHandlers(
	queue *usecases.QueueService,
	playback *usecases.PlaybackService,
) *CommandHandlers {
	return &CommandHandlers{
		queue:    queue,
		playback: playback,
	}
}

// HandlePlay handles the /play command.
func (h *CommandHandlers) HandlePlay(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	ctx := context.Background()

	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		return respondError(r, "Invalid guild")
	}

	if i.Member == nil || i.Member.User == nil {
		return respondError(r, domain.ErrNotInGuild.UserMessage())
	}

	userID, err := snowflake.Parse(i.Member.User.ID)
	if err != nil {
		return respondError(r, "Invalid user")
	}

	notificationChannelID, err := snowflake.Parse(i.ChannelID)
	if err != nil {
		return respondError(r, "Invalid notification channel")
	}

	var query string
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "query" {
			query = opt.StringValue()
		}
	}

	output, err := h.queue.Add(ctx, usecases.QueueAddInput{
		GuildID:               guildID,
		UserID:                userID,
		NotificationChannelID: notificationChannelID,
		Query:                 query,
	})
	if err != nil {
		return respondUseCaseError(r, err)
	}

	var description string
	if output.Position == 0 {
		description = fmt.Sprintf("Playing **%s** in <#%d>.", output.Entry.Query, output.VoiceChannelID)
	} else {
		description = fmt.Sprintf(
			"Queued **%s** at position %d.",
			output.Entry.Query,
			output.Position,
		)
	}

	return respondSuccess(r, description)
}

// HandleSkip handles the /skip command.
func (h *CommandHandlers) HandleSkip(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	ctx := context.Background()

	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		return respondError(r, "Invalid guild")
	}

	count := 1
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "count" {
			count = int(opt.IntValue())
		}
	}

	output, err := h.playback.Skip(ctx, usecases.SkipInput{
		GuildID: guildID,
		Count:   count,
	})
	if err != nil {
		return respondUseCaseError(r, err)
	}

	if output.Skipped == 1 {
		return respondSuccess(r, "Skipped 1 track.")
	}
	return respondSuccess(r, fmt.Sprintf("Skipped %d tracks.", output.Skipped))
}

// HandleStop handles the /stop command.
func (h *CommandHandlers) HandleStop(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	ctx := context.Background()

	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		return respondError(r, "Invalid guild")
	}

	if err := h.playback.Stop(ctx, usecases.StopInput{GuildID: guildID}); err != nil {
		return respondUseCaseError(r, err)
	}

	return respondSuccess(r, "Stopped playback and cleared the queue.")
}

// HandleShuffle handles the /shuffle command.
func (h *CommandHandlers) HandleShuffle(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		return respondError(r, "Invalid guild")
	}

	if err := h.playback.Shuffle(usecases.ShuffleInput{GuildID: guildID}); err != nil {
		return respondUseCaseError(r, err)
	}

	return respondSuccess(r, "Shuffled the queue.")
}

// HandleQueue handles the /queue command.
func (h *CommandHandlers) HandleQueue(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		return respondError(r, "Invalid guild")
	}

	var page int
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "page" {
			page = int(opt.IntValue())
		}
	}

	output, err := h.queue.List(usecases.QueueListInput{
		GuildID: guildID,
		Page:    page,
	})
	if err != nil {
		return respondUseCaseError(r, err)
	}

	embed := &discordgo.MessageEmbed{
		Title: "Queue",
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Page %d/%d", output.CurrentPage, output.TotalPages),
		},
	}

	if output.NowPlaying == nil && output.TotalEntries == 0 {
		embed.Description = "Queue is empty."
		return respondEmbed(r, embed)
	}

	var sb strings.Builder

	if output.NowPlaying != nil {
		sb.WriteString("### Now Playing\n")
		if output.CurrentTrack != nil {
			writeTrackLine(&sb, output.CurrentTrack)
		} else {
			fmt.Fprintf(&sb, "**%s** (starting)\n", output.NowPlaying.Query)
		}
	}

	if len(output.Entries) > 0 {
		sb.WriteString("### Up Next\n")
		for idx, entry := range output.Entries {
			position := output.PageStart + idx
			writeEntryLine(&sb, position+1, entry, position == 0 && output.PreloadReady)
		}
	}

	embed.Description = sb.String()
	return respondEmbed(r, embed)
}

// Response helpers.

// userFacing is implemented by errors that carry a message safe to show to the requester.
type userFacing interface {
	UserMessage() string
	Severity() domain.Severity
}

// respondUseCaseError renders requester mistakes as an error embed and returns
// everything else to the bot, which logs it and replies with a generic message.
func respondUseCaseError(r bot.Responder, err error) error {
	var uf userFacing
	if errors.As(err, &uf) && uf.Severity() == domain.SeverityUserInput {
		return respondError(r, uf.UserMessage())
	}
	return err
}

func respondError(r bot.Responder, message string) error {
	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{
				{
					Title:       "Error",
					Description: message,
					Color:       colorError,
				},
			},
		},
	})
}

func respondSuccess(r bot.Responder, description string) error {
	return respondEmbed(r, &discordgo.MessageEmbed{
		Description: description,
		Color:       colorSuccess,
	})
}

func respondEmbed(r bot.Responder, embed *discordgo.MessageEmbed) error {
	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
		},
	})
}

// writeTrackLine writes the resolved current track to the string builder.
func writeTrackLine(sb *strings.Builder, track *domain.Track) {
	artist := track.Artist
	if artist == "" {
		artist = "Unknown"
	}

	if track.URI != "" {
		fmt.Fprintf(sb, "[%s](%s) - %s `%s`\n", track.Title, track.URI, artist, track.FormattedDuration())
	} else {
		fmt.Fprintf(sb, "**%s** - %s `%s`\n", track.Title, artist, track.FormattedDuration())
	}
}

// writeEntryLine writes a single pending entry to the string builder.
// Escapes period to prevent Discord markdown list formatting.
func writeEntryLine(sb *strings.Builder, displayIndex int, entry domain.QueueEntry, ready bool) {
	fmt.Fprintf(sb, "%d\\. **%s** <@%d>", displayIndex, entry.Query, entry.RequesterID)
	if ready {
		sb.WriteString(" (ready)")
	}
	sb.WriteString("\n")
}

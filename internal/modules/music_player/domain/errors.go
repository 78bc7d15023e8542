package domain

import (
	"errors"
	"fmt"
)

// ErrorKind enumerates every failure a command operation can report.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindNoSongPlaying
	KindQueueIsEmpty
	KindInvalidQuery
	KindInvalidSkipCount
	KindNotInVoiceChannel
	KindNotInGuild
)

func (k ErrorKind) String() string {
	switch k {
	case KindNoSongPlaying:
		return "no_song_playing"
	case KindQueueIsEmpty:
		return "queue_is_empty"
	case KindInvalidQuery:
		return "invalid_query"
	case KindInvalidSkipCount:
		return "invalid_skip_count"
	case KindNotInVoiceChannel:
		return "not_in_voice_channel"
	case KindNotInGuild:
		return "not_in_guild"
	default:
		return "internal"
	}
}

// Severity tells whether an error was caused by the requester or by the system.
type Severity int

const (
	SeverityInternal Severity = iota
	SeverityUserInput
)

// Error is the single error type returned by queue command operations.
type Error struct {
	Kind ErrorKind
	Err  error // underlying cause, internal errors only
}

// Sentinel errors, matched by kind through errors.Is.
var (
	ErrNoSongPlaying     = &Error{Kind: KindNoSongPlaying}
	ErrQueueIsEmpty      = &Error{Kind: KindQueueIsEmpty}
	ErrInvalidQuery      = &Error{Kind: KindInvalidQuery}
	ErrInvalidSkipCount  = &Error{Kind: KindInvalidSkipCount}
	ErrNotInVoiceChannel = &Error{Kind: KindNotInVoiceChannel}
	ErrNotInGuild        = &Error{Kind: KindNotInGuild}
)

// InternalError wraps err as an internal failure.
func InternalError(err error) *Error {
	return &Error{Kind: KindInternal, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// Severity classifies the error.
func (e *Error) Severity() Severity {
	if e.Kind == KindInternal {
		return SeverityInternal
	}
	return SeverityUserInput
}

// UserMessage returns text that is safe to show to the requester.
// Internal errors never expose their cause.
func (e *Error) UserMessage() string {
	switch e.Kind {
	case KindNoSongPlaying:
		return "Nothing is currently playing."
	case KindQueueIsEmpty:
		return "The queue is empty."
	case KindInvalidQuery:
		return "You must provide a URL or a search term."
	case KindInvalidSkipCount:
		return "The number of tracks to skip must be at least 1."
	case KindNotInVoiceChannel:
		return "You must be in a voice channel."
	case KindNotInGuild:
		return "This command can only be used in a server."
	default:
		return "An internal error occurred."
	}
}

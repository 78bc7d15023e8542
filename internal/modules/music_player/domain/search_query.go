package domain

import (
	"net/url"
	"strings"
)

// SearchSource represents the source for searching tracks.
type SearchSource string

const (
	// SourceYouTube searches YouTube.
	SourceYouTube SearchSource = "ytsearch"
	// SourceYouTubeMusic searches YouTube Music.
	SourceYouTubeMusic SearchSource = "ytmsearch"
	// SourceSoundCloud searches SoundCloud.
	SourceSoundCloud SearchSource = "scsearch"
	// SourceDirect indicates a direct URL (no search prefix).
	SourceDirect SearchSource = ""
)

// SearchQuery is what the user asked for: either a direct URL or free text.
type SearchQuery struct {
	Query  string       // The search term or URL
	Source SearchSource // The search source
	IsURL  bool         // Whether the query is a direct URL
}

// NewSearchQuery creates a SearchQuery from user input.
// URLs are passed through; anything else is searched on YouTube.
func NewSearchQuery(input string) SearchQuery {
	return NewSearchQueryWithSource(input, SourceYouTube)
}

// NewSearchQueryWithSource creates a SearchQuery with a specific search source.
func NewSearchQueryWithSource(input string, source SearchSource) SearchQuery {
	input = strings.TrimSpace(input)

	if isURL(input) {
		return SearchQuery{
			Query:  input,
			Source: SourceDirect,
			IsURL:  true,
		}
	}

	return SearchQuery{
		Query:  input,
		Source: source,
		IsURL:  false,
	}
}

// LavalinkQuery returns the query string formatted for Lavalink.
// URLs typed without a scheme are loaded over https.
func (q SearchQuery) LavalinkQuery() string {
	if q.IsURL {
		if strings.HasPrefix(q.Query, "www.") {
			return "https://" + q.Query
		}
		return q.Query
	}
	return string(q.Source) + ":" + q.Query
}

// IsValid returns true if the query is not empty.
func (q SearchQuery) IsValid() bool {
	return q.Query != ""
}

func (q SearchQuery) String() string {
	return q.Query
}

// isURL checks if the input looks like an absolute http(s) URL.
func isURL(input string) bool {
	if strings.HasPrefix(input, "www.") {
		return true
	}
	u, err := url.Parse(input)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Package domain holds the value types shared by the resolver, the catalog
// clients and the cache. Everything here is owned by the caller; nothing
// holds references back into a component.
package domain

import "strings"

// ContentType is the release format reported by the metadata provider.
type ContentType string

const (
	TypeTV      ContentType = "TV"
	TypeMovie   ContentType = "Movie"
	TypeOVA     ContentType = "OVA"
	TypeSpecial ContentType = "Special"
	TypeONA     ContentType = "ONA"
	TypeMusic   ContentType = "Music"
)

// ParseContentType maps a provider label onto a ContentType. Unknown labels
// return the empty type, which disables the type heuristic.
func ParseContentType(s string) ContentType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "tv":
		return TypeTV
	case "movie":
		return TypeMovie
	case "ova":
		return TypeOVA
	case "special":
		return TypeSpecial
	case "ona":
		return TypeONA
	case "music":
		return TypeMusic
	}
	return ""
}

// ContentMetadata is the loose metadata known about a title. Every field is
// optional; a zero value turns the corresponding heuristic off.
type ContentMetadata struct {
	Type         ContentType `json:"type,omitempty"`
	Year         int         `json:"year,omitempty"`
	Season       string      `json:"season,omitempty"`
	EpisodeCount int         `json:"episodeCount,omitempty"`
	// AltTitle is a second label for the same release (romaji vs English).
	AltTitle string `json:"altTitle,omitempty"`
}

// TitleQuery is the immutable input to a resolution.
type TitleQuery struct {
	Title    string           `json:"title"`
	Metadata *ContentMetadata `json:"metadata,omitempty"`
}

// EpisodeItem is one playable episode in the streaming catalog.
type EpisodeItem struct {
	EpisodeID string `json:"episodeId"`
	Number    int    `json:"number"`
	Title     string `json:"title,omitempty"`
}

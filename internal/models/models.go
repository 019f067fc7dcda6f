// package models defines the data model for the playlist sync engine
package models

import (
	"fmt"

	"github.com/desertthunder/bilisync/internal/shared"
)

// Source tags where an artist or track originates.
type Source string

const (
	SourceBilibili Source = "bilibili"
	SourceLocal    Source = "local"
)

// Valid reports whether s is a known source.
func (s Source) Valid() bool {
	switch s {
	case SourceBilibili, SourceLocal:
		return true
	default:
		return false
	}
}

// PlaylistType selects the sync strategy of a playlist.
type PlaylistType string

const (
	PlaylistFavorite   PlaylistType = "favorite"
	PlaylistCollection PlaylistType = "collection"
	PlaylistMultiPage  PlaylistType = "multi_page"
	PlaylistLocal      PlaylistType = "local"
)

// PlaylistTypes lists every playlist type in display order.
var PlaylistTypes = []PlaylistType{PlaylistFavorite, PlaylistCollection, PlaylistMultiPage, PlaylistLocal}

// ParsePlaylistType converts a user-supplied string into a [PlaylistType].
func ParsePlaylistType(s string) (PlaylistType, error) {
	for _, t := range PlaylistTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: unknown playlist type %q", shared.ErrValidation, s)
}

// IsRemote reports whether playlists of this type are backed by a remote resource.
func (t PlaylistType) IsRemote() bool {
	switch t {
	case PlaylistFavorite, PlaylistCollection, PlaylistMultiPage:
		return true
	default:
		return false
	}
}

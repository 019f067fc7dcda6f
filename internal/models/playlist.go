package models

import (
	"fmt"
	"time"

	"github.com/desertthunder/bilisync/internal/shared"
)

// Playlist is the local snapshot of a remote collection, or a user-built local playlist.
//
// ItemCount is denormalised and always equals the number of [PlaylistTrack] rows.
type Playlist struct {
	ID           string
	Title        string
	Description  string
	CoverURL     string
	ItemCount    int
	Type         PlaylistType
	RemoteSyncID string // Set iff Type is not PlaylistLocal
	AuthorID     string // Empty when there is no author
	LastSyncedAt *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Validate checks the type and remote-sync id invariants.
func (p *Playlist) Validate() error {
	return validatePlaylist(p.Title, p.Type, p.RemoteSyncID)
}

// PlaylistPayload carries the data needed to create or refresh a [Playlist].
type PlaylistPayload struct {
	Title        string
	Description  string
	CoverURL     string
	Type         PlaylistType
	RemoteSyncID string
	AuthorID     string
}

// Validate checks the type and remote-sync id invariants.
func (p PlaylistPayload) Validate() error {
	return validatePlaylist(p.Title, p.Type, p.RemoteSyncID)
}

func validatePlaylist(title string, t PlaylistType, remoteSyncID string) error {
	if title == "" {
		return fmt.Errorf("%w: playlist title is required", shared.ErrValidation)
	}
	switch t {
	case PlaylistLocal:
		if remoteSyncID != "" {
			return fmt.Errorf("%w: local playlist cannot have a remote sync id", shared.ErrValidation)
		}
	case PlaylistFavorite, PlaylistCollection, PlaylistMultiPage:
		if remoteSyncID == "" {
			return fmt.Errorf("%w: %s playlist requires a remote sync id", shared.ErrValidation, t)
		}
	default:
		return fmt.Errorf("%w: playlist type %q", shared.ErrValidation, t)
	}
	return nil
}

// PlaylistTrack is one ordered membership row. Order is dense and zero-based.
type PlaylistTrack struct {
	PlaylistID string
	TrackID    string
	Order      int
}

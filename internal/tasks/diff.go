package tasks

import (
	"context"
	"fmt"

	"github.com/desertthunder/bilisync/internal/models"
	"github.com/desertthunder/bilisync/internal/shared"
)

// IDDiff holds the result of comparing a remote id list with a local one.
type IDDiff struct {
	Added   []string // In remote order
	Removed []string // In local order
}

// Empty reports whether the two lists hold the same set of ids.
func (d IDDiff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0
}

// DiffIDs returns remote \ local as Added and local \ remote as Removed.
//
// Duplicates within either list are reported once; empty ids are ignored.
func DiffIDs(remote, local []string) IDDiff {
	remote, local = dedupe(remote), dedupe(local)

	remoteSet := make(map[string]bool, len(remote))
	for _, id := range remote {
		remoteSet[id] = true
	}
	localSet := make(map[string]bool, len(local))
	for _, id := range local {
		localSet[id] = true
	}

	var diff IDDiff
	for _, id := range remote {
		if !localSet[id] {
			diff.Added = append(diff.Added, id)
		}
	}
	for _, id := range local {
		if !remoteSet[id] {
			diff.Removed = append(diff.Removed, id)
		}
	}
	return diff
}

// diffAgainstPlaylist diffs remote bvids against the bvids of the playlist's current tracks.
//
// A missing or empty playlist adds everything without reading its tracks.
func (s *PlaylistSyncer) diffAgainstPlaylist(ctx context.Context, playlist *models.Playlist, remote []string) (IDDiff, error) {
	if playlist == nil || playlist.ItemCount == 0 {
		return IDDiff{Added: dedupe(remote)}, nil
	}

	tracks, err := s.playlists.GetTracks(ctx, playlist.ID)
	if err != nil {
		return IDDiff{}, err
	}

	local := make([]string, 0, len(tracks))
	for _, t := range tracks {
		switch m := t.Metadata.(type) {
		case models.BilibiliMetadata:
			local = append(local, m.BVID)
		case models.LocalMetadata:
			continue
		default:
			return IDDiff{}, fmt.Errorf("%w: unrecognized track metadata %T", shared.ErrValidation, m)
		}
	}

	return DiffIDs(remote, local), nil
}

// dedupe returns ids with later duplicates and empty ids removed, keeping order.
func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

package tasks

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/bilisync/internal/models"
	"github.com/desertthunder/bilisync/internal/services"
	"github.com/desertthunder/bilisync/internal/shared"
)

// SyncCollection mirrors a collection with a full replace: every item is resolved and the membership
// is rewritten in remote order, all in one transaction.
func (s *PlaylistSyncer) SyncCollection(ctx context.Context, collectionID string, progress chan<- ProgressUpdate) (*SyncResult, error) {
	return s.run(ctx, models.PlaylistCollection, collectionID, shared.ErrSyncCollectionFailed, progress, s.syncCollection)
}

func (s *PlaylistSyncer) syncCollection(ctx context.Context, collectionID string, progress chan<- ProgressUpdate, logger *log.Logger) (*SyncResult, error) {
	s.sendProgress(progress, fetchIndexUpdate(models.PlaylistCollection, collectionID))

	contents, err := s.remote.GetCollectionAllContents(ctx, collectionID)
	if err != nil {
		return nil, err
	}
	logger.Debug("fetched collection", "items", len(contents.Medias))

	medias := make([]services.Media, 0, len(contents.Medias))
	for _, m := range contents.Medias {
		if m.BVID != "" {
			medias = append(medias, m)
		}
	}

	payload := models.PlaylistPayload{
		Title:        playlistTitle(contents.Info.Title, models.PlaylistCollection, collectionID),
		Description:  contents.Info.Intro,
		CoverURL:     contents.Info.Cover,
		Type:         models.PlaylistCollection,
		RemoteSyncID: collectionID,
	}

	result := &SyncResult{}
	err = s.inTx(ctx, func(r txRepos) error {
		authorID, err := resolveAuthor(ctx, r.artists, contents.Info.Upper)
		if err != nil {
			return err
		}
		payload.AuthorID = authorID

		playlist, err := r.playlists.FindOrCreateRemotePlaylist(ctx, payload)
		if err != nil {
			return err
		}
		result.PlaylistID = playlist.ID

		s.sendProgress(progress, resolveUpdate(len(medias)))
		tracks, err := resolveMedias(ctx, r, medias)
		if err != nil {
			return err
		}

		keys := make([]string, len(medias))
		for i, m := range medias {
			keys[i] = models.BilibiliKey(m.BVID, nil)
		}
		ordered := orderedTrackIDs(keys, idsByKey(tracks))

		return s.replaceFully(ctx, r, playlist.ID, ordered, result, progress)
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// replaceFully rewrites the membership of a full-replace playlist and records the change counts in result.
func (s *PlaylistSyncer) replaceFully(ctx context.Context, r txRepos, playlistID string, ordered []string, result *SyncResult, progress chan<- ProgressUpdate) error {
	previous, err := r.playlists.GetTracks(ctx, playlistID)
	if err != nil {
		return err
	}
	diff := DiffIDs(ordered, trackIDs(previous))
	result.Added, result.Removed = len(diff.Added), len(diff.Removed)

	s.sendProgress(progress, replaceUpdate(len(ordered)))
	return r.playlists.ReplaceAllTracks(ctx, playlistID, ordered)
}

func idsByKey(tracks map[string]*models.Track) map[string]string {
	ids := make(map[string]string, len(tracks))
	for key, t := range tracks {
		ids[key] = t.ID
	}
	return ids
}

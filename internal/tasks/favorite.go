package tasks

import (
	"context"
	"errors"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/desertthunder/bilisync/internal/models"
	"github.com/desertthunder/bilisync/internal/services"
	"github.com/desertthunder/bilisync/internal/shared"
)

// SyncFavorite mirrors a favorite folder with an incremental diff.
//
// Only newly added videos are fetched in detail and resolved; the final membership is the folder's
// complete index order minus hidden items. When nothing changed the existing playlist id is returned
// without any write.
func (s *PlaylistSyncer) SyncFavorite(ctx context.Context, favoriteID string, progress chan<- ProgressUpdate) (*SyncResult, error) {
	return s.run(ctx, models.PlaylistFavorite, favoriteID, shared.ErrSyncFavoriteFailed, progress, s.syncFavorite)
}

func (s *PlaylistSyncer) syncFavorite(ctx context.Context, favoriteID string, progress chan<- ProgressUpdate, logger *log.Logger) (*SyncResult, error) {
	s.sendProgress(progress, fetchIndexUpdate(models.PlaylistFavorite, favoriteID))

	var (
		index []services.FavoriteIndexItem
		first *services.FavoritePage
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		index, err = s.remote.GetFavoriteListAllContents(gctx, favoriteID)
		return err
	})
	g.Go(func() error {
		var err error
		first, err = s.remote.GetFavoriteListContents(gctx, favoriteID, 1)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	remoteIDs := make([]string, 0, len(index))
	for _, item := range index {
		remoteIDs = append(remoteIDs, item.BVID)
	}
	remoteIDs = dedupe(remoteIDs)

	existing, err := s.playlists.FindByTypeAndRemoteID(ctx, models.PlaylistFavorite, favoriteID)
	if errors.Is(err, shared.ErrPlaylistNotFound) {
		existing = nil
	} else if err != nil {
		return nil, err
	}

	diff, err := s.diffAgainstPlaylist(ctx, existing, remoteIDs)
	if err != nil {
		return nil, err
	}
	s.sendProgress(progress, diffUpdate(len(diff.Added), len(diff.Removed)))

	if existing != nil && diff.Empty() {
		return &SyncResult{PlaylistID: existing.ID, ShortCircuited: true}, nil
	}

	found, hidden, err := s.fetchAddedFavoriteItems(ctx, favoriteID, first, diff.Added, progress, logger)
	if err != nil {
		return nil, err
	}

	if len(hidden) > 0 {
		logger.Warn("hidden items skipped", "count", len(hidden), "ids", hidden)
		s.sendProgress(progress, hiddenNotice(hidden))
	}

	isHidden := make(map[string]bool, len(hidden))
	for _, id := range hidden {
		isHidden[id] = true
	}
	keys := make([]string, 0, len(remoteIDs))
	for _, id := range remoteIDs {
		if !isHidden[id] {
			keys = append(keys, models.BilibiliKey(id, nil))
		}
	}

	result := &SyncResult{
		Added:   len(found),
		Removed: len(diff.Removed),
		Hidden:  hidden,
	}

	err = s.inTx(ctx, func(r txRepos) error {
		authorID, err := resolveAuthor(ctx, r.artists, first.Info.Upper)
		if err != nil {
			return err
		}

		playlist, err := r.playlists.FindOrCreateRemotePlaylist(ctx, models.PlaylistPayload{
			Title:        playlistTitle(first.Info.Title, models.PlaylistFavorite, favoriteID),
			Description:  first.Info.Intro,
			CoverURL:     first.Info.Cover,
			Type:         models.PlaylistFavorite,
			RemoteSyncID: favoriteID,
			AuthorID:     authorID,
		})
		if err != nil {
			return err
		}
		result.PlaylistID = playlist.ID

		s.sendProgress(progress, resolveUpdate(len(found)))
		if _, err := resolveMedias(ctx, r, found); err != nil {
			return err
		}

		resolved, err := r.tracks.FindTrackIDsByUniqueKeys(ctx, keys)
		if err != nil {
			return err
		}
		ordered := orderedTrackIDs(keys, resolved)
		if missing := len(keys) - len(ordered); missing > 0 {
			logger.Warn("remote items without a local track", "count", missing)
		}

		s.sendProgress(progress, replaceUpdate(len(ordered)))
		return r.playlists.ReplaceAllTracks(ctx, playlist.ID, ordered)
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

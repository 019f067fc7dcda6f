package tasks

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/bilisync/internal/models"
	"github.com/desertthunder/bilisync/internal/shared"
)

// SyncMultiPage mirrors the parts of a video as a playlist, one track per part, with a full replace.
func (s *PlaylistSyncer) SyncMultiPage(ctx context.Context, bvid string, progress chan<- ProgressUpdate) (*SyncResult, error) {
	return s.run(ctx, models.PlaylistMultiPage, bvid, shared.ErrSyncMultiPageFailed, progress, s.syncMultiPage)
}

func (s *PlaylistSyncer) syncMultiPage(ctx context.Context, bvid string, progress chan<- ProgressUpdate, logger *log.Logger) (*SyncResult, error) {
	s.sendProgress(progress, fetchIndexUpdate(models.PlaylistMultiPage, bvid))

	details, err := s.remote.GetVideoDetails(ctx, bvid)
	if err != nil {
		return nil, err
	}
	logger.Debug("fetched video", "parts", len(details.Pages))

	result := &SyncResult{}
	err = s.inTx(ctx, func(r txRepos) error {
		authorID, err := resolveAuthor(ctx, r.artists, details.Owner)
		if err != nil {
			return err
		}

		playlist, err := r.playlists.FindOrCreateRemotePlaylist(ctx, models.PlaylistPayload{
			Title:        playlistTitle(details.Title, models.PlaylistMultiPage, bvid),
			Description:  details.Desc,
			CoverURL:     details.Pic,
			Type:         models.PlaylistMultiPage,
			RemoteSyncID: bvid,
			AuthorID:     authorID,
		})
		if err != nil {
			return err
		}
		result.PlaylistID = playlist.ID

		payloads := make([]models.TrackPayload, len(details.Pages))
		keys := make([]string, len(details.Pages))
		for i, page := range details.Pages {
			cid := page.CID
			title := page.Part
			if title == "" {
				title = fmt.Sprintf("%s P%d", details.Title, page.Page)
			}
			cover := page.FirstFrame
			if cover == "" {
				cover = details.Pic
			}

			payloads[i] = models.TrackPayload{
				Title:    title,
				ArtistID: authorID,
				CoverURL: cover,
				Duration: page.Duration,
				Metadata: models.BilibiliMetadata{BVID: bvid, CID: &cid, IsMultiPage: true, VideoIsValid: true},
			}
			keys[i] = models.BilibiliKey(bvid, &cid)
		}

		s.sendProgress(progress, resolveUpdate(len(payloads)))
		tracks, err := r.tracks.FindOrCreateManyTracks(ctx, payloads)
		if err != nil {
			return err
		}

		return s.replaceFully(ctx, r, playlist.ID, orderedTrackIDs(keys, idsByKey(tracks)), result, progress)
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

package tasks

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/bilisync/internal/services"
)

// fetchAddedFavoriteItems walks the favorite folder's detail pages collecting the medias listed in added.
//
// The walk starts with first (page 1, already fetched) and stops when every added id was found,
// the remote reports no further pages, or maxPages pages were read. Ids never found are returned as hidden,
// in the order of added.
func (s *PlaylistSyncer) fetchAddedFavoriteItems(
	ctx context.Context,
	favoriteID string,
	first *services.FavoritePage,
	added []string,
	progress chan<- ProgressUpdate,
	logger *log.Logger,
) (found []services.Media, hidden []string, err error) {
	outstanding := make(map[string]bool, len(added))
	for _, id := range added {
		outstanding[id] = true
	}

	page, pageNum := first, 1
	for {
		for _, m := range page.Medias {
			if outstanding[m.BVID] {
				found = append(found, m)
				delete(outstanding, m.BVID)
			}
		}

		if len(outstanding) == 0 || !page.HasMore || pageNum >= s.maxPages {
			break
		}

		pageNum++
		logger.Debug("fetching favorite page", "page", pageNum, "outstanding", len(outstanding))
		s.sendProgress(progress, fetchPageUpdate(pageNum, s.maxPages, len(outstanding)))

		page, err = s.remote.GetFavoriteListContents(ctx, favoriteID, pageNum)
		if err != nil {
			return nil, nil, err
		}
	}

	for _, id := range added {
		if outstanding[id] {
			hidden = append(hidden, id)
		}
	}
	return found, hidden, nil
}

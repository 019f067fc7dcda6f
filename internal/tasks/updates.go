package tasks

import (
	"fmt"
	"strings"

	"github.com/desertthunder/bilisync/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or HTTP layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Operation phase enumeration
type Phase int

const (
	FetchIndex Phase = iota
	FetchPage
	Diff
	Resolve
	Replace
	Notice
	Complete
	BulkSync
)

func (p Phase) String() string {
	switch p {
	case FetchIndex:
		return "fetch_index"
	case FetchPage:
		return "fetch_page"
	case Diff:
		return "diff"
	case Resolve:
		return "resolve"
	case Replace:
		return "replace"
	case Notice:
		return "notice"
	case Complete:
		return "complete"
	case BulkSync:
		return "bulk_sync"
	default:
		return ""
	}
}

func fetchIndexUpdate(t models.PlaylistType, id string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchIndex,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetching %s %s...", t, id),
	}
}

func fetchPageUpdate(page, maxPages, outstanding int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPage,
		Step:    page,
		Total:   maxPages,
		Message: fmt.Sprintf("Fetching page %d (%d items outstanding)...", page, outstanding),
	}
}

func diffUpdate(added, removed int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Diff,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("%d added, %d removed", added, removed),
	}
}

func resolveUpdate(items int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Resolve,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Resolving %d items...", items),
	}
}

func replaceUpdate(items int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Replace,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Writing %d tracks...", items),
	}
}

// hiddenNotice reports ids listed by the remote index but missing from every detail page.
func hiddenNotice(hidden []string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Notice,
		Step:    len(hidden),
		Total:   len(hidden),
		Message: fmt.Sprintf("%d hidden items could not be synced: %s", len(hidden), strings.Join(hidden, ", ")),
		Data:    hidden,
	}
}

func completeUpdate(result *SyncResult) ProgressUpdate {
	msg := fmt.Sprintf("Synced playlist %s (+%d/-%d)", result.PlaylistID, result.Added, result.Removed)
	if result.ShortCircuited {
		msg = fmt.Sprintf("Playlist %s is up to date", result.PlaylistID)
	}
	return ProgressUpdate{
		Phase:   Complete,
		Step:    1,
		Total:   1,
		Message: msg,
		Data:    result,
	}
}

func bulkSyncUpdate(step, total int, target SyncTarget, err error) ProgressUpdate {
	if err != nil {
		return ProgressUpdate{
			Phase:   BulkSync,
			Step:    step,
			Total:   total,
			Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, target, err),
		}
	}
	return ProgressUpdate{
		Phase:   BulkSync,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s", step, total, target),
	}
}

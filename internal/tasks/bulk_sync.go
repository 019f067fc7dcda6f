package tasks

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/desertthunder/bilisync/internal/models"
)

// DefaultConcurrency is the number of syncs [PlaylistSyncer.SyncAll] runs at once when unset.
const DefaultConcurrency = 2

// SyncTarget identifies one remote resource to sync.
type SyncTarget struct {
	Type         models.PlaylistType
	RemoteSyncID string
	Title        string // Display only
}

func (t SyncTarget) String() string {
	if t.Title != "" {
		return fmt.Sprintf("%s %s (%s)", t.Type, t.RemoteSyncID, t.Title)
	}
	return fmt.Sprintf("%s %s", t.Type, t.RemoteSyncID)
}

// BulkSyncOpts contains configuration for bulk syncs.
type BulkSyncOpts struct {
	Concurrency int // Concurrent syncs (default: 2)
}

// TargetResult is the outcome of syncing one target.
type TargetResult struct {
	Target SyncTarget
	Result *SyncResult // Nil on failure
	Error  error
}

// BulkSyncResult summarizes a bulk sync.
type BulkSyncResult struct {
	Total        int
	SuccessCount int
	FailedCount  int
	Results      []TargetResult // In target order
}

// RemoteTargets lists every remote-backed playlist in the local store as a sync target.
func (s *PlaylistSyncer) RemoteTargets(ctx context.Context) ([]SyncTarget, error) {
	playlists, err := s.playlists.List(ctx, "")
	if err != nil {
		return nil, err
	}

	var targets []SyncTarget
	for _, p := range playlists {
		if p.Type.IsRemote() {
			targets = append(targets, SyncTarget{Type: p.Type, RemoteSyncID: p.RemoteSyncID, Title: p.Title})
		}
	}
	return targets, nil
}

// SyncAll syncs targets concurrently, at most opts.Concurrency at a time.
//
// A failing target does not stop the others; failures are reported per target in the result.
// Only cancellation of ctx aborts the run.
func (s *PlaylistSyncer) SyncAll(ctx context.Context, prog chan<- ProgressUpdate, targets []SyncTarget, opts BulkSyncOpts) (*BulkSyncResult, error) {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}

	result := &BulkSyncResult{
		Total:   len(targets),
		Results: make([]TargetResult, len(targets)),
	}

	var (
		mu        sync.Mutex
		completed int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)

	for i, target := range targets {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				result.Results[i] = TargetResult{Target: target, Error: err}
				return err
			}

			res, err := s.Sync(gctx, target.RemoteSyncID, target.Type, nil)
			result.Results[i] = TargetResult{Target: target, Result: res, Error: err}

			mu.Lock()
			completed++
			step := completed
			mu.Unlock()

			s.sendProgress(prog, bulkSyncUpdate(step, len(targets), target, err))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, r := range result.Results {
		if r.Error != nil {
			result.FailedCount++
		} else {
			result.SuccessCount++
		}
	}
	return result, nil
}

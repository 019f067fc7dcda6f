package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/bilisync/internal/models"
	"github.com/desertthunder/bilisync/internal/shared"
	"github.com/desertthunder/bilisync/internal/tasks"
	"github.com/desertthunder/bilisync/internal/ui"
)

// Sync mirrors one remote resource into the local library.
func (r *Runner) Sync(ctx context.Context, cmd *cli.Command) error {
	playlistType, err := models.ParsePlaylistType(cmd.String("type"))
	if err != nil {
		return err
	}
	if !playlistType.IsRemote() {
		return fmt.Errorf("%w: %s playlists are not synced", shared.ErrInvalidArgument, playlistType)
	}

	id, err := requireFlag(cmd, "id")
	if err != nil {
		return err
	}

	if err := r.open(cmd); err != nil {
		return err
	}

	var progress chan tasks.ProgressUpdate
	stop := func() {}
	if cmd.Bool("progress") {
		progress, stop = r.progressPrinter(ui.Progress)
	}

	result, err := r.syncer.Sync(ctx, id, playlistType, progress)
	stop()
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(result, true)
	}
	return r.writePlain("%s", ui.SyncSummary(playlistType, id, result))
}

// SyncAll re-syncs every remote playlist already in the library.
func (r *Runner) SyncAll(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(cmd); err != nil {
		return err
	}

	targets, err := r.syncer.RemoteTargets(ctx)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		return r.writePlain("No remote playlists to sync. Run 'bilisync sync --type favorite --id <id>' first.\n")
	}

	concurrency := int(cmd.Int("concurrency"))
	if concurrency <= 0 {
		concurrency = r.config.Sync.Concurrency
	}

	progress, stop := r.progressPrinter(ui.Progress)
	result, err := r.syncer.SyncAll(ctx, progress, targets, tasks.BulkSyncOpts{Concurrency: concurrency})
	stop()
	if err != nil {
		return err
	}

	return r.writePlain("%s", ui.BulkSummary(result))
}

func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Sync a favorite folder, collection or multi-part video",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:    "type",
				Aliases: []string{"t"},
				Usage:   "Playlist type: favorite, collection or multi_page",
				Value:   string(models.PlaylistFavorite),
			},
			&cli.StringFlag{
				Name:  "id",
				Usage: "Favorite folder id, collection id or bvid",
			},
			&cli.BoolFlag{
				Name:  "progress",
				Usage: "Print progress updates",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output the result as JSON",
			},
		},
		Action: r.Sync,
		Commands: []*cli.Command{
			{
				Name:  "all",
				Usage: "Re-sync every remote playlist in the library",
				Flags: []cli.Flag{
					configFlag(),
					&cli.IntFlag{
						Name:  "concurrency",
						Usage: "Concurrent syncs (defaults to sync.concurrency)",
					},
				},
				Action: r.SyncAll,
			},
		},
	}
}

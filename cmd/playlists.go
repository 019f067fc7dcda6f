package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/bilisync/internal/formatter"
	"github.com/desertthunder/bilisync/internal/models"
	"github.com/desertthunder/bilisync/internal/repositories"
	"github.com/desertthunder/bilisync/internal/shared"
	"github.com/desertthunder/bilisync/internal/ui"
)

// ListPlaylists prints every playlist, optionally filtered by --type.
func (r *Runner) ListPlaylists(ctx context.Context, cmd *cli.Command) error {
	var playlistType models.PlaylistType
	if t := cmd.String("type"); t != "" {
		parsed, err := models.ParsePlaylistType(t)
		if err != nil {
			return err
		}
		playlistType = parsed
	}

	if err := r.open(cmd); err != nil {
		return err
	}

	playlists, err := repositories.NewPlaylistRepository(r.db).List(ctx, playlistType)
	if err != nil {
		return err
	}

	if len(playlists) == 0 {
		return r.writePlain("No playlists.\n")
	}

	r.writePlain("%s\n", ui.Styles.Title(fmt.Sprintf("%d playlists", len(playlists))))
	for _, p := range playlists {
		r.writePlain("%s\n", ui.PlaylistRow(p))
	}
	return nil
}

// ShowPlaylist prints a playlist with its tracks in order.
func (r *Runner) ShowPlaylist(ctx context.Context, cmd *cli.Command) error {
	export, err := r.loadExport(ctx, cmd)
	if err != nil {
		return err
	}

	data, err := formatter.ExportToText(export)
	if err != nil {
		return err
	}
	return r.writePlain("%s", data)
}

// ExportPlaylist writes a playlist to disk as CSV, Markdown or text.
func (r *Runner) ExportPlaylist(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	export, err := r.loadExport(ctx, cmd)
	if err != nil {
		return err
	}

	result, err := formatter.Write(export, format, cmd.String("output"))
	if err != nil {
		return err
	}

	r.logger.Info("exported playlist", "id", export.Playlist.ID, "format", result.Format, "files", len(result.Files))
	r.writePlain("%s\n", ui.Styles.OK(fmt.Sprintf("✓ Exported %s (%d tracks)", export.Playlist.Title, len(export.Tracks))))
	for _, f := range result.Files {
		r.writePlain("  %s\n", f)
	}
	return nil
}

// CreatePlaylist creates an empty local playlist.
func (r *Runner) CreatePlaylist(ctx context.Context, cmd *cli.Command) error {
	title, err := requireFlag(cmd, "title")
	if err != nil {
		return err
	}
	if err := r.open(cmd); err != nil {
		return err
	}

	p, err := repositories.NewPlaylistRepository(r.db).CreatePlaylist(ctx, models.PlaylistPayload{
		Title:       title,
		Description: cmd.String("description"),
		Type:        models.PlaylistLocal,
	})
	if err != nil {
		return err
	}

	return r.writePlain("%s\n", ui.Styles.OK(fmt.Sprintf("✓ Created playlist %s (%s)", p.Title, p.ID)))
}

// AddLocalTrack appends a file on disk to a local playlist, creating its artist and track as needed.
func (r *Runner) AddLocalTrack(ctx context.Context, cmd *cli.Command) error {
	playlistID, err := requireFlag(cmd, "id")
	if err != nil {
		return err
	}
	file, err := requireFlag(cmd, "file")
	if err != nil {
		return err
	}
	if err := r.open(cmd); err != nil {
		return err
	}

	path, err := filepath.Abs(file)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}

	title := cmd.String("title")
	if title == "" {
		title = filepath.Base(path)
	}

	var track *models.Track
	err = repositories.RunInTx(ctx, r.db, func(tx *sql.Tx) error {
		var artistID string
		if name := cmd.String("artist"); name != "" {
			artist, err := repositories.NewArtistRepository(tx).FindOrCreateArtist(ctx, models.ArtistPayload{
				Name:   name,
				Source: models.SourceLocal,
			})
			if err != nil {
				return err
			}
			artistID = artist.ID
		}

		t, err := repositories.NewTrackRepository(tx).FindOrCreateTrack(ctx, models.TrackPayload{
			Title:    title,
			ArtistID: artistID,
			Duration: int(cmd.Int("duration")),
			Metadata: models.LocalMetadata{FilePath: path},
		})
		if err != nil {
			return err
		}
		track = t

		return repositories.NewPlaylistRepository(tx).AddTrack(ctx, playlistID, track.ID)
	})
	if err != nil {
		return err
	}

	return r.writePlain("%s\n", ui.Styles.OK(fmt.Sprintf("✓ Added %s to %s", track.Title, playlistID)))
}

// DeletePlaylist removes a playlist and its membership. Tracks and artists are kept.
func (r *Runner) DeletePlaylist(ctx context.Context, cmd *cli.Command) error {
	id, err := requireFlag(cmd, "id")
	if err != nil {
		return err
	}
	if err := r.open(cmd); err != nil {
		return err
	}

	if err := repositories.NewPlaylistRepository(r.db).Delete(ctx, id); err != nil {
		return err
	}
	return r.writePlain("%s\n", ui.Styles.OK("✓ Deleted playlist "+id))
}

// loadExport reads the playlist named by --id with its tracks and their artists.
func (r *Runner) loadExport(ctx context.Context, cmd *cli.Command) (*formatter.PlaylistExport, error) {
	id, err := requireFlag(cmd, "id")
	if err != nil {
		return nil, err
	}
	if err := r.open(cmd); err != nil {
		return nil, err
	}

	playlists := repositories.NewPlaylistRepository(r.db)
	artists := repositories.NewArtistRepository(r.db)

	p, err := playlists.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	tracks, err := playlists.GetTracks(ctx, id)
	if err != nil {
		return nil, err
	}

	export := &formatter.PlaylistExport{Playlist: *p, Tracks: tracks, Artists: map[string]*models.Artist{}}
	for _, t := range tracks {
		if t.ArtistID == "" || export.Artists[t.ArtistID] != nil {
			continue
		}
		a, err := artists.Get(ctx, t.ArtistID)
		if errors.Is(err, shared.ErrArtistNotFound) {
			continue
		} else if err != nil {
			return nil, err
		}
		export.Artists[a.ID] = a
	}
	return export, nil
}

func playlistsCommand(r *Runner) *cli.Command {
	idFlag := func() cli.Flag {
		return &cli.StringFlag{Name: "id", Usage: "Playlist ID"}
	}

	return &cli.Command{
		Name:    "playlists",
		Aliases: []string{"pl"},
		Usage:   "Browse and manage local playlists",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List playlists",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{Name: "type", Usage: "Only list playlists of this type"},
				},
				Action: r.ListPlaylists,
			},
			{
				Name:   "show",
				Usage:  "Show a playlist's tracks",
				Flags:  []cli.Flag{configFlag(), idFlag()},
				Action: r.ShowPlaylist,
			},
			{
				Name:  "export",
				Usage: "Export a playlist to CSV, Markdown or text",
				Flags: []cli.Flag{
					configFlag(),
					idFlag(),
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format: csv, md or txt",
						Value:   string(formatter.FormatCSV),
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output path prefix (defaults to the playlist id)",
					},
				},
				Action: r.ExportPlaylist,
			},
			{
				Name:  "create",
				Usage: "Create a local playlist",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{Name: "title", Usage: "Playlist title"},
					&cli.StringFlag{Name: "description", Usage: "Playlist description"},
				},
				Action: r.CreatePlaylist,
			},
			{
				Name:  "add",
				Usage: "Add a local file to a local playlist",
				Flags: []cli.Flag{
					configFlag(),
					idFlag(),
					&cli.StringFlag{Name: "file", Usage: "Path to the audio file"},
					&cli.StringFlag{Name: "title", Usage: "Track title (defaults to the file name)"},
					&cli.StringFlag{Name: "artist", Usage: "Artist name"},
					&cli.IntFlag{Name: "duration", Usage: "Duration in seconds"},
				},
				Action: r.AddLocalTrack,
			},
			{
				Name:   "delete",
				Usage:  "Delete a playlist",
				Flags:  []cli.Flag{configFlag(), idFlag()},
				Action: r.DeletePlaylist,
			},
		},
	}
}

package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/bilisync/internal/models"
	"github.com/desertthunder/bilisync/internal/shared"
)

const playlistColumns = `id, title, description, cover_url, item_count, type, remote_sync_id, author_id, last_synced_at, created_at, updated_at`

// PlaylistRepository stores playlists and their ordered membership.
//
// Membership of remote playlists is only ever written by [PlaylistRepository.ReplaceAllTracks];
// [PlaylistRepository.AddTrack] is restricted to local playlists.
type PlaylistRepository struct {
	db DBTX
}

// NewPlaylistRepository creates a new PlaylistRepository with the given database handle
func NewPlaylistRepository(db DBTX) *PlaylistRepository {
	return &PlaylistRepository{db: db}
}

// WithDB returns a copy of the repository bound to db, typically a transaction.
func (r *PlaylistRepository) WithDB(db DBTX) *PlaylistRepository {
	return &PlaylistRepository{db: db}
}

// Get retrieves a playlist by ID
func (r *PlaylistRepository) Get(ctx context.Context, id string) (*models.Playlist, error) {
	query := `SELECT ` + playlistColumns + ` FROM playlists WHERE id = ?`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

// FindByTypeAndRemoteID retrieves the playlist mirroring a remote resource.
//
// Returns [shared.ErrPlaylistNotFound] when the resource has never been synced.
func (r *PlaylistRepository) FindByTypeAndRemoteID(ctx context.Context, t models.PlaylistType, remoteSyncID string) (*models.Playlist, error) {
	query := `SELECT ` + playlistColumns + ` FROM playlists WHERE type = ? AND remote_sync_id = ?`
	return r.scanOne(r.db.QueryRowContext(ctx, query, t, remoteSyncID))
}

// CreatePlaylist inserts a new playlist with an empty membership.
func (r *PlaylistRepository) CreatePlaylist(ctx context.Context, payload models.PlaylistPayload) (*models.Playlist, error) {
	if err := payload.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	p := &models.Playlist{
		ID:           shared.GenerateID(),
		Title:        payload.Title,
		Description:  payload.Description,
		CoverURL:     payload.CoverURL,
		Type:         payload.Type,
		RemoteSyncID: payload.RemoteSyncID,
		AuthorID:     payload.AuthorID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	query := `INSERT INTO playlists (` + playlistColumns + `) VALUES (` + placeholders(11) + `)`
	_, err := r.db.ExecContext(ctx, query,
		p.ID,
		p.Title,
		p.Description,
		p.CoverURL,
		p.ItemCount,
		p.Type,
		nullString(p.RemoteSyncID),
		nullString(p.AuthorID),
		nil,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return nil, dbError("failed to insert playlist", err)
	}

	return p, nil
}

// FindOrCreateRemotePlaylist returns the playlist mirroring payload's remote resource, creating it if absent.
//
// An existing playlist has its title, description, cover and author refreshed from the payload;
// its membership and sync bookkeeping are left untouched.
func (r *PlaylistRepository) FindOrCreateRemotePlaylist(ctx context.Context, payload models.PlaylistPayload) (*models.Playlist, error) {
	if err := payload.Validate(); err != nil {
		return nil, err
	}
	if !payload.Type.IsRemote() {
		return nil, fmt.Errorf("%w: %s playlist is not backed by a remote resource", shared.ErrValidation, payload.Type)
	}

	existing, err := r.FindByTypeAndRemoteID(ctx, payload.Type, payload.RemoteSyncID)
	if errors.Is(err, shared.ErrPlaylistNotFound) {
		return r.CreatePlaylist(ctx, payload)
	}
	if err != nil {
		return nil, err
	}

	existing.Title = payload.Title
	existing.Description = payload.Description
	existing.CoverURL = payload.CoverURL
	existing.AuthorID = payload.AuthorID
	existing.UpdatedAt = time.Now().UTC()

	query := `UPDATE playlists SET title = ?, description = ?, cover_url = ?, author_id = ?, updated_at = ? WHERE id = ?`
	_, err = r.db.ExecContext(ctx, query,
		existing.Title,
		existing.Description,
		existing.CoverURL,
		nullString(existing.AuthorID),
		existing.UpdatedAt,
		existing.ID,
	)
	if err != nil {
		return nil, dbError("failed to update playlist", err)
	}

	return existing, nil
}

// GetTracks returns the playlist's tracks in membership order.
func (r *PlaylistRepository) GetTracks(ctx context.Context, playlistID string) ([]*models.Track, error) {
	query := trackSelect + `
		JOIN playlist_tracks pt ON pt.track_id = t.id
		WHERE pt.playlist_id = ?
		ORDER BY pt.sort_order ASC
	`
	return queryTracks(ctx, r.db, query, playlistID)
}

// ReplaceAllTracks replaces the playlist's membership with trackIDs, ordered by position.
//
// The delete, the insert and the bookkeeping update (item count, last synced, updated) run in one transaction:
// the repository's own, or the caller's when bound with [PlaylistRepository.WithDB].
// Duplicate ids are rejected with [shared.ErrValidation].
func (r *PlaylistRepository) ReplaceAllTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	seen := make(map[string]bool, len(trackIDs))
	for _, id := range trackIDs {
		if seen[id] {
			return fmt.Errorf("%w: track %s appears twice in playlist %s", shared.ErrValidation, id, playlistID)
		}
		seen[id] = true
	}

	return inTx(ctx, r.db, func(tx DBTX) error {
		now := time.Now().UTC()
		res, err := tx.ExecContext(ctx,
			`UPDATE playlists SET item_count = ?, last_synced_at = ?, updated_at = ? WHERE id = ?`,
			len(trackIDs), now, now, playlistID,
		)
		if err != nil {
			return dbError("failed to update playlist bookkeeping", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return dbError("failed to read affected rows", err)
		} else if n == 0 {
			return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, playlistID)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM playlist_tracks WHERE playlist_id = ?`, playlistID); err != nil {
			return dbError("failed to clear playlist tracks", err)
		}

		offset := 0
		for _, batch := range chunk(trackIDs, batchSize) {
			args := make([]any, 0, len(batch)*3)
			for i, trackID := range batch {
				args = append(args, playlistID, trackID, offset+i)
			}
			query := `INSERT INTO playlist_tracks (playlist_id, track_id, sort_order) VALUES ` + valueRows(len(batch), 3)
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return dbError("failed to insert playlist tracks", err)
			}
			offset += len(batch)
		}

		return nil
	})
}

// AddTrack appends a track to the end of a local playlist.
func (r *PlaylistRepository) AddTrack(ctx context.Context, playlistID, trackID string) error {
	return inTx(ctx, r.db, func(tx DBTX) error {
		p, err := r.WithDB(tx).Get(ctx, playlistID)
		if err != nil {
			return err
		}
		if p.Type != models.PlaylistLocal {
			return fmt.Errorf("%w: %s playlist %s only changes through sync", shared.ErrValidation, p.Type, p.ID)
		}

		var exists bool
		err = tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM playlist_tracks WHERE playlist_id = ? AND track_id = ?)`,
			playlistID, trackID,
		).Scan(&exists)
		if err != nil {
			return dbError("failed to check playlist membership", err)
		}
		if exists {
			return fmt.Errorf("%w: track %s is already in playlist %s", shared.ErrValidation, trackID, playlistID)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO playlist_tracks (playlist_id, track_id, sort_order) VALUES (?, ?, ?)`,
			playlistID, trackID, p.ItemCount,
		)
		if err != nil {
			return dbError("failed to insert playlist track", err)
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE playlists SET item_count = item_count + 1, updated_at = ? WHERE id = ?`,
			time.Now().UTC(), playlistID,
		)
		if err != nil {
			return dbError("failed to update playlist", err)
		}
		return nil
	})
}

// List retrieves all playlists, optionally filtered by type
func (r *PlaylistRepository) List(ctx context.Context, t models.PlaylistType) ([]*models.Playlist, error) {
	query := `SELECT ` + playlistColumns + ` FROM playlists`
	args := []any{}
	if t != "" {
		query += ` WHERE type = ?`
		args = append(args, t)
	}
	query += ` ORDER BY created_at ASC, title ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dbError("failed to query playlists", err)
	}
	defer rows.Close()

	var playlists []*models.Playlist
	for rows.Next() {
		p, err := scanPlaylist(rows)
		if err != nil {
			return nil, err
		}
		playlists = append(playlists, p)
	}

	if err := rows.Err(); err != nil {
		return nil, dbError("row iteration error", err)
	}

	return playlists, nil
}

// Delete removes a playlist and its membership rows. Tracks and artists are kept.
func (r *PlaylistRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM playlists WHERE id = ?`, id)
	if err != nil {
		return dbError("failed to delete playlist", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return dbError("failed to read affected rows", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	}
	return nil
}

// scanOne scans a single row into a [models.Playlist]
func (r *PlaylistRepository) scanOne(row *sql.Row) (*models.Playlist, error) {
	p, err := scanPlaylist(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrPlaylistNotFound
	}
	return p, err
}

func scanPlaylist(s rowScanner) (*models.Playlist, error) {
	var (
		p            models.Playlist
		remoteSyncID sql.NullString
		authorID     sql.NullString
		lastSyncedAt sql.NullTime
	)

	err := s.Scan(
		&p.ID,
		&p.Title,
		&p.Description,
		&p.CoverURL,
		&p.ItemCount,
		&p.Type,
		&remoteSyncID,
		&authorID,
		&lastSyncedAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, dbError("failed to scan playlist", err)
	}

	p.RemoteSyncID = remoteSyncID.String
	p.AuthorID = authorID.String
	if lastSyncedAt.Valid {
		p.LastSyncedAt = &lastSyncedAt.Time
	}

	return &p, nil
}

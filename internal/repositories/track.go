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

const trackSelect = `
	SELECT t.id, t.title, t.artist_id, t.cover_url, t.duration, t.source, t.created_at, t.updated_at,
		b.bvid, b.cid, b.is_multi_page, b.video_is_valid, l.file_path
	FROM tracks t
	LEFT JOIN bilibili_metadata b ON b.track_id = t.id
	LEFT JOIN local_metadata l ON l.track_id = t.id
`

// TrackRepository resolves tracks by their source-specific natural key.
//
// A track row and its metadata row are always written together; existing tracks are never updated.
type TrackRepository struct {
	db DBTX
}

// NewTrackRepository creates a new TrackRepository with the given database handle
func NewTrackRepository(db DBTX) *TrackRepository {
	return &TrackRepository{db: db}
}

// WithDB returns a copy of the repository bound to db, typically a transaction.
func (r *TrackRepository) WithDB(db DBTX) *TrackRepository {
	return &TrackRepository{db: db}
}

// Get retrieves a track with its metadata by ID
func (r *TrackRepository) Get(ctx context.Context, id string) (*models.Track, error) {
	tracks, err := r.query(ctx, trackSelect+` WHERE t.id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(tracks) == 0 {
		return nil, shared.ErrTrackNotFound
	}
	return tracks[0], nil
}

// List retrieves all tracks, optionally filtered by source
func (r *TrackRepository) List(ctx context.Context, source models.Source) ([]*models.Track, error) {
	query := trackSelect
	args := []any{}
	if source != "" {
		query += ` WHERE t.source = ?`
		args = append(args, source)
	}
	query += ` ORDER BY t.created_at ASC, t.title ASC`
	return r.query(ctx, query, args...)
}

// FindOrCreateTrack looks up a track by its natural key and creates it if absent.
func (r *TrackRepository) FindOrCreateTrack(ctx context.Context, payload models.TrackPayload) (*models.Track, error) {
	tracks, err := r.FindOrCreateManyTracks(ctx, []models.TrackPayload{payload})
	if err != nil {
		return nil, err
	}

	key, err := models.UniqueKey(payload)
	if err != nil {
		return nil, err
	}
	return tracks[key], nil
}

// FindOrCreateManyTracks resolves a batch of tracks and returns them keyed by [models.UniqueKey].
//
// Existing tracks are matched in bulk; only the missing complement is inserted.
// Payloads sharing a key collapse to the first one. Lookup and inserts run in one transaction.
func (r *TrackRepository) FindOrCreateManyTracks(ctx context.Context, payloads []models.TrackPayload) (map[string]*models.Track, error) {
	keys := make([]string, 0, len(payloads))
	byKey := make(map[string]models.TrackPayload, len(payloads))
	for _, p := range payloads {
		key, err := models.UniqueKey(p)
		if err != nil {
			return nil, err
		}
		if _, ok := byKey[key]; ok {
			continue
		}
		byKey[key] = p
		keys = append(keys, key)
	}

	metas := make([]models.Metadata, len(keys))
	for i, key := range keys {
		metas[i] = byKey[key].Metadata
	}

	var result map[string]*models.Track
	err := inTx(ctx, r.db, func(tx DBTX) error {
		repo := r.WithDB(tx)

		found, err := repo.findByMetadata(ctx, metas)
		if err != nil {
			return err
		}

		var missing []*models.Track
		now := time.Now().UTC()
		for _, key := range keys {
			if _, ok := found[key]; ok {
				continue
			}
			p := byKey[key]
			track := &models.Track{
				ID:        shared.GenerateID(),
				Title:     p.Title,
				ArtistID:  p.ArtistID,
				CoverURL:  p.CoverURL,
				Duration:  p.Duration,
				Source:    p.Source(),
				Metadata:  p.Metadata,
				CreatedAt: now,
				UpdatedAt: now,
			}
			missing = append(missing, track)
			found[key] = track
		}

		if err := repo.insert(ctx, missing); err != nil {
			return err
		}
		result = found
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// FindTrackIDsByUniqueKeys maps each key to the id of the track it identifies.
// Keys without a matching track are absent from the result.
func (r *TrackRepository) FindTrackIDsByUniqueKeys(ctx context.Context, keys []string) (map[string]string, error) {
	metas := make([]models.Metadata, 0, len(keys))
	for _, key := range keys {
		m, err := models.ParseUniqueKey(key)
		if err != nil {
			return nil, err
		}
		metas = append(metas, m)
	}

	tracks, err := r.findByMetadata(ctx, metas)
	if err != nil {
		return nil, err
	}

	ids := make(map[string]string, len(tracks))
	for key, track := range tracks {
		ids[key] = track.ID
	}
	return ids, nil
}

// findByMetadata loads the tracks matching metas, keyed by unique key.
//
// Rows are fetched per natural-key column (bvid, file_path) and filtered on the full key, since a bvid
// lookup also returns the other parts of the same video.
func (r *TrackRepository) findByMetadata(ctx context.Context, metas []models.Metadata) (map[string]*models.Track, error) {
	wanted := make(map[string]bool, len(metas))
	var bvids, paths []any
	seenBVID := make(map[string]bool)

	for _, m := range metas {
		key, err := models.MetadataKey(m)
		if err != nil {
			return nil, err
		}
		wanted[key] = true

		switch m := m.(type) {
		case models.BilibiliMetadata:
			if !seenBVID[m.BVID] {
				seenBVID[m.BVID] = true
				bvids = append(bvids, m.BVID)
			}
		case models.LocalMetadata:
			paths = append(paths, m.FilePath)
		default:
			return nil, fmt.Errorf("%w: unrecognized track metadata %T", shared.ErrValidation, m)
		}
	}

	result := make(map[string]*models.Track, len(metas))
	collect := func(column string, values []any) error {
		for _, batch := range chunk(values, batchSize) {
			query := trackSelect + ` WHERE ` + column + ` IN (` + placeholders(len(batch)) + `)`
			tracks, err := r.query(ctx, query, batch...)
			if err != nil {
				return err
			}
			for _, t := range tracks {
				key, err := t.UniqueKey()
				if err != nil {
					return err
				}
				if wanted[key] {
					result[key] = t
				}
			}
		}
		return nil
	}

	if err := collect("b.bvid", bvids); err != nil {
		return nil, err
	}
	if err := collect("l.file_path", paths); err != nil {
		return nil, err
	}

	return result, nil
}

// insert writes tracks and their metadata rows with multi-row INSERT statements.
func (r *TrackRepository) insert(ctx context.Context, tracks []*models.Track) error {
	for _, batch := range chunk(tracks, batchSize) {
		args := make([]any, 0, len(batch)*8)
		var bilibiliArgs, localArgs []any
		bilibiliRows, localRows := 0, 0

		for _, t := range batch {
			if err := t.Validate(); err != nil {
				return err
			}
			args = append(args, t.ID, t.Title, nullString(t.ArtistID), t.CoverURL, t.Duration, t.Source, t.CreatedAt, t.UpdatedAt)

			switch m := t.Metadata.(type) {
			case models.BilibiliMetadata:
				var cid sql.NullInt64
				if m.CID != nil {
					cid = sql.NullInt64{Int64: *m.CID, Valid: true}
				}
				bilibiliArgs = append(bilibiliArgs, t.ID, m.BVID, cid, m.IsMultiPage, m.VideoIsValid)
				bilibiliRows++
			case models.LocalMetadata:
				localArgs = append(localArgs, t.ID, m.FilePath)
				localRows++
			default:
				return fmt.Errorf("%w: unrecognized track metadata %T", shared.ErrValidation, m)
			}
		}

		query := `INSERT INTO tracks (id, title, artist_id, cover_url, duration, source, created_at, updated_at) VALUES ` + valueRows(len(batch), 8)
		if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
			return dbError("failed to insert tracks", err)
		}

		if bilibiliRows > 0 {
			query := `INSERT INTO bilibili_metadata (track_id, bvid, cid, is_multi_page, video_is_valid) VALUES ` + valueRows(bilibiliRows, 5)
			if _, err := r.db.ExecContext(ctx, query, bilibiliArgs...); err != nil {
				return dbError("failed to insert bilibili metadata", err)
			}
		}

		if localRows > 0 {
			query := `INSERT INTO local_metadata (track_id, file_path) VALUES ` + valueRows(localRows, 2)
			if _, err := r.db.ExecContext(ctx, query, localArgs...); err != nil {
				return dbError("failed to insert local metadata", err)
			}
		}
	}
	return nil
}

func (r *TrackRepository) query(ctx context.Context, query string, args ...any) ([]*models.Track, error) {
	return queryTracks(ctx, r.db, query, args...)
}

func queryTracks(ctx context.Context, db DBTX, query string, args ...any) ([]*models.Track, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dbError("failed to query tracks", err)
	}
	defer rows.Close()

	var tracks []*models.Track
	for rows.Next() {
		track, err := scanTrack(rows)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, track)
	}

	if err := rows.Err(); err != nil {
		return nil, dbError("row iteration error", err)
	}

	return tracks, nil
}

// scanTrack scans a row of trackSelect into a [models.Track], rebuilding the metadata variant from its source.
func scanTrack(s rowScanner) (*models.Track, error) {
	var (
		t            models.Track
		artistID     sql.NullString
		bvid         sql.NullString
		cid          sql.NullInt64
		isMultiPage  sql.NullBool
		videoIsValid sql.NullBool
		filePath     sql.NullString
	)

	err := s.Scan(&t.ID, &t.Title, &artistID, &t.CoverURL, &t.Duration, &t.Source, &t.CreatedAt, &t.UpdatedAt,
		&bvid, &cid, &isMultiPage, &videoIsValid, &filePath)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrTrackNotFound
	}
	if err != nil {
		return nil, dbError("failed to scan track", err)
	}

	t.ArtistID = artistID.String

	switch t.Source {
	case models.SourceBilibili:
		if !bvid.Valid {
			return nil, fmt.Errorf("%w: bilibili track %s has no metadata row", shared.ErrDatabase, t.ID)
		}
		m := models.BilibiliMetadata{BVID: bvid.String, IsMultiPage: isMultiPage.Bool, VideoIsValid: videoIsValid.Bool}
		if cid.Valid {
			v := cid.Int64
			m.CID = &v
		}
		t.Metadata = m
	case models.SourceLocal:
		if !filePath.Valid {
			return nil, fmt.Errorf("%w: local track %s has no metadata row", shared.ErrDatabase, t.ID)
		}
		t.Metadata = models.LocalMetadata{FilePath: filePath.String}
	default:
		return nil, fmt.Errorf("%w: track %s has unknown source %q", shared.ErrDatabase, t.ID, t.Source)
	}

	return &t, nil
}

package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/bilisync/internal/models"
	"github.com/desertthunder/bilisync/internal/shared"
)

const artistColumns = `id, name, avatar_url, signature, source, remote_id, created_at`

// ArtistRepository resolves artists by natural key.
//
// Artists are created once and never refreshed: a renamed uploader keeps the name recorded on first sight.
type ArtistRepository struct {
	db DBTX
}

// NewArtistRepository creates a new ArtistRepository with the given database handle
func NewArtistRepository(db DBTX) *ArtistRepository {
	return &ArtistRepository{db: db}
}

// WithDB returns a copy of the repository bound to db, typically a transaction.
func (r *ArtistRepository) WithDB(db DBTX) *ArtistRepository {
	return &ArtistRepository{db: db}
}

// Get retrieves an artist by ID
func (r *ArtistRepository) Get(ctx context.Context, id string) (*models.Artist, error) {
	query := `SELECT ` + artistColumns + ` FROM artists WHERE id = ?`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

// FindOrCreateArtist looks up an artist by its composite identity and creates it if absent.
func (r *ArtistRepository) FindOrCreateArtist(ctx context.Context, payload models.ArtistPayload) (*models.Artist, error) {
	if err := payload.Validate(); err != nil {
		return nil, err
	}

	var row *sql.Row
	if payload.Source == models.SourceLocal {
		query := `SELECT ` + artistColumns + ` FROM artists WHERE source = ? AND name = ? AND remote_id IS NULL`
		row = r.db.QueryRowContext(ctx, query, payload.Source, payload.IdentityName())
	} else {
		query := `SELECT ` + artistColumns + ` FROM artists WHERE source = ? AND remote_id = ?`
		row = r.db.QueryRowContext(ctx, query, payload.Source, payload.RemoteID)
	}

	artist, err := r.scanOne(row)
	if err == nil {
		return artist, nil
	}
	if !errors.Is(err, shared.ErrArtistNotFound) {
		return nil, err
	}

	artist = newArtist(payload)
	if err := r.insert(ctx, []*models.Artist{artist}); err != nil {
		return nil, err
	}
	return artist, nil
}

// FindOrCreateManyRemoteArtists resolves a batch of remote artists.
//
// Existing rows are looked up with OR-ed (source, remote_id) predicates, only the missing complement is
// inserted, and the result maps every payload's remote id to its row. Duplicate payloads collapse to one row.
func (r *ArtistRepository) FindOrCreateManyRemoteArtists(ctx context.Context, payloads []models.ArtistPayload) (map[string]*models.Artist, error) {
	unique := make([]models.ArtistPayload, 0, len(payloads))
	seen := make(map[string]bool, len(payloads))
	for _, p := range payloads {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if p.Source == models.SourceLocal {
			return nil, fmt.Errorf("%w: local artist %q passed to remote artist batch", shared.ErrValidation, p.Name)
		}
		if seen[p.RemoteID] {
			continue
		}
		seen[p.RemoteID] = true
		unique = append(unique, p)
	}

	result := make(map[string]*models.Artist, len(unique))
	for _, batch := range chunk(unique, batchSize) {
		predicates := make([]string, len(batch))
		args := make([]any, 0, len(batch)*2)
		for i, p := range batch {
			predicates[i] = "(source = ? AND remote_id = ?)"
			args = append(args, p.Source, p.RemoteID)
		}

		query := `SELECT ` + artistColumns + ` FROM artists WHERE ` + strings.Join(predicates, " OR ")
		existing, err := r.query(ctx, query, args...)
		if err != nil {
			return nil, err
		}
		for _, a := range existing {
			result[a.RemoteID] = a
		}
	}

	var missing []*models.Artist
	for _, p := range unique {
		if _, ok := result[p.RemoteID]; !ok {
			artist := newArtist(p)
			missing = append(missing, artist)
			result[p.RemoteID] = artist
		}
	}

	if err := r.insert(ctx, missing); err != nil {
		return nil, err
	}

	return result, nil
}

// List retrieves all artists, optionally filtered by source
func (r *ArtistRepository) List(ctx context.Context, source models.Source) ([]*models.Artist, error) {
	query := `SELECT ` + artistColumns + ` FROM artists`
	args := []any{}
	if source != "" {
		query += ` WHERE source = ?`
		args = append(args, source)
	}
	query += ` ORDER BY created_at ASC, name ASC`
	return r.query(ctx, query, args...)
}

func newArtist(p models.ArtistPayload) *models.Artist {
	name := p.Name
	remoteID := p.RemoteID
	if p.Source == models.SourceLocal {
		name = p.IdentityName()
		remoteID = ""
	}
	return &models.Artist{
		ID:        shared.GenerateID(),
		Name:      name,
		AvatarURL: p.AvatarURL,
		Signature: p.Signature,
		Source:    p.Source,
		RemoteID:  remoteID,
		CreatedAt: time.Now().UTC(),
	}
}

// insert writes artists with multi-row INSERT statements.
func (r *ArtistRepository) insert(ctx context.Context, artists []*models.Artist) error {
	for _, batch := range chunk(artists, batchSize) {
		args := make([]any, 0, len(batch)*7)
		for _, a := range batch {
			args = append(args, a.ID, a.Name, a.AvatarURL, a.Signature, a.Source, nullString(a.RemoteID), a.CreatedAt)
		}

		query := `INSERT INTO artists (` + artistColumns + `) VALUES ` + valueRows(len(batch), 7)
		if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
			return dbError("failed to insert artists", err)
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *ArtistRepository) query(ctx context.Context, query string, args ...any) ([]*models.Artist, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dbError("failed to query artists", err)
	}
	defer rows.Close()

	var artists []*models.Artist
	for rows.Next() {
		artist, err := scanArtist(rows)
		if err != nil {
			return nil, err
		}
		artists = append(artists, artist)
	}

	if err := rows.Err(); err != nil {
		return nil, dbError("row iteration error", err)
	}

	return artists, nil
}

// scanOne scans a single row into a [models.Artist]
func (r *ArtistRepository) scanOne(row *sql.Row) (*models.Artist, error) {
	artist, err := scanArtist(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrArtistNotFound
	}
	return artist, err
}

func scanArtist(s rowScanner) (*models.Artist, error) {
	var (
		a        models.Artist
		remoteID sql.NullString
	)

	err := s.Scan(&a.ID, &a.Name, &a.AvatarURL, &a.Signature, &a.Source, &remoteID, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, dbError("failed to scan artist", err)
	}

	a.RemoteID = remoteID.String
	return &a, nil
}

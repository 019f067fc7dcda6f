package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/desertthunder/bilisync/internal/models"
	"github.com/desertthunder/bilisync/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		t.Fatalf("failed to enable foreign keys: %v", err)
	}

	if _, err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

func cid(v int64) *int64 { return &v }

func videoPayload(bvid string) models.TrackPayload {
	return models.TrackPayload{Title: "video " + bvid, Metadata: models.BilibiliMetadata{BVID: bvid, VideoIsValid: true}}
}

func createTracks(t *testing.T, repo *TrackRepository, bvids ...string) []string {
	t.Helper()

	payloads := make([]models.TrackPayload, len(bvids))
	for i, bvid := range bvids {
		payloads[i] = videoPayload(bvid)
	}

	tracks, err := repo.FindOrCreateManyTracks(context.Background(), payloads)
	if err != nil {
		t.Fatalf("failed to create tracks: %v", err)
	}

	ids := make([]string, len(bvids))
	for i, bvid := range bvids {
		ids[i] = tracks[models.BilibiliKey(bvid, nil)].ID
	}
	return ids
}

func countRows(t *testing.T, db *sql.DB, table string) int {
	t.Helper()

	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
		t.Fatalf("failed to count %s: %v", table, err)
	}
	return n
}

func TestArtistRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("FindOrCreateArtist is idempotent", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewArtistRepository(db)
		payload := models.ArtistPayload{Name: "up", Source: models.SourceBilibili, RemoteID: "123"}

		first, err := repo.FindOrCreateArtist(ctx, payload)
		if err != nil {
			t.Fatalf("failed to create artist: %v", err)
		}

		payload.Name = "renamed"
		second, err := repo.FindOrCreateArtist(ctx, payload)
		if err != nil {
			t.Fatalf("failed to find artist: %v", err)
		}

		if first.ID != second.ID {
			t.Errorf("expected same artist, got %s and %s", first.ID, second.ID)
		}
		if second.Name != "up" {
			t.Errorf("expected existing name to be kept, got %s", second.Name)
		}
		if n := countRows(t, db, "artists"); n != 1 {
			t.Errorf("expected 1 artist row, got %d", n)
		}
	})

	t.Run("local artists match on normalised name", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewArtistRepository(db)
		first, err := repo.FindOrCreateArtist(ctx, models.ArtistPayload{Name: "Beyoncé", Source: models.SourceLocal})
		if err != nil {
			t.Fatalf("failed to create artist: %v", err)
		}
		second, err := repo.FindOrCreateArtist(ctx, models.ArtistPayload{Name: " Beyoncé ", Source: models.SourceLocal})
		if err != nil {
			t.Fatalf("failed to find artist: %v", err)
		}

		if first.ID != second.ID {
			t.Errorf("expected same artist, got %s and %s", first.ID, second.ID)
		}
	})

	t.Run("rejects payload without identity", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		_, err := NewArtistRepository(db).FindOrCreateArtist(ctx, models.ArtistPayload{Name: "up", Source: models.SourceBilibili})
		if !errors.Is(err, shared.ErrValidation) {
			t.Errorf("expected validation error, got %v", err)
		}
	})

	t.Run("FindOrCreateManyRemoteArtists creates one row per unique artist", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewArtistRepository(db)
		existing, err := repo.FindOrCreateArtist(ctx, models.ArtistPayload{Name: "a", Source: models.SourceBilibili, RemoteID: "1"})
		if err != nil {
			t.Fatalf("failed to create artist: %v", err)
		}

		var payloads []models.ArtistPayload
		for i := range 10 {
			remoteID := fmt.Sprint(i%3 + 1)
			payloads = append(payloads, models.ArtistPayload{Name: "up " + remoteID, Source: models.SourceBilibili, RemoteID: remoteID})
		}

		artists, err := repo.FindOrCreateManyRemoteArtists(ctx, payloads)
		if err != nil {
			t.Fatalf("failed to resolve artists: %v", err)
		}

		if len(artists) != 3 {
			t.Errorf("expected 3 resolved artists, got %d", len(artists))
		}
		if artists["1"].ID != existing.ID {
			t.Errorf("expected existing artist %s, got %s", existing.ID, artists["1"].ID)
		}
		if n := countRows(t, db, "artists"); n != 3 {
			t.Errorf("expected 3 artist rows, got %d", n)
		}
	})

	t.Run("FindOrCreateManyRemoteArtists spans batches", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		var payloads []models.ArtistPayload
		for i := range batchSize + 50 {
			payloads = append(payloads, models.ArtistPayload{Name: "up", Source: models.SourceBilibili, RemoteID: fmt.Sprint(i)})
		}

		repo := NewArtistRepository(db)
		if _, err := repo.FindOrCreateManyRemoteArtists(ctx, payloads); err != nil {
			t.Fatalf("failed to resolve artists: %v", err)
		}
		artists, err := repo.FindOrCreateManyRemoteArtists(ctx, payloads)
		if err != nil {
			t.Fatalf("failed to resolve artists again: %v", err)
		}

		if len(artists) != batchSize+50 {
			t.Errorf("expected %d artists, got %d", batchSize+50, len(artists))
		}
		if n := countRows(t, db, "artists"); n != batchSize+50 {
			t.Errorf("expected %d artist rows, got %d", batchSize+50, n)
		}
	})

	t.Run("FindOrCreateManyRemoteArtists rejects local payloads", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		_, err := NewArtistRepository(db).FindOrCreateManyRemoteArtists(ctx, []models.ArtistPayload{{Name: "me", Source: models.SourceLocal}})
		if !errors.Is(err, shared.ErrValidation) {
			t.Errorf("expected validation error, got %v", err)
		}
	})

	t.Run("Get missing artist", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		if _, err := NewArtistRepository(db).Get(ctx, "missing"); !errors.Is(err, shared.ErrArtistNotFound) {
			t.Errorf("expected artist not found, got %v", err)
		}
	})
}

func TestTrackRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("FindOrCreateTrack round trips metadata", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewTrackRepository(db)
		payload := models.TrackPayload{
			Title:    "part 2",
			Duration: 95,
			Metadata: models.BilibiliMetadata{BVID: "BV1", CID: cid(22), IsMultiPage: true, VideoIsValid: true},
		}

		created, err := repo.FindOrCreateTrack(ctx, payload)
		if err != nil {
			t.Fatalf("failed to create track: %v", err)
		}

		retrieved, err := repo.Get(ctx, created.ID)
		if err != nil {
			t.Fatalf("failed to get track: %v", err)
		}

		m, ok := retrieved.Metadata.(models.BilibiliMetadata)
		if !ok {
			t.Fatalf("expected bilibili metadata, got %T", retrieved.Metadata)
		}
		if m.BVID != "BV1" || m.CID == nil || *m.CID != 22 || !m.IsMultiPage || !m.VideoIsValid {
			t.Errorf("unexpected metadata %+v", m)
		}
		if retrieved.Duration != 95 || retrieved.Source != models.SourceBilibili {
			t.Errorf("unexpected track %+v", retrieved)
		}
	})

	t.Run("parts of one video are distinct tracks", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewTrackRepository(db)
		payloads := []models.TrackPayload{
			videoPayload("BV1"),
			{Title: "p1", Metadata: models.BilibiliMetadata{BVID: "BV1", CID: cid(1), IsMultiPage: true}},
			{Title: "p2", Metadata: models.BilibiliMetadata{BVID: "BV1", CID: cid(2), IsMultiPage: true}},
		}

		tracks, err := repo.FindOrCreateManyTracks(ctx, payloads)
		if err != nil {
			t.Fatalf("failed to create tracks: %v", err)
		}
		if len(tracks) != 3 {
			t.Errorf("expected 3 tracks, got %d", len(tracks))
		}

		again, err := repo.FindOrCreateManyTracks(ctx, payloads)
		if err != nil {
			t.Fatalf("failed to resolve tracks: %v", err)
		}
		for key, track := range tracks {
			if again[key].ID != track.ID {
				t.Errorf("%s resolved to %s, want %s", key, again[key].ID, track.ID)
			}
		}
		if n := countRows(t, db, "bilibili_metadata"); n != 3 {
			t.Errorf("expected 3 metadata rows, got %d", n)
		}
	})

	t.Run("local tracks", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewTrackRepository(db)
		payload := models.TrackPayload{Title: "song", Metadata: models.LocalMetadata{FilePath: "/music/song.flac"}}

		first, err := repo.FindOrCreateTrack(ctx, payload)
		if err != nil {
			t.Fatalf("failed to create track: %v", err)
		}
		second, err := repo.FindOrCreateTrack(ctx, payload)
		if err != nil {
			t.Fatalf("failed to find track: %v", err)
		}

		if first.ID != second.ID {
			t.Errorf("expected same track, got %s and %s", first.ID, second.ID)
		}
		if first.Source != models.SourceLocal {
			t.Errorf("expected local source, got %s", first.Source)
		}
	})

	t.Run("tracks link to de-duplicated artists", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		artistRepo := NewArtistRepository(db)
		trackRepo := NewTrackRepository(db)

		var artistPayloads []models.ArtistPayload
		for i := range 6 {
			artistPayloads = append(artistPayloads, models.ArtistPayload{Name: "up", Source: models.SourceBilibili, RemoteID: fmt.Sprint(i % 2)})
		}
		artists, err := artistRepo.FindOrCreateManyRemoteArtists(ctx, artistPayloads)
		if err != nil {
			t.Fatalf("failed to resolve artists: %v", err)
		}

		var trackPayloads []models.TrackPayload
		for i, a := range artistPayloads {
			p := videoPayload(fmt.Sprintf("BV%d", i))
			p.ArtistID = artists[a.RemoteID].ID
			trackPayloads = append(trackPayloads, p)
		}
		tracks, err := trackRepo.FindOrCreateManyTracks(ctx, trackPayloads)
		if err != nil {
			t.Fatalf("failed to resolve tracks: %v", err)
		}

		if n := countRows(t, db, "artists"); n != 2 {
			t.Errorf("expected 2 artist rows, got %d", n)
		}
		valid := map[string]bool{artists["0"].ID: true, artists["1"].ID: true}
		for key, track := range tracks {
			stored, err := trackRepo.Get(ctx, track.ID)
			if err != nil {
				t.Fatalf("failed to get track: %v", err)
			}
			if !valid[stored.ArtistID] {
				t.Errorf("%s links to unknown artist %q", key, stored.ArtistID)
			}
		}
	})

	t.Run("FindTrackIDsByUniqueKeys", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewTrackRepository(db)
		ids := createTracks(t, repo, "BVa", "BVb")

		found, err := repo.FindTrackIDsByUniqueKeys(ctx, []string{"bilibili::BVa", "bilibili::BVb", "bilibili::BVz", "bilibili::BVa::1"})
		if err != nil {
			t.Fatalf("failed to look up keys: %v", err)
		}

		if len(found) != 2 {
			t.Errorf("expected 2 ids, got %v", found)
		}
		if found["bilibili::BVa"] != ids[0] || found["bilibili::BVb"] != ids[1] {
			t.Errorf("unexpected ids %v", found)
		}
	})

	t.Run("rejects malformed payloads", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		_, err := NewTrackRepository(db).FindOrCreateManyTracks(ctx, []models.TrackPayload{videoPayload("BV1"), {Title: "bad"}})
		if !errors.Is(err, shared.ErrValidation) {
			t.Errorf("expected validation error, got %v", err)
		}
		if n := countRows(t, db, "tracks"); n != 0 {
			t.Errorf("expected no rows, got %d", n)
		}
	})
}

func TestPlaylistRepository(t *testing.T) {
	ctx := context.Background()
	favorite := models.PlaylistPayload{Title: "fav", Type: models.PlaylistFavorite, RemoteSyncID: "42"}

	t.Run("FindOrCreateRemotePlaylist refreshes metadata", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewPlaylistRepository(db)
		created, err := repo.FindOrCreateRemotePlaylist(ctx, favorite)
		if err != nil {
			t.Fatalf("failed to create playlist: %v", err)
		}

		renamed := favorite
		renamed.Title = "renamed"
		found, err := repo.FindOrCreateRemotePlaylist(ctx, renamed)
		if err != nil {
			t.Fatalf("failed to find playlist: %v", err)
		}

		if found.ID != created.ID {
			t.Errorf("expected same playlist, got %s and %s", found.ID, created.ID)
		}

		stored, err := repo.FindByTypeAndRemoteID(ctx, models.PlaylistFavorite, "42")
		if err != nil {
			t.Fatalf("failed to find playlist: %v", err)
		}
		if stored.Title != "renamed" {
			t.Errorf("expected refreshed title, got %s", stored.Title)
		}
		if stored.LastSyncedAt != nil {
			t.Errorf("expected no sync timestamp, got %v", stored.LastSyncedAt)
		}
	})

	t.Run("FindByTypeAndRemoteID not found", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		_, err := NewPlaylistRepository(db).FindByTypeAndRemoteID(ctx, models.PlaylistCollection, "42")
		if !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected playlist not found, got %v", err)
		}
	})

	t.Run("ReplaceAllTracks writes dense order", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		playlists := NewPlaylistRepository(db)
		p, err := playlists.CreatePlaylist(ctx, favorite)
		if err != nil {
			t.Fatalf("failed to create playlist: %v", err)
		}
		ids := createTracks(t, NewTrackRepository(db), "BVc", "BVa", "BVb")

		if err := playlists.ReplaceAllTracks(ctx, p.ID, ids); err != nil {
			t.Fatalf("failed to replace tracks: %v", err)
		}
		if err := playlists.ReplaceAllTracks(ctx, p.ID, []string{ids[2], ids[0]}); err != nil {
			t.Fatalf("failed to replace tracks: %v", err)
		}

		tracks, err := playlists.GetTracks(ctx, p.ID)
		if err != nil {
			t.Fatalf("failed to get tracks: %v", err)
		}
		if len(tracks) != 2 || tracks[0].ID != ids[2] || tracks[1].ID != ids[0] {
			t.Errorf("unexpected membership %v", tracks)
		}

		var orders []int
		rows, err := db.Query("SELECT sort_order FROM playlist_tracks WHERE playlist_id = ? ORDER BY sort_order", p.ID)
		if err != nil {
			t.Fatalf("failed to query order: %v", err)
		}
		defer rows.Close()
		for rows.Next() {
			var o int
			if err := rows.Scan(&o); err != nil {
				t.Fatalf("failed to scan order: %v", err)
			}
			orders = append(orders, o)
		}
		if len(orders) != 2 || orders[0] != 0 || orders[1] != 1 {
			t.Errorf("expected orders [0 1], got %v", orders)
		}

		stored, err := playlists.Get(ctx, p.ID)
		if err != nil {
			t.Fatalf("failed to get playlist: %v", err)
		}
		if stored.ItemCount != 2 {
			t.Errorf("expected item count 2, got %d", stored.ItemCount)
		}
		if stored.LastSyncedAt == nil {
			t.Error("expected last synced timestamp to be set")
		}
	})

	t.Run("ReplaceAllTracks across batches", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		playlists := NewPlaylistRepository(db)
		p, err := playlists.CreatePlaylist(ctx, favorite)
		if err != nil {
			t.Fatalf("failed to create playlist: %v", err)
		}

		bvids := make([]string, batchSize*2+3)
		for i := range bvids {
			bvids[i] = fmt.Sprintf("BV%04d", i)
		}
		ids := createTracks(t, NewTrackRepository(db), bvids...)

		if err := playlists.ReplaceAllTracks(ctx, p.ID, ids); err != nil {
			t.Fatalf("failed to replace tracks: %v", err)
		}

		tracks, err := playlists.GetTracks(ctx, p.ID)
		if err != nil {
			t.Fatalf("failed to get tracks: %v", err)
		}
		for i, track := range tracks {
			if track.ID != ids[i] {
				t.Fatalf("position %d: expected %s, got %s", i, ids[i], track.ID)
			}
		}
	})

	t.Run("ReplaceAllTracks is all or nothing", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		playlists := NewPlaylistRepository(db)
		p, err := playlists.CreatePlaylist(ctx, favorite)
		if err != nil {
			t.Fatalf("failed to create playlist: %v", err)
		}
		ids := createTracks(t, NewTrackRepository(db), "BVa", "BVb")
		if err := playlists.ReplaceAllTracks(ctx, p.ID, ids); err != nil {
			t.Fatalf("failed to replace tracks: %v", err)
		}

		err = playlists.ReplaceAllTracks(ctx, p.ID, []string{ids[1], "missing-track"})
		if !errors.Is(err, shared.ErrDatabase) {
			t.Fatalf("expected database error, got %v", err)
		}

		tracks, err := playlists.GetTracks(ctx, p.ID)
		if err != nil {
			t.Fatalf("failed to get tracks: %v", err)
		}
		if len(tracks) != 2 || tracks[0].ID != ids[0] {
			t.Errorf("expected previous membership to survive, got %v", tracks)
		}
		stored, _ := playlists.Get(ctx, p.ID)
		if stored.ItemCount != 2 {
			t.Errorf("expected item count 2, got %d", stored.ItemCount)
		}
	})

	t.Run("ReplaceAllTracks rejects duplicates", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		playlists := NewPlaylistRepository(db)
		p, _ := playlists.CreatePlaylist(ctx, favorite)
		ids := createTracks(t, NewTrackRepository(db), "BVa")

		if err := playlists.ReplaceAllTracks(ctx, p.ID, []string{ids[0], ids[0]}); !errors.Is(err, shared.ErrValidation) {
			t.Errorf("expected validation error, got %v", err)
		}
	})

	t.Run("ReplaceAllTracks unknown playlist", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		if err := NewPlaylistRepository(db).ReplaceAllTracks(ctx, "missing", nil); !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected playlist not found, got %v", err)
		}
	})

	t.Run("ReplaceAllTracks joins the caller transaction", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		playlists := NewPlaylistRepository(db)
		p, _ := playlists.CreatePlaylist(ctx, favorite)
		sentinel := errors.New("abort")

		err := RunInTx(ctx, db, func(tx *sql.Tx) error {
			ids := createTracks(t, NewTrackRepository(tx), "BVa")
			if err := playlists.WithDB(tx).ReplaceAllTracks(ctx, p.ID, ids); err != nil {
				return err
			}
			return sentinel
		})
		if !errors.Is(err, sentinel) {
			t.Fatalf("expected sentinel error, got %v", err)
		}

		if n := countRows(t, db, "tracks"); n != 0 {
			t.Errorf("expected tracks to roll back, got %d", n)
		}
		if n := countRows(t, db, "playlist_tracks"); n != 0 {
			t.Errorf("expected membership to roll back, got %d", n)
		}
	})

	t.Run("AddTrack appends to local playlists only", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		playlists := NewPlaylistRepository(db)
		local, err := playlists.CreatePlaylist(ctx, models.PlaylistPayload{Title: "mine", Type: models.PlaylistLocal})
		if err != nil {
			t.Fatalf("failed to create playlist: %v", err)
		}
		remote, _ := playlists.CreatePlaylist(ctx, favorite)
		ids := createTracks(t, NewTrackRepository(db), "BVa", "BVb")

		for _, id := range ids {
			if err := playlists.AddTrack(ctx, local.ID, id); err != nil {
				t.Fatalf("failed to add track: %v", err)
			}
		}

		if err := playlists.AddTrack(ctx, local.ID, ids[0]); !errors.Is(err, shared.ErrValidation) {
			t.Errorf("expected validation error for duplicate, got %v", err)
		}
		if err := playlists.AddTrack(ctx, remote.ID, ids[0]); !errors.Is(err, shared.ErrValidation) {
			t.Errorf("expected validation error for remote playlist, got %v", err)
		}

		tracks, _ := playlists.GetTracks(ctx, local.ID)
		if len(tracks) != 2 || tracks[0].ID != ids[0] || tracks[1].ID != ids[1] {
			t.Errorf("unexpected membership %v", tracks)
		}
		stored, _ := playlists.Get(ctx, local.ID)
		if stored.ItemCount != 2 {
			t.Errorf("expected item count 2, got %d", stored.ItemCount)
		}
	})

	t.Run("List and Delete", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		playlists := NewPlaylistRepository(db)
		p, _ := playlists.CreatePlaylist(ctx, favorite)
		if _, err := playlists.CreatePlaylist(ctx, models.PlaylistPayload{Title: "mine", Type: models.PlaylistLocal}); err != nil {
			t.Fatalf("failed to create playlist: %v", err)
		}
		ids := createTracks(t, NewTrackRepository(db), "BVa")
		if err := playlists.ReplaceAllTracks(ctx, p.ID, ids); err != nil {
			t.Fatalf("failed to replace tracks: %v", err)
		}

		all, err := playlists.List(ctx, "")
		if err != nil {
			t.Fatalf("failed to list playlists: %v", err)
		}
		if len(all) != 2 {
			t.Errorf("expected 2 playlists, got %d", len(all))
		}

		favorites, err := playlists.List(ctx, models.PlaylistFavorite)
		if err != nil {
			t.Fatalf("failed to list playlists: %v", err)
		}
		if len(favorites) != 1 || favorites[0].ID != p.ID {
			t.Errorf("unexpected favorites %v", favorites)
		}

		if err := playlists.Delete(ctx, p.ID); err != nil {
			t.Fatalf("failed to delete playlist: %v", err)
		}
		if n := countRows(t, db, "playlist_tracks"); n != 0 {
			t.Errorf("expected membership to cascade, got %d", n)
		}
		if n := countRows(t, db, "tracks"); n != 1 {
			t.Errorf("expected track to be kept, got %d", n)
		}
		if err := playlists.Delete(ctx, p.ID); !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected playlist not found, got %v", err)
		}
	})
}

func TestRunInTx(t *testing.T) {
	ctx := context.Background()

	t.Run("rolls back and re-panics", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		func() {
			defer func() {
				if recover() == nil {
					t.Error("expected panic to propagate")
				}
			}()
			_ = RunInTx(ctx, db, func(tx *sql.Tx) error {
				createTracks(t, NewTrackRepository(tx), "BVa")
				panic("boom")
			})
		}()

		if n := countRows(t, db, "tracks"); n != 0 {
			t.Errorf("expected rollback, got %d tracks", n)
		}
	})

	t.Run("commits on success", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		err := RunInTx(ctx, db, func(tx *sql.Tx) error {
			createTracks(t, NewTrackRepository(tx), "BVa")
			return nil
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if n := countRows(t, db, "tracks"); n != 1 {
			t.Errorf("expected 1 track, got %d", n)
		}
	})
}

func TestHelpers(t *testing.T) {
	t.Run("chunk", func(t *testing.T) {
		got := chunk([]int{1, 2, 3, 4, 5}, 2)
		if len(got) != 3 || len(got[2]) != 1 || got[2][0] != 5 {
			t.Errorf("unexpected chunks %v", got)
		}
		if len(chunk([]int{}, 2)) != 0 {
			t.Error("expected no chunks for empty input")
		}
	})

	t.Run("valueRows", func(t *testing.T) {
		if got := valueRows(2, 2); got != "(?, ?), (?, ?)" {
			t.Errorf("unexpected rows %q", got)
		}
	})
}

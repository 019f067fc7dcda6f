// Package repositories persists the local snapshot in SQLite and implements the entity resolver and
// ordered membership replacer of the sync engine.
//
// # Entity Resolution
//
// [ArtistRepository] and [TrackRepository] expose idempotent find-or-create operations, single and batched.
// Lookups use natural keys, never surrogate ids:
//   - Artists: (source, remote_id) for remote artists, (source, name) for local ones
//   - Tracks: (bvid, cid) for bilibili videos and parts, file_path for local files
//
// Batched variants issue one lookup per chunk of keys, insert only the missing complement with a
// multi-row INSERT, and return a map covering both pre-existing and new rows.
// Existing rows are never updated: metadata is written once, on creation.
//
// # Ordered Membership Replace
//
// [PlaylistRepository.ReplaceAllTracks] deletes every playlist_tracks row of a playlist, re-inserts the
// given ids with dense zero-based order, and updates item_count and last_synced_at, all in one transaction.
//
// # Transactions
//
// Every repository is bound to a [DBTX]. [RunInTx] opens a transaction and WithDB rebinds a repository to it:
//
//	err := repositories.RunInTx(ctx, db, func(tx *sql.Tx) error {
//	    artist, err := artists.WithDB(tx).FindOrCreateArtist(ctx, payload)
//	    ...
//	    return playlists.WithDB(tx).ReplaceAllTracks(ctx, playlistID, trackIDs)
//	})
//
// # Errors
//
// Storage failures match [shared.ErrDatabase]; payloads missing identity fields match [shared.ErrValidation].
package repositories

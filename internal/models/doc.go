// Package models defines the domain entities of the bilisync local snapshot.
//
// The package contains two categories of types:
//
// 1. Payloads: lightweight structs built from remote (or local file) data before any row exists
//   - [ArtistPayload] : Artist identity and display data
//   - [TrackPayload] : Track data with a [Metadata] variant describing where the audio comes from
//   - [PlaylistPayload] : Playlist metadata for find-or-create
//
// 2. Persistent Entities: rows of the local SQLite snapshot
//   - [Artist] : Uploaders (remote) or performers (local files)
//   - [Track] : Playable items, each carrying exactly one [Metadata] variant
//   - [Playlist] : Favorite folders, collections, multi-part videos and local playlists
//   - [PlaylistTrack] : Ordered membership rows
//
// [Metadata] is a closed sum type: [BilibiliMetadata] or [LocalMetadata].
// Consumers switch on the concrete type and treat any other value as a validation error.
//
// [UniqueKey] derives the stable identity string of a track payload, used to map remote order onto local row ids.
package models

// Package tasks mirrors remote bilibili resources into the local playlist store with real-time progress reporting.
//
// # Core Operations
//
// [PlaylistSyncer] has one sync method per remote playlist type:
//
//  1. [PlaylistSyncer.SyncFavorite] : Incremental favorite folder sync
//     - Fetches the folder's full id index and its first detail page together
//     - Diffs the index against the stored membership and returns early when nothing changed
//     - Walks detail pages only until every added id was found
//     - Ids that never appear on a detail page are reported as hidden and left out
//
//  2. [PlaylistSyncer.SyncCollection] : Full collection replace
//     - Resolves every item and rewrites membership in remote order
//
//  3. [PlaylistSyncer.SyncMultiPage] : Multi-part video as a playlist
//     - One track per part, keyed by bvid and cid
//
// [PlaylistSyncer.Sync] dispatches by [models.PlaylistType] and [PlaylistSyncer.SyncAll] runs many syncs
// on a bounded errgroup.
//
// # Concurrency
//
// The [SyncRegistry] admits one sync per "type::id" key. A second request for a running key fails
// with [shared.ErrSyncAlreadyRunning] without contacting the remote; different keys run in parallel.
// Every write of one sync happens in a single transaction.
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for UI rendering.
// Updates use select with default to prevent blocking.
package tasks

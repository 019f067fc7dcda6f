package tasks

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/bilisync/internal/models"
	"github.com/desertthunder/bilisync/internal/repositories"
	"github.com/desertthunder/bilisync/internal/services"
	"github.com/desertthunder/bilisync/internal/shared"
)

// DefaultMaxPages bounds the favorite page walk when no limit is configured.
const DefaultMaxPages = 500

// SyncResult describes the outcome of one successful sync.
type SyncResult struct {
	PlaylistID     string   `json:"playlist_id"`     // Empty for local playlists
	Added          int      `json:"added"`           // Tracks that joined the playlist
	Removed        int      `json:"removed"`         // Tracks that left the playlist
	Hidden         []string `json:"hidden"`          // Remote ids left out because no detail page lists them
	ShortCircuited bool     `json:"short_circuited"` // Nothing changed remotely; no writes were made
}

// PlaylistSyncer mirrors remote bilibili resources into local playlists.
//
// At most one sync per resource key runs at a time; see [SyncRegistry].
type PlaylistSyncer struct {
	db        *sql.DB
	remote    services.Bilibili
	playlists *repositories.PlaylistRepository
	tracks    *repositories.TrackRepository
	artists   *repositories.ArtistRepository
	registry  *SyncRegistry
	metrics   *Metrics
	logger    *log.Logger
	maxPages  int
}

// Option configures a [PlaylistSyncer].
type Option func(*PlaylistSyncer)

// WithRegistry shares registry between syncers, or injects one in tests.
func WithRegistry(registry *SyncRegistry) Option {
	return func(s *PlaylistSyncer) { s.registry = registry }
}

// WithMetrics records sync outcomes in m.
func WithMetrics(m *Metrics) Option {
	return func(s *PlaylistSyncer) { s.metrics = m }
}

// WithLogger sets the logger sync events are written to.
func WithLogger(l *log.Logger) Option {
	return func(s *PlaylistSyncer) { s.logger = l }
}

// WithMaxPages caps the number of favorite detail pages read per sync.
func WithMaxPages(n int) Option {
	return func(s *PlaylistSyncer) {
		if n > 0 {
			s.maxPages = n
		}
	}
}

// NewPlaylistSyncer creates a new PlaylistSyncer writing to db and reading from remote.
func NewPlaylistSyncer(db *sql.DB, remote services.Bilibili, opts ...Option) *PlaylistSyncer {
	s := &PlaylistSyncer{
		db:        db,
		remote:    remote,
		playlists: repositories.NewPlaylistRepository(db),
		tracks:    repositories.NewTrackRepository(db),
		artists:   repositories.NewArtistRepository(db),
		maxPages:  DefaultMaxPages,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.registry == nil {
		s.registry = NewSyncRegistry()
	}
	if s.logger == nil {
		s.logger = shared.NewLogger(nil)
	}
	return s
}

// Registry returns the registry guarding this syncer.
func (s *PlaylistSyncer) Registry() *SyncRegistry {
	return s.registry
}

// Sync dispatches to the sync method of playlistType. Local playlists have nothing to sync
// and succeed with an empty result.
func (s *PlaylistSyncer) Sync(ctx context.Context, remoteSyncID string, playlistType models.PlaylistType, progress chan<- ProgressUpdate) (*SyncResult, error) {
	switch playlistType {
	case models.PlaylistFavorite:
		return s.SyncFavorite(ctx, remoteSyncID, progress)
	case models.PlaylistCollection:
		return s.SyncCollection(ctx, remoteSyncID, progress)
	case models.PlaylistMultiPage:
		return s.SyncMultiPage(ctx, remoteSyncID, progress)
	case models.PlaylistLocal:
		return &SyncResult{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown playlist type %q", shared.ErrValidation, playlistType)
	}
}

type syncFunc func(ctx context.Context, id string, progress chan<- ProgressUpdate, logger *log.Logger) (*SyncResult, error)

// run guards fn with the registry and converts its failure into the facade error of the sync type.
func (s *PlaylistSyncer) run(
	ctx context.Context,
	t models.PlaylistType,
	id string,
	facade error,
	progress chan<- ProgressUpdate,
	fn syncFunc,
) (*SyncResult, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: %w: remote id is required", facade, shared.ErrMissingArgument)
	}

	key := SyncKey(t, id)
	if !s.registry.TryAcquire(key) {
		s.logger.Info("sync already running", "sync", key)
		s.metrics.observe(t, statusAlreadyRunning, 0)
		return nil, fmt.Errorf("%w: %s", shared.ErrSyncAlreadyRunning, key)
	}
	defer s.registry.Release(key)

	logger := shared.WithLogger(s.logger, "sync", key)
	logger.Info("sync started")
	start := time.Now()

	result, err := fn(ctx, id, progress, logger)
	if err != nil {
		logger.Error("sync failed", "error", err)
		s.metrics.observe(t, statusFailure, time.Since(start))
		return nil, fmt.Errorf("%w: %w", facade, err)
	}

	s.metrics.observe(t, statusSuccess, time.Since(start))
	s.metrics.hidden(len(result.Hidden))
	logger.Info("sync finished",
		"playlist", result.PlaylistID,
		"added", result.Added,
		"removed", result.Removed,
		"hidden", len(result.Hidden),
		"short_circuited", result.ShortCircuited,
		"elapsed", time.Since(start),
	)
	s.sendProgress(progress, completeUpdate(result))
	return result, nil
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (s *PlaylistSyncer) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// txRepos binds the three repositories to one transaction.
type txRepos struct {
	playlists *repositories.PlaylistRepository
	tracks    *repositories.TrackRepository
	artists   *repositories.ArtistRepository
}

// inTx runs fn with repositories bound to a single transaction.
func (s *PlaylistSyncer) inTx(ctx context.Context, fn func(r txRepos) error) error {
	return repositories.RunInTx(ctx, s.db, func(tx *sql.Tx) error {
		return fn(txRepos{
			playlists: s.playlists.WithDB(tx),
			tracks:    s.tracks.WithDB(tx),
			artists:   s.artists.WithDB(tx),
		})
	})
}

// resolveAuthor finds or creates the owner of a remote resource. Resources without an owner resolve to "".
func resolveAuthor(ctx context.Context, artists *repositories.ArtistRepository, upper services.Upper) (string, error) {
	if upper.MID == 0 {
		return "", nil
	}
	author, err := artists.FindOrCreateArtist(ctx, artistPayload(upper))
	if err != nil {
		return "", err
	}
	return author.ID, nil
}

// resolveMedias resolves the uploaders and tracks of whole-video medias, keyed by unique key.
func resolveMedias(ctx context.Context, r txRepos, medias []services.Media) (map[string]*models.Track, error) {
	var uppers []models.ArtistPayload
	for _, m := range medias {
		if m.Upper.MID != 0 {
			uppers = append(uppers, artistPayload(m.Upper))
		}
	}

	artists, err := r.artists.FindOrCreateManyRemoteArtists(ctx, uppers)
	if err != nil {
		return nil, err
	}

	payloads := make([]models.TrackPayload, 0, len(medias))
	for _, m := range medias {
		p := models.TrackPayload{
			Title:    m.Title,
			CoverURL: m.Cover,
			Duration: m.Duration,
			Metadata: models.BilibiliMetadata{BVID: m.BVID, VideoIsValid: m.Attr == 0},
		}
		if a, ok := artists[remoteID(m.Upper.MID)]; ok {
			p.ArtistID = a.ID
		}
		payloads = append(payloads, p)
	}

	return r.tracks.FindOrCreateManyTracks(ctx, payloads)
}

// orderedTrackIDs maps keys to the ids of resolved, in key order, skipping duplicates.
func orderedTrackIDs(keys []string, resolved map[string]string) []string {
	ids := make([]string, 0, len(keys))
	seen := make(map[string]bool, len(keys))
	for _, key := range keys {
		id, ok := resolved[key]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}

// trackIDs returns the ids of tracks.
func trackIDs(tracks []*models.Track) []string {
	ids := make([]string, len(tracks))
	for i, t := range tracks {
		ids[i] = t.ID
	}
	return ids
}

func artistPayload(u services.Upper) models.ArtistPayload {
	return models.ArtistPayload{
		Name:      u.Name,
		AvatarURL: u.Face,
		Signature: u.Sign,
		Source:    models.SourceBilibili,
		RemoteID:  remoteID(u.MID),
	}
}

func remoteID(mid int64) string {
	return strconv.FormatInt(mid, 10)
}

// playlistTitle falls back to a generated title when the remote omits one.
func playlistTitle(title string, t models.PlaylistType, id string) string {
	if title != "" {
		return title
	}
	return fmt.Sprintf("%s %s", t, id)
}

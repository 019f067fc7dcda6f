package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Remote API errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrPlaylistNotFound   = fmt.Errorf("playlist not found")
	ErrTrackNotFound      = fmt.Errorf("track not found")
	ErrArtistNotFound     = fmt.Errorf("artist not found")

	// Storage errors
	ErrDatabase = fmt.Errorf("database error")

	// Input validation errors
	ErrValidation      = fmt.Errorf("validation failed")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")

	// Sync errors
	ErrSyncAlreadyRunning   = fmt.Errorf("sync already running")
	ErrSyncFavoriteFailed   = fmt.Errorf("favorite folder sync failed")
	ErrSyncCollectionFailed = fmt.Errorf("collection sync failed")
	ErrSyncMultiPageFailed  = fmt.Errorf("multi-part video sync failed")
)

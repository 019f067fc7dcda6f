package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/bilisync/internal/shared"
)

// Metadata describes where a track's audio comes from.
//
// The set of variants is closed: [BilibiliMetadata] and [LocalMetadata].
type Metadata interface {
	// Source returns the source tag the variant belongs to.
	Source() Source
	isMetadata()
}

// BilibiliMetadata identifies a bilibili video, or one part of a multi-part video.
type BilibiliMetadata struct {
	BVID         string
	CID          *int64 // Part id; nil for a whole single-part video
	IsMultiPage  bool
	VideoIsValid bool
}

func (BilibiliMetadata) Source() Source { return SourceBilibili }
func (BilibiliMetadata) isMetadata()    {}

// LocalMetadata identifies a file on disk.
type LocalMetadata struct {
	FilePath string
}

func (LocalMetadata) Source() Source { return SourceLocal }
func (LocalMetadata) isMetadata()    {}

// Track is a playable item of the local snapshot.
type Track struct {
	ID        string
	Title     string
	ArtistID  string // Empty when the artist is unknown or was deleted
	CoverURL  string
	Duration  int // Duration in seconds
	Source    Source
	Metadata  Metadata
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks that the source tag matches the metadata variant.
func (t *Track) Validate() error {
	if t.Metadata == nil {
		return fmt.Errorf("%w: track %s has no metadata", shared.ErrValidation, t.ID)
	}
	if t.Metadata.Source() != t.Source {
		return fmt.Errorf("%w: track source %q does not match %q metadata", shared.ErrValidation, t.Source, t.Metadata.Source())
	}
	return validateMetadata(t.Metadata)
}

// UniqueKey returns the identity string of the track. See [UniqueKey].
func (t *Track) UniqueKey() (string, error) {
	return MetadataKey(t.Metadata)
}

// TrackPayload carries the data needed to find or create a [Track].
// The source is implied by the metadata variant.
type TrackPayload struct {
	Title    string
	ArtistID string
	CoverURL string
	Duration int
	Metadata Metadata
}

// Source returns the source implied by the payload's metadata.
func (p TrackPayload) Source() Source {
	if p.Metadata == nil {
		return ""
	}
	return p.Metadata.Source()
}

// Validate checks that the identity fields required for the payload's source are present.
func (p TrackPayload) Validate() error {
	return validateMetadata(p.Metadata)
}

func validateMetadata(m Metadata) error {
	switch m := m.(type) {
	case BilibiliMetadata:
		if m.BVID == "" {
			return fmt.Errorf("%w: bilibili track has no bvid", shared.ErrValidation)
		}
		if strings.Contains(m.BVID, keySeparator) {
			return fmt.Errorf("%w: bvid %q contains %q", shared.ErrValidation, m.BVID, keySeparator)
		}
		if m.IsMultiPage && m.CID == nil {
			return fmt.Errorf("%w: multi-part track %s has no part id", shared.ErrValidation, m.BVID)
		}
	case LocalMetadata:
		if m.FilePath == "" {
			return fmt.Errorf("%w: local track has no file path", shared.ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unrecognized track metadata %T", shared.ErrValidation, m)
	}
	return nil
}

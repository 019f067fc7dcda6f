package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/bilisync/internal/shared"
	"golang.org/x/text/unicode/norm"
)

// Artist is an uploader (bilibili) or performer (local file).
type Artist struct {
	ID        string
	Name      string
	AvatarURL string
	Signature string // Bio
	Source    Source
	RemoteID  string // Empty for local artists
	CreatedAt time.Time
}

// ArtistPayload carries the data needed to find or create an [Artist].
//
// Remote artists are identified by (Source, RemoteID); local artists by (Source, Name).
type ArtistPayload struct {
	Name      string
	AvatarURL string
	Signature string
	Source    Source
	RemoteID  string
}

// Validate checks that the identity fields required for the payload's source are present.
func (p ArtistPayload) Validate() error {
	switch p.Source {
	case SourceBilibili:
		if p.RemoteID == "" {
			return fmt.Errorf("%w: bilibili artist %q has no remote id", shared.ErrValidation, p.Name)
		}
	case SourceLocal:
		if p.IdentityName() == "" {
			return fmt.Errorf("%w: local artist has no name", shared.ErrValidation)
		}
	default:
		return fmt.Errorf("%w: artist source %q", shared.ErrValidation, p.Source)
	}
	return nil
}

// IdentityName returns the NFC-normalised, trimmed name used as the identity of local artists.
func (p ArtistPayload) IdentityName() string {
	return norm.NFC.String(strings.TrimSpace(p.Name))
}

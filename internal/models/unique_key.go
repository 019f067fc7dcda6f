package models

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/desertthunder/bilisync/internal/shared"
)

const keySeparator = "::"

// UniqueKey derives the deterministic identity string of a track payload:
//
//	bilibili::<bvid>::<cid>  one part of a multi-part video
//	bilibili::<bvid>         a whole video
//	local::<file path>       a local file
//
// The key mirrors the storage uniqueness constraint, so two payloads share a key
// iff they resolve to the same row.
func UniqueKey(p TrackPayload) (string, error) {
	return MetadataKey(p.Metadata)
}

// MetadataKey derives the identity string from a metadata variant alone.
func MetadataKey(m Metadata) (string, error) {
	if err := validateMetadata(m); err != nil {
		return "", err
	}

	switch m := m.(type) {
	case BilibiliMetadata:
		return BilibiliKey(m.BVID, m.CID), nil
	case LocalMetadata:
		return strings.Join([]string{string(SourceLocal), m.FilePath}, keySeparator), nil
	default:
		// unreachable: validateMetadata rejects unknown variants
		return "", fmt.Errorf("unrecognized track metadata %T", m)
	}
}

// BilibiliKey builds the identity string of a bilibili video or video part.
func BilibiliKey(bvid string, cid *int64) string {
	parts := []string{string(SourceBilibili), bvid}
	if cid != nil {
		parts = append(parts, strconv.FormatInt(*cid, 10))
	}
	return strings.Join(parts, keySeparator)
}

// ParseUniqueKey recovers the identity fields encoded by [UniqueKey].
//
// Only identity fields are restored: IsMultiPage is set when a part id is present.
func ParseUniqueKey(key string) (Metadata, error) {
	source, rest, ok := strings.Cut(key, keySeparator)
	if !ok || rest == "" {
		return nil, fmt.Errorf("%w: malformed track key %q", shared.ErrValidation, key)
	}

	switch Source(source) {
	case SourceBilibili:
		bvid, part, hasPart := strings.Cut(rest, keySeparator)
		if !hasPart {
			return BilibiliMetadata{BVID: bvid}, nil
		}
		cid, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: malformed part id in track key %q", shared.ErrValidation, key)
		}
		return BilibiliMetadata{BVID: bvid, CID: &cid, IsMultiPage: true}, nil
	case SourceLocal:
		return LocalMetadata{FilePath: rest}, nil
	default:
		return nil, fmt.Errorf("%w: unknown source in track key %q", shared.ErrValidation, key)
	}
}

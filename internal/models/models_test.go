package models

import (
	"errors"
	"testing"

	"github.com/desertthunder/bilisync/internal/shared"
)

func cid(v int64) *int64 { return &v }

func TestUniqueKey(t *testing.T) {
	t.Run("multi-part bilibili track", func(t *testing.T) {
		key, err := UniqueKey(TrackPayload{Metadata: BilibiliMetadata{BVID: "BV1xx", CID: cid(42), IsMultiPage: true}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if key != "bilibili::BV1xx::42" {
			t.Errorf("expected bilibili::BV1xx::42, got %s", key)
		}
	})

	t.Run("single-part bilibili track", func(t *testing.T) {
		key, err := UniqueKey(TrackPayload{Metadata: BilibiliMetadata{BVID: "BV1xx"}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if key != "bilibili::BV1xx" {
			t.Errorf("expected bilibili::BV1xx, got %s", key)
		}
	})

	t.Run("local track", func(t *testing.T) {
		key, err := UniqueKey(TrackPayload{Metadata: LocalMetadata{FilePath: "/music/a.flac"}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if key != "local::/music/a.flac" {
			t.Errorf("expected local::/music/a.flac, got %s", key)
		}
	})

	t.Run("distinct payloads produce distinct keys", func(t *testing.T) {
		payloads := []TrackPayload{
			{Metadata: BilibiliMetadata{BVID: "BV1"}},
			{Metadata: BilibiliMetadata{BVID: "BV1", CID: cid(1), IsMultiPage: true}},
			{Metadata: BilibiliMetadata{BVID: "BV1", CID: cid(2), IsMultiPage: true}},
			{Metadata: BilibiliMetadata{BVID: "BV2"}},
			{Metadata: LocalMetadata{FilePath: "BV1"}},
		}
		seen := map[string]bool{}
		for _, p := range payloads {
			key, err := UniqueKey(p)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if seen[key] {
				t.Errorf("duplicate key %s", key)
			}
			seen[key] = true
		}
	})

	t.Run("rejects missing metadata", func(t *testing.T) {
		if _, err := UniqueKey(TrackPayload{}); !errors.Is(err, shared.ErrValidation) {
			t.Errorf("expected validation error, got %v", err)
		}
	})

	t.Run("rejects missing bvid", func(t *testing.T) {
		if _, err := UniqueKey(TrackPayload{Metadata: BilibiliMetadata{}}); !errors.Is(err, shared.ErrValidation) {
			t.Errorf("expected validation error, got %v", err)
		}
	})

	t.Run("rejects multi-part without part id", func(t *testing.T) {
		_, err := UniqueKey(TrackPayload{Metadata: BilibiliMetadata{BVID: "BV1", IsMultiPage: true}})
		if !errors.Is(err, shared.ErrValidation) {
			t.Errorf("expected validation error, got %v", err)
		}
	})

	t.Run("rejects bvid containing the key separator", func(t *testing.T) {
		_, err := UniqueKey(TrackPayload{Metadata: BilibiliMetadata{BVID: "BVx::1"}})
		if !errors.Is(err, shared.ErrValidation) {
			t.Errorf("expected validation error, got %v", err)
		}

		cid := int64(1)
		key, err := UniqueKey(TrackPayload{Metadata: BilibiliMetadata{BVID: "BVx", CID: &cid, IsMultiPage: true}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if key != "bilibili::BVx::1" {
			t.Errorf("expected bilibili::BVx::1, got %s", key)
		}
	})
}

func TestTrackValidate(t *testing.T) {
	t.Run("source matches metadata", func(t *testing.T) {
		track := &Track{Source: SourceLocal, Metadata: LocalMetadata{FilePath: "/a.mp3"}}
		if err := track.Validate(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("source mismatch", func(t *testing.T) {
		track := &Track{Source: SourceBilibili, Metadata: LocalMetadata{FilePath: "/a.mp3"}}
		if err := track.Validate(); !errors.Is(err, shared.ErrValidation) {
			t.Errorf("expected validation error, got %v", err)
		}
	})
}

func TestArtistPayload(t *testing.T) {
	t.Run("remote artist requires remote id", func(t *testing.T) {
		if err := (ArtistPayload{Source: SourceBilibili, Name: "up"}).Validate(); !errors.Is(err, shared.ErrValidation) {
			t.Errorf("expected validation error, got %v", err)
		}
	})

	t.Run("local artist requires name", func(t *testing.T) {
		if err := (ArtistPayload{Source: SourceLocal, Name: "  "}).Validate(); !errors.Is(err, shared.ErrValidation) {
			t.Errorf("expected validation error, got %v", err)
		}
	})

	t.Run("identity name is NFC normalised", func(t *testing.T) {
		decomposed := ArtistPayload{Source: SourceLocal, Name: "Beyonce\u0301 "}
		composed := ArtistPayload{Source: SourceLocal, Name: "Beyonc\u00e9"}
		if decomposed.IdentityName() != composed.IdentityName() {
			t.Errorf("expected %q and %q to share an identity", decomposed.IdentityName(), composed.IdentityName())
		}
	})
}

func TestPlaylistValidate(t *testing.T) {
	tests := []struct {
		name    string
		payload PlaylistPayload
		wantErr bool
	}{
		{"local without remote id", PlaylistPayload{Title: "mine", Type: PlaylistLocal}, false},
		{"local with remote id", PlaylistPayload{Title: "mine", Type: PlaylistLocal, RemoteSyncID: "1"}, true},
		{"favorite with remote id", PlaylistPayload{Title: "fav", Type: PlaylistFavorite, RemoteSyncID: "1"}, false},
		{"favorite without remote id", PlaylistPayload{Title: "fav", Type: PlaylistFavorite}, true},
		{"missing title", PlaylistPayload{Type: PlaylistLocal}, true},
		{"unknown type", PlaylistPayload{Title: "x", Type: "album"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.payload.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParsePlaylistType(t *testing.T) {
	for _, pt := range PlaylistTypes {
		got, err := ParsePlaylistType(string(pt))
		if err != nil || got != pt {
			t.Errorf("ParsePlaylistType(%q) = %q, %v", pt, got, err)
		}
	}

	if _, err := ParsePlaylistType("album"); !errors.Is(err, shared.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestParseUniqueKey(t *testing.T) {
	t.Run("recovers multi-part identity", func(t *testing.T) {
		m, err := ParseUniqueKey("bilibili::BV1xx::42")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		bm, ok := m.(BilibiliMetadata)
		if !ok {
			t.Fatalf("expected BilibiliMetadata, got %T", m)
		}
		if bm.BVID != "BV1xx" || bm.CID == nil || *bm.CID != 42 {
			t.Errorf("unexpected metadata %+v", bm)
		}
	})

	t.Run("local path may contain the separator", func(t *testing.T) {
		m, err := ParseUniqueKey("local::/music/a::b.mp3")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if lm, ok := m.(LocalMetadata); !ok || lm.FilePath != "/music/a::b.mp3" {
			t.Errorf("unexpected metadata %#v", m)
		}
	})

	t.Run("round trips through UniqueKey", func(t *testing.T) {
		key := "bilibili::BV9"
		m, err := ParseUniqueKey(key)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got, _ := MetadataKey(m); got != key {
			t.Errorf("expected %s, got %s", key, got)
		}
	})

	for _, bad := range []string{"", "bilibili", "bilibili::BV1::x", "spotify::abc"} {
		if _, err := ParseUniqueKey(bad); !errors.Is(err, shared.ErrValidation) {
			t.Errorf("ParseUniqueKey(%q): expected validation error, got %v", bad, err)
		}
	}
}

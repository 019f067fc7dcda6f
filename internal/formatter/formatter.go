// package formatter exports local playlists to CSV, Markdown and plain text
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/bilisync/internal/models"
	"github.com/desertthunder/bilisync/internal/shared"
)

// Format selects an export encoding.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "md"
	FormatText     Format = "txt"
)

// Formats lists the supported export formats.
var Formats = []Format{FormatCSV, FormatMarkdown, FormatText}

// ParseFormat converts a user-supplied string into a [Format].
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case FormatCSV, FormatMarkdown, FormatText:
		return f, nil
	case "markdown":
		return FormatMarkdown, nil
	case "text":
		return FormatText, nil
	}
	return "", fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidArgument, s)
}

// PlaylistExport is a playlist with its ordered tracks and the artists they reference.
type PlaylistExport struct {
	Playlist models.Playlist
	Tracks   []*models.Track
	Artists  map[string]*models.Artist // Keyed by artist id
}

// ArtistName returns the name of t's artist, or "" when unknown.
func (e *PlaylistExport) ArtistName(t *models.Track) string {
	if a, ok := e.Artists[t.ArtistID]; ok {
		return a.Name
	}
	return ""
}

// Locator returns a human-readable pointer to the track's audio: the bvid (with part) or the file path.
func Locator(t *models.Track) string {
	switch m := t.Metadata.(type) {
	case models.BilibiliMetadata:
		if m.CID != nil {
			return fmt.Sprintf("%s?cid=%d", m.BVID, *m.CID)
		}
		return m.BVID
	case models.LocalMetadata:
		return m.FilePath
	}
	return ""
}

// FormatDuration renders seconds as m:ss, or h:mm:ss past an hour.
func FormatDuration(seconds int) string {
	d := time.Duration(seconds) * time.Second
	h, m, s := int(d.Hours()), int(d.Minutes())%60, seconds%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// ExportToCSV converts a PlaylistExport to CSV format with columns: Position, ID, Title, Artist, Duration, Source, Locator
func ExportToCSV(export *PlaylistExport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Position", "ID", "Title", "Artist", "Duration", "Source", "Locator"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i, track := range export.Tracks {
		record := []string{
			strconv.Itoa(i),
			track.ID,
			track.Title,
			export.ArtistName(track),
			strconv.Itoa(track.Duration),
			string(track.Source),
			Locator(track),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a PlaylistExport to Markdown, linking the remote cover when there is one.
func ExportToMarkdown(export *PlaylistExport) ([]byte, error) {
	var buf bytes.Buffer
	p := export.Playlist

	fmt.Fprintf(&buf, "# %s\n\n", p.Title)

	if p.CoverURL != "" {
		fmt.Fprintf(&buf, "![Cover](%s)\n\n", p.CoverURL)
	}

	if p.Description != "" {
		fmt.Fprintf(&buf, "**Description**: %s\n\n", p.Description)
	}

	fmt.Fprintf(&buf, "**Type**: %s\n", p.Type)
	if p.RemoteSyncID != "" {
		fmt.Fprintf(&buf, "**Remote ID**: %s\n", p.RemoteSyncID)
	}
	if p.LastSyncedAt != nil {
		fmt.Fprintf(&buf, "**Last synced**: %s\n", p.LastSyncedAt.UTC().Format(time.RFC3339))
	}
	fmt.Fprintf(&buf, "**Tracks**: %d\n\n", len(export.Tracks))

	buf.WriteString("## Tracks\n\n")
	for i, track := range export.Tracks {
		artist := export.ArtistName(track)
		if artist == "" {
			artist = "Unknown"
		}
		fmt.Fprintf(&buf, "%d. %s - %s [%s] `%s`\n", i+1, artist, track.Title, FormatDuration(track.Duration), Locator(track))
	}

	return buf.Bytes(), nil
}

// ExportToText converts a PlaylistExport to plain text format
func ExportToText(export *PlaylistExport) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Playlist: %s\n", export.Playlist.Title)
	if export.Playlist.Description != "" {
		fmt.Fprintf(&buf, "Description: %s\n", export.Playlist.Description)
	}
	fmt.Fprintf(&buf, "Tracks: %d\n\n", len(export.Tracks))

	for i, track := range export.Tracks {
		if artist := export.ArtistName(track); artist != "" {
			fmt.Fprintf(&buf, "%d. %s - %s\n", i+1, artist, track.Title)
		} else {
			fmt.Fprintf(&buf, "%d. %s\n", i+1, track.Title)
		}
	}

	return buf.Bytes(), nil
}

type playlistMetadata struct {
	ID           string              `json:"id"`
	Title        string              `json:"title"`
	Description  string              `json:"description,omitempty"`
	CoverURL     string              `json:"cover_url,omitempty"`
	Type         models.PlaylistType `json:"type"`
	RemoteSyncID string              `json:"remote_sync_id,omitempty"`
	ItemCount    int                 `json:"item_count"`
	LastSyncedAt *time.Time          `json:"last_synced_at,omitempty"`
}

// ToMetadataJSON generates an indented JSON representation of playlist metadata (without tracks)
func ToMetadataJSON(p models.Playlist) ([]byte, error) {
	return json.MarshalIndent(playlistMetadata{
		ID:           p.ID,
		Title:        p.Title,
		Description:  p.Description,
		CoverURL:     p.CoverURL,
		Type:         p.Type,
		RemoteSyncID: p.RemoteSyncID,
		ItemCount:    p.ItemCount,
		LastSyncedAt: p.LastSyncedAt,
	}, "", "  ")
}

// ExportResult lists the files written by [Write].
type ExportResult struct {
	Format Format
	Files  []string
}

// Write exports a playlist in format f.
//
// base is a path prefix and defaults to the playlist id. CSV writes {base}_tracks.csv and {base}_metadata.json;
// Markdown writes {base}/README.md; text writes {base}_tracks.txt.
func Write(export *PlaylistExport, f Format, base string) (*ExportResult, error) {
	if base == "" {
		base = export.Playlist.ID
	}

	switch f {
	case FormatCSV:
		return writeCSV(export, base)
	case FormatMarkdown:
		return writeMarkdown(export, base)
	case FormatText:
		return writeText(export, base)
	}
	return nil, fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidArgument, f)
}

func writeCSV(export *PlaylistExport, base string) (*ExportResult, error) {
	csvData, err := ExportToCSV(export)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	tracksFile := base + "_tracks.csv"
	if err := os.WriteFile(tracksFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	metadataJSON, err := ToMetadataJSON(export.Playlist)
	if err != nil {
		return nil, fmt.Errorf("failed to generate metadata JSON: %w", err)
	}

	metadataFile := base + "_metadata.json"
	if err := os.WriteFile(metadataFile, metadataJSON, 0644); err != nil {
		return nil, fmt.Errorf("failed to write metadata file: %w", err)
	}

	return &ExportResult{Format: FormatCSV, Files: []string{tracksFile, metadataFile}}, nil
}

func writeMarkdown(export *PlaylistExport, dir string) (*ExportResult, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	mdData, err := ExportToMarkdown(export)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := filepath.Join(dir, "README.md")
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}

	return &ExportResult{Format: FormatMarkdown, Files: []string{mdFile}}, nil
}

func writeText(export *PlaylistExport, base string) (*ExportResult, error) {
	textData, err := ExportToText(export)
	if err != nil {
		return nil, fmt.Errorf("failed to generate text: %w", err)
	}

	file := base + "_tracks.txt"
	if err := os.WriteFile(file, textData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write text file: %w", err)
	}

	return &ExportResult{Format: FormatText, Files: []string{file}}, nil
}

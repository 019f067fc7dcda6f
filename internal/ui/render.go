package ui

import (
	"fmt"
	"strings"

	"github.com/desertthunder/bilisync/internal/models"
	"github.com/desertthunder/bilisync/internal/tasks"
)

// Progress renders one progress update as a single line.
func Progress(u tasks.ProgressUpdate) string {
	label := fmt.Sprintf("[%s]", u.Phase)
	switch u.Phase {
	case tasks.Notice:
		return Styles.Warn(label + " " + u.Message)
	case tasks.Complete:
		return Styles.OK(label + " " + u.Message)
	}

	if u.Total > 0 {
		return fmt.Sprintf("%s %s (%d/%d)", Styles.Help(label), u.Message, u.Step, u.Total)
	}
	return fmt.Sprintf("%s %s", Styles.Help(label), u.Message)
}

// SyncSummary renders the outcome of one sync.
func SyncSummary(t models.PlaylistType, id string, r *tasks.SyncResult) string {
	var b strings.Builder

	head := fmt.Sprintf("✓ %s %s synced", t, id)
	if r.ShortCircuited {
		head = fmt.Sprintf("✓ %s %s already up to date", t, id)
	}
	b.WriteString(Styles.OK(head) + "\n")

	if r.PlaylistID != "" {
		fmt.Fprintf(&b, "  playlist: %s\n", r.PlaylistID)
	}
	fmt.Fprintf(&b, "  added: %d  removed: %d\n", r.Added, r.Removed)
	if len(r.Hidden) > 0 {
		b.WriteString(Styles.Warn(fmt.Sprintf("  hidden: %d (%s)", len(r.Hidden), strings.Join(r.Hidden, ", "))) + "\n")
	}
	return b.String()
}

// BulkSummary renders the outcome of a bulk sync, failures last.
func BulkSummary(r *tasks.BulkSyncResult) string {
	var b strings.Builder

	b.WriteString(Styles.Title(fmt.Sprintf("Synced %d of %d playlists", r.SuccessCount, r.Total)) + "\n")
	for _, tr := range r.Results {
		if tr.Error == nil {
			fmt.Fprintf(&b, "  %s %s (+%d/-%d)\n", Styles.OK("✓"), tr.Target, tr.Result.Added, tr.Result.Removed)
		}
	}
	for _, tr := range r.Results {
		if tr.Error != nil {
			fmt.Fprintf(&b, "  %s %s: %v\n", Styles.Err("✗"), tr.Target, tr.Error)
		}
	}
	return b.String()
}

// PlaylistRow renders a playlist as one line of a listing.
func PlaylistRow(p *models.Playlist) string {
	synced := "never"
	if p.LastSyncedAt != nil {
		synced = p.LastSyncedAt.Local().Format("2006-01-02 15:04")
	}

	remote := ""
	if p.RemoteSyncID != "" {
		remote = " " + Styles.Help(p.RemoteSyncID)
	}
	return fmt.Sprintf("%s  %-10s %s%s  %d tracks, synced %s", p.ID, p.Type, p.Title, remote, p.ItemCount, synced)
}

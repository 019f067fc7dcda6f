// package testing contains shared testing utilities
package testing

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/bilisync/internal/services"
	"github.com/desertthunder/bilisync/internal/shared"
)

// MockBilibili is an in-memory test double for [services.Bilibili]
//
// Favorite pages are 1-based: page n of folder id is Pages[id][n-1]. Pages past the end are empty.
type MockBilibili struct {
	Index       map[string][]services.FavoriteIndexItem
	Pages       map[string][]*services.FavoritePage
	Collections map[string]*services.CollectionContents
	Videos      map[string]*services.VideoDetails

	Err     error         // Returned by every call when set
	Gate    chan struct{} // When set, every call blocks until it is closed
	Entered chan string   // When set, receives the method name as each call starts

	mu    sync.Mutex
	calls map[string]int
}

// NewMockBilibili creates an empty MockBilibili
func NewMockBilibili() *MockBilibili {
	return &MockBilibili{
		Index:       make(map[string][]services.FavoriteIndexItem),
		Pages:       make(map[string][]*services.FavoritePage),
		Collections: make(map[string]*services.CollectionContents),
		Videos:      make(map[string]*services.VideoDetails),
		calls:       make(map[string]int),
	}
}

// Calls returns how many times method was called
func (m *MockBilibili) Calls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

// TotalCalls returns the number of calls across all methods
func (m *MockBilibili) TotalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		n += c
	}
	return n
}

func (m *MockBilibili) enter(ctx context.Context, method string) error {
	m.mu.Lock()
	m.calls[method]++
	m.mu.Unlock()

	if m.Entered != nil {
		m.Entered <- method
	}
	if m.Gate != nil {
		select {
		case <-m.Gate:
		case <-ctx.Done():
			return &services.APIError{Kind: services.KindNetwork, Endpoint: method, Err: ctx.Err()}
		}
	}
	return m.Err
}

func notFound(method string) error {
	return &services.APIError{Kind: services.KindResponse, Endpoint: method, Code: -404, Message: "not found"}
}

func (m *MockBilibili) GetFavoriteListAllContents(ctx context.Context, favoriteID string) ([]services.FavoriteIndexItem, error) {
	if err := m.enter(ctx, "GetFavoriteListAllContents"); err != nil {
		return nil, err
	}
	index, ok := m.Index[favoriteID]
	if !ok {
		return nil, notFound("GetFavoriteListAllContents")
	}
	return index, nil
}

func (m *MockBilibili) GetFavoriteListContents(ctx context.Context, favoriteID string, page int) (*services.FavoritePage, error) {
	if err := m.enter(ctx, "GetFavoriteListContents"); err != nil {
		return nil, err
	}
	pages, ok := m.Pages[favoriteID]
	if !ok {
		return nil, notFound("GetFavoriteListContents")
	}
	if page < 1 || page > len(pages) {
		return &services.FavoritePage{}, nil
	}
	return pages[page-1], nil
}

func (m *MockBilibili) GetCollectionAllContents(ctx context.Context, collectionID string) (*services.CollectionContents, error) {
	if err := m.enter(ctx, "GetCollectionAllContents"); err != nil {
		return nil, err
	}
	contents, ok := m.Collections[collectionID]
	if !ok {
		return nil, notFound("GetCollectionAllContents")
	}
	return contents, nil
}

func (m *MockBilibili) GetVideoDetails(ctx context.Context, bvid string) (*services.VideoDetails, error) {
	if err := m.enter(ctx, "GetVideoDetails"); err != nil {
		return nil, err
	}
	details, ok := m.Videos[bvid]
	if !ok {
		return nil, notFound("GetVideoDetails")
	}
	return details, nil
}

// FavoriteFolder registers a favorite folder whose index lists bvids in order and whose detail
// pages hold pageSize items each, skipping the bvids in hidden.
func (m *MockBilibili) FavoriteFolder(id, title string, bvids []string, pageSize int, hidden ...string) {
	isHidden := make(map[string]bool, len(hidden))
	for _, h := range hidden {
		isHidden[h] = true
	}

	index := make([]services.FavoriteIndexItem, 0, len(bvids))
	var medias []services.Media
	for i, bvid := range bvids {
		index = append(index, services.FavoriteIndexItem{ID: int64(i + 1), Type: services.MediaTypeVideo, BVID: bvid})
		if !isHidden[bvid] {
			medias = append(medias, Media(bvid, int64(100+i%3)))
		}
	}

	info := services.FolderInfo{Title: title, MediaCount: len(bvids), Upper: services.Upper{MID: 100, Name: "up"}}
	var pages []*services.FavoritePage
	for start := 0; start < len(medias) || start == 0; start += pageSize {
		end := min(start+pageSize, len(medias))
		pages = append(pages, &services.FavoritePage{
			Info:    info,
			Medias:  medias[start:end],
			HasMore: end < len(medias),
		})
		if end == len(medias) {
			break
		}
	}

	m.Index[id] = index
	m.Pages[id] = pages
}

// Media builds a whole-video media uploaded by mid
func Media(bvid string, mid int64) services.Media {
	return services.Media{
		Type:     services.MediaTypeVideo,
		Title:    "video " + bvid,
		Cover:    "https://i0.hdslb.com/" + bvid + ".jpg",
		Duration: 200,
		Upper:    services.Upper{MID: mid, Name: "up"},
		BVID:     bvid,
		Page:     1,
	}
}

// MustOpenDB creates an in-memory SQLite database with migrations applied, closed on cleanup
func MustOpenDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	return db
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

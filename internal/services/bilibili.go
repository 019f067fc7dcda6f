// bilibili web API [Bilibili] implementation
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"

	"github.com/desertthunder/bilisync/internal/shared"
)

const (
	defaultBilibiliBaseURL = "https://api.bilibili.com"
	defaultUserAgent       = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

	// favoritePageSize is the largest page the favorite and collection listings accept.
	favoritePageSize = 20

	// maxCollectionPages bounds the collection walk when the remote under-reports media_count.
	maxCollectionPages = 100
)

// envelope is the {code, message, data} wrapper of every bilibili response.
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// BilibiliService implements [Bilibili] against the bilibili web API.
//
// Requests are paced by a token-bucket limiter and retried by the transport on connection
// errors and 5xx statuses. Non-zero envelope codes are returned as-is, never retried.
type BilibiliService struct {
	baseURL   string
	sessdata  string
	userAgent string
	client    *retryablehttp.Client
	limiter   *rate.Limiter
}

// NewBilibiliService creates a new bilibili client from the credentials config section.
// A nil logger disables transport logging.
func NewBilibiliService(cfg shared.BilibiliConfig, logger *log.Logger) *BilibiliService {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBilibiliBaseURL
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	client := retryablehttp.NewClient()
	client.RetryMax = cfg.RetryMax
	client.RetryWaitMin = 500 * time.Millisecond
	client.RetryWaitMax = 5 * time.Second
	client.HTTPClient.Timeout = 30 * time.Second
	// Hand the last response back once retries run out so its status can be reported.
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	if logger != nil {
		client.Logger = leveledLogger{logger}
	} else {
		client.Logger = nil
	}

	return &BilibiliService{
		baseURL:   baseURL,
		sessdata:  cfg.SESSDATA,
		userAgent: userAgent,
		client:    client,
		limiter:   rate.NewLimiter(limit, 1),
	}
}

// GetFavoriteListAllContents retrieves the id index of a favorite folder, keeping video entries only.
//
// Calls GET /x/v3/fav/resource/ids
func (b *BilibiliService) GetFavoriteListAllContents(ctx context.Context, favoriteID string) ([]FavoriteIndexItem, error) {
	params := url.Values{"media_id": {favoriteID}, "platform": {"web"}}

	var items []FavoriteIndexItem
	if err := b.get(ctx, "/x/v3/fav/resource/ids", params, &items); err != nil {
		return nil, err
	}

	videos := make([]FavoriteIndexItem, 0, len(items))
	for _, item := range items {
		if item.Type == MediaTypeVideo {
			videos = append(videos, item)
		}
	}
	return videos, nil
}

// GetFavoriteListContents retrieves one detail page of a favorite folder.
//
// Calls GET /x/v3/fav/resource/list
func (b *BilibiliService) GetFavoriteListContents(ctx context.Context, favoriteID string, page int) (*FavoritePage, error) {
	params := url.Values{
		"media_id": {favoriteID},
		"pn":       {strconv.Itoa(page)},
		"ps":       {strconv.Itoa(favoritePageSize)},
		"platform": {"web"},
	}

	var result FavoritePage
	if err := b.get(ctx, "/x/v3/fav/resource/list", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetCollectionAllContents retrieves a collection with all of its items.
//
// Calls GET /x/space/fav/season/list until media_count items are collected or a page comes back empty.
func (b *BilibiliService) GetCollectionAllContents(ctx context.Context, collectionID string) (*CollectionContents, error) {
	var contents CollectionContents

	for page := 1; page <= maxCollectionPages; page++ {
		params := url.Values{
			"season_id": {collectionID},
			"pn":        {strconv.Itoa(page)},
			"ps":        {strconv.Itoa(favoritePageSize)},
		}

		var result CollectionContents
		if err := b.get(ctx, "/x/space/fav/season/list", params, &result); err != nil {
			return nil, err
		}

		if page == 1 {
			contents.Info = result.Info
		}
		contents.Medias = append(contents.Medias, result.Medias...)

		if len(result.Medias) == 0 || len(contents.Medias) >= contents.Info.MediaCount {
			break
		}
	}

	return &contents, nil
}

// GetVideoDetails retrieves a video with its parts.
//
// Calls GET /x/web-interface/view
func (b *BilibiliService) GetVideoDetails(ctx context.Context, bvid string) (*VideoDetails, error) {
	var details VideoDetails
	if err := b.get(ctx, "/x/web-interface/view", url.Values{"bvid": {bvid}}, &details); err != nil {
		return nil, err
	}
	return &details, nil
}

// get performs a rate-limited GET and decodes the envelope's data into result.
func (b *BilibiliService) get(ctx context.Context, endpoint string, params url.Values, result any) error {
	if err := b.limiter.Wait(ctx); err != nil {
		return &APIError{Kind: KindNetwork, Endpoint: endpoint, Err: err}
	}

	apiURL := b.baseURL + endpoint
	if len(params) > 0 {
		apiURL += "?" + params.Encode()
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return &APIError{Kind: KindNetwork, Endpoint: endpoint, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	req.Header.Set("User-Agent", b.userAgent)
	req.Header.Set("Referer", "https://www.bilibili.com")
	if b.sessdata != "" {
		req.AddCookie(&http.Cookie{Name: "SESSDATA", Value: b.sessdata})
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return &APIError{Kind: KindNetwork, Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{Kind: KindNetwork, Endpoint: endpoint, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Kind: KindResponse, Endpoint: endpoint, Code: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return &APIError{Kind: KindDecode, Endpoint: endpoint, Err: err}
	}

	if env.Code != 0 {
		return &APIError{Kind: KindResponse, Endpoint: endpoint, Code: env.Code, Message: env.Message}
	}

	if result != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, result); err != nil {
			return &APIError{Kind: KindDecode, Endpoint: endpoint, Err: err}
		}
	}

	return nil
}

// leveledLogger adapts [log.Logger] to [retryablehttp.LeveledLogger].
type leveledLogger struct {
	l *log.Logger
}

func (a leveledLogger) Error(msg string, kv ...any) { a.l.Error(msg, kv...) }
func (a leveledLogger) Info(msg string, kv ...any)  { a.l.Debug(msg, kv...) }
func (a leveledLogger) Debug(msg string, kv ...any) { a.l.Debug(msg, kv...) }
func (a leveledLogger) Warn(msg string, kv ...any)  { a.l.Warn(msg, kv...) }

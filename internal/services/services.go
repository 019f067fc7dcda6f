// package services defines interface Bilibili for reading remote collections over HTTP
package services

import (
	"context"
)

// MediaTypeVideo is the favorite-folder resource type of a video. Other types (audio, articles) are ignored.
const MediaTypeVideo = 2

// Bilibili defines the read-only remote surface consumed by the sync engine.
//
// Every method returns either a value or an [*APIError].
type Bilibili interface {
	// GetFavoriteListAllContents retrieves the lightweight index of a favorite folder,
	// filtered to video entries, in remote order (most recent first).
	GetFavoriteListAllContents(ctx context.Context, favoriteID string) ([]FavoriteIndexItem, error)

	// GetFavoriteListContents retrieves one page (1-based) of a favorite folder's detail listing.
	GetFavoriteListContents(ctx context.Context, favoriteID string, page int) (*FavoritePage, error)

	// GetCollectionAllContents retrieves a collection's metadata and every item in one call.
	GetCollectionAllContents(ctx context.Context, collectionID string) (*CollectionContents, error)

	// GetVideoDetails retrieves a video with its list of parts.
	GetVideoDetails(ctx context.Context, bvid string) (*VideoDetails, error)
}

// Upper is the owner of a folder, collection or video
type Upper struct {
	MID  int64  `json:"mid"`
	Name string `json:"name"`
	Face string `json:"face"`
	Sign string `json:"sign,omitempty"`
}

// FavoriteIndexItem is one entry of a favorite folder's lightweight id index.
type FavoriteIndexItem struct {
	ID   int64  `json:"id"`
	Type int    `json:"type"`
	BVID string `json:"bvid"`
}

// FolderInfo describes a favorite folder or collection.
type FolderInfo struct {
	ID         int64  `json:"id"`
	Title      string `json:"title"`
	Cover      string `json:"cover"`
	Intro      string `json:"intro"`
	MediaCount int    `json:"media_count"`
	Upper      Upper  `json:"upper"`
}

// Media is a video entry of a folder or collection listing.
type Media struct {
	ID       int64  `json:"id"`
	Type     int    `json:"type"`
	Title    string `json:"title"`
	Cover    string `json:"cover"`
	Intro    string `json:"intro"`
	Duration int    `json:"duration"` // Duration in seconds
	Upper    Upper  `json:"upper"`
	BVID     string `json:"bvid"`
	Page     int    `json:"page"` // Number of parts
	Attr     int    `json:"attr"` // Non-zero when the video was removed by its uploader
}

// FavoritePage is one page of a favorite folder's detail listing.
type FavoritePage struct {
	Info    FolderInfo `json:"info"`
	Medias  []Media    `json:"medias"`
	HasMore bool       `json:"has_more"`
}

// CollectionContents is the full listing of a collection.
type CollectionContents struct {
	Info   FolderInfo `json:"info"`
	Medias []Media    `json:"medias"`
}

// VideoPage is one part of a video.
type VideoPage struct {
	CID        int64  `json:"cid"`
	Page       int    `json:"page"`
	Part       string `json:"part"`
	Duration   int    `json:"duration"`
	FirstFrame string `json:"first_frame"`
}

// VideoDetails describes a video and its parts.
type VideoDetails struct {
	BVID     string      `json:"bvid"`
	AID      int64       `json:"aid"`
	Title    string      `json:"title"`
	Desc     string      `json:"desc"`
	Pic      string      `json:"pic"`
	Duration int         `json:"duration"`
	Owner    Upper       `json:"owner"`
	Pages    []VideoPage `json:"pages"`
}

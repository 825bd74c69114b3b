package storage

import (
	"time"

	"vidtube/internal/models"
)

// CreateUserParams captures the attributes that can be set when registering
// an account.
type CreateUserParams struct {
	Username   string
	Email      string
	FullName   string
	Password   string
	Avatar     string
	CoverImage string
}

// UserUpdate represents the profile fields that can be modified for an
// existing user. Nil pointers leave the current value untouched.
type UserUpdate struct {
	FullName *string
	Email    *string
}

// CreateVideoParams captures a processed upload ready to be stored.
type CreateVideoParams struct {
	OwnerID         string
	Title           string
	Description     string
	VideoFile       string
	Thumbnail       string
	DurationSeconds float64
}

// VideoUpdate represents the mutable video fields.
type VideoUpdate struct {
	Title       *string
	Description *string
	Thumbnail   *string
}

// Video sort fields accepted by ListVideos.
const (
	VideoSortCreatedAt = "createdAt"
	VideoSortViews     = "views"
	VideoSortDuration  = "duration"
	VideoSortTitle     = "title"
)

// ListVideosOptions filters and paginates the video listing. ViewerID, when
// set, resolves the IsLiked flag on each returned summary.
type ListVideosOptions struct {
	Query              string
	OwnerID            string
	SortBy             string
	SortAscending      bool
	IncludeUnpublished bool
	ViewerID           string
	Page               int
	Limit              int
}

// Pagination describes the window a listing was cut to.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// NewPagination normalizes page/limit and derives the page count for total
// items.
func NewPagination(page, limit, total int) Pagination {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	pages := total / limit
	if total%limit != 0 {
		pages++
	}
	return Pagination{Page: page, Limit: limit, Total: total, TotalPages: pages}
}

func (p Pagination) offset() int {
	return (p.Page - 1) * p.Limit
}

// OwnerSummary is the projection of a user attached to listings.
type OwnerSummary struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	FullName string `json:"fullName"`
	Avatar   string `json:"avatar,omitempty"`
}

// VideoSummary is a video joined with its owner projection and like state.
type VideoSummary struct {
	models.Video
	Owner     OwnerSummary `json:"owner"`
	LikeCount int          `json:"likeCount"`
	IsLiked   bool         `json:"isLiked"`
}

// VideoDetail extends the summary with the owner's channel standing for the
// watch page.
type VideoDetail struct {
	VideoSummary
	CommentCount    int  `json:"commentCount"`
	SubscriberCount int  `json:"subscriberCount"`
	IsSubscribed    bool `json:"isSubscribed"`
}

// CommentView is a comment joined with its owner projection and like state.
type CommentView struct {
	models.Comment
	Owner     OwnerSummary `json:"owner"`
	LikeCount int          `json:"likeCount"`
	IsLiked   bool         `json:"isLiked"`
}

// TweetView is a tweet joined with its owner projection and like state.
type TweetView struct {
	models.Tweet
	Owner     OwnerSummary `json:"owner"`
	LikeCount int          `json:"likeCount"`
	IsLiked   bool         `json:"isLiked"`
}

// SubscriberView lists one subscriber of a channel.
type SubscriberView struct {
	Subscriber   OwnerSummary `json:"subscriber"`
	SubscribedAt time.Time    `json:"subscribedAt"`
}

// ChannelView lists one channel a user subscribes to, with its audience size.
type ChannelView struct {
	Channel         OwnerSummary `json:"channel"`
	SubscriberCount int          `json:"subscriberCount"`
	SubscribedAt    time.Time    `json:"subscribedAt"`
}

// ChannelProfile is the public channel page for a username.
type ChannelProfile struct {
	ID                string `json:"id"`
	Username          string `json:"username"`
	FullName          string `json:"fullName"`
	Email             string `json:"email"`
	Avatar            string `json:"avatar,omitempty"`
	CoverImage        string `json:"coverImage,omitempty"`
	SubscriberCount   int    `json:"subscriberCount"`
	SubscribedToCount int    `json:"subscribedToCount"`
	IsSubscribed      bool   `json:"isSubscribed"`
}

// ChannelStats aggregates a channel owner's dashboard totals.
type ChannelStats struct {
	TotalVideos      int   `json:"totalVideos"`
	TotalViews       int64 `json:"totalViews"`
	TotalSubscribers int   `json:"totalSubscribers"`
	TotalLikes       int   `json:"totalLikes"`
}

package models

import (
	"strings"
	"time"
)

// LikeTarget identifies which kind of entity a like points at.
type LikeTarget string

const (
	LikeTargetVideo   LikeTarget = "video"
	LikeTargetComment LikeTarget = "comment"
	LikeTargetTweet   LikeTarget = "tweet"
)

// ParseLikeTarget normalizes a raw target kind, returning false for values
// outside the known set.
func ParseLikeTarget(raw string) (LikeTarget, bool) {
	switch LikeTarget(strings.ToLower(strings.TrimSpace(raw))) {
	case LikeTargetVideo:
		return LikeTargetVideo, true
	case LikeTargetComment:
		return LikeTargetComment, true
	case LikeTargetTweet:
		return LikeTargetTweet, true
	}
	return "", false
}

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	FullName     string    `json:"fullName"`
	Avatar       string    `json:"avatar,omitempty"`
	CoverImage   string    `json:"coverImage,omitempty"`
	PasswordHash string    `json:"passwordHash,omitempty"`
	WatchHistory []string  `json:"watchHistory,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type Video struct {
	ID              string    `json:"id"`
	OwnerID         string    `json:"ownerId"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	VideoFile       string    `json:"videoFile"`
	Thumbnail       string    `json:"thumbnail"`
	DurationSeconds float64   `json:"durationSeconds"`
	Views           int64     `json:"views"`
	IsPublished     bool      `json:"isPublished"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

type Comment struct {
	ID        string    `json:"id"`
	VideoID   string    `json:"videoId"`
	OwnerID   string    `json:"ownerId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Tweet struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Like records that a user liked one specific target entity. The tuple
// (LikedBy, Target, TargetID) is unique across the store.
type Like struct {
	ID        string     `json:"id"`
	LikedBy   string     `json:"likedBy"`
	Target    LikeTarget `json:"target"`
	TargetID  string     `json:"targetId"`
	CreatedAt time.Time  `json:"createdAt"`
}

// Subscription links a subscriber to a channel owner. A user cannot
// subscribe to their own channel.
type Subscription struct {
	ID           string    `json:"id"`
	SubscriberID string    `json:"subscriberId"`
	ChannelID    string    `json:"channelId"`
	CreatedAt    time.Time `json:"createdAt"`
}

package storage

import (
	"context"

	"vidtube/internal/models"
)

// Repository exposes the datastore operations required by API handlers.
// Both the JSON-file store and the Postgres store satisfy it.
type Repository interface {
	Ping(ctx context.Context) error

	CreateUser(params CreateUserParams) (models.User, error)
	AuthenticateUser(identifier, password string) (models.User, error)
	GetUser(id string) (models.User, bool)
	FindUserByUsername(username string) (models.User, bool)
	UpdateUser(id string, update UserUpdate) (models.User, error)
	SetUserAvatar(id, avatarURL string) (models.User, string, error)
	SetUserCoverImage(id, coverURL string) (models.User, string, error)
	ChangePassword(id, oldPassword, newPassword string) error
	WatchHistory(userID string) ([]VideoSummary, error)

	CreateVideo(params CreateVideoParams) (models.Video, error)
	GetVideo(id string) (models.Video, bool)
	GetVideoDetail(id, viewerID string) (VideoDetail, error)
	RecordView(videoID, viewerID string) error
	UpdateVideo(id string, update VideoUpdate) (models.Video, error)
	DeleteVideo(id string) error
	TogglePublish(id string) (models.Video, error)
	ListVideos(opts ListVideosOptions) ([]VideoSummary, Pagination, error)
	ChannelStats(ownerID string) (ChannelStats, error)

	CreateComment(videoID, ownerID, content string) (models.Comment, error)
	GetComment(id string) (models.Comment, bool)
	ListComments(videoID, viewerID string, page, limit int) ([]CommentView, Pagination, error)
	UpdateComment(id, content string) (models.Comment, error)
	DeleteComment(id string) error

	CreateTweet(ownerID, content string) (models.Tweet, error)
	GetTweet(id string) (models.Tweet, bool)
	ListUserTweets(ownerID, viewerID string) ([]TweetView, error)
	UpdateTweet(id, content string) (models.Tweet, error)
	DeleteTweet(id string) error

	ToggleLike(userID string, target models.LikeTarget, targetID string) (bool, error)
	ListLikedVideos(userID string) ([]VideoSummary, error)

	ToggleSubscription(subscriberID, channelID string) (bool, error)
	ListChannelSubscribers(channelID string) ([]SubscriberView, error)
	ListSubscribedChannels(subscriberID string) ([]ChannelView, error)
	CountSubscribers(channelID string) int
	GetChannelProfile(username, viewerID string) (ChannelProfile, error)
}

var _ Repository = (*Storage)(nil)

package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"vidtube/internal/models"
)

// Comment operations

func (r *PostgresRepository) CreateComment(videoID, ownerID, content string) (models.Comment, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return models.Comment{}, fmt.Errorf("%w: content is required", ErrValidation)
	}
	if len(trimmed) > commentMaxLength {
		return models.Comment{}, fmt.Errorf("%w: content exceeds %d characters", ErrValidation, commentMaxLength)
	}

	ctx := context.Background()
	if _, ok := r.GetVideo(videoID); !ok {
		return models.Comment{}, fmt.Errorf("video %s: %w", videoID, ErrNotFound)
	}
	if err := r.requireUser(ctx, ownerID); err != nil {
		return models.Comment{}, err
	}

	id, err := generateID()
	if err != nil {
		return models.Comment{}, err
	}
	now := time.Now().UTC()
	comment := models.Comment{
		ID:        id,
		VideoID:   videoID,
		OwnerID:   ownerID,
		Content:   trimmed,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err = r.pool.Exec(ctx, `
INSERT INTO comments (id, video_id, owner_id, content, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
`, comment.ID, comment.VideoID, comment.OwnerID, comment.Content, comment.CreatedAt, comment.UpdatedAt)
	if err != nil {
		return models.Comment{}, fmt.Errorf("insert comment: %w", err)
	}
	return comment, nil
}

func (r *PostgresRepository) GetComment(id string) (models.Comment, bool) {
	row := r.pool.QueryRow(context.Background(), `
SELECT id, video_id, owner_id, content, created_at, updated_at FROM comments WHERE id = $1
`, id)
	var comment models.Comment
	err := row.Scan(&comment.ID, &comment.VideoID, &comment.OwnerID, &comment.Content,
		&comment.CreatedAt, &comment.UpdatedAt)
	if err != nil {
		return models.Comment{}, false
	}
	return comment, true
}

func (r *PostgresRepository) ListComments(videoID, viewerID string, page, limit int) ([]CommentView, Pagination, error) {
	ctx := context.Background()
	if _, ok := r.GetVideo(videoID); !ok {
		return nil, Pagination{}, fmt.Errorf("video %s: %w", videoID, ErrNotFound)
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT count(*) FROM comments WHERE video_id = $1", videoID).Scan(&total); err != nil {
		return nil, Pagination{}, fmt.Errorf("count comments: %w", err)
	}
	pagination := NewPagination(page, limit, total)

	rows, err := r.pool.Query(ctx, `
SELECT c.id, c.video_id, c.owner_id, c.content, c.created_at, c.updated_at,
	u.username, u.full_name, u.avatar,
	(SELECT count(*) FROM likes l WHERE l.target = 'comment' AND l.target_id = c.id) AS like_count,
	EXISTS (SELECT 1 FROM likes l WHERE l.target = 'comment' AND l.target_id = c.id AND l.liked_by = $2) AS is_liked
FROM comments c
JOIN users u ON u.id = c.owner_id
WHERE c.video_id = $1
ORDER BY c.created_at DESC
LIMIT $3 OFFSET $4
`, videoID, viewerID, pagination.Limit, pagination.offset())
	if err != nil {
		return nil, Pagination{}, fmt.Errorf("query comments: %w", err)
	}
	defer rows.Close()

	views := make([]CommentView, 0)
	for rows.Next() {
		var view CommentView
		err := rows.Scan(&view.ID, &view.VideoID, &view.OwnerID, &view.Content,
			&view.CreatedAt, &view.UpdatedAt,
			&view.Owner.Username, &view.Owner.FullName, &view.Owner.Avatar,
			&view.LikeCount, &view.IsLiked)
		if err != nil {
			return nil, Pagination{}, fmt.Errorf("scan comment: %w", err)
		}
		view.Owner.ID = view.OwnerID
		views = append(views, view)
	}
	if err := rows.Err(); err != nil {
		return nil, Pagination{}, fmt.Errorf("iterate comments: %w", err)
	}
	return views, pagination, nil
}

func (r *PostgresRepository) UpdateComment(id, content string) (models.Comment, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return models.Comment{}, fmt.Errorf("%w: content is required", ErrValidation)
	}
	if len(trimmed) > commentMaxLength {
		return models.Comment{}, fmt.Errorf("%w: content exceeds %d characters", ErrValidation, commentMaxLength)
	}

	row := r.pool.QueryRow(context.Background(), `
UPDATE comments SET content = $2, updated_at = $3
WHERE id = $1
RETURNING id, video_id, owner_id, content, created_at, updated_at
`, id, trimmed, time.Now().UTC())
	var comment models.Comment
	err := row.Scan(&comment.ID, &comment.VideoID, &comment.OwnerID, &comment.Content,
		&comment.CreatedAt, &comment.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return models.Comment{}, fmt.Errorf("comment %s: %w", id, ErrNotFound)
		}
		return models.Comment{}, fmt.Errorf("update comment: %w", err)
	}
	return comment, nil
}

func (r *PostgresRepository) DeleteComment(id string) error {
	ctx := context.Background()
	return r.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "DELETE FROM likes WHERE target = 'comment' AND target_id = $1", id); err != nil {
			return fmt.Errorf("delete comment likes: %w", err)
		}
		tag, err := tx.Exec(ctx, "DELETE FROM comments WHERE id = $1", id)
		if err != nil {
			return fmt.Errorf("delete comment: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("comment %s: %w", id, ErrNotFound)
		}
		return nil
	})
}

// Tweet operations

func (r *PostgresRepository) CreateTweet(ownerID, content string) (models.Tweet, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return models.Tweet{}, fmt.Errorf("%w: content is required", ErrValidation)
	}
	if len(trimmed) > tweetMaxLength {
		return models.Tweet{}, fmt.Errorf("%w: content exceeds %d characters", ErrValidation, tweetMaxLength)
	}

	ctx := context.Background()
	if err := r.requireUser(ctx, ownerID); err != nil {
		return models.Tweet{}, err
	}

	id, err := generateID()
	if err != nil {
		return models.Tweet{}, err
	}
	now := time.Now().UTC()
	tweet := models.Tweet{
		ID:        id,
		OwnerID:   ownerID,
		Content:   trimmed,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err = r.pool.Exec(ctx, `
INSERT INTO tweets (id, owner_id, content, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5)
`, tweet.ID, tweet.OwnerID, tweet.Content, tweet.CreatedAt, tweet.UpdatedAt)
	if err != nil {
		return models.Tweet{}, fmt.Errorf("insert tweet: %w", err)
	}
	return tweet, nil
}

func (r *PostgresRepository) GetTweet(id string) (models.Tweet, bool) {
	row := r.pool.QueryRow(context.Background(), `
SELECT id, owner_id, content, created_at, updated_at FROM tweets WHERE id = $1
`, id)
	var tweet models.Tweet
	err := row.Scan(&tweet.ID, &tweet.OwnerID, &tweet.Content, &tweet.CreatedAt, &tweet.UpdatedAt)
	if err != nil {
		return models.Tweet{}, false
	}
	return tweet, true
}

func (r *PostgresRepository) ListUserTweets(ownerID, viewerID string) ([]TweetView, error) {
	ctx := context.Background()
	if err := r.requireUser(ctx, ownerID); err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
SELECT t.id, t.owner_id, t.content, t.created_at, t.updated_at,
	u.username, u.full_name, u.avatar,
	(SELECT count(*) FROM likes l WHERE l.target = 'tweet' AND l.target_id = t.id) AS like_count,
	EXISTS (SELECT 1 FROM likes l WHERE l.target = 'tweet' AND l.target_id = t.id AND l.liked_by = $2) AS is_liked
FROM tweets t
JOIN users u ON u.id = t.owner_id
WHERE t.owner_id = $1
ORDER BY t.created_at DESC
`, ownerID, viewerID)
	if err != nil {
		return nil, fmt.Errorf("query tweets: %w", err)
	}
	defer rows.Close()

	views := make([]TweetView, 0)
	for rows.Next() {
		var view TweetView
		err := rows.Scan(&view.ID, &view.OwnerID, &view.Content, &view.CreatedAt, &view.UpdatedAt,
			&view.Owner.Username, &view.Owner.FullName, &view.Owner.Avatar,
			&view.LikeCount, &view.IsLiked)
		if err != nil {
			return nil, fmt.Errorf("scan tweet: %w", err)
		}
		view.Owner.ID = view.OwnerID
		views = append(views, view)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tweets: %w", err)
	}
	return views, nil
}

func (r *PostgresRepository) UpdateTweet(id, content string) (models.Tweet, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return models.Tweet{}, fmt.Errorf("%w: content is required", ErrValidation)
	}
	if len(trimmed) > tweetMaxLength {
		return models.Tweet{}, fmt.Errorf("%w: content exceeds %d characters", ErrValidation, tweetMaxLength)
	}

	row := r.pool.QueryRow(context.Background(), `
UPDATE tweets SET content = $2, updated_at = $3
WHERE id = $1
RETURNING id, owner_id, content, created_at, updated_at
`, id, trimmed, time.Now().UTC())
	var tweet models.Tweet
	err := row.Scan(&tweet.ID, &tweet.OwnerID, &tweet.Content, &tweet.CreatedAt, &tweet.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return models.Tweet{}, fmt.Errorf("tweet %s: %w", id, ErrNotFound)
		}
		return models.Tweet{}, fmt.Errorf("update tweet: %w", err)
	}
	return tweet, nil
}

func (r *PostgresRepository) DeleteTweet(id string) error {
	ctx := context.Background()
	return r.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "DELETE FROM likes WHERE target = 'tweet' AND target_id = $1", id); err != nil {
			return fmt.Errorf("delete tweet likes: %w", err)
		}
		tag, err := tx.Exec(ctx, "DELETE FROM tweets WHERE id = $1", id)
		if err != nil {
			return fmt.Errorf("delete tweet: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("tweet %s: %w", id, ErrNotFound)
		}
		return nil
	})
}

// Like operations

func (r *PostgresRepository) likeTargetExists(ctx context.Context, target models.LikeTarget, targetID string) (bool, error) {
	table := map[models.LikeTarget]string{
		models.LikeTargetVideo:   "videos",
		models.LikeTargetComment: "comments",
		models.LikeTargetTweet:   "tweets",
	}[target]
	if table == "" {
		return false, fmt.Errorf("%w: unknown like target %q", ErrValidation, target)
	}
	var exists bool
	err := r.pool.QueryRow(ctx, fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1)", table), targetID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query %s: %w", table, err)
	}
	return exists, nil
}

// ToggleLike removes the existing row or inserts a new one inside a single
// transaction. The unique index on (liked_by, target, target_id) guarantees
// concurrent toggles cannot create duplicates.
func (r *PostgresRepository) ToggleLike(userID string, target models.LikeTarget, targetID string) (bool, error) {
	ctx := context.Background()
	if err := r.requireUser(ctx, userID); err != nil {
		return false, err
	}
	exists, err := r.likeTargetExists(ctx, target, targetID)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, fmt.Errorf("%s %s: %w", target, targetID, ErrNotFound)
	}

	liked := false
	err = r.withTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
DELETE FROM likes WHERE liked_by = $1 AND target = $2 AND target_id = $3
`, userID, string(target), targetID)
		if err != nil {
			return fmt.Errorf("delete like: %w", err)
		}
		if tag.RowsAffected() > 0 {
			return nil
		}
		id, err := generateID()
		if err != nil {
			return err
		}
		inserted, err := tx.Exec(ctx, `
INSERT INTO likes (id, liked_by, target, target_id, created_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (liked_by, target, target_id) DO NOTHING
`, id, userID, string(target), targetID, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("insert like: %w", err)
		}
		liked = inserted.RowsAffected() > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	return liked, nil
}

func (r *PostgresRepository) ListLikedVideos(userID string) ([]VideoSummary, error) {
	ctx := context.Background()
	if err := r.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	return r.queryVideoSummaries(ctx, `
SELECT `+videoSummaryColumns+`
FROM likes my_like
JOIN videos v ON v.id = my_like.target_id
JOIN users u ON u.id = v.owner_id
WHERE my_like.liked_by = $1 AND my_like.target = 'video' AND v.is_published
ORDER BY my_like.created_at DESC
`, userID, userID)
}

// Subscription operations

// ToggleSubscription mirrors ToggleLike; the unique index on
// (subscriber_id, channel_id) and the subscriber <> channel check constraint
// carry the invariants.
func (r *PostgresRepository) ToggleSubscription(subscriberID, channelID string) (bool, error) {
	if subscriberID == channelID {
		return false, fmt.Errorf("%w: cannot subscribe to your own channel", ErrValidation)
	}

	ctx := context.Background()
	if err := r.requireUser(ctx, subscriberID); err != nil {
		return false, err
	}
	if err := r.requireUser(ctx, channelID); err != nil {
		return false, fmt.Errorf("channel %s: %w", channelID, ErrNotFound)
	}

	subscribed := false
	err := r.withTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
DELETE FROM subscriptions WHERE subscriber_id = $1 AND channel_id = $2
`, subscriberID, channelID)
		if err != nil {
			return fmt.Errorf("delete subscription: %w", err)
		}
		if tag.RowsAffected() > 0 {
			return nil
		}
		id, err := generateID()
		if err != nil {
			return err
		}
		inserted, err := tx.Exec(ctx, `
INSERT INTO subscriptions (id, subscriber_id, channel_id, created_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (subscriber_id, channel_id) DO NOTHING
`, id, subscriberID, channelID, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("insert subscription: %w", err)
		}
		subscribed = inserted.RowsAffected() > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	return subscribed, nil
}

func (r *PostgresRepository) ListChannelSubscribers(channelID string) ([]SubscriberView, error) {
	ctx := context.Background()
	if err := r.requireUser(ctx, channelID); err != nil {
		return nil, fmt.Errorf("channel %s: %w", channelID, ErrNotFound)
	}

	rows, err := r.pool.Query(ctx, `
SELECT u.id, u.username, u.full_name, u.avatar, s.created_at
FROM subscriptions s
JOIN users u ON u.id = s.subscriber_id
WHERE s.channel_id = $1
ORDER BY s.created_at DESC
`, channelID)
	if err != nil {
		return nil, fmt.Errorf("query subscribers: %w", err)
	}
	defer rows.Close()

	views := make([]SubscriberView, 0)
	for rows.Next() {
		var view SubscriberView
		err := rows.Scan(&view.Subscriber.ID, &view.Subscriber.Username,
			&view.Subscriber.FullName, &view.Subscriber.Avatar, &view.SubscribedAt)
		if err != nil {
			return nil, fmt.Errorf("scan subscriber: %w", err)
		}
		views = append(views, view)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscribers: %w", err)
	}
	return views, nil
}

func (r *PostgresRepository) ListSubscribedChannels(subscriberID string) ([]ChannelView, error) {
	ctx := context.Background()
	if err := r.requireUser(ctx, subscriberID); err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
SELECT u.id, u.username, u.full_name, u.avatar, s.created_at,
	(SELECT count(*) FROM subscriptions s2 WHERE s2.channel_id = u.id) AS subscriber_count
FROM subscriptions s
JOIN users u ON u.id = s.channel_id
WHERE s.subscriber_id = $1
ORDER BY s.created_at DESC
`, subscriberID)
	if err != nil {
		return nil, fmt.Errorf("query subscribed channels: %w", err)
	}
	defer rows.Close()

	views := make([]ChannelView, 0)
	for rows.Next() {
		var view ChannelView
		err := rows.Scan(&view.Channel.ID, &view.Channel.Username,
			&view.Channel.FullName, &view.Channel.Avatar, &view.SubscribedAt,
			&view.SubscriberCount)
		if err != nil {
			return nil, fmt.Errorf("scan subscribed channel: %w", err)
		}
		views = append(views, view)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscribed channels: %w", err)
	}
	return views, nil
}

func (r *PostgresRepository) CountSubscribers(channelID string) int {
	var count int
	if err := r.pool.QueryRow(context.Background(),
		"SELECT count(*) FROM subscriptions WHERE channel_id = $1", channelID).Scan(&count); err != nil {
		return 0
	}
	return count
}

func (r *PostgresRepository) GetChannelProfile(username, viewerID string) (ChannelProfile, error) {
	row := r.pool.QueryRow(context.Background(), `
SELECT u.id, u.username, u.full_name, u.email, u.avatar, u.cover_image,
	(SELECT count(*) FROM subscriptions s WHERE s.channel_id = u.id) AS subscriber_count,
	(SELECT count(*) FROM subscriptions s WHERE s.subscriber_id = u.id) AS subscribed_to_count,
	EXISTS (SELECT 1 FROM subscriptions s WHERE s.channel_id = u.id AND s.subscriber_id = $2) AS is_subscribed
FROM users u
WHERE u.username = $1
`, normalizeUsername(username), viewerID)

	var profile ChannelProfile
	err := row.Scan(&profile.ID, &profile.Username, &profile.FullName, &profile.Email,
		&profile.Avatar, &profile.CoverImage,
		&profile.SubscriberCount, &profile.SubscribedToCount, &profile.IsSubscribed)
	if err != nil {
		if isNoRows(err) {
			return ChannelProfile{}, fmt.Errorf("channel %s: %w", username, ErrNotFound)
		}
		return ChannelProfile{}, fmt.Errorf("query channel profile: %w", err)
	}
	return profile, nil
}

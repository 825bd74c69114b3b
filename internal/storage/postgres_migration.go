package storage

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"

	"vidtube/internal/models"
)

var migrationStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	username TEXT NOT NULL UNIQUE,
	email TEXT NOT NULL UNIQUE,
	full_name TEXT NOT NULL,
	avatar TEXT NOT NULL DEFAULT '',
	cover_image TEXT NOT NULL DEFAULT '',
	password_hash TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS videos (
	id TEXT PRIMARY KEY,
	owner_id TEXT NOT NULL REFERENCES users(id),
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	video_file TEXT NOT NULL,
	thumbnail TEXT NOT NULL,
	duration_seconds DOUBLE PRECISION NOT NULL DEFAULT 0,
	views BIGINT NOT NULL DEFAULT 0,
	is_published BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS videos_owner_idx ON videos (owner_id)`,
	`CREATE TABLE IF NOT EXISTS comments (
	id TEXT PRIMARY KEY,
	video_id TEXT NOT NULL REFERENCES videos(id),
	owner_id TEXT NOT NULL REFERENCES users(id),
	content TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS comments_video_idx ON comments (video_id)`,
	`CREATE TABLE IF NOT EXISTS tweets (
	id TEXT PRIMARY KEY,
	owner_id TEXT NOT NULL REFERENCES users(id),
	content TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS tweets_owner_idx ON tweets (owner_id)`,
	`CREATE TABLE IF NOT EXISTS likes (
	id TEXT PRIMARY KEY,
	liked_by TEXT NOT NULL REFERENCES users(id),
	target TEXT NOT NULL CHECK (target IN ('video', 'comment', 'tweet')),
	target_id TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	UNIQUE (liked_by, target, target_id)
)`,
	`CREATE INDEX IF NOT EXISTS likes_target_idx ON likes (target, target_id)`,
	`CREATE TABLE IF NOT EXISTS subscriptions (
	id TEXT PRIMARY KEY,
	subscriber_id TEXT NOT NULL REFERENCES users(id),
	channel_id TEXT NOT NULL REFERENCES users(id),
	created_at TIMESTAMPTZ NOT NULL,
	UNIQUE (subscriber_id, channel_id),
	CHECK (subscriber_id <> channel_id)
)`,
	`CREATE INDEX IF NOT EXISTS subscriptions_channel_idx ON subscriptions (channel_id)`,
	`CREATE TABLE IF NOT EXISTS watch_history (
	user_id TEXT NOT NULL REFERENCES users(id),
	video_id TEXT NOT NULL REFERENCES videos(id),
	watched_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (user_id, video_id)
)`,
	`CREATE TABLE IF NOT EXISTS auth_sessions (
	token TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL
)`,
}

// Migrate applies the schema. Statements are idempotent so it can run at
// every startup.
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	for _, stmt := range migrationStatements {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}
	return nil
}

// ImportSnapshot loads a JSON-store snapshot into Postgres inside one
// transaction. Existing rows win; re-running an interrupted import is safe.
func (r *PostgresRepository) ImportSnapshot(ctx context.Context, snapshot Snapshot) error {
	return r.withTx(ctx, func(tx pgx.Tx) error {
		if err := importSnapshotUsers(ctx, tx, snapshot.Users); err != nil {
			return err
		}
		if err := importSnapshotVideos(ctx, tx, snapshot.Videos); err != nil {
			return err
		}
		if err := importSnapshotComments(ctx, tx, snapshot.Comments); err != nil {
			return err
		}
		if err := importSnapshotTweets(ctx, tx, snapshot.Tweets); err != nil {
			return err
		}
		if err := importSnapshotLikes(ctx, tx, snapshot.Likes); err != nil {
			return err
		}
		if err := importSnapshotSubscriptions(ctx, tx, snapshot.Subscriptions); err != nil {
			return err
		}
		if err := importSnapshotWatchHistory(ctx, tx, snapshot.Users); err != nil {
			return err
		}
		return nil
	})
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func importSnapshotUsers(ctx context.Context, tx pgx.Tx, users map[string]models.User) error {
	for _, id := range sortedKeys(users) {
		user := users[id]
		_, err := tx.Exec(ctx, `
INSERT INTO users (id, username, email, full_name, avatar, cover_image, password_hash, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (id) DO NOTHING
`, user.ID, user.Username, user.Email, user.FullName, user.Avatar, user.CoverImage,
			user.PasswordHash, user.CreatedAt.UTC(), user.UpdatedAt.UTC())
		if err != nil {
			return fmt.Errorf("insert user %s: %w", id, err)
		}
	}
	return nil
}

func importSnapshotVideos(ctx context.Context, tx pgx.Tx, videos map[string]models.Video) error {
	for _, id := range sortedKeys(videos) {
		video := videos[id]
		_, err := tx.Exec(ctx, `
INSERT INTO videos (id, owner_id, title, description, video_file, thumbnail, duration_seconds, views, is_published, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (id) DO NOTHING
`, video.ID, video.OwnerID, video.Title, video.Description, video.VideoFile, video.Thumbnail,
			video.DurationSeconds, video.Views, video.IsPublished, video.CreatedAt.UTC(), video.UpdatedAt.UTC())
		if err != nil {
			return fmt.Errorf("insert video %s: %w", id, err)
		}
	}
	return nil
}

func importSnapshotComments(ctx context.Context, tx pgx.Tx, comments map[string]models.Comment) error {
	for _, id := range sortedKeys(comments) {
		comment := comments[id]
		_, err := tx.Exec(ctx, `
INSERT INTO comments (id, video_id, owner_id, content, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO NOTHING
`, comment.ID, comment.VideoID, comment.OwnerID, comment.Content,
			comment.CreatedAt.UTC(), comment.UpdatedAt.UTC())
		if err != nil {
			return fmt.Errorf("insert comment %s: %w", id, err)
		}
	}
	return nil
}

func importSnapshotTweets(ctx context.Context, tx pgx.Tx, tweets map[string]models.Tweet) error {
	for _, id := range sortedKeys(tweets) {
		tweet := tweets[id]
		_, err := tx.Exec(ctx, `
INSERT INTO tweets (id, owner_id, content, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO NOTHING
`, tweet.ID, tweet.OwnerID, tweet.Content, tweet.CreatedAt.UTC(), tweet.UpdatedAt.UTC())
		if err != nil {
			return fmt.Errorf("insert tweet %s: %w", id, err)
		}
	}
	return nil
}

func importSnapshotLikes(ctx context.Context, tx pgx.Tx, likes map[string]models.Like) error {
	for _, id := range sortedKeys(likes) {
		like := likes[id]
		_, err := tx.Exec(ctx, `
INSERT INTO likes (id, liked_by, target, target_id, created_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (liked_by, target, target_id) DO NOTHING
`, like.ID, like.LikedBy, string(like.Target), like.TargetID, like.CreatedAt.UTC())
		if err != nil {
			return fmt.Errorf("insert like %s: %w", id, err)
		}
	}
	return nil
}

func importSnapshotSubscriptions(ctx context.Context, tx pgx.Tx, subscriptions map[string]models.Subscription) error {
	for _, id := range sortedKeys(subscriptions) {
		sub := subscriptions[id]
		_, err := tx.Exec(ctx, `
INSERT INTO subscriptions (id, subscriber_id, channel_id, created_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (subscriber_id, channel_id) DO NOTHING
`, sub.ID, sub.SubscriberID, sub.ChannelID, sub.CreatedAt.UTC())
		if err != nil {
			return fmt.Errorf("insert subscription %s: %w", id, err)
		}
	}
	return nil
}

func importSnapshotWatchHistory(ctx context.Context, tx pgx.Tx, users map[string]models.User) error {
	base := time.Now().UTC()
	for _, id := range sortedKeys(users) {
		user := users[id]
		// History is stored most recent first; synthesize descending
		// timestamps so the relative order survives the import.
		for position, videoID := range user.WatchHistory {
			watchedAt := base.Add(-time.Duration(position) * time.Second)
			_, err := tx.Exec(ctx, `
INSERT INTO watch_history (user_id, video_id, watched_at)
VALUES ($1, $2, $3)
ON CONFLICT (user_id, video_id) DO NOTHING
`, user.ID, videoID, watchedAt)
			if err != nil {
				return fmt.Errorf("insert watch history for user %s: %w", user.ID, err)
			}
		}
	}
	return nil
}

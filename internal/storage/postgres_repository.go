package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"vidtube/internal/models"
)

// PostgresRepository is the Postgres-backed Repository. Relational
// constraints carry the invariants the JSON store enforces in code: unique
// indexes make like/subscription toggles atomic and transactions make
// cascade deletes all-or-nothing.
type PostgresRepository struct {
	pool *pgxpool.Pool
	cfg  PostgresConfig
}

var _ Repository = (*PostgresRepository)(nil)

// NewPostgresRepository opens a Postgres-backed repository. Callers should
// run Migrate before serving traffic.
func NewPostgresRepository(cfg PostgresConfig) (*PostgresRepository, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("postgres dsn required")
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	if cfg.MaxConnections > 0 {
		poolCfg.MaxConns = cfg.MaxConnections
	}
	if cfg.MinConnections > 0 {
		poolCfg.MinConns = cfg.MinConnections
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	if cfg.HealthCheckInterval > 0 {
		poolCfg.HealthCheckPeriod = cfg.HealthCheckInterval
	}
	if cfg.ConnectTimeout > 0 {
		poolCfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	}
	if cfg.ApplicationName != "" {
		if poolCfg.ConnConfig.RuntimeParams == nil {
			poolCfg.ConnConfig.RuntimeParams = make(map[string]string)
		}
		poolCfg.ConnConfig.RuntimeParams["application_name"] = cfg.ApplicationName
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}

	return &PostgresRepository{pool: pool, cfg: cfg}, nil
}

// Close releases the connection pool, honouring the context deadline.
func (r *PostgresRepository) Close(ctx context.Context) error {
	if r == nil || r.pool == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		r.pool.Close()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *PostgresRepository) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer rollbackTx(ctx, tx)
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func rollbackTx(ctx context.Context, tx pgx.Tx) {
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		_ = err
	}
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// User operations

const userColumns = "id, username, email, full_name, avatar, cover_image, password_hash, created_at, updated_at"

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.FullName, &user.Avatar,
		&user.CoverImage, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt)
	return user, err
}

func (r *PostgresRepository) CreateUser(params CreateUserParams) (models.User, error) {
	username := normalizeUsername(params.Username)
	if username == "" {
		return models.User{}, fmt.Errorf("%w: username is required", ErrValidation)
	}
	email := normalizeEmail(params.Email)
	if email == "" {
		return models.User{}, fmt.Errorf("%w: email is required", ErrValidation)
	}
	fullName := strings.TrimSpace(params.FullName)
	if fullName == "" {
		return models.User{}, fmt.Errorf("%w: fullName is required", ErrValidation)
	}
	if params.Password == "" {
		return models.User{}, fmt.Errorf("%w: password is required", ErrValidation)
	}

	id, err := generateID()
	if err != nil {
		return models.User{}, err
	}
	passwordHash, err := hashPassword(params.Password)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user := models.User{
		ID:           id,
		Username:     username,
		Email:        email,
		FullName:     fullName,
		Avatar:       strings.TrimSpace(params.Avatar),
		CoverImage:   strings.TrimSpace(params.CoverImage),
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	_, err = r.pool.Exec(context.Background(), `
INSERT INTO users (id, username, email, full_name, avatar, cover_image, password_hash, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`, user.ID, user.Username, user.Email, user.FullName, user.Avatar, user.CoverImage, user.PasswordHash, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return models.User{}, fmt.Errorf("user with email or username %w", ErrConflict)
		}
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) GetUser(id string) (models.User, bool) {
	row := r.pool.QueryRow(context.Background(),
		"SELECT "+userColumns+" FROM users WHERE id = $1", id)
	user, err := scanUser(row)
	if err != nil {
		return models.User{}, false
	}
	return user, true
}

func (r *PostgresRepository) FindUserByUsername(username string) (models.User, bool) {
	row := r.pool.QueryRow(context.Background(),
		"SELECT "+userColumns+" FROM users WHERE username = $1", normalizeUsername(username))
	user, err := scanUser(row)
	if err != nil {
		return models.User{}, false
	}
	return user, true
}

func (r *PostgresRepository) AuthenticateUser(identifier, password string) (models.User, error) {
	if password == "" {
		return models.User{}, fmt.Errorf("%w: password is required", ErrValidation)
	}
	normalized := strings.ToLower(strings.TrimSpace(identifier))
	row := r.pool.QueryRow(context.Background(),
		"SELECT "+userColumns+" FROM users WHERE username = $1 OR email = $1", normalized)
	user, err := scanUser(row)
	if err != nil {
		if isNoRows(err) {
			return models.User{}, ErrInvalidCredentials
		}
		return models.User{}, fmt.Errorf("query user: %w", err)
	}
	if err := verifyPassword(user.PasswordHash, password); err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (r *PostgresRepository) UpdateUser(id string, update UserUpdate) (models.User, error) {
	ctx := context.Background()

	user, ok := r.GetUser(id)
	if !ok {
		return models.User{}, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}

	if update.FullName != nil {
		name := strings.TrimSpace(*update.FullName)
		if name == "" {
			return models.User{}, fmt.Errorf("%w: fullName cannot be empty", ErrValidation)
		}
		user.FullName = name
	}
	if update.Email != nil {
		email := normalizeEmail(*update.Email)
		if email == "" {
			return models.User{}, fmt.Errorf("%w: email cannot be empty", ErrValidation)
		}
		user.Email = email
	}
	user.UpdatedAt = time.Now().UTC()

	_, err := r.pool.Exec(ctx, `
UPDATE users SET full_name = $2, email = $3, updated_at = $4 WHERE id = $1
`, user.ID, user.FullName, user.Email, user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return models.User{}, fmt.Errorf("email %s %w", user.Email, ErrConflict)
		}
		return models.User{}, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}

func (r *PostgresRepository) SetUserAvatar(id, avatarURL string) (models.User, string, error) {
	return r.setUserImage(id, avatarURL, "avatar")
}

func (r *PostgresRepository) SetUserCoverImage(id, coverURL string) (models.User, string, error) {
	return r.setUserImage(id, coverURL, "cover_image")
}

func (r *PostgresRepository) setUserImage(id, url, column string) (models.User, string, error) {
	if strings.TrimSpace(url) == "" {
		return models.User{}, "", fmt.Errorf("%w: image url is required", ErrValidation)
	}
	// column is one of two fixed identifiers, never caller input.
	row := r.pool.QueryRow(context.Background(), fmt.Sprintf(`
UPDATE users SET %[1]s = $2, updated_at = $3
FROM (SELECT %[1]s AS previous FROM users WHERE id = $1) old
WHERE users.id = $1
RETURNING `+userColumns+", old.previous", column),
		id, url, time.Now().UTC())
	var (
		user     models.User
		previous string
	)
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.FullName, &user.Avatar,
		&user.CoverImage, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt, &previous)
	if err != nil {
		if isNoRows(err) {
			return models.User{}, "", fmt.Errorf("user %s: %w", id, ErrNotFound)
		}
		return models.User{}, "", fmt.Errorf("update user image: %w", err)
	}
	return user, previous, nil
}

func (r *PostgresRepository) ChangePassword(id, oldPassword, newPassword string) error {
	if newPassword == "" {
		return fmt.Errorf("%w: new password is required", ErrValidation)
	}
	user, ok := r.GetUser(id)
	if !ok {
		return fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	if err := verifyPassword(user.PasswordHash, oldPassword); err != nil {
		return err
	}
	hashed, err := hashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	_, err = r.pool.Exec(context.Background(),
		"UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1",
		id, hashed, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

func (r *PostgresRepository) WatchHistory(userID string) ([]VideoSummary, error) {
	ctx := context.Background()
	if err := r.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	return r.queryVideoSummaries(ctx, `
SELECT `+videoSummaryColumns+`
FROM watch_history h
JOIN videos v ON v.id = h.video_id
JOIN users u ON u.id = v.owner_id
WHERE h.user_id = $1
ORDER BY h.watched_at DESC
`, userID, userID)
}

func (r *PostgresRepository) requireUser(ctx context.Context, id string) error {
	var exists bool
	err := r.pool.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)", id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("query user: %w", err)
	}
	if !exists {
		return fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return nil
}

// Video operations

// videoSummaryColumns joins the owner projection and per-viewer like state.
// Queries using it take the viewer ID as their last argument.
const videoSummaryColumns = `
v.id, v.owner_id, v.title, v.description, v.video_file, v.thumbnail,
v.duration_seconds, v.views, v.is_published, v.created_at, v.updated_at,
u.username, u.full_name, u.avatar,
(SELECT count(*) FROM likes l WHERE l.target = 'video' AND l.target_id = v.id) AS like_count,
EXISTS (SELECT 1 FROM likes l WHERE l.target = 'video' AND l.target_id = v.id AND l.liked_by = $2) AS is_liked`

func scanVideoSummary(row pgx.Row) (VideoSummary, error) {
	var summary VideoSummary
	err := row.Scan(&summary.ID, &summary.OwnerID, &summary.Title, &summary.Description,
		&summary.VideoFile, &summary.Thumbnail, &summary.DurationSeconds, &summary.Views,
		&summary.IsPublished, &summary.CreatedAt, &summary.UpdatedAt,
		&summary.Owner.Username, &summary.Owner.FullName, &summary.Owner.Avatar,
		&summary.LikeCount, &summary.IsLiked)
	summary.Owner.ID = summary.OwnerID
	return summary, err
}

func (r *PostgresRepository) queryVideoSummaries(ctx context.Context, sql string, args ...any) ([]VideoSummary, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query videos: %w", err)
	}
	defer rows.Close()

	summaries := make([]VideoSummary, 0)
	for rows.Next() {
		summary, err := scanVideoSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate videos: %w", err)
	}
	return summaries, nil
}

func (r *PostgresRepository) CreateVideo(params CreateVideoParams) (models.Video, error) {
	title := strings.TrimSpace(params.Title)
	if title == "" {
		return models.Video{}, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if strings.TrimSpace(params.VideoFile) == "" {
		return models.Video{}, fmt.Errorf("%w: video file is required", ErrValidation)
	}
	if strings.TrimSpace(params.Thumbnail) == "" {
		return models.Video{}, fmt.Errorf("%w: thumbnail is required", ErrValidation)
	}

	ctx := context.Background()
	if err := r.requireUser(ctx, params.OwnerID); err != nil {
		return models.Video{}, err
	}

	id, err := generateID()
	if err != nil {
		return models.Video{}, err
	}
	now := time.Now().UTC()
	video := models.Video{
		ID:              id,
		OwnerID:         params.OwnerID,
		Title:           title,
		Description:     strings.TrimSpace(params.Description),
		VideoFile:       params.VideoFile,
		Thumbnail:       params.Thumbnail,
		DurationSeconds: params.DurationSeconds,
		IsPublished:     true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	_, err = r.pool.Exec(ctx, `
INSERT INTO videos (id, owner_id, title, description, video_file, thumbnail, duration_seconds, views, is_published, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, 0, true, $8, $9)
`, video.ID, video.OwnerID, video.Title, video.Description, video.VideoFile, video.Thumbnail, video.DurationSeconds, video.CreatedAt, video.UpdatedAt)
	if err != nil {
		return models.Video{}, fmt.Errorf("insert video: %w", err)
	}
	return video, nil
}

func (r *PostgresRepository) GetVideo(id string) (models.Video, bool) {
	row := r.pool.QueryRow(context.Background(), `
SELECT id, owner_id, title, description, video_file, thumbnail, duration_seconds, views, is_published, created_at, updated_at
FROM videos WHERE id = $1
`, id)
	var video models.Video
	err := row.Scan(&video.ID, &video.OwnerID, &video.Title, &video.Description,
		&video.VideoFile, &video.Thumbnail, &video.DurationSeconds, &video.Views,
		&video.IsPublished, &video.CreatedAt, &video.UpdatedAt)
	if err != nil {
		return models.Video{}, false
	}
	return video, true
}

func (r *PostgresRepository) GetVideoDetail(id, viewerID string) (VideoDetail, error) {
	row := r.pool.QueryRow(context.Background(), `
SELECT `+videoSummaryColumns+`,
(SELECT count(*) FROM comments c WHERE c.video_id = v.id) AS comment_count,
(SELECT count(*) FROM subscriptions s WHERE s.channel_id = v.owner_id) AS subscriber_count,
EXISTS (SELECT 1 FROM subscriptions s WHERE s.channel_id = v.owner_id AND s.subscriber_id = $2) AS is_subscribed
FROM videos v
JOIN users u ON u.id = v.owner_id
WHERE v.id = $1
`, id, viewerID)

	var detail VideoDetail
	err := row.Scan(&detail.ID, &detail.OwnerID, &detail.Title, &detail.Description,
		&detail.VideoFile, &detail.Thumbnail, &detail.DurationSeconds, &detail.Views,
		&detail.IsPublished, &detail.CreatedAt, &detail.UpdatedAt,
		&detail.Owner.Username, &detail.Owner.FullName, &detail.Owner.Avatar,
		&detail.LikeCount, &detail.IsLiked,
		&detail.CommentCount, &detail.SubscriberCount, &detail.IsSubscribed)
	if err != nil {
		if isNoRows(err) {
			return VideoDetail{}, fmt.Errorf("video %s: %w", id, ErrNotFound)
		}
		return VideoDetail{}, fmt.Errorf("query video detail: %w", err)
	}
	detail.Owner.ID = detail.OwnerID
	return detail, nil
}

func (r *PostgresRepository) RecordView(videoID, viewerID string) error {
	ctx := context.Background()
	return r.withTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, "UPDATE videos SET views = views + 1 WHERE id = $1", videoID)
		if err != nil {
			return fmt.Errorf("increment views: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("video %s: %w", videoID, ErrNotFound)
		}
		if viewerID == "" {
			return nil
		}
		_, err = tx.Exec(ctx, `
INSERT INTO watch_history (user_id, video_id, watched_at)
VALUES ($1, $2, now())
ON CONFLICT (user_id, video_id) DO UPDATE SET watched_at = EXCLUDED.watched_at
`, viewerID, videoID)
		if err != nil {
			return fmt.Errorf("record watch history: %w", err)
		}
		_, err = tx.Exec(ctx, `
DELETE FROM watch_history
WHERE user_id = $1 AND video_id NOT IN (
	SELECT video_id FROM watch_history WHERE user_id = $1 ORDER BY watched_at DESC LIMIT $2
)
`, viewerID, watchHistoryLimit)
		if err != nil {
			return fmt.Errorf("trim watch history: %w", err)
		}
		return nil
	})
}

func (r *PostgresRepository) UpdateVideo(id string, update VideoUpdate) (models.Video, error) {
	video, ok := r.GetVideo(id)
	if !ok {
		return models.Video{}, fmt.Errorf("video %s: %w", id, ErrNotFound)
	}

	if update.Title != nil {
		title := strings.TrimSpace(*update.Title)
		if title == "" {
			return models.Video{}, fmt.Errorf("%w: title cannot be empty", ErrValidation)
		}
		video.Title = title
	}
	if update.Description != nil {
		video.Description = strings.TrimSpace(*update.Description)
	}
	if update.Thumbnail != nil {
		thumbnail := strings.TrimSpace(*update.Thumbnail)
		if thumbnail == "" {
			return models.Video{}, fmt.Errorf("%w: thumbnail cannot be empty", ErrValidation)
		}
		video.Thumbnail = thumbnail
	}
	video.UpdatedAt = time.Now().UTC()

	_, err := r.pool.Exec(context.Background(), `
UPDATE videos SET title = $2, description = $3, thumbnail = $4, updated_at = $5 WHERE id = $1
`, video.ID, video.Title, video.Description, video.Thumbnail, video.UpdatedAt)
	if err != nil {
		return models.Video{}, fmt.Errorf("update video: %w", err)
	}
	return video, nil
}

func (r *PostgresRepository) DeleteVideo(id string) error {
	ctx := context.Background()
	return r.withTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
DELETE FROM likes
WHERE (target = 'video' AND target_id = $1)
   OR (target = 'comment' AND target_id IN (SELECT id FROM comments WHERE video_id = $1))
`, id)
		if err != nil {
			return fmt.Errorf("delete video likes: %w", err)
		}
		if _, err := tx.Exec(ctx, "DELETE FROM comments WHERE video_id = $1", id); err != nil {
			return fmt.Errorf("delete video comments: %w", err)
		}
		if _, err := tx.Exec(ctx, "DELETE FROM watch_history WHERE video_id = $1", id); err != nil {
			return fmt.Errorf("delete watch history: %w", err)
		}
		tag, err := tx.Exec(ctx, "DELETE FROM videos WHERE id = $1", id)
		if err != nil {
			return fmt.Errorf("delete video: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("video %s: %w", id, ErrNotFound)
		}
		return nil
	})
}

func (r *PostgresRepository) TogglePublish(id string) (models.Video, error) {
	row := r.pool.QueryRow(context.Background(), `
UPDATE videos SET is_published = NOT is_published, updated_at = $2
WHERE id = $1
RETURNING id, owner_id, title, description, video_file, thumbnail, duration_seconds, views, is_published, created_at, updated_at
`, id, time.Now().UTC())
	var video models.Video
	err := row.Scan(&video.ID, &video.OwnerID, &video.Title, &video.Description,
		&video.VideoFile, &video.Thumbnail, &video.DurationSeconds, &video.Views,
		&video.IsPublished, &video.CreatedAt, &video.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return models.Video{}, fmt.Errorf("video %s: %w", id, ErrNotFound)
		}
		return models.Video{}, fmt.Errorf("toggle publish: %w", err)
	}
	return video, nil
}

func (r *PostgresRepository) ListVideos(opts ListVideosOptions) ([]VideoSummary, Pagination, error) {
	ctx := context.Background()

	if opts.OwnerID != "" {
		if err := r.requireUser(ctx, opts.OwnerID); err != nil {
			return nil, Pagination{}, err
		}
	}

	query := strings.TrimSpace(opts.Query)

	var total int
	err := r.pool.QueryRow(ctx, `
SELECT count(*)
FROM videos v
WHERE ($1 = '' OR v.owner_id = $1)
  AND ($2 = '' OR v.title ILIKE '%' || $2 || '%' OR v.description ILIKE '%' || $2 || '%')
  AND (v.is_published OR $3)
`, opts.OwnerID, query, opts.IncludeUnpublished).Scan(&total)
	if err != nil {
		return nil, Pagination{}, fmt.Errorf("count videos: %w", err)
	}

	pagination := NewPagination(opts.Page, opts.Limit, total)

	orderColumn := map[string]string{
		VideoSortViews:    "v.views",
		VideoSortDuration: "v.duration_seconds",
		VideoSortTitle:    "lower(v.title)",
	}[opts.SortBy]
	if orderColumn == "" {
		orderColumn = "v.created_at"
	}
	direction := "DESC"
	if opts.SortAscending {
		direction = "ASC"
	}

	listSQL := fmt.Sprintf(`
SELECT %s
FROM videos v
JOIN users u ON u.id = v.owner_id
WHERE ($1 = '' OR v.owner_id = $1)
  AND ($3 = '' OR v.title ILIKE '%%' || $3 || '%%' OR v.description ILIKE '%%' || $3 || '%%')
  AND (v.is_published OR $4)
ORDER BY %s %s
LIMIT $5 OFFSET $6
`, videoSummaryColumns, orderColumn, direction)

	summaries, err := r.queryVideoSummaries(ctx, listSQL,
		opts.OwnerID, opts.ViewerID, query, opts.IncludeUnpublished,
		pagination.Limit, pagination.offset())
	if err != nil {
		return nil, Pagination{}, err
	}
	return summaries, pagination, nil
}

func (r *PostgresRepository) ChannelStats(ownerID string) (ChannelStats, error) {
	ctx := context.Background()
	if err := r.requireUser(ctx, ownerID); err != nil {
		return ChannelStats{}, err
	}
	var stats ChannelStats
	err := r.pool.QueryRow(ctx, `
SELECT
	(SELECT count(*) FROM videos v WHERE v.owner_id = $1),
	COALESCE((SELECT sum(v.views) FROM videos v WHERE v.owner_id = $1), 0),
	(SELECT count(*) FROM subscriptions s WHERE s.channel_id = $1),
	(SELECT count(*) FROM likes l JOIN videos v ON v.id = l.target_id WHERE l.target = 'video' AND v.owner_id = $1)
`, ownerID).Scan(&stats.TotalVideos, &stats.TotalViews, &stats.TotalSubscribers, &stats.TotalLikes)
	if err != nil {
		return ChannelStats{}, fmt.Errorf("query channel stats: %w", err)
	}
	return stats, nil
}

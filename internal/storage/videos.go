package storage

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"vidtube/internal/models"
)

// foldCase normalizes text for case-insensitive search, handling characters
// simple lowercasing misses.
var foldCase = cases.Fold()

func (s *Storage) CreateVideo(params CreateVideoParams) (models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

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
	if _, ok := s.data.Users[params.OwnerID]; !ok {
		return models.Video{}, fmt.Errorf("user %s: %w", params.OwnerID, ErrNotFound)
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

	s.data.Videos[id] = video
	if err := s.persistDataset(s.data); err != nil {
		delete(s.data.Videos, id)
		return models.Video{}, err
	}

	return video, nil
}

func (s *Storage) GetVideo(id string) (models.Video, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	video, ok := s.data.Videos[id]
	return video, ok
}

func (s *Storage) videoSummaryLocked(data dataset, video models.Video, viewerID string) VideoSummary {
	return VideoSummary{
		Video:     video,
		Owner:     ownerSummaryLocked(data, video.OwnerID),
		LikeCount: countLikesLocked(data, models.LikeTargetVideo, video.ID),
		IsLiked:   isLikedLocked(data, viewerID, models.LikeTargetVideo, video.ID),
	}
}

// GetVideoDetail composes the watch-page view: owner projection, like and
// comment counts, and the owner channel's subscription standing for the
// viewer.
func (s *Storage) GetVideoDetail(id, viewerID string) (VideoDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	video, ok := s.data.Videos[id]
	if !ok {
		return VideoDetail{}, fmt.Errorf("video %s: %w", id, ErrNotFound)
	}

	comments := 0
	for _, comment := range s.data.Comments {
		if comment.VideoID == id {
			comments++
		}
	}

	return VideoDetail{
		VideoSummary:    s.videoSummaryLocked(s.data, video, viewerID),
		CommentCount:    comments,
		SubscriberCount: countSubscribersLocked(s.data, video.OwnerID),
		IsSubscribed:    isSubscribedLocked(s.data, viewerID, video.OwnerID),
	}, nil
}

// RecordView bumps the video's view counter and, when the viewer is known,
// moves the video to the front of their watch history. Both changes commit
// together.
func (s *Storage) RecordView(videoID, viewerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	updatedData := cloneDataset(s.data)

	video, ok := updatedData.Videos[videoID]
	if !ok {
		return fmt.Errorf("video %s: %w", videoID, ErrNotFound)
	}
	video.Views++
	updatedData.Videos[videoID] = video

	if viewerID != "" {
		if user, ok := updatedData.Users[viewerID]; ok {
			history := make([]string, 0, len(user.WatchHistory)+1)
			history = append(history, videoID)
			for _, entry := range user.WatchHistory {
				if entry == videoID {
					continue
				}
				history = append(history, entry)
			}
			if len(history) > watchHistoryLimit {
				history = history[:watchHistoryLimit]
			}
			user.WatchHistory = history
			updatedData.Users[viewerID] = user
		}
	}

	if err := s.persistDataset(updatedData); err != nil {
		return err
	}

	s.data = updatedData

	return nil
}

func (s *Storage) UpdateVideo(id string, update VideoUpdate) (models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updatedData := cloneDataset(s.data)

	video, ok := updatedData.Videos[id]
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

	updatedData.Videos[id] = video
	if err := s.persistDataset(updatedData); err != nil {
		return models.Video{}, err
	}

	s.data = updatedData

	return video, nil
}

// DeleteVideo removes the video together with its comments, every like
// pointing at the video or its comments, and any watch-history references.
// The cascade commits as one write.
func (s *Storage) DeleteVideo(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	updatedData := cloneDataset(s.data)

	if _, ok := updatedData.Videos[id]; !ok {
		return fmt.Errorf("video %s: %w", id, ErrNotFound)
	}

	delete(updatedData.Videos, id)

	removedComments := make(map[string]struct{})
	for commentID, comment := range updatedData.Comments {
		if comment.VideoID == id {
			delete(updatedData.Comments, commentID)
			removedComments[commentID] = struct{}{}
		}
	}

	for likeID, like := range updatedData.Likes {
		switch like.Target {
		case models.LikeTargetVideo:
			if like.TargetID == id {
				delete(updatedData.Likes, likeID)
			}
		case models.LikeTargetComment:
			if _, removed := removedComments[like.TargetID]; removed {
				delete(updatedData.Likes, likeID)
			}
		}
	}

	for userID, user := range updatedData.Users {
		filtered := user.WatchHistory[:0:0]
		for _, entry := range user.WatchHistory {
			if entry == id {
				continue
			}
			filtered = append(filtered, entry)
		}
		if len(filtered) != len(user.WatchHistory) {
			user.WatchHistory = filtered
			updatedData.Users[userID] = user
		}
	}

	if err := s.persistDataset(updatedData); err != nil {
		return err
	}

	s.data = updatedData

	return nil
}

// TogglePublish flips the video's published flag and returns the new state.
func (s *Storage) TogglePublish(id string) (models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updatedData := cloneDataset(s.data)

	video, ok := updatedData.Videos[id]
	if !ok {
		return models.Video{}, fmt.Errorf("video %s: %w", id, ErrNotFound)
	}
	video.IsPublished = !video.IsPublished
	video.UpdatedAt = time.Now().UTC()

	updatedData.Videos[id] = video
	if err := s.persistDataset(updatedData); err != nil {
		return models.Video{}, err
	}

	s.data = updatedData

	return video, nil
}

// ListVideos filters, sorts, and paginates videos. Unpublished videos are
// only visible when IncludeUnpublished is set (the owner dashboard).
func (s *Storage) ListVideos(opts ListVideosOptions) ([]VideoSummary, Pagination, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if opts.OwnerID != "" {
		if _, ok := s.data.Users[opts.OwnerID]; !ok {
			return nil, Pagination{}, fmt.Errorf("user %s: %w", opts.OwnerID, ErrNotFound)
		}
	}

	query := foldCase.String(strings.TrimSpace(opts.Query))
	matched := make([]models.Video, 0, len(s.data.Videos))
	for _, video := range s.data.Videos {
		if !video.IsPublished && !opts.IncludeUnpublished {
			continue
		}
		if opts.OwnerID != "" && video.OwnerID != opts.OwnerID {
			continue
		}
		if query != "" {
			title := foldCase.String(video.Title)
			description := foldCase.String(video.Description)
			if !strings.Contains(title, query) && !strings.Contains(description, query) {
				continue
			}
		}
		matched = append(matched, video)
	}

	sortVideos(matched, opts.SortBy, opts.SortAscending)

	page := NewPagination(opts.Page, opts.Limit, len(matched))
	start := page.offset()
	if start > len(matched) {
		start = len(matched)
	}
	end := start + page.Limit
	if end > len(matched) {
		end = len(matched)
	}

	summaries := make([]VideoSummary, 0, end-start)
	for _, video := range matched[start:end] {
		summaries = append(summaries, s.videoSummaryLocked(s.data, video, opts.ViewerID))
	}
	return summaries, page, nil
}

func sortVideos(videos []models.Video, sortBy string, ascending bool) {
	var less func(a, b models.Video) bool
	switch sortBy {
	case VideoSortViews:
		less = func(a, b models.Video) bool { return a.Views < b.Views }
	case VideoSortDuration:
		less = func(a, b models.Video) bool { return a.DurationSeconds < b.DurationSeconds }
	case VideoSortTitle:
		less = func(a, b models.Video) bool { return foldCase.String(a.Title) < foldCase.String(b.Title) }
	default:
		less = func(a, b models.Video) bool { return a.CreatedAt.Before(b.CreatedAt) }
	}
	sort.SliceStable(videos, func(i, j int) bool {
		if ascending {
			return less(videos[i], videos[j])
		}
		return less(videos[j], videos[i])
	})
}

// ChannelStats aggregates dashboard totals for a channel owner.
func (s *Storage) ChannelStats(ownerID string) (ChannelStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.data.Users[ownerID]; !ok {
		return ChannelStats{}, fmt.Errorf("user %s: %w", ownerID, ErrNotFound)
	}

	stats := ChannelStats{
		TotalSubscribers: countSubscribersLocked(s.data, ownerID),
	}
	owned := make(map[string]struct{})
	for _, video := range s.data.Videos {
		if video.OwnerID != ownerID {
			continue
		}
		stats.TotalVideos++
		stats.TotalViews += video.Views
		owned[video.ID] = struct{}{}
	}
	for _, like := range s.data.Likes {
		if like.Target != models.LikeTargetVideo {
			continue
		}
		if _, ok := owned[like.TargetID]; ok {
			stats.TotalLikes++
		}
	}
	return stats, nil
}

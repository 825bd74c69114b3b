package storage

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"vidtube/internal/models"
)

const commentMaxLength = 1000

func (s *Storage) CreateComment(videoID, ownerID, content string) (models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return models.Comment{}, fmt.Errorf("%w: content is required", ErrValidation)
	}
	if len(trimmed) > commentMaxLength {
		return models.Comment{}, fmt.Errorf("%w: content exceeds %d characters", ErrValidation, commentMaxLength)
	}
	if _, ok := s.data.Videos[videoID]; !ok {
		return models.Comment{}, fmt.Errorf("video %s: %w", videoID, ErrNotFound)
	}
	if _, ok := s.data.Users[ownerID]; !ok {
		return models.Comment{}, fmt.Errorf("user %s: %w", ownerID, ErrNotFound)
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

	s.data.Comments[id] = comment
	if err := s.persistDataset(s.data); err != nil {
		delete(s.data.Comments, id)
		return models.Comment{}, err
	}

	return comment, nil
}

func (s *Storage) GetComment(id string) (models.Comment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	comment, ok := s.data.Comments[id]
	return comment, ok
}

// ListComments returns a video's comments, newest first, joined with owner
// and like information for the viewer.
func (s *Storage) ListComments(videoID, viewerID string, page, limit int) ([]CommentView, Pagination, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.data.Videos[videoID]; !ok {
		return nil, Pagination{}, fmt.Errorf("video %s: %w", videoID, ErrNotFound)
	}

	comments := make([]models.Comment, 0)
	for _, comment := range s.data.Comments {
		if comment.VideoID == videoID {
			comments = append(comments, comment)
		}
	}
	sort.Slice(comments, func(i, j int) bool {
		return comments[i].CreatedAt.After(comments[j].CreatedAt)
	})

	pagination := NewPagination(page, limit, len(comments))
	start := pagination.offset()
	if start > len(comments) {
		start = len(comments)
	}
	end := start + pagination.Limit
	if end > len(comments) {
		end = len(comments)
	}

	views := make([]CommentView, 0, end-start)
	for _, comment := range comments[start:end] {
		views = append(views, CommentView{
			Comment:   comment,
			Owner:     ownerSummaryLocked(s.data, comment.OwnerID),
			LikeCount: countLikesLocked(s.data, models.LikeTargetComment, comment.ID),
			IsLiked:   isLikedLocked(s.data, viewerID, models.LikeTargetComment, comment.ID),
		})
	}
	return views, pagination, nil
}

func (s *Storage) UpdateComment(id, content string) (models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return models.Comment{}, fmt.Errorf("%w: content is required", ErrValidation)
	}
	if len(trimmed) > commentMaxLength {
		return models.Comment{}, fmt.Errorf("%w: content exceeds %d characters", ErrValidation, commentMaxLength)
	}

	updatedData := cloneDataset(s.data)

	comment, ok := updatedData.Comments[id]
	if !ok {
		return models.Comment{}, fmt.Errorf("comment %s: %w", id, ErrNotFound)
	}
	comment.Content = trimmed
	comment.UpdatedAt = time.Now().UTC()

	updatedData.Comments[id] = comment
	if err := s.persistDataset(updatedData); err != nil {
		return models.Comment{}, err
	}

	s.data = updatedData

	return comment, nil
}

// DeleteComment removes the comment and any likes pointing at it in one
// write.
func (s *Storage) DeleteComment(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	updatedData := cloneDataset(s.data)

	if _, ok := updatedData.Comments[id]; !ok {
		return fmt.Errorf("comment %s: %w", id, ErrNotFound)
	}

	delete(updatedData.Comments, id)
	for likeID, like := range updatedData.Likes {
		if like.Target == models.LikeTargetComment && like.TargetID == id {
			delete(updatedData.Likes, likeID)
		}
	}

	if err := s.persistDataset(updatedData); err != nil {
		return err
	}

	s.data = updatedData

	return nil
}

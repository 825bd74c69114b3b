package storage

import (
	"fmt"
	"sort"
	"time"

	"vidtube/internal/models"
)

func countLikesLocked(data dataset, target models.LikeTarget, targetID string) int {
	count := 0
	for _, like := range data.Likes {
		if like.Target == target && like.TargetID == targetID {
			count++
		}
	}
	return count
}

func isLikedLocked(data dataset, userID string, target models.LikeTarget, targetID string) bool {
	if userID == "" {
		return false
	}
	for _, like := range data.Likes {
		if like.LikedBy == userID && like.Target == target && like.TargetID == targetID {
			return true
		}
	}
	return false
}

func likeTargetExistsLocked(data dataset, target models.LikeTarget, targetID string) bool {
	switch target {
	case models.LikeTargetVideo:
		_, ok := data.Videos[targetID]
		return ok
	case models.LikeTargetComment:
		_, ok := data.Comments[targetID]
		return ok
	case models.LikeTargetTweet:
		_, ok := data.Tweets[targetID]
		return ok
	}
	return false
}

// ToggleLike flips the like state for one (user, target) pair under a single
// write section and reports the resulting state. There is no window in which
// a concurrent toggle can observe or create a duplicate like.
func (s *Storage) ToggleLike(userID string, target models.LikeTarget, targetID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updatedData := cloneDataset(s.data)

	if _, ok := updatedData.Users[userID]; !ok {
		return false, fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	if !likeTargetExistsLocked(updatedData, target, targetID) {
		return false, fmt.Errorf("%s %s: %w", target, targetID, ErrNotFound)
	}

	var existingID string
	for likeID, like := range updatedData.Likes {
		if like.LikedBy == userID && like.Target == target && like.TargetID == targetID {
			existingID = likeID
			break
		}
	}

	liked := false
	if existingID != "" {
		delete(updatedData.Likes, existingID)
	} else {
		id, err := generateID()
		if err != nil {
			return false, err
		}
		updatedData.Likes[id] = models.Like{
			ID:        id,
			LikedBy:   userID,
			Target:    target,
			TargetID:  targetID,
			CreatedAt: time.Now().UTC(),
		}
		liked = true
	}

	if err := s.persistDataset(updatedData); err != nil {
		return false, err
	}

	s.data = updatedData

	return liked, nil
}

// ListLikedVideos returns the caller's liked videos, most recently liked
// first. Likes whose video has been deleted are skipped.
func (s *Storage) ListLikedVideos(userID string) ([]VideoSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.data.Users[userID]; !ok {
		return nil, fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}

	likes := make([]models.Like, 0)
	for _, like := range s.data.Likes {
		if like.LikedBy == userID && like.Target == models.LikeTargetVideo {
			likes = append(likes, like)
		}
	}
	sort.Slice(likes, func(i, j int) bool {
		return likes[i].CreatedAt.After(likes[j].CreatedAt)
	})

	videos := make([]VideoSummary, 0, len(likes))
	for _, like := range likes {
		video, ok := s.data.Videos[like.TargetID]
		if !ok || !video.IsPublished {
			continue
		}
		videos = append(videos, s.videoSummaryLocked(s.data, video, userID))
	}
	return videos, nil
}

package storage

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"vidtube/internal/models"
)

const tweetMaxLength = 280

func (s *Storage) CreateTweet(ownerID, content string) (models.Tweet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return models.Tweet{}, fmt.Errorf("%w: content is required", ErrValidation)
	}
	if len(trimmed) > tweetMaxLength {
		return models.Tweet{}, fmt.Errorf("%w: content exceeds %d characters", ErrValidation, tweetMaxLength)
	}
	if _, ok := s.data.Users[ownerID]; !ok {
		return models.Tweet{}, fmt.Errorf("user %s: %w", ownerID, ErrNotFound)
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

	s.data.Tweets[id] = tweet
	if err := s.persistDataset(s.data); err != nil {
		delete(s.data.Tweets, id)
		return models.Tweet{}, err
	}

	return tweet, nil
}

func (s *Storage) GetTweet(id string) (models.Tweet, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tweet, ok := s.data.Tweets[id]
	return tweet, ok
}

// ListUserTweets returns a user's tweets, newest first, with owner and like
// state for the viewer.
func (s *Storage) ListUserTweets(ownerID, viewerID string) ([]TweetView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.data.Users[ownerID]; !ok {
		return nil, fmt.Errorf("user %s: %w", ownerID, ErrNotFound)
	}

	tweets := make([]models.Tweet, 0)
	for _, tweet := range s.data.Tweets {
		if tweet.OwnerID == ownerID {
			tweets = append(tweets, tweet)
		}
	}
	sort.Slice(tweets, func(i, j int) bool {
		return tweets[i].CreatedAt.After(tweets[j].CreatedAt)
	})

	views := make([]TweetView, 0, len(tweets))
	for _, tweet := range tweets {
		views = append(views, TweetView{
			Tweet:     tweet,
			Owner:     ownerSummaryLocked(s.data, tweet.OwnerID),
			LikeCount: countLikesLocked(s.data, models.LikeTargetTweet, tweet.ID),
			IsLiked:   isLikedLocked(s.data, viewerID, models.LikeTargetTweet, tweet.ID),
		})
	}
	return views, nil
}

func (s *Storage) UpdateTweet(id, content string) (models.Tweet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return models.Tweet{}, fmt.Errorf("%w: content is required", ErrValidation)
	}
	if len(trimmed) > tweetMaxLength {
		return models.Tweet{}, fmt.Errorf("%w: content exceeds %d characters", ErrValidation, tweetMaxLength)
	}

	updatedData := cloneDataset(s.data)

	tweet, ok := updatedData.Tweets[id]
	if !ok {
		return models.Tweet{}, fmt.Errorf("tweet %s: %w", id, ErrNotFound)
	}
	tweet.Content = trimmed
	tweet.UpdatedAt = time.Now().UTC()

	updatedData.Tweets[id] = tweet
	if err := s.persistDataset(updatedData); err != nil {
		return models.Tweet{}, err
	}

	s.data = updatedData

	return tweet, nil
}

// DeleteTweet removes the tweet and any likes pointing at it in one write.
func (s *Storage) DeleteTweet(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	updatedData := cloneDataset(s.data)

	if _, ok := updatedData.Tweets[id]; !ok {
		return fmt.Errorf("tweet %s: %w", id, ErrNotFound)
	}

	delete(updatedData.Tweets, id)
	for likeID, like := range updatedData.Likes {
		if like.Target == models.LikeTargetTweet && like.TargetID == id {
			delete(updatedData.Likes, likeID)
		}
	}

	if err := s.persistDataset(updatedData); err != nil {
		return err
	}

	s.data = updatedData

	return nil
}

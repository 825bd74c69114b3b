package storage

import (
	"fmt"
	"sort"
	"time"

	"vidtube/internal/models"
)

func countSubscribersLocked(data dataset, channelID string) int {
	count := 0
	for _, sub := range data.Subscriptions {
		if sub.ChannelID == channelID {
			count++
		}
	}
	return count
}

func isSubscribedLocked(data dataset, subscriberID, channelID string) bool {
	if subscriberID == "" {
		return false
	}
	for _, sub := range data.Subscriptions {
		if sub.SubscriberID == subscriberID && sub.ChannelID == channelID {
			return true
		}
	}
	return false
}

// ToggleSubscription flips the subscriber's membership for a channel under a
// single write section and reports the resulting state. Subscribing to your
// own channel is rejected.
func (s *Storage) ToggleSubscription(subscriberID, channelID string) (bool, error) {
	if subscriberID == channelID {
		return false, fmt.Errorf("%w: cannot subscribe to your own channel", ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	updatedData := cloneDataset(s.data)

	if _, ok := updatedData.Users[subscriberID]; !ok {
		return false, fmt.Errorf("user %s: %w", subscriberID, ErrNotFound)
	}
	if _, ok := updatedData.Users[channelID]; !ok {
		return false, fmt.Errorf("channel %s: %w", channelID, ErrNotFound)
	}

	var existingID string
	for subID, sub := range updatedData.Subscriptions {
		if sub.SubscriberID == subscriberID && sub.ChannelID == channelID {
			existingID = subID
			break
		}
	}

	subscribed := false
	if existingID != "" {
		delete(updatedData.Subscriptions, existingID)
	} else {
		id, err := generateID()
		if err != nil {
			return false, err
		}
		updatedData.Subscriptions[id] = models.Subscription{
			ID:           id,
			SubscriberID: subscriberID,
			ChannelID:    channelID,
			CreatedAt:    time.Now().UTC(),
		}
		subscribed = true
	}

	if err := s.persistDataset(updatedData); err != nil {
		return false, err
	}

	s.data = updatedData

	return subscribed, nil
}

// ListChannelSubscribers returns everyone subscribed to the channel, newest
// first. A channel nobody subscribes to yields an empty list.
func (s *Storage) ListChannelSubscribers(channelID string) ([]SubscriberView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.data.Users[channelID]; !ok {
		return nil, fmt.Errorf("channel %s: %w", channelID, ErrNotFound)
	}

	subs := make([]models.Subscription, 0)
	for _, sub := range s.data.Subscriptions {
		if sub.ChannelID == channelID {
			subs = append(subs, sub)
		}
	}
	sort.Slice(subs, func(i, j int) bool {
		return subs[i].CreatedAt.After(subs[j].CreatedAt)
	})

	views := make([]SubscriberView, 0, len(subs))
	for _, sub := range subs {
		views = append(views, SubscriberView{
			Subscriber:   ownerSummaryLocked(s.data, sub.SubscriberID),
			SubscribedAt: sub.CreatedAt,
		})
	}
	return views, nil
}

// ListSubscribedChannels returns the channels a user subscribes to, newest
// first, each with its current audience size.
func (s *Storage) ListSubscribedChannels(subscriberID string) ([]ChannelView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.data.Users[subscriberID]; !ok {
		return nil, fmt.Errorf("user %s: %w", subscriberID, ErrNotFound)
	}

	subs := make([]models.Subscription, 0)
	for _, sub := range s.data.Subscriptions {
		if sub.SubscriberID == subscriberID {
			subs = append(subs, sub)
		}
	}
	sort.Slice(subs, func(i, j int) bool {
		return subs[i].CreatedAt.After(subs[j].CreatedAt)
	})

	views := make([]ChannelView, 0, len(subs))
	for _, sub := range subs {
		views = append(views, ChannelView{
			Channel:         ownerSummaryLocked(s.data, sub.ChannelID),
			SubscriberCount: countSubscribersLocked(s.data, sub.ChannelID),
			SubscribedAt:    sub.CreatedAt,
		})
	}
	return views, nil
}

// CountSubscribers reports the channel's audience size.
func (s *Storage) CountSubscribers(channelID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return countSubscribersLocked(s.data, channelID)
}

// GetChannelProfile composes the public channel page for a username,
// including the viewer's subscription state.
func (s *Storage) GetChannelProfile(username, viewerID string) (ChannelProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := findUserByUsernameLocked(s.data, username)
	if !ok {
		return ChannelProfile{}, fmt.Errorf("channel %s: %w", username, ErrNotFound)
	}

	subscribedTo := 0
	for _, sub := range s.data.Subscriptions {
		if sub.SubscriberID == user.ID {
			subscribedTo++
		}
	}

	return ChannelProfile{
		ID:                user.ID,
		Username:          user.Username,
		FullName:          user.FullName,
		Email:             user.Email,
		Avatar:            user.Avatar,
		CoverImage:        user.CoverImage,
		SubscriberCount:   countSubscribersLocked(s.data, user.ID),
		SubscribedToCount: subscribedTo,
		IsSubscribed:      isSubscribedLocked(s.data, viewerID, user.ID),
	}, nil
}

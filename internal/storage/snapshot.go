package storage

import "vidtube/internal/models"

// Snapshot is an exported copy of the JSON store's datasets, used by the
// migration tool to seed a Postgres database.
type Snapshot struct {
	Users         map[string]models.User         `json:"users"`
	Videos        map[string]models.Video        `json:"videos"`
	Comments      map[string]models.Comment      `json:"comments"`
	Tweets        map[string]models.Tweet        `json:"tweets"`
	Likes         map[string]models.Like         `json:"likes"`
	Subscriptions map[string]models.Subscription `json:"subscriptions"`
}

// Snapshot returns a deep copy of the store's current contents.
func (s *Storage) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	clone := cloneDataset(s.data)
	return Snapshot{
		Users:         clone.Users,
		Videos:        clone.Videos,
		Comments:      clone.Comments,
		Tweets:        clone.Tweets,
		Likes:         clone.Likes,
		Subscriptions: clone.Subscriptions,
	}
}

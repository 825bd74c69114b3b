package storage

import (
	"path/filepath"
	"testing"

	"vidtube/internal/models"
)

func newTestStore(t *testing.T) *Storage {
	t.Helper()
	dir := t.TempDir()
	store, err := NewStorage(filepath.Join(dir, "store.json"))
	if err != nil {
		t.Fatalf("NewStorage error: %v", err)
	}
	return store
}

func createTestUser(t *testing.T, store *Storage, username string) models.User {
	t.Helper()
	user, err := store.CreateUser(CreateUserParams{
		Username: username,
		Email:    username + "@example.com",
		FullName: "Test " + username,
		Password: "correct horse battery",
	})
	if err != nil {
		t.Fatalf("CreateUser(%q) error: %v", username, err)
	}
	return user
}

func createTestVideo(t *testing.T, store *Storage, ownerID, title string) models.Video {
	t.Helper()
	video, err := store.CreateVideo(CreateVideoParams{
		OwnerID:         ownerID,
		Title:           title,
		Description:     "about " + title,
		VideoFile:       "/media/" + title + ".mp4",
		Thumbnail:       "/media/" + title + ".jpg",
		DurationSeconds: 120,
	})
	if err != nil {
		t.Fatalf("CreateVideo(%q) error: %v", title, err)
	}
	return video
}

package storage

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/pbkdf2"

	"vidtube/internal/models"
)

const (
	passwordHashSaltLength = 16
	passwordHashKeyLength  = 32
	passwordHashIterations = 120000

	watchHistoryLimit = 100
)

type dataset struct {
	Users         map[string]models.User         `json:"users"`
	Videos        map[string]models.Video        `json:"videos"`
	Comments      map[string]models.Comment      `json:"comments"`
	Tweets        map[string]models.Tweet        `json:"tweets"`
	Likes         map[string]models.Like         `json:"likes"`
	Subscriptions map[string]models.Subscription `json:"subscriptions"`
}

// Storage is the JSON-file backed repository. All mutations clone the
// dataset, persist the clone atomically, and only then swap it in, so a
// failed write never leaves partial state behind.
type Storage struct {
	mu       sync.RWMutex
	filePath string
	data     dataset
	// persistOverride allows tests to intercept persist operations.
	persistOverride func(dataset) error
}

func newDataset() dataset {
	return dataset{
		Users:         make(map[string]models.User),
		Videos:        make(map[string]models.Video),
		Comments:      make(map[string]models.Comment),
		Tweets:        make(map[string]models.Tweet),
		Likes:         make(map[string]models.Like),
		Subscriptions: make(map[string]models.Subscription),
	}
}

func (s *Storage) ensureDatasetInitializedLocked() {
	if s.data.Users == nil {
		s.data.Users = make(map[string]models.User)
	}
	if s.data.Videos == nil {
		s.data.Videos = make(map[string]models.Video)
	}
	if s.data.Comments == nil {
		s.data.Comments = make(map[string]models.Comment)
	}
	if s.data.Tweets == nil {
		s.data.Tweets = make(map[string]models.Tweet)
	}
	if s.data.Likes == nil {
		s.data.Likes = make(map[string]models.Like)
	}
	if s.data.Subscriptions == nil {
		s.data.Subscriptions = make(map[string]models.Subscription)
	}
}

func NewStorage(path string) (*Storage, error) {
	store := &Storage{filePath: path}
	if err := store.load(); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *Storage) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.filePath), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	file, err := os.Open(s.filePath)
	if errors.Is(err, os.ErrNotExist) {
		s.data = newDataset()
		return nil
	} else if err != nil {
		return fmt.Errorf("open store file: %w", err)
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	if err := decoder.Decode(&s.data); err != nil {
		if errors.Is(err, io.EOF) {
			s.data = newDataset()
			return nil
		}
		return fmt.Errorf("decode store file: %w", err)
	}

	s.ensureDatasetInitializedLocked()

	return nil
}

func (s *Storage) persistDataset(data dataset) error {
	if s.persistOverride != nil {
		if err := s.persistOverride(data); err != nil {
			return err
		}
	}

	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, "store-*.json")
	if err != nil {
		return fmt.Errorf("create temp store file: %w", err)
	}
	tmpPath := tmpFile.Name()
	success := false
	defer func() {
		if !success {
			_ = tmpFile.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	encoder := json.NewEncoder(tmpFile)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("encode store file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("flush store file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp store file: %w", err)
	}

	if err := os.Rename(tmpPath, s.filePath); err != nil {
		return fmt.Errorf("replace store file: %w", err)
	}
	success = true
	return nil
}

func cloneDataset(src dataset) dataset {
	clone := newDataset()

	for id, user := range src.Users {
		cloned := user
		if user.WatchHistory != nil {
			cloned.WatchHistory = append([]string(nil), user.WatchHistory...)
		}
		clone.Users[id] = cloned
	}
	for id, video := range src.Videos {
		clone.Videos[id] = video
	}
	for id, comment := range src.Comments {
		clone.Comments[id] = comment
	}
	for id, tweet := range src.Tweets {
		clone.Tweets[id] = tweet
	}
	for id, like := range src.Likes {
		clone.Likes[id] = like
	}
	for id, sub := range src.Subscriptions {
		clone.Subscriptions[id] = sub
	}

	return clone
}

// Ping reports whether the backing file's directory is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, err := os.Stat(filepath.Dir(s.filePath)); err != nil {
		return fmt.Errorf("stat data dir: %w", err)
	}
	return nil
}

// User operations

func normalizeUsername(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func normalizeEmail(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func (s *Storage) CreateUser(params CreateUserParams) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

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

	for _, user := range s.data.Users {
		if user.Username == username || user.Email == email {
			return models.User{}, fmt.Errorf("user with email or username %w", ErrConflict)
		}
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

	s.data.Users[id] = user
	if err := s.persistDataset(s.data); err != nil {
		delete(s.data.Users, id)
		return models.User{}, err
	}

	return user, nil
}

func (s *Storage) GetUser(id string) (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.data.Users[id]
	return user, ok
}

// FindUserByUsername looks up a user by their normalized username.
func (s *Storage) FindUserByUsername(username string) (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findUserByUsernameLocked(s.data, username)
}

func findUserByUsernameLocked(data dataset, username string) (models.User, bool) {
	normalized := normalizeUsername(username)
	for _, user := range data.Users {
		if user.Username == normalized {
			return user, true
		}
	}
	return models.User{}, false
}

// AuthenticateUser verifies credentials against a username or email
// identifier and returns the matching user on success.
func (s *Storage) AuthenticateUser(identifier, password string) (models.User, error) {
	if password == "" {
		return models.User{}, fmt.Errorf("%w: password is required", ErrValidation)
	}

	s.mu.RLock()
	normalized := strings.ToLower(strings.TrimSpace(identifier))
	var (
		match models.User
		found bool
	)
	for _, user := range s.data.Users {
		if user.Username == normalized || user.Email == normalized {
			match = user
			found = true
			break
		}
	}
	s.mu.RUnlock()

	if !found {
		return models.User{}, ErrInvalidCredentials
	}
	if err := verifyPassword(match.PasswordHash, password); err != nil {
		return models.User{}, err
	}
	return match, nil
}

// UpdateUser mutates account metadata while enforcing email uniqueness.
func (s *Storage) UpdateUser(id string, update UserUpdate) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updatedData := cloneDataset(s.data)

	user, ok := updatedData.Users[id]
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
		for existingID, existing := range updatedData.Users {
			if existingID == user.ID {
				continue
			}
			if existing.Email == email {
				return models.User{}, fmt.Errorf("email %s %w", email, ErrConflict)
			}
		}
		user.Email = email
	}

	user.UpdatedAt = time.Now().UTC()
	updatedData.Users[id] = user
	if err := s.persistDataset(updatedData); err != nil {
		return models.User{}, err
	}

	s.data = updatedData

	return user, nil
}

// SetUserAvatar replaces the stored avatar URL and returns the previous one
// so callers can release the old asset.
func (s *Storage) SetUserAvatar(id, avatarURL string) (models.User, string, error) {
	return s.setUserImage(id, avatarURL, false)
}

// SetUserCoverImage replaces the stored cover image URL and returns the
// previous one.
func (s *Storage) SetUserCoverImage(id, coverURL string) (models.User, string, error) {
	return s.setUserImage(id, coverURL, true)
}

func (s *Storage) setUserImage(id, url string, cover bool) (models.User, string, error) {
	if strings.TrimSpace(url) == "" {
		return models.User{}, "", fmt.Errorf("%w: image url is required", ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	updatedData := cloneDataset(s.data)
	user, ok := updatedData.Users[id]
	if !ok {
		return models.User{}, "", fmt.Errorf("user %s: %w", id, ErrNotFound)
	}

	var previous string
	if cover {
		previous = user.CoverImage
		user.CoverImage = url
	} else {
		previous = user.Avatar
		user.Avatar = url
	}
	user.UpdatedAt = time.Now().UTC()

	updatedData.Users[id] = user
	if err := s.persistDataset(updatedData); err != nil {
		return models.User{}, "", err
	}

	s.data = updatedData

	return user, previous, nil
}

// ChangePassword verifies the current password before storing a new hash.
func (s *Storage) ChangePassword(id, oldPassword, newPassword string) error {
	if newPassword == "" {
		return fmt.Errorf("%w: new password is required", ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	updatedData := cloneDataset(s.data)
	user, ok := updatedData.Users[id]
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
	user.PasswordHash = hashed
	user.UpdatedAt = time.Now().UTC()

	updatedData.Users[id] = user
	if err := s.persistDataset(updatedData); err != nil {
		return err
	}

	s.data = updatedData

	return nil
}

// WatchHistory returns the viewer's history as videos, most recent first.
// History entries pointing at since-deleted videos are skipped.
func (s *Storage) WatchHistory(userID string) ([]VideoSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.data.Users[userID]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}

	history := make([]VideoSummary, 0, len(user.WatchHistory))
	for _, videoID := range user.WatchHistory {
		video, ok := s.data.Videos[videoID]
		if !ok {
			continue
		}
		history = append(history, s.videoSummaryLocked(s.data, video, userID))
	}
	return history, nil
}

func hashPassword(password string) (string, error) {
	salt := make([]byte, passwordHashSaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	derived := pbkdf2.Key([]byte(password), salt, passwordHashIterations, passwordHashKeyLength, sha256.New)
	encodedSalt := base64.RawStdEncoding.EncodeToString(salt)
	encodedKey := base64.RawStdEncoding.EncodeToString(derived)
	return fmt.Sprintf("pbkdf2$sha256$%d$%s$%s", passwordHashIterations, encodedSalt, encodedKey), nil
}

func verifyPassword(encodedHash, candidate string) error {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 5 {
		return fmt.Errorf("verify password: invalid hash format")
	}
	if parts[0] != "pbkdf2" || parts[1] != "sha256" {
		return fmt.Errorf("verify password: unsupported hash identifier")
	}
	iterations, err := strconv.Atoi(parts[2])
	if err != nil || iterations <= 0 {
		return fmt.Errorf("verify password: invalid iteration count")
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[3])
	if err != nil {
		return fmt.Errorf("verify password: decode salt: %w", err)
	}
	storedKey, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return fmt.Errorf("verify password: decode hash: %w", err)
	}
	derived := pbkdf2.Key([]byte(candidate), salt, iterations, len(storedKey), sha256.New)
	if len(derived) != len(storedKey) || subtle.ConstantTimeCompare(derived, storedKey) != 1 {
		return ErrInvalidCredentials
	}
	return nil
}

func ownerSummaryLocked(data dataset, userID string) OwnerSummary {
	user, ok := data.Users[userID]
	if !ok {
		return OwnerSummary{ID: userID}
	}
	return OwnerSummary{
		ID:       user.ID,
		Username: user.Username,
		FullName: user.FullName,
		Avatar:   user.Avatar,
	}
}

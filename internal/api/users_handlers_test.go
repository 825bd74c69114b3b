package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"vidtube/internal/auth"
	"vidtube/internal/storage"
	"vidtube/internal/testsupport"
)

func TestRegisterCreatesUser(t *testing.T) {
	handler, _ := newTestHandler(t)

	req := multipartRequest(t, http.MethodPost, "/api/v1/users/register", map[string]string{
		"fullName": "Alice Example",
		"email":    "Alice@Example.com",
		"username": "Alice",
		"password": "hunter2hunter2",
	}, []formFileSpec{
		{field: "avatar", filename: "face.PNG", content: "png-bytes"},
	})
	rec := httptest.NewRecorder()
	handler.Users(rec, req)

	envelope := decodeSuccess(t, rec, http.StatusCreated)
	var user userResponse
	unmarshalData(t, envelope, &user)
	if user.Username != "alice" {
		t.Errorf("username = %q, want lowercased %q", user.Username, "alice")
	}
	if user.Email != "alice@example.com" {
		t.Errorf("email = %q, want lowercased", user.Email)
	}
	if !strings.HasPrefix(user.Avatar, "/media/") {
		t.Errorf("avatar = %q, want stored under /media/", user.Avatar)
	}
	if user.ID == "" {
		t.Error("expected generated user id")
	}
}

func TestRegisterValidation(t *testing.T) {
	handler, _ := newTestHandler(t)

	req := multipartRequest(t, http.MethodPost, "/api/v1/users/register", map[string]string{
		"fullName": "Bob",
		"email":    "not-an-email",
		"password": "secretsecret",
	}, nil)
	rec := httptest.NewRecorder()
	handler.Users(rec, req)

	envelope := decodeError(t, rec, http.StatusBadRequest)
	if envelope.Message != "validation failed" {
		t.Errorf("message = %q, want validation failed", envelope.Message)
	}
	joined := strings.Join(envelope.Errors, "; ")
	for _, want := range []string{"username is required", "email is invalid", "avatar is required"} {
		if !strings.Contains(joined, want) {
			t.Errorf("errors %v missing %q", envelope.Errors, want)
		}
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	handler, store := newTestHandler(t)
	createTestUser(t, store, "carol")

	req := multipartRequest(t, http.MethodPost, "/api/v1/users/register", map[string]string{
		"fullName": "Carol Two",
		"email":    "carol2@example.com",
		"username": "CAROL",
		"password": "secretsecret",
	}, []formFileSpec{
		{field: "avatar", filename: "face.png", content: "png-bytes"},
	})
	rec := httptest.NewRecorder()
	handler.Users(rec, req)

	decodeError(t, rec, http.StatusConflict)
}

func TestLoginSetsSessionCookie(t *testing.T) {
	handler, store := newTestHandler(t)
	createTestUser(t, store, "dave")

	req := jsonRequest(t, http.MethodPost, "/api/v1/users/login", map[string]string{
		"email":    "DAVE@example.com",
		"password": "correct horse battery",
	})
	rec := httptest.NewRecorder()
	handler.Users(rec, req)

	envelope := decodeSuccess(t, rec, http.StatusOK)
	var payload loginResponse
	unmarshalData(t, envelope, &payload)
	if payload.Token == "" {
		t.Fatal("expected session token in response")
	}
	if payload.User.Username != "dave" {
		t.Errorf("user = %q, want dave", payload.User.Username)
	}

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookieName {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatal("session cookie not set")
	}
	if cookie.Value != payload.Token {
		t.Error("cookie token differs from response token")
	}
	if !cookie.HttpOnly {
		t.Error("session cookie must be HttpOnly")
	}

	userID, _, ok, err := handler.Sessions.Validate(payload.Token)
	if err != nil || !ok {
		t.Fatalf("Validate(token) = %v, %v; want valid", ok, err)
	}
	if userID == "" {
		t.Error("validated session carries no user id")
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	handler, store := newTestHandler(t)
	createTestUser(t, store, "erin")

	req := jsonRequest(t, http.MethodPost, "/api/v1/users/login", map[string]string{
		"username": "erin",
		"password": "wrong",
	})
	rec := httptest.NewRecorder()
	handler.Users(rec, req)

	envelope := decodeError(t, rec, http.StatusUnauthorized)
	if envelope.Message != "invalid credentials" {
		t.Errorf("message = %q, want invalid credentials", envelope.Message)
	}
}

func TestLoginValidation(t *testing.T) {
	handler, _ := newTestHandler(t)

	req := jsonRequest(t, http.MethodPost, "/api/v1/users/login", map[string]string{})
	rec := httptest.NewRecorder()
	handler.Users(rec, req)

	decodeError(t, rec, http.StatusBadRequest)
}

func TestLogoutRevokesSession(t *testing.T) {
	handler, store := newTestHandler(t)
	user := createTestUser(t, store, "frank")
	token, _, err := handler.Sessions.Create(user.ID)
	if err != nil {
		t.Fatalf("Create session: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/logout", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.Users(rec, authenticate(req, user))

	decodeSuccess(t, rec, http.StatusOK)

	if _, _, ok, _ := handler.Sessions.Validate(token); ok {
		t.Error("session still valid after logout")
	}
}

func TestCurrentUserRequiresAuthentication(t *testing.T) {
	handler, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/current", nil)
	rec := httptest.NewRecorder()
	handler.Users(rec, req)

	decodeError(t, rec, http.StatusUnauthorized)
}

func TestCurrentUserReturnsProfile(t *testing.T) {
	handler, store := newTestHandler(t)
	user := createTestUser(t, store, "grace")

	req := authenticate(httptest.NewRequest(http.MethodGet, "/api/v1/users/current", nil), user)
	rec := httptest.NewRecorder()
	handler.Users(rec, req)

	envelope := decodeSuccess(t, rec, http.StatusOK)
	var profile userResponse
	unmarshalData(t, envelope, &profile)
	if profile.ID != user.ID {
		t.Errorf("id = %q, want %q", profile.ID, user.ID)
	}
}

func TestAuthenticateRequest(t *testing.T) {
	store, repoErr := storage.NewStorage(t.TempDir() + "/store.json")
	if repoErr != nil {
		t.Fatalf("NewStorage: %v", repoErr)
	}
	sessionStore := testsupport.NewSessionStoreStub()
	sessions := auth.NewSessionManager(time.Hour, auth.WithStore(sessionStore))
	handler := NewHandler(store, sessions, nil)
	user := createTestUser(t, store, "henry")

	sessionStore.Seed("valid-token", user.ID, time.Now().Add(time.Hour))
	sessionStore.Seed("stale-token", user.ID, time.Now().Add(-time.Minute))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/current", nil)
	req.Header.Set("Authorization", "Bearer valid-token")
	got, err := handler.AuthenticateRequest(req)
	if err != nil {
		t.Fatalf("AuthenticateRequest(valid) error: %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("user id = %q, want %q", got.ID, user.ID)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/users/current", nil)
	req.Header.Set("Authorization", "Bearer stale-token")
	if _, err := handler.AuthenticateRequest(req); err == nil {
		t.Error("expected error for expired session")
	}
	if _, ok, _ := sessionStore.Get("stale-token"); ok {
		t.Error("expired session should be deleted on validation")
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/users/current", nil)
	if _, err := handler.AuthenticateRequest(req); err == nil {
		t.Error("expected error when no token is supplied")
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/users/current", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "valid-token"})
	if _, err := handler.AuthenticateRequest(req); err != nil {
		t.Errorf("cookie token rejected: %v", err)
	}
}

func TestUpdateAccount(t *testing.T) {
	handler, store := newTestHandler(t)
	user := createTestUser(t, store, "iris")
	createTestUser(t, store, "judy")

	newName := "Iris Renamed"
	req := authenticate(jsonRequest(t, http.MethodPatch, "/api/v1/users/update-account", map[string]string{
		"fullName": newName,
	}), user)
	rec := httptest.NewRecorder()
	handler.Users(rec, req)

	envelope := decodeSuccess(t, rec, http.StatusOK)
	var updated userResponse
	unmarshalData(t, envelope, &updated)
	if updated.FullName != newName {
		t.Errorf("fullName = %q, want %q", updated.FullName, newName)
	}

	// No fields at all is a validation error.
	req = authenticate(jsonRequest(t, http.MethodPatch, "/api/v1/users/update-account", map[string]string{}), user)
	rec = httptest.NewRecorder()
	handler.Users(rec, req)
	decodeError(t, rec, http.StatusBadRequest)

	// Taking another account's email is a conflict.
	req = authenticate(jsonRequest(t, http.MethodPatch, "/api/v1/users/update-account", map[string]string{
		"email": "judy@example.com",
	}), user)
	rec = httptest.NewRecorder()
	handler.Users(rec, req)
	decodeError(t, rec, http.StatusConflict)
}

func TestChangePassword(t *testing.T) {
	handler, store := newTestHandler(t)
	user := createTestUser(t, store, "kate")

	req := authenticate(jsonRequest(t, http.MethodPost, "/api/v1/users/change-password", map[string]string{
		"oldPassword": "correct horse battery",
		"newPassword": "even better secret",
	}), user)
	rec := httptest.NewRecorder()
	handler.Users(rec, req)
	decodeSuccess(t, rec, http.StatusOK)

	if _, err := store.AuthenticateUser("kate", "even better secret"); err != nil {
		t.Fatalf("new password rejected: %v", err)
	}

	req = authenticate(jsonRequest(t, http.MethodPost, "/api/v1/users/change-password", map[string]string{
		"oldPassword": "correct horse battery",
		"newPassword": "another",
	}), user)
	rec = httptest.NewRecorder()
	handler.Users(rec, req)
	decodeError(t, rec, http.StatusUnauthorized)
}

func TestUpdateAvatarReplacesPrevious(t *testing.T) {
	handler, store := newTestHandler(t)
	user := createTestUser(t, store, "liam")

	req := multipartRequest(t, http.MethodPatch, "/api/v1/users/avatar", nil, []formFileSpec{
		{field: "avatar", filename: "new-face.jpg", content: "jpg-bytes"},
	})
	rec := httptest.NewRecorder()
	handler.Users(rec, authenticate(req, user))

	envelope := decodeSuccess(t, rec, http.StatusOK)
	var updated userResponse
	unmarshalData(t, envelope, &updated)
	if updated.Avatar == user.Avatar {
		t.Error("avatar URL unchanged after upload")
	}
	if !strings.HasSuffix(updated.Avatar, ".jpg") {
		t.Errorf("avatar = %q, want .jpg asset", updated.Avatar)
	}
}

func TestWatchHistoryEndpoint(t *testing.T) {
	handler, store := newTestHandler(t)
	owner := createTestUser(t, store, "mia")
	viewer := createTestUser(t, store, "noah")
	first := createTestVideo(t, store, owner.ID, "first")
	second := createTestVideo(t, store, owner.ID, "second")
	if err := store.RecordView(first.ID, viewer.ID); err != nil {
		t.Fatalf("RecordView: %v", err)
	}
	if err := store.RecordView(second.ID, viewer.ID); err != nil {
		t.Fatalf("RecordView: %v", err)
	}

	req := authenticate(httptest.NewRequest(http.MethodGet, "/api/v1/users/history", nil), viewer)
	rec := httptest.NewRecorder()
	handler.Users(rec, req)

	envelope := decodeSuccess(t, rec, http.StatusOK)
	var history []storage.VideoSummary
	unmarshalData(t, envelope, &history)
	if len(history) != 2 {
		t.Fatalf("history length = %d, want 2", len(history))
	}
	if history[0].ID != second.ID {
		t.Errorf("most recent watch = %q, want %q", history[0].ID, second.ID)
	}
}

func TestChannelProfileEndpoint(t *testing.T) {
	handler, store := newTestHandler(t)
	owner := createTestUser(t, store, "olive")
	viewer := createTestUser(t, store, "pete")
	if _, err := store.ToggleSubscription(viewer.ID, owner.ID); err != nil {
		t.Fatalf("ToggleSubscription: %v", err)
	}

	req := authenticate(httptest.NewRequest(http.MethodGet, "/api/v1/users/c/OLIVE", nil), viewer)
	rec := httptest.NewRecorder()
	handler.Users(rec, req)

	envelope := decodeSuccess(t, rec, http.StatusOK)
	var profile storage.ChannelProfile
	unmarshalData(t, envelope, &profile)
	if profile.Username != "olive" {
		t.Errorf("username = %q, want olive", profile.Username)
	}
	if !profile.IsSubscribed {
		t.Error("viewer subscription flag not set")
	}
	if profile.SubscriberCount != 1 {
		t.Errorf("subscriberCount = %d, want 1", profile.SubscriberCount)
	}

	rec = httptest.NewRecorder()
	handler.Users(rec, httptest.NewRequest(http.MethodGet, "/api/v1/users/c/ghost", nil))
	decodeError(t, rec, http.StatusNotFound)
}

func TestUsersUnknownRoute(t *testing.T) {
	handler, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	handler.Users(rec, httptest.NewRequest(http.MethodGet, "/api/v1/users/nope", nil))
	decodeError(t, rec, http.StatusNotFound)
}

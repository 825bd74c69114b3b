package api

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"vidtube/internal/auth"
	"vidtube/internal/media"
	"vidtube/internal/models"
	"vidtube/internal/storage"
)

func newTestHandler(t *testing.T) (*Handler, *storage.Storage) {
	t.Helper()
	store, err := storage.NewStorage(filepath.Join(t.TempDir(), "store.json"))
	if err != nil {
		t.Fatalf("NewStorage: %v", err)
	}
	library, err := media.NewLibrary(t.TempDir(), "/media", media.WithProbe(func(string) (float64, error) {
		return 12.5, nil
	}))
	if err != nil {
		t.Fatalf("NewLibrary: %v", err)
	}
	sessions := auth.NewSessionManager(time.Hour)
	return NewHandler(store, sessions, library), store
}

func createTestUser(t *testing.T, store *storage.Storage, username string) models.User {
	t.Helper()
	user, err := store.CreateUser(storage.CreateUserParams{
		Username: username,
		Email:    username + "@example.com",
		FullName: "Test " + username,
		Password: "correct horse battery",
		Avatar:   "/media/" + username + ".png",
	})
	if err != nil {
		t.Fatalf("CreateUser(%s): %v", username, err)
	}
	return user
}

func createTestVideo(t *testing.T, store *storage.Storage, ownerID, title string) models.Video {
	t.Helper()
	video, err := store.CreateVideo(storage.CreateVideoParams{
		OwnerID:         ownerID,
		Title:           title,
		Description:     "about " + title,
		VideoFile:       "/media/" + title + ".mp4",
		Thumbnail:       "/media/" + title + ".jpg",
		DurationSeconds: 120,
	})
	if err != nil {
		t.Fatalf("CreateVideo(%s): %v", title, err)
	}
	return video
}

// authenticate attaches the user to the request context the way the server's
// auth middleware does.
func authenticate(r *http.Request, user models.User) *http.Request {
	return r.WithContext(ContextWithUser(r.Context(), user))
}

func jsonRequest(t *testing.T, method, target string, payload interface{}) *http.Request {
	t.Helper()
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Content-Type", "application/json")
	return req
}

type formFileSpec struct {
	field    string
	filename string
	content  string
}

func multipartRequest(t *testing.T, method, target string, fields map[string]string, files []formFileSpec) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			t.Fatalf("write field %s: %v", name, err)
		}
	}
	for _, file := range files {
		part, err := writer.CreateFormFile(file.field, file.filename)
		if err != nil {
			t.Fatalf("create form file %s: %v", file.field, err)
		}
		if _, err := io.WriteString(part, file.content); err != nil {
			t.Fatalf("write form file %s: %v", file.field, err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

type successEnvelope struct {
	Status  int             `json:"status"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Success bool            `json:"success"`
}

type errorEnvelope struct {
	Status  int      `json:"status"`
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Errors  []string `json:"errors"`
}

func decodeSuccess(t *testing.T, rec *httptest.ResponseRecorder, wantStatus int) successEnvelope {
	t.Helper()
	if rec.Code != wantStatus {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, wantStatus, rec.Body.String())
	}
	var envelope successEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode success envelope: %v", err)
	}
	if !envelope.Success {
		t.Fatalf("success = false, want true")
	}
	if envelope.Status != wantStatus {
		t.Fatalf("envelope status = %d, want %d", envelope.Status, wantStatus)
	}
	return envelope
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder, wantStatus int) errorEnvelope {
	t.Helper()
	if rec.Code != wantStatus {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, wantStatus, rec.Body.String())
	}
	var envelope errorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	if envelope.Success {
		t.Fatalf("success = true, want false")
	}
	if envelope.Errors == nil {
		t.Fatalf("errors array missing from failure envelope")
	}
	return envelope
}

func unmarshalData(t *testing.T, envelope successEnvelope, dest interface{}) {
	t.Helper()
	if err := json.Unmarshal(envelope.Data, dest); err != nil {
		t.Fatalf("decode envelope data: %v", err)
	}
}

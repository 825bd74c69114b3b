package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"vidtube/internal/auth"
	"vidtube/internal/media"
	"vidtube/internal/storage"
)

const sessionCookieName = "vidtube_session"

// Handler owns the HTTP endpoints and delegates persistence to the
// repository, session state to the session manager, and uploaded assets to
// the media library.
type Handler struct {
	Store    storage.Repository
	Sessions *auth.SessionManager
	Media    *media.Library
}

func NewHandler(store storage.Repository, sessions *auth.SessionManager, library *media.Library) *Handler {
	if sessions == nil {
		sessions = auth.NewSessionManager(24 * time.Hour)
	}
	return &Handler{Store: store, Sessions: sessions, Media: library}
}

func (h *Handler) sessionManager() *auth.SessionManager {
	if h.Sessions == nil {
		h.Sessions = auth.NewSessionManager(24 * time.Hour)
	}
	return h.Sessions
}

// apiResponse is the success envelope every endpoint returns.
type apiResponse struct {
	Status  int         `json:"status"`
	Data    interface{} `json:"data"`
	Message string      `json:"message"`
	Success bool        `json:"success"`
}

// apiError is the failure envelope. Errors carries per-field validation
// messages when present.
type apiError struct {
	Status  int      `json:"status"`
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Errors  []string `json:"errors"`
}

func writeEnvelope(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeSuccess(w http.ResponseWriter, status int, data interface{}, message string) {
	writeEnvelope(w, status, apiResponse{
		Status:  status,
		Data:    data,
		Message: message,
		Success: true,
	})
}

func writeError(w http.ResponseWriter, status int, message string, fieldErrors ...string) {
	if fieldErrors == nil {
		fieldErrors = []string{}
	}
	writeEnvelope(w, status, apiError{
		Status:  status,
		Success: false,
		Message: message,
		Errors:  fieldErrors,
	})
}

// WriteError emits the standard error envelope. Middleware outside this
// package uses it so rejected requests look the same as handler errors.
func WriteError(w http.ResponseWriter, status int, message string) {
	writeError(w, status, message)
}

// writeStorageError maps repository and media sentinels onto HTTP statuses.
func writeStorageError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, storage.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, storage.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, media.ErrUnsupportedType):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, media.ErrProbe):
		writeError(w, http.StatusBadGateway, "media processing failed")
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func decodeJSON(r *http.Request, dest interface{}) error {
	if r.Body == nil {
		return errors.New("request body is required")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.UseNumber()
	decoder.DisallowUnknownFields()
	return decoder.Decode(dest)
}

// requireValidID rejects identifiers that cannot have been issued by the
// store before any lookup happens.
func requireValidID(w http.ResponseWriter, id, label string) bool {
	if !storage.IsValidID(id) {
		writeError(w, http.StatusBadRequest, "invalid "+label, "invalid "+label)
		return false
	}
	return true
}

func parsePagination(r *http.Request) (page, limit int) {
	query := r.URL.Query()
	page, _ = strconv.Atoi(query.Get("page"))
	limit, _ = strconv.Atoi(query.Get("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	return page, limit
}

// ExtractToken pulls the session token from the Authorization header or the
// session cookie.
func ExtractToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

func isSecureRequest(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

func setSessionCookie(w http.ResponseWriter, r *http.Request, token string, expires time.Time) {
	if token == "" {
		return
	}
	maxAge := int(time.Until(expires).Seconds())
	if maxAge < 0 {
		maxAge = 0
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires.UTC(),
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   isSecureRequest(r),
		SameSite: http.SameSiteStrictMode,
	})
}

func clearSessionCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0).UTC(),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   isSecureRequest(r),
		SameSite: http.SameSiteStrictMode,
	})
}

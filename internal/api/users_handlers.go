package api

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"vidtube/internal/models"
	"vidtube/internal/observability/metrics"
	"vidtube/internal/storage"
)

const maxImageUploadBytes = 32 << 20

type userResponse struct {
	ID         string    `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	FullName   string    `json:"fullName"`
	Avatar     string    `json:"avatar,omitempty"`
	CoverImage string    `json:"coverImage,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func newUserResponse(user models.User) userResponse {
	return userResponse{
		ID:         user.ID,
		Username:   user.Username,
		Email:      user.Email,
		FullName:   user.FullName,
		Avatar:     user.Avatar,
		CoverImage: user.CoverImage,
		CreatedAt:  user.CreatedAt,
		UpdatedAt:  user.UpdatedAt,
	}
}

// Users routes everything under /api/v1/users/.
func (h *Handler) Users(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/users"), "/")
	parts := strings.Split(rest, "/")

	switch {
	case rest == "register" && r.Method == http.MethodPost:
		h.register(w, r)
	case rest == "login" && r.Method == http.MethodPost:
		h.login(w, r)
	case rest == "logout" && r.Method == http.MethodPost:
		h.logout(w, r)
	case rest == "current" && r.Method == http.MethodGet:
		h.currentUser(w, r)
	case rest == "update-account" && r.Method == http.MethodPatch:
		h.updateAccount(w, r)
	case rest == "avatar" && r.Method == http.MethodPatch:
		h.updateUserImage(w, r, false)
	case rest == "cover" && r.Method == http.MethodPatch:
		h.updateUserImage(w, r, true)
	case rest == "change-password" && r.Method == http.MethodPost:
		h.changePassword(w, r)
	case rest == "history" && r.Method == http.MethodGet:
		h.watchHistory(w, r)
	case len(parts) == 2 && parts[0] == "c" && r.Method == http.MethodGet:
		h.channelProfile(w, r, parts[1])
	case len(parts) == 2 && parts[1] == "tweets" && r.Method == http.MethodGet:
		h.userTweets(w, r, parts[0])
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func formFile(r *http.Request, field string) (multipart.File, *multipart.FileHeader, bool) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, nil, false
	}
	return file, header, true
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxImageUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	fullName := strings.TrimSpace(r.FormValue("fullName"))
	email := strings.TrimSpace(r.FormValue("email"))
	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")

	fieldErrors := make([]string, 0, 4)
	for field, value := range map[string]string{
		"fullName": fullName,
		"email":    email,
		"username": username,
		"password": password,
	} {
		if value == "" {
			fieldErrors = append(fieldErrors, field+" is required")
		}
	}
	if email != "" && !strings.Contains(email, "@") {
		fieldErrors = append(fieldErrors, "email is invalid")
	}
	avatarFile, avatarHeader, hasAvatar := formFile(r, "avatar")
	if !hasAvatar {
		fieldErrors = append(fieldErrors, "avatar is required")
	} else {
		defer avatarFile.Close()
	}
	if len(fieldErrors) > 0 {
		writeError(w, http.StatusBadRequest, "validation failed", fieldErrors...)
		return
	}

	avatar, err := h.Media.SaveImage(avatarFile, avatarHeader.Filename)
	if err != nil {
		writeStorageError(w, err)
		return
	}

	var coverURL string
	if coverFile, coverHeader, ok := formFile(r, "coverImage"); ok {
		defer coverFile.Close()
		cover, err := h.Media.SaveImage(coverFile, coverHeader.Filename)
		if err != nil {
			_ = h.Media.Remove(avatar.URL)
			writeStorageError(w, err)
			return
		}
		coverURL = cover.URL
	}

	user, err := h.Store.CreateUser(storage.CreateUserParams{
		Username:   username,
		Email:      email,
		FullName:   fullName,
		Password:   password,
		Avatar:     avatar.URL,
		CoverImage: coverURL,
	})
	if err != nil {
		_ = h.Media.Remove(avatar.URL)
		if coverURL != "" {
			_ = h.Media.Remove(coverURL)
		}
		writeStorageError(w, err)
		return
	}

	metrics.ObserveAuthEvent("register")
	writeSuccess(w, http.StatusCreated, newUserResponse(user), "user registered successfully")
}

type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	User      userResponse `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	identifier := strings.TrimSpace(req.Username)
	if identifier == "" {
		identifier = strings.TrimSpace(req.Email)
	}
	if identifier == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "validation failed", "username or email is required", "password is required")
		return
	}

	user, err := h.Store.AuthenticateUser(identifier, req.Password)
	if err != nil {
		metrics.ObserveAuthEvent("login_failed")
		writeStorageError(w, err)
		return
	}

	token, expiresAt, err := h.sessionManager().Create(user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not create session")
		return
	}
	setSessionCookie(w, r, token, expiresAt)

	metrics.ObserveAuthEvent("login")
	writeSuccess(w, http.StatusOK, loginResponse{
		User:      newUserResponse(user),
		Token:     token,
		ExpiresAt: expiresAt.UTC(),
	}, "logged in successfully")
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireAuthenticatedUser(w, r); !ok {
		return
	}
	if token := ExtractToken(r); token != "" {
		if err := h.sessionManager().Revoke(token); err != nil {
			writeError(w, http.StatusInternalServerError, "could not revoke session")
			return
		}
	}
	clearSessionCookie(w, r)
	metrics.ObserveAuthEvent("logout")
	writeSuccess(w, http.StatusOK, nil, "logged out successfully")
}

func (h *Handler) currentUser(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	writeSuccess(w, http.StatusOK, newUserResponse(user), "current user fetched successfully")
}

type updateAccountRequest struct {
	FullName *string `json:"fullName"`
	Email    *string `json:"email"`
}

func (h *Handler) updateAccount(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	var req updateAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if req.FullName == nil && req.Email == nil {
		writeError(w, http.StatusBadRequest, "validation failed", "at least one of fullName or email is required")
		return
	}

	updated, err := h.Store.UpdateUser(user.ID, storage.UserUpdate{
		FullName: req.FullName,
		Email:    req.Email,
	})
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, newUserResponse(updated), "account updated successfully")
}

func (h *Handler) updateUserImage(w http.ResponseWriter, r *http.Request, cover bool) {
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	if err := r.ParseMultipartForm(maxImageUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	field := "avatar"
	if cover {
		field = "coverImage"
	}
	file, header, hasFile := formFile(r, field)
	if !hasFile {
		writeError(w, http.StatusBadRequest, "validation failed", field+" file is required")
		return
	}
	defer file.Close()

	saved, err := h.Media.SaveImage(file, header.Filename)
	if err != nil {
		writeStorageError(w, err)
		return
	}

	var (
		updated  models.User
		previous string
	)
	if cover {
		updated, previous, err = h.Store.SetUserCoverImage(user.ID, saved.URL)
	} else {
		updated, previous, err = h.Store.SetUserAvatar(user.ID, saved.URL)
	}
	if err != nil {
		_ = h.Media.Remove(saved.URL)
		writeStorageError(w, err)
		return
	}
	if previous != "" {
		_ = h.Media.Remove(previous)
	}

	writeSuccess(w, http.StatusOK, newUserResponse(updated), fmt.Sprintf("%s updated successfully", field))
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	fieldErrors := make([]string, 0, 2)
	if req.OldPassword == "" {
		fieldErrors = append(fieldErrors, "oldPassword is required")
	}
	if req.NewPassword == "" {
		fieldErrors = append(fieldErrors, "newPassword is required")
	}
	if len(fieldErrors) > 0 {
		writeError(w, http.StatusBadRequest, "validation failed", fieldErrors...)
		return
	}

	if err := h.Store.ChangePassword(user.ID, req.OldPassword, req.NewPassword); err != nil {
		writeStorageError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, nil, "password changed successfully")
}

func (h *Handler) watchHistory(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	history, err := h.Store.WatchHistory(user.ID)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, history, "watch history fetched successfully")
}

func (h *Handler) channelProfile(w http.ResponseWriter, r *http.Request, username string) {
	if strings.TrimSpace(username) == "" {
		writeError(w, http.StatusBadRequest, "validation failed", "username is required")
		return
	}
	viewerID := ""
	if viewer, ok := UserFromContext(r.Context()); ok {
		viewerID = viewer.ID
	}
	profile, err := h.Store.GetChannelProfile(username, viewerID)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, profile, "channel profile fetched successfully")
}

func (h *Handler) userTweets(w http.ResponseWriter, r *http.Request, userID string) {
	if !requireValidID(w, userID, "user id") {
		return
	}
	viewerID := ""
	if viewer, ok := UserFromContext(r.Context()); ok {
		viewerID = viewer.ID
	}
	tweets, err := h.Store.ListUserTweets(userID, viewerID)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, tweets, "tweets fetched successfully")
}

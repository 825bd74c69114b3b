package api

import (
	"net/http"
	"strings"

	"vidtube/internal/models"
	"vidtube/internal/observability/metrics"
	"vidtube/internal/storage"
)

var likeTargetPaths = map[string]models.LikeTarget{
	"v": models.LikeTargetVideo,
	"c": models.LikeTargetComment,
	"t": models.LikeTargetTweet,
}

// Likes routes POST /api/v1/likes/toggle/{v|c|t}/{id} and GET /api/v1/likes/videos.
func (h *Handler) Likes(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/likes"), "/")
	parts := strings.Split(rest, "/")

	switch {
	case rest == "videos" && r.Method == http.MethodGet:
		h.likedVideos(w, r)
	case len(parts) == 3 && parts[0] == "toggle" && r.Method == http.MethodPost:
		h.toggleLike(w, r, parts[1], parts[2])
	case rest == "videos" || (len(parts) == 3 && parts[0] == "toggle"):
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (h *Handler) toggleLike(w http.ResponseWriter, r *http.Request, targetPath, targetID string) {
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	target, ok := likeTargetPaths[targetPath]
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if !requireValidID(w, targetID, string(target)+" id") {
		return
	}

	liked, err := h.Store.ToggleLike(user.ID, target, targetID)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	message := string(target) + " unliked successfully"
	if liked {
		message = string(target) + " liked successfully"
	}
	metrics.ObserveEngagement("like_toggle")
	writeSuccess(w, http.StatusOK, map[string]bool{"liked": liked}, message)
}

func (h *Handler) likedVideos(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}

	videos, err := h.Store.ListLikedVideos(user.ID)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string][]storage.VideoSummary{"videos": videos}, "liked videos fetched successfully")
}

package api

import (
	"net/http"
	"strings"

	"vidtube/internal/storage"
)

// Dashboard routes GET /api/v1/dashboard/stats and GET /api/v1/dashboard/videos.
// Both operate on the authenticated user's own channel.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/dashboard"), "/")

	switch {
	case rest == "stats" && r.Method == http.MethodGet:
		h.channelStats(w, r)
	case rest == "videos" && r.Method == http.MethodGet:
		h.channelVideos(w, r)
	case rest == "stats" || rest == "videos":
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (h *Handler) channelStats(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}

	stats, err := h.Store.ChannelStats(user.ID)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, stats, "channel stats fetched successfully")
}

func (h *Handler) channelVideos(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	page, limit := parsePagination(r)

	videos, pagination, err := h.Store.ListVideos(storage.ListVideosOptions{
		OwnerID:            user.ID,
		ViewerID:           user.ID,
		IncludeUnpublished: true,
		SortBy:             storage.VideoSortCreatedAt,
		Page:               page,
		Limit:              limit,
	})
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, videoListResponse{Videos: videos, Pagination: pagination}, "channel videos fetched successfully")
}

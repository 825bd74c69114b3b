package api

import (
	"net/http"
	"strings"

	"golang.org/x/sync/errgroup"

	"vidtube/internal/media"
	"vidtube/internal/observability/metrics"
	"vidtube/internal/storage"
)

const maxVideoUploadBytes = 1 << 30

type videoListResponse struct {
	Videos     []storage.VideoSummary `json:"videos"`
	Pagination storage.Pagination     `json:"pagination"`
}

// Videos routes everything under /api/v1/videos/.
func (h *Handler) Videos(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/videos"), "/")
	parts := strings.Split(rest, "/")

	switch {
	case rest == "" && r.Method == http.MethodGet:
		h.listVideos(w, r)
	case rest == "" && r.Method == http.MethodPost:
		h.uploadVideo(w, r)
	case len(parts) == 3 && parts[0] == "toggle" && parts[1] == "publish" && r.Method == http.MethodPatch:
		h.togglePublish(w, r, parts[2])
	case len(parts) == 2 && parts[1] == "comments" && r.Method == http.MethodGet:
		h.listComments(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "comments" && r.Method == http.MethodPost:
		h.createComment(w, r, parts[0])
	case len(parts) == 1 && parts[0] != "" && r.Method == http.MethodGet:
		h.getVideo(w, r, parts[0])
	case len(parts) == 1 && parts[0] != "" && r.Method == http.MethodPatch:
		h.updateVideo(w, r, parts[0])
	case len(parts) == 1 && parts[0] != "" && r.Method == http.MethodDelete:
		h.deleteVideo(w, r, parts[0])
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (h *Handler) listVideos(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	page, limit := parsePagination(r)

	ownerID := strings.TrimSpace(query.Get("userId"))
	if ownerID != "" && !storage.IsValidID(ownerID) {
		writeError(w, http.StatusBadRequest, "invalid user id", "invalid user id")
		return
	}

	viewerID := ""
	if viewer, ok := UserFromContext(r.Context()); ok {
		viewerID = viewer.ID
	}

	videos, pagination, err := h.Store.ListVideos(storage.ListVideosOptions{
		Query:         query.Get("query"),
		OwnerID:       ownerID,
		SortBy:        query.Get("sortBy"),
		SortAscending: strings.EqualFold(query.Get("sortType"), "asc"),
		ViewerID:      viewerID,
		Page:          page,
		Limit:         limit,
	})
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, videoListResponse{Videos: videos, Pagination: pagination}, "videos fetched successfully")
}

func (h *Handler) uploadVideo(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	if err := r.ParseMultipartForm(maxVideoUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	description := strings.TrimSpace(r.FormValue("description"))

	fieldErrors := make([]string, 0, 3)
	if title == "" {
		fieldErrors = append(fieldErrors, "title is required")
	}
	videoFile, videoHeader, hasVideo := formFile(r, "videoFile")
	if !hasVideo {
		fieldErrors = append(fieldErrors, "videoFile is required")
	} else {
		defer videoFile.Close()
	}
	thumbFile, thumbHeader, hasThumb := formFile(r, "thumbnail")
	if !hasThumb {
		fieldErrors = append(fieldErrors, "thumbnail is required")
	} else {
		defer thumbFile.Close()
	}
	if len(fieldErrors) > 0 {
		writeError(w, http.StatusBadRequest, "validation failed", fieldErrors...)
		return
	}

	recorder := metrics.Default()
	recorder.UploadStarted()

	// The video probe dominates upload latency; store both assets in
	// parallel.
	var (
		savedVideo media.SavedFile
		savedThumb media.SavedFile
		duration   float64
	)
	var group errgroup.Group
	group.Go(func() error {
		var err error
		savedVideo, duration, err = h.Media.SaveVideo(videoFile, videoHeader.Filename)
		return err
	})
	group.Go(func() error {
		var err error
		savedThumb, err = h.Media.SaveImage(thumbFile, thumbHeader.Filename)
		return err
	})
	if err := group.Wait(); err != nil {
		recorder.UploadFinished(0)
		if savedVideo.URL != "" {
			_ = h.Media.Remove(savedVideo.URL)
		}
		if savedThumb.URL != "" {
			_ = h.Media.Remove(savedThumb.URL)
		}
		writeStorageError(w, err)
		return
	}
	recorder.UploadFinished(savedVideo.Size + savedThumb.Size)

	video, err := h.Store.CreateVideo(storage.CreateVideoParams{
		OwnerID:         user.ID,
		Title:           title,
		Description:     description,
		VideoFile:       savedVideo.URL,
		Thumbnail:       savedThumb.URL,
		DurationSeconds: duration,
	})
	if err != nil {
		_ = h.Media.Remove(savedVideo.URL)
		_ = h.Media.Remove(savedThumb.URL)
		writeStorageError(w, err)
		return
	}

	metrics.ObserveVideoEvent("upload")
	writeSuccess(w, http.StatusCreated, video, "video uploaded successfully")
}

func (h *Handler) getVideo(w http.ResponseWriter, r *http.Request, id string) {
	if !requireValidID(w, id, "video id") {
		return
	}
	viewerID := ""
	if viewer, ok := UserFromContext(r.Context()); ok {
		viewerID = viewer.ID
	}

	detail, err := h.Store.GetVideoDetail(id, viewerID)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	// Unpublished videos stay visible to their owner only.
	if !detail.IsPublished && viewerID != detail.OwnerID {
		writeError(w, http.StatusNotFound, "video "+id+": not found")
		return
	}

	if err := h.Store.RecordView(id, viewerID); err != nil {
		writeStorageError(w, err)
		return
	}
	detail.Views++

	metrics.ObserveVideoEvent("view")
	writeSuccess(w, http.StatusOK, detail, "video fetched successfully")
}

type updateVideoRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

func (h *Handler) updateVideo(w http.ResponseWriter, r *http.Request, id string) {
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	if !requireValidID(w, id, "video id") {
		return
	}
	video, exists := h.Store.GetVideo(id)
	if !exists {
		writeError(w, http.StatusNotFound, "video "+id+": not found")
		return
	}
	if !requireOwner(w, user, video.OwnerID, "video") {
		return
	}

	update := storage.VideoUpdate{}
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxImageUploadBytes); err != nil {
			writeError(w, http.StatusBadRequest, "invalid multipart form")
			return
		}
		if title := r.FormValue("title"); title != "" {
			update.Title = &title
		}
		if r.Form.Has("description") {
			description := r.FormValue("description")
			update.Description = &description
		}
		if thumbFile, thumbHeader, hasThumb := formFile(r, "thumbnail"); hasThumb {
			defer thumbFile.Close()
			saved, err := h.Media.SaveImage(thumbFile, thumbHeader.Filename)
			if err != nil {
				writeStorageError(w, err)
				return
			}
			update.Thumbnail = &saved.URL
		}
	} else {
		var req updateVideoRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request payload")
			return
		}
		update.Title = req.Title
		update.Description = req.Description
	}

	if update.Title == nil && update.Description == nil && update.Thumbnail == nil {
		writeError(w, http.StatusBadRequest, "validation failed", "at least one field is required")
		return
	}

	previousThumbnail := video.Thumbnail
	updated, err := h.Store.UpdateVideo(id, update)
	if err != nil {
		if update.Thumbnail != nil {
			_ = h.Media.Remove(*update.Thumbnail)
		}
		writeStorageError(w, err)
		return
	}
	if update.Thumbnail != nil && previousThumbnail != "" {
		_ = h.Media.Remove(previousThumbnail)
	}

	writeSuccess(w, http.StatusOK, updated, "video updated successfully")
}

func (h *Handler) deleteVideo(w http.ResponseWriter, r *http.Request, id string) {
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	if !requireValidID(w, id, "video id") {
		return
	}
	video, exists := h.Store.GetVideo(id)
	if !exists {
		writeError(w, http.StatusNotFound, "video "+id+": not found")
		return
	}
	if !requireOwner(w, user, video.OwnerID, "video") {
		return
	}

	if err := h.Store.DeleteVideo(id); err != nil {
		writeStorageError(w, err)
		return
	}
	_ = h.Media.Remove(video.VideoFile)
	_ = h.Media.Remove(video.Thumbnail)

	metrics.ObserveVideoEvent("delete")
	writeSuccess(w, http.StatusOK, nil, "video deleted successfully")
}

func (h *Handler) togglePublish(w http.ResponseWriter, r *http.Request, id string) {
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	if !requireValidID(w, id, "video id") {
		return
	}
	video, exists := h.Store.GetVideo(id)
	if !exists {
		writeError(w, http.StatusNotFound, "video "+id+": not found")
		return
	}
	if !requireOwner(w, user, video.OwnerID, "video") {
		return
	}

	updated, err := h.Store.TogglePublish(id)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	metrics.ObserveVideoEvent("publish_toggle")
	writeSuccess(w, http.StatusOK, updated, "publish status toggled successfully")
}

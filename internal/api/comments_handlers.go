package api

import (
	"net/http"
	"strings"

	"vidtube/internal/observability/metrics"
	"vidtube/internal/storage"
)

type commentListResponse struct {
	Comments   []storage.CommentView `json:"comments"`
	Pagination storage.Pagination    `json:"pagination"`
}

func (h *Handler) listComments(w http.ResponseWriter, r *http.Request, videoID string) {
	if !requireValidID(w, videoID, "video id") {
		return
	}
	viewerID := ""
	if viewer, ok := UserFromContext(r.Context()); ok {
		viewerID = viewer.ID
	}
	page, limit := parsePagination(r)

	comments, pagination, err := h.Store.ListComments(videoID, viewerID, page, limit)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, commentListResponse{Comments: comments, Pagination: pagination}, "comments fetched successfully")
}

type commentRequest struct {
	Content string `json:"content"`
}

func (h *Handler) createComment(w http.ResponseWriter, r *http.Request, videoID string) {
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	if !requireValidID(w, videoID, "video id") {
		return
	}
	var req commentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeError(w, http.StatusBadRequest, "validation failed", "content is required")
		return
	}

	comment, err := h.Store.CreateComment(videoID, user.ID, req.Content)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	metrics.ObserveEngagement("comment")
	writeSuccess(w, http.StatusCreated, comment, "comment added successfully")
}

// Comments routes PATCH/DELETE under /api/v1/comments/{id}.
func (h *Handler) Comments(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/comments"), "/")
	if rest == "" || strings.Contains(rest, "/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	switch r.Method {
	case http.MethodPatch:
		h.updateComment(w, r, rest)
	case http.MethodDelete:
		h.deleteComment(w, r, rest)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *Handler) updateComment(w http.ResponseWriter, r *http.Request, id string) {
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	if !requireValidID(w, id, "comment id") {
		return
	}
	comment, exists := h.Store.GetComment(id)
	if !exists {
		writeError(w, http.StatusNotFound, "comment "+id+": not found")
		return
	}
	if !requireOwner(w, user, comment.OwnerID, "comment") {
		return
	}

	var req commentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeError(w, http.StatusBadRequest, "validation failed", "content is required")
		return
	}

	updated, err := h.Store.UpdateComment(id, req.Content)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, updated, "comment updated successfully")
}

func (h *Handler) deleteComment(w http.ResponseWriter, r *http.Request, id string) {
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	if !requireValidID(w, id, "comment id") {
		return
	}
	comment, exists := h.Store.GetComment(id)
	if !exists {
		writeError(w, http.StatusNotFound, "comment "+id+": not found")
		return
	}
	if !requireOwner(w, user, comment.OwnerID, "comment") {
		return
	}

	if err := h.Store.DeleteComment(id); err != nil {
		writeStorageError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, nil, "comment deleted successfully")
}

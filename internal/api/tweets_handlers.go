package api

import (
	"net/http"
	"strings"

	"vidtube/internal/observability/metrics"
)

type tweetRequest struct {
	Content string `json:"content"`
}

// Tweets routes POST /api/v1/tweets and PATCH/DELETE /api/v1/tweets/{id}.
// Listing a user's tweets lives under /api/v1/users/{userId}/tweets.
func (h *Handler) Tweets(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/tweets"), "/")

	switch {
	case rest == "" && r.Method == http.MethodPost:
		h.createTweet(w, r)
	case rest == "":
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	case strings.Contains(rest, "/"):
		writeError(w, http.StatusNotFound, "not found")
	case r.Method == http.MethodPatch:
		h.updateTweet(w, r, rest)
	case r.Method == http.MethodDelete:
		h.deleteTweet(w, r, rest)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *Handler) createTweet(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	var req tweetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeError(w, http.StatusBadRequest, "validation failed", "content is required")
		return
	}

	tweet, err := h.Store.CreateTweet(user.ID, req.Content)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	metrics.ObserveEngagement("tweet")
	writeSuccess(w, http.StatusCreated, tweet, "tweet created successfully")
}

func (h *Handler) updateTweet(w http.ResponseWriter, r *http.Request, id string) {
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	if !requireValidID(w, id, "tweet id") {
		return
	}
	tweet, exists := h.Store.GetTweet(id)
	if !exists {
		writeError(w, http.StatusNotFound, "tweet "+id+": not found")
		return
	}
	if !requireOwner(w, user, tweet.OwnerID, "tweet") {
		return
	}

	var req tweetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeError(w, http.StatusBadRequest, "validation failed", "content is required")
		return
	}

	updated, err := h.Store.UpdateTweet(id, req.Content)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, updated, "tweet updated successfully")
}

func (h *Handler) deleteTweet(w http.ResponseWriter, r *http.Request, id string) {
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	if !requireValidID(w, id, "tweet id") {
		return
	}
	tweet, exists := h.Store.GetTweet(id)
	if !exists {
		writeError(w, http.StatusNotFound, "tweet "+id+": not found")
		return
	}
	if !requireOwner(w, user, tweet.OwnerID, "tweet") {
		return
	}

	if err := h.Store.DeleteTweet(id); err != nil {
		writeStorageError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, nil, "tweet deleted successfully")
}

package api

import (
	"net/http"
	"strings"

	"vidtube/internal/observability/metrics"
	"vidtube/internal/storage"
)

// Subscriptions routes:
//
//	POST /api/v1/subscriptions/c/{channelId}             toggle
//	GET  /api/v1/subscriptions/c/{channelId}/subscribers
//	GET  /api/v1/subscriptions/u/{subscriberId}/channels
func (h *Handler) Subscriptions(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/subscriptions"), "/")
	parts := strings.Split(rest, "/")

	switch {
	case len(parts) == 2 && parts[0] == "c" && r.Method == http.MethodPost:
		h.toggleSubscription(w, r, parts[1])
	case len(parts) == 3 && parts[0] == "c" && parts[2] == "subscribers" && r.Method == http.MethodGet:
		h.channelSubscribers(w, r, parts[1])
	case len(parts) == 3 && parts[0] == "u" && parts[2] == "channels" && r.Method == http.MethodGet:
		h.subscribedChannels(w, r, parts[1])
	case len(parts) == 2 && parts[0] == "c",
		len(parts) == 3 && parts[0] == "c" && parts[2] == "subscribers",
		len(parts) == 3 && parts[0] == "u" && parts[2] == "channels":
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (h *Handler) toggleSubscription(w http.ResponseWriter, r *http.Request, channelID string) {
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	if !requireValidID(w, channelID, "channel id") {
		return
	}

	subscribed, err := h.Store.ToggleSubscription(user.ID, channelID)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	message := "unsubscribed successfully"
	if subscribed {
		message = "subscribed successfully"
	}
	metrics.ObserveEngagement("subscription_toggle")
	writeSuccess(w, http.StatusOK, map[string]bool{"subscribed": subscribed}, message)
}

func (h *Handler) channelSubscribers(w http.ResponseWriter, r *http.Request, channelID string) {
	if _, ok := h.requireAuthenticatedUser(w, r); !ok {
		return
	}
	if !requireValidID(w, channelID, "channel id") {
		return
	}

	subscribers, err := h.Store.ListChannelSubscribers(channelID)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string][]storage.SubscriberView{"subscribers": subscribers}, "subscribers fetched successfully")
}

func (h *Handler) subscribedChannels(w http.ResponseWriter, r *http.Request, subscriberID string) {
	if _, ok := h.requireAuthenticatedUser(w, r); !ok {
		return
	}
	if !requireValidID(w, subscriberID, "subscriber id") {
		return
	}

	channels, err := h.Store.ListSubscribedChannels(subscriberID)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string][]storage.ChannelView{"channels": channels}, "subscribed channels fetched successfully")
}

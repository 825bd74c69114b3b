package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"vidtube/internal/models"
	"vidtube/internal/storage"
)

func TestCommentEndpoints(t *testing.T) {
	handler, store := newTestHandler(t)
	owner := createTestUser(t, store, "owner")
	commenter := createTestUser(t, store, "commenter")
	video := createTestVideo(t, store, owner.ID, "discussed")

	req := authenticate(jsonRequest(t, http.MethodPost, "/api/v1/videos/"+video.ID+"/comments", map[string]string{
		"content": "  first!  ",
	}), commenter)
	rec := httptest.NewRecorder()
	handler.Videos(rec, req)

	envelope := decodeSuccess(t, rec, http.StatusCreated)
	var comment models.Comment
	unmarshalData(t, envelope, &comment)
	if comment.Content != "first!" {
		t.Errorf("content = %q, want trimmed", comment.Content)
	}

	// Listing is public and paginated.
	rec = httptest.NewRecorder()
	handler.Videos(rec, httptest.NewRequest(http.MethodGet, "/api/v1/videos/"+video.ID+"/comments", nil))
	envelope = decodeSuccess(t, rec, http.StatusOK)
	var listing commentListResponse
	unmarshalData(t, envelope, &listing)
	if len(listing.Comments) != 1 {
		t.Fatalf("comments length = %d, want 1", len(listing.Comments))
	}
	if listing.Comments[0].Owner.Username != "commenter" {
		t.Errorf("comment owner = %q", listing.Comments[0].Owner.Username)
	}

	// Only the author may edit.
	req = authenticate(jsonRequest(t, http.MethodPatch, "/api/v1/comments/"+comment.ID, map[string]string{
		"content": "hijacked",
	}), owner)
	rec = httptest.NewRecorder()
	handler.Comments(rec, req)
	decodeError(t, rec, http.StatusForbidden)

	req = authenticate(jsonRequest(t, http.MethodPatch, "/api/v1/comments/"+comment.ID, map[string]string{
		"content": "first, edited",
	}), commenter)
	rec = httptest.NewRecorder()
	handler.Comments(rec, req)
	envelope = decodeSuccess(t, rec, http.StatusOK)
	unmarshalData(t, envelope, &comment)
	if comment.Content != "first, edited" {
		t.Errorf("content = %q after edit", comment.Content)
	}

	req = authenticate(httptest.NewRequest(http.MethodDelete, "/api/v1/comments/"+comment.ID, nil), commenter)
	rec = httptest.NewRecorder()
	handler.Comments(rec, req)
	decodeSuccess(t, rec, http.StatusOK)

	// A second delete hits the missing-resource path before ownership.
	req = authenticate(httptest.NewRequest(http.MethodDelete, "/api/v1/comments/"+comment.ID, nil), owner)
	rec = httptest.NewRecorder()
	handler.Comments(rec, req)
	decodeError(t, rec, http.StatusNotFound)
}

func TestCreateCommentValidation(t *testing.T) {
	handler, store := newTestHandler(t)
	owner := createTestUser(t, store, "owner")
	video := createTestVideo(t, store, owner.ID, "quiet")

	req := authenticate(jsonRequest(t, http.MethodPost, "/api/v1/videos/"+video.ID+"/comments", map[string]string{
		"content": "   ",
	}), owner)
	rec := httptest.NewRecorder()
	handler.Videos(rec, req)
	decodeError(t, rec, http.StatusBadRequest)

	long := strings.Repeat("x", 1001)
	req = authenticate(jsonRequest(t, http.MethodPost, "/api/v1/videos/"+video.ID+"/comments", map[string]string{
		"content": long,
	}), owner)
	rec = httptest.NewRecorder()
	handler.Videos(rec, req)
	decodeError(t, rec, http.StatusBadRequest)
}

func TestTweetEndpoints(t *testing.T) {
	handler, store := newTestHandler(t)
	author := createTestUser(t, store, "author")
	reader := createTestUser(t, store, "reader")

	req := authenticate(jsonRequest(t, http.MethodPost, "/api/v1/tweets", map[string]string{
		"content": "shipping soon",
	}), author)
	rec := httptest.NewRecorder()
	handler.Tweets(rec, req)

	envelope := decodeSuccess(t, rec, http.StatusCreated)
	var tweet models.Tweet
	unmarshalData(t, envelope, &tweet)

	// Over the length cap is rejected by the store.
	req = authenticate(jsonRequest(t, http.MethodPost, "/api/v1/tweets", map[string]string{
		"content": strings.Repeat("y", 281),
	}), author)
	rec = httptest.NewRecorder()
	handler.Tweets(rec, req)
	decodeError(t, rec, http.StatusBadRequest)

	// Listing lives under the users tree.
	req = authenticate(httptest.NewRequest(http.MethodGet, "/api/v1/users/"+author.ID+"/tweets", nil), reader)
	rec = httptest.NewRecorder()
	handler.Users(rec, req)
	envelope = decodeSuccess(t, rec, http.StatusOK)
	var tweets []storage.TweetView
	unmarshalData(t, envelope, &tweets)
	if len(tweets) != 1 || tweets[0].ID != tweet.ID {
		t.Fatalf("tweets = %+v, want the created tweet", tweets)
	}

	req = authenticate(jsonRequest(t, http.MethodPatch, "/api/v1/tweets/"+tweet.ID, map[string]string{
		"content": "shipped!",
	}), reader)
	rec = httptest.NewRecorder()
	handler.Tweets(rec, req)
	decodeError(t, rec, http.StatusForbidden)

	req = authenticate(httptest.NewRequest(http.MethodDelete, "/api/v1/tweets/"+tweet.ID, nil), author)
	rec = httptest.NewRecorder()
	handler.Tweets(rec, req)
	decodeSuccess(t, rec, http.StatusOK)
}

func TestToggleLikeEndpoint(t *testing.T) {
	handler, store := newTestHandler(t)
	owner := createTestUser(t, store, "owner")
	fan := createTestUser(t, store, "fan")
	video := createTestVideo(t, store, owner.ID, "likeable")

	toggle := func() map[string]bool {
		req := authenticate(httptest.NewRequest(http.MethodPost, "/api/v1/likes/toggle/v/"+video.ID, nil), fan)
		rec := httptest.NewRecorder()
		handler.Likes(rec, req)
		envelope := decodeSuccess(t, rec, http.StatusOK)
		var state map[string]bool
		unmarshalData(t, envelope, &state)
		return state
	}

	if state := toggle(); !state["liked"] {
		t.Error("first toggle should like")
	}
	if state := toggle(); state["liked"] {
		t.Error("second toggle should unlike")
	}

	// Unknown target kinds and malformed ids never reach the store.
	req := authenticate(httptest.NewRequest(http.MethodPost, "/api/v1/likes/toggle/x/"+video.ID, nil), fan)
	rec := httptest.NewRecorder()
	handler.Likes(rec, req)
	decodeError(t, rec, http.StatusNotFound)

	req = authenticate(httptest.NewRequest(http.MethodPost, "/api/v1/likes/toggle/v/short", nil), fan)
	rec = httptest.NewRecorder()
	handler.Likes(rec, req)
	decodeError(t, rec, http.StatusBadRequest)
}

func TestLikedVideosEndpoint(t *testing.T) {
	handler, store := newTestHandler(t)
	owner := createTestUser(t, store, "owner")
	fan := createTestUser(t, store, "fan")
	video := createTestVideo(t, store, owner.ID, "saved")
	if _, err := store.ToggleLike(fan.ID, models.LikeTargetVideo, video.ID); err != nil {
		t.Fatalf("ToggleLike: %v", err)
	}

	req := authenticate(httptest.NewRequest(http.MethodGet, "/api/v1/likes/videos", nil), fan)
	rec := httptest.NewRecorder()
	handler.Likes(rec, req)

	envelope := decodeSuccess(t, rec, http.StatusOK)
	var payload map[string][]storage.VideoSummary
	unmarshalData(t, envelope, &payload)
	if len(payload["videos"]) != 1 || payload["videos"][0].ID != video.ID {
		t.Fatalf("liked videos = %+v, want the liked video", payload["videos"])
	}
	if !payload["videos"][0].IsLiked {
		t.Error("liked flag not set for requesting user")
	}
}

func TestToggleSubscriptionEndpoint(t *testing.T) {
	handler, store := newTestHandler(t)
	channel := createTestUser(t, store, "channel")
	fan := createTestUser(t, store, "fan")

	req := authenticate(httptest.NewRequest(http.MethodPost, "/api/v1/subscriptions/c/"+channel.ID, nil), fan)
	rec := httptest.NewRecorder()
	handler.Subscriptions(rec, req)

	envelope := decodeSuccess(t, rec, http.StatusOK)
	var state map[string]bool
	unmarshalData(t, envelope, &state)
	if !state["subscribed"] {
		t.Error("first toggle should subscribe")
	}

	req = authenticate(httptest.NewRequest(http.MethodPost, "/api/v1/subscriptions/c/"+channel.ID, nil), fan)
	rec = httptest.NewRecorder()
	handler.Subscriptions(rec, req)
	envelope = decodeSuccess(t, rec, http.StatusOK)
	unmarshalData(t, envelope, &state)
	if state["subscribed"] {
		t.Error("second toggle should unsubscribe")
	}

	// Subscribing to yourself is rejected.
	req = authenticate(httptest.NewRequest(http.MethodPost, "/api/v1/subscriptions/c/"+channel.ID, nil), channel)
	rec = httptest.NewRecorder()
	handler.Subscriptions(rec, req)
	decodeError(t, rec, http.StatusBadRequest)
}

func TestSubscriptionListings(t *testing.T) {
	handler, store := newTestHandler(t)
	channel := createTestUser(t, store, "channel")
	fan := createTestUser(t, store, "fan")
	if _, err := store.ToggleSubscription(fan.ID, channel.ID); err != nil {
		t.Fatalf("ToggleSubscription: %v", err)
	}

	req := authenticate(httptest.NewRequest(http.MethodGet, "/api/v1/subscriptions/c/"+channel.ID+"/subscribers", nil), channel)
	rec := httptest.NewRecorder()
	handler.Subscriptions(rec, req)
	envelope := decodeSuccess(t, rec, http.StatusOK)
	var subs map[string][]storage.SubscriberView
	unmarshalData(t, envelope, &subs)
	if len(subs["subscribers"]) != 1 || subs["subscribers"][0].Subscriber.Username != "fan" {
		t.Fatalf("subscribers = %+v", subs["subscribers"])
	}

	req = authenticate(httptest.NewRequest(http.MethodGet, "/api/v1/subscriptions/u/"+fan.ID+"/channels", nil), fan)
	rec = httptest.NewRecorder()
	handler.Subscriptions(rec, req)
	envelope = decodeSuccess(t, rec, http.StatusOK)
	var channels map[string][]storage.ChannelView
	unmarshalData(t, envelope, &channels)
	if len(channels["channels"]) != 1 || channels["channels"][0].Channel.Username != "channel" {
		t.Fatalf("channels = %+v", channels["channels"])
	}
}

func TestChannelWithoutSubscribersReturnsEmptyList(t *testing.T) {
	handler, store := newTestHandler(t)
	channel := createTestUser(t, store, "lonely")

	req := authenticate(httptest.NewRequest(http.MethodGet, "/api/v1/subscriptions/c/"+channel.ID+"/subscribers", nil), channel)
	rec := httptest.NewRecorder()
	handler.Subscriptions(rec, req)

	envelope := decodeSuccess(t, rec, http.StatusOK)
	var subs map[string]json.RawMessage
	unmarshalData(t, envelope, &subs)
	raw, ok := subs["subscribers"]
	if !ok {
		t.Fatal("subscribers key missing")
	}
	if string(raw) == "null" {
		t.Error("subscribers should encode as an empty array, not null")
	}
}

func TestDashboardEndpoints(t *testing.T) {
	handler, store := newTestHandler(t)
	owner := createTestUser(t, store, "owner")
	fan := createTestUser(t, store, "fan")
	published := createTestVideo(t, store, owner.ID, "published")
	draft := createTestVideo(t, store, owner.ID, "draft")
	if _, err := store.TogglePublish(draft.ID); err != nil {
		t.Fatalf("TogglePublish: %v", err)
	}
	if err := store.RecordView(published.ID, fan.ID); err != nil {
		t.Fatalf("RecordView: %v", err)
	}
	if _, err := store.ToggleLike(fan.ID, models.LikeTargetVideo, published.ID); err != nil {
		t.Fatalf("ToggleLike: %v", err)
	}
	if _, err := store.ToggleSubscription(fan.ID, owner.ID); err != nil {
		t.Fatalf("ToggleSubscription: %v", err)
	}

	req := authenticate(httptest.NewRequest(http.MethodGet, "/api/v1/dashboard/stats", nil), owner)
	rec := httptest.NewRecorder()
	handler.Dashboard(rec, req)

	envelope := decodeSuccess(t, rec, http.StatusOK)
	var stats storage.ChannelStats
	unmarshalData(t, envelope, &stats)
	if stats.TotalVideos != 2 {
		t.Errorf("totalVideos = %d, want 2", stats.TotalVideos)
	}
	if stats.TotalViews != 1 {
		t.Errorf("totalViews = %d, want 1", stats.TotalViews)
	}
	if stats.TotalSubscribers != 1 {
		t.Errorf("totalSubscribers = %d, want 1", stats.TotalSubscribers)
	}
	if stats.TotalLikes != 1 {
		t.Errorf("totalLikes = %d, want 1", stats.TotalLikes)
	}

	// Dashboard video listing includes drafts, unlike the public list.
	req = authenticate(httptest.NewRequest(http.MethodGet, "/api/v1/dashboard/videos", nil), owner)
	rec = httptest.NewRecorder()
	handler.Dashboard(rec, req)
	envelope = decodeSuccess(t, rec, http.StatusOK)
	var payload videoListResponse
	unmarshalData(t, envelope, &payload)
	if len(payload.Videos) != 2 {
		t.Errorf("dashboard videos = %d, want 2 including the draft", len(payload.Videos))
	}
}

func TestDashboardMethodHandling(t *testing.T) {
	handler, store := newTestHandler(t)
	owner := createTestUser(t, store, "owner")

	req := authenticate(httptest.NewRequest(http.MethodPost, "/api/v1/dashboard/stats", nil), owner)
	rec := httptest.NewRecorder()
	handler.Dashboard(rec, req)
	decodeError(t, rec, http.StatusMethodNotAllowed)

	req = authenticate(httptest.NewRequest(http.MethodGet, "/api/v1/dashboard/unknown", nil), owner)
	rec = httptest.NewRecorder()
	handler.Dashboard(rec, req)
	decodeError(t, rec, http.StatusNotFound)
}

func TestHealthzEndpoint(t *testing.T) {
	handler, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	handler.Healthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	envelope := decodeSuccess(t, rec, http.StatusOK)
	var status healthStatus
	unmarshalData(t, envelope, &status)
	if status.Storage != "ok" || status.Sessions != "ok" {
		t.Errorf("health = %+v, want ok/ok", status)
	}

	rec = httptest.NewRecorder()
	handler.Healthz(rec, httptest.NewRequest(http.MethodDelete, "/healthz", nil))
	decodeError(t, rec, http.StatusMethodNotAllowed)
}

package storage

import (
	"errors"
	"testing"

	"vidtube/internal/models"
)

func TestCreateVideoValidation(t *testing.T) {
	store := newTestStore(t)
	owner := createTestUser(t, store, "owner")

	cases := []struct {
		name   string
		params CreateVideoParams
		target error
	}{
		{
			name:   "missing title",
			params: CreateVideoParams{OwnerID: owner.ID, VideoFile: "/media/v.mp4", Thumbnail: "/media/t.jpg"},
			target: ErrValidation,
		},
		{
			name:   "missing video file",
			params: CreateVideoParams{OwnerID: owner.ID, Title: "t", Thumbnail: "/media/t.jpg"},
			target: ErrValidation,
		},
		{
			name:   "missing thumbnail",
			params: CreateVideoParams{OwnerID: owner.ID, Title: "t", VideoFile: "/media/v.mp4"},
			target: ErrValidation,
		},
		{
			name:   "unknown owner",
			params: CreateVideoParams{OwnerID: "ffffffffffffffffffffffffffffffff", Title: "t", VideoFile: "/media/v.mp4", Thumbnail: "/media/t.jpg"},
			target: ErrNotFound,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := store.CreateVideo(tc.params); !errors.Is(err, tc.target) {
				t.Fatalf("expected %v, got %v", tc.target, err)
			}
		})
	}
}

func TestGetVideoDetailComposesCounts(t *testing.T) {
	store := newTestStore(t)
	owner := createTestUser(t, store, "owner")
	fan := createTestUser(t, store, "fan")
	video := createTestVideo(t, store, owner.ID, "launch")

	if _, err := store.CreateComment(video.ID, fan.ID, "great"); err != nil {
		t.Fatalf("CreateComment error: %v", err)
	}
	if _, err := store.CreateComment(video.ID, owner.ID, "thanks"); err != nil {
		t.Fatalf("CreateComment error: %v", err)
	}
	if _, err := store.ToggleLike(fan.ID, models.LikeTargetVideo, video.ID); err != nil {
		t.Fatalf("ToggleLike error: %v", err)
	}
	if _, err := store.ToggleSubscription(fan.ID, owner.ID); err != nil {
		t.Fatalf("ToggleSubscription error: %v", err)
	}

	detail, err := store.GetVideoDetail(video.ID, fan.ID)
	if err != nil {
		t.Fatalf("GetVideoDetail error: %v", err)
	}
	if detail.CommentCount != 2 {
		t.Fatalf("expected 2 comments, got %d", detail.CommentCount)
	}
	if detail.LikeCount != 1 || !detail.IsLiked {
		t.Fatalf("expected liked state, got count=%d liked=%v", detail.LikeCount, detail.IsLiked)
	}
	if detail.SubscriberCount != 1 || !detail.IsSubscribed {
		t.Fatalf("expected subscribed state, got count=%d subscribed=%v", detail.SubscriberCount, detail.IsSubscribed)
	}
	if detail.Owner.Username != "owner" {
		t.Fatalf("expected owner projection, got %+v", detail.Owner)
	}

	// Anonymous viewers see counts without personal flags.
	detail, err = store.GetVideoDetail(video.ID, "")
	if err != nil {
		t.Fatalf("GetVideoDetail error: %v", err)
	}
	if detail.IsLiked || detail.IsSubscribed {
		t.Fatal("expected anonymous viewer to have no like or subscription state")
	}
}

func TestRecordViewBumpsCounter(t *testing.T) {
	store := newTestStore(t)
	owner := createTestUser(t, store, "owner")
	video := createTestVideo(t, store, owner.ID, "launch")

	if err := store.RecordView(video.ID, ""); err != nil {
		t.Fatalf("RecordView error: %v", err)
	}
	if err := store.RecordView(video.ID, owner.ID); err != nil {
		t.Fatalf("RecordView error: %v", err)
	}

	got, _ := store.GetVideo(video.ID)
	if got.Views != 2 {
		t.Fatalf("expected 2 views, got %d", got.Views)
	}

	if err := store.RecordView("ffffffffffffffffffffffffffffffff", ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeleteVideoCascades(t *testing.T) {
	store := newTestStore(t)
	owner := createTestUser(t, store, "owner")
	fan := createTestUser(t, store, "fan")
	video := createTestVideo(t, store, owner.ID, "doomed")
	other := createTestVideo(t, store, owner.ID, "survivor")

	comment, err := store.CreateComment(video.ID, fan.ID, "first")
	if err != nil {
		t.Fatalf("CreateComment error: %v", err)
	}
	keptComment, err := store.CreateComment(other.ID, fan.ID, "kept")
	if err != nil {
		t.Fatalf("CreateComment error: %v", err)
	}
	if _, err := store.ToggleLike(fan.ID, models.LikeTargetVideo, video.ID); err != nil {
		t.Fatalf("ToggleLike error: %v", err)
	}
	if _, err := store.ToggleLike(owner.ID, models.LikeTargetComment, comment.ID); err != nil {
		t.Fatalf("ToggleLike error: %v", err)
	}
	if _, err := store.ToggleLike(fan.ID, models.LikeTargetVideo, other.ID); err != nil {
		t.Fatalf("ToggleLike error: %v", err)
	}
	if err := store.RecordView(video.ID, fan.ID); err != nil {
		t.Fatalf("RecordView error: %v", err)
	}

	if err := store.DeleteVideo(video.ID); err != nil {
		t.Fatalf("DeleteVideo error: %v", err)
	}

	if _, ok := store.GetVideo(video.ID); ok {
		t.Fatal("expected video to be gone")
	}
	if _, ok := store.GetComment(comment.ID); ok {
		t.Fatal("expected video's comment to be cascaded")
	}
	if _, ok := store.GetComment(keptComment.ID); !ok {
		t.Fatal("expected other video's comment to survive")
	}

	liked, err := store.ListLikedVideos(fan.ID)
	if err != nil {
		t.Fatalf("ListLikedVideos error: %v", err)
	}
	if len(liked) != 1 || liked[0].ID != other.ID {
		t.Fatalf("expected only the surviving video to stay liked, got %+v", liked)
	}

	history, err := store.WatchHistory(fan.ID)
	if err != nil {
		t.Fatalf("WatchHistory error: %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("expected history cleared, got %+v", history)
	}

	if err := store.DeleteVideo(video.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found on double delete, got %v", err)
	}
}

func TestTogglePublishFlipsState(t *testing.T) {
	store := newTestStore(t)
	owner := createTestUser(t, store, "owner")
	video := createTestVideo(t, store, owner.ID, "launch")

	updated, err := store.TogglePublish(video.ID)
	if err != nil {
		t.Fatalf("TogglePublish error: %v", err)
	}
	if updated.IsPublished {
		t.Fatal("expected video to be unpublished")
	}
	updated, err = store.TogglePublish(video.ID)
	if err != nil {
		t.Fatalf("TogglePublish error: %v", err)
	}
	if !updated.IsPublished {
		t.Fatal("expected video to be published again")
	}
}

func TestListVideosFiltersSortsAndPaginates(t *testing.T) {
	store := newTestStore(t)
	owner := createTestUser(t, store, "owner")
	other := createTestUser(t, store, "other")

	goTalk := createTestVideo(t, store, owner.ID, "Go Concurrency Talk")
	cooking := createTestVideo(t, store, owner.ID, "Cooking Stream")
	hidden := createTestVideo(t, store, owner.ID, "Hidden Draft")
	createTestVideo(t, store, other.ID, "Other Channel Intro")

	if _, err := store.TogglePublish(hidden.ID); err != nil {
		t.Fatalf("TogglePublish error: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := store.RecordView(goTalk.ID, ""); err != nil {
			t.Fatalf("RecordView error: %v", err)
		}
	}

	videos, pagination, err := store.ListVideos(ListVideosOptions{})
	if err != nil {
		t.Fatalf("ListVideos error: %v", err)
	}
	if pagination.Total != 3 {
		t.Fatalf("expected unpublished video excluded, total=%d", pagination.Total)
	}

	videos, _, err = store.ListVideos(ListVideosOptions{OwnerID: owner.ID})
	if err != nil {
		t.Fatalf("ListVideos error: %v", err)
	}
	if len(videos) != 2 {
		t.Fatalf("expected 2 published owner videos, got %d", len(videos))
	}

	videos, _, err = store.ListVideos(ListVideosOptions{OwnerID: owner.ID, IncludeUnpublished: true})
	if err != nil {
		t.Fatalf("ListVideos error: %v", err)
	}
	if len(videos) != 3 {
		t.Fatalf("expected dashboard listing to include drafts, got %d", len(videos))
	}

	videos, _, err = store.ListVideos(ListVideosOptions{Query: "COOKING"})
	if err != nil {
		t.Fatalf("ListVideos error: %v", err)
	}
	if len(videos) != 1 || videos[0].ID != cooking.ID {
		t.Fatalf("expected case-insensitive query match, got %+v", videos)
	}

	videos, _, err = store.ListVideos(ListVideosOptions{SortBy: VideoSortViews})
	if err != nil {
		t.Fatalf("ListVideos error: %v", err)
	}
	if videos[0].ID != goTalk.ID {
		t.Fatalf("expected most viewed first, got %+v", videos[0].Video)
	}

	videos, pagination, err = store.ListVideos(ListVideosOptions{Page: 2, Limit: 2})
	if err != nil {
		t.Fatalf("ListVideos error: %v", err)
	}
	if pagination.Page != 2 || pagination.Limit != 2 || pagination.TotalPages != 2 {
		t.Fatalf("unexpected pagination %+v", pagination)
	}
	if len(videos) != 1 {
		t.Fatalf("expected 1 video on the last page, got %d", len(videos))
	}

	if _, _, err := store.ListVideos(ListVideosOptions{OwnerID: "ffffffffffffffffffffffffffffffff"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found for unknown owner, got %v", err)
	}
}

func TestChannelStatsAggregates(t *testing.T) {
	store := newTestStore(t)
	owner := createTestUser(t, store, "owner")
	fan := createTestUser(t, store, "fan")
	other := createTestUser(t, store, "other")

	first := createTestVideo(t, store, owner.ID, "first")
	second := createTestVideo(t, store, owner.ID, "second")
	foreign := createTestVideo(t, store, other.ID, "foreign")

	if err := store.RecordView(first.ID, ""); err != nil {
		t.Fatalf("RecordView error: %v", err)
	}
	if err := store.RecordView(second.ID, ""); err != nil {
		t.Fatalf("RecordView error: %v", err)
	}
	if err := store.RecordView(second.ID, ""); err != nil {
		t.Fatalf("RecordView error: %v", err)
	}
	if _, err := store.ToggleLike(fan.ID, models.LikeTargetVideo, first.ID); err != nil {
		t.Fatalf("ToggleLike error: %v", err)
	}
	if _, err := store.ToggleLike(fan.ID, models.LikeTargetVideo, foreign.ID); err != nil {
		t.Fatalf("ToggleLike error: %v", err)
	}
	if _, err := store.ToggleSubscription(fan.ID, owner.ID); err != nil {
		t.Fatalf("ToggleSubscription error: %v", err)
	}

	stats, err := store.ChannelStats(owner.ID)
	if err != nil {
		t.Fatalf("ChannelStats error: %v", err)
	}
	if stats.TotalVideos != 2 {
		t.Fatalf("expected 2 videos, got %d", stats.TotalVideos)
	}
	if stats.TotalViews != 3 {
		t.Fatalf("expected 3 views, got %d", stats.TotalViews)
	}
	if stats.TotalLikes != 1 {
		t.Fatalf("expected 1 like on owned videos, got %d", stats.TotalLikes)
	}
	if stats.TotalSubscribers != 1 {
		t.Fatalf("expected 1 subscriber, got %d", stats.TotalSubscribers)
	}
}

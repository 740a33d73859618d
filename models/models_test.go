package models

import (
	"testing"
	"time"
)

func TestNewLikeRecordSnapshotsPost(t *testing.T) {
	profile := "https://img/me.png"
	post := Post{
		ID:                  "p1",
		Title:               "Test",
		Episode:             "第1話",
		UserID:              "author",
		UserProfileImageURL: &profile,
		PostImages:          StringSlice{"1", "2", "3", "4"},
		ThumbnailPost:       "thumb",
		CreatedAt:           "2025-01-01 10:00:00",
	}
	likedAt := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	like := NewLikeRecord(post, "viewer", likedAt)
	post.PostImages[0] = "changed"
	profile = "changed"

	if like.UserID != "viewer" || like.PostID != "p1" || like.PostUserID != "author" {
		t.Errorf("keys = %+v", like)
	}
	if like.Title != "Test" || like.Episode != "第1話" || like.ThumbnailPost != "thumb" || like.CreatedAt != "2025-01-01 10:00:00" {
		t.Errorf("snapshot fields = %+v", like)
	}
	if !like.LikedAt.Equal(likedAt) {
		t.Errorf("LikedAt = %v", like.LikedAt)
	}
	if like.PostImages[0] != "1" {
		t.Error("snapshot shares panel URLs with the post")
	}
	if like.UserProfileImageURL == nil || *like.UserProfileImageURL != "https://img/me.png" {
		t.Error("snapshot shares the profile URL with the post")
	}
}

func TestPostPages(t *testing.T) {
	post := Post{PostImages: StringSlice{"a", "b", "c", "d"}, ThumbnailPost: "t"}

	pages := post.Pages()

	if len(pages) != PanelCount+1 {
		t.Fatalf("len(pages) = %d", len(pages))
	}
	want := []Page{
		{0, "a", "1/4"},
		{1, "b", "2/4"},
		{2, "c", "3/4"},
		{3, "d", "4/4"},
		{4, "t", ThumbnailPageLabel},
	}
	for i := range want {
		if pages[i] != want[i] {
			t.Errorf("pages[%d] = %+v, want %+v", i, pages[i], want[i])
		}
	}
}

func TestParseSortOption(t *testing.T) {
	if got, err := ParseSortOption(""); err != nil || got != SortDateDescending {
		t.Errorf("ParseSortOption(\"\") = %q, %v", got, err)
	}
	for _, option := range SortOptions {
		if got, err := ParseSortOption(string(option)); err != nil || got != option {
			t.Errorf("ParseSortOption(%q) = %q, %v", option, got, err)
		}
		if option.Label() == "" {
			t.Errorf("%s has no label", option)
		}
	}
	if _, err := ParseSortOption("random"); err == nil {
		t.Error("unknown option should be rejected")
	}
}

func TestStringSliceColumn(t *testing.T) {
	var nilSlice StringSlice
	if v, err := nilSlice.Value(); err != nil || v != "[]" {
		t.Errorf("nil Value = %v, %v", v, err)
	}

	var scanned StringSlice
	if err := scanned.Scan([]byte(`["a","b"]`)); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(scanned) != 2 || scanned[1] != "b" {
		t.Errorf("scanned = %v", scanned)
	}
	if err := scanned.Scan(42); err == nil {
		t.Error("scanning an int should fail")
	}
}

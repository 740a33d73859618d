package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"yonkoma-api/models"
	"yonkoma-api/repositories"
)

var errBoom = errors.New("boom")

func testPost(id, title, createdAt string) models.Post {
	return models.Post{
		ID:            id,
		Title:         title,
		UserID:        "author",
		PostImages:    models.StringSlice{id + "-1", id + "-2", id + "-3", id + "-4"},
		ThumbnailPost: id + "-thumb",
		CreatedAt:     createdAt,
	}
}

func seedPosts(t *testing.T, mem *repositories.MemoryStore, posts ...models.Post) {
	t.Helper()
	for _, post := range posts {
		post := post
		if err := mem.CreatePost(context.Background(), &post); err != nil {
			t.Fatalf("CreatePost(%s): %v", post.ID, err)
		}
	}
}

func seedLike(t *testing.T, mem *repositories.MemoryStore, userID string, post models.Post, likedAt time.Time) {
	t.Helper()
	like := models.NewLikeRecord(post, userID, likedAt)
	if err := mem.PutLike(context.Background(), &like); err != nil {
		t.Fatalf("PutLike(%s): %v", post.ID, err)
	}
}

func postIDs(posts []models.Post) []string {
	ids := make([]string, 0, len(posts))
	for _, post := range posts {
		ids = append(ids, post.ID)
	}
	return ids
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestLoadFeedEmptyStore(t *testing.T) {
	store, _ := repositories.NewMemoryBackend()
	loader := NewFeedLoader(store.Posts, store.Likes)

	posts, err := loader.LoadFeed(context.Background(), NewSession("u1", ""))
	if err != nil {
		t.Fatalf("LoadFeed: %v", err)
	}
	if posts == nil || len(posts) != 0 {
		t.Fatalf("LoadFeed = %v, want empty non-nil slice", posts)
	}
}

func TestLoadFeedNewestFirst(t *testing.T) {
	store, mem := repositories.NewMemoryBackend()
	seedPosts(t, mem,
		testPost("first", "A", "2025-06-01 09:00:00"),
		testPost("second", "B", "2025-06-02 09:00:00"),
	)
	loader := NewFeedLoader(store.Posts, store.Likes)

	posts, err := loader.LoadFeed(context.Background(), Session{})
	if err != nil {
		t.Fatalf("LoadFeed: %v", err)
	}
	if got, want := postIDs(posts), []string{"second", "first"}; !equalStrings(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
}

func TestLoadFeedSortedNonIncreasing(t *testing.T) {
	store, mem := repositories.NewMemoryBackend()
	seedPosts(t, mem,
		testPost("p1", "A", "2025-01-03 10:00:00"),
		testPost("p2", "B", "2024-12-31 23:59:59"),
		testPost("p3", "C", "2025-01-03 10:00:01"),
		testPost("p4", "D", "2025-01-03 10:00:00"),
		testPost("p5", "E", "2023-07-15 08:30:00"),
	)
	loader := NewFeedLoader(store.Posts, store.Likes)

	posts, err := loader.LoadFeed(context.Background(), Session{})
	if err != nil {
		t.Fatalf("LoadFeed: %v", err)
	}
	for i := 1; i < len(posts); i++ {
		prev, _ := time.Parse(models.TimestampLayout, posts[i-1].CreatedAt)
		cur, _ := time.Parse(models.TimestampLayout, posts[i].CreatedAt)
		if cur.After(prev) {
			t.Fatalf("posts[%d] %s is newer than posts[%d] %s", i, posts[i].CreatedAt, i-1, posts[i-1].CreatedAt)
		}
	}
	// equal timestamps keep store order
	if got, want := postIDs(posts), []string{"p3", "p1", "p4", "p2", "p5"}; !equalStrings(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
}

func TestLoadFeedMarksLikedPosts(t *testing.T) {
	store, mem := repositories.NewMemoryBackend()
	liked := testPost("liked", "A", "2025-01-01 10:00:00")
	other := testPost("other", "B", "2025-01-02 10:00:00")
	seedPosts(t, mem, liked, other)
	seedLike(t, mem, "u1", liked, time.Now())
	seedLike(t, mem, "u2", other, time.Now())
	loader := NewFeedLoader(store.Posts, store.Likes)

	posts, err := loader.LoadFeed(context.Background(), NewSession("u1", ""))
	if err != nil {
		t.Fatalf("LoadFeed: %v", err)
	}
	for _, post := range posts {
		if want := post.ID == "liked"; post.IsLiked != want {
			t.Errorf("%s IsLiked = %v, want %v", post.ID, post.IsLiked, want)
		}
	}
}

func TestLoadFeedUnauthenticatedLikesNothing(t *testing.T) {
	store, mem := repositories.NewMemoryBackend()
	post := testPost("p1", "A", "2025-01-01 10:00:00")
	seedPosts(t, mem, post)
	seedLike(t, mem, "u1", post, time.Now())
	loader := NewFeedLoader(store.Posts, store.Likes)

	posts, err := loader.LoadFeed(context.Background(), Session{})
	if err != nil {
		t.Fatalf("LoadFeed: %v", err)
	}
	if len(posts) != 1 || posts[0].IsLiked {
		t.Fatalf("posts = %+v, want one unliked post", posts)
	}
}

func TestLoadFeedLikeSetFailureDegrades(t *testing.T) {
	store, mem := repositories.NewMemoryBackend()
	liked := testPost("p1", "A", "2025-01-01 10:00:00")
	seedPosts(t, mem, liked, testPost("p2", "B", "2025-01-02 10:00:00"))
	seedLike(t, mem, "u1", liked, time.Now())
	mem.FailOn(errBoom, repositories.OpListLikedPostIDs)
	loader := NewFeedLoader(store.Posts, store.Likes)

	posts, err := loader.LoadFeed(context.Background(), NewSession("u1", ""))
	if err != nil {
		t.Fatalf("LoadFeed: %v", err)
	}
	if len(posts) != 2 {
		t.Fatalf("len(posts) = %d, want 2", len(posts))
	}
	for _, post := range posts {
		if post.IsLiked {
			t.Errorf("%s should render unliked", post.ID)
		}
	}
}

func TestLoadFeedPostFailureIsRetryable(t *testing.T) {
	store, mem := repositories.NewMemoryBackend()
	seedPosts(t, mem, testPost("p1", "A", "2025-01-01 10:00:00"))
	mem.FailOn(errBoom, repositories.OpListPosts)
	loader := NewFeedLoader(store.Posts, store.Likes)

	posts, err := loader.LoadFeed(context.Background(), NewSession("u1", ""))
	if !errors.Is(err, ErrFeedUnavailable) || !errors.Is(err, errBoom) {
		t.Fatalf("err = %v, want ErrFeedUnavailable wrapping errBoom", err)
	}
	if posts == nil || len(posts) != 0 {
		t.Fatalf("posts = %v, want empty non-nil slice", posts)
	}

	mem.SetHook(nil)
	posts, err = loader.LoadFeed(context.Background(), NewSession("u1", ""))
	if err != nil || len(posts) != 1 {
		t.Fatalf("retry = %v, %v; want one post", posts, err)
	}
}

func TestSortByRecencyUnparsableLast(t *testing.T) {
	posts := []models.Post{
		testPost("bad1", "A", "yesterday"),
		testPost("old", "B", "2025-01-01 10:00:00"),
		testPost("bad2", "C", "2025/01/02 10:00:00"),
		testPost("new", "D", "2025-01-02 10:00:00"),
		testPost("bad3", "E", ""),
	}

	SortByRecency(posts)

	if got, want := postIDs(posts), []string{"new", "old", "bad1", "bad2", "bad3"}; !equalStrings(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
}

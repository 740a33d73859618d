package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	"yonkoma-api/repositories"
)

func newTestSessionStore(t *testing.T) (*FeedSessionStore, *repositories.MemoryStore) {
	t.Helper()
	store, mem := repositories.NewMemoryBackend()
	seedPosts(t, mem, testPost("p1", "A", "2025-01-01 10:00:00"))
	sessions, err := NewFeedSessionStore(NewFeedLoader(store.Posts, store.Likes), store.Likes, time.Minute)
	if err != nil {
		t.Fatalf("NewFeedSessionStore: %v", err)
	}
	t.Cleanup(sessions.Close)
	return sessions, mem
}

func TestSessionStoreReusesViewerSession(t *testing.T) {
	sessions, _ := newTestSessionStore(t)
	ctx := context.Background()
	viewer := NewSession("u1", "")

	first, err := sessions.Get(ctx, viewer)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	action, err := first.ToggleLike(ctx, "p1")
	if err != nil {
		t.Fatalf("ToggleLike: %v", err)
	}
	waitAction(t, action)

	second, err := sessions.Get(ctx, viewer)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if second != first {
		t.Fatal("the same viewer should get the same session")
	}
	if second.Action("p1") != action {
		t.Fatal("like actions should survive across requests")
	}

	if peeked, ok := sessions.Peek(ctx, "u1"); !ok || peeked != first {
		t.Fatal("Peek should return the cached session")
	}
}

func TestSessionStoreDrop(t *testing.T) {
	sessions, _ := newTestSessionStore(t)
	ctx := context.Background()
	viewer := NewSession("u1", "")

	first, _ := sessions.Get(ctx, viewer)
	if err := sessions.Drop(ctx, "u1"); err != nil {
		t.Fatalf("Drop: %v", err)
	}
	if _, ok := sessions.Peek(ctx, "u1"); ok {
		t.Fatal("session should be gone after Drop")
	}
	second, _ := sessions.Get(ctx, viewer)
	if second == first {
		t.Fatal("a new session should be loaded after Drop")
	}
}

func TestSessionStoreAnonymousViewersAreNotCached(t *testing.T) {
	sessions, _ := newTestSessionStore(t)
	ctx := context.Background()

	first, err := sessions.Get(ctx, Session{})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	second, _ := sessions.Get(ctx, Session{})
	if first == second {
		t.Fatal("anonymous viewers should get fresh sessions")
	}
	if len(first.Posts()) != 1 {
		t.Fatal("anonymous session should still load the feed")
	}
}

func TestSessionStoreRefreshReloads(t *testing.T) {
	sessions, mem := newTestSessionStore(t)
	ctx := context.Background()
	viewer := NewSession("u1", "")

	fs, _ := sessions.Get(ctx, viewer)
	seedPosts(t, mem, testPost("p2", "B", "2025-01-02 10:00:00"))

	refreshed, err := sessions.Refresh(ctx, viewer)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if refreshed != fs || len(refreshed.Posts()) != 2 {
		t.Fatalf("refresh should reload the cached session, got %d posts", len(refreshed.Posts()))
	}
}

func TestSessionStoreLoadFailureIsNotCached(t *testing.T) {
	sessions, mem := newTestSessionStore(t)
	ctx := context.Background()
	viewer := NewSession("u1", "")

	mem.FailOn(errBoom, repositories.OpListPosts)
	if _, err := sessions.Get(ctx, viewer); !errors.Is(err, ErrFeedUnavailable) {
		t.Fatalf("err = %v, want ErrFeedUnavailable", err)
	}
	if _, ok := sessions.Peek(ctx, "u1"); ok {
		t.Fatal("failed load should not be cached")
	}

	mem.SetHook(nil)
	if _, err := sessions.Get(ctx, viewer); err != nil {
		t.Fatalf("Get after recovery: %v", err)
	}
}

type droppingCache struct {
	cache.CacheInterface[*FeedSession]
}

func (droppingCache) Set(ctx context.Context, key any, object *FeedSession, options ...store.Option) error {
	return errors.New("set buffer full")
}

func TestSessionStoreServesUncachedSessionWhenCacheDropsWrite(t *testing.T) {
	sessions, _ := newTestSessionStore(t)
	sessions.cache = droppingCache{CacheInterface: sessions.cache}
	ctx := context.Background()

	fs, err := sessions.Get(ctx, NewSession("u1", ""))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(fs.Posts()) != 1 {
		t.Fatalf("posts = %d, want 1", len(fs.Posts()))
	}
	if _, ok := sessions.Peek(ctx, "u1"); ok {
		t.Fatal("dropped write should leave nothing cached")
	}
}

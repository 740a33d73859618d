package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"yonkoma-api/models"
	"yonkoma-api/repositories"
)

const waitTimeout = 2 * time.Second

// writeGate holds every like write until the test answers it
type writeGate struct {
	calls   chan string
	answers chan error
}

func newWriteGate() *writeGate {
	return &writeGate{
		calls:   make(chan string, 16),
		answers: make(chan error),
	}
}

func (g *writeGate) hook(ctx context.Context, op string) error {
	if op != repositories.OpPutLike && op != repositories.OpDeleteLike {
		return nil
	}
	g.calls <- op
	select {
	case err := <-g.answers:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *writeGate) next(t *testing.T) string {
	t.Helper()
	select {
	case op := <-g.calls:
		return op
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for a like write")
		return ""
	}
}

func (g *writeGate) answer(t *testing.T, err error) {
	t.Helper()
	select {
	case g.answers <- err:
	case <-time.After(waitTimeout):
		t.Fatal("timed out answering a like write")
	}
}

func newTestFeedSession(t *testing.T, session Session, posts ...models.Post) (*FeedSession, *repositories.Store, *repositories.MemoryStore) {
	t.Helper()
	store, mem := repositories.NewMemoryBackend()
	seedPosts(t, mem, posts...)
	fs := NewFeedSession(session, NewFeedLoader(store.Posts, store.Likes), store.Likes)
	if err := fs.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	return fs, store, mem
}

func waitAction(t *testing.T, action *LikeAction) (models.LikeState, error) {
	t.Helper()
	select {
	case <-action.Done():
	case <-time.After(waitTimeout):
		t.Fatal("like action did not settle")
	}
	return action.State(), action.Err()
}

func likedIDs(t *testing.T, store *repositories.Store, userID string) []string {
	t.Helper()
	ids, err := store.Likes.ListLikedPostIDs(context.Background(), userID)
	if err != nil {
		t.Fatalf("ListLikedPostIDs: %v", err)
	}
	return ids
}

func TestToggleLikeRoundTrip(t *testing.T) {
	post := testPost("p1", "Test", "2025-01-01 10:00:00")
	fs, store, _ := newTestFeedSession(t, NewSession("u1", "u1@example.com"), post, testPost("p2", "Other", "2025-01-02 10:00:00"))
	before := likedIDs(t, store, "u1")

	like, err := fs.ToggleLike(context.Background(), "p1")
	if err != nil {
		t.Fatalf("ToggleLike: %v", err)
	}
	if !like.Liked || !fs.IsLiked("p1") {
		t.Fatal("first toggle should like the post locally")
	}
	if state, err := waitAction(t, like); state != models.LikeCommitted || err != nil {
		t.Fatalf("like settled as %s, %v", state, err)
	}

	records, _ := store.Likes.ListLikes(context.Background(), "u1")
	if len(records) != 1 {
		t.Fatalf("len(records) = %d, want 1", len(records))
	}
	record := records[0]
	if record.PostID != "p1" || record.Title != "Test" || record.PostUserID != "author" ||
		record.ThumbnailPost != "p1-thumb" || record.CreatedAt != post.CreatedAt || len(record.PostImages) != 4 {
		t.Errorf("snapshot = %+v, want copy of post fields", record)
	}

	unlike, err := fs.ToggleLike(context.Background(), "p1")
	if err != nil {
		t.Fatalf("ToggleLike: %v", err)
	}
	if unlike.Liked || fs.IsLiked("p1") {
		t.Fatal("second toggle should unlike the post locally")
	}
	if state, err := waitAction(t, unlike); state != models.LikeCommitted || err != nil {
		t.Fatalf("unlike settled as %s, %v", state, err)
	}

	if after := likedIDs(t, store, "u1"); !equalStrings(before, after) {
		t.Fatalf("like set = %v, want %v", after, before)
	}
}

func TestToggleLikeUnauthenticatedIsNoop(t *testing.T) {
	fs, store, _ := newTestFeedSession(t, Session{}, testPost("P1", "Test", "2025-01-01 10:00:00"))

	action, err := fs.ToggleLike(context.Background(), "P1")
	if !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("err = %v, want ErrNotAuthenticated", err)
	}
	if action != nil {
		t.Fatal("no action should be issued")
	}
	if fs.IsLiked("P1") {
		t.Fatal("local state should be unchanged")
	}
	all, _ := store.Likes.ListAllLikes(context.Background())
	if len(all) != 0 {
		t.Fatalf("records = %v, want none", all)
	}
}

func TestToggleLikeUnknownPost(t *testing.T) {
	fs, _, _ := newTestFeedSession(t, NewSession("u1", ""), testPost("p1", "A", "2025-01-01 10:00:00"))

	if _, err := fs.ToggleLike(context.Background(), "missing"); !errors.Is(err, ErrPostNotFound) {
		t.Fatalf("err = %v, want ErrPostNotFound", err)
	}
}

func TestToggleLikeFailureReverts(t *testing.T) {
	fs, store, mem := newTestFeedSession(t, NewSession("u1", ""), testPost("p1", "A", "2025-01-01 10:00:00"))
	mem.FailOn(errBoom, repositories.OpPutLike)

	action, err := fs.ToggleLike(context.Background(), "p1")
	if err != nil {
		t.Fatalf("ToggleLike: %v", err)
	}
	state, err := waitAction(t, action)
	if state != models.LikeFailed || !errors.Is(err, errBoom) {
		t.Fatalf("settled as %s, %v; want failed with errBoom", state, err)
	}
	if !errors.Is(action.Err(), errBoom) {
		t.Fatalf("Err() = %v", action.Err())
	}
	if fs.IsLiked("p1") {
		t.Fatal("local state should revert to the committed state")
	}
	if ids := likedIDs(t, store, "u1"); len(ids) != 0 {
		t.Fatalf("like set = %v, want empty", ids)
	}
}

func TestToggleLikePendingUntilStoreAnswers(t *testing.T) {
	fs, _, mem := newTestFeedSession(t, NewSession("u1", ""), testPost("p1", "A", "2025-01-01 10:00:00"))
	gate := newWriteGate()
	mem.SetHook(gate.hook)

	action, err := fs.ToggleLike(context.Background(), "p1")
	if err != nil {
		t.Fatalf("ToggleLike: %v", err)
	}
	if op := gate.next(t); op != repositories.OpPutLike {
		t.Fatalf("op = %s, want PutLike", op)
	}
	if action.State() != models.LikePending {
		t.Fatalf("state = %s, want pending", action.State())
	}
	if !fs.IsLiked("p1") {
		t.Fatal("local state should flip before the store answers")
	}

	short, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if state, err := action.Wait(short); state != models.LikePending || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Wait = %s, %v; want pending with deadline error", state, err)
	}

	gate.answer(t, nil)
	if state, err := waitAction(t, action); state != models.LikeCommitted || err != nil {
		t.Fatalf("settled as %s, %v", state, err)
	}
}

func TestToggleLikeWritesInIssueOrder(t *testing.T) {
	fs, store, mem := newTestFeedSession(t, NewSession("u1", ""),
		testPost("p1", "A", "2025-01-01 10:00:00"),
		testPost("p2", "B", "2025-01-02 10:00:00"),
	)
	gate := newWriteGate()
	mem.SetHook(gate.hook)

	ctx := context.Background()
	first, _ := fs.ToggleLike(ctx, "p1")
	second, _ := fs.ToggleLike(ctx, "p1")
	third, _ := fs.ToggleLike(ctx, "p2")

	want := []string{repositories.OpPutLike, repositories.OpDeleteLike, repositories.OpPutLike}
	for i, op := range want {
		if got := gate.next(t); got != op {
			t.Fatalf("write %d = %s, want %s", i, got, op)
		}
		select {
		case extra := <-gate.calls:
			t.Fatalf("write %s started before write %d settled", extra, i)
		default:
		}
		gate.answer(t, nil)
	}

	for _, action := range []*LikeAction{first, second, third} {
		if state, err := waitAction(t, action); state != models.LikeCommitted || err != nil {
			t.Fatalf("%s settled as %s, %v", action.PostID, state, err)
		}
	}
	if ids := likedIDs(t, store, "u1"); !equalStrings(ids, []string{"p2"}) {
		t.Fatalf("like set = %v, want [p2]", ids)
	}
	if got := fs.LikedIDs(); !equalStrings(got, []string{"p2"}) {
		t.Fatalf("local like set = %v, want [p2]", got)
	}
}

func TestFailedActionKeepsNewerLocalState(t *testing.T) {
	fs, store, mem := newTestFeedSession(t, NewSession("u1", ""), testPost("p1", "A", "2025-01-01 10:00:00"))
	gate := newWriteGate()
	mem.SetHook(gate.hook)

	ctx := context.Background()
	first, _ := fs.ToggleLike(ctx, "p1")
	second, _ := fs.ToggleLike(ctx, "p1")
	third, _ := fs.ToggleLike(ctx, "p1")
	if !fs.IsLiked("p1") {
		t.Fatal("three toggles should leave the post liked locally")
	}

	gate.next(t)
	gate.answer(t, errBoom)
	if state, _ := waitAction(t, first); state != models.LikeFailed {
		t.Fatalf("first settled as %s, want failed", state)
	}
	if !fs.IsLiked("p1") {
		t.Fatal("a superseded failure must not revert the local state")
	}

	gate.next(t)
	gate.answer(t, nil)
	gate.next(t)
	gate.answer(t, nil)
	waitAction(t, second)
	if state, _ := waitAction(t, third); state != models.LikeCommitted {
		t.Fatalf("third settled as %s, want committed", state)
	}
	if !fs.IsLiked("p1") || fs.Action("p1") != third {
		t.Fatal("latest action should own the local state")
	}
	if ids := likedIDs(t, store, "u1"); !equalStrings(ids, []string{"p1"}) {
		t.Fatalf("like set = %v, want [p1]", ids)
	}
}

func TestLikeWriteTimeout(t *testing.T) {
	store, mem := repositories.NewMemoryBackend()
	seedPosts(t, mem, testPost("p1", "A", "2025-01-01 10:00:00"))
	fs := NewFeedSession(NewSession("u1", ""), NewFeedLoader(store.Posts, store.Likes), store.Likes,
		WithLikeWriteTimeout(20*time.Millisecond),
	)
	if err := fs.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	mem.SetHook(func(ctx context.Context, op string) error {
		if op == repositories.OpPutLike {
			<-ctx.Done()
			return ctx.Err()
		}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	action, _ := fs.ToggleLike(ctx, "p1")
	// request cancellation does not abort the write
	cancel()

	state, err := waitAction(t, action)
	if state != models.LikeFailed || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("settled as %s, %v; want failed with deadline", state, err)
	}
	if fs.IsLiked("p1") {
		t.Fatal("timed out like should revert")
	}
}

func TestRefreshKeepsPendingLocalState(t *testing.T) {
	fs, _, mem := newTestFeedSession(t, NewSession("u1", ""), testPost("p1", "A", "2025-01-01 10:00:00"))
	gate := newWriteGate()
	mem.SetHook(gate.hook)

	action, _ := fs.ToggleLike(context.Background(), "p1")
	gate.next(t)

	if err := fs.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if !fs.IsLiked("p1") {
		t.Fatal("refresh should keep the pending like")
	}

	gate.answer(t, nil)
	waitAction(t, action)
	if err := fs.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if !fs.IsLiked("p1") {
		t.Fatal("committed like should survive refresh")
	}
}

func TestRefreshFailureKeepsPosts(t *testing.T) {
	fs, _, mem := newTestFeedSession(t, NewSession("u1", ""), testPost("p1", "A", "2025-01-01 10:00:00"))
	loadedAt := fs.LoadedAt()
	mem.FailOn(errBoom, repositories.OpListPosts)

	if err := fs.Refresh(context.Background()); !errors.Is(err, ErrFeedUnavailable) {
		t.Fatalf("err = %v, want ErrFeedUnavailable", err)
	}
	if len(fs.Posts()) != 1 {
		t.Fatal("previous posts should be kept")
	}
	if !fs.LoadedAt().Equal(loadedAt) {
		t.Fatal("LoadedAt should not move on failure")
	}
}

func TestSetLikedOnlyActsOnChange(t *testing.T) {
	fs, _, _ := newTestFeedSession(t, NewSession("u1", ""), testPost("p1", "A", "2025-01-01 10:00:00"))
	ctx := context.Background()

	action, err := fs.SetLiked(ctx, "p1", false)
	if err != nil || action != nil {
		t.Fatalf("SetLiked(false) = %v, %v; want no action", action, err)
	}

	action, err = fs.SetLiked(ctx, "p1", true)
	if err != nil || action == nil || !action.Liked {
		t.Fatalf("SetLiked(true) = %v, %v", action, err)
	}
	waitAction(t, action)

	again, err := fs.SetLiked(ctx, "p1", true)
	if err != nil || again != action {
		t.Fatalf("SetLiked(true) again = %v, %v; want the previous action", again, err)
	}
}

func TestPostsReturnsCopies(t *testing.T) {
	fs, _, _ := newTestFeedSession(t, NewSession("u1", ""), testPost("p1", "A", "2025-01-01 10:00:00"))

	posts := fs.Posts()
	posts[0].Title = "changed"
	posts[0].PostImages[0] = "changed"

	post, ok := fs.Post("p1")
	if !ok {
		t.Fatal("post p1 missing")
	}
	if post.Title != "A" || post.PostImages[0] != "p1-1" {
		t.Fatalf("session state was mutated through Posts(): %+v", post)
	}
}

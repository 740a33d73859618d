// File: /services/session_store.go
package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	ristrettoStore "github.com/eko/gocache/store/ristretto/v4"
	"github.com/rs/zerolog/log"
	"yonkoma-api/repositories"
)

const defaultFeedSessionTTL = 30 * time.Minute

// FeedSessionStore keeps one FeedSession per authenticated viewer so that
// like actions and the local like set survive across requests. Idle
// sessions expire after the configured TTL.
type FeedSessionStore struct {
	loader  *FeedLoader
	likes   repositories.LikeRepository
	ttl     time.Duration
	options []FeedSessionOption

	client *ristretto.Cache
	cache  cache.CacheInterface[*FeedSession]

	// serializes session creation so one viewer never gets two sessions
	mutex sync.Mutex
}

func NewFeedSessionStore(loader *FeedLoader, likes repositories.LikeRepository, ttl time.Duration, opts ...FeedSessionOption) (*FeedSessionStore, error) {
	client, err := ristretto.NewCache(&ristretto.Config{
		NumCounters:        1e5,
		MaxCost:            1e4,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session cache: %w", err)
	}
	if ttl <= 0 {
		ttl = defaultFeedSessionTTL
	}

	return &FeedSessionStore{
		loader:  loader,
		likes:   likes,
		ttl:     ttl,
		options: opts,
		client:  client,
		cache:   cache.New[*FeedSession](ristrettoStore.NewRistretto(client)),
	}, nil
}

func sessionCacheKey(userID string) string {
	return fmt.Sprintf("feed-session#%s", userID)
}

// Get returns the viewer's session, loading the feed for a new one.
// Unauthenticated viewers always get a fresh, uncached session.
func (st *FeedSessionStore) Get(ctx context.Context, viewer Session) (*FeedSession, error) {
	fs, _, err := st.get(ctx, viewer)
	return fs, err
}

// Refresh returns the viewer's session with a freshly loaded feed
func (st *FeedSessionStore) Refresh(ctx context.Context, viewer Session) (*FeedSession, error) {
	fs, fresh, err := st.get(ctx, viewer)
	if err != nil {
		return nil, err
	}
	if !fresh {
		if err := fs.Refresh(ctx); err != nil {
			return fs, err
		}
	}
	return fs, nil
}

func (st *FeedSessionStore) get(ctx context.Context, viewer Session) (*FeedSession, bool, error) {
	if !viewer.IsAuthenticated() {
		fs := NewFeedSession(viewer, st.loader, st.likes, st.options...)
		return fs, true, fs.Refresh(ctx)
	}

	key := sessionCacheKey(viewer.UserID)
	if fs, err := st.cache.Get(ctx, key); err == nil && fs != nil {
		return fs, false, nil
	}

	st.mutex.Lock()
	defer st.mutex.Unlock()

	if fs, err := st.cache.Get(ctx, key); err == nil && fs != nil {
		return fs, false, nil
	}

	fs := NewFeedSession(viewer, st.loader, st.likes, st.options...)
	if err := fs.Refresh(ctx); err != nil {
		return nil, false, err
	}
	// An uncached session still serves this request; the next one reloads
	if err := st.cache.Set(ctx, key, fs, store.WithExpiration(st.ttl), store.WithCost(1)); err != nil {
		log.Warn().Err(err).Str("user_id", viewer.UserID).Msg("Failed to cache feed session.")
		return fs, true, nil
	}
	st.client.Wait()
	return fs, true, nil
}

// Peek returns the cached session for userID without loading one
func (st *FeedSessionStore) Peek(ctx context.Context, userID string) (*FeedSession, bool) {
	fs, err := st.cache.Get(ctx, sessionCacheKey(userID))
	if err != nil || fs == nil {
		return nil, false
	}
	return fs, true
}

// Drop forgets the viewer's session. Like writes already queued still run.
func (st *FeedSessionStore) Drop(ctx context.Context, userID string) error {
	return st.cache.Delete(ctx, sessionCacheKey(userID))
}

func (st *FeedSessionStore) Close() {
	st.client.Close()
}

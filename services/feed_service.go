// File: /services/feed_service.go
package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"yonkoma-api/models"
	"yonkoma-api/repositories"
)

// FeedLoader merges the post collection with the viewer's like set
type FeedLoader struct {
	posts repositories.PostRepository
	likes repositories.LikeRepository
}

func NewFeedLoader(posts repositories.PostRepository, likes repositories.LikeRepository) *FeedLoader {
	return &FeedLoader{posts: posts, likes: likes}
}

// LoadFeed returns every post, newest first, with IsLiked set for the
// viewer. A failed post fetch yields an empty feed and ErrFeedUnavailable.
// A failed like-set fetch is logged and the feed renders with nothing liked.
func (l *FeedLoader) LoadFeed(ctx context.Context, session Session) ([]models.Post, error) {
	posts, err := l.posts.ListPosts(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to fetch posts for feed.")
		return []models.Post{}, fmt.Errorf("%w: %w", ErrFeedUnavailable, err)
	}

	liked := l.likedSet(ctx, session)
	for i := range posts {
		posts[i].IsLiked = liked[posts[i].ID]
	}

	SortByRecency(posts)
	return posts, nil
}

func (l *FeedLoader) likedSet(ctx context.Context, session Session) map[string]bool {
	if !session.IsAuthenticated() {
		return map[string]bool{}
	}
	ids, err := l.likes.ListLikedPostIDs(ctx, session.UserID)
	if err != nil {
		log.Warn().Err(err).Str("user_id", session.UserID).Msg("Failed to fetch like set, rendering feed unliked.")
		return map[string]bool{}
	}
	return lo.Associate(ids, func(id string) (string, bool) {
		return id, true
	})
}

// SortByRecency orders posts by CreatedAt, newest first. Posts whose
// timestamp does not parse sort after every parseable one and keep their
// relative order.
func SortByRecency(posts []models.Post) {
	type key struct {
		at time.Time
		ok bool
	}
	keys := make(map[string]key, len(posts))
	for _, post := range posts {
		at, err := time.ParseInLocation(models.TimestampLayout, post.CreatedAt, time.UTC)
		keys[post.ID] = key{at: at, ok: err == nil}
	}

	sort.SliceStable(posts, func(i, j int) bool {
		a, b := keys[posts[i].ID], keys[posts[j].ID]
		if !a.ok {
			return false
		}
		if !b.ok {
			return true
		}
		return a.at.After(b.at)
	})
}

// File: /services/saved_items.go
package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"
	"yonkoma-api/models"
	"yonkoma-api/repositories"
)

// BuildSavedItems joins like records with the viewer's read states
func BuildSavedItems(likes []models.LikeRecord, reads []models.ReadState) []models.SavedItem {
	byPost := lo.Associate(reads, func(state models.ReadState) (string, models.ReadState) {
		return state.PostID, state
	})
	return lo.Map(likes, func(like models.LikeRecord, _ int) models.SavedItem {
		if state, ok := byPost[like.PostID]; ok {
			return models.NewSavedItem(like, &state)
		}
		return models.NewSavedItem(like, nil)
	})
}

// ProjectSavedItems filters items by searchText, matched case-insensitively
// against title or episode, and orders them by option. Every ordering is
// stable with respect to the input.
func ProjectSavedItems(items []models.SavedItem, searchText string, option models.SortOption) []models.SavedItem {
	needle := strings.ToLower(searchText)
	filtered := lo.Filter(items, func(item models.SavedItem, _ int) bool {
		return needle == "" ||
			strings.Contains(strings.ToLower(item.Title), needle) ||
			strings.Contains(strings.ToLower(item.Episode), needle)
	})

	switch option {
	case models.SortDateAscending:
		sort.SliceStable(filtered, func(i, j int) bool {
			return filtered[i].SavedAt.Before(filtered[j].SavedAt)
		})
	case models.SortTitleAscending:
		sort.SliceStable(filtered, func(i, j int) bool {
			return filtered[i].Title < filtered[j].Title
		})
	case models.SortUnreadFirst:
		sort.SliceStable(filtered, func(i, j int) bool {
			return !filtered[i].IsRead && filtered[j].IsRead
		})
	default:
		sort.SliceStable(filtered, func(i, j int) bool {
			return filtered[i].SavedAt.After(filtered[j].SavedAt)
		})
	}
	return filtered
}

// SavedStats summarizes items for the profile header
func SavedStats(items []models.SavedItem) models.UserStats {
	read := lo.CountBy(items, func(item models.SavedItem) bool {
		return item.IsRead
	})
	return models.UserStats{
		Saved:  len(items),
		Read:   read,
		Unread: len(items) - read,
	}
}

// SavedItemsService serves the saved-items screen from the like store
type SavedItemsService struct {
	likes repositories.LikeRepository
	reads repositories.ReadStateRepository
	now   func() time.Time

	sessions *FeedSessionStore
}

type SavedItemsOption func(*SavedItemsService)

// WithFeedSessions lets read state be recorded for likes still being written
func WithFeedSessions(sessions *FeedSessionStore) SavedItemsOption {
	return func(s *SavedItemsService) {
		s.sessions = sessions
	}
}

func NewSavedItemsService(likes repositories.LikeRepository, reads repositories.ReadStateRepository, opts ...SavedItemsOption) *SavedItemsService {
	s := &SavedItemsService{likes: likes, reads: reads, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SavedItemsService) items(ctx context.Context, session Session) ([]models.SavedItem, error) {
	if !session.IsAuthenticated() {
		return nil, ErrNotAuthenticated
	}
	likes, err := s.likes.ListLikes(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	reads, err := s.reads.ListReadStates(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	return BuildSavedItems(likes, reads), nil
}

func (s *SavedItemsService) List(ctx context.Context, session Session, searchText string, option models.SortOption) ([]models.SavedItem, error) {
	items, err := s.items(ctx, session)
	if err != nil {
		return nil, err
	}
	return ProjectSavedItems(items, searchText, option), nil
}

func (s *SavedItemsService) Stats(ctx context.Context, session Session) (models.UserStats, error) {
	items, err := s.items(ctx, session)
	if err != nil {
		return models.UserStats{}, err
	}
	return SavedStats(items), nil
}

// MarkRead records reading progress for a post the viewer has liked.
// Progress is clamped to [0, 1] and a read post always has progress 1.
func (s *SavedItemsService) MarkRead(ctx context.Context, session Session, postID string, isRead bool, progress float64) (*models.ReadState, error) {
	if !session.IsAuthenticated() {
		return nil, ErrNotAuthenticated
	}

	liked, err := s.isLiked(ctx, session, postID)
	if err != nil {
		return nil, err
	}
	if !liked {
		return nil, ErrPostNotFound
	}

	progress = lo.Clamp(progress, 0, 1)
	if isRead {
		progress = 1
	}
	state := &models.ReadState{
		UserID:    session.UserID,
		PostID:    postID,
		IsRead:    isRead,
		Progress:  progress,
		UpdatedAt: s.now(),
	}
	if err := s.reads.PutReadState(ctx, state); err != nil {
		return nil, fmt.Errorf("failed to save read state: %w", err)
	}
	return state, nil
}

// isLiked prefers the viewer's cached feed session, which already reflects
// likes whose write is still pending
func (s *SavedItemsService) isLiked(ctx context.Context, session Session, postID string) (bool, error) {
	if s.sessions != nil {
		if fs, ok := s.sessions.Peek(ctx, session.UserID); ok {
			if _, ok := fs.Post(postID); ok {
				return fs.IsLiked(postID), nil
			}
		}
	}

	ids, err := s.likes.ListLikedPostIDs(ctx, session.UserID)
	if err != nil {
		return false, err
	}
	return lo.Contains(ids, postID), nil
}

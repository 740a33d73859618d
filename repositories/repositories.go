// File: /repositories/repositories.go
package repositories

import (
	"context"
	"errors"

	"yonkoma-api/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

// PostRepository is the remote post collection keyed by post id
type PostRepository interface {
	ListPosts(ctx context.Context) ([]models.Post, error)
	GetPost(ctx context.Context, id string) (*models.Post, error)
	CreatePost(ctx context.Context, post *models.Post) error
}

// LikeRepository is the per-user like collection keyed by post id.
// PutLike overwrites an existing record for the same (user, post) pair and
// DeleteLike of a missing record succeeds.
type LikeRepository interface {
	ListLikedPostIDs(ctx context.Context, userID string) ([]string, error)
	ListLikes(ctx context.Context, userID string) ([]models.LikeRecord, error)
	ListAllLikes(ctx context.Context) ([]models.LikeRecord, error)
	PutLike(ctx context.Context, like *models.LikeRecord) error
	DeleteLike(ctx context.Context, userID, postID string) error
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateProfileImage(ctx context.Context, id, url string) error
}

type ReadStateRepository interface {
	ListReadStates(ctx context.Context, userID string) ([]models.ReadState, error)
	PutReadState(ctx context.Context, state *models.ReadState) error
}

// Store bundles the repositories of one backend
type Store struct {
	Posts PostRepository
	Likes LikeRepository
	Users UserRepository
	Reads ReadStateRepository

	close func() error
}

// Close releases the backend connection, if any
func (s *Store) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

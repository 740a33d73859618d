// File: /repositories/firestore.go
package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"yonkoma-api/models"
)

// Collection names
const (
	postsCollection = "posts"
	usersCollection = "users"
	likesCollection = "likes"
	readsCollection = "reads"
)

// FirestoreStore keeps posts in `posts`, users in `users` and each user's
// likes and read states in `users/{uid}/likes` and `users/{uid}/reads`.
type FirestoreStore struct {
	client *firestore.Client
}

func NewFirestoreStore(ctx context.Context, projectID, credentialsFile string) (*FirestoreStore, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	return &FirestoreStore{client: client}, nil
}

// NewFirestoreBackend wraps s as a Store
func NewFirestoreBackend(s *FirestoreStore) *Store {
	return &Store{Posts: s, Likes: s, Users: s, Reads: s, close: s.client.Close}
}

type postDocument struct {
	ID                  string   `firestore:"id"`
	Title               string   `firestore:"title"`
	Episode             string   `firestore:"episode,omitempty"`
	UserID              string   `firestore:"userId"`
	UserProfileImageURL *string  `firestore:"userProfileImageUrl,omitempty"`
	PostImages          []string `firestore:"postImages"`
	ThumbnailPost       string   `firestore:"thumbnailPost"`
	CreatedAt           string   `firestore:"createdAt"`
}

type likeDocument struct {
	PostID              string    `firestore:"postId"`
	Title               string    `firestore:"title"`
	Episode             string    `firestore:"episode,omitempty"`
	ThumbnailPost       string    `firestore:"thumbnailPost"`
	UserID              string    `firestore:"userId"`
	PostImages          []string  `firestore:"postImages"`
	CreatedAt           string    `firestore:"createdAt"`
	LikedAt             time.Time `firestore:"likedAt"`
	UserProfileImageURL *string   `firestore:"userProfileImageUrl,omitempty"`
}

type userDocument struct {
	Name            string    `firestore:"name"`
	Email           string    `firestore:"email"`
	PasswordHash    string    `firestore:"passwordHash"`
	CreatedAt       time.Time `firestore:"createdAt"`
	ProfileImageURL *string   `firestore:"profileImageUrl,omitempty"`
}

type readDocument struct {
	IsRead    bool      `firestore:"isRead"`
	Progress  float64   `firestore:"progress"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

func (s *FirestoreStore) likes(userID string) *firestore.CollectionRef {
	return s.client.Collection(usersCollection).Doc(userID).Collection(likesCollection)
}

func (s *FirestoreStore) reads(userID string) *firestore.CollectionRef {
	return s.client.Collection(usersCollection).Doc(userID).Collection(readsCollection)
}

func postFromSnapshot(snap *firestore.DocumentSnapshot) (models.Post, error) {
	var doc postDocument
	if err := snap.DataTo(&doc); err != nil {
		return models.Post{}, fmt.Errorf("failed to decode post %s: %w", snap.Ref.ID, err)
	}
	if doc.ID == "" {
		doc.ID = snap.Ref.ID
	}
	return models.Post{
		ID:                  doc.ID,
		Title:               doc.Title,
		Episode:             doc.Episode,
		UserID:              doc.UserID,
		UserProfileImageURL: doc.UserProfileImageURL,
		PostImages:          models.StringSlice(doc.PostImages),
		ThumbnailPost:       doc.ThumbnailPost,
		CreatedAt:           doc.CreatedAt,
	}, nil
}

func (s *FirestoreStore) ListPosts(ctx context.Context) ([]models.Post, error) {
	snaps, err := s.client.Collection(postsCollection).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	posts := make([]models.Post, 0, len(snaps))
	for _, snap := range snaps {
		post, err := postFromSnapshot(snap)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, nil
}

func (s *FirestoreStore) GetPost(ctx context.Context, id string) (*models.Post, error) {
	snap, err := s.client.Collection(postsCollection).Doc(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	post, err := postFromSnapshot(snap)
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (s *FirestoreStore) CreatePost(ctx context.Context, post *models.Post) error {
	doc := postDocument{
		ID:                  post.ID,
		Title:               post.Title,
		Episode:             post.Episode,
		UserID:              post.UserID,
		UserProfileImageURL: post.UserProfileImageURL,
		PostImages:          post.PostImages.Clone(),
		ThumbnailPost:       post.ThumbnailPost,
		CreatedAt:           post.CreatedAt,
	}
	if _, err := s.client.Collection(postsCollection).Doc(post.ID).Create(ctx, doc); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

func (s *FirestoreStore) ListLikedPostIDs(ctx context.Context, userID string) ([]string, error) {
	refs, err := s.likes(userID).DocumentRefs(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list liked post ids: %w", err)
	}
	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		ids = append(ids, ref.ID)
	}
	return ids, nil
}

func likeFromSnapshot(userID string, snap *firestore.DocumentSnapshot) (models.LikeRecord, error) {
	var doc likeDocument
	if err := snap.DataTo(&doc); err != nil {
		return models.LikeRecord{}, fmt.Errorf("failed to decode like %s: %w", snap.Ref.ID, err)
	}
	if doc.PostID == "" {
		doc.PostID = snap.Ref.ID
	}
	return models.LikeRecord{
		UserID:              userID,
		PostID:              doc.PostID,
		Title:               doc.Title,
		Episode:             doc.Episode,
		ThumbnailPost:       doc.ThumbnailPost,
		PostUserID:          doc.UserID,
		PostImages:          models.StringSlice(doc.PostImages),
		CreatedAt:           doc.CreatedAt,
		LikedAt:             doc.LikedAt,
		UserProfileImageURL: doc.UserProfileImageURL,
	}, nil
}

func (s *FirestoreStore) ListLikes(ctx context.Context, userID string) ([]models.LikeRecord, error) {
	snaps, err := s.likes(userID).OrderBy("likedAt", firestore.Desc).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list likes: %w", err)
	}
	likes := make([]models.LikeRecord, 0, len(snaps))
	for _, snap := range snaps {
		like, err := likeFromSnapshot(userID, snap)
		if err != nil {
			return nil, err
		}
		likes = append(likes, like)
	}
	return likes, nil
}

func (s *FirestoreStore) ListAllLikes(ctx context.Context) ([]models.LikeRecord, error) {
	snaps, err := s.client.CollectionGroup(likesCollection).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list likes: %w", err)
	}
	likes := make([]models.LikeRecord, 0, len(snaps))
	for _, snap := range snaps {
		owner := snap.Ref.Parent.Parent
		if owner == nil {
			continue
		}
		like, err := likeFromSnapshot(owner.ID, snap)
		if err != nil {
			return nil, err
		}
		likes = append(likes, like)
	}
	return likes, nil
}

// PutLike stamps likedAt with the server time
func (s *FirestoreStore) PutLike(ctx context.Context, like *models.LikeRecord) error {
	data := map[string]interface{}{
		"postId":        like.PostID,
		"title":         like.Title,
		"thumbnailPost": like.ThumbnailPost,
		"userId":        like.PostUserID,
		"postImages":    []string(like.PostImages.Clone()),
		"createdAt":     like.CreatedAt,
		"likedAt":       firestore.ServerTimestamp,
	}
	if like.Episode != "" {
		data["episode"] = like.Episode
	}
	if like.UserProfileImageURL != nil {
		data["userProfileImageUrl"] = *like.UserProfileImageURL
	}
	_, err := s.likes(like.UserID).Doc(like.PostID).Set(ctx, data)
	return err
}

func (s *FirestoreStore) DeleteLike(ctx context.Context, userID, postID string) error {
	_, err := s.likes(userID).Doc(postID).Delete(ctx)
	return err
}

func userFromSnapshot(snap *firestore.DocumentSnapshot) (*models.User, error) {
	var doc userDocument
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode user %s: %w", snap.Ref.ID, err)
	}
	return &models.User{
		ID:              snap.Ref.ID,
		Name:            doc.Name,
		Email:           doc.Email,
		Password:        doc.PasswordHash,
		ProfileImageURL: doc.ProfileImageURL,
		CreatedAt:       doc.CreatedAt,
		UpdatedAt:       snap.UpdateTime,
	}, nil
}

func (s *FirestoreStore) CreateUser(ctx context.Context, user *models.User) error {
	if _, err := s.GetUserByEmail(ctx, user.Email); err == nil {
		return ErrDuplicate
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}

	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	doc := userDocument{
		Name:            user.Name,
		Email:           user.Email,
		PasswordHash:    user.Password,
		CreatedAt:       user.CreatedAt,
		ProfileImageURL: user.ProfileImageURL,
	}
	if _, err := s.client.Collection(usersCollection).Doc(user.ID).Create(ctx, doc); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

func (s *FirestoreStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	snap, err := s.client.Collection(usersCollection).Doc(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return userFromSnapshot(snap)
}

func (s *FirestoreStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	snaps, err := s.client.Collection(usersCollection).
		Where("email", "==", email).
		Limit(1).
		Documents(ctx).
		GetAll()
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, ErrNotFound
	}
	return userFromSnapshot(snaps[0])
}

func (s *FirestoreStore) UpdateProfileImage(ctx context.Context, id, url string) error {
	_, err := s.client.Collection(usersCollection).Doc(id).Update(ctx, []firestore.Update{
		{Path: "profileImageUrl", Value: url},
	})
	if isNotFound(err) {
		return ErrNotFound
	}
	return err
}

func (s *FirestoreStore) ListReadStates(ctx context.Context, userID string) ([]models.ReadState, error) {
	snaps, err := s.reads(userID).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list read states: %w", err)
	}
	states := make([]models.ReadState, 0, len(snaps))
	for _, snap := range snaps {
		var doc readDocument
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode read state %s: %w", snap.Ref.ID, err)
		}
		states = append(states, models.ReadState{
			UserID:    userID,
			PostID:    snap.Ref.ID,
			IsRead:    doc.IsRead,
			Progress:  doc.Progress,
			UpdatedAt: doc.UpdatedAt,
		})
	}
	return states, nil
}

func (s *FirestoreStore) PutReadState(ctx context.Context, state *models.ReadState) error {
	_, err := s.reads(state.UserID).Doc(state.PostID).Set(ctx, readDocument{
		IsRead:    state.IsRead,
		Progress:  state.Progress,
		UpdatedAt: state.UpdatedAt,
	})
	return err
}

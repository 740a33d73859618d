// File: /models/like.go
package models

import "time"

// LikeRecord marks that a user liked a post. It carries a snapshot of the
// post taken at like time which is never re-synced.
type LikeRecord struct {
	UserID              string      `json:"-" gorm:"primaryKey;size:191"`
	PostID              string      `json:"post_id" gorm:"primaryKey;size:191"`
	Title               string      `json:"title" gorm:"size:255"`
	Episode             string      `json:"episode" gorm:"size:255"`
	ThumbnailPost       string      `json:"thumbnail_post" gorm:"size:500"`
	PostUserID          string      `json:"user_id" gorm:"column:post_user_id;size:191"`
	PostImages          StringSlice `json:"post_images" gorm:"type:json"`
	CreatedAt           string      `json:"created_at" gorm:"size:19"`
	LikedAt             time.Time   `json:"liked_at" gorm:"index"`
	UserProfileImageURL *string     `json:"user_profile_image_url" gorm:"size:500"`
}

func (LikeRecord) TableName() string {
	return "likes"
}

// NewLikeRecord snapshots the current post fields for userID
func NewLikeRecord(post Post, userID string, likedAt time.Time) LikeRecord {
	snapshot := post.Clone()
	return LikeRecord{
		UserID:              userID,
		PostID:              snapshot.ID,
		Title:               snapshot.Title,
		Episode:             snapshot.Episode,
		ThumbnailPost:       snapshot.ThumbnailPost,
		PostUserID:          snapshot.UserID,
		PostImages:          snapshot.PostImages,
		CreatedAt:           snapshot.CreatedAt,
		LikedAt:             likedAt,
		UserProfileImageURL: snapshot.UserProfileImageURL,
	}
}

// LikeState tracks a single like or unlike action against the like store
type LikeState string

const (
	LikePending   LikeState = "pending"
	LikeCommitted LikeState = "committed"
	LikeFailed    LikeState = "failed"
)

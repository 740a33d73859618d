// File: /models/user.go
package models

import (
	"time"
)

type User struct {
	ID              string    `json:"id" gorm:"primaryKey;size:191"`
	Name            string    `json:"name" gorm:"not null;size:255"`
	Email           string    `json:"email" gorm:"uniqueIndex;not null;size:255"`
	Password        string    `json:"-" gorm:"not null;size:255"`
	ProfileImageURL *string   `json:"profile_image_url" gorm:"size:500"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// UserStats summarizes the saved-items screen header
type UserStats struct {
	Saved  int `json:"saved"`
	Read   int `json:"read"`
	Unread int `json:"unread"`
}

// ProfileResponse is the profile screen payload
type ProfileResponse struct {
	User  User      `json:"user"`
	Stats UserStats `json:"stats"`
}

// File: /models/saved_item.go
package models

import (
	"fmt"
	"time"
)

// ReadState is a user's reading progress on a liked post
type ReadState struct {
	UserID    string    `json:"-" gorm:"primaryKey;size:191"`
	PostID    string    `json:"post_id" gorm:"primaryKey;size:191"`
	IsRead    bool      `json:"is_read" gorm:"default:false"`
	Progress  float64   `json:"progress" gorm:"default:0"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ReadState) TableName() string {
	return "read_states"
}

// SavedItem is one row of the saved-items screen
type SavedItem struct {
	PostID    string    `json:"post_id"`
	Title     string    `json:"title"`
	Episode   string    `json:"episode"`
	SavedAt   time.Time `json:"saved_at"`
	Thumbnail string    `json:"thumbnail"`
	IsRead    bool      `json:"is_read"`
	Progress  float64   `json:"progress"`
}

// NewSavedItem builds a row from a like record and an optional read state
func NewSavedItem(like LikeRecord, read *ReadState) SavedItem {
	item := SavedItem{
		PostID:    like.PostID,
		Title:     like.Title,
		Episode:   like.Episode,
		SavedAt:   like.LikedAt,
		Thumbnail: like.ThumbnailPost,
	}
	if read != nil {
		item.IsRead = read.IsRead
		item.Progress = read.Progress
	}
	return item
}

type SortOption string

const (
	SortDateDescending SortOption = "dateDescending"
	SortDateAscending  SortOption = "dateAscending"
	SortTitleAscending SortOption = "titleAscending"
	SortUnreadFirst    SortOption = "unreadFirst"
)

// SortOptions lists every option in menu order
var SortOptions = []SortOption{
	SortDateDescending,
	SortDateAscending,
	SortTitleAscending,
	SortUnreadFirst,
}

// ParseSortOption maps the empty string to the default option
func ParseSortOption(s string) (SortOption, error) {
	if s == "" {
		return SortDateDescending, nil
	}
	for _, option := range SortOptions {
		if string(option) == s {
			return option, nil
		}
	}
	return "", fmt.Errorf("unknown sort option %q", s)
}

// Label is the menu text shown by the client
func (o SortOption) Label() string {
	switch o {
	case SortDateAscending:
		return "保存日時（古い順）"
	case SortTitleAscending:
		return "作品名（あいうえお順）"
	case SortUnreadFirst:
		return "未読優先"
	default:
		return "保存日時（新しい順）"
	}
}

// File: /models/post.go
package models

import (
	"fmt"
)

const (
	// PanelCount is the number of panels in a yonkoma
	PanelCount = 4
	// TimestampLayout is the textual format of Post.CreatedAt
	TimestampLayout = "2006-01-02 15:04:05"
	// ThumbnailPageLabel marks the last page of the detail viewer
	ThumbnailPageLabel = "サムネイル"
)

// Post is one published four-panel comic. Posts are immutable after creation.
type Post struct {
	ID                  string      `json:"id" gorm:"primaryKey;size:191"`
	Title               string      `json:"title" gorm:"not null;size:255"`
	Episode             string      `json:"episode" gorm:"size:255"`
	UserID              string      `json:"user_id" gorm:"not null;size:191;index"`
	UserProfileImageURL *string     `json:"user_profile_image_url" gorm:"size:500"`
	PostImages          StringSlice `json:"post_images" gorm:"type:json"`
	ThumbnailPost       string      `json:"thumbnail_post" gorm:"size:500"`
	CreatedAt           string      `json:"created_at" gorm:"size:19;index"`

	// IsLiked is the viewer's like state and is never persisted
	IsLiked bool `json:"is_liked" gorm:"-"`
}

// Page is one screen of the post detail viewer
type Page struct {
	Index    int    `json:"index"`
	ImageURL string `json:"image_url"`
	Label    string `json:"label"`
}

// Pages lists the panels in display order followed by the thumbnail
func (p *Post) Pages() []Page {
	pages := make([]Page, 0, len(p.PostImages)+1)
	for i, url := range p.PostImages {
		pages = append(pages, Page{
			Index:    i,
			ImageURL: url,
			Label:    fmt.Sprintf("%d/%d", i+1, len(p.PostImages)),
		})
	}
	pages = append(pages, Page{
		Index:    len(p.PostImages),
		ImageURL: p.ThumbnailPost,
		Label:    ThumbnailPageLabel,
	})
	return pages
}

// Clone returns a deep copy of the post
func (p Post) Clone() Post {
	out := p
	out.PostImages = p.PostImages.Clone()
	if p.UserProfileImageURL != nil {
		url := *p.UserProfileImageURL
		out.UserProfileImageURL = &url
	}
	return out
}

// File: /services/publish_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"yonkoma-api/models"
	"yonkoma-api/repositories"
	"yonkoma-api/utils"
)

// ImageUpload is one image of a post in the publish form
type ImageUpload struct {
	Data        []byte
	ContentType string
}

type PublishRequest struct {
	Title     string
	Episode   string
	Thumbnail *ImageUpload
	Panels    []ImageUpload
}

// PostValidationError carries the message shown to the author
type PostValidationError struct {
	Message string
}

func (e *PostValidationError) Error() string {
	return e.Message
}

func (e *PostValidationError) Unwrap() error {
	return ErrInvalidPost
}

// Validate checks the request the way the publish form does
func (r PublishRequest) Validate() error {
	if utils.IsBlank(r.Title) {
		return &PostValidationError{Message: "タイトルを入力してください。"}
	}
	if r.Thumbnail == nil || len(r.Thumbnail.Data) == 0 {
		return &PostValidationError{Message: "サムネイル画像を選択してください。"}
	}
	if len(r.Panels) != models.PanelCount {
		return &PostValidationError{Message: fmt.Sprintf("%dコマ分の画像が必要です。", models.PanelCount)}
	}
	for _, panel := range r.Panels {
		if len(panel.Data) == 0 {
			return &PostValidationError{Message: fmt.Sprintf("%dコマ分の画像が必要です。", models.PanelCount)}
		}
	}
	return nil
}

// PublishService uploads the images of a new post and writes it to the
// post store
type PublishService struct {
	posts repositories.PostRepository
	users repositories.UserRepository
	media MediaHost
	now   func() time.Time
}

func NewPublishService(posts repositories.PostRepository, users repositories.UserRepository, media MediaHost) *PublishService {
	return &PublishService{posts: posts, users: users, media: media, now: time.Now}
}

// Publish validates req, uploads the thumbnail then every panel in order,
// and creates the post. Any failed upload aborts the post.
func (p *PublishService) Publish(ctx context.Context, session Session, req PublishRequest) (*models.Post, error) {
	if !session.IsAuthenticated() {
		return nil, ErrNotAuthenticated
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	thumbnailURL, err := p.upload(ctx, *req.Thumbnail)
	if err != nil {
		return nil, err
	}
	panels := make(models.StringSlice, 0, len(req.Panels))
	for _, panel := range req.Panels {
		url, err := p.upload(ctx, panel)
		if err != nil {
			return nil, err
		}
		panels = append(panels, url)
	}

	post := &models.Post{
		ID:                  uuid.New().String(),
		Title:               req.Title,
		Episode:             req.Episode,
		UserID:              session.UserID,
		UserProfileImageURL: p.authorImage(ctx, session.UserID),
		PostImages:          panels,
		ThumbnailPost:       thumbnailURL,
		CreatedAt:           utils.FormatTimestamp(p.now()),
	}
	if err := p.posts.CreatePost(ctx, post); err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	log.Info().Str("post_id", post.ID).Str("user_id", post.UserID).Msg("Published post.")
	return post, nil
}

func (p *PublishService) upload(ctx context.Context, image ImageUpload) (string, error) {
	contentType := image.ContentType
	if contentType == "" {
		contentType = "image/jpeg"
	}
	publicID := fmt.Sprintf("thumbnail_%s", uuid.New().String())
	url, err := p.media.Upload(ctx, image.Data, contentType, publicID)
	if err != nil {
		if !errors.Is(err, ErrMediaUpload) {
			err = fmt.Errorf("%w: %w", ErrMediaUpload, err)
		}
		return "", err
	}
	return url, nil
}

func (p *PublishService) authorImage(ctx context.Context, userID string) *string {
	user, err := p.users.GetUser(ctx, userID)
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("Failed to fetch author profile image.")
		return nil
	}
	if user.ProfileImageURL == nil || *user.ProfileImageURL == "" {
		return nil
	}
	url := *user.ProfileImageURL
	return &url
}

// UploadProfileImage stores a new profile image for the viewer and records
// its URL. Posts published earlier keep the URL they were created with.
func (p *PublishService) UploadProfileImage(ctx context.Context, session Session, image ImageUpload) (string, error) {
	if !session.IsAuthenticated() {
		return "", ErrNotAuthenticated
	}
	if len(image.Data) == 0 {
		return "", &PostValidationError{Message: "画像を選択してください。"}
	}

	contentType := image.ContentType
	if contentType == "" {
		contentType = "image/jpeg"
	}
	url, err := p.media.Upload(ctx, image.Data, contentType, fmt.Sprintf("profile_%s", uuid.New().String()))
	if err != nil {
		return "", err
	}
	if err := p.users.UpdateProfileImage(ctx, session.UserID, url); err != nil {
		return "", fmt.Errorf("failed to save profile image: %w", err)
	}
	return url, nil
}

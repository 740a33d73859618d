// File: /controllers/post_controller.go
package controllers

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"yonkoma-api/middleware"
	"yonkoma-api/models"
	"yonkoma-api/repositories"
	"yonkoma-api/services"
	"yonkoma-api/utils"
)

const maxImageSize = 10 << 20

type PostController struct {
	posts    repositories.PostRepository
	likes    repositories.LikeRepository
	sessions *services.FeedSessionStore
	publish  *services.PublishService
}

func NewPostController(posts repositories.PostRepository, likes repositories.LikeRepository, sessions *services.FeedSessionStore, publish *services.PublishService) *PostController {
	return &PostController{
		posts:    posts,
		likes:    likes,
		sessions: sessions,
		publish:  publish,
	}
}

type PostDetailResponse struct {
	models.Post
	Pages      []models.Page `json:"pages"`
	CreatedAgo string        `json:"created_ago"`
}

func (pc *PostController) GetPost(c *gin.Context) {
	ctx := c.Request.Context()
	post, err := pc.posts.GetPost(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	session := middleware.CurrentSession(c)
	if session.IsAuthenticated() {
		if fs, ok := pc.sessions.Peek(ctx, session.UserID); ok {
			post.IsLiked = fs.IsLiked(post.ID)
		} else if ids, err := pc.likes.ListLikedPostIDs(ctx, session.UserID); err == nil {
			post.IsLiked = lo.Contains(ids, post.ID)
		} else {
			log.Warn().Err(err).Str("user_id", session.UserID).Msg("Failed to fetch like set for post detail.")
		}
	}

	c.JSON(http.StatusOK, PostDetailResponse{
		Post:       *post,
		Pages:      post.Pages(),
		CreatedAgo: utils.TimeAgo(post.CreatedAt, timeNow()),
	})
}

// CreatePost publishes a post from a multipart form with title, episode,
// thumbnail and one panels file per panel in display order
func (pc *PostController) CreatePost(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		utils.SendAlert(c, http.StatusBadRequest, "Invalid form", "投稿に失敗しました。再試行してください。")
		return
	}

	req := services.PublishRequest{
		Title:   c.PostForm("title"),
		Episode: c.PostForm("episode"),
	}
	if files := form.File["thumbnail"]; len(files) > 0 {
		thumbnail, err := readImage(files[0])
		if err != nil {
			utils.SendAlert(c, http.StatusBadRequest, "Invalid thumbnail", err.Error())
			return
		}
		req.Thumbnail = &thumbnail
	}
	for _, file := range form.File["panels"] {
		panel, err := readImage(file)
		if err != nil {
			utils.SendAlert(c, http.StatusBadRequest, "Invalid panel", err.Error())
			return
		}
		req.Panels = append(req.Panels, panel)
	}

	post, err := pc.publish.Publish(c.Request.Context(), middleware.CurrentSession(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SendCreated(c, "投稿できました！", post)
}

func readImage(header *multipart.FileHeader) (services.ImageUpload, error) {
	if header.Size > maxImageSize {
		return services.ImageUpload{}, fmt.Errorf("画像サイズが大きすぎます（最大%dMB）", maxImageSize>>20)
	}
	file, err := header.Open()
	if err != nil {
		return services.ImageUpload{}, fmt.Errorf("画像を読み込めませんでした")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxImageSize+1))
	if err != nil {
		return services.ImageUpload{}, fmt.Errorf("画像を読み込めませんでした")
	}
	return services.ImageUpload{
		Data:        data,
		ContentType: header.Header.Get("Content-Type"),
	}, nil
}

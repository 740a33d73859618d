// File: /controllers/user_controller.go
package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"yonkoma-api/middleware"
	"yonkoma-api/models"
	"yonkoma-api/repositories"
	"yonkoma-api/services"
	"yonkoma-api/utils"
)

type UserController struct {
	users    repositories.UserRepository
	likes    repositories.LikeRepository
	saved    *services.SavedItemsService
	sessions *services.FeedSessionStore
	publish  *services.PublishService
}

func NewUserController(users repositories.UserRepository, likes repositories.LikeRepository, saved *services.SavedItemsService, sessions *services.FeedSessionStore, publish *services.PublishService) *UserController {
	return &UserController{
		users:    users,
		likes:    likes,
		saved:    saved,
		sessions: sessions,
		publish:  publish,
	}
}

type SavedQuery struct {
	Search string `form:"search"`
	Sort   string `form:"sort" binding:"omitempty,sortoption"`
}

type ReadRequest struct {
	IsRead   bool     `json:"is_read"`
	Progress *float64 `json:"progress" binding:"omitempty,gte=0,lte=1"`
}

func (uc *UserController) GetProfile(c *gin.Context) {
	ctx := c.Request.Context()
	session := middleware.CurrentSession(c)

	user, err := uc.users.GetUser(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			utils.SendError(c, http.StatusNotFound, "User not found")
			return
		}
		respondError(c, err)
		return
	}

	stats, err := uc.saved.Stats(ctx, session)
	if err != nil {
		log.Warn().Err(err).Str("user_id", session.UserID).Msg("Failed to count saved items.")
	}

	c.JSON(http.StatusOK, models.ProfileResponse{
		User:  *user,
		Stats: stats,
	})
}

func (uc *UserController) UploadProfileImage(c *gin.Context) {
	header, err := c.FormFile("image")
	if err != nil {
		utils.SendAlert(c, http.StatusBadRequest, "Image required", "画像を選択してください。")
		return
	}
	image, err := readImage(header)
	if err != nil {
		utils.SendAlert(c, http.StatusBadRequest, "Invalid image", err.Error())
		return
	}

	url, err := uc.publish.UploadProfileImage(c.Request.Context(), middleware.CurrentSession(c), image)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SendSuccess(c, "Profile image updated", gin.H{"profile_image_url": url})
}

// GetSaved lists the viewer's liked posts filtered by search and ordered by
// sort
func (uc *UserController) GetSaved(c *gin.Context) {
	var query SavedQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		utils.SendValidationError(c, "sort must be one of dateDescending, dateAscending, titleAscending, unreadFirst")
		return
	}
	option, _ := models.ParseSortOption(query.Sort)

	session := middleware.CurrentSession(c)
	items, err := uc.saved.List(c.Request.Context(), session, query.Search, option)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items":      items,
		"stats":      services.SavedStats(items),
		"sort":       option,
		"sort_label": option.Label(),
	})
}

func (uc *UserController) MarkRead(c *gin.Context) {
	var req ReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "progress must be between 0 and 1")
		return
	}
	progress := 0.0
	if req.Progress != nil {
		progress = *req.Progress
	}

	state, err := uc.saved.MarkRead(c.Request.Context(), middleware.CurrentSession(c), c.Param("id"), req.IsRead, progress)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// DeleteSaved unlikes a saved post. It goes through the viewer's feed
// session so the feed shows the change. Posts missing from the feed are
// unliked directly against the like store.
func (uc *UserController) DeleteSaved(c *gin.Context) {
	ctx := c.Request.Context()
	session := middleware.CurrentSession(c)
	postID := c.Param("id")

	fs, err := uc.sessions.Get(ctx, session)
	if err != nil && !errors.Is(err, services.ErrFeedUnavailable) {
		respondError(c, err)
		return
	}

	if fs != nil {
		action, err := fs.SetLiked(ctx, postID, false)
		switch {
		case err == nil:
			state := models.LikeCommitted
			if action != nil {
				state, _ = action.Wait(ctx)
			}
			if state == models.LikeFailed {
				utils.SendRetryable(c, "Failed to remove saved item", "削除に失敗しました。再試行してください。")
				return
			}
			c.JSON(http.StatusOK, LikeResponse{PostID: postID, IsLiked: fs.IsLiked(postID), State: state})
			return
		case !errors.Is(err, services.ErrPostNotFound):
			respondError(c, err)
			return
		}
	}

	if err := uc.likes.DeleteLike(ctx, session.UserID, postID); err != nil {
		log.Warn().Err(err).Str("user_id", session.UserID).Str("post_id", postID).Msg("Failed to delete like.")
		utils.SendRetryable(c, "Failed to remove saved item", "削除に失敗しました。再試行してください。")
		return
	}
	c.JSON(http.StatusOK, LikeResponse{PostID: postID, IsLiked: false, State: models.LikeCommitted})
}

// File: /controllers/feed_controller.go
package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"yonkoma-api/middleware"
	"yonkoma-api/models"
	"yonkoma-api/services"
	"yonkoma-api/utils"
)

type FeedController struct {
	sessions *services.FeedSessionStore
}

func NewFeedController(sessions *services.FeedSessionStore) *FeedController {
	return &FeedController{sessions: sessions}
}

// FeedItem is one cell of the home feed
type FeedItem struct {
	models.Post
	CreatedAgo string `json:"created_ago"`
}

type LikeResponse struct {
	PostID  string           `json:"post_id"`
	IsLiked bool             `json:"is_liked"`
	State   models.LikeState `json:"state"`
}

func (fc *FeedController) GetFeed(c *gin.Context) {
	fs, err := fc.sessions.Refresh(c.Request.Context(), middleware.CurrentSession(c))
	if err != nil {
		respondError(c, err)
		return
	}

	now := timeNow()
	items := lo.Map(fs.Posts(), func(post models.Post, _ int) FeedItem {
		return FeedItem{Post: post, CreatedAgo: utils.TimeAgo(post.CreatedAt, now)}
	})
	c.JSON(http.StatusOK, gin.H{
		"items": items,
		"count": len(items),
	})
}

// ToggleLike flips the viewer's like on a post. The handler waits for the
// like store unless wait=false is given, in which case it answers 202 with
// the pending action.
func (fc *FeedController) ToggleLike(c *gin.Context) {
	ctx := c.Request.Context()
	postID := c.Param("id")

	fs, err := fc.sessions.Get(ctx, middleware.CurrentSession(c))
	if err != nil {
		respondError(c, err)
		return
	}

	action, err := fs.ToggleLike(ctx, postID)
	if errors.Is(err, services.ErrPostNotFound) {
		// The post may have been published after the session loaded
		if err := fs.Refresh(ctx); err != nil {
			respondError(c, err)
			return
		}
		action, err = fs.ToggleLike(ctx, postID)
	}
	if err != nil {
		respondError(c, err)
		return
	}

	if c.DefaultQuery("wait", "true") == "false" {
		c.JSON(http.StatusAccepted, LikeResponse{
			PostID:  postID,
			IsLiked: action.Liked,
			State:   action.State(),
		})
		return
	}

	state, _ := action.Wait(ctx)
	c.JSON(http.StatusOK, LikeResponse{
		PostID:  postID,
		IsLiked: fs.IsLiked(postID),
		State:   state,
	})
}

// GetLikeState reports the viewer's local like state and the state of the
// latest action on the post
func (fc *FeedController) GetLikeState(c *gin.Context) {
	postID := c.Param("id")

	fs, err := fc.sessions.Get(c.Request.Context(), middleware.CurrentSession(c))
	if err != nil {
		respondError(c, err)
		return
	}
	if _, ok := fs.Post(postID); !ok {
		respondError(c, services.ErrPostNotFound)
		return
	}

	state := models.LikeCommitted
	if action := fs.Action(postID); action != nil {
		state = action.State()
	}
	c.JSON(http.StatusOK, LikeResponse{
		PostID:  postID,
		IsLiked: fs.IsLiked(postID),
		State:   state,
	})
}

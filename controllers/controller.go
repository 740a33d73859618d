// File: /controllers/controller.go
package controllers

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"yonkoma-api/models"
	"yonkoma-api/repositories"
	"yonkoma-api/services"
	"yonkoma-api/utils"
)

var (
	registerOnce sync.Once
	timeNow      = time.Now
)

// RegisterValidations adds the custom binding tags used by request structs
func RegisterValidations() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		if err := v.RegisterValidation("sortoption", validSortOption); err != nil {
			log.Error().Err(err).Msg("Failed to register sortoption validation.")
		}
	})
}

func validSortOption(fl validator.FieldLevel) bool {
	_, err := models.ParseSortOption(fl.Field().String())
	return err == nil
}

// respondError maps service and repository errors onto HTTP responses
func respondError(c *gin.Context, err error) {
	var invalid *services.PostValidationError
	switch {
	case errors.As(err, &invalid):
		utils.SendAlert(c, http.StatusBadRequest, "Invalid post", invalid.Message)
	case errors.Is(err, services.ErrNotAuthenticated):
		utils.SendError(c, http.StatusUnauthorized, "Authentication required")
	case errors.Is(err, services.ErrPostNotFound), errors.Is(err, repositories.ErrNotFound):
		utils.SendError(c, http.StatusNotFound, "Post not found")
	case errors.Is(err, services.ErrFeedUnavailable):
		utils.SendRetryable(c, "Feed unavailable", "投稿の取得に失敗しました。再試行してください。")
	case errors.Is(err, services.ErrMediaUpload):
		utils.SendAlert(c, http.StatusBadGateway, "Image upload failed", "画像のアップロードに失敗しました。再試行してください。")
	case errors.Is(err, repositories.ErrDuplicate):
		utils.SendError(c, http.StatusConflict, "Already exists")
	default:
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Unhandled request error.")
		utils.SendError(c, http.StatusInternalServerError, "Internal server error")
	}
}

// File: /routes/routes.go
package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"yonkoma-api/controllers"
	"yonkoma-api/middleware"
	"yonkoma-api/repositories"
	"yonkoma-api/services"
)

// Dependencies are the services the HTTP API is built from
type Dependencies struct {
	Store       *repositories.Store
	Tokens      *services.TokenService
	Sessions    *services.FeedSessionStore
	Publish     *services.PublishService
	Saved       *services.SavedItemsService
	Email       *services.EmailService
	RateLimiter *middleware.RateLimiter
	RatePerMin  int
}

func SetupRoutes(r *gin.Engine, deps Dependencies) {
	controllers.RegisterValidations()

	// Controllers
	authController := controllers.NewAuthController(deps.Store.Users, deps.Tokens, deps.Sessions, deps.Email)
	feedController := controllers.NewFeedController(deps.Sessions)
	postController := controllers.NewPostController(deps.Store.Posts, deps.Store.Likes, deps.Sessions, deps.Publish)
	userController := controllers.NewUserController(deps.Store.Users, deps.Store.Likes, deps.Saved, deps.Sessions, deps.Publish)

	r.Use(middleware.CORS())
	r.Use(middleware.SecurityHeaders())

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
			"status":  "healthy",
		})
	})

	// API version 1
	v1 := r.Group("/api/v1")
	if deps.RateLimiter != nil {
		v1.Use(middleware.RateLimit(deps.RateLimiter, deps.RatePerMin))
	}
	v1.Use(middleware.ValidateJSON(
		"/api/v1/posts",
		"/api/v1/users/profile-image",
	))

	requireAuth := middleware.AuthMiddleware(deps.Tokens)
	optionalAuth := middleware.OptionalAuth(deps.Tokens)

	// Auth routes (public)
	auth := v1.Group("/auth")
	{
		auth.POST("/register", authController.Register)
		auth.POST("/login", authController.Login)
		auth.POST("/logout", optionalAuth, authController.Logout)
	}

	v1.GET("/feed", optionalAuth, feedController.GetFeed)

	// Post routes
	posts := v1.Group("/posts")
	{
		posts.GET("/:id", optionalAuth, postController.GetPost)
		posts.POST("", requireAuth, postController.CreatePost)
		posts.POST("/:id/like", requireAuth, feedController.ToggleLike)
		posts.GET("/:id/like", requireAuth, feedController.GetLikeState)
	}

	// User routes
	users := v1.Group("/users")
	users.Use(requireAuth)
	{
		users.GET("/profile", userController.GetProfile)
		users.POST("/profile-image", userController.UploadProfileImage)
		users.GET("/saved", userController.GetSaved)
		users.PUT("/saved/:id/read", userController.MarkRead)
		users.DELETE("/saved/:id", userController.DeleteSaved)
	}
}

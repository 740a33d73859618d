// File: /controllers/auth_controller.go
package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"yonkoma-api/middleware"
	"yonkoma-api/models"
	"yonkoma-api/repositories"
	"yonkoma-api/services"
	"yonkoma-api/utils"
)

type AuthController struct {
	users        repositories.UserRepository
	tokens       *services.TokenService
	sessions     *services.FeedSessionStore
	emailService *services.EmailService
}

func NewAuthController(users repositories.UserRepository, tokens *services.TokenService, sessions *services.FeedSessionStore, emailService *services.EmailService) *AuthController {
	return &AuthController{
		users:        users,
		tokens:       tokens,
		sessions:     sessions,
		emailService: emailService,
	}
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

func (ac *AuthController) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendAlert(c, http.StatusBadRequest, "Invalid request", "すべての項目を入力してください。")
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if utils.IsBlank(req.Name) || req.Email == "" || req.Password == "" {
		utils.SendAlert(c, http.StatusBadRequest, "Missing fields", "すべての項目を入力してください。")
		return
	}
	if !utils.IsValidEmail(req.Email) {
		utils.SendAlert(c, http.StatusBadRequest, "Invalid email", "メールアドレスの形式が正しくありません")
		return
	}
	if !utils.IsValidPassword(req.Password) {
		utils.SendAlert(c, http.StatusBadRequest, "Password too short", "パスワードは6文字以上で入力してください")
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Error().Err(err).Msg("Failed to hash password.")
		utils.SendAlert(c, http.StatusInternalServerError, "Failed to hash password", "登録に失敗しました。もう一度お試しください。")
		return
	}

	user := models.User{
		ID:       uuid.New().String(),
		Name:     strings.TrimSpace(req.Name),
		Email:    req.Email,
		Password: string(hashedPassword),
	}
	if err := ac.users.CreateUser(c.Request.Context(), &user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			utils.SendAlert(c, http.StatusConflict, "Email already registered", "このメールアドレスは既に登録されています")
			return
		}
		log.Error().Err(err).Msg("Failed to create user.")
		utils.SendAlert(c, http.StatusInternalServerError, "Failed to create user", "登録に失敗しました。もう一度お試しください。")
		return
	}

	token, err := ac.tokens.Issue(user.ID, user.Email)
	if err != nil {
		log.Error().Err(err).Msg("Failed to generate token.")
		utils.SendAlert(c, http.StatusInternalServerError, "Failed to generate token", "登録に失敗しました。もう一度お試しください。")
		return
	}

	ac.emailService.SendWelcomeEmailAsync(user.Email, user.Name)

	c.JSON(http.StatusCreated, gin.H{
		"message": "アカウントの登録が完了しました。",
		"token":   token,
		"user":    user,
	})
}

func (ac *AuthController) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendAlert(c, http.StatusBadRequest, "Invalid request", "ログインに失敗しました")
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if !utils.IsValidEmail(req.Email) {
		utils.SendAlert(c, http.StatusBadRequest, "Invalid email", "メールアドレスの形式が正しくありません")
		return
	}

	user, err := ac.users.GetUserByEmail(c.Request.Context(), req.Email)
	if err != nil {
		if !errors.Is(err, repositories.ErrNotFound) {
			log.Error().Err(err).Msg("Failed to look up user.")
		}
		utils.SendAlert(c, http.StatusUnauthorized, "Invalid credentials", "ログインに失敗しました")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		utils.SendAlert(c, http.StatusUnauthorized, "Invalid credentials", "ログインに失敗しました")
		return
	}

	token, err := ac.tokens.Issue(user.ID, user.Email)
	if err != nil {
		log.Error().Err(err).Msg("Failed to generate token.")
		utils.SendAlert(c, http.StatusInternalServerError, "Failed to generate token", "ログインに失敗しました")
		return
	}

	c.JSON(http.StatusOK, AuthResponse{
		Token: token,
		User:  *user,
	})
}

// Logout forgets the viewer's feed session. Tokens stay valid until they
// expire.
func (ac *AuthController) Logout(c *gin.Context) {
	session := middleware.CurrentSession(c)
	if session.IsAuthenticated() {
		if err := ac.sessions.Drop(c.Request.Context(), session.UserID); err != nil {
			log.Warn().Err(err).Str("user_id", session.UserID).Msg("Failed to drop feed session.")
		}
	}
	c.JSON(http.StatusOK, gin.H{"message": "Successfully logged out"})
}

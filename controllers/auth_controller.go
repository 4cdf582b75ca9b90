package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/threadbbs/middleware"
	"github.com/cppla/threadbbs/models"
	"github.com/cppla/threadbbs/services"
	"github.com/cppla/threadbbs/utils"
)

const tokenTTL = 72 * time.Hour

// AuthController handles account registration and token issuing.
type AuthController struct {
	users *services.UserDirectory
}

// NewAuthController creates an AuthController.
func NewAuthController(users *services.UserDirectory) *AuthController {
	return &AuthController{users: users}
}

type credentials struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

func userResponse(u *models.User) gin.H {
	return gin.H{
		"id":         u.ID,
		"username":   u.Username,
		"created_at": u.CreatedAt,
	}
}

// Register creates a local account and logs it in.
func (a *AuthController) Register(ctx *gin.Context) {
	var req credentials
	if err := ctx.ShouldBind(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	user, err := a.users.Register(ctx.Request.Context(), req.Username, req.Password)
	switch {
	case errors.Is(err, services.ErrUsernameTaken):
		utils.Error(ctx, http.StatusConflict, 40901, "username already exists")
		return
	case errors.Is(err, utils.ErrPasswordTooLong):
		utils.Invalid(ctx, map[string]string{"password": "password is too long"})
		return
	case err != nil:
		respondError(ctx, err, "user")
		return
	}

	token, err := utils.GenerateToken(user.ID, user.Username, tokenTTL)
	if err != nil {
		utils.Sugar.Errorf("generate token failed user_id=%d err=%v", user.ID, err)
		utils.Error(ctx, http.StatusInternalServerError, 50003, "failed to generate token")
		return
	}
	utils.Created(ctx, gin.H{"token": token, "user": userResponse(user)})
}

// Login verifies user credentials and issues a JWT.
func (a *AuthController) Login(ctx *gin.Context) {
	var req credentials
	if err := ctx.ShouldBind(&req); err != nil || req.Username == "" || req.Password == "" {
		utils.Error(ctx, http.StatusBadRequest, 40003, "invalid request payload")
		return
	}

	user, err := a.users.Authenticate(ctx.Request.Context(), req.Username, req.Password)
	if errors.Is(err, services.ErrNotFound) {
		utils.Error(ctx, http.StatusUnauthorized, 40106, "invalid username or password")
		return
	}
	if err != nil {
		respondError(ctx, err, "user")
		return
	}

	token, err := utils.GenerateToken(user.ID, user.Username, tokenTTL)
	if err != nil {
		utils.Sugar.Errorf("generate token failed user_id=%d err=%v", user.ID, err)
		utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to generate token")
		return
	}
	utils.Success(ctx, gin.H{"token": token, "user": userResponse(user)})
}

// Logout revokes the current token until its expiration.
func (a *AuthController) Logout(ctx *gin.Context) {
	claims, ok := middleware.CurrentClaims(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40107, "unauthorized")
		return
	}
	expiresAt := time.Now().Add(tokenTTL)
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	utils.RevokeToken(claims.ID, expiresAt)
	utils.Success(ctx, gin.H{"message": "logged out"})
}

// Me returns the current authenticated user's information.
func (a *AuthController) Me(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		return
	}
	user, err := a.users.ByID(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err, "user")
		return
	}
	utils.Success(ctx, userResponse(user))
}

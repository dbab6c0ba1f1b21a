package server

import (
	"net/http"

	"assignado/internal/domain/models"

	"github.com/gin-gonic/gin"
)

func (api *TaskAPI) setTokenCookie(ctx *gin.Context, token string, maxAge int) {
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(tokenCookie, token, maxAge, "/", "", ctx.Request.TLS != nil, true)
}

func (api *TaskAPI) issue(ctx *gin.Context, status int, message string, user *models.User) {
	token, err := api.auth.IssueToken(user)
	if err != nil {
		api.abortWithError(ctx, err)
		return
	}
	api.setTokenCookie(ctx, token, int(api.auth.TokenTTL().Seconds()))
	ctx.JSON(status, gin.H{
		"message": message,
		"user":    user,
		"token":   token,
	})
}

func (api *TaskAPI) register(ctx *gin.Context) {
	var req models.RegisterRequest
	if !api.bind(ctx, &req) {
		return
	}
	user, err := api.auth.Register(ctx.Request.Context(), req)
	if err != nil {
		api.abortWithError(ctx, err)
		return
	}
	api.issue(ctx, http.StatusCreated, "user registered successfully", user)
}

func (api *TaskAPI) login(ctx *gin.Context) {
	var req models.LoginRequest
	if !api.bind(ctx, &req) {
		return
	}
	user, err := api.auth.Login(ctx.Request.Context(), req)
	if err != nil {
		api.abortWithError(ctx, err)
		return
	}
	api.issue(ctx, http.StatusOK, "welcome back "+user.Name, user)
}

func (api *TaskAPI) logout(ctx *gin.Context) {
	api.setTokenCookie(ctx, "", -1)
	ctx.JSON(http.StatusOK, gin.H{"message": "you are successfully logged out"})
}

func (api *TaskAPI) profile(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"user": currentUser(ctx)})
}

package server

import (
	"net/http"

	"assignado/internal/domain/models"

	"github.com/gin-gonic/gin"
)

func (api *TaskAPI) getUsers(ctx *gin.Context) {
	users, err := api.users.ListMembers(ctx.Request.Context())
	if err != nil {
		api.abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "all users", "users": users})
}

func (api *TaskAPI) getUser(ctx *gin.Context) {
	user, err := api.users.Get(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		api.abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "user found", "user": user})
}

func (api *TaskAPI) createUser(ctx *gin.Context) {
	var req models.CreateUserRequest
	if !api.bind(ctx, &req) {
		return
	}
	user, err := api.users.Create(ctx.Request.Context(), principal(ctx), req)
	if err != nil {
		api.abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"message": "user created successfully", "user": user})
}

func (api *TaskAPI) updateUser(ctx *gin.Context) {
	var req models.UpdateUserRequest
	if !api.bind(ctx, &req) {
		return
	}
	user, err := api.users.Update(ctx.Request.Context(), principal(ctx), ctx.Param("id"), req)
	if err != nil {
		api.abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "user updated successfully", "user": user})
}

func (api *TaskAPI) updateAdminProfile(ctx *gin.Context) {
	var req models.UpdateUserRequest
	if !api.bind(ctx, &req) {
		return
	}
	user, err := api.users.UpdateByAdmin(ctx.Request.Context(), principal(ctx), ctx.Param("id"), req)
	if err != nil {
		api.abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "admin profile updated successfully", "user": user})
}

func (api *TaskAPI) changePassword(ctx *gin.Context) {
	var req models.ChangePasswordRequest
	if !api.bind(ctx, &req) {
		return
	}
	if err := api.users.ChangePassword(ctx.Request.Context(), principal(ctx), ctx.Param("id"), req); err != nil {
		api.abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "password updated successfully"})
}

func (api *TaskAPI) deleteUser(ctx *gin.Context) {
	if err := api.users.Delete(ctx.Request.Context(), principal(ctx), ctx.Param("id")); err != nil {
		api.abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "user deleted successfully"})
}

package server

import (
	"net/http"

	"assignado/internal/domain/models"

	"github.com/gin-gonic/gin"
)

func (api *TaskAPI) createTeam(ctx *gin.Context) {
	var req models.CreateTeamRequest
	if !api.bind(ctx, &req) {
		return
	}
	team, err := api.teams.Create(ctx.Request.Context(), req)
	if err != nil {
		api.abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"message": "team created successfully", "team": team})
}

func (api *TaskAPI) updateTeam(ctx *gin.Context) {
	var req models.UpdateTeamRequest
	if !api.bind(ctx, &req) {
		return
	}
	team, err := api.teams.Update(ctx.Request.Context(), ctx.Param("id"), req)
	if err != nil {
		api.abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "team updated successfully", "team": team})
}

func (api *TaskAPI) deleteTeam(ctx *gin.Context) {
	if err := api.teams.Delete(ctx.Request.Context(), ctx.Param("id")); err != nil {
		api.abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "team deleted successfully"})
}

func (api *TaskAPI) getTeams(ctx *gin.Context) {
	teams, err := api.teams.List(ctx.Request.Context())
	if err != nil {
		api.abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "teams fetched successfully", "teams": teams})
}

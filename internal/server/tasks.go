package server

import (
	"net/http"

	"assignado/internal/domain/models"
	"assignado/internal/service"

	"github.com/gin-gonic/gin"
)

func (api *TaskAPI) createTask(ctx *gin.Context) {
	var req models.CreateTaskRequest
	if !api.bind(ctx, &req) {
		return
	}
	res, err := api.tasks.Create(ctx.Request.Context(), principal(ctx), req)
	if err != nil {
		api.abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{
		"message":      "task created successfully",
		"task":         res.Task,
		"teamAction":   res.TeamAction,
		"addedMembers": res.AddedMembers,
	})
}

func (api *TaskAPI) getTasks(ctx *gin.Context) {
	list, err := api.tasks.List(ctx.Request.Context(), principal(ctx), models.TaskStatus(ctx.Query("status")))
	if err != nil {
		api.abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"message":       "all tasks",
		"tasks":         list.Tasks,
		"statusSummary": list.StatusSummary,
	})
}

func (api *TaskAPI) getTaskByID(ctx *gin.Context) {
	task, err := api.tasks.Get(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		api.abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "task found", "task": task})
}

func (api *TaskAPI) updateTask(ctx *gin.Context) {
	var req models.UpdateTaskRequest
	if !api.bind(ctx, &req) {
		return
	}
	task, err := api.tasks.Update(ctx.Request.Context(), principal(ctx), ctx.Param("id"), req)
	if err != nil {
		api.abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "task updated successfully", "task": task})
}

func (api *TaskAPI) deleteTask(ctx *gin.Context) {
	if err := api.tasks.Delete(ctx.Request.Context(), principal(ctx), ctx.Param("id")); err != nil {
		api.abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "task deleted successfully"})
}

func (api *TaskAPI) updateTaskStatus(ctx *gin.Context) {
	var req models.UpdateStatusRequest
	if !api.bind(ctx, &req) {
		return
	}
	task, err := api.tasks.UpdateStatus(ctx.Request.Context(), principal(ctx), ctx.Param("id"), req.Status)
	if err != nil {
		api.abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "task status updated successfully", "task": task})
}

func (api *TaskAPI) updateTaskChecklist(ctx *gin.Context) {
	var req models.UpdateChecklistRequest
	if !api.bind(ctx, &req) {
		return
	}
	task, err := api.tasks.UpdateChecklist(ctx.Request.Context(), principal(ctx), ctx.Param("id"), req.TodoCheckList)
	if err != nil {
		api.abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "task checklist updated successfully", "task": task})
}

func (api *TaskAPI) getDashboard(ctx *gin.Context) {
	api.writeDashboard(ctx, models.TaskFilter{})
}

func (api *TaskAPI) getUserDashboard(ctx *gin.Context) {
	api.writeDashboard(ctx, service.UserScope(principal(ctx).ID))
}

func (api *TaskAPI) writeDashboard(ctx *gin.Context, scope models.TaskFilter) {
	d, err := api.dashboard.Aggregate(ctx.Request.Context(), scope)
	if err != nil {
		api.abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"message":     "dashboard data",
		"statistics":  d.Statistics,
		"charts":      d.Charts,
		"recentTasks": d.RecentTasks,
	})
}

package server

import (
	"context"
	"net/http"
	"time"

	"assignado/internal/config"
	"assignado/internal/domain/errors"
	"assignado/internal/logging"
	"assignado/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator"
	"github.com/sirupsen/logrus"
)

const tokenCookie = "jwt_token"

type TaskAPI struct {
	httpSrv   *http.Server
	cfg       *config.Config
	auth      *service.AuthService
	tasks     *service.TaskService
	teams     *service.TeamService
	users     *service.UserService
	dashboard *service.DashboardService
	valid     *validator.Validate
	log       *logrus.Entry
}

func NewTaskAPI(store service.Store, cfg *config.Config) *TaskAPI {
	if store == nil || cfg == nil {
		return nil
	}

	teams := service.NewTeamService(store, store)
	api := &TaskAPI{
		httpSrv: &http.Server{
			Addr:              cfg.ListenAddr(),
			ReadHeaderTimeout: 10 * time.Second,
		},
		cfg:       cfg,
		auth:      service.NewAuthService(store, cfg.JWTSecret, cfg.TokenTTL, cfg.AdminInviteToken),
		tasks:     service.NewTaskService(store, store, store, teams),
		teams:     teams,
		users:     service.NewUserService(store, store),
		dashboard: service.NewDashboardService(store),
		valid:     validator.New(),
		log:       logging.Component("http"),
	}
	api.configRoutes()
	return api
}

func (api *TaskAPI) Start() error {
	if api.httpSrv == nil {
		return errors.ErrInternalServer
	}
	api.log.WithField("addr", api.httpSrv.Addr).Info("listening")
	if err := api.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (api *TaskAPI) Shutdown(ctx context.Context) error {
	if api.httpSrv == nil {
		return nil
	}
	return api.httpSrv.Shutdown(ctx)
}

func (api *TaskAPI) configRoutes() {
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(RequestLogger(api.log), gin.Recovery(), GzipRequestDecompress(), GzipResponseCompress())

	router.NoMethod(func(ctx *gin.Context) {
		ctx.JSON(http.StatusMethodNotAllowed, gin.H{"error": "method not allowed"})
	})
	router.NoRoute(func(ctx *gin.Context) {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
	})

	apiGroup := router.Group("/api")

	auth := apiGroup.Group("/auth")
	{
		auth.POST("/register", api.register)
		auth.POST("/login", api.login)
		auth.POST("/logout", api.logout)
		auth.GET("/profile", api.AuthRequired(), api.profile)
	}

	protected := apiGroup.Group("", api.AuthRequired())
	admin := protected.Group("", AdminOnly())

	tasks := protected.Group("/tasks")
	{
		tasks.GET("", api.getTasks)
		tasks.GET("/:id", api.getTaskByID)
		tasks.PUT("/:id/status", api.updateTaskStatus)
		tasks.PUT("/:id/todo", api.updateTaskChecklist)
	}
	adminTasks := admin.Group("/tasks")
	{
		adminTasks.POST("", api.createTask)
		adminTasks.PUT("/:id", api.updateTask)
		adminTasks.DELETE("/:id", api.deleteTask)
	}

	admin.GET("/dashboard", api.getDashboard)
	protected.GET("/user-dashboard", api.getUserDashboard)

	teams := admin.Group("/teams")
	{
		teams.GET("", api.getTeams)
		teams.POST("", api.createTeam)
		teams.PUT("/:id", api.updateTeam)
		teams.DELETE("/:id", api.deleteTeam)
	}

	admin.GET("/users", api.getUsers)
	admin.POST("/users", api.createUser)
	protected.GET("/users/:id", api.getUser)
	protected.PUT("/users/:id", api.updateUser)
	protected.DELETE("/users/:id", api.deleteUser)
	protected.PUT("/users/:id/password", api.changePassword)
	admin.PUT("/admin/:id", api.updateAdminProfile)

	api.httpSrv.Handler = router
}

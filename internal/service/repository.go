package service

import (
	"context"
	"time"

	"assignado/internal/domain/models"
)

// UserRepository stores accounts for the auth adapter and user management.
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUsersByIDs(ctx context.Context, ids []string) ([]models.User, error)
	ListUsersByRole(ctx context.Context, role models.Role) ([]models.User, error)
	// UpdateUser replaces the stored account. It reports errors.ErrUserExists
	// when the new email or username belongs to someone else.
	UpdateUser(ctx context.Context, user *models.User) error
	DeleteUser(ctx context.Context, id string) error
}

// TeamRepository persists teams. CreateTeam and UpdateTeam report
// errors.ErrTeamExists when the name is taken. AddTeamMembers is a set-union
// performed atomically by the backend.
type TeamRepository interface {
	CreateTeam(ctx context.Context, team *models.Team) error
	GetTeamByID(ctx context.Context, id string) (*models.Team, error)
	GetTeamByName(ctx context.Context, name string) (*models.Team, error)
	ListTeams(ctx context.Context) ([]models.Team, error)
	UpdateTeam(ctx context.Context, team *models.Team) error
	AddTeamMembers(ctx context.Context, id string, members []string, at time.Time) (*models.Team, error)
	DeleteTeam(ctx context.Context, id string) error
}

// TaskRepository persists tasks and answers the aggregation queries the
// dashboard needs. Each call is an independent read; nothing here spans a
// snapshot.
type TaskRepository interface {
	CreateTask(ctx context.Context, task *models.Task) error
	GetTaskByID(ctx context.Context, id string) (*models.Task, error)
	ListTasks(ctx context.Context, filter models.TaskFilter) ([]models.Task, error)
	UpdateTask(ctx context.Context, task *models.Task) error
	DeleteTask(ctx context.Context, id string) error

	CountTasks(ctx context.Context, filter models.TaskFilter) (int64, error)
	CountByStatus(ctx context.Context, filter models.TaskFilter) (map[models.TaskStatus]int64, error)
	CountByPriority(ctx context.Context, filter models.TaskFilter) (map[models.Priority]int64, error)
	RecentTasks(ctx context.Context, filter models.TaskFilter, limit int) ([]models.TaskSummary, error)
}

// Store bundles the three repositories a backend provides.
type Store interface {
	UserRepository
	TeamRepository
	TaskRepository
}

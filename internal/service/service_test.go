package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"assignado/internal/domain/errors"
	"assignado/internal/domain/models"
	storage "assignado/repository/inmemory"

	"github.com/stretchr/testify/require"
)

// countingStore records team writes so tests can assert that nothing was
// persisted.
type countingStore struct {
	*storage.Storage
	teamWrites atomic.Int32
	taskWrites atomic.Int32
}

func (s *countingStore) CreateTeam(ctx context.Context, team *models.Team) error {
	s.teamWrites.Add(1)
	return s.Storage.CreateTeam(ctx, team)
}

func (s *countingStore) AddTeamMembers(ctx context.Context, id string, members []string, at time.Time) (*models.Team, error) {
	s.teamWrites.Add(1)
	return s.Storage.AddTeamMembers(ctx, id, members, at)
}

func (s *countingStore) CreateTask(ctx context.Context, task *models.Task) error {
	s.taskWrites.Add(1)
	return s.Storage.CreateTask(ctx, task)
}

// racyStore hides a team from the first name lookup, as if another request
// created it in between.
type racyStore struct {
	*storage.Storage
	lookups atomic.Int32
}

func (s *racyStore) GetTeamByName(ctx context.Context, name string) (*models.Team, error) {
	if s.lookups.Add(1) == 1 {
		return nil, errors.ErrTeamNotFound
	}
	return s.Storage.GetTeamByName(ctx, name)
}

type fixture struct {
	store *countingStore
	admin *models.User
	alice *models.User
	bob   *models.User
	now   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{
		store: &countingStore{Storage: storage.NewStorage()},
		now:   time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	mk := func(name string, role models.Role, offset time.Duration) *models.User {
		u := &models.User{
			Name:      name,
			Username:  name,
			Email:     name + "@example.com",
			Role:      role,
			CreatedAt: f.now.Add(offset),
		}
		require.NoError(t, f.store.CreateUser(ctx, u))
		return u
	}
	f.admin = mk("admin", models.RoleAdmin, 0)
	f.alice = mk("alice", models.RoleMember, time.Second)
	f.bob = mk("bob", models.RoleMember, 2*time.Second)
	return f
}

func (f *fixture) teams() *TeamService {
	s := NewTeamService(f.store, f.store)
	s.now = func() time.Time { return f.now }
	return s
}

func (f *fixture) tasks() *TaskService {
	s := NewTaskService(f.store, f.store, f.store, f.teams())
	s.now = func() time.Time { return f.now }
	return s
}

func (f *fixture) adminP() Principal { return PrincipalOf(f.admin) }

func (f *fixture) createTask(t *testing.T, title string, assignees ...string) *models.TaskDetail {
	t.Helper()
	res, err := f.tasks().Create(context.Background(), f.adminP(), models.CreateTaskRequest{
		Title:      title,
		AssignedTo: assignees,
		TeamName:   "Core",
		TodoCheckList: []models.ChecklistItem{
			{Text: "one"}, {Text: "two"}, {Text: "three"},
		},
	})
	require.NoError(t, err)
	return res.Task
}

package storage

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"assignado/internal/domain/errors"
	"assignado/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStorage(t *testing.T) {
	storage := NewStorage()

	assert.NotNil(t, storage)
	assert.NotNil(t, storage.users)
	assert.NotNil(t, storage.teams)
	assert.NotNil(t, storage.tasks)
	assert.Empty(t, storage.users)
	assert.Empty(t, storage.tasks)
}

func TestStorageCreateUser(t *testing.T) {
	tests := []struct {
		name  string
		user  *models.User
		setup func(*Storage)
		want  struct {
			err error
		}
	}{
		{
			name: "successful user creation",
			user: &models.User{Username: "testuser", Email: "test@example.com", Role: models.RoleMember},
			setup: func(*Storage) {},
		},
		{
			name: "duplicate username",
			user: &models.User{Username: "testuser", Email: "other@example.com"},
			setup: func(s *Storage) {
				_ = s.CreateUser(context.Background(), &models.User{Username: "testuser", Email: "test@example.com"})
			},
			want: struct{ err error }{errors.ErrUserExists},
		},
		{
			name: "duplicate email ignores case",
			user: &models.User{Username: "other", Email: "TEST@example.com"},
			setup: func(s *Storage) {
				_ = s.CreateUser(context.Background(), &models.User{Username: "testuser", Email: "test@example.com"})
			},
			want: struct{ err error }{errors.ErrUserExists},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage := NewStorage()
			tt.setup(storage)

			err := storage.CreateUser(context.Background(), tt.user)
			if tt.want.err != nil {
				assert.ErrorIs(t, err, tt.want.err)
				return
			}
			require.NoError(t, err)
			assert.True(t, models.IsValidID(tt.user.ID))

			got, err := storage.GetUserByEmail(context.Background(), "TEST@EXAMPLE.COM")
			require.NoError(t, err)
			assert.Equal(t, tt.user.ID, got.ID)
		})
	}
}

func TestStorageUserLookups(t *testing.T) {
	ctx := context.Background()
	storage := NewStorage()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	var ids []string
	for i, name := range []string{"carol", "alice", "bob"} {
		role := models.RoleMember
		if name == "carol" {
			role = models.RoleAdmin
		}
		u := &models.User{Username: name, Email: name + "@example.com", Role: role, CreatedAt: base.Add(time.Duration(i) * time.Hour)}
		require.NoError(t, storage.CreateUser(ctx, u))
		ids = append(ids, u.ID)
	}

	members, err := storage.ListUsersByRole(ctx, models.RoleMember)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, "alice", members[0].Username)
	assert.Equal(t, "bob", members[1].Username)

	found, err := storage.GetUsersByIDs(ctx, []string{ids[1], ids[1], models.NewID()})
	require.NoError(t, err)
	assert.Len(t, found, 1)

	_, err = storage.GetUserByID(ctx, models.NewID())
	assert.ErrorIs(t, err, errors.ErrUserNotFound)
	_, err = storage.GetUserByUsername(ctx, "dave")
	assert.ErrorIs(t, err, errors.ErrUserNotFound)
}

func TestStorageTeams(t *testing.T) {
	ctx := context.Background()
	storage := NewStorage()
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	core := &models.Team{TeamName: "Core", Members: []string{"a"}, CreatedAt: t0, UpdatedAt: t0}
	require.NoError(t, storage.CreateTeam(ctx, core))
	assert.ErrorIs(t, storage.CreateTeam(ctx, &models.Team{TeamName: "Core"}), errors.ErrTeamExists)

	ops := &models.Team{TeamName: "Ops", CreatedAt: t0.Add(time.Hour)}
	require.NoError(t, storage.CreateTeam(ctx, ops))
	ops.TeamName = "Core"
	assert.ErrorIs(t, storage.UpdateTeam(ctx, ops), errors.ErrTeamExists)

	tests := []struct {
		name    string
		members []string
		want    struct {
			members   []string
			updatedAt time.Time
		}
	}{
		{
			name:    "nothing new keeps timestamp",
			members: []string{"a"},
			want: struct {
				members   []string
				updatedAt time.Time
			}{[]string{"a"}, t0},
		},
		{
			name:    "union appends missing",
			members: []string{"a", "b", "c"},
			want: struct {
				members   []string
				updatedAt time.Time
			}{[]string{"a", "b", "c"}, t0.Add(time.Minute)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := storage.AddTeamMembers(ctx, core.ID, tt.members, t0.Add(time.Minute))
			require.NoError(t, err)
			assert.Equal(t, tt.want.members, got.Members)
			assert.Equal(t, tt.want.updatedAt, got.UpdatedAt)
		})
	}

	got, err := storage.GetTeamByName(ctx, "Core")
	require.NoError(t, err)
	got.Members[0] = "mutated"
	again, err := storage.GetTeamByID(ctx, core.ID)
	require.NoError(t, err)
	assert.Equal(t, "a", again.Members[0])

	list, err := storage.ListTeams(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Ops", list[0].TeamName)

	_, err = storage.AddTeamMembers(ctx, models.NewID(), []string{"x"}, t0)
	assert.ErrorIs(t, err, errors.ErrTeamNotFound)

	require.NoError(t, storage.DeleteTeam(ctx, core.ID))
	assert.ErrorIs(t, storage.DeleteTeam(ctx, core.ID), errors.ErrTeamNotFound)
}

func TestStorageConcurrentAddTeamMembers(t *testing.T) {
	ctx := context.Background()
	storage := NewStorage()
	team := &models.Team{TeamName: "Core"}
	require.NoError(t, storage.CreateTeam(ctx, team))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := storage.AddTeamMembers(ctx, team.ID, []string{id, "shared"}, time.Now())
			assert.NoError(t, err)
		}(models.NewID())
	}
	wg.Wait()

	got, err := storage.GetTeamByID(ctx, team.ID)
	require.NoError(t, err)
	assert.Len(t, got.Members, 51)
}

func TestStorageTaskQueries(t *testing.T) {
	ctx := context.Background()
	storage := NewStorage()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)

	seed := []models.Task{
		{Title: "t0", Status: models.StatusPending, Priority: models.PriorityHigh, AssignedTo: []string{"a"}, DueDate: &past},
		{Title: "t1", Status: models.StatusCompleted, Priority: models.PriorityHigh, AssignedTo: []string{"a", "b"}, DueDate: &past},
		{Title: "t2", Status: models.StatusInProgress, Priority: models.PriorityLow, AssignedTo: []string{"b"}},
	}
	for i := range seed {
		seed[i].CreatedAt = now.Add(time.Duration(i) * time.Minute)
		require.NoError(t, storage.CreateTask(ctx, &seed[i]))
	}

	tests := []struct {
		name   string
		filter models.TaskFilter
		want   struct {
			titles []string
		}
	}{
		{name: "all", filter: models.TaskFilter{}, want: struct{ titles []string }{[]string{"t2", "t1", "t0"}}},
		{name: "assignee", filter: models.TaskFilter{AssigneeID: "b"}, want: struct{ titles []string }{[]string{"t2", "t1"}}},
		{name: "status", filter: models.TaskFilter{Status: models.StatusCompleted}, want: struct{ titles []string }{[]string{"t1"}}},
		{name: "overdue", filter: models.TaskFilter{}.Overdue(now), want: struct{ titles []string }{[]string{"t0"}}},
		{name: "nobody", filter: models.TaskFilter{AssigneeID: "z"}, want: struct{ titles []string }{[]string{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, err := storage.ListTasks(ctx, tt.filter)
			require.NoError(t, err)
			titles := []string{}
			for _, task := range list {
				titles = append(titles, task.Title)
			}
			assert.Equal(t, tt.want.titles, titles)

			n, err := storage.CountTasks(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, int64(len(tt.want.titles)), n)
		})
	}

	byStatus, err := storage.CountByStatus(ctx, models.TaskFilter{AssigneeID: "a"})
	require.NoError(t, err)
	assert.Equal(t, map[models.TaskStatus]int64{models.StatusPending: 1, models.StatusCompleted: 1}, byStatus)

	byPriority, err := storage.CountByPriority(ctx, models.TaskFilter{})
	require.NoError(t, err)
	assert.Equal(t, map[models.Priority]int64{models.PriorityHigh: 2, models.PriorityLow: 1}, byPriority)

	recent, err := storage.RecentTasks(ctx, models.TaskFilter{}, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "t2", recent[0].Title)

	task := seed[0]
	task.Status = models.StatusCompleted
	require.NoError(t, storage.UpdateTask(ctx, &task))
	got, err := storage.GetTaskByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)

	require.NoError(t, storage.DeleteTask(ctx, task.ID))
	assert.ErrorIs(t, storage.DeleteTask(ctx, task.ID), errors.ErrTaskNotFound)
	assert.ErrorIs(t, storage.UpdateTask(ctx, &task), errors.ErrTaskNotFound)
}

func TestStorageUpdateAndDeleteUser(t *testing.T) {
	tests := []struct {
		name   string
		update func(alice models.User) models.User
		want   struct {
			err error
		}
	}{
		{
			name: "rename",
			update: func(u models.User) models.User {
				u.Name = "Alice B."
				u.Email = "alice.b@example.com"
				return u
			},
		},
		{
			name: "email of another user",
			update: func(u models.User) models.User {
				u.Email = "BOB@example.com"
				return u
			},
			want: struct{ err error }{errors.ErrUserExists},
		},
		{
			name: "username of another user",
			update: func(u models.User) models.User {
				u.Username = "bob"
				return u
			},
			want: struct{ err error }{errors.ErrUserExists},
		},
		{
			name: "unknown id",
			update: func(u models.User) models.User {
				u.ID = models.NewID()
				return u
			},
			want: struct{ err error }{errors.ErrUserNotFound},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			s := NewStorage()
			alice := &models.User{Name: "Alice", Username: "alice", Email: "alice@example.com"}
			require.NoError(t, s.CreateUser(ctx, alice))
			require.NoError(t, s.CreateUser(ctx, &models.User{Username: "bob", Email: "bob@example.com"}))

			updated := tt.update(*alice)
			err := s.UpdateUser(ctx, &updated)

			stored, getErr := s.GetUserByID(ctx, alice.ID)
			require.NoError(t, getErr)
			if tt.want.err != nil {
				assert.ErrorIs(t, err, tt.want.err)
				assert.Equal(t, *alice, *stored)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, updated, *stored)
		})
	}

	t.Run("delete", func(t *testing.T) {
		ctx := context.Background()
		s := NewStorage()
		u := &models.User{Username: "gone", Email: "gone@example.com"}
		require.NoError(t, s.CreateUser(ctx, u))

		require.NoError(t, s.DeleteUser(ctx, u.ID))
		_, err := s.GetUserByID(ctx, u.ID)
		assert.ErrorIs(t, err, errors.ErrUserNotFound)
		assert.ErrorIs(t, s.DeleteUser(ctx, u.ID), errors.ErrUserNotFound)
	})
}

func TestStorageListOrderWithEqualTimestamps(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	var taskIDs, teamIDs, userIDs []string
	for i := 0; i < 8; i++ {
		id := fmt.Sprintf("%024x", i+1)
		task := &models.Task{ID: id, Title: "t", Status: models.StatusPending, CreatedAt: at}
		require.NoError(t, s.CreateTask(ctx, task))
		taskIDs = append(taskIDs, task.ID)

		team := &models.Team{ID: id, TeamName: id, CreatedAt: at}
		require.NoError(t, s.CreateTeam(ctx, team))
		teamIDs = append(teamIDs, team.ID)

		user := &models.User{ID: id, Username: id, Email: id + "@example.com", Role: models.RoleMember, CreatedAt: at}
		require.NoError(t, s.CreateUser(ctx, user))
		userIDs = append(userIDs, user.ID)
	}

	for run := 0; run < 5; run++ {
		tasks, err := s.ListTasks(ctx, models.TaskFilter{})
		require.NoError(t, err)
		require.Len(t, tasks, len(taskIDs))
		for i, task := range tasks {
			assert.Equal(t, taskIDs[len(taskIDs)-1-i], task.ID)
		}

		recent, err := s.RecentTasks(ctx, models.TaskFilter{}, 3)
		require.NoError(t, err)
		require.Len(t, recent, 3)
		for i, task := range recent {
			assert.Equal(t, taskIDs[len(taskIDs)-1-i], task.ID)
		}

		teams, err := s.ListTeams(ctx)
		require.NoError(t, err)
		for i, team := range teams {
			assert.Equal(t, teamIDs[len(teamIDs)-1-i], team.ID)
		}

		users, err := s.ListUsersByRole(ctx, models.RoleMember)
		require.NoError(t, err)
		for i, user := range users {
			assert.Equal(t, userIDs[i], user.ID)
		}
	}
}

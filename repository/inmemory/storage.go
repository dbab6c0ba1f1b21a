package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"assignado/internal/domain/errors"
	"assignado/internal/domain/models"
)

// Storage keeps everything in maps behind one lock. Values are copied on
// the way in and out so callers never share slices with the store.
type Storage struct {
	mu    sync.RWMutex
	users map[string]models.User
	teams map[string]models.Team
	tasks map[string]models.Task
}

func NewStorage() *Storage {
	return &Storage{
		users: make(map[string]models.User),
		teams: make(map[string]models.Team),
		tasks: make(map[string]models.Task),
	}
}

func (s *Storage) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, user.Email) || existing.Username == user.Username {
			return errors.ErrUserExists
		}
	}
	if user.ID == "" {
		user.ID = models.NewID()
	}
	s.users[user.ID] = *user
	return nil
}

func (s *Storage) UpdateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; !ok {
		return errors.ErrUserNotFound
	}
	for id, existing := range s.users {
		if id == user.ID {
			continue
		}
		if strings.EqualFold(existing.Email, user.Email) || existing.Username == user.Username {
			return errors.ErrUserExists
		}
	}
	s.users[user.ID] = *user
	return nil
}

func (s *Storage) DeleteUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return errors.ErrUserNotFound
	}
	delete(s.users, id)
	return nil
}

func (s *Storage) GetUserByID(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return nil, errors.ErrUserNotFound
	}
	return &user, nil
}

func (s *Storage) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.users {
		if strings.EqualFold(user.Email, email) {
			return &user, nil
		}
	}
	return nil, errors.ErrUserNotFound
}

func (s *Storage) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.users {
		if user.Username == username {
			return &user, nil
		}
	}
	return nil, errors.ErrUserNotFound
}

func (s *Storage) GetUsersByIDs(_ context.Context, ids []string) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.User{}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if user, ok := s.users[id]; ok {
			out = append(out, user)
		}
	}
	return out, nil
}

func (s *Storage) ListUsersByRole(_ context.Context, role models.Role) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.User{}
	for _, user := range s.users {
		if user.Role == role {
			out = append(out, user)
		}
	}
	sort.Slice(out, func(i, j int) bool { return olderFirst(out[i].CreatedAt, out[i].ID, out[j].CreatedAt, out[j].ID) })
	return out, nil
}

func (s *Storage) CreateTeam(_ context.Context, team *models.Team) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.teamNameTaken(team.TeamName, "") {
		return errors.ErrTeamExists
	}
	if team.ID == "" {
		team.ID = models.NewID()
	}
	s.teams[team.ID] = copyTeam(*team)
	return nil
}

func (s *Storage) GetTeamByID(_ context.Context, id string) (*models.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	team, ok := s.teams[id]
	if !ok {
		return nil, errors.ErrTeamNotFound
	}
	team = copyTeam(team)
	return &team, nil
}

func (s *Storage) GetTeamByName(_ context.Context, name string) (*models.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, team := range s.teams {
		if team.TeamName == name {
			team = copyTeam(team)
			return &team, nil
		}
	}
	return nil, errors.ErrTeamNotFound
}

func (s *Storage) ListTeams(_ context.Context) ([]models.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Team, 0, len(s.teams))
	for _, team := range s.teams {
		out = append(out, copyTeam(team))
	}
	sort.Slice(out, func(i, j int) bool { return olderFirst(out[j].CreatedAt, out[j].ID, out[i].CreatedAt, out[i].ID) })
	return out, nil
}

func (s *Storage) UpdateTeam(_ context.Context, team *models.Team) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.teams[team.ID]; !ok {
		return errors.ErrTeamNotFound
	}
	if s.teamNameTaken(team.TeamName, team.ID) {
		return errors.ErrTeamExists
	}
	s.teams[team.ID] = copyTeam(*team)
	return nil
}

func (s *Storage) AddTeamMembers(_ context.Context, id string, members []string, at time.Time) (*models.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	team, ok := s.teams[id]
	if !ok {
		return nil, errors.ErrTeamNotFound
	}
	team = copyTeam(team)
	changed := false
	for _, m := range members {
		if !team.HasMember(m) {
			team.Members = append(team.Members, m)
			changed = true
		}
	}
	if changed {
		team.UpdatedAt = at
		s.teams[id] = team
	}
	out := copyTeam(team)
	return &out, nil
}

func (s *Storage) DeleteTeam(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.teams[id]; !ok {
		return errors.ErrTeamNotFound
	}
	delete(s.teams, id)
	return nil
}

func (s *Storage) teamNameTaken(name, exceptID string) bool {
	for id, team := range s.teams {
		if id != exceptID && team.TeamName == name {
			return true
		}
	}
	return false
}

func (s *Storage) CreateTask(_ context.Context, task *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if task.ID == "" {
		task.ID = models.NewID()
	}
	s.tasks[task.ID] = copyTask(*task)
	return nil
}

func (s *Storage) GetTaskByID(_ context.Context, id string) (*models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	task, ok := s.tasks[id]
	if !ok {
		return nil, errors.ErrTaskNotFound
	}
	task = copyTask(task)
	return &task, nil
}

func (s *Storage) ListTasks(_ context.Context, filter models.TaskFilter) ([]models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Task{}
	for _, task := range s.tasks {
		if filter.Match(&task) {
			out = append(out, copyTask(task))
		}
	}
	sort.Slice(out, func(i, j int) bool { return olderFirst(out[j].CreatedAt, out[j].ID, out[i].CreatedAt, out[i].ID) })
	return out, nil
}

func (s *Storage) UpdateTask(_ context.Context, task *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[task.ID]; !ok {
		return errors.ErrTaskNotFound
	}
	s.tasks[task.ID] = copyTask(*task)
	return nil
}

func (s *Storage) DeleteTask(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[id]; !ok {
		return errors.ErrTaskNotFound
	}
	delete(s.tasks, id)
	return nil
}

func (s *Storage) CountTasks(_ context.Context, filter models.TaskFilter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, task := range s.tasks {
		if filter.Match(&task) {
			n++
		}
	}
	return n, nil
}

func (s *Storage) CountByStatus(_ context.Context, filter models.TaskFilter) (map[models.TaskStatus]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[models.TaskStatus]int64)
	for _, task := range s.tasks {
		if filter.Match(&task) {
			out[task.Status]++
		}
	}
	return out, nil
}

func (s *Storage) CountByPriority(_ context.Context, filter models.TaskFilter) (map[models.Priority]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[models.Priority]int64)
	for _, task := range s.tasks {
		if filter.Match(&task) {
			out[task.Priority]++
		}
	}
	return out, nil
}

func (s *Storage) RecentTasks(ctx context.Context, filter models.TaskFilter, limit int) ([]models.TaskSummary, error) {
	tasks, err := s.ListTasks(ctx, filter)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(tasks) > limit {
		tasks = tasks[:limit]
	}
	out := make([]models.TaskSummary, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, models.TaskSummary{
			ID:        t.ID,
			Title:     t.Title,
			Status:    t.Status,
			Priority:  t.Priority,
			DueDate:   t.DueDate,
			CreatedAt: t.CreatedAt,
		})
	}
	return out, nil
}

// olderFirst orders by creation time. Ties fall back to the id, which is
// time-ordered as well, so listings are stable across calls.
func olderFirst(a time.Time, aID string, b time.Time, bID string) bool {
	if !a.Equal(b) {
		return a.Before(b)
	}
	return aID < bID
}

func copyTeam(t models.Team) models.Team {
	t.Members = append([]string{}, t.Members...)
	return t
}

func copyTask(t models.Task) models.Task {
	t.TodoCheckList = append([]models.ChecklistItem{}, t.TodoCheckList...)
	t.AssignedTo = append([]string{}, t.AssignedTo...)
	t.Attachments = append([]string{}, t.Attachments...)
	if t.DueDate != nil {
		due := *t.DueDate
		t.DueDate = &due
	}
	return t
}

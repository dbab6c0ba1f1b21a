package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"assignado/internal/domain/errors"
	"assignado/internal/domain/models"
	"assignado/internal/logging"
	"assignado/internal/progress"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type TaskService struct {
	tasks    TaskRepository
	teams    TeamRepository
	users    UserRepository
	resolver *TeamService
	now      func() time.Time
	log      *logrus.Entry
}

func NewTaskService(tasks TaskRepository, teams TeamRepository, users UserRepository, resolver *TeamService) *TaskService {
	return &TaskService{
		tasks:    tasks,
		teams:    teams,
		users:    users,
		resolver: resolver,
		now:      time.Now,
		log:      logging.Component("tasks"),
	}
}

type CreateResult struct {
	Task         *models.TaskDetail
	TeamAction   TeamAction
	AddedMembers []string
}

type TaskList struct {
	Tasks         []models.TaskDetail
	StatusSummary models.StatusSummary
}

// Create validates the request, binds the task to a team and persists it.
// Nothing is written when validation or team resolution fails.
func (s *TaskService) Create(ctx context.Context, p Principal, req models.CreateTaskRequest) (*CreateResult, error) {
	if !p.IsAdmin() {
		return nil, errors.ErrAdminOnly
	}
	assignees, err := validAssignees(req.AssignedTo)
	if err != nil {
		return nil, err
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, errors.ErrInvalidTitle
	}
	priority := req.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	if !priority.Valid() {
		return nil, errors.ErrInvalidPriority
	}
	if err := validChecklist(req.TodoCheckList); err != nil {
		return nil, err
	}

	res, err := s.resolver.Resolve(ctx, req.Team, req.TeamName, assignees, title)
	if err != nil {
		return nil, fmt.Errorf("resolve team: %w", err)
	}

	now := s.now()
	task := &models.Task{
		Title:         title,
		Description:   req.Description,
		Priority:      priority,
		Status:        models.StatusPending,
		DueDate:       req.DueDate,
		Progress:      0,
		TodoCheckList: nonNilItems(req.TodoCheckList),
		AssignedTo:    assignees,
		Team:          res.Team.ID,
		CreatedBy:     p.ID,
		Attachments:   nonNilStrings(req.Attachments),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.tasks.CreateTask(ctx, task); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{
		"task":       task.ID,
		"team":       task.Team,
		"teamAction": res.Action(),
	}).Info("task created")

	detail, err := s.detail(ctx, task, res.Team)
	if err != nil {
		return nil, err
	}
	return &CreateResult{Task: detail, TeamAction: res.Action(), AddedMembers: res.Added}, nil
}

// List returns the tasks visible to p, optionally narrowed by status, and a
// status summary over the unfiltered scope. The four summary counts are
// separate queries and may observe different states under concurrent writes.
func (s *TaskService) List(ctx context.Context, p Principal, status models.TaskStatus) (*TaskList, error) {
	if status != "" && !status.Valid() {
		return nil, errors.ErrInvalidStatus
	}
	scope := ScopeFilter(p)

	tasks, err := s.tasks.ListTasks(ctx, scope.WithStatus(status))
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, t := range tasks {
		ids = append(ids, t.AssignedTo...)
	}
	dir, err := loadDirectory(ctx, s.users, ids)
	if err != nil {
		return nil, err
	}

	out := make([]models.TaskDetail, 0, len(tasks))
	for i := range tasks {
		d := taskDetail(&tasks[i], dir, nil)
		done := progress.CompletedCount(tasks[i].TodoCheckList)
		d.CompletedTodoCount = &done
		out = append(out, d)
	}

	summary, err := s.statusSummary(ctx, scope)
	if err != nil {
		return nil, err
	}
	return &TaskList{Tasks: out, StatusSummary: summary}, nil
}

func (s *TaskService) statusSummary(ctx context.Context, scope models.TaskFilter) (models.StatusSummary, error) {
	var sum models.StatusSummary
	g, gctx := errgroup.WithContext(ctx)
	count := func(dst *int64, f models.TaskFilter) {
		g.Go(func() error {
			n, err := s.tasks.CountTasks(gctx, f)
			*dst = n
			return err
		})
	}
	count(&sum.All, scope)
	count(&sum.PendingTasks, scope.WithStatus(models.StatusPending))
	count(&sum.InProgressTasks, scope.WithStatus(models.StatusInProgress))
	count(&sum.CompletedTasks, scope.WithStatus(models.StatusCompleted))
	if err := g.Wait(); err != nil {
		return models.StatusSummary{}, err
	}
	return sum, nil
}

func (s *TaskService) Get(ctx context.Context, id string) (*models.TaskDetail, error) {
	task, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, task, nil)
}

// Update replaces the supplied fields. A new assignee list does not touch
// team membership.
func (s *TaskService) Update(ctx context.Context, p Principal, id string, req models.UpdateTaskRequest) (*models.TaskDetail, error) {
	if !p.IsAdmin() {
		return nil, errors.ErrAdminOnly
	}
	task, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, errors.ErrInvalidTitle
		}
		task.Title = title
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.Priority != nil {
		if !req.Priority.Valid() {
			return nil, errors.ErrInvalidPriority
		}
		task.Priority = *req.Priority
	}
	if req.DueDate != nil {
		task.DueDate = req.DueDate
	}
	if req.TodoCheckList != nil {
		if err := validChecklist(*req.TodoCheckList); err != nil {
			return nil, err
		}
		task.TodoCheckList = nonNilItems(*req.TodoCheckList)
	}
	if req.Attachments != nil {
		task.Attachments = nonNilStrings(*req.Attachments)
	}
	if req.AssignedTo != nil {
		assignees, err := validAssignees(*req.AssignedTo)
		if err != nil {
			return nil, err
		}
		task.AssignedTo = assignees
	}
	task.UpdatedAt = s.now()

	if err := s.tasks.UpdateTask(ctx, task); err != nil {
		return nil, err
	}
	return s.detail(ctx, task, nil)
}

func (s *TaskService) Delete(ctx context.Context, p Principal, id string) error {
	if !p.IsAdmin() {
		return errors.ErrAdminOnly
	}
	if !models.IsValidID(id) {
		return errors.ErrTaskNotFound
	}
	if err := s.tasks.DeleteTask(ctx, id); err != nil {
		return err
	}
	s.log.WithField("task", id).Info("task deleted")
	return nil
}

// UpdateStatus sets the status by hand. Completed also ticks every checklist
// item and pins progress at 100; other statuses leave progress and the
// checklist untouched. An empty status keeps the current one.
func (s *TaskService) UpdateStatus(ctx context.Context, p Principal, id string, status models.TaskStatus) (*models.TaskDetail, error) {
	task, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canWork(p, task) {
		return nil, errors.ErrNotAssignee
	}
	if status != "" {
		if !status.Valid() {
			return nil, errors.ErrInvalidStatus
		}
		task.Status = status
	}
	if task.Status == models.StatusCompleted {
		progress.Complete(task)
	}
	task.UpdatedAt = s.now()

	if err := s.tasks.UpdateTask(ctx, task); err != nil {
		return nil, err
	}
	return s.detail(ctx, task, nil)
}

// UpdateChecklist replaces the checklist and re-derives progress and status.
func (s *TaskService) UpdateChecklist(ctx context.Context, p Principal, id string, items []models.ChecklistItem) (*models.TaskDetail, error) {
	task, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canWork(p, task) {
		return nil, errors.ErrNotAssignee
	}
	if err := validChecklist(items); err != nil {
		return nil, err
	}
	progress.ApplyChecklist(task, items)
	task.UpdatedAt = s.now()

	if err := s.tasks.UpdateTask(ctx, task); err != nil {
		return nil, err
	}
	return s.detail(ctx, task, nil)
}

func (s *TaskService) load(ctx context.Context, id string) (*models.Task, error) {
	if !models.IsValidID(id) {
		return nil, errors.ErrTaskNotFound
	}
	return s.tasks.GetTaskByID(ctx, id)
}

// detail populates assignees and, when known or resolvable, the team.
func (s *TaskService) detail(ctx context.Context, task *models.Task, team *models.Team) (*models.TaskDetail, error) {
	dir, err := loadDirectory(ctx, s.users, task.AssignedTo)
	if err != nil {
		return nil, err
	}
	if team == nil && task.Team != "" {
		t, err := s.teams.GetTeamByID(ctx, task.Team)
		switch {
		case err == nil:
			team = t
		case !errors.Is(err, errors.ErrTeamNotFound):
			return nil, err
		}
	}
	d := taskDetail(task, dir, team)
	return &d, nil
}

func taskDetail(t *models.Task, dir directory, team *models.Team) models.TaskDetail {
	d := models.TaskDetail{
		ID:            t.ID,
		Title:         t.Title,
		Description:   t.Description,
		Priority:      t.Priority,
		Status:        t.Status,
		DueDate:       t.DueDate,
		Progress:      t.Progress,
		TodoCheckList: nonNilItems(t.TodoCheckList),
		AssignedTo:    dir.refs(t.AssignedTo),
		CreatedBy:     t.CreatedBy,
		Attachments:   nonNilStrings(t.Attachments),
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
	if team != nil {
		d.Team = &models.TeamRef{
			ID:          team.ID,
			TeamName:    team.TeamName,
			Description: team.Description,
			Members:     team.Members,
		}
	}
	return d
}

func validAssignees(ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, errors.ErrEmptyAssignees
	}
	for _, id := range ids {
		if !models.IsValidID(id) {
			return nil, errors.ErrInvalidAssignee
		}
	}
	return dedupe(ids), nil
}

func validChecklist(items []models.ChecklistItem) error {
	for _, item := range items {
		if strings.TrimSpace(item.Text) == "" {
			return errors.ErrInvalidChecklist
		}
	}
	return nil
}

func nonNilItems(items []models.ChecklistItem) []models.ChecklistItem {
	if items == nil {
		return []models.ChecklistItem{}
	}
	return items
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

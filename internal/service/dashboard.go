package service

import (
	"context"
	"strings"
	"time"

	"assignado/internal/domain/models"

	"golang.org/x/sync/errgroup"
)

const recentTaskLimit = 10

type DashboardService struct {
	tasks TaskRepository
	now   func() time.Time
}

func NewDashboardService(tasks TaskRepository) *DashboardService {
	return &DashboardService{tasks: tasks, now: time.Now}
}

// Aggregate computes statistics, charts and recent tasks for scope. The
// queries run concurrently with no shared snapshot, so under concurrent
// writes the per-status buckets need not add up to All.
func (s *DashboardService) Aggregate(ctx context.Context, scope models.TaskFilter) (*models.Dashboard, error) {
	var (
		stats      models.Statistics
		byStatus   map[models.TaskStatus]int64
		byPriority map[models.Priority]int64
		recent     []models.TaskSummary
	)
	now := s.now()

	g, gctx := errgroup.WithContext(ctx)
	count := func(dst *int64, f models.TaskFilter) {
		g.Go(func() error {
			n, err := s.tasks.CountTasks(gctx, f)
			*dst = n
			return err
		})
	}
	count(&stats.TotalTasks, scope)
	count(&stats.PendingTasks, scope.WithStatus(models.StatusPending))
	count(&stats.CompletedTasks, scope.WithStatus(models.StatusCompleted))
	count(&stats.OverdueTasks, scope.Overdue(now))

	g.Go(func() error {
		var err error
		byStatus, err = s.tasks.CountByStatus(gctx, scope)
		return err
	})
	g.Go(func() error {
		var err error
		byPriority, err = s.tasks.CountByPriority(gctx, scope)
		return err
	})
	g.Go(func() error {
		var err error
		recent, err = s.tasks.RecentTasks(gctx, scope, recentTaskLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	distribution := make(map[string]int64, len(models.Statuses)+1)
	for _, st := range models.Statuses {
		distribution[strings.ReplaceAll(string(st), " ", "")] = byStatus[st]
	}
	distribution["All"] = stats.TotalTasks

	priorities := make(map[string]int64, len(models.Priorities))
	for _, p := range models.Priorities {
		priorities[string(p)] = byPriority[p]
	}

	if recent == nil {
		recent = []models.TaskSummary{}
	}
	return &models.Dashboard{
		Statistics: stats,
		Charts: models.Charts{
			TaskDistribution:   distribution,
			TaskPriorityLevels: priorities,
		},
		RecentTasks: recent,
	}, nil
}

// Package progress derives task progress and status from checklist state.
// Every function here is total and side-effect free apart from Complete,
// which mutates only the task it is handed.
package progress

import "assignado/internal/domain/models"

// CompletedCount returns how many checklist items are done.
func CompletedCount(items []models.ChecklistItem) int {
	n := 0
	for _, item := range items {
		if item.Completed {
			n++
		}
	}
	return n
}

// ComputeProgress returns round-half-up(100 * completed / total), or 0 for an
// empty checklist.
func ComputeProgress(items []models.ChecklistItem) int {
	total := len(items)
	if total == 0 {
		return 0
	}
	done := CompletedCount(items)
	return (200*done + total) / (2 * total)
}

func DeriveStatus(percent int) models.TaskStatus {
	switch {
	case percent >= 100:
		return models.StatusCompleted
	case percent > 0:
		return models.StatusInProgress
	default:
		return models.StatusPending
	}
}

// ApplyChecklist replaces the checklist and recomputes progress and status.
func ApplyChecklist(task *models.Task, items []models.ChecklistItem) {
	if items == nil {
		items = []models.ChecklistItem{}
	}
	task.TodoCheckList = items
	task.Progress = ComputeProgress(items)
	task.Status = DeriveStatus(task.Progress)
}

// Complete marks every checklist item done and pins progress at 100.
// Applying it twice leaves the task unchanged.
func Complete(task *models.Task) {
	for i := range task.TodoCheckList {
		task.TodoCheckList[i].Completed = true
	}
	task.Progress = 100
	task.Status = models.StatusCompleted
}

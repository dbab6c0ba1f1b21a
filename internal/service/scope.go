package service

import "assignado/internal/domain/models"

// Principal is the authenticated caller.
type Principal struct {
	ID   string
	Role models.Role
}

func (p Principal) IsAdmin() bool { return p.Role == models.RoleAdmin }

func PrincipalOf(u *models.User) Principal {
	return Principal{ID: u.ID, Role: u.Role}
}

// ScopeFilter is the one place that decides which tasks a principal can see:
// admins see every task, members only the tasks they are assigned to.
func ScopeFilter(p Principal) models.TaskFilter {
	if p.IsAdmin() {
		return models.TaskFilter{}
	}
	return models.TaskFilter{AssigneeID: p.ID}
}

// UserScope restricts to one assignee regardless of role.
func UserScope(userID string) models.TaskFilter {
	return models.TaskFilter{AssigneeID: userID}
}

// canWork reports whether p may change a task's status or checklist.
func canWork(p Principal, t *models.Task) bool {
	return p.IsAdmin() || t.IsAssignee(p.ID)
}

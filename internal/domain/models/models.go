package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

type TaskStatus string

const (
	StatusPending    TaskStatus = "Pending"
	StatusInProgress TaskStatus = "In Progress"
	StatusCompleted  TaskStatus = "Completed"
)

// Statuses is the fixed status set in display order.
var Statuses = []TaskStatus{StatusPending, StatusInProgress, StatusCompleted}

func (s TaskStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// NewID returns a fresh 24-hex object identifier. Every backend uses this
// format so ids survive a storage switch.
func NewID() string {
	return primitive.NewObjectID().Hex()
}

func IsValidID(id string) bool {
	return primitive.IsValidObjectID(id)
}

type User struct {
	ID              string    `json:"_id"`
	Name            string    `json:"name"`
	Username        string    `json:"username"`
	Email           string    `json:"email"`
	Password        string    `json:"-"`
	Role            Role      `json:"role"`
	Bio             string    `json:"bio,omitempty"`
	ProfileImageURL string    `json:"profileImageUrl,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func (u *User) IsAdmin() bool { return u != nil && u.Role == RoleAdmin }

// UserRef is the populated view of a user referenced by a task or team.
type UserRef struct {
	ID              string `json:"_id"`
	Name            string `json:"name,omitempty"`
	Username        string `json:"username,omitempty"`
	Email           string `json:"email,omitempty"`
	ProfileImageURL string `json:"profileImageUrl,omitempty"`
}

func (u User) Ref() UserRef {
	return UserRef{
		ID:              u.ID,
		Name:            u.Name,
		Username:        u.Username,
		Email:           u.Email,
		ProfileImageURL: u.ProfileImageURL,
	}
}

type ChecklistItem struct {
	Text      string `json:"text" bson:"text" validate:"required"`
	Completed bool   `json:"completed" bson:"completed"`
}

type Task struct {
	ID            string          `json:"_id"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	Priority      Priority        `json:"priority"`
	Status        TaskStatus      `json:"status"`
	DueDate       *time.Time      `json:"dueDate,omitempty"`
	Progress      int             `json:"progress"`
	TodoCheckList []ChecklistItem `json:"todoCheckList"`
	AssignedTo    []string        `json:"assignedTo"`
	Team          string          `json:"team,omitempty"`
	CreatedBy     string          `json:"createdBy"`
	Attachments   []string        `json:"attachments"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

func (t *Task) IsAssignee(userID string) bool {
	for _, id := range t.AssignedTo {
		if id == userID {
			return true
		}
	}
	return false
}

// TaskSummary is the reduced shape returned in dashboard recent lists.
type TaskSummary struct {
	ID        string     `json:"_id"`
	Title     string     `json:"title"`
	Status    TaskStatus `json:"status"`
	Priority  Priority   `json:"priority"`
	DueDate   *time.Time `json:"dueDate,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

type Team struct {
	ID          string    `json:"_id"`
	TeamName    string    `json:"teamName"`
	Description string    `json:"description"`
	Members     []string  `json:"members"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (t *Team) HasMember(userID string) bool {
	for _, id := range t.Members {
		if id == userID {
			return true
		}
	}
	return false
}

// TeamRef is the populated view of a task's team.
type TeamRef struct {
	ID          string   `json:"_id"`
	TeamName    string   `json:"teamName"`
	Description string   `json:"description"`
	Members     []string `json:"members"`
}

// TeamDetail is a team with member documents populated.
type TeamDetail struct {
	ID          string    `json:"_id"`
	TeamName    string    `json:"teamName"`
	Description string    `json:"description"`
	Members     []UserRef `json:"members"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// TaskDetail is a task with assignees and team populated. The derived
// CompletedTodoCount is never persisted.
type TaskDetail struct {
	ID                 string          `json:"_id"`
	Title              string          `json:"title"`
	Description        string          `json:"description"`
	Priority           Priority        `json:"priority"`
	Status             TaskStatus      `json:"status"`
	DueDate            *time.Time      `json:"dueDate,omitempty"`
	Progress           int             `json:"progress"`
	TodoCheckList      []ChecklistItem `json:"todoCheckList"`
	AssignedTo         []UserRef       `json:"assignedTo"`
	Team               *TeamRef        `json:"team,omitempty"`
	CreatedBy          string          `json:"createdBy"`
	Attachments        []string        `json:"attachments"`
	CompletedTodoCount *int            `json:"completedTodoCount,omitempty"`
	CreatedAt          time.Time       `json:"createdAt"`
	UpdatedAt          time.Time       `json:"updatedAt"`
}

// TaskFilter is the store-independent task predicate. Zero fields match
// everything; OverdueAt selects unfinished tasks due strictly before it.
type TaskFilter struct {
	AssigneeID string
	Status     TaskStatus
	OverdueAt  time.Time
}

func (f TaskFilter) WithStatus(s TaskStatus) TaskFilter {
	f.Status = s
	return f
}

func (f TaskFilter) Overdue(now time.Time) TaskFilter {
	f.OverdueAt = now
	return f
}

// Match evaluates the filter in memory.
func (f TaskFilter) Match(t *Task) bool {
	if f.AssigneeID != "" && !t.IsAssignee(f.AssigneeID) {
		return false
	}
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if !f.OverdueAt.IsZero() {
		if t.Status == StatusCompleted || t.DueDate == nil || !t.DueDate.Before(f.OverdueAt) {
			return false
		}
	}
	return true
}

type StatusSummary struct {
	All             int64 `json:"all"`
	PendingTasks    int64 `json:"pendingTasks"`
	InProgressTasks int64 `json:"inProgressTasks"`
	CompletedTasks  int64 `json:"completedTasks"`
}

type Statistics struct {
	TotalTasks     int64 `json:"totalTasks"`
	PendingTasks   int64 `json:"pendingTasks"`
	CompletedTasks int64 `json:"completedTasks"`
	OverdueTasks   int64 `json:"overdueTasks"`
}

type Charts struct {
	TaskDistribution   map[string]int64 `json:"taskDistribution"`
	TaskPriorityLevels map[string]int64 `json:"taskPriorityLevels"`
}

type Dashboard struct {
	Statistics  Statistics    `json:"statistics"`
	Charts      Charts        `json:"charts"`
	RecentTasks []TaskSummary `json:"recentTasks"`
}

// UserWithCounts is a member listed together with their task counts.
type UserWithCounts struct {
	User
	PendingTasks    int64 `json:"pendingTasks"`
	InProgressTasks int64 `json:"inProgressTasks"`
	CompletedTasks  int64 `json:"completedTasks"`
}

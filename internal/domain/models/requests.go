package models

import "time"

type RegisterRequest struct {
	Name             string `json:"name" validate:"required,min=1,max=100"`
	Username         string `json:"username" validate:"required,min=3,max=50,alphanum"`
	Email            string `json:"email" validate:"required,email"`
	Password         string `json:"password" validate:"required,min=6,max=100"`
	Bio              string `json:"bio" validate:"omitempty,max=500"`
	ProfileImageURL  string `json:"profileImageUrl" validate:"omitempty,url"`
	AdminInviteToken string `json:"adminInviteToken"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type CreateTaskRequest struct {
	Title         string          `json:"title" validate:"required,min=1,max=200"`
	Description   string          `json:"description" validate:"omitempty,max=2000"`
	Priority      Priority        `json:"priority" validate:"omitempty,oneof=Low Medium High"`
	DueDate       *time.Time      `json:"dueDate"`
	AssignedTo    []string        `json:"assignedTo"`
	Attachments   []string        `json:"attachments"`
	TodoCheckList []ChecklistItem `json:"todoCheckList" validate:"dive"`
	Team          string          `json:"team"`
	TeamName      string          `json:"teamName"`
}

// UpdateTaskRequest carries optional replacements; nil means "keep".
type UpdateTaskRequest struct {
	Title         *string          `json:"title" validate:"omitempty,min=1,max=200"`
	Description   *string          `json:"description" validate:"omitempty,max=2000"`
	Priority      *Priority        `json:"priority" validate:"omitempty,oneof=Low Medium High"`
	DueDate       *time.Time       `json:"dueDate"`
	TodoCheckList *[]ChecklistItem `json:"todoCheckList"`
	Attachments   *[]string        `json:"attachments"`
	AssignedTo    *[]string        `json:"assignedTo"`
}

type UpdateStatusRequest struct {
	Status TaskStatus `json:"status"`
}

type UpdateChecklistRequest struct {
	TodoCheckList []ChecklistItem `json:"todoCheckList" validate:"dive"`
}

type CreateTeamRequest struct {
	TeamName    string   `json:"teamName"`
	Description string   `json:"description"`
	Members     []string `json:"members"`
}

type UpdateTeamRequest struct {
	TeamName    *string   `json:"teamName"`
	Description *string   `json:"description"`
	Members     *[]string `json:"members"`
}

// CreateUserRequest is the admin-side account creation; Role defaults to
// member.
type CreateUserRequest struct {
	Name            string `json:"name" validate:"required,min=1,max=100"`
	Username        string `json:"username" validate:"required,min=3,max=50,alphanum"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=6,max=100"`
	Role            Role   `json:"role" validate:"omitempty,oneof=admin member"`
	Bio             string `json:"bio" validate:"omitempty,max=500"`
	ProfileImageURL string `json:"profileImageUrl" validate:"omitempty,url"`
}

// UpdateUserRequest follows "empty means keep". The password changes only
// when both CurrentPassword and NewPassword are present.
type UpdateUserRequest struct {
	Name            string `json:"name" validate:"omitempty,max=100"`
	Username        string `json:"username" validate:"omitempty,min=3,max=50,alphanum"`
	Email           string `json:"email" validate:"omitempty,email"`
	Bio             string `json:"bio" validate:"omitempty,max=500"`
	ProfileImageURL string `json:"profileImageUrl" validate:"omitempty,url"`
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword" validate:"omitempty,min=6,max=100"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword" validate:"omitempty,min=6,max=100"`
}

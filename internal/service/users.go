package service

import (
	"context"
	"strings"
	"time"

	"assignado/internal/domain/errors"
	"assignado/internal/domain/models"
	"assignado/internal/logging"

	"github.com/sirupsen/logrus"
)

// directory is a lookup of users fetched for one response.
type directory map[string]models.User

func loadDirectory(ctx context.Context, users UserRepository, ids []string) (directory, error) {
	ids = dedupe(ids)
	dir := make(directory, len(ids))
	if len(ids) == 0 {
		return dir, nil
	}
	found, err := users.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, u := range found {
		dir[u.ID] = u
	}
	return dir, nil
}

// refs keeps order and falls back to a bare id for users that no longer
// exist.
func (d directory) refs(ids []string) []models.UserRef {
	out := make([]models.UserRef, 0, len(ids))
	for _, id := range ids {
		if u, ok := d[id]; ok {
			out = append(out, u.Ref())
			continue
		}
		out = append(out, models.UserRef{ID: id})
	}
	return out
}

// UserService manages accounts. Deleting a user leaves its id in task
// assignees and team members; responses render those as bare ids.
type UserService struct {
	users UserRepository
	tasks TaskRepository
	now   func() time.Time
	log   *logrus.Entry
}

func NewUserService(users UserRepository, tasks TaskRepository) *UserService {
	return &UserService{
		users: users,
		tasks: tasks,
		now:   time.Now,
		log:   logging.Component("users"),
	}
}

// Create is the admin-side account creation. The role defaults to member.
func (s *UserService) Create(ctx context.Context, p Principal, req models.CreateUserRequest) (*models.User, error) {
	if !p.IsAdmin() {
		return nil, errors.ErrAdminOnly
	}
	email := normalizeEmail(req.Email)
	if err := ensureAvailable(ctx, s.users, email, req.Username, ""); err != nil {
		return nil, err
	}
	hash, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	role := req.Role
	if role == "" {
		role = models.RoleMember
	}
	now := s.now()
	user := &models.User{
		Name:            strings.TrimSpace(req.Name),
		Username:        req.Username,
		Email:           email,
		Password:        hash,
		Role:            role,
		Bio:             req.Bio,
		ProfileImageURL: req.ProfileImageURL,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"user": user.ID, "role": user.Role, "by": p.ID}).Info("user created")
	return user, nil
}

// Update edits the caller's own profile.
func (s *UserService) Update(ctx context.Context, p Principal, id string, req models.UpdateUserRequest) (*models.User, error) {
	if !models.IsValidID(id) {
		return nil, errors.ErrInvalidID
	}
	if p.ID != id {
		return nil, errors.ErrNotAccountOwner
	}
	return s.applyUpdate(ctx, p, id, req)
}

// UpdateByAdmin edits any account, the admin's own profile included.
func (s *UserService) UpdateByAdmin(ctx context.Context, p Principal, id string, req models.UpdateUserRequest) (*models.User, error) {
	if !p.IsAdmin() {
		return nil, errors.ErrAdminOnly
	}
	if !models.IsValidID(id) {
		return nil, errors.ErrInvalidID
	}
	return s.applyUpdate(ctx, p, id, req)
}

func (s *UserService) applyUpdate(ctx context.Context, p Principal, id string, req models.UpdateUserRequest) (*models.User, error) {
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var email, username string
	if e := normalizeEmail(req.Email); e != "" && e != user.Email {
		email = e
	}
	if req.Username != "" && req.Username != user.Username {
		username = req.Username
	}
	if err := ensureAvailable(ctx, s.users, email, username, user.ID); err != nil {
		return nil, err
	}

	if name := strings.TrimSpace(req.Name); name != "" {
		user.Name = name
	}
	if username != "" {
		user.Username = username
	}
	if email != "" {
		user.Email = email
	}
	if req.Bio != "" {
		user.Bio = req.Bio
	}
	if req.ProfileImageURL != "" {
		user.ProfileImageURL = req.ProfileImageURL
	}
	if req.CurrentPassword != "" && req.NewPassword != "" {
		if !checkPassword(user.Password, req.CurrentPassword) {
			return nil, errors.ErrWrongPassword
		}
		if user.Password, err = hashPassword(req.NewPassword); err != nil {
			return nil, err
		}
	}
	user.UpdatedAt = s.now()

	if err := s.users.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"user": user.ID, "by": p.ID}).Info("user updated")
	return user, nil
}

// ChangePassword is owner-only and always checks the current password.
func (s *UserService) ChangePassword(ctx context.Context, p Principal, id string, req models.ChangePasswordRequest) error {
	if req.CurrentPassword == "" || req.NewPassword == "" {
		return errors.ErrPasswordRequired
	}
	if !models.IsValidID(id) {
		return errors.ErrInvalidID
	}
	if p.ID != id {
		return errors.ErrNotAccountOwner
	}
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return err
	}
	if !checkPassword(user.Password, req.CurrentPassword) {
		return errors.ErrWrongPassword
	}
	if user.Password, err = hashPassword(req.NewPassword); err != nil {
		return err
	}
	user.UpdatedAt = s.now()
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return err
	}
	s.log.WithField("user", user.ID).Info("password changed")
	return nil
}

// Delete removes an account. Members may delete only themselves.
func (s *UserService) Delete(ctx context.Context, p Principal, id string) error {
	if !models.IsValidID(id) {
		return errors.ErrInvalidID
	}
	if !p.IsAdmin() && p.ID != id {
		return errors.ErrNotAccountOwner
	}
	if err := s.users.DeleteUser(ctx, id); err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{"user": id, "by": p.ID}).Info("user deleted")
	return nil
}

func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	if !models.IsValidID(id) {
		return nil, errors.ErrInvalidID
	}
	return s.users.GetUserByID(ctx, id)
}

// ListMembers returns every member-role user with their task counts by
// status.
func (s *UserService) ListMembers(ctx context.Context) ([]models.UserWithCounts, error) {
	users, err := s.users.ListUsersByRole(ctx, models.RoleMember)
	if err != nil {
		return nil, err
	}

	out := make([]models.UserWithCounts, 0, len(users))
	for _, u := range users {
		counts, err := s.tasks.CountByStatus(ctx, UserScope(u.ID))
		if err != nil {
			return nil, err
		}
		out = append(out, models.UserWithCounts{
			User:            u,
			PendingTasks:    counts[models.StatusPending],
			InProgressTasks: counts[models.StatusInProgress],
			CompletedTasks:  counts[models.StatusCompleted],
		})
	}
	return out, nil
}

package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"assignado/internal/domain/errors"
	"assignado/internal/domain/models"
	"assignado/internal/logging"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

const uniqueViolation = "23505"

const (
	userColumns = `id, name, username, email, password, role, bio, profile_image_url, created_at, updated_at`
	teamColumns = `id, team_name, description, members, created_at, updated_at`
	taskColumns = `id, title, description, priority, status, due_date, progress, todo_checklist,
		assigned_to, team, created_by, attachments, created_at, updated_at`
	summaryColumns = `id, title, status, priority, due_date, created_at`
)

type Storage struct {
	pool    *pgxpool.Pool
	timeout time.Duration
	log     *logrus.Entry

	qCreateUser     string
	qUpdateUser     string
	qCreateTeam     string
	qUpdateTeam     string
	qAddTeamMembers string
	qCreateTask     string
	qUpdateTask     string
}

func NewStorage(connStr string, timeout time.Duration) (*Storage, error) {
	log := logging.Component("postgres")
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("%w: connect: %v", errors.ErrStore, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: ping: %v", errors.ErrStore, err)
	}

	s := &Storage{
		pool:    pool,
		timeout: timeout,
		log:     log,

		qCreateUser: `INSERT INTO users (` + userColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		qUpdateUser: `UPDATE users SET name = $2, username = $3, email = $4, password = $5, role = $6,
				bio = $7, profile_image_url = $8, updated_at = $9
			WHERE id = $1`,
		qCreateTeam: `INSERT INTO teams (` + teamColumns + `) VALUES ($1, $2, $3, $4, $5, $6)`,
		qUpdateTeam: `UPDATE teams SET team_name = $2, description = $3, members = $4, updated_at = $5 WHERE id = $1`,

		qAddTeamMembers: `UPDATE teams SET
				members = members || ARRAY(SELECT DISTINCT m FROM unnest($2::text[]) AS m WHERE NOT m = ANY(members)),
				updated_at = CASE WHEN $2::text[] <@ members THEN updated_at ELSE $3 END
			WHERE id = $1
			RETURNING ` + teamColumns,

		qCreateTask: `INSERT INTO tasks (` + taskColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,

		qUpdateTask: `UPDATE tasks SET title = $2, description = $3, priority = $4, status = $5, due_date = $6,
				progress = $7, todo_checklist = $8, assigned_to = $9, team = $10, attachments = $11, updated_at = $12
			WHERE id = $1`,
	}
	log.Info("connected to PostgreSQL")
	return s, nil
}

func (s *Storage) Close() {
	s.pool.Close()
}

func (s *Storage) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

func (s *Storage) storeErr(op string, err error) error {
	s.log.WithError(err).WithField("op", op).Error("postgres operation failed")
	return fmt.Errorf("%w: %s: %v", errors.ErrStore, op, err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// whereClause renders the filter as SQL, numbering placeholders from 1.
func whereClause(f models.TaskFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.AssigneeID != "" {
		conds = append(conds, arg(f.AssigneeID)+" = ANY(assigned_to)")
	}
	if f.Status != "" {
		conds = append(conds, "status = "+arg(string(f.Status)))
	}
	if !f.OverdueAt.IsZero() {
		conds = append(conds, "status <> "+arg(string(models.StatusCompleted)))
		conds = append(conds, "due_date IS NOT NULL AND due_date < "+arg(f.OverdueAt))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (s *Storage) CreateUser(ctx context.Context, user *models.User) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if user.ID == "" {
		user.ID = models.NewID()
	}
	_, err := s.pool.Exec(ctx, s.qCreateUser, user.ID, user.Name, user.Username, user.Email, user.Password,
		string(user.Role), user.Bio, user.ProfileImageURL, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.ErrUserExists
		}
		return s.storeErr("insert user", err)
	}
	return nil
}

func (s *Storage) UpdateUser(ctx context.Context, user *models.User) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	ct, err := s.pool.Exec(ctx, s.qUpdateUser, user.ID, user.Name, user.Username, user.Email, user.Password,
		string(user.Role), user.Bio, user.ProfileImageURL, user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.ErrUserExists
		}
		return s.storeErr("update user", err)
	}
	if ct.RowsAffected() == 0 {
		return errors.ErrUserNotFound
	}
	return nil
}

func (s *Storage) DeleteUser(ctx context.Context, id string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	ct, err := s.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return s.storeErr("delete user", err)
	}
	if ct.RowsAffected() == 0 {
		return errors.ErrUserNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (*models.User, error) {
	var (
		u    models.User
		role string
	)
	err := row.Scan(&u.ID, &u.Name, &u.Username, &u.Email, &u.Password, &role,
		&u.Bio, &u.ProfileImageURL, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.Role = models.Role(role)
	return &u, nil
}

func (s *Storage) getUser(ctx context.Context, where string, arg any) (*models.User, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	u, err := scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.ErrUserNotFound
		}
		return nil, s.storeErr("get user", err)
	}
	return u, nil
}

func (s *Storage) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.getUser(ctx, "id = $1", id)
}

func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUser(ctx, "lower(email) = lower($1)", email)
}

func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getUser(ctx, "username = $1", username)
}

func (s *Storage) queryUsers(ctx context.Context, query string, args ...any) ([]models.User, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, s.storeErr("query users", err)
	}
	defer rows.Close()

	out := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, s.storeErr("scan user", err)
		}
		out = append(out, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, s.storeErr("iterate users", err)
	}
	return out, nil
}

func (s *Storage) GetUsersByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	return s.queryUsers(ctx, `SELECT `+userColumns+` FROM users WHERE id = ANY($1)`, nonNil(ids))
}

func (s *Storage) ListUsersByRole(ctx context.Context, role models.Role) ([]models.User, error) {
	return s.queryUsers(ctx, `SELECT `+userColumns+` FROM users WHERE role = $1 ORDER BY created_at, id`, string(role))
}

func scanTeam(row pgx.Row) (*models.Team, error) {
	var t models.Team
	if err := row.Scan(&t.ID, &t.TeamName, &t.Description, &t.Members, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.Members = nonNil(t.Members)
	return &t, nil
}

func (s *Storage) CreateTeam(ctx context.Context, team *models.Team) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if team.ID == "" {
		team.ID = models.NewID()
	}
	_, err := s.pool.Exec(ctx, s.qCreateTeam, team.ID, team.TeamName, team.Description,
		nonNil(team.Members), team.CreatedAt, team.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.ErrTeamExists
		}
		return s.storeErr("insert team", err)
	}
	return nil
}

func (s *Storage) getTeam(ctx context.Context, where string, arg any) (*models.Team, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	t, err := scanTeam(s.pool.QueryRow(ctx, `SELECT `+teamColumns+` FROM teams WHERE `+where, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.ErrTeamNotFound
		}
		return nil, s.storeErr("get team", err)
	}
	return t, nil
}

func (s *Storage) GetTeamByID(ctx context.Context, id string) (*models.Team, error) {
	return s.getTeam(ctx, "id = $1", id)
}

func (s *Storage) GetTeamByName(ctx context.Context, name string) (*models.Team, error) {
	return s.getTeam(ctx, "team_name = $1", name)
}

func (s *Storage) ListTeams(ctx context.Context) ([]models.Team, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	rows, err := s.pool.Query(ctx, `SELECT `+teamColumns+` FROM teams ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, s.storeErr("list teams", err)
	}
	defer rows.Close()

	out := []models.Team{}
	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			return nil, s.storeErr("scan team", err)
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, s.storeErr("iterate teams", err)
	}
	return out, nil
}

func (s *Storage) UpdateTeam(ctx context.Context, team *models.Team) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	ct, err := s.pool.Exec(ctx, s.qUpdateTeam, team.ID, team.TeamName, team.Description,
		nonNil(team.Members), team.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.ErrTeamExists
		}
		return s.storeErr("update team", err)
	}
	if ct.RowsAffected() == 0 {
		return errors.ErrTeamNotFound
	}
	return nil
}

// AddTeamMembers appends the members not already present in a single
// statement, so concurrent merges serialize on the row lock.
func (s *Storage) AddTeamMembers(ctx context.Context, id string, members []string, at time.Time) (*models.Team, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	t, err := scanTeam(s.pool.QueryRow(ctx, s.qAddTeamMembers, id, nonNil(members), at))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.ErrTeamNotFound
		}
		return nil, s.storeErr("add team members", err)
	}
	return t, nil
}

func (s *Storage) DeleteTeam(ctx context.Context, id string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	ct, err := s.pool.Exec(ctx, `DELETE FROM teams WHERE id = $1`, id)
	if err != nil {
		return s.storeErr("delete team", err)
	}
	if ct.RowsAffected() == 0 {
		return errors.ErrTeamNotFound
	}
	return nil
}

func scanTask(row pgx.Row) (*models.Task, error) {
	var (
		t                models.Task
		priority, status string
		team, createdBy  *string
		checklist        []models.ChecklistItem
	)
	err := row.Scan(&t.ID, &t.Title, &t.Description, &priority, &status, &t.DueDate, &t.Progress,
		&checklist, &t.AssignedTo, &team, &createdBy, &t.Attachments, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	t.Priority = models.Priority(priority)
	t.Status = models.TaskStatus(status)
	t.Team = deref(team)
	t.CreatedBy = deref(createdBy)
	t.TodoCheckList = checklist
	if t.TodoCheckList == nil {
		t.TodoCheckList = []models.ChecklistItem{}
	}
	t.AssignedTo = nonNil(t.AssignedTo)
	t.Attachments = nonNil(t.Attachments)
	return &t, nil
}

func checklistParam(items []models.ChecklistItem) []models.ChecklistItem {
	if items == nil {
		return []models.ChecklistItem{}
	}
	return items
}

func (s *Storage) CreateTask(ctx context.Context, task *models.Task) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if task.ID == "" {
		task.ID = models.NewID()
	}
	_, err := s.pool.Exec(ctx, s.qCreateTask, task.ID, task.Title, task.Description, string(task.Priority),
		string(task.Status), task.DueDate, task.Progress, checklistParam(task.TodoCheckList),
		nonNil(task.AssignedTo), nullable(task.Team), nullable(task.CreatedBy), nonNil(task.Attachments),
		task.CreatedAt, task.UpdatedAt)
	if err != nil {
		return s.storeErr("insert task", err)
	}
	s.log.WithField("task", task.ID).Debug("task inserted")
	return nil
}

func (s *Storage) GetTaskByID(ctx context.Context, id string) (*models.Task, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	t, err := scanTask(s.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.ErrTaskNotFound
		}
		return nil, s.storeErr("get task", err)
	}
	return t, nil
}

func (s *Storage) ListTasks(ctx context.Context, filter models.TaskFilter) ([]models.Task, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	where, args := whereClause(filter)
	rows, err := s.pool.Query(ctx, `SELECT `+taskColumns+` FROM tasks`+where+` ORDER BY created_at DESC, id DESC`, args...)
	if err != nil {
		return nil, s.storeErr("list tasks", err)
	}
	defer rows.Close()

	out := []models.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, s.storeErr("scan task", err)
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, s.storeErr("iterate tasks", err)
	}
	return out, nil
}

func (s *Storage) UpdateTask(ctx context.Context, task *models.Task) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	ct, err := s.pool.Exec(ctx, s.qUpdateTask, task.ID, task.Title, task.Description, string(task.Priority),
		string(task.Status), task.DueDate, task.Progress, checklistParam(task.TodoCheckList),
		nonNil(task.AssignedTo), nullable(task.Team), nonNil(task.Attachments), task.UpdatedAt)
	if err != nil {
		return s.storeErr("update task", err)
	}
	if ct.RowsAffected() == 0 {
		return errors.ErrTaskNotFound
	}
	return nil
}

func (s *Storage) DeleteTask(ctx context.Context, id string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	ct, err := s.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return s.storeErr("delete task", err)
	}
	if ct.RowsAffected() == 0 {
		return errors.ErrTaskNotFound
	}
	return nil
}

func (s *Storage) CountTasks(ctx context.Context, filter models.TaskFilter) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	where, args := whereClause(filter)
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM tasks`+where, args...).Scan(&n); err != nil {
		return 0, s.storeErr("count tasks", err)
	}
	return n, nil
}

func (s *Storage) groupBy(ctx context.Context, filter models.TaskFilter, column string) (map[string]int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	where, args := whereClause(filter)
	rows, err := s.pool.Query(ctx, `SELECT `+column+`, count(*) FROM tasks`+where+` GROUP BY `+column, args...)
	if err != nil {
		return nil, s.storeErr("group tasks by "+column, err)
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var (
			key string
			n   int64
		)
		if err := rows.Scan(&key, &n); err != nil {
			return nil, s.storeErr("scan group", err)
		}
		out[key] = n
	}
	if err := rows.Err(); err != nil {
		return nil, s.storeErr("iterate groups", err)
	}
	return out, nil
}

func (s *Storage) CountByStatus(ctx context.Context, filter models.TaskFilter) (map[models.TaskStatus]int64, error) {
	rows, err := s.groupBy(ctx, filter, "status")
	if err != nil {
		return nil, err
	}
	out := make(map[models.TaskStatus]int64, len(rows))
	for k, n := range rows {
		out[models.TaskStatus(k)] = n
	}
	return out, nil
}

func (s *Storage) CountByPriority(ctx context.Context, filter models.TaskFilter) (map[models.Priority]int64, error) {
	rows, err := s.groupBy(ctx, filter, "priority")
	if err != nil {
		return nil, err
	}
	out := make(map[models.Priority]int64, len(rows))
	for k, n := range rows {
		out[models.Priority(k)] = n
	}
	return out, nil
}

func (s *Storage) RecentTasks(ctx context.Context, filter models.TaskFilter, limit int) ([]models.TaskSummary, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	where, args := whereClause(filter)
	args = append(args, limit)
	query := fmt.Sprintf(`SELECT %s FROM tasks%s ORDER BY created_at DESC, id DESC LIMIT $%d`, summaryColumns, where, len(args))
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, s.storeErr("recent tasks", err)
	}
	defer rows.Close()

	out := []models.TaskSummary{}
	for rows.Next() {
		var (
			t                models.TaskSummary
			status, priority string
		)
		if err := rows.Scan(&t.ID, &t.Title, &status, &priority, &t.DueDate, &t.CreatedAt); err != nil {
			return nil, s.storeErr("scan recent task", err)
		}
		t.Status = models.TaskStatus(status)
		t.Priority = models.Priority(priority)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, s.storeErr("iterate recent tasks", err)
	}
	return out, nil
}

package server

import (
	"net/http"
	"testing"

	"assignado/internal/domain/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserManagementRoutes(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   func(f *fixture) string
		body   any
		as     func(f *fixture) *models.User
		want   struct {
			statusCode int
		}
	}{
		{
			name:   "admin creates member",
			method: http.MethodPost,
			path:   func(*fixture) string { return "/api/users" },
			body:   gin.H{"name": "Carol", "username": "carol", "email": "Carol@Example.com", "password": "secret123"},
			as:     func(f *fixture) *models.User { return f.admin },
			want:   struct{ statusCode int }{http.StatusCreated},
		},
		{
			name:   "member cannot create users",
			method: http.MethodPost,
			path:   func(*fixture) string { return "/api/users" },
			body:   gin.H{"name": "Carol", "username": "carol", "email": "carol@example.com", "password": "secret123"},
			as:     func(f *fixture) *models.User { return f.alice },
			want:   struct{ statusCode int }{http.StatusForbidden},
		},
		{
			name:   "create with taken email",
			method: http.MethodPost,
			path:   func(*fixture) string { return "/api/users" },
			body:   gin.H{"name": "Carol", "username": "carol", "email": "ALICE@example.com", "password": "secret123"},
			as:     func(f *fixture) *models.User { return f.admin },
			want:   struct{ statusCode int }{http.StatusConflict},
		},
		{
			name:   "create with unknown role",
			method: http.MethodPost,
			path:   func(*fixture) string { return "/api/users" },
			body:   gin.H{"name": "Carol", "username": "carol", "email": "carol@example.com", "password": "secret123", "role": "owner"},
			as:     func(f *fixture) *models.User { return f.admin },
			want:   struct{ statusCode int }{http.StatusBadRequest},
		},
		{
			name:   "update own profile",
			method: http.MethodPut,
			path:   func(f *fixture) string { return "/api/users/" + f.alice.ID },
			body:   gin.H{"bio": "hello"},
			as:     func(f *fixture) *models.User { return f.alice },
			want:   struct{ statusCode int }{http.StatusOK},
		},
		{
			name:   "update someone else",
			method: http.MethodPut,
			path:   func(f *fixture) string { return "/api/users/" + f.bob.ID },
			body:   gin.H{"bio": "hello"},
			as:     func(f *fixture) *models.User { return f.alice },
			want:   struct{ statusCode int }{http.StatusForbidden},
		},
		{
			name:   "update to taken username",
			method: http.MethodPut,
			path:   func(f *fixture) string { return "/api/users/" + f.alice.ID },
			body:   gin.H{"username": "bob"},
			as:     func(f *fixture) *models.User { return f.alice },
			want:   struct{ statusCode int }{http.StatusConflict},
		},
		{
			name:   "update with wrong current password",
			method: http.MethodPut,
			path:   func(f *fixture) string { return "/api/users/" + f.alice.ID },
			body:   gin.H{"currentPassword": "nope", "newPassword": "newsecret"},
			as:     func(f *fixture) *models.User { return f.alice },
			want:   struct{ statusCode int }{http.StatusUnauthorized},
		},
		{
			name:   "change own password",
			method: http.MethodPut,
			path:   func(f *fixture) string { return "/api/users/" + f.alice.ID + "/password" },
			body:   gin.H{"currentPassword": "password123", "newPassword": "newsecret"},
			as:     func(f *fixture) *models.User { return f.alice },
			want:   struct{ statusCode int }{http.StatusOK},
		},
		{
			name:   "change password without current",
			method: http.MethodPut,
			path:   func(f *fixture) string { return "/api/users/" + f.alice.ID + "/password" },
			body:   gin.H{"newPassword": "newsecret"},
			as:     func(f *fixture) *models.User { return f.alice },
			want:   struct{ statusCode int }{http.StatusBadRequest},
		},
		{
			name:   "member deletes self",
			method: http.MethodDelete,
			path:   func(f *fixture) string { return "/api/users/" + f.alice.ID },
			as:     func(f *fixture) *models.User { return f.alice },
			want:   struct{ statusCode int }{http.StatusOK},
		},
		{
			name:   "member deletes another member",
			method: http.MethodDelete,
			path:   func(f *fixture) string { return "/api/users/" + f.bob.ID },
			as:     func(f *fixture) *models.User { return f.alice },
			want:   struct{ statusCode int }{http.StatusForbidden},
		},
		{
			name:   "admin deletes member",
			method: http.MethodDelete,
			path:   func(f *fixture) string { return "/api/users/" + f.bob.ID },
			as:     func(f *fixture) *models.User { return f.admin },
			want:   struct{ statusCode int }{http.StatusOK},
		},
		{
			name:   "admin deletes unknown user",
			method: http.MethodDelete,
			path:   func(*fixture) string { return "/api/users/" + models.NewID() },
			as:     func(f *fixture) *models.User { return f.admin },
			want:   struct{ statusCode int }{http.StatusNotFound},
		},
		{
			name:   "admin updates a profile",
			method: http.MethodPut,
			path:   func(f *fixture) string { return "/api/admin/" + f.bob.ID },
			body:   gin.H{"name": "Robert"},
			as:     func(f *fixture) *models.User { return f.admin },
			want:   struct{ statusCode int }{http.StatusOK},
		},
		{
			name:   "member on admin profile route",
			method: http.MethodPut,
			path:   func(f *fixture) string { return "/api/admin/" + f.alice.ID },
			body:   gin.H{"name": "Al"},
			as:     func(f *fixture) *models.User { return f.alice },
			want:   struct{ statusCode int }{http.StatusForbidden},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			w := f.do(t, tt.method, tt.path(f), tt.body, f.token(tt.as(f)))

			assert.Equal(t, tt.want.statusCode, w.Code, w.Body.String())
		})
	}
}

func TestUserLifecycle(t *testing.T) {
	f := newFixture(t)
	admin := f.token(f.admin)

	w := f.do(t, http.MethodPost, "/api/users", gin.H{
		"name": "Carol", "username": "carol", "email": "Carol@Example.com", "password": "secret123",
	}, admin)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[struct {
		User models.User `json:"user"`
	}](t, w)
	assert.Equal(t, "carol@example.com", created.User.Email)
	assert.Equal(t, models.RoleMember, created.User.Role)

	w = f.do(t, http.MethodPost, "/api/auth/login", gin.H{"email": "carol@example.com", "password": "secret123"}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	f.tokens[created.User.ID] = generateTestToken(created.User.ID)
	carol := &created.User

	w = f.do(t, http.MethodPut, "/api/users/"+carol.ID+"/password",
		gin.H{"currentPassword": "secret123", "newPassword": "changed123"}, f.token(carol))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = f.do(t, http.MethodPost, "/api/auth/login", gin.H{"email": "carol@example.com", "password": "secret123"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = f.do(t, http.MethodPost, "/api/auth/login", gin.H{"email": "carol@example.com", "password": "changed123"}, "")
	assert.Equal(t, http.StatusOK, w.Code)

	task := f.createTask(t, gin.H{"title": "Orphan", "assignedTo": []string{carol.ID}, "teamName": "Ops"})

	w = f.do(t, http.MethodDelete, "/api/users/"+carol.ID, nil, f.token(carol))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = f.do(t, http.MethodGet, "/api/auth/profile", nil, f.token(carol))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(t, http.MethodGet, "/api/tasks/"+task.Task.ID, nil, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := decode[taskResponse](t, w)
	require.Len(t, got.Task.AssignedTo, 1)
	assert.Equal(t, carol.ID, got.Task.AssignedTo[0].ID)
	assert.Empty(t, got.Task.AssignedTo[0].Name)
}

package server

import (
	"net/http"
	"strings"
	"time"

	"assignado/internal/domain/errors"
	"assignado/internal/domain/models"
	"assignado/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	requestIDHeader = "X-Request-ID"
	ctxUserKey      = "user"
	ctxRequestIDKey = "request_id"
)

// RequestLogger tags every request with an id and logs one line when it
// finishes.
func RequestLogger(log *logrus.Entry) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		id := ctx.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		ctx.Set(ctxRequestIDKey, id)
		ctx.Writer.Header().Set(requestIDHeader, id)

		ctx.Next()

		entry := log.WithFields(logrus.Fields{
			"request_id": id,
			"method":     ctx.Request.Method,
			"path":       ctx.FullPath(),
			"status":     ctx.Writer.Status(),
			"latency":    time.Since(start).String(),
		})
		if len(ctx.Errors) > 0 {
			entry = entry.WithField("errors", ctx.Errors.String())
		}
		switch status := ctx.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			entry.Error("request failed")
		case status >= http.StatusBadRequest:
			entry.Warn("request rejected")
		default:
			entry.Info("request served")
		}
	}
}

func bearerToken(ctx *gin.Context) string {
	if h := ctx.GetHeader("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if c, err := ctx.Cookie(tokenCookie); err == nil {
		return c
	}
	return ""
}

// AuthRequired resolves the caller from the Authorization header or the
// token cookie and stores the user in the context.
func (api *TaskAPI) AuthRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		user, err := api.auth.Authenticate(ctx.Request.Context(), bearerToken(ctx))
		if err != nil {
			api.abortWithError(ctx, err)
			return
		}
		ctx.Set(ctxUserKey, user)
		ctx.Next()
	}
}

func AdminOnly() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		user := currentUser(ctx)
		if !user.IsAdmin() {
			ctx.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": errors.ErrAdminOnly.Error()})
			return
		}
		ctx.Next()
	}
}

func currentUser(ctx *gin.Context) *models.User {
	v, ok := ctx.Get(ctxUserKey)
	if !ok {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}

func principal(ctx *gin.Context) service.Principal {
	user := currentUser(ctx)
	if user == nil {
		return service.Principal{}
	}
	return service.PrincipalOf(user)
}

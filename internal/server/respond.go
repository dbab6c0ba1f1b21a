package server

import (
	"net/http"

	"assignado/internal/domain/errors"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator"
)

func statusFor(err error) int {
	switch errors.KindOf(err) {
	case errors.KindValidation:
		return http.StatusBadRequest
	case errors.KindUnauthorized:
		return http.StatusUnauthorized
	case errors.KindForbidden:
		return http.StatusForbidden
	case errors.KindNotFound:
		return http.StatusNotFound
	case errors.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// abortWithError writes {"error": message} with the status of err's kind.
// Store and internal details are logged, never returned.
func (api *TaskAPI) abortWithError(ctx *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		api.log.WithError(err).WithField("request_id", ctx.GetString(ctxRequestIDKey)).Error("handler failed")
	}
	_ = ctx.Error(err)
	ctx.AbortWithStatusJSON(status, gin.H{"error": errors.Message(err)})
}

// bind decodes the JSON body into dst and runs struct validation.
func (api *TaskAPI) bind(ctx *gin.Context, dst any) bool {
	if err := ctx.ShouldBindJSON(dst); err != nil {
		api.abortWithError(ctx, errors.ErrBadRequest)
		return false
	}
	if err := api.valid.Struct(dst); err != nil {
		api.abortWithError(ctx, validationErrorToErrorResponse(err))
		return false
	}
	return true
}

func validationErrorToErrorResponse(err error) error {
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, verr := range verrs {
			switch verr.Field() {
			case "Name":
				return errors.ErrInvalidName
			case "Username":
				return errors.ErrInvalidUsername
			case "Email":
				return errors.ErrInvalidEmail
			case "Password", "NewPassword":
				return errors.ErrInvalidPassword
			case "Role":
				return errors.ErrInvalidRole
			case "Status":
				return errors.ErrInvalidStatus
			case "Priority":
				return errors.ErrInvalidPriority
			case "Title":
				return errors.ErrInvalidTitle
			case "Description":
				return errors.ErrInvalidDescription
			case "Text":
				return errors.ErrInvalidChecklist
			}
		}
	}
	return errors.ErrValidationFailed
}

package errors

import "errors"

// Kind classifies an error for the HTTP edge.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
	KindStore
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindStore:
		return "store"
	default:
		return "internal"
	}
}

type kindError struct {
	kind Kind
	msg  string
}

func (e *kindError) Error() string { return e.msg }

func newKind(kind Kind, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

var (
	ErrValidationFailed = newKind(KindValidation, "validation failed")
	ErrBadRequest       = newKind(KindValidation, "malformed request")
	ErrUnauthorized     = newKind(KindUnauthorized, "no token, authorization denied")
	ErrInvalidToken     = newKind(KindUnauthorized, "token failed or expired")
	ErrInvalidCreds     = newKind(KindUnauthorized, "invalid email or password")
	ErrForbidden        = newKind(KindForbidden, "access denied")
	ErrAdminOnly        = newKind(KindForbidden, "access denied, only admin allowed")
	ErrNotAssignee      = newKind(KindForbidden, "not authorized to update this task")
	ErrNotFound         = newKind(KindNotFound, "resource not found")
	ErrTaskNotFound     = newKind(KindNotFound, "task not found")
	ErrTeamNotFound     = newKind(KindNotFound, "team not found")
	ErrUserNotFound     = newKind(KindNotFound, "user not found")
	ErrWrongPassword    = newKind(KindUnauthorized, "current password is incorrect")
	ErrNotAccountOwner  = newKind(KindForbidden, "not authorized to modify this user")
	ErrConflict         = newKind(KindConflict, "resource conflict")
	ErrTeamExists       = newKind(KindConflict, "team already exists")
	ErrUserExists       = newKind(KindConflict, "user with this email or username already exists")
	ErrStore            = newKind(KindStore, "store operation failed")
	ErrInternalServer   = newKind(KindInternal, "internal server error")

	ErrEmptyAssignees        = newKind(KindValidation, "at least one user must be assigned to the task")
	ErrInvalidAssignee       = newKind(KindValidation, "assignedTo must contain valid user ids")
	ErrTeamRequired          = newKind(KindValidation, "either team id or teamName is required")
	ErrTeamNameRequired      = newKind(KindValidation, "team name is required")
	ErrInvalidMembers        = newKind(KindValidation, "one or more selected users are invalid")
	ErrDescriptionTooLong    = newKind(KindValidation, "description cannot exceed 100 characters")
	ErrInvalidID             = newKind(KindValidation, "invalid identifier")
	ErrInvalidStatus         = newKind(KindValidation, "invalid task status")
	ErrInvalidPriority       = newKind(KindValidation, "invalid task priority")
	ErrInvalidTitle          = newKind(KindValidation, "invalid task title")
	ErrInvalidDescription    = newKind(KindValidation, "invalid task description")
	ErrInvalidChecklist      = newKind(KindValidation, "checklist items require text")
	ErrInvalidEmail          = newKind(KindValidation, "invalid email")
	ErrInvalidPassword       = newKind(KindValidation, "invalid password")
	ErrInvalidUsername       = newKind(KindValidation, "invalid username")
	ErrInvalidName           = newKind(KindValidation, "invalid name")
	ErrInvalidRole           = newKind(KindValidation, "invalid role")
	ErrPasswordRequired      = newKind(KindValidation, "current and new password are required")
	ErrInvalidGzipRequest    = newKind(KindValidation, "invalid gzip request body")
	ErrGzipCompressionFailed = newKind(KindInternal, "gzip compression failed")

	ErrConfigFileReadFailed = errors.New("failed to read config file")
	ErrConfigParseFailed    = errors.New("failed to parse config file")
	ErrConfigInvalidFormat  = errors.New("invalid config value")
	ErrUnknownStorage       = errors.New("unknown storage driver")
)

// KindOf walks the wrap chain and reports the first classified kind.
func KindOf(err error) Kind {
	var ke *kindError
	if errors.As(err, &ke) {
		return ke.kind
	}
	return KindInternal
}

// Message returns the text safe to show a caller. Store and internal
// failures collapse to their sentinel message so driver details stay in logs.
func Message(err error) string {
	var ke *kindError
	if !errors.As(err, &ke) {
		return ErrInternalServer.Error()
	}
	if ke.kind == KindStore || ke.kind == KindInternal {
		return ke.msg
	}
	return err.Error()
}

func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target any) bool { return errors.As(err, target) }

func New(text string) error { return errors.New(text) }

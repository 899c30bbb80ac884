package bizerror

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeForbidden         = "FORBIDDEN"
	CodeNotFound          = "NOT_FOUND"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeCommentRequired   = "COMMENT_REQUIRED"
	CodeValidationFailed  = "VALIDATION_FAILED"
	CodeConflict          = "CONFLICT"
	CodeInternalError     = "INTERNAL_ERROR"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrCommentRequired = errors.New("comment required")
	ErrConflict        = errors.New("entity changed concurrently")
)

type BizError interface {
	Respond() *BizErrorDetail
}

type BizErrorDetail struct {
	Status  int
	Code    string
	Message string

	Data  interface{}
	Cause error
}

// ErrInvalidTransition is returned when the target is not an allowed successor of the current state.
type ErrInvalidTransition struct {
	From string
	To   string
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("transition from '%s' to '%s' is not allowed", e.From, e.To)
}

func (e *ErrInvalidTransition) Respond() *BizErrorDetail {
	return &BizErrorDetail{Status: http.StatusBadRequest, Code: CodeInvalidTransition, Message: e.Error(),
		Data: map[string]string{"from": e.From, "to": e.To}}
}

// ErrAccessDenied carries the reason of an authorization failure, it matches ErrForbidden.
type ErrAccessDenied struct {
	Reason string
}

func Forbidden(reason string) error {
	return &ErrAccessDenied{Reason: reason}
}

func (e *ErrAccessDenied) Error() string {
	return "forbidden: " + e.Reason
}

func (e *ErrAccessDenied) Is(target error) bool {
	return target == ErrForbidden
}

func (e *ErrAccessDenied) Respond() *BizErrorDetail {
	return &BizErrorDetail{Status: http.StatusForbidden, Code: CodeForbidden, Message: e.Reason}
}

type ErrBadParam struct {
	Cause error
}

func (e *ErrBadParam) Unwrap() error {
	return e.Cause
}

func (e *ErrBadParam) Error() string {
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return "bad param"
}

func (e *ErrBadParam) Respond() *BizErrorDetail {
	return &BizErrorDetail{Status: http.StatusBadRequest, Code: CodeValidationFailed, Message: e.Error()}
}

// ErrDependency wraps failures of the database or a downstream service.
type ErrDependency struct {
	Dependency string
	Cause      error
}

func (e *ErrDependency) Unwrap() error {
	return e.Cause
}

func (e *ErrDependency) Error() string {
	return e.Dependency + " unavailable: " + fmt.Sprint(e.Cause)
}

func (e *ErrDependency) Respond() *BizErrorDetail {
	return &BizErrorDetail{Status: http.StatusInternalServerError, Code: CodeInternalError, Message: "internal error", Cause: e.Cause}
}

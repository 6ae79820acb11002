// Package apperr holds the error kinds every action can fail with. Each
// kind carries a message that is safe to show to the user; SystemError also
// keeps the underlying cause for logs only.
package apperr

import (
	"errors"
	"net/http"
)

// ValidationError 用户输入无效
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// NotFoundError 实体不存在
type NotFoundError struct {
	Resource string
	ID       any
	Message  string
}

func (e *NotFoundError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Resource + " not found"
}

// AuthorizationError 权限不足（如非所有者操作）
type AuthorizationError struct {
	Message string
}

func (e *AuthorizationError) Error() string { return e.Message }

// UnauthenticatedError 未登录或凭证无效
type UnauthenticatedError struct {
	Message string
}

func (e *UnauthenticatedError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "Login required."
}

// SystemError 基础设施故障，Cause 只用于日志
type SystemError struct {
	Message string
	Cause   error
}

func (e *SystemError) Error() string { return e.Message }

func (e *SystemError) Unwrap() error { return e.Cause }

func Validation(msg string) error { return &ValidationError{Message: msg} }

func NotFound(resource string, id any) error { return &NotFoundError{Resource: resource, ID: id} }

func Forbidden(msg string) error { return &AuthorizationError{Message: msg} }

func Unauthenticated() error { return &UnauthenticatedError{} }

func InvalidCredentials(msg string) error { return &UnauthenticatedError{Message: msg} }

func System(msg string, cause error) error { return &SystemError{Message: msg, Cause: cause} }

// HTTPStatus maps an error kind to its response status. Unknown errors are
// treated as system failures.
func HTTPStatus(err error) int {
	var (
		validation *ValidationError
		notFound   *NotFoundError
		forbidden  *AuthorizationError
		unauth     *UnauthenticatedError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &forbidden):
		return http.StatusForbidden
	case errors.As(err, &unauth):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the user-facing text for err. Errors outside this
// package never leak their text.
func Message(err error) string {
	var (
		validation *ValidationError
		notFound   *NotFoundError
		forbidden  *AuthorizationError
		unauth     *UnauthenticatedError
		system     *SystemError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &validation):
		return validation.Error()
	case errors.As(err, &notFound):
		return notFound.Error()
	case errors.As(err, &forbidden):
		return forbidden.Error()
	case errors.As(err, &unauth):
		return unauth.Error()
	case errors.As(err, &system):
		return system.Error()
	default:
		return "Internal system error."
	}
}

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

func IsForbidden(err error) bool {
	var target *AuthorizationError
	return errors.As(err, &target)
}

func IsUnauthenticated(err error) bool {
	var target *UnauthenticatedError
	return errors.As(err, &target)
}

func IsSystem(err error) bool {
	var target *SystemError
	return errors.As(err, &target)
}

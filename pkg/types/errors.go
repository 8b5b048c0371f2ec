package types

import (
	"errors"
	"fmt"
)

// ErrorCode identifies a failure class. The set is closed per manager;
// callers switch on codes, never on message text.
type ErrorCode string

const (
	CodeValidation              ErrorCode = "VALIDATION_ERROR"
	CodeNodeNotFound            ErrorCode = "NODE_NOT_FOUND"
	CodeNodeExists              ErrorCode = "NODE_EXISTS"
	CodeNamespaceExists         ErrorCode = "NAMESPACE_EXISTS"
	CodeNamespaceNotFound       ErrorCode = "NAMESPACE_NOT_FOUND"
	CodeReservedNamespace       ErrorCode = "RESERVED_NAMESPACE"
	CodeNamespaceTerminating    ErrorCode = "NAMESPACE_TERMINATING"
	CodeQuotaExceeded           ErrorCode = "QUOTA_EXCEEDED"
	CodeCannotDeleteDefault     ErrorCode = "CANNOT_DELETE_DEFAULT"
	CodeNamespaceNotEmpty       ErrorCode = "NAMESPACE_NOT_EMPTY"
	CodePackNotFound            ErrorCode = "PACK_NOT_FOUND"
	CodeVersionExists           ErrorCode = "VERSION_EXISTS"
	CodePodNotFound             ErrorCode = "POD_NOT_FOUND"
	CodeInvalidStatusTransition ErrorCode = "INVALID_STATUS_TRANSITION"
	CodeNoCompatibleNodes       ErrorCode = "NO_COMPATIBLE_NODES"
	CodeNamespaceQuotaExceeded  ErrorCode = "NAMESPACE_QUOTA_EXCEEDED"
	CodePreemptionFailed        ErrorCode = "PREEMPTION_FAILED"
	CodeVersionNotFound         ErrorCode = "VERSION_NOT_FOUND"
	CodeSameVersion             ErrorCode = "SAME_VERSION"
	CodeRuntimeMismatch         ErrorCode = "RUNTIME_MISMATCH"
	CodeSecretExists            ErrorCode = "SECRET_EXISTS"
	CodeSecretNotFound          ErrorCode = "SECRET_NOT_FOUND"
	CodeDecryptionFailed        ErrorCode = "DECRYPTION_FAILED"
	CodeMountPathConflict       ErrorCode = "MOUNT_PATH_CONFLICT"
	CodeMissingSecrets          ErrorCode = "MISSING_SECRETS"
	CodeUnauthorized            ErrorCode = "UNAUTHORIZED"
	CodeForbidden               ErrorCode = "FORBIDDEN"
	CodeSessionExpired          ErrorCode = "SESSION_EXPIRED"
	CodeInvalidCredentials      ErrorCode = "INVALID_CREDENTIALS"
	CodeUserAlreadyExists       ErrorCode = "USER_ALREADY_EXISTS"
	CodeRateLimitExceeded       ErrorCode = "RATE_LIMIT_EXCEEDED"
	CodeAccountLocked           ErrorCode = "ACCOUNT_LOCKED"
	CodeUserNotFound            ErrorCode = "USER_NOT_FOUND"
	CodeInternal                ErrorCode = "INTERNAL_ERROR"
)

// Error is the structured failure every manager operation returns. It
// carries a stable code, a human-readable message, and optional details
// (exceeded quota axes, missing secret names, and the like).
type Error struct {
	Code    ErrorCode
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// WithDetail attaches one detail entry and returns the error for chaining.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any, 1)
	}
	e.Details[key] = value
	return e
}

// Detail returns the named detail, or nil when absent.
func (e *Error) Detail(key string) any {
	if e.Details == nil {
		return nil
	}
	return e.Details[key]
}

// NewError builds a coded error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Errorf builds a coded error with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// AsError unwraps err into a *Error when possible.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// CodeOf returns the error's code, or CodeInternal for uncoded errors and
// the empty code for nil.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	if e, ok := AsError(err); ok {
		return e.Code
	}
	return CodeInternal
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	e, ok := AsError(err)
	return ok && e.Code == code
}

package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"
)

// ErrorCode represents a unique error code for categorizing errors
type ErrorCode string

const (
	// Connection errors (1xxx)
	ErrCodeConnectionFailed     ErrorCode = "DWH1001"
	ErrCodeConnectionTimeout    ErrorCode = "DWH1002"
	ErrCodeAuthenticationFailed ErrorCode = "DWH1003"
	ErrCodeUnknownConnection    ErrorCode = "DWH1004"

	// Configuration errors (2xxx)
	ErrCodeConfigNotFound ErrorCode = "DWH2001"
	ErrCodeConfigInvalid  ErrorCode = "DWH2002"
	ErrCodeConfigMissing  ErrorCode = "DWH2003"

	// Authorization errors (3xxx)
	ErrCodeAuthorization      ErrorCode = "DWH3001"
	ErrCodeCredentialsExpired ErrorCode = "DWH3002"

	// Warehouse statement errors (4xxx)
	ErrCodeSQLExecution  ErrorCode = "DWH4001"
	ErrCodeSQLPermission ErrorCode = "DWH4002"
	ErrCodeSQLTimeout    ErrorCode = "DWH4003"
	ErrCodeBulkLoad      ErrorCode = "DWH4004"
	ErrCodeTransform     ErrorCode = "DWH4005"
	ErrCodeSchema        ErrorCode = "DWH4006"
	ErrCodeUnsupported   ErrorCode = "DWH4007"

	// Validation errors (6xxx)
	ErrCodeValidationFailed ErrorCode = "DWH6001"
	ErrCodeInvalidInput     ErrorCode = "DWH6002"
	ErrCodeRequiredField    ErrorCode = "DWH6003"

	// System errors (9xxx)
	ErrCodeInternal  ErrorCode = "DWH9001"
	ErrCodeCancelled ErrorCode = "DWH9002"
)

// ErrorSeverity represents the severity level of an error
type ErrorSeverity string

const (
	SeverityCritical ErrorSeverity = "CRITICAL"
	SeverityError    ErrorSeverity = "ERROR"
	SeverityWarning  ErrorSeverity = "WARNING"
	SeverityInfo     ErrorSeverity = "INFO"
)

// AppError represents a structured application error with context
type AppError struct {
	Code        ErrorCode
	Message     string
	Severity    ErrorSeverity
	Context     map[string]interface{}
	Cause       error
	Stack       string
	Timestamp   time.Time
	Suggestions []string
}

// Error implements the error interface
func (e *AppError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("[%s] %s: %s", e.Code, e.Severity, e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf("\nCaused by: %v", e.Cause))
	}

	if len(e.Suggestions) > 0 {
		b.WriteString("\nSuggestions:")
		for i, suggestion := range e.Suggestions {
			b.WriteString(fmt.Sprintf("\n  %d. %s", i+1, suggestion))
		}
	}

	return b.String()
}

// Unwrap returns the cause of the error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches another AppError by code
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Severity:  SeverityError,
		Context:   make(map[string]interface{}),
		Stack:     captureStack(),
		Timestamp: time.Now(),
	}
}

// Wrap wraps an existing error with AppError. Wrapping nil returns nil.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}

	appErr := New(code, message)
	appErr.Cause = err

	var ae *AppError
	if errors.As(err, &ae) {
		for k, v := range ae.Context {
			appErr.Context[k] = v
		}
	}

	return appErr
}

// WithContext adds context to the error. The With methods are no-ops on a
// nil error, so constructors over a nil cause stay nil.
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e == nil {
		return nil
	}
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithSeverity sets the error severity
func (e *AppError) WithSeverity(severity ErrorSeverity) *AppError {
	if e == nil {
		return nil
	}
	e.Severity = severity
	return e
}

// WithSuggestions adds recovery suggestions
func (e *AppError) WithSuggestions(suggestions ...string) *AppError {
	if e == nil {
		return nil
	}
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

func captureStack() string {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])

	var b strings.Builder
	frames := runtime.CallersFrames(pcs[:n])

	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "runtime/") {
			b.WriteString(fmt.Sprintf("%s:%d %s\n", frame.File, frame.Line, frame.Function))
		}
		if !more {
			break
		}
	}

	return b.String()
}

// Common error constructors

// wrapCause wraps cause, or creates a plain error when there is none.
func wrapCause(cause error, code ErrorCode, message string) *AppError {
	if cause == nil {
		return New(code, message)
	}
	return Wrap(cause, code, message)
}

// ConnectionError creates a connection-related error
func ConnectionError(message string, cause error) *AppError {
	return wrapCause(cause, ErrCodeConnectionFailed, message).
		WithSuggestions(
			"Check your network connection and VPC security groups",
			"Verify the warehouse endpoint and port",
			"Check the connection entry in the config file",
		)
}

// ConfigError creates a configuration-related error
func ConfigError(message string, field string) *AppError {
	return New(ErrCodeConfigInvalid, message).
		WithContext("field", field).
		WithSuggestions(
			fmt.Sprintf("Check the '%s' configuration value", field),
			"Run 'sparkify-dwh config init' to write a default config",
		)
}

// AuthorizationError creates an authorization failure. Fatal to the current task.
func AuthorizationError(message string, cause error) *AppError {
	return wrapCause(cause, ErrCodeAuthorization, message).
		WithSuggestions(
			"Verify the IAM role is attached to the cluster and can read the bucket",
			"Refresh the AWS credentials available to this process",
		)
}

// SQLError creates a statement execution error and classifies it from the
// driver message.
func SQLError(code ErrorCode, message string, query string, cause error) *AppError {
	if cause == nil {
		return New(code, message).WithContext("query", truncateString(query, 200))
	}

	err := Wrap(cause, code, message).
		WithContext("query", truncateString(query, 200))

	msg := strings.ToLower(cause.Error())
	switch {
	case strings.Contains(msg, "permission denied") || strings.Contains(msg, "access denied") || strings.Contains(msg, "not authorized"):
		if code == ErrCodeBulkLoad {
			err.Code = ErrCodeAuthorization
		} else {
			err.Code = ErrCodeSQLPermission
		}
		_ = err.WithSuggestions(
			"Check user permissions in the warehouse",
			"Verify the role has the required privileges",
		)
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "canceling statement"):
		err.Code = ErrCodeSQLTimeout
		_ = err.WithSuggestions("Increase the task timeout or the warehouse statement timeout")
	case strings.Contains(msg, "stl_load_errors"):
		_ = err.WithSuggestions("Query stl_load_errors for the rejected lines")
	}

	return err
}

// ValidationError creates a validation error
func ValidationError(field string, value interface{}, reason string) *AppError {
	return New(ErrCodeValidationFailed, fmt.Sprintf("Validation failed for %s: %s", field, reason)).
		WithContext("field", field).
		WithContext("value", value)
}

// Unsupported reports an operation the selected dialect cannot perform.
func Unsupported(dialect, operation string) *AppError {
	return New(ErrCodeUnsupported, fmt.Sprintf("%s is not supported by the %s dialect", operation, dialect)).
		WithContext("dialect", dialect)
}

// GetErrorCode extracts the error code from an error
func GetErrorCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

// HasCode reports whether any AppError in err's chain carries code.
func HasCode(err error, code ErrorCode) bool {
	return errors.Is(err, &AppError{Code: code})
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		expected string
	}{
		{
			name:     "basic error",
			err:      New(ErrCodeConnectionFailed, "Connection failed"),
			expected: "[DWH1001] ERROR: Connection failed",
		},
		{
			name: "error with suggestions",
			err: New(ErrCodeConnectionFailed, "Connection failed").
				WithSuggestions("Check network", "Verify credentials"),
			expected: "[DWH1001] ERROR: Connection failed\nSuggestions:\n  1. Check network\n  2. Verify credentials",
		},
		{
			name: "error with context",
			err: New(ErrCodeConnectionFailed, "Connection failed").
				WithContext("host", "example.com").
				WithContext("port", 5439),
			expected: "[DWH1001] ERROR: Connection failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, ErrCodeConnectionFailed, tt.err.Code)
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestErrorWrapping(t *testing.T) {
	baseErr := fmt.Errorf("dial tcp: connection refused")

	appErr := Wrap(baseErr, ErrCodeConnectionFailed, "Failed to connect to warehouse")

	require.NotNil(t, appErr)
	assert.Equal(t, baseErr, appErr.Cause)
	assert.Equal(t, ErrCodeConnectionFailed, appErr.Code)
	assert.True(t, stderrors.Is(appErr, baseErr))
	assert.Contains(t, appErr.Error(), "Caused by: dial tcp: connection refused")
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrCodeInternal, "nothing"))
}

func TestConstructorsWithoutCause(t *testing.T) {
	conn := ConnectionError("Failed to connect to warehouse", nil)
	require.NotNil(t, conn)
	assert.Equal(t, ErrCodeConnectionFailed, conn.Code)
	assert.Nil(t, conn.Cause)
	assert.NotEmpty(t, conn.Suggestions)

	auth := AuthorizationError("Failed to retrieve AWS credentials", nil)
	require.NotNil(t, auth)
	assert.Equal(t, ErrCodeAuthorization, auth.Code)
}

func TestWithMethodsOnNil(t *testing.T) {
	var err *AppError
	assert.NotPanics(t, func() {
		err = Wrap(nil, ErrCodeInternal, "nothing").
			WithContext("table", "users").
			WithSeverity(SeverityWarning).
			WithSuggestions("none")
	})
	assert.Nil(t, err)
}

func TestWrapInheritsContext(t *testing.T) {
	inner := New(ErrCodeBulkLoad, "copy failed").WithContext("table", "staging_events")
	outer := Wrap(inner, ErrCodeInternal, "task failed")

	assert.Equal(t, "staging_events", outer.Context["table"])
	assert.True(t, HasCode(outer, ErrCodeBulkLoad))
	assert.True(t, HasCode(outer, ErrCodeInternal))
	assert.False(t, HasCode(outer, ErrCodeTransform))
}

func TestSQLErrorClassification(t *testing.T) {
	tests := []struct {
		name     string
		code     ErrorCode
		cause    error
		wantCode ErrorCode
	}{
		{
			name:     "plain failure keeps code",
			code:     ErrCodeTransform,
			cause:    fmt.Errorf("column \"foo\" does not exist"),
			wantCode: ErrCodeTransform,
		},
		{
			name:     "permission on transform",
			code:     ErrCodeTransform,
			cause:    fmt.Errorf("permission denied for relation users"),
			wantCode: ErrCodeSQLPermission,
		},
		{
			name:     "access denied on copy is authorization",
			code:     ErrCodeBulkLoad,
			cause:    fmt.Errorf("S3ServiceException:Access Denied,Status 403"),
			wantCode: ErrCodeAuthorization,
		},
		{
			name:     "statement timeout",
			code:     ErrCodeSQLExecution,
			cause:    fmt.Errorf("canceling statement due to statement timeout"),
			wantCode: ErrCodeSQLTimeout,
		},
		{
			name:     "nil cause",
			code:     ErrCodeSchema,
			cause:    nil,
			wantCode: ErrCodeSchema,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := SQLError(tt.code, "statement failed", "SELECT 1", tt.cause)
			require.NotNil(t, err)
			assert.Equal(t, tt.wantCode, err.Code)
			assert.Equal(t, "SELECT 1", err.Context["query"])
		})
	}
}

func TestSQLErrorTruncatesQuery(t *testing.T) {
	long := fmt.Sprintf("SELECT %0300d", 1)
	err := SQLError(ErrCodeSQLExecution, "failed", long, fmt.Errorf("boom"))

	query, ok := err.Context["query"].(string)
	require.True(t, ok)
	assert.Len(t, query, 203)
}

func TestGetErrorCode(t *testing.T) {
	assert.Equal(t, ErrCodeBulkLoad, GetErrorCode(New(ErrCodeBulkLoad, "x")))
	assert.Equal(t, ErrCodeBulkLoad, GetErrorCode(fmt.Errorf("outer: %w", New(ErrCodeBulkLoad, "x"))))
	assert.Equal(t, ErrCodeInternal, GetErrorCode(fmt.Errorf("plain")))
}

func TestHasCodeThroughJoin(t *testing.T) {
	joined := stderrors.Join(New(ErrCodeSchema, "a"), New(ErrCodeTransform, "b"))

	assert.True(t, HasCode(joined, ErrCodeSchema))
	assert.True(t, HasCode(joined, ErrCodeTransform))
	assert.False(t, HasCode(joined, ErrCodeBulkLoad))
}

func TestUnsupported(t *testing.T) {
	err := Unsupported("postgres", "COPY from object storage")

	assert.Equal(t, ErrCodeUnsupported, err.Code)
	assert.Equal(t, "postgres", err.Context["dialect"])
	assert.Contains(t, err.Error(), "not supported by the postgres dialect")
}

func TestErrorSeverity(t *testing.T) {
	err := ValidationError("table", "", "must not be empty").WithSeverity(SeverityWarning)

	assert.Equal(t, SeverityWarning, err.Severity)
	assert.Equal(t, ErrCodeValidationFailed, err.Code)
	assert.Contains(t, err.Error(), "Validation failed for table")
}

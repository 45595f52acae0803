package testutil

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/Skylar-117/DEND-Nanodegree-Udacity/internal/warehouse"
)

// ExecutedQuery represents a statement that was executed
type ExecutedQuery struct {
	Query     string
	Args      []interface{}
	Timestamp time.Time
}

// MockWarehouse is an in-memory warehouse.Session that records statements.
// Errors and row counts are keyed by statement prefix.
type MockWarehouse struct {
	mu sync.Mutex

	SQLDialect      warehouse.Dialect
	ExecutedQueries []ExecutedQuery
	QueryErrors     map[string]error
	RowCounts       map[string]int64
}

// NewMockWarehouse creates a mock session speaking dialect.
func NewMockWarehouse(dialect warehouse.Dialect) *MockWarehouse {
	if dialect == nil {
		dialect = warehouse.Redshift{}
	}
	return &MockWarehouse{
		SQLDialect:  dialect,
		QueryErrors: make(map[string]error),
		RowCounts:   make(map[string]int64),
	}
}

// Dialect returns the configured dialect.
func (m *MockWarehouse) Dialect() warehouse.Dialect {
	return m.SQLDialect
}

// Exec records query and returns the first matching error or row count.
func (m *MockWarehouse) Exec(ctx context.Context, query string, args ...interface{}) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m.ExecutedQueries = append(m.ExecutedQueries, ExecutedQuery{
		Query:     query,
		Args:      args,
		Timestamp: time.Now(),
	})

	for prefix, err := range m.QueryErrors {
		if strings.HasPrefix(query, prefix) {
			return 0, err
		}
	}
	for prefix, n := range m.RowCounts {
		if strings.HasPrefix(query, prefix) {
			return n, nil
		}
	}
	return 0, nil
}

// FailOn makes statements starting with prefix return err.
func (m *MockWarehouse) FailOn(prefix string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.QueryErrors[prefix] = err
}

// Queries returns the executed statements in order.
func (m *MockWarehouse) Queries() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, len(m.ExecutedQueries))
	for i, q := range m.ExecutedQueries {
		out[i] = q.Query
	}
	return out
}

// Reset clears the recorded statements.
func (m *MockWarehouse) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ExecutedQueries = nil
}

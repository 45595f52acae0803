package schema

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Skylar-117/DEND-Nanodegree-Udacity/internal/observability"
	"github.com/Skylar-117/DEND-Nanodegree-Udacity/internal/warehouse"
	apperrors "github.com/Skylar-117/DEND-Nanodegree-Udacity/pkg/errors"
)

// Manager issues DDL for declared tables.
type Manager struct {
	session warehouse.Session
	logger  *observability.Logger
}

// NewManager creates a schema manager on session.
func NewManager(session warehouse.Session, logger *observability.Logger) *Manager {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &Manager{session: session, logger: logger.WithField("component", "schema")}
}

// Resolve maps table names to declared tables. No names selects all tables.
func Resolve(names ...string) ([]Table, error) {
	if len(names) == 0 {
		return All(), nil
	}
	out := make([]Table, 0, len(names))
	for _, n := range names {
		t, ok := Lookup(n)
		if !ok {
			return nil, apperrors.ValidationError("table", n, "not a declared table").
				WithSuggestions(fmt.Sprintf("Declared tables: %v", Names(All())))
		}
		out = append(out, t)
	}
	return out, nil
}

// Create creates each table if absent. Every statement runs even if an
// earlier one fails; failures are joined.
func (m *Manager) Create(ctx context.Context, tables ...Table) error {
	if len(tables) == 0 {
		tables = All()
	}
	var errs []error
	for _, t := range tables {
		stmt, err := CreateStatement(m.session.Dialect(), t)
		if err == nil {
			err = m.exec(ctx, "create", t.Name, stmt)
		}
		if err != nil {
			errs = append(errs, m.fail("create", t.Name, stmt, err))
		}
	}
	return errors.Join(errs...)
}

// Drop drops each table if present. Every statement runs even if an earlier
// one fails; failures are joined.
func (m *Manager) Drop(ctx context.Context, tables ...Table) error {
	if len(tables) == 0 {
		tables = All()
	}
	var errs []error
	for _, t := range tables {
		stmt, err := DropStatement(t)
		if err == nil {
			err = m.exec(ctx, "drop", t.Name, stmt)
		}
		if err != nil {
			errs = append(errs, m.fail("drop", t.Name, stmt, err))
		}
	}
	return errors.Join(errs...)
}

// Reset drops and then recreates tables. Creation runs even when a drop fails.
func (m *Manager) Reset(ctx context.Context, tables ...Table) error {
	dropErr := m.Drop(ctx, tables...)
	createErr := m.Create(ctx, tables...)
	return errors.Join(dropErr, createErr)
}

func (m *Manager) exec(ctx context.Context, op, table, stmt string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	if _, err := m.session.Exec(ctx, stmt); err != nil {
		return err
	}
	m.logger.InfoWithFields("ddl executed", map[string]interface{}{
		"operation":   op,
		"table":       table,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return nil
}

func (m *Manager) fail(op, table, stmt string, err error) error {
	msg := fmt.Sprintf("Failed to %s table %s", op, table)

	var appErr *apperrors.AppError
	if errors.As(err, new(*apperrors.AppError)) {
		appErr = apperrors.Wrap(err, apperrors.ErrCodeSchema, msg)
	} else {
		inner := warehouse.Error(apperrors.ErrCodeSchema, msg, stmt, err)
		appErr = inner
		if inner.Code != apperrors.ErrCodeSchema {
			appErr = apperrors.Wrap(inner, apperrors.ErrCodeSchema, msg).WithSuggestions(inner.Suggestions...)
		}
	}
	appErr.WithContext("table", table).WithContext("operation", op)
	m.logger.ErrorWithFields("ddl failed", map[string]interface{}{
		"table": table,
		"error": err,
	})
	return appErr
}

package transform

import (
	"context"
	"fmt"
	"time"

	"github.com/Skylar-117/DEND-Nanodegree-Udacity/internal/observability"
	"github.com/Skylar-117/DEND-Nanodegree-Udacity/internal/warehouse"
	apperrors "github.com/Skylar-117/DEND-Nanodegree-Udacity/pkg/errors"
)

// DefaultPlayPage is the page value of a song-play event.
const DefaultPlayPage = "NextSong"

// Executor runs transforms on a warehouse session. Each call is a single
// statement; distinctness and filtering happen in the warehouse.
type Executor struct {
	session  warehouse.Session
	playPage string
	logger   *observability.Logger
}

// NewExecutor creates an executor. An empty playPage selects DefaultPlayPage.
func NewExecutor(session warehouse.Session, playPage string, logger *observability.Logger) *Executor {
	if playPage == "" {
		playPage = DefaultPlayPage
	}
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &Executor{
		session:  session,
		playPage: playPage,
		logger:   logger.WithField("component", "transform"),
	}
}

// Statement renders the INSERT-SELECT for def without running it.
func (e *Executor) Statement(def Definition) (string, []interface{}, error) {
	return def.Insert(e.session.Dialect(), e.playPage)
}

// Insert runs the INSERT-SELECT for def and returns the rows inserted.
// Key uniqueness is not checked; an enforcing warehouse rejects the
// statement as a whole.
func (e *Executor) Insert(ctx context.Context, def Definition) (int64, error) {
	stmt, args, err := e.Statement(def)
	if err != nil {
		return 0, err
	}

	start := time.Now()
	n, err := e.session.Exec(ctx, stmt, args...)
	if err != nil {
		return 0, warehouse.Error(apperrors.ErrCodeTransform, fmt.Sprintf("Failed to insert into %s", def.Target), stmt, err).
			WithContext("table", def.Target)
	}
	e.logger.DebugWithFields("insert finished", map[string]interface{}{
		"table":       def.Target,
		"rows":        n,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return n, nil
}

// Delete removes every row of table and returns the rows deleted.
func (e *Executor) Delete(ctx context.Context, table string) (int64, error) {
	name, err := warehouse.Ident(table)
	if err != nil {
		return 0, err
	}
	stmt := "DELETE FROM " + name
	n, err := e.session.Exec(ctx, stmt)
	if err != nil {
		return 0, warehouse.Error(apperrors.ErrCodeTransform, fmt.Sprintf("Failed to clear %s", table), stmt, err).
			WithContext("table", table)
	}
	return n, nil
}

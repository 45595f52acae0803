package pipeline

import (
	"context"
	"time"

	"github.com/Skylar-117/DEND-Nanodegree-Udacity/internal/observability"
	"github.com/Skylar-117/DEND-Nanodegree-Udacity/internal/staging"
	"github.com/Skylar-117/DEND-Nanodegree-Udacity/internal/transform"
)

// Task is one unit of work an external scheduler can run. Run blocks until
// the work finishes and returns nil on success.
type Task interface {
	Name() string
	Run(ctx context.Context) error
}

// Stager loads one staging source.
type Stager interface {
	Load(ctx context.Context, src staging.Source) error
}

// Transformer clears and fills target tables.
type Transformer interface {
	Delete(ctx context.Context, table string) (int64, error)
	Insert(ctx context.Context, def transform.Definition) (int64, error)
}

// StageTask bulk-loads one source into its staging table.
type StageTask struct {
	Stager Stager
	Source staging.Source
}

// NewStageTask creates a staging task for src.
func NewStageTask(stager Stager, src staging.Source) *StageTask {
	return &StageTask{Stager: stager, Source: src}
}

func (t *StageTask) Name() string { return "stage_" + t.Source.Table }

func (t *StageTask) Run(ctx context.Context) error {
	return t.Stager.Load(ctx, t.Source)
}

// LoadTask fills one fact or dimension table. Unless Append is set the
// table is cleared first, so it ends up holding only this run's rows.
type LoadTask struct {
	Transformer Transformer
	Definition  transform.Definition
	Append      bool
	Logger      *observability.Logger
}

// NewLoadTask creates a load task for def.
func NewLoadTask(tr Transformer, def transform.Definition, appendRows bool, logger *observability.Logger) *LoadTask {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &LoadTask{Transformer: tr, Definition: def, Append: appendRows, Logger: logger}
}

func (t *LoadTask) Name() string { return "load_" + t.Definition.Target }

func (t *LoadTask) Run(ctx context.Context) error {
	log := t.Logger.WithFields(map[string]interface{}{
		"task":   t.Name(),
		"table":  t.Definition.Target,
		"append": t.Append,
	})

	if !t.Append {
		log.Info("clearing data from target table")
		n, err := t.Transformer.Delete(ctx, t.Definition.Target)
		if err != nil {
			return err
		}
		log.InfoWithFields("target table cleared", map[string]interface{}{"rows": n})
	}

	log.Info("inserting data into target table")
	start := time.Now()
	n, err := t.Transformer.Insert(ctx, t.Definition)
	if err != nil {
		return err
	}
	log.InfoWithFields("target table loaded", map[string]interface{}{
		"rows":        n,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return nil
}

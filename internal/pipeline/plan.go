package pipeline

import (
	"context"
	"fmt"

	"github.com/Skylar-117/DEND-Nanodegree-Udacity/internal/observability"
	"github.com/Skylar-117/DEND-Nanodegree-Udacity/internal/staging"
	"github.com/Skylar-117/DEND-Nanodegree-Udacity/internal/transform"
	"github.com/Skylar-117/DEND-Nanodegree-Udacity/internal/warehouse"
	apperrors "github.com/Skylar-117/DEND-Nanodegree-Udacity/pkg/errors"
	"github.com/Skylar-117/DEND-Nanodegree-Udacity/pkg/models"
)

// LoadStep is one configured fact or dimension load.
type LoadStep struct {
	Definition transform.Definition
	Append     bool
}

// Plan is the declared order of staging loads and table loads.
type Plan struct {
	Stages []staging.Source
	Loads  []LoadStep
}

// NewPlan builds the plan declared in cfg. Loads keep their configured order.
func NewPlan(cfg *models.Config) (*Plan, error) {
	p := &Plan{}
	for _, s := range cfg.Staging {
		p.Stages = append(p.Stages, staging.SourceFromConfig(s, cfg.AWS))
	}
	for i, l := range cfg.Loads {
		def, ok := transform.Lookup(l.Table)
		if !ok {
			return nil, apperrors.ConfigError(fmt.Sprintf("No transform is defined for table %q", l.Table), fmt.Sprintf("loads[%d].table", i)).
				WithSuggestions(fmt.Sprintf("Loadable tables: %v", transform.Targets()))
		}
		p.Loads = append(p.Loads, LoadStep{Definition: def, Append: l.Append})
	}
	return p, nil
}

// Only narrows the plan to the named staging and load tables. Empty lists
// keep that part of the plan unchanged.
func (p *Plan) Only(stageTables, loadTables []string) (*Plan, error) {
	out := &Plan{Stages: p.Stages, Loads: p.Loads}

	if len(stageTables) > 0 {
		out.Stages = nil
		for _, name := range stageTables {
			src, ok := p.stage(name)
			if !ok {
				return nil, apperrors.ValidationError("table", name, "not a configured staging table")
			}
			out.Stages = append(out.Stages, src)
		}
	}
	if len(loadTables) > 0 {
		out.Loads = nil
		for _, name := range loadTables {
			step, ok := p.load(name)
			if !ok {
				return nil, apperrors.ValidationError("table", name, "not a configured load table")
			}
			out.Loads = append(out.Loads, step)
		}
	}
	return out, nil
}

// WithAppend returns a copy of the plan with every load set to append.
func (p *Plan) WithAppend() *Plan {
	out := &Plan{Stages: p.Stages, Loads: make([]LoadStep, len(p.Loads))}
	for i, l := range p.Loads {
		l.Append = true
		out.Loads[i] = l
	}
	return out
}

// StageTasks returns one task per staging source.
func (p *Plan) StageTasks(stager Stager) []Task {
	tasks := make([]Task, 0, len(p.Stages))
	for _, src := range p.Stages {
		tasks = append(tasks, NewStageTask(stager, src))
	}
	return tasks
}

// LoadTasks returns one task per load step.
func (p *Plan) LoadTasks(tr Transformer, logger *observability.Logger) []Task {
	tasks := make([]Task, 0, len(p.Loads))
	for _, l := range p.Loads {
		tasks = append(tasks, NewLoadTask(tr, l.Definition, l.Append, logger))
	}
	return tasks
}

// All returns the staging tasks followed by the load tasks.
func (p *Plan) All(stager Stager, tr Transformer, logger *observability.Logger) []Task {
	return append(p.StageTasks(stager), p.LoadTasks(tr, logger)...)
}

// Statement is one statement the plan would issue.
type Statement struct {
	Task string
	SQL  string
	Args []interface{}
}

// Statements renders what the plan would execute on d, without a
// connection. Credentials come from auth and are redacted.
func (p *Plan) Statements(ctx context.Context, d warehouse.Dialect, auth staging.Authorizer, playPage string) ([]Statement, error) {
	if playPage == "" {
		playPage = transform.DefaultPlayPage
	}
	var out []Statement
	for _, src := range p.Stages {
		task := "stage_" + src.Table
		if err := src.Validate(); err != nil {
			return nil, err
		}
		if src.Clear {
			out = append(out, Statement{Task: task, SQL: "DELETE FROM " + src.Table})
		}
		stmt, err := staging.CopyStatement(ctx, d, auth, src)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.GetErrorCode(err), fmt.Sprintf("Cannot render load for %s", src.Table)).
				WithContext("table", src.Table)
		}
		out = append(out, Statement{Task: task, SQL: warehouse.Redact(stmt)})
	}
	for _, l := range p.Loads {
		task := "load_" + l.Definition.Target
		if !l.Append {
			out = append(out, Statement{Task: task, SQL: "DELETE FROM " + l.Definition.Target})
		}
		stmt, args, err := l.Definition.Insert(d, playPage)
		if err != nil {
			return nil, err
		}
		out = append(out, Statement{Task: task, SQL: stmt, Args: args})
	}
	return out, nil
}

func (p *Plan) stage(table string) (staging.Source, bool) {
	for _, s := range p.Stages {
		if s.Table == table {
			return s, true
		}
	}
	return staging.Source{}, false
}

func (p *Plan) load(table string) (LoadStep, bool) {
	for _, l := range p.Loads {
		if l.Definition.Target == table {
			return l, true
		}
	}
	return LoadStep{}, false
}

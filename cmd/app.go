package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Skylar-117/DEND-Nanodegree-Udacity/internal/config"
	"github.com/Skylar-117/DEND-Nanodegree-Udacity/internal/observability"
	"github.com/Skylar-117/DEND-Nanodegree-Udacity/internal/pipeline"
	"github.com/Skylar-117/DEND-Nanodegree-Udacity/internal/staging"
	"github.com/Skylar-117/DEND-Nanodegree-Udacity/internal/transform"
	"github.com/Skylar-117/DEND-Nanodegree-Udacity/internal/ui"
	"github.com/Skylar-117/DEND-Nanodegree-Udacity/internal/warehouse"
	apperrors "github.com/Skylar-117/DEND-Nanodegree-Udacity/pkg/errors"
	"github.com/Skylar-117/DEND-Nanodegree-Udacity/pkg/models"
)

// app is the per-invocation state shared by the commands.
type app struct {
	cfg    *models.Config
	logger *observability.Logger
	ui     *ui.UI
}

// openService is swapped in tests.
var openService = func(ctx context.Context, cfg warehouse.Config, logger *observability.Logger) (pipelineSession, error) {
	svc, err := warehouse.NewService(cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := svc.Connect(ctx); err != nil {
		return nil, err
	}
	return svc, nil
}

// pipelineSession is a connected warehouse.
type pipelineSession interface {
	warehouse.Session
	Close() error
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	level := cfg.Logging.Level
	if logLevel != "" {
		level = logLevel
	}
	format := cfg.Logging.Format
	if logFormat != "" {
		format = logFormat
	}

	logger := observability.NewLogger(observability.LoggerConfig{
		Level:   observability.LogLevelFromString(level),
		Format:  observability.Format(strings.ToLower(format)),
		Output:  cmd.ErrOrStderr(),
		Service: "sparkify-dwh",
		Version: Version,
	})

	return &app{cfg: cfg, logger: logger, ui: ui.NewUI(false, quiet)}, nil
}

// warehouseConfig maps a registry entry to a service config.
func warehouseConfig(alias string, c models.Connection) (warehouse.Config, error) {
	out := warehouse.Config{
		Alias:       alias,
		Dialect:     c.Dialect,
		DSN:         c.DSN,
		Host:        c.Host,
		Port:        c.Port,
		Database:    c.Database,
		User:        c.User,
		Password:    c.Password,
		SSLMode:     c.SSLMode,
		Account:     c.Account,
		Warehouse:   c.Warehouse,
		Role:        c.Role,
		Schema:      c.Schema,
		EnforceKeys: c.EnforceKeys,
	}
	if c.Timeout != "" {
		d, err := time.ParseDuration(c.Timeout)
		if err != nil {
			return out, apperrors.ConfigError(fmt.Sprintf("Invalid timeout %q for connection %q", c.Timeout, alias), "connections."+alias+".timeout")
		}
		out.Timeout = d
	}
	return out, nil
}

// selectedDialect returns the dialect of the selected connection without
// resolving its password.
func (a *app) selectedDialect() (warehouse.Dialect, error) {
	alias := connectionAlias
	if alias == "" {
		alias = a.cfg.Connection
	}
	if alias == "" {
		alias = config.DefaultConnection
	}
	conn, ok := a.cfg.Connections[strings.ToLower(alias)]
	if !ok {
		return nil, apperrors.New(apperrors.ErrCodeUnknownConnection, fmt.Sprintf("Unknown connection %q", alias))
	}
	d, err := warehouse.Lookup(conn.Dialect)
	if err != nil {
		return nil, err
	}
	if pg, ok := d.(warehouse.Postgres); ok {
		pg.EnforceKeys = conn.EnforceKeys
		d = pg
	}
	return d, nil
}

func (a *app) connect(ctx context.Context) (pipelineSession, error) {
	alias, conn, err := config.ResolveConnection(a.cfg, connectionAlias)
	if err != nil {
		return nil, err
	}
	wcfg, err := warehouseConfig(alias, conn)
	if err != nil {
		return nil, err
	}

	a.ui.StartProgress(fmt.Sprintf("Connecting to %s (%s)...", alias, conn.Dialect))
	session, err := openService(ctx, wcfg, a.logger)
	if err != nil {
		a.ui.StopProgress(false, "Connection failed")
		return nil, err
	}
	a.ui.StopProgress(true, fmt.Sprintf("Connected to %s", alias))
	return session, nil
}

// usesKeys reports whether any staging source authorizes with access keys.
func (a *app) usesKeys(p *pipeline.Plan) bool {
	for _, s := range p.Stages {
		if s.Auth == staging.AuthKeys {
			return true
		}
	}
	return false
}

// stager builds the staging loader. The AWS credential chain is only
// resolved when a source uses keys or preflight is enabled.
func (a *app) stager(ctx context.Context, session warehouse.Session, p *pipeline.Plan) (*staging.Loader, error) {
	auth := staging.Authorizer{
		RoleARN:            a.cfg.AWS.IAMRoleARN,
		StorageIntegration: a.cfg.AWS.StorageIntegration,
	}
	var opts []staging.Option

	if len(p.Stages) > 0 && (a.usesKeys(p) || a.cfg.Pipeline.Preflight) {
		awsCfg, err := staging.LoadAWSConfig(ctx, a.cfg.AWS.Region, a.cfg.AWS.Profile)
		if err != nil {
			return nil, err
		}
		auth.Credentials = awsCfg.Credentials
		if a.cfg.Pipeline.Preflight {
			opts = append(opts, staging.WithPreflight(staging.NewS3Lister(awsCfg)))
		}
	}
	return staging.NewLoader(session, auth, a.logger, opts...), nil
}

func (a *app) executor(session warehouse.Session) *transform.Executor {
	return transform.NewExecutor(session, a.cfg.Pipeline.PlayPage, a.logger)
}

// buildTasks connects and turns plan into tasks. The caller closes the session.
func (a *app) buildTasks(ctx context.Context, p *pipeline.Plan) (pipelineSession, []pipeline.Task, error) {
	session, err := a.connect(ctx)
	if err != nil {
		return nil, nil, err
	}

	stager, err := a.stager(ctx, session, p)
	if err != nil {
		_ = session.Close()
		return nil, nil, err
	}
	return session, p.All(stager, a.executor(session), a.logger), nil
}

// runTasks runs tasks with live progress and the pipeline timeout.
func (a *app) runTasks(ctx context.Context, failFast bool, tasks []pipeline.Task) error {
	if len(tasks) == 0 {
		a.ui.Warning("Nothing to run")
		return nil
	}

	if timeout := config.Timeout(a.cfg); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	runner := pipeline.NewRunner(failFast, a.logger)
	progress := ui.NewTaskProgress(len(tasks))
	if !a.ui.Quiet {
		runner.OnResult = func(res pipeline.Result) {
			switch res.Status {
			case pipeline.StatusSkipped:
				progress.Skipped(res.Task)
			case pipeline.StatusCancelled:
				progress.Cancelled(res.Task)
			default:
				progress.Done(res.Task, res.Err, res.Duration)
			}
		}
	}

	_, err := runner.Run(ctx, tasks...)
	if !a.ui.Quiet {
		progress.Finish()
	}
	return err
}

// execute connects, runs p and closes the session.
func (a *app) execute(ctx context.Context, p *pipeline.Plan, failFast bool) error {
	session, tasks, err := a.buildTasks(ctx, p)
	if err != nil {
		return err
	}
	defer session.Close()

	return a.runTasks(ctx, failFast, tasks)
}

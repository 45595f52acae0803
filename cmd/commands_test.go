package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skylar-117/DEND-Nanodegree-Udacity/internal/config"
	"github.com/Skylar-117/DEND-Nanodegree-Udacity/internal/observability"
	"github.com/Skylar-117/DEND-Nanodegree-Udacity/internal/pipeline"
	"github.com/Skylar-117/DEND-Nanodegree-Udacity/internal/testutil"
	"github.com/Skylar-117/DEND-Nanodegree-Udacity/internal/ui"
	apperrors "github.com/Skylar-117/DEND-Nanodegree-Udacity/pkg/errors"
	"github.com/Skylar-117/DEND-Nanodegree-Udacity/pkg/models"
)

func TestTablesCreateAll(t *testing.T) {
	path := writeTestConfig(t)
	session := stubService(t)

	output, err := executeCommand(t, "--config", path, "tables", "create")
	require.NoError(t, err)

	queries := session.Queries()
	require.Len(t, queries, 7)
	for _, q := range queries {
		assert.True(t, strings.HasPrefix(q, "CREATE TABLE IF NOT EXISTS"), q)
	}
	assert.Contains(t, output, "Created 7 table(s)")
}

func TestTablesDropConfirmation(t *testing.T) {
	path := writeTestConfig(t)

	oldInteractive, oldConfirm := isInteractive, confirm
	t.Cleanup(func() { isInteractive, confirm = oldInteractive, oldConfirm })
	isInteractive = func() bool { return true }

	t.Run("declined", func(t *testing.T) {
		var asked string
		confirm = func(message string, _ bool) (bool, error) {
			asked = message
			return false, nil
		}
		session := stubService(t)

		output, err := executeCommand(t, "--config", path, "tables", "drop", "users", "time")
		require.NoError(t, err)
		assert.Equal(t, "Drop users, time?", asked)
		assert.Nil(t, session.MockWarehouse, "no connection is opened")
		assert.Contains(t, output, "Aborted")
	})

	t.Run("yes flag skips the prompt", func(t *testing.T) {
		confirm = func(string, bool) (bool, error) {
			t.Fatal("prompted despite --yes")
			return false, nil
		}
		session := stubService(t)

		_, err := executeCommand(t, "--config", path, "tables", "drop", "users", "--yes")
		require.NoError(t, err)
		assert.Equal(t, []string{"DROP TABLE IF EXISTS users"}, session.Queries())
	})

	t.Run("reset drops then creates", func(t *testing.T) {
		confirm = func(string, bool) (bool, error) { return true, nil }
		session := stubService(t)

		_, err := executeCommand(t, "--config", path, "tables", "reset", "songs")
		require.NoError(t, err)
		queries := session.Queries()
		require.Len(t, queries, 2)
		assert.Equal(t, "DROP TABLE IF EXISTS songs", queries[0])
		assert.True(t, strings.HasPrefix(queries[1], "CREATE TABLE IF NOT EXISTS songs"))
	})
}

func TestTablesUnknownTable(t *testing.T) {
	_, err := executeCommand(t, "tables", "create", "listens")
	assert.Equal(t, apperrors.ErrCodeValidationFailed, apperrors.GetErrorCode(err))
}

func TestTablesList(t *testing.T) {
	output, err := executeCommand(t, "tables", "list")
	require.NoError(t, err)
	for _, name := range []string{"staging_events", "staging_songs", "songplays", "users", "songs", "artists", "time"} {
		assert.Contains(t, output, name)
	}

	output, err = executeCommand(t, "tables", "list", "users")
	require.NoError(t, err)
	assert.Contains(t, output, "=== DIMENSION users ===")
	assert.Contains(t, output, "first_name")
}

func TestRunCommand(t *testing.T) {
	path := writeTestConfig(t)
	session := stubService(t)

	output, err := executeCommand(t, "--config", path, "run")
	require.NoError(t, err)

	queries := session.Queries()
	require.Len(t, queries, 14)
	assert.Equal(t, "DELETE FROM staging_events", queries[0])
	assert.True(t, strings.HasPrefix(queries[1], "COPY staging_events"))
	assert.Contains(t, queries[1], "aws_iam_role=arn:aws:iam::123456789012:role/dwhRole")
	assert.Contains(t, queries[1], "'s3://udacity-dend/log_json_path.json'")
	assert.Equal(t, "DELETE FROM songplays", queries[4])
	assert.True(t, strings.HasPrefix(queries[13], "INSERT INTO time"))

	assert.Contains(t, output, "[7/7] load_time")
	assert.Contains(t, output, "7 succeeded")
	assert.True(t, session.closed)
}

func TestStageCommandSelectsTables(t *testing.T) {
	path := writeTestConfig(t)
	session := stubService(t)

	_, err := executeCommand(t, "--config", path, "stage", "staging_songs")
	require.NoError(t, err)

	queries := session.Queries()
	require.Len(t, queries, 2)
	assert.Equal(t, "DELETE FROM staging_songs", queries[0])
	assert.Contains(t, queries[1], "FORMAT AS JSON 'auto'")

	_, err = executeCommand(t, "--config", path, "stage", "staging_listens")
	assert.Equal(t, apperrors.ErrCodeValidationFailed, apperrors.GetErrorCode(err))
}

func TestLoadCommandAppend(t *testing.T) {
	path := writeTestConfig(t)
	session := stubService(t)

	_, err := executeCommand(t, "--config", path, "load", "users", "--append")
	require.NoError(t, err)

	queries := session.Queries()
	require.Len(t, queries, 1)
	assert.True(t, strings.HasPrefix(queries[0], "INSERT INTO users"))
	assert.Equal(t, []interface{}{"NextSong"}, session.ExecutedQueries[0].Args)
}

func TestLoadCommandFailFast(t *testing.T) {
	path := writeTestConfig(t)
	failSongplays := func(m *testutil.MockWarehouse) {
		m.FailOn("INSERT INTO songplays", errors.New("boom"))
	}

	t.Run("stops at first failure", func(t *testing.T) {
		session := stubService(t, failSongplays)

		output, err := executeCommand(t, "--config", path, "load")
		require.Error(t, err)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeTransform))
		assert.Len(t, session.Queries(), 2)
		assert.Contains(t, output, "4 skipped")
	})

	t.Run("keeps going when disabled", func(t *testing.T) {
		session := stubService(t, failSongplays)

		output, err := executeCommand(t, "--config", path, "load", "--fail-fast=false")
		require.Error(t, err)
		assert.Len(t, session.Queries(), 10)
		assert.Contains(t, output, "4 succeeded")
		assert.Contains(t, output, "1 failed")
	})
}

type cancellingTask struct {
	name   string
	cancel context.CancelFunc
}

func (c cancellingTask) Name() string { return c.name }

func (c cancellingTask) Run(context.Context) error {
	if c.cancel != nil {
		c.cancel()
	}
	return nil
}

func TestRunTasksReportsCancelled(t *testing.T) {
	out := &bytes.Buffer{}
	oldColor := ui.ColorEnabled()
	ui.Output = out
	ui.SetColor(false)
	t.Cleanup(func() {
		ui.Output = os.Stdout
		ui.SetColor(oldColor)
	})

	ctx, cancel := context.WithCancel(context.Background())
	a := &app{cfg: config.Default(), logger: observability.NewNopLogger(), ui: ui.NewUI(false, false)}

	err := a.runTasks(ctx, true, []pipeline.Task{
		cancellingTask{name: "stage_staging_events", cancel: cancel},
		cancellingTask{name: "stage_staging_songs"},
		cancellingTask{name: "load_songplays"},
	})

	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeCancelled))
	assert.Contains(t, out.String(), "[2/3] stage_staging_songs cancelled")
	assert.Contains(t, out.String(), "[3/3] load_songplays cancelled")
	assert.Contains(t, out.String(), "2 cancelled")
	assert.NotContains(t, out.String(), "skipped")
}

func TestPlanCommand(t *testing.T) {
	path := writeTestConfig(t)

	output, err := executeCommand(t, "--config", path, "plan")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(output, "-- dialect: redshift\n"))
	assert.Contains(t, output, "-- stage_staging_events\nDELETE FROM staging_events;\nCOPY staging_events")
	assert.Contains(t, output, "aws_iam_role=arn:aws:iam::123456789012:role/dwhRole")
	assert.Contains(t, output, "-- load_users\nDELETE FROM users;\n-- args: \"NextSong\"\nINSERT INTO users")
	assert.Equal(t, 7, strings.Count(output, "\n-- stage_")+strings.Count(output, "\n-- load_"))
}

func TestPlanCommandTableAndAppend(t *testing.T) {
	path := writeTestConfig(t)

	output, err := executeCommand(t, "--config", path, "plan", "--format", "table", "--append")
	require.NoError(t, err)
	assert.Contains(t, output, "load_songplays")
	assert.Contains(t, output, "INSERT INTO songplays")
	assert.NotContains(t, output, "DELETE FROM songplays")

	_, err = executeCommand(t, "--config", path, "plan", "--format", "xml")
	assert.Error(t, err)
}

func TestPlanCommandPostgres(t *testing.T) {
	path := writeTestConfig(t)

	_, err := executeCommand(t, "--config", path, "--connection", "local", "plan")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeUnsupported))

	_, err = executeCommand(t, "--config", path, "--connection", "nope", "plan")
	assert.Equal(t, apperrors.ErrCodeUnknownConnection, apperrors.GetErrorCode(err))
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sparkify", "config.yaml")

	output, err := executeCommand(t, "--config", path, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, output, "Config written to "+path)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.Default().Staging, cfg.Staging)

	_, err = executeCommand(t, "--config", path, "config", "init")
	assert.Equal(t, apperrors.ErrCodeConfigInvalid, apperrors.GetErrorCode(err))

	_, err = executeCommand(t, "--config", path, "config", "init", "--force")
	assert.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestConfigShowMasksPasswords(t *testing.T) {
	path := writeTestConfig(t)

	output, err := executeCommand(t, "--config", path, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, output, "********")
	assert.NotContains(t, output, "secret")
	assert.Contains(t, output, "arn:aws:iam::123456789012:role/dwhRole")
}

func TestWarehouseConfigTimeout(t *testing.T) {
	cfg, err := warehouseConfig("dwh", models.Connection{Dialect: "postgres", Timeout: "1m", EnforceKeys: true})
	require.NoError(t, err)
	assert.Equal(t, "1m0s", cfg.Timeout.String())
	assert.True(t, cfg.EnforceKeys)

	_, err = warehouseConfig("dwh", models.Connection{Timeout: "soon"})
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "connections.dwh.timeout", appErr.Context["field"])
}

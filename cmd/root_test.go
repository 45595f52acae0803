package cmd

import (
	"bytes"
	"context"
	"os"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skylar-117/DEND-Nanodegree-Udacity/internal/observability"
	"github.com/Skylar-117/DEND-Nanodegree-Udacity/internal/testutil"
	"github.com/Skylar-117/DEND-Nanodegree-Udacity/internal/ui"
	"github.com/Skylar-117/DEND-Nanodegree-Udacity/internal/warehouse"
)

const testConfig = `connection: dwh
connections:
  dwh:
    dialect: redshift
    host: dwhcluster.abc123.us-west-2.redshift.amazonaws.com
    database: dev
    user: etl
    password: secret
    timeout: 5s
  local:
    dialect: postgres
    host: localhost
    database: sparkify
    user: etl
    password: etl
aws:
  region: us-west-2
  iam_role_arn: arn:aws:iam::123456789012:role/dwhRole
logging:
  level: error
`

// resetFlags restores every flag to its default; cobra keeps flag state
// between executions of the same command tree.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	t.Cleanup(func() { ui.Output = os.Stdout })

	out := &bytes.Buffer{}
	rootCmd.SetOut(out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(append([]string{"--no-color"}, args...))

	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeTestConfig(t *testing.T) string {
	t.Helper()
	return testutil.WriteFile(t, t.TempDir(), "config.yaml", testConfig)
}

type fakeSession struct {
	*testutil.MockWarehouse
	config warehouse.Config
	closed bool
}

func (f *fakeSession) Close() error {
	f.closed = true
	return nil
}

// stubService replaces the warehouse connection with a recording session.
// setup runs on the mock once the command connects.
func stubService(t *testing.T, setup ...func(*testutil.MockWarehouse)) *fakeSession {
	t.Helper()
	session := &fakeSession{}
	old := openService
	openService = func(_ context.Context, cfg warehouse.Config, _ *observability.Logger) (pipelineSession, error) {
		d, err := warehouse.Lookup(cfg.Dialect)
		if err != nil {
			return nil, err
		}
		session.MockWarehouse = testutil.NewMockWarehouse(d)
		session.config = cfg
		for _, fn := range setup {
			fn(session.MockWarehouse)
		}
		return session, nil
	}
	t.Cleanup(func() { openService = old })
	return session
}

func TestRootCommand(t *testing.T) {
	output, err := executeCommand(t)
	require.NoError(t, err)

	assert.Contains(t, output, "sparkify-dwh")
	assert.Contains(t, output, "stages raw song and event logs from S3")
}

func TestRootCommandHelp(t *testing.T) {
	output, err := executeCommand(t, "--help")
	require.NoError(t, err)

	assert.Contains(t, output, "Available Commands:")
	for _, name := range []string{"tables", "stage", "load", "run", "plan", "config", "version"} {
		assert.Contains(t, output, name)
	}
	assert.Contains(t, output, "--connection")
	assert.Contains(t, output, "--log-level")
}

func TestInvalidCommand(t *testing.T) {
	_, err := executeCommand(t, "invalid-command")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command")
}

func TestVersionCommand(t *testing.T) {
	output, err := executeCommand(t, "version")
	require.NoError(t, err)
	assert.Contains(t, output, "sparkify-dwh version dev")
	assert.Contains(t, output, "Built at: unknown")
}

func TestWarehouseConfigMapping(t *testing.T) {
	path := writeTestConfig(t)
	session := stubService(t)

	_, err := executeCommand(t, "--config", path, "tables", "create", "users")
	require.NoError(t, err)

	cfg := session.config
	assert.Equal(t, "dwh", cfg.Alias)
	assert.Equal(t, "redshift", cfg.Dialect)
	assert.Equal(t, 5439, cfg.Port)
	assert.Equal(t, "require", cfg.SSLMode)
	assert.Equal(t, "secret", cfg.Password)
	assert.Equal(t, "5s", cfg.Timeout.String())
	assert.True(t, session.closed)
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	apperrors "github.com/Skylar-117/DEND-Nanodegree-Udacity/pkg/errors"
	"github.com/Skylar-117/DEND-Nanodegree-Udacity/pkg/models"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func TestGetConfigFile(t *testing.T) {
	t.Setenv("SPARKIFY_CONFIG", "/etc/sparkify/../sparkify/dwh.yaml")
	assert.Equal(t, "/etc/sparkify/dwh.yaml", GetConfigFile())
	assert.Equal(t, "/etc/sparkify", GetConfigPath())
}

func TestLoadMissingDefaultFileYieldsDefaults(t *testing.T) {
	t.Setenv("SPARKIFY_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultConnection, cfg.Connection)
	assert.Equal(t, "NextSong", cfg.Pipeline.PlayPage)
	assert.True(t, cfg.Pipeline.FailFast)
	require.Len(t, cfg.Staging, 2)
	assert.Equal(t, "staging_events", cfg.Staging[0].Table)
	assert.Equal(t, "s3://udacity-dend/log_json_path.json", cfg.Staging[0].JSONPaths)
	require.Len(t, cfg.Loads, 5)
	assert.Equal(t, "songplays", cfg.Loads[0].Table)
	assert.Equal(t, 5439, cfg.Connections[DefaultConnection].Port)
}

func TestLoadExplicitMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeConfigNotFound, apperrors.GetErrorCode(err))
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
connection: local
connections:
  local:
    dialect: postgres
    host: localhost
    database: sparkify
    user: etl
  redshift:
    host: dwh.example.us-west-2.redshift.amazonaws.com
    user: awsuser
    password: secret
aws:
  iam_role_arn: arn:aws:iam::123456789012:role/dwhRole
staging:
  - table: staging_songs
    source: s3://bucket/song_data
    clear: false
loads:
  - table: users
    append: true
pipeline:
  preflight: true
  timeout: 45m
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.Connection)
	assert.Equal(t, 5432, cfg.Connections["local"].Port)
	assert.Empty(t, cfg.Connections["local"].SSLMode)
	assert.Equal(t, "redshift", cfg.Connections["redshift"].Dialect)
	assert.Equal(t, "require", cfg.Connections["redshift"].SSLMode)

	require.Len(t, cfg.Staging, 1)
	assert.Equal(t, "json", cfg.Staging[0].Format)
	assert.Equal(t, "role", cfg.Staging[0].Auth)
	assert.False(t, cfg.Staging[0].ShouldClear())

	require.Len(t, cfg.Loads, 1)
	assert.True(t, cfg.Loads[0].Append)

	assert.True(t, cfg.Pipeline.Preflight)
	assert.True(t, cfg.Pipeline.FailFast, "default survives a partial pipeline section")
	assert.Equal(t, "NextSong", cfg.Pipeline.PlayPage)
	assert.Equal(t, "45m0s", Timeout(cfg).String())
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeConfig(t, "aws:\n  region: us-east-1\n")
	t.Setenv("SPARKIFY_AWS_REGION", "eu-west-1")
	t.Setenv("SPARKIFY_AWS_IAM_ROLE_ARN", "arn:aws:iam::1:role/r")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "eu-west-1", cfg.AWS.Region)
	assert.Equal(t, "arn:aws:iam::1:role/r", cfg.AWS.IAMRoleARN)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(cfg *models.Config)
		field  string
	}{
		{"empty table", func(c *models.Config) { c.Staging[0].Table = "" }, "staging[0].table"},
		{"duplicate staging", func(c *models.Config) { c.Staging[1].Table = c.Staging[0].Table }, "staging[1].table"},
		{"non s3 source", func(c *models.Config) { c.Staging[0].Source = "/tmp/log_data" }, "staging[0].source"},
		{"non s3 jsonpaths", func(c *models.Config) { c.Staging[0].JSONPaths = "log_json_path.json" }, "staging[0].json_paths"},
		{"csv format", func(c *models.Config) { c.Staging[1].Format = "csv" }, "staging[1].format"},
		{"unknown auth", func(c *models.Config) { c.Staging[0].Auth = "password" }, "staging[0].auth"},
		{"duplicate load", func(c *models.Config) { c.Loads[1].Table = "songplays" }, "loads[1].table"},
		{"empty play page", func(c *models.Config) { c.Pipeline.PlayPage = "" }, "pipeline.play_page"},
		{"bad timeout", func(c *models.Config) { c.Pipeline.Timeout = "soon" }, "pipeline.timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := Validate(cfg)
			require.Error(t, err)
			var appErr *apperrors.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, apperrors.ErrCodeConfigInvalid, appErr.Code)
			assert.Equal(t, tt.field, appErr.Context["field"])
		})
	}

	assert.NoError(t, Validate(Default()))
}

func TestResolveConnection(t *testing.T) {
	keyring.MockInit()
	cfg := Default()
	cfg.Connections["snow"] = models.Connection{Dialect: "snowflake", Account: "xy123", Password: "inline"}

	alias, conn, err := ResolveConnection(cfg, "")
	require.NoError(t, err)
	assert.Equal(t, DefaultConnection, alias)
	assert.Empty(t, conn.Password)

	_, conn, err = ResolveConnection(cfg, "snow")
	require.NoError(t, err)
	assert.Equal(t, "inline", conn.Password)

	_, _, err = ResolveConnection(cfg, "missing")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeUnknownConnection, apperrors.GetErrorCode(err))
}

func TestResolveConnectionPasswordSources(t *testing.T) {
	keyring.MockInit()
	cfg := Default()

	require.NoError(t, StorePassword(DefaultConnection, "from-keyring"))
	_, conn, err := ResolveConnection(cfg, DefaultConnection)
	require.NoError(t, err)
	assert.Equal(t, "from-keyring", conn.Password)

	t.Setenv("SPARKIFY_CONNECTIONS_REDSHIFT_PASSWORD", "from-env")
	_, conn, err = ResolveConnection(cfg, DefaultConnection)
	require.NoError(t, err)
	assert.Equal(t, "from-env", conn.Password)
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.AWS.IAMRoleARN = "arn:aws:iam::123456789012:role/dwhRole"
	cfg.Loads[2].Append = true

	require.NoError(t, Save(path, cfg))
	assert.True(t, Exists(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.AWS.IAMRoleARN, loaded.AWS.IAMRoleARN)
	assert.Equal(t, cfg.Staging, loaded.Staging)
	assert.True(t, loaded.Loads[2].Append)
}

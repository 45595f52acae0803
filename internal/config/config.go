package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"

	apperrors "github.com/Skylar-117/DEND-Nanodegree-Udacity/pkg/errors"
	"github.com/Skylar-117/DEND-Nanodegree-Udacity/pkg/models"
)

const (
	// EnvPrefix prefixes every environment override, e.g. SPARKIFY_AWS_REGION.
	EnvPrefix = "SPARKIFY"
	// KeyringService is the OS keyring service holding connection passwords.
	KeyringService = "sparkify-dwh"
	// DefaultConnection is the registry alias used when none is selected.
	DefaultConnection = "redshift"
	// DefaultPlayPage selects song-play events.
	DefaultPlayPage = "NextSong"
)

func GetConfigPath() string {
	if configFile := os.Getenv("SPARKIFY_CONFIG"); configFile != "" {
		return filepath.Dir(configFile)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".sparkify-dwh")
}

func GetConfigFile() string {
	if configFile := os.Getenv("SPARKIFY_CONFIG"); configFile != "" {
		return filepath.Clean(configFile)
	}
	return filepath.Join(GetConfigPath(), "config.yaml")
}

// Default returns the original Sparkify pipeline: events and songs staged from
// the udacity-dend bucket, then the fact table and the four dimensions.
func Default() *models.Config {
	return &models.Config{
		Connection: DefaultConnection,
		Connections: map[string]models.Connection{
			DefaultConnection: {
				Dialect:  "redshift",
				Port:     5439,
				Database: "dev",
				SSLMode:  "require",
			},
		},
		AWS: models.AWS{Region: "us-west-2"},
		Staging: []models.StagingSource{
			{
				Table:     "staging_events",
				Source:    "s3://udacity-dend/log_data",
				Format:    "json",
				JSONPaths: "s3://udacity-dend/log_json_path.json",
				Auth:      "role",
			},
			{
				Table:  "staging_songs",
				Source: "s3://udacity-dend/song_data",
				Format: "json",
				Auth:   "role",
			},
		},
		Loads: []models.Load{
			{Table: "songplays"},
			{Table: "users"},
			{Table: "songs"},
			{Table: "artists"},
			{Table: "time"},
		},
		Pipeline: models.Pipeline{
			PlayPage: DefaultPlayPage,
			FailFast: true,
		},
		Logging: models.Logging{Level: "info", Format: "console"},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("connection", d.Connection)
	v.SetDefault("aws.region", d.AWS.Region)
	v.SetDefault("aws.iam_role_arn", "")
	v.SetDefault("aws.storage_integration", "")
	v.SetDefault("aws.profile", "")
	v.SetDefault("pipeline.play_page", d.Pipeline.PlayPage)
	v.SetDefault("pipeline.fail_fast", d.Pipeline.FailFast)
	v.SetDefault("pipeline.preflight", false)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
}

// Load reads the config file at path (or the default location when path is
// empty), applies SPARKIFY_* environment overrides and fills defaults. A
// missing default file yields Default().
func Load(path string) (*models.Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := path != ""
	if !explicit {
		path = GetConfigFile()
	}
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		missing := errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)
		switch {
		case missing && explicit:
			return nil, apperrors.Wrap(err, apperrors.ErrCodeConfigNotFound, "Config file not found").
				WithContext("path", path)
		case missing:
		default:
			return nil, apperrors.Wrap(err, apperrors.ErrCodeConfigInvalid, "Failed to read config file").
				WithContext("path", path)
		}
	}

	var cfg models.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeConfigInvalid, "Failed to decode config").
			WithContext("path", path)
	}

	applyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *models.Config) {
	d := Default()
	if len(cfg.Connections) == 0 {
		cfg.Connections = d.Connections
	}
	for alias, conn := range cfg.Connections {
		if conn.Dialect == "" {
			conn.Dialect = "redshift"
		}
		if conn.Port == 0 {
			switch conn.Dialect {
			case "redshift":
				conn.Port = 5439
			case "postgres":
				conn.Port = 5432
			}
		}
		if conn.SSLMode == "" && conn.Dialect == "redshift" {
			conn.SSLMode = "require"
		}
		cfg.Connections[alias] = conn
	}
	if cfg.Staging == nil {
		cfg.Staging = d.Staging
	}
	for i := range cfg.Staging {
		if cfg.Staging[i].Format == "" {
			cfg.Staging[i].Format = "json"
		}
		if cfg.Staging[i].Auth == "" {
			cfg.Staging[i].Auth = "role"
		}
	}
	if cfg.Loads == nil {
		cfg.Loads = d.Loads
	}
}

// Validate checks the parts of the config every command relies on.
// Connection entries are checked when resolved.
func Validate(cfg *models.Config) error {
	seen := make(map[string]bool)
	for i, src := range cfg.Staging {
		field := fmt.Sprintf("staging[%d]", i)
		if src.Table == "" {
			return apperrors.ConfigError("Staging source has no table", field+".table")
		}
		if seen[src.Table] {
			return apperrors.ConfigError(fmt.Sprintf("Staging table %q is listed twice", src.Table), field+".table")
		}
		seen[src.Table] = true
		if !strings.HasPrefix(src.Source, "s3://") {
			return apperrors.ConfigError(fmt.Sprintf("Staging source for %q must be an s3:// URI", src.Table), field+".source")
		}
		if src.JSONPaths != "" && !strings.HasPrefix(src.JSONPaths, "s3://") {
			return apperrors.ConfigError(fmt.Sprintf("JSONPaths for %q must be an s3:// URI", src.Table), field+".json_paths")
		}
		if !strings.EqualFold(src.Format, "json") {
			return apperrors.ConfigError(fmt.Sprintf("Unsupported format %q for %q", src.Format, src.Table), field+".format")
		}
		switch src.Auth {
		case "role", "keys":
		default:
			return apperrors.ConfigError(fmt.Sprintf("Unknown auth %q for %q, expected role or keys", src.Auth, src.Table), field+".auth")
		}
	}

	seen = make(map[string]bool)
	for i, load := range cfg.Loads {
		field := fmt.Sprintf("loads[%d].table", i)
		if load.Table == "" {
			return apperrors.ConfigError("Load has no table", field)
		}
		if seen[load.Table] {
			return apperrors.ConfigError(fmt.Sprintf("Load table %q is listed twice", load.Table), field)
		}
		seen[load.Table] = true
	}

	if cfg.Pipeline.PlayPage == "" {
		return apperrors.ConfigError("pipeline.play_page must not be empty", "pipeline.play_page")
	}
	if cfg.Pipeline.Timeout != "" {
		if _, err := time.ParseDuration(cfg.Pipeline.Timeout); err != nil {
			return apperrors.ConfigError(fmt.Sprintf("Invalid pipeline timeout %q", cfg.Pipeline.Timeout), "pipeline.timeout")
		}
	}
	return nil
}

// ResolveConnection returns the registry entry for alias (the config's
// default when alias is empty) with its password filled from the
// environment or the OS keyring when the file leaves it blank.
func ResolveConnection(cfg *models.Config, alias string) (string, models.Connection, error) {
	if alias == "" {
		alias = cfg.Connection
	}
	if alias == "" {
		alias = DefaultConnection
	}

	conn, ok := cfg.Connections[strings.ToLower(alias)]
	if !ok {
		names := make([]string, 0, len(cfg.Connections))
		for name := range cfg.Connections {
			names = append(names, name)
		}
		sort.Strings(names)
		return alias, conn, apperrors.New(apperrors.ErrCodeUnknownConnection, fmt.Sprintf("Unknown connection %q", alias)).
			WithContext("known", names).
			WithSuggestions("Add it under 'connections:' in the config file")
	}

	if conn.Password == "" {
		pw, err := LookupPassword(alias)
		if err != nil {
			return alias, conn, err
		}
		conn.Password = pw
	}
	return alias, conn, nil
}

// LookupPassword checks SPARKIFY_CONNECTIONS_<ALIAS>_PASSWORD, then the keyring.
// No stored password is not an error.
func LookupPassword(alias string) (string, error) {
	env := fmt.Sprintf("%s_CONNECTIONS_%s_PASSWORD", EnvPrefix, strings.ToUpper(alias))
	if pw := os.Getenv(env); pw != "" {
		return pw, nil
	}

	pw, err := keyring.Get(KeyringService, alias)
	switch {
	case err == nil:
		return pw, nil
	case errors.Is(err, keyring.ErrNotFound):
		return "", nil
	default:
		return "", apperrors.Wrap(err, apperrors.ErrCodeAuthenticationFailed, "Failed to read password from keyring").
			WithContext("connection", alias)
	}
}

// StorePassword saves a connection password in the OS keyring.
func StorePassword(alias, password string) error {
	if err := keyring.Set(KeyringService, alias, password); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeAuthenticationFailed, "Failed to store password in keyring").
			WithContext("connection", alias)
	}
	return nil
}

// Save writes cfg to path as YAML with owner-only permissions.
func Save(path string, cfg *models.Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Exists reports whether a config file exists at path.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Timeout returns the pipeline timeout, zero when unset.
func Timeout(cfg *models.Config) time.Duration {
	d, _ := time.ParseDuration(cfg.Pipeline.Timeout)
	return d
}

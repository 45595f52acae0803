package models

// Config is the complete pipeline configuration.
type Config struct {
	Connections map[string]Connection `yaml:"connections" mapstructure:"connections"`
	Connection  string                `yaml:"connection" mapstructure:"connection"` // alias used when no --connection flag is given
	AWS         AWS                   `yaml:"aws" mapstructure:"aws"`
	Staging     []StagingSource       `yaml:"staging" mapstructure:"staging"`
	Loads       []Load                `yaml:"loads" mapstructure:"loads"`
	Pipeline    Pipeline              `yaml:"pipeline" mapstructure:"pipeline"`
	Logging     Logging               `yaml:"logging" mapstructure:"logging"`
}

// Connection is one entry of the warehouse connection registry.
type Connection struct {
	Dialect  string `yaml:"dialect" mapstructure:"dialect"` // redshift, postgres, snowflake
	DSN      string `yaml:"dsn,omitempty" mapstructure:"dsn"`
	Host     string `yaml:"host" mapstructure:"host"`
	Port     int    `yaml:"port" mapstructure:"port"`
	Database string `yaml:"database" mapstructure:"database"`
	User     string `yaml:"user" mapstructure:"user"`
	Password string `yaml:"password,omitempty" mapstructure:"password"`
	SSLMode  string `yaml:"sslmode,omitempty" mapstructure:"sslmode"`

	// Snowflake only
	Account   string `yaml:"account,omitempty" mapstructure:"account"`
	Warehouse string `yaml:"warehouse,omitempty" mapstructure:"warehouse"`
	Role      string `yaml:"role,omitempty" mapstructure:"role"`
	Schema    string `yaml:"schema,omitempty" mapstructure:"schema"`

	// EnforceKeys declares primary keys on Postgres targets, which enforce them.
	EnforceKeys bool `yaml:"enforce_keys,omitempty" mapstructure:"enforce_keys"`

	// Timeout bounds connection establishment, e.g. "30s".
	Timeout string `yaml:"timeout,omitempty" mapstructure:"timeout"`
}

// AWS holds object-storage access settings.
type AWS struct {
	Region     string `yaml:"region" mapstructure:"region"`
	IAMRoleARN string `yaml:"iam_role_arn" mapstructure:"iam_role_arn"`
	// StorageIntegration names a Snowflake storage integration used for role auth.
	StorageIntegration string `yaml:"storage_integration,omitempty" mapstructure:"storage_integration"`
	Profile            string `yaml:"profile,omitempty" mapstructure:"profile"`
}

// StagingSource describes one bulk load into a staging table.
type StagingSource struct {
	Table     string `yaml:"table" mapstructure:"table"`
	Source    string `yaml:"source" mapstructure:"source"`
	Format    string `yaml:"format" mapstructure:"format"`
	JSONPaths string `yaml:"json_paths,omitempty" mapstructure:"json_paths"`
	Auth      string `yaml:"auth" mapstructure:"auth"` // "role" or "keys"
	Region    string `yaml:"region,omitempty" mapstructure:"region"`
	// Clear deletes existing rows before the COPY.
	Clear *bool `yaml:"clear,omitempty" mapstructure:"clear"`
}

// Load describes one fact/dimension transform.
type Load struct {
	Table  string `yaml:"table" mapstructure:"table"`
	Append bool   `yaml:"append" mapstructure:"append"`
}

// Pipeline holds run-wide settings.
type Pipeline struct {
	PlayPage  string `yaml:"play_page" mapstructure:"play_page"`
	FailFast  bool   `yaml:"fail_fast" mapstructure:"fail_fast"`
	Preflight bool   `yaml:"preflight" mapstructure:"preflight"` // list the S3 prefix before each COPY
	Timeout   string `yaml:"timeout,omitempty" mapstructure:"timeout"`
}

// Logging configures the structured logger.
type Logging struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// ShouldClear reports whether the staging table is emptied before loading.
// Staging tables hold exactly one batch, so the default is true.
func (s StagingSource) ShouldClear() bool {
	return s.Clear == nil || *s.Clear
}

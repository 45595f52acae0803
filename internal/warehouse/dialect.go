package warehouse

import (
	"fmt"
	"strings"

	apperrors "github.com/Skylar-117/DEND-Nanodegree-Udacity/pkg/errors"
)

// Dialect renders the warehouse-specific parts of DDL, DML and bulk loads.
type Dialect interface {
	Name() string
	// DriverName is the database/sql driver registered for this dialect.
	DriverName() string
	// Placeholder returns the bind marker for the n-th (1-based) argument.
	Placeholder(n int) string
	// EpochMillisToTimestamp converts an epoch-millisecond expression to a
	// timestamp at second precision.
	EpochMillisToTimestamp(expr string) string
	// DayOfWeek extracts the day of week, 0 = Sunday.
	DayOfWeek(expr string) string
	// ColumnDef renders one column of a CREATE TABLE.
	ColumnDef(col ColumnSpec) string
	// TableSuffix is appended after the closing parenthesis of CREATE TABLE.
	TableSuffix(sortKeys []string) string
	// Copy renders the bulk-load statement for spec.
	Copy(spec CopySpec) (string, error)
}

// ColumnSpec is the dialect-neutral description of a column.
type ColumnSpec struct {
	Name       string
	Type       string
	NotNull    bool
	Identity   bool
	SortKey    bool
	DistKey    bool
	PrimaryKey bool
}

// KeyCredentials is an access-key pair fetched at task execution time.
type KeyCredentials struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// CopySpec describes one bulk load from object storage. Keys is set for
// key-pair auth; otherwise each dialect uses whichever of RoleARN or
// StorageIntegration it supports.
type CopySpec struct {
	Table              string
	Location           string
	JSONPaths          string
	Region             string
	RoleARN            string
	StorageIntegration string
	Keys               *KeyCredentials
}

// Lookup returns the dialect registered under name. An empty name selects Redshift.
func Lookup(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "", "redshift":
		return Redshift{}, nil
	case "postgres", "postgresql":
		return Postgres{}, nil
	case "snowflake":
		return Snowflake{}, nil
	default:
		return nil, apperrors.ConfigError(fmt.Sprintf("Unknown warehouse dialect %q", name), "connections.dialect").
			WithSuggestions("Use one of: redshift, postgres, snowflake")
	}
}

func dollarPlaceholder(n int) string {
	return fmt.Sprintf("$%d", n)
}

func columnDef(col ColumnSpec, identity string, sortKey, distKey, primaryKey bool) string {
	var b strings.Builder
	b.WriteString(col.Name)
	b.WriteString(" ")
	b.WriteString(col.Type)
	if col.Identity {
		b.WriteString(" ")
		b.WriteString(identity)
	}
	if col.NotNull {
		b.WriteString(" NOT NULL")
	}
	if sortKey && col.SortKey {
		b.WriteString(" SORTKEY")
	}
	if distKey && col.DistKey {
		b.WriteString(" DISTKEY")
	}
	if primaryKey && col.PrimaryKey {
		b.WriteString(" PRIMARY KEY")
	}
	return b.String()
}

// Redshift is the default dialect. Primary keys are informational only.
type Redshift struct{}

func (Redshift) Name() string             { return "redshift" }
func (Redshift) DriverName() string       { return "pgx" }
func (Redshift) Placeholder(n int) string { return dollarPlaceholder(n) }

func (Redshift) EpochMillisToTimestamp(expr string) string {
	return fmt.Sprintf("TIMESTAMP 'epoch' + %s / 1000 * INTERVAL '1 second'", expr)
}

func (Redshift) DayOfWeek(expr string) string {
	return fmt.Sprintf("EXTRACT(dow FROM %s)", expr)
}

func (Redshift) ColumnDef(col ColumnSpec) string {
	return columnDef(col, "IDENTITY(0,1)", true, true, true)
}

func (Redshift) TableSuffix([]string) string { return "" }

func (d Redshift) Copy(spec CopySpec) (string, error) {
	table, err := Ident(spec.Table)
	if err != nil {
		return "", err
	}
	from, err := Literal(spec.Location)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "COPY %s\nFROM %s\n", table, from)

	switch {
	case spec.RoleARN != "":
		cred, err := Literal("aws_iam_role=" + spec.RoleARN)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "CREDENTIALS %s\n", cred)
	case spec.Keys != nil:
		if err := writeKeyClauses(&b, spec.Keys); err != nil {
			return "", err
		}
	case spec.StorageIntegration != "":
		return "", apperrors.Unsupported(d.Name(), "storage integration auth")
	default:
		return "", apperrors.New(apperrors.ErrCodeAuthorization, "COPY requires an IAM role or access keys").
			WithContext("table", spec.Table)
	}

	paths := "auto"
	if spec.JSONPaths != "" {
		paths = spec.JSONPaths
	}
	format, err := Literal(paths)
	if err != nil {
		return "", err
	}
	fmt.Fprintf(&b, "FORMAT AS JSON %s", format)

	if spec.Region != "" {
		region, err := Literal(spec.Region)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "\nREGION %s", region)
	}
	return b.String(), nil
}

func writeKeyClauses(b *strings.Builder, keys *KeyCredentials) error {
	if keys.AccessKeyID == "" || keys.SecretAccessKey == "" {
		return apperrors.New(apperrors.ErrCodeAuthorization, "Access key pair is incomplete")
	}
	id, err := Literal(keys.AccessKeyID)
	if err != nil {
		return err
	}
	secret, err := Literal(keys.SecretAccessKey)
	if err != nil {
		return err
	}
	fmt.Fprintf(b, "ACCESS_KEY_ID %s\nSECRET_ACCESS_KEY %s\n", id, secret)
	if keys.SessionToken != "" {
		token, err := Literal(keys.SessionToken)
		if err != nil {
			return err
		}
		fmt.Fprintf(b, "SESSION_TOKEN %s\n", token)
	}
	return nil
}

// Postgres is used for local runs and integration tests. It cannot bulk-load
// from object storage. Primary keys are omitted unless EnforceKeys is set so
// that duplicate-key behavior matches Redshift.
type Postgres struct {
	EnforceKeys bool
}

func (Postgres) Name() string             { return "postgres" }
func (Postgres) DriverName() string       { return "pgx" }
func (Postgres) Placeholder(n int) string { return dollarPlaceholder(n) }

func (Postgres) EpochMillisToTimestamp(expr string) string {
	return Redshift{}.EpochMillisToTimestamp(expr)
}

func (Postgres) DayOfWeek(expr string) string {
	return Redshift{}.DayOfWeek(expr)
}

func (p Postgres) ColumnDef(col ColumnSpec) string {
	return columnDef(col, "GENERATED BY DEFAULT AS IDENTITY", false, false, p.EnforceKeys)
}

func (Postgres) TableSuffix([]string) string { return "" }

func (p Postgres) Copy(CopySpec) (string, error) {
	return "", apperrors.Unsupported(p.Name(), "COPY from object storage")
}

// Snowflake renders COPY INTO with column-name matching for JSON.
type Snowflake struct{}

func (Snowflake) Name() string           { return "snowflake" }
func (Snowflake) DriverName() string     { return "snowflake" }
func (Snowflake) Placeholder(int) string { return "?" }

func (Snowflake) EpochMillisToTimestamp(expr string) string {
	return fmt.Sprintf("TO_TIMESTAMP_NTZ(FLOOR(%s / 1000))", expr)
}

func (Snowflake) DayOfWeek(expr string) string {
	return fmt.Sprintf("DAYOFWEEK(%s)", expr)
}

func (Snowflake) ColumnDef(col ColumnSpec) string {
	return columnDef(col, "IDENTITY(0,1)", false, false, true)
}

func (Snowflake) TableSuffix(sortKeys []string) string {
	if len(sortKeys) == 0 {
		return ""
	}
	return fmt.Sprintf(" CLUSTER BY (%s)", strings.Join(sortKeys, ", "))
}

func (d Snowflake) Copy(spec CopySpec) (string, error) {
	if spec.JSONPaths != "" {
		return "", apperrors.Unsupported(d.Name(), "JSONPaths mapping files").
			WithSuggestions("Remove json_paths; columns are matched by name")
	}
	table, err := Ident(spec.Table)
	if err != nil {
		return "", err
	}
	from, err := Literal(spec.Location)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "COPY INTO %s\nFROM %s\n", table, from)

	switch {
	case spec.StorageIntegration != "":
		integration, err := Ident(spec.StorageIntegration)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "STORAGE_INTEGRATION = %s\n", integration)
	case spec.Keys != nil:
		if spec.Keys.AccessKeyID == "" || spec.Keys.SecretAccessKey == "" {
			return "", apperrors.New(apperrors.ErrCodeAuthorization, "Access key pair is incomplete")
		}
		id, err := Literal(spec.Keys.AccessKeyID)
		if err != nil {
			return "", err
		}
		secret, err := Literal(spec.Keys.SecretAccessKey)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "CREDENTIALS = (AWS_KEY_ID = %s AWS_SECRET_KEY = %s", id, secret)
		if spec.Keys.SessionToken != "" {
			token, err := Literal(spec.Keys.SessionToken)
			if err != nil {
				return "", err
			}
			fmt.Fprintf(&b, " AWS_TOKEN = %s", token)
		}
		b.WriteString(")\n")
	case spec.RoleARN != "":
		return "", apperrors.Unsupported(d.Name(), "IAM role ARN auth").
			WithSuggestions("Set aws.storage_integration to a storage integration bound to the role")
	default:
		return "", apperrors.New(apperrors.ErrCodeAuthorization, "COPY requires a storage integration or access keys").
			WithContext("table", spec.Table)
	}

	b.WriteString("FILE_FORMAT = (TYPE = JSON)\nMATCH_BY_COLUMN_NAME = CASE_INSENSITIVE")
	return b.String(), nil
}

package warehouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/snowflakedb/gosnowflake"

	"github.com/Skylar-117/DEND-Nanodegree-Udacity/internal/observability"
	apperrors "github.com/Skylar-117/DEND-Nanodegree-Udacity/pkg/errors"
)

// Config holds one resolved warehouse connection.
type Config struct {
	Alias    string
	Dialect  string
	DSN      string
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string

	Account   string
	Warehouse string
	Role      string
	Schema    string

	// EnforceKeys declares primary keys on Postgres, which enforces them.
	EnforceKeys bool
	Timeout     time.Duration
}

// Session is the statement surface the loaders depend on.
type Session interface {
	Dialect() Dialect
	Exec(ctx context.Context, query string, args ...interface{}) (int64, error)
}

// Service executes statements against one warehouse session. It holds a
// single connection for the lifetime of a task run.
type Service struct {
	db      *sql.DB
	config  Config
	dialect Dialect
	logger  *observability.Logger
}

// NewService creates a service for config. Call Connect before executing.
func NewService(config Config, logger *observability.Logger) (*Service, error) {
	dialect, err := Lookup(config.Dialect)
	if err != nil {
		return nil, err
	}
	if pg, ok := dialect.(Postgres); ok {
		pg.EnforceKeys = config.EnforceKeys
		dialect = pg
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &Service{
		config:  config,
		dialect: dialect,
		logger:  logger.WithField("connection", config.Alias),
	}, nil
}

// NewServiceWithDB wraps an already-open database, e.g. a sqlmock or a
// testcontainers instance.
func NewServiceWithDB(db *sql.DB, dialect Dialect, logger *observability.Logger) *Service {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &Service{db: db, dialect: dialect, logger: logger}
}

// ValidateConfig checks the fields the dialect needs to connect.
func ValidateConfig(config Config) error {
	if config.DSN != "" {
		return nil
	}
	dialect, err := Lookup(config.Dialect)
	if err != nil {
		return err
	}
	require := func(field, value string) error {
		if value == "" {
			return apperrors.ConfigError(fmt.Sprintf("%s is required for connection %q", field, config.Alias), "connections."+config.Alias+"."+field)
		}
		return nil
	}

	fields := [][2]string{{"user", config.User}}
	if dialect.Name() == "snowflake" {
		fields = append(fields, [2]string{"account", config.Account})
	} else {
		fields = append(fields, [2]string{"host", config.Host}, [2]string{"database", config.Database})
	}
	for _, f := range fields {
		if err := require(f[0], f[1]); err != nil {
			return err
		}
	}
	return nil
}

// BuildDSN renders the driver connection string for config.
func BuildDSN(config Config) (string, error) {
	if config.DSN != "" {
		return config.DSN, nil
	}
	dialect, err := Lookup(config.Dialect)
	if err != nil {
		return "", err
	}

	if dialect.Name() == "snowflake" {
		return gosnowflake.DSN(&gosnowflake.Config{
			Account:      config.Account,
			User:         config.User,
			Password:     config.Password,
			Database:     config.Database,
			Schema:       config.Schema,
			Warehouse:    config.Warehouse,
			Role:         config.Role,
			LoginTimeout: config.Timeout,
		})
	}

	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(config.User, config.Password),
		Host:   net.JoinHostPort(config.Host, strconv.Itoa(config.Port)),
		Path:   "/" + config.Database,
	}
	q := url.Values{}
	if config.SSLMode != "" {
		q.Set("sslmode", config.SSLMode)
	}
	if config.Timeout > 0 {
		q.Set("connect_timeout", strconv.Itoa(int(config.Timeout.Seconds())))
	}
	if dialect.Name() == "redshift" {
		// Redshift does not support pgx's statement cache.
		q.Set("default_query_exec_mode", "simple_protocol")
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Connect opens the session and verifies it with a ping.
func (s *Service) Connect(ctx context.Context) error {
	if s.db != nil {
		return nil
	}
	if err := ValidateConfig(s.config); err != nil {
		return err
	}

	dsn, err := BuildDSN(s.config)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeConfigInvalid, "Failed to build connection string").
			WithContext("connection", s.config.Alias)
	}

	db, err := sql.Open(s.dialect.DriverName(), dsn)
	if err != nil {
		return apperrors.ConnectionError("Failed to open warehouse connection", err).
			WithContext("connection", s.config.Alias)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && (pgErr.Code == "28000" || pgErr.Code == "28P01") {
			return apperrors.Wrap(err, apperrors.ErrCodeAuthenticationFailed, "Warehouse authentication failed").
				WithContext("connection", s.config.Alias).
				WithContext("user", s.config.User).
				WithSuggestions("Check the password in the config, SPARKIFY_CONNECTIONS_<ALIAS>_PASSWORD or the keyring")
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return apperrors.Wrap(err, apperrors.ErrCodeConnectionTimeout, "Timed out connecting to warehouse").
				WithContext("connection", s.config.Alias)
		}
		return apperrors.ConnectionError("Failed to connect to warehouse", err).
			WithContext("connection", s.config.Alias).
			WithContext("host", s.config.Host)
	}

	s.db = db
	s.logger.InfoWithFields("connected to warehouse", map[string]interface{}{
		"dialect":  s.dialect.Name(),
		"database": s.config.Database,
	})
	return nil
}

// Close releases the session.
func (s *Service) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	if err != nil {
		return fmt.Errorf("failed to close connection: %w", err)
	}
	return nil
}

// Dialect returns the SQL dialect of this warehouse.
func (s *Service) Dialect() Dialect {
	return s.dialect
}

// Exec runs one statement and returns the rows it affected, or -1 when the
// driver does not report a count. The error is the raw driver error.
func (s *Service) Exec(ctx context.Context, query string, args ...interface{}) (int64, error) {
	if s.db == nil {
		return 0, apperrors.New(apperrors.ErrCodeConnectionFailed, "Not connected to warehouse").
			WithSuggestions("Call Connect() before executing SQL")
	}

	start := time.Now()
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		n = -1
	}
	s.logger.DebugWithFields("statement executed", map[string]interface{}{
		"query":       Redact(query),
		"rows":        n,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return n, nil
}

// Query runs a read-only statement. The caller closes the rows.
func (s *Service) Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	if s.db == nil {
		return nil, apperrors.New(apperrors.ErrCodeConnectionFailed, "Not connected to warehouse")
	}
	return s.db.QueryContext(ctx, query, args...)
}

// Count returns the number of rows in table.
func (s *Service) Count(ctx context.Context, table string) (int64, error) {
	if s.db == nil {
		return 0, apperrors.New(apperrors.ErrCodeConnectionFailed, "Not connected to warehouse")
	}
	name, err := Ident(table)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+name).Scan(&n); err != nil {
		return 0, Error(apperrors.ErrCodeSQLExecution, fmt.Sprintf("Failed to count rows in %s", table), "SELECT COUNT(*) FROM "+name, err)
	}
	return n, nil
}

// Error wraps a driver error as an AppError with the redacted statement and
// any SQLSTATE or Snowflake error number attached.
func Error(code apperrors.ErrorCode, message, query string, err error) *apperrors.AppError {
	appErr := apperrors.SQLError(code, message, Redact(query), err)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		appErr.WithContext("sqlstate", pgErr.Code)
		if pgErr.Code == "23505" {
			appErr.WithSuggestions("The target enforces primary keys; clear it or deduplicate the source rows")
		}
	}
	var sfErr *gosnowflake.SnowflakeError
	if errors.As(err, &sfErr) {
		appErr.WithContext("snowflake_error", sfErr.Number)
	}
	return appErr
}

package staging

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/Skylar-117/DEND-Nanodegree-Udacity/internal/observability"
	"github.com/Skylar-117/DEND-Nanodegree-Udacity/internal/warehouse"
	apperrors "github.com/Skylar-117/DEND-Nanodegree-Udacity/pkg/errors"
)

// ObjectLister is the S3 call used to verify a source before loading.
type ObjectLister interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Loader bulk-loads object-storage sources into staging tables.
type Loader struct {
	session warehouse.Session
	auth    Authorizer
	lister  ObjectLister
	logger  *observability.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithPreflight verifies every source prefix is non-empty before its COPY.
func WithPreflight(lister ObjectLister) Option {
	return func(l *Loader) {
		l.lister = lister
	}
}

// NewLoader creates a loader that issues COPY statements on session.
func NewLoader(session warehouse.Session, auth Authorizer, logger *observability.Logger, opts ...Option) *Loader {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	l := &Loader{
		session: session,
		auth:    auth,
		logger:  logger.WithField("component", "staging"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load replaces (or, with Clear unset, adds to) the contents of src.Table
// with one COPY from src.Location. It touches no other table and blocks
// until the warehouse reports completion.
func (l *Loader) Load(ctx context.Context, src Source) error {
	if err := src.Validate(); err != nil {
		return err
	}
	log := l.logger.WithFields(map[string]interface{}{
		"table":  src.Table,
		"source": src.Location,
	})

	stmt, err := CopyStatement(ctx, l.session.Dialect(), l.auth, src)
	if err != nil {
		return err
	}

	if l.lister != nil {
		if err := l.preflight(ctx, src); err != nil {
			return err
		}
	}

	if src.Clear {
		log.Info("clearing staging table")
		query := "DELETE FROM " + src.Table
		n, err := l.session.Exec(ctx, query)
		if err != nil {
			return warehouse.Error(apperrors.ErrCodeBulkLoad, fmt.Sprintf("Failed to clear %s", src.Table), query, err).
				WithContext("table", src.Table)
		}
		log.InfoWithFields("staging table cleared", map[string]interface{}{"rows": n})
	}

	log.InfoWithFields("copying into staging table", map[string]interface{}{
		"statement": warehouse.Redact(stmt),
	})
	start := time.Now()
	n, err := l.session.Exec(ctx, stmt)
	if err != nil {
		log.ErrorWithFields("copy failed", map[string]interface{}{"error": err})
		return warehouse.Error(apperrors.ErrCodeBulkLoad, fmt.Sprintf("Failed to load %s from %s", src.Table, src.Location), stmt, err).
			WithContext("table", src.Table).
			WithContext("source", src.Location)
	}
	log.InfoWithFields("staging table loaded", map[string]interface{}{
		"rows":        n,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return nil
}

// CopyStatement renders the bulk-load statement for src. With key auth the
// credentials are retrieved from auth, so the result must be redacted
// before it is shown.
func CopyStatement(ctx context.Context, d warehouse.Dialect, auth Authorizer, src Source) (string, error) {
	spec := warehouse.CopySpec{
		Table:     src.Table,
		Location:  src.Location,
		JSONPaths: src.JSONPaths,
		Region:    src.Region,
	}
	if err := auth.apply(ctx, src.Auth, &spec); err != nil {
		return "", err
	}
	return d.Copy(spec)
}

func (l *Loader) preflight(ctx context.Context, src Source) error {
	locations := []string{src.Location}
	if src.JSONPaths != "" {
		locations = append(locations, src.JSONPaths)
	}
	for _, uri := range locations {
		loc, err := ParseLocation(uri)
		if err != nil {
			return err
		}
		out, err := l.lister.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:  aws.String(loc.Bucket),
			Prefix:  aws.String(loc.Prefix),
			MaxKeys: aws.Int32(1),
		})
		if err != nil {
			return listError(src.Table, uri, err)
		}
		if len(out.Contents) == 0 {
			return apperrors.New(apperrors.ErrCodeBulkLoad, fmt.Sprintf("No objects found under %s", uri)).
				WithContext("table", src.Table).
				WithContext("source", uri)
		}
	}
	l.logger.DebugWithFields("preflight passed", map[string]interface{}{"table": src.Table})
	return nil
}

func listError(table, uri string, err error) error {
	var noBucket *types.NoSuchBucket
	if errors.As(err, &noBucket) {
		return apperrors.Wrap(err, apperrors.ErrCodeBulkLoad, fmt.Sprintf("Bucket for %s does not exist", uri)).
			WithContext("table", table).
			WithContext("source", uri)
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "accessdenied") || strings.Contains(msg, "forbidden") {
		return apperrors.AuthorizationError(fmt.Sprintf("Access denied listing %s", uri), err).
			WithContext("table", table).
			WithContext("source", uri)
	}
	return apperrors.Wrap(err, apperrors.ErrCodeBulkLoad, fmt.Sprintf("Failed to list %s", uri)).
		WithContext("table", table).
		WithContext("source", uri)
}

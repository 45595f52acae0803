package staging

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/Skylar-117/DEND-Nanodegree-Udacity/internal/warehouse"
	apperrors "github.com/Skylar-117/DEND-Nanodegree-Udacity/pkg/errors"
	"github.com/Skylar-117/DEND-Nanodegree-Udacity/pkg/models"
)

// AuthMethod selects how the warehouse authorizes against object storage.
type AuthMethod string

const (
	// AuthRole uses a role attached to the warehouse, referenced by ARN
	// (or a storage integration on Snowflake).
	AuthRole AuthMethod = "role"
	// AuthKeys passes an access-key pair retrieved when the load runs.
	AuthKeys AuthMethod = "keys"
)

// FormatJSON is the only supported document format.
const FormatJSON = "json"

// Source is one raw object-storage source loaded into one staging table.
type Source struct {
	Table     string
	Location  string
	Format    string
	JSONPaths string
	Auth      AuthMethod
	Region    string
	Clear     bool
}

// Location is a parsed s3:// URI.
type Location struct {
	Bucket string
	Prefix string
}

func (l Location) String() string {
	return "s3://" + l.Bucket + "/" + l.Prefix
}

// ParseLocation parses an s3://bucket/prefix URI.
func ParseLocation(uri string) (Location, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return Location{}, apperrors.ValidationError("location", uri, err.Error())
	}
	if u.Scheme != "s3" || u.Host == "" {
		return Location{}, apperrors.ValidationError("location", uri, "must be an s3://bucket/prefix URI")
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return Location{}, apperrors.ValidationError("location", uri, "query and fragment are not allowed")
	}
	return Location{Bucket: u.Host, Prefix: strings.TrimPrefix(u.Path, "/")}, nil
}

// SourceFromConfig builds a Source from a configured staging entry.
func SourceFromConfig(s models.StagingSource, aws models.AWS) Source {
	region := s.Region
	if region == "" {
		region = aws.Region
	}
	format := s.Format
	if format == "" {
		format = FormatJSON
	}
	auth := AuthMethod(s.Auth)
	if auth == "" {
		auth = AuthRole
	}
	return Source{
		Table:     s.Table,
		Location:  s.Source,
		Format:    format,
		JSONPaths: s.JSONPaths,
		Auth:      auth,
		Region:    region,
		Clear:     s.ShouldClear(),
	}
}

// Validate checks the source before any statement is issued.
func (s Source) Validate() error {
	if _, err := warehouse.Ident(s.Table); err != nil {
		return err
	}
	if _, err := ParseLocation(s.Location); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeValidationFailed, fmt.Sprintf("Invalid source for %s", s.Table)).
			WithContext("table", s.Table)
	}
	if s.JSONPaths != "" {
		if _, err := ParseLocation(s.JSONPaths); err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeValidationFailed, fmt.Sprintf("Invalid JSONPaths file for %s", s.Table)).
				WithContext("table", s.Table)
		}
	}
	if s.Format != "" && !strings.EqualFold(s.Format, FormatJSON) {
		return apperrors.ValidationError("format", s.Format, "only json is supported")
	}
	switch s.Auth {
	case AuthRole, AuthKeys:
	default:
		return apperrors.ValidationError("auth", string(s.Auth), "must be role or keys")
	}
	return nil
}

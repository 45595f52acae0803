package warehouse

import (
	"fmt"
	"regexp"
	"strings"

	apperrors "github.com/Skylar-117/DEND-Nanodegree-Udacity/pkg/errors"
)

var identPart = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*$`)

// Ident validates a possibly schema-qualified identifier and returns it
// unchanged. Identifiers are never quoted so the warehouse's case folding
// applies uniformly to DDL and DML.
func Ident(name string) (string, error) {
	if name == "" {
		return "", apperrors.ValidationError("identifier", name, "must not be empty")
	}
	parts := strings.Split(name, ".")
	if len(parts) > 2 {
		return "", apperrors.ValidationError("identifier", name, "at most schema.table is allowed")
	}
	for _, p := range parts {
		if len(p) > 127 || !identPart.MatchString(p) {
			return "", apperrors.ValidationError("identifier", name, fmt.Sprintf("%q is not a plain identifier", p))
		}
	}
	return name, nil
}

// Literal renders s as a single-quoted SQL string literal. It is used only
// where the warehouse accepts no bind parameters (COPY options).
func Literal(s string) (string, error) {
	// Backslash escaping differs between dialects, so it is rejected outright.
	if strings.ContainsAny(s, "\x00\n\r\\") {
		return "", apperrors.ValidationError("literal", "", "contains control characters or backslashes")
	}
	return "'" + strings.ReplaceAll(s, "'", "''") + "'", nil
}

var secretClauses = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(ACCESS_KEY_ID|SECRET_ACCESS_KEY|SESSION_TOKEN)(\s+)'(?:[^']|'')*'`),
	regexp.MustCompile(`(?i)(AWS_KEY_ID|AWS_SECRET_KEY|AWS_TOKEN)(\s*=\s*)'(?:[^']|'')*'`),
}

// Redact masks credential values in a statement so it can be logged.
func Redact(stmt string) string {
	for _, re := range secretClauses {
		stmt = re.ReplaceAllString(stmt, "${1}${2}'***'")
	}
	return stmt
}

package db

import "strings"

// IsUniqueViolation reports whether err carries a Postgres unique violation.
// With a constraintName it matches that constraint specifically; message
// matching keeps it working across both pgx and sqlite in tests.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if constraintName != "" {
		return strings.Contains(msg, constraintName)
	}
	return strings.Contains(msg, "duplicate key value")
}

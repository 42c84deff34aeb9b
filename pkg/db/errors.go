package db

import "strings"

// IsUniqueViolation reports whether the provided error is a unique constraint
// violation. When constraintName is provided it matches the named Postgres
// constraint; the generic markers cover both dialects the client can open,
// since SQLite names the columns rather than the index in its message.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if constraintName != "" && strings.Contains(msg, constraintName) {
		return true
	}
	return strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}

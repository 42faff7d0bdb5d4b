package repository

import (
	"strings"
)

// isUniqueViolation reports a unique constraint failure (works for both SQLite and PostgreSQL)
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "UNIQUE constraint failed") || strings.Contains(errStr, "duplicate key value")
}

// isForeignKeyViolation reports a foreign key failure (works for both SQLite and PostgreSQL)
func isForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "FOREIGN KEY constraint failed") || strings.Contains(errStr, "violates foreign key constraint")
}

package storage

import (
	"database/sql"
	"time"
)

// nullStringToPtr converts a sql.NullString to a pointer (nil if not valid)
func nullStringToPtr(n sql.NullString) *string {
	if n.Valid {
		return &n.String
	}
	return nil
}

// ptrToNullString converts a string pointer to a sql.NullString (invalid if nil)
func ptrToNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// nullStringValue converts a sql.NullString to a string (empty if not valid)
func nullStringValue(n sql.NullString) string {
	if n.Valid {
		return n.String
	}
	return ""
}

// nullFloatValue converts a sql.NullFloat64 to a float64 (zero if not valid)
func nullFloatValue(n sql.NullFloat64) float64 {
	if n.Valid {
		return n.Float64
	}
	return 0
}

// nullTimeValue converts a sql.NullTime to a UTC time (zero if not valid)
func nullTimeValue(n sql.NullTime) time.Time {
	if n.Valid {
		return n.Time.UTC()
	}
	return time.Time{}
}

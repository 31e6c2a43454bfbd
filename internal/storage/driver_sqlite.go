package storage

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// DriverSQLite is the pure Go SQLite driver and the default.
const DriverSQLite = "sqlite"

func init() {
	registerDriver(DriverSQLite, driver{
		sqlName:  "sqlite",
		dialect:  SQLite,
		dsn:      moderncDSN,
		classify: classifyModernc,
	})
}

// moderncDSN switches on foreign keys for every pooled connection. Sessions
// take the write lock up front so concurrent writers wait out busy_timeout.
// Times are written in the SQLite text format so range queries compare them.
func moderncDSN(opts Options) string {
	params := url.Values{}
	params.Add("_pragma", "foreign_keys(1)")
	params.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", opts.BusyTimeout.Milliseconds()))
	if !isMemoryPath(opts.Path) {
		params.Add("_pragma", "journal_mode(WAL)")
	}
	params.Set("_time_format", "sqlite")
	params.Set("_txlock", "immediate")
	return appendQuery(opts.Path, params)
}

func classifyModernc(err error) (ConstraintKind, bool) {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return ConstraintUnknown, false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return ConstraintUnique, true
	case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
		return ConstraintForeignKey, true
	}
	if se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT {
		return classifySQLiteMessage(se.Error())
	}
	return ConstraintUnknown, false
}

// classifySQLiteMessage covers connections without extended result codes.
func classifySQLiteMessage(msg string) (ConstraintKind, bool) {
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return ConstraintUnique, true
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return ConstraintForeignKey, true
	}
	return ConstraintUnknown, false
}

func isMemoryPath(path string) bool {
	return path == ":memory:" || strings.Contains(path, "mode=memory")
}

func appendQuery(path string, params url.Values) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + params.Encode()
}

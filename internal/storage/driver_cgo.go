//go:build cgo

package storage

import (
	"errors"
	"net/url"
	"strconv"

	"github.com/mattn/go-sqlite3"
)

// DriverSQLite3 is the cgo SQLite driver. It is only available in cgo builds.
const DriverSQLite3 = "sqlite3"

func init() {
	registerDriver(DriverSQLite3, driver{
		sqlName:  "sqlite3",
		dialect:  SQLite,
		dsn:      mattnDSN,
		classify: classifyMattn,
	})
}

func mattnDSN(opts Options) string {
	params := url.Values{}
	params.Set("_foreign_keys", "on")
	params.Set("_txlock", "immediate")
	params.Set("_busy_timeout", strconv.FormatInt(opts.BusyTimeout.Milliseconds(), 10))
	if !isMemoryPath(opts.Path) {
		params.Set("_journal_mode", "WAL")
	}
	return appendQuery(opts.Path, params)
}

func classifyMattn(err error) (ConstraintKind, bool) {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return ConstraintUnknown, false
	}
	switch se.ExtendedCode {
	case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
		return ConstraintUnique, true
	case sqlite3.ErrConstraintForeignKey:
		return ConstraintForeignKey, true
	}
	if se.Code == sqlite3.ErrConstraint {
		return classifySQLiteMessage(se.Error())
	}
	return ConstraintUnknown, false
}

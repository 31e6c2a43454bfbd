package storage

import (
	"sort"
	"strconv"
	"strings"
)

// Dialect is the SQL flavour spoken by a driver.
type Dialect int

const (
	SQLite Dialect = iota
	Postgres
)

func (d Dialect) String() string {
	switch d {
	case Postgres:
		return "postgres"
	default:
		return "sqlite"
	}
}

func (d Dialect) primaryKeyType() string {
	if d == Postgres {
		return "BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY"
	}
	return "INTEGER PRIMARY KEY AUTOINCREMENT"
}

func (d Dialect) columnType(t ColumnType) string {
	switch t {
	case Integer:
		if d == Postgres {
			return "BIGINT"
		}
		return "INTEGER"
	case Float:
		if d == Postgres {
			return "DOUBLE PRECISION"
		}
		return "REAL"
	case DateTime:
		if d == Postgres {
			return "TIMESTAMPTZ"
		}
		return "DATETIME"
	case Boolean:
		return "BOOLEAN"
	default:
		return "TEXT"
	}
}

// Rebind rewrites ? placeholders into the dialect's bind syntax.
// Queries in this package never contain a literal question mark.
func (d Dialect) Rebind(query string) string {
	if d != Postgres || !strings.Contains(query, "?") {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// driver binds a configuration name to a database/sql driver.
type driver struct {
	sqlName  string
	dialect  Dialect
	dsn      func(Options) string
	classify func(error) (ConstraintKind, bool)
}

var drivers = map[string]driver{}

func registerDriver(name string, d driver) {
	drivers[name] = d
}

func lookupDriver(name string) (driver, bool) {
	d, ok := drivers[name]
	return d, ok
}

// Drivers returns the names accepted by Options.Driver in this build.
func Drivers() []string {
	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

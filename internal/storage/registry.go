package storage

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ColumnType is the portable type of a column. Each dialect renders it.
type ColumnType int

const (
	Integer ColumnType = iota
	Text
	Float
	DateTime
	Boolean
)

func (t ColumnType) String() string {
	switch t {
	case Integer:
		return "integer"
	case Text:
		return "text"
	case Float:
		return "float"
	case DateTime:
		return "datetime"
	case Boolean:
		return "boolean"
	default:
		return fmt.Sprintf("ColumnType(%d)", int(t))
	}
}

// OnDelete is the action taken on referencing rows when the referenced row is deleted.
type OnDelete string

const (
	NoAction OnDelete = ""
	Cascade  OnDelete = "CASCADE"
	Restrict OnDelete = "RESTRICT"
	SetNull  OnDelete = "SET NULL"
)

// ForeignKey points a column at a column of another registered table.
type ForeignKey struct {
	Table    string
	Column   string
	OnDelete OnDelete
}

// Column describes one column of a table.
type Column struct {
	Name       string
	Type       ColumnType
	PrimaryKey bool // primary keys are auto-assigned integers
	NotNull    bool
	Unique     bool
	Index      bool
	// Default is a SQL expression understood by every dialect (TRUE, CURRENT_TIMESTAMP).
	Default    string
	References *ForeignKey
}

// Table describes an entity type and the table it is stored in.
type Table struct {
	Name    string
	Columns []Column
}

// Column returns the named column.
func (t Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Registry holds the set of entity tables known to an engine.
type Registry struct {
	mu     sync.RWMutex
	tables []Table
	byName map[string]int
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]int)}
}

// Register adds a table. Foreign keys may only point at tables registered earlier,
// so registration order is also creation order.
func (r *Registry) Register(t Table) error {
	if strings.TrimSpace(t.Name) == "" {
		return errors.New("table name is required")
	}
	if len(t.Columns) == 0 {
		return fmt.Errorf("table %s has no columns", t.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[t.Name]; exists {
		return fmt.Errorf("table %s is already registered", t.Name)
	}

	seen := make(map[string]bool, len(t.Columns))
	primaryKeys := 0
	for _, c := range t.Columns {
		if strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("table %s has a column without a name", t.Name)
		}
		if seen[c.Name] {
			return fmt.Errorf("table %s declares column %s twice", t.Name, c.Name)
		}
		seen[c.Name] = true

		if c.PrimaryKey {
			if c.Type != Integer {
				return fmt.Errorf("primary key %s.%s must be an integer", t.Name, c.Name)
			}
			primaryKeys++
		}

		if fk := c.References; fk != nil {
			idx, ok := r.byName[fk.Table]
			if !ok {
				return fmt.Errorf("column %s.%s references unregistered table %s", t.Name, c.Name, fk.Table)
			}
			if _, ok := r.tables[idx].Column(fk.Column); !ok {
				return fmt.Errorf("column %s.%s references unknown column %s.%s", t.Name, c.Name, fk.Table, fk.Column)
			}
		}
	}
	if primaryKeys != 1 {
		return fmt.Errorf("table %s must have exactly one primary key, got %d", t.Name, primaryKeys)
	}

	r.byName[t.Name] = len(r.tables)
	r.tables = append(r.tables, t)
	return nil
}

// MustRegister is like Register but panics on error. It is meant for
// building registries from static declarations.
func (r *Registry) MustRegister(tables ...Table) *Registry {
	for _, t := range tables {
		if err := r.Register(t); err != nil {
			panic(err)
		}
	}
	return r
}

// Table returns the registered table with the given name.
func (r *Registry) Table(name string) (Table, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx, ok := r.byName[name]
	if !ok {
		return Table{}, false
	}
	return r.tables[idx], true
}

// Tables returns the registered tables in registration order.
func (r *Registry) Tables() []Table {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Table, len(r.tables))
	copy(out, r.tables)
	return out
}

// Statements renders the DDL that creates every registered table and index
// if absent. Index names follow ix_<table>_<column>.
func (r *Registry) Statements(d Dialect) []string {
	var statements []string
	for _, t := range r.Tables() {
		statements = append(statements, createTable(d, t))
		for _, c := range t.Columns {
			if !c.Index {
				continue
			}
			kind := "INDEX"
			if c.Unique {
				kind = "UNIQUE INDEX"
			}
			statements = append(statements, fmt.Sprintf(
				"CREATE %s IF NOT EXISTS %s ON %s (%s)",
				kind, indexName(t.Name, c.Name), t.Name, c.Name,
			))
		}
	}
	return statements
}

func createTable(d Dialect, t Table) string {
	defs := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		defs = append(defs, columnDefinition(d, c))
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", t.Name, strings.Join(defs, ",\n\t"))
}

func columnDefinition(d Dialect, c Column) string {
	if c.PrimaryKey {
		return c.Name + " " + d.primaryKeyType()
	}

	var b strings.Builder
	b.WriteString(c.Name)
	b.WriteString(" ")
	b.WriteString(d.columnType(c.Type))
	if c.NotNull {
		b.WriteString(" NOT NULL")
	}
	// A unique index carries the constraint when the column is indexed.
	if c.Unique && !c.Index {
		b.WriteString(" UNIQUE")
	}
	if c.Default != "" {
		b.WriteString(" DEFAULT ")
		b.WriteString(c.Default)
	}
	if fk := c.References; fk != nil {
		fmt.Fprintf(&b, " REFERENCES %s(%s)", fk.Table, fk.Column)
		if fk.OnDelete != NoAction {
			b.WriteString(" ON DELETE ")
			b.WriteString(string(fk.OnDelete))
		}
	}
	return b.String()
}

func indexName(table, column string) string {
	return "ix_" + table + "_" + column
}

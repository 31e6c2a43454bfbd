package storage

// Table names of the expense tracker schema.
const (
	UsersTable    = "users"
	ExpensesTable = "expenses"
)

// UsersSchema declares user accounts. Email uniqueness is enforced by a
// unique index.
func UsersSchema() Table {
	return Table{
		Name: UsersTable,
		Columns: []Column{
			{Name: "id", Type: Integer, PrimaryKey: true, Index: true},
			{Name: "name", Type: Text, Index: true},
			{Name: "email", Type: Text, Unique: true, Index: true},
			{Name: "hashed_password", Type: Text},
			{Name: "is_active", Type: Boolean, Default: "TRUE"},
		},
	}
}

// ExpensesSchema declares expense entries. Deleting a user deletes the
// expenses it owns.
func ExpensesSchema() Table {
	return Table{
		Name: ExpensesTable,
		Columns: []Column{
			{Name: "id", Type: Integer, PrimaryKey: true, Index: true},
			{Name: "description", Type: Text, Index: true},
			{Name: "amount", Type: Float},
			{Name: "date", Type: DateTime, Default: "CURRENT_TIMESTAMP"},
			{Name: "category", Type: Text, NotNull: true, Index: true},
			{Name: "subcategory", Type: Text, Index: true},
			{
				Name:    "user_id",
				Type:    Integer,
				NotNull: true,
				Index:   true,
				References: &ForeignKey{
					Table:    UsersTable,
					Column:   "id",
					OnDelete: Cascade,
				},
			},
		},
	}
}

// DefaultRegistry returns a new registry holding the users and expenses tables.
func DefaultRegistry() *Registry {
	return NewRegistry().MustRegister(UsersSchema(), ExpensesSchema())
}

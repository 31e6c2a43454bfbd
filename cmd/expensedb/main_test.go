package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)
	err := run(context.Background(), args, bytes.NewBufferString(stdin), stdout, stderr)
	return stdout.String(), err
}

func testDB(t *testing.T) string {
	t.Helper()
	t.Setenv("DB_PATH", "")
	t.Setenv("DB_DRIVER", "")
	t.Setenv("LOG_FILE", "")
	return filepath.Join(t.TempDir(), "expenses.db")
}

func TestRun_Success(t *testing.T) {
	dbPath := testDB(t)

	output, err := execute(t, "", "adduser", "--name", "Test User", "--email", "test@example.com", "--password", "secret", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, output, "User test@example.com created successfully")
}

func TestRun_DuplicateUser(t *testing.T) {
	dbPath := testDB(t)
	args := []string{"adduser", "--email", "test@example.com", "--password", "secret", "--db", dbPath}

	_, err := execute(t, "", args...)
	require.NoError(t, err, "first run should succeed")

	_, err = execute(t, "", args...)
	require.Error(t, err, "expected error on duplicate user")
	assert.Contains(t, err.Error(), "already exists")
}

func TestRun_MissingEmailFlag(t *testing.T) {
	dbPath := testDB(t)

	output, err := execute(t, "", "adduser", "--password", "secret", "--db", dbPath)
	require.Error(t, err, "expected error for missing email flag")
	assert.Contains(t, err.Error(), "missing required flags: email")
	assert.Contains(t, output, "Usage:")
}

func TestRun_InteractivePassword(t *testing.T) {
	dbPath := testDB(t)

	output, err := execute(t, "interactive_secret\n", "adduser", "--email", "interactive@example.com", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, output, "Password: ")
	assert.Contains(t, output, "User interactive@example.com created successfully")
}

func TestRun_InteractivePassword_Empty(t *testing.T) {
	dbPath := testDB(t)

	_, err := execute(t, "\n", "adduser", "--email", "empty@example.com", "--db", dbPath)
	require.Error(t, err, "expected error for empty password")
	assert.Contains(t, err.Error(), "password cannot be empty")
}

func TestRun_EnvVarOverride(t *testing.T) {
	dbPath := testDB(t)
	t.Setenv("DB_PATH", dbPath)

	_, err := execute(t, "", "adduser", "--email", "env@example.com", "--password", "secret")
	require.NoError(t, err)
	assert.FileExists(t, dbPath)
}

func TestRun_FlagWinsOverEnv(t *testing.T) {
	dbPath := testDB(t)
	envPath := filepath.Join(t.TempDir(), "from-env.db")
	t.Setenv("DB_PATH", envPath)

	_, err := execute(t, "", "init", "--db", dbPath)
	require.NoError(t, err)
	assert.FileExists(t, dbPath)
	assert.NoFileExists(t, envPath)
}

func TestRun_InvalidDBPath(t *testing.T) {
	testDB(t)

	// A directory cannot be opened as a database file
	_, err := execute(t, "", "adduser", "--email", "fail@example.com", "--password", "secret", "--db", t.TempDir())
	require.Error(t, err, "expected error for invalid db path")
	assert.Contains(t, err.Error(), "failed to open database")
}

func TestRun_InvalidFlag(t *testing.T) {
	testDB(t)

	_, err := execute(t, "", "--invalid")
	require.Error(t, err, "expected error for invalid flag")
	assert.Contains(t, err.Error(), "unknown flag")
}

func TestRun_UnsupportedDriver(t *testing.T) {
	dbPath := testDB(t)

	_, err := execute(t, "", "init", "--driver", "oracle", "--db", dbPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `DB_DRIVER "oracle" is not supported`)
}

func TestRun_Init(t *testing.T) {
	dbPath := testDB(t)

	output, err := execute(t, "", "init", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, output, "tables: users, expenses")

	// Running it again is harmless
	_, err = execute(t, "", "init", "--db", dbPath)
	require.NoError(t, err)
}

func TestRun_ExpenseFlow(t *testing.T) {
	dbPath := testDB(t)

	_, err := execute(t, "", "adduser", "--name", "Ada", "--email", "ada@example.com", "--password", "secret", "--db", dbPath)
	require.NoError(t, err)

	output, err := execute(t, "", "addexpense", "--db", dbPath, "--email", "ada@example.com",
		"--amount", "12.5", "--description", "Lunch", "--category", "Food", "--subcategory", "Restaurants", "--date", "2024-03-10")
	require.NoError(t, err)
	assert.Contains(t, output, "12.50 Food on 2024-03-10")

	_, err = execute(t, "", "addexpense", "--db", dbPath, "--email", "ada@example.com",
		"--amount", "40", "--description", "Bus pass", "--category", "Transport", "--date", "2024-03-02")
	require.NoError(t, err)

	_, err = execute(t, "", "addexpense", "--db", dbPath, "--email", "ada@example.com",
		"--amount", "7.5", "--description", "Coffee beans", "--category", "Food", "--date", "2024-04-01")
	require.NoError(t, err)

	output, err = execute(t, "", "expenses", "--db", dbPath, "--email", "ada@example.com")
	require.NoError(t, err)
	assert.Contains(t, output, "Lunch")
	assert.Contains(t, output, "Restaurants")
	assert.Contains(t, output, "Coffee beans")
	assert.Less(t, bytes.Index([]byte(output), []byte("Coffee beans")), bytes.Index([]byte(output), []byte("Lunch")),
		"latest expense is listed first")

	output, err = execute(t, "", "expenses", "--db", dbPath, "--email", "ada@example.com", "--month", "2024-03")
	require.NoError(t, err)
	assert.Contains(t, output, "Lunch")
	assert.NotContains(t, output, "Coffee beans")

	output, err = execute(t, "", "summary", "--db", dbPath, "--email", "ada@example.com", "--month", "2024-03")
	require.NoError(t, err)
	assert.Contains(t, output, "Spending for ada@example.com in 2024-03")
	assert.Regexp(t, `Transport\s+1\s+40.00`, output)
	assert.Regexp(t, `Food\s+1\s+12.50`, output)
	assert.Regexp(t, `Total\s+52.50`, output)

	output, err = execute(t, "", "deleteuser", "--db", dbPath, "--email", "ada@example.com")
	require.NoError(t, err)
	assert.Contains(t, output, "User ada@example.com deleted (3 expenses removed)")

	_, err = execute(t, "", "expenses", "--db", dbPath, "--email", "ada@example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user ada@example.com not found")
}

func TestRun_AddExpenseValidation(t *testing.T) {
	dbPath := testDB(t)

	output, err := execute(t, "", "addexpense", "--db", dbPath, "--amount", "3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required flags: email, category")
	assert.Contains(t, output, "Usage:")

	_, err = execute(t, "", "addexpense", "--db", dbPath, "--email", "ghost@example.com", "--category", "Food")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user ghost@example.com not found")

	_, err = execute(t, "", "addexpense", "--db", dbPath, "--email", "ghost@example.com", "--category", "Food", "--date", "yesterday")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid date "yesterday"`)
}

func TestRun_EmptyListing(t *testing.T) {
	dbPath := testDB(t)

	_, err := execute(t, "", "adduser", "--email", "new@example.com", "--password", "secret", "--db", dbPath)
	require.NoError(t, err)

	output, err := execute(t, "", "expenses", "--db", dbPath, "--email", "new@example.com")
	require.NoError(t, err)
	assert.Contains(t, output, "No expenses for new@example.com")
}

func TestRun_Version(t *testing.T) {
	testDB(t)

	output, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, output, "expensedb dev")
}

func TestParseDate(t *testing.T) {
	d, err := parseDate("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), d)

	d, err = parseDate("2024-02-29T10:30:00+02:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 29, 8, 30, 0, 0, time.UTC), d.UTC())

	_, err = parseDate("29/02/2024")
	assert.Error(t, err)
}

func TestMonthRange(t *testing.T) {
	from, to, err := monthRange("2024-12")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), to)

	_, _, err = monthRange("December")
	assert.Error(t, err)
}

package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"expense-tracker/internal/models"
)

const expenseColumns = "id, description, amount, date, category, subcategory, user_id"

// CreateExpense inserts a new expense. A zero Date is stored as the current
// UTC time. The owning user must exist; otherwise the error matches
// ErrForeignKeyViolation.
func (s *Session) CreateExpense(ctx context.Context, ne models.NewExpense) (*models.Expense, error) {
	date := ne.Date
	if date.IsZero() {
		date = time.Now()
	}
	date = date.UTC()

	id, err := s.insert(ctx,
		`INSERT INTO expenses (description, amount, date, category, subcategory, user_id)
		VALUES (?, ?, ?, ?, ?, ?)`,
		ne.Description, ne.Amount, date, ne.Category, ptrToNullString(ne.Subcategory), ne.UserID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create expense: %w", s.driver.constraintError(ExpensesTable, err))
	}

	return &models.Expense{
		ID:          id,
		Description: ne.Description,
		Amount:      ne.Amount,
		Date:        date,
		Category:    ne.Category,
		Subcategory: ne.Subcategory,
		UserID:      ne.UserID,
	}, nil
}

// GetExpense retrieves a single expense by ID.
func (s *Session) GetExpense(ctx context.Context, id int64) (*models.Expense, error) {
	var r expenseRow
	err := s.queryRow(ctx, r.dest(), "SELECT "+expenseColumns+" FROM expenses WHERE id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("failed to get expense %d: %w", id, notFound(err))
	}
	e := r.expense()
	return &e, nil
}

// UpdateExpense writes every field of e to the row with e.ID. Moving an
// expense to a user that does not exist matches ErrForeignKeyViolation.
func (s *Session) UpdateExpense(ctx context.Context, e *models.Expense) error {
	result, err := s.exec(ctx,
		`UPDATE expenses SET description = ?, amount = ?, date = ?, category = ?, subcategory = ?, user_id = ?
		WHERE id = ?`,
		e.Description, e.Amount, e.Date.UTC(), e.Category, ptrToNullString(e.Subcategory), e.UserID, e.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update expense %d: %w", e.ID, s.driver.constraintError(ExpensesTable, err))
	}
	if err := affected(result); err != nil {
		return fmt.Errorf("failed to update expense %d: %w", e.ID, err)
	}
	return nil
}

// DeleteExpense removes an expense by ID.
func (s *Session) DeleteExpense(ctx context.Context, id int64) error {
	result, err := s.exec(ctx, "DELETE FROM expenses WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete expense %d: %w", id, err)
	}
	if err := affected(result); err != nil {
		return fmt.Errorf("failed to delete expense %d: %w", id, err)
	}
	return nil
}

// ListExpensesByUser returns every expense owned by a user, latest first.
// A user without expenses yields an empty slice.
func (s *Session) ListExpensesByUser(ctx context.Context, userID int64) ([]models.Expense, error) {
	expenses, err := s.listExpenses(ctx,
		"SELECT "+expenseColumns+" FROM expenses WHERE user_id = ? ORDER BY date DESC, id DESC",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses for user %d: %w", userID, err)
	}
	return expenses, nil
}

// ListExpensesBetween returns a user's expenses dated in [from, to), latest first.
func (s *Session) ListExpensesBetween(ctx context.Context, userID int64, from, to time.Time) ([]models.Expense, error) {
	expenses, err := s.listExpenses(ctx,
		"SELECT "+expenseColumns+` FROM expenses
		WHERE user_id = ? AND date >= ? AND date < ?
		ORDER BY date DESC, id DESC`,
		userID, from.UTC(), to.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses for user %d: %w", userID, err)
	}
	return expenses, nil
}

// ExpenseOwner returns the user that owns an expense.
func (s *Session) ExpenseOwner(ctx context.Context, expenseID int64) (*models.User, error) {
	u, err := s.scanUser(ctx, `
		SELECT u.id, u.name, u.email, u.hashed_password, u.is_active
		FROM expenses e
		JOIN users u ON e.user_id = u.id
		WHERE e.id = ?`, expenseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get owner of expense %d: %w", expenseID, err)
	}
	return u, nil
}

// CategoryTotals sums a user's expenses dated in [from, to) per category,
// largest total first.
func (s *Session) CategoryTotals(ctx context.Context, userID int64, from, to time.Time) ([]models.CategoryTotal, error) {
	rows, cancel, err := s.query(ctx, `
		SELECT category, COALESCE(SUM(amount), 0), COUNT(*)
		FROM expenses
		WHERE user_id = ? AND date >= ? AND date < ?
		GROUP BY category
		ORDER BY 2 DESC, category`,
		userID, from.UTC(), to.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to total categories for user %d: %w", userID, err)
	}
	defer cancel()
	defer rows.Close()

	totals := []models.CategoryTotal{}
	for rows.Next() {
		var ct models.CategoryTotal
		if err := rows.Scan(&ct.Category, &ct.Total, &ct.Count); err != nil {
			return nil, fmt.Errorf("failed to scan category total: %w", err)
		}
		totals = append(totals, ct)
	}
	return totals, rows.Err()
}

func (s *Session) listExpenses(ctx context.Context, query string, args ...any) ([]models.Expense, error) {
	rows, cancel, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer cancel()
	defer rows.Close()

	expenses := []models.Expense{}
	for rows.Next() {
		var r expenseRow
		if err := rows.Scan(r.dest()...); err != nil {
			return nil, err
		}
		expenses = append(expenses, r.expense())
	}
	return expenses, rows.Err()
}

// expenseRow receives an expenses row; description, amount, date and
// subcategory are nullable columns.
type expenseRow struct {
	id          int64
	description sql.NullString
	amount      sql.NullFloat64
	date        sql.NullTime
	category    string
	subcategory sql.NullString
	userID      int64
}

func (r *expenseRow) dest() []any {
	return []any{&r.id, &r.description, &r.amount, &r.date, &r.category, &r.subcategory, &r.userID}
}

func (r *expenseRow) expense() models.Expense {
	return models.Expense{
		ID:          r.id,
		Description: nullStringValue(r.description),
		Amount:      nullFloatValue(r.amount),
		Date:        nullTimeValue(r.date),
		Category:    r.category,
		Subcategory: nullStringToPtr(r.subcategory),
		UserID:      r.userID,
	}
}

package storage

import (
	"context"
	"database/sql"
	"fmt"

	"expense-tracker/internal/models"
)

const userColumns = "id, name, email, hashed_password, is_active"

// CreateUser inserts a new user. IsActive defaults to true when omitted.
// A duplicate email fails with an error matching ErrUniqueViolation.
func (s *Session) CreateUser(ctx context.Context, nu models.NewUser) (*models.User, error) {
	active := true
	if nu.IsActive != nil {
		active = *nu.IsActive
	}

	id, err := s.insert(ctx,
		"INSERT INTO users (name, email, hashed_password, is_active) VALUES (?, ?, ?, ?)",
		nu.Name, nu.Email, nu.HashedPassword, active,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", s.driver.constraintError(UsersTable, err))
	}

	return &models.User{
		ID:             id,
		Name:           nu.Name,
		Email:          nu.Email,
		HashedPassword: nu.HashedPassword,
		IsActive:       active,
	}, nil
}

// GetUser retrieves a user by ID.
func (s *Session) GetUser(ctx context.Context, id int64) (*models.User, error) {
	u, err := s.scanUser(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user %d: %w", id, err)
	}
	return u, nil
}

// GetUserByEmail retrieves a user by email.
func (s *Session) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := s.scanUser(ctx, "SELECT "+userColumns+" FROM users WHERE email = ?", email)
	if err != nil {
		return nil, fmt.Errorf("failed to get user %s: %w", email, err)
	}
	return u, nil
}

// ListUsers returns users ordered by ID. A non-positive limit means 100.
func (s *Session) ListUsers(ctx context.Context, limit, offset int) ([]models.User, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	rows, cancel, err := s.query(ctx, "SELECT "+userColumns+" FROM users ORDER BY id LIMIT ? OFFSET ?", limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer cancel()
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var r userRow
		if err := rows.Scan(r.dest()...); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, r.user())
	}
	return users, rows.Err()
}

// UpdateUser writes every field of u to the row with u.ID.
func (s *Session) UpdateUser(ctx context.Context, u *models.User) error {
	result, err := s.exec(ctx,
		"UPDATE users SET name = ?, email = ?, hashed_password = ?, is_active = ? WHERE id = ?",
		u.Name, u.Email, u.HashedPassword, u.IsActive, u.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update user %d: %w", u.ID, s.driver.constraintError(UsersTable, err))
	}
	if err := affected(result); err != nil {
		return fmt.Errorf("failed to update user %d: %w", u.ID, err)
	}
	return nil
}

// DeleteUser removes a user. The expenses it owns are removed with it.
func (s *Session) DeleteUser(ctx context.Context, id int64) error {
	result, err := s.exec(ctx, "DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete user %d: %w", id, s.driver.constraintError(UsersTable, err))
	}
	if err := affected(result); err != nil {
		return fmt.Errorf("failed to delete user %d: %w", id, err)
	}
	return nil
}

// UserCount returns the number of users in the database.
func (s *Session) UserCount(ctx context.Context) (int, error) {
	var count int
	if err := s.queryRow(ctx, []any{&count}, "SELECT COUNT(*) FROM users"); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}

func (s *Session) scanUser(ctx context.Context, query string, args ...any) (*models.User, error) {
	var r userRow
	if err := s.queryRow(ctx, r.dest(), query, args...); err != nil {
		return nil, notFound(err)
	}
	u := r.user()
	return &u, nil
}

// userRow receives a users row. Only id is declared NOT NULL.
type userRow struct {
	id             int64
	name           sql.NullString
	email          sql.NullString
	hashedPassword sql.NullString
	isActive       sql.NullBool
}

func (r *userRow) dest() []any {
	return []any{&r.id, &r.name, &r.email, &r.hashedPassword, &r.isActive}
}

func (r *userRow) user() models.User {
	return models.User{
		ID:             r.id,
		Name:           nullStringValue(r.name),
		Email:          nullStringValue(r.email),
		HashedPassword: nullStringValue(r.hashedPassword),
		IsActive:       r.isActive.Valid && r.isActive.Bool,
	}
}

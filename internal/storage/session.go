package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Session is a unit of work bound to one transaction. Writes become visible
// only after Commit. A Session must not be shared between goroutines.
type Session struct {
	id           string
	tx           *sql.Tx
	driver       driver
	queryTimeout time.Duration
	done         bool
}

func newSession(tx *sql.Tx, drv driver, queryTimeout time.Duration) *Session {
	return &Session{
		id:           uuid.NewString(),
		tx:           tx,
		driver:       drv,
		queryTimeout: queryTimeout,
	}
}

// ID identifies the session in log output.
func (s *Session) ID() string {
	return s.id
}

// Commit makes the session's writes durable and ends the session.
func (s *Session) Commit() error {
	if s.done {
		return sql.ErrTxDone
	}
	s.done = true
	if err := s.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit session: %w", err)
	}
	log.Trace().Str("session", s.id).Msg("Session committed")
	return nil
}

// Rollback discards the session's writes and ends the session.
func (s *Session) Rollback() error {
	if s.done {
		return sql.ErrTxDone
	}
	s.done = true
	if err := s.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("failed to roll back session: %w", err)
	}
	log.Trace().Str("session", s.id).Msg("Session rolled back")
	return nil
}

// Close releases the session. An uncommitted session is rolled back; after
// Commit or Rollback it does nothing, so it is safe to defer.
func (s *Session) Close() error {
	if s.done {
		return nil
	}
	if err := s.Rollback(); err != nil {
		log.Error().Err(err).Str("session", s.id).Msg("Failed to rollback session")
		return err
	}
	return nil
}

func (s *Session) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()
	return s.tx.ExecContext(ctx, s.driver.dialect.Rebind(query), args...)
}

// query returns the rows together with the cancel func of their context;
// the caller calls it after closing the rows.
func (s *Session) query(ctx context.Context, query string, args ...any) (*sql.Rows, context.CancelFunc, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	rows, err := s.tx.QueryContext(ctx, s.driver.dialect.Rebind(query), args...)
	if err != nil {
		cancel()
		return nil, nil, err
	}
	return rows, cancel, nil
}

// queryRow runs a single-row query and scans it into dest.
func (s *Session) queryRow(ctx context.Context, dest []any, query string, args ...any) error {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()
	return s.tx.QueryRowContext(ctx, s.driver.dialect.Rebind(query), args...).Scan(dest...)
}

// insert runs an INSERT and returns the generated id. pgx does not report
// LastInsertId, so postgres reads it back with RETURNING.
func (s *Session) insert(ctx context.Context, query string, args ...any) (int64, error) {
	if s.driver.dialect == Postgres {
		var id int64
		err := s.queryRow(ctx, []any{&id}, query+" RETURNING id", args...)
		return id, err
	}
	result, err := s.exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// affected turns a zero row count into ErrNotFound.
func affected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

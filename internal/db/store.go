package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/neboloop/turbo/internal/types"
)

// Store wraps the database handle with the queries the app needs.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying handle.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Close() error { return s.db.Close() }

// CountUsers returns the number of stored users.
func (s *Store) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

// InsertUsers stores users in one transaction.
func (s *Store) InsertUsers(ctx context.Context, users []types.User) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO users
		(id, name, email, department, country, salary, status, hire_date, performance)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, u := range users {
		if _, err := stmt.ExecContext(ctx, u.ID, u.Name, u.Email, u.Department, u.Country,
			u.Salary, u.Status, u.HireDate, u.Performance); err != nil {
			return fmt.Errorf("insert user %d: %w", u.ID, err)
		}
	}
	return tx.Commit()
}

// ListUsers returns users ordered by id. A negative limit returns all rows.
func (s *Store) ListUsers(ctx context.Context, offset, limit int) ([]types.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, email, department, country,
		salary, status, hire_date, performance
		FROM users ORDER BY id LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := []types.User{}
	for rows.Next() {
		var u types.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Department, &u.Country,
			&u.Salary, &u.Status, &u.HireDate, &u.Performance); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

package db

import (
	"context"
	"database/sql"
	"fmt"
)

// ErrorLog is one row of error_logs.
type ErrorLog struct {
	ID         int64
	Level      string // panic, error, warn
	Module     string
	Message    string
	Stacktrace string
	Context    string // JSON object, or ""
	CreatedAt  string
}

// InsertErrorLog appends an entry.
func (s *Store) InsertErrorLog(ctx context.Context, e ErrorLog) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO error_logs
		(level, module, message, stacktrace, context) VALUES (?, ?, ?, ?, ?)`,
		e.Level, e.Module, e.Message, nullString(e.Stacktrace), nullString(e.Context))
	if err != nil {
		return fmt.Errorf("insert error log: %w", err)
	}
	return nil
}

// RecentErrorLogs returns up to limit entries, newest first.
func (s *Store) RecentErrorLogs(ctx context.Context, limit int) ([]ErrorLog, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, level, module, message,
		COALESCE(stacktrace, ''), COALESCE(context, ''), created_at
		FROM error_logs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list error logs: %w", err)
	}
	defer rows.Close()

	var logs []ErrorLog
	for rows.Next() {
		var e ErrorLog
		if err := rows.Scan(&e.ID, &e.Level, &e.Module, &e.Message, &e.Stacktrace, &e.Context, &e.CreatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, e)
	}
	return logs, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

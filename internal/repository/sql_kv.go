package repository

import (
	"context"
	"database/sql"
	"errors"
)

// SQLKV persists entries in the `session_entries` table (MySQL dialect):
//
//	CREATE TABLE session_entries (
//	  name       VARCHAR(64) PRIMARY KEY,
//	  value      TEXT NOT NULL,
//	  updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
//	)
type SQLKV struct{ DB *sql.DB }

func NewSQLKV(db *sql.DB) *SQLKV { return &SQLKV{DB: db} }

func (s *SQLKV) Get(ctx context.Context, key string) (string, error) {
	var v string
	err := s.DB.QueryRowContext(ctx,
		"SELECT value FROM session_entries WHERE name=? LIMIT 1", key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return v, err
}

func (s *SQLKV) Set(ctx context.Context, key, value string) error {
	_, err := s.DB.ExecContext(ctx,
		"INSERT INTO session_entries (name, value) VALUES (?,?) ON DUPLICATE KEY UPDATE value=VALUES(value)",
		key, value)
	return err
}

func (s *SQLKV) Delete(ctx context.Context, key string) error {
	_, err := s.DB.ExecContext(ctx, "DELETE FROM session_entries WHERE name=?", key)
	return err
}

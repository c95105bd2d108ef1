// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package dberr provides a bridge between low-level database errors and
// higher-level application errors.
package dberr

import (
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when a queried row doesn't exist.
	ErrNotFound = errors.New("dberr: row not found")

	// ErrSchemaMissing is returned when the console tables were never migrated.
	ErrSchemaMissing = errors.New("dberr: schema missing, run migrations")
)

// Wrap classifies a database error, tagging it with the failed action.
// Missing rows collapse to [ErrNotFound] so callers can branch with errors.Is.
func Wrap(err error, action string) error {
	if err == nil {
		return nil
	}

	// 1. Not Found mapping
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}

	// 2. SQLSTATE classes the caller can act on
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UndefinedTable, pgerrcode.InvalidSchemaName:
			return &Error{Action: action, Err: errors.Join(ErrSchemaMissing, err)}
		}
	}

	// 3. Everything else keeps its cause for the caller's logs
	return &Error{Action: action, Err: err}
}

// Error is a database failure annotated with the action that triggered it.
type Error struct {
	Action string
	Err    error
}

// Error implements the error interface.
func (e *Error) Error() string { return "postgres_" + e.Action + "_failed: " + e.Err.Error() }

// Unwrap exposes the driver error.
func (e *Error) Unwrap() error { return e.Err }

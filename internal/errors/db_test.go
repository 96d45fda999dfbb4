package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestMapDBError_NilError(t *testing.T) {
	if err := MapDBError(nil); err != nil {
		t.Errorf("MapDBError(nil) = %v, want nil", err)
	}
}

func TestMapDBError_ContextErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode ErrorCode
	}{
		{name: "deadline exceeded", err: context.DeadlineExceeded, wantCode: ErrCodeTimeout},
		{name: "canceled", err: context.Canceled, wantCode: ErrCodeCanceled},
		{name: "wrapped deadline", err: fmt.Errorf("query: %w", context.DeadlineExceeded), wantCode: ErrCodeTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := MapDBError(tt.err)
			if got := GetCode(err); got != tt.wantCode {
				t.Errorf("MapDBError() code = %v, want %v", got, tt.wantCode)
			}
		})
	}
}

func TestMapDBError_NoRows(t *testing.T) {
	err := MapDBError(pgx.ErrNoRows)
	if !IsNotFound(err) {
		t.Errorf("MapDBError(ErrNoRows) code = %v, want %v", GetCode(err), ErrCodeNotFound)
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		t.Error("MapDBError(ErrNoRows) should preserve the cause")
	}
}

func TestMapDBError_PgErrors(t *testing.T) {
	tests := []struct {
		name     string
		pgErr    *pgconn.PgError
		wantCode ErrorCode
	}{
		{
			name:     "not null",
			pgErr:    &pgconn.PgError{Code: pgerrcode.NotNullViolation, ColumnName: "value"},
			wantCode: ErrCodeValidation,
		},
		{
			name:     "check",
			pgErr:    &pgconn.PgError{Code: pgerrcode.CheckViolation},
			wantCode: ErrCodeValidation,
		},
		{
			name:     "undefined table",
			pgErr:    &pgconn.PgError{Code: pgerrcode.UndefinedTable},
			wantCode: ErrCodeUnavailable,
		},
		{
			name:     "connection failure",
			pgErr:    &pgconn.PgError{Code: pgerrcode.ConnectionFailure},
			wantCode: ErrCodeUnavailable,
		},
		{
			name:     "too many connections",
			pgErr:    &pgconn.PgError{Code: pgerrcode.TooManyConnections},
			wantCode: ErrCodeUnavailable,
		},
		{
			name:     "query canceled",
			pgErr:    &pgconn.PgError{Code: pgerrcode.QueryCanceled},
			wantCode: ErrCodeTimeout,
		},
		{
			name:     "unknown",
			pgErr:    &pgconn.PgError{Code: pgerrcode.DivisionByZero},
			wantCode: ErrCodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := MapDBError(fmt.Errorf("exec: %w", tt.pgErr))
			if got := GetCode(err); got != tt.wantCode {
				t.Errorf("MapDBError() code = %v, want %v", got, tt.wantCode)
			}
			var pgErr *pgconn.PgError
			if !errors.As(err, &pgErr) {
				t.Error("MapDBError() should keep the PgError as cause")
			}
		})
	}
}

func TestMapDBError_StandardError(t *testing.T) {
	original := errors.New("boom")
	if err := MapDBError(original); !errors.Is(err, original) || GetCode(err) != "" {
		t.Errorf("MapDBError() = %v, want original error", err)
	}
}

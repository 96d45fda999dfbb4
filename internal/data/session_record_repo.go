package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/akmalstorm/stdcalumni/internal/errors"
	"github.com/akmalstorm/stdcalumni/internal/data/pgxutil"
	"github.com/akmalstorm/stdcalumni/internal/ports"
	"github.com/jackc/pgx/v5"
)

var _ ports.RecordStore = (*SessionRecordRepo)(nil)

// ErrScopeRequired is returned when a record operation has no visitor scope.
var ErrScopeRequired = errors.New("record scope is required")

const (
	selectRecordsQuery = `
		SELECT key, value
		FROM session_records
		WHERE scope = $1 AND (expires_at IS NULL OR expires_at > now())`

	upsertRecordQuery = `
		INSERT INTO session_records (scope, key, value, updated_at, expires_at)
		VALUES ($1, $2, $3, now(), $4)
		ON CONFLICT (scope, key)
		DO UPDATE SET value = EXCLUDED.value, updated_at = now(), expires_at = EXCLUDED.expires_at`

	touchScopeQuery = `UPDATE session_records SET expires_at = $2 WHERE scope = $1`

	deleteRecordsQuery = `DELETE FROM session_records WHERE scope = $1 AND key = ANY($2)`

	purgeExpiredQuery = `DELETE FROM session_records WHERE expires_at IS NOT NULL AND expires_at <= now()`
)

// SessionRecordRepo stores visitor session records in Postgres, one row per key.
type SessionRecordRepo struct {
	DB *sql.DB
	// TTL is refreshed for the whole scope on every write. Zero disables expiry.
	TTL time.Duration

	now func() time.Time
}

// NewSessionRecordRepo creates a new SessionRecordRepo.
func NewSessionRecordRepo(db *sql.DB, ttl time.Duration) *SessionRecordRepo {
	return &SessionRecordRepo{DB: db, TTL: ttl, now: time.Now}
}

type recordRow struct {
	Key   string
	Value string
}

// Load returns every unexpired field stored under scope.
func (r *SessionRecordRepo) Load(ctx context.Context, scope string) (map[string]string, error) {
	if scope == "" {
		return nil, ErrScopeRequired
	}

	var rows []recordRow
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		res, err := conn.Query(ctx, selectRecordsQuery, scope)
		if err != nil {
			return err
		}
		rows, err = pgx.CollectRows(res, func(row pgx.CollectableRow) (recordRow, error) {
			var rec recordRow
			scanErr := row.Scan(&rec.Key, &rec.Value)
			return rec, scanErr
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("load session records: %w", apperrors.MapDBError(err))
	}

	fields := make(map[string]string, len(rows))
	for _, row := range rows {
		fields[row.Key] = row.Value
	}
	return fields, nil
}

// Store upserts fields and refreshes the scope's expiry in one transaction.
func (r *SessionRecordRepo) Store(ctx context.Context, scope string, fields map[string]string) error {
	if scope == "" {
		return ErrScopeRequired
	}
	if len(fields) == 0 {
		return nil
	}

	expiresAt := r.expiry()
	err := pgxutil.WithPgxTx(ctx, r.DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for k, v := range fields {
			batch.Queue(upsertRecordQuery, scope, k, v, expiresAt)
		}
		batch.Queue(touchScopeQuery, scope, expiresAt)

		results := tx.SendBatch(ctx, batch)
		for range batch.Len() {
			if _, execErr := results.Exec(); execErr != nil {
				closeErr := results.Close()
				return errors.Join(execErr, closeErr)
			}
		}
		return results.Close()
	})
	if err != nil {
		return fmt.Errorf("store session records: %w", apperrors.MapDBError(err))
	}
	return nil
}

// Remove deletes keys under scope with a single statement.
func (r *SessionRecordRepo) Remove(ctx context.Context, scope string, keys ...string) error {
	if scope == "" {
		return ErrScopeRequired
	}
	if len(keys) == 0 {
		return nil
	}
	if _, err := r.DB.ExecContext(ctx, deleteRecordsQuery, scope, keys); err != nil {
		return fmt.Errorf("remove session records: %w", apperrors.MapDBError(err))
	}
	return nil
}

// PurgeExpired deletes expired rows and returns how many were removed.
func (r *SessionRecordRepo) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := r.DB.ExecContext(ctx, purgeExpiredQuery)
	if err != nil {
		return 0, fmt.Errorf("purge expired session records: %w", apperrors.MapDBError(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge expired session records: %w", err)
	}
	return n, nil
}

func (r *SessionRecordRepo) expiry() *time.Time {
	if r.TTL <= 0 {
		return nil
	}
	now := time.Now
	if r.now != nil {
		now = r.now
	}
	t := now().Add(r.TTL).UTC()
	return &t
}

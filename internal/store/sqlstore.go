package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/nemeth06/settlement-worker/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS intents (
	id          TEXT PRIMARY KEY,
	status      TEXT NOT NULL,
	hash        TEXT UNIQUE,
	to_address  TEXT NOT NULL,
	value       TEXT NOT NULL,
	calldata    TEXT NOT NULL,
	gas_limit   TEXT NOT NULL,
	retry_count INTEGER NOT NULL DEFAULT 0,
	last_error  TEXT,
	created_at  DATETIME NOT NULL,
	updated_at  DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_intents_status_updated ON intents(status, updated_at);
CREATE INDEX IF NOT EXISTS idx_intents_hash ON intents(hash);
CREATE INDEX IF NOT EXISTS idx_intents_retry_count ON intents(retry_count);

CREATE TABLE IF NOT EXISTS dlq_entries (
	id            TEXT PRIMARY KEY,
	intent_id     TEXT NOT NULL,
	reason        TEXT NOT NULL,
	error_details TEXT,
	enqueued_at   DATETIME NOT NULL
);
`

// SQLStore is a database/sql-backed Store; Open always uses the
// modernc.org/sqlite driver.
type SQLStore struct {
	db *sql.DB
}

// Open opens (and migrates) a SQLite-backed store at dataSourceName.
func Open(dataSourceName string) (*SQLStore, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, storeErr("open", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, storeErr("migrate", err)
	}
	return &SQLStore{db: db}, nil
}

// Close releases the underlying DB pool.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func scanIntent(row interface {
	Scan(dest ...any) error
}) (model.Intent, error) {
	var in model.Intent
	var hash sql.NullString
	var lastErr sql.NullString
	err := row.Scan(&in.ID, &in.Status, &hash, &in.To, &in.Value, &in.Calldata, &in.GasLimit,
		&in.RetryCount, &lastErr, &in.CreatedAt, &in.UpdatedAt)
	if err != nil {
		return model.Intent{}, err
	}
	in.Hash = hash.String
	in.LastError = lastErr.String
	return in, nil
}

const selectCols = `id, status, hash, to_address, value, calldata, gas_limit, retry_count, last_error, created_at, updated_at`

func (s *SQLStore) GetPending(ctx context.Context) ([]model.Intent, error) {
	return s.queryByStatus(ctx, model.StatusPending)
}

func (s *SQLStore) GetByStatus(ctx context.Context, status model.Status) ([]model.Intent, error) {
	return s.queryByStatus(ctx, status)
}

func (s *SQLStore) queryByStatus(ctx context.Context, status model.Status) ([]model.Intent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+selectCols+` FROM intents WHERE status = ? ORDER BY created_at ASC`, string(status))
	if err != nil {
		return nil, storeErr("getByStatus", err)
	}
	defer rows.Close()

	var result []model.Intent
	for rows.Next() {
		in, err := scanIntent(rows)
		if err != nil {
			return nil, storeErr("getByStatus", err)
		}
		result = append(result, in)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("getByStatus", err)
	}
	return result, nil
}

func (s *SQLStore) Get(ctx context.Context, id string) (model.Intent, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectCols+` FROM intents WHERE id = ?`, id)
	in, err := scanIntent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Intent{}, storeErr("get", fmt.Errorf("intent %s not found", id))
		}
		return model.Intent{}, storeErr("get", err)
	}
	return in, nil
}

func (s *SQLStore) GetByHash(ctx context.Context, hash string) (model.Intent, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectCols+` FROM intents WHERE hash = ?`, hash)
	in, err := scanIntent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Intent{}, storeErr("getByHash", fmt.Errorf("hash %s not found", hash))
		}
		return model.Intent{}, storeErr("getByHash", err)
	}
	return in, nil
}

func (s *SQLStore) SetStatus(ctx context.Context, id string, status model.Status, hash string) error {
	now := time.Now().UTC()
	var err error
	if hash != "" {
		_, err = s.db.ExecContext(ctx,
			`UPDATE intents SET status = ?, hash = ?, updated_at = ? WHERE id = ?`, string(status), hash, now, id)
	} else {
		_, err = s.db.ExecContext(ctx,
			`UPDATE intents SET status = ?, updated_at = ? WHERE id = ?`, string(status), now, id)
	}
	if err != nil {
		return storeErr("setStatus", err)
	}
	return nil
}

func (s *SQLStore) IncrementRetry(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE intents SET retry_count = retry_count + 1, updated_at = ? WHERE id = ?`, time.Now().UTC(), id)
	if err != nil {
		return storeErr("incrementRetry", err)
	}
	return nil
}

func (s *SQLStore) RecordError(ctx context.Context, id string, text string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE intents SET last_error = ?, updated_at = ? WHERE id = ?`, text, time.Now().UTC(), id)
	if err != nil {
		return storeErr("recordError", err)
	}
	return nil
}

func (s *SQLStore) DLQ(ctx context.Context, intentID string, reason model.DLQReason, details string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("dlq", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	entryID := intentID + ":" + now.Format(time.RFC3339Nano)
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO dlq_entries(id, intent_id, reason, error_details, enqueued_at) VALUES (?, ?, ?, ?, ?)`,
		entryID, intentID, string(reason), details, now); err != nil {
		return storeErr("dlq", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE intents SET status = ?, updated_at = ? WHERE id = ?`, string(model.StatusFailed), now, intentID); err != nil {
		return storeErr("dlq", err)
	}
	if err := tx.Commit(); err != nil {
		return storeErr("dlq", err)
	}
	return nil
}

func (s *SQLStore) ListDLQ(ctx context.Context) ([]model.DLQEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, intent_id, reason, error_details, enqueued_at FROM dlq_entries ORDER BY enqueued_at DESC`)
	if err != nil {
		return nil, storeErr("listDLQ", err)
	}
	defer rows.Close()

	var result []model.DLQEntry
	for rows.Next() {
		var e model.DLQEntry
		var reason string
		var details sql.NullString
		if err := rows.Scan(&e.ID, &e.IntentID, &reason, &details, &e.EnqueuedAt); err != nil {
			return nil, storeErr("listDLQ", err)
		}
		e.Reason = model.DLQReason(reason)
		e.ErrorDetails = details.String
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("listDLQ", err)
	}
	return result, nil
}

func (s *SQLStore) SweepStaleProcessing(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE intents SET status = ?, updated_at = ? WHERE status = ?`,
		string(model.StatusPending), time.Now().UTC(), string(model.StatusProcessing))
	if err != nil {
		return 0, storeErr("sweepStaleProcessing", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, storeErr("sweepStaleProcessing", err)
	}
	return int(n), nil
}

var _ Store = (*SQLStore)(nil)

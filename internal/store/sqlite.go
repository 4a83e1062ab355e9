// SPDX-License-Identifier: MIT

package store

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	_ "modernc.org/sqlite" // SQLite driver (pure Go, no CGO)

	"github.com/ManuGH/reelvault/internal/media"
)

// uploadedAtLayout is a fixed-width RFC 3339 variant (nanoseconds, UTC)
// so the TEXT column sorts lexicographically in timestamp order.
const uploadedAtLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteStore persists records in a single sqlite database file.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens the database at dbPath and runs migrations.
// The _pragma DSN form applies WAL mode and busy_timeout to every
// connection in the pool.
func OpenSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS media (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		filename TEXT NOT NULL,
		mime_type TEXT NOT NULL,
		size_bytes INTEGER NOT NULL,
		uploaded_at TEXT NOT NULL,
		duration_seconds REAL NOT NULL DEFAULT 0,
		thumbnail TEXT,
		payload BLOB NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_media_uploaded_at ON media(uploaded_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) Create(ctx context.Context, rec *media.Record, payload io.Reader) error {
	data, err := io.ReadAll(payload)
	if err != nil {
		return fmt.Errorf("read payload: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM media WHERE id = ?`, rec.ID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check id: %w", err)
	}
	if exists > 0 {
		return fmt.Errorf("create %s: %w", rec.ID, media.ErrDuplicateID)
	}

	var thumbnail sql.NullString
	if rec.Thumbnail != "" {
		thumbnail = sql.NullString{String: rec.Thumbnail, Valid: true}
	}

	res, err := tx.ExecContext(ctx, `
	INSERT INTO media (id, filename, mime_type, size_bytes, uploaded_at, duration_seconds, thumbnail, payload)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID,
		rec.Filename,
		rec.MimeType,
		rec.SizeBytes,
		rec.UploadedAt.UTC().Format(uploadedAtLayout),
		rec.DurationSeconds,
		thumbnail,
		data,
	)
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}

	seq, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	rec.Seq = uint64(seq)
	return nil
}

func (s *SQLiteStore) ListAll(ctx context.Context) ([]media.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT seq, id, filename, mime_type, size_bytes, uploaded_at, duration_seconds, thumbnail
	FROM media
	ORDER BY uploaded_at DESC, seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	recs := []media.Record{}
	for rows.Next() {
		var rec media.Record
		var uploadedAt string
		var thumbnail sql.NullString

		if err := rows.Scan(
			&rec.Seq,
			&rec.ID,
			&rec.Filename,
			&rec.MimeType,
			&rec.SizeBytes,
			&uploadedAt,
			&rec.DurationSeconds,
			&thumbnail,
		); err != nil {
			return nil, err
		}

		t, err := time.Parse(uploadedAtLayout, uploadedAt)
		if err != nil {
			return nil, fmt.Errorf("parse uploaded_at %q: %w", uploadedAt, err)
		}
		rec.UploadedAt = t
		if thumbnail.Valid {
			rec.Thumbnail = thumbnail.String
		}

		recs = append(recs, rec)
	}

	return recs, rows.Err()
}

func (s *SQLiteStore) Payload(ctx context.Context, id string) (io.ReadCloser, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM media WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("payload %s: %w", id, media.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("payload %s: %w", id, err)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *SQLiteStore) DeleteByID(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM media WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("delete %s: %w", id, media.ErrNotFound)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

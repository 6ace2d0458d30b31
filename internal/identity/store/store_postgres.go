package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"pledger/internal/identity"
	id "pledger/pkg/domain"
)

// PostgresStore persists verification records in PostgreSQL.
//
// Schema:
//
//	CREATE TABLE verification_records (
//	    identity      TEXT PRIMARY KEY,
//	    name_hash     TEXT NOT NULL,
//	    document_hash TEXT NOT NULL,
//	    status        TEXT NOT NULL,
//	    submitted_at  TIMESTAMPTZ NOT NULL,
//	    decided_at    TIMESTAMPTZ
//	);
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, subject id.Identity) (*identity.VerificationRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT identity, name_hash, document_hash, status, submitted_at, decided_at
		FROM verification_records WHERE identity = $1`, subject.String())
	return scanRecord(row)
}

func (s *PostgresStore) Put(ctx context.Context, record *identity.VerificationRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO verification_records (identity, name_hash, document_hash, status, submitted_at, decided_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (identity) DO UPDATE SET
			name_hash = EXCLUDED.name_hash,
			document_hash = EXCLUDED.document_hash,
			status = EXCLUDED.status,
			submitted_at = EXCLUDED.submitted_at,
			decided_at = EXCLUDED.decided_at`,
		record.Identity.String(), record.NameHash, record.DocumentHash,
		string(record.Status), record.SubmittedAt, record.DecidedAt)
	if err != nil {
		return fmt.Errorf("save verification record: %w", err)
	}
	return nil
}

// Update locks the row for the duration of fn so concurrent decisions on the
// same identity serialize.
func (s *PostgresStore) Update(ctx context.Context, subject id.Identity, fn func(*identity.VerificationRecord) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `
		SELECT identity, name_hash, document_hash, status, submitted_at, decided_at
		FROM verification_records WHERE identity = $1 FOR UPDATE`, subject.String())
	record, err := scanRecord(row)
	if err != nil {
		return err
	}
	if err := fn(record); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE verification_records
		SET name_hash = $2, document_hash = $3, status = $4, submitted_at = $5, decided_at = $6
		WHERE identity = $1`,
		record.Identity.String(), record.NameHash, record.DocumentHash,
		string(record.Status), record.SubmittedAt, record.DecidedAt)
	if err != nil {
		return fmt.Errorf("update verification record: %w", err)
	}
	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*identity.VerificationRecord, error) {
	var record identity.VerificationRecord
	var subject, status string
	var decidedAt sql.NullTime
	err := row.Scan(&subject, &record.NameHash, &record.DocumentHash, &status, &record.SubmittedAt, &decidedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, identity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan verification record: %w", err)
	}
	record.Identity = id.Identity(subject)
	record.Status = identity.VerificationStatus(status)
	if decidedAt.Valid {
		record.DecidedAt = &decidedAt.Time
	}
	return &record, nil
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const lookupAccessRecordQuery = `
    SELECT cp.accessCode, cp.company, cp.position,
           COALESCE(q.question, ''), COALESCE(q.doc, '')
    FROM company_position cp
    LEFT JOIN questions q ON q.company = cp.company AND q.position = cp.position
    WHERE cp.accessCode = ?
    LIMIT 1
`

type SQLiteStore struct {
	db         *sql.DB
	lookupStmt *sql.Stmt
}

func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err = store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	store.lookupStmt, err = db.Prepare(lookupAccessRecordQuery)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare access lookup: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	if s.lookupStmt != nil {
		s.lookupStmt.Close()
	}
	return s.db.Close()
}

// The company_position layout matches databases provisioned before this
// service existed, so existing backend.db files open and provision unchanged.
func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS company_position (
        accessCode TEXT PRIMARY KEY,
        company TEXT NOT NULL,
        position TEXT NOT NULL
    );

    CREATE TABLE IF NOT EXISTS questions (
        company TEXT NOT NULL,
        position TEXT NOT NULL,
        question TEXT NOT NULL,
        doc TEXT NOT NULL DEFAULT '',
        PRIMARY KEY (company, position)
    );
    `
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) GetAccessRecord(ctx context.Context, accessCode string) (*AccessRecord, error) {
	var rec AccessRecord
	err := s.lookupStmt.QueryRowContext(ctx, accessCode).
		Scan(&rec.AccessCode, &rec.Company, &rec.Position, &rec.Question, &rec.Doc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Unknown access code
		}
		return nil, fmt.Errorf("failed to query access record: %w", err)
	}
	return &rec, nil
}

// UpsertAccessRecords writes records in one transaction and returns how many were stored.
func (s *SQLiteStore) UpsertAccessRecords(ctx context.Context, records []AccessRecord) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin provisioning transaction: %w", err)
	}
	defer tx.Rollback()

	// Legacy company_position tables carry no key on accessCode, so existing
	// rows are replaced by delete and insert rather than ON CONFLICT.
	deleteCodeStmt, err := tx.PrepareContext(ctx, `DELETE FROM company_position WHERE accessCode = ?`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare access record delete: %w", err)
	}
	defer deleteCodeStmt.Close()

	codeStmt, err := tx.PrepareContext(ctx, `INSERT INTO company_position (accessCode, company, position) VALUES (?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare access record insert: %w", err)
	}
	defer codeStmt.Close()

	questionStmt, err := tx.PrepareContext(ctx, `
        INSERT INTO questions (company, position, question, doc) VALUES (?, ?, ?, ?)
        ON CONFLICT(company, position) DO UPDATE SET question = excluded.question, doc = excluded.doc`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare question upsert: %w", err)
	}
	defer questionStmt.Close()

	count := 0
	for _, rec := range records {
		if _, err := deleteCodeStmt.ExecContext(ctx, rec.AccessCode); err != nil {
			return 0, fmt.Errorf("failed to replace access code %s: %w", rec.AccessCode, err)
		}
		if _, err := codeStmt.ExecContext(ctx, rec.AccessCode, rec.Company, rec.Position); err != nil {
			return 0, fmt.Errorf("failed to upsert access code %s: %w", rec.AccessCode, err)
		}
		if rec.Question != "" {
			if _, err := questionStmt.ExecContext(ctx, rec.Company, rec.Position, rec.Question, rec.Doc); err != nil {
				return 0, fmt.Errorf("failed to upsert question for %s/%s: %w", rec.Company, rec.Position, err)
			}
		}
		count++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit provisioning transaction: %w", err)
	}
	return count, nil
}

//go:build sqlite

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"unifac/internal/model"

	_ "modernc.org/sqlite"
)

const sqliteAvailable = true

func newSQLiteStore(path string) (Store, error) {
	return NewSQLiteStore(path), nil
}

type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

func (s *SQLiteStore) SaveTable(ctx context.Context, table model.ParameterTable) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := EncodeTable(table)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO parameter_tables (name, schema_version, codec_version, payload)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			schema_version = excluded.schema_version,
			codec_version = excluded.codec_version,
			payload = excluded.payload
	`, table.Name, table.SchemaVersion, table.CodecVersion, payload)
	return err
}

func (s *SQLiteStore) GetTable(ctx context.Context, name string) (model.ParameterTable, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return model.ParameterTable{}, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM parameter_tables WHERE name = ?`, name).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ParameterTable{}, false, nil
	}
	if err != nil {
		return model.ParameterTable{}, false, err
	}

	table, err := DecodeTable(payload)
	if err != nil {
		return model.ParameterTable{}, false, fmt.Errorf("decode table %s: %w", name, err)
	}
	return table, true, nil
}

func (s *SQLiteStore) ListTables(ctx context.Context) ([]string, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT name FROM parameter_tables ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *SQLiteStore) DeleteTable(ctx context.Context, name string) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `DELETE FROM parameter_tables WHERE name = ?`, name)
	return err
}

func (s *SQLiteStore) SaveEvaluation(ctx context.Context, record model.EvaluationRecord) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := EncodeEvaluation(record)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO evaluations (id, table_name, created_at_utc, schema_version, codec_version, payload)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			table_name = excluded.table_name,
			created_at_utc = excluded.created_at_utc,
			schema_version = excluded.schema_version,
			codec_version = excluded.codec_version,
			payload = excluded.payload
	`, record.ID, record.TableName, record.CreatedAtUTC, record.SchemaVersion, record.CodecVersion, payload)
	return err
}

func (s *SQLiteStore) GetEvaluation(ctx context.Context, id string) (model.EvaluationRecord, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return model.EvaluationRecord{}, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM evaluations WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return model.EvaluationRecord{}, false, nil
	}
	if err != nil {
		return model.EvaluationRecord{}, false, err
	}

	record, err := DecodeEvaluation(payload)
	if err != nil {
		return model.EvaluationRecord{}, false, fmt.Errorf("decode evaluation %s: %w", id, err)
	}
	return record, true, nil
}

func (s *SQLiteStore) ListEvaluations(ctx context.Context, limit int) ([]model.EvaluationRecord, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := db.QueryContext(ctx, `SELECT id, payload FROM evaluations ORDER BY rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.EvaluationRecord
	for rows.Next() {
		var (
			id      string
			payload []byte
		)
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, err
		}
		record, err := DecodeEvaluation(payload)
		if err != nil {
			return nil, fmt.Errorf("decode evaluation %s: %w", id, err)
		}
		out = append(out, record)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.New("store is not initialized")
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS parameter_tables (
			name TEXT PRIMARY KEY,
			schema_version INTEGER NOT NULL,
			codec_version INTEGER NOT NULL,
			payload BLOB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS evaluations (
			id TEXT PRIMARY KEY,
			table_name TEXT NOT NULL,
			created_at_utc TEXT NOT NULL,
			schema_version INTEGER NOT NULL,
			codec_version INTEGER NOT NULL,
			payload BLOB NOT NULL
		);
	`)
	return err
}

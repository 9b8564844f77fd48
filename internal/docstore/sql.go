package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

type Dialect int

const (
	SQLite Dialect = iota
	Postgres
)

// SQL stores documents in a ledger_documents table and enforces versions
// with conditional INSERT/UPDATE statements.
type SQL struct {
	db      *sql.DB
	dialect Dialect
}

func NewSQL(db *sql.DB, dialect Dialect) *SQL {
	return &SQL{db: db, dialect: dialect}
}

// OpenSQLite opens (creating if needed) a sqlite file and migrates it.
func OpenSQLite(ctx context.Context, path string) (*SQL, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one connection: sqlite serializes writers anyway, and :memory: is per-connection
	db.SetMaxOpenConns(1)

	s := NewSQL(db, SQLite)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// OpenPostgres connects through the pgx stdlib driver and migrates.
func OpenPostgres(ctx context.Context, dsn string) (*SQL, error) {
	if dsn == "" {
		return nil, errors.New("postgres DSN is required")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := NewSQL(db, Postgres)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS ledger_documents (
    path TEXT PRIMARY KEY,
    version BIGINT NOT NULL,
    body TEXT NOT NULL,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

func (s *SQL) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("migrate ledger_documents: %w", err)
	}
	return nil
}

func (s *SQL) Close() error { return s.db.Close() }

func (s *SQL) Conditional() bool { return true }

func (s *SQL) Load(ctx context.Context, path string) (Document, error) {
	var version int64
	var body string
	err := s.db.QueryRowContext(ctx, s.bind(`
		SELECT version, body FROM ledger_documents WHERE path = ?
	`), path).Scan(&version, &body)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, fmt.Errorf("load %s: %w", path, err)
	}
	return Document{Body: []byte(body), Version: formatVersion(version)}, nil
}

func (s *SQL) Save(ctx context.Context, path string, body []byte, expectedVersion string) (string, error) {
	if expectedVersion == "" {
		res, err := s.db.ExecContext(ctx, s.bind(`
			INSERT INTO ledger_documents (path, version, body) VALUES (?, 1, ?)
			ON CONFLICT (path) DO NOTHING
		`), path, string(body))
		if err != nil {
			return "", fmt.Errorf("insert %s: %w", path, err)
		}
		if err := conflictUnlessOneRow(res); err != nil {
			return "", err
		}
		return formatVersion(1), nil
	}

	want, err := parseVersion(expectedVersion)
	if err != nil {
		return "", err
	}
	res, err := s.db.ExecContext(ctx, s.bind(`
		UPDATE ledger_documents
		SET body = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE path = ? AND version = ?
	`), string(body), path, want)
	if err != nil {
		return "", fmt.Errorf("update %s: %w", path, err)
	}
	if err := conflictUnlessOneRow(res); err != nil {
		return "", err
	}
	return formatVersion(want + 1), nil
}

func conflictUnlessOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		return ErrVersionConflict
	}
	return nil
}

// bind rewrites ? placeholders to $n for postgres.
func (s *SQL) bind(query string) string {
	if s.dialect != Postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

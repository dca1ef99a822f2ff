// Package sqlite persists the source media registry. Job records stay
// in memory; the registry is what survives a restart and backs
// reanalysis of previously uploaded media.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/pressly/goose/v3"
	"modernc.org/sqlite"

	"affekt/internal/domain"
	"affekt/internal/port"
)

//go:embed migrations/*.sql
var migrations embed.FS

type Store struct {
	db *sql.DB
}

var hookOnce sync.Once

func registerHook() {
	hookOnce.Do(func() {
		sqlite.RegisterConnectionHook(func(conn sqlite.ExecQuerierContext, dsn string) error {
			pragmas := []string{
				"PRAGMA journal_mode = WAL",
				"PRAGMA busy_timeout = 5000",
				"PRAGMA synchronous = NORMAL",
				"PRAGMA foreign_keys = ON",
			}
			for _, p := range pragmas {
				if _, err := conn.ExecContext(context.Background(), p, nil); err != nil {
					return fmt.Errorf("execute %s: %w", p, err)
				}
			}
			return nil
		})
	})
}

func NewStore(dataDir string) (*Store, error) {
	registerHook()

	dbPath := filepath.Join(dataDir, "affekt.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Single connection for SQLite (WAL allows concurrent reads but only one writer)
	db.SetMaxOpenConns(1)

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Save(src *domain.Source) error {
	_, err := s.db.ExecContext(context.Background(), `
		INSERT INTO sources (id, filename, path, mime_type, file_size, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		src.ID, src.Filename, src.Path, src.MimeType, src.FileSize, src.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert source: %w", err)
	}
	return nil
}

func (s *Store) Get(id string) (*domain.Source, error) {
	row := s.db.QueryRowContext(context.Background(), `
		SELECT id, filename, path, mime_type, file_size, created_at
		FROM sources WHERE id = ?`, id)

	src, err := scanSource(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	return src, err
}

func (s *Store) Delete(id string) error {
	_, err := s.db.ExecContext(context.Background(), `DELETE FROM sources WHERE id = ?`, id)
	return err
}

func (s *Store) ListAll() ([]*domain.Source, error) {
	rows, err := s.db.QueryContext(context.Background(), `
		SELECT id, filename, path, mime_type, file_size, created_at
		FROM sources ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sources []*domain.Source
	for rows.Next() {
		src, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return sources, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSource(row scanner) (*domain.Source, error) {
	var src domain.Source
	err := row.Scan(&src.ID, &src.Filename, &src.Path, &src.MimeType, &src.FileSize, &src.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &src, nil
}

var _ port.SourceStore = (*Store)(nil)

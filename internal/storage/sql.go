package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// sqlStore is the shared implementation for SQLite, Postgres, and MySQL.
// Queries are written with ? placeholders and rebound for Postgres.
type sqlStore struct {
	driverName string
	db         *sql.DB
}

func newSQLStore(driverName, dsn string) (*sqlStore, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driverName, err)
	}
	if driverName == "sqlite" {
		// SQLite only supports one writer — limit to a single connection
		// to prevent SQLITE_BUSY.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(5)
		db.SetMaxIdleConns(2)
		db.SetConnMaxLifetime(10 * time.Minute)
	}

	s := &sqlStore{driverName: driverName, db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// sqliteDSN turns a plain file path into a WAL-mode SQLite DSN, creating the
// parent directory. An empty path defaults to journal.db in the working
// directory.
func sqliteDSN(path string) string {
	if path == "" {
		path = "journal.db"
	}
	_ = os.MkdirAll(filepath.Dir(path), 0755)
	if strings.Contains(path, "?") {
		return path
	}
	return path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
}

func (s *sqlStore) migrate() error {
	var ddl string
	switch s.driverName {
	case "mysql":
		ddl = `CREATE TABLE IF NOT EXISTS rooms (
			id VARCHAR(64) PRIMARY KEY,
			pages_json LONGTEXT NOT NULL,
			version BIGINT NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`
	case "postgres":
		ddl = `CREATE TABLE IF NOT EXISTS rooms (
			id TEXT PRIMARY KEY,
			pages_json TEXT NOT NULL,
			version BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`
	default:
		ddl = `CREATE TABLE IF NOT EXISTS rooms (
			id TEXT PRIMARY KEY,
			pages_json TEXT NOT NULL,
			version INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`
	}
	if _, err := s.db.Exec(ddl); err != nil {
		return err
	}
	return nil
}

// rebind converts ? placeholders to $n for Postgres.
func (s *sqlStore) rebind(query string) string {
	if s.driverName != "postgres" {
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

func (s *sqlStore) LoadRoom(ctx context.Context, id string) (*RoomRecord, error) {
	rec := &RoomRecord{ID: id}
	var pages string
	err := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT pages_json, version, updated_at FROM rooms WHERE id = ?`), id,
	).Scan(&pages, &rec.Version, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load room: %w", err)
	}
	rec.PagesJSON = []byte(pages)
	return rec, nil
}

func (s *sqlStore) SaveRoom(ctx context.Context, rec *RoomRecord) error {
	now := time.Now()
	res, err := s.db.ExecContext(ctx,
		s.rebind(`UPDATE rooms SET pages_json = ?, version = ?, updated_at = ? WHERE id = ?`),
		string(rec.PagesJSON), rec.Version, now, rec.ID,
	)
	if err != nil {
		return fmt.Errorf("save room: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	_, err = s.db.ExecContext(ctx,
		s.rebind(`INSERT INTO rooms (id, pages_json, version, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`),
		rec.ID, string(rec.PagesJSON), rec.Version, now, now,
	)
	if err != nil {
		return fmt.Errorf("insert room: %w", err)
	}
	return nil
}

func (s *sqlStore) ListRooms(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM rooms ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan room id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *sqlStore) DeleteRoom(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM rooms WHERE id = ?`), id)
	return err
}

func (s *sqlStore) Close() error {
	return s.db.Close()
}

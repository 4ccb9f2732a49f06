package storage

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ─────────────────────────────────────────────────────────────
// Store — pluggable persistence for room documents
// ─────────────────────────────────────────────────────────────

// ErrRoomNotFound is returned by LoadRoom for a room that has never been
// saved. A fresh room seeds itself on this error.
var ErrRoomNotFound = errors.New("room not found")

// RoomRecord is the persisted form of one room: the page list as JSON plus
// the document version counter.
type RoomRecord struct {
	ID        string
	PagesJSON []byte
	Version   uint64
	UpdatedAt time.Time
}

// Store persists room documents. Implementations must be safe for
// concurrent use.
type Store interface {
	LoadRoom(ctx context.Context, id string) (*RoomRecord, error)
	SaveRoom(ctx context.Context, rec *RoomRecord) error
	ListRooms(ctx context.Context) ([]string, error)
	DeleteRoom(ctx context.Context, id string) error
	Close() error
}

// Open creates a Store for the given driver. SQLite is the default and needs
// only a file path as its DSN.
func Open(driver, dsn string) (Store, error) {
	switch driver {
	case "", "sqlite":
		return newSQLStore("sqlite", sqliteDSN(dsn))
	case "postgres":
		return newSQLStore("postgres", dsn)
	case "mysql":
		return newSQLStore("mysql", dsn)
	case "mongo", "mongodb":
		return newMongoStore(dsn)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}

package db

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

type Config struct {
	// Name distinguishes in-memory databases opened by the same process.
	// Empty picks a fresh one.
	Name string
}

// Open opens a session-scoped in-memory SQLite database. Its contents vanish
// when the returned handle is closed.
func Open(cfg Config) (*sql.DB, error) {
	name := cfg.Name
	if name == "" {
		name = "ringline-" + uuid.NewString()
	}
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", name)
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// A shared-cache memory database lives only while a connection holds it.
	conn.SetMaxOpenConns(1)
	conn.SetConnMaxLifetime(0)
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

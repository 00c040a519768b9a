package repository

import (
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

// Схема для тестовой in-memory SQLite; зеркало schema.go без PostgreSQL-типов.
// Частичный уникальный индекс поддерживается SQLite тем же синтаксисом.
var testSchema = []string{
	`CREATE TABLE users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		telegram_id INTEGER NOT NULL UNIQUE,
		username TEXT NOT NULL DEFAULT '',
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		is_agent BOOLEAN NOT NULL DEFAULT 0,
		languages TEXT NOT NULL DEFAULT '',
		is_available BOOLEAN NOT NULL DEFAULT 1,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE support_requests (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		customer_id INTEGER NOT NULL REFERENCES users(id),
		agent_id INTEGER REFERENCES users(id),
		language TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		created_at TIMESTAMP NOT NULL,
		assigned_at TIMESTAMP,
		closed_at TIMESTAMP
	)`,
	`CREATE UNIQUE INDEX support_requests_active_customer
		ON support_requests (customer_id) WHERE status IN ('pending', 'assigned')`,
	`CREATE TABLE messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		request_id INTEGER NOT NULL REFERENCES support_requests(id),
		sender_id INTEGER NOT NULL REFERENCES users(id),
		text TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
}

// newTestDB открывает in-memory SQLite. Одно соединение обязательно:
// у :memory: каждое новое соединение — отдельная пустая база.
func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := sqlx.Connect("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	for _, stmt := range testSchema {
		db.MustExec(stmt)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

package repository

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Схема БД. Частичный уникальный индекс support_requests_active_customer — жёсткая
// гарантия «не более одного незакрытого обращения на клиента»: даже при гонке двух
// первых сообщений второй INSERT упрётся в индекс.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id SERIAL PRIMARY KEY,
		telegram_id BIGINT NOT NULL UNIQUE,
		username TEXT NOT NULL DEFAULT '',
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		is_agent BOOLEAN NOT NULL DEFAULT FALSE,
		languages TEXT NOT NULL DEFAULT '',
		is_available BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS support_requests (
		id SERIAL PRIMARY KEY,
		customer_id INTEGER NOT NULL REFERENCES users(id),
		agent_id INTEGER REFERENCES users(id),
		language TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		created_at TIMESTAMPTZ NOT NULL,
		assigned_at TIMESTAMPTZ,
		closed_at TIMESTAMPTZ
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS support_requests_active_customer
		ON support_requests (customer_id) WHERE status IN ('pending', 'assigned')`,
	`CREATE INDEX IF NOT EXISTS support_requests_status_language
		ON support_requests (status, language)`,
	`CREATE TABLE IF NOT EXISTS messages (
		id SERIAL PRIMARY KEY,
		request_id INTEGER NOT NULL REFERENCES support_requests(id),
		sender_id INTEGER NOT NULL REFERENCES users(id),
		text TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS messages_request_created
		ON messages (request_id, created_at)`,
}

// InitSchema создаёт таблицы и индексы, если их ещё нет.
func InitSchema(db *sqlx.DB) error {
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("инициализация схемы: %w", err)
		}
	}
	return nil
}

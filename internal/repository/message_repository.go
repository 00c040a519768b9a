package repository

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"helpdesk/internal/model"
)

// MessageRepository обеспечивает сохранение и получение сообщений обращения.
type MessageRepository struct {
	db *sqlx.DB
}

// NewMessageRepository создаёт новый репозиторий сообщений.
func NewMessageRepository(db *sqlx.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Append сохраняет новую реплику обращения.
func (r *MessageRepository) Append(requestID, senderID int, text string) (*model.Message, error) {
	now := time.Now().UTC()
	query := r.db.Rebind(`INSERT INTO messages (request_id, sender_id, text, created_at)
	                      VALUES (?, ?, ?, ?) RETURNING id`)
	var id int
	if err := r.db.QueryRow(query, requestID, senderID, text, now).Scan(&id); err != nil {
		return nil, fmt.Errorf("не удалось сохранить сообщение: %w", err)
	}
	return &model.Message{
		ID:        id,
		RequestID: requestID,
		SenderID:  senderID,
		Text:      text,
		CreatedAt: now,
	}, nil
}

// ListByRequest возвращает историю обращения по возрастанию времени,
// вместе с именем отправителя для показа оператору.
func (r *MessageRepository) ListByRequest(requestID int) ([]model.MessageWithSender, error) {
	var messages []model.MessageWithSender
	query := r.db.Rebind(`SELECT m.id, m.request_id, m.sender_id, m.text, m.created_at,
	                             CASE WHEN u.first_name <> '' THEN u.first_name ELSE u.username END AS sender_name
	                      FROM messages m
	                      JOIN users u ON u.id = m.sender_id
	                      WHERE m.request_id = ?
	                      ORDER BY m.created_at, m.id`)
	if err := r.db.Select(&messages, query, requestID); err != nil {
		return nil, fmt.Errorf("история обращения id=%d: %w", requestID, err)
	}
	return messages, nil
}

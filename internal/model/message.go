package model

import "time"

// Message представляет одну реплику переписки внутри обращения.
// Сообщения неизменяемы и хранятся даже для обращений в статусе pending:
// оператор, забравший обращение, получает накопленную историю.
type Message struct {
	ID        int       `db:"id"`
	RequestID int       `db:"request_id"`
	SenderID  int       `db:"sender_id"`
	Text      string    `db:"text"`
	CreatedAt time.Time `db:"created_at"`
}

// MessageWithSender — реплика вместе с именем отправителя для вывода истории.
type MessageWithSender struct {
	Message
	SenderName string `db:"sender_name"`
}

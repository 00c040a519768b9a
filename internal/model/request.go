package model

import "time"

// Статусы обращения. Переходы только вперёд: pending -> assigned -> closed.
const (
	StatusPending  = "pending"
	StatusAssigned = "assigned"
	StatusClosed   = "closed"
)

// SupportRequest представляет обращение клиента в поддержку.
// AgentID заполняется только после того, как оператор забрал обращение.
type SupportRequest struct {
	ID         int        `db:"id"`
	CustomerID int        `db:"customer_id"`
	AgentID    *int       `db:"agent_id"`
	Language   string     `db:"language"`
	Status     string     `db:"status"`
	CreatedAt  time.Time  `db:"created_at"`
	AssignedAt *time.Time `db:"assigned_at"`
	ClosedAt   *time.Time `db:"closed_at"`
}

// IsActive сообщает, занимает ли обращение слот клиента (не закрыто).
func (r *SupportRequest) IsActive() bool {
	return r.Status == StatusPending || r.Status == StatusAssigned
}

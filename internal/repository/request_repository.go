package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"helpdesk/internal/model"
)

// RequestRepository владеет жизненным циклом обращений: pending -> assigned -> closed.
// Все переходы — условные UPDATE/INSERT, исход решается числом затронутых строк,
// поэтому гонки конкурирующих вызовов разрешает сама база.
type RequestRepository struct {
	db *sqlx.DB
}

// NewRequestRepository создаёт новый репозиторий обращений.
func NewRequestRepository(db *sqlx.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// Create открывает новое обращение в статусе pending и сохраняет первое сообщение
// клиента одной транзакцией. Если у клиента уже есть незакрытое обращение,
// возвращает ErrRequestExists: условный INSERT не вставит строку, а при гонке
// двух первых сообщений второго остановит частичный уникальный индекс.
func (r *RequestRepository) Create(customerID int, language, firstText string) (*model.SupportRequest, error) {
	tx, err := r.db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть транзакцию: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	var id int
	insert := tx.Rebind(`INSERT INTO support_requests (customer_id, language, status, created_at)
	                     SELECT ?, ?, 'pending', ?
	                     WHERE NOT EXISTS (
	                         SELECT 1 FROM support_requests
	                         WHERE customer_id = ? AND status IN ('pending', 'assigned')
	                     )
	                     RETURNING id`)
	err = tx.QueryRow(insert, customerID, language, now, customerID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrRequestExists
	}
	if err != nil {
		// Возможен проигрыш гонки на частичном индексе: если активное обращение
		// уже появилось, это тот же исход, что и пустой условный INSERT.
		if active, lookupErr := r.FindActiveByCustomer(customerID); lookupErr == nil && active != nil {
			return nil, model.ErrRequestExists
		}
		return nil, fmt.Errorf("не удалось создать обращение: %w", err)
	}

	appendMsg := tx.Rebind(`INSERT INTO messages (request_id, sender_id, text, created_at)
	                        VALUES (?, ?, ?, ?)`)
	if _, err := tx.Exec(appendMsg, id, customerID, firstText, now); err != nil {
		return nil, fmt.Errorf("не удалось сохранить первое сообщение: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("не удалось зафиксировать обращение: %w", err)
	}
	return &model.SupportRequest{
		ID:         id,
		CustomerID: customerID,
		Language:   language,
		Status:     model.StatusPending,
		CreatedAt:  now,
	}, nil
}

// GetByID возвращает обращение по идентификатору.
func (r *RequestRepository) GetByID(id int) (*model.SupportRequest, error) {
	var req model.SupportRequest
	err := r.db.Get(&req, r.db.Rebind("SELECT * FROM support_requests WHERE id = ?"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("обращение id=%d: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// Claim атомарно назначает обращение оператору. Успех возможен только из статуса
// pending; из N конкурирующих вызовов строку обновит ровно один, остальные получат
// ErrAlreadyClaimed. Никогда не блокирует и не повторяет попытку.
func (r *RequestRepository) Claim(id, agentID int) (*model.SupportRequest, error) {
	now := time.Now().UTC()
	update := r.db.Rebind(`UPDATE support_requests
	                       SET agent_id = ?, status = 'assigned', assigned_at = ?
	                       WHERE id = ? AND status = 'pending'`)
	res, err := r.db.Exec(update, agentID, now, id)
	if err != nil {
		return nil, fmt.Errorf("не удалось забрать обращение: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("не удалось забрать обращение: %w", err)
	}
	if rows == 0 {
		if _, err := r.GetByID(id); err != nil {
			return nil, err // ErrNotFound
		}
		return nil, fmt.Errorf("обращение id=%d: %w", id, model.ErrAlreadyClaimed)
	}
	return r.GetByID(id)
}

// Close закрывает обращение. Разрешено только назначенному оператору и только из
// статуса assigned; повторное закрытие отвергается, а не проглатывается.
func (r *RequestRepository) Close(id, agentID int) (*model.SupportRequest, error) {
	now := time.Now().UTC()
	update := r.db.Rebind(`UPDATE support_requests
	                       SET status = 'closed', closed_at = ?
	                       WHERE id = ? AND status = 'assigned' AND agent_id = ?`)
	res, err := r.db.Exec(update, now, id, agentID)
	if err != nil {
		return nil, fmt.Errorf("не удалось закрыть обращение: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("не удалось закрыть обращение: %w", err)
	}
	if rows == 0 {
		req, err := r.GetByID(id)
		if err != nil {
			return nil, err // ErrNotFound
		}
		if req.Status != model.StatusAssigned {
			return nil, fmt.Errorf("обращение id=%d в статусе %s: %w", id, req.Status, model.ErrInvalidState)
		}
		return nil, fmt.Errorf("обращение id=%d назначено другому оператору: %w", id, model.ErrUnauthorized)
	}
	return r.GetByID(id)
}

// FindActiveByCustomer возвращает незакрытое обращение клиента, если оно есть.
func (r *RequestRepository) FindActiveByCustomer(customerID int) (*model.SupportRequest, error) {
	var req model.SupportRequest
	query := r.db.Rebind(`SELECT * FROM support_requests
	                      WHERE customer_id = ? AND status IN ('pending', 'assigned')`)
	err := r.db.Get(&req, query, customerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("активное обращение клиента id=%d: %w", customerID, model.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// FindAssignedByAgent возвращает обращения, назначенные оператору.
func (r *RequestRepository) FindAssignedByAgent(agentID int) ([]model.SupportRequest, error) {
	var reqs []model.SupportRequest
	query := r.db.Rebind(`SELECT * FROM support_requests
	                      WHERE agent_id = ? AND status = 'assigned'
	                      ORDER BY assigned_at`)
	if err := r.db.Select(&reqs, query, agentID); err != nil {
		return nil, fmt.Errorf("поиск обращений оператора id=%d: %w", agentID, err)
	}
	return reqs, nil
}

// ListByStatus возвращает обращения в указанном статусе; пустой статус — все.
func (r *RequestRepository) ListByStatus(status string) ([]model.SupportRequest, error) {
	var reqs []model.SupportRequest
	var err error
	if status == "" {
		err = r.db.Select(&reqs, "SELECT * FROM support_requests ORDER BY created_at")
	} else {
		err = r.db.Select(&reqs, r.db.Rebind("SELECT * FROM support_requests WHERE status = ? ORDER BY created_at"), status)
	}
	if err != nil {
		return nil, fmt.Errorf("список обращений: %w", err)
	}
	return reqs, nil
}

// FindPendingByLanguages возвращает ожидающие обращения на любом из указанных языков.
func (r *RequestRepository) FindPendingByLanguages(languages []string) ([]model.SupportRequest, error) {
	if len(languages) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT * FROM support_requests
	                             WHERE status = 'pending' AND language IN (?)
	                             ORDER BY created_at`, languages)
	if err != nil {
		return nil, fmt.Errorf("поиск ожидающих обращений: %w", err)
	}
	var reqs []model.SupportRequest
	if err := r.db.Select(&reqs, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("поиск ожидающих обращений: %w", err)
	}
	return reqs, nil
}

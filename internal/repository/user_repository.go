package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"helpdesk/internal/model"
)

// UserRepository обеспечивает доступ к данным пользователей в базе данных.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository создаёт новый репозиторий пользователей.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetOrCreate возвращает пользователя по Telegram ID, создавая запись при первом
// контакте. ON CONFLICT DO NOTHING закрывает гонку двух первых сообщений.
func (r *UserRepository) GetOrCreate(telegramID int64, username, firstName, lastName string) (*model.User, error) {
	user, err := r.GetByTelegramID(telegramID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		return nil, err
	}
	query := r.db.Rebind(`INSERT INTO users (telegram_id, username, first_name, last_name, created_at)
	                      VALUES (?, ?, ?, ?, ?) ON CONFLICT (telegram_id) DO NOTHING`)
	if _, err := r.db.Exec(query, telegramID, username, firstName, lastName, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("не удалось создать пользователя: %w", err)
	}
	return r.GetByTelegramID(telegramID)
}

// GetByTelegramID ищет пользователя по его Telegram ID.
func (r *UserRepository) GetByTelegramID(telegramID int64) (*model.User, error) {
	var user model.User
	err := r.db.Get(&user, r.db.Rebind("SELECT * FROM users WHERE telegram_id = ?"), telegramID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("пользователь telegram_id=%d: %w", telegramID, model.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByID возвращает пользователя по внутреннему идентификатору.
func (r *UserRepository) GetByID(id int) (*model.User, error) {
	var user model.User
	err := r.db.Get(&user, r.db.Rebind("SELECT * FROM users WHERE id = ?"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("пользователь id=%d: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// SetAgent помечает пользователя оператором поддержки.
func (r *UserRepository) SetAgent(id int) error {
	_, err := r.db.Exec(r.db.Rebind("UPDATE users SET is_agent = TRUE WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("не удалось назначить оператора: %w", err)
	}
	return nil
}

// SetLanguages сохраняет CSV языков оператора.
func (r *UserRepository) SetLanguages(id int, languages string) error {
	_, err := r.db.Exec(r.db.Rebind("UPDATE users SET languages = ? WHERE id = ?"), languages, id)
	if err != nil {
		return fmt.Errorf("не удалось сохранить языки: %w", err)
	}
	return nil
}

// SetAvailability включает или выключает доступность оператора.
func (r *UserRepository) SetAvailability(id int, available bool) error {
	_, err := r.db.Exec(r.db.Rebind("UPDATE users SET is_available = ? WHERE id = ?"), available, id)
	if err != nil {
		return fmt.Errorf("не удалось изменить доступность: %w", err)
	}
	return nil
}

// ListAgents возвращает всех зарегистрированных операторов.
func (r *UserRepository) ListAgents() ([]model.User, error) {
	var agents []model.User
	if err := r.db.Select(&agents, "SELECT * FROM users WHERE is_agent ORDER BY id"); err != nil {
		return nil, fmt.Errorf("список операторов: %w", err)
	}
	return agents, nil
}

// FindEligibleAgents возвращает доступных операторов, владеющих языком обращения.
// Сравнение по точному вхождению кода в CSV-список, а не по подстроке:
// "en" не совпадает со списком, содержащим только "eng".
func (r *UserRepository) FindEligibleAgents(language string) ([]model.User, error) {
	var agents []model.User
	query := r.db.Rebind(`SELECT * FROM users
	                      WHERE is_agent AND is_available
	                        AND ',' || languages || ',' LIKE '%,' || ? || ',%'`)
	if err := r.db.Select(&agents, query, language); err != nil {
		return nil, fmt.Errorf("поиск операторов для языка %s: %w", language, err)
	}
	return agents, nil
}

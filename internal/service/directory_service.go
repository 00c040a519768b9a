package service

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"helpdesk/internal/model"
)

// Directory содержит логику справочника пользователей: регистрацию операторов,
// их языки и доступность.
type Directory struct {
	users UserStore
	log   zerolog.Logger
}

// NewDirectory создаёт новый сервис справочника.
func NewDirectory(users UserStore, log zerolog.Logger) *Directory {
	return &Directory{users: users, log: log}
}

// Identify возвращает пользователя по Telegram ID, создавая запись при первом контакте.
func (s *Directory) Identify(telegramID int64, username, firstName, lastName string) (*model.User, error) {
	return s.users.GetOrCreate(telegramID, username, firstName, lastName)
}

// Get возвращает пользователя по внутреннему идентификатору.
func (s *Directory) Get(id int) (*model.User, error) {
	return s.users.GetByID(id)
}

// Agents возвращает всех зарегистрированных операторов.
func (s *Directory) Agents() ([]model.User, error) {
	return s.users.ListAgents()
}

// RegisterAgent делает пользователя оператором поддержки. Повторная регистрация
// отвергается, существующая история клиента сохраняется.
func (s *Directory) RegisterAgent(user *model.User) error {
	if user.IsAgent {
		return fmt.Errorf("пользователь id=%d уже оператор: %w", user.ID, model.ErrInvalidState)
	}
	if err := s.users.SetAgent(user.ID); err != nil {
		return err
	}
	user.IsAgent = true
	s.log.Info().Int("user_id", user.ID).Msg("пользователь зарегистрирован оператором")
	return nil
}

// SetLanguages сохраняет языки оператора из CSV-строки, нормализуя коды
// к нижнему регистру без пробелов. Возвращает сохранённый список.
func (s *Directory) SetLanguages(user *model.User, csv string) (string, error) {
	if !user.IsAgent {
		return "", fmt.Errorf("языки доступны только операторам: %w", model.ErrUnauthorized)
	}
	var langs []string
	for _, part := range strings.Split(csv, ",") {
		if code := strings.ToLower(strings.TrimSpace(part)); code != "" {
			langs = append(langs, code)
		}
	}
	if len(langs) == 0 {
		return "", fmt.Errorf("пустой список языков: %w", model.ErrInvalidState)
	}
	normalized := strings.Join(langs, ",")
	if err := s.users.SetLanguages(user.ID, normalized); err != nil {
		return "", err
	}
	user.Languages = normalized
	s.log.Info().Int("user_id", user.ID).Str("languages", normalized).Msg("оператор обновил языки")
	return normalized, nil
}

// ToggleAvailability переключает доступность оператора и возвращает новое значение.
// Уже созданные обращения переключение не затрагивает.
func (s *Directory) ToggleAvailability(user *model.User) (bool, error) {
	if !user.IsAgent {
		return false, fmt.Errorf("доступность есть только у операторов: %w", model.ErrUnauthorized)
	}
	next := !user.IsAvailable
	if err := s.users.SetAvailability(user.ID, next); err != nil {
		return false, err
	}
	user.IsAvailable = next
	s.log.Info().Int("user_id", user.ID).Bool("available", next).Msg("оператор сменил доступность")
	return next, nil
}

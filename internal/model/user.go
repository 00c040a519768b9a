package model

import (
	"strings"
	"time"
)

// User представляет пользователя бота: клиента поддержки или оператора.
// Клиент может позже зарегистрироваться оператором, история при этом сохраняется.
type User struct {
	ID          int       `db:"id"`
	TelegramID  int64     `db:"telegram_id"`
	Username    string    `db:"username"`
	FirstName   string    `db:"first_name"`
	LastName    string    `db:"last_name"`
	IsAgent     bool      `db:"is_agent"`
	Languages   string    `db:"languages"` // CSV языковых кодов оператора, напр. "en,es"
	IsAvailable bool      `db:"is_available"`
	CreatedAt   time.Time `db:"created_at"`
}

// DisplayName возвращает имя для показа собеседнику: имя, иначе username.
func (u *User) DisplayName() string {
	if u.FirstName != "" {
		return u.FirstName
	}
	return u.Username
}

// LanguageList разбирает CSV языков оператора в срез кодов.
func (u *User) LanguageList() []string {
	if u.Languages == "" {
		return nil
	}
	parts := strings.Split(u.Languages, ",")
	langs := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			langs = append(langs, p)
		}
	}
	return langs
}

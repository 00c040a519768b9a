package model

import "errors"

// Ошибки доменных операций. Проверяются через errors.Is, оборачиваются через %w.
var (
	// ErrNotFound — пользователь или обращение не существует.
	ErrNotFound = errors.New("запись не найдена")
	// ErrInvalidState — переход недопустим из текущего статуса обращения.
	ErrInvalidState = errors.New("недопустимый статус обращения")
	// ErrRequestExists — у клиента уже есть незакрытое обращение.
	ErrRequestExists = errors.New("у клиента уже есть активное обращение")
	// ErrAlreadyClaimed — обращение уже забрал другой оператор.
	ErrAlreadyClaimed = errors.New("обращение уже забрано")
	// ErrUnauthorized — действие недоступно этому пользователю.
	ErrUnauthorized = errors.New("нет прав на операцию")
	// ErrNoActiveRequest — нет активного обращения, к которому относится действие.
	ErrNoActiveRequest = errors.New("нет активного обращения")
	// ErrDeliveryFailure — сообщение сохранено, но доставить его не удалось.
	ErrDeliveryFailure = errors.New("не удалось доставить сообщение")
)

// Package service содержит бизнес-логику поддержки: справочник пользователей,
// жизненный цикл обращений, подбор операторов, пересылку переписки и состояние
// диалога. Сервисы зависят только от узких интерфейсов хранилища и транспорта.
package service

import "helpdesk/internal/model"

// UserStore — операции над пользователями, нужные сервисам.
type UserStore interface {
	GetOrCreate(telegramID int64, username, firstName, lastName string) (*model.User, error)
	GetByID(id int) (*model.User, error)
	SetAgent(id int) error
	SetLanguages(id int, languages string) error
	SetAvailability(id int, available bool) error
	FindEligibleAgents(language string) ([]model.User, error)
	ListAgents() ([]model.User, error)
}

// RequestStore — операции над обращениями. Create и Claim обязаны быть атомарными:
// Create не создаёт второе активное обращение клиента, Claim выигрывает ровно один.
type RequestStore interface {
	Create(customerID int, language, firstText string) (*model.SupportRequest, error)
	GetByID(id int) (*model.SupportRequest, error)
	Claim(id, agentID int) (*model.SupportRequest, error)
	Close(id, agentID int) (*model.SupportRequest, error)
	FindActiveByCustomer(customerID int) (*model.SupportRequest, error)
	FindAssignedByAgent(agentID int) ([]model.SupportRequest, error)
	FindPendingByLanguages(languages []string) ([]model.SupportRequest, error)
	ListByStatus(status string) ([]model.SupportRequest, error)
}

// MessageStore — операции над перепиской обращений.
type MessageStore interface {
	Append(requestID, senderID int, text string) (*model.Message, error)
	ListByRequest(requestID int) ([]model.MessageWithSender, error)
}

// Sender отправляет текст пользователю по его Telegram ID.
type Sender interface {
	SendText(telegramID int64, text string) error
	// SendClaimPrompt отправляет текст с кнопкой «Забрать обращение».
	SendClaimPrompt(telegramID int64, requestID int, text string) error
}

package service

import (
	"fmt"
	"sync"

	"helpdesk/internal/model"
)

// Step — шаг диалога клиента до создания обращения.
type Step int

const (
	// StepNone — диалог не начат или уже завершён.
	StepNone Step = iota
	// StepChoosingLanguage — клиенту показана клавиатура выбора языка.
	StepChoosingLanguage
	// StepAwaitingIssue — язык выбран, ждём текст обращения.
	StepAwaitingIssue
)

// DialogState — явное состояние диалога одного пользователя.
type DialogState struct {
	Step     Step
	Language string
}

// Sessions хранит состояния диалогов по Telegram ID. Состояние живёт в памяти
// процесса: создаётся по /start, продвигается выбором языка и сбрасывается,
// когда обращение создано.
type Sessions struct {
	mu     sync.Mutex
	states map[int64]DialogState
}

// NewSessions создаёт новое хранилище состояний диалогов.
func NewSessions() *Sessions {
	return &Sessions{states: make(map[int64]DialogState)}
}

// BeginLanguageSelection переводит диалог пользователя к выбору языка.
func (s *Sessions) BeginLanguageSelection(telegramID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[telegramID] = DialogState{Step: StepChoosingLanguage}
}

// ChooseLanguage фиксирует выбранный язык. Допустимо только из шага выбора языка:
// повторное нажатие старой кнопки после создания обращения отвергается.
func (s *Sessions) ChooseLanguage(telegramID int64, language string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.states[telegramID]
	if !ok || state.Step != StepChoosingLanguage {
		return fmt.Errorf("выбор языка вне диалога: %w", model.ErrInvalidState)
	}
	s.states[telegramID] = DialogState{Step: StepAwaitingIssue, Language: language}
	return nil
}

// AwaitingIssue сообщает, ждёт ли диалог текст обращения, и возвращает выбранный язык.
func (s *Sessions) AwaitingIssue(telegramID int64) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.states[telegramID]
	if !ok || state.Step != StepAwaitingIssue {
		return "", false
	}
	return state.Language, true
}

// Clear сбрасывает состояние диалога пользователя.
func (s *Sessions) Clear(telegramID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, telegramID)
}

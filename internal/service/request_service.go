package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"helpdesk/internal/model"
)

// Requests управляет жизненным циклом обращений: открытие, забор оператором
// и закрытие. Побочные уведомления после забора и закрытия — best-effort:
// их сбой логируется и не откатывает уже зафиксированный переход.
type Requests struct {
	requests RequestStore
	users    UserStore
	messages MessageStore
	sender   Sender
	log      zerolog.Logger
}

// NewRequests создаёт новый сервис обращений.
func NewRequests(requests RequestStore, users UserStore, messages MessageStore, sender Sender, log zerolog.Logger) *Requests {
	return &Requests{requests: requests, users: users, messages: messages, sender: sender, log: log}
}

// Open создаёт обращение клиента в статусе pending с его первым сообщением.
func (s *Requests) Open(customer *model.User, language, firstText string) (*model.SupportRequest, error) {
	req, err := s.requests.Create(customer.ID, language, firstText)
	if err != nil {
		return nil, err
	}
	s.log.Info().Int("request_id", req.ID).Int("customer_id", customer.ID).
		Str("language", language).Msg("создано обращение")
	return req, nil
}

// Claim разрешает забор обращения оператором. Из N одновременных попыток на одно
// pending-обращение побеждает ровно одна, остальные получают ErrAlreadyClaimed.
// Победителю отправляется накопленная история, клиенту — уведомление о подключении;
// обе отправки независимы и не влияют на результат забора.
func (s *Requests) Claim(requestID int, agent *model.User) (*model.SupportRequest, error) {
	if !agent.IsAgent {
		return nil, fmt.Errorf("забирать обращения могут только операторы: %w", model.ErrUnauthorized)
	}
	req, err := s.requests.Claim(requestID, agent.ID)
	if err != nil {
		return nil, err
	}
	s.log.Info().Int("request_id", req.ID).Int("agent_id", agent.ID).Msg("обращение забрано")

	customer, err := s.users.GetByID(req.CustomerID)
	if err != nil {
		s.log.Error().Err(err).Int("request_id", req.ID).Msg("клиент обращения не найден")
	} else if err := s.sender.SendText(customer.TelegramID,
		fmt.Sprintf("Хорошие новости! Оператор %s подключился к вашему обращению.", agent.DisplayName())); err != nil {
		s.log.Warn().Err(err).Int64("telegram_id", customer.TelegramID).Msg("не удалось уведомить клиента о подключении")
	}

	history, err := s.messages.ListByRequest(req.ID)
	if err != nil {
		s.log.Error().Err(err).Int("request_id", req.ID).Msg("не удалось получить историю обращения")
	} else if len(history) > 0 {
		text := fmt.Sprintf("История обращения #%d:\n%s", req.ID, renderHistory(history))
		if err := s.sender.SendText(agent.TelegramID, text); err != nil {
			s.log.Warn().Err(err).Int64("telegram_id", agent.TelegramID).Msg("не удалось отправить историю оператору")
		}
	}
	return req, nil
}

// CloseActive закрывает текущее назначенное обращение оператора и уведомляет клиента.
func (s *Requests) CloseActive(agent *model.User) (*model.SupportRequest, error) {
	if !agent.IsAgent {
		return nil, fmt.Errorf("закрывать обращения могут только операторы: %w", model.ErrUnauthorized)
	}
	assigned, err := s.requests.FindAssignedByAgent(agent.ID)
	if err != nil {
		return nil, err
	}
	if len(assigned) == 0 {
		return nil, fmt.Errorf("оператор id=%d: %w", agent.ID, model.ErrNoActiveRequest)
	}
	req, err := s.requests.Close(assigned[0].ID, agent.ID)
	if err != nil {
		return nil, err
	}
	s.log.Info().Int("request_id", req.ID).Int("agent_id", agent.ID).Msg("обращение закрыто")

	customer, err := s.users.GetByID(req.CustomerID)
	if err != nil {
		s.log.Error().Err(err).Int("request_id", req.ID).Msg("клиент обращения не найден")
	} else if err := s.sender.SendText(customer.TelegramID,
		fmt.Sprintf("Ваше обращение закрыто оператором %s. Если нужна помощь, начните новое через /start.", agent.DisplayName())); err != nil {
		s.log.Warn().Err(err).Int64("telegram_id", customer.TelegramID).Msg("не удалось уведомить клиента о закрытии")
	}
	return req, nil
}

// Claimable возвращает обращения оператора: назначенные ему и ожидающие на его языках.
func (s *Requests) Claimable(agent *model.User) (assigned, pending []model.SupportRequest, err error) {
	if !agent.IsAgent {
		return nil, nil, fmt.Errorf("список обращений доступен только операторам: %w", model.ErrUnauthorized)
	}
	if assigned, err = s.requests.FindAssignedByAgent(agent.ID); err != nil {
		return nil, nil, err
	}
	if pending, err = s.requests.FindPendingByLanguages(agent.LanguageList()); err != nil {
		return nil, nil, err
	}
	return assigned, pending, nil
}

// ActiveForCustomer возвращает незакрытое обращение клиента или ErrNoActiveRequest.
func (s *Requests) ActiveForCustomer(customer *model.User) (*model.SupportRequest, error) {
	req, err := s.requests.FindActiveByCustomer(customer.ID)
	if errors.Is(err, model.ErrNotFound) {
		return nil, fmt.Errorf("клиент id=%d: %w", customer.ID, model.ErrNoActiveRequest)
	}
	if err != nil {
		return nil, err
	}
	return req, nil
}

// ListByStatus возвращает обращения в указанном статусе; пустой статус — все.
func (s *Requests) ListByStatus(status string) ([]model.SupportRequest, error) {
	switch status {
	case "", model.StatusPending, model.StatusAssigned, model.StatusClosed:
		return s.requests.ListByStatus(status)
	}
	return nil, fmt.Errorf("неизвестный статус %q: %w", status, model.ErrInvalidState)
}

// History возвращает переписку обращения по возрастанию времени.
func (s *Requests) History(requestID int) ([]model.MessageWithSender, error) {
	if _, err := s.requests.GetByID(requestID); err != nil {
		return nil, err
	}
	return s.messages.ListByRequest(requestID)
}

// renderHistory превращает переписку в текст вида «Имя: реплика» по строке на сообщение.
func renderHistory(history []model.MessageWithSender) string {
	lines := make([]string, len(history))
	for i, msg := range history {
		lines[i] = fmt.Sprintf("%s: %s", msg.SenderName, msg.Text)
	}
	return strings.Join(lines, "\n")
}

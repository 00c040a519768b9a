package service

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"helpdesk/internal/model"
)

// Delivery — исход пересылки реплики.
type Delivery int

const (
	// DeliveryQueued — обращение ещё не забрано, реплика сохранена как история.
	DeliveryQueued Delivery = iota
	// DeliveryForwarded — реплика сохранена и передана собеседнику.
	DeliveryForwarded
)

// Relay пересылает переписку между клиентом и назначенным оператором.
// Порядок всегда «сначала сохранить, потом переслать»: сбой доставки возвращается
// отправителю как ErrDeliveryFailure, но запись не откатывается.
type Relay struct {
	requests RequestStore
	users    UserStore
	messages MessageStore
	sender   Sender
	log      zerolog.Logger
}

// NewRelay создаёт новый сервис пересылки.
func NewRelay(requests RequestStore, users UserStore, messages MessageStore, sender Sender, log zerolog.Logger) *Relay {
	return &Relay{requests: requests, users: users, messages: messages, sender: sender, log: log}
}

// FromCustomer обрабатывает реплику клиента в рамках его активного обращения.
// Пока обращение pending, реплика только сохраняется — пересылать её некому.
func (s *Relay) FromCustomer(customer *model.User, text string) (Delivery, error) {
	req, err := s.requests.FindActiveByCustomer(customer.ID)
	if errors.Is(err, model.ErrNotFound) {
		return 0, fmt.Errorf("клиент id=%d: %w", customer.ID, model.ErrNoActiveRequest)
	}
	if err != nil {
		return 0, err
	}
	if _, err := s.messages.Append(req.ID, customer.ID, text); err != nil {
		return 0, err
	}
	if req.Status == model.StatusPending {
		return DeliveryQueued, nil
	}

	agent, err := s.users.GetByID(*req.AgentID)
	if err != nil {
		return 0, err
	}
	out := fmt.Sprintf("Клиент %s:\n%s", customer.DisplayName(), text)
	if err := s.sender.SendText(agent.TelegramID, out); err != nil {
		s.log.Warn().Err(err).Int("request_id", req.ID).Msg("не удалось переслать реплику оператору")
		return 0, fmt.Errorf("обращение id=%d: %w", req.ID, model.ErrDeliveryFailure)
	}
	return DeliveryForwarded, nil
}

// FromAgent обрабатывает реплику оператора и пересылает её клиенту его текущего
// назначенного обращения.
func (s *Relay) FromAgent(agent *model.User, text string) (Delivery, error) {
	assigned, err := s.requests.FindAssignedByAgent(agent.ID)
	if err != nil {
		return 0, err
	}
	if len(assigned) == 0 {
		return 0, fmt.Errorf("оператор id=%d: %w", agent.ID, model.ErrNoActiveRequest)
	}
	req := assigned[0]
	if _, err := s.messages.Append(req.ID, agent.ID, text); err != nil {
		return 0, err
	}

	customer, err := s.users.GetByID(req.CustomerID)
	if err != nil {
		return 0, err
	}
	out := fmt.Sprintf("Оператор %s:\n%s", agent.DisplayName(), text)
	if err := s.sender.SendText(customer.TelegramID, out); err != nil {
		s.log.Warn().Err(err).Int("request_id", req.ID).Msg("не удалось переслать реплику клиенту")
		return 0, fmt.Errorf("обращение id=%d: %w", req.ID, model.ErrDeliveryFailure)
	}
	return DeliveryForwarded, nil
}

package service

import (
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"helpdesk/internal/model"
)

// excerptLimit — длина фрагмента первого сообщения в уведомлении оператору.
const excerptLimit = 100

// Dispatch подбирает операторов под новое обращение и рассылает им уведомления
// с кнопкой забора. Рассылка — независимые задачи по оператору: сбой одной
// отправки логируется и не мешает остальным, статус обращения не откатывается.
type Dispatch struct {
	users  UserStore
	sender Sender
	log    zerolog.Logger
}

// NewDispatch создаёт новый сервис рассылки.
func NewDispatch(users UserStore, sender Sender, log zerolog.Logger) *Dispatch {
	return &Dispatch{users: users, sender: sender, log: log}
}

// NotifyNewRequest уведомляет подходящих операторов о новом обращении и возвращает
// их число. Подходит доступный оператор, среди языков которого есть язык обращения.
// Если таких нет, клиенту сразу сообщается, что операторов нет; обращение остаётся
// в pending и будет видно операторам через /view_requests.
func (s *Dispatch) NotifyNewRequest(req *model.SupportRequest, customer *model.User, firstText string) (int, error) {
	agents, err := s.users.FindEligibleAgents(req.Language)
	if err != nil {
		return 0, err
	}
	if len(agents) == 0 {
		s.log.Warn().Int("request_id", req.ID).Str("language", req.Language).Msg("нет доступных операторов")
		if err := s.sender.SendText(customer.TelegramID,
			"Сейчас нет доступных операторов для вашего языка. Обращение сохранено, оператор подключится, как только освободится."); err != nil {
			s.log.Warn().Err(err).Int64("telegram_id", customer.TelegramID).Msg("не удалось уведомить клиента об отсутствии операторов")
		}
		return 0, nil
	}

	text := fmt.Sprintf("Новое обращение #%d\nКлиент: %s (ID %d)\nЯзык: %s\nВопрос: «%s»",
		req.ID, customer.DisplayName(), customer.ID, strings.ToUpper(req.Language), excerpt(firstText))

	var wg sync.WaitGroup
	for _, agent := range agents {
		wg.Add(1)
		go func(agent model.User) {
			defer wg.Done()
			if err := s.sender.SendClaimPrompt(agent.TelegramID, req.ID, text); err != nil {
				s.log.Warn().Err(err).Int("agent_id", agent.ID).Int("request_id", req.ID).
					Msg("не удалось уведомить оператора")
				return
			}
			s.log.Info().Int("agent_id", agent.ID).Int("request_id", req.ID).Msg("оператор уведомлён")
		}(agent)
	}
	wg.Wait()
	return len(agents), nil
}

// excerpt обрезает текст до excerptLimit рун с многоточием.
func excerpt(text string) string {
	runes := []rune(text)
	if len(runes) <= excerptLimit {
		return text
	}
	return string(runes[:excerptLimit]) + "..."
}

package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// API — используемая часть tgbotapi.BotAPI; выделена в интерфейс для подмены в тестах.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Sender реализует service.Sender поверх Telegram Bot API.
type Sender struct {
	api API
}

// NewSender создаёт отправителя поверх бота.
func NewSender(api API) *Sender {
	return &Sender{api: api}
}

// SendText отправляет пользователю обычное текстовое сообщение.
func (s *Sender) SendText(telegramID int64, text string) error {
	_, err := s.api.Send(tgbotapi.NewMessage(telegramID, text))
	return err
}

// SendClaimPrompt отправляет текст с inline-кнопкой забора обращения.
func (s *Sender) SendClaimPrompt(telegramID int64, requestID int, text string) error {
	msg := tgbotapi.NewMessage(telegramID, text)
	btn := tgbotapi.NewInlineKeyboardButtonData("Забрать обращение", fmt.Sprintf("bid_%d", requestID))
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(btn))
	_, err := s.api.Send(msg)
	return err
}

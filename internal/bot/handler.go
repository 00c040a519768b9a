package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"helpdesk/internal/model"
	"helpdesk/internal/service"
)

// Handler разбирает обновления Telegram и вызывает сервисы поддержки.
// Каждое обновление — независимая единица работы; ошибки сервисов переводятся
// в подсказки пользователю и никогда не роняют процесс.
type Handler struct {
	api       API
	sender    *Sender
	directory *service.Directory
	requests  *service.Requests
	dispatch  *service.Dispatch
	relay     *service.Relay
	sessions  *service.Sessions
	log       zerolog.Logger
}

// NewHandler создаёт обработчик обновлений.
func NewHandler(api API, sender *Sender, directory *service.Directory, requests *service.Requests,
	dispatch *service.Dispatch, relay *service.Relay, sessions *service.Sessions, log zerolog.Logger) *Handler {
	return &Handler{
		api:       api,
		sender:    sender,
		directory: directory,
		requests:  requests,
		dispatch:  dispatch,
		relay:     relay,
		sessions:  sessions,
		log:       log,
	}
}

// HandleUpdate обрабатывает одно обновление: нажатие кнопки или сообщение.
func (h *Handler) HandleUpdate(update tgbotapi.Update) {
	if cq := update.CallbackQuery; cq != nil {
		h.handleCallback(cq)
		return
	}
	if msg := update.Message; msg != nil && msg.Text != "" {
		h.handleMessage(msg)
	}
}

func (h *Handler) handleCallback(cq *tgbotapi.CallbackQuery) {
	// Снимаем «часики» с кнопки независимо от исхода.
	if _, err := h.api.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
		h.log.Warn().Err(err).Msg("не удалось подтвердить callback")
	}

	user, err := h.directory.Identify(cq.From.ID, cq.From.UserName, cq.From.FirstName, cq.From.LastName)
	if err != nil {
		h.log.Error().Err(err).Int64("telegram_id", cq.From.ID).Msg("не удалось определить пользователя")
		return
	}

	data := cq.Data
	switch {
	case strings.HasPrefix(data, "lang_"):
		h.handleLanguageChosen(cq, user, strings.TrimPrefix(data, "lang_"))
	case strings.HasPrefix(data, "bid_"):
		requestID, err := strconv.Atoi(strings.TrimPrefix(data, "bid_"))
		if err != nil {
			h.log.Warn().Str("data", data).Msg("некорректный callback забора")
			return
		}
		h.handleBid(cq, user, requestID)
	}
}

func (h *Handler) handleLanguageChosen(cq *tgbotapi.CallbackQuery, user *model.User, language string) {
	if err := h.sessions.ChooseLanguage(user.TelegramID, language); err != nil {
		h.editOrSend(cq, "Чтобы выбрать язык заново, начните новое обращение через /start.")
		return
	}
	h.editOrSend(cq, fmt.Sprintf("Вы выбрали %s. Опишите ваш вопрос одним сообщением.", strings.ToUpper(language)))
}

// handleBid разрешает забор обращения. Проигравшему гонку всегда отвечаем явно.
func (h *Handler) handleBid(cq *tgbotapi.CallbackQuery, user *model.User, requestID int) {
	req, err := h.requests.Claim(requestID, user)
	switch {
	case err == nil:
		h.editOrSend(cq, fmt.Sprintf("Вы забрали обращение #%d. История переписки отправлена отдельным сообщением.", req.ID))
	case errors.Is(err, model.ErrAlreadyClaimed):
		h.editOrSend(cq, "Это обращение уже забрал другой оператор.")
	case errors.Is(err, model.ErrNotFound):
		h.editOrSend(cq, "Такого обращения не существует.")
	case errors.Is(err, model.ErrUnauthorized):
		h.editOrSend(cq, "Забирать обращения могут только операторы. Зарегистрируйтесь через /register_agent.")
	default:
		h.log.Error().Err(err).Int("request_id", requestID).Msg("сбой забора обращения")
		h.editOrSend(cq, "Не удалось забрать обращение. Попробуйте позже.")
	}
}

func (h *Handler) handleMessage(msg *tgbotapi.Message) {
	user, err := h.directory.Identify(msg.From.ID, msg.From.UserName, msg.From.FirstName, msg.From.LastName)
	if err != nil {
		h.log.Error().Err(err).Int64("telegram_id", msg.From.ID).Msg("не удалось определить пользователя")
		return
	}
	chatID := msg.Chat.ID

	if msg.IsCommand() {
		h.handleCommand(msg, user, chatID)
		return
	}
	if user.IsAgent {
		h.handleAgentText(user, chatID, msg.Text)
		return
	}
	h.handleCustomerText(user, chatID, msg.Text)
}

func (h *Handler) handleCommand(msg *tgbotapi.Message, user *model.User, chatID int64) {
	switch msg.Command() {
	case "start":
		h.handleStart(user, chatID)
	case "register_agent":
		h.handleRegisterAgent(user, chatID)
	case "agent_languages":
		h.handleAgentLanguages(user, chatID, msg.CommandArguments())
	case "agent_status":
		h.handleAgentStatus(user, chatID)
	case "close_request":
		h.handleCloseRequest(user, chatID)
	case "view_requests":
		h.handleViewRequests(user, chatID)
	}
}

func (h *Handler) handleStart(user *model.User, chatID int64) {
	if user.IsAgent {
		status := "доступны"
		if !user.IsAvailable {
			status = "недоступны"
		}
		h.reply(chatID, fmt.Sprintf(
			"Здравствуйте, оператор %s! Вы сейчас %s. Команды: /agent_status — сменить доступность, /agent_languages — языки, /view_requests — обращения.",
			user.DisplayName(), status))
		return
	}

	h.sessions.BeginLanguageSelection(user.TelegramID)
	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("English 🇬🇧", "lang_en")),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Español 🇪🇸", "lang_es")),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Français 🇫🇷", "lang_fr")),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Deutsch 🇩🇪", "lang_de")),
	)
	out := tgbotapi.NewMessage(chatID, "Здравствуйте! Выберите язык обращения:")
	out.ReplyMarkup = keyboard
	if _, err := h.api.Send(out); err != nil {
		h.log.Warn().Err(err).Int64("chat_id", chatID).Msg("не удалось отправить выбор языка")
	}
}

func (h *Handler) handleRegisterAgent(user *model.User, chatID int64) {
	err := h.directory.RegisterAgent(user)
	switch {
	case err == nil:
		h.reply(chatID, "Вы зарегистрированы оператором поддержки! Укажите языки через /agent_languages (например, /agent_languages en,es) и управляйте доступностью через /agent_status.")
	case errors.Is(err, model.ErrInvalidState):
		h.reply(chatID, "Вы уже зарегистрированы оператором.")
	default:
		h.log.Error().Err(err).Int("user_id", user.ID).Msg("сбой регистрации оператора")
		h.reply(chatID, "Не удалось выполнить регистрацию. Попробуйте позже.")
	}
}

func (h *Handler) handleAgentLanguages(user *model.User, chatID int64, args string) {
	if strings.TrimSpace(args) == "" {
		current := user.Languages
		if current == "" {
			current = "не заданы"
		}
		h.reply(chatID, fmt.Sprintf("Использование: /agent_languages <код1,код2,...>\nВаши текущие языки: %s", current))
		return
	}
	languages, err := h.directory.SetLanguages(user, args)
	switch {
	case err == nil:
		h.reply(chatID, fmt.Sprintf("Ваши языки сохранены: %s", languages))
	case errors.Is(err, model.ErrUnauthorized):
		h.reply(chatID, "Сначала зарегистрируйтесь оператором через /register_agent.")
	case errors.Is(err, model.ErrInvalidState):
		h.reply(chatID, "Список языков пуст. Пример: /agent_languages en,es")
	default:
		h.log.Error().Err(err).Int("user_id", user.ID).Msg("сбой сохранения языков")
		h.reply(chatID, "Не удалось сохранить языки. Попробуйте позже.")
	}
}

func (h *Handler) handleAgentStatus(user *model.User, chatID int64) {
	available, err := h.directory.ToggleAvailability(user)
	switch {
	case err == nil:
		status := "доступен"
		if !available {
			status = "недоступен"
		}
		h.reply(chatID, fmt.Sprintf("Ваш статус: %s", status))
	case errors.Is(err, model.ErrUnauthorized):
		h.reply(chatID, "Вы не зарегистрированы оператором.")
	default:
		h.log.Error().Err(err).Int("user_id", user.ID).Msg("сбой смены доступности")
		h.reply(chatID, "Не удалось сменить статус. Попробуйте позже.")
	}
}

func (h *Handler) handleCloseRequest(user *model.User, chatID int64) {
	req, err := h.requests.CloseActive(user)
	switch {
	case err == nil:
		h.reply(chatID, fmt.Sprintf("Обращение #%d закрыто.", req.ID))
	case errors.Is(err, model.ErrUnauthorized):
		h.reply(chatID, "Закрывать обращения могут только операторы.")
	case errors.Is(err, model.ErrNoActiveRequest):
		h.reply(chatID, "У вас нет назначенного обращения, которое можно закрыть.")
	case errors.Is(err, model.ErrInvalidState):
		h.reply(chatID, "Обращение уже закрыто.")
	default:
		h.log.Error().Err(err).Int("user_id", user.ID).Msg("сбой закрытия обращения")
		h.reply(chatID, "Не удалось закрыть обращение. Попробуйте позже.")
	}
}

func (h *Handler) handleViewRequests(user *model.User, chatID int64) {
	assigned, pending, err := h.requests.Claimable(user)
	if errors.Is(err, model.ErrUnauthorized) {
		h.reply(chatID, "Команда доступна только операторам.")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Int("user_id", user.ID).Msg("сбой списка обращений")
		h.reply(chatID, "Не удалось получить список обращений. Попробуйте позже.")
		return
	}

	var b strings.Builder
	b.WriteString("Ваши назначенные обращения:\n")
	if len(assigned) == 0 {
		b.WriteString("Нет.\n")
	}
	for _, req := range assigned {
		line := fmt.Sprintf("- #%d, язык %s", req.ID, strings.ToUpper(req.Language))
		if customer, err := h.directory.Get(req.CustomerID); err == nil {
			line += fmt.Sprintf(", клиент %s", customer.DisplayName())
		}
		b.WriteString(line + "\n")
	}
	h.reply(chatID, b.String())

	if len(pending) == 0 {
		h.reply(chatID, "Ожидающих обращений на ваших языках нет.")
		return
	}
	for _, req := range pending {
		text := fmt.Sprintf("Ожидающее обращение #%d\nЯзык: %s\nСоздано: %s",
			req.ID, strings.ToUpper(req.Language), req.CreatedAt.Format("2006-01-02 15:04:05"))
		if customer, err := h.directory.Get(req.CustomerID); err == nil {
			text += fmt.Sprintf("\nКлиент: %s", customer.DisplayName())
		}
		if err := h.sender.SendClaimPrompt(chatID, req.ID, text); err != nil {
			h.log.Warn().Err(err).Int("request_id", req.ID).Msg("не удалось показать ожидающее обращение")
		}
	}
}

// handleAgentText пересылает реплику оператора клиенту его текущего обращения.
func (h *Handler) handleAgentText(user *model.User, chatID int64, text string) {
	_, err := h.relay.FromAgent(user, text)
	switch {
	case err == nil:
	case errors.Is(err, model.ErrNoActiveRequest):
		h.reply(chatID, "Вы сейчас не назначены ни на одно обращение. Посмотрите /view_requests.")
	case errors.Is(err, model.ErrDeliveryFailure):
		h.reply(chatID, "Сообщение сохранено, но доставить его клиенту не удалось. Попробуйте ещё раз.")
	default:
		h.log.Error().Err(err).Int("user_id", user.ID).Msg("сбой пересылки реплики оператора")
		h.reply(chatID, "Внутренняя ошибка. Попробуйте позже.")
	}
}

// handleCustomerText — реплика клиента: пересылка в активное обращение,
// либо создание нового, если диалог дошёл до текста вопроса.
func (h *Handler) handleCustomerText(user *model.User, chatID int64, text string) {
	delivery, err := h.relay.FromCustomer(user, text)
	switch {
	case err == nil:
		if delivery == service.DeliveryQueued {
			h.reply(chatID, "Ваше обращение ещё ждёт оператора. Сообщение сохранено и будет передано ему.")
		}
	case errors.Is(err, model.ErrNoActiveRequest):
		h.openRequest(user, chatID, text)
	case errors.Is(err, model.ErrDeliveryFailure):
		h.reply(chatID, "Сообщение сохранено, но доставить его оператору не удалось. Попробуйте ещё раз.")
	default:
		h.log.Error().Err(err).Int("user_id", user.ID).Msg("сбой пересылки реплики клиента")
		h.reply(chatID, "Внутренняя ошибка. Попробуйте позже.")
	}
}

func (h *Handler) openRequest(user *model.User, chatID int64, text string) {
	language, ok := h.sessions.AwaitingIssue(user.TelegramID)
	if !ok {
		h.reply(chatID, "Чтобы начать обращение, отправьте /start и выберите язык.")
		return
	}

	req, err := h.requests.Open(user, language, text)
	if errors.Is(err, model.ErrRequestExists) {
		// Проигрыш гонки двух первых сообщений: активное обращение уже появилось.
		h.sessions.Clear(user.TelegramID)
		h.reply(chatID, "У вас уже есть активное обращение. Просто продолжайте писать сюда.")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Int("user_id", user.ID).Msg("сбой создания обращения")
		h.reply(chatID, "Не удалось создать обращение. Попробуйте позже.")
		return
	}

	h.sessions.Clear(user.TelegramID)
	h.reply(chatID, "Спасибо. Ищем свободного оператора для вашего обращения.")
	if _, err := h.dispatch.NotifyNewRequest(req, user, text); err != nil {
		h.log.Error().Err(err).Int("request_id", req.ID).Msg("сбой рассылки операторам")
	}
}

func (h *Handler) reply(chatID int64, text string) {
	if _, err := h.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		h.log.Warn().Err(err).Int64("chat_id", chatID).Msg("не удалось отправить ответ")
	}
}

// editOrSend меняет текст сообщения с кнопкой, а если оно недоступно — шлёт новое.
func (h *Handler) editOrSend(cq *tgbotapi.CallbackQuery, text string) {
	if cq.Message != nil {
		edit := tgbotapi.NewEditMessageText(cq.Message.Chat.ID, cq.Message.MessageID, text)
		if _, err := h.api.Send(edit); err == nil {
			return
		}
	}
	if err := h.sender.SendText(cq.From.ID, text); err != nil {
		h.log.Warn().Err(err).Int64("telegram_id", cq.From.ID).Msg("не удалось ответить на callback")
	}
}

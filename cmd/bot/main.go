package main

import (
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"helpdesk/internal/bot"
	"helpdesk/internal/config"
	"helpdesk/internal/logger"
	"helpdesk/internal/repository"
	"helpdesk/internal/service"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log := logger.New(cfg)

	if cfg.BotToken == "" {
		log.Fatal().Msg("не указан токен бота (BOT_TOKEN)")
	}

	db, err := sqlx.Connect("postgres", cfg.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("не удалось подключиться к базе данных")
	}
	if err := repository.InitSchema(db); err != nil {
		log.Fatal().Err(err).Msg("не удалось инициализировать схему")
	}

	// Репозитории и сервисы
	userRepo := repository.NewUserRepository(db)
	requestRepo := repository.NewRequestRepository(db)
	messageRepo := repository.NewMessageRepository(db)

	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		log.Fatal().Err(err).Msg("не удалось инициализировать бота")
	}
	log.Info().Str("username", api.Self.UserName).Msg("бот поддержки запущен")

	sender := bot.NewSender(api)
	directory := service.NewDirectory(userRepo, log)
	requests := service.NewRequests(requestRepo, userRepo, messageRepo, sender, log)
	dispatch := service.NewDispatch(userRepo, sender, log)
	relay := service.NewRelay(requestRepo, userRepo, messageRepo, sender, log)
	sessions := service.NewSessions()

	handler := bot.NewHandler(api, sender, directory, requests, dispatch, relay, sessions, log)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	for update := range api.GetUpdatesChan(u) {
		handler.HandleUpdate(update)
	}
}

package main

import (
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"helpdesk/internal/config"
	"helpdesk/internal/handler"
	"helpdesk/internal/logger"
	"helpdesk/internal/repository"
	"helpdesk/internal/service"
)

// noopSender — заглушка транспорта: служебный API ничего не рассылает.
type noopSender struct{}

func (noopSender) SendText(int64, string) error             { return nil }
func (noopSender) SendClaimPrompt(int64, int, string) error { return nil }

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log := logger.New(cfg)

	db, err := sqlx.Connect("postgres", cfg.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("не удалось подключиться к базе данных")
	}
	if err := repository.InitSchema(db); err != nil {
		log.Fatal().Err(err).Msg("не удалось инициализировать схему")
	}

	userRepo := repository.NewUserRepository(db)
	requestRepo := repository.NewRequestRepository(db)
	messageRepo := repository.NewMessageRepository(db)

	directory := service.NewDirectory(userRepo, log)
	requests := service.NewRequests(requestRepo, userRepo, messageRepo, noopSender{}, log)

	h := handler.NewHandler(directory, requests)
	router := gin.Default()
	api := router.Group("/api")
	{
		api.GET("/requests", h.ListRequests)
		api.GET("/requests/:id/messages", h.ListRequestMessages)
		api.GET("/agents", h.ListAgents)
	}
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	if err := router.Run(":" + cfg.APIPort); err != nil {
		log.Fatal().Err(err).Msg("ошибка запуска сервера")
	}
}

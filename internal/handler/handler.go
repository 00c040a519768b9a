package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"helpdesk/internal/model"
	"helpdesk/internal/service"
)

// Handler структурирует зависимости сервисов для служебного HTTP API.
// API только читает: управление обращениями идёт исключительно через бота.
type Handler struct {
	Directory *service.Directory
	Requests  *service.Requests
}

// NewHandler создаёт новый Handler с внедрением сервисов.
func NewHandler(directory *service.Directory, requests *service.Requests) *Handler {
	return &Handler{Directory: directory, Requests: requests}
}

// ListRequests обработчик GET /api/requests?status= — список обращений.
func (h *Handler) ListRequests(c *gin.Context) {
	requests, err := h.Requests.ListByStatus(c.Query("status"))
	if errors.Is(err, model.ErrInvalidState) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Неизвестный статус"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось получить обращения"})
		return
	}
	c.JSON(http.StatusOK, requests)
}

// ListRequestMessages обработчик GET /api/requests/:id/messages — переписка обращения.
func (h *Handler) ListRequestMessages(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Некорректный идентификатор обращения"})
		return
	}
	messages, err := h.Requests.History(id)
	if errors.Is(err, model.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Обращение не найдено"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось получить переписку"})
		return
	}
	c.JSON(http.StatusOK, messages)
}

// ListAgents обработчик GET /api/agents — список операторов.
func (h *Handler) ListAgents(c *gin.Context) {
	agents, err := h.Directory.Agents()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось получить операторов"})
		return
	}
	c.JSON(http.StatusOK, agents)
}

package handler

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"

	"github.com/yourusername/livequiz-api/internal/service"
	"github.com/yourusername/livequiz-api/internal/websocket"
)

const statsTimeout = 2 * time.Second

// WSHandler обрабатывает WebSocket соединения комнат викторин
type WSHandler struct {
	hub           *websocket.Hub
	manager       *websocket.Manager
	participation *service.ParticipationService
	upgrader      gorillaws.Upgrader
}

// NewWSHandler создает новый обработчик WebSocket.
// allowedOrigins синхронизирован с настройкой CORS.
func NewWSHandler(
	hub *websocket.Hub,
	manager *websocket.Manager,
	participation *service.ParticipationService,
	allowedOrigins []string,
) *WSHandler {
	h := &WSHandler{
		hub:           hub,
		manager:       manager,
		participation: participation,
	}
	h.upgrader = gorillaws.Upgrader{
		ReadBufferSize:    4096,
		WriteBufferSize:   4096,
		CheckOrigin:       originChecker(allowedOrigins),
		EnableCompression: true,
	}

	// Обработчики сообщений регистрируются один раз
	h.registerMessageHandlers()
	return h
}

func originChecker(allowedOrigins []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")

		// Пустой Origin - не браузерный клиент
		if origin == "" {
			return true
		}
		for _, allowed := range allowedOrigins {
			if allowed == "*" || origin == allowed {
				return true
			}
		}

		log.Printf("[WSHandler] rejected unauthorized origin: %s", origin)
		return false
	}
}

// HandleConnection подключает клиента к комнате викторины
func (h *WSHandler) HandleConnection(c *gin.Context) {
	quizID := c.MustGet("quizID").(uint)

	// Комнаты открываются только для существующих викторин
	if _, err := h.participation.QuizMetadata(c.Request.Context(), quizID); err != nil {
		handleQuizError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrader уже ответил клиенту
		log.Printf("[WSHandler] Error upgrading connection for quiz #%d: %v", quizID, err)
		return
	}

	client := websocket.NewClient(h.hub, conn, quizID)
	if !client.Start(h.manager.HandleMessage) {
		log.Printf("[WSHandler] Client %s was not admitted to quiz #%d", client.ConnectionID, quizID)
	}
}

// registerMessageHandlers регистрирует обработчики входящих сообщений
func (h *WSHandler) registerMessageHandlers() {
	h.manager.RegisterHandler(websocket.MessagePing, func(_ json.RawMessage, client *websocket.Client) error {
		return h.manager.SendEvent(client, websocket.EventPong, map[string]int64{
			"timestamp": time.Now().UnixMilli(),
		})
	})

	// Статистика по запросу; ошибка хранилища не закрывает соединение
	h.manager.RegisterHandler(websocket.MessageStatsRequest, func(_ json.RawMessage, client *websocket.Client) error {
		ctx, cancel := context.WithTimeout(context.Background(), statsTimeout)
		defer cancel()

		stats, err := h.participation.Stats(ctx, client.QuizID)
		if err != nil {
			log.Printf("[WSHandler] WARNING: stats for quiz #%d failed: %v", client.QuizID, err)
			h.manager.SendErrorToClient(client, "stats_unavailable", "Statistics are temporarily unavailable")
			return nil
		}
		return h.manager.SendEvent(client, websocket.EventStats, stats)
	})
}

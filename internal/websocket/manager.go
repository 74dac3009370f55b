package websocket

import (
	"encoding/json"
	"fmt"
	"log"
)

// Event представляет структуру WebSocket-сообщения
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// incomingEvent - входящее сообщение с необработанными данными
type incomingEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Manager обрабатывает входящие сообщения и рассылает события в комнаты викторин
type Manager struct {
	hub            *Hub
	messageHandler map[string]func(data json.RawMessage, client *Client) error
}

// NewManager создает новый менеджер WebSocket
func NewManager(hub *Hub) *Manager {
	return &Manager{
		hub:            hub,
		messageHandler: make(map[string]func(data json.RawMessage, client *Client) error),
	}
}

// RegisterHandler регистрирует обработчик для определенного типа сообщений
func (m *Manager) RegisterHandler(eventType string, handler func(data json.RawMessage, client *Client) error) {
	m.messageHandler[eventType] = handler
}

// HandleMessage обрабатывает входящее сообщение от клиента.
// Возвращает error, если соединение нужно закрыть.
func (m *Manager) HandleMessage(message []byte, client *Client) error {
	var event incomingEvent
	if err := json.Unmarshal(message, &event); err != nil {
		m.SendErrorToClient(client, "invalid_message_format", "Invalid JSON format")
		return err
	}

	handler, ok := m.messageHandler[event.Type]
	if !ok {
		// Неизвестный тип не закрывает соединение
		m.SendErrorToClient(client, "unknown_message_type", fmt.Sprintf("Unknown message type: %s", event.Type))
		return nil
	}
	return handler(event.Data, client)
}

// SendEvent отправляет событие одному клиенту
func (m *Manager) SendEvent(client *Client, eventType string, data interface{}) error {
	payload, err := json.Marshal(Event{Type: eventType, Data: data})
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", eventType, err)
	}
	if !m.hub.SendToClient(client, payload) {
		log.Printf("[WebSocketManager] WARNING: event %s not delivered to client %s", eventType, client.ConnectionID)
	}
	return nil
}

// SendErrorToClient отправляет сообщение об ошибке, не закрывая соединение
func (m *Manager) SendErrorToClient(client *Client, code string, message string) {
	data := map[string]string{"code": code, "message": message}
	if err := m.SendEvent(client, EventError, data); err != nil {
		log.Printf("[WebSocketManager] ERROR sending error to client %s: %v", client.ConnectionID, err)
	}
}

// BroadcastEventToQuiz отправляет событие всем клиентам комнаты викторины
func (m *Manager) BroadcastEventToQuiz(quizID uint, eventType string, data interface{}) error {
	payload, err := json.Marshal(Event{Type: eventType, Data: data})
	if err != nil {
		return fmt.Errorf("failed to marshal event for quiz %d: %w", quizID, err)
	}
	m.hub.BroadcastToQuiz(quizID, payload)
	return nil
}

// ClientCount возвращает количество подключенных клиентов
func (m *Manager) ClientCount() int {
	return m.hub.ClientCount()
}

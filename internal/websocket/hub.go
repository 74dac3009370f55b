package websocket

import (
	"context"
	"log"
	"sync"

	"github.com/yourusername/livequiz-api/internal/metrics"
)

const (
	// Размер очереди рассылок
	broadcastQueueSize = 256

	// DefaultMaxClientsPerRoom ограничивает число соединений в комнате одной викторины
	DefaultMaxClientsPerRoom = 5000
)

type roomMessage struct {
	quizID  uint
	payload []byte
}

// Hub хранит комнаты викторин и рассылает в них события.
// Все изменения комнат выполняются в горутине Run.
type Hub struct {
	rooms map[uint]map[*Client]struct{}
	mu    sync.RWMutex

	registerCh   chan *Client
	unregisterCh chan *Client
	broadcast    chan roomMessage
	done         chan struct{}

	maxClientsPerRoom int
}

// NewHub создает хаб. maxClientsPerRoom <= 0 означает значение по умолчанию.
func NewHub(maxClientsPerRoom int) *Hub {
	if maxClientsPerRoom <= 0 {
		maxClientsPerRoom = DefaultMaxClientsPerRoom
	}
	return &Hub{
		rooms:             make(map[uint]map[*Client]struct{}),
		registerCh:        make(chan *Client),
		unregisterCh:      make(chan *Client),
		broadcast:         make(chan roomMessage, broadcastQueueSize),
		done:              make(chan struct{}),
		maxClientsPerRoom: maxClientsPerRoom,
	}
}

// Run обслуживает регистрацию и рассылку до отмены контекста
func (h *Hub) Run(ctx context.Context) {
	log.Println("[WebSocketHub] Started")
	for {
		select {
		case client := <-h.registerCh:
			h.handleRegister(client)
		case client := <-h.unregisterCh:
			h.handleUnregister(client)
		case msg := <-h.broadcast:
			h.handleBroadcast(msg)
		case <-ctx.Done():
			close(h.done)
			h.closeAll()
			log.Println("[WebSocketHub] Stopped")
			return
		}
	}
}

func (h *Hub) register(client *Client) bool {
	select {
	case h.registerCh <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) unregister(client *Client) {
	select {
	case h.unregisterCh <- client:
	case <-h.done:
	}
}

func (h *Hub) handleRegister(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.QuizID]
	if !ok {
		room = make(map[*Client]struct{})
		h.rooms[client.QuizID] = room
	}
	if len(room) >= h.maxClientsPerRoom {
		h.mu.Unlock()
		client.registered <- false
		return
	}
	room[client] = struct{}{}
	h.mu.Unlock()

	metrics.WSConnected()
	client.registered <- true
}

func (h *Hub) handleUnregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(client)
}

func (h *Hub) removeLocked(client *Client) {
	room, ok := h.rooms[client.QuizID]
	if !ok {
		return
	}
	if _, ok := room[client]; !ok {
		return
	}
	delete(room, client)
	if len(room) == 0 {
		delete(h.rooms, client.QuizID)
	}
	client.closeSend()
	metrics.WSDisconnected()
}

func (h *Hub) handleBroadcast(msg roomMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.rooms[msg.quizID] {
		if client.Send(msg.payload) {
			continue
		}
		// Медленный клиент отключается после нескольких переполнений подряд
		if client.bufferWarnings.Add(1) >= maxBufferWarnings {
			log.Printf("[WebSocketHub] Client %s is too slow, disconnecting from quiz #%d", client.ConnectionID, msg.quizID)
			h.removeLocked(client)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, room := range h.rooms {
		for client := range room {
			h.removeLocked(client)
		}
	}
}

// BroadcastToQuiz ставит сообщение в очередь рассылки комнаты.
// При переполненной очереди сообщение отбрасывается.
func (h *Hub) BroadcastToQuiz(quizID uint, payload []byte) bool {
	select {
	case h.broadcast <- roomMessage{quizID: quizID, payload: payload}:
		return true
	default:
		log.Printf("[WebSocketHub] WARNING: broadcast queue is full, event for quiz #%d dropped", quizID)
		return false
	}
}

// RoomSize возвращает число соединений в комнате викторины
func (h *Hub) RoomSize(quizID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[quizID])
}

// ClientCount возвращает общее число соединений
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	total := 0
	for _, room := range h.rooms {
		total += len(room)
	}
	return total
}

// SendToClient отправляет сообщение одному клиенту.
// Канал клиента закрывается только под блокировкой на запись.
func (h *Hub) SendToClient(client *Client, payload []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return client.Send(payload)
}

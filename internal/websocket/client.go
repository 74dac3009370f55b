package websocket

import (
	"bytes"
	"fmt"
	"log"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	// Время, которое разрешено писать сообщение клиенту.
	writeWait = 10 * time.Second

	// Время ожидания следующего сообщения или pong от клиента.
	pongWait = 30 * time.Second

	// Периодичность отправки ping-сообщений клиенту.
	pingPeriod = (pongWait * 9) / 10

	// Максимальный размер входящего сообщения
	maxMessageSize = 512

	// Размер буфера канала отправки
	defaultClientBufferSize = 64

	// Количество переполнений буфера подряд, после которого клиент отключается
	maxBufferWarnings = 3

	// Время ожидания регистрации в хабе
	registerTimeout = 5 * time.Second

	// Входящие сообщения клиента: устойчивая частота и всплеск
	inboundMessageRate  = rate.Limit(5)
	inboundMessageBurst = 10
)

var (
	newline = []byte{'\n'}
	space   = []byte{' '}
)

// MessageHandler обрабатывает входящее сообщение клиента.
// Ошибка закрывает соединение.
type MessageHandler func(message []byte, client *Client) error

// Client является посредником между WebSocket соединением и комнатой викторины
type Client struct {
	// Уникальный ID соединения
	ConnectionID string

	// Викторина, к комнате которой подключен клиент
	QuizID uint

	hub  *Hub
	conn *websocket.Conn

	// Буферизованный канал исходящих сообщений
	send       chan []byte
	sendClosed atomic.Bool

	// Результат регистрации в хабе
	registered chan bool

	bufferWarnings atomic.Int32

	// Ограничитель входящих сообщений (client:stats читает хранилище)
	inbound *rate.Limiter
}

// NewClient создает клиента комнаты quizID
func NewClient(hub *Hub, conn *websocket.Conn, quizID uint) *Client {
	return &Client{
		ConnectionID: uuid.New().String(),
		QuizID:       quizID,
		hub:          hub,
		conn:         conn,
		send:         make(chan []byte, defaultClientBufferSize),
		registered:   make(chan bool, 1),
		inbound:      rate.NewLimiter(inboundMessageRate, inboundMessageBurst),
	}
}

// Start регистрирует клиента в хабе и запускает горутины чтения и записи.
// Возвращает false, если комната переполнена или хаб остановлен.
func (c *Client) Start(handler MessageHandler) bool {
	if !c.hub.register(c) {
		c.conn.Close()
		return false
	}

	select {
	case ok := <-c.registered:
		if !ok {
			log.Printf("[WebSocket] Client %s rejected by quiz room #%d", c.ConnectionID, c.QuizID)
			c.conn.Close()
			return false
		}
	case <-time.After(registerTimeout):
		log.Printf("[WebSocket] Timeout waiting for client %s registration", c.ConnectionID)
		c.conn.Close()
		return false
	}

	go c.writePump()
	go c.readPump(handler)
	return true
}

// Send ставит сообщение в очередь без блокировки.
// false - буфер переполнен или канал закрыт.
func (c *Client) Send(message []byte) bool {
	if c.sendClosed.Load() {
		return false
	}
	select {
	case c.send <- message:
		c.bufferWarnings.Store(0)
		return true
	default:
		return false
	}
}

// closeSend безопасно закрывает канал send (только один раз)
func (c *Client) closeSend() bool {
	if c.sendClosed.CompareAndSwap(false, true) {
		close(c.send)
		return true
	}
	return false
}

// readPump читает сообщения клиента и передает их обработчику
func (c *Client) readPump(handler MessageHandler) {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Printf("[WebSocket] Read error (Conn: %s): %v", c.ConnectionID, err)
			}
			return
		}

		if !c.allowInbound() {
			log.Printf("[WebSocket] Dropping message from %s: inbound rate exceeded", c.ConnectionID)
			continue
		}

		if err := safeHandleMessage(message, c, handler); err != nil {
			log.Printf("[WebSocket] Handler error (Conn: %s): %v. Closing connection.", c.ConnectionID, err)
			return
		}
	}
}

// allowInbound расходует токен ограничителя входящих сообщений
func (c *Client) allowInbound() bool {
	return c.inbound.Allow()
}

// safeHandleMessage вызывает обработчик с recover
func safeHandleMessage(message []byte, client *Client, handler MessageHandler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[WebSocket] PANIC recovered in message handler (Conn: %s): %v\n%s",
				client.ConnectionID, r, string(debug.Stack()))
			err = fmt.Errorf("panic recovered: %v", r)
		}
	}()
	if handler == nil {
		return nil
	}
	message = bytes.TrimSpace(bytes.Replace(message, newline, space, -1))
	return handler(message, client)
}

// writePump отправляет сообщения из канала send и ping-и
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Хаб закрыл канал
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			if _, err := w.Write(message); err != nil {
				log.Printf("[WebSocket] Write error (Conn: %s): %v", c.ConnectionID, err)
			}
			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

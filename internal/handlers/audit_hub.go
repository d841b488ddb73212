// reportcard-crm/internal/handlers/audit_hub.go
//
// Живая лента аудита по websocket: админы школы видят изменения своих
// данных сразу после записи в ChangeLog.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"reportcard-crm/internal/audit"
	"reportcard-crm/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Для разработки разрешаем все источники
	},
}

// GlobalAuditHub - единственный экземпляр хаба для всего приложения
var GlobalAuditHub = NewAuditHub()

type auditEvent struct {
	Type    string           `json:"type"`
	Payload models.ChangeLog `json:"payload"`
}

type auditClient struct {
	hub      *AuditHub
	conn     *websocket.Conn
	send     chan []byte
	userID   uint
	schoolID *uint
	isSuper  bool
}

type AuditHub struct {
	clients    map[uint]*auditClient
	events     chan models.ChangeLog
	register   chan *auditClient
	unregister chan *auditClient
	mu         sync.Mutex
}

func NewAuditHub() *AuditHub {
	return &AuditHub{
		events:     make(chan models.ChangeLog, 64),
		register:   make(chan *auditClient),
		unregister: make(chan *auditClient),
		clients:    make(map[uint]*auditClient),
	}
}

// Publish ставит событие аудита в очередь рассылки. Вызывается из колбэков
// GORM, поэтому никогда не блокируется: при переполненной очереди событие
// теряется, журнал в БД остаётся полным.
func (h *AuditHub) Publish(entry models.ChangeLog) {
	select {
	case h.events <- entry:
	default:
	}
}

func (h *AuditHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.userID] = client
			h.mu.Unlock()
			slog.Info("Audit client registered", "userID", client.userID)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.userID]; ok {
				delete(h.clients, client.userID)
				close(client.send)
			}
			h.mu.Unlock()
			slog.Info("Audit client unregistered", "userID", client.userID)

		case entry := <-h.events:
			h.broadcast(entry)
		}
	}
}

// broadcast рассылает событие клиентам той же школы; super_admin получает всё.
func (h *AuditHub) broadcast(entry models.ChangeLog) {
	raw, err := json.Marshal(auditEvent{Type: "changelog", Payload: entry})
	if err != nil {
		slog.Error("Failed to marshal audit event", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for userID, client := range h.clients {
		if !client.isSuper {
			if client.schoolID == nil || entry.SchoolID == nil || *client.schoolID != *entry.SchoolID {
				continue
			}
		}
		select {
		case client.send <- raw:
		default:
			close(client.send)
			delete(h.clients, userID)
		}
	}
}

// readPump только следит за закрытием соединения: лента аудита односторонняя.
func (c *auditClient) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("Unexpected websocket close error", "error", err)
			}
			break
		}
	}
}

func (c *auditClient) writePump() {
	defer func() {
		c.conn.Close()
	}()
	for message := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			slog.Error("Failed to write message to websocket", "error", err)
			return
		}
	}
}

// AuditWSEndpoint подключает админа к живой ленте аудита его школы.
func AuditWSEndpoint(c *gin.Context) {
	userID := currentUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}

	client := &auditClient{
		hub:      GlobalAuditHub,
		conn:     conn,
		send:     make(chan []byte, 256),
		userID:   userID,
		schoolID: activeSchoolID(c),
		isSuper:  currentRole(c) == models.RoleSuperAdmin,
	}
	client.hub.register <- client

	go client.writePump()
	go client.readPump()
}

// ConnectAuditFeed привязывает хаб к плагину аудита и запускает рассылку.
func ConnectAuditFeed() {
	audit.SetNotifier(GlobalAuditHub.Publish)
	go GlobalAuditHub.Run()
}

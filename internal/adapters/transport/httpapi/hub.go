package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/bnema/zalo-accounts/internal/domain"
	"github.com/bnema/zalo-accounts/internal/goroutine"
	"github.com/bnema/zalo-accounts/internal/ports"
)

const (
	wsSendBuffer   = 64
	wsWriteTimeout = 10 * time.Second
	wsPongWait     = 60 * time.Second
	wsPingPeriod   = wsPongWait * 9 / 10
	wsMaxMessage   = 4 << 10

	originPrefix = "ws:"
)

// Socket event names shared with the browser client.
const (
	SocketAccountsList    = "update_accounts_list"
	SocketQRCodeReady     = "qr_code_ready"
	SocketQRExpired       = "qr_expired"
	SocketLoginSuccessful = "login_successful"
	SocketLoginFailed     = "login_failed"
	SocketNewMessage      = "new_message"
	SocketJobProgress     = "job_progress"
	SocketRequestNewLogin = "request_new_login"
)

type socketMessage struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

type inboundSocketMessage struct {
	Event string `json:"event"`
}

type wsClient struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *wsClient) close() {
	c.once.Do(func() {
		close(c.send)
	})
}

// Hub fans events out to websocket clients. Login events go only to the
// client that requested the login; everything else is broadcast.
type Hub struct {
	commands Commands
	logins   Logins
	upgrader websocket.Upgrader
	log      *slog.Logger

	mu      sync.RWMutex
	clients map[string]*wsClient

	unsubscribe func()
}

func NewHub(commands Commands, logins Logins, allowedOrigins []string, log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		commands: commands,
		logins:   logins,
		log:      log.With("component", "ws_hub"),
		clients:  map[string]*wsClient{},
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || originAllowed(origin, allowedOrigins)
			},
		},
	}
}

func (h *Hub) Attach(bus ports.EventBus) {
	h.unsubscribe = bus.Subscribe(h.handleEvent)
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close detaches from the bus and hangs up every client.
func (h *Hub) Close() {
	if h.unsubscribe != nil {
		h.unsubscribe()
	}

	h.mu.Lock()
	clients := h.clients
	h.clients = map[string]*wsClient{}
	h.mu.Unlock()

	for _, c := range clients {
		_ = c.conn.Close()
		c.close()
	}
}

func (h *Hub) Serve(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := &wsClient{
		id:   originPrefix + uuid.NewString(),
		conn: conn,
		send: make(chan []byte, wsSendBuffer),
	}

	h.mu.Lock()
	h.clients[client.id] = client
	h.mu.Unlock()
	h.log.Debug("websocket client connected", "client", client.id)

	goroutine.SafeGo(h.log, "ws-writer", func() { h.writeLoop(client) })
	h.sendAccounts(client.id)
	h.readLoop(client)
}

func (h *Hub) remove(client *wsClient) {
	h.mu.Lock()
	if current, ok := h.clients[client.id]; ok && current == client {
		delete(h.clients, client.id)
	}
	h.mu.Unlock()
	client.close()
	_ = client.conn.Close()
	h.log.Debug("websocket client disconnected", "client", client.id)
}

func (h *Hub) readLoop(client *wsClient) {
	defer h.remove(client)

	client.conn.SetReadLimit(wsMaxMessage)
	_ = client.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		_, raw, err := client.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg inboundSocketMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			h.log.Debug("ignore malformed socket message", "client", client.id, "error", err)
			continue
		}

		switch msg.Event {
		case SocketRequestNewLogin:
			if _, err := h.logins.InitiateLogin(context.Background(), client.id); err != nil {
				h.log.Warn("initiate login from socket failed", "client", client.id, "error", err)
				h.sendTo(client.id, SocketLoginFailed, map[string]string{"error": err.Error()})
			}
		default:
			h.log.Debug("ignore socket message", "client", client.id, "event", msg.Event)
		}
	}
}

func (h *Hub) writeLoop(client *wsClient) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case payload, ok := <-client.send:
			_ = client.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if !ok {
				_ = client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = client.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) handleEvent(event domain.Event) {
	switch event.Kind {
	case domain.EventQRReady:
		h.sendTo(event.Origin, SocketQRCodeReady, map[string]string{
			"tempId":    event.TempID,
			"qrCodeUrl": qrCodeURL(event.TempID),
		})
	case domain.EventQRExpired:
		h.sendTo(event.Origin, SocketQRExpired, map[string]string{"tempId": event.TempID})
	case domain.EventLoginSuccess:
		payload := map[string]any{"tempId": event.TempID}
		if event.Account != nil {
			payload["id"] = event.Account.ID
			payload["name"] = event.Account.DisplayName
		}
		h.sendTo(event.Origin, SocketLoginSuccessful, payload)
		h.sendAccounts("")
	case domain.EventLoginFailure:
		h.sendTo(event.Origin, SocketLoginFailed, map[string]string{"tempId": event.TempID, "error": event.Reason})
	case domain.EventAccountDisconnected:
		h.sendAccounts("")
	case domain.EventNewMessage:
		h.sendTo("", SocketNewMessage, map[string]any{"accountId": event.AccountID, "message": event.Message})
	case domain.EventJobProgress, domain.EventJobFinished:
		h.sendTo("", SocketJobProgress, event.Job)
	}
}

// sendAccounts pushes the account list to one client, or to all when target
// is empty.
func (h *Hub) sendAccounts(target string) {
	accounts, err := h.commands.ListActiveAccounts(context.Background())
	if err != nil {
		h.log.Warn("list accounts for socket failed", "error", err)
		return
	}
	h.sendTo(target, SocketAccountsList, accounts)
}

// sendTo delivers to the client with id target, or broadcasts when target is
// empty. Origins that are not socket clients are skipped.
func (h *Hub) sendTo(target, event string, data any) {
	payload, err := json.Marshal(socketMessage{Event: event, Data: data})
	if err != nil {
		h.log.Error("encode socket message", "event", event, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if target != "" {
		if client, ok := h.clients[target]; ok {
			h.enqueue(client, event, payload)
		}
		return
	}
	for _, client := range h.clients {
		h.enqueue(client, event, payload)
	}
}

// enqueue must run under h.mu so a client is never closed mid-send.
func (h *Hub) enqueue(client *wsClient, event string, payload []byte) {
	select {
	case client.send <- payload:
	default:
		h.log.Warn("socket client too slow, dropping message", "client", client.id, "event", event)
	}
}

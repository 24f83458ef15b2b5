// Package realtime maps authenticated websocket connections to identities
// for room-based broadcast.  Every connection belongs to a room scoped to
// its own user id; admin connections additionally join the shared admin
// room, which receives account lifecycle notifications.
package realtime

import (
    "encoding/json"
    "errors"
    "fmt"
    "log"
    "net/http"
    "sync"
    "time"

    "github.com/google/uuid"
    "github.com/gorilla/websocket"
    "github.com/labstack/echo/v4"

    "github.com/karimdhz/atelier-portal/internal/model"
    "github.com/karimdhz/atelier-portal/internal/utils"
)

// AdminRoom is the shared room joined by every admin connection.
const AdminRoom = "admin_room"

// UserRoom names the private room of a single identity.
func UserRoom(id uint64) string { return fmt.Sprintf("user_%d", id) }

// Message is the wire format pushed to clients.
type Message struct {
    Event string `json:"event"`
    Data  any    `json:"data,omitempty"`
}

const (
    writeWait  = 10 * time.Second
    pongWait   = 60 * time.Second
    pingPeriod = 45 * time.Second
)

type session struct {
    id   string
    conn *websocket.Conn
    send chan []byte
}

// Hub is the realtime session registry.
type Hub struct {
    mu    sync.RWMutex
    rooms map[string]map[*session]struct{}
    // membership tracks which rooms each session joined, for teardown.
    membership map[*session][]string

    upgrader websocket.Upgrader
}

func NewHub() *Hub {
    return &Hub{
        rooms:      make(map[string]map[*session]struct{}),
        membership: make(map[*session][]string),
        upgrader: websocket.Upgrader{
            ReadBufferSize:  1024,
            WriteBufferSize: 1024,
            // Browsers connect from a separately hosted frontend.
            CheckOrigin: func(*http.Request) bool { return true },
        },
    }
}

// Handler returns the websocket endpoint.  The handshake itself verifies the
// bearer token carried in the `token` query parameter; an unauthenticated or
// invalid-token connection is refused outright, before the upgrade.
func (h *Hub) Handler(secret string) echo.HandlerFunc {
    return func(c echo.Context) error {
        token := c.QueryParam("token")
        claims, err := utils.VerifyAccessToken(secret, token)
        if err != nil {
            status := http.StatusForbidden
            if errors.Is(err, utils.ErrTokenExpired) || errors.Is(err, utils.ErrTokenMalformed) {
                status = http.StatusUnauthorized
            }
            return c.JSON(status, echo.Map{
                "code":    "WS_AUTH_FAILED",
                "message": "authentication required for realtime connection",
            })
        }

        conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
        if err != nil {
            // Upgrade already wrote the handshake error.
            return nil
        }

        sess := &session{
            id:   uuid.NewString(),
            conn: conn,
            send: make(chan []byte, 32),
        }
        rooms := []string{UserRoom(claims.UserID)}
        if role, ok := model.ParseRole(claims.Role); ok && role == model.RoleAdmin {
            rooms = append(rooms, AdminRoom)
        }
        h.register(sess, rooms)
        log.Printf("realtime: connected %s (user %d)", sess.id, claims.UserID)

        go sess.writeLoop()
        sess.readLoop()

        h.unregister(sess)
        log.Printf("realtime: disconnected %s (user %d)", sess.id, claims.UserID)
        return nil
    }
}

// Broadcast pushes an event to every session in the given room.  Slow
// consumers are skipped rather than blocking the sender.
func (h *Hub) Broadcast(room, event string, data any) {
    payload, err := encode(event, data)
    if err != nil {
        log.Printf("realtime: encode %q failed: %v", event, err)
        return
    }
    h.mu.RLock()
    defer h.mu.RUnlock()
    for sess := range h.rooms[room] {
        select {
        case sess.send <- payload:
        default:
        }
    }
}

// BroadcastAll pushes an event to every connected session once, regardless
// of room membership.
func (h *Hub) BroadcastAll(event string, data any) {
    payload, err := encode(event, data)
    if err != nil {
        log.Printf("realtime: encode %q failed: %v", event, err)
        return
    }
    h.mu.RLock()
    defer h.mu.RUnlock()
    for sess := range h.membership {
        select {
        case sess.send <- payload:
        default:
        }
    }
}

// RoomCount reports the number of sessions currently in a room.
func (h *Hub) RoomCount(room string) int {
    h.mu.RLock()
    defer h.mu.RUnlock()
    return len(h.rooms[room])
}

func (h *Hub) register(sess *session, rooms []string) {
    h.mu.Lock()
    defer h.mu.Unlock()
    for _, r := range rooms {
        if h.rooms[r] == nil {
            h.rooms[r] = make(map[*session]struct{})
        }
        h.rooms[r][sess] = struct{}{}
    }
    h.membership[sess] = rooms
}

func (h *Hub) unregister(sess *session) {
    h.mu.Lock()
    defer h.mu.Unlock()
    for _, r := range h.membership[sess] {
        delete(h.rooms[r], sess)
        if len(h.rooms[r]) == 0 {
            delete(h.rooms, r)
        }
    }
    delete(h.membership, sess)
    close(sess.send)
}

func (s *session) writeLoop() {
    ticker := time.NewTicker(pingPeriod)
    defer func() {
        ticker.Stop()
        _ = s.conn.Close()
    }()
    for {
        select {
        case msg, ok := <-s.send:
            _ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
            if !ok {
                _ = s.conn.WriteMessage(websocket.CloseMessage, nil)
                return
            }
            if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
                return
            }
        case <-ticker.C:
            _ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
            if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
                return
            }
        }
    }
}

// readLoop drains inbound frames until the peer goes away.  Clients do not
// send application data; reads only service close and pong control frames.
func (s *session) readLoop() {
    s.conn.SetReadLimit(512)
    _ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
    s.conn.SetPongHandler(func(string) error {
        return s.conn.SetReadDeadline(time.Now().Add(pongWait))
    })
    for {
        if _, _, err := s.conn.ReadMessage(); err != nil {
            return
        }
    }
}

func encode(event string, data any) ([]byte, error) {
    return json.Marshal(Message{Event: event, Data: data})
}

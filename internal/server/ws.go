package server

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rowanvale/questboard/internal/notify"
)

// authTimeout is how long a fresh connection has to authenticate.
const authTimeout = 30 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Identity comes from the auth frame, not the origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsSession wraps one websocket connection behind the notify.Session
// interface. Writes are serialized; gorilla connections allow only one
// concurrent writer.
type wsSession struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *wsSession) Send(msg notify.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(msg)
}

// handleWS upgrades the connection and speaks the real-time protocol: the
// client opens with an auth frame, the server acks it, then the connection is
// registered in the hub for task.changed/task.removed pushes until it drops.
func handleWS(resolver TokenResolver, hub *notify.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("server: websocket upgrade: %v", err)
			return
		}
		defer conn.Close()
		session := &wsSession{conn: conn}

		conn.SetReadDeadline(time.Now().Add(authTimeout))
		var hello notify.Message
		if err := conn.ReadJSON(&hello); err != nil {
			return
		}
		identity, ok := "", false
		if hello.Type == notify.TypeAuth {
			identity, ok = resolver.Resolve(hello.Token)
		}
		session.Send(notify.Message{Type: notify.TypeAuth, OK: &ok})
		if !ok {
			return
		}
		conn.SetReadDeadline(time.Time{})

		hub.Register(identity, session)
		defer hub.Unregister(identity, session)

		for {
			var msg notify.Message
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			if msg.Type == notify.TypePing {
				if err := session.Send(notify.Message{Type: notify.TypePong}); err != nil {
					return
				}
			}
		}
	}
}

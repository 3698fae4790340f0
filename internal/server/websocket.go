package server

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// controlMessage is sent by dashboard clients, e.g. {"type":"toggle"}.
type controlMessage struct {
	Type string `json:"type"`
}

// handleWebSocket upgrades to WebSocket and streams frames to the client.
// Clients may send control messages back over the same socket.
func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("server: websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	frames := s.hub.Subscribe()
	defer s.hub.Unsubscribe(frames)

	// Read pump: control messages, and disconnect detection.
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(maxMessageSize)
		for {
			var msg controlMessage
			if err := conn.ReadJSON(&msg); err != nil {
				if _, ok := err.(*websocket.CloseError); !ok && !strings.Contains(err.Error(), "use of closed") {
					log.Printf("server: websocket read: %v", err)
				}
				return
			}
			s.applyControl(msg)
		}
	}()

	// Greet with the current state so a fresh client renders immediately.
	if !s.writeFrame(conn, s.ctl.Frame()) {
		return
	}

	// Write pump: send frames as JSON.
	for {
		select {
		case <-done:
			return
		case frame, ok := <-frames:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
					time.Now().Add(writeWait))
				return
			}
			if !s.writeFrame(conn, frame) {
				return
			}
		}
	}
}

func (s *Server) writeFrame(conn *websocket.Conn, frame any) bool {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(frame); err != nil {
		log.Printf("server: websocket write failed: %v", err)
		return false
	}
	return true
}

func (s *Server) applyControl(msg controlMessage) {
	switch strings.ToLower(msg.Type) {
	case "toggle":
		s.ctl.Toggle()
	case "start":
		s.ctl.Start()
	case "stop":
		s.ctl.Stop()
	default:
		log.Printf("server: ignoring unknown control message %q", msg.Type)
	}
}

package main

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mahaj/baatcheet/pkg/auth"
	"github.com/mahaj/baatcheet/pkg/model"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. Image sends carry a URL, not
	// the bytes, so frames stay small.
	maxMessageSize = 4096
)

// Close reasons sent when the handshake credential is rejected.
const (
	closeNoToken    = "No token"
	closeAuthFailed = "Auth failed"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for now
	},
}

// Client is a middleman between one websocket connection and the registry.
type Client struct {
	registry   *Registry
	dispatcher *Dispatcher

	// The websocket connection.
	conn *websocket.Conn

	// Buffered channel of outbound messages.
	send chan []byte

	// Owning identity, fixed at handshake time.
	identity model.Identity
}

// readPump pumps sendMessage events from the websocket connection into the
// dispatcher. Leave is the only cleanup a dying connection owes the rest of
// the gateway.
func (c *Client) readPump() {
	defer func() {
		c.registry.Leave(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("error: %v", err)
			}
			break
		}

		var ev model.SendEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			log.Printf("Unreadable frame from %s: %v", c.identity.ID, err)
			continue
		}
		if ev.Type != model.EventSendMessage {
			log.Printf("Ignoring %q frame from %s", ev.Type, c.identity.ID)
			continue
		}

		c.dispatcher.Dispatch(c, &ev)
	}
}

// writePump pumps queued payloads from the registry to the websocket
// connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The registry closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
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

func rejectConn(conn *websocket.Conn, reason string) {
	msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason)
	conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	conn.Close()
}

// serveWs handles websocket requests from the peer. The credential is
// checked right after the upgrade so the rejection can carry a close reason;
// a connection that fails authentication never joins a room.
func serveWs(registry *Registry, dispatcher *Dispatcher, w http.ResponseWriter, r *http.Request) {
	tokenString := r.Header.Get("Authorization")
	if tokenString == "" {
		// Query param fallback (standard for browser WS clients)
		tokenString = r.URL.Query().Get("token")
	}
	if len(tokenString) > 7 && tokenString[:7] == "Bearer " {
		tokenString = tokenString[7:]
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println(err)
		return
	}

	if tokenString == "" {
		log.Println("Rejected connection: no token provided")
		rejectConn(conn, closeNoToken)
		return
	}

	claims, err := auth.ValidateToken(tokenString)
	if err != nil {
		log.Printf("Rejected connection: invalid token: %v", err)
		rejectConn(conn, closeAuthFailed)
		return
	}

	client := &Client{
		registry:   registry,
		dispatcher: dispatcher,
		conn:       conn,
		send:       make(chan []byte, 256),
		identity:   claims.Identity(),
	}
	registry.Join(client)

	// Allow collection of memory referenced by the caller by doing all work in
	// new goroutines.
	go client.writePump()
	go client.readPump()
}

package server

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/mgmeyers/pdfannotator/transform"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 1 << 20
	sendBuffer     = 256
)

// hub fans outbound messages out to every connected shell.
type hub struct {
	log        logrus.FieldLogger
	register   chan *client
	unregister chan *client
	broadcast  chan []byte
	unicast    chan envelope
	clients    map[*client]bool

	// done is closed when run returns.
	done chan struct{}
}

// envelope is a message for a single client.
type envelope struct {
	to   *client
	data []byte
}

func newHub(log logrus.FieldLogger) *hub {
	return &hub{
		log:        log,
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte, sendBuffer),
		unicast:    make(chan envelope, sendBuffer),
		clients:    map[*client]bool{},
		done:       make(chan struct{}),
	}
}

func (h *hub) run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			return

		case c := <-h.register:
			h.clients[c] = true
			h.log.WithField("client", c.id).Debug("client joined")

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				h.log.WithField("client", c.id).Debug("client left")
			}

		case e := <-h.unicast:
			if _, ok := h.clients[e.to]; ok {
				select {
				case e.to.send <- e.data:
				default:
				}
			}

		case message := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- message:
				default:
					// drop slow clients
					close(c.send)
					delete(h.clients, c)
				}
			}
		}
	}
}

// join registers c. It reports false once the hub stopped.
func (h *hub) join(c *client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *hub) leave(c *client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// publish queues msg for every client without blocking the caller.
func (h *hub) publish(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.WithError(err).Warn("cannot encode message")
		return
	}
	select {
	case h.broadcast <- data:
	default:
		h.log.WithField("type", msg.Type).Warn("broadcast queue full, dropping message")
	}
}

// direct queues msg for c only.
func (h *hub) direct(c *client, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.WithError(err).Warn("cannot encode message")
		return
	}
	select {
	case h.unicast <- envelope{to: c, data: data}:
	default:
		h.log.WithField("type", msg.Type).Warn("unicast queue full, dropping message")
	}
}

// client is one connected viewer shell.
type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte

	closed atomic.Bool

	mu    sync.Mutex
	pages map[int]bool
}

func newClient(conn *websocket.Conn) *client {
	return &client{
		id:    uuid.New().String(),
		conn:  conn,
		send:  make(chan []byte, sendBuffer),
		pages: map[int]bool{},
	}
}

func (c *client) trackPage(page int, live bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if live {
		c.pages[page] = true
	} else {
		delete(c.pages, page)
	}
}

func (c *client) trackedPages() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]int, 0, len(c.pages))
	for p := range c.pages {
		out = append(out, p)
	}
	return out
}

// writePump forwards queued messages to the connection and keeps it alive
// with pings.
func (c *client) writePump(log logrus.FieldLogger) {
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
				// channel closed: send close and return
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.WithError(err).Debug("websocket write failed")
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.WithError(err).Debug("websocket ping failed")
				return
			}
		}
	}
}

// remoteView is a page rendered by a connected shell.
type remoteView struct {
	page     int
	viewport transform.Viewport
	client   *client
}

func (v *remoteView) PageNumber() int              { return v.page }
func (v *remoteView) Viewport() transform.Viewport { return v.viewport }
func (v *remoteView) Attached() bool               { return !v.client.closed.Load() }

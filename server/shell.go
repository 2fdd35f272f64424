package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/golang/geo/r2"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/mgmeyers/pdfannotator/annotation"
	"github.com/mgmeyers/pdfannotator/scene"
)

// highlightWait bounds how long a select command waits for the target page
// to be rendered.
const highlightWait = 5 * time.Second

var pointerEvents = map[string]scene.EventType{
	"down": scene.PointerDown,
	"move": scene.PointerMove,
	"up":   scene.PointerUp,
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	c := newClient(conn)
	log := s.log.WithField("client", c.id)
	if !s.hub.join(c) {
		conn.Close()
		return
	}
	s.hub.direct(c, Message{Type: MsgSnapshot, Records: s.painter.Data()})

	go c.writePump(log)
	s.readPump(c)
}

// readPump applies commands from c until the connection drops, then tears
// down every page c had rendered.
func (s *Server) readPump(c *client) {
	log := s.log.WithField("client", c.id)
	defer func() {
		c.closed.Store(true)
		s.hub.leave(c)
		for _, page := range c.trackedPages() {
			s.painter.Teardown(page)
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.WithError(err).Warn("websocket closed unexpectedly")
			}
			return
		}

		var cmd Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			s.hub.direct(c, Message{Type: MsgError, Error: "invalid command"})
			continue
		}
		if err := s.apply(c, cmd); err != nil {
			log.WithError(err).WithField("command", cmd.Type).Debug("command failed")
			s.hub.direct(c, Message{Type: MsgError, Error: err.Error()})
		}
	}
}

func (s *Server) apply(c *client, cmd Command) error {
	switch cmd.Type {
	case CmdPageRendered:
		s.painter.PageRendered(&remoteView{page: cmd.Page, viewport: cmd.Viewport, client: c})
		c.trackPage(cmd.Page, true)

	case CmdTeardown:
		s.painter.Teardown(cmd.Page)
		c.trackPage(cmd.Page, false)

	case CmdActivate:
		def, ok := DefinitionByName(cmd.Tool)
		if !ok {
			return errors.Errorf("unknown tool %q", cmd.Tool)
		}
		s.painter.Activate(def, cmd.Payload)

	case CmdPointer:
		t, ok := pointerEvents[cmd.Event]
		if !ok {
			return errors.Errorf("unknown pointer event %q", cmd.Event)
		}
		s.painter.Dispatch(cmd.Page, scene.Event{Type: t, Point: r2.Point{X: cmd.X, Y: cmd.Y}})

	case CmdKey:
		s.painter.Dispatch(cmd.Page, scene.Event{Type: scene.KeyUp, Key: cmd.Key})

	case CmdText:
		s.painter.Dispatch(cmd.Page, scene.Event{Type: scene.TextInput, Text: cmd.Text})

	case CmdSelect:
		if cmd.ID == "" {
			return errors.New("select needs an id")
		}
		// the page may only be rendered by a later command of this client
		go func(id string) {
			ctx, cancel := context.WithTimeout(context.Background(), highlightWait)
			defer cancel()
			if err := s.painter.Highlight(ctx, id); err != nil {
				s.hub.direct(c, Message{Type: MsgError, ID: id, Error: err.Error()})
			}
		}(cmd.ID)

	case CmdChangePage:
		s.painter.ChangePage(cmd.Page)

	case CmdViewArea:
		s.painter.ViewAreaChanged()

	case CmdTextSelection:
		tool := cmd.Tool
		if tool == "" {
			tool = annotation.Highlight.String()
		}
		def, ok := DefinitionByName(tool)
		if !ok {
			return errors.Errorf("unknown tool %q", tool)
		}
		s.painter.HighlightSelection(cmd.Spans, cmd.Text, def)

	default:
		return errors.Errorf("unknown command %q", cmd.Type)
	}
	return nil
}

package server

import (
	"strings"

	"github.com/mgmeyers/pdfannotator/annotation"
	"github.com/mgmeyers/pdfannotator/transform"
)

// Inbound shell command types.
const (
	CmdPageRendered  = "pagerendered"
	CmdTeardown      = "teardown"
	CmdActivate      = "activate"
	CmdPointer       = "pointer"
	CmdKey           = "key"
	CmdText          = "text"
	CmdSelect        = "select"
	CmdChangePage    = "changepage"
	CmdViewArea      = "viewarea"
	CmdTextSelection = "textselection"
)

// Outbound message types.
const (
	MsgSnapshot        = "snapshot"
	MsgAdded           = "added"
	MsgChanged         = "changed"
	MsgChanging        = "changing"
	MsgDeleted         = "deleted"
	MsgSelected        = "selected"
	MsgViewAreaChanged = "viewareachanged"
	MsgError           = "error"
)

// Command is one message the viewer shell sends over the websocket. Points
// are in display space.
type Command struct {
	Type     string             `json:"type"`
	Page     int                `json:"page,omitempty"`
	Viewport transform.Viewport `json:"viewport"`

	// Tool names a definition, by name ("rectangle") or type ("RECTANGLE").
	Tool    string `json:"tool,omitempty"`
	Payload string `json:"payload,omitempty"`

	// Event is "down", "move" or "up" for pointer commands.
	Event string  `json:"event,omitempty"`
	X     float64 `json:"x,omitempty"`
	Y     float64 `json:"y,omitempty"`

	Key  string `json:"key,omitempty"`
	Text string `json:"text,omitempty"`
	ID   string `json:"id,omitempty"`

	Spans map[int][]transform.Rect `json:"spans,omitempty"`
}

// Message is one event sent to the viewer shells.
type Message struct {
	Type    string               `json:"type"`
	ID      string               `json:"id,omitempty"`
	Record  *annotation.Record   `json:"record,omitempty"`
	Records []*annotation.Record `json:"records,omitempty"`
	IsClick bool                 `json:"isClick,omitempty"`
	Error   string               `json:"error,omitempty"`
}

// DefinitionByName finds a tool by its definition name or type name.
func DefinitionByName(name string) (annotation.Definition, bool) {
	for _, d := range annotation.Definitions {
		if strings.EqualFold(d.Name, name) {
			return d, true
		}
	}
	if t, ok := annotation.ParseType(name); ok {
		return annotation.DefinitionFor(t)
	}
	return annotation.Definition{}, false
}

// Package annotation defines the annotation record, the persisted contract
// shared by the store, the editors, the codec and every repository.
package annotation

import (
	"fmt"
	"strings"
	"time"

	"github.com/mgmeyers/pdfannotator/transform"
)

// Type enumerates the kinds of annotation the engine can author.
type Type int

const (
	Select Type = iota
	Highlight
	Strikeout
	Underline
	FreeText
	Rectangle
	Circle
	FreeHand
	FreeHighlight
	Signature
	Stamp
	Note
	Arrow
	Cloud
)

var typeNames = map[Type]string{
	Select:        "SELECT",
	Highlight:     "HIGHLIGHT",
	Strikeout:     "STRIKEOUT",
	Underline:     "UNDERLINE",
	FreeText:      "FREETEXT",
	Rectangle:     "RECTANGLE",
	Circle:        "CIRCLE",
	FreeHand:      "FREEHAND",
	FreeHighlight: "FREE_HIGHLIGHT",
	Signature:     "SIGNATURE",
	Stamp:         "STAMP",
	Note:          "NOTE",
	Arrow:         "ARROW",
	Cloud:         "CLOUD",
}

func (t Type) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

func ParseType(s string) (Type, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for t, name := range typeNames {
		if name == s {
			return t, true
		}
	}
	return 0, false
}

func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Type) UnmarshalText(b []byte) error {
	parsed, ok := ParseType(string(b))
	if !ok {
		return fmt.Errorf("unknown annotation type %q", string(b))
	}
	*t = parsed
	return nil
}

// Subtype is the native annotation subtype a type maps onto.
type Subtype string

const (
	SubtypeHighlight Subtype = "Highlight"
	SubtypeUnderline Subtype = "Underline"
	SubtypeStrikeOut Subtype = "StrikeOut"
	SubtypeFreeText  Subtype = "FreeText"
	SubtypeSquare    Subtype = "Square"
	SubtypeCircle    Subtype = "Circle"
	SubtypeInk       Subtype = "Ink"
	SubtypeStamp     Subtype = "Stamp"
	SubtypeText      Subtype = "Text"
	SubtypeLine      Subtype = "Line"
	SubtypePolygon   Subtype = "Polygon"
)

// IsTextMarkup reports whether s belongs to the highlight/underline/strikeout family.
func (s Subtype) IsTextMarkup() bool {
	return s == SubtypeHighlight || s == SubtypeUnderline || s == SubtypeStrikeOut
}

// Record is the canonical state of one annotation.
type Record struct {
	ID          string         `json:"id" yaml:"id"`
	PageNumber  int            `json:"pageNumber" yaml:"pageNumber"`
	Type        Type           `json:"type" yaml:"type"`
	Subtype     Subtype        `json:"subtype" yaml:"subtype"`
	Group       string         `json:"group" yaml:"group"`
	Rect        transform.Rect `json:"rect" yaml:"rect"`
	Title       string         `json:"title" yaml:"title"`
	Date        string         `json:"date" yaml:"date"`
	Contents    string         `json:"contents,omitempty" yaml:"contents,omitempty"`
	Color       string         `json:"color,omitempty" yaml:"color,omitempty"`
	Opacity     *float64       `json:"opacity,omitempty" yaml:"opacity,omitempty"`
	StrokeWidth *float64       `json:"strokeWidth,omitempty" yaml:"strokeWidth,omitempty"`
	Comments    []Comment      `json:"comments,omitempty" yaml:"comments,omitempty"`
	Native      bool           `json:"native" yaml:"native"`
}

func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	if r.Opacity != nil {
		v := *r.Opacity
		c.Opacity = &v
	}
	if r.StrokeWidth != nil {
		v := *r.StrokeWidth
		c.StrokeWidth = &v
	}
	if r.Comments != nil {
		c.Comments = append([]Comment(nil), r.Comments...)
	}
	return &c
}

// Style returns the record's style fields.
func (r *Record) Style() Style {
	return Style{Color: r.Color, Opacity: r.Opacity, StrokeWidth: r.StrokeWidth}
}

// LastStatus returns the status of the most recent comment that carries one.
func (r *Record) LastStatus() CommentStatus {
	for i := len(r.Comments) - 1; i >= 0; i-- {
		if r.Comments[i].Status != "" {
			return r.Comments[i].Status
		}
	}
	return StatusNone
}

// Style holds the optional visual properties of a record.
type Style struct {
	Color       string   `json:"color,omitempty"`
	Opacity     *float64 `json:"opacity,omitempty"`
	StrokeWidth *float64 `json:"strokeWidth,omitempty"`
}

func Float(v float64) *float64 { return &v }

// Now formats t the way records store dates.
func Now(t time.Time) string {
	return t.Format(DateFormat)
}

// DateFormat is the PDF date layout used for record and comment dates.
const DateFormat = "D:20060102150405Z07'00'"

// Package editor implements the per-kind shape editors that turn pointer
// gestures on a stage into committed annotation records, and the selector
// that moves and resizes committed shapes.
package editor

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/mgmeyers/pdfannotator/annotation"
	"github.com/mgmeyers/pdfannotator/scene"
	"github.com/mgmeyers/pdfannotator/store"
	"github.com/mgmeyers/pdfannotator/transform"
)

// minSize is the smallest drag extent, in display units, that commits a shape.
const minSize = 2.0

// Editor is the capability set shared by every annotation kind.
type Editor interface {
	Type() annotation.Type
	StyleEditable() annotation.StyleEditable
	// Activate starts routing the stage's gestures to the editor. A nil or
	// destroyed stage is ignored.
	Activate(stage *scene.Stage, def annotation.Definition, payload string)
	// Rehydrate recreates a stored shape group on the stage.
	Rehydrate(stage *scene.Stage, serialized string) error
	UpdateStyle(rec *annotation.Record, style annotation.Style)
	DeleteGroup(id string, stage *scene.Stage)
	// Owns reports whether the group with id was committed or rehydrated by
	// this editor.
	Owns(id string) bool
	// Deactivate discards any uncommitted shape.
	Deactivate()
}

// TextLayer exposes the text span rectangles of a page in display space.
type TextLayer interface {
	Spans(page int) []transform.Rect
}

// CommitFunc is called after an editor added a record to the store.
type CommitFunc func(rec *annotation.Record, def annotation.Definition)

type Options struct {
	Page   int
	Store  *store.Store
	Author string
	Log    logrus.FieldLogger

	// OnCommit runs after every committed record.
	OnCommit CommitFunc

	TextLayer TextLayer

	PointerLength float64
	PointerWidth  float64

	DefaultSignature string
	DefaultStamp     string

	Now   func() time.Time
	NewID func() string
}

func (o Options) withDefaults() Options {
	if o.Log == nil {
		o.Log = logrus.StandardLogger()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.NewID == nil {
		o.NewID = func() string { return uuid.New().String() }
	}
	if o.PointerLength == 0 {
		o.PointerLength = 10
	}
	if o.PointerWidth == 0 {
		o.PointerWidth = 10
	}
	if o.Author == "" {
		o.Author = "unknown"
	}
	return o
}

// base carries the state every editor variant shares.
type base struct {
	kind    annotation.Type
	opts    Options
	log     logrus.FieldLogger
	def     annotation.Definition
	stage   *scene.Stage
	groups  map[string]*scene.Node
	session *scene.Node
}

func newBase(kind annotation.Type, opts Options) base {
	opts = opts.withDefaults()
	def, _ := annotation.DefinitionFor(kind)
	return base{
		kind:   kind,
		opts:   opts,
		log:    opts.Log.WithFields(logrus.Fields{"editor": kind.String(), "page": opts.Page}),
		def:    def,
		groups: map[string]*scene.Node{},
	}
}

func (b *base) Type() annotation.Type { return b.kind }

func (b *base) StyleEditable() annotation.StyleEditable { return b.def.StyleEditable }

func (b *base) Owns(id string) bool {
	_, ok := b.groups[id]
	return ok
}

// attach binds the editor to stage and installs h as the gesture handler.
func (b *base) attach(stage *scene.Stage, def annotation.Definition, h scene.Handler) bool {
	if stage == nil || stage.Destroyed() {
		return false
	}
	b.discard()
	b.stage = stage
	if def.Type == b.kind {
		b.def = def
	}
	stage.SetHandler(h)
	return true
}

func (b *base) Deactivate() {
	b.discard()
}

// discard drops the uncommitted session without leaving a trace.
func (b *base) discard() {
	if b.session != nil {
		b.session.Remove()
		b.session = nil
	}
}

// begin starts a new session group on the stage.
func (b *base) begin() *scene.Node {
	b.discard()
	g := scene.NewGroup("", b.def.Name)
	b.session = g
	b.stage.AddGroup(g)
	return g
}

func (b *base) color() string {
	if b.def.Style.Color != "" {
		return b.def.Style.Color
	}
	return "#ff0000"
}

func (b *base) strokeWidth() float64 {
	if b.def.Style.StrokeWidth != nil {
		return *b.def.Style.StrokeWidth
	}
	return 2
}

func (b *base) opacity() *float64 {
	if b.def.Style.Opacity != nil {
		return scene.Float(*b.def.Style.Opacity)
	}
	return nil
}

// commit promotes the session group to a record.
func (b *base) commit(g *scene.Node, contents string) *annotation.Record {
	if g == nil {
		return nil
	}
	if g == b.session {
		b.session = nil
	}
	g.ID = b.opts.NewID()
	serialized, err := scene.Marshal(g)
	if err != nil {
		b.log.WithError(err).Warn("could not serialize shape group")
		g.Remove()
		return nil
	}

	rec := &annotation.Record{
		ID:         g.ID,
		PageNumber: b.opts.Page,
		Type:       b.kind,
		Subtype:    b.def.Subtype,
		Group:      serialized,
		Rect:       g.ClientRect(),
		Title:      b.opts.Author,
		Date:       annotation.Now(b.opts.Now()),
		Contents:   contents,
	}
	if b.def.StyleEditable.Color {
		rec.Color = b.color()
	}
	if b.def.StyleEditable.Opacity && b.def.Style.Opacity != nil {
		rec.Opacity = annotation.Float(*b.def.Style.Opacity)
	}
	if b.def.StyleEditable.StrokeWidth {
		rec.StrokeWidth = annotation.Float(b.strokeWidth())
	}

	if err := b.opts.Store.Add(rec, false); err != nil {
		b.log.WithError(err).Warn("could not commit annotation")
		g.Remove()
		return nil
	}
	b.groups[rec.ID] = g
	if b.opts.OnCommit != nil {
		b.opts.OnCommit(rec.Clone(), b.def)
	}
	return rec
}

func (b *base) Rehydrate(stage *scene.Stage, serialized string) error {
	if stage == nil || stage.Destroyed() {
		return nil
	}
	g, err := scene.Unmarshal(serialized)
	if err != nil {
		return errors.Wrap(err, "rehydrate")
	}
	if g.ID == "" {
		return errors.Wrap(scene.ErrEmptyGroup, "rehydrate: group has no id")
	}
	stage.RemoveGroup(g.ID)
	stage.AddGroup(g)
	b.stage = stage
	b.groups[g.ID] = g
	return nil
}

func (b *base) DeleteGroup(id string, stage *scene.Stage) {
	delete(b.groups, id)
	if stage == nil {
		return
	}
	stage.RemoveGroup(id)
	if chrome := stage.Chrome(); chrome != nil && chrome.ID == id {
		stage.ClearChrome()
	}
}

// UpdateStyle restyles the record's group and commits the result. Style
// properties the kind does not expose are ignored.
func (b *base) UpdateStyle(rec *annotation.Record, style annotation.Style) {
	if rec == nil {
		return
	}
	g := b.groups[rec.ID]
	if g == nil {
		parsed, err := scene.Unmarshal(rec.Group)
		if err != nil {
			b.log.WithError(err).WithField("id", rec.ID).Warn("cannot restyle unparseable group")
			return
		}
		g = parsed
	}

	caps := b.def.StyleEditable
	if !caps.Color {
		style.Color = ""
	}
	if !caps.Opacity {
		style.Opacity = nil
	}
	if !caps.StrokeWidth {
		style.StrokeWidth = nil
	}
	applyStyle(g, style)

	serialized, err := scene.Marshal(g)
	if err != nil {
		b.log.WithError(err).Warn("could not serialize shape group")
		return
	}
	rect := g.ClientRect()
	p := store.Partial{Group: &serialized, Rect: &rect, Opacity: style.Opacity, StrokeWidth: style.StrokeWidth}
	if style.Color != "" {
		p.Color = &style.Color
	}
	b.opts.Store.Update(rec.ID, p)
}

func applyStyle(g *scene.Node, style annotation.Style) {
	for _, n := range g.Shapes() {
		if style.Color != "" && n.Kind != scene.KindImage {
			if n.Attrs.Stroke != "" {
				n.Attrs.Stroke = style.Color
			}
			if n.Attrs.Fill != "" {
				n.Attrs.Fill = style.Color
			}
		}
		if style.Opacity != nil {
			n.Attrs.Opacity = scene.Float(*style.Opacity)
		}
		if style.StrokeWidth != nil && n.Attrs.StrokeWidth > 0 {
			n.Attrs.StrokeWidth = *style.StrokeWidth
		}
	}
}

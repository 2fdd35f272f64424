// Package painter manages one drawing surface per rendered page and routes
// tool activation, gestures and record changes between the surfaces, the
// editors and the store.
//
// Hooks run while the painter lock is held and must not call back into the
// painter.
package painter

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/mgmeyers/pdfannotator/annotation"
	"github.com/mgmeyers/pdfannotator/editor"
	"github.com/mgmeyers/pdfannotator/scene"
	"github.com/mgmeyers/pdfannotator/store"
	"github.com/mgmeyers/pdfannotator/transform"
)

var ErrNotFound = errors.New("annotation not found")

// PageView is a page of the viewer as the painter sees it.
type PageView interface {
	PageNumber() int
	Viewport() transform.Viewport
	// Attached reports whether the page element is still in the live
	// document.
	Attached() bool
}

type Hooks struct {
	Added           func(rec *annotation.Record)
	Deleted         func(id string)
	Selected        func(rec *annotation.Record, isClick bool)
	Changing        func(id string)
	Changed         func(rec *annotation.Record)
	ViewAreaChanged func()
}

type Options struct {
	Store  *store.Store
	Author string
	Log    logrus.FieldLogger
	Hooks  Hooks

	TextLayer editor.TextLayer

	DefaultSignature string
	DefaultStamp     string
	PointerLength    float64
	PointerWidth     float64

	// Debounce is the quiet period of the view-area-changed hook.
	Debounce time.Duration
}

type surface struct {
	view  PageView
	stage *scene.Stage
}

type editorKey struct {
	page int
	kind annotation.Type
}

type Painter struct {
	mu sync.Mutex

	opts  Options
	store *store.Store
	log   logrus.FieldLogger

	surfaces map[int]*surface
	ready    map[int]chan struct{}
	editors  map[editorKey]editor.Editor
	selector *editor.Selector

	current     annotation.Definition
	payload     string
	currentPage int

	viewArea    *debouncer
	unsubscribe func()
	destroyed   bool
}

func New(opts Options) *Painter {
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}
	if opts.Store == nil {
		opts.Store = store.New(opts.Log)
	}
	if opts.Debounce == 0 {
		opts.Debounce = 100 * time.Millisecond
	}
	p := &Painter{
		opts:     opts,
		store:    opts.Store,
		log:      opts.Log.WithField("component", "painter"),
		surfaces: map[int]*surface{},
		ready:    map[int]chan struct{}{},
		editors:  map[editorKey]editor.Editor{},
		current:  annotation.DefaultDefinition(),
	}
	p.selector = editor.NewSelector(editor.SelectorHooks{
		Selected: p.onCanvasSelected,
		Changing: p.onChanging,
		Changed:  p.onChanged,
		Delete:   func(id string) { p.deleteLocked(id) },
	}, opts.Log)
	p.viewArea = newDebouncer(opts.Debounce, func() {
		if opts.Hooks.ViewAreaChanged != nil {
			opts.Hooks.ViewAreaChanged()
		}
	})
	p.unsubscribe = p.store.Subscribe(store.SourceCanvas, p.onStoreEvent)
	return p
}

// Store returns the store the painter writes to.
func (p *Painter) Store() *store.Store { return p.store }

// SetPageCount bounds the page numbers the store accepts.
func (p *Painter) SetPageCount(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.store.SetPageCount(n)
}

// PageRendered inserts a surface for a newly rendered page, or rescales the
// live surface when the page was re-rendered at another zoom.
func (p *Painter) PageRendered(view PageView) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.destroyed || view == nil {
		return
	}
	page := view.PageNumber()
	if s, ok := p.surfaces[page]; ok && s.stage.Attached() {
		s.view = view
		s.stage.Resize(view.Viewport())
		return
	}
	p.insert(page, view)
}

func (p *Painter) insert(page int, view PageView) {
	p.sweep()
	if old, ok := p.surfaces[page]; ok {
		p.teardownLocked(page, old)
	}

	stage := scene.NewStage(page, view.Viewport(), view)
	s := &surface{view: view, stage: stage}
	p.surfaces[page] = s

	for _, rec := range p.store.GetByPage(page) {
		ed, err := p.editorFor(page, rec.Type)
		if err != nil {
			p.log.WithError(err).WithField("id", rec.ID).Warn("no editor for stored annotation")
			continue
		}
		if err := ed.Rehydrate(stage, rec.Group); err != nil {
			p.log.WithError(err).WithField("id", rec.ID).Warn("skipping stored annotation")
		}
	}
	p.enable(s)
	p.log.WithField("page", page).Debug("surface inserted")

	close(p.readyChan(page))
}

// sweep destroys surfaces whose page element left the document.
func (p *Painter) sweep() {
	for page, s := range p.surfaces {
		if !s.stage.Attached() {
			p.log.WithField("page", page).Debug("sweeping detached surface")
			p.teardownLocked(page, s)
		}
	}
}

// Teardown destroys the surface of page. Tearing down a page without a live
// surface is a no-op.
func (p *Painter) Teardown(page int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if s, ok := p.surfaces[page]; ok {
		p.teardownLocked(page, s)
	}
}

func (p *Painter) teardownLocked(page int, s *surface) {
	if p.selector.SelectedID() != "" && s.stage.FindGroup(p.selector.SelectedID()) != nil {
		p.selector.Clear()
	}
	for key, ed := range p.editors {
		if key.page == page {
			ed.Deactivate()
		}
	}
	s.stage.Destroy()
	delete(p.surfaces, page)

	// waiters keep the open channel until the page is inserted again
	if ch, ok := p.ready[page]; ok {
		select {
		case <-ch:
			delete(p.ready, page)
		default:
		}
	}
}

// readyChan returns the channel closed once page has a live surface.
func (p *Painter) readyChan(page int) chan struct{} {
	ch, ok := p.ready[page]
	if !ok {
		ch = make(chan struct{})
		p.ready[page] = ch
	}
	return ch
}

// Pages returns the pages with a live surface in ascending order.
func (p *Painter) Pages() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	pages := make([]int, 0, len(p.surfaces))
	for page := range p.surfaces {
		pages = append(pages, page)
	}
	sort.Ints(pages)
	return pages
}

// Stage returns the live stage of page.
func (p *Painter) Stage(page int) (*scene.Stage, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.surfaces[page]
	if !ok {
		return nil, false
	}
	return s.stage, true
}

func (p *Painter) editorFor(page int, kind annotation.Type) (editor.Editor, error) {
	key := editorKey{page: page, kind: kind}
	if ed, ok := p.editors[key]; ok {
		return ed, nil
	}
	ed, err := editor.New(kind, editor.Options{
		Page:             page,
		Store:            p.store,
		Author:           p.opts.Author,
		Log:              p.opts.Log,
		OnCommit:         p.onCommit,
		TextLayer:        p.opts.TextLayer,
		PointerLength:    p.opts.PointerLength,
		PointerWidth:     p.opts.PointerWidth,
		DefaultSignature: p.opts.DefaultSignature,
		DefaultStamp:     p.opts.DefaultStamp,
	})
	if err != nil {
		return nil, err
	}
	p.editors[key] = ed
	return ed, nil
}

// Activate makes def the current tool on every live surface.
func (p *Painter) Activate(def annotation.Definition, payload string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.activateLocked(def, payload)
}

func (p *Painter) activateLocked(def annotation.Definition, payload string) {
	p.current = def
	p.payload = payload
	for key, ed := range p.editors {
		if key.kind != def.Type {
			ed.Deactivate()
		}
	}
	if def.Type != annotation.Select {
		p.selector.Clear()
	}
	for _, s := range p.surfaces {
		p.enable(s)
	}
}

// Current returns the active tool.
func (p *Painter) Current() annotation.Definition {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

func (p *Painter) enable(s *surface) {
	if p.current.Type == annotation.Select {
		s.stage.SetHandler(p.selector)
		return
	}
	ed, err := p.editorFor(s.stage.Page(), p.current.Type)
	if err != nil {
		p.log.WithError(err).Warn("cannot enable tool")
		return
	}
	ed.Activate(s.stage, p.current, p.payload)
}

// Dispatch routes a gesture to the surface of page. Escape on a signature or
// stamp tool also returns to the default tool.
func (p *Painter) Dispatch(page int, ev scene.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.surfaces[page]
	if !ok {
		return
	}
	s.stage.Dispatch(ev)

	if ev.Type == scene.KeyUp && ev.Key == scene.KeyEscape {
		switch p.current.Type {
		case annotation.Signature, annotation.Stamp:
			p.activateLocked(annotation.DefaultDefinition(), "")
		}
	}
}

// HighlightSelection converts a text selection, given as span rectangles per
// page, into one text markup record per page.
func (p *Painter) HighlightSelection(spansByPage map[int][]transform.Rect, text string, def annotation.Definition) []*annotation.Record {
	p.mu.Lock()
	defer p.mu.Unlock()

	pages := make([]int, 0, len(spansByPage))
	for page := range spansByPage {
		pages = append(pages, page)
	}
	sort.Ints(pages)

	var out []*annotation.Record
	for _, page := range pages {
		s, ok := p.surfaces[page]
		if !ok {
			continue
		}
		ed, err := p.editorFor(page, def.Type)
		if err != nil {
			p.log.WithError(err).Warn("cannot convert text selection")
			return out
		}
		markup, ok := ed.(editor.TextMarkup)
		if !ok {
			p.log.WithField("type", def.Type).Warn("annotation kind does not mark up text")
			return out
		}
		markup.Activate(s.stage, def, "")
		if rec := markup.ConvertSelection(spansByPage[page], text); rec != nil {
			out = append(out, rec)
		}
		p.enable(s)
	}
	return out
}

func (p *Painter) onCommit(rec *annotation.Record, def annotation.Definition) {
	if p.opts.Hooks.Added != nil {
		p.opts.Hooks.Added(rec)
	}
	// one-shot kinds hand over to the default tool; the others stay active
	if def.IsOnce {
		p.activateLocked(annotation.DefaultDefinition(), "")
	}
	p.selectLocked(rec, true)
}

// Select selects the record with id on behalf of the sidebar.
func (p *Painter) Select(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	rec, ok := p.store.Get(id)
	if !ok {
		return false
	}
	p.selectLocked(rec, false)
	return true
}

func (p *Painter) selectLocked(rec *annotation.Record, isClick bool) {
	source := store.SourceSidebar
	if isClick {
		source = store.SourceCanvas
	}
	p.store.SetSelected(rec, source)
	if s, ok := p.surfaces[rec.PageNumber]; ok {
		p.selector.Select(s.stage, rec.ID)
	}
	if p.opts.Hooks.Selected != nil {
		p.opts.Hooks.Selected(rec, isClick)
	}
}

// Highlight waits until the record's page has a live surface, then selects
// the record.
func (p *Painter) Highlight(ctx context.Context, id string) error {
	p.mu.Lock()
	rec, ok := p.store.Get(id)
	if !ok {
		p.mu.Unlock()
		return errors.Wrap(ErrNotFound, id)
	}
	ready := p.readyChan(rec.PageNumber)
	p.mu.Unlock()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-ready:
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	rec, ok = p.store.Get(id)
	if !ok {
		return errors.Wrap(ErrNotFound, id)
	}
	p.selectLocked(rec, false)
	return nil
}

func (p *Painter) onCanvasSelected(id string) {
	if id == "" {
		p.store.SetSelected(nil, store.SourceCanvas)
		if p.opts.Hooks.Selected != nil {
			p.opts.Hooks.Selected(nil, true)
		}
		return
	}
	rec, ok := p.store.Get(id)
	if !ok {
		return
	}
	p.store.SetSelected(rec, store.SourceCanvas)
	if p.opts.Hooks.Selected != nil {
		p.opts.Hooks.Selected(rec, true)
	}
}

func (p *Painter) onChanging(id string) {
	if p.opts.Hooks.Changing != nil {
		p.opts.Hooks.Changing(id)
	}
}

func (p *Painter) onChanged(id, group string, rect transform.Rect) {
	rec, ok := p.store.Update(id, store.Partial{Group: &group, Rect: &rect})
	if ok && p.opts.Hooks.Changed != nil {
		p.opts.Hooks.Changed(rec)
	}
}

// Update merges partial into the record with id and redraws its group when
// the group changed.
func (p *Painter) Update(id string, partial store.Partial) (*annotation.Record, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	rec, ok := p.store.Update(id, partial)
	if !ok {
		return nil, false
	}
	if partial.Group != nil {
		p.redraw(rec)
	}
	if p.opts.Hooks.Changed != nil {
		p.opts.Hooks.Changed(rec)
	}
	return rec, true
}

func (p *Painter) redraw(rec *annotation.Record) {
	s, ok := p.surfaces[rec.PageNumber]
	if !ok {
		return
	}
	ed, err := p.editorFor(rec.PageNumber, rec.Type)
	if err != nil {
		return
	}
	if err := ed.Rehydrate(s.stage, rec.Group); err != nil {
		p.log.WithError(err).WithField("id", rec.ID).Warn("could not redraw annotation")
	}
}

// UpdateStyle restyles the record with id within its kind's capabilities.
func (p *Painter) UpdateStyle(id string, style annotation.Style) (*annotation.Record, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	rec, ok := p.store.Get(id)
	if !ok {
		return nil, false
	}
	ed, err := p.editorFor(rec.PageNumber, rec.Type)
	if err != nil {
		return nil, false
	}
	ed.UpdateStyle(rec, style)
	updated, _ := p.store.Get(id)
	if p.opts.Hooks.Changed != nil {
		p.opts.Hooks.Changed(updated)
	}
	return updated, true
}

// Delete removes the record with id and its shape group.
func (p *Painter) Delete(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.deleteLocked(id)
}

func (p *Painter) deleteLocked(id string) bool {
	if !p.store.Has(id) {
		return false
	}
	if p.selector.SelectedID() == id {
		p.selector.Clear()
	}
	// the store observer drops the group from the surfaces
	p.store.Remove(id)
	return true
}

func (p *Painter) onStoreEvent(ev store.Event) {
	if ev.Type != store.EventDeleted {
		return
	}
	for key, ed := range p.editors {
		if !ed.Owns(ev.ID) {
			continue
		}
		var stage *scene.Stage
		if s, ok := p.surfaces[key.page]; ok {
			stage = s.stage
		}
		ed.DeleteGroup(ev.ID, stage)
	}
	if p.opts.Hooks.Deleted != nil {
		p.opts.Hooks.Deleted(ev.ID)
	}
}

// LoadAnnotations seeds the store with the decoded native records, then
// overlays external records by id. It returns the number of records loaded.
func (p *Painter) LoadAnnotations(native, external []*annotation.Record) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loadLocked(MergeRecords(native, external))
}

// SyncAnnotations makes the store hold exactly records: stored records
// missing from them are deleted, the others are loaded over the current
// ones. It returns the number of records loaded.
func (p *Painter) SyncAnnotations(records []*annotation.Record) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	keep := map[string]bool{}
	for _, rec := range records {
		if rec != nil {
			keep[rec.ID] = true
		}
	}
	for _, rec := range p.store.All() {
		if !keep[rec.ID] {
			p.deleteLocked(rec.ID)
		}
	}
	return p.loadLocked(MergeRecords(nil, records))
}

func (p *Painter) loadLocked(merged []*annotation.Record) int {
	n := 0
	for _, rec := range merged {
		var err error
		if p.store.Has(rec.ID) {
			_, ok := p.store.Replace(rec)
			if !ok {
				err = ErrNotFound
			}
		} else {
			err = p.store.Add(rec, true)
		}
		if err != nil {
			p.log.WithError(err).WithField("id", rec.ID).Warn("skipping annotation")
			continue
		}
		p.redraw(rec)
		n++
	}
	return n
}

// MergeRecords returns native followed by the external records that are not
// native, with external records replacing native ones of the same id.
func MergeRecords(native, external []*annotation.Record) []*annotation.Record {
	index := map[string]int{}
	out := make([]*annotation.Record, 0, len(native)+len(external))
	add := func(rec *annotation.Record) {
		if rec == nil {
			return
		}
		if i, ok := index[rec.ID]; ok {
			out[i] = rec
			return
		}
		index[rec.ID] = len(out)
		out = append(out, rec)
	}
	for _, rec := range native {
		add(rec)
	}
	for _, rec := range external {
		add(rec)
	}
	return out
}

// ChangePage records the page in view and drops the selection.
func (p *Painter) ChangePage(page int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if page == p.currentPage {
		return
	}
	p.currentPage = page
	p.selector.Clear()
	p.store.SetSelected(nil, store.SourceCanvas)
}

func (p *Painter) CurrentPage() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.currentPage
}

// ViewAreaChanged reports a scroll or zoom of the viewer. Bursts collapse
// into one hook call.
func (p *Painter) ViewAreaChanged() {
	p.viewArea.Call()
}

// Data returns every record in insertion order.
func (p *Painter) Data() []*annotation.Record {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.store.All()
}

// Destroy tears down every surface. The painter is unusable afterwards.
func (p *Painter) Destroy() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.destroyed {
		return
	}
	p.destroyed = true
	for page, s := range p.surfaces {
		p.teardownLocked(page, s)
	}
	p.viewArea.Stop()
	p.unsubscribe()
}

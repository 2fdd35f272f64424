// Package store holds the canonical collection of annotation records and the
// current selection, and notifies subscribers of every change.
package store

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/mgmeyers/pdfannotator/annotation"
	"github.com/mgmeyers/pdfannotator/transform"
)

var (
	ErrDuplicateID = errors.New("annotation id already exists")
	ErrInvalidPage = errors.New("invalid page number")
	ErrMissingID   = errors.New("annotation id is empty")
)

// SelectionSource tags where a selection came from.
type SelectionSource string

const (
	SourceNone    SelectionSource = ""
	SourceCanvas  SelectionSource = "canvas"
	SourceSidebar SelectionSource = "sidebar"
)

// Selection is the current selection state.
type Selection struct {
	ID     string
	Source SelectionSource
}

// Partial holds the fields of an update. Nil fields are left unchanged.
type Partial struct {
	Group       *string
	Rect        *transform.Rect
	Title       *string
	Date        *string
	Contents    *string
	Color       *string
	Opacity     *float64
	StrokeWidth *float64
	Comments    []annotation.Comment
	// SetComments applies Comments even when it is empty.
	SetComments bool
}

func String(s string) *string { return &s }

// Store is not safe for concurrent use; callers serialize access.
type Store struct {
	records   map[string]*annotation.Record
	order     []string
	selection Selection
	pageCount int
	observers []*subscription
	nextSub   int
	log       logrus.FieldLogger
}

func New(log logrus.FieldLogger) *Store {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Store{
		records: map[string]*annotation.Record{},
		log:     log.WithField("component", "store"),
	}
}

// SetPageCount bounds valid page numbers. Zero disables the upper bound.
func (s *Store) SetPageCount(n int) { s.pageCount = n }

func (s *Store) PageCount() int { return s.pageCount }

func (s *Store) validPage(p int) bool {
	return p >= 1 && (s.pageCount == 0 || p <= s.pageCount)
}

// Add stores a copy of r. isOriginal marks records loaded from outside the
// editors (decoded or persisted) rather than freshly drawn.
func (s *Store) Add(r *annotation.Record, isOriginal bool) error {
	if r == nil || r.ID == "" {
		return ErrMissingID
	}
	if _, ok := s.records[r.ID]; ok {
		return errors.Wrap(ErrDuplicateID, r.ID)
	}
	if !s.validPage(r.PageNumber) {
		return errors.Wrapf(ErrInvalidPage, "%d", r.PageNumber)
	}
	rec := r.Clone()
	s.records[rec.ID] = rec
	s.order = append(s.order, rec.ID)
	s.notify(Event{Type: EventAdded, Record: rec.Clone(), IsOriginal: isOriginal})
	return nil
}

// Update shallow-merges p into the record with id and returns the result.
func (s *Store) Update(id string, p Partial) (*annotation.Record, bool) {
	rec, ok := s.records[id]
	if !ok {
		return nil, false
	}
	if p.Group != nil {
		rec.Group = *p.Group
	}
	if p.Rect != nil {
		rec.Rect = *p.Rect
	}
	if p.Title != nil {
		rec.Title = *p.Title
	}
	if p.Date != nil {
		rec.Date = *p.Date
	}
	if p.Contents != nil {
		rec.Contents = *p.Contents
	}
	if p.Color != nil {
		rec.Color = *p.Color
	}
	if p.Opacity != nil {
		rec.Opacity = annotation.Float(*p.Opacity)
	}
	if p.StrokeWidth != nil {
		rec.StrokeWidth = annotation.Float(*p.StrokeWidth)
	}
	if p.Comments != nil || p.SetComments {
		rec.Comments = append([]annotation.Comment(nil), p.Comments...)
	}
	out := rec.Clone()
	s.notify(Event{Type: EventUpdated, Record: out.Clone()})
	return out, true
}

// Replace swaps the whole record with id for r, keeping its position.
func (s *Store) Replace(r *annotation.Record) (*annotation.Record, bool) {
	if r == nil {
		return nil, false
	}
	if _, ok := s.records[r.ID]; !ok {
		return nil, false
	}
	s.records[r.ID] = r.Clone()
	s.notify(Event{Type: EventUpdated, Record: r.Clone()})
	return r.Clone(), true
}

// Remove deletes the record with id. Removing an unknown id is a no-op.
func (s *Store) Remove(id string) bool {
	if _, ok := s.records[id]; !ok {
		return false
	}
	delete(s.records, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	if s.selection.ID == id {
		s.selection = Selection{}
	}
	s.notify(Event{Type: EventDeleted, ID: id})
	return true
}

func (s *Store) Get(id string) (*annotation.Record, bool) {
	rec, ok := s.records[id]
	if !ok {
		return nil, false
	}
	return rec.Clone(), true
}

func (s *Store) Has(id string) bool {
	_, ok := s.records[id]
	return ok
}

// GetByPage returns the records of page in insertion order.
func (s *Store) GetByPage(page int) []*annotation.Record {
	var out []*annotation.Record
	for _, id := range s.order {
		if rec := s.records[id]; rec.PageNumber == page {
			out = append(out, rec.Clone())
		}
	}
	return out
}

// All returns every record in insertion order.
func (s *Store) All() []*annotation.Record {
	out := make([]*annotation.Record, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.records[id].Clone())
	}
	return out
}

func (s *Store) Len() int { return len(s.order) }

// SetSelected selects r (or clears the selection when r is nil). Selecting
// the record that is already selected only retags the source and does not
// notify, which stops canvas and sidebar from echoing each other.
func (s *Store) SetSelected(r *annotation.Record, source SelectionSource) {
	if r == nil {
		if s.selection.ID == "" {
			return
		}
		s.selection = Selection{}
		s.notify(Event{Type: EventSelected, Source: source})
		return
	}
	if _, ok := s.records[r.ID]; !ok {
		s.log.WithField("id", r.ID).Debug("ignoring selection of unknown annotation")
		return
	}
	if s.selection.ID == r.ID {
		s.selection.Source = source
		return
	}
	s.selection = Selection{ID: r.ID, Source: source}
	s.notify(Event{Type: EventSelected, ID: r.ID, Record: s.records[r.ID].Clone(), Source: source})
}

func (s *Store) Selected() Selection { return s.selection }

// ClearAll drops every record and the selection.
func (s *Store) ClearAll() {
	ids := append([]string(nil), s.order...)
	s.records = map[string]*annotation.Record{}
	s.order = nil
	s.selection = Selection{}
	for _, id := range ids {
		s.notify(Event{Type: EventDeleted, ID: id})
	}
}

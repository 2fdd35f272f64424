package store

import (
	"github.com/mgmeyers/pdfannotator/annotation"
)

type EventType string

const (
	EventAdded    EventType = "added"
	EventUpdated  EventType = "updated"
	EventDeleted  EventType = "deleted"
	EventSelected EventType = "selected"
)

// Event describes one store change. Record is a snapshot detached from the
// store.
type Event struct {
	Type       EventType          `json:"type"`
	ID         string             `json:"id,omitempty"`
	Record     *annotation.Record `json:"record,omitempty"`
	IsOriginal bool               `json:"isOriginal,omitempty"`
	Source     SelectionSource    `json:"source,omitempty"`
}

type Observer func(Event)

type subscription struct {
	id     int
	source SelectionSource
	fn     Observer
}

// Subscribe registers fn. Observers tagged with a source do not hear about
// selections that originated from that same source. The returned function
// unsubscribes.
func (s *Store) Subscribe(source SelectionSource, fn Observer) func() {
	s.nextSub++
	sub := &subscription{id: s.nextSub, source: source, fn: fn}
	s.observers = append(s.observers, sub)
	return func() {
		for i, o := range s.observers {
			if o.id == sub.id {
				s.observers = append(s.observers[:i], s.observers[i+1:]...)
				return
			}
		}
	}
}

func (s *Store) notify(ev Event) {
	observers := append([]*subscription(nil), s.observers...)
	for _, o := range observers {
		if ev.Type == EventSelected && o.source != SourceNone && o.source == ev.Source {
			continue
		}
		o.fn(ev)
	}
}

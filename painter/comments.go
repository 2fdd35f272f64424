package painter

import (
	"time"

	"github.com/google/uuid"

	"github.com/mgmeyers/pdfannotator/annotation"
	"github.com/mgmeyers/pdfannotator/store"
)

// AddComment appends a reply to the record with id. An empty title falls
// back to the painter's author.
func (p *Painter) AddComment(id string, c annotation.Comment) (*annotation.Record, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	rec, ok := p.store.Get(id)
	if !ok {
		return nil, false
	}
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.Title == "" {
		c.Title = p.opts.Author
	}
	if c.Date == "" {
		c.Date = annotation.Now(time.Now())
	}
	return p.setComments(rec.ID, annotation.AddReply(rec.Comments, c))
}

// UpdateComment edits the content (and the title, when not empty) of a reply.
func (p *Painter) UpdateComment(id, commentID, title, content string) (*annotation.Record, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	rec, ok := p.store.Get(id)
	if !ok {
		return nil, false
	}
	comments, ok := annotation.UpdateReply(rec.Comments, commentID, title, content, annotation.Now(time.Now()))
	if !ok {
		return nil, false
	}
	return p.setComments(rec.ID, comments)
}

func (p *Painter) DeleteComment(id, commentID string) (*annotation.Record, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	rec, ok := p.store.Get(id)
	if !ok {
		return nil, false
	}
	comments, ok := annotation.DeleteReply(rec.Comments, commentID)
	if !ok {
		return nil, false
	}
	return p.setComments(rec.ID, comments)
}

func (p *Painter) setComments(id string, comments []annotation.Comment) (*annotation.Record, bool) {
	rec, ok := p.store.Update(id, store.Partial{Comments: comments, SetComments: true})
	if ok && p.opts.Hooks.Changed != nil {
		p.opts.Hooks.Changed(rec)
	}
	return rec, ok
}

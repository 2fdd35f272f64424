package annotation

import (
	"fmt"
)

// CommentStatus is the review state carried by a reply.
type CommentStatus string

const (
	StatusAccepted  CommentStatus = "accepted"
	StatusRejected  CommentStatus = "rejected"
	StatusCancelled CommentStatus = "cancelled"
	StatusCompleted CommentStatus = "completed"
	StatusClosed    CommentStatus = "closed"
	StatusNone      CommentStatus = "none"
)

func ParseCommentStatus(s string) (CommentStatus, error) {
	switch st := CommentStatus(s); st {
	case "", StatusAccepted, StatusRejected, StatusCancelled, StatusCompleted, StatusClosed, StatusNone:
		return st, nil
	}
	return "", fmt.Errorf("unknown comment status %q", s)
}

// Comment is one reply attached to a record.
type Comment struct {
	ID      string        `json:"id" yaml:"id"`
	Title   string        `json:"title" yaml:"title"`
	Date    string        `json:"date" yaml:"date"`
	Content string        `json:"content" yaml:"content"`
	Status  CommentStatus `json:"status,omitempty" yaml:"status,omitempty"`
}

// AddReply returns comments with c appended.
func AddReply(comments []Comment, c Comment) []Comment {
	out := make([]Comment, 0, len(comments)+1)
	out = append(out, comments...)
	return append(out, c)
}

// UpdateReply returns a copy of comments where the reply with id has its
// content, date and (when non-empty) title replaced.
func UpdateReply(comments []Comment, id, title, content, date string) ([]Comment, bool) {
	out := make([]Comment, len(comments))
	found := false
	for i, c := range comments {
		if c.ID == id {
			c.Content = content
			c.Date = date
			if title != "" {
				c.Title = title
			}
			found = true
		}
		out[i] = c
	}
	return out, found
}

// DeleteReply returns comments without the reply with id.
func DeleteReply(comments []Comment, id string) ([]Comment, bool) {
	out := make([]Comment, 0, len(comments))
	found := false
	for _, c := range comments {
		if c.ID == id {
			found = true
			continue
		}
		out = append(out, c)
	}
	return out, found
}

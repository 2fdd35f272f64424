package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/mgmeyers/pdfannotator/annotation"
	"github.com/mgmeyers/pdfannotator/codec"
	"github.com/mgmeyers/pdfannotator/store"
	"github.com/mgmeyers/pdfannotator/transform"
)

// recordPatch is the body of PATCH /api/annotations/{id}. Absent fields are
// left alone.
type recordPatch struct {
	Group       *string         `json:"group"`
	Rect        *transform.Rect `json:"rect"`
	Title       *string         `json:"title"`
	Contents    *string         `json:"contents"`
	Color       *string         `json:"color"`
	Opacity     *float64        `json:"opacity"`
	StrokeWidth *float64        `json:"strokeWidth"`
}

type commentBody struct {
	Title   string                   `json:"title"`
	Content string                   `json:"content"`
	Status  annotation.CommentStatus `json:"status"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) record(id string) (*annotation.Record, bool) {
	for _, rec := range s.painter.Data() {
		if rec.ID == id {
			return rec, true
		}
	}
	return nil, false
}

func (s *Server) listDefinitions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, annotation.Definitions)
}

// listAnnotations supports ?author= and ?type= filters, both repeatable or
// comma separated.
func (s *Server) listAnnotations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := annotation.Filter{Titles: splitValues(q["author"])}
	for _, v := range splitValues(q["type"]) {
		t, ok := annotation.ParseType(v)
		if !ok {
			http.Error(w, "Unknown annotation type "+v, http.StatusBadRequest)
			return
		}
		f.Types = append(f.Types, t)
	}
	writeJSON(w, http.StatusOK, annotation.FilterRecords(s.painter.Data(), f))
}

func splitValues(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func (s *Server) listPageAnnotations(w http.ResponseWriter, r *http.Request) {
	page, err := strconv.Atoi(mux.Vars(r)["page"])
	if err != nil {
		http.Error(w, "Invalid page", http.StatusBadRequest)
		return
	}
	out := []*annotation.Record{}
	for _, rec := range s.painter.Data() {
		if rec.PageNumber == page {
			out = append(out, rec)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getAnnotation(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.record(mux.Vars(r)["id"])
	if !ok {
		http.Error(w, "Annotation not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) createAnnotation(w http.ResponseWriter, r *http.Request) {
	var rec annotation.Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.Date == "" {
		rec.Date = annotation.Now(time.Now())
	}
	if rec.Title == "" {
		rec.Title = s.opts.Painter.Author
	}
	if _, exists := s.record(rec.ID); exists {
		http.Error(w, "Annotation already exists", http.StatusConflict)
		return
	}
	if s.painter.LoadAnnotations(nil, []*annotation.Record{&rec}) == 0 {
		http.Error(w, "Invalid annotation", http.StatusUnprocessableEntity)
		return
	}

	created, _ := s.record(rec.ID)
	s.hub.publish(Message{Type: MsgAdded, ID: created.ID, Record: created})
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) updateAnnotation(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var patch recordPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if _, ok := s.record(id); !ok {
		http.Error(w, "Annotation not found", http.StatusNotFound)
		return
	}

	if patch.Color != nil || patch.Opacity != nil || patch.StrokeWidth != nil {
		style := annotation.Style{Opacity: patch.Opacity, StrokeWidth: patch.StrokeWidth}
		if patch.Color != nil {
			style.Color = *patch.Color
		}
		s.painter.UpdateStyle(id, style)
	}
	if patch.Group != nil || patch.Rect != nil || patch.Title != nil || patch.Contents != nil {
		s.painter.Update(id, store.Partial{
			Group:    patch.Group,
			Rect:     patch.Rect,
			Title:    patch.Title,
			Contents: patch.Contents,
		})
	}

	rec, ok := s.record(id)
	if !ok {
		http.Error(w, "Annotation not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) deleteAnnotation(w http.ResponseWriter, r *http.Request) {
	if !s.painter.Delete(mux.Vars(r)["id"]) {
		http.Error(w, "Annotation not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) addComment(w http.ResponseWriter, r *http.Request) {
	var body commentBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if body.Status != "" {
		if _, err := annotation.ParseCommentStatus(string(body.Status)); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	rec, ok := s.painter.AddComment(mux.Vars(r)["id"], annotation.Comment{
		Title:   body.Title,
		Content: body.Content,
		Status:  body.Status,
	})
	if !ok {
		http.Error(w, "Annotation not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) updateComment(w http.ResponseWriter, r *http.Request) {
	var body commentBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	vars := mux.Vars(r)
	rec, ok := s.painter.UpdateComment(vars["id"], vars["commentId"], body.Title, body.Content)
	if !ok {
		http.Error(w, "Comment not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) deleteComment(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if _, ok := s.painter.DeleteComment(vars["id"], vars["commentId"]); !ok {
		http.Error(w, "Comment not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) exportPDF(w http.ResponseWriter, r *http.Request) {
	if s.opts.Source == "" {
		http.Error(w, "No source document", http.StatusNotFound)
		return
	}
	f, err := os.Open(s.opts.Source)
	if err != nil {
		s.log.WithError(err).Error("opening source document failed")
		http.Error(w, "Failed to open source document", http.StatusInternalServerError)
		return
	}
	defer f.Close()

	var buf bytes.Buffer
	if err := s.encoder.Encode(r.Context(), f, s.painter.Data(), &buf); err != nil {
		s.log.WithError(err).Error("exporting document failed")
		http.Error(w, "Failed to export document", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="annotated.pdf"`)
	w.Write(buf.Bytes())
}

func (s *Server) exportCSV(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := codec.WriteTable(&buf, s.painter.Data()); err != nil {
		http.Error(w, "Failed to export table", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Write(buf.Bytes())
}

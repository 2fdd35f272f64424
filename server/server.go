// Package server exposes a painter over HTTP and a websocket shell protocol.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/mgmeyers/pdfannotator/annotation"
	"github.com/mgmeyers/pdfannotator/codec"
	"github.com/mgmeyers/pdfannotator/painter"
	"github.com/mgmeyers/pdfannotator/repository"
	"github.com/mgmeyers/pdfannotator/store"
)

type Options struct {
	Log logrus.FieldLogger

	// Painter configures the painter the server drives. Its hooks are
	// replaced by the server's.
	Painter painter.Options

	// Repository, when set, receives the full record list after every
	// change.
	Repository repository.Repository

	// Source is the document PDF exports are written over.
	Source string

	AllowedOrigins []string
}

type Server struct {
	opts    Options
	log     logrus.FieldLogger
	painter *painter.Painter
	hub     *hub
	router  *mux.Router
	encoder *codec.Encoder

	upgrader    websocket.Upgrader
	dirty       chan struct{}
	unsubscribe func()
}

// watcher is implemented by repositories that report external changes.
type watcher interface {
	Watch(ctx context.Context, fn func([]*annotation.Record)) error
}

func New(opts Options) *Server {
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	s := &Server{
		opts:    opts,
		log:     opts.Log.WithField("component", "server"),
		hub:     newHub(opts.Log.WithField("component", "hub")),
		encoder: codec.NewEncoder(opts.Log),
		dirty:   make(chan struct{}, 1),
	}
	s.upgrader = websocket.Upgrader{CheckOrigin: s.checkOrigin}

	po := opts.Painter
	if po.Log == nil {
		po.Log = opts.Log
	}
	po.Hooks = painter.Hooks{
		Added: func(rec *annotation.Record) {
			s.hub.publish(Message{Type: MsgAdded, ID: rec.ID, Record: rec})
		},
		Deleted: func(id string) {
			s.hub.publish(Message{Type: MsgDeleted, ID: id})
		},
		Selected: func(rec *annotation.Record, isClick bool) {
			msg := Message{Type: MsgSelected, Record: rec, IsClick: isClick}
			if rec != nil {
				msg.ID = rec.ID
			}
			s.hub.publish(msg)
		},
		Changing: func(id string) {
			s.hub.publish(Message{Type: MsgChanging, ID: id})
		},
		Changed: func(rec *annotation.Record) {
			s.hub.publish(Message{Type: MsgChanged, ID: rec.ID, Record: rec})
		},
		ViewAreaChanged: func() {
			s.hub.publish(Message{Type: MsgViewAreaChanged})
		},
	}
	s.painter = painter.New(po)
	s.unsubscribe = s.painter.Store().Subscribe(store.SourceNone, s.onStoreEvent)

	s.routes()
	return s
}

func (s *Server) routes() {
	r := mux.NewRouter()

	r.HandleFunc("/ws", s.handleWebSocket)

	r.HandleFunc("/api/definitions", s.listDefinitions).Methods("GET")
	r.HandleFunc("/api/annotations", s.listAnnotations).Methods("GET")
	r.HandleFunc("/api/annotations", s.createAnnotation).Methods("POST")
	r.HandleFunc("/api/pages/{page:[0-9]+}/annotations", s.listPageAnnotations).Methods("GET")
	r.HandleFunc("/api/annotations/{id}", s.getAnnotation).Methods("GET")
	r.HandleFunc("/api/annotations/{id}", s.updateAnnotation).Methods("PATCH")
	r.HandleFunc("/api/annotations/{id}", s.deleteAnnotation).Methods("DELETE")
	r.HandleFunc("/api/annotations/{id}/comments", s.addComment).Methods("POST")
	r.HandleFunc("/api/annotations/{id}/comments/{commentId}", s.updateComment).Methods("PATCH")
	r.HandleFunc("/api/annotations/{id}/comments/{commentId}", s.deleteComment).Methods("DELETE")
	r.HandleFunc("/api/export/pdf", s.exportPDF).Methods("GET")
	r.HandleFunc("/api/export/csv", s.exportCSV).Methods("GET")

	s.router = r
}

// Painter returns the painter the server drives.
func (s *Server) Painter() *painter.Painter { return s.painter }

// Handler wraps the router with a top-level CORS middleware so that
// preflight (OPTIONS) requests are handled before mux does method-based
// matching.
func (s *Server) Handler() http.Handler {
	return s.cors(s.router)
}

// Start runs the hub and the persistence loop until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	go s.hub.run(ctx)

	if s.opts.Repository != nil {
		if w, ok := s.opts.Repository.(watcher); ok {
			err := w.Watch(ctx, func(records []*annotation.Record) {
				n := s.painter.SyncAnnotations(records)
				s.log.WithField("records", n).Info("reloaded annotations changed on disk")
				s.hub.publish(Message{Type: MsgSnapshot, Records: s.painter.Data()})
			})
			if err != nil {
				return errors.Wrap(err, "watch repository")
			}
		}
		go s.persist(ctx)
	}
	return nil
}

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	if err := s.Start(ctx); err != nil {
		return err
	}

	srv := &http.Server{Addr: addr, Handler: s.Handler()}
	errc := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("starting annotation server")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdown)
	}
}

// Close destroys the painter and closes the repository.
func (s *Server) Close() error {
	s.unsubscribe()
	s.painter.Destroy()
	if s.opts.Repository != nil {
		return s.opts.Repository.Close()
	}
	return nil
}

func (s *Server) onStoreEvent(ev store.Event) {
	if ev.Type == store.EventSelected {
		return
	}
	select {
	case s.dirty <- struct{}{}:
	default:
	}
}

// persist saves the record list after changes, coalescing bursts.
func (s *Server) persist(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.dirty:
			if err := s.opts.Repository.Save(ctx, s.painter.Data()); err != nil {
				s.log.WithError(err).Error("saving annotations failed")
			}
		}
	}
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, o := range s.opts.AllowedOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

// cors handles CORS headers and responds to preflight requests at the outer
// layer so they don't get rejected by method-restricted routes.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		switch {
		case origin != "" && s.checkOrigin(r):
			w.Header().Set("Access-Control-Allow-Origin", origin)
		case origin == "":
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}

		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")

		if reqHeaders := r.Header.Get("Access-Control-Request-Headers"); reqHeaders != "" {
			w.Header().Set("Access-Control-Allow-Headers", reqHeaders)
		} else {
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}

		w.Header().Set("Access-Control-Max-Age", "600")
		w.Header().Add("Vary", "Origin")
		w.Header().Add("Vary", "Access-Control-Request-Headers")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

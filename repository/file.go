package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/mgmeyers/pdfannotator/annotation"
)

// codec reads and writes a record list in one file format.
type codec interface {
	Unmarshal(data []byte) ([]*annotation.Record, error)
	Marshal(records []*annotation.Record) ([]byte, error)
}

type jsonCodec struct{}

func (jsonCodec) Unmarshal(data []byte) ([]*annotation.Record, error) {
	var records []*annotation.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, errors.Wrap(err, "invalid json")
	}
	return records, nil
}

func (jsonCodec) Marshal(records []*annotation.Record) ([]byte, error) {
	return json.MarshalIndent(records, "", "  ")
}

type yamlCodec struct{}

func (yamlCodec) Unmarshal(data []byte) ([]*annotation.Record, error) {
	var records []*annotation.Record
	if err := yaml.Unmarshal(data, &records); err != nil {
		return nil, errors.Wrap(err, "invalid yaml")
	}
	return records, nil
}

func (yamlCodec) Marshal(records []*annotation.Record) ([]byte, error) {
	return yaml.Marshal(records)
}

var codecs = map[string]codec{
	".json": jsonCodec{},
	".yaml": yamlCodec{},
	".yml":  yamlCodec{},
}

// File keeps the records in a JSON or YAML file, picked by extension.
type File struct {
	path  string
	codec codec
	log   logrus.FieldLogger

	mu        sync.Mutex
	lastSaved []byte
	watcher   *fsnotify.Watcher
}

func NewFile(path string, log logrus.FieldLogger) (*File, error) {
	c, ok := codecs[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return nil, errors.Errorf("unsupported records file %q: use .json, .yaml or .yml", path)
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &File{path: path, codec: c, log: log.WithField("records", path)}, nil
}

func (f *File) Path() string { return f.path }

func (f *File) Load(ctx context.Context) ([]*annotation.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrapf(err, "read %s", f.path)
	}
	records, err := f.codec.Unmarshal(data)
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", f.path)
	}
	return records, nil
}

// Save writes records atomically via a temp file + os.Rename.
func (f *File) Save(ctx context.Context, records []*annotation.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if records == nil {
		records = []*annotation.Record{}
	}
	data, err := f.codec.Marshal(records)
	if err != nil {
		return errors.Wrap(err, "encode records")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	// Write to a temp file in the same directory so os.Rename is atomic.
	tmp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+"-*.tmp")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	tmpName := tmp.Name()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrap(err, "write temp file")
	}
	if err = tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "close temp file")
	}
	if err = os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "rename temp file")
	}

	f.lastSaved = data
	return nil
}

// Watch calls fn with the reloaded records whenever the file changes on disk
// through another writer. Changes made by Save are not reported. Watching
// stops when ctx is done or the repository is closed.
func (f *File) Watch(ctx context.Context, fn func([]*annotation.Record)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "create watcher")
	}
	// Renames replace the file, so the directory is watched rather than the
	// file itself.
	if err := watcher.Add(filepath.Dir(f.path)); err != nil {
		watcher.Close()
		return errors.Wrapf(err, "watch %s", filepath.Dir(f.path))
	}

	f.mu.Lock()
	if f.watcher != nil {
		f.watcher.Close()
	}
	f.watcher = watcher
	f.mu.Unlock()

	go f.watch(ctx, watcher, fn)
	return nil
}

func (f *File) watch(ctx context.Context, watcher *fsnotify.Watcher, fn func([]*annotation.Record)) {
	defer watcher.Close()
	target := filepath.Clean(f.path)

	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			f.log.WithError(err).Warn("watch error")
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			f.reload(ctx, fn)
		}
	}
}

func (f *File) reload(ctx context.Context, fn func([]*annotation.Record)) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		f.log.WithError(err).Debug("file changed but is not readable yet")
		return
	}

	f.mu.Lock()
	own := bytes.Equal(data, f.lastSaved)
	f.mu.Unlock()
	if own {
		return
	}

	records, err := f.codec.Unmarshal(data)
	if err != nil {
		f.log.WithError(err).Warn("ignoring unparseable records file")
		return
	}
	if ctx.Err() == nil {
		fn(records)
	}
}

func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.watcher == nil {
		return nil
	}
	err := f.watcher.Close()
	f.watcher = nil
	return err
}

var _ Repository = (*File)(nil)

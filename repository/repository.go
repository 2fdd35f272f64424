// Package repository persists the record list of a document.
package repository

import (
	"context"

	"github.com/pkg/errors"

	"github.com/mgmeyers/pdfannotator/annotation"
)

// ErrNotFound is returned by Load when nothing was saved yet.
var ErrNotFound = errors.New("no saved annotations")

// Repository loads and saves the full, ordered record list of one document.
type Repository interface {
	Load(ctx context.Context) ([]*annotation.Record, error)
	Save(ctx context.Context, records []*annotation.Record) error
	Close() error
}

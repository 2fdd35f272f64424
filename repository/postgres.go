package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/mgmeyers/pdfannotator/annotation"
)

// Postgres keeps the records of one document in a JSONB table, one row per
// record.
type Postgres struct {
	db       *sql.DB
	document string
}

// NewPostgres opens connStr and creates the table if it doesn't exist.
// document scopes every query to one document.
func NewPostgres(ctx context.Context, connStr, document string) (*Postgres, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	// Test the connection
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to ping database")
	}

	p := &Postgres{db: db, document: document}
	if err := p.createTable(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to create table")
	}
	return p, nil
}

func (p *Postgres) createTable(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS annotations (
		document TEXT NOT NULL,
		id TEXT NOT NULL,
		position INTEGER NOT NULL,
		page INTEGER NOT NULL,
		record JSONB NOT NULL,
		PRIMARY KEY (document, id)
	);

	CREATE INDEX IF NOT EXISTS idx_annotations_page ON annotations(document, page);
	`

	_, err := p.db.ExecContext(ctx, query)
	return err
}

func (p *Postgres) Load(ctx context.Context) ([]*annotation.Record, error) {
	query := `
		SELECT record
		FROM annotations
		WHERE document = $1
		ORDER BY position
	`

	rows, err := p.db.QueryContext(ctx, query, p.document)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list annotations")
	}
	defer rows.Close()

	var records []*annotation.Record
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, errors.Wrap(err, "failed to scan annotation")
		}
		rec := &annotation.Record{}
		if err := json.Unmarshal(raw, rec); err != nil {
			return nil, errors.Wrap(err, "failed to decode annotation")
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate rows")
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}
	return records, nil
}

// Save replaces the stored records of the document in one transaction.
func (p *Postgres) Save(ctx context.Context, records []*annotation.Record) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM annotations WHERE document = $1`, p.document); err != nil {
		return errors.Wrap(err, "failed to clear annotations")
	}

	query := `
		INSERT INTO annotations (document, id, position, page, record)
		VALUES ($1, $2, $3, $4, $5)
	`
	for i, rec := range records {
		raw, err := json.Marshal(rec)
		if err != nil {
			return errors.Wrapf(err, "failed to encode annotation %s", rec.ID)
		}
		if _, err := tx.ExecContext(ctx, query, p.document, rec.ID, i, rec.PageNumber, raw); err != nil {
			return errors.Wrapf(err, "failed to insert annotation %s", rec.ID)
		}
	}

	return errors.Wrap(tx.Commit(), "failed to commit annotations")
}

// Close closes the database connection
func (p *Postgres) Close() error {
	return p.db.Close()
}

var _ Repository = (*Postgres)(nil)

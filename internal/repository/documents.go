package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/form106-ingest/constants"
	"github.com/joseph-ayodele/form106-ingest/internal/entity"
)

type DocumentRepository interface {
	Create(ctx context.Context, doc *entity.Document) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Document, error)
	GetByHash(ctx context.Context, hash string) (*entity.Document, error)
	// UpsertByHash returns the existing document for doc.ContentHash, or
	// creates doc. existed reports which happened.
	UpsertByHash(ctx context.Context, doc *entity.Document) (stored *entity.Document, existed bool, err error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status constants.DocumentStatus) error
	SetTaxYear(ctx context.Context, id uuid.UUID, year int) error
	List(ctx context.Context) ([]entity.Document, error)
}

type documentRepo struct {
	db *DB
}

func NewDocumentRepository(db *DB) DocumentRepository {
	return &documentRepo{db: db}
}

const documentColumns = `id, source_path, file_name, content_hash, file_size, status, tax_year, created_at, updated_at`

func (r *documentRepo) Create(ctx context.Context, doc *entity.Document) error {
	now := time.Now().UTC()
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	if doc.Status == "" {
		doc.Status = constants.DocumentStatusUploaded
	}
	doc.CreatedAt, doc.UpdatedAt = now, now
	_, err := r.db.exec(ctx, `INSERT INTO documents (`+documentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID.String(), doc.SourcePath, doc.FileName, doc.ContentHash, doc.FileSize,
		string(doc.Status), doc.TaxYear, toMillis(now), toMillis(now))
	if err != nil {
		r.db.logger.Error("failed to create document", "file_name", doc.FileName, "error", err)
		return err
	}
	return nil
}

func (r *documentRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Document, error) {
	return scanDocument(r.db.queryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = ?`, id.String()))
}

func (r *documentRepo) GetByHash(ctx context.Context, hash string) (*entity.Document, error) {
	return scanDocument(r.db.queryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE content_hash = ?`, hash))
}

func (r *documentRepo) UpsertByHash(ctx context.Context, doc *entity.Document) (*entity.Document, bool, error) {
	if existing, err := r.GetByHash(ctx, doc.ContentHash); err == nil {
		return existing, true, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}
	if err := r.Create(ctx, doc); err != nil {
		// lost a race with a concurrent insert of the same content
		if existing, gerr := r.GetByHash(ctx, doc.ContentHash); gerr == nil {
			return existing, true, nil
		}
		return nil, false, err
	}
	return doc, false, nil
}

func (r *documentRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status constants.DocumentStatus) error {
	return r.update(ctx, `UPDATE documents SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), toMillis(time.Now()), id.String())
}

func (r *documentRepo) SetTaxYear(ctx context.Context, id uuid.UUID, year int) error {
	return r.update(ctx, `UPDATE documents SET tax_year = ?, updated_at = ? WHERE id = ?`,
		year, toMillis(time.Now()), id.String())
}

func (r *documentRepo) update(ctx context.Context, q string, args ...any) error {
	res, err := r.db.exec(ctx, q, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *documentRepo) List(ctx context.Context) ([]entity.Document, error) {
	rows, err := r.db.query(ctx, `SELECT `+documentColumns+` FROM documents ORDER BY created_at, file_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []entity.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *d)
	}
	return docs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*entity.Document, error) {
	build, dest := documentDest()
	err := row.Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return build()
}

// documentDest returns scan targets for documentColumns and a builder that
// converts them once scanned.
func documentDest() (func() (*entity.Document, error), []any) {
	var (
		d                entity.Document
		id, status       string
		taxYear          sql.NullInt64
		created, updated int64
	)
	dest := []any{&id, &d.SourcePath, &d.FileName, &d.ContentHash, &d.FileSize, &status, &taxYear, &created, &updated}
	build := func() (*entity.Document, error) {
		var err error
		if d.ID, err = uuid.Parse(id); err != nil {
			return nil, err
		}
		d.Status = constants.DocumentStatus(status)
		if taxYear.Valid {
			y := int(taxYear.Int64)
			d.TaxYear = &y
		}
		d.CreatedAt, d.UpdatedAt = fromMillis(created), fromMillis(updated)
		return &d, nil
	}
	return build, dest
}
